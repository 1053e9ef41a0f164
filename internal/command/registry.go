package command

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotCommand is returned when a line does not start with a slash.
var ErrNotCommand = errors.New("not a command line")

// UnknownCommandError reports a command name with no registered spec.
type UnknownCommandError struct {
	Name string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command /%s", e.Name)
}

// Registry maps command names to specs.
type Registry struct {
	specs map[string]*Spec
}

// NewRegistry creates a registry holding the given specs.
func NewRegistry(specs ...*Spec) *Registry {
	r := &Registry{specs: make(map[string]*Spec, len(specs))}
	for _, s := range specs {
		r.Register(s)
	}
	return r
}

// Register adds a spec, replacing any spec with the same name.
func (r *Registry) Register(s *Spec) {
	r.specs[s.Name] = s
}

// Lookup returns the spec registered under name.
func (r *Registry) Lookup(name string) (*Spec, bool) {
	s, ok := r.specs[name]
	return s, ok
}

// Specs returns all registered specs sorted by name.
func (r *Registry) Specs() []*Spec {
	specs := make([]*Spec, 0, len(r.specs))
	for _, s := range r.specs {
		specs = append(specs, s)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// Parse parses a full command line such as "/add_filter Food (?i)coffee".
// A "@botname" suffix on the command word is accepted; when botName is non-empty
// a suffix naming another bot is rejected.
func (r *Registry) Parse(line, botName string) (Command, error) {
	line = strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(line, "/") {
		return Command{}, ErrNotCommand
	}
	word, args, _ := strings.Cut(line[1:], " ")
	name, addressee, addressed := strings.Cut(word, "@")
	if addressed && botName != "" && !strings.EqualFold(addressee, botName) {
		return Command{}, fmt.Errorf("/%s is addressed to @%s", name, addressee)
	}
	spec, ok := r.Lookup(strings.ToLower(name))
	if !ok {
		return Command{}, &UnknownCommandError{Name: name}
	}
	return spec.Parse(args)
}
