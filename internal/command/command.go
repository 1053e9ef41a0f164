package command

import (
	"errors"
	"fmt"
	"strings"
)

// MaxSlots is the largest number of slots a command may declare.
const MaxSlots = 9

// Codec errors.
var (
	ErrNonContiguous = errors.New("populated slots must form a contiguous prefix")
	ErrKindMismatch  = errors.New("value kind does not match slot")
	ErrEmptyValue    = errors.New("empty value")
	ErrInvalidValue  = errors.New("invalid value")
)

// ArgumentError reports a token that could not be parsed as its slot's kind.
type ArgumentError struct {
	Err         error
	Command     string
	Placeholder string
	Token       string
	Slot        int
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("/%s: argument %d %s: cannot parse %q: %v",
		e.Command, e.Slot+1, e.Placeholder, e.Token, e.Err)
}

func (e *ArgumentError) Unwrap() error { return e.Err }

// TooManyArgumentsError reports more tokens than declared slots.
type TooManyArgumentsError struct {
	Command  string
	Expected int
	Found    int
}

func (e *TooManyArgumentsError) Error() string {
	return fmt.Sprintf("/%s: expected at most %d arguments, found %d", e.Command, e.Expected, e.Found)
}

// Slot declares one positional argument.
type Slot struct {
	Placeholder string
	Kind        Kind
}

// Spec declares a command: its name, description and ordered slots.
type Spec struct {
	Name        string
	Description string
	Slots       []Slot
}

// NewSpec builds a spec and panics if it declares more than MaxSlots slots.
// Specs are package-level declarations, so this fails at init time.
func NewSpec(name, description string, slots ...Slot) *Spec {
	if len(slots) > MaxSlots {
		panic(fmt.Sprintf("command %q declares %d slots, max is %d", name, len(slots), MaxSlots))
	}
	return &Spec{Name: name, Description: description, Slots: slots}
}

// Arity is the number of declared slots.
func (s *Spec) Arity() int { return len(s.Slots) }

// New builds a command from a prefix of slot values. Because values are positional
// there is no way to express a gap; kinds are checked against the spec.
func (s *Spec) New(values ...Value) (Command, error) {
	if len(values) > len(s.Slots) {
		return Command{}, &TooManyArgumentsError{Command: s.Name, Expected: len(s.Slots), Found: len(values)}
	}
	for i, v := range values {
		if v.kind != s.Slots[i].Kind {
			return Command{}, fmt.Errorf("/%s %s: %w: want %s, got %s",
				s.Name, s.Slots[i].Placeholder, ErrKindMismatch, s.Slots[i].Kind, v.kind)
		}
		if err := v.validate(); err != nil {
			return Command{}, fmt.Errorf("/%s %s: %w", s.Name, s.Slots[i].Placeholder, err)
		}
	}
	return Command{spec: s, values: append([]Value(nil), values...)}, nil
}

// MustNew is New for values known to be valid; it panics otherwise.
func (s *Spec) MustNew(values ...Value) Command {
	cmd, err := s.New(values...)
	if err != nil {
		panic(err)
	}
	return cmd
}

// FromSlots builds a command from one optional value per slot (nil is absent).
// An absent slot followed by a populated one is rejected with ErrNonContiguous.
func (s *Spec) FromSlots(slots ...*Value) (Command, error) {
	var values []Value
	absent := -1
	for i, v := range slots {
		if v == nil {
			if absent < 0 {
				absent = i
			}
			continue
		}
		if absent >= 0 {
			return Command{}, fmt.Errorf("/%s: slot %d populated after absent slot %d: %w",
				s.Name, i+1, absent+1, ErrNonContiguous)
		}
		values = append(values, *v)
	}
	return s.New(values...)
}

// Parse builds a command from the argument remainder of a command line. Missing
// trailing tokens leave slots absent; surplus tokens are an error.
func (s *Spec) Parse(args string) (Command, error) {
	tokens := Split(args)
	if len(tokens) > len(s.Slots) {
		return Command{}, &TooManyArgumentsError{Command: s.Name, Expected: len(s.Slots), Found: len(tokens)}
	}
	values := make([]Value, 0, len(tokens))
	for i, token := range tokens {
		v, err := parseValue(s.Slots[i].Kind, token)
		if err != nil {
			return Command{}, &ArgumentError{
				Command:     s.Name,
				Slot:        i,
				Placeholder: s.Slots[i].Placeholder,
				Token:       token,
				Err:         err,
			}
		}
		values = append(values, v)
	}
	return s.New(values...)
}

// Command is a spec plus its populated slot prefix.
type Command struct {
	spec   *Spec
	values []Value
}

// Spec returns the command's declaration.
func (c Command) Spec() *Spec { return c.spec }

// Name returns the command name without the leading slash.
func (c Command) Name() string {
	if c.spec == nil {
		return ""
	}
	return c.spec.Name
}

// Populated is the length of the populated prefix.
func (c Command) Populated() int { return len(c.values) }

// Complete reports whether every declared slot is populated.
func (c Command) Complete() bool { return c.spec != nil && len(c.values) == len(c.spec.Slots) }

// Values returns a copy of the populated prefix.
func (c Command) Values() []Value { return append([]Value(nil), c.values...) }

// Arg returns slot i and whether it is populated.
func (c Command) Arg(i int) (Value, bool) {
	if i < 0 || i >= len(c.values) {
		return Value{}, false
	}
	return c.values[i], true
}

// With returns a copy of c with v appended as the next populated slot.
func (c Command) With(v Value) (Command, error) {
	return c.spec.New(append(c.Values(), v)...)
}

// Truncate returns a copy of c keeping only the first n populated slots.
func (c Command) Truncate(n int) Command {
	if n < 0 {
		n = 0
	}
	if n > len(c.values) {
		n = len(c.values)
	}
	return Command{spec: c.spec, values: append([]Value(nil), c.values[:n]...)}
}

// Equal reports whether two commands share a spec and slot values.
func (c Command) Equal(o Command) bool {
	if c.Name() != o.Name() || len(c.values) != len(o.values) {
		return false
	}
	for i := range c.values {
		if !c.values[i].Equal(o.values[i]) {
			return false
		}
	}
	return true
}

// Minimal serializes the populated prefix. When any slot is absent a trailing
// space is appended so a chat input box is ready for the next token.
func (c Command) Minimal() string {
	var b strings.Builder
	b.WriteString("/")
	b.WriteString(c.Name())
	for _, v := range c.values {
		b.WriteByte(' ')
		b.WriteString(Escape(v.String()))
	}
	if !c.Complete() {
		b.WriteByte(' ')
	}
	return b.String()
}

// Usage serializes every declared slot, substituting placeholders for absent ones.
func (c Command) Usage() string {
	var b strings.Builder
	b.WriteString("/")
	b.WriteString(c.Name())
	if c.spec == nil {
		return b.String()
	}
	for i, slot := range c.spec.Slots {
		b.WriteByte(' ')
		if i < len(c.values) {
			b.WriteString(Escape(c.values[i].String()))
		} else {
			b.WriteString(slot.Placeholder)
		}
	}
	return b.String()
}

// String is the minimal form without the trailing space.
func (c Command) String() string {
	s := c.Minimal()
	if !c.Complete() {
		s = s[:len(s)-1]
	}
	return s
}
