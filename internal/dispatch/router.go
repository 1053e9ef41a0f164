// Package dispatch routes parsed commands to the stage registered for the number
// of populated slots.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/ledgerbot/internal/command"
)

// ErrInconsistent is returned when a command carries more populated slots than its
// family declares. Construction through command.Spec makes this unreachable.
var ErrInconsistent = errors.New("command slots are inconsistent with the declared arity")

// IncompleteError is returned when a family has no stage for the supplied number of
// arguments. Usage is the complete-mode rendering of the command.
type IncompleteError struct {
	Command string
	Usage   string
	Given   int
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("/%s: %d arguments is not enough, usage: %s", e.Command, e.Given, e.Usage)
}

// StageFunc handles a command with exactly len(args) populated slots.
type StageFunc[T any] func(ctx context.Context, target T, args []command.Value) error

// Route is one command family: its spec and a stage per populated count.
type Route[T any] struct {
	spec   *command.Spec
	stages []StageFunc[T]
}

// Stage registers fn for commands with exactly k populated slots.
// It panics when k is outside 0..arity.
func (r *Route[T]) Stage(k int, fn StageFunc[T]) *Route[T] {
	if k < 0 || k > r.spec.Arity() {
		panic(fmt.Sprintf("/%s: stage %d outside 0..%d", r.spec.Name, k, r.spec.Arity()))
	}
	r.stages[k] = fn
	return r
}

// Stages registers fn for every populated count from lo to hi inclusive.
func (r *Route[T]) Stages(lo, hi int, fn StageFunc[T]) *Route[T] {
	for k := lo; k <= hi; k++ {
		r.Stage(k, fn)
	}
	return r
}

// Spec returns the family's declaration.
func (r *Route[T]) Spec() *command.Spec { return r.spec }

// Router holds every family known to a bot. It is built once at startup and is
// safe for concurrent use afterwards.
type Router[T any] struct {
	routes   map[string]*Route[T]
	registry *command.Registry
}

// NewRouter creates an empty router.
func NewRouter[T any]() *Router[T] {
	return &Router[T]{
		routes:   make(map[string]*Route[T]),
		registry: command.NewRegistry(),
	}
}

// Handle registers a family and returns its route for stage registration.
func (r *Router[T]) Handle(spec *command.Spec) *Route[T] {
	route := &Route[T]{spec: spec, stages: make([]StageFunc[T], spec.Arity()+1)}
	r.routes[spec.Name] = route
	r.registry.Register(spec)
	return route
}

// Registry returns the registry of every handled spec, for parsing command lines.
func (r *Router[T]) Registry() *command.Registry { return r.registry }

// Dispatch invokes the stage matching the populated prefix length of cmd.
func (r *Router[T]) Dispatch(ctx context.Context, target T, cmd command.Command) error {
	route, ok := r.routes[cmd.Name()]
	if !ok {
		return &command.UnknownCommandError{Name: cmd.Name()}
	}
	k := cmd.Populated()
	if k > route.spec.Arity() {
		return fmt.Errorf("/%s with %d slots: %w", cmd.Name(), k, ErrInconsistent)
	}
	stage := route.stages[k]
	if stage == nil {
		return &IncompleteError{Command: cmd.Name(), Given: k, Usage: cmd.Usage()}
	}
	return stage(ctx, target, cmd.Values())
}
