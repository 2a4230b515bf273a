package action

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
)

// Registry maps action identifiers to actions.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]Action
	strict  bool
	logger  *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithStrict makes duplicate registrations fail with ErrDuplicateAction
// instead of replacing the earlier action.
func WithStrict(strict bool) Option {
	return func(r *Registry) {
		r.strict = strict
	}
}

// WithLogger sets the logger used to report replaced registrations.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		actions: make(map[string]Action),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds an action. A second registration of the same ID fails in
// strict mode and replaces the earlier action otherwise.
func (r *Registry) Register(a Action) error {
	if err := a.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.actions[a.ID]; exists {
		if r.strict {
			return fmt.Errorf("%w: %s", ErrDuplicateAction, a.ID)
		}
		r.logger.Warn("action registered twice, replacing earlier registration",
			"action", a.ID,
			"label", a.Label)
	}

	r.actions[a.ID] = a
	return nil
}

// MustRegister is Register for static setup code; it panics on error.
func (r *Registry) MustRegister(a Action) {
	if err := r.Register(a); err != nil {
		panic(err)
	}
}

// Lookup returns the action registered under id.
func (r *Registry) Lookup(id string) (Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.actions[id]
	if !ok {
		return Action{}, fmt.Errorf("%w: %q", ErrActionNotFound, id)
	}
	return a, nil
}

// IDs returns the registered identifiers in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.actions))
	for id := range r.actions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered actions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.actions)
}
