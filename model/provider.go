package model

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrEmptyModelName is returned when a blank identifier is acquired.
	ErrEmptyModelName = errors.New("model name is required")
	// ErrUnknownBackend is returned when no backend can serve an identifier.
	ErrUnknownBackend = errors.New("unknown backend")
)

// Provider turns a model identifier into a generation capability. Acquiring
// may be expensive (client setup, weight loading) and may fail; failures are
// reported as *AcquisitionError and are not retried.
type Provider interface {
	Acquire(ctx context.Context, name string) (Generator, error)
}

// ProviderFunc adapts a plain function to the Provider interface.
type ProviderFunc func(ctx context.Context, name string) (Generator, error)

// Acquire implements Provider.
func (f ProviderFunc) Acquire(ctx context.Context, name string) (Generator, error) {
	return f(ctx, name)
}

// AcquisitionError reports a model that could not be acquired.
type AcquisitionError struct {
	// Model is the identifier as requested by the task.
	Model string
	// Backend is the resolved backend, if any.
	Backend string
	Err     error
}

// Error implements the error interface.
func (e *AcquisitionError) Error() string {
	if e.Backend != "" {
		return fmt.Sprintf("acquire model %q (backend %s): %v", e.Model, e.Backend, e.Err)
	}
	return fmt.Sprintf("acquire model %q: %v", e.Model, e.Err)
}

// Unwrap returns the underlying cause.
func (e *AcquisitionError) Unwrap() error { return e.Err }

// Factory builds a backend Model for a backend-local model identifier. An
// empty modelID selects the backend's default model.
type Factory func(ctx context.Context, modelID string) (Model, error)

// RegistryOptions configure a Registry.
type RegistryOptions struct {
	// DefaultBackend serves identifiers without a registered backend prefix.
	DefaultBackend string
	// Generator configures the adapters handed out by Acquire.
	Generator GeneratorOptions
}

// Registry is a Provider that dispatches identifiers to named backends.
//
// Identifiers resolve as follows:
//   - "openai:gpt-4o-mini" -> backend "openai", model "gpt-4o-mini"
//   - "echo"               -> backend "echo", backend default model
//   - anything else        -> DefaultBackend with the full identifier
//
// Registry is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	opts      RegistryOptions
}

// NewRegistry constructs an empty Registry.
func NewRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Registry{factories: make(map[string]Factory), opts: opts}
}

// Register adds or replaces the factory for backend.
func (r *Registry) Register(backend string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[backend] = f
}

// Backends lists the registered backend names in sorted order.
func (r *Registry) Backends() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve splits an identifier into backend and backend-local model id.
func (r *Registry) Resolve(name string) (backend, modelID string, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", ErrEmptyModelName
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.factories[name]; ok {
		return name, "", nil
	}
	if prefix, rest, found := strings.Cut(name, ":"); found {
		if _, ok := r.factories[prefix]; ok {
			return prefix, rest, nil
		}
	}
	if r.opts.DefaultBackend != "" {
		if _, ok := r.factories[r.opts.DefaultBackend]; ok {
			return r.opts.DefaultBackend, name, nil
		}
		return "", "", fmt.Errorf("%w %q", ErrUnknownBackend, r.opts.DefaultBackend)
	}
	return "", "", fmt.Errorf("%w for %q", ErrUnknownBackend, name)
}

// Acquire implements Provider.
func (r *Registry) Acquire(ctx context.Context, name string) (Generator, error) {
	if err := ctx.Err(); err != nil {
		return nil, &AcquisitionError{Model: name, Err: err}
	}
	backend, modelID, err := r.Resolve(name)
	if err != nil {
		return nil, &AcquisitionError{Model: name, Err: err}
	}

	r.mu.RLock()
	factory := r.factories[backend]
	r.mu.RUnlock()

	m, err := factory(ctx, modelID)
	if err != nil {
		return nil, &AcquisitionError{Model: name, Backend: backend, Err: err}
	}
	return NewGenerator(m, func(o *GeneratorOptions) { *o = r.opts.Generator }), nil
}
