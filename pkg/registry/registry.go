package registry

import (
	"fmt"
	"slices"
	"sync"

	"github.com/aretw0/scenestack/pkg/domain"
)

// Key identifies a capability by a stable name and carries its Go type, so lookups are
// typed without reflection.
type Key[T any] struct {
	name string
}

// NewKey defines a capability key. Two keys with the same name address the same binding.
func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name}
}

// Name returns the capability identifier.
func (k Key[T]) Name() string { return k.name }

// resolver is the type-erased side of a Handle, kept by the registry for Finalize.
type resolver interface {
	resolve() error
}

// Registry manages process-wide capability bindings.
type Registry struct {
	mu       sync.RWMutex
	services map[string]any
	handles  []resolver
}

// New creates a new empty registry.
func New() *Registry {
	return &Registry{
		services: make(map[string]any),
	}
}

// Register binds instance to the capability key.
// Returns domain.ErrDuplicateRegistration if the capability is already bound.
func Register[T any](r *Registry, key Key[T], instance T) error {
	if any(instance) == nil {
		return fmt.Errorf("register %q: nil instance", key.name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.services[key.name]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateRegistration, key.name)
	}
	r.services[key.name] = instance
	return nil
}

// MustRegister is like Register but panics on error. Intended for startup wiring.
func MustRegister[T any](r *Registry, key Key[T], instance T) {
	if err := Register(r, key, instance); err != nil {
		panic(err)
	}
}

// Resolve returns the instance bound to key.
// Returns domain.ErrUnresolvedService if nothing is bound yet.
func Resolve[T any](r *Registry, key Key[T]) (T, error) {
	var zero T

	r.mu.RLock()
	raw, ok := r.services[key.name]
	r.mu.RUnlock()

	if !ok {
		return zero, fmt.Errorf("%w: %s", domain.ErrUnresolvedService, key.name)
	}
	svc, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is bound to %T, not %T", domain.ErrUnresolvedService, key.name, raw, zero)
	}
	return svc, nil
}

// MustResolve is like Resolve but panics on error.
func MustResolve[T any](r *Registry, key Key[T]) T {
	svc, err := Resolve(r, key)
	if err != nil {
		panic(err)
	}
	return svc
}

// Capabilities returns the sorted names of every bound capability.
func (r *Registry) Capabilities() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Finalize resolves every handle created against this registry so far.
// All capabilities that are still unbound are reported together.
func (r *Registry) Finalize() error {
	r.mu.RLock()
	handles := slices.Clone(r.handles)
	r.mu.RUnlock()

	var errs []error
	for _, h := range handles {
		if err := h.resolve(); err != nil {
			errs = append(errs, err)
		}
	}
	return joinErrors(errs)
}

func (r *Registry) track(h resolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles = append(r.handles, h)
}
