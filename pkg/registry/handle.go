package registry

import (
	"errors"
	"sync"
)

// Handle is a deferred reference to the singleton bound to a capability.
// It can be created before the registry is populated; the first successful Get binds it
// for the rest of the process and later calls never consult the registry again.
type Handle[T any] struct {
	registry *Registry
	key      Key[T]

	mu    sync.Mutex
	bound bool
	value T
}

// NewHandle creates an unresolved handle for key.
func NewHandle[T any](r *Registry, key Key[T]) *Handle[T] {
	h := &Handle[T]{registry: r, key: key}
	r.track(h)
	return h
}

// Get returns the bound instance, resolving it on first use.
func (h *Handle[T]) Get() (T, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.bound {
		return h.value, nil
	}
	v, err := Resolve(h.registry, h.key)
	if err != nil {
		return v, err
	}
	h.value = v
	h.bound = true
	return v, nil
}

// MustGet is like Get but panics when the capability is unbound.
func (h *Handle[T]) MustGet() T {
	v, err := h.Get()
	if err != nil {
		panic(err)
	}
	return v
}

// Bound reports whether the handle has resolved.
func (h *Handle[T]) Bound() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bound
}

// Capability returns the name of the capability this handle resolves.
func (h *Handle[T]) Capability() string { return h.key.name }

func (h *Handle[T]) resolve() error {
	_, err := h.Get()
	return err
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
