package scene

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aretw0/scenestack/pkg/domain"
)

// ErrUnbound is returned when a dialog is closed before its result slot was bound.
var ErrUnbound = errors.New("dialog result slot not bound")

// Result is the write-once result slot of a dialog entry.
type Result struct {
	mu        sync.Mutex
	done      chan struct{}
	completed bool
	dismissed bool
	value     any
}

// NewResult creates an empty result slot.
func NewResult() *Result {
	return &Result{done: make(chan struct{})}
}

// Complete writes the dialog result and wakes the caller waiting on the dialog.
// A second call fails with domain.ErrResultAlreadySet.
func (r *Result) Complete(v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case r.completed:
		return domain.ErrResultAlreadySet
	case r.dismissed:
		return fmt.Errorf("%w: %w", domain.ErrResultAlreadySet, domain.ErrDialogDismissed)
	}
	r.completed = true
	r.value = v
	close(r.done)
	return nil
}

// Dismiss resolves the slot without a value. It reports false if the slot was already resolved.
func (r *Result) Dismiss() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.completed || r.dismissed {
		return false
	}
	r.dismissed = true
	close(r.done)
	return true
}

// Done is closed once the slot is completed or dismissed.
func (r *Result) Done() <-chan struct{} {
	return r.done
}

// Completed reports whether a value was written.
func (r *Result) Completed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completed
}

// Value returns the written value, or domain.ErrDialogDismissed if the dialog ended without one.
// It must only be called after Done is closed.
func (r *Result) Value() (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.dismissed {
		return nil, domain.ErrDialogDismissed
	}
	return r.value, nil
}

// Wait blocks until the slot resolves or ctx is done.
func (r *Result) Wait(ctx context.Context) (any, error) {
	select {
	case <-r.done:
		return r.Value()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Sink is a typed view over a Result.
type Sink[R any] struct {
	result *Result
}

// NewSink wraps result.
func NewSink[R any](result *Result) Sink[R] {
	return Sink[R]{result: result}
}

// Complete writes v.
func (s Sink[R]) Complete(v R) error {
	return s.result.Complete(v)
}

// Result returns the underlying slot.
func (s Sink[R]) Result() *Result {
	return s.result
}

// As converts a raw dialog value to R. A nil value yields the zero R.
func As[R any](v any) (R, error) {
	var zero R
	if v == nil {
		return zero, nil
	}
	typed, ok := v.(R)
	if !ok {
		return zero, fmt.Errorf("dialog result is %T, not %T", v, zero)
	}
	return typed, nil
}
