package runtime

import (
	"context"
	"errors"
	"fmt"
)

// compensation undoes one reversible step of a transition.
type compensation struct {
	name string
	undo func(context.Context) error
}

// saga records the reversible steps of a transition so a failed or cancelled transition
// can be unwound to the exact pre-transition stack. Irreversible work is never recorded
// here; it runs only after the new node has settled.
type saga struct {
	steps []compensation
}

func (s *saga) add(name string, undo func(context.Context) error) {
	s.steps = append(s.steps, compensation{name: name, undo: undo})
}

// rollback runs the compensations newest first. Cancellation of ctx does not stop it.
func (s *saga) rollback(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)

	var errs []error
	for i := len(s.steps) - 1; i >= 0; i-- {
		step := s.steps[i]
		if err := step.undo(ctx); err != nil {
			errs = append(errs, fmt.Errorf("compensate %s: %w", step.name, err))
		}
	}
	s.steps = nil
	return errors.Join(errs...)
}

// unwind rolls back after cause and returns the error for the caller.
func (e *Engine) unwind(ctx context.Context, s *saga, cause error) error {
	rbErr := s.rollback(ctx)
	if rbErr == nil {
		e.logger.InfoContext(ctx, "transition rolled back", "error", cause)
		return cause
	}
	e.logger.ErrorContext(ctx, "rollback incomplete", "error", rbErr, "cause", cause)
	return errors.Join(cause, rbErr)
}
