package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/scenestack/pkg/domain"
	"github.com/aretw0/scenestack/pkg/observability"
	"go.opentelemetry.io/otel/attribute"
)

// Terminate ends the newest entry of type t together with the dialogs stacked directly
// on it. With clearHistory every other sleeping entry below the top is discarded too.
// If the top of the stack is left asleep it resumes.
func (e *Engine) Terminate(ctx context.Context, t domain.SceneType, clearHistory bool) error {
	if !e.transition.TryLock() {
		return domain.ErrTransitionInProgress
	}
	defer e.transition.Unlock()

	stack := e.entries()
	idx := -1
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].typ == t {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %q", domain.ErrSceneNotFound, t)
	}
	return e.terminateAt(ctx, stack, idx, clearHistory)
}

// TerminateLast ends the active entry. See Terminate.
func (e *Engine) TerminateLast(ctx context.Context, clearHistory bool) error {
	if !e.transition.TryLock() {
		return domain.ErrTransitionInProgress
	}
	defer e.transition.Unlock()

	stack := e.entries()
	if len(stack) == 0 {
		return domain.ErrStackEmpty
	}
	return e.terminateAt(ctx, stack, len(stack)-1, clearHistory)
}

func (e *Engine) terminateAt(ctx context.Context, stack []*entry, idx int, clearHistory bool) (err error) {
	target := stack[idx]
	end := idx + 1
	for end < len(stack) && stack[end].dialog {
		end++
	}

	start := time.Now()
	ctx, span := observability.StartSpan(ctx, e.tracer, "scenestack.terminate",
		attribute.String("scene.from", string(target.typ)),
		attribute.Bool("scene.clear_history", clearHistory),
	)
	var ops domain.Operations = domain.OpTerminate
	if clearHistory {
		ops |= domain.OpClearHistory
	}
	var top *entry
	defer func() {
		observability.EndSpan(span, err)
		e.settle(ctx, &domain.TransitionEvent{
			Kind:       domain.KindTerminate,
			From:       target.typ,
			To:         typeOf(top),
			Operations: ops,
			Err:        err,
		}, start)
	}()

	ctx = context.WithoutCancel(ctx)
	closing := stack[idx:end]
	errs := e.exitAll(ctx, closing)
	e.remove(closing...)

	top = e.top()
	if clearHistory && top != nil {
		if err := e.clearHistory(ctx, top, top); err != nil {
			errs = append(errs, err)
		}
	}
	if top != nil {
		if err := e.reactivate(ctx, top); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reset terminates every entry, newest first, without resuming anything. It queues
// behind an in-flight transition.
func (e *Engine) Reset(ctx context.Context) error {
	e.transition.Lock()
	defer e.transition.Unlock()

	stack := e.entries()
	errs := e.exitAll(context.WithoutCancel(ctx), stack)
	e.remove(stack...)
	if len(stack) > 0 {
		e.logger.InfoContext(ctx, "scene stack reset", "entries", len(stack))
	}
	return errors.Join(errs...)
}
