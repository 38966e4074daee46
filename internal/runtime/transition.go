package runtime

import (
	"context"
	"errors"
	"time"

	"github.com/aretw0/scenestack/pkg/domain"
	"github.com/aretw0/scenestack/pkg/observability"
	"github.com/aretw0/scenestack/pkg/scene"
	"go.opentelemetry.io/otel/attribute"
)

// Transition enters a new full scene and makes it the active entry.
//
// The fate of the current entry follows req.Operations (see domain.Operations). When the
// current entry is retained it is put to sleep, and rebuilt with a fresh node on restart,
// before the new node enters. Terminate, clear-history and the exit of a replaced node
// only run once the new node has entered, so a failed or cancelled transition leaves the
// stack exactly as it was.
func (e *Engine) Transition(ctx context.Context, req domain.TransitionRequest) (err error) {
	if !e.transition.TryLock() {
		return domain.ErrTransitionInProgress
	}
	defer e.transition.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	ops := req.Operations.Normalize()
	start := time.Now()
	prev := e.top()

	ctx, span := observability.StartSpan(ctx, e.tracer, "scenestack.transition",
		attribute.String("scene.from", string(typeOf(prev))),
		attribute.String("scene.to", string(req.Type)),
		attribute.String("scene.ops", ops.String()),
	)
	defer func() {
		observability.EndSpan(span, err)
		e.settle(ctx, &domain.TransitionEvent{
			Kind:       domain.KindPush,
			From:       typeOf(prev),
			To:         req.Type,
			Operations: ops,
			Err:        err,
		}, start)
	}()

	next, err := e.construct(req.Type, false, req.Arg)
	if err != nil {
		return err
	}

	var s saga
	var replaced scene.Node
	if prev != nil && !ops.Has(domain.OpTerminate) {
		if err := e.sleep(ctx, prev); err != nil {
			return err
		}
		s.add("resume "+string(prev.typ), func(ctx context.Context) error {
			return e.resume(ctx, prev)
		})

		if ops.Has(domain.OpRestart) {
			if replaced, err = e.restart(ctx, prev, &s); err != nil {
				return e.unwind(ctx, &s, err)
			}
		}
	}

	s.add("exit "+string(next.typ), func(ctx context.Context) error {
		return e.exit(ctx, next)
	})
	if err := e.enter(ctx, next); err != nil {
		return e.unwind(ctx, &s, err)
	}

	e.push(next)
	e.commit(context.WithoutCancel(ctx), prev, next, replaced, ops)
	return nil
}

// commit runs the irreversible part of a transition. Failures are logged; the new
// entry is already active and stays so.
func (e *Engine) commit(ctx context.Context, prev, next *entry, replaced scene.Node, ops domain.Operations) {
	if prev == nil {
		return
	}

	var errs []error
	switch {
	case ops.Has(domain.OpTerminate):
		errs = append(errs, e.exit(ctx, prev))
		e.remove(prev)
	case replaced != nil:
		retired := &entry{id: prev.id, typ: prev.typ, node: replaced, arg: prev.arg, dialog: prev.dialog}
		errs = append(errs, e.callExit(ctx, retired))
	}

	if ops.Has(domain.OpClearHistory) {
		errs = append(errs, e.clearHistory(ctx, prev, next))
	}

	if err := errors.Join(errs...); err != nil {
		e.logger.WarnContext(ctx, "transition commit incomplete",
			"scene", next.typ, "entry_id", next.id, "ops", ops, "error", err)
	}
}

// clearHistory terminates every sleeping entry below keep. When keep was terminated by
// the same transition, everything below next is cleared instead.
func (e *Engine) clearHistory(ctx context.Context, keep, next *entry) error {
	stack := e.entries()
	limit := len(stack)
	for i, en := range stack {
		if en == keep || en == next {
			limit = i
			break
		}
	}

	var evicted []*entry
	for _, en := range stack[:limit] {
		if e.stateOf(en) == domain.StateSleep {
			evicted = append(evicted, en)
		}
	}
	errs := e.exitAll(ctx, evicted)
	e.remove(evicted...)
	return errors.Join(errs...)
}

// restart enters a fresh node for the sleeping entry en with its original argument and
// puts it to sleep, then swaps it in. The replaced node is returned for commit to exit.
// A failed rebuild exits the fresh node and leaves en untouched; once swapped, s can
// restore the replaced node.
func (e *Engine) restart(ctx context.Context, en *entry, s *saga) (scene.Node, error) {
	node, _, err := e.catalog.New(en.typ)
	if err != nil {
		return nil, err
	}
	if en.dialog {
		bind(node, en.result)
	}

	fresh := &entry{id: en.id, typ: en.typ, node: node, state: domain.StateNone, arg: en.arg, dialog: en.dialog}
	if err := e.enter(ctx, fresh); err != nil {
		if exitErr := e.callExit(context.WithoutCancel(ctx), fresh); exitErr != nil {
			err = errors.Join(err, exitErr)
		}
		return nil, err
	}
	if err := e.sleep(ctx, fresh); err != nil {
		if exitErr := e.callExit(context.WithoutCancel(ctx), fresh); exitErr != nil {
			err = errors.Join(err, exitErr)
		}
		return nil, err
	}

	e.mu.Lock()
	replaced := en.node
	en.node = node
	e.mu.Unlock()

	s.add("restore "+string(en.typ), func(ctx context.Context) error {
		err := e.callExit(ctx, en)
		e.mu.Lock()
		en.node = replaced
		e.mu.Unlock()
		return err
	})
	return replaced, nil
}

// TransitionPrev resumes the entry below the active one and terminates the active entry.
// It fails with domain.ErrStackEmpty on an empty stack and domain.ErrNoHistory when the
// active entry is the only one; the stack is unchanged in both cases. The previous entry
// resumes before the active one exits, so a failed resume also leaves the stack unchanged.
func (e *Engine) TransitionPrev(ctx context.Context) (err error) {
	if !e.transition.TryLock() {
		return domain.ErrTransitionInProgress
	}
	defer e.transition.Unlock()

	stack := e.entries()
	switch len(stack) {
	case 0:
		return domain.ErrStackEmpty
	case 1:
		return domain.ErrNoHistory
	}
	current := stack[len(stack)-1]
	prev := stack[len(stack)-2]

	start := time.Now()
	ctx, span := observability.StartSpan(ctx, e.tracer, "scenestack.transition_prev",
		attribute.String("scene.from", string(current.typ)),
		attribute.String("scene.to", string(prev.typ)),
	)
	defer func() {
		observability.EndSpan(span, err)
		e.settle(ctx, &domain.TransitionEvent{
			Kind: domain.KindPrev,
			From: current.typ,
			To:   prev.typ,
			Err:  err,
		}, start)
	}()

	if err := e.resume(ctx, prev); err != nil {
		return err
	}

	if err := e.exit(context.WithoutCancel(ctx), current); err != nil {
		e.logger.WarnContext(ctx, "exit failed during back navigation",
			"scene", current.typ, "entry_id", current.id, "error", err)
	}
	e.remove(current)
	return nil
}
