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

// DialogInit runs after the dialog entered and before it becomes the active entry.
type DialogInit func(ctx context.Context, node scene.Node, result *scene.Result) error

// DialogRequest describes a transition to a dialog scene.
type DialogRequest struct {
	Type domain.SceneType
	Arg  any
	Init DialogInit
}

// TransitionDialog overlays a dialog on the active entry and waits for its result.
//
// The owner is put to sleep, the dialog enters and Init runs; any failure up to that
// point rolls back. While waiting, the transition lock is released so the dialog (and
// nested dialogs) can drive further transitions. Once the result is written, or the
// dialog is terminated, the dialog and every entry above it are terminated and the owner
// resumes. Cancelling ctx while waiting closes the dialog and returns the context error.
// When closing fails after a result was written, the result is returned with the error.
func (e *Engine) TransitionDialog(ctx context.Context, req DialogRequest) (any, error) {
	if !e.transition.TryLock() {
		return nil, domain.ErrTransitionInProgress
	}
	dlg, err := e.openDialog(ctx, req)
	e.transition.Unlock()
	if err != nil {
		return nil, err
	}

	value, waitErr := dlg.result.Wait(ctx)
	closeErr := e.closeDialog(context.WithoutCancel(ctx), dlg)
	if waitErr != nil {
		if closeErr != nil {
			return nil, errors.Join(waitErr, closeErr)
		}
		return nil, waitErr
	}
	return value, closeErr
}

func (e *Engine) openDialog(ctx context.Context, req DialogRequest) (dlg *entry, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	owner := e.top()
	if owner == nil {
		return nil, domain.ErrStackEmpty
	}

	start := time.Now()
	ctx, span := observability.StartSpan(ctx, e.tracer, "scenestack.dialog_open",
		attribute.String("scene.from", string(owner.typ)),
		attribute.String("scene.to", string(req.Type)),
	)
	defer func() {
		observability.EndSpan(span, err)
		e.settle(ctx, &domain.TransitionEvent{
			Kind:       domain.KindDialog,
			From:       owner.typ,
			To:         req.Type,
			Operations: domain.OpSleep,
			Err:        err,
		}, start)
	}()

	dlg, err = e.construct(req.Type, true, req.Arg)
	if err != nil {
		return nil, err
	}

	var s saga
	if err := e.sleep(ctx, owner); err != nil {
		return nil, err
	}
	s.add("resume "+string(owner.typ), func(ctx context.Context) error {
		return e.resume(ctx, owner)
	})
	s.add("exit "+string(dlg.typ), func(ctx context.Context) error {
		return e.exit(ctx, dlg)
	})

	if err := e.enter(ctx, dlg); err != nil {
		return nil, e.unwind(ctx, &s, err)
	}
	if req.Init != nil {
		if err := req.Init(ctx, dlg.node, dlg.result); err != nil {
			return nil, e.unwind(ctx, &s, &HookError{Scene: dlg.typ, EntryID: dlg.id, Hook: "init", Err: err})
		}
	}

	e.push(dlg)
	return dlg, nil
}

// closeDialog terminates dlg and everything stacked above it, then reactivates the new top.
// It queues behind any in-flight transition.
func (e *Engine) closeDialog(ctx context.Context, dlg *entry) (err error) {
	e.transition.Lock()
	defer e.transition.Unlock()

	start := time.Now()
	ctx, span := observability.StartSpan(ctx, e.tracer, "scenestack.dialog_close",
		attribute.String("scene.from", string(dlg.typ)),
	)
	var owner *entry
	defer func() {
		observability.EndSpan(span, err)
		e.settle(ctx, &domain.TransitionEvent{
			Kind: domain.KindClose,
			From: dlg.typ,
			To:   typeOf(owner),
			Err:  err,
		}, start)
	}()

	var errs []error
	if i := e.indexOf(dlg); i >= 0 {
		closing := e.entries()[i:]
		errs = e.exitAll(ctx, closing)
		e.remove(closing...)
	}

	owner = e.top()
	if owner != nil {
		if err := e.reactivate(ctx, owner); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
