package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/scenestack/pkg/domain"
	"github.com/aretw0/scenestack/pkg/scene"
	"github.com/google/uuid"
)

// HookError reports a failed node lifecycle hook.
type HookError struct {
	Scene   domain.SceneType
	EntryID string
	Hook    string
	Err     error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("scene %q: %s hook failed: %v", e.Scene, e.Hook, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}

// construct builds a fresh entry for t. wantDialog must match the catalog's kind for t.
func (e *Engine) construct(t domain.SceneType, wantDialog bool, arg any) (*entry, error) {
	node, dialog, err := e.catalog.New(t)
	if err != nil {
		return nil, err
	}
	if dialog != wantDialog {
		return nil, fmt.Errorf("%w: %q dialog=%t", domain.ErrNotDialog, t, dialog)
	}

	en := &entry{
		id:     uuid.NewString(),
		typ:    t,
		node:   node,
		state:  domain.StateNone,
		arg:    arg,
		dialog: dialog,
	}
	if dialog {
		en.result = scene.NewResult()
		bind(node, en.result)
	}
	return en, nil
}

func bind(node scene.Node, result *scene.Result) {
	if dn, ok := node.(scene.DialogNode); ok {
		dn.Bind(result)
	}
}

// enter runs the enter hook. A context cancelled before the hook settles counts as a failure.
func (e *Engine) enter(ctx context.Context, en *entry) error {
	start := time.Now()
	err := en.node.Enter(ctx, en.arg)
	if err == nil {
		err = ctx.Err()
	}
	e.fire(ctx, e.hooks.OnSceneEnter, domain.EventSceneEnter, en, start, err)
	if err != nil {
		return &HookError{Scene: en.typ, EntryID: en.id, Hook: "enter", Err: err}
	}
	e.setState(en, domain.StateProcessing)
	e.logger.DebugContext(ctx, "scene entered", "scene", en.typ, "entry_id", en.id)
	return nil
}

func (e *Engine) sleep(ctx context.Context, en *entry) error {
	if e.stateOf(en) != domain.StateProcessing {
		return nil
	}
	start := time.Now()
	err := en.node.Sleep(ctx)
	e.fire(ctx, e.hooks.OnSceneSleep, domain.EventSceneSleep, en, start, err)
	if err != nil {
		return &HookError{Scene: en.typ, EntryID: en.id, Hook: "sleep", Err: err}
	}
	e.setState(en, domain.StateSleep)
	return nil
}

func (e *Engine) resume(ctx context.Context, en *entry) error {
	if e.stateOf(en) != domain.StateSleep {
		return nil
	}
	start := time.Now()
	err := en.node.Resume(ctx)
	e.fire(ctx, e.hooks.OnSceneResume, domain.EventSceneResume, en, start, err)
	if err != nil {
		return &HookError{Scene: en.typ, EntryID: en.id, Hook: "resume", Err: err}
	}
	e.setState(en, domain.StateProcessing)
	return nil
}

// reactivate resumes en after the entries above it were removed. Those removals cannot be
// undone, so when the resume hook fails en is still marked Processing to keep an active
// entry, and the hook error is returned.
func (e *Engine) reactivate(ctx context.Context, en *entry) error {
	err := e.resume(ctx, en)
	if err != nil {
		e.setState(en, domain.StateProcessing)
		e.logger.WarnContext(ctx, "resume failed, entry reactivated anyway",
			"scene", en.typ, "entry_id", en.id, "error", err)
	}
	return err
}

// exit terminates en. The entry is terminated even when the hook fails, and a dialog
// without a result is dismissed.
func (e *Engine) exit(ctx context.Context, en *entry) error {
	if e.stateOf(en) == domain.StateTerminate {
		return nil
	}
	err := e.callExit(ctx, en)
	e.setState(en, domain.StateTerminate)
	if en.result != nil && en.result.Dismiss() {
		e.logger.DebugContext(ctx, "dialog dismissed", "scene", en.typ, "entry_id", en.id)
	}
	return err
}

func (e *Engine) callExit(ctx context.Context, en *entry) error {
	start := time.Now()
	err := en.node.Exit(ctx)
	e.fire(ctx, e.hooks.OnSceneExit, domain.EventSceneExit, en, start, err)
	if err != nil {
		return &HookError{Scene: en.typ, EntryID: en.id, Hook: "exit", Err: err}
	}
	return nil
}

// exitAll terminates entries from the last to the first and returns every failure.
func (e *Engine) exitAll(ctx context.Context, entries []*entry) []error {
	var errs []error
	for i := len(entries) - 1; i >= 0; i-- {
		if err := e.exit(ctx, entries[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (e *Engine) fire(ctx context.Context, hook func(context.Context, *domain.SceneEvent), typ domain.EventType, en *entry, start time.Time, err error) {
	if hook == nil {
		return
	}
	now := time.Now()
	hook(ctx, &domain.SceneEvent{
		EventBase: domain.EventBase{Timestamp: now, Type: typ},
		EntryID:   en.id,
		Scene:     en.typ,
		Dialog:    en.dialog,
		Elapsed:   now.Sub(start),
		Err:       err,
	})
}

// settle reports a finished transition to hooks, logs and the broker.
func (e *Engine) settle(ctx context.Context, ev *domain.TransitionEvent, start time.Time) {
	now := time.Now()
	ev.EventBase = domain.EventBase{Timestamp: now, Type: domain.EventTransition}
	ev.Elapsed = now.Sub(start)

	active, ok := e.Active()
	ev.Depth = e.Depth()

	if ev.Err != nil {
		e.logger.WarnContext(ctx, "transition failed",
			"kind", ev.Kind, "from", ev.From, "to", ev.To, "ops", ev.Operations, "error", ev.Err)
	} else {
		e.logger.InfoContext(ctx, "transition settled",
			"kind", ev.Kind, "from", ev.From, "to", ev.To, "ops", ev.Operations, "depth", ev.Depth)
	}

	if e.hooks.OnTransition != nil {
		e.hooks.OnTransition(ctx, ev)
	}

	if e.publisher == nil {
		return
	}
	msg := domain.SceneChanged{
		Kind:  ev.Kind,
		From:  ev.From,
		To:    ev.To,
		Depth: ev.Depth,
		Err:   ev.Err,
	}
	if ok {
		msg.Active = active.Type
	}
	key := domain.KeySceneChanged
	if ev.Err != nil {
		key = domain.KeySceneFailed
	}
	e.publisher.Publish(key, msg)
}

func typeOf(en *entry) domain.SceneType {
	if en == nil {
		return ""
	}
	return en.typ
}
