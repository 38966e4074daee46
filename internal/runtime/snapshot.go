package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/scenestack/pkg/domain"
	"github.com/aretw0/scenestack/pkg/observability"
	"go.opentelemetry.io/otel/attribute"
)

// Snapshot returns the restorable part of the history. Dialogs are skipped.
func (e *Engine) Snapshot() domain.StackSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snap := domain.StackSnapshot{Entries: make([]domain.EntryRecord, 0, len(e.stack))}
	for _, en := range e.stack {
		if en.dialog {
			continue
		}
		snap.Entries = append(snap.Entries, domain.EntryRecord{Type: en.typ, Arg: en.arg})
	}
	return snap
}

// RestoreSnapshot rebuilds the history on an empty stack. Every entry is entered bottom to
// top and all but the last are put to sleep. On failure the partial stack is torn down.
func (e *Engine) RestoreSnapshot(ctx context.Context, snap domain.StackSnapshot) (err error) {
	if !e.transition.TryLock() {
		return domain.ErrTransitionInProgress
	}
	defer e.transition.Unlock()

	if e.Depth() > 0 {
		return domain.ErrRestoreNotEmpty
	}
	if len(snap.Entries) == 0 {
		return nil
	}

	start := time.Now()
	ctx, span := observability.StartSpan(ctx, e.tracer, "scenestack.restore",
		attribute.Int("scene.entries", len(snap.Entries)),
	)
	last := snap.Entries[len(snap.Entries)-1].Type
	defer func() {
		observability.EndSpan(span, err)
		e.settle(ctx, &domain.TransitionEvent{Kind: domain.KindRestore, To: last, Err: err}, start)
	}()

	var s saga
	for i, rec := range snap.Entries {
		en, err := e.construct(rec.Type, false, rec.Arg)
		if err != nil {
			return e.unwind(ctx, &s, fmt.Errorf("restore entry %d: %w", i, err))
		}
		s.add("exit "+string(en.typ), func(ctx context.Context) error {
			err := e.exit(ctx, en)
			e.remove(en)
			return err
		})
		if err := e.enter(ctx, en); err != nil {
			return e.unwind(ctx, &s, fmt.Errorf("restore entry %d: %w", i, err))
		}
		e.push(en)
		if i < len(snap.Entries)-1 {
			if err := e.sleep(ctx, en); err != nil {
				return e.unwind(ctx, &s, fmt.Errorf("restore entry %d: %w", i, err))
			}
		}
	}
	return nil
}

// Save persists the current snapshot under id.
func (e *Engine) Save(ctx context.Context, id string) error {
	if e.store == nil {
		return ErrNoSnapshotStore
	}
	if err := e.store.Save(ctx, id, e.Snapshot()); err != nil {
		return fmt.Errorf("save snapshot %q: %w", id, err)
	}
	return nil
}

// Restore loads the snapshot stored under id and applies it to the empty stack.
func (e *Engine) Restore(ctx context.Context, id string) error {
	if e.store == nil {
		return ErrNoSnapshotStore
	}
	snap, err := e.store.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("load snapshot %q: %w", id, err)
	}
	return e.RestoreSnapshot(ctx, snap)
}
