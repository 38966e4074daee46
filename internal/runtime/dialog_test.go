package runtime_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/scenestack/internal/runtime"
	"github.com/aretw0/scenestack/pkg/domain"
	"github.com/aretw0/scenestack/pkg/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dialogOutcome struct {
	value any
	err   error
}

// openDialog starts a dialog transition in the background and returns its result slot
// once the dialog is active.
func openDialog(t *testing.T, ctx context.Context, eng *runtime.Engine, typ domain.SceneType) (*scene.Result, <-chan dialogOutcome) {
	t.Helper()
	slot := make(chan *scene.Result, 1)
	out := make(chan dialogOutcome, 1)
	go func() {
		v, err := eng.TransitionDialog(ctx, runtime.DialogRequest{
			Type: typ,
			Init: func(_ context.Context, _ scene.Node, r *scene.Result) error {
				slot <- r
				return nil
			},
		})
		out <- dialogOutcome{value: v, err: err}
	}()
	result := <-slot
	waitActive(t, eng, typ)
	return result, out
}

func dialogCatalog(t *testing.T, rec *recorder) *scene.Catalog {
	t.Helper()
	c := newCatalog(t, rec, "A", "B")
	require.NoError(t, c.RegisterDialog("D", tracked(rec, "D", nil)))
	require.NoError(t, c.RegisterDialog("E", tracked(rec, "E", nil)))
	return c
}

func TestEngine_DialogScenario(t *testing.T) {
	rec := &recorder{}
	eng := runtime.NewEngine(dialogCatalog(t, rec))
	ctx := context.Background()

	push(t, eng, "A", domain.OpTerminate|domain.OpClearHistory)
	assert.Equal(t, []string{"A.enter"}, rec.list())

	result, out := openDialog(t, ctx, eng, "D")
	stack := eng.Stack()
	assert.Equal(t, []domain.SceneType{"A", "D"}, types(stack))
	assert.Equal(t, []domain.SceneState{domain.StateSleep, domain.StateProcessing}, states(stack))
	assert.True(t, stack[1].Dialog)

	require.NoError(t, result.Complete(42))
	got := <-out
	require.NoError(t, got.err)
	assert.Equal(t, 42, got.value)

	assert.ErrorIs(t, result.Complete(43), domain.ErrResultAlreadySet)

	assert.Equal(t, []domain.SceneType{"A"}, types(eng.Stack()))
	assert.True(t, eng.IsProcessing("A"))
	assert.Equal(t, []string{"A.enter", "A.sleep", "D.enter", "D.exit", "A.resume"}, rec.list())

	assert.ErrorIs(t, eng.TransitionPrev(ctx), domain.ErrNoHistory)
}

func TestEngine_DialogCancelledWhileWaiting(t *testing.T) {
	rec := &recorder{}
	eng := runtime.NewEngine(dialogCatalog(t, rec))
	push(t, eng, "A", 0)

	ctx, cancel := context.WithCancel(context.Background())
	result, out := openDialog(t, ctx, eng, "D")
	cancel()

	got := <-out
	assert.ErrorIs(t, got.err, context.Canceled)
	assert.Equal(t, []domain.SceneType{"A"}, types(eng.Stack()))
	assert.True(t, eng.IsProcessing("A"))

	_, err := result.Value()
	assert.ErrorIs(t, err, domain.ErrDialogDismissed)
}

func TestEngine_DialogDismissedByTerminate(t *testing.T) {
	rec := &recorder{}
	eng := runtime.NewEngine(dialogCatalog(t, rec))
	push(t, eng, "A", 0)

	result, out := openDialog(t, context.Background(), eng, "D")
	require.NoError(t, eng.TerminateLast(context.Background(), false))

	got := <-out
	assert.ErrorIs(t, got.err, domain.ErrDialogDismissed)
	assert.ErrorIs(t, result.Complete(1), domain.ErrResultAlreadySet)
	assert.Equal(t, []domain.SceneType{"A"}, types(eng.Stack()))
	assert.True(t, eng.IsProcessing("A"))
}

func TestEngine_NestedDialogs(t *testing.T) {
	rec := &recorder{}
	eng := runtime.NewEngine(dialogCatalog(t, rec))
	ctx := context.Background()
	push(t, eng, "A", 0)

	outer, outerOut := openDialog(t, ctx, eng, "D")
	_, innerOut := openDialog(t, ctx, eng, "E")
	assert.Equal(t, []domain.SceneType{"A", "D", "E"}, types(eng.Stack()))

	require.NoError(t, outer.Complete("yes"))

	got := <-outerOut
	require.NoError(t, got.err)
	assert.Equal(t, "yes", got.value)

	inner := <-innerOut
	assert.ErrorIs(t, inner.err, domain.ErrDialogDismissed)

	assert.Equal(t, []domain.SceneType{"A"}, types(eng.Stack()))
	assert.True(t, eng.IsProcessing("A"))
}

func TestEngine_DialogFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("Empty stack", func(t *testing.T) {
		eng := runtime.NewEngine(dialogCatalog(t, &recorder{}))
		_, err := eng.TransitionDialog(ctx, runtime.DialogRequest{Type: "D"})
		assert.ErrorIs(t, err, domain.ErrStackEmpty)
	})

	t.Run("Full scene as dialog", func(t *testing.T) {
		eng := runtime.NewEngine(dialogCatalog(t, &recorder{}))
		push(t, eng, "A", 0)
		_, err := eng.TransitionDialog(ctx, runtime.DialogRequest{Type: "B"})
		assert.ErrorIs(t, err, domain.ErrNotDialog)
		assert.True(t, eng.IsProcessing("A"))
	})

	t.Run("Init error rolls back", func(t *testing.T) {
		rec := &recorder{}
		eng := runtime.NewEngine(dialogCatalog(t, rec))
		push(t, eng, "A", 0)
		before := eng.Stack()

		boom := errors.New("no prefab")
		_, err := eng.TransitionDialog(ctx, runtime.DialogRequest{
			Type: "D",
			Init: func(context.Context, scene.Node, *scene.Result) error { return boom },
		})
		require.ErrorIs(t, err, boom)

		var hookErr *runtime.HookError
		require.ErrorAs(t, err, &hookErr)
		assert.Equal(t, "init", hookErr.Hook)
		assert.Equal(t, before, eng.Stack())
		assert.Equal(t, []string{"A.enter", "A.sleep", "D.enter", "D.exit", "A.resume"}, rec.list())
	})
}

type confirmDialog struct {
	scene.DialogBase
	bound chan struct{}
}

func (d *confirmDialog) Enter(context.Context, any) error {
	close(d.bound)
	return nil
}

func TestEngine_DialogNodeBinding(t *testing.T) {
	node := &confirmDialog{bound: make(chan struct{})}
	c := newCatalog(t, &recorder{}, "A")
	require.NoError(t, c.RegisterDialog("confirm", func() scene.Node { return node }))
	eng := runtime.NewEngine(c)
	push(t, eng, "A", 0)

	out := make(chan dialogOutcome, 1)
	go func() {
		v, err := eng.TransitionDialog(context.Background(), runtime.DialogRequest{Type: "confirm"})
		out <- dialogOutcome{value: v, err: err}
	}()
	<-node.bound
	waitActive(t, eng, "confirm")

	require.NoError(t, node.Close(true))
	got := <-out
	require.NoError(t, got.err)
	assert.Equal(t, true, got.value)
}

func TestEngine_DialogOwnerResumeFailure(t *testing.T) {
	boom := errors.New("bgm device lost")
	rec := &recorder{}
	c := dialogCatalog(t, rec)
	require.NoError(t, c.Register("stage", func() scene.Node {
		return &scene.Funcs{OnResume: func(context.Context) error { return boom }}
	}))
	eng := runtime.NewEngine(c)
	push(t, eng, "stage", 0)

	v, err := eng.TransitionDialog(context.Background(), runtime.DialogRequest{
		Type: "D",
		Init: func(_ context.Context, _ scene.Node, r *scene.Result) error {
			return r.Complete(42)
		},
	})
	require.ErrorIs(t, err, boom)
	var hookErr *runtime.HookError
	require.ErrorAs(t, err, &hookErr)
	assert.Equal(t, "resume", hookErr.Hook)
	assert.Equal(t, 42, v, "the written result survives")

	stack := eng.Stack()
	assert.Equal(t, []domain.SceneType{"stage"}, types(stack))
	assert.Equal(t, []domain.SceneState{domain.StateProcessing}, states(stack))
	assert.True(t, eng.IsProcessing("stage"))
}
