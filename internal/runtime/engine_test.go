package runtime_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/scenestack/internal/runtime"
	"github.com/aretw0/scenestack/pkg/broker"
	"github.com/aretw0/scenestack/pkg/domain"
	"github.com/aretw0/scenestack/pkg/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_ActiveIsMostRecent(t *testing.T) {
	rec := &recorder{}
	eng := runtime.NewEngine(newCatalog(t, rec, "title", "menu", "stage"))

	for _, typ := range []domain.SceneType{"title", "menu", "stage"} {
		push(t, eng, typ, domain.OpSleep)

		active, ok := eng.Active()
		require.True(t, ok)
		assert.Equal(t, typ, active.Type)
		assert.True(t, eng.IsProcessing(typ))
	}

	stack := eng.Stack()
	assert.Equal(t, []domain.SceneType{"title", "menu", "stage"}, types(stack))
	assert.Equal(t, []domain.SceneState{domain.StateSleep, domain.StateSleep, domain.StateProcessing}, states(stack))
	assert.False(t, eng.IsProcessing("title"))
	for i, e := range stack {
		assert.Equal(t, i, e.Index)
		assert.NotEmpty(t, e.ID)
	}
}

func TestEngine_Operations(t *testing.T) {
	tests := []struct {
		name   string
		ops    domain.Operations
		stack  []domain.SceneType
		states []domain.SceneState
		calls  []string
	}{
		{
			name:   "Default terminates and clears",
			ops:    0,
			stack:  []domain.SceneType{"stage"},
			states: []domain.SceneState{domain.StateProcessing},
			calls:  []string{"stage.enter", "menu.exit", "title.exit"},
		},
		{
			name:   "Sleep retains current",
			ops:    domain.OpSleep,
			stack:  []domain.SceneType{"title", "menu", "stage"},
			states: []domain.SceneState{domain.StateSleep, domain.StateSleep, domain.StateProcessing},
			calls:  []string{"menu.sleep", "stage.enter"},
		},
		{
			name:   "Terminate wins over sleep",
			ops:    domain.OpSleep | domain.OpTerminate,
			stack:  []domain.SceneType{"title", "stage"},
			states: []domain.SceneState{domain.StateSleep, domain.StateProcessing},
			calls:  []string{"stage.enter", "menu.exit"},
		},
		{
			name:   "Sleep with clear history keeps current",
			ops:    domain.OpSleep | domain.OpClearHistory,
			stack:  []domain.SceneType{"menu", "stage"},
			states: []domain.SceneState{domain.StateSleep, domain.StateProcessing},
			calls:  []string{"menu.sleep", "stage.enter", "title.exit"},
		},
		{
			name:   "No flags for current retains it asleep",
			ops:    domain.OpClearHistory,
			stack:  []domain.SceneType{"menu", "stage"},
			states: []domain.SceneState{domain.StateSleep, domain.StateProcessing},
			calls:  []string{"menu.sleep", "stage.enter", "title.exit"},
		},
		{
			name:   "Restart rebuilds current",
			ops:    domain.OpSleep | domain.OpRestart,
			stack:  []domain.SceneType{"title", "menu", "stage"},
			states: []domain.SceneState{domain.StateSleep, domain.StateSleep, domain.StateProcessing},
			calls:  []string{"menu.sleep", "menu.enter", "menu.sleep", "stage.enter", "menu.exit"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			eng := runtime.NewEngine(newCatalog(t, rec, "title", "menu", "stage"))
			push(t, eng, "title", 0)
			push(t, eng, "menu", domain.OpSleep)
			rec.reset()

			push(t, eng, "stage", tt.ops)

			stack := eng.Stack()
			assert.Equal(t, tt.stack, types(stack))
			assert.Equal(t, tt.states, states(stack))
			assert.Equal(t, tt.calls, rec.list())
		})
	}
}

func TestEngine_RestartKeepsArgument(t *testing.T) {
	rec := &recorder{}
	var args []any
	c := newCatalog(t, rec, "stage")
	require.NoError(t, c.Register("shop", tracked(rec, "shop", func(_ context.Context, arg any) error {
		args = append(args, arg)
		return nil
	})))
	eng := runtime.NewEngine(c)

	require.NoError(t, eng.Transition(context.Background(), domain.TransitionRequest{Type: "shop", Arg: 7}))
	first, _ := eng.Active()
	push(t, eng, "stage", domain.OpSleep|domain.OpRestart)

	assert.Equal(t, []any{7, 7}, args)
	stack := eng.Stack()
	assert.Equal(t, first.ID, stack[0].ID)
	assert.Equal(t, 7, stack[0].Arg)
}

func TestEngine_RestartFailureRollsBack(t *testing.T) {
	boom := errors.New("asset load failed")
	rec := &recorder{}
	enters := 0
	c := newCatalog(t, rec, "stage")
	require.NoError(t, c.Register("shop", tracked(rec, "shop", func(context.Context, any) error {
		enters++
		if enters > 1 {
			return boom
		}
		return nil
	})))
	eng := runtime.NewEngine(c)
	push(t, eng, "shop", 0)
	before := eng.Stack()
	rec.reset()

	err := eng.Transition(context.Background(), domain.TransitionRequest{Type: "stage", Operations: domain.OpSleep | domain.OpRestart})
	require.ErrorIs(t, err, boom)
	var hookErr *runtime.HookError
	require.ErrorAs(t, err, &hookErr)
	assert.Equal(t, "enter", hookErr.Hook)
	assert.Equal(t, domain.SceneType("shop"), hookErr.Scene)

	assert.Equal(t, before, eng.Stack())
	assert.True(t, eng.IsProcessing("shop"))
	assert.Equal(t, []string{"shop.sleep", "shop.enter", "shop.exit", "shop.resume"}, rec.list())
	assert.NotContains(t, rec.list(), "stage.enter")
}

func TestEngine_RestartUndoneWhenTargetFails(t *testing.T) {
	boom := errors.New("asset missing")
	var calls []string
	instance := 0
	c := newCatalog(t, &recorder{})
	require.NoError(t, c.Register("shop", func() scene.Node {
		instance++
		name := fmt.Sprintf("shop#%d", instance)
		return &scene.Funcs{
			OnEnter:  func(context.Context, any) error { calls = append(calls, name+".enter"); return nil },
			OnSleep:  func(context.Context) error { calls = append(calls, name+".sleep"); return nil },
			OnResume: func(context.Context) error { calls = append(calls, name+".resume"); return nil },
			OnExit:   func(context.Context) error { calls = append(calls, name+".exit"); return nil },
		}
	}))
	require.NoError(t, c.Register("broken", func() scene.Node {
		return &scene.Funcs{OnEnter: func(context.Context, any) error { return boom }}
	}))
	eng := runtime.NewEngine(c)
	require.NoError(t, eng.Transition(context.Background(), domain.TransitionRequest{Type: "shop"}))
	before := eng.Stack()
	calls = nil

	err := eng.Transition(context.Background(), domain.TransitionRequest{Type: "broken", Operations: domain.OpSleep | domain.OpRestart})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, before, eng.Stack())
	assert.Equal(t, []string{
		"shop#1.sleep",
		"shop#2.enter", "shop#2.sleep",
		"shop#2.exit",
		"shop#1.resume",
	}, calls, "the original node is active again")

	calls = nil
	require.NoError(t, eng.TerminateLast(context.Background(), false))
	assert.Equal(t, []string{"shop#1.exit"}, calls)
}

func TestEngine_TransitionPrev(t *testing.T) {
	rec := &recorder{}
	eng := runtime.NewEngine(newCatalog(t, rec, "title", "menu"))

	err := eng.TransitionPrev(context.Background())
	assert.ErrorIs(t, err, domain.ErrStackEmpty)
	assert.ErrorIs(t, err, domain.ErrNoHistory, "an empty stack has no history")

	push(t, eng, "title", 0)
	push(t, eng, "menu", domain.OpSleep)
	rec.reset()

	require.NoError(t, eng.TransitionPrev(context.Background()))
	assert.Equal(t, []string{"title.resume", "menu.exit"}, rec.list())
	assert.Equal(t, []domain.SceneType{"title"}, types(eng.Stack()))
	assert.True(t, eng.IsProcessing("title"))

	err = eng.TransitionPrev(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoHistory)
	assert.NotErrorIs(t, err, domain.ErrStackEmpty)
	assert.Equal(t, []domain.SceneType{"title"}, types(eng.Stack()))
}

func TestEngine_TransitionPrevResumeFailure(t *testing.T) {
	boom := errors.New("resume failed")
	rec := &recorder{}
	c := newCatalog(t, rec, "menu")
	require.NoError(t, c.Register("title", func() scene.Node {
		return &scene.Funcs{OnResume: func(context.Context) error { return boom }}
	}))
	eng := runtime.NewEngine(c)
	push(t, eng, "title", 0)
	push(t, eng, "menu", domain.OpSleep)
	before := eng.Stack()
	rec.reset()

	require.ErrorIs(t, eng.TransitionPrev(context.Background()), boom)
	assert.Equal(t, before, eng.Stack())
	assert.Empty(t, rec.list(), "menu is not exited")
}

func TestEngine_EnterFailureRollsBack(t *testing.T) {
	boom := errors.New("asset missing")
	rec := &recorder{}
	c := newCatalog(t, rec, "title")
	require.NoError(t, c.Register("broken", tracked(rec, "broken", func(context.Context, any) error {
		return boom
	})))
	eng := runtime.NewEngine(c)
	push(t, eng, "title", 0)

	for _, ops := range []domain.Operations{domain.OpSleep, domain.DefaultOperations} {
		rec.reset()
		before := eng.Stack()

		err := eng.Transition(context.Background(), domain.TransitionRequest{Type: "broken", Operations: ops})
		require.ErrorIs(t, err, boom)

		var hookErr *runtime.HookError
		require.ErrorAs(t, err, &hookErr)
		assert.Equal(t, "enter", hookErr.Hook)
		assert.Equal(t, domain.SceneType("broken"), hookErr.Scene)

		assert.Equal(t, before, eng.Stack(), "ops=%s", ops)
		assert.Contains(t, rec.list(), "broken.exit")
		assert.NotContains(t, rec.list(), "title.exit")
	}
}

func TestEngine_CancellationRollsBack(t *testing.T) {
	rec := &recorder{}
	entered := make(chan struct{})
	c := newCatalog(t, rec, "title")
	require.NoError(t, c.Register("stage", tracked(rec, "stage", func(ctx context.Context, _ any) error {
		close(entered)
		<-ctx.Done() // asset load pending
		return ctx.Err()
	})))
	eng := runtime.NewEngine(c)
	push(t, eng, "title", domain.OpSleep)
	before := eng.Stack()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- eng.Transition(ctx, domain.TransitionRequest{Type: "stage", Operations: domain.OpSleep})
	}()
	<-entered
	cancel()

	err := <-errCh
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, before, eng.Stack())
	assert.Equal(t, []string{"title.sleep", "stage.enter", "stage.exit", "title.resume"}, rec.list()[1:])
}

func TestEngine_CancelledBeforeStart(t *testing.T) {
	rec := &recorder{}
	eng := runtime.NewEngine(newCatalog(t, rec, "title"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := eng.Transition(ctx, domain.TransitionRequest{Type: "title"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.list())
	assert.Zero(t, eng.Depth())
}

func TestEngine_RejectsConcurrentTransition(t *testing.T) {
	rec := &recorder{}
	entered := make(chan struct{})
	release := make(chan struct{})
	c := newCatalog(t, rec, "title", "menu")
	require.NoError(t, c.Register("loading", tracked(rec, "loading", func(context.Context, any) error {
		close(entered)
		<-release
		return nil
	})))
	eng := runtime.NewEngine(c)
	push(t, eng, "title", 0)

	done := make(chan error, 1)
	go func() {
		done <- eng.Transition(context.Background(), domain.TransitionRequest{Type: "loading", Operations: domain.OpSleep})
	}()
	<-entered

	assert.ErrorIs(t, eng.Transition(context.Background(), domain.TransitionRequest{Type: "menu"}), domain.ErrTransitionInProgress)
	assert.ErrorIs(t, eng.TransitionPrev(context.Background()), domain.ErrTransitionInProgress)
	assert.ErrorIs(t, eng.TerminateLast(context.Background(), false), domain.ErrTransitionInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, []domain.SceneType{"title", "loading"}, types(eng.Stack()))

	push(t, eng, "menu", 0)
}

func TestEngine_UnknownAndMismatchedScenes(t *testing.T) {
	rec := &recorder{}
	c := newCatalog(t, rec, "title")
	require.NoError(t, c.RegisterDialog("confirm", tracked(rec, "confirm", nil)))
	eng := runtime.NewEngine(c)

	err := eng.Transition(context.Background(), domain.TransitionRequest{Type: "nope"})
	assert.ErrorIs(t, err, domain.ErrUnknownScene)

	err = eng.Transition(context.Background(), domain.TransitionRequest{Type: "confirm"})
	assert.ErrorIs(t, err, domain.ErrNotDialog)
	assert.Zero(t, eng.Depth())
}

func TestEngine_HooksAndPublisher(t *testing.T) {
	rec := &recorder{}
	c := newCatalog(t, rec, "title", "menu")

	b := broker.NewBuilder()
	require.NoError(t, broker.DeclareChannel[domain.ChannelKey, domain.SceneChanged](b))
	br, err := b.Build()
	require.NoError(t, err)
	pub, err := broker.GetPublisher[domain.ChannelKey, domain.SceneChanged](br)
	require.NoError(t, err)
	sub, err := broker.GetSubscriber[domain.ChannelKey, domain.SceneChanged](br)
	require.NoError(t, err)

	var changed, failed []domain.SceneChanged
	_, err = sub.Subscribe(domain.KeySceneChanged, func(m domain.SceneChanged) { changed = append(changed, m) })
	require.NoError(t, err)
	_, err = sub.Subscribe(domain.KeySceneFailed, func(m domain.SceneChanged) { failed = append(failed, m) })
	require.NoError(t, err)

	var transitions []*domain.TransitionEvent
	var enters []string
	eng := runtime.NewEngine(c,
		runtime.WithPublisher(pub),
		runtime.WithLifecycleHooks(domain.LifecycleHooks{
			OnTransition: func(_ context.Context, ev *domain.TransitionEvent) { transitions = append(transitions, ev) },
		}),
		runtime.WithLifecycleHooks(domain.LifecycleHooks{
			OnSceneEnter: func(_ context.Context, ev *domain.SceneEvent) { enters = append(enters, string(ev.Scene)) },
		}),
	)

	push(t, eng, "title", 0)
	push(t, eng, "menu", domain.OpSleep)
	require.NoError(t, eng.TransitionPrev(context.Background()))
	require.Error(t, eng.Transition(context.Background(), domain.TransitionRequest{Type: "nope"}))

	require.Len(t, changed, 3)
	assert.Equal(t, domain.SceneChanged{Kind: domain.KindPush, To: "title", Active: "title", Depth: 1}, changed[0])
	assert.Equal(t, domain.SceneChanged{Kind: domain.KindPush, From: "title", To: "menu", Active: "menu", Depth: 2}, changed[1])
	assert.Equal(t, domain.SceneChanged{Kind: domain.KindPrev, From: "menu", To: "title", Active: "title", Depth: 1}, changed[2])

	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0].Err, domain.ErrUnknownScene)
	assert.Equal(t, domain.SceneType("title"), failed[0].Active)

	require.Len(t, transitions, 4)
	assert.Equal(t, domain.DefaultOperations, transitions[0].Operations)
	assert.Equal(t, domain.EventTransition, transitions[0].Type)
	assert.GreaterOrEqual(t, transitions[0].Elapsed, time.Duration(0))
	assert.Equal(t, []string{"title", "menu"}, enters)
}
