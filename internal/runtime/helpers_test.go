package runtime_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/scenestack/internal/runtime"
	"github.com/aretw0/scenestack/pkg/domain"
	"github.com/aretw0/scenestack/pkg/scene"
	"github.com/stretchr/testify/require"
)

// recorder collects lifecycle calls as "<scene>.<hook>".
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// tracked returns a factory whose nodes record every hook. onEnter, when set, runs after
// the enter call is recorded.
func tracked(rec *recorder, name string, onEnter func(ctx context.Context, arg any) error) scene.Factory {
	return func() scene.Node {
		return &scene.Funcs{
			OnEnter: func(ctx context.Context, arg any) error {
				rec.add(name + ".enter")
				if onEnter != nil {
					return onEnter(ctx, arg)
				}
				return nil
			},
			OnSleep:  func(context.Context) error { rec.add(name + ".sleep"); return nil },
			OnResume: func(context.Context) error { rec.add(name + ".resume"); return nil },
			OnExit:   func(context.Context) error { rec.add(name + ".exit"); return nil },
		}
	}
}

func newCatalog(t *testing.T, rec *recorder, scenes ...domain.SceneType) *scene.Catalog {
	t.Helper()
	c := scene.NewCatalog()
	for _, s := range scenes {
		require.NoError(t, c.Register(s, tracked(rec, string(s), nil)))
	}
	return c
}

func types(stack []domain.Entry) []domain.SceneType {
	out := make([]domain.SceneType, len(stack))
	for i, e := range stack {
		out[i] = e.Type
	}
	return out
}

func states(stack []domain.Entry) []domain.SceneState {
	out := make([]domain.SceneState, len(stack))
	for i, e := range stack {
		out[i] = e.State
	}
	return out
}

func push(t *testing.T, eng *runtime.Engine, typ domain.SceneType, ops domain.Operations) {
	t.Helper()
	require.NoError(t, eng.Transition(context.Background(), domain.TransitionRequest{Type: typ, Operations: ops}))
}

func waitActive(t *testing.T, eng *runtime.Engine, typ domain.SceneType) {
	t.Helper()
	require.Eventually(t, func() bool {
		a, ok := eng.Active()
		return ok && a.Type == typ && a.State == domain.StateProcessing
	}, time.Second, time.Millisecond)
}
