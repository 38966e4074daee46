// Package runtime implements the scene stack orchestrator: the transition history, the
// per-entry state machine, rollback, dialogs and termination.
package runtime

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/aretw0/scenestack/internal/logging"
	"github.com/aretw0/scenestack/pkg/broker"
	"github.com/aretw0/scenestack/pkg/domain"
	"github.com/aretw0/scenestack/pkg/observability"
	"github.com/aretw0/scenestack/pkg/ports"
	"github.com/aretw0/scenestack/pkg/registry"
	"github.com/aretw0/scenestack/pkg/scene"
	"go.opentelemetry.io/otel/trace"
)

// ErrNoSnapshotStore is returned by Save and Restore when the engine has no store.
var ErrNoSnapshotStore = errors.New("no snapshot store configured")

// entry is one element of the transition history.
type entry struct {
	id     string
	typ    domain.SceneType
	node   scene.Node
	state  domain.SceneState
	arg    any
	dialog bool
	result *scene.Result
}

// Engine is the scene stack orchestrator. It owns the transition history and drives every
// node through its lifecycle.
//
// At most one transition runs at a time: a request arriving while another is in flight
// fails with domain.ErrTransitionInProgress. Lifecycle hooks, hook observers and
// SceneChanged subscribers run while the transition is held, so they must not start
// another transition synchronously.
type Engine struct {
	catalog   *scene.Catalog
	assets    *registry.Handle[ports.AssetLoader]
	publisher *broker.Publisher[domain.ChannelKey, domain.SceneChanged]
	store     ports.SnapshotStore
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	tracer    trace.Tracer

	// transition serializes every stack mutation.
	transition sync.Mutex

	mu    sync.RWMutex
	stack []*entry

	scenesMu     sync.Mutex
	engineScenes []ports.EngineSceneHandle
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks adds lifecycle observers. Repeated calls are merged in order.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithAssets sets the asset loader handle used for engine-scene loading.
func WithAssets(assets *registry.Handle[ports.AssetLoader]) Option {
	return func(e *Engine) {
		e.assets = assets
	}
}

// WithPublisher publishes SceneChanged after every transition.
func WithPublisher(p *broker.Publisher[domain.ChannelKey, domain.SceneChanged]) Option {
	return func(e *Engine) {
		e.publisher = p
	}
}

// WithSnapshotStore enables Save and Restore.
func WithSnapshotStore(store ports.SnapshotStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithTracer sets the tracer used for transition spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// NewEngine creates an engine with an empty stack.
func NewEngine(catalog *scene.Catalog, opts ...Option) *Engine {
	e := &Engine{
		catalog: catalog,
		logger:  logging.NewNop(),
		tracer:  observability.Tracer(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Stack returns a snapshot of the history, bottom to top.
func (e *Engine) Stack() []domain.Entry {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]domain.Entry, len(e.stack))
	for i, en := range e.stack {
		out[i] = en.snapshot(i)
	}
	return out
}

// Active returns the top of the stack.
func (e *Engine) Active() (domain.Entry, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.stack) == 0 {
		return domain.Entry{}, false
	}
	i := len(e.stack) - 1
	return e.stack[i].snapshot(i), true
}

// Depth returns the number of entries on the stack.
func (e *Engine) Depth() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.stack)
}

// IsProcessing reports whether any entry of type t is in the Processing state.
func (e *Engine) IsProcessing(t domain.SceneType) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, en := range e.stack {
		if en.typ == t && en.state == domain.StateProcessing {
			return true
		}
	}
	return false
}

func (en *entry) snapshot(i int) domain.Entry {
	return domain.Entry{
		ID:     en.id,
		Type:   en.typ,
		State:  en.state,
		Arg:    en.arg,
		Dialog: en.dialog,
		Index:  i,
	}
}

// top returns the last entry, or nil.
func (e *Engine) top() *entry {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.stack) == 0 {
		return nil
	}
	return e.stack[len(e.stack)-1]
}

func (e *Engine) push(en *entry) {
	e.mu.Lock()
	e.stack = append(e.stack, en)
	e.mu.Unlock()
}

// remove evicts the given entries, keeping the order of the rest.
func (e *Engine) remove(evicted ...*entry) {
	if len(evicted) == 0 {
		return
	}
	drop := make(map[*entry]struct{}, len(evicted))
	for _, en := range evicted {
		drop[en] = struct{}{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	kept := e.stack[:0]
	for _, en := range e.stack {
		if _, ok := drop[en]; !ok {
			kept = append(kept, en)
		}
	}
	clear(e.stack[len(kept):])
	e.stack = kept
}

func (e *Engine) indexOf(target *entry) int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for i, en := range e.stack {
		if en == target {
			return i
		}
	}
	return -1
}

// entries returns a copy of the stack slice.
func (e *Engine) entries() []*entry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]*entry(nil), e.stack...)
}

func (e *Engine) setState(en *entry, s domain.SceneState) {
	e.mu.Lock()
	en.state = s
	e.mu.Unlock()
}

func (e *Engine) stateOf(en *entry) domain.SceneState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return en.state
}
