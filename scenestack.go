package scenestack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/scenestack/internal/logging"
	"github.com/aretw0/scenestack/internal/runtime"
	"github.com/aretw0/scenestack/pkg/broker"
	"github.com/aretw0/scenestack/pkg/domain"
	"github.com/aretw0/scenestack/pkg/observability"
	"github.com/aretw0/scenestack/pkg/ports"
	"github.com/aretw0/scenestack/pkg/registry"
	"github.com/aretw0/scenestack/pkg/scene"
	"go.opentelemetry.io/otel/trace"
)

// Capability keys of the collaborators the Director and scenes resolve from the registry.
var (
	AssetsKey     = registry.NewKey[ports.AssetLoader]("assets")
	AudioKey      = registry.NewKey[ports.AudioPlayer]("audio")
	MasterDataKey = registry.NewKey[ports.MasterData]("masterdata")
)

// DialogRequest re-exports the runtime dialog request.
type DialogRequest = runtime.DialogRequest

// HookError re-exports the runtime hook failure.
type HookError = runtime.HookError

// ErrNoSnapshotStore is returned by Save and Restore when no store is configured.
var ErrNoSnapshotStore = runtime.ErrNoSnapshotStore

// Director is the high-level entry point for scenestack.
// It wraps the internal runtime and wires the registry, the broker and the observers.
type Director struct {
	runtime  *runtime.Engine
	catalog  *scene.Catalog
	registry *registry.Registry
	broker   *broker.Broker
	assets   *registry.Handle[ports.AssetLoader]
	store    ports.SnapshotStore
	metrics  *observability.Metrics
	tracer   trace.Tracer
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	Name     string
}

// Option defines a functional option for configuring the Director.
type Option func(*Director)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(d *Director) {
		d.hooks = d.hooks.Merge(hooks)
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Director) {
		d.logger = logger
	}
}

// WithRegistry uses an existing service registry instead of a fresh one.
func WithRegistry(r *registry.Registry) Option {
	return func(d *Director) {
		d.registry = r
	}
}

// WithBroker uses an existing global broker. It must declare the channels of
// DeclareChannels.
func WithBroker(br *broker.Broker) Option {
	return func(d *Director) {
		d.broker = br
	}
}

// WithSnapshotStore enables Save and Restore.
func WithSnapshotStore(store ports.SnapshotStore) Option {
	return func(d *Director) {
		d.store = store
	}
}

// WithMetrics records transition and hook metrics into m.
func WithMetrics(m *observability.Metrics) Option {
	return func(d *Director) {
		d.metrics = m
	}
}

// WithTracer sets the tracer used for transition spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(d *Director) {
		d.tracer = tracer
	}
}

// WithName labels the director in logs.
func WithName(name string) Option {
	return func(d *Director) {
		d.Name = name
	}
}

// DeclareChannels declares the channels the Director publishes on. Call it when building
// a broker passed through WithBroker.
func DeclareChannels(b *broker.Builder) error {
	return broker.DeclareChannel[domain.ChannelKey, domain.SceneChanged](b)
}

// New initializes a Director over the given scene catalog.
func New(catalog *scene.Catalog, opts ...Option) (*Director, error) {
	if catalog == nil {
		return nil, fmt.Errorf("scene catalog is required")
	}
	d := &Director{catalog: catalog}
	for _, opt := range opts {
		opt(d)
	}

	if d.logger == nil {
		d.logger = logging.NewNop()
	}
	if d.Name != "" {
		d.logger = d.logger.With("director", d.Name)
	}
	if d.registry == nil {
		d.registry = registry.New()
	}
	if d.broker == nil {
		b := broker.NewBuilder(broker.WithLogger(d.logger), broker.WithName("global"))
		if err := DeclareChannels(b); err != nil {
			return nil, err
		}
		br, err := b.Build()
		if err != nil {
			return nil, fmt.Errorf("failed to build broker: %w", err)
		}
		d.broker = br
	}
	pub, err := broker.GetPublisher[domain.ChannelKey, domain.SceneChanged](d.broker)
	if err != nil {
		return nil, fmt.Errorf("broker is missing scene channels: %w", err)
	}
	d.assets = registry.NewHandle(d.registry, AssetsKey)

	hooks := d.hooks
	if d.metrics != nil {
		hooks = hooks.Merge(d.metrics.Hooks())
	}

	runtimeOpts := []runtime.Option{
		runtime.WithLogger(d.logger),
		runtime.WithLifecycleHooks(hooks),
		runtime.WithAssets(d.assets),
		runtime.WithPublisher(pub),
	}
	if d.store != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithSnapshotStore(d.store))
	}
	if d.tracer != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithTracer(d.tracer))
	}
	d.runtime = runtime.NewEngine(catalog, runtimeOpts...)
	return d, nil
}

// Transition enters a full scene. See runtime.Engine.Transition.
func (d *Director) Transition(ctx context.Context, req domain.TransitionRequest) error {
	return d.runtime.Transition(ctx, req)
}

// TransitionTo is Transition with default operations.
func (d *Director) TransitionTo(ctx context.Context, t domain.SceneType, arg any) error {
	return d.runtime.Transition(ctx, domain.TransitionRequest{Type: t, Arg: arg})
}

// TransitionPrev navigates back to the previous entry.
func (d *Director) TransitionPrev(ctx context.Context) error {
	return d.runtime.TransitionPrev(ctx)
}

// TransitionDialog overlays a dialog and waits for its untyped result.
func (d *Director) TransitionDialog(ctx context.Context, req DialogRequest) (any, error) {
	return d.runtime.TransitionDialog(ctx, req)
}

// Terminate ends the newest entry of type t.
func (d *Director) Terminate(ctx context.Context, t domain.SceneType, clearHistory bool) error {
	return d.runtime.Terminate(ctx, t, clearHistory)
}

// TerminateLast ends the active entry.
func (d *Director) TerminateLast(ctx context.Context, clearHistory bool) error {
	return d.runtime.TerminateLast(ctx, clearHistory)
}

// Reset terminates every entry without resuming anything.
func (d *Director) Reset(ctx context.Context) error {
	return d.runtime.Reset(ctx)
}

// IsProcessing reports whether an entry of type t is active.
func (d *Director) IsProcessing(t domain.SceneType) bool {
	return d.runtime.IsProcessing(t)
}

// Stack returns the history, bottom to top.
func (d *Director) Stack() []domain.Entry {
	return d.runtime.Stack()
}

// Active returns the top entry.
func (d *Director) Active() (domain.Entry, bool) {
	return d.runtime.Active()
}

// LoadEngineScene loads an engine scene through the registered asset loader.
func (d *Director) LoadEngineScene(ctx context.Context, name string, mode ports.LoadMode, activate bool) (ports.EngineSceneHandle, error) {
	return d.runtime.LoadEngineScene(ctx, name, mode, activate)
}

// UnloadEngineScene unloads one engine scene.
func (d *Director) UnloadEngineScene(ctx context.Context, h ports.EngineSceneHandle) error {
	return d.runtime.UnloadEngineScene(ctx, h)
}

// UnloadEngineSceneAll unloads every loaded engine scene, newest first.
func (d *Director) UnloadEngineSceneAll(ctx context.Context) error {
	return d.runtime.UnloadEngineSceneAll(ctx)
}

// Snapshot returns the restorable history.
func (d *Director) Snapshot() domain.StackSnapshot {
	return d.runtime.Snapshot()
}

// Save persists the history under id.
func (d *Director) Save(ctx context.Context, id string) error {
	return d.runtime.Save(ctx, id)
}

// Restore rebuilds the history stored under id. The stack must be empty.
func (d *Director) Restore(ctx context.Context, id string) error {
	return d.runtime.Restore(ctx, id)
}

// Registry returns the service registry.
func (d *Director) Registry() *registry.Registry { return d.registry }

// Broker returns the global broker.
func (d *Director) Broker() *broker.Broker { return d.broker }

// Catalog returns the scene catalog.
func (d *Director) Catalog() *scene.Catalog { return d.catalog }

// Metrics returns the configured metrics, or nil.
func (d *Director) Metrics() *observability.Metrics { return d.metrics }

// Logger returns the director logger.
func (d *Director) Logger() *slog.Logger { return d.logger }

// OnSceneChanged subscribes fn to settled transitions.
func (d *Director) OnSceneChanged(fn func(domain.SceneChanged)) (*broker.Subscription, error) {
	sub, err := broker.GetSubscriber[domain.ChannelKey, domain.SceneChanged](d.broker)
	if err != nil {
		return nil, err
	}
	return sub.Subscribe(domain.KeySceneChanged, fn)
}

// Finalize eagerly resolves every capability handle and reports unbound ones.
func (d *Director) Finalize() error {
	return d.registry.Finalize()
}

// Shutdown terminates every entry, unloads every engine scene and closes the broker.
func (d *Director) Shutdown(ctx context.Context) error {
	var errs []error
	if err := d.runtime.Reset(ctx); err != nil {
		errs = append(errs, err)
	}
	if d.assets.Bound() {
		if err := d.runtime.UnloadEngineSceneAll(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := d.broker.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	d.logger.Info("director shut down")
	return nil
}
