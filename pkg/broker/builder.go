package broker

import (
	"fmt"
	"sync"

	"github.com/aretw0/scenestack/pkg/domain"
)

// pairKey is a zero-sized token whose dynamic type identifies a (A, B) type pair.
// Distinct instantiations compare unequal, which gives typed map keys without reflection.
type pairKey[A, B any] struct{}

// Builder collects channel and handler declarations. It is finalized by Build.
type Builder struct {
	mu            sync.Mutex
	built         bool
	opts          options
	channels      map[any]func() topicCloser
	order         []any
	handlers      map[any]any
	asyncHandlers map[any]any
}

// NewBuilder creates an empty broker configuration.
func NewBuilder(opts ...Option) *Builder {
	return &Builder{
		opts:          newOptions(opts),
		channels:      make(map[any]func() topicCloser),
		handlers:      make(map[any]any),
		asyncHandlers: make(map[any]any),
	}
}

// DeclareChannel registers the publish/subscribe channel (K, M).
// Redeclaring the same pair is a no-op.
func DeclareChannel[K comparable, M any](b *Builder) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.built {
		return fmt.Errorf("declare channel %s: %w", pairName[K, M](), domain.ErrAlreadyFinalized)
	}
	id := pairKey[K, M]{}
	if _, ok := b.channels[id]; ok {
		return nil
	}
	b.channels[id] = func() topicCloser { return newTopic[K, M]() }
	b.order = append(b.order, id)
	return nil
}

// DeclareRequestHandler registers the single synchronous handler for (Req, Res).
func DeclareRequestHandler[Req, Res any](b *Builder, h RequestHandler[Req, Res]) error {
	return b.declareHandler(b.handlers, pairKey[Req, Res]{}, pairName[Req, Res](), h)
}

// DeclareAsyncRequestHandler registers the single asynchronous handler for (Req, Res).
func DeclareAsyncRequestHandler[Req, Res any](b *Builder, h AsyncRequestHandler[Req, Res]) error {
	return b.declareHandler(b.asyncHandlers, pairKey[Req, Res]{}, pairName[Req, Res](), h)
}

func (b *Builder) declareHandler(into map[any]any, id any, name string, h any) error {
	if h == nil {
		return fmt.Errorf("declare handler %s: nil handler", name)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.built {
		return fmt.Errorf("declare handler %s: %w", name, domain.ErrAlreadyFinalized)
	}
	if _, ok := into[id]; ok {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateHandler, name)
	}
	into[id] = h
	return nil
}

// Build finalizes the configuration into an immutable Broker.
// It may be called exactly once.
func (b *Builder) Build() (*Broker, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.built {
		return nil, fmt.Errorf("build: %w", domain.ErrAlreadyFinalized)
	}
	b.built = true

	br := &Broker{
		opts:          b.opts,
		topics:        make(map[any]topicCloser, len(b.channels)),
		handlers:      make(map[any]any, len(b.handlers)),
		asyncHandlers: make(map[any]any, len(b.asyncHandlers)),
	}
	for _, id := range b.order {
		br.topics[id] = b.channels[id]()
	}
	for id, h := range b.handlers {
		br.handlers[id] = h
	}
	for id, h := range b.asyncHandlers {
		br.asyncHandlers[id] = h
	}

	b.opts.logger.Debug("broker built",
		"channels", len(br.topics),
		"handlers", len(br.handlers),
		"async_handlers", len(br.asyncHandlers),
	)
	return br, nil
}

// MustDeclareChannel is like DeclareChannel but panics on error.
func MustDeclareChannel[K comparable, M any](b *Builder) {
	if err := DeclareChannel[K, M](b); err != nil {
		panic(err)
	}
}

func pairName[A, B any]() string {
	var a A
	var b B
	return fmt.Sprintf("(%T, %T)", a, b)
}
