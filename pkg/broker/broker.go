package broker

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/aretw0/scenestack/pkg/domain"
	"golang.org/x/sync/errgroup"
)

// Broker is a finalized, immutable set of channels and request handlers.
// Several brokers may coexist; each only knows the channels declared on its own Builder.
type Broker struct {
	opts          options
	topics        map[any]topicCloser
	handlers      map[any]any
	asyncHandlers map[any]any
	closed        atomic.Bool
}

// Close disposes every live subscription. Publishing on a closed broker delivers nothing
// and subscribing fails with domain.ErrBrokerClosed.
func (br *Broker) Close() error {
	if !br.closed.CompareAndSwap(false, true) {
		return nil
	}
	disposed := 0
	for _, t := range br.topics {
		disposed += t.close()
	}
	br.opts.logger.Debug("broker closed", "disposed_subscriptions", disposed)
	return nil
}

// Closed reports whether Close was called.
func (br *Broker) Closed() bool {
	return br.closed.Load()
}

func lookupTopic[K comparable, M any](br *Broker) (*topic[K, M], error) {
	raw, ok := br.topics[pairKey[K, M]{}]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrChannelNotDeclared, pairName[K, M]())
	}
	return raw.(*topic[K, M]), nil
}

// Publisher sends messages of type M to the subscribers of a key.
type Publisher[K comparable, M any] struct {
	topic *topic[K, M]
}

// GetPublisher returns the publisher endpoint of channel (K, M).
func GetPublisher[K comparable, M any](br *Broker) (*Publisher[K, M], error) {
	t, err := lookupTopic[K, M](br)
	if err != nil {
		return nil, err
	}
	return &Publisher[K, M]{topic: t}, nil
}

// Publish delivers msg to every current subscriber of key, in registration order.
// Nothing is buffered: subscribers added later never see this message.
func (p *Publisher[K, M]) Publish(key K, msg M) {
	for _, sub := range p.topic.snapshot(key) {
		sub.fn(msg)
	}
}

// Subscribers returns the number of live subscribers (sync and async) of key.
func (p *Publisher[K, M]) Subscribers(key K) int {
	return p.topic.count(key)
}

// Subscriber registers handlers on a channel.
type Subscriber[K comparable, M any] struct {
	topic *topic[K, M]
}

// GetSubscriber returns the subscriber endpoint of channel (K, M).
func GetSubscriber[K comparable, M any](br *Broker) (*Subscriber[K, M], error) {
	t, err := lookupTopic[K, M](br)
	if err != nil {
		return nil, err
	}
	return &Subscriber[K, M]{topic: t}, nil
}

// Subscribe registers fn for messages published to key.
func (s *Subscriber[K, M]) Subscribe(key K, fn func(M)) (*Subscription, error) {
	id, ok := s.topic.subscribe(key, fn)
	if !ok {
		return nil, domain.ErrBrokerClosed
	}
	return newSubscription(func() { s.topic.unsubscribe(key, id) }), nil
}

// AsyncPublisher sends messages to async subscribers and waits for them.
type AsyncPublisher[K comparable, M any] struct {
	topic    *topic[K, M]
	strategy AsyncStrategy
}

// GetAsyncPublisher returns the async publisher endpoint of channel (K, M).
func GetAsyncPublisher[K comparable, M any](br *Broker) (*AsyncPublisher[K, M], error) {
	t, err := lookupTopic[K, M](br)
	if err != nil {
		return nil, err
	}
	return &AsyncPublisher[K, M]{topic: t, strategy: br.opts.strategy}, nil
}

// PublishAsync delivers msg to every async subscriber of key and waits for them to finish.
func (p *AsyncPublisher[K, M]) PublishAsync(ctx context.Context, key K, msg M) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subs := p.topic.snapshotAsync(key)

	if p.strategy == Parallel {
		g, gctx := errgroup.WithContext(ctx)
		for _, sub := range subs {
			sub := sub
			g.Go(func() error {
				return sub.fn(gctx, msg)
			})
		}
		return g.Wait()
	}

	for i, sub := range subs {
		if err := sub.fn(ctx, msg); err != nil {
			return fmt.Errorf("async subscriber %d: %w", i, err)
		}
	}
	return nil
}

// AsyncSubscriber registers async handlers on a channel.
type AsyncSubscriber[K comparable, M any] struct {
	topic *topic[K, M]
}

// GetAsyncSubscriber returns the async subscriber endpoint of channel (K, M).
func GetAsyncSubscriber[K comparable, M any](br *Broker) (*AsyncSubscriber[K, M], error) {
	t, err := lookupTopic[K, M](br)
	if err != nil {
		return nil, err
	}
	return &AsyncSubscriber[K, M]{topic: t}, nil
}

// Subscribe registers fn for messages published asynchronously to key.
func (s *AsyncSubscriber[K, M]) Subscribe(key K, fn func(context.Context, M) error) (*Subscription, error) {
	id, ok := s.topic.subscribeAsync(key, fn)
	if !ok {
		return nil, domain.ErrBrokerClosed
	}
	return newSubscription(func() { s.topic.unsubscribe(key, id) }), nil
}
