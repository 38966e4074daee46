package broker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/scenestack/pkg/broker"
	"github.com/aretw0/scenestack/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ScoreMsg struct{ Value int }

type HealthMsg struct{ HP int }

func buildScoreBroker(t *testing.T, opts ...broker.Option) *broker.Broker {
	t.Helper()
	b := broker.NewBuilder(opts...)
	require.NoError(t, broker.DeclareChannel[int, ScoreMsg](b))
	br, err := b.Build()
	require.NoError(t, err)
	return br
}

func TestBroker_PublishDeliversToEarlierSubscribersOnly(t *testing.T) {
	br := buildScoreBroker(t)

	sub, err := broker.GetSubscriber[int, ScoreMsg](br)
	require.NoError(t, err)
	pub, err := broker.GetPublisher[int, ScoreMsg](br)
	require.NoError(t, err)

	var order []string
	_, err = sub.Subscribe(0, func(m ScoreMsg) { order = append(order, "first") })
	require.NoError(t, err)
	_, err = sub.Subscribe(0, func(m ScoreMsg) {
		assert.Equal(t, 10, m.Value)
		order = append(order, "second")
	})
	require.NoError(t, err)

	var otherKey int
	_, _ = sub.Subscribe(1, func(ScoreMsg) { otherKey++ })

	pub.Publish(0, ScoreMsg{Value: 10})

	var late int
	_, _ = sub.Subscribe(0, func(ScoreMsg) { late++ })

	assert.Equal(t, []string{"first", "second"}, order)
	assert.Zero(t, late, "late subscriber must not receive earlier messages")
	assert.Zero(t, otherKey, "other keys are isolated")
	assert.Equal(t, 3, pub.Subscribers(0))
}

func TestBroker_Dispose(t *testing.T) {
	br := buildScoreBroker(t)
	sub, _ := broker.GetSubscriber[int, ScoreMsg](br)
	pub, _ := broker.GetPublisher[int, ScoreMsg](br)

	var got int
	s, err := sub.Subscribe(0, func(m ScoreMsg) { got += m.Value })
	require.NoError(t, err)

	pub.Publish(0, ScoreMsg{Value: 1})
	s.Dispose()
	s.Dispose()
	pub.Publish(0, ScoreMsg{Value: 1})

	assert.Equal(t, 1, got)
	assert.Zero(t, pub.Subscribers(0))
}

func TestBroker_SubscribeDuringPublish(t *testing.T) {
	br := buildScoreBroker(t)
	sub, _ := broker.GetSubscriber[int, ScoreMsg](br)
	pub, _ := broker.GetPublisher[int, ScoreMsg](br)

	var nested int
	_, _ = sub.Subscribe(0, func(ScoreMsg) {
		_, _ = sub.Subscribe(0, func(ScoreMsg) { nested++ })
	})

	pub.Publish(0, ScoreMsg{})
	assert.Zero(t, nested)
	pub.Publish(0, ScoreMsg{})
	assert.Equal(t, 1, nested)
}

func TestBroker_ChannelNotDeclared(t *testing.T) {
	br := buildScoreBroker(t)

	_, err := broker.GetPublisher[int, HealthMsg](br)
	assert.ErrorIs(t, err, domain.ErrChannelNotDeclared)
	_, err = broker.GetSubscriber[string, ScoreMsg](br)
	assert.ErrorIs(t, err, domain.ErrChannelNotDeclared)
	_, err = broker.GetAsyncPublisher[int, HealthMsg](br)
	assert.ErrorIs(t, err, domain.ErrChannelNotDeclared)
	_, err = broker.GetAsyncSubscriber[int, HealthMsg](br)
	assert.ErrorIs(t, err, domain.ErrChannelNotDeclared)
}

func TestBuilder_Finalization(t *testing.T) {
	b := broker.NewBuilder()
	require.NoError(t, broker.DeclareChannel[int, ScoreMsg](b))
	require.NoError(t, broker.DeclareChannel[int, ScoreMsg](b), "redeclaring is a no-op")

	_, err := b.Build()
	require.NoError(t, err)

	_, err = b.Build()
	assert.ErrorIs(t, err, domain.ErrAlreadyFinalized)

	err = broker.DeclareChannel[int, HealthMsg](b)
	assert.ErrorIs(t, err, domain.ErrAlreadyFinalized)

	err = broker.DeclareRequestHandler[int, string](b, broker.RequestHandlerFunc[int, string](func(int) (string, error) { return "", nil }))
	assert.ErrorIs(t, err, domain.ErrAlreadyFinalized)

	assert.Panics(t, func() { broker.MustDeclareChannel[int, HealthMsg](b) })
}

func TestBroker_RequestHandlers(t *testing.T) {
	b := broker.NewBuilder()
	double := broker.RequestHandlerFunc[int, int](func(v int) (int, error) { return v * 2, nil })
	require.NoError(t, broker.DeclareRequestHandler[int, int](b, double))

	err := broker.DeclareRequestHandler[int, int](b, double)
	assert.ErrorIs(t, err, domain.ErrDuplicateHandler)

	require.NoError(t, broker.DeclareAsyncRequestHandler[string, int](b,
		broker.AsyncRequestHandlerFunc[string, int](func(ctx context.Context, s string) (int, error) {
			return len(s), ctx.Err()
		})))

	br, err := b.Build()
	require.NoError(t, err)

	h, err := broker.GetRequestHandler[int, int](br)
	require.NoError(t, err)
	res, err := h.Invoke(21)
	require.NoError(t, err)
	assert.Equal(t, 42, res)

	n, err := broker.InvokeAsync[string, int](context.Background(), br, "stage")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	_, err = broker.GetRequestHandler[int, string](br)
	assert.ErrorIs(t, err, domain.ErrHandlerNotFound)
	_, err = broker.Invoke[string, int](br, "sync variant was never declared")
	assert.ErrorIs(t, err, domain.ErrHandlerNotFound)
	_, err = broker.GetAsyncRequestHandler[int, int](br)
	assert.ErrorIs(t, err, domain.ErrHandlerNotFound)
}

func TestBroker_AsyncSequential(t *testing.T) {
	br := buildScoreBroker(t)
	sub, _ := broker.GetAsyncSubscriber[int, ScoreMsg](br)
	pub, _ := broker.GetAsyncPublisher[int, ScoreMsg](br)

	var order []int
	boom := errors.New("boom")
	_, _ = sub.Subscribe(0, func(_ context.Context, m ScoreMsg) error {
		order = append(order, 1)
		return nil
	})
	_, _ = sub.Subscribe(0, func(_ context.Context, m ScoreMsg) error {
		order = append(order, 2)
		return boom
	})
	_, _ = sub.Subscribe(0, func(_ context.Context, m ScoreMsg) error {
		order = append(order, 3)
		return nil
	})

	err := pub.PublishAsync(context.Background(), 0, ScoreMsg{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int{1, 2}, order, "sequential stops at the first error")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, pub.PublishAsync(ctx, 0, ScoreMsg{}), context.Canceled)
	assert.Len(t, order, 2)
}

func TestBroker_AsyncParallel(t *testing.T) {
	br := buildScoreBroker(t, broker.WithAsyncStrategy(broker.Parallel))
	sub, _ := broker.GetAsyncSubscriber[int, ScoreMsg](br)
	pub, _ := broker.GetAsyncPublisher[int, ScoreMsg](br)

	var total atomic.Int64
	release := make(chan struct{})
	for i := 0; i < 3; i++ {
		_, _ = sub.Subscribe(0, func(ctx context.Context, m ScoreMsg) error {
			total.Add(int64(m.Value))
			<-release
			return nil
		})
	}

	done := make(chan error, 1)
	go func() { done <- pub.PublishAsync(context.Background(), 0, ScoreMsg{Value: 5}) }()

	assert.Eventually(t, func() bool { return total.Load() == 15 }, time.Second, 5*time.Millisecond,
		"all subscribers run concurrently")
	close(release)
	require.NoError(t, <-done)
}

func TestBroker_Close(t *testing.T) {
	br := buildScoreBroker(t)
	sub, _ := broker.GetSubscriber[int, ScoreMsg](br)
	pub, _ := broker.GetPublisher[int, ScoreMsg](br)

	var got int
	_, _ = sub.Subscribe(0, func(ScoreMsg) { got++ })

	require.NoError(t, br.Close())
	require.NoError(t, br.Close())
	assert.True(t, br.Closed())

	pub.Publish(0, ScoreMsg{})
	assert.Zero(t, got)

	_, err := sub.Subscribe(0, func(ScoreMsg) {})
	assert.ErrorIs(t, err, domain.ErrBrokerClosed)
}

func TestBroker_IndependentInstances(t *testing.T) {
	a := buildScoreBroker(t)
	b := buildScoreBroker(t)

	subA, _ := broker.GetSubscriber[int, ScoreMsg](a)
	pubB, _ := broker.GetPublisher[int, ScoreMsg](b)

	var got int
	_, _ = subA.Subscribe(0, func(ScoreMsg) { got++ })
	pubB.Publish(0, ScoreMsg{})

	assert.Zero(t, got)
}

func TestBag_Dispose(t *testing.T) {
	br := buildScoreBroker(t)
	sub, _ := broker.GetSubscriber[int, ScoreMsg](br)
	pub, _ := broker.GetPublisher[int, ScoreMsg](br)

	var bag broker.Bag
	var got int
	for i := 0; i < 3; i++ {
		s, err := sub.Subscribe(0, func(ScoreMsg) { got++ })
		require.NoError(t, err)
		bag.Add(s)
	}
	bag.Add(nil)
	assert.Equal(t, 3, bag.Len())

	bag.Dispose()
	pub.Publish(0, ScoreMsg{})

	assert.Zero(t, got)
	assert.Zero(t, bag.Len())
}
