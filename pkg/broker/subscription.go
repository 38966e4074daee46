package broker

import "sync"

// Subscription is the disposer returned by Subscribe.
type Subscription struct {
	once   sync.Once
	cancel func()
}

func newSubscription(cancel func()) *Subscription {
	return &Subscription{cancel: cancel}
}

// Dispose stops delivery to the subscriber. Safe to call more than once.
func (s *Subscription) Dispose() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}

// Bag collects subscriptions so a scene can release everything it subscribed to in one call.
type Bag struct {
	mu   sync.Mutex
	subs []*Subscription
}

// Add keeps s until Dispose. Nil subscriptions are ignored.
func (b *Bag) Add(s *Subscription) {
	if s == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, s)
}

// Len returns the number of held subscriptions.
func (b *Bag) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Dispose disposes every held subscription, newest first, and empties the bag.
func (b *Bag) Dispose() {
	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for i := len(subs) - 1; i >= 0; i-- {
		subs[i].Dispose()
	}
}
