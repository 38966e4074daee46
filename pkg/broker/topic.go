package broker

import (
	"context"
	"slices"
	"sync"
)

type topicCloser interface {
	close() int
}

type handlerEntry[M any] struct {
	id uint64
	fn func(M)
}

type asyncHandlerEntry[M any] struct {
	id uint64
	fn func(context.Context, M) error
}

// topic holds the live subscribers of one (K, M) channel, per key, in registration order.
type topic[K comparable, M any] struct {
	mu     sync.RWMutex
	nextID uint64
	closed bool
	sync   map[K][]handlerEntry[M]
	async  map[K][]asyncHandlerEntry[M]
}

func newTopic[K comparable, M any]() *topic[K, M] {
	return &topic[K, M]{
		sync:  make(map[K][]handlerEntry[M]),
		async: make(map[K][]asyncHandlerEntry[M]),
	}
}

func (t *topic[K, M]) subscribe(key K, fn func(M)) (uint64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, false
	}
	t.nextID++
	t.sync[key] = append(t.sync[key], handlerEntry[M]{id: t.nextID, fn: fn})
	return t.nextID, true
}

func (t *topic[K, M]) subscribeAsync(key K, fn func(context.Context, M) error) (uint64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, false
	}
	t.nextID++
	t.async[key] = append(t.async[key], asyncHandlerEntry[M]{id: t.nextID, fn: fn})
	return t.nextID, true
}

func (t *topic[K, M]) unsubscribe(key K, id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if subs, ok := t.sync[key]; ok {
		t.sync[key] = slices.DeleteFunc(slices.Clone(subs), func(e handlerEntry[M]) bool { return e.id == id })
		if len(t.sync[key]) == 0 {
			delete(t.sync, key)
		}
	}
	if subs, ok := t.async[key]; ok {
		t.async[key] = slices.DeleteFunc(slices.Clone(subs), func(e asyncHandlerEntry[M]) bool { return e.id == id })
		if len(t.async[key]) == 0 {
			delete(t.async, key)
		}
	}
}

// snapshot returns the subscribers at publish time. Handlers may subscribe or dispose
// while the snapshot is being delivered; those changes apply to the next publish.
func (t *topic[K, M]) snapshot(key K) []handlerEntry[M] {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.sync[key])
}

func (t *topic[K, M]) snapshotAsync(key K) []asyncHandlerEntry[M] {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.async[key])
}

func (t *topic[K, M]) count(key K) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sync[key]) + len(t.async[key])
}

func (t *topic[K, M]) close() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, subs := range t.sync {
		n += len(subs)
	}
	for _, subs := range t.async {
		n += len(subs)
	}
	t.closed = true
	t.sync = make(map[K][]handlerEntry[M])
	t.async = make(map[K][]asyncHandlerEntry[M])
	return n
}
