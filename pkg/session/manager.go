package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/scenestack/internal/logging"
	"github.com/aretw0/scenestack/pkg/domain"
	"github.com/aretw0/scenestack/pkg/ports"
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates save slot access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.SnapshotStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	logger *slog.Logger
}

var _ ports.SnapshotStore = (*Manager)(nil)

// Option configures the Manager.
type Option func(*Manager)

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new slot Manager over the given snapshot store.
func NewManager(store ports.SnapshotStore, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		locks:  make(map[string]*lockEntry),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(id) after unlocking.
func (m *Manager) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

// Load retrieves a snapshot from the store.
func (m *Manager) Load(ctx context.Context, id string) (domain.StackSnapshot, error) {
	var snapshot domain.StackSnapshot
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		var err error
		snapshot, err = m.store.Load(ctx, id)
		return err
	})
	return snapshot, err
}

// Save persists a snapshot.
func (m *Manager) Save(ctx context.Context, id string, snapshot domain.StackSnapshot) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		return m.store.Save(ctx, id, snapshot)
	})
}

// Delete removes a snapshot from the store.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		return m.store.Delete(ctx, id)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Update applies fn to the stored snapshot and saves the result, holding the slot for the
// whole read-modify-write. A missing slot is passed to fn as an empty snapshot.
func (m *Manager) Update(ctx context.Context, id string, fn func(domain.StackSnapshot) (domain.StackSnapshot, error)) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		current, err := m.store.Load(ctx, id)
		if err != nil && !errors.Is(err, domain.ErrSnapshotNotFound) {
			return fmt.Errorf("failed to load slot %s: %w", id, err)
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		return m.store.Save(ctx, id, next)
	})
}

// WithLock executes a function while holding the lock for the slot.
func (m *Manager) WithLock(ctx context.Context, id string, fn func(context.Context) error) error {
	entry := m.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(id)
	}()

	if err := ctx.Err(); err != nil {
		m.logger.Debug("slot access cancelled while waiting", "slot", id, "err", err)
		return err
	}
	return fn(ctx)
}
