package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/scenestack/pkg/domain"
)

// Store implements ports.SnapshotStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]domain.StackSnapshot
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]domain.StackSnapshot),
	}
}

// Save persists the snapshot in memory.
func (s *Store) Save(ctx context.Context, id string, snapshot domain.StackSnapshot) error {
	// Copy the entries so later caller mutations do not leak into the store.
	copied := domain.StackSnapshot{Entries: slices.Clone(snapshot.Entries)}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = copied
	return nil
}

// Load retrieves the snapshot from memory.
func (s *Store) Load(ctx context.Context, id string) (domain.StackSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.data[id]
	if !ok {
		return domain.StackSnapshot{}, domain.ErrSnapshotNotFound
	}
	return domain.StackSnapshot{Entries: slices.Clone(snapshot.Entries)}, nil
}

// Delete removes the snapshot.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns the stored snapshot ids, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}
