package ports

import (
	"context"

	"github.com/aretw0/scenestack/pkg/domain"
)

// SnapshotStore persists scene history snapshots.
// This allows a session's back-navigation history to survive a restart.
type SnapshotStore interface {
	// Save persists the snapshot under id, replacing any previous one.
	Save(ctx context.Context, id string, snapshot domain.StackSnapshot) error

	// Load retrieves the snapshot for id.
	// Returns domain.ErrSnapshotNotFound if it does not exist.
	Load(ctx context.Context, id string) (domain.StackSnapshot, error)

	// Delete removes the snapshot for id.
	Delete(ctx context.Context, id string) error

	// List returns the stored snapshot ids.
	List(ctx context.Context) ([]string, error)
}
