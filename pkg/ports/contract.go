package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/scenestack/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSnapshotStoreContract runs a suite of tests to verify that a SnapshotStore implementation
// adheres to the defined interface contract.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	id := "contract-test-" + time.Now().Format("20060102150405")

	snapshot := domain.StackSnapshot{Entries: []domain.EntryRecord{
		{Type: "title"},
		{Type: "stage", Arg: "forest"},
	}}

	t.Run("Save and Load", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, id, snapshot), "Save should not return error")

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err, "Load should not return error")
		require.Len(t, loaded.Entries, 2)
		assert.Equal(t, domain.SceneType("title"), loaded.Entries[0].Type)
		assert.Equal(t, domain.SceneType("stage"), loaded.Entries[1].Type)
		assert.Equal(t, "forest", loaded.Entries[1].Arg)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, id, domain.StackSnapshot{Entries: []domain.EntryRecord{{Type: "result"}}}))
		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		require.Len(t, loaded.Entries, 1)
		assert.Equal(t, domain.SceneType("result"), loaded.Entries[0].Type)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+id)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, id, snapshot))
		require.NoError(t, store.Delete(ctx, id), "Delete should not return error")

		_, err := store.Load(ctx, id)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound, "Load after Delete should return ErrSnapshotNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := id + "-1"
		id2 := id + "-2"
		_ = store.Save(ctx, id1, snapshot)
		_ = store.Save(ctx, id2, snapshot)
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
