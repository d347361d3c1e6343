// Package storagetest holds the behavioral suite every DurableStore
// implementation must pass.
package storagetest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/hearth/internal/storage"
)

// Factory returns an uninitialized store rooted at dir.
type Factory func(dir string) storage.DurableStore

// RunDurableStoreSuite exercises the DurableStore contract against stores built by newStore.
func RunDurableStoreSuite(t *testing.T, newStore Factory) {
	ctx := context.Background()
	ts := time.Date(2026, 3, 14, 15, 9, 26, 535000000, time.UTC)

	open := func(t *testing.T) storage.DurableStore {
		t.Helper()
		s := newStore(t.TempDir())
		require.NoError(t, s.Init(ctx))
		t.Cleanup(func() { _ = s.Close() })
		return s
	}

	t.Run("use before init is unavailable", func(t *testing.T) {
		s := newStore(t.TempDir())
		_, err := s.Get(ctx, "familyData")
		assert.ErrorIs(t, err, storage.ErrStoreUnavailable)
		assert.ErrorIs(t, s.Put(ctx, storage.Record{ID: "x"}), storage.ErrStoreUnavailable)
		assert.ErrorIs(t, s.Clear(ctx), storage.ErrStoreUnavailable)
	})

	t.Run("init is idempotent", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Init(ctx))
	})

	t.Run("get missing returns not found", func(t *testing.T) {
		s := open(t)
		_, err := s.Get(ctx, "familyData")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("put then get round trips", func(t *testing.T) {
		s := open(t)
		rec := storage.Record{
			ID:            "familyData",
			Data:          []byte(`{"familyMembers":[{"id":"m1","name":"Ada"}]}`),
			SchemaVersion: 1,
			LastUpdated:   ts,
		}
		require.NoError(t, s.Put(ctx, rec))

		got, err := s.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, rec.ID, got.ID)
		assert.JSONEq(t, string(rec.Data), string(got.Data))
		assert.Equal(t, rec.SchemaVersion, got.SchemaVersion)
		assert.True(t, rec.LastUpdated.Equal(got.LastUpdated), "got %v", got.LastUpdated)
	})

	t.Run("put overwrites", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Put(ctx, storage.Record{ID: "k", Data: []byte(`{"v":1}`), SchemaVersion: 1, LastUpdated: ts}))
		require.NoError(t, s.Put(ctx, storage.Record{ID: "k", Data: []byte(`{"v":2}`), SchemaVersion: 1, LastUpdated: ts.Add(time.Minute)}))

		got, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.JSONEq(t, `{"v":2}`, string(got.Data))
		assert.True(t, ts.Add(time.Minute).Equal(got.LastUpdated))
	})

	t.Run("clear removes every record", func(t *testing.T) {
		s := open(t)
		for _, id := range []string{"familyData", "familyData:migrated", "other"} {
			require.NoError(t, s.Put(ctx, storage.Record{ID: id, Data: []byte(`{}`), LastUpdated: ts}))
		}
		require.NoError(t, s.Clear(ctx))
		for _, id := range []string{"familyData", "familyData:migrated", "other"} {
			_, err := s.Get(ctx, id)
			assert.ErrorIs(t, err, storage.ErrNotFound, id)
		}
	})

	t.Run("data survives reopen", func(t *testing.T) {
		dir := t.TempDir()
		s := newStore(dir)
		require.NoError(t, s.Init(ctx))
		require.NoError(t, s.Put(ctx, storage.Record{ID: "familyData", Data: []byte(`{"a":1}`), SchemaVersion: 1, LastUpdated: ts}))
		require.NoError(t, s.Close())

		reopened := newStore(dir)
		require.NoError(t, reopened.Init(ctx))
		t.Cleanup(func() { _ = reopened.Close() })
		got, err := reopened.Get(ctx, "familyData")
		require.NoError(t, err)
		assert.JSONEq(t, `{"a":1}`, string(got.Data))
	})

	t.Run("use after close is unavailable", func(t *testing.T) {
		s := newStore(t.TempDir())
		require.NoError(t, s.Init(ctx))
		require.NoError(t, s.Close())
		_, err := s.Get(ctx, "familyData")
		assert.ErrorIs(t, err, storage.ErrStoreUnavailable)
	})

	t.Run("concurrent writers", func(t *testing.T) {
		s := open(t)
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id := fmt.Sprintf("rec-%d", i)
				assert.NoError(t, s.Put(ctx, storage.Record{ID: id, Data: []byte(`{}`), LastUpdated: ts}))
			}(i)
		}
		wg.Wait()
		for i := 0; i < 8; i++ {
			_, err := s.Get(ctx, fmt.Sprintf("rec-%d", i))
			assert.NoError(t, err)
		}
	})

	t.Run("snapshot is readable", func(t *testing.T) {
		s := open(t)
		snap, ok := s.(storage.Snapshotter)
		if !ok {
			t.Skip("store does not support snapshots")
		}
		require.NoError(t, s.Put(ctx, storage.Record{ID: "familyData", Data: []byte(`{"b":2}`), LastUpdated: ts}))

		dest := filepath.Join(t.TempDir(), "snapshot")
		require.NoError(t, snap.Snapshot(ctx, dest))
		info, err := os.Stat(dest)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	})
}
