package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCheckpointManager(t *testing.T) (*SQLiteStorage, *CheckpointManager) {
	t.Helper()

	store := createFileStorage(t)
	cm, err := store.NewCheckpointManager()
	require.NoError(t, err)

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	calls := 0
	cm.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Minute)
	}
	return store, cm
}

func TestCheckpointManager_InMemory(t *testing.T) {
	store := createTestStorage(t)
	_, err := store.NewCheckpointManager()
	assert.ErrorIs(t, err, ErrInMemoryCheckpoint)
}

func TestCheckpointManager_CreateAndList(t *testing.T) {
	store, cm := newTestCheckpointManager(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "transactions", []byte(`{}`)))
	require.NoError(t, store.Set(ctx, "creditCards", []byte(`[]`)))

	info, err := cm.Create(ctx, "before-import", "manual snapshot")
	require.NoError(t, err)
	assert.Equal(t, "before-import", info.ID)
	assert.Equal(t, 2, info.KeyCount)
	assert.Equal(t, ExpectedSchemaVersion, info.SchemaVersion)
	assert.False(t, info.IsAuto)
	assert.Positive(t, info.FileSize)
	assert.FileExists(t, filepath.Join(cm.Dir(), "before-import.db"))

	_, err = cm.Create(ctx, "before-import", "again")
	assert.ErrorIs(t, err, ErrCheckpointExists)

	second, err := cm.Create(ctx, "", "")
	require.NoError(t, err)
	assert.Contains(t, second.ID, "checkpoint-")

	list, err := cm.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")

	got, err := cm.Get(ctx, "before-import")
	require.NoError(t, err)
	assert.Equal(t, "manual snapshot", got.Description)

	_, err = cm.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrCheckpointNotFound)

	_, err = cm.Create(ctx, "../escape", "")
	assert.ErrorIs(t, err, ErrInvalidCheckpointID)
}

func TestCheckpointManager_ListSkipsCorruptMetadata(t *testing.T) {
	_, cm := newTestCheckpointManager(t)
	ctx := context.Background()

	_, err := cm.Create(ctx, "good", "")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(cm.Dir(), "bad.meta.json"), []byte("{"), 0600))

	list, err := cm.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "good", list[0].ID)
}

func TestCheckpointManager_Delete(t *testing.T) {
	_, cm := newTestCheckpointManager(t)
	ctx := context.Background()

	_, err := cm.Create(ctx, "old", "")
	require.NoError(t, err)
	require.NoError(t, cm.Delete(ctx, "old"))
	assert.NoFileExists(t, filepath.Join(cm.Dir(), "old.db"))
	assert.NoFileExists(t, filepath.Join(cm.Dir(), "old.meta.json"))

	assert.ErrorIs(t, cm.Delete(ctx, "old"), ErrCheckpointNotFound)
}

func TestCheckpointManager_AutoCheckpointPrunes(t *testing.T) {
	_, cm := newTestCheckpointManager(t)
	ctx := context.Background()

	_, err := cm.Create(ctx, "manual", "")
	require.NoError(t, err)

	for range maxAutoCheckpoints + 2 {
		info, err := cm.AutoCheckpoint(ctx, "import")
		require.NoError(t, err)
		assert.True(t, info.IsAuto)
	}

	list, err := cm.List(ctx)
	require.NoError(t, err)

	auto := 0
	manual := 0
	for _, cp := range list {
		if cp.IsAuto {
			auto++
		} else {
			manual++
		}
	}
	assert.Equal(t, maxAutoCheckpoints, auto)
	assert.Equal(t, 1, manual)
}

func TestCheckpointManager_Restore(t *testing.T) {
	store, cm := newTestCheckpointManager(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "transactions", []byte(`{"before":true}`)))
	_, err := cm.Create(ctx, "snap", "")
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "transactions", []byte(`{"after":true}`)))

	require.NoError(t, cm.Restore(ctx, "snap"))

	reopened, err := NewSQLiteStorage(store.Path())
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	value, found, err := reopened.Get(ctx, "transactions")
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"before":true}`, string(value))

	assert.ErrorIs(t, cm.Restore(ctx, "missing"), ErrCheckpointNotFound)
}
