package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func createFileStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "data", "tally.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStorage_Migrate(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)

	// Running again is a no-op.
	require.NoError(t, store.Migrate(ctx))
	version, err = store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)
}

func TestSQLiteStorage_GetSetRemove(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	_, found, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, "creditCards", []byte(`[]`)))
	value, found, err := store.Get(ctx, "creditCards")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `[]`, string(value))

	require.NoError(t, store.Set(ctx, "creditCards", []byte(`[{"id":"c1"}]`)))
	value, _, err = store.Get(ctx, "creditCards")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"c1"}]`, string(value))

	require.NoError(t, store.Remove(ctx, "creditCards"))
	_, found, err = store.Get(ctx, "creditCards")
	require.NoError(t, err)
	assert.False(t, found)

	// Removing an absent key is not an error.
	require.NoError(t, store.Remove(ctx, "creditCards"))
}

func TestSQLiteStorage_Validation(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	//nolint:staticcheck // nil context is the case under test
	_, _, err := store.Get(nil, "k")
	assert.ErrorIs(t, err, ErrNilContext)

	_, _, err = store.Get(ctx, " ")
	assert.ErrorIs(t, err, ErrEmptyKey)

	err = store.Set(ctx, "k", nil)
	assert.ErrorIs(t, err, ErrNilValue)

	_, err = NewSQLiteStorage("")
	assert.ErrorIs(t, err, ErrEmptyString)
}

func TestSQLiteStorage_ListKeys(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	for _, key := range []string{"b", "c", "a"} {
		require.NoError(t, store.Set(ctx, key, []byte(`1`)))
	}

	keys, err := store.ListKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestSQLiteStorage_Apply(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "stale", []byte(`true`)))

	err := store.Apply(ctx, map[string][]byte{
		"transactions": []byte(`{}`),
		"investments":  []byte(`{}`),
	}, []string{"stale"})
	require.NoError(t, err)

	keys, err := store.ListKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"investments", "transactions"}, keys)
}

func TestSQLiteStorage_ApplyRollsBackOnInvalidKey(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	err := store.Apply(ctx, map[string][]byte{
		"good": []byte(`1`),
		"":     []byte(`2`),
	}, nil)
	require.ErrorIs(t, err, ErrEmptyKey)

	_, found, err := store.Get(ctx, "good")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSQLiteStorage_FilePersistsAcrossOpen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "tally.db")
	ctx := context.Background()

	store, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Set(ctx, "schema_version", []byte(`2`)))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	require.NoError(t, reopened.Migrate(ctx))

	value, found, err := reopened.Get(ctx, "schema_version")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `2`, string(value))
	assert.Equal(t, dbPath, reopened.Path())
}
