// Package testutil provides test utilities for the tally project: throwaway
// stores, fixture builders and a controllable clock.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/tally/internal/storage"
)

// TestStore bundles a migrated in-memory database with its repository.
type TestStore struct {
	Storage *storage.SQLiteStorage
	Repo    *storage.Repository
	t       *testing.T
}

// TestStoreOptions provides configuration options for test store setup.
type TestStoreOptions struct {
	Seed           func(context.Context, *storage.Repository) error
	SkipMigrations bool
}

// SetupTestStore creates a new in-memory test store. It automatically handles
// migrations and cleanup.
//
// Example:
//
//	ts := testutil.SetupTestStore(t)
//	testutil.NewFixtures(t).WithCard("c1", "Gold", "1000", 5, 12).Seed(ts.Repo)
func SetupTestStore(t *testing.T) *TestStore {
	t.Helper()
	return SetupTestStoreWithOptions(t, TestStoreOptions{})
}

// SetupTestStoreWithOptions creates a test store with custom options.
func SetupTestStoreWithOptions(t *testing.T, opts TestStoreOptions) *TestStore {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if !opts.SkipMigrations {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
	}

	repo := storage.NewRepository(store)
	if opts.Seed != nil {
		if err := opts.Seed(ctx, repo); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	return &TestStore{
		Storage: store,
		Repo:    repo,
		t:       t,
	}
}

// SetRaw writes a raw document, bypassing encoding. Useful for corrupt or
// legacy data.
func (ts *TestStore) SetRaw(key, value string) {
	ts.t.Helper()
	if err := ts.Storage.Set(context.Background(), key, []byte(value)); err != nil {
		ts.t.Fatalf("failed to write %s: %v", key, err)
	}
}
