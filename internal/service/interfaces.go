// Package service defines the interfaces that connect the ledger engine to
// its collaborators.
package service

import (
	"context"
)

// KVStore is the persistence seam of the ledger: a flat key-value store
// holding JSON documents. The engine never assumes a backing technology.
type KVStore interface {
	// Get returns the value stored under key. found is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	// ListKeys returns every stored key in lexical order.
	ListKeys(ctx context.Context) ([]string, error)
	// Close releases the underlying resources.
	Close() error
}

// BatchStore is implemented by stores that can apply several writes
// atomically. The ledger uses it so a recalculation never leaves half of its
// keys updated.
type BatchStore interface {
	KVStore
	// Apply stores every entry of set and removes every key of remove in one unit.
	Apply(ctx context.Context, set map[string][]byte, remove []string) error
}
