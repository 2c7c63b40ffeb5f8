// Package store defines the backend byte-store abstraction used by depcache.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly
// the same []byte that was previously passed to Set for a key (no
// prepended/appended metadata, no re-encoding, no mutation). If a store
// performs internal transforms (e.g., compression), they MUST be fully
// reversed so that the bytes returned by Get are identical to the bytes
// provided to Set.
//
// Important: the keyspaces "entry:<ns>:" and "tag:<ns>:" are owned by
// depcache. External code MUST NOT write values under these prefixes. Foreign
// writes under "entry:" that fail strict wire-format validation are treated
// as corruption and deleted.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrIncrementUnsupported is returned by Increment on stores that cannot
// perform an atomic counter increment. depcache falls back to a
// read-modify-write sequence under an advisory lock when it sees this.
var ErrIncrementUnsupported = errors.New("store: increment not supported")

// Item is one key's payload for SetMany.
type Item struct {
	Value []byte
	Cost  int64
}

// Store is a minimal byte store with TTLs and an optional atomic counter.
// Must be safe for concurrent use. A ttl <= 0 means "no expiry" everywhere.
type Store interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL. May ignore cost if unsupported.
	// Returns ok=false when the store rejected the write under pressure.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// SetMany stores every item with the same TTL, best-effort. Stores with
	// batching primitives should use them; others may loop over Set. Keys
	// the store rejected under pressure are returned in rejected; a non-nil
	// err means the batch as a whole failed.
	SetMany(ctx context.Context, items map[string]Item, ttl time.Duration) (rejected []string, err error)

	// Delete removes a key (best-effort).
	Delete(ctx context.Context, key string) error

	// Increment atomically adds delta to the integer counter at key and
	// returns the new value, creating the counter at delta when absent.
	// When ttl > 0 the counter's TTL is refreshed in the same operation.
	// Stores without an atomic primitive return ErrIncrementUnsupported.
	Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)

	// Flush removes every key the store holds, counters included.
	Flush(ctx context.Context) error

	// Close releases resources.
	Close(ctx context.Context) error
}
