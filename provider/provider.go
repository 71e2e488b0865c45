// Package provider defines the storage abstraction used by cacheops.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly
// the same []byte that was previously passed to Set for a key (no prepended or
// appended metadata, no re-encoding, no mutation). If a store performs internal
// transforms (e.g., compression), they MUST be fully reversed so that the bytes
// returned by Get are identical to the bytes provided to Set.
//
// Every named cache owns its keyspace. Shared backends (Redis) isolate caches
// with a key prefix; external code MUST NOT write under a cache's prefix.
// Foreign writes may be treated as corruption by wire validation and deleted.
package provider

import (
	"context"
	"time"
)

// Store is a minimal byte store with TTLs.
// Must be safe for concurrent use.
type Store interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL, overwriting unconditionally.
	// May ignore cost if unsupported. ttl <= 0 means "no expiry".
	// Returns ok=false when the store rejected the write under pressure.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del removes a key. Absent keys are a no-op, not an error.
	Del(ctx context.Context, key string) error

	// Clear removes every entry this store owns (for prefixed views of a
	// shared backend, only the entries under the view's prefix).
	Clear(ctx context.Context) error

	// Close releases resources.
	Close(ctx context.Context) error
}

// Claimer is an optional Store capability: an atomic put-if-absent.
// Stores that implement it let callers resolve concurrent first-write races
// with a single winner; stores that don't fall back to last-writer-wins.
type Claimer interface {
	// SetNX stores value only if key is absent. claimed reports whether this
	// call's value was stored; when claimed is false, prev holds the value
	// that was already present (nil if it could not be read).
	SetNX(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (prev []byte, claimed bool, err error)
}
