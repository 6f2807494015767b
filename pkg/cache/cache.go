// Package cache defines the descriptor cache contract used by the
// write-through metadata layer. Implementations must treat the cache as
// strictly advisory: a miss or an error never implies the descriptor does
// not exist.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key-value cache with per-entry TTL.
type Cache interface {
	// Get returns the cached value for key. The second return value is
	// false on a miss; a miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)
}
