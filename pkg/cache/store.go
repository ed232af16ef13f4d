package cache

import (
	"context"
	"errors"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Store is the backing storage of a single cache region. Implementations
// bound their own capacity and must be safe for concurrent use.
type Store interface {
	// Get returns the entry for key or ErrCacheMiss.
	Get(ctx context.Context, key string) (*CacheEntry, error)

	// Set stores or replaces entry, evicting other entries if the region
	// is over capacity.
	Set(ctx context.Context, entry *CacheEntry) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Len returns the number of entries currently held.
	Len(ctx context.Context) (int, error)
}

// Pinger is implemented by stores backed by an external service.
type Pinger interface {
	Ping(ctx context.Context) error
}
