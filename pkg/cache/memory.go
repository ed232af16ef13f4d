package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryStore is an in-process LRU store with per-entry expiry.
type MemoryStore struct {
	region string
	lru    *expirable.LRU[string, *CacheEntry]
}

// NewMemoryStore creates a store holding at most maxEntries entries, each for
// at most ttl. Evictions for capacity or age are counted per region.
func NewMemoryStore(region string, maxEntries int, ttl time.Duration) *MemoryStore {
	if maxEntries <= 0 {
		panic("max entries must be positive")
	}
	onEvict := func(_ string, _ *CacheEntry) {
		CacheEvictions.WithLabelValues(region).Inc()
	}
	return &MemoryStore{
		region: region,
		lru:    expirable.NewLRU[string, *CacheEntry](maxEntries, onEvict, ttl),
	}
}

// Get retrieves an entry, marking it most recently used.
func (m *MemoryStore) Get(_ context.Context, key string) (*CacheEntry, error) {
	entry, ok := m.lru.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	return entry, nil
}

// Set stores an entry, evicting the least recently used one when full.
func (m *MemoryStore) Set(_ context.Context, entry *CacheEntry) error {
	if entry == nil {
		return ErrInvalidEntry
	}
	m.lru.Add(entry.Key, entry)
	return nil
}

// Delete removes an entry.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.lru.Remove(key)
	return nil
}

// Len returns the number of entries, including ones not yet swept after expiry.
func (m *MemoryStore) Len(_ context.Context) (int, error) {
	return m.lru.Len(), nil
}
