package cache

import (
	"time"
)

// CacheEntry represents a cached upstream response body.
type CacheEntry struct {
	// Key is the region-local cache key (see CacheKey).
	Key string `json:"key"`

	// Value is the raw response body, opaque to the cache.
	Value string `json:"value"`

	// InsertedAt is when the entry was stored.
	InsertedAt time.Time `json:"inserted_at"`

	// Expires is InsertedAt plus the region TTL.
	Expires time.Time `json:"expires"`
}

// NewEntry builds an entry inserted at now that lives for ttl.
func NewEntry(key, value string, now time.Time, ttl time.Duration) *CacheEntry {
	return &CacheEntry{
		Key:        key,
		Value:      value,
		InsertedAt: now,
		Expires:    now.Add(ttl),
	}
}

// IsExpiredAt reports whether the entry is no longer live at now.
func (e *CacheEntry) IsExpiredAt(now time.Time) bool {
	return !now.Before(e.Expires)
}

// Lifetime returns how long the entry lives from insertion.
// Returns 0 if Expires is not after InsertedAt.
func (e *CacheEntry) Lifetime() time.Duration {
	if !e.Expires.After(e.InsertedAt) {
		return 0
	}
	return e.Expires.Sub(e.InsertedAt)
}
