package cache

import (
	"strings"
)

// keySeparator joins the parts of a cache key.
const keySeparator = "|"

// CacheKey represents a unique identifier for a cached TMDB response.
type CacheKey struct {
	// Params are the logical operation parameters in a fixed order
	// (e.g. title, language, page for a search).
	Params []string

	// Suffix names the operation when several share a region
	// (e.g. "details" or "credits"). Empty for searches.
	Suffix string
}

// String generates a deterministic cache key string.
// Format: param1|param2|...|suffix
//
// Examples:
//
//	matrix|en-US|1
//	603|en-US|details
func (k CacheKey) String() string {
	parts := make([]string, 0, len(k.Params)+1)
	parts = append(parts, k.Params...)
	if k.Suffix != "" {
		parts = append(parts, k.Suffix)
	}
	return strings.Join(parts, keySeparator)
}
