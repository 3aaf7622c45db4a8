package models

import "time"

// CacheEntry stores a cached generation result keyed by fingerprint. Entries
// are immutable once written and expire after TTL.
type CacheEntry struct {
	Fingerprint string           `json:"fingerprint"`
	Result      GenerationResult `json:"result"`
	CreatedAt   time.Time        `json:"created_at"`
	TTL         time.Duration    `json:"ttl"`
}

// CacheStats reports cache performance metrics.
type CacheStats struct {
	Entries int64 `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}
