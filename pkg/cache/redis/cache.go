// Package redis implements the response cache on a shared redis store, for
// deployments where several engine processes should share one cache.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/modeshift-ai/modeshift/pkg/models"
)

const keyPrefix = "modeshift:cache:"

// Cache is a fingerprint-keyed response cache backed by redis. TTL expiry is
// delegated to redis itself.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a Cache on the given redis client with a default TTL.
func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Get retrieves a cached result. Returns false if absent or expired.
func (c *Cache) Get(ctx context.Context, fingerprint string) (*models.GenerationResult, bool, error) {
	blob, err := c.client.Get(ctx, keyPrefix+fingerprint).Bytes()
	if err == redis.Nil {
		c.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	var result models.GenerationResult
	if err := json.Unmarshal(blob, &result); err != nil {
		c.misses.Add(1)
		return nil, false, nil
	}

	c.hits.Add(1)
	return &result, true, nil
}

// Put stores a result with SETNX semantics, so an existing unexpired
// fingerprint is left untouched.
func (c *Cache) Put(ctx context.Context, fingerprint string, result models.GenerationResult) error {
	blob, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("cache put: encode: %w", err)
	}
	if err := c.client.SetNX(ctx, keyPrefix+fingerprint, blob, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Stats returns cache performance metrics. Entry counting scans the key
// prefix; hit/miss counters are process-local.
func (c *Cache) Stats(ctx context.Context) (models.CacheStats, error) {
	var entries int64
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		entries++
	}
	if err := iter.Err(); err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	return models.CacheStats{
		Entries: entries,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}, nil
}

// Clear removes all cache entries. Redis expires entries natively, so
// expiredOnly is a no-op.
func (c *Cache) Clear(ctx context.Context, expiredOnly bool) error {
	if expiredOnly {
		return nil
	}
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("cache clear: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}

// Close releases the redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
