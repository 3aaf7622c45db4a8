// Package sqlite implements the response cache on an embedded SQLite store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/modeshift-ai/modeshift/pkg/models"
)

// Cache is a fingerprint-keyed response cache backed by SQLite.
type Cache struct {
	db     *sql.DB
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
}

const createCacheTable = `
CREATE TABLE IF NOT EXISTS response_cache (
	fingerprint TEXT PRIMARY KEY,
	result BLOB NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	ttl_seconds INTEGER NOT NULL
);
`

// New creates a Cache with the given database path and default TTL.
func New(dbPath string, ttl time.Duration) (*Cache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	if _, err := db.Exec(createCacheTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}

	return &Cache{db: db, ttl: ttl}, nil
}

// Get retrieves a cached result. Returns false if absent or expired.
func (c *Cache) Get(ctx context.Context, fingerprint string) (*models.GenerationResult, bool, error) {
	var blob []byte
	var createdAt time.Time
	var ttlSeconds int64

	err := c.db.QueryRowContext(ctx,
		`SELECT result, created_at, ttl_seconds FROM response_cache WHERE fingerprint = ?`,
		fingerprint,
	).Scan(&blob, &createdAt, &ttlSeconds)

	if err == sql.ErrNoRows {
		c.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	if time.Since(createdAt) > time.Duration(ttlSeconds)*time.Second {
		c.misses.Add(1)
		return nil, false, nil
	}

	var result models.GenerationResult
	if err := json.Unmarshal(blob, &result); err != nil {
		c.misses.Add(1)
		return nil, false, nil
	}

	c.hits.Add(1)
	return &result, true, nil
}

// Put stores a result. An existing unexpired fingerprint is left untouched;
// an expired row is replaced so the fingerprint stays cacheable after TTL.
func (c *Cache) Put(ctx context.Context, fingerprint string, result models.GenerationResult) error {
	blob, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("cache put: encode: %w", err)
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO response_cache (fingerprint, result, created_at, ttl_seconds)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(fingerprint) DO UPDATE SET
			result = excluded.result,
			created_at = excluded.created_at,
			ttl_seconds = excluded.ttl_seconds
		 WHERE (julianday('now') - julianday(response_cache.created_at)) * 86400 > response_cache.ttl_seconds`,
		fingerprint, blob, time.Now().UTC(), int64(c.ttl.Seconds()),
	)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Stats returns cache performance metrics.
func (c *Cache) Stats(ctx context.Context) (models.CacheStats, error) {
	var count int64
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM response_cache`).Scan(&count)
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	return models.CacheStats{
		Entries: count,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}, nil
}

// Clear removes cache entries. If expiredOnly is true, only expired entries
// are removed.
func (c *Cache) Clear(ctx context.Context, expiredOnly bool) error {
	var query string
	if expiredOnly {
		query = `DELETE FROM response_cache WHERE (julianday('now') - julianday(created_at)) * 86400 > ttl_seconds`
	} else {
		query = `DELETE FROM response_cache`
	}
	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}
