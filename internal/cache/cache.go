// Package cache provides a unified caching interface for block-parliament.
//
// Upstream data (RPC responses, prices, MEV history) is expensive to
// refetch, so most of it is cached. Three backends are available:
//   - Memory mode (Ristretto): fast in-process cache, lost on restart
//   - Disk mode (Badger): persistent cache, survives restarts
//   - Disabled mode (Noop): passthrough when caching is turned off
//
// Historical data like epoch rewards and daily prices never changes once
// written, which is why the disk backend is the default for the CLI.
//
// All implementations are safe for concurrent use.
//
// Basic usage:
//
//	c, err := cache.New(context.Background(), &cache.Config{Mode: cache.ModeDisk, Disk: cache.DiskConfig{Path: dir}})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer c.Close()
//
//	err = c.SetWithTTL(ctx, "price:2026-01-01", []byte("185.0"), 24*time.Hour)
//
//	data, err := c.Get(ctx, "price:2026-01-01")
//	if errors.Is(err, cache.ErrNotFound) {
//		// cache miss
//	}
package cache

import (
	"context"
	"time"
)

// Cache defines the interface for cache operations.
// All implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns ErrNotFound if the key does not exist.
	// Returns ErrClosed if the cache has been closed.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with no expiration.
	// Returns ErrClosed if the cache has been closed.
	Set(ctx context.Context, key string, value []byte) error

	// SetWithTTL stores a value in the cache with a time-to-live.
	// After the TTL expires, the key will no longer be retrievable.
	// Returns ErrClosed if the cache has been closed.
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key from the cache.
	// Returns nil if the key does not exist (idempotent).
	// Returns ErrClosed if the cache has been closed.
	Delete(ctx context.Context, key string) error

	// Exists checks if a key exists in the cache.
	// Returns ErrClosed if the cache has been closed.
	Exists(ctx context.Context, key string) (bool, error)

	// Close releases resources associated with the cache.
	// After Close is called, all operations will return ErrClosed.
	// Close is idempotent.
	Close() error
}

// Stats provides cache statistics for observability.
type Stats struct {
	// Hits is the number of cache hits.
	Hits uint64 `json:"hits"`

	// Misses is the number of cache misses.
	Misses uint64 `json:"misses"`

	// KeyCount is the current number of keys in the cache.
	KeyCount uint64 `json:"key_count"`

	// BytesUsed is the approximate storage used by cached values.
	BytesUsed uint64 `json:"bytes_used"`

	// Evictions is the number of keys evicted due to capacity limits.
	Evictions uint64 `json:"evictions"`
}

// StatsProvider is an optional interface for caches that support statistics.
// Use type assertion to check if a cache implements this interface:
//
//	if sp, ok := c.(cache.StatsProvider); ok {
//		stats := sp.Stats()
//	}
type StatsProvider interface {
	// Stats returns current cache statistics.
	Stats() Stats
}

// PrefixDeleter is an optional interface for caches that can drop every
// key under a prefix. Used to invalidate a whole data source at once
// (for example all CoinGecko prices after a bad fetch).
//
// Use type assertion to check if a cache implements this interface:
//
//	if pd, ok := c.(cache.PrefixDeleter); ok {
//		n, err := pd.DeletePrefix(ctx, "price:")
//	}
type PrefixDeleter interface {
	// DeletePrefix removes all keys starting with prefix and returns
	// how many were removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}
