package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/rs/zerolog"
)

// ristrettoCache implements Cache using Ristretto as the backend.
// It provides high-performance in-process caching with an admission
// policy based on access frequency.
type ristrettoCache struct {
	cache  *ristretto.Cache[string, []byte]
	log    zerolog.Logger
	closed atomic.Bool
	mu     sync.RWMutex
}

var (
	_ Cache         = (*ristrettoCache)(nil)
	_ StatsProvider = (*ristrettoCache)(nil)
)

// newRistrettoCache creates a new Ristretto cache with the given configuration.
func newRistrettoCache(cfg MemoryConfig) (*ristrettoCache, error) {
	log := logger().With().Str("backend", "ristretto").Logger()

	bufferItems := cfg.BufferItems
	if bufferItems <= 0 {
		bufferItems = 64
	}

	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: bufferItems,
		Metrics:     true,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to create ristretto cache")
		return nil, err
	}

	log.Info().
		Int64("num_counters", cfg.NumCounters).
		Int64("max_cost", cfg.MaxCost).
		Msg("ristretto cache created")

	return &ristrettoCache{
		cache: c,
		log:   log,
	}, nil
}

// checkOpen verifies the cache is usable and the context is live.
func (r *ristrettoCache) checkOpen(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Get retrieves a value from the cache.
func (r *ristrettoCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := r.checkOpen(ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed.Load() {
		return nil, ErrClosed
	}

	value, found := r.cache.Get(key)
	if !found {
		r.log.Debug().Str("key", key).Bool("hit", false).Msg("cache get")
		return nil, ErrNotFound
	}

	r.log.Debug().Str("key", key).Bool("hit", true).Int("size", len(value)).Msg("cache get")

	// Return a copy to prevent mutation of cached data.
	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

// Set stores a value in the cache with no expiration.
func (r *ristrettoCache) Set(ctx context.Context, key string, value []byte) error {
	return r.SetWithTTL(ctx, key, value, 0)
}

// SetWithTTL stores a value in the cache with a time-to-live.
// A zero TTL means no expiration.
func (r *ristrettoCache) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.checkOpen(ctx); err != nil {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed.Load() {
		return ErrClosed
	}

	// Copy so the caller cannot mutate cached data.
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	// Cost is the byte length of the value.
	if ttl > 0 {
		r.cache.SetWithTTL(key, valueCopy, int64(len(value)), ttl)
	} else {
		r.cache.Set(key, valueCopy, int64(len(value)))
	}

	r.log.Debug().Str("key", key).Int("size", len(value)).Dur("ttl", ttl).Msg("cache set")
	return nil
}

// Delete removes a key from the cache. Idempotent.
func (r *ristrettoCache) Delete(ctx context.Context, key string) error {
	if err := r.checkOpen(ctx); err != nil {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed.Load() {
		return ErrClosed
	}

	r.cache.Del(key)
	r.log.Debug().Str("key", key).Msg("cache delete")
	return nil
}

// Exists checks if a key exists in the cache.
func (r *ristrettoCache) Exists(ctx context.Context, key string) (bool, error) {
	if err := r.checkOpen(ctx); err != nil {
		return false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed.Load() {
		return false, ErrClosed
	}

	_, found := r.cache.Get(key)
	return found, nil
}

// Close releases resources associated with the cache. Idempotent.
func (r *ristrettoCache) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed.Load() {
		return nil
	}
	r.closed.Store(true)

	// Flush pending writes before tearing down.
	r.cache.Wait()
	r.cache.Close()

	r.log.Info().Msg("ristretto cache closed")
	return nil
}

// Stats returns current cache statistics.
func (r *ristrettoCache) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed.Load() {
		return Stats{}
	}

	metrics := r.cache.Metrics
	return Stats{
		Hits:      metrics.Hits(),
		Misses:    metrics.Misses(),
		KeyCount:  metrics.KeysAdded() - metrics.KeysEvicted(),
		BytesUsed: metrics.CostAdded() - metrics.CostEvicted(),
		Evictions: metrics.KeysEvicted(),
	}
}
