package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// noopCache is a no-op cache implementation that stores nothing.
// It is used when caching is disabled. All write operations succeed but
// do nothing; all read operations return ErrNotFound.
type noopCache struct {
	log    zerolog.Logger
	closed atomic.Bool
}

var (
	_ Cache         = (*noopCache)(nil)
	_ StatsProvider = (*noopCache)(nil)
	_ PrefixDeleter = (*noopCache)(nil)
)

// newNoopCache creates a new no-op cache instance.
func newNoopCache() *noopCache {
	log := logger().With().Str("backend", "noop").Logger()
	log.Debug().Msg("noop cache created, caching is disabled")
	return &noopCache{log: log}
}

// Get always returns ErrNotFound since noopCache stores nothing.
func (c *noopCache) Get(_ context.Context, _ string) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	return nil, ErrNotFound
}

// Set is a no-op.
func (c *noopCache) Set(_ context.Context, _ string, _ []byte) error {
	if c.closed.Load() {
		return ErrClosed
	}
	return nil
}

// SetWithTTL is a no-op.
func (c *noopCache) SetWithTTL(_ context.Context, _ string, _ []byte, _ time.Duration) error {
	if c.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Delete is a no-op.
func (c *noopCache) Delete(_ context.Context, _ string) error {
	if c.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Exists always returns false.
func (c *noopCache) Exists(_ context.Context, _ string) (bool, error) {
	if c.closed.Load() {
		return false, ErrClosed
	}
	return false, nil
}

// DeletePrefix is a no-op that reports zero deletions.
func (c *noopCache) DeletePrefix(_ context.Context, _ string) (int, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}
	return 0, nil
}

// Close marks the cache as closed. Idempotent.
func (c *noopCache) Close() error {
	if c.closed.Load() {
		return nil
	}
	c.closed.Store(true)
	c.log.Info().Msg("noop cache closed")
	return nil
}

// Stats returns zeroed statistics.
func (c *noopCache) Stats() Stats {
	return Stats{}
}
