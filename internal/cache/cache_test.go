package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestCache builds each storing backend for the shared conformance
// tests. The noop backend is excluded since it intentionally fails them.
func newTestCaches(t *testing.T) map[string]Cache {
	t.Helper()

	mem, err := newRistrettoCache(MemoryConfig{
		NumCounters: 10_000,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	require.NoError(t, err)

	disk, err := newBadgerCache(DiskConfig{Path: t.TempDir()})
	require.NoError(t, err)

	caches := map[string]Cache{
		"ristretto": mem,
		"badger":    disk,
	}
	t.Cleanup(func() {
		for _, c := range caches {
			c.Close()
		}
	})
	return caches
}

// waitForKey polls until the key is visible. Ristretto admits entries
// asynchronously, so an immediate Get after Set can legitimately miss.
func waitForKey(t *testing.T, c Cache, key string) []byte {
	t.Helper()
	ctx := context.Background()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if v, err := c.Get(ctx, key); err == nil {
			return v
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("key %q never became visible", key)
	return nil
}

func TestSetGetRoundTrip(t *testing.T) {
	t.Parallel()

	for name, c := range newTestCaches(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, c.Set(ctx, "epoch:900", []byte(`{"rewards":123}`)))

			got := waitForKey(t, c, "epoch:900")
			assert.Equal(t, []byte(`{"rewards":123}`), got)
		})
	}
}

func TestGetMissing(t *testing.T) {
	t.Parallel()

	for name, c := range newTestCaches(t) {
		t.Run(name, func(t *testing.T) {
			_, err := c.Get(context.Background(), "absent")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	t.Parallel()

	for name, c := range newTestCaches(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, c.Set(ctx, "k", []byte("v")))
			waitForKey(t, c, "k")

			require.NoError(t, c.Delete(ctx, "k"))
			require.NoError(t, c.Delete(ctx, "k"), "second delete must not error")

			_, err := c.Get(ctx, "k")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestTTLExpiry(t *testing.T) {
	t.Parallel()

	for name, c := range newTestCaches(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, c.SetWithTTL(ctx, "short", []byte("v"), 100*time.Millisecond))
			waitForKey(t, c, "short")

			time.Sleep(250 * time.Millisecond)
			_, err := c.Get(ctx, "short")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestGetReturnsCopy(t *testing.T) {
	t.Parallel()

	for name, c := range newTestCaches(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, c.Set(ctx, "k", []byte("original")))

			got := waitForKey(t, c, "k")
			got[0] = 'X'

			again := waitForKey(t, c, "k")
			assert.Equal(t, []byte("original"), again, "mutating a returned value must not affect the cache")
		})
	}
}

func TestClosedCacheErrors(t *testing.T) {
	t.Parallel()

	for name, c := range newTestCaches(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, c.Close())
			require.NoError(t, c.Close(), "close is idempotent")

			_, err := c.Get(ctx, "k")
			assert.ErrorIs(t, err, ErrClosed)
			assert.ErrorIs(t, c.Set(ctx, "k", nil), ErrClosed)
			assert.ErrorIs(t, c.Delete(ctx, "k"), ErrClosed)
		})
	}
}

func TestCancelledContext(t *testing.T) {
	t.Parallel()

	for name, c := range newTestCaches(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := c.Get(ctx, "k")
			assert.True(t, errors.Is(err, context.Canceled))
		})
	}
}

func TestNoopCache(t *testing.T) {
	t.Parallel()

	c := newNoopCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v")))
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound, "noop never stores")

	exists, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)

	n, err := c.DeletePrefix(ctx, "k")
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Equal(t, Stats{}, c.Stats())
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Set(ctx, "k", nil), ErrClosed)
}
