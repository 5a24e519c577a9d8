package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerPersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx := context.Background()

	c, err := newBadgerCache(DiskConfig{Path: dir})
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "epoch:900:rewards", []byte("42")))
	require.NoError(t, c.Close())

	c, err = newBadgerCache(DiskConfig{Path: dir})
	require.NoError(t, err)
	defer c.Close()

	got, err := c.Get(ctx, "epoch:900:rewards")
	require.NoError(t, err)
	assert.Equal(t, []byte("42"), got)
}

func TestBadgerDeletePrefix(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c, err := newBadgerCache(DiskConfig{Path: t.TempDir()})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set(ctx, "price:2026-01-01", []byte("185.0")))
	require.NoError(t, c.Set(ctx, "price:2026-01-02", []byte("190.0")))
	require.NoError(t, c.Set(ctx, "epoch:900", []byte("{}")))

	n, err := c.DeletePrefix(ctx, "price:")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = c.Get(ctx, "price:2026-01-01")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := c.Get(ctx, "epoch:900")
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), got, "other prefixes untouched")
}

func TestBadgerStats(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c, err := newBadgerCache(DiskConfig{Path: t.TempDir()})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set(ctx, "a", []byte("1")))
	require.NoError(t, c.Set(ctx, "b", []byte("2")))

	_, _ = c.Get(ctx, "a")
	_, _ = c.Get(ctx, "missing")

	stats := c.Stats()
	assert.Equal(t, uint64(2), stats.KeyCount)
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
}
