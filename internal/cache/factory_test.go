package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewByMode(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		t.Parallel()
		c, err := New(ctx, &Config{Mode: ModeMemory, Memory: MemoryConfig{NumCounters: 1000, MaxCost: 1 << 20}})
		require.NoError(t, err)
		defer c.Close()
		assert.IsType(t, &ristrettoCache{}, c)
	})

	t.Run("disk", func(t *testing.T) {
		t.Parallel()
		c, err := New(ctx, &Config{Mode: ModeDisk, Disk: DiskConfig{Path: t.TempDir()}})
		require.NoError(t, err)
		defer c.Close()
		assert.IsType(t, &badgerCache{}, c)
	})

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()
		c, err := New(ctx, &Config{Mode: ModeDisabled})
		require.NoError(t, err)
		defer c.Close()
		assert.IsType(t, &noopCache{}, c)
	})
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), &Config{Mode: "memcached"})
	assert.Error(t, err)

	_, err = New(context.Background(), &Config{})
	assert.Error(t, err)
}
