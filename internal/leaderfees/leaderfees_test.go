package leaderfees

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grod220/block-parliament/internal/cache"
	"github.com/grod220/block-parliament/internal/config"
	"github.com/grod220/block-parliament/internal/epochs"
	"github.com/grod220/block-parliament/internal/sources"
)

const testIdentity = "mD1afZhSisoXfJLT8nYwSFANqjr1KPoDUEpYTEfFX1e"

type fakeChain struct {
	slots      map[uint64][]uint64 // epoch start slot -> leader slots
	blocks     map[uint64]*sources.Block
	slotCalls  int
	blockCalls int
}

func (f *fakeChain) LeaderSlots(_ context.Context, epochStartSlot uint64, _ string) ([]uint64, error) {
	f.slotCalls++
	return f.slots[epochStartSlot], nil
}

func (f *fakeChain) Block(_ context.Context, slot uint64) (*sources.Block, error) {
	f.blockCalls++
	if b, ok := f.blocks[slot]; ok {
		return b, nil
	}
	return nil, sources.ErrNotFound
}

func feeBlock(identity string, lamports int64) *sources.Block {
	return &sources.Block{
		Rewards: []sources.BlockReward{
			{Pubkey: "SomeoneElse111111111111111111111111111111", Lamports: 42, RewardType: "Fee"},
			{Pubkey: identity, Lamports: lamports, RewardType: "Fee"},
			{Pubkey: identity, Lamports: 9999, RewardType: "Rent"},
		},
	}
}

func newTestTracker(t *testing.T, chain *fakeChain) *Tracker {
	t.Helper()

	c, err := cache.New(context.Background(), &cache.Config{
		Mode: cache.ModeDisk,
		Disk: cache.DiskConfig{Path: t.TempDir()},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	cfg := config.Default()
	cfg.Validator.Identity = testIdentity
	return NewTracker(chain, c, cfg, zerolog.Nop())
}

func TestEpoch(t *testing.T) {
	t.Parallel()

	start := uint64(900) * epochs.SlotsPerEpoch
	chain := &fakeChain{
		slots: map[uint64][]uint64{
			start: {start + 10, start + 20, start + 30},
		},
		blocks: map[uint64]*sources.Block{
			start + 10: feeBlock(testIdentity, 120_000),
			start + 30: feeBlock(testIdentity, 80_000),
			// start+20 skipped
		},
	}
	tracker := newTestTracker(t, chain)

	fees, err := tracker.Epoch(context.Background(), 900, 905)
	require.NoError(t, err)

	assert.Equal(t, uint64(3), fees.LeaderSlots)
	assert.Equal(t, uint64(2), fees.BlocksProduced)
	assert.Equal(t, uint64(1), fees.SkippedSlots)
	assert.Equal(t, uint64(200_000), fees.FeeLamports, "Rent rewards and other identities ignored")
	assert.InDelta(t, 0.0002, fees.FeeSOL, 1e-12)
	assert.InDelta(t, 1.0/3.0, fees.SkipRate(), 1e-9)
	assert.Equal(t, "2025-12-24", fees.Date)
}

func TestEpochCached(t *testing.T) {
	t.Parallel()

	start := uint64(900) * epochs.SlotsPerEpoch
	chain := &fakeChain{
		slots:  map[uint64][]uint64{start: {start + 10}},
		blocks: map[uint64]*sources.Block{start + 10: feeBlock(testIdentity, 120_000)},
	}
	tracker := newTestTracker(t, chain)

	first, err := tracker.Epoch(context.Background(), 900, 905)
	require.NoError(t, err)

	second, err := tracker.Epoch(context.Background(), 900, 905)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, chain.slotCalls, "completed epoch served from cache")
}

func TestCurrentEpochNotCached(t *testing.T) {
	t.Parallel()

	start := uint64(905) * epochs.SlotsPerEpoch
	chain := &fakeChain{
		slots:  map[uint64][]uint64{start: {start + 10}},
		blocks: map[uint64]*sources.Block{start + 10: feeBlock(testIdentity, 120_000)},
	}
	tracker := newTestTracker(t, chain)

	_, err := tracker.Epoch(context.Background(), 905, 905)
	require.NoError(t, err)
	_, err = tracker.Epoch(context.Background(), 905, 905)
	require.NoError(t, err)

	assert.Equal(t, 2, chain.slotCalls, "fees for the running epoch are still moving")
}

func TestRangeSkipsEmptyEpochs(t *testing.T) {
	t.Parallel()

	start := uint64(901) * epochs.SlotsPerEpoch
	chain := &fakeChain{
		slots:  map[uint64][]uint64{start: {start + 5}},
		blocks: map[uint64]*sources.Block{start + 5: feeBlock(testIdentity, 50_000)},
	}
	tracker := newTestTracker(t, chain)

	// Epoch 900 has no leader slots at all.
	all, err := tracker.Range(context.Background(), 900, 901, 905)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, uint64(901), all[0].Epoch)
}

func TestImportSlots(t *testing.T) {
	t.Parallel()

	start := uint64(900) * epochs.SlotsPerEpoch
	chain := &fakeChain{
		blocks: map[uint64]*sources.Block{
			start + 10: feeBlock(testIdentity, 120_000),
			start + 30: feeBlock(testIdentity, 80_000),
		},
	}
	tracker := newTestTracker(t, chain)

	fees, err := tracker.ImportSlots(context.Background(), 900, 905, []uint64{start + 10, start + 20, start + 30})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), fees.LeaderSlots)
	assert.Equal(t, uint64(200_000), fees.FeeLamports)
	assert.Equal(t, 0, chain.slotCalls, "slot list comes from the import, not RPC")

	cached, ok := tracker.Cached(context.Background(), 900)
	require.True(t, ok)
	assert.Equal(t, fees, cached)

	// A later Epoch call is served from the imported result.
	again, err := tracker.Epoch(context.Background(), 900, 905)
	require.NoError(t, err)
	assert.Equal(t, fees, again)
}

func TestCachedMiss(t *testing.T) {
	t.Parallel()

	tracker := newTestTracker(t, &fakeChain{})
	_, ok := tracker.Cached(context.Background(), 123)
	assert.False(t, ok)
}

func TestTotalSOL(t *testing.T) {
	t.Parallel()

	fees := []EpochFees{{FeeSOL: 0.5}, {FeeSOL: 0.25}}
	assert.InDelta(t, 0.75, TotalSOL(fees), 1e-9)
	assert.Zero(t, TotalSOL(nil))
}
