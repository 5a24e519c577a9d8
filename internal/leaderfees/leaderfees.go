// Package leaderfees tracks block production revenue. When the
// validator is leader it collects half of the base fees plus all
// priority fees from the blocks it produces, credited to the identity
// account as a Fee reward.
package leaderfees

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/grod220/block-parliament/internal/cache"
	"github.com/grod220/block-parliament/internal/config"
	"github.com/grod220/block-parliament/internal/epochs"
	"github.com/grod220/block-parliament/internal/sources"
)

// EpochFees is block production revenue for one epoch.
type EpochFees struct {
	Epoch          uint64  `json:"epoch"`
	LeaderSlots    uint64  `json:"leader_slots"`
	BlocksProduced uint64  `json:"blocks_produced"`
	SkippedSlots   uint64  `json:"skipped_slots"`
	FeeLamports    uint64  `json:"fee_lamports"`
	FeeSOL         float64 `json:"fee_sol"`
	Date           string  `json:"date"`
}

// SkipRate is the fraction of leader slots where no block landed.
func (f EpochFees) SkipRate() float64 {
	if f.LeaderSlots == 0 {
		return 0
	}
	return float64(f.SkippedSlots) / float64(f.LeaderSlots)
}

// ChainReader is the slice of the RPC client the tracker needs.
type ChainReader interface {
	LeaderSlots(ctx context.Context, epochStartSlot uint64, identity string) ([]uint64, error)
	Block(ctx context.Context, slot uint64) (*sources.Block, error)
}

// Tracker fetches per-epoch leader fee totals, caching completed epochs.
type Tracker struct {
	chain ChainReader
	cache cache.Cache
	cfg   *config.Config
	log   zerolog.Logger
}

func NewTracker(chain ChainReader, c cache.Cache, cfg *config.Config, log zerolog.Logger) *Tracker {
	return &Tracker{chain: chain, cache: c, cfg: cfg, log: log.With().Str("component", "leaderfees").Logger()}
}

// Range fetches leader fees for every epoch in [start, end]. Individual
// epoch failures are logged and skipped so one pruned epoch does not
// sink the whole run. currentEpoch controls which results may be cached.
func (t *Tracker) Range(ctx context.Context, start, end, currentEpoch uint64) ([]EpochFees, error) {
	var all []EpochFees
	for epoch := start; epoch <= end; epoch++ {
		fees, err := t.Epoch(ctx, epoch, currentEpoch)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			t.log.Warn().Err(err).Uint64("epoch", epoch).Msg("leader fees unavailable")
			continue
		}
		if fees.LeaderSlots > 0 {
			all = append(all, *fees)
		}
	}
	return all, nil
}

// Epoch fetches leader fees for one epoch. Results for completed epochs
// are immutable and served from cache on repeat runs.
func (t *Tracker) Epoch(ctx context.Context, epoch, currentEpoch uint64) (*EpochFees, error) {
	key := t.cacheKey(epoch)
	if data, err := t.cache.Get(ctx, key); err == nil {
		var fees EpochFees
		if err := json.Unmarshal(data, &fees); err == nil {
			return &fees, nil
		}
	}

	startSlot := epoch * epochs.SlotsPerEpoch
	slots, err := t.chain.LeaderSlots(ctx, startSlot, t.cfg.Validator.Identity)
	if err != nil {
		return nil, fmt.Errorf("leader schedule for epoch %d: %w", epoch, err)
	}

	fees, err := t.feesForSlots(ctx, epoch, slots)
	if err != nil {
		return nil, err
	}

	if epoch < currentEpoch {
		if data, err := json.Marshal(fees); err == nil {
			if err := t.cache.Set(ctx, key, data); err != nil {
				t.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
			}
		}
	}
	return fees, nil
}

// ImportSlots totals fee rewards for an explicit slot list, used when
// slot numbers come from an external analytics export instead of the
// leader schedule RPC. Completed epochs are cached like Epoch results.
func (t *Tracker) ImportSlots(ctx context.Context, epoch, currentEpoch uint64, slots []uint64) (*EpochFees, error) {
	fees, err := t.feesForSlots(ctx, epoch, slots)
	if err != nil {
		return nil, err
	}
	if epoch < currentEpoch {
		key := t.cacheKey(epoch)
		if data, err := json.Marshal(fees); err == nil {
			if err := t.cache.Set(ctx, key, data); err != nil {
				t.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
			}
		}
	}
	return fees, nil
}

// Cached returns the cached fees for an epoch, when present.
func (t *Tracker) Cached(ctx context.Context, epoch uint64) (*EpochFees, bool) {
	data, err := t.cache.Get(ctx, t.cacheKey(epoch))
	if err != nil {
		return nil, false
	}
	var fees EpochFees
	if err := json.Unmarshal(data, &fees); err != nil {
		return nil, false
	}
	return &fees, true
}

func (t *Tracker) cacheKey(epoch uint64) string {
	return fmt.Sprintf("leaderfees:%s:%d", t.cfg.Validator.Identity, epoch)
}

func (t *Tracker) feesForSlots(ctx context.Context, epoch uint64, slots []uint64) (*EpochFees, error) {
	fees := &EpochFees{
		Epoch:       epoch,
		LeaderSlots: uint64(len(slots)),
		Date:        epochs.Date(epoch),
	}

	for _, slot := range slots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		block, err := t.chain.Block(ctx, slot)
		if err != nil {
			// Skipped slot, or block pruned from the RPC node.
			if errors.Is(err, sources.ErrNotFound) {
				continue
			}
			t.log.Debug().Err(err).Uint64("slot", slot).Msg("block unavailable")
			continue
		}

		if reward, ok := feeReward(block, t.cfg.Validator.Identity); ok {
			fees.FeeLamports += reward
			fees.BlocksProduced++
		}
	}

	fees.SkippedSlots = fees.LeaderSlots - fees.BlocksProduced
	fees.FeeSOL = epochs.SOL(fees.FeeLamports)
	return fees, nil
}

func feeReward(block *sources.Block, identity string) (uint64, bool) {
	for _, r := range block.Rewards {
		if r.Pubkey == identity && r.RewardType == "Fee" && r.Lamports > 0 {
			return uint64(r.Lamports), true
		}
	}
	return 0, false
}

// TotalSOL sums fee revenue across epochs.
func TotalSOL(fees []EpochFees) float64 {
	return lo.SumBy(fees, func(f EpochFees) float64 { return f.FeeSOL })
}
