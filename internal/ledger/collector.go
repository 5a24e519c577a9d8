package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/grod220/block-parliament/internal/addresses"
	"github.com/grod220/block-parliament/internal/cache"
	"github.com/grod220/block-parliament/internal/config"
	"github.com/grod220/block-parliament/internal/epochs"
	"github.com/grod220/block-parliament/internal/sources"
)

const (
	// signatureBatchSize is the page size for getSignaturesForAddress.
	signatureBatchSize = 100

	// maxSignaturesPerAccount caps the history walk for one account.
	maxSignaturesPerAccount = 2000
)

// ChainReader is the slice of the RPC client the collector needs.
type ChainReader interface {
	InflationReward(ctx context.Context, votePubkey string, epoch uint64) (*sources.InflationReward, error)
	SignaturesForAddress(ctx context.Context, address, before, until string, limit int) ([]sources.SignatureInfo, error)
	Transaction(ctx context.Context, signature string) (*sources.Transaction, error)
}

// AccountScan records how far the history walk got for one account, so
// the next run can stop early instead of re-walking everything.
type AccountScan struct {
	Transfers       []Transfer `json:"transfers"`
	HighestSlotSeen uint64     `json:"highest_slot_seen"`
}

// Collector pulls rewards and transfers from chain, caching immutable
// results so repeated runs only fetch what is new.
type Collector struct {
	chain ChainReader
	cache cache.Cache
	cfg   *config.Config
	log   zerolog.Logger
}

func NewCollector(chain ChainReader, c cache.Cache, cfg *config.Config, log zerolog.Logger) *Collector {
	return &Collector{chain: chain, cache: c, cfg: cfg, log: log.With().Str("component", "ledger").Logger()}
}

// Rewards fetches the staking reward for every epoch from the
// validator's first reward epoch through currentEpoch. Rewards for the
// current epoch are usually not distributed yet, so errors there are
// logged and skipped rather than failing the run.
func (c *Collector) Rewards(ctx context.Context, currentEpoch uint64) ([]Reward, error) {
	vote := c.cfg.Validator.VoteAccount
	var rewards []Reward

	for epoch := c.cfg.Validator.FirstRewardEpoch; epoch <= currentEpoch; epoch++ {
		key := fmt.Sprintf("reward:%s:%d", vote, epoch)
		if data, err := c.cache.Get(ctx, key); err == nil {
			var r Reward
			if err := json.Unmarshal(data, &r); err == nil {
				rewards = append(rewards, r)
				continue
			}
		}

		ir, err := c.chain.InflationReward(ctx, vote, epoch)
		if err != nil {
			if errors.Is(err, sources.ErrNotFound) {
				c.log.Debug().Uint64("epoch", epoch).Msg("no reward for epoch")
				continue
			}
			if epoch == currentEpoch {
				c.log.Debug().Uint64("epoch", epoch).Msg("rewards pending epoch completion")
				continue
			}
			return nil, fmt.Errorf("inflation reward for epoch %d: %w", epoch, err)
		}

		r := Reward{
			Epoch:          epoch,
			AmountLamports: ir.Amount,
			AmountSOL:      epochs.SOL(ir.Amount),
			Commission:     c.cfg.Validator.CommissionPercent,
			EffectiveSlot:  ir.EffectiveSlot,
			Date:           epochs.Date(epoch),
		}
		rewards = append(rewards, r)

		// Completed-epoch rewards never change.
		if epoch < currentEpoch {
			if data, err := json.Marshal(r); err == nil {
				if err := c.cache.Set(ctx, key, data); err != nil {
					c.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
				}
			}
		}
	}
	return rewards, nil
}

// trackedAccounts returns the accounts whose history is walked for
// transfers. The vote and identity accounts are skipped because their
// history is dominated by vote transactions.
func (c *Collector) trackedAccounts() []string {
	return lo.Uniq([]string{
		c.cfg.Validator.WithdrawAuthority,
		c.cfg.Validator.PersonalWallet,
		addresses.SFDPReimbursement,
	})
}

// Transfers walks the signature history of every tracked account,
// parses SOL transfers out of each transaction, and returns them
// deduplicated and sorted by timestamp ascending.
func (c *Collector) Transfers(ctx context.Context) ([]Transfer, error) {
	var all []Transfer
	for _, account := range c.trackedAccounts() {
		scan, err := c.scanAccount(ctx, account)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", account, err)
		}
		all = append(all, scan.Transfers...)
	}

	all = lo.UniqBy(all, func(t Transfer) string {
		return fmt.Sprintf("%s:%s:%s:%d", t.Signature, t.From, t.To, t.AmountLamports)
	})
	sort.Slice(all, func(i, j int) bool { return all[i].Timestamp < all[j].Timestamp })
	return all, nil
}

// scanAccount walks one account's signatures newest-first, stopping at
// the slot reached by the previous run. Results are merged with the
// cached scan and written back.
func (c *Collector) scanAccount(ctx context.Context, account string) (*AccountScan, error) {
	key := "transfers:" + account

	var prev AccountScan
	if data, err := c.cache.Get(ctx, key); err == nil {
		if err := json.Unmarshal(data, &prev); err != nil {
			prev = AccountScan{}
		}
	}

	scan := AccountScan{HighestSlotSeen: prev.HighestSlotSeen}
	before := ""
	fetched := 0

walk:
	for fetched < maxSignaturesPerAccount {
		sigs, err := c.chain.SignaturesForAddress(ctx, account, before, "", signatureBatchSize)
		if err != nil {
			return nil, err
		}
		if len(sigs) == 0 {
			break
		}
		if scan.HighestSlotSeen < sigs[0].Slot {
			scan.HighestSlotSeen = sigs[0].Slot
		}

		for _, sig := range sigs {
			if prev.HighestSlotSeen > 0 && sig.Slot <= prev.HighestSlotSeen {
				c.log.Debug().Str("account", account).Uint64("slot", sig.Slot).Msg("reached cached slot")
				break walk
			}
			if sig.Failed {
				continue
			}
			transfers, err := c.fetchTransfers(ctx, sig.Signature)
			if err != nil {
				return nil, err
			}
			scan.Transfers = append(scan.Transfers, transfers...)
		}

		fetched += len(sigs)
		if len(sigs) < signatureBatchSize {
			break
		}
		before = sigs[len(sigs)-1].Signature
	}

	scan.Transfers = append(scan.Transfers, prev.Transfers...)
	if data, err := json.Marshal(scan); err == nil {
		if err := c.cache.Set(ctx, key, data); err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
	}
	return &scan, nil
}

// fetchTransfers loads one transaction, consulting the per-signature
// cache first. Confirmed transactions are immutable so hits never age out.
func (c *Collector) fetchTransfers(ctx context.Context, signature string) ([]Transfer, error) {
	key := "tx:" + signature
	if data, err := c.cache.Get(ctx, key); err == nil {
		var transfers []Transfer
		if err := json.Unmarshal(data, &transfers); err == nil {
			return transfers, nil
		}
	}

	tx, err := c.chain.Transaction(ctx, signature)
	if err != nil {
		if errors.Is(err, sources.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("transaction %s: %w", signature, err)
	}
	if tx.Failed {
		return nil, nil
	}

	transfers := ParseTransfers(tx, c.cfg)
	if data, err := json.Marshal(transfers); err == nil {
		if err := c.cache.Set(ctx, key, data); err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
	}
	return transfers, nil
}
