// Package mev tracks Jito MEV revenue. Tips collected while the
// validator runs the Jito client are distributed per epoch; the
// validator keeps a commission and the rest flows to stakers. The Jito
// API is the source of truth for tip amounts, independent of the
// on-chain deposits that eventually land.
package mev

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/grod220/block-parliament/internal/epochs"
	"github.com/grod220/block-parliament/internal/sources"
)

// Claim is the validator's MEV commission for one epoch.
type Claim struct {
	Epoch              uint64  `json:"epoch"`
	TipsLamports       uint64  `json:"tips_lamports"`
	CommissionBps      uint64  `json:"commission_bps"`
	CommissionLamports uint64  `json:"commission_lamports"`
	CommissionSOL      float64 `json:"commission_sol"`
	Date               string  `json:"date"`
}

// Source is the Jito API surface the tracker needs.
type Source interface {
	MevHistory(ctx context.Context, voteAccount string) ([]sources.MevEpoch, error)
}

// Tracker resolves per-epoch MEV claims for one validator.
type Tracker struct {
	source      Source
	voteAccount string
	log         zerolog.Logger
}

func NewTracker(source Source, voteAccount string, log zerolog.Logger) *Tracker {
	return &Tracker{
		source:      source,
		voteAccount: voteAccount,
		log:         log.With().Str("component", "mev").Logger(),
	}
}

// Claims fetches the full MEV history, sorted by epoch ascending.
func (t *Tracker) Claims(ctx context.Context) ([]Claim, error) {
	history, err := t.source.MevHistory(ctx, t.voteAccount)
	if err != nil {
		return nil, err
	}

	claims := lo.Map(history, func(e sources.MevEpoch, _ int) Claim {
		commission := e.CommissionLamports()
		return Claim{
			Epoch:              e.Epoch,
			TipsLamports:       e.MevRewards,
			CommissionBps:      e.MevCommissionBps,
			CommissionLamports: commission,
			CommissionSOL:      epochs.SOL(commission),
			Date:               epochs.Date(e.Epoch),
		}
	})

	sort.Slice(claims, func(i, j int) bool { return claims[i].Epoch < claims[j].Epoch })
	t.log.Debug().Int("epochs", len(claims)).Msg("mev history resolved")
	return claims, nil
}

// TotalSOL sums MEV commission across epochs.
func TotalSOL(claims []Claim) float64 {
	return lo.SumBy(claims, func(c Claim) float64 { return c.CommissionSOL })
}
