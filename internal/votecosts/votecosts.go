// Package votecosts tracks the transaction fees a validator pays to
// vote. Each vote costs about 5000 lamports and a healthy validator
// submits roughly 431,000 votes per epoch, so the cost runs a bit over
// 2 SOL per epoch. Historical actuals can be imported from a Dune
// Analytics export; anything without data is estimated.
package votecosts

import (
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"github.com/grod220/block-parliament/internal/epochs"
)

const (
	// LamportsPerVote is the fee for one vote transaction.
	LamportsPerVote = 5000

	// TypicalVotesPerEpoch is the vote count a healthy validator lands.
	TypicalVotesPerEpoch = 431_000
)

// Data source labels for EpochCost.Source.
const (
	SourceDune      = "dune"
	SourceEstimated = "estimated"
)

// EpochCost is the vote fee total for one epoch.
type EpochCost struct {
	Epoch       uint64  `json:"epoch"`
	VoteCount   uint64  `json:"vote_count"`
	FeeLamports uint64  `json:"fee_lamports"`
	FeeSOL      float64 `json:"fee_sol"`
	Source      string  `json:"source"`
	Date        string  `json:"date"`
}

// Estimate builds a cost entry from typical values, for epochs with no
// imported data.
func Estimate(epoch uint64) EpochCost {
	lamports := uint64(TypicalVotesPerEpoch * LamportsPerVote)
	return EpochCost{
		Epoch:       epoch,
		VoteCount:   TypicalVotesPerEpoch,
		FeeLamports: lamports,
		FeeSOL:      epochs.SOL(lamports),
		Source:      SourceEstimated,
		Date:        epochs.Date(epoch),
	}
}

// EstimateRange estimates costs for every epoch in [start, end].
func EstimateRange(start, end uint64) []EpochCost {
	var costs []EpochCost
	for epoch := start; epoch <= end; epoch++ {
		costs = append(costs, Estimate(epoch))
	}
	return costs
}

// ImportDune reads a Dune Analytics JSON export of per-epoch vote fees.
// The expected shape is {"vote_costs_by_epoch": {"899": {"vote_count":
// N, "total_fee_sol": F}, ...}}.
func ImportDune(path string) ([]EpochCost, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	byEpoch := gjson.GetBytes(data, "vote_costs_by_epoch")
	if !byEpoch.IsObject() {
		return nil, fmt.Errorf("%s: missing vote_costs_by_epoch object", path)
	}

	var costs []EpochCost
	var parseErr error
	byEpoch.ForEach(func(key, value gjson.Result) bool {
		var epoch uint64
		if _, err := fmt.Sscanf(key.String(), "%d", &epoch); err != nil {
			return true // skip non-numeric keys
		}

		feeSOL := value.Get("total_fee_sol").Float()
		voteCount := value.Get("vote_count").Uint()
		if feeSOL < 0 {
			parseErr = fmt.Errorf("epoch %d: negative fee", epoch)
			return false
		}

		costs = append(costs, EpochCost{
			Epoch:       epoch,
			VoteCount:   voteCount,
			FeeLamports: uint64(math.Round(feeSOL * 1e9)),
			FeeSOL:      feeSOL,
			Source:      SourceDune,
			Date:        epochs.Date(epoch),
		})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	sort.Slice(costs, func(i, j int) bool { return costs[i].Epoch < costs[j].Epoch })
	return costs, nil
}

// Merge combines imported actuals with estimates for an epoch range.
// Imported data wins; gaps are filled with estimates.
func Merge(imported []EpochCost, start, end uint64) []EpochCost {
	have := lo.KeyBy(imported, func(c EpochCost) uint64 { return c.Epoch })

	var costs []EpochCost
	for epoch := start; epoch <= end; epoch++ {
		if c, ok := have[epoch]; ok {
			costs = append(costs, c)
		} else {
			costs = append(costs, Estimate(epoch))
		}
	}
	return costs
}

// TotalSOL sums the vote fees across epochs.
func TotalSOL(costs []EpochCost) float64 {
	return lo.SumBy(costs, func(c EpochCost) float64 { return c.FeeSOL })
}

// TotalVotes sums the vote counts across epochs.
func TotalVotes(costs []EpochCost) uint64 {
	return lo.SumBy(costs, func(c EpochCost) uint64 { return c.VoteCount })
}
