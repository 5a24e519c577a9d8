// Package ledger reconstructs the validator's financial history from
// chain data: epoch staking rewards and SOL transfers between the
// tracked accounts, categorized by counterparty.
package ledger

import (
	"time"

	"github.com/grod220/block-parliament/internal/addresses"
	"github.com/grod220/block-parliament/internal/config"
	"github.com/grod220/block-parliament/internal/epochs"
	"github.com/grod220/block-parliament/internal/sources"
)

// MinTransferLamports filters out fee dust: balance changes under
// 0.001 SOL are ignored.
const MinTransferLamports = 1_000_000

// Reward is the staking reward credited for one epoch.
type Reward struct {
	Epoch          uint64  `json:"epoch"`
	AmountLamports uint64  `json:"amount_lamports"`
	AmountSOL      float64 `json:"amount_sol"`
	Commission     int     `json:"commission"`
	EffectiveSlot  uint64  `json:"effective_slot"`
	Date           string  `json:"date"`
}

// Transfer is a SOL movement parsed from a confirmed transaction.
type Transfer struct {
	Signature      string             `json:"signature"`
	Slot           uint64             `json:"slot"`
	Timestamp      int64              `json:"timestamp"`
	Date           string             `json:"date"`
	From           string             `json:"from"`
	To             string             `json:"to"`
	AmountLamports uint64             `json:"amount_lamports"`
	AmountSOL      float64            `json:"amount_sol"`
	FromLabel      string             `json:"from_label"`
	ToLabel        string             `json:"to_label"`
	FromCategory   addresses.Category `json:"from_category"`
	ToCategory     addresses.Category `json:"to_category"`
}

// Categorized groups transfers by what they mean for the books.
type Categorized struct {
	// Seeding is capital moved in from the personal wallet.
	Seeding []Transfer
	// SFDPReimbursements are vote cost refunds from the Solana Foundation.
	SFDPReimbursements []Transfer
	// MevDeposits are tip distributions from Jito.
	MevDeposits []Transfer
	// VoteFunding is internal movement between our own accounts.
	VoteFunding []Transfer
	// Withdrawals left our accounts for an exchange or the personal wallet.
	Withdrawals []Transfer
	// Other is everything that did not match a known pattern.
	Other []Transfer
}

// ParseTransfers extracts SOL transfers from a transaction's balance
// movements. For each relevant account with a significant change, the
// counterparty is the first account with a matching opposite change.
func ParseTransfers(tx *sources.Transaction, cfg *config.Config) []Transfer {
	n := min(len(tx.AccountKeys), min(len(tx.PreBalances), len(tx.PostBalances)))

	date := ""
	if tx.BlockTime > 0 {
		date = time.Unix(tx.BlockTime, 0).UTC().Format(epochs.DateLayout)
	}

	var transfers []Transfer
	for i := 0; i < n; i++ {
		diff := tx.PostBalances[i] - tx.PreBalances[i]

		if !cfg.IsRelevantAccount(tx.AccountKeys[i]) {
			continue
		}
		if diff > -MinTransferLamports && diff < MinTransferLamports {
			continue
		}

		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			otherDiff := tx.PostBalances[j] - tx.PreBalances[j]
			if (diff > 0) == (otherDiff > 0) || otherDiff == 0 {
				continue
			}

			from, to := tx.AccountKeys[i], tx.AccountKeys[j]
			amount := uint64(-diff)
			if diff > 0 {
				from, to = to, from
				amount = uint64(diff)
			}

			fromLabel := addresses.Lookup(from)
			toLabel := addresses.Lookup(to)
			transfers = append(transfers, Transfer{
				Signature:      tx.Signature,
				Slot:           tx.Slot,
				Timestamp:      tx.BlockTime,
				Date:           date,
				From:           from,
				To:             to,
				AmountLamports: amount,
				AmountSOL:      epochs.SOL(amount),
				FromLabel:      fromLabel.Name,
				ToLabel:        toLabel.Name,
				FromCategory:   fromLabel.Category,
				ToCategory:     toLabel.Category,
			})
			break
		}
	}
	return transfers
}

// Categorize sorts transfers into ledger buckets based on which side is
// ours and who the counterparty is.
func Categorize(transfers []Transfer, cfg *config.Config) Categorized {
	var c Categorized

	for _, t := range transfers {
		switch {
		case cfg.IsOurAccount(t.To):
			switch {
			case t.From == cfg.Validator.PersonalWallet:
				c.Seeding = append(c.Seeding, t)
			case addresses.IsSolanaFoundation(t.From):
				c.SFDPReimbursements = append(c.SFDPReimbursements, t)
			case addresses.IsJito(t.From):
				c.MevDeposits = append(c.MevDeposits, t)
			case cfg.IsOurAccount(t.From):
				c.VoteFunding = append(c.VoteFunding, t)
			default:
				c.Other = append(c.Other, t)
			}
		case cfg.IsOurAccount(t.From):
			switch {
			case addresses.IsExchange(t.To) || t.To == cfg.Validator.PersonalWallet:
				c.Withdrawals = append(c.Withdrawals, t)
			case cfg.IsOurAccount(t.To):
				c.VoteFunding = append(c.VoteFunding, t)
			default:
				c.Other = append(c.Other, t)
			}
		}
	}
	return c
}
