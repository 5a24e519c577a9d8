// Package reports turns collected financial data into CSV ledgers and
// a console P&L summary.
//
// Two accounting rules shape everything here:
//   - SFDP reimbursements are expense offsets against vote costs, never
//     income.
//   - The Jito API is the source of truth for MEV; on-chain deposit
//     transfers are only used as a fallback when the API has no data,
//     so the same tips are never counted twice.
package reports

import (
	"encoding/csv"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"

	"github.com/grod220/block-parliament/internal/config"
	"github.com/grod220/block-parliament/internal/epochs"
	"github.com/grod220/block-parliament/internal/expenses"
	"github.com/grod220/block-parliament/internal/leaderfees"
	"github.com/grod220/block-parliament/internal/ledger"
	"github.com/grod220/block-parliament/internal/mev"
	"github.com/grod220/block-parliament/internal/prices"
	"github.com/grod220/block-parliament/internal/votecosts"
)

// Report filenames under the output directory.
const (
	IncomeLedgerFile   = "income_ledger.csv"
	ExpenseLedgerFile  = "expense_ledger.csv"
	TreasuryLedgerFile = "treasury_ledger.csv"
	SummaryFile        = "summary.csv"
)

// FallbackDate stands in when a record carries no usable date.
const FallbackDate = "2025-12-15"

// Data bundles everything the reports draw from.
type Data struct {
	Rewards     []ledger.Reward
	Categorized ledger.Categorized
	MevClaims   []mev.Claim
	LeaderFees  []leaderfees.EpochFees
	VoteCosts   []votecosts.EpochCost
	Expenses    []expenses.Expense
	Prices      prices.Book
	Config      *config.Config
}

// WriteAll generates the four CSV reports into dir. year filters the
// summary to one calendar year; zero means everything.
func WriteAll(dir string, data *Data, year int) error {
	if err := writeIncomeLedger(dir, data); err != nil {
		return fmt.Errorf("income ledger: %w", err)
	}
	if err := writeExpenseLedger(dir, data); err != nil {
		return fmt.Errorf("expense ledger: %w", err)
	}
	if err := writeTreasuryLedger(dir, data); err != nil {
		return fmt.Errorf("treasury ledger: %w", err)
	}
	if err := writeSummary(dir, data, year); err != nil {
		return fmt.Errorf("summary: %w", err)
	}
	return nil
}

// writeCSV writes rows atomically to dir/name.
func writeCSV(dir, name string, header []string, rows [][]string) error {
	path := filepath.Join(dir, name)
	t, err := renameio.TempFile("", path)
	if err != nil {
		return err
	}
	defer t.Cleanup() //nolint:errcheck

	w := csv.NewWriter(t)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	if err := w.Error(); err != nil {
		return err
	}
	return t.CloseAtomicallyReplace()
}

func dateOr(date string) string {
	if date == "" {
		return FallbackDate
	}
	return date
}

func shortSig(sig string) string {
	if len(sig) > 16 {
		return sig[:16]
	}
	return sig
}

func writeIncomeLedger(dir string, data *Data) error {
	header := []string{
		"Date", "Epoch", "Source", "From_Address", "From_Label",
		"Amount_SOL", "USD_Price", "USD_Value", "Tx_Signature", "Notes",
	}

	var rows [][]string
	for _, r := range data.Rewards {
		date := dateOr(r.Date)
		price := data.Prices.Price(date)
		rows = append(rows, []string{
			date,
			fmt.Sprintf("%d", r.Epoch),
			"Commission",
			"Vote Account",
			"Inflation Reward",
			fmt.Sprintf("%.6f", r.AmountSOL),
			fmt.Sprintf("%.2f", price),
			fmt.Sprintf("%.2f", r.AmountSOL*price),
			fmt.Sprintf("epoch-%d", r.Epoch),
			fmt.Sprintf("%d%% commission on delegator rewards", r.Commission),
		})
	}

	// SFDP reimbursements are deliberately absent here; they offset
	// vote costs in the expense ledger instead.

	if len(data.MevClaims) == 0 {
		// No API data at all; fall back to detected deposits.
		for _, t := range data.Categorized.MevDeposits {
			date := dateOr(t.Date)
			price := data.Prices.Price(date)
			rows = append(rows, []string{
				date, "",
				"Jito MEV",
				t.From,
				t.FromLabel,
				fmt.Sprintf("%.6f", t.AmountSOL),
				fmt.Sprintf("%.2f", price),
				fmt.Sprintf("%.2f", t.AmountSOL*price),
				shortSig(t.Signature),
				"MEV tip distribution from Jito (fallback)",
			})
		}
	}

	for _, c := range data.MevClaims {
		date := dateOr(c.Date)
		price := data.Prices.Price(date)
		pct := uint64(0)
		if c.TipsLamports > 0 {
			pct = (c.CommissionLamports*100 + c.TipsLamports/2) / c.TipsLamports
		}
		rows = append(rows, []string{
			date,
			fmt.Sprintf("%d", c.Epoch),
			"Jito MEV",
			"Jito Tip Distribution",
			"Vote Account",
			fmt.Sprintf("%.6f", c.CommissionSOL),
			fmt.Sprintf("%.2f", price),
			fmt.Sprintf("%.2f", c.CommissionSOL*price),
			fmt.Sprintf("epoch-%d", c.Epoch),
			fmt.Sprintf("%d%% commission on %.4f SOL tips", pct, epochs.SOL(c.TipsLamports)),
		})
	}

	for _, f := range data.LeaderFees {
		date := dateOr(f.Date)
		price := data.Prices.Price(date)
		rows = append(rows, []string{
			date,
			fmt.Sprintf("%d", f.Epoch),
			"Leader Fees",
			"Identity Account",
			"Block Production",
			fmt.Sprintf("%.6f", f.FeeSOL),
			fmt.Sprintf("%.2f", price),
			fmt.Sprintf("%.2f", f.FeeSOL*price),
			fmt.Sprintf("epoch-%d", f.Epoch),
			fmt.Sprintf("%d blocks produced, %d skipped", f.BlocksProduced, f.SkippedSlots),
		})
	}

	return writeCSV(dir, IncomeLedgerFile, header, rows)
}

// coverage returns the SFDP vote-cost coverage fraction for a date string.
func coverage(cfg *config.Config, date string) float64 {
	d, err := time.Parse(epochs.DateLayout, date)
	if err != nil {
		d, _ = time.Parse(epochs.DateLayout, FallbackDate)
	}
	return cfg.SFDPCoveragePercent(d)
}

func writeExpenseLedger(dir string, data *Data) error {
	header := []string{
		"Date", "Epoch", "Vendor", "Category", "Description", "Amount_SOL",
		"Amount_USD", "Paid_With", "SFDP_Coverage", "Net_Amount_USD", "Invoice_ID",
	}

	var rows [][]string
	for _, c := range data.VoteCosts {
		date := dateOr(c.Date)
		price := data.Prices.Price(date)
		gross := c.FeeSOL * price
		cov := coverage(data.Config, date)
		rows = append(rows, []string{
			date,
			fmt.Sprintf("%d", c.Epoch),
			"Solana Network",
			expenses.CategoryVoteFees.Display(),
			fmt.Sprintf("%d votes (%s)", c.VoteCount, c.Source),
			fmt.Sprintf("%.6f", c.FeeSOL),
			fmt.Sprintf("%.2f", gross),
			"SOL",
			fmt.Sprintf("%.0f%%", cov*100),
			fmt.Sprintf("%.2f", gross*(1-cov)),
			"",
		})
	}

	for _, e := range data.Expenses {
		rows = append(rows, []string{
			e.Date, "",
			e.Vendor,
			e.Category.Display(),
			e.Description,
			"",
			fmt.Sprintf("%.2f", e.AmountUSD),
			e.PaidWith,
			"",
			fmt.Sprintf("%.2f", e.AmountUSD),
			e.InvoiceID,
		})
	}

	return writeCSV(dir, ExpenseLedgerFile, header, rows)
}

func writeTreasuryLedger(dir string, data *Data) error {
	header := []string{
		"Date", "Type", "From_Address", "From_Label", "To_Address", "To_Label",
		"Amount_SOL", "USD_Value", "Tx_Signature", "Notes",
	}

	groups := []struct {
		kind      string
		note      string
		transfers []ledger.Transfer
	}{
		{"Capital Contribution", "Initial validator seeding", data.Categorized.Seeding},
		{"Internal Transfer", "Vote account funding", data.Categorized.VoteFunding},
		{"Withdrawal", "Withdrawal to exchange/personal", data.Categorized.Withdrawals},
		{"Other", "Uncategorized transfer", data.Categorized.Other},
	}

	var rows [][]string
	for _, g := range groups {
		for _, t := range g.transfers {
			date := dateOr(t.Date)
			price := data.Prices.Price(date)
			rows = append(rows, []string{
				date,
				g.kind,
				t.From,
				t.FromLabel,
				t.To,
				t.ToLabel,
				fmt.Sprintf("%.6f", t.AmountSOL),
				fmt.Sprintf("%.2f", t.AmountSOL*price),
				shortSig(t.Signature),
				g.note,
			})
		}
	}

	return writeCSV(dir, TreasuryLedgerFile, header, rows)
}
