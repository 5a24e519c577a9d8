// Package expenses tracks off-chain costs (hosting, contractors,
// hardware) that never show up on chain but belong in the books.
package expenses

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/google/renameio/v2"
	"github.com/samber/lo"

	"github.com/grod220/block-parliament/internal/epochs"
)

// Category tells the reports which bucket an expense lands in.
type Category string

const (
	CategoryHosting    Category = "hosting"
	CategoryContractor Category = "contractor"
	CategoryHardware   Category = "hardware"
	CategorySoftware   Category = "software"
	CategoryVoteFees   Category = "vote_fees"
	CategoryOther      Category = "other"
)

// Display returns the human-readable form used in report output.
func (c Category) Display() string {
	switch c {
	case CategoryHosting:
		return "Hosting"
	case CategoryContractor:
		return "Contractor"
	case CategoryHardware:
		return "Hardware"
	case CategorySoftware:
		return "Software"
	case CategoryVoteFees:
		return "Vote Fees"
	default:
		return "Other"
	}
}

// ParseCategory accepts either the storage or display form.
func ParseCategory(s string) (Category, error) {
	for _, c := range []Category{
		CategoryHosting, CategoryContractor, CategoryHardware,
		CategorySoftware, CategoryVoteFees, CategoryOther,
	} {
		if s == string(c) || s == c.Display() {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown expense category %q", s)
}

// Expense is one off-chain cost entry.
type Expense struct {
	Date        string   `json:"date"`
	Vendor      string   `json:"vendor"`
	Category    Category `json:"category"`
	Description string   `json:"description"`
	AmountUSD   float64  `json:"amount_usd"`
	PaidWith    string   `json:"paid_with"`
	InvoiceID   string   `json:"invoice_id"`
}

var csvHeader = []string{"date", "vendor", "category", "description", "amount_usd", "paid_with", "invoice_id"}

// LoadCSV reads expenses from a CSV file with the standard header.
func LoadCSV(path string) ([]Expense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) != len(csvHeader) {
		return nil, fmt.Errorf("expected %d columns, got %d", len(csvHeader), len(header))
	}

	var expenses []Expense
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		e, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		expenses = append(expenses, e)
	}
	return expenses, nil
}

func parseRecord(record []string) (Expense, error) {
	if _, err := time.Parse(epochs.DateLayout, record[0]); err != nil {
		return Expense{}, fmt.Errorf("date %q: %w", record[0], err)
	}
	category, err := ParseCategory(record[2])
	if err != nil {
		return Expense{}, err
	}
	amount, err := strconv.ParseFloat(record[4], 64)
	if err != nil {
		return Expense{}, fmt.Errorf("amount %q: %w", record[4], err)
	}
	if amount < 0 {
		return Expense{}, fmt.Errorf("amount %q is negative", record[4])
	}

	return Expense{
		Date:        record[0],
		Vendor:      record[1],
		Category:    category,
		Description: record[3],
		AmountUSD:   amount,
		PaidWith:    record[5],
		InvoiceID:   record[6],
	}, nil
}

// WriteCSV writes expenses atomically so a crash mid-write never leaves
// a truncated ledger behind.
func WriteCSV(path string, expenses []Expense) error {
	t, err := renameio.TempFile("", path)
	if err != nil {
		return err
	}
	defer t.Cleanup() //nolint:errcheck

	w := csv.NewWriter(t)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, e := range expenses {
		record := []string{
			e.Date, e.Vendor, string(e.Category), e.Description,
			strconv.FormatFloat(e.AmountUSD, 'f', 2, 64), e.PaidWith, e.InvoiceID,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return t.CloseAtomicallyReplace()
}

// CategoryTotal is a per-category spend summary.
type CategoryTotal struct {
	Category Category
	USD      float64
}

// ByCategory totals spend per category, largest first.
func ByCategory(expenses []Expense) []CategoryTotal {
	grouped := lo.GroupBy(expenses, func(e Expense) Category { return e.Category })

	totals := lo.MapToSlice(grouped, func(c Category, es []Expense) CategoryTotal {
		return CategoryTotal{Category: c, USD: lo.SumBy(es, func(e Expense) float64 { return e.AmountUSD })}
	})
	sort.Slice(totals, func(i, j int) bool { return totals[i].USD > totals[j].USD })
	return totals
}

// MonthTotal is a per-month spend summary.
type MonthTotal struct {
	Month string // YYYY-MM
	USD   float64
}

// ByMonth totals spend per calendar month, oldest first.
func ByMonth(expenses []Expense) []MonthTotal {
	grouped := lo.GroupBy(expenses, func(e Expense) string {
		if len(e.Date) < 7 {
			return e.Date
		}
		return e.Date[:7]
	})

	totals := lo.MapToSlice(grouped, func(month string, es []Expense) MonthTotal {
		return MonthTotal{Month: month, USD: lo.SumBy(es, func(e Expense) float64 { return e.AmountUSD })}
	})
	sort.Slice(totals, func(i, j int) bool { return totals[i].Month < totals[j].Month })
	return totals
}

// Total sums all expense amounts in USD.
func Total(expenses []Expense) float64 {
	return lo.SumBy(expenses, func(e Expense) float64 { return e.AmountUSD })
}
