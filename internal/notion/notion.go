// Package notion turns the contractor hours database into expense
// entries for the books.
package notion

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/grod220/block-parliament/internal/config"
	"github.com/grod220/block-parliament/internal/expenses"
	"github.com/grod220/block-parliament/internal/sources"
)

// Source is the Notion API surface the service needs.
type Source interface {
	HoursLog(ctx context.Context, databaseID string) ([]sources.HoursEntry, error)
}

// Summary aggregates the hours log for the console report.
type Summary struct {
	Entries     int     `json:"entries"`
	TotalHours  float64 `json:"total_hours"`
	TotalUSD    float64 `json:"total_usd"`
	UnpaidHours float64 `json:"unpaid_hours"`
	UnpaidUSD   float64 `json:"unpaid_usd"`
}

// Service reads contractor hours from Notion.
type Service struct {
	source Source
	cfg    config.NotionConfig
	log    zerolog.Logger
}

func NewService(source Source, cfg config.NotionConfig, log zerolog.Logger) *Service {
	return &Service{source: source, cfg: cfg, log: log.With().Str("component", "notion").Logger()}
}

// Hours fetches the full hours log.
func (s *Service) Hours(ctx context.Context) ([]sources.HoursEntry, error) {
	if !s.cfg.IsEnabled() {
		return nil, nil
	}
	return s.source.HoursLog(ctx, s.cfg.HoursDatabaseID)
}

// Expenses fetches the hours log and converts each entry into a
// contractor expense, with the Notion page ID as the invoice reference.
func (s *Service) Expenses(ctx context.Context) ([]expenses.Expense, error) {
	entries, err := s.Hours(ctx)
	if err != nil {
		return nil, err
	}
	return ToExpenses(entries), nil
}

// ToExpenses converts hours entries into contractor expenses.
func ToExpenses(entries []sources.HoursEntry) []expenses.Expense {
	return lo.Map(entries, func(e sources.HoursEntry, _ int) expenses.Expense {
		paidWith := "Unpaid"
		if e.Paid {
			paidWith = "Paid"
		}
		return expenses.Expense{
			Date:        e.Date,
			Vendor:      "Contractor",
			Category:    expenses.CategoryContractor,
			Description: fmt.Sprintf("%s (%.1fh)", e.Description, e.Hours),
			AmountUSD:   e.AmountUSD,
			PaidWith:    paidWith,
			InvoiceID:   e.PageID,
		}
	})
}

// Summarize totals the hours log, splitting out what is still unpaid.
func Summarize(entries []sources.HoursEntry) Summary {
	summary := Summary{Entries: len(entries)}
	for _, e := range entries {
		summary.TotalHours += e.Hours
		summary.TotalUSD += e.AmountUSD
		if !e.Paid {
			summary.UnpaidHours += e.Hours
			summary.UnpaidUSD += e.AmountUSD
		}
	}
	return summary
}
