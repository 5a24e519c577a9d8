package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/grod220/block-parliament/internal/cache"
	"github.com/grod220/block-parliament/internal/config"
	"github.com/grod220/block-parliament/internal/expenses"
	"github.com/grod220/block-parliament/internal/leaderfees"
	"github.com/grod220/block-parliament/internal/ledger"
	"github.com/grod220/block-parliament/internal/logging"
	"github.com/grod220/block-parliament/internal/mev"
	"github.com/grod220/block-parliament/internal/notion"
	"github.com/grod220/block-parliament/internal/prices"
	"github.com/grod220/block-parliament/internal/ratelimit"
	"github.com/grod220/block-parliament/internal/reports"
	"github.com/grod220/block-parliament/internal/sources"
	"github.com/grod220/block-parliament/internal/votecosts"
)

// Well-known files under the data directory.
const (
	expensesFile  = "expenses.csv"
	voteCostsFile = "vote_costs.json"
)

var reportFlags struct {
	dataDir    string
	outputDir  string
	startEpoch uint64
	endEpoch   uint64
	year       int
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Fetch validator finances and generate the CSV ledgers",
	Long: `Collect staking rewards, transfers, leader fees, MEV claims, vote
costs, and expenses, then write the income, expense, treasury, and
summary ledgers plus a console overview.`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVar(&reportFlags.dataDir, "data-dir", "data",
		"directory holding expenses.csv and vote_costs.json")
	reportCmd.Flags().StringVar(&reportFlags.outputDir, "output-dir", "reports",
		"directory the CSV ledgers are written to")
	reportCmd.Flags().Uint64Var(&reportFlags.startEpoch, "start-epoch", 0,
		"first epoch to include (default: the configured first reward epoch)")
	reportCmd.Flags().Uint64Var(&reportFlags.endEpoch, "end-epoch", 0,
		"last epoch to include (default: the current epoch)")
	reportCmd.Flags().IntVar(&reportFlags.year, "year", 0,
		"restrict the summary to one calendar year (default: all years)")
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath())
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		return err
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	log.Logger = logger
	zerolog.DefaultContextLogger = &logger

	ctx := cmd.Context()

	c, err := cache.New(ctx, &cfg.Cache)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Warn().Err(err).Msg("cache close failed")
		}
	}()

	data, err := collectReportData(ctx, cfg, c, logger)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(reportFlags.outputDir, 0o750); err != nil {
		return fmt.Errorf("output dir: %w", err)
	}
	if err := reports.WriteAll(reportFlags.outputDir, data, reportFlags.year); err != nil {
		return err
	}

	logger.Info().Str("dir", reportFlags.outputDir).Msg("ledgers written")
	reports.PrintSummary(os.Stdout, data, reportFlags.year)

	return nil
}

// collectReportData pulls every revenue and expense stream. Chain data
// is fatal when missing; auxiliary sources degrade with a warning so one
// flaky API cannot block the tax ledgers.
func collectReportData(ctx context.Context, cfg *config.Config, c cache.Cache, logger zerolog.Logger) (*reports.Data, error) {
	client, _ := newUpstreamClient(logger)
	endpoints := append([]string{cfg.RPCURL()}, cfg.RPC.FallbackURLs...)
	chain := sources.NewSolanaClient(client, endpoints, ratelimit.NewPacer(nil))

	info, err := chain.EpochInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("epoch info: %w", err)
	}
	currentEpoch := info.Epoch

	if reportFlags.startEpoch > 0 {
		cfg.Validator.FirstRewardEpoch = reportFlags.startEpoch
	}
	endEpoch := currentEpoch
	if reportFlags.endEpoch > 0 && reportFlags.endEpoch < currentEpoch {
		endEpoch = reportFlags.endEpoch
	}

	collector := ledger.NewCollector(chain, c, cfg, logger)

	rewards, err := collector.Rewards(ctx, currentEpoch)
	if err != nil {
		return nil, fmt.Errorf("rewards: %w", err)
	}
	rewards = lo.Filter(rewards, func(r ledger.Reward, _ int) bool {
		return r.Epoch <= endEpoch
	})

	transfers, err := collector.Transfers(ctx)
	if err != nil {
		return nil, fmt.Errorf("transfers: %w", err)
	}
	categorized := ledger.Categorize(transfers, cfg)

	fees, err := leaderfees.NewTracker(chain, c, cfg, logger).
		Range(ctx, cfg.Validator.FirstRewardEpoch, endEpoch, currentEpoch)
	if err != nil {
		return nil, fmt.Errorf("leader fees: %w", err)
	}

	mevTracker := mev.NewTracker(sources.NewJitoClient(client), cfg.Validator.VoteAccount, logger)
	claims, err := mevTracker.Claims(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("MEV history unavailable, falling back to detected deposits")
		claims = nil
	}

	voteCosts := loadVoteCosts(cfg.Validator.FirstRewardEpoch, endEpoch, logger)
	expenseRows := loadExpenses(ctx, client, cfg, logger)

	minDate := cfg.Validator.BootstrapDate
	if minDate == "" {
		minDate = reports.FallbackDate
	}
	priceSvc, err := prices.NewService(
		sources.NewCoinGeckoClient(client, cfg.APIKeys.Coingecko),
		c, minDate, logger)
	if err != nil {
		return nil, fmt.Errorf("prices: %w", err)
	}

	data := &reports.Data{
		Rewards:     rewards,
		Categorized: categorized,
		MevClaims:   claims,
		LeaderFees:  fees,
		VoteCosts:   voteCosts,
		Expenses:    expenseRows,
		Config:      cfg,
	}

	book, err := priceSvc.Collect(ctx, reportDates(data))
	if err != nil {
		return nil, fmt.Errorf("prices: %w", err)
	}
	data.Prices = book

	return data, nil
}

// loadVoteCosts merges the imported Dune data with per-epoch estimates.
func loadVoteCosts(start, end uint64, logger zerolog.Logger) []votecosts.EpochCost {
	path := filepath.Join(reportFlags.dataDir, voteCostsFile)
	imported, err := votecosts.ImportDune(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("path", path).Msg("vote cost import failed, estimating")
		}
		imported = nil
	}
	return votecosts.Merge(imported, start, end)
}

// loadExpenses reads the CSV ledger and appends Notion contractor hours
// when the integration is configured.
func loadExpenses(ctx context.Context, client *sources.Client, cfg *config.Config, logger zerolog.Logger) []expenses.Expense {
	var rows []expenses.Expense

	path := filepath.Join(reportFlags.dataDir, expensesFile)
	fromCSV, err := expenses.LoadCSV(path)
	switch {
	case os.IsNotExist(err):
		logger.Debug().Str("path", path).Msg("no expense ledger")
	case err != nil:
		logger.Warn().Err(err).Str("path", path).Msg("expense ledger unreadable, skipping")
	default:
		rows = append(rows, fromCSV...)
	}

	notionSvc := notion.NewService(
		sources.NewNotionClient(client, cfg.Notion.APIToken), cfg.Notion, logger)
	fromNotion, err := notionSvc.Expenses(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("contractor hours unavailable, skipping")
	} else {
		rows = append(rows, fromNotion...)
	}

	return rows
}

// reportDates gathers every date the ledgers will need a price for.
func reportDates(data *reports.Data) []string {
	var dates []string
	for _, r := range data.Rewards {
		dates = append(dates, r.Date)
	}
	for _, t := range data.Categorized.Seeding {
		dates = append(dates, t.Date)
	}
	for _, t := range data.Categorized.SFDPReimbursements {
		dates = append(dates, t.Date)
	}
	for _, t := range data.Categorized.MevDeposits {
		dates = append(dates, t.Date)
	}
	for _, c := range data.MevClaims {
		dates = append(dates, c.Date)
	}
	for _, f := range data.LeaderFees {
		dates = append(dates, f.Date)
	}
	for _, v := range data.VoteCosts {
		dates = append(dates, v.Date)
	}
	for _, e := range data.Expenses {
		dates = append(dates, e.Date)
	}
	return lo.Uniq(dates)
}
