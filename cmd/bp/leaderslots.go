package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/grod220/block-parliament/internal/cache"
	"github.com/grod220/block-parliament/internal/config"
	"github.com/grod220/block-parliament/internal/leaderfees"
	"github.com/grod220/block-parliament/internal/logging"
	"github.com/grod220/block-parliament/internal/ratelimit"
	"github.com/grod220/block-parliament/internal/sources"
)

var leaderSlotsCmd = &cobra.Command{
	Use:   "leaderslots",
	Short: "Manage imported leader slot data",
	Long: `Leader fees are normally derived from the on-chain leader schedule.
When an epoch has been pruned from RPC history, slot numbers can be
imported from an analytics export instead; the blocks themselves are
still fetched and totaled from the chain.`,
}

func init() {
	rootCmd.AddCommand(leaderSlotsCmd)
	leaderSlotsCmd.AddCommand(leaderSlotsImportCmd)
	leaderSlotsCmd.AddCommand(leaderSlotsListCmd)

	leaderSlotsListCmd.Flags().Uint64("start", 0, "first epoch")
	leaderSlotsListCmd.Flags().Uint64("end", 0, "last epoch")
	_ = leaderSlotsListCmd.MarkFlagRequired("start")
	_ = leaderSlotsListCmd.MarkFlagRequired("end")
}

var leaderSlotsImportCmd = &cobra.Command{
	Use:   "import <slots.json>",
	Short: "Compute leader fees from an exported slot list",
	Long: `Read a JSON object mapping epoch numbers to absolute slot numbers
({"899": [388372010, ...]}) and total the fee rewards for those
slots. Completed epochs are cached for the report command.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLeaderFeeTracker(cmd.Context(), func(ctx context.Context, tracker *leaderfees.Tracker, currentEpoch uint64) error {
			return importLeaderSlots(ctx, cmd.OutOrStdout(), tracker, currentEpoch, args[0])
		})
	},
}

var leaderSlotsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show cached leader fees per epoch",
	RunE: func(cmd *cobra.Command, _ []string) error {
		start, _ := cmd.Flags().GetUint64("start")
		end, _ := cmd.Flags().GetUint64("end")
		if end < start {
			return fmt.Errorf("end epoch %d before start epoch %d", end, start)
		}
		return withLeaderFeeTracker(cmd.Context(), func(ctx context.Context, tracker *leaderfees.Tracker, _ uint64) error {
			listLeaderSlots(ctx, cmd.OutOrStdout(), tracker, start, end)
			return nil
		})
	},
}

// withLeaderFeeTracker assembles config, cache, and RPC plumbing for the
// leaderslots subcommands.
func withLeaderFeeTracker(ctx context.Context, fn func(context.Context, *leaderfees.Tracker, uint64) error) error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	zerolog.DefaultContextLogger = &logger

	c, err := cache.New(ctx, &cfg.Cache)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer c.Close() //nolint:errcheck // read path

	client, _ := newUpstreamClient(logger)
	endpoints := append([]string{cfg.RPCURL()}, cfg.RPC.FallbackURLs...)
	chain := sources.NewSolanaClient(client, endpoints, ratelimit.NewPacer(nil))

	info, err := chain.EpochInfo(ctx)
	if err != nil {
		return fmt.Errorf("epoch info: %w", err)
	}

	return fn(ctx, leaderfees.NewTracker(chain, c, cfg, logger), info.Epoch)
}

func importLeaderSlots(ctx context.Context, w io.Writer, tracker *leaderfees.Tracker, currentEpoch uint64, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var byEpoch map[string][]uint64
	if err := json.Unmarshal(data, &byEpoch); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	epochNums := make([]uint64, 0, len(byEpoch))
	slotsFor := make(map[uint64][]uint64, len(byEpoch))
	for key, slots := range byEpoch {
		epoch, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: epoch key %q is not a number", path, key)
		}
		epochNums = append(epochNums, epoch)
		slotsFor[epoch] = slots
	}
	sort.Slice(epochNums, func(i, j int) bool { return epochNums[i] < epochNums[j] })

	for _, epoch := range epochNums {
		fees, err := tracker.ImportSlots(ctx, epoch, currentEpoch, slotsFor[epoch])
		if err != nil {
			return fmt.Errorf("epoch %d: %w", epoch, err)
		}
		printEpochFees(w, *fees)
	}
	return nil
}

func listLeaderSlots(ctx context.Context, w io.Writer, tracker *leaderfees.Tracker, start, end uint64) {
	found := 0
	for epoch := start; epoch <= end; epoch++ {
		if fees, ok := tracker.Cached(ctx, epoch); ok {
			printEpochFees(w, *fees)
			found++
		}
	}
	if found == 0 {
		fmt.Fprintln(w, "No cached leader fee data in that range.")
	}
}

func printEpochFees(w io.Writer, f leaderfees.EpochFees) {
	fmt.Fprintf(w, "epoch %d  %s  %d slots, %d produced, %d skipped  %.6f SOL\n",
		f.Epoch, f.Date, f.LeaderSlots, f.BlocksProduced, f.SkippedSlots, f.FeeSOL)
}
