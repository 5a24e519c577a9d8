package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"

	"github.com/grod220/block-parliament/internal/votecosts"
)

var voteCostsCmd = &cobra.Command{
	Use:   "votecosts",
	Short: "Manage per-epoch vote fee data",
	Long: `Vote transaction fees are the validator's dominant on-chain cost.
Exact per-epoch numbers come from a Dune Analytics export; epochs
without data are estimated from the typical vote count.`,
}

func init() {
	rootCmd.AddCommand(voteCostsCmd)

	voteCostsCmd.AddCommand(voteCostsImportCmd)
	voteCostsCmd.AddCommand(voteCostsListCmd)
	voteCostsCmd.AddCommand(voteCostsEstimateCmd)

	voteCostsImportCmd.Flags().String("out",
		filepath.Join("data", voteCostsFile), "where the import is stored")

	voteCostsListCmd.Flags().String("file",
		filepath.Join("data", voteCostsFile), "imported vote cost data")

	voteCostsEstimateCmd.Flags().Uint64("start", 0, "first epoch")
	voteCostsEstimateCmd.Flags().Uint64("end", 0, "last epoch")
	_ = voteCostsEstimateCmd.MarkFlagRequired("start")
	_ = voteCostsEstimateCmd.MarkFlagRequired("end")
}

var voteCostsImportCmd = &cobra.Command{
	Use:   "import <dune-export.json>",
	Short: "Import a Dune Analytics vote fee export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		n, err := importVoteCosts(args[0], out)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d epochs to %s\n", n, out)
		return nil
	},
}

var voteCostsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show imported vote costs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		file, _ := cmd.Flags().GetString("file")
		return listVoteCosts(cmd.OutOrStdout(), file)
	},
}

var voteCostsEstimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate vote costs for an epoch range",
	RunE: func(cmd *cobra.Command, _ []string) error {
		start, _ := cmd.Flags().GetUint64("start")
		end, _ := cmd.Flags().GetUint64("end")
		if end < start {
			return fmt.Errorf("end epoch %d before start epoch %d", end, start)
		}
		printVoteCosts(cmd.OutOrStdout(), votecosts.EstimateRange(start, end))
		return nil
	},
}

// importVoteCosts normalizes a Dune export into the data file the
// report command reads.
func importVoteCosts(from, to string) (int, error) {
	costs, err := votecosts.ImportDune(from)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(to), 0o750); err != nil {
		return 0, err
	}

	// Written back in the Dune shape so the file round-trips through
	// ImportDune.
	byEpoch := make(map[string]map[string]any, len(costs))
	for _, c := range costs {
		byEpoch[fmt.Sprintf("%d", c.Epoch)] = map[string]any{
			"vote_count":    c.VoteCount,
			"total_fee_sol": c.FeeSOL,
		}
	}
	data, err := json.MarshalIndent(map[string]any{"vote_costs_by_epoch": byEpoch}, "", "  ")
	if err != nil {
		return 0, err
	}

	t, err := renameio.TempFile("", to)
	if err != nil {
		return 0, err
	}
	defer t.Cleanup() //nolint:errcheck // best effort

	if _, err := t.Write(data); err != nil {
		return 0, err
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		return 0, err
	}
	return len(costs), nil
}

func listVoteCosts(w io.Writer, file string) error {
	costs, err := votecosts.ImportDune(file)
	if os.IsNotExist(err) {
		fmt.Fprintln(w, "No vote cost data imported.")
		return nil
	}
	if err != nil {
		return err
	}
	printVoteCosts(w, costs)
	return nil
}

func printVoteCosts(w io.Writer, costs []votecosts.EpochCost) {
	for _, c := range costs {
		fmt.Fprintf(w, "epoch %d  %s  %9d votes  %.4f SOL  (%s)\n",
			c.Epoch, c.Date, c.VoteCount, c.FeeSOL, c.Source)
	}
	fmt.Fprintf(w, "\nTotal: %.4f SOL across %d epochs\n",
		votecosts.TotalSOL(costs), len(costs))
}
