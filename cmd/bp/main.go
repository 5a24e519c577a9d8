// Package main is the entry point for bp, the block-parliament CLI.
package main

import (
	"context"
	"os"
	"path/filepath"

	"charm.land/fang/v2"
	"github.com/spf13/cobra"
)

const defaultConfigFile = "config.toml"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "bp",
	Short: "Solana validator finance tracker and dashboard",
	Long: `bp tracks the finances of a Solana validator: staking commission,
block production fees, Jito MEV, vote costs, and off-chain expenses.
It generates accountant-ready CSV ledgers and serves the public
dashboard API.`,
}

func init() {
	// Global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file path (default: ./"+defaultConfigFile+" or ~/.config/bp/"+defaultConfigFile+")")
}

// configPath resolves the effective config file path.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return findConfigIn(".")
}

// findConfigIn searches dir and ~/.config/bp/ for the default config file.
func findConfigIn(dir string) string {
	p := filepath.Join(dir, defaultConfigFile)
	if _, err := os.Stat(p); err == nil {
		return p
	}
	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		p := filepath.Join(home, ".config", "bp", defaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return defaultConfigFile
}

func main() {
	if err := fang.Execute(context.Background(), rootCmd); err != nil {
		os.Exit(1)
	}
}
