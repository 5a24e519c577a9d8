package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/grod220/block-parliament/internal/styling"
)

var stylingFilePath string

var stylingCmd = &cobra.Command{
	Use:   "styling",
	Short: "Inspect the dashboard styling configuration",
}

func init() {
	rootCmd.AddCommand(stylingCmd)
	stylingCmd.PersistentFlags().StringVar(&stylingFilePath, "file", "styling.yaml",
		"styling configuration path")

	stylingCmd.AddCommand(stylingShowCmd)
	stylingCmd.AddCommand(stylingCheckCmd)
}

var stylingShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved design-token table",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return showStyling(cmd.OutOrStdout(), stylingFilePath)
	},
}

var stylingCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the styling configuration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return checkStyling(cmd.OutOrStdout(), stylingFilePath)
	},
}

func showStyling(w io.Writer, path string) error {
	cfg, err := styling.Load(path)
	if err != nil {
		return err
	}

	tokens := cfg.Resolve()
	out, err := json.MarshalIndent(map[string]any{
		"content":    cfg.Content,
		"fontFamily": tokens.FontFamily,
	}, "", "  ")
	if err != nil {
		return err
	}

	fmt.Fprintln(w, string(out))
	return nil
}

func checkStyling(w io.Writer, path string) error {
	cfg, err := styling.Load(path)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	fmt.Fprintf(w, "✓ %s is valid (%d content patterns, %d font overrides)\n",
		path, len(cfg.Content), len(cfg.Theme.Extend.FontFamily))
	return nil
}
