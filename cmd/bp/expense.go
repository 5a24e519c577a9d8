package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/grod220/block-parliament/internal/epochs"
	"github.com/grod220/block-parliament/internal/expenses"
)

var expenseFile string

var expenseCmd = &cobra.Command{
	Use:   "expense",
	Short: "Manage the off-chain expense ledger",
	Long: `Manage the CSV ledger of off-chain expenses: hosting, contractor
work, hardware, and software. The report command folds this ledger
into the expense and summary reports.`,
}

func init() {
	rootCmd.AddCommand(expenseCmd)
	expenseCmd.PersistentFlags().StringVar(&expenseFile, "file",
		filepath.Join("data", expensesFile), "expense ledger path")

	expenseCmd.AddCommand(expenseAddCmd)
	expenseCmd.AddCommand(expenseListCmd)
	expenseCmd.AddCommand(expenseDeleteCmd)
	expenseCmd.AddCommand(expenseImportCmd)
	expenseCmd.AddCommand(expenseExportCmd)

	expenseAddCmd.Flags().String("date", "", "expense date (YYYY-MM-DD, default today)")
	expenseAddCmd.Flags().String("vendor", "", "who was paid")
	expenseAddCmd.Flags().String("category", "other",
		"one of: hosting, contractor, hardware, software, vote_fees, other")
	expenseAddCmd.Flags().String("description", "", "what the expense was for")
	expenseAddCmd.Flags().Float64("amount", 0, "amount in USD")
	expenseAddCmd.Flags().String("paid-with", "", "payment method")
	expenseAddCmd.Flags().String("invoice-id", "", "invoice or receipt reference")
	_ = expenseAddCmd.MarkFlagRequired("vendor")
	_ = expenseAddCmd.MarkFlagRequired("amount")

	expenseListCmd.Flags().String("category", "", "only show one category")
}

var expenseAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an expense to the ledger",
	RunE: func(cmd *cobra.Command, _ []string) error {
		date, _ := cmd.Flags().GetString("date")
		vendor, _ := cmd.Flags().GetString("vendor")
		categoryStr, _ := cmd.Flags().GetString("category")
		description, _ := cmd.Flags().GetString("description")
		amount, _ := cmd.Flags().GetFloat64("amount")
		paidWith, _ := cmd.Flags().GetString("paid-with")
		invoiceID, _ := cmd.Flags().GetString("invoice-id")

		if date == "" {
			date = time.Now().UTC().Format(epochs.DateLayout)
		}

		category, err := expenses.ParseCategory(categoryStr)
		if err != nil {
			return err
		}

		expense := expenses.Expense{
			Date:        date,
			Vendor:      vendor,
			Category:    category,
			Description: description,
			AmountUSD:   amount,
			PaidWith:    paidWith,
			InvoiceID:   invoiceID,
		}

		if err := addExpense(expenseFile, expense); err != nil {
			return err
		}
		fmt.Printf("Added %s expense: %s $%.2f\n", category.Display(), vendor, amount)
		return nil
	},
}

var expenseListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the expense ledger",
	RunE: func(cmd *cobra.Command, _ []string) error {
		category, _ := cmd.Flags().GetString("category")
		return listExpenses(cmd.OutOrStdout(), expenseFile, category)
	},
}

var expenseDeleteCmd = &cobra.Command{
	Use:   "delete <row>",
	Short: "Delete an expense by its row number (see list)",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		row, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("row must be a number: %q", args[0])
		}
		if err := deleteExpense(expenseFile, row); err != nil {
			return err
		}
		fmt.Printf("Deleted row %d\n", row)
		return nil
	},
}

var expenseImportCmd = &cobra.Command{
	Use:   "import <csv>",
	Short: "Append expenses from another CSV file",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		n, err := importExpenses(expenseFile, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d expenses from %s\n", n, args[0])
		return nil
	},
}

var expenseExportCmd = &cobra.Command{
	Use:   "export <dest>",
	Short: "Write the expense ledger to another CSV file",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		rows, err := expenses.LoadCSV(expenseFile)
		if err != nil {
			return err
		}
		if err := expenses.WriteCSV(args[0], rows); err != nil {
			return err
		}
		fmt.Printf("Exported %d expenses to %s\n", len(rows), args[0])
		return nil
	},
}

// loadLedger reads the ledger, treating a missing file as empty.
func loadLedger(path string) ([]expenses.Expense, error) {
	rows, err := expenses.LoadCSV(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	return rows, err
}

func addExpense(path string, expense expenses.Expense) error {
	rows, err := loadLedger(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return expenses.WriteCSV(path, append(rows, expense))
}

func deleteExpense(path string, row int) error {
	rows, err := expenses.LoadCSV(path)
	if err != nil {
		return err
	}
	if row < 1 || row > len(rows) {
		return fmt.Errorf("row %d out of range (ledger has %d)", row, len(rows))
	}
	rows = append(rows[:row-1], rows[row:]...)
	return expenses.WriteCSV(path, rows)
}

func importExpenses(path, from string) (int, error) {
	incoming, err := expenses.LoadCSV(from)
	if err != nil {
		return 0, err
	}
	rows, err := loadLedger(path)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return 0, err
	}
	if err := expenses.WriteCSV(path, append(rows, incoming...)); err != nil {
		return 0, err
	}
	return len(incoming), nil
}

func listExpenses(w io.Writer, path, category string) error {
	rows, err := loadLedger(path)
	if err != nil {
		return err
	}
	if category != "" {
		parsed, err := expenses.ParseCategory(category)
		if err != nil {
			return err
		}
		rows = lo.Filter(rows, func(e expenses.Expense, _ int) bool {
			return e.Category == parsed
		})
	}

	if len(rows) == 0 {
		fmt.Fprintln(w, "No expenses recorded.")
		return nil
	}

	for i, e := range rows {
		fmt.Fprintf(w, "%3d  %s  %-12s %-20s $%9.2f  %s\n",
			i+1, e.Date, e.Category.Display(), e.Vendor, e.AmountUSD, e.Description)
	}
	fmt.Fprintf(w, "\nTotal: $%.2f across %d expenses\n", expenses.Total(rows), len(rows))

	for _, ct := range expenses.ByCategory(rows) {
		fmt.Fprintf(w, "  %-12s $%9.2f\n", ct.Category.Display(), ct.USD)
	}
	return nil
}
