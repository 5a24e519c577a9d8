package reports

import (
	"fmt"
	"io"
	"strings"

	"github.com/grod220/block-parliament/internal/expenses"
)

const rule = "============================================================"

// normalizeZero keeps -0.00 out of the output.
func normalizeZero(v float64) float64 {
	if v == 0 {
		return 0
	}
	return v
}

// PrintSummary writes the human-readable P&L to w. year filters to one
// calendar year; zero means everything.
func PrintSummary(w io.Writer, data *Data, year int) {
	matches := func(date string) bool {
		if year == 0 {
			return true
		}
		return strings.HasPrefix(date, fmt.Sprintf("%d-", year))
	}

	var commissionSOL, commissionUSD float64
	for _, r := range data.Rewards {
		if !matches(r.Date) {
			continue
		}
		commissionSOL += r.AmountSOL
		commissionUSD += r.AmountSOL * data.Prices.Price(dateOr(r.Date))
	}

	var mevSOL, mevUSD float64
	if len(data.MevClaims) == 0 {
		for _, t := range data.Categorized.MevDeposits {
			if !matches(t.Date) {
				continue
			}
			mevSOL += t.AmountSOL
			mevUSD += t.AmountSOL * data.Prices.Price(dateOr(t.Date))
		}
	} else {
		for _, c := range data.MevClaims {
			if !matches(c.Date) {
				continue
			}
			mevSOL += c.CommissionSOL
			mevUSD += c.CommissionSOL * data.Prices.Price(dateOr(c.Date))
		}
	}

	var leaderSOL, leaderUSD float64
	for _, f := range data.LeaderFees {
		if !matches(f.Date) {
			continue
		}
		leaderSOL += f.FeeSOL
		leaderUSD += f.FeeSOL * data.Prices.Price(dateOr(f.Date))
	}

	var seedingSOL float64
	for _, t := range data.Categorized.Seeding {
		if matches(t.Date) {
			seedingSOL += t.AmountSOL
		}
	}

	var voteSOL, voteGrossUSD, voteNetUSD float64
	for _, c := range data.VoteCosts {
		date := dateOr(c.Date)
		if !matches(date) {
			continue
		}
		gross := c.FeeSOL * data.Prices.Price(date)
		cov := coverage(data.Config, date)
		voteSOL += c.FeeSOL
		voteGrossUSD += gross
		voteNetUSD += gross * (1 - cov)
	}

	var otherUSD, hostingUSD, contractorUSD float64
	for _, e := range data.Expenses {
		if !matches(e.Date) {
			continue
		}
		otherUSD += e.AmountUSD
		switch e.Category {
		case expenses.CategoryHosting:
			hostingUSD += e.AmountUSD
		case expenses.CategoryContractor:
			contractorUSD += e.AmountUSD
		}
	}

	revenueUSD := commissionUSD + leaderUSD + mevUSD
	expensesUSD := voteNetUSD + otherUSD
	netProfit := revenueUSD - expensesUSD

	fmt.Fprintf(w, "\n%s\n", rule)
	if year != 0 {
		fmt.Fprintf(w, "                FINANCIAL SUMMARY (%d)\n", year)
	} else {
		fmt.Fprintln(w, "                    FINANCIAL SUMMARY")
	}
	fmt.Fprintf(w, "%s\n\n", rule)

	fmt.Fprintln(w, "REVENUE:")
	fmt.Fprintf(w, "  Commission:         %10.4f SOL  $%10.2f\n", normalizeZero(commissionSOL), normalizeZero(commissionUSD))
	fmt.Fprintf(w, "  Leader Fees:        %10.4f SOL  $%10.2f\n", normalizeZero(leaderSOL), normalizeZero(leaderUSD))
	fmt.Fprintf(w, "  Jito MEV:           %10.4f SOL  $%10.2f\n", normalizeZero(mevSOL), normalizeZero(mevUSD))
	fmt.Fprintf(w, "  Total Revenue:      %10.4f SOL  $%10.2f\n", normalizeZero(commissionSOL+leaderSOL+mevSOL), normalizeZero(revenueUSD))

	fmt.Fprintln(w, "\nEXPENSES:")
	fmt.Fprintf(w, "  Vote Fees (gross):  %10.4f SOL  $%10.2f\n", voteSOL, voteGrossUSD)
	fmt.Fprintf(w, "  SFDP Offset:                   -$%10.2f\n", voteGrossUSD-voteNetUSD)
	fmt.Fprintf(w, "  Vote Fees (net):                $%10.2f\n", voteNetUSD)
	fmt.Fprintf(w, "  Hosting:                        $%10.2f\n", hostingUSD)
	fmt.Fprintf(w, "  Contractor:                     $%10.2f\n", contractorUSD)
	fmt.Fprintf(w, "  Total Expenses:                 $%10.2f\n", expensesUSD)

	fmt.Fprintln(w, "\nPROFIT/LOSS:")
	fmt.Fprintf(w, "  Net Profit:                     $%10.2f\n", netProfit)

	fmt.Fprintln(w, "\nCAPITAL:")
	fmt.Fprintf(w, "  Initial Seeding:    %10.4f SOL\n", normalizeZero(seedingSOL))
	fmt.Fprintf(w, "  Transfers found:    %d\n", len(data.Categorized.Seeding)+len(data.Categorized.VoteFunding))
	fmt.Fprintf(w, "%s\n", rule)
}
