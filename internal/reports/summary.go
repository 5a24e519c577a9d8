package reports

import (
	"fmt"
	"sort"
	"strings"
)

// monthTotals accumulates one month (or one year) of P&L inputs.
type monthTotals struct {
	CommissionSOL     float64
	CommissionUSD     float64
	LeaderFeesSOL     float64
	LeaderFeesUSD     float64
	MevSOL            float64
	MevUSD            float64
	SFDPSOL           float64
	SFDPUSD           float64
	VoteCostsSOL      float64
	VoteCostsGrossUSD float64
	VoteCostsNetUSD   float64
	OtherExpensesUSD  float64
}

func (m monthTotals) revenueUSD() float64 {
	// SFDP reimbursements are an expense offset, not revenue.
	return m.CommissionUSD + m.LeaderFeesUSD + m.MevUSD
}

func (m monthTotals) expensesUSD() float64 {
	return m.VoteCostsNetUSD + m.OtherExpensesUSD
}

func (m *monthTotals) add(o monthTotals) {
	m.CommissionSOL += o.CommissionSOL
	m.CommissionUSD += o.CommissionUSD
	m.LeaderFeesSOL += o.LeaderFeesSOL
	m.LeaderFeesUSD += o.LeaderFeesUSD
	m.MevSOL += o.MevSOL
	m.MevUSD += o.MevUSD
	m.SFDPSOL += o.SFDPSOL
	m.SFDPUSD += o.SFDPUSD
	m.VoteCostsSOL += o.VoteCostsSOL
	m.VoteCostsGrossUSD += o.VoteCostsGrossUSD
	m.VoteCostsNetUSD += o.VoteCostsNetUSD
	m.OtherExpensesUSD += o.OtherExpensesUSD
}

func monthOf(date string) (string, bool) {
	if len(date) < 7 {
		return "", false
	}
	return date[:7], true
}

// aggregateMonthly buckets every revenue and expense stream by month.
func aggregateMonthly(data *Data) map[string]*monthTotals {
	monthly := map[string]*monthTotals{}
	bucket := func(date string) *monthTotals {
		month, ok := monthOf(date)
		if !ok {
			return nil
		}
		if _, exists := monthly[month]; !exists {
			monthly[month] = &monthTotals{}
		}
		return monthly[month]
	}

	for _, r := range data.Rewards {
		if m := bucket(r.Date); m != nil {
			price := data.Prices.Price(r.Date)
			m.CommissionSOL += r.AmountSOL
			m.CommissionUSD += r.AmountSOL * price
		}
	}

	for _, t := range data.Categorized.SFDPReimbursements {
		if m := bucket(t.Date); m != nil {
			price := data.Prices.Price(t.Date)
			m.SFDPSOL += t.AmountSOL
			m.SFDPUSD += t.AmountSOL * price
		}
	}

	if len(data.MevClaims) == 0 {
		for _, t := range data.Categorized.MevDeposits {
			if m := bucket(t.Date); m != nil {
				price := data.Prices.Price(t.Date)
				m.MevSOL += t.AmountSOL
				m.MevUSD += t.AmountSOL * price
			}
		}
	} else {
		for _, c := range data.MevClaims {
			if m := bucket(c.Date); m != nil {
				price := data.Prices.Price(c.Date)
				m.MevSOL += c.CommissionSOL
				m.MevUSD += c.CommissionSOL * price
			}
		}
	}

	for _, f := range data.LeaderFees {
		if m := bucket(f.Date); m != nil {
			price := data.Prices.Price(f.Date)
			m.LeaderFeesSOL += f.FeeSOL
			m.LeaderFeesUSD += f.FeeSOL * price
		}
	}

	for _, c := range data.VoteCosts {
		if m := bucket(c.Date); m != nil {
			price := data.Prices.Price(c.Date)
			gross := c.FeeSOL * price
			cov := coverage(data.Config, c.Date)
			m.VoteCostsSOL += c.FeeSOL
			m.VoteCostsGrossUSD += gross
			m.VoteCostsNetUSD += gross * (1 - cov)
		}
	}

	for _, e := range data.Expenses {
		if m := bucket(e.Date); m != nil {
			m.OtherExpensesUSD += e.AmountUSD
		}
	}

	return monthly
}

func summaryRow(label string, m monthTotals, ytd string) []string {
	return []string{
		label,
		fmt.Sprintf("%.4f", m.CommissionSOL),
		fmt.Sprintf("%.2f", m.CommissionUSD),
		fmt.Sprintf("%.4f", m.LeaderFeesSOL),
		fmt.Sprintf("%.2f", m.LeaderFeesUSD),
		fmt.Sprintf("%.4f", m.MevSOL),
		fmt.Sprintf("%.2f", m.MevUSD),
		fmt.Sprintf("%.2f", m.revenueUSD()),
		fmt.Sprintf("%.4f", m.VoteCostsSOL),
		fmt.Sprintf("%.2f", m.VoteCostsGrossUSD),
		fmt.Sprintf("%.2f", m.VoteCostsGrossUSD-m.VoteCostsNetUSD),
		fmt.Sprintf("%.2f", m.VoteCostsNetUSD),
		fmt.Sprintf("%.2f", m.OtherExpensesUSD),
		fmt.Sprintf("%.2f", m.expensesUSD()),
		fmt.Sprintf("%.2f", m.revenueUSD()-m.expensesUSD()),
		ytd,
	}
}

// writeSummary generates the monthly P&L with annual total rows.
func writeSummary(dir string, data *Data, year int) error {
	header := []string{
		"Month",
		"Commission_SOL", "Commission_USD",
		"Leader_Fees_SOL", "Leader_Fees_USD",
		"MEV_SOL", "MEV_USD",
		"Total_Revenue_USD",
		"Vote_Costs_SOL", "Vote_Costs_Gross_USD", "SFDP_Offset_USD", "Vote_Costs_Net_USD",
		"Other_Expenses_USD", "Total_Expenses_USD",
		"Net_Profit_USD", "YTD_Profit_USD",
	}

	monthly := aggregateMonthly(data)

	months := make([]string, 0, len(monthly))
	for month := range monthly {
		if year != 0 && !strings.HasPrefix(month, fmt.Sprintf("%d-", year)) {
			continue
		}
		months = append(months, month)
	}
	sort.Strings(months)

	annual := map[string]*monthTotals{}
	var rows [][]string
	ytd := 0.0
	currentYear := ""

	for _, month := range months {
		m := monthly[month]
		y := month[:4]

		if y != currentYear {
			currentYear = y
			ytd = 0
		}
		ytd += m.revenueUSD() - m.expensesUSD()

		if _, ok := annual[y]; !ok {
			annual[y] = &monthTotals{}
		}
		annual[y].add(*m)

		rows = append(rows, summaryRow(month, *m, fmt.Sprintf("%.2f", ytd)))
	}

	years := make([]string, 0, len(annual))
	for y := range annual {
		years = append(years, y)
	}
	sort.Strings(years)
	for _, y := range years {
		rows = append(rows, summaryRow(y+" TOTAL", *annual[y], ""))
	}

	return writeCSV(dir, SummaryFile, header, rows)
}
