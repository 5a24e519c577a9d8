package expenses

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleExpenses() []Expense {
	return []Expense{
		{Date: "2025-12-01", Vendor: "Latitude", Category: CategoryHosting, Description: "Bare metal, December", AmountUSD: 350, PaidWith: "Credit Card", InvoiceID: "INV-1201"},
		{Date: "2025-12-15", Vendor: "Jane", Category: CategoryContractor, Description: "Ops work", AmountUSD: 500, PaidWith: "USD"},
		{Date: "2026-01-03", Vendor: "Latitude", Category: CategoryHosting, Description: "Bare metal, January", AmountUSD: 350, PaidWith: "Credit Card", InvoiceID: "INV-0103"},
	}
}

func TestCSVRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "expenses.csv")
	require.NoError(t, WriteCSV(path, sampleExpenses()))

	loaded, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, sampleExpenses(), loaded)
}

func TestLoadCSVRejectsBadRows(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"bad date":        "not-a-date,V,hosting,d,10,USD,",
		"bad category":    "2025-12-01,V,yachts,d,10,USD,",
		"bad amount":      "2025-12-01,V,hosting,d,ten,USD,",
		"negative amount": "2025-12-01,V,hosting,d,-10,USD,",
	}

	for name, row := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "expenses.csv")
			content := "date,vendor,category,description,amount_usd,paid_with,invoice_id\n" + row + "\n"
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			_, err := LoadCSV(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "line 2")
		})
	}
}

func TestParseCategory(t *testing.T) {
	t.Parallel()

	c, err := ParseCategory("vote_fees")
	require.NoError(t, err)
	assert.Equal(t, CategoryVoteFees, c)

	c, err = ParseCategory("Vote Fees")
	require.NoError(t, err)
	assert.Equal(t, CategoryVoteFees, c)

	_, err = ParseCategory("yachts")
	require.Error(t, err)
}

func TestByCategory(t *testing.T) {
	t.Parallel()

	totals := ByCategory(sampleExpenses())
	require.Len(t, totals, 2)
	assert.Equal(t, CategoryHosting, totals[0].Category, "largest bucket first")
	assert.InDelta(t, 700.0, totals[0].USD, 1e-9)
	assert.Equal(t, CategoryContractor, totals[1].Category)
	assert.InDelta(t, 500.0, totals[1].USD, 1e-9)
}

func TestByMonth(t *testing.T) {
	t.Parallel()

	totals := ByMonth(sampleExpenses())
	require.Len(t, totals, 2)
	assert.Equal(t, "2025-12", totals[0].Month)
	assert.InDelta(t, 850.0, totals[0].USD, 1e-9)
	assert.Equal(t, "2026-01", totals[1].Month)
	assert.InDelta(t, 350.0, totals[1].USD, 1e-9)
}

func TestTotal(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1200.0, Total(sampleExpenses()), 1e-9)
	assert.Zero(t, Total(nil))
}
