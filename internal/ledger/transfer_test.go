package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grod220/block-parliament/internal/addresses"
	"github.com/grod220/block-parliament/internal/config"
	"github.com/grod220/block-parliament/internal/sources"
)

const (
	testVote     = "4PL2ZFoZJHgkbZ54US4qNC58X69Fa1FKtY4CaVKeuQPg"
	testIdentity = "mD1afZhSisoXfJLT8nYwSFANqjr1KPoDUEpYTEfFX1e"
	testWithdraw = "AN58nFDFdehKbP7d3KALhnCJAsWNE7cWpCR6dLVAj9xm"
	testWallet   = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"
	testStranger = "Stranger1111111111111111111111111111111111"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Validator.VoteAccount = testVote
	cfg.Validator.Identity = testIdentity
	cfg.Validator.WithdrawAuthority = testWithdraw
	cfg.Validator.PersonalWallet = testWallet
	cfg.Validator.FirstRewardEpoch = 899
	return cfg
}

func TestParseTransfersOutgoing(t *testing.T) {
	t.Parallel()

	tx := &sources.Transaction{
		Signature:    "sig1",
		Slot:         400_000_000,
		BlockTime:    1766361600, // 2025-12-22
		AccountKeys:  []string{testWithdraw, testStranger},
		PreBalances:  []int64{5_000_000_000, 1_000_000_000},
		PostBalances: []int64{3_000_000_000, 3_000_000_000},
	}

	transfers := ParseTransfers(tx, testConfig())
	require.Len(t, transfers, 1)

	tr := transfers[0]
	assert.Equal(t, "sig1", tr.Signature)
	assert.Equal(t, testWithdraw, tr.From)
	assert.Equal(t, testStranger, tr.To)
	assert.Equal(t, uint64(2_000_000_000), tr.AmountLamports)
	assert.InDelta(t, 2.0, tr.AmountSOL, 1e-9)
	assert.Equal(t, "2025-12-22", tr.Date)
}

func TestParseTransfersIncoming(t *testing.T) {
	t.Parallel()

	// Relevant account gains; sender listed after it. Direction must
	// still come out sender -> receiver.
	tx := &sources.Transaction{
		Signature:    "sig2",
		Slot:         400_000_001,
		BlockTime:    1766361600,
		AccountKeys:  []string{testWallet, testStranger},
		PreBalances:  []int64{1_000_000_000, 9_000_000_000},
		PostBalances: []int64{2_500_000_000, 7_500_000_000},
	}

	transfers := ParseTransfers(tx, testConfig())
	require.Len(t, transfers, 1)
	assert.Equal(t, testStranger, transfers[0].From)
	assert.Equal(t, testWallet, transfers[0].To)
	assert.Equal(t, uint64(1_500_000_000), transfers[0].AmountLamports)
}

func TestParseTransfersDustFiltered(t *testing.T) {
	t.Parallel()

	tx := &sources.Transaction{
		Signature:    "sig3",
		AccountKeys:  []string{testWithdraw, testStranger},
		PreBalances:  []int64{5_000_000_000, 1_000_000_000},
		PostBalances: []int64{4_999_995_000, 1_000_005_000}, // fee-sized movement
	}

	assert.Empty(t, ParseTransfers(tx, testConfig()))
}

func TestParseTransfersIrrelevantAccounts(t *testing.T) {
	t.Parallel()

	tx := &sources.Transaction{
		Signature:    "sig4",
		AccountKeys:  []string{testStranger, "Another111111111111111111111111111111111111"},
		PreBalances:  []int64{5_000_000_000, 0},
		PostBalances: []int64{0, 5_000_000_000},
	}

	assert.Empty(t, ParseTransfers(tx, testConfig()))
}

func TestParseTransfersShortBalances(t *testing.T) {
	t.Parallel()

	tx := &sources.Transaction{
		Signature:    "sig5",
		AccountKeys:  []string{testWithdraw, testStranger},
		PreBalances:  []int64{5_000_000_000},
		PostBalances: []int64{3_000_000_000},
	}

	assert.Empty(t, ParseTransfers(tx, testConfig()))
}

func TestCategorize(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	mk := func(from, to string) Transfer {
		return Transfer{From: from, To: to, AmountLamports: 2_000_000_000}
	}

	transfers := []Transfer{
		mk(testWallet, testWithdraw),                 // seeding
		mk(addresses.SFDPReimbursement, testWithdraw), // reimbursement
		mk(testWithdraw, testVote),                   // vote funding
		mk(testWithdraw, testWallet),                 // withdrawal
		mk(testStranger, testWithdraw),               // other incoming
		mk(testWithdraw, testStranger),               // other outgoing
		mk(testStranger, "Third1111111111111111111111111111111111111"), // not ours
	}

	c := Categorize(transfers, cfg)
	assert.Len(t, c.Seeding, 1)
	assert.Len(t, c.SFDPReimbursements, 1)
	assert.Len(t, c.VoteFunding, 1)
	assert.Len(t, c.Withdrawals, 1)
	assert.Len(t, c.Other, 2)
	assert.Empty(t, c.MevDeposits)
}
