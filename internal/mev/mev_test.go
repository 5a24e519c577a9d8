package mev

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grod220/block-parliament/internal/sources"
)

type fakeSource struct {
	history []sources.MevEpoch
	err     error
}

func (f *fakeSource) MevHistory(_ context.Context, _ string) ([]sources.MevEpoch, error) {
	return f.history, f.err
}

func TestClaims(t *testing.T) {
	t.Parallel()

	source := &fakeSource{history: []sources.MevEpoch{
		{Epoch: 901, MevRewards: 50_000_000_000, MevCommissionBps: 1000},
		{Epoch: 899, MevRewards: 20_000_000_000, MevCommissionBps: 1000},
	}}
	tracker := NewTracker(source, "vote", zerolog.Nop())

	claims, err := tracker.Claims(context.Background())
	require.NoError(t, err)
	require.Len(t, claims, 2)

	assert.Equal(t, uint64(899), claims[0].Epoch, "sorted ascending")
	assert.Equal(t, uint64(2_000_000_000), claims[0].CommissionLamports, "10% of 20 SOL in tips")
	assert.InDelta(t, 2.0, claims[0].CommissionSOL, 1e-9)
	assert.Equal(t, "2025-12-22", claims[0].Date)

	assert.Equal(t, uint64(5_000_000_000), claims[1].CommissionLamports)
	assert.InDelta(t, 7.0, TotalSOL(claims), 1e-9)
}

func TestClaimsError(t *testing.T) {
	t.Parallel()

	tracker := NewTracker(&fakeSource{err: errors.New("kobe down")}, "vote", zerolog.Nop())
	_, err := tracker.Claims(context.Background())
	require.Error(t, err)
}
