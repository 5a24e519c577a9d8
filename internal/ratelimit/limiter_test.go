package ratelimit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestLimiterAllowWithinBudget(t *testing.T) {
	t.Parallel()

	l := NewLimiter(30)
	for i := 0; i < 30; i++ {
		assert.True(t, l.Allow(), "call %d within burst", i)
	}
	assert.False(t, l.Allow(), "budget exhausted")
}

func TestLimiterUnlimited(t *testing.T) {
	t.Parallel()

	l := NewLimiter(0)
	for i := 0; i < 1000; i++ {
		require.True(t, l.Allow())
	}
}

func TestLimiterSetLimit(t *testing.T) {
	t.Parallel()

	l := NewLimiter(5)
	l.SetLimit(100)

	usage := l.GetUsage()
	assert.Equal(t, 100, usage.Limit)
	assert.Equal(t, 100, usage.Remaining)
}

func TestLimiterUsageTracksConsumption(t *testing.T) {
	t.Parallel()

	l := NewLimiter(10)
	require.True(t, l.Allow())
	require.True(t, l.Allow())

	usage := l.GetUsage()
	assert.Equal(t, 10, usage.Limit)
	assert.LessOrEqual(t, usage.Remaining, 8)
	assert.Equal(t, usage.Limit-usage.Remaining, usage.Used)
}

func TestLimiterWaitCancelled(t *testing.T) {
	t.Parallel()

	l := NewLimiter(1)
	require.True(t, l.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Wait(ctx), ErrContextCancelled)
}

func TestLimiterUsageInvariants(t *testing.T) {
	t.Parallel()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("usage stays within bounds for any rpm and call count", prop.ForAll(
		func(rpm int, calls int) bool {
			l := NewLimiter(rpm)
			for i := 0; i < calls; i++ {
				l.Allow()
			}
			u := l.GetUsage()
			return u.Remaining >= 0 &&
				u.Remaining <= u.Limit &&
				u.Used == u.Limit-u.Remaining
		},
		gen.IntRange(1, 500),
		gen.IntRange(0, 600),
	))

	properties.TestingRun(t)
}
