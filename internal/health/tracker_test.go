package health

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func fastConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 3,
		OpenDurationMS:   50,
		HalfOpenProbes:   1,
	}
}

func TestTrackerDefaultsHealthy(t *testing.T) {
	t.Parallel()

	tr := NewTracker(fastConfig(), nil)
	assert.Equal(t, StateClosed, tr.GetState("coingecko"))
	assert.True(t, tr.IsHealthy("coingecko"))
}

func TestTrackerOpensAfterThreshold(t *testing.T) {
	t.Parallel()

	tr := NewTracker(fastConfig(), nil)
	errUpstream := errors.New("upstream down")

	for i := 0; i < 3; i++ {
		assert.True(t, tr.IsHealthy("solana"), "healthy until threshold reached")
		tr.RecordFailure("solana", errUpstream)
	}

	assert.Equal(t, StateOpen, tr.GetState("solana"))
	assert.False(t, tr.IsHealthy("solana"))

	// Other sources are unaffected.
	assert.True(t, tr.IsHealthy("jito"))
}

func TestTrackerSuccessResetsCount(t *testing.T) {
	t.Parallel()

	tr := NewTracker(fastConfig(), nil)
	errUpstream := errors.New("boom")

	tr.RecordFailure("stakewiz", errUpstream)
	tr.RecordFailure("stakewiz", errUpstream)
	tr.RecordSuccess("stakewiz")
	tr.RecordFailure("stakewiz", errUpstream)
	tr.RecordFailure("stakewiz", errUpstream)

	assert.Equal(t, StateClosed, tr.GetState("stakewiz"), "consecutive count reset by success")
}

func TestTrackerAllStates(t *testing.T) {
	t.Parallel()

	tr := NewTracker(fastConfig(), nil)
	tr.RecordSuccess("solana")
	tr.RecordSuccess("coingecko")

	states := tr.AllStates()
	assert.Len(t, states, 2)
	assert.Equal(t, StateClosed, states["solana"])
}

func TestTrackerConcurrentCreate(t *testing.T) {
	t.Parallel()

	tr := NewTracker(fastConfig(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.GetOrCreateCircuit("solana")
		}()
	}
	wg.Wait()

	assert.Len(t, tr.AllStates(), 1, "one breaker per source")
}

func TestShouldCountAsFailure(t *testing.T) {
	t.Parallel()

	assert.True(t, ShouldCountAsFailure(500, nil))
	assert.True(t, ShouldCountAsFailure(429, nil))
	assert.False(t, ShouldCountAsFailure(200, nil))
	assert.False(t, ShouldCountAsFailure(404, nil))
	assert.True(t, ShouldCountAsFailure(0, errors.New("dial error")))
}
