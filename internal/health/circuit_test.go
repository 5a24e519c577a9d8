package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitLifecycle(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker("solana", fastConfig(), nil)
	assert.Equal(t, "solana", cb.Name())
	assert.Equal(t, StateClosed, cb.State())

	boom := errors.New("rpc error")
	for i := 0; i < 3; i++ {
		cb.ReportFailure(boom)
	}
	assert.Equal(t, StateOpen, cb.State())

	// While open, Allow rejects and reports are skipped.
	_, err := cb.Allow()
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, cb.ReportSuccess())
	assert.False(t, cb.ReportFailure(boom))

	// After the open duration, a successful probe closes the circuit.
	time.Sleep(100 * time.Millisecond)
	require.True(t, cb.ReportSuccess())
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitReopensOnFailedProbe(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker("jito", fastConfig(), nil)
	boom := errors.New("jito down")

	for i := 0; i < 3; i++ {
		cb.ReportFailure(boom)
	}
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(100 * time.Millisecond)
	require.True(t, cb.ReportFailure(boom), "half-open probe recorded")
	assert.Equal(t, StateOpen, cb.State())
}

func TestCanceledContextNotAFailure(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker("coingecko", fastConfig(), nil)
	for i := 0; i < 10; i++ {
		cb.ReportFailure(context.Canceled)
	}
	assert.Equal(t, StateClosed, cb.State(), "user cancellation must not trip the breaker")
}
