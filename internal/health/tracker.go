package health

import (
	"sync"

	"github.com/rs/zerolog"
)

// Tracker manages per-source circuit breakers. It is safe for
// concurrent use and creates breakers lazily on first reference.
type Tracker struct {
	circuits map[string]*CircuitBreaker
	logger   *zerolog.Logger
	config   CircuitBreakerConfig
	mu       sync.RWMutex
}

// NewTracker creates a new Tracker with the given configuration.
func NewTracker(cfg CircuitBreakerConfig, logger *zerolog.Logger) *Tracker {
	return &Tracker{
		circuits: make(map[string]*CircuitBreaker),
		config:   cfg,
		logger:   logger,
	}
}

// GetOrCreateCircuit returns the circuit breaker for a source, creating
// it if necessary.
func (t *Tracker) GetOrCreateCircuit(source string) *CircuitBreaker {
	t.mu.RLock()
	cb, exists := t.circuits[source]
	t.mu.RUnlock()
	if exists {
		return cb
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Double-check after acquiring the write lock.
	if cb, exists = t.circuits[source]; exists {
		return cb
	}

	cb = NewCircuitBreaker(source, t.config, t.logger)
	t.circuits[source] = cb

	if t.logger != nil {
		t.logger.Debug().Str("source", source).Msg("created circuit breaker")
	}
	return cb
}

// IsHealthy reports whether a source's circuit allows traffic.
// CLOSED and HALF-OPEN count as healthy; only OPEN is unhealthy.
func (t *Tracker) IsHealthy(source string) bool {
	return t.GetState(source) != StateOpen
}

// GetState returns the current state of a source's circuit breaker.
// Returns StateClosed if no circuit exists yet (healthy by default).
func (t *Tracker) GetState(source string) State {
	t.mu.RLock()
	cb, exists := t.circuits[source]
	t.mu.RUnlock()

	if !exists {
		return StateClosed
	}
	return cb.State()
}

// RecordSuccess records a successful operation for a source.
func (t *Tracker) RecordSuccess(source string) {
	t.GetOrCreateCircuit(source).ReportSuccess()
}

// RecordFailure records a failed operation for a source.
func (t *Tracker) RecordFailure(source string, err error) {
	cb := t.GetOrCreateCircuit(source)
	cb.ReportFailure(err)

	if t.logger != nil {
		t.logger.Debug().
			Str("source", source).
			Str("state", cb.State().String()).
			Err(err).
			Msg("recorded failure")
	}
}

// AllStates returns a snapshot of all source circuit states.
// The dashboard health endpoint reports this.
func (t *Tracker) AllStates() map[string]State {
	t.mu.RLock()
	defer t.mu.RUnlock()

	states := make(map[string]State, len(t.circuits))
	for name, cb := range t.circuits {
		states[name] = cb.State()
	}
	return states
}
