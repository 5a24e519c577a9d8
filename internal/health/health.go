// Package health provides circuit breakers and health tracking for the
// upstream data sources (Solana RPC, CoinGecko, Jito, Stakewiz, SFDP).
//
// The package implements:
//   - Circuit breaker state machine (CLOSED -> OPEN -> HALF-OPEN -> CLOSED)
//   - Per-source failure tracking with automatic recovery probing
//   - Periodic health checks that detect recovery of OPEN sources
//
// A tripped breaker stops the collectors from hammering an upstream that
// is already failing, which matters most for the rate-limited free tiers.
package health

import (
	"errors"
	"time"
)

// Sentinel errors for health tracking.
var (
	// ErrCircuitOpen is returned when the circuit breaker is open and rejecting requests.
	ErrCircuitOpen = errors.New("health: circuit breaker is open")

	// ErrSourceUnhealthy is returned when a source is marked as unhealthy.
	ErrSourceUnhealthy = errors.New("health: source is unhealthy")
)

// Default configuration values.
const (
	DefaultFailureThreshold = 5     // consecutive failures to open circuit
	DefaultOpenDurationMS   = 30000 // 30 seconds before half-open
	DefaultHalfOpenProbes   = 3     // probes allowed in half-open state
	DefaultHealthCheckMS    = 15000 // 15 seconds between recovery checks
)

// CircuitBreakerConfig defines circuit breaker behavior.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before
	// opening the circuit. Default: 5
	FailureThreshold int `toml:"failure_threshold" yaml:"failure_threshold"`

	// OpenDurationMS is how long the circuit stays open before
	// transitioning to half-open. Default: 30000 (30 seconds)
	OpenDurationMS int `toml:"open_duration_ms" yaml:"open_duration_ms"`

	// HalfOpenProbes is the number of probe requests allowed in
	// half-open state. Default: 3
	HalfOpenProbes int `toml:"half_open_probes" yaml:"half_open_probes"`
}

// GetFailureThreshold returns the configured failure threshold or the default.
func (c *CircuitBreakerConfig) GetFailureThreshold() int {
	if c.FailureThreshold <= 0 {
		return DefaultFailureThreshold
	}
	return c.FailureThreshold
}

// GetOpenDuration returns the open duration as time.Duration.
func (c *CircuitBreakerConfig) GetOpenDuration() time.Duration {
	if c.OpenDurationMS <= 0 {
		return time.Duration(DefaultOpenDurationMS) * time.Millisecond
	}
	return time.Duration(c.OpenDurationMS) * time.Millisecond
}

// GetHalfOpenProbes returns the configured half-open probes or the default.
func (c *CircuitBreakerConfig) GetHalfOpenProbes() int {
	if c.HalfOpenProbes <= 0 {
		return DefaultHalfOpenProbes
	}
	return c.HalfOpenProbes
}

// CheckConfig defines recovery check behavior.
type CheckConfig struct {
	Enabled    *bool `toml:"enabled" yaml:"enabled"`
	IntervalMS int   `toml:"interval_ms" yaml:"interval_ms"`
}

// GetInterval returns the recovery check interval as time.Duration.
func (c *CheckConfig) GetInterval() time.Duration {
	if c.IntervalMS <= 0 {
		return time.Duration(DefaultHealthCheckMS) * time.Millisecond
	}
	return time.Duration(c.IntervalMS) * time.Millisecond
}

// IsEnabled returns whether recovery checks are enabled. Defaults to true.
func (c *CheckConfig) IsEnabled() bool {
	if c.Enabled == nil {
		return true
	}
	return *c.Enabled
}
