package main

import (
	"github.com/rs/zerolog"

	"github.com/grod220/block-parliament/internal/health"
	"github.com/grod220/block-parliament/internal/sources"
)

// newUpstreamClient builds the shared fetch layer with a circuit-breaker
// tracker, the same wiring the serve path gets through DI. The CLI
// paths page through signatures and fetch blocks per slot, so they need
// the breakers most.
func newUpstreamClient(logger zerolog.Logger, opts ...sources.Option) (*sources.Client, *health.Tracker) {
	tracker := health.NewTracker(health.CircuitBreakerConfig{}, &logger)
	opts = append([]sources.Option{sources.WithTracker(tracker)}, opts...)
	return sources.NewClient(logger, opts...), tracker
}
