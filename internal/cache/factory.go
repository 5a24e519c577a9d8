package cache

import (
	"context"
	"fmt"
	"time"
)

// New creates a new Cache based on the configuration.
// It returns an error if the configuration is invalid or if the cache
// backend fails to initialize.
//
// The context is included for API consistency; current backends
// initialize synchronously.
func New(ctx context.Context, cfg *Config) (Cache, error) {
	log := logger().With().Str("component", "cache_factory").Logger()
	start := time.Now()

	if err := cfg.Validate(); err != nil {
		log.Debug().Err(err).Str("mode", string(cfg.Mode)).Msg("cache factory: validation failed")
		return nil, err
	}

	var c Cache
	var err error

	switch cfg.Mode {
	case ModeMemory:
		c, err = newRistrettoCache(cfg.Memory)
	case ModeDisk:
		c, err = newBadgerCache(cfg.Disk)
	case ModeDisabled:
		c = newNoopCache()
	default:
		return nil, fmt.Errorf("cache: unknown mode %q", cfg.Mode)
	}

	if err != nil {
		log.Error().Err(err).Str("mode", string(cfg.Mode)).Msg("cache factory: backend initialization failed")
		return nil, err
	}

	log.Info().
		Str("mode", string(cfg.Mode)).
		Dur("init_time", time.Since(start)).
		Msg("cache factory: backend initialized")

	return c, nil
}
