package config

import (
	"sync/atomic"
)

// Runtime holds the active configuration behind an atomic pointer so a
// file watcher can swap in a new config without locking readers.
type Runtime struct {
	current atomic.Pointer[Config]
}

// NewRuntime creates a Runtime seeded with the given config.
func NewRuntime(cfg *Config) *Runtime {
	r := &Runtime{}
	r.current.Store(cfg)
	return r
}

// Get returns the current configuration snapshot. The returned pointer
// must be treated as read-only.
func (r *Runtime) Get() *Config {
	return r.current.Load()
}

// Store atomically replaces the current configuration.
func (r *Runtime) Store(cfg *Config) {
	r.current.Store(cfg)
}

var _ RuntimeConfig = (*Runtime)(nil)
