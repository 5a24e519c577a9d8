package cache

import (
	"errors"
	"fmt"
)

// Mode represents the cache operating mode.
type Mode string

const (
	// ModeMemory uses the local Ristretto cache.
	// Fast, but contents are lost when the process exits.
	ModeMemory Mode = "memory"

	// ModeDisk uses a Badger database on disk (default).
	// Historical chain data never changes, so persisting it across runs
	// saves a large amount of RPC traffic.
	ModeDisk Mode = "disk"

	// ModeDisabled uses the noop cache (caching disabled).
	// All operations return immediately without storing data.
	ModeDisabled Mode = "disabled"
)

// Config defines cache configuration.
// Use Validate() to check for configuration errors before creating a cache.
type Config struct {
	Mode   Mode         `toml:"mode" yaml:"mode"`
	Disk   DiskConfig   `toml:"disk" yaml:"disk"`
	Memory MemoryConfig `toml:"memory" yaml:"memory"`
}

// DiskConfig configures the Badger persistent cache.
type DiskConfig struct {
	// Path is the directory holding the database files. Empty defaults
	// to "cache" in the working directory.
	Path string `toml:"path" yaml:"path"`

	// SyncWrites forces an fsync on every write. Slower, but the cache
	// is rebuildable from upstream so the default is off.
	SyncWrites bool `toml:"sync_writes" yaml:"sync_writes"`
}

// MemoryConfig configures the Ristretto local cache.
type MemoryConfig struct {
	// NumCounters is the number of 4-bit access counters.
	// Recommended: 10x expected max items.
	NumCounters int64 `toml:"num_counters" yaml:"num_counters"`

	// MaxCost is the maximum memory the cache can hold, in bytes of
	// cached values.
	MaxCost int64 `toml:"max_cost" yaml:"max_cost"`

	// BufferItems is the number of keys per Get buffer.
	// Recommended: 64 (default).
	BufferItems int64 `toml:"buffer_items" yaml:"buffer_items"`
}

// ApplyDefaults fills in zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeDisk
	}
	if c.Disk.Path == "" {
		c.Disk.Path = "cache"
	}
	if c.Memory.NumCounters == 0 {
		c.Memory.NumCounters = 1_000_000
	}
	if c.Memory.MaxCost == 0 {
		c.Memory.MaxCost = 100 << 20 // 100 MB
	}
	if c.Memory.BufferItems == 0 {
		c.Memory.BufferItems = 64
	}
}

// Validate checks the configuration for errors.
// Returns nil if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeMemory:
		if c.Memory.MaxCost <= 0 {
			return errors.New("cache: memory.max_cost must be positive")
		}
		if c.Memory.NumCounters <= 0 {
			return errors.New("cache: memory.num_counters must be positive")
		}
	case ModeDisk:
		if c.Disk.Path == "" {
			return errors.New("cache: disk.path is required")
		}
	case ModeDisabled:
		// No validation needed for disabled mode
	case "":
		return errors.New("cache: mode is required")
	default:
		return fmt.Errorf("cache: unknown mode %q", c.Mode)
	}
	return nil
}
