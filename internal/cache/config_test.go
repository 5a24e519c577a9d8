package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigApplyDefaults(t *testing.T) {
	t.Parallel()

	cfg := Config{}
	cfg.ApplyDefaults()

	assert.Equal(t, ModeDisk, cfg.Mode)
	assert.Equal(t, "cache", cfg.Disk.Path)
	assert.Equal(t, int64(1_000_000), cfg.Memory.NumCounters)
	assert.Equal(t, int64(100<<20), cfg.Memory.MaxCost)
	assert.Equal(t, int64(64), cfg.Memory.BufferItems)
}

func TestConfigApplyDefaultsKeepsExplicit(t *testing.T) {
	t.Parallel()

	cfg := Config{Mode: ModeMemory, Memory: MemoryConfig{MaxCost: 1 << 20}}
	cfg.ApplyDefaults()

	assert.Equal(t, ModeMemory, cfg.Mode)
	assert.Equal(t, int64(1<<20), cfg.Memory.MaxCost)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid disk", Config{Mode: ModeDisk, Disk: DiskConfig{Path: "/tmp/cache"}}, false},
		{"disk without path", Config{Mode: ModeDisk}, true},
		{"valid memory", Config{Mode: ModeMemory, Memory: MemoryConfig{NumCounters: 100, MaxCost: 1024}}, false},
		{"memory zero cost", Config{Mode: ModeMemory, Memory: MemoryConfig{NumCounters: 100}}, true},
		{"memory zero counters", Config{Mode: ModeMemory, Memory: MemoryConfig{MaxCost: 1024}}, true},
		{"disabled", Config{Mode: ModeDisabled}, false},
		{"empty mode", Config{}, true},
		{"unknown mode", Config{Mode: "redis"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
