package styling

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a styling record from a YAML (or JSON, which YAML subsumes)
// file. A missing file is not an error: the shipped Default() record is
// returned, matching the build tool's behavior of falling back to its
// defaults when no configuration file is present.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open styling config %s: %w", path, err)
	}
	defer file.Close() //nolint:errcheck // read-only handle

	cfg, err := LoadFromReader(file)
	if err != nil {
		return nil, fmt.Errorf("styling config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader parses a styling record from an io.Reader.
// The record is constructed once and treated as read-only by callers.
func LoadFromReader(r io.Reader) (*Config, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read styling config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse styling config: %w", err)
	}

	if cfg.Plugins == nil {
		cfg.Plugins = []PluginRef{}
	}

	return &cfg, nil
}
