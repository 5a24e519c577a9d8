package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} placeholders in config values.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Format identifies a config file serialization format.
type Format int

const (
	// FormatTOML is the primary config format.
	FormatTOML Format = iota
	// FormatYAML is accepted as an alternative.
	FormatYAML
)

// Load reads and parses a config file, expanding ${ENV_VAR} references
// before unmarshaling. The format is detected from the file extension,
// defaulting to TOML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return LoadFromBytes(data, detectFormat(path))
}

// LoadFromBytes parses config data in the given format.
func LoadFromBytes(data []byte, format Format) (*Config, error) {
	expanded := expandEnvVars(string(data))

	cfg := Default()
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	default:
		if err := toml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a config populated with defaults that hold before any
// file values are applied.
func Default() *Config {
	cfg := &Config{}
	cfg.Validator.CommissionPercent = 10
	cfg.Validator.JitoMevCommissionBps = 1000
	cfg.Server.Listen = "127.0.0.1:8080"
	cfg.Server.TimeoutMS = 30000
	cfg.Logging.Level = LevelInfo
	cfg.Logging.Format = "console"
	cfg.Logging.Output = "stderr"
	cfg.Cache.ApplyDefaults()
	return cfg
}

// detectFormat picks the parse format from a file extension.
func detectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// expandEnvVars replaces ${VAR_NAME} placeholders with environment values.
// Unset variables expand to an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})
}
