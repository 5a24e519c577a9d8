// Package config provides configuration loading and parsing for block-parliament.
package config

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/mo"

	"github.com/grod220/block-parliament/internal/cache"
	"github.com/grod220/block-parliament/internal/epochs"
)

// RuntimeConfig defines the interface for accessing runtime configuration that
// supports hot-reload. Components that need to observe config changes should
// use this interface instead of holding a direct *Config pointer, which would
// become stale after hot-reload.
type RuntimeConfig interface {
	Get() *Config
}

// Log level constants.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// HeliusRPCBase is the Helius RPC endpoint; the API key is appended.
const HeliusRPCBase = "https://mainnet.helius-rpc.com/?api-key="

// PublicRPCURL is the rate-limited public mainnet endpoint used as a
// fallback when no Helius key is configured.
const PublicRPCURL = "https://api.mainnet-beta.solana.com"

// Config represents the complete block-parliament configuration.
type Config struct {
	Validator ValidatorConfig `toml:"validator" yaml:"validator"`
	APIKeys   APIKeysConfig   `toml:"api_keys" yaml:"api_keys"`
	Notion    NotionConfig    `toml:"notion" yaml:"notion"`
	RPC       RPCConfig       `toml:"rpc" yaml:"rpc"`
	Server    ServerConfig    `toml:"server" yaml:"server"`
	Cache     cache.Config    `toml:"cache" yaml:"cache"`
	Logging   LoggingConfig   `toml:"logging" yaml:"logging"`
}

// ValidatorConfig identifies the validator and its economics.
type ValidatorConfig struct {
	Name    string `toml:"name" yaml:"name"`
	Tagline string `toml:"tagline" yaml:"tagline"`

	// Pubkeys. Everything else is fetched from APIs using these.
	VoteAccount       string `toml:"vote_account" yaml:"vote_account"`
	Identity          string `toml:"identity" yaml:"identity"`
	WithdrawAuthority string `toml:"withdraw_authority" yaml:"withdraw_authority"`

	// PersonalWallet is the operator wallet, used to detect seeding
	// transfers.
	PersonalWallet string `toml:"personal_wallet" yaml:"personal_wallet"`

	// CommissionPercent is the inflation reward commission rate.
	CommissionPercent int `toml:"commission_percent" yaml:"commission_percent"`

	// JitoMevCommissionBps is the MEV commission in basis points
	// (1000 = 10%).
	JitoMevCommissionBps int `toml:"jito_mev_commission_bps" yaml:"jito_mev_commission_bps"`

	// FirstRewardEpoch is the first epoch the validator earned rewards.
	FirstRewardEpoch uint64 `toml:"first_reward_epoch" yaml:"first_reward_epoch"`

	// SFDPAcceptanceDate anchors the declining vote-cost coverage schedule.
	SFDPAcceptanceDate string `toml:"sfdp_acceptance_date" yaml:"sfdp_acceptance_date"`

	// BootstrapDate is when the validator was first set up, used to find
	// initial seeding transfers.
	BootstrapDate string `toml:"bootstrap_date" yaml:"bootstrap_date"`
}

// APIKeysConfig holds upstream API credentials. Values support ${ENV_VAR}
// expansion at load time.
type APIKeysConfig struct {
	// Helius holds the Helius RPC key. Helius retains the historical
	// transaction data the public endpoint lacks.
	Helius string `toml:"helius" yaml:"helius"`

	// Coingecko holds the CoinGecko demo API key for price lookups.
	Coingecko string `toml:"coingecko" yaml:"coingecko"`
}

// NotionConfig enables the contractor hours import. Leaving both fields
// empty disables the integration.
type NotionConfig struct {
	APIToken        string `toml:"api_token" yaml:"api_token"`
	HoursDatabaseID string `toml:"hours_database_id" yaml:"hours_database_id"`
}

// IsEnabled returns true if the Notion integration is configured.
func (n *NotionConfig) IsEnabled() bool {
	return n.APIToken != "" && n.HoursDatabaseID != ""
}

// RPCConfig controls which Solana RPC endpoints are used.
type RPCConfig struct {
	// URL overrides the derived endpoint entirely when set.
	URL string `toml:"url" yaml:"url"`

	// FallbackURLs are tried in order when the primary endpoint fails.
	FallbackURLs []string `toml:"fallback_urls" yaml:"fallback_urls"`
}

// ServerConfig defines dashboard server settings.
type ServerConfig struct {
	Listen string `toml:"listen" yaml:"listen"`

	// APIKey guards the admin endpoints (cache purge). Empty disables them.
	APIKey string `toml:"api_key" yaml:"api_key"`

	TimeoutMS int `toml:"timeout_ms" yaml:"timeout_ms"`

	// RateLimitRPM is the per-client request budget for the public API.
	// Zero disables rate limiting.
	RateLimitRPM int `toml:"rate_limit_rpm" yaml:"rate_limit_rpm"`

	// EnableHTTP2 turns on HTTP/2 cleartext (h2c) support.
	EnableHTTP2 bool `toml:"enable_http2" yaml:"enable_http2"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`   // debug, info, warn, error
	Format string `toml:"format" yaml:"format"` // json, console
	Output string `toml:"output" yaml:"output"` // stdout, stderr, or file path
	Pretty bool   `toml:"pretty" yaml:"pretty"` // enable colored console output
}

// ParseLevel converts a string log level to zerolog.Level.
// Returns zerolog.InfoLevel if the level string is invalid.
func (l *LoggingConfig) ParseLevel() zerolog.Level {
	switch strings.ToLower(l.Level) {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// RPCURL resolves the effective primary RPC endpoint: explicit override,
// then Helius with the configured key, then the public endpoint.
func (c *Config) RPCURL() string {
	if c.RPC.URL != "" {
		return c.RPC.URL
	}
	if c.APIKeys.Helius != "" {
		return HeliusRPCBase + c.APIKeys.Helius
	}
	return PublicRPCURL
}

// RPCEndpoints returns the primary endpoint followed by any fallbacks.
func (c *Config) RPCEndpoints() []string {
	return append([]string{c.RPCURL()}, c.RPC.FallbackURLs...)
}

// IsOurAccount reports whether the address is one of the validator's own
// accounts (vote, identity, withdraw authority).
func (c *Config) IsOurAccount(address string) bool {
	v := &c.Validator
	return address == v.VoteAccount || address == v.Identity || address == v.WithdrawAuthority
}

// IsRelevantAccount reports whether the address is any tracked account,
// including the personal wallet.
func (c *Config) IsRelevantAccount(address string) bool {
	return c.IsOurAccount(address) || address == c.Validator.PersonalWallet
}

// SFDPCoveragePercent returns the vote-cost coverage fraction for a date.
// The schedule declines from the acceptance date: months 1-3 100%,
// 4-6 75%, 7-9 50%, 10-12 25%, then 0%. Dates before acceptance get 0.
func (c *Config) SFDPCoveragePercent(date time.Time) float64 {
	acceptance, err := time.Parse(epochs.DateLayout, c.Validator.SFDPAcceptanceDate)
	if err != nil {
		return 0
	}

	months := (date.Year()-acceptance.Year())*12 + int(date.Month()) - int(acceptance.Month())

	switch {
	case months < 0:
		return 0
	case months < 3:
		return 1.0
	case months < 6:
		return 0.75
	case months < 9:
		return 0.50
	case months < 12:
		return 0.25
	default:
		return 0
	}
}

// GetTimeoutOption returns the server timeout as a duration Option.
// Returns None if TimeoutMS is zero or negative.
func (s *ServerConfig) GetTimeoutOption() mo.Option[time.Duration] {
	if s.TimeoutMS <= 0 {
		return mo.None[time.Duration]()
	}
	return mo.Some(time.Duration(s.TimeoutMS) * time.Millisecond)
}

// GetRateLimitOption returns the per-client rate limit as an Option.
// Returns None if rate limiting is disabled.
func (s *ServerConfig) GetRateLimitOption() mo.Option[int] {
	if s.RateLimitRPM <= 0 {
		return mo.None[int]()
	}
	return mo.Some(s.RateLimitRPM)
}

// IsAdminEnabled returns true if the admin endpoints are guarded by a key.
func (s *ServerConfig) IsAdminEnabled() bool {
	return s.APIKey != ""
}
