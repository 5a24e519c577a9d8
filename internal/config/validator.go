package config

import (
	"net"
	"strings"
	"time"

	"github.com/grod220/block-parliament/internal/epochs"
)

// base58Alphabet is the Bitcoin base58 set Solana pubkeys use. Note the
// absence of 0, O, I and l.
const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// Validate checks the entire configuration and returns a ValidationError
// listing every problem found.
func (c *Config) Validate() error {
	verr := &ValidationError{}

	c.validateValidator(verr)
	c.validateServer(verr)
	c.validateLogging(verr)

	if err := c.Cache.Validate(); err != nil {
		verr.Add("cache: %v", err)
	}

	return verr.OrNil()
}

func (c *Config) validateValidator(verr *ValidationError) {
	v := &c.Validator

	required := map[string]string{
		"validator.vote_account":       v.VoteAccount,
		"validator.identity":           v.Identity,
		"validator.withdraw_authority": v.WithdrawAuthority,
	}
	for field, value := range required {
		if value == "" {
			verr.Add("%s is required", field)
		} else if !isPubkey(value) {
			verr.Add("%s is not a valid base58 pubkey: %q", field, value)
		}
	}

	if v.PersonalWallet != "" && !isPubkey(v.PersonalWallet) {
		verr.Add("validator.personal_wallet is not a valid base58 pubkey: %q", v.PersonalWallet)
	}

	if v.CommissionPercent < 0 || v.CommissionPercent > 100 {
		verr.Add("validator.commission_percent must be 0-100, got %d", v.CommissionPercent)
	}
	if v.JitoMevCommissionBps < 0 || v.JitoMevCommissionBps > 10000 {
		verr.Add("validator.jito_mev_commission_bps must be 0-10000, got %d", v.JitoMevCommissionBps)
	}

	for field, value := range map[string]string{
		"validator.sfdp_acceptance_date": v.SFDPAcceptanceDate,
		"validator.bootstrap_date":       v.BootstrapDate,
	} {
		if value == "" {
			continue
		}
		if _, err := time.Parse(epochs.DateLayout, value); err != nil {
			verr.Add("%s must be YYYY-MM-DD, got %q", field, value)
		}
	}
}

func (c *Config) validateServer(verr *ValidationError) {
	s := &c.Server
	if s.Listen != "" {
		if _, _, err := net.SplitHostPort(s.Listen); err != nil {
			verr.Add("server.listen must be host:port, got %q", s.Listen)
		}
	}
	if s.TimeoutMS < 0 {
		verr.Add("server.timeout_ms must not be negative, got %d", s.TimeoutMS)
	}
	if s.RateLimitRPM < 0 {
		verr.Add("server.rate_limit_rpm must not be negative, got %d", s.RateLimitRPM)
	}
}

func (c *Config) validateLogging(verr *ValidationError) {
	l := &c.Logging
	switch l.Level {
	case "", LevelDebug, LevelInfo, LevelWarn, LevelError:
	default:
		verr.Add("logging.level must be one of debug, info, warn, error; got %q", l.Level)
	}
	switch l.Format {
	case "", "json", "console":
	default:
		verr.Add("logging.format must be json or console, got %q", l.Format)
	}
}

// isPubkey reports whether s looks like a base58-encoded Solana pubkey.
// This is a shape check, not a full decode.
func isPubkey(s string) bool {
	if len(s) < 32 || len(s) > 44 {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune(base58Alphabet, r) {
			return false
		}
	}
	return true
}
