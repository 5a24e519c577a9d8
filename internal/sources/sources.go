// Package sources implements clients for the upstream APIs the tracker
// and dashboard read from: Solana JSON-RPC, CoinGecko, the Jito MEV API,
// Stakewiz and the SFDP participant registry.
//
// All clients share a common fetch layer with retries, exponential
// backoff and circuit breaker integration. Rate-limited responses (429)
// back off far longer than transport errors, since the free tiers
// punish immediate retries.
package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/grod220/block-parliament/internal/health"
)

// Source name constants, used for circuit breakers and health reporting.
const (
	SourceSolana    = "solana"
	SourceCoinGecko = "coingecko"
	SourceJito      = "jito"
	SourceStakewiz  = "stakewiz"
	SourceSFDP      = "sfdp"
	SourceNotion    = "notion"
)

// Public API endpoints.
const (
	JitoAPIBase  = "https://kobe.mainnet.jito.network/api/v1"
	CoinGeckoAPI = "https://api.coingecko.com/api/v3"
	StakewizAPI  = "https://api.stakewiz.com"
	SFDPAPI      = "https://api.solana.org/api/community/v1/sfdp_participants"
)

// Sentinel errors.
var (
	// ErrRateLimited is returned when an upstream answers 429 on every attempt.
	ErrRateLimited = errors.New("sources: rate limited")

	// ErrNotFound is returned when an upstream has no data for the query.
	ErrNotFound = errors.New("sources: not found")
)

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	Source string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sources: %s returned status %d", e.Source, e.Code)
}

// Client carries the plumbing shared by every source client.
type Client struct {
	httpClient *http.Client
	log        zerolog.Logger
	tracker    *health.Tracker

	maxAttempts   int
	retryBase     time.Duration
	rateLimitBase time.Duration
	maxBodyBytes  int64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTracker wires a health tracker for circuit breaking.
func WithTracker(t *health.Tracker) Option {
	return func(c *Client) { c.tracker = t }
}

// WithMaxAttempts sets the attempt budget per fetch.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBackoff sets the base delays for normal and rate-limited retries.
// Intended for tests.
func WithBackoff(retry, rateLimited time.Duration) Option {
	return func(c *Client) {
		c.retryBase = retry
		c.rateLimitBase = rateLimited
	}
}

// NewClient creates the shared fetch layer.
func NewClient(logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		log:           logger.With().Str("component", "sources").Logger(),
		maxAttempts:   4,
		retryBase:     2 * time.Second,
		rateLimitBase: 30 * time.Second,
		maxBodyBytes:  32 << 20, // 32 MB, getBlock responses are large
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// buildRequest produces a fresh request for each attempt. Bodies cannot
// be reused across retries, hence the factory.
type buildRequest func(ctx context.Context) (*http.Request, error)

// fetch performs an HTTP request with retries and returns the response
// body. Backoff doubles per attempt; a 429 switches to the longer
// rate-limit base delay.
func (c *Client) fetch(ctx context.Context, source string, build buildRequest) ([]byte, error) {
	var done func(error)
	if c.tracker != nil {
		var err error
		done, err = c.tracker.GetOrCreateCircuit(source).Allow()
		if err != nil {
			return nil, err
		}
	}

	body, err := c.fetchWithRetries(ctx, source, build)
	if done != nil {
		if err != nil && !errors.Is(err, context.Canceled) {
			done(err)
		} else {
			done(nil)
		}
	}
	return body, err
}

func (c *Client) fetchWithRetries(ctx context.Context, source string, build buildRequest) ([]byte, error) {
	var lastErr error
	rateLimited := false

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			base := c.retryBase
			if rateLimited {
				base = c.rateLimitBase
			}
			delay := base << (attempt - 1)
			c.log.Debug().
				Str("source", source).
				Int("attempt", attempt).
				Dur("delay", delay).
				Bool("rate_limited", rateLimited).
				Msg("retrying upstream fetch")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := build(ctx)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			rateLimited = false
			lastErr = fmt.Errorf("sources: %s request failed: %w", source, err)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes))
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			rateLimited = true
			lastErr = fmt.Errorf("%w: %s", ErrRateLimited, source)
			continue
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			rateLimited = false
			lastErr = &StatusError{Source: source, Code: resp.StatusCode}
			// Client errors other than 429 will not improve on retry.
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return nil, lastErr
			}
			continue
		case readErr != nil:
			rateLimited = false
			lastErr = fmt.Errorf("sources: %s read body: %w", source, readErr)
			continue
		}

		return body, nil
	}

	return nil, fmt.Errorf("sources: %s failed after %d attempts: %w", source, c.maxAttempts, lastErr)
}
