// Package ratelimit paces outbound requests to the upstream APIs.
//
// Two tools are provided:
//   - Pacer: enforces a minimum interval between calls per operation
//     class, used when walking RPC history (signatures, transactions,
//     blocks) where each class tolerates a different request rate
//   - Limiter: a token bucket for per-minute request budgets, used for
//     the CoinGecko free tier
//
// Both are safe for concurrent use.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrContextCancelled is returned when the context is canceled during a
// blocking operation.
var ErrContextCancelled = errors.New("ratelimit: context canceled")

// Operation classes for RPC history walks. Signature scans page through
// thousands of results, so they get the longest interval.
const (
	OpSignatures   = "signatures"
	OpTransactions = "transactions"
	OpBlocks       = "blocks"
	OpRewards      = "rewards"
)

// defaultIntervals holds the minimum delay between calls per class.
var defaultIntervals = map[string]time.Duration{
	OpSignatures:   200 * time.Millisecond,
	OpTransactions: 100 * time.Millisecond,
	OpBlocks:       50 * time.Millisecond,
	OpRewards:      100 * time.Millisecond,
}

// defaultInterval is used for operation classes with no explicit entry.
const defaultInterval = 100 * time.Millisecond

// Pacer spaces out requests per operation class.
type Pacer struct {
	limiters  map[string]*rate.Limiter
	intervals map[string]time.Duration
	mu        sync.Mutex
}

// NewPacer creates a Pacer with the default intervals. Overrides replace
// the interval for the named classes.
func NewPacer(overrides map[string]time.Duration) *Pacer {
	intervals := make(map[string]time.Duration, len(defaultIntervals))
	for op, d := range defaultIntervals {
		intervals[op] = d
	}
	for op, d := range overrides {
		intervals[op] = d
	}
	return &Pacer{
		limiters:  make(map[string]*rate.Limiter),
		intervals: intervals,
	}
}

// Wait blocks until the next request of the given class may proceed, or
// the context is canceled.
func (p *Pacer) Wait(ctx context.Context, op string) error {
	if err := p.limiterFor(op).Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ErrContextCancelled
		}
		return err
	}
	return nil
}

// Interval returns the configured minimum spacing for a class.
func (p *Pacer) Interval(op string) time.Duration {
	if d, ok := p.intervals[op]; ok {
		return d
	}
	return defaultInterval
}

func (p *Pacer) limiterFor(op string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	if l, ok := p.limiters[op]; ok {
		return l
	}
	// Burst of 1 so calls are strictly spaced.
	l := rate.NewLimiter(rate.Every(p.Interval(op)), 1)
	p.limiters[op] = l
	return l
}
