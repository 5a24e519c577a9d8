package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Usage represents the current usage of a Limiter.
type Usage struct {
	// Used is the number of requests consumed in the current window.
	Used int `json:"used"`

	// Limit is the maximum number of requests allowed per minute.
	Limit int `json:"limit"`

	// Remaining is the number of requests remaining in the window.
	Remaining int `json:"remaining"`
}

// Limiter is a token bucket tracking requests per minute.
//
// Burst equals the limit, so a full minute's budget may be consumed at
// once and then refills gradually. This matches how the upstream free
// tiers meter their quotas.
type Limiter struct {
	limiter *rate.Limiter
	rpm     int
	mu      sync.RWMutex
}

// unlimitedRate stands in for "no limit" when rpm is zero or negative.
const unlimitedRate = 1_000_000

// NewLimiter creates a token bucket limiter for the given requests per
// minute. Zero or negative rpm means unlimited.
func NewLimiter(rpm int) *Limiter {
	if rpm <= 0 {
		rpm = unlimitedRate
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm),
		rpm:     rpm,
	}
}

// Allow checks if a request is allowed right now. Non-blocking.
func (l *Limiter) Allow() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.limiter.Allow()
}

// Wait blocks until a request is allowed or the context is canceled.
// Returns ErrContextCancelled on cancellation.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.RLock()
	limiter := l.limiter
	l.mu.RUnlock()

	if err := limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ErrContextCancelled
		}
		return err
	}
	return nil
}

// SetLimit updates the rate limit dynamically. Used when an upstream
// advertises its quota in response headers.
func (l *Limiter) SetLimit(rpm int) {
	if rpm <= 0 {
		rpm = unlimitedRate
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiter = rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm)
	l.rpm = rpm
}

// GetUsage returns the current usage statistics.
//
// golang.org/x/time/rate does not expose remaining tokens directly, so
// the bucket's token count is read and clamped. Accurate enough for
// display and throttling decisions.
func (l *Limiter) GetUsage() Usage {
	l.mu.RLock()
	defer l.mu.RUnlock()

	remaining := int(l.limiter.Tokens())
	if remaining < 0 {
		remaining = 0
	}
	if remaining > l.rpm {
		remaining = l.rpm
	}

	return Usage{
		Used:      l.rpm - remaining,
		Limit:     l.rpm,
		Remaining: remaining,
	}
}
