package health

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SourceCheck defines how to probe whether a source has recovered.
// Implementations should be lightweight, not full API calls.
type SourceCheck interface {
	// Check probes the source. Returns nil if healthy.
	Check(ctx context.Context) error

	// SourceName returns the name of the source being checked.
	SourceName() string
}

// HTTPCheck probes a source via a simple HTTP request.
type HTTPCheck struct {
	name   string
	url    string
	client *http.Client
}

// NewHTTPCheck creates an HTTP-based source check. A GET is issued and
// any 2xx response counts as healthy.
func NewHTTPCheck(name, url string, client *http.Client) *HTTPCheck {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &HTTPCheck{name: name, url: url, client: client}
}

// Check performs the HTTP probe.
func (h *HTTPCheck) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("health probe: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unhealthy status: %d", resp.StatusCode)
	}
	return nil
}

// SourceName returns the name of the source being checked.
func (h *HTTPCheck) SourceName() string {
	return h.name
}

// Checker probes sources with OPEN circuits so recovery is noticed
// without waiting for live traffic to retry them.
type Checker struct {
	ctx     context.Context
	tracker *Tracker
	checks  map[string]SourceCheck
	logger  *zerolog.Logger
	cancel  context.CancelFunc
	config  CheckConfig
	wg      sync.WaitGroup
	mu      sync.RWMutex
}

// NewChecker creates a new Checker.
func NewChecker(tracker *Tracker, cfg CheckConfig, logger *zerolog.Logger) *Checker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Checker{
		tracker: tracker,
		config:  cfg,
		checks:  make(map[string]SourceCheck),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Register adds a recovery check for a source.
func (h *Checker) Register(check SourceCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[check.SourceName()] = check
}

// Start begins periodic checking. Call once after registration.
func (h *Checker) Start() {
	if !h.config.IsEnabled() {
		if h.logger != nil {
			h.logger.Info().Msg("health checker disabled")
		}
		return
	}

	interval := h.config.GetInterval()
	// Jitter avoids probing every upstream at the same instant.
	jitter := cryptoRandDuration(2 * time.Second)
	ticker := time.NewTicker(interval + jitter)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer ticker.Stop()

		for {
			select {
			case <-h.ctx.Done():
				return
			case <-ticker.C:
				h.checkOpenCircuits()
			}
		}
	}()
}

// Stop stops the checker and waits for the goroutine to finish.
func (h *Checker) Stop() {
	h.cancel()
	h.wg.Wait()
}

// checkOpenCircuits probes every source whose circuit is OPEN.
func (h *Checker) checkOpenCircuits() {
	h.mu.RLock()
	checks := make([]SourceCheck, 0, len(h.checks))
	for _, check := range h.checks {
		checks = append(checks, check)
	}
	h.mu.RUnlock()

	for _, check := range checks {
		name := check.SourceName()
		if h.tracker.GetState(name) != StateOpen {
			continue
		}

		ctx, cancel := context.WithTimeout(h.ctx, 5*time.Second)
		err := check.Check(ctx)
		cancel()

		if err != nil {
			if h.logger != nil {
				h.logger.Debug().Str("source", name).Err(err).Msg("recovery probe failed")
			}
			continue
		}

		if h.logger != nil {
			h.logger.Info().Str("source", name).Msg("recovery probe succeeded")
		}
		h.tracker.RecordSuccess(name)
	}
}

// cryptoRandDuration returns a random duration in [0, maxDur).
func cryptoRandDuration(maxDur time.Duration) time.Duration {
	if maxDur <= 0 {
		return 0
	}
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0
	}
	n := binary.LittleEndian.Uint64(b[:])
	//nolint:gosec // maxDur is positive, conversion is safe
	return time.Duration(n % uint64(maxDur))
}
