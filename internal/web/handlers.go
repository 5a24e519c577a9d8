package web

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/grod220/block-parliament/internal/cache"
	"github.com/grod220/block-parliament/internal/config"
	"github.com/grod220/block-parliament/internal/health"
	"github.com/grod220/block-parliament/internal/mev"
	"github.com/grod220/block-parliament/internal/sources"
	"github.com/grod220/block-parliament/internal/styling"
	"github.com/grod220/block-parliament/internal/version"
)

// Per-source cache TTLs. Validator metrics move every epoch but the
// dashboard should feel live; MEV and SFDP standing change at most once
// per epoch.
const (
	metricsTTL = 5 * time.Minute
	mevTTL     = time.Hour
	sfdpTTL    = 6 * time.Hour
)

// ChainSource is the RPC surface the dashboard needs.
type ChainSource interface {
	EpochInfo(ctx context.Context) (*sources.EpochInfo, error)
	AllVoteAccounts(ctx context.Context) ([]sources.VoteAccount, error)
}

// ScoreSource provides validator scoring data.
type ScoreSource interface {
	Validator(ctx context.Context, voteAccount string) (*sources.StakewizValidator, error)
}

// MevSource provides the validator's MEV claim history.
type MevSource interface {
	Claims(ctx context.Context) ([]mev.Claim, error)
}

// SFDPSource provides the validator's delegation program standing.
type SFDPSource interface {
	Status(ctx context.Context, identity, voteAccount string) (*sources.SFDPStatus, error)
}

// Handler serves the dashboard API endpoints. Configuration is read
// through the runtime holder on every request so config file edits take
// effect without a restart.
type Handler struct {
	runtime  config.RuntimeConfig
	cache    cache.Cache
	chain    ChainSource
	scores   ScoreSource
	mev      MevSource
	sfdp     SFDPSource
	tokens   styling.TokenTable
	breakers *health.Tracker
	log      zerolog.Logger
	started  time.Time
}

// NewHandler creates the dashboard API handler. breakers may be nil when
// no circuit-breaker tracker is wired.
func NewHandler(
	rt config.RuntimeConfig,
	c cache.Cache,
	chain ChainSource,
	scores ScoreSource,
	mevSource MevSource,
	sfdp SFDPSource,
	tokens styling.TokenTable,
	breakers *health.Tracker,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		runtime:  rt,
		cache:    c,
		chain:    chain,
		scores:   scores,
		mev:      mevSource,
		sfdp:     sfdp,
		tokens:   tokens,
		breakers: breakers,
		log:      log.With().Str("component", "web").Logger(),
		started:  time.Now(),
	}
}

// cached reads a JSON payload through the cache. On a miss it calls fetch,
// stores the marshaled result with the given TTL, and returns it. Cache
// write failures are logged but never surfaced; the fetch result is still
// served.
func (h *Handler) cached(ctx context.Context, source, key string, ttl time.Duration, fetch func(context.Context) (any, error)) ([]byte, error) {
	if data, err := h.cache.Get(ctx, key); err == nil {
		upstreamFetches.WithLabelValues(source, outcomeHit).Inc()
		return data, nil
	} else if !errors.Is(err, cache.ErrNotFound) {
		h.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}

	payload, err := fetch(ctx)
	if err != nil {
		upstreamFetches.WithLabelValues(source, outcomeError).Inc()
		return nil, err
	}
	upstreamFetches.WithLabelValues(source, outcomeMiss).Inc()

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	if err := h.cache.SetWithTTL(ctx, key, data, ttl); err != nil {
		h.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
	return data, nil
}

func serveRawJSON(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// NetworkComparison positions the validator against the rest of the
// network using the full getVoteAccounts set.
type NetworkComparison struct {
	TotalValidators       int     `json:"total_validators"`
	SkipRatePercentile    int     `json:"skip_rate_percentile"`
	VoteSuccessPercentile int     `json:"vote_success_percentile"`
	StakePercentile       int     `json:"stake_percentile"`
	NetworkAvgSkipRate    float64 `json:"network_avg_skip_rate"`
	NetworkAvgVoteSuccess float64 `json:"network_avg_vote_success"`
}

// Typical mainnet averages used for the skip-rate comparison heuristic.
const (
	networkAvgSkipRate    = 0.2
	networkAvgVoteSuccess = 99.5
)

// compareToNetwork ranks the validator's stake and vote credits against
// every current vote account. Percentiles run 1 (best) to 100.
func compareToNetwork(validators []sources.VoteAccount, votePubkey string, skipRate float64) *NetworkComparison {
	total := len(validators)
	if total == 0 {
		return nil
	}

	var ours *sources.VoteAccount
	for i := range validators {
		if validators[i].VotePubkey == votePubkey {
			ours = &validators[i]
			break
		}
	}
	if ours == nil {
		return nil
	}

	stakePct := rankPercentile(total, func(v sources.VoteAccount) uint64 { return v.ActivatedStake }, validators, ours.ActivatedStake)
	creditsPct := rankPercentile(total, func(v sources.VoteAccount) uint64 { return v.EpochCredits }, validators, ours.EpochCredits)

	var skipPct int
	if skipRate <= networkAvgSkipRate {
		skipPct = int(math.Round((1.0 - (skipRate/networkAvgSkipRate)*0.5) * 50.0))
	} else {
		skipPct = int(math.Round(50.0 + (skipRate/networkAvgSkipRate-1.0)*50.0))
	}

	return &NetworkComparison{
		TotalValidators:       total,
		SkipRatePercentile:    clampPercentile(skipPct),
		VoteSuccessPercentile: clampPercentile(creditsPct),
		StakePercentile:       clampPercentile(stakePct),
		NetworkAvgSkipRate:    networkAvgSkipRate,
		NetworkAvgVoteSuccess: networkAvgVoteSuccess,
	}
}

// rankPercentile returns the validator's position in the descending order
// of metric values, as a percentage of the network.
func rankPercentile(total int, metric func(sources.VoteAccount) uint64, validators []sources.VoteAccount, ours uint64) int {
	values := make([]uint64, 0, total)
	for _, v := range validators {
		values = append(values, metric(v))
	}
	sort.Slice(values, func(i, j int) bool { return values[i] > values[j] })

	rank := total
	for i, v := range values {
		if v <= ours {
			rank = i
			break
		}
	}
	return int(math.Round(float64(rank+1) / float64(total) * 100.0))
}

func clampPercentile(p int) int {
	if p < 1 {
		return 1
	}
	if p > 100 {
		return 100
	}
	return p
}

// ValidatorMetrics is the main dashboard payload.
type ValidatorMetrics struct {
	Name              string  `json:"name"`
	Identity          string  `json:"identity"`
	VoteAccount       string  `json:"vote_account"`
	Rank              uint64  `json:"rank"`
	Version           string  `json:"version"`
	ActivatedStakeSOL float64 `json:"activated_stake_sol"`
	Commission        int     `json:"commission"`
	MevCommissionBps  uint64  `json:"mev_commission_bps"`
	IsJito            bool    `json:"is_jito"`
	Delinquent        bool    `json:"delinquent"`
	SkipRate          float64 `json:"skip_rate"`
	VoteSuccess       float64 `json:"vote_success"`
	StakingAPY        float64 `json:"staking_apy"`
	JitoAPY           float64 `json:"jito_apy"`
	TotalAPY          float64 `json:"total_apy"`
	Location          string  `json:"location,omitempty"`

	Epoch         uint64  `json:"epoch"`
	EpochProgress float64 `json:"epoch_progress"`

	Network *NetworkComparison `json:"network,omitempty"`
}

// Metrics serves GET /api/metrics.
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	data, err := h.cached(r.Context(), "metrics", "web:metrics", metricsTTL, h.fetchMetrics)
	if err != nil {
		h.log.Error().Err(err).Msg("metrics fetch failed")
		WriteError(w, http.StatusBadGateway, "upstream_error", "validator metrics are temporarily unavailable")
		return
	}
	serveRawJSON(w, data)
}

func (h *Handler) fetchMetrics(ctx context.Context) (any, error) {
	cfg := h.runtime.Get()

	val, err := h.scores.Validator(ctx, cfg.Validator.VoteAccount)
	if err != nil {
		return nil, err
	}

	metrics := ValidatorMetrics{
		Name:              cfg.Validator.Name,
		Identity:          val.Identity,
		VoteAccount:       val.VoteIdentity,
		Rank:              val.Rank,
		Version:           val.Version,
		ActivatedStakeSOL: val.ActivatedStake,
		Commission:        val.Commission,
		MevCommissionBps:  val.JitoCommission,
		IsJito:            val.IsJito,
		Delinquent:        val.Delinquent,
		SkipRate:          val.SkipRate,
		VoteSuccess:       val.VoteSuccess,
		StakingAPY:        val.StakingAPY,
		JitoAPY:           val.JitoAPY,
		TotalAPY:          val.TotalAPY,
		Epoch:             val.Epoch,
	}
	if val.IPCity != "" && val.IPCountry != "" {
		metrics.Location = val.IPCity + ", " + val.IPCountry
	}

	// Epoch progress and network ranking are best effort. The stakewiz
	// payload already carries the headline numbers.
	if info, err := h.chain.EpochInfo(ctx); err == nil {
		metrics.Epoch = info.Epoch
		if info.SlotsInEpoch > 0 {
			metrics.EpochProgress = float64(info.SlotIndex) / float64(info.SlotsInEpoch) * 100
		}
	} else {
		h.log.Warn().Err(err).Msg("epoch info unavailable")
	}

	if validators, err := h.chain.AllVoteAccounts(ctx); err == nil {
		metrics.Network = compareToNetwork(validators, cfg.Validator.VoteAccount, val.SkipRate)
	} else {
		h.log.Warn().Err(err).Msg("network comparison unavailable")
	}

	return metrics, nil
}

// MevHistory is the GET /api/mev payload.
type MevHistory struct {
	VoteAccount string      `json:"vote_account"`
	Epochs      []mev.Claim `json:"epochs"`
	TotalSOL    float64     `json:"total_sol"`
}

// Mev serves GET /api/mev.
func (h *Handler) Mev(w http.ResponseWriter, r *http.Request) {
	data, err := h.cached(r.Context(), "mev", "web:mev", mevTTL, func(ctx context.Context) (any, error) {
		claims, err := h.mev.Claims(ctx)
		if err != nil {
			return nil, err
		}
		return MevHistory{
			VoteAccount: h.runtime.Get().Validator.VoteAccount,
			Epochs:      claims,
			TotalSOL:    mev.TotalSOL(claims),
		}, nil
	})
	if err != nil {
		h.log.Error().Err(err).Msg("mev fetch failed")
		WriteError(w, http.StatusBadGateway, "upstream_error", "MEV history is temporarily unavailable")
		return
	}
	serveRawJSON(w, data)
}

// SFDP serves GET /api/sfdp.
func (h *Handler) SFDP(w http.ResponseWriter, r *http.Request) {
	data, err := h.cached(r.Context(), "sfdp", "web:sfdp", sfdpTTL, func(ctx context.Context) (any, error) {
		cfg := h.runtime.Get()
		return h.sfdp.Status(ctx, cfg.Validator.Identity, cfg.Validator.VoteAccount)
	})
	if err != nil {
		h.log.Error().Err(err).Msg("sfdp fetch failed")
		WriteError(w, http.StatusBadGateway, "upstream_error", "SFDP status is temporarily unavailable")
		return
	}
	serveRawJSON(w, data)
}

// Changelog serves GET /api/changelog.
func (h *Handler) Changelog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ChangelogEntries)
}

// Styling serves GET /api/styling with the resolved design-token table.
func (h *Handler) Styling(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"fontFamily": h.tokens.FontFamily,
	})
}

// HealthStatus is the GET /health payload.
type HealthStatus struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Uptime  string            `json:"uptime"`
	Epoch   uint64            `json:"epoch,omitempty"`
	Sources map[string]string `json:"sources,omitempty"`
	Cache   *cache.Stats      `json:"cache,omitempty"`
}

// Health serves GET /health. It never fails: chain reachability and
// breaker states only annotate the payload. Status degrades to
// "degraded" while any upstream circuit is open.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:  "ok",
		Version: version.Version,
		Uptime:  time.Since(h.started).Truncate(time.Second).String(),
	}

	if info, err := h.chain.EpochInfo(r.Context()); err == nil {
		status.Epoch = info.Epoch
	}
	if h.breakers != nil {
		states := h.breakers.AllStates()
		status.Sources = make(map[string]string, len(states))
		for source, state := range states {
			status.Sources[source] = state.String()
			if state == health.StateOpen {
				status.Status = "degraded"
			}
		}
	}
	if sp, ok := h.cache.(cache.StatsProvider); ok {
		stats := sp.Stats()
		status.Cache = &stats
	}

	writeJSON(w, http.StatusOK, status)
}

// PurgeCache serves DELETE /admin/cache. The prefix query parameter
// selects which source to invalidate; an empty prefix is rejected so a
// stray request cannot wipe the ledger scans.
func (h *Handler) PurgeCache(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "prefix query parameter is required")
		return
	}

	pd, ok := h.cache.(cache.PrefixDeleter)
	if !ok {
		WriteError(w, http.StatusNotImplemented, "unsupported", "cache backend does not support prefix deletion")
		return
	}

	n, err := pd.DeletePrefix(r.Context(), prefix)
	if err != nil {
		h.log.Error().Err(err).Str("prefix", prefix).Msg("cache purge failed")
		WriteError(w, http.StatusInternalServerError, "cache_error", "purge failed")
		return
	}

	h.log.Info().Str("prefix", prefix).Int("deleted", n).Msg("cache purged")
	writeJSON(w, http.StatusOK, map[string]any{"deleted": n, "prefix": prefix})
}
