package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grod220/block-parliament/internal/cache"
	"github.com/grod220/block-parliament/internal/config"
	"github.com/grod220/block-parliament/internal/health"
	"github.com/grod220/block-parliament/internal/mev"
	"github.com/grod220/block-parliament/internal/sources"
	"github.com/grod220/block-parliament/internal/styling"
)

const (
	testVote     = "4PL2ZFoZJHgkbZ54US4qNC58X69Fa1FKtY4CaVKeuQPg"
	testIdentity = "mD1afZhSisoXfJLT8nYwSFANqjr1KPoDUEpYTEfFX1e"
)

type fakeChain struct {
	info       *sources.EpochInfo
	validators []sources.VoteAccount
	err        error
	calls      int
}

func (f *fakeChain) EpochInfo(context.Context) (*sources.EpochInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.info, nil
}

func (f *fakeChain) AllVoteAccounts(context.Context) ([]sources.VoteAccount, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.validators, nil
}

type fakeScores struct {
	validator *sources.StakewizValidator
	err       error
	calls     int
	lastVote  string
}

func (f *fakeScores) Validator(_ context.Context, voteAccount string) (*sources.StakewizValidator, error) {
	f.calls++
	f.lastVote = voteAccount
	if f.err != nil {
		return nil, f.err
	}
	return f.validator, nil
}

type fakeMev struct {
	claims []mev.Claim
	err    error
	calls  int
}

func (f *fakeMev) Claims(context.Context) ([]mev.Claim, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.claims, nil
}

type fakeSFDP struct {
	status *sources.SFDPStatus
	calls  int
}

func (f *fakeSFDP) Status(context.Context, string, string) (*sources.SFDPStatus, error) {
	f.calls++
	return f.status, nil
}

type testDeps struct {
	chain    *fakeChain
	scores   *fakeScores
	mev      *fakeMev
	sfdp     *fakeSFDP
	cfg      *config.Config
	runtime  *config.Runtime
	breakers *health.Tracker
}

func testValidator() *sources.StakewizValidator {
	return &sources.StakewizValidator{
		Rank:           120,
		Identity:       testIdentity,
		VoteIdentity:   testVote,
		Name:           "Block Parliament",
		Version:        "3.0.14",
		ActivatedStake: 55_000,
		Commission:     10,
		SkipRate:       0.1,
		VoteSuccess:    99.8,
		IsJito:         true,
		JitoCommission: 1000,
		StakingAPY:     6.8,
		JitoAPY:        0.4,
		TotalAPY:       7.2,
		Epoch:          905,
		IPCity:         "Amsterdam",
		IPCountry:      "Netherlands",
	}
}

func newTestDeps() *testDeps {
	cfg := config.Default()
	cfg.Validator.Name = "Block Parliament"
	cfg.Validator.VoteAccount = testVote
	cfg.Validator.Identity = testIdentity

	return &testDeps{
		chain: &fakeChain{
			info: &sources.EpochInfo{Epoch: 905, SlotIndex: 108_000, SlotsInEpoch: 432_000},
			validators: []sources.VoteAccount{
				{VotePubkey: "whale", ActivatedStake: 5_000_000e9, EpochCredits: 500_000},
				{VotePubkey: testVote, ActivatedStake: 55_000e9, EpochCredits: 431_000},
				{VotePubkey: "small", ActivatedStake: 1_000e9, EpochCredits: 100_000},
			},
		},
		scores: &fakeScores{validator: testValidator()},
		mev: &fakeMev{claims: []mev.Claim{
			{Epoch: 904, TipsLamports: 10e9, CommissionBps: 1000, CommissionLamports: 1e9, CommissionSOL: 1.0, Date: "2026-01-01"},
		}},
		sfdp: &fakeSFDP{status: &sources.SFDPStatus{
			IsParticipant: true,
			Status:        "Active",
		}},
		cfg:     cfg,
		runtime: config.NewRuntime(cfg),
	}
}

func newTestRouter(t *testing.T, deps *testDeps) http.Handler {
	t.Helper()

	c, err := cache.New(context.Background(), &cache.Config{
		Mode: cache.ModeDisk,
		Disk: cache.DiskConfig{Path: t.TempDir()},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	h := NewHandler(deps.runtime, c, deps.chain, deps.scores, deps.mev, deps.sfdp,
		styling.Default().Resolve(), deps.breakers, zerolog.Nop())
	return Routes(h, &deps.cfg.Server)
}

func doGet(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestMetricsEndpoint(t *testing.T) {
	deps := newTestDeps()
	router := newTestRouter(t, deps)

	rec := doGet(t, router, "/api/metrics")
	require.Equal(t, http.StatusOK, rec.Code)

	var got ValidatorMetrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))

	assert.Equal(t, "Block Parliament", got.Name)
	assert.Equal(t, testVote, got.VoteAccount)
	assert.Equal(t, uint64(120), got.Rank)
	assert.InDelta(t, 55_000, got.ActivatedStakeSOL, 0.001)
	assert.Equal(t, uint64(905), got.Epoch)
	assert.InDelta(t, 25.0, got.EpochProgress, 0.001)
	assert.Equal(t, "Amsterdam, Netherlands", got.Location)

	require.NotNil(t, got.Network)
	assert.Equal(t, 3, got.Network.TotalValidators)
	// Second highest stake of three.
	assert.Equal(t, 67, got.Network.StakePercentile)
	// Skip rate 0.1 is half the network average of 0.2.
	assert.Equal(t, 38, got.Network.SkipRatePercentile)
}

func TestMetricsServedFromCache(t *testing.T) {
	deps := newTestDeps()
	router := newTestRouter(t, deps)

	first := doGet(t, router, "/api/metrics")
	second := doGet(t, router, "/api/metrics")

	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, deps.scores.calls)
	assert.Equal(t, 1, deps.chain.calls)
}

func TestMetricsUpstreamError(t *testing.T) {
	deps := newTestDeps()
	deps.scores.err = errors.New("stakewiz down")
	router := newTestRouter(t, deps)

	rec := doGet(t, router, "/api/metrics")
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var got ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "upstream_error", got.Error)
}

func TestMevEndpoint(t *testing.T) {
	deps := newTestDeps()
	router := newTestRouter(t, deps)

	rec := doGet(t, router, "/api/mev")
	require.Equal(t, http.StatusOK, rec.Code)

	var got MevHistory
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, testVote, got.VoteAccount)
	require.Len(t, got.Epochs, 1)
	assert.Equal(t, uint64(904), got.Epochs[0].Epoch)
	assert.InDelta(t, 1.0, got.TotalSOL, 0.001)

	doGet(t, router, "/api/mev")
	assert.Equal(t, 1, deps.mev.calls)
}

func TestSFDPEndpoint(t *testing.T) {
	deps := newTestDeps()
	router := newTestRouter(t, deps)

	rec := doGet(t, router, "/api/sfdp")
	require.Equal(t, http.StatusOK, rec.Code)

	var got sources.SFDPStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.IsParticipant)
	assert.Equal(t, "Active", got.Status)
}

func TestChangelogEndpoint(t *testing.T) {
	deps := newTestDeps()
	router := newTestRouter(t, deps)

	rec := doGet(t, router, "/api/changelog")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []ChangelogEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.NotEmpty(t, got)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Date, got[i].Date, "changelog must be newest first")
	}
}

func TestStylingEndpoint(t *testing.T) {
	deps := newTestDeps()
	router := newTestRouter(t, deps)

	rec := doGet(t, router, "/api/styling")
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		FontFamily map[string][]string `json:"fontFamily"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Contains(t, got.FontFamily, "sans")
	assert.Contains(t, got.FontFamily, "mono")
}

func TestHealthEndpoint(t *testing.T) {
	deps := newTestDeps()
	router := newTestRouter(t, deps)

	rec := doGet(t, router, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var got HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "ok", got.Status)
	assert.Equal(t, uint64(905), got.Epoch)
	assert.NotEmpty(t, got.Version)
}

func TestHealthSurvivesChainOutage(t *testing.T) {
	deps := newTestDeps()
	deps.chain.err = errors.New("rpc down")
	router := newTestRouter(t, deps)

	rec := doGet(t, router, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var got HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "ok", got.Status)
	assert.Zero(t, got.Epoch)
}

func TestHealthReportsSourceStates(t *testing.T) {
	deps := newTestDeps()
	deps.breakers = health.NewTracker(health.CircuitBreakerConfig{FailureThreshold: 1}, nil)
	deps.breakers.RecordSuccess("solana")
	deps.breakers.RecordFailure("stakewiz", errors.New("boom"))
	router := newTestRouter(t, deps)

	rec := doGet(t, router, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var got HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "degraded", got.Status)
	assert.Equal(t, "closed", got.Sources["solana"])
	assert.Equal(t, "open", got.Sources["stakewiz"])
}

func TestConfigReloadReachesHandlers(t *testing.T) {
	deps := newTestDeps()
	c, err := cache.New(context.Background(), &cache.Config{
		Mode: cache.ModeDisk,
		Disk: cache.DiskConfig{Path: t.TempDir()},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	h := NewHandler(deps.runtime, c, deps.chain, deps.scores, deps.mev, deps.sfdp,
		styling.Default().Resolve(), nil, zerolog.Nop())

	_, err = h.fetchMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testVote, deps.scores.lastVote)

	// Swap in an updated config, as the file watcher would.
	updated := config.Default()
	updated.Validator.Name = "Renamed"
	updated.Validator.VoteAccount = "NewVoteAccount"
	updated.Validator.Identity = testIdentity
	deps.runtime.Store(updated)

	_, err = h.fetchMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "NewVoteAccount", deps.scores.lastVote)
}

func TestPurgeCacheRequiresAuth(t *testing.T) {
	deps := newTestDeps()
	deps.cfg.Server.APIKey = "admin-secret"
	router := newTestRouter(t, deps)

	// Warm the metrics cache so the purge has something to delete.
	require.Equal(t, http.StatusOK, doGet(t, router, "/api/metrics").Code)

	purge := func(key string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/admin/cache?prefix=web:", nil)
		if key != "" {
			req.Header.Set("x-api-key", key)
		}
		router.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusUnauthorized, purge("").Code)
	assert.Equal(t, http.StatusUnauthorized, purge("wrong").Code)

	rec := purge("admin-secret")
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Deleted int    `json:"deleted"`
		Prefix  string `json:"prefix"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 1, got.Deleted)
	assert.Equal(t, "web:", got.Prefix)

	// The next read misses the cache and refetches.
	require.Equal(t, http.StatusOK, doGet(t, router, "/api/metrics").Code)
	assert.Equal(t, 2, deps.scores.calls)
}

func TestPurgeCacheRejectsEmptyPrefix(t *testing.T) {
	deps := newTestDeps()
	deps.cfg.Server.APIKey = "admin-secret"
	router := newTestRouter(t, deps)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/admin/cache", nil)
	req.Header.Set("x-api-key", "admin-secret")
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminDisabledWithoutKey(t *testing.T) {
	deps := newTestDeps()
	router := newTestRouter(t, deps)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/cache?prefix=web:", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimit(t *testing.T) {
	deps := newTestDeps()
	deps.cfg.Server.RateLimitRPM = 2
	router := newTestRouter(t, deps)

	assert.Equal(t, http.StatusOK, doGet(t, router, "/api/changelog").Code)
	assert.Equal(t, http.StatusOK, doGet(t, router, "/api/changelog").Code)
	assert.Equal(t, http.StatusTooManyRequests, doGet(t, router, "/api/changelog").Code)

	// Health is outside the rate-limited group.
	assert.Equal(t, http.StatusOK, doGet(t, router, "/health").Code)
}

func TestCompareToNetwork(t *testing.T) {
	validators := []sources.VoteAccount{
		{VotePubkey: "a", ActivatedStake: 1000, EpochCredits: 900},
		{VotePubkey: testVote, ActivatedStake: 500, EpochCredits: 950},
		{VotePubkey: "c", ActivatedStake: 100, EpochCredits: 100},
	}

	got := compareToNetwork(validators, testVote, 0.1)
	require.NotNil(t, got)
	assert.Equal(t, 3, got.TotalValidators)
	assert.Equal(t, 67, got.StakePercentile)
	// Highest credits in the set.
	assert.Equal(t, 33, got.VoteSuccessPercentile)
	assert.Equal(t, 38, got.SkipRatePercentile)
}

func TestCompareToNetworkUnknownValidator(t *testing.T) {
	validators := []sources.VoteAccount{{VotePubkey: "a", ActivatedStake: 1000}}
	assert.Nil(t, compareToNetwork(validators, testVote, 0.1))
	assert.Nil(t, compareToNetwork(nil, testVote, 0.1))
}
