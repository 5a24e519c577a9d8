package di

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/do/v2"

	"github.com/grod220/block-parliament/internal/cache"
	"github.com/grod220/block-parliament/internal/config"
	"github.com/grod220/block-parliament/internal/health"
	"github.com/grod220/block-parliament/internal/logging"
	"github.com/grod220/block-parliament/internal/mev"
	"github.com/grod220/block-parliament/internal/ratelimit"
	"github.com/grod220/block-parliament/internal/sources"
	"github.com/grod220/block-parliament/internal/styling"
	"github.com/grod220/block-parliament/internal/web"
)

// stylingFile is the styling configuration looked for next to the
// process; the built-in defaults apply when it is absent.
const stylingFile = "styling.yaml"

// Service wrapper types for DI registration.

// ConfigService wraps the loaded configuration.
type ConfigService struct {
	Config *config.Config
}

// RuntimeService wraps the hot-reloadable configuration holder.
type RuntimeService struct {
	Runtime *config.Runtime
}

// WatcherService owns the config file watcher goroutine.
type WatcherService struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Shutdown implements do.Shutdowner, stopping the watcher goroutine.
func (w *WatcherService) Shutdown() error {
	w.cancel()
	<-w.done
	return nil
}

// HealthCheckerService owns the upstream recovery prober.
type HealthCheckerService struct {
	Checker *health.Checker
}

// Shutdown implements do.Shutdowner, stopping the recovery probes.
func (h *HealthCheckerService) Shutdown() error {
	h.Checker.Stop()
	return nil
}

// LoggerService wraps the zerolog logger for DI.
type LoggerService struct {
	Logger *zerolog.Logger
}

// CacheService wraps the cache implementation.
type CacheService struct {
	Cache cache.Cache
}

// HealthTrackerService wraps the circuit-breaker tracker.
type HealthTrackerService struct {
	Tracker *health.Tracker
}

// SourcesService wraps the shared upstream HTTP client.
type SourcesService struct {
	Client *sources.Client
}

// SolanaService wraps the RPC client.
type SolanaService struct {
	Client *sources.SolanaClient
}

// StakewizService wraps the Stakewiz API client.
type StakewizService struct {
	Client *sources.StakewizClient
}

// MevService wraps the Jito MEV tracker.
type MevService struct {
	Tracker *mev.Tracker
}

// SFDPService wraps the delegation program registry client.
type SFDPService struct {
	Client *sources.SFDPClient
}

// StylingService wraps the resolved design-token table.
type StylingService struct {
	Tokens styling.TokenTable
}

// HandlerService wraps the dashboard HTTP handler.
type HandlerService struct {
	Handler http.Handler
}

// ServerService wraps the HTTP server.
type ServerService struct {
	Server *web.Server
}

// RegisterSingletons registers all service providers as singletons, in
// dependency order.
func RegisterSingletons(i do.Injector) {
	do.Provide(i, NewConfig)
	do.Provide(i, NewRuntime)
	do.Provide(i, NewConfigWatcher)
	do.Provide(i, NewLogger)
	do.Provide(i, NewCache)
	do.Provide(i, NewHealthTracker)
	do.Provide(i, NewHealthChecker)
	do.Provide(i, NewSourcesClient)
	do.Provide(i, NewSolanaClient)
	do.Provide(i, NewStakewizClient)
	do.Provide(i, NewMevTracker)
	do.Provide(i, NewSFDPClient)
	do.Provide(i, NewStyling)
	do.Provide(i, NewWebHandler)
	do.Provide(i, NewHTTPServer)
}

// NewConfig loads the configuration from the config path.
func NewConfig(i do.Injector) (*ConfigService, error) {
	path := do.MustInvokeNamed[string](i, ConfigPathKey)

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return &ConfigService{Config: cfg}, nil
}

// NewRuntime seeds the hot-reloadable config holder.
func NewRuntime(i do.Injector) (*RuntimeService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	return &RuntimeService{Runtime: config.NewRuntime(cfgSvc.Config)}, nil
}

// NewConfigWatcher starts the fsnotify watcher that reloads the config
// file into the Runtime on change.
func NewConfigWatcher(i do.Injector) (*WatcherService, error) {
	path := do.MustInvokeNamed[string](i, ConfigPathKey)
	runtimeSvc := do.MustInvoke[*RuntimeService](i)
	loggerSvc := do.MustInvoke[*LoggerService](i)

	watcher, err := config.NewWatcher(path, runtimeSvc.Runtime, *loggerSvc.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	svc := &WatcherService{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(svc.done)
		watcher.Run(ctx)
	}()
	return svc, nil
}

// NewLogger creates the zerolog logger from configuration.
func NewLogger(i do.Injector) (*LoggerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)

	logger, err := logging.NewLogger(cfgSvc.Config.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return &LoggerService{Logger: &logger}, nil
}

// NewCache creates the cache based on configuration.
func NewCache(i do.Injector) (*CacheService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c, err := cache.New(ctx, &cfgSvc.Config.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}
	return &CacheService{Cache: c}, nil
}

// Shutdown implements do.Shutdowner for graceful cache cleanup.
func (c *CacheService) Shutdown() error {
	if c.Cache != nil {
		return c.Cache.Close()
	}
	return nil
}

// NewHealthTracker creates the circuit-breaker tracker.
func NewHealthTracker(i do.Injector) (*HealthTrackerService, error) {
	loggerSvc := do.MustInvoke[*LoggerService](i)

	tracker := health.NewTracker(health.CircuitBreakerConfig{}, loggerSvc.Logger)
	return &HealthTrackerService{Tracker: tracker}, nil
}

// NewHealthChecker starts the recovery prober so open circuits close
// again without waiting for live traffic.
func NewHealthChecker(i do.Injector) (*HealthCheckerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	trackerSvc := do.MustInvoke[*HealthTrackerService](i)
	loggerSvc := do.MustInvoke[*LoggerService](i)

	checker := health.NewChecker(trackerSvc.Tracker, health.CheckConfig{}, loggerSvc.Logger)
	checker.Register(health.NewHTTPCheck(sources.SourceSolana, rpcHealthURL(cfgSvc.Config.RPCURL()), nil))
	checker.Register(health.NewHTTPCheck(sources.SourceCoinGecko, sources.CoinGeckoAPI+"/ping", nil))
	checker.Register(health.NewHTTPCheck(sources.SourceJito, sources.JitoAPIBase+"/validators", nil))
	checker.Register(health.NewHTTPCheck(sources.SourceStakewiz, sources.StakewizAPI+"/epoch_info", nil))
	checker.Register(health.NewHTTPCheck(sources.SourceSFDP, sources.SFDPAPI, nil))
	checker.Start()

	return &HealthCheckerService{Checker: checker}, nil
}

// rpcHealthURL rewrites an RPC endpoint to its /health path, keeping
// any api-key query parameter intact.
func rpcHealthURL(rpcURL string) string {
	u, err := url.Parse(rpcURL)
	if err != nil {
		return rpcURL
	}
	u.Path = "/health"
	return u.String()
}

// NewSourcesClient creates the shared upstream HTTP client.
func NewSourcesClient(i do.Injector) (*SourcesService, error) {
	loggerSvc := do.MustInvoke[*LoggerService](i)
	trackerSvc := do.MustInvoke[*HealthTrackerService](i)

	client := sources.NewClient(*loggerSvc.Logger, sources.WithTracker(trackerSvc.Tracker))
	return &SourcesService{Client: client}, nil
}

// NewSolanaClient creates the RPC client with the configured endpoints.
func NewSolanaClient(i do.Injector) (*SolanaService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	srcSvc := do.MustInvoke[*SourcesService](i)

	endpoints := append([]string{cfgSvc.Config.RPCURL()}, cfgSvc.Config.RPC.FallbackURLs...)
	client := sources.NewSolanaClient(srcSvc.Client, endpoints, ratelimit.NewPacer(nil))
	return &SolanaService{Client: client}, nil
}

// NewStakewizClient creates the Stakewiz API client.
func NewStakewizClient(i do.Injector) (*StakewizService, error) {
	srcSvc := do.MustInvoke[*SourcesService](i)
	return &StakewizService{Client: sources.NewStakewizClient(srcSvc.Client)}, nil
}

// NewMevTracker creates the Jito MEV tracker.
func NewMevTracker(i do.Injector) (*MevService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	srcSvc := do.MustInvoke[*SourcesService](i)
	loggerSvc := do.MustInvoke[*LoggerService](i)

	jito := sources.NewJitoClient(srcSvc.Client)
	tracker := mev.NewTracker(jito, cfgSvc.Config.Validator.VoteAccount, *loggerSvc.Logger)
	return &MevService{Tracker: tracker}, nil
}

// NewSFDPClient creates the delegation program registry client.
func NewSFDPClient(i do.Injector) (*SFDPService, error) {
	srcSvc := do.MustInvoke[*SourcesService](i)
	return &SFDPService{Client: sources.NewSFDPClient(srcSvc.Client)}, nil
}

// NewStyling loads the styling configuration. Load falls back to the
// built-in defaults when no file is present.
func NewStyling(i do.Injector) (*StylingService, error) {
	cfg, err := styling.Load(stylingFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", stylingFile, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &StylingService{Tokens: cfg.Resolve()}, nil
}

// NewWebHandler assembles the dashboard router.
func NewWebHandler(i do.Injector) (*HandlerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	runtimeSvc := do.MustInvoke[*RuntimeService](i)
	loggerSvc := do.MustInvoke[*LoggerService](i)
	cacheSvc := do.MustInvoke[*CacheService](i)
	trackerSvc := do.MustInvoke[*HealthTrackerService](i)
	solanaSvc := do.MustInvoke[*SolanaService](i)
	stakewizSvc := do.MustInvoke[*StakewizService](i)
	mevSvc := do.MustInvoke[*MevService](i)
	sfdpSvc := do.MustInvoke[*SFDPService](i)
	stylingSvc := do.MustInvoke[*StylingService](i)

	handler := web.NewHandler(
		runtimeSvc.Runtime,
		cacheSvc.Cache,
		solanaSvc.Client,
		stakewizSvc.Client,
		mevSvc.Tracker,
		sfdpSvc.Client,
		stylingSvc.Tokens,
		trackerSvc.Tracker,
		*loggerSvc.Logger,
	)

	return &HandlerService{Handler: web.Routes(handler, &cfgSvc.Config.Server)}, nil
}

// NewHTTPServer creates the dashboard server.
func NewHTTPServer(i do.Injector) (*ServerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	handlerSvc := do.MustInvoke[*HandlerService](i)

	server := web.NewServer(
		cfgSvc.Config.Server.Listen,
		handlerSvc.Handler,
		cfgSvc.Config.Server.EnableHTTP2,
	)
	return &ServerService{Server: server}, nil
}
