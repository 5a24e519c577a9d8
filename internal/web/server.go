package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/grod220/block-parliament/internal/config"
)

// Routes builds the dashboard router. Middleware order matters:
// request ID first so the logger carries it, then logging, then metrics.
func Routes(h *Handler, serverCfg *config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware())
	r.Use(MetricsMiddleware())

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if rpm, ok := serverCfg.GetRateLimitOption().Get(); ok {
			r.Use(httprate.Limit(
				rpm,
				time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
					WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded",
						"too many requests, please try again later")
				}),
			))
		}

		r.Get("/metrics", h.Metrics)
		r.Get("/mev", h.Mev)
		r.Get("/sfdp", h.SFDP)
		r.Get("/changelog", h.Changelog)
		r.Get("/styling", h.Styling)
	})

	if serverCfg.IsAdminEnabled() {
		r.Route("/admin", func(r chi.Router) {
			r.Use(AuthMiddleware(serverCfg.APIKey))
			r.Delete("/cache", h.PurgeCache)
		})
	}

	return r
}

// Server wraps http.Server with dashboard configuration.
type Server struct {
	httpServer *http.Server
	addr       string
}

// NewServer creates a Server with conservative timeouts. Responses are
// small JSON payloads, so the write timeout stays short.
// If enableHTTP2 is true, HTTP/2 cleartext (h2c) is enabled for non-TLS
// connections.
func NewServer(addr string, handler http.Handler, enableHTTP2 bool) *Server {
	finalHandler := handler
	if enableHTTP2 {
		h2s := &http2.Server{}
		finalHandler = h2c.NewHandler(handler, h2s)
	}

	return &Server{
		addr: addr,
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      finalHandler,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// ListenAndServe starts the server (blocks).
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
