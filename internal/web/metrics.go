package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// requestsTotal counts API requests by route, method, and status.
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bp_http_requests_total",
		Help: "Total number of HTTP requests by route, method, and status",
	}, []string{"route", "method", "status"})

	// requestDuration tracks request latency per route.
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bp_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"route"})

	// upstreamFetches counts cache read-through outcomes per data source.
	upstreamFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bp_upstream_fetch_total",
		Help: "Cache read-through outcomes per upstream source",
	}, []string{"source", "outcome"})
)

const (
	outcomeHit   = "hit"
	outcomeMiss  = "miss"
	outcomeError = "error"
)

// MetricsMiddleware records request counts and latency. It reads the chi
// route pattern after the handler runs so parameterized paths collapse
// into one label value.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: writer, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, request)

			route := chi.RouteContext(request.Context()).RoutePattern()
			if route == "" {
				route = request.URL.Path
			}

			requestsTotal.WithLabelValues(route, request.Method, strconv.Itoa(wrapped.statusCode)).Inc()
			requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		})
	}
}
