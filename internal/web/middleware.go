package web

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type contextKey string

// requestIDKey is the context key for the request ID.
const requestIDKey contextKey = "request_id"

// AddRequestID adds a request ID to the context and attaches a logger
// carrying it. Generates a new UUID when requestID is empty.
func AddRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		requestID = uuid.New().String()
	}

	ctx = context.WithValue(ctx, requestIDKey, requestID)
	logger := log.Ctx(ctx).With().Str("request_id", requestID).Logger()
	return logger.WithContext(ctx)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// RequestIDMiddleware adds an X-Request-ID header and a logger with the
// request ID to the context. An incoming X-Request-ID is preserved.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			requestID := request.Header.Get("X-Request-ID")
			ctx := AddRequestID(request.Context(), requestID)

			if requestID == "" {
				requestID = GetRequestID(ctx)
			}
			writer.Header().Set("X-Request-ID", requestID)

			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs each request with method, path, status, and duration.
func LoggingMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: writer, statusCode: http.StatusOK}

			shortID := GetRequestID(request.Context())
			if len(shortID) > 8 {
				shortID = shortID[:8]
			}

			next.ServeHTTP(wrapped, request)

			durationStr := formatDuration(time.Since(start))
			completionMsg := statusSymbol(wrapped.statusCode) + " " +
				http.StatusText(wrapped.statusCode) + " (" + durationStr + ")"

			logger := zerolog.Ctx(request.Context()).With().
				Str("method", request.Method).
				Str("path", request.URL.Path).
				Str("req_id", shortID).
				Int("status", wrapped.statusCode).
				Str("duration", durationStr).
				Logger()

			switch {
			case wrapped.statusCode >= 500:
				logger.Error().Msg(completionMsg)
			case wrapped.statusCode >= 400:
				logger.Warn().Msg(completionMsg)
			default:
				logger.Info().Msg(completionMsg)
			}
		})
	}
}

func statusSymbol(statusCode int) string {
	switch {
	case statusCode >= 500:
		return "✗"
	case statusCode >= 400:
		return "⚠"
	default:
		return "✓"
	}
}

// formatDuration formats duration in a human-readable form with microsecond
// precision. Uses dynamic units so very fast requests show in µs while
// longer ones show in ms/s.
func formatDuration(duration time.Duration) string {
	if duration <= 0 {
		return "0s"
	}
	duration = duration.Round(time.Microsecond)
	switch {
	case duration < time.Millisecond:
		return fmt.Sprintf("%dµs", duration.Microseconds())
	case duration < time.Second:
		return fmt.Sprintf("%.2fms", float64(duration)/float64(time.Millisecond))
	case duration < time.Minute:
		return fmt.Sprintf("%.2fs", duration.Seconds())
	default:
		return duration.Truncate(time.Second).String()
	}
}

// AuthMiddleware creates middleware that validates the x-api-key header.
// The expected key is hashed once at creation; per-request comparison is
// constant time to prevent timing attacks.
func AuthMiddleware(expectedAPIKey string) func(http.Handler) http.Handler {
	expectedHash := sha256.Sum256([]byte(expectedAPIKey))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			providedKey := request.Header.Get("x-api-key")

			if providedKey == "" {
				failAuth(writer, request, "missing x-api-key header")
				return
			}

			providedHash := sha256.Sum256([]byte(providedKey))

			if subtle.ConstantTimeCompare(providedHash[:], expectedHash[:]) != 1 {
				failAuth(writer, request, "invalid x-api-key")
				return
			}

			zerolog.Ctx(request.Context()).Debug().Msg("authentication succeeded")
			next.ServeHTTP(writer, request)
		})
	}
}

func failAuth(writer http.ResponseWriter, request *http.Request, reason string) {
	zerolog.Ctx(request.Context()).Warn().Msg("authentication failed: " + reason)
	WriteError(writer, http.StatusUnauthorized, "authentication_error", reason)
}
