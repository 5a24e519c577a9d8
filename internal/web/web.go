// Package web serves the dashboard HTTP API. Every data endpoint reads
// through the cache with a per-source TTL so a burst of page loads costs
// at most one upstream call per source.
package web

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// ErrorResponse is the JSON shape of every error the API returns.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, errorType, detail string) {
	writeJSON(w, statusCode, ErrorResponse{Error: errorType, Detail: detail})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}
