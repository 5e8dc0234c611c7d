package api

import (
	"encoding/json"
	"net/http"

	"github.com/Paramfpv/lev/internal/log"
)

// writeJSON writes a JSON response with the given status code.
// If encoding fails after WriteHeader the status is already on the wire;
// the error is only logged.
func writeJSON(w http.ResponseWriter, status int, data any, logger log.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, err, message string, logger log.Logger) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: message}, logger)
}
