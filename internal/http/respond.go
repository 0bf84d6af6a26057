package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/splax/taskpulse/internal/domain"
)

// writeJSON writes a JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// errorBody is the canonical error response shape.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError sends an error response with the given code and message.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Code: code, Message: message})
}

// writeDomainError maps a service failure onto the wire. Domain errors carry
// their own status and code; anything else becomes a generic 500 with the
// detail kept in the server log, never in the response.
func writeDomainError(w http.ResponseWriter, logger *slog.Logger, requestID string, err error) {
	if de, ok := domain.AsError(err); ok {
		writeError(w, de.HTTPStatus(), de.Code, de.Message)
		return
	}
	logger.Error("unhandled service error", "request_id", requestID, "error", err)
	writeError(w, http.StatusInternalServerError, domain.CodeInternal, "internal server error")
}
