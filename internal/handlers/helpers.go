package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ternarybob/aestimo/internal/models"
)

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// ErrorStatus maps a pipeline error to its HTTP status code.
func ErrorStatus(err error) int {
	switch {
	case models.IsValidationError(err):
		return http.StatusBadRequest
	case models.IsNotFoundError(err):
		return http.StatusNotFound
	case models.IsRateLimitError(err):
		return http.StatusTooManyRequests
	case models.IsUpstreamError(err), models.IsSynthesisError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrorMessage returns the client-facing message for a pipeline error.
// Validation and not-found messages are generated locally and safe to
// echo; everything else gets a stable message so raw provider responses
// never cross the API boundary.
func ErrorMessage(err error) string {
	switch {
	case models.IsValidationError(err), models.IsNotFoundError(err):
		return err.Error()
	case models.IsRateLimitError(err):
		return "upstream provider rate limited, retry later"
	case models.IsUpstreamError(err):
		return "upstream provider unavailable"
	case models.IsSynthesisError(err):
		return "memo synthesis failed"
	default:
		return "internal server error"
	}
}

// WritePipelineError writes an error response with the status and message
// matching the error taxonomy.
func WritePipelineError(w http.ResponseWriter, err error) error {
	return WriteError(w, ErrorStatus(err), ErrorMessage(err))
}
