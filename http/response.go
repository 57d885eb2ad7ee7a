package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sagarc03/servefile"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError writes appropriate error response based on error type
func HandleError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	switch status {
	case http.StatusBadRequest:
		slog.Debug("request error", "error", err)
		WriteError(w, status, "invalid_path", "Invalid path")
	case http.StatusMethodNotAllowed:
		w.Header().Set("Allow", allowedMethods)
		WriteError(w, status, "method_not_allowed", "Only GET and HEAD are supported")
	case http.StatusNotFound:
		WriteError(w, status, "not_found", "File not found")
	case http.StatusForbidden:
		WriteError(w, status, "forbidden", "Access denied")
	case http.StatusServiceUnavailable:
		slog.Warn("request abandoned", "error", err)
		WriteError(w, status, "unavailable", "Request could not be completed")
	default:
		slog.Error("request error", "error", err)
		WriteError(w, status, "internal_error", "Internal server error")
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, servefile.ErrInvalidPath):
		return http.StatusBadRequest
	case errors.Is(err, servefile.ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed
	case errors.Is(err, servefile.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, servefile.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}
