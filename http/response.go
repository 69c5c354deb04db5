package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/filedepot/filedepot"
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

// HandleError writes the error response matching the error's code.
func HandleError(w http.ResponseWriter, err error) {
	slog.Error("request error", "error", err)

	if errors.Is(err, ErrUnauthorized) {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}

	var rejected *filedepot.HookRejectedError
	if errors.As(err, &rejected) {
		WriteError(w, http.StatusForbidden, "rejected", rejected.Reason)
		return
	}

	switch filedepot.Code(err) {
	case http.StatusNotFound:
		WriteError(w, http.StatusNotFound, "not_found", "File not found")
	case http.StatusBadRequest:
		WriteError(w, http.StatusBadRequest, "invalid_input", errMessage(err, "Invalid input"))
	case http.StatusForbidden:
		WriteError(w, http.StatusForbidden, "forbidden", errMessage(err, "Forbidden"))
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

func errMessage(err error, fallback string) string {
	var ce *filedepot.Error
	if errors.As(err, &ce) {
		return ce.Message
	}
	return fallback
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}
