package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"busta/internal/core"
	"busta/internal/services"
	"busta/internal/storage"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "Failed to encode response", "error", err, "path", r.URL.Path)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorBody{Error: msg})
}

// writeServiceError maps domain errors onto HTTP status codes. Anything
// unrecognized is a 500 and gets logged; client errors are the caller's
// problem and only surface in the response body.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrMonthLocked):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrInvalidMonthKey),
		errors.Is(err, core.ErrInvalidPayday),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDeletionScope),
		errors.Is(err, core.ErrInvalidBucketType),
		errors.Is(err, core.ErrInvalidGoalTarget),
		errors.Is(err, core.ErrEmptyName):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Request failed", "error", err, "path", r.URL.Path)
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
