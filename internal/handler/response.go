package handler

// RESPONSE HELPERS:
// Every handler writes through writeJSON and writeError so the API has one
// success shape and one error shape:
//
//	{"error": "not_found", "message": "note not found with id 12"}
//
// writeError is the single place where domain errors become status codes.

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/notes/internal/apperror"
	"github.com/sakif/notes/internal/auth"
	"github.com/sakif/notes/internal/model"
)

// maxBodyBytes caps request bodies. Note content carries editor markup,
// so the limit is generous.
const maxBodyBytes = 5 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable kind, e.g. "not_found"
	Message string `json:"message"` // human-readable description
}

// MessageResponse acknowledges a delete. Count is set for bulk deletes.
type MessageResponse struct {
	Message string `json:"message"`
	Count   *int64 `json:"count,omitempty"`
}

// writeJSON sends data as JSON. Headers and status must be set before the
// body is written; once Encode writes, header changes are ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its status code:
//
//	ErrValidation      → 400 validation_error
//	ErrConflict        → 400 conflict
//	ErrUnauthenticated → 401 unauthorized
//	ErrNotFound        → 404 not_found
//	anything else      → 500 internal_error
//
// Unexpected errors are logged in full and answered with a generic message
// so SQL, paths and stack details never reach the client.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status, kind := http.StatusInternalServerError, "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status, kind = http.StatusBadRequest, "validation_error"
		case errors.Is(err, apperror.ErrConflict):
			status, kind = http.StatusBadRequest, "conflict"
		case errors.Is(err, apperror.ErrUnauthenticated):
			status, kind = http.StatusUnauthorized, "unauthorized"
		case errors.Is(err, apperror.ErrNotFound):
			status, kind = http.StatusNotFound, "not_found"
		}

		if status != http.StatusInternalServerError {
			writeJSON(w, status, ErrorResponse{Error: kind, Message: appErr.Message})
			return
		}
	}

	logger.Error("request failed", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// decodeJSON reads a single JSON object from the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return apperror.ValidationFailed("body", "Request body is too large")
		case errors.Is(err, io.EOF):
			return apperror.ValidationFailed("body", "Request body is required")
		default:
			var appErr *apperror.AppError
			if errors.As(err, &appErr) {
				return appErr
			}
			return apperror.ValidationFailed("body", "Invalid JSON body")
		}
	}
	return nil
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed(name, "Invalid id: "+strconv.Quote(raw))
	}
	return id, nil
}

// callerFrom returns the caller Authenticate stored on the request.
func callerFrom(r *http.Request) (model.Caller, error) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		return nil, apperror.Unauthenticated("Authentication required")
	}
	return caller, nil
}
