package handler

// RESPONSE HELPERS:
// JSON routes answer in the same envelope the backend uses, so a browser
// script can treat portal and backend responses alike:
//
//	success: {"status":"success","data":{...}}
//	failure: {"status":"error","error":"validation_error","message":"amount must be a number","field":"amount"}

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/xeenux-portal/internal/apperror"
	"github.com/sakif/xeenux-portal/internal/model"
)

// maxRequestBytes caps JSON request bodies.
const maxRequestBytes = 1 << 20

// ErrorResponse is the error envelope of every JSON route.
type ErrorResponse struct {
	Status  string `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// writeJSON wraps data in a success envelope. Headers and status must be
// set before the body is written.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	env := model.Envelope[any]{Status: model.StatusSuccess, Data: data}
	if err := json.NewEncoder(w).Encode(env); err != nil {
		// headers are gone already; all that is left is to log it
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError maps err to a status and error envelope.
//
// Backend and validation messages are passed through. Anything untyped
// becomes a generic message so internal details never reach the browser.
func writeError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{
		Status:  "error",
		Error:   errorKind(err),
		Message: apperror.UserMessage(err),
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		resp.Field = appErr.Field
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperror.HTTPStatus(err))
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode JSON error", slog.String("error", err.Error()))
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return "validation_error"
	case errors.Is(err, apperror.ErrSessionExpired):
		return "session_expired"
	case errors.Is(err, apperror.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		return "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperror.ErrConflict):
		return "conflict"
	case errors.Is(err, apperror.ErrTransport):
		return "backend_unreachable"
	case errors.Is(err, apperror.ErrBackend):
		return "backend_error"
	}
	return "internal_error"
}

// decodeJSON reads a JSON request body into dst. A malformed body is a
// validation error.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.ValidationFailed("", "Request body is required")
		}
		return apperror.ValidationFailed("", "Invalid request body")
	}
	return nil
}
