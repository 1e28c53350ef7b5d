// Package apperror defines the error taxonomy shared by the API client, the
// portal handlers and the CLI.
//
// ERROR KINDS:
// Every failure the portal can see falls into one of four buckets:
//
//	(a) transport:   the backend could not be reached or answered garbage
//	(b) auth:        401; the client refreshes once, then gives up
//	(c) backend:     the backend answered with a non-2xx envelope
//	(d) client-side: form validation that never reaches the network
//
// Callers branch on the sentinel with errors.Is and read the human-readable
// message from *AppError via errors.As (or just UserMessage).
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrTransport      = errors.New("transport error")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrSessionExpired = errors.New("session expired")
	ErrNotFound       = errors.New("not found")
	ErrValidation     = errors.New("Validation Error")
	ErrConflict       = errors.New("conflict")
	ErrForbidden      = errors.New("forbidden")
	ErrBackend        = errors.New("backend error")
)

type AppError struct {
	Err     error  // sentinel kind
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Status  int    // HTTP status reported by the backend, 0 for client-side errors
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
		Status:  http.StatusNotFound,
	}
}

// ValidationFailed is a client-side validation error (kind d). It never
// carries a status because no request was issued.
func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
		Status:  http.StatusConflict,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
		Status:  http.StatusForbidden,
	}
}

// Transport wraps a network or decoding failure.
func Transport(op string, err error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrTransport, err),
		Message: fmt.Sprintf("%s: %v", op, err),
	}
}

// SessionExpired is returned once the refresh-and-retry cycle has failed and
// the persisted session has been cleared. Callers redirect to the login page.
func SessionExpired(message string) *AppError {
	if message == "" {
		message = "your session has expired, please log in again"
	}
	return &AppError{
		Err:     ErrSessionExpired,
		Message: message,
		Status:  http.StatusUnauthorized,
	}
}

// FromStatus builds the error for a non-2xx backend response. The message is
// the backend's own text, passed through unchanged.
func FromStatus(status int, message string) *AppError {
	if message == "" {
		message = http.StatusText(status)
	}

	kind := ErrBackend
	switch {
	case status == http.StatusUnauthorized:
		kind = ErrUnauthorized
	case status == http.StatusForbidden:
		kind = ErrForbidden
	case status == http.StatusNotFound:
		kind = ErrNotFound
	case status == http.StatusConflict:
		kind = ErrConflict
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		kind = ErrValidation
	}

	return &AppError{Err: kind, Message: message, Status: status}
}

// UserMessage turns any error into notification text. Backend and validation
// messages are shown as-is; anything untyped gets a generic line so internal
// details never leak into the page.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		if errors.Is(err, ErrTransport) {
			return "Could not reach the server, please try again"
		}
		return appErr.Message
	}

	return "Something went wrong"
}

// HTTPStatus maps an error kind to the status the portal answers with.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrSessionExpired), errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrTransport), errors.Is(err, ErrBackend):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
