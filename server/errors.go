package server

import (
	"net/http"

	"github.com/sharanvkt/insane-dashboard-v2/errors"
)

// Sentinel errors raised by the HTTP layer itself.
// Service errors carry their own classification (see errors.IsValidationError etc).
var (
	// ErrUnauthenticated indicates the identity header was missing
	ErrUnauthenticated = errors.New("authentication required")

	// ErrRateLimited indicates the caller's token bucket is empty
	ErrRateLimited = errors.New("too many requests")
)

// statusFor maps the error taxonomy onto an HTTP status code.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.IsValidationError(err):
		return http.StatusBadRequest
	case errors.IsAccessDenied(err):
		return http.StatusForbidden
	case errors.IsNotFoundError(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// messageFor is the caller-visible text for err.
func messageFor(err error) string {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "Authentication required"
	case errors.Is(err, ErrRateLimited):
		return "Too many requests, please slow down"
	default:
		return errors.Message(err)
	}
}
