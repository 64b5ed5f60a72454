// Package errors provides error handling for the landing-page dashboard.
//
// This package re-exports github.com/cockroachdb/errors and adds the error
// taxonomy used by every store and service:
//
//	ErrValidation    caller supplied bad input; message is safe to show verbatim
//	ErrAccessDenied  the resolved permission scope does not cover the domain
//	ErrNotFound      the referenced domain or schedule does not exist
//	ErrPersistence   the document store failed; callers should retry
//	ErrApplyFailure  a due schedule could not be applied and will not be retried
//
// Usage:
//
//	if err := store.Create(ctx, rec); err != nil {
//	    return errors.WrapPersistence(err, "create scheduled update")
//	}
//
//	if errors.IsAccessDenied(err) {
//	    // render "Access denied"
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// GetStack returns the reportable stack trace attached to err, if any.
var GetStack = crdb.GetReportableStackTrace

// Sentinel errors. Check with errors.Is(); wrap with the helpers below so the
// original message survives alongside the classification.
var (
	ErrValidation   = New("validation failed")
	ErrAccessDenied = New("access denied")
	ErrNotFound     = New("not found")
	ErrPersistence  = New("persistence failure")
	ErrApplyFailure = New("apply failure")

	// ErrNotPending is returned by guarded schedule transitions when the
	// record has already left the pending state.
	ErrNotPending = New("schedule is no longer pending")
)

// NewValidationError creates a validation error whose message is shown to
// the caller unchanged.
func NewValidationError(msg string) error {
	return Mark(New(msg), ErrValidation)
}

// NewValidationErrorf is the formatted form of NewValidationError.
func NewValidationErrorf(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrValidation)
}

// NewAccessDeniedError creates an access-denied error for a domain.
func NewAccessDeniedError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrAccessDenied)
}

// NewNotFoundError creates a not-found error with a formatted message.
func NewNotFoundError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrNotFound)
}

// NewApplyFailure creates a non-retryable apply error.
func NewApplyFailure(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrApplyFailure)
}

// WrapPersistence classifies a store error as a persistence failure.
// Errors that already carry a classification keep it.
func WrapPersistence(err error, msg string) error {
	if err == nil {
		return nil
	}
	if IsAny(err, ErrNotFound, ErrValidation, ErrAccessDenied, ErrNotPending) {
		return Wrap(err, msg)
	}
	return Mark(Wrap(err, msg), ErrPersistence)
}

// WrapPersistencef is the formatted form of WrapPersistence.
func WrapPersistencef(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return WrapPersistence(err, Newf(format, args...).Error())
}

// WrapApplyFailure classifies err as a non-retryable apply failure.
func WrapApplyFailure(err error, msg string) error {
	if err == nil {
		return nil
	}
	return Mark(Wrap(err, msg), ErrApplyFailure)
}

// IsValidationError checks if an error is or wraps ErrValidation
func IsValidationError(err error) bool {
	return err != nil && Is(err, ErrValidation)
}

// IsAccessDenied checks if an error is or wraps ErrAccessDenied
func IsAccessDenied(err error) bool {
	return err != nil && Is(err, ErrAccessDenied)
}

// IsNotFoundError checks if an error is or wraps ErrNotFound
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsPersistenceError checks if an error is or wraps ErrPersistence
func IsPersistenceError(err error) bool {
	return err != nil && Is(err, ErrPersistence)
}

// IsApplyFailure checks if an error is or wraps ErrApplyFailure
func IsApplyFailure(err error) bool {
	return err != nil && Is(err, ErrApplyFailure)
}

// Message returns the caller-visible text of err: the outermost message of a
// validation or not-found error, "Access denied" for access errors, and a
// generic retry prompt for everything else.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case IsAccessDenied(err):
		return "Access denied"
	case IsValidationError(err), IsNotFoundError(err):
		return rootMessage(err)
	default:
		return "Something went wrong, please try again"
	}
}

// rootMessage finds the innermost message that is not a sentinel.
func rootMessage(err error) string {
	cause := UnwrapAll(err)
	if cause == nil {
		return err.Error()
	}
	return cause.Error()
}
