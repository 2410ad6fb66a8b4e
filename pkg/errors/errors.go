// Package errors defines the structured error type shared by every layer of the service.
// Each error carries a stable code and the HTTP status it maps to at the API boundary.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

const (
	CodeValidation       = "validation_error"
	CodeReferential      = "referential_error"
	CodeNotFound         = "not_found"
	CodeConflict         = "conflict"
	CodeUnauthorized     = "unauthorized"
	CodeForbidden        = "forbidden"
	CodeRateLimited      = "rate_limit_exceeded"
	CodeInvalidConfig    = "invalid_config"
	CodeStoreUnavailable = "store_unavailable"
	CodeInternal         = "internal_error"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Status  int
	Message string
	Details map[string]any
	cause   error
}

// New creates an AppError.
func New(code string, status int, message string) *AppError {
	return &AppError{Code: code, Status: status, Message: message}
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *AppError) Unwrap() error {
	return e.cause
}

// Is matches any AppError with the same code, so wrapped copies of a
// sentinel still satisfy errors.Is(err, ErrNotFound).
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithError returns a copy of e wrapping cause.
func (e *AppError) WithError(cause error) *AppError {
	c := e.clone()
	c.cause = cause
	return c
}

// WithMessage returns a copy of e with a more specific message.
func (e *AppError) WithMessage(format string, args ...any) *AppError {
	c := e.clone()
	c.Message = fmt.Sprintf(format, args...)
	return c
}

// WithDetails returns a copy of e carrying field level details.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	c := e.clone()
	c.Details = details
	return c
}

func (e *AppError) clone() *AppError {
	c := *e
	if e.Details != nil {
		c.Details = make(map[string]any, len(e.Details))
		for k, v := range e.Details {
			c.Details[k] = v
		}
	}
	return &c
}

// ================================================================================
// Predefined Errors
// ================================================================================

var (
	// ErrValidation is returned when a DTO fails field validation.
	ErrValidation = New(CodeValidation, http.StatusBadRequest, "request validation failed")

	// ErrReferential is returned when a referenced parent entity does not exist.
	ErrReferential = New(CodeReferential, http.StatusUnprocessableEntity, "referenced entity does not exist")

	// ErrNotFound signals an absent entity at the HTTP boundary.
	ErrNotFound = New(CodeNotFound, http.StatusNotFound, "resource not found")

	// ErrConflict is returned when a unique attribute is already taken.
	ErrConflict = New(CodeConflict, http.StatusConflict, "resource already exists")

	// ErrUnauthorized is returned for a missing or invalid principal, or bad credentials.
	ErrUnauthorized = New(CodeUnauthorized, http.StatusUnauthorized, "authentication required")

	// ErrForbidden is returned when the principal does not own the resource.
	ErrForbidden = New(CodeForbidden, http.StatusForbidden, "operation not permitted")

	// ErrRateLimited is returned when a tier budget is exhausted.
	ErrRateLimited = New(CodeRateLimited, http.StatusTooManyRequests, "too many requests")

	// ErrInvalidConfig is fatal at startup.
	ErrInvalidConfig = New(CodeInvalidConfig, http.StatusInternalServerError, "invalid configuration")

	// ErrStoreUnavailable is absorbed by the cache and the rate limiter, never surfaced.
	ErrStoreUnavailable = New(CodeStoreUnavailable, http.StatusServiceUnavailable, "shared store unavailable")

	// ErrInternal is the catch-all server error.
	ErrInternal = New(CodeInternal, http.StatusInternalServerError, "internal server error")
)

// ================================================================================
// Helpers
// ================================================================================

// As extracts an AppError from an error chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// HTTPStatus maps an error to the status code returned to API callers.
func HTTPStatus(err error) int {
	if appErr, ok := As(err); ok && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}
