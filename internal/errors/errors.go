// Package errors provides the error taxonomy shared by the store and the
// sync engine.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies a failure for retry and conflict handling.
type ErrorCode string

const (
	// ErrStorage is a local persistence failure. It is fatal to the
	// triggering operation and never retried automatically.
	ErrStorage ErrorCode = "STORAGE_ERROR"

	// ErrNetwork is a transport-level failure (connection refused,
	// timeout). Retryable.
	ErrNetwork ErrorCode = "NETWORK_ERROR"

	// ErrServer is a remote 5xx response. Retryable.
	ErrServer ErrorCode = "SERVER_ERROR"

	// ErrConflict is a remote rejection due to a version mismatch.
	// Terminal: the entity moves to CONFLICT pending manual resolution.
	ErrConflict ErrorCode = "CONFLICT"

	// ErrValidation is a remote rejection of a malformed payload.
	// Terminal: the queue item is consumed and the entity moves to
	// CONFLICT rather than retrying an unfixable request forever.
	ErrValidation ErrorCode = "VALIDATION_ERROR"

	// ErrNotFound is returned by store lookups that match no row.
	ErrNotFound ErrorCode = "NOT_FOUND"
)

// AppError carries an error code alongside the message and cause.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap wraps an existing error with an error code.
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// As is the standard errors.As, re-exported so callers that alias this
// package keep one errors import.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// CodeOf returns the code of err, or empty string if err is not an AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Retryable reports whether a replay failure is presumed transient:
// network failures and server-side 5xx responses.
func Retryable(err error) bool {
	switch CodeOf(err) {
	case ErrNetwork, ErrServer:
		return true
	}
	return false
}

// Terminal reports whether a replay failure cannot succeed on retry
// without external intervention.
func Terminal(err error) bool {
	switch CodeOf(err) {
	case ErrConflict, ErrValidation:
		return true
	}
	return false
}
