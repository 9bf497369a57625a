// Package errors provides structured error types for mapstack.
//
// This package defines error codes and types that enable:
//   - Telling configuration mistakes apart from transient fetch failures
//   - Machine-readable error codes for the HTTP API
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Two codes carry most of the weight:
//   - CONFIGURATION: the desired layer state cannot be reconciled at all
//     (unknown genre, missing or duplicate id, wrong spec type). Reconcile
//     aborts and returns it to the caller without touching the surface.
//   - FETCH_FAILED: a capability document could not be fetched or parsed.
//     This is recovered locally by the genre handlers and only logged.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeConfiguration, "genre %q is not registered", id)
//	if errors.Is(err, errors.ErrCodeConfiguration) {
//	    // Reject the desired state
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeFetchFailed, origErr, "capabilities of %s", url)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Reconciliation errors
	ErrCodeConfiguration Code = "CONFIGURATION"
	ErrCodeFetchFailed   Code = "FETCH_FAILED"

	// Desired-state store errors
	ErrCodeLayerNotFound  Code = "LAYER_NOT_FOUND"
	ErrCodeDuplicateLayer Code = "DUPLICATE_LAYER"
	ErrCodeReservedID     Code = "RESERVED_ID"

	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"

	// Resource and network errors
	ErrCodeNotFound Code = "NOT_FOUND"
	ErrCodeNetwork  Code = "NETWORK_ERROR"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Configuration is a shorthand for New(ErrCodeConfiguration, ...).
func Configuration(format string, args ...any) *Error {
	return New(ErrCodeConfiguration, format, args...)
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
