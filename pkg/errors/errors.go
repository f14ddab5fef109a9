// Package errors provides structured error types for the sceneforge pipeline.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across CLI, HTTP API, and worker
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Codes map to the pipeline's failure taxonomy. Fatal stage failures
// (PARSE_ERROR, CONVERSION_ERROR, RENDER_ERROR, ...) abort a job;
// UNSUPPORTED_ELEMENT is recoverable and only ever logged inside the
// parser and scene builder.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeParse, "unexpected token %q at byte %d", tok, off)
//	if errors.Is(err, errors.ErrCodeParse) {
//	    // Handle parse failure
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeIO, origErr, "write snapshot %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for the pipeline failure taxonomy.
const (
	// Parser errors
	ErrCodeParse              Code = "PARSE_ERROR"
	ErrCodeUnsupportedElement Code = "UNSUPPORTED_ELEMENT"
	ErrCodeEmptyDocument      Code = "EMPTY_DOCUMENT"

	// Scene builder errors
	ErrCodeConversion Code = "CONVERSION_ERROR"

	// Animator errors
	ErrCodeUnknownTarget Code = "UNKNOWN_TARGET"
	ErrCodeNotSupported  Code = "NOT_SUPPORTED"

	// Renderer errors
	ErrCodeRender  Code = "RENDER_ERROR"
	ErrCodeTimeout Code = "TIMEOUT"
	ErrCodeIO      Code = "IO_ERROR"

	// Boundary errors
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeInternal     Code = "INTERNAL_ERROR"
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

// Fatal reports whether an error code terminates the job it occurred in.
// Only UNSUPPORTED_ELEMENT is recoverable: the offending element is
// skipped with a log entry and processing continues.
func Fatal(code Code) bool {
	return code != ErrCodeUnsupportedElement
}
