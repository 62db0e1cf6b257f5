// Package errors provides structured error types for the posegate harness.
//
// This package defines error codes that map directly to process exit
// codes, so every failure mode of the pipeline (missing file,
// undersized output, missing secret) surfaces as one labeled stderr
// line plus a distinct exit status.
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - *_NOT_FOUND: Resource not found
//   - MISSING_*: Required configuration absent
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeFileNotFound, "pose timeline not found: %s", path)
//	if errors.Is(err, errors.ErrCodeFileNotFound) {
//	    // Handle missing input
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeUploadFailed, origErr, "upload %s", key)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidConfig   Code = "INVALID_CONFIG"
	ErrCodeInvalidTimeline Code = "INVALID_TIMELINE"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Output verification errors
	ErrCodeOutputUndersized Code = "OUTPUT_UNDERSIZED"
	ErrCodeOutputMissing    Code = "OUTPUT_MISSING"

	// Configuration / credential errors
	ErrCodeMissingSecret Code = "MISSING_SECRET"

	// External process / network errors
	ErrCodeRendererFailed Code = "RENDERER_FAILED"
	ErrCodeUploadFailed   Code = "UPLOAD_FAILED"
	ErrCodeAuthFailed     Code = "AUTH_FAILED"

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

// ExitCode maps an error to a process exit status.
//
// The mapping is part of the harness contract: an undersized output is
// the only condition with its own status (3); every other failure is a
// generic fatal (1). A nil error maps to 0.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if Is(err, ErrCodeOutputUndersized) {
		return 3
	}
	return 1
}
