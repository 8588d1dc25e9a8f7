// Package errors provides the structured, coded error type used across tyranno.
//
// Every failure the sync engine can surface carries an ErrorCode that names its
// category, a human-readable message, and a Details map with the diagnostic
// context (file, line, dotted path, expression text, function arguments).
// Callers test categories with errors.Is or IsErrorCode rather than by matching
// message text.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"

	// Structural configuration errors (raised while building or merging trees)
	ErrInvalidKey       ErrorCode = "INVALID_KEY"
	ErrInvalidValue     ErrorCode = "INVALID_VALUE"
	ErrDuplicateKey     ErrorCode = "DUPLICATE_KEY"
	ErrLeafConflict     ErrorCode = "LEAF_CONFLICT"
	ErrLeafIntersection ErrorCode = "LEAF_INTERSECTION"

	// Path resolution errors
	ErrKeyNotFound  ErrorCode = "KEY_NOT_FOUND"
	ErrTypeMismatch ErrorCode = "TYPE_MISMATCH"

	// Expression and function errors
	ErrExpression ErrorCode = "EXPRESSION"
	ErrUnresolved ErrorCode = "UNRESOLVED"
	ErrFunction   ErrorCode = "FUNCTION"

	// Scanning errors
	ErrMalformedBlock ErrorCode = "MALFORMED_BLOCK"
	ErrUnknownProfile ErrorCode = "UNKNOWN_PROFILE"

	// I/O and network errors
	ErrFileRead      ErrorCode = "FILE_READ"
	ErrFileWrite     ErrorCode = "FILE_WRITE"
	ErrHTTP          ErrorCode = "HTTP"
	ErrNotDescendant ErrorCode = "NOT_DESCENDANT"

	// Application settings
	ErrConfigLoad ErrorCode = "CONFIG_LOAD"
)

// Error represents a structured error with code and details
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *Error) Is(target error) bool {
	var targetErr *Error
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new Error with the given code and message
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new Error with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with an Error
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithDetails adds multiple details to the error
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// Describe renders the message followed by the sorted details, for log output
// where the reader needs the location of a fault and not just its category.
func (e *Error) Describe() string {
	if len(e.Details) == 0 {
		return e.Error()
	}
	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, e.Details[k]))
	}
	return fmt.Sprintf("%s (%s)", e.Error(), strings.Join(parts, ", "))
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var tyrErr *Error
	if errors.As(err, &tyrErr) {
		return tyrErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not an Error
func GetErrorCode(err error) ErrorCode {
	var tyrErr *Error
	if errors.As(err, &tyrErr) {
		return tyrErr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not an Error
func GetErrorDetails(err error) map[string]interface{} {
	var tyrErr *Error
	if errors.As(err, &tyrErr) {
		return tyrErr.Details
	}
	return nil
}

// Find returns the first *Error in err's chain.
func Find(err error) (*Error, bool) {
	var tyrErr *Error
	if errors.As(err, &tyrErr) {
		return tyrErr, true
	}
	return nil, false
}

// Join combines per-file failures into one error. It returns nil if every error is nil.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
