// Package errors provides structured error handling for the adapter.
//
// Every failure the adapter raises is classified by an ErrorType. The four
// adapter-owned categories (missing configuration, config mapping,
// configuration mismatch, unsupported operation) are all detected during
// stage construction; errors coming out of a backend during execution are
// never wrapped into these categories and propagate unchanged.
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeInternal represents internal system errors
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfig represents general configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeMissingConfiguration represents a required request field absent
	// at stage build time. Always a caller error, never retried.
	ErrorTypeMissingConfiguration ErrorType = "missing_configuration"
	// ErrorTypeConfigMapping represents a parameter-to-field coercion failure
	// in the config resolver. Carries the offending field name.
	ErrorTypeConfigMapping ErrorType = "config_mapping"
	// ErrorTypeConfigurationMismatch represents declared key/value types that
	// disagree with the backend format's actual element types.
	ErrorTypeConfigurationMismatch ErrorType = "configuration_mismatch"
	// ErrorTypeUnsupported represents a permanent capability gap. Callers must
	// not retry.
	ErrorTypeUnsupported ErrorType = "unsupported_operation"
	// ErrorTypeConnection represents connection errors
	ErrorTypeConnection ErrorType = "connection"
	// ErrorTypeTimeout represents timeout errors
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeIO represents file and stream I/O errors
	ErrorTypeIO ErrorType = "io"
)

// FieldDetailKey is the Details key under which field-scoped errors
// (missing_configuration, config_mapping) record the field name.
const FieldDetailKey = "field"

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with a formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// NewMissingConfiguration creates a missing_configuration error naming the
// absent request field.
func NewMissingConfiguration(field string) *Error {
	e := Newf(ErrorTypeMissingConfiguration, "%s is required", field)
	return e.WithDetail(FieldDetailKey, field)
}

// NewConfigMapping creates a config_mapping error naming the offending field.
func NewConfigMapping(field, message string) *Error {
	e := Newf(ErrorTypeConfigMapping, "field %q: %s", field, message)
	return e.WithDetail(FieldDetailKey, field)
}

// WrapConfigMapping wraps a coercion failure into a config_mapping error
// naming the offending field.
func WrapConfigMapping(err error, field string) *Error {
	e := Wrap(err, ErrorTypeConfigMapping, fmt.Sprintf("field %q", field))
	if e == nil {
		return nil
	}
	return e.WithDetail(FieldDetailKey, field)
}

// NewConfigurationMismatch creates a configuration_mismatch error describing
// the disagreement between declared and actual element types.
func NewConfigurationMismatch(role, declared, actual string) *Error {
	e := Newf(ErrorTypeConfigurationMismatch,
		"declared %s class %s does not match format %s class %s", role, declared, role, actual)
	return e.WithDetail("role", role).WithDetail("declared", declared).WithDetail("actual", actual)
}

// NewUnsupported creates an unsupported_operation error. The condition is
// permanent; callers must not retry.
func NewUnsupported(message string) *Error {
	return New(ErrorTypeUnsupported, message)
}

// Field returns the field name recorded on a field-scoped error and whether
// one was present.
func Field(err error) (string, bool) {
	var e *Error
	if !errors.As(err, &e) || e.Details == nil {
		return "", false
	}
	field, ok := e.Details[FieldDetailKey].(string)
	return field, ok
}

// IsRetryable returns true if the error is retryable. Adapter-owned build
// errors are never retryable.
func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}

	switch e.Type {
	case ErrorTypeTimeout, ErrorTypeConnection:
		return true
	default:
		return false
	}
}

// IsType checks if the error is of the given type
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// captureStack captures the current call stack
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
