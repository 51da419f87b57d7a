// Package domainerrors provides coded errors shared across domain services.
// Services attach a Code so the transport layer can translate failures into
// external representations without inspecting error strings.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies a class of domain failure.
type Code string

const (
	// CodeInvalidInput marks a malformed or missing required field, caught
	// before any store mutation.
	CodeInvalidInput Code = "invalid_input"
	// CodeInvalidFormat marks an identifier that fails its pattern check.
	CodeInvalidFormat Code = "invalid_format"
	// CodeNotFound marks a lookup by identifier that matched nothing.
	CodeNotFound Code = "not_found"
	// CodeAlreadyExists marks an explicit duplicate rejection. The error
	// carries the entity kind and the conflicting value as fields.
	CodeAlreadyExists Code = "already_exists"
	// CodeInconsistent marks a matching identifier with contradictory
	// attributes. The error carries expected and found values as fields.
	CodeInconsistent Code = "inconsistent"
	// CodeNoCarAvailable marks an allocation with zero candidate cars.
	CodeNoCarAvailable Code = "no_car_available"
	// CodeFailedAttempt marks an allocation where every trial lost the race.
	CodeFailedAttempt Code = "failed_attempt"
	// CodeInternal marks an invariant violation. Never retried.
	CodeInternal Code = "internal_error"
)

// Error is the concrete coded error type. Fields hold structured context such
// as the conflicting entity kind or expected/found attribute values.
type Error struct {
	Code    Code
	Message string
	Err     error
	Fields  map[string]string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// With attaches a structured field and returns the error for chaining.
func (e *Error) With(key, value string) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[key] = value
	return e
}

// Field returns the named structured field, or "" when absent.
func (e *Error) Field(key string) string {
	return e.Fields[key]
}

// New constructs a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap annotates an underlying error with a code and message.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for errors
// that did not originate in the domain layer.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// FieldOf extracts a structured field from err, or "" when absent.
func FieldOf(err error, key string) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field(key)
	}
	return ""
}
