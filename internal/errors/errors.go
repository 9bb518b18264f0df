// Package errors defines the coded error taxonomy used across the generation pipeline.
//
// Every failure that leaves a stage carries one of the codes below so the
// orchestrator can decide whether it aborts the call (configuration), is
// reported as a result (validation, upstream) or is handed back to the caller
// (persistence).
package errors

import (
	"errors"
	"fmt"
)

// Code classifies a pipeline error.
type Code string

const (
	CodeConfiguration   Code = "CONFIGURATION"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidation      Code = "VALIDATION"
	CodeUpstream        Code = "UPSTREAM"
	CodePersistence     Code = "PERSISTENCE"
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeInternal        Code = "INTERNAL"
)

// String returns the string representation of the code
func (c Code) String() string {
	return string(c)
}

// Error is a structured error with code, message and metadata.
type Error struct {
	Code    Code                   `json:"code"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Meta    map[string]interface{} `json:"meta,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var targetErr *Error
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// WithMeta adds metadata to the error
func (e *Error) WithMeta(key string, value interface{}) *Error {
	if e.Meta == nil {
		e.Meta = make(map[string]interface{})
	}
	e.Meta[key] = value
	return e
}

// New creates a new error with the given code and message
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a new error with a formatted message
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps err, preserving its code if it already is an *Error.
func Wrap(err error, message string) *Error {
	if err == nil {
		return nil
	}

	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Code:    existingErr.Code,
			Message: message,
			Cause:   err,
			Meta:    existingErr.Meta,
		}
	}

	return &Error{Code: CodeInternal, Message: message, Cause: err}
}

// Wrapf wraps an error with a formatted message
func Wrapf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WrapWithCode wraps err with an explicit code.
func WrapWithCode(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Cause: err}
}

// WrapWithCodef wraps an error with a specific code and formatted message
func WrapWithCodef(err error, code Code, format string, args ...interface{}) *Error {
	return WrapWithCode(err, code, fmt.Sprintf(format, args...))
}

// Configurationf creates a configuration error. Configuration errors abort a generation call.
func Configurationf(format string, args ...interface{}) *Error {
	return Newf(CodeConfiguration, format, args...)
}

// NotFoundf creates a not found error with formatted message
func NotFoundf(format string, args ...interface{}) *Error {
	return Newf(CodeNotFound, format, args...)
}

// InvalidArgumentf creates an invalid argument error with formatted message
func InvalidArgumentf(format string, args ...interface{}) *Error {
	return Newf(CodeInvalidArgument, format, args...)
}

// Upstream wraps a failure of the external model call.
func Upstream(err error, message string) *Error {
	return WrapWithCode(err, CodeUpstream, message)
}

// Persistence wraps a failed transactional write.
func Persistence(err error, message string) *Error {
	return WrapWithCode(err, CodePersistence, message)
}

// GetCode returns the code of err, CodeInternal for foreign errors and "" for nil.
func GetCode(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool { return GetCode(err) == CodeConfiguration }

// IsNotFound reports whether err is a not found error.
func IsNotFound(err error) bool { return GetCode(err) == CodeNotFound }

// IsUpstream reports whether err is an upstream failure.
func IsUpstream(err error) bool { return GetCode(err) == CodeUpstream }

// IsPersistence reports whether err is a persistence failure.
func IsPersistence(err error) bool { return GetCode(err) == CodePersistence }
