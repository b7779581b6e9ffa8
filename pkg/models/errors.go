package models

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a class of failure in the orchestration core. The set
// is closed: permission and validation codes are never retried, execution and
// timeout codes on non-required workers are recovered locally.
type ErrorCode string

const (
	ErrPermissionDenied   ErrorCode = "permission_denied"
	ErrUnknownAction      ErrorCode = "unknown_action"
	ErrUnknownWorker      ErrorCode = "unknown_worker"
	ErrUnknownRole        ErrorCode = "unknown_role"
	ErrValidation         ErrorCode = "validation"
	ErrDuplicateTool      ErrorCode = "duplicate_tool"
	ErrInvalidSchema      ErrorCode = "invalid_schema"
	ErrInvalidCapability  ErrorCode = "invalid_capability"
	ErrToolExecution      ErrorCode = "tool_execution"
	ErrTimeout            ErrorCode = "timeout"
	ErrDependencyConflict ErrorCode = "dependency_conflict"
	ErrInternal           ErrorCode = "internal"
)

// Error is the structured error type surfaced across component boundaries.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds a structured error with a formatted message.
func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError builds a structured error around an underlying cause.
func WrapError(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// CodeOf extracts the ErrorCode from err, or ErrInternal if err is not a
// structured error. Returns "" for nil.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// AsError converts err into a *Error, wrapping foreign errors as ErrInternal.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: ErrInternal, Message: err.Error(), Cause: err}
}
