package core

import (
	"errors"
	"fmt"
)

// Error carries a stable code alongside a readable message. Errors compare
// equal under errors.Is when their codes match, so the predefined values
// below work as sentinels even after wrapping.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Code == t.Code
}

// WrapError returns a copy of base carrying cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{Code: base.Code, Message: base.Message, Cause: cause}
}

// Errorf wraps a formatted cause under base.
func Errorf(base *Error, format string, args ...any) *Error {
	return WrapError(base, fmt.Errorf(format, args...))
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

var (
	// Rejected before any work is done
	ErrInvalidArgument = &Error{Code: "INVALID_ARGUMENT", Message: "invalid argument"}
	ErrInvalidInput    = &Error{Code: "INVALID_INPUT", Message: "invalid price series"}

	ErrNoData = &Error{Code: "NO_DATA", Message: "no data available"}

	// Collaborators
	ErrCollectorFailed   = &Error{Code: "COLLECTOR_FAILED", Message: "collector failed"}
	ErrCollectorNotFound = &Error{Code: "COLLECTOR_NOT_FOUND", Message: "collector not found"}
	ErrStorageFailed     = &Error{Code: "STORAGE_FAILED", Message: "storage operation failed"}

	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}
)
