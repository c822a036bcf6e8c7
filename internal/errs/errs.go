package errs

import (
	"errors"
)

// Code is an application error code.
type Code string

const (
	UnsupportedBrowserKind Code = "unsupported_browser_kind"
	NotConfigured          Code = "not_configured"
	NotRunning             Code = "not_running"
	PageMismatch           Code = "page_mismatch"
	InvalidArgument        Code = "invalid_argument"
	Unavailable            Code = "unavailable"
	Internal               Code = "internal"
)

// Error is a coded application error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a coded error with message.
func New(code Code, message string) error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a coded error with message and cause.
func Wrap(code Code, message string, cause error) error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     cause,
	}
}

// CodeOf returns the error code, defaulting to internal.
func CodeOf(err error) Code {
	if err == nil {
		return Internal
	}
	var coded *Error
	if errors.As(err, &coded) {
		if coded.Code == "" {
			return Internal
		}
		return coded.Code
	}
	return Internal
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// MessageOf returns the coded message, or "internal error" for untyped errors.
func MessageOf(err error) string {
	if err == nil {
		return string(Internal)
	}
	var coded *Error
	if errors.As(err, &coded) && coded.Message != "" {
		return coded.Message
	}
	return "internal error"
}

// Fatal reports whether errors with this code should end the test run.
// Setup and configuration problems are fatal; diagnostics failures are not.
func Fatal(code Code) bool {
	switch code {
	case UnsupportedBrowserKind, NotConfigured, InvalidArgument:
		return true
	default:
		return false
	}
}

// ExitCode maps an error code to a process exit status.
func ExitCode(code Code) int {
	if Fatal(code) {
		return 2
	}
	return 1
}
