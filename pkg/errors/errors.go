package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies failures by how the collection engine reacts to them
type ErrorType string

const (
	// ErrorTypeTransient covers navigation timeouts and detached elements; retried with a bound
	ErrorTypeTransient ErrorType = "transient"
	// ErrorTypeSoftSkip covers missing elements and empty fields; the candidate or field is skipped
	ErrorTypeSoftSkip ErrorType = "soft_skip"
	// ErrorTypeLoopTerminal covers limits, date boundaries and stagnation
	ErrorTypeLoopTerminal ErrorType = "loop_terminal"
	// ErrorTypeSessionFatal covers a missing or invalid session artifact
	ErrorTypeSessionFatal ErrorType = "session_fatal"
	// ErrorTypeResource covers browser close and cleanup failures; logged, never raised
	ErrorTypeResource ErrorType = "resource"
)

// Error is a typed failure carrying the operation that produced it
type Error struct {
	Type    ErrorType
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error in %s: %s: %v", e.Type, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error in %s: %s", e.Type, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error
func New(t ErrorType, op, message string, err error) *Error {
	return &Error{Type: t, Op: op, Message: message, Err: err}
}

// Transient wraps err as a retryable failure
func Transient(op string, err error) *Error {
	return New(ErrorTypeTransient, op, "transient failure", err)
}

// SessionFatal wraps err as a failure that aborts the session
func SessionFatal(op, message string, err error) *Error {
	return New(ErrorTypeSessionFatal, op, message, err)
}

// Resource wraps err as a cleanup failure
func Resource(op string, err error) *Error {
	return New(ErrorTypeResource, op, "resource release failed", err)
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeTransient:
		return true
	case ErrorTypeSoftSkip, ErrorTypeLoopTerminal, ErrorTypeSessionFatal, ErrorTypeResource:
		return false
	default:
		return false
	}
}

// TypeOf returns the type of the first *Error in err's chain, or "" if there is none
func TypeOf(err error) ErrorType {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Type
	}
	return ""
}

// Is reports whether err carries the given type anywhere in its chain
func Is(err error, t ErrorType) bool {
	return TypeOf(err) == t
}
