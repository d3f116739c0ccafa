package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeConfig      ErrorType = "config"
	ErrorTypeUnsupported ErrorType = "unsupported"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents a nekodl error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, msg)
	}
	return fmt.Sprintf("%s error: %s", e.Type, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error
func New(t ErrorType, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a typed error around a cause
func Wrap(t ErrorType, err error, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...), Err: err}
}

// Config is shorthand for a configuration error
func Config(format string, args ...interface{}) *Error {
	return New(ErrorTypeConfig, format, args...)
}

// FromStatus maps an HTTP status code to a typed error
func FromStatus(code int, url string) *Error {
	var t ErrorType
	switch {
	case code == http.StatusTooManyRequests:
		t = ErrorTypeRateLimit
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		t = ErrorTypeAuth
	case code == http.StatusNotFound:
		t = ErrorTypeNotFound
	case code >= 500:
		t = ErrorTypeServerError
	default:
		t = ErrorTypeUnknown
	}
	return &Error{Type: t, Code: code, Message: fmt.Sprintf("unexpected status %d from %s", code, url)}
}

// TypeOf returns the type of the first *Error in err's chain
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsType reports whether err carries the given error type
func IsType(err error, t ErrorType) bool {
	var e *Error
	return stderrors.As(err, &e) && e.Type == t
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0, http.StatusTooManyRequests:
		return true
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return false
	default:
		return statusCode >= 500
	}
}
