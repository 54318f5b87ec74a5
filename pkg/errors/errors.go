package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeTransport      ErrorType = "transport"
	ErrorTypeUpstreamFormat ErrorType = "upstream_format"
	ErrorTypeRateLimit      ErrorType = "rate_limit"
	ErrorTypeAuth           ErrorType = "auth"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeServerError    ErrorType = "server_error"
	ErrorTypeCircuitOpen    ErrorType = "circuit_open"
	ErrorTypeUnknown        ErrorType = "unknown"
)

// Error represents an adapter error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error (code %d): %s: %v", e.Type, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error
func New(errorType ErrorType, code int, message string) *Error {
	return &Error{Type: errorType, Code: code, Message: message}
}

// Wrap creates a typed error around a cause
func Wrap(errorType ErrorType, code int, message string, err error) *Error {
	return &Error{Type: errorType, Code: code, Message: message, Err: err}
}

// Validation reports missing or malformed caller input. Raised before any network call.
func Validation(message string) *Error {
	return New(ErrorTypeValidation, 0, message)
}

// Transport reports a network, DNS, timeout or non-2xx failure
func Transport(code int, message string, err error) *Error {
	return Wrap(ErrorTypeTransport, code, message, err)
}

// UpstreamFormat reports a successful transport with an unexpected response shape
func UpstreamFormat(message string, err error) *Error {
	return Wrap(ErrorTypeUpstreamFormat, 0, message, err)
}

// TypeOf returns the ErrorType carried by err, or ErrorTypeUnknown
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsType checks whether err carries the given type
func IsType(err error, errorType ErrorType) bool {
	return err != nil && TypeOf(err) == errorType
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeTransport, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	case ErrorTypeValidation, ErrorTypeUpstreamFormat, ErrorTypeAuth, ErrorTypeNotFound, ErrorTypeCircuitOpen:
		return false
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429:
		return true
	case 500, 502, 503, 504:
		return true
	case 400, 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}
