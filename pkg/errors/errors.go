package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeTransport        ErrorType = "transport"
	ErrorTypeRateLimited      ErrorType = "rate_limited"
	ErrorTypeUnexpectedStatus ErrorType = "unexpected_status"
	ErrorTypeParseFailure     ErrorType = "parse_failure"
	ErrorTypeEmptyResult      ErrorType = "empty_result"
	ErrorTypeNoDownloads      ErrorType = "no_downloads"
	ErrorTypeStorage          ErrorType = "storage"
)

// Error represents a classified failure with optional HTTP status and cause
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transport wraps a connection, timeout or DNS failure
func Transport(err error) *Error {
	return &Error{Type: ErrorTypeTransport, Message: "request failed", Err: err}
}

// RateLimited reports a 403/429 answer
func RateLimited(code int) *Error {
	return &Error{Type: ErrorTypeRateLimited, Message: http.StatusText(code), Code: code}
}

// UnexpectedStatus reports any other non-200 answer
func UnexpectedStatus(code int) *Error {
	return &Error{
		Type:    ErrorTypeUnexpectedStatus,
		Message: fmt.Sprintf("unexpected status code: %d", code),
		Code:    code,
	}
}

// ParseFailure wraps malformed or absent structured data
func ParseFailure(msg string, err error) *Error {
	return &Error{Type: ErrorTypeParseFailure, Message: msg, Err: err}
}

// Storage wraps a failure to persist downloaded bytes
func Storage(err error) *Error {
	return &Error{Type: ErrorTypeStorage, Message: "failed to save image", Err: err}
}

// EmptyResult reports that resolution produced no candidates
func EmptyResult(msg string, err error) *Error {
	return &Error{Type: ErrorTypeEmptyResult, Message: msg, Err: err}
}

// NoDownloads reports that candidates were found but none could be saved
func NoDownloads(candidates int) *Error {
	return &Error{
		Type:    ErrorTypeNoDownloads,
		Message: fmt.Sprintf("none of %d images could be downloaded", candidates),
	}
}

// ClassifyStatus maps a non-200 download status to its error type
func ClassifyStatus(code int) *Error {
	if IsRateLimitStatus(code) {
		return RateLimited(code)
	}
	return UnexpectedStatus(code)
}

// TypeOf returns the ErrorType carried by err, or "" when err is unclassified
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ""
}

// Is reports whether err is classified as t
func Is(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}

// IsRetryable checks if an error type should be retried by the download layer.
// Transport errors are excluded: the HTTP session already retried them.
func IsRetryable(errorType ErrorType) bool {
	return errorType == ErrorTypeRateLimited
}

// IsRateLimitStatus reports the statuses the download layer backs off on
func IsRateLimitStatus(statusCode int) bool {
	return statusCode == http.StatusForbidden || statusCode == http.StatusTooManyRequests
}

// IsRetryableStatusCode checks if a status should be retried by the HTTP transport
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case http.StatusForbidden, http.StatusTooManyRequests:
		return true
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
