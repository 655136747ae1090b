package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// ErrorType represents different types of transport errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents an HTTP API error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
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

// TypeForStatus maps a non-success HTTP status code to an ErrorType
func TypeForStatus(statusCode int) ErrorType {
	switch {
	case statusCode == 401 || statusCode == 403:
		return ErrorTypeAuth
	case statusCode == 404:
		return ErrorTypeNotFound
	case statusCode == 429:
		return ErrorTypeRateLimit
	case statusCode >= 500:
		return ErrorTypeServerError
	default:
		return ErrorTypeUnknown
	}
}

// IsAuth reports whether err carries an authentication-class API error
func IsAuth(err error) bool {
	var apiErr *Error
	return stderrors.As(err, &apiErr) && apiErr.Type == ErrorTypeAuth
}

// Kind classifies why a scan attempt or startup step failed
type Kind string

const (
	KindConfigMissing     Kind = "config_missing"
	KindInvalidCredential Kind = "invalid_credential"
	KindSourceUnavailable Kind = "source_unavailable"
	KindNoImagesFound     Kind = "no_images_found"
	KindDownloadFailed    Kind = "download_failed"
	KindUploadFailed      Kind = "upload_failed"
	KindScanRejected      Kind = "scan_rejected"
	KindScanTimeout       Kind = "scan_timeout"
	KindServiceError      Kind = "service_error"
)

// ScanError is a classified failure. Reason holds the server supplied
// rejection reason for KindScanRejected and free text otherwise.
type ScanError struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *ScanError) Error() string {
	switch {
	case e.Kind == KindScanRejected:
		return fmt.Sprintf("Scan failed: %s", e.Reason)
	case e.Kind == KindScanTimeout:
		return "Scan timeout"
	case e.Reason != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	case e.Reason != "":
		return e.Reason
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// New builds a ScanError of the given kind
func New(kind Kind, reason string) *ScanError {
	return &ScanError{Kind: kind, Reason: reason}
}

// Wrap builds a ScanError of the given kind around an underlying cause.
// Context cancellation is passed through untouched so callers can tell an
// interrupted attempt from a failed one.
func Wrap(kind Kind, reason string, err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &ScanError{Kind: kind, Reason: reason, Err: err}
}

// Rejected builds a ScanRejected error
func Rejected(reason string) *ScanError {
	if reason == "" {
		reason = "Unknown"
	}
	return &ScanError{Kind: KindScanRejected, Reason: reason}
}

// KindOf returns the classification of err, or "" when err is unclassified
func KindOf(err error) Kind {
	var scanErr *ScanError
	if stderrors.As(err, &scanErr) {
		return scanErr.Kind
	}
	return ""
}

// Is reports whether err is a ScanError of the given kind
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsCanceled reports whether err stems from context cancellation
func IsCanceled(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}

// Truncate shortens s to at most n runes for compact display
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
