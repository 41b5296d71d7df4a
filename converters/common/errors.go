package common

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a conversion failure.
type ErrorCode string

const (
	// Per-file errors. The batch continues after any of these.
	ErrConnection  ErrorCode = "CONNECTION_ERROR"
	ErrQuery       ErrorCode = "QUERY_ERROR"
	ErrRead        ErrorCode = "READ_ERROR"
	ErrEncoding    ErrorCode = "ENCODING_ERROR"
	ErrUnsupported ErrorCode = "UNSUPPORTED_FORMAT"

	// Batch-fatal errors.
	ErrPackaging     ErrorCode = "PACKAGING_ERROR"
	ErrConfiguration ErrorCode = "CONFIGURATION_ERROR"
)

// ErrStalled is wrapped into a READ_ERROR when a read makes no progress within the stall timeout.
var ErrStalled = errors.New("read stalled")

// Fatal reports whether errors with this code abort the whole batch.
func (c ErrorCode) Fatal() bool {
	return c == ErrPackaging || c == ErrConfiguration
}

// ConversionError carries an error code and the file it relates to.
type ConversionError struct {
	Code    ErrorCode
	Path    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Path != "" {
		msg = fmt.Sprintf("[%s] %s: %s", e.Code, e.Path, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ConversionError) Unwrap() error {
	return e.Err
}

// New creates a ConversionError without an underlying cause.
func New(code ErrorCode, path, message string) *ConversionError {
	return &ConversionError{Code: code, Path: path, Message: message}
}

// Wrap wraps err with an error code.
func Wrap(code ErrorCode, path, message string, err error) *ConversionError {
	return &ConversionError{Code: code, Path: path, Message: message, Err: err}
}

// Is reports whether any error in err's chain is a ConversionError with the given code.
func Is(err error, code ErrorCode) bool {
	var ce *ConversionError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// CodeOf returns the code of the first ConversionError in err's chain, or "" if there is none.
func CodeOf(err error) ErrorCode {
	var ce *ConversionError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
