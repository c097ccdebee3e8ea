package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown       ErrorCode = "UNKNOWN"
	ErrInternal      ErrorCode = "INTERNAL"
	ErrInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"
	ErrConfigValid ErrorCode = "CONFIG_INVALID"

	// Integrity errors
	ErrMissingHashReference ErrorCode = "MISSING_HASH_REFERENCE"
	ErrIntegrityMismatch    ErrorCode = "INTEGRITY_MISMATCH"
	ErrFetchVerification    ErrorCode = "FETCH_VERIFICATION_FAILED"

	// IO and transfer errors
	ErrIOFailure ErrorCode = "IO_FAILURE"
	ErrTransport ErrorCode = "TRANSPORT"
	ErrNotFound  ErrorCode = "NOT_FOUND"
	ErrArchive   ErrorCode = "ARCHIVE"

	// Dataset errors
	ErrDatasetNotAvailable ErrorCode = "DATASET_NOT_AVAILABLE"
	ErrDatasetUnknown      ErrorCode = "DATASET_UNKNOWN"
	ErrPackNotReady        ErrorCode = "PACK_NOT_READY"
)

// DataprovError represents a structured error with code and details
type DataprovError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *DataprovError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *DataprovError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface. Two errors match when their codes match.
func (e *DataprovError) Is(target error) bool {
	var targetErr *DataprovError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new DataprovError with the given code and message
func New(code ErrorCode, message string) *DataprovError {
	return &DataprovError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new DataprovError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *DataprovError {
	return &DataprovError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a DataprovError
func Wrap(err error, code ErrorCode, message string) *DataprovError {
	if err == nil {
		return nil
	}
	return &DataprovError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *DataprovError {
	if err == nil {
		return nil
	}
	return &DataprovError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *DataprovError) WithDetail(key string, value interface{}) *DataprovError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithDetails adds multiple details to the error
func (e *DataprovError) WithDetails(details map[string]interface{}) *DataprovError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// IsErrorCode reports whether any error in err's chain carries the given code.
// Wrapping a coded error in another coded error keeps both codes visible.
func IsErrorCode(err error, code ErrorCode) bool {
	for err != nil {
		var dpErr *DataprovError
		if !errors.As(err, &dpErr) {
			return false
		}
		if dpErr.Code == code {
			return true
		}
		err = dpErr.Wrapped
	}
	return false
}

// GetErrorCode returns the outermost error code, or ErrUnknown if err is not a DataprovError
func GetErrorCode(err error) ErrorCode {
	var dpErr *DataprovError
	if errors.As(err, &dpErr) {
		return dpErr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not a DataprovError
func GetErrorDetails(err error) map[string]interface{} {
	var dpErr *DataprovError
	if errors.As(err, &dpErr) {
		return dpErr.Details
	}
	return nil
}
