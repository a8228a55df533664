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
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"

	// Engine errors, one per surfaced failure kind
	ErrNotFound            ErrorCode = "NOT_FOUND"
	ErrPermission          ErrorCode = "PERMISSION_DENIED"
	ErrUnsupportedPlatform ErrorCode = "UNSUPPORTED_ON_PLATFORM"
	ErrLinkFailed          ErrorCode = "LINK_FAILED"
	ErrConflict            ErrorCode = "CONFLICT"
	ErrCorruptState        ErrorCode = "CORRUPT_STATE"
	ErrLocked              ErrorCode = "LOCKED"
	ErrIO                  ErrorCode = "IO"

	// Backup errors
	ErrBackupStore   ErrorCode = "BACKUP_STORE"
	ErrBackupRestore ErrorCode = "BACKUP_RESTORE"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"
	ErrConfigValid ErrorCode = "CONFIG_INVALID"
)

// BridgeError represents a structured error with code and details
type BridgeError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *BridgeError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *BridgeError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *BridgeError) Is(target error) bool {
	var targetErr *BridgeError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new BridgeError with the given code and message
func New(code ErrorCode, message string) *BridgeError {
	return &BridgeError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new BridgeError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *BridgeError {
	return &BridgeError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a BridgeError
func Wrap(err error, code ErrorCode, message string) *BridgeError {
	if err == nil {
		return nil
	}
	return &BridgeError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *BridgeError {
	if err == nil {
		return nil
	}
	return &BridgeError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *BridgeError) WithDetail(key string, value interface{}) *BridgeError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithPath attaches the offending path, the detail every engine error
// is required to carry.
func (e *BridgeError) WithPath(path string) *BridgeError {
	return e.WithDetail("path", path)
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var bridgeErr *BridgeError
	if errors.As(err, &bridgeErr) {
		return bridgeErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a BridgeError
func GetErrorCode(err error) ErrorCode {
	var bridgeErr *BridgeError
	if errors.As(err, &bridgeErr) {
		return bridgeErr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not a BridgeError
func GetErrorDetails(err error) map[string]interface{} {
	var bridgeErr *BridgeError
	if errors.As(err, &bridgeErr) {
		return bridgeErr.Details
	}
	return nil
}
