// Package errors provides standardized error types for the dataset manager service.
package errors

import (
	"errors"
	"fmt"
)

// Error codes used across handlers and services.
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeNotFound         = "NOT_FOUND"
	CodeConnectionFailed = "CONNECTION_FAILED"
	CodeQueryFailed      = "QUERY_FAILED"
	CodeStorageFailed    = "STORAGE_FAILED"
	CodeInternal         = "INTERNAL_ERROR"
	CodeUnavailable      = "UNAVAILABLE"
	CodeDeadlineExceeded = "DEADLINE_EXCEEDED"
	CodeUnauthorized     = "UNAUTHORIZED"
)

// ServiceError represents a service error with code, message, and optional details.
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail adds a single detail to the error.
func (e *ServiceError) WithDetail(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Common errors
var (
	ErrDatasetNotFound  = &ServiceError{Code: CodeNotFound, Message: "dataset not found"}
	ErrTableNotFound    = &ServiceError{Code: CodeNotFound, Message: "table not found"}
	ErrConnectionFailed = &ServiceError{Code: CodeUnavailable, Message: "database connection failed"}
	ErrQueryTimeout     = &ServiceError{Code: CodeDeadlineExceeded, Message: "query execution timeout"}
)

// New creates a new ServiceError with the given code and message.
func New(code, message string) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with a ServiceError.
func Wrap(err error, code, message string) *ServiceError {
	if err == nil {
		return nil
	}
	return &ServiceError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, code, format string, args ...interface{}) *ServiceError {
	if err == nil {
		return nil
	}
	return &ServiceError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Code == CodeNotFound
	}
	return false
}

// GetCode extracts the error code from an error.
func GetCode(err error) string {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Code
	}
	return CodeInternal
}

// GetMessage extracts the error message from an error.
func GetMessage(err error) string {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Message
	}
	return err.Error()
}
