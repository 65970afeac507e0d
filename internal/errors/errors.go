package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Dose error code.
type ErrorCode string

const (
	ErrInvalidRequest         ErrorCode = "INVALID_REQUEST"                 // 400
	ErrNotFound               ErrorCode = "NOT_FOUND"                       // 404
	ErrFileNotFound           ErrorCode = "FILE_NOT_FOUND"                  // 404
	ErrConflict               ErrorCode = "CONFLICT"                        // 409
	ErrNotificationScheduling ErrorCode = "NOTIFICATION_SCHEDULING_FAILURE" // 502
	ErrStorageRead            ErrorCode = "STORAGE_READ_FAILURE"            // 503
	ErrStorageWrite           ErrorCode = "STORAGE_WRITE_FAILURE"           // 503
	ErrInternal               ErrorCode = "INTERNAL"                        // 500
)

// DoseError represents a structured error with code, status, and details.
type DoseError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	Cause   error
}

// Error implements the error interface.
func (e *DoseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *DoseError) Unwrap() error {
	return e.Cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *DoseError {
	return &DoseError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when a medication record cannot be found.
func NewNotFound(id string) *DoseError {
	return &DoseError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("medication not found: %s", id),
		Details: map[string]any{"id": id},
	}
}

// NewFileNotFound creates a 404 error for a missing import file.
func NewFileNotFound(path string) *DoseError {
	return &DoseError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewConflict creates a 409 error for id collisions.
func NewConflict(msg string, ids []string) *DoseError {
	e := &DoseError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
	if len(ids) > 0 {
		e.Details = map[string]any{"ids": ids}
	}
	return e
}

// NewStorageRead creates a 503 error when the record collection cannot be loaded or decoded.
func NewStorageRead(key string, cause error) *DoseError {
	return &DoseError{
		Code:    ErrStorageRead,
		Status:  503,
		Message: fmt.Sprintf("failed to read collection %q: %v", key, cause),
		Details: map[string]any{"key": key},
		Cause:   cause,
	}
}

// NewStorageWrite creates a 503 error when the record collection cannot be encoded or saved.
func NewStorageWrite(key string, cause error) *DoseError {
	return &DoseError{
		Code:    ErrStorageWrite,
		Status:  503,
		Message: fmt.Sprintf("failed to write collection %q: %v", key, cause),
		Details: map[string]any{"key": key},
		Cause:   cause,
	}
}

// NewNotificationScheduling creates a 502 error when the notifier refuses a trigger.
func NewNotificationScheduling(recordID string, cause error) *DoseError {
	return &DoseError{
		Code:    ErrNotificationScheduling,
		Status:  502,
		Message: fmt.Sprintf("failed to schedule reminder for %s: %v", recordID, cause),
		Details: map[string]any{"id": recordID},
		Cause:   cause,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *DoseError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &DoseError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		Cause:   err,
	}
}

// Is checks if an error (or anything it wraps) is a DoseError with the given code.
func Is(err error, code ErrorCode) bool {
	var dErr *DoseError
	if stderrors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// As is a convenience wrapper around errors.As for DoseError.
func As(err error) (*DoseError, bool) {
	var dErr *DoseError
	if stderrors.As(err, &dErr) {
		return dErr, true
	}
	return nil, false
}
