package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Standard error types
var (
	ErrNotFound      = errors.New("resource not found")
	ErrBadRequest    = errors.New("bad request")
	ErrConflict      = errors.New("resource conflict")
	ErrInternal      = errors.New("internal server error")
	ErrValidation    = errors.New("validation error")
	ErrFIFOViolation = errors.New("fifo violation")
	ErrConfiguration = errors.New("configuration error")
	ErrPersistence   = errors.New("persistence error")
	ErrStaleRecord   = errors.New("stale record")
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code string, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, code string, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// Common error constructors

func NotFound(resource string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       "CONFLICT",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func Internal(message string) *AppError {
	return &AppError{
		Err:        ErrInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func Validation(details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Code:       "VALIDATION_ERROR",
		Message:    "validation failed",
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// FIFOViolation rejects a stock update that skips an earlier unsold batch.
// The details name the batch to sell first.
func FIFOViolation(batchNumber string, remaining int, expiry *time.Time) *AppError {
	details := map[string]string{
		"batch_number":       batchNumber,
		"remaining_portions": fmt.Sprintf("%d", remaining),
	}
	if expiry != nil {
		details["expiry_date"] = expiry.Format(time.RFC3339)
	}
	return &AppError{
		Err:        ErrFIFOViolation,
		Code:       "FIFO_VIOLATION",
		Message:    fmt.Sprintf("sell batch %s first (%d portions remaining)", batchNumber, remaining),
		StatusCode: http.StatusConflict,
		Details:    details,
	}
}

// Configuration reports catalog data the request cannot be served from.
func Configuration(message string) *AppError {
	return &AppError{
		Err:        ErrConfiguration,
		Code:       "CONFIGURATION_ERROR",
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
	}
}

// Persistence wraps a failed save. Nothing was applied; the caller may retry.
func Persistence(err error) *AppError {
	return &AppError{
		Err:        fmt.Errorf("%w: %w", ErrPersistence, err),
		Code:       "PERSISTENCE_ERROR",
		Message:    "failed to save changes, please retry",
		StatusCode: http.StatusServiceUnavailable,
	}
}

// StaleRecord rejects a write made against an out-of-date version.
func StaleRecord(resource string) *AppError {
	return &AppError{
		Err:        ErrStaleRecord,
		Code:       "STALE_RECORD",
		Message:    fmt.Sprintf("%s was changed by someone else, reload and retry", resource),
		StatusCode: http.StatusConflict,
	}
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}
