package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"pdf-annotator/internal/domain"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeDecode     ErrorType = "decode"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeTooLarge   ErrorType = "too_large"
	ErrorTypeInternal   ErrorType = "internal"
	ErrorTypeStorage    ErrorType = "storage"
	ErrorTypeTimeout    ErrorType = "timeout"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"-"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error
func NewValidationError(message string, details ...string) *AppError {
	detail := ""
	if len(details) > 0 {
		detail = details[0]
	}
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		Details:    detail,
		StatusCode: http.StatusBadRequest,
	}
}

// NewDecodeError creates an error for an unreadable document
func NewDecodeError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeDecode,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Cause:      cause,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewTooLargeError creates an error for an oversized upload
func NewTooLargeError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeTooLarge,
		Message:    message,
		StatusCode: http.StatusRequestEntityTooLarge,
	}
}

// NewInternalError creates a new internal server error
func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewStorageError creates an error for a failed or disabled export upload
func NewStorageError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeStorage,
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
		Cause:      cause,
	}
}

// NewTimeoutError creates an error for a render that missed its deadline
func NewTimeoutError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeTimeout,
		Message:    message,
		StatusCode: http.StatusGatewayTimeout,
		Cause:      cause,
	}
}

// FromDomain maps a domain error to an AppError. Unknown errors become
// internal errors.
func FromDomain(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var validationErr *domain.ValidationError
	var commitErr *domain.InvalidCommitError
	var decodeErr *domain.DecodeError

	switch {
	case errors.As(err, &validationErr):
		return &AppError{
			Type:       ErrorTypeValidation,
			Message:    validationErr.Error(),
			StatusCode: http.StatusBadRequest,
			Cause:      err,
		}
	case errors.As(err, &commitErr):
		return &AppError{
			Type:       ErrorTypeValidation,
			Message:    commitErr.Error(),
			StatusCode: http.StatusBadRequest,
			Cause:      err,
		}
	case errors.Is(err, domain.ErrNoPages):
		return NewDecodeError("document has no pages", err)
	case errors.As(err, &decodeErr):
		return NewDecodeError("document could not be read", err)
	case errors.Is(err, domain.ErrSessionNotFound):
		return NewNotFoundError("session not found")
	case errors.Is(err, domain.ErrAnnotationNotFound):
		return NewNotFoundError("annotation not found")
	case errors.Is(err, domain.ErrInvalidFile):
		return NewValidationError("invalid file")
	case errors.Is(err, domain.ErrFileTooLarge):
		return NewTooLargeError("file too large")
	case errors.Is(err, domain.ErrStorageDisabled):
		return NewStorageError("export storage is not configured", err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewTimeoutError("render timed out", err)
	}
	return NewInternalError("internal server error", err)
}

// IsType checks if the error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode returns the HTTP status code for an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
