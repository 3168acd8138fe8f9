package domain

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrAnnotationNotFound = errors.New("annotation not found")
	ErrNoPages            = errors.New("document has no pages")
	ErrInvalidFile        = errors.New("invalid file")
	ErrFileTooLarge       = errors.New("file too large")
	ErrStorageDisabled    = errors.New("export storage is not configured")
)

// ValidationError represents a validation error with field and message information.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}

// DecodeError reports source bytes that are not a well-formed document.
// It is fatal to the render that hit it; no partial output is produced.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "decode document: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EmbedError reports a raster image that could not be embedded. It only
// affects the annotation that carried the image.
type EmbedError struct {
	AnnotationID string
	Err          error
}

func (e *EmbedError) Error() string {
	if e.AnnotationID != "" {
		return fmt.Sprintf("embed image for annotation %s: %v", e.AnnotationID, e.Err)
	}
	return "embed image: " + e.Err.Error()
}

func (e *EmbedError) Unwrap() error {
	return e.Err
}

// InvalidCommitError reports a draft that does not satisfy the commit
// invariant. Promoting such a draft is a no-op.
type InvalidCommitError struct {
	Kind   Kind
	Reason string
}

func (e *InvalidCommitError) Error() string {
	return fmt.Sprintf("cannot commit %s annotation: %s", e.Kind, e.Reason)
}
