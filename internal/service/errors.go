package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/scry-reader/internal/store"
)

// Common service errors - sentinel errors used across service implementations.
// The API layer maps these to HTTP status codes.
var (
	// ErrSourceNotFound indicates the source does not exist or belongs to
	// another user. API layer should map this to HTTP 404 Not Found.
	ErrSourceNotFound = errors.New("source not found")

	// ErrNotDocumentSource indicates a document operation on a source of
	// another kind. API layer should map this to HTTP 409 Conflict.
	ErrNotDocumentSource = errors.New("source is not a document")

	// ErrInvalidUpload indicates the upload request failed validation.
	ErrInvalidUpload = errors.New("invalid upload")

	// ErrUnsupportedFileType indicates no extractor can handle the file.
	// API layer should map this to HTTP 415 Unsupported Media Type.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrFileTooLarge indicates the upload exceeded the storage size limit.
	// API layer should map this to HTTP 413 Request Entity Too Large.
	ErrFileTooLarge = errors.New("file too large")
)

// DocumentServiceError wraps errors from the document service with context.
type DocumentServiceError struct {
	// Operation is the operation that failed (e.g., "upload_document")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for DocumentServiceError.
func (e *DocumentServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("document service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("document service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *DocumentServiceError) Unwrap() error {
	return e.Err
}

// NewDocumentServiceError creates a new DocumentServiceError.
// It returns known sentinel errors directly without wrapping.
func NewDocumentServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	for _, sentinel := range []error{
		ErrSourceNotFound,
		ErrNotDocumentSource,
		ErrInvalidUpload,
		ErrUnsupportedFileType,
		ErrFileTooLarge,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}

	if errors.Is(err, store.ErrSourceNotFound) {
		return ErrSourceNotFound
	}

	return &DocumentServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
