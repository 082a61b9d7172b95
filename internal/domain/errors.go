// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrEmptyContent is returned when required content is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidExtractionStatus is returned when an extraction status is not valid.
	ErrInvalidExtractionStatus = errors.New("invalid extraction status")

	// ErrInvalidSourceKind is returned when a source kind is not recognised.
	ErrInvalidSourceKind = errors.New("invalid source kind")

	// ErrInvalidTransition is returned when an extraction status change is not
	// permitted from the current status.
	ErrInvalidTransition = errors.New("invalid extraction status transition")

	// ErrUnauthorized is returned when an operation is not permitted.
	ErrUnauthorized = errors.New("unauthorized operation")
)
