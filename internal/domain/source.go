package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SourceKind distinguishes the kinds of content a user can read.
type SourceKind string

// Possible source kinds. Only SourceKindDocument takes part in text extraction.
const (
	SourceKindDocument  SourceKind = "document"
	SourceKindWikipedia SourceKind = "wikipedia"
	SourceKindArticle   SourceKind = "article"
)

// ExtractionStatus represents the text-extraction state of a source.
type ExtractionStatus string

// Possible extraction status values
const (
	ExtractionStatusPending    ExtractionStatus = "pending"
	ExtractionStatusProcessing ExtractionStatus = "processing"
	ExtractionStatusCompleted  ExtractionStatus = "completed"
	ExtractionStatusFailed     ExtractionStatus = "failed"
)

// Common validation errors for Source
var (
	ErrEmptySourceID     = errors.New("source ID cannot be empty")
	ErrEmptySourceUserID = errors.New("source user ID cannot be empty")
	ErrEmptySourceTitle  = errors.New("source title cannot be empty")
	ErrErrorWithoutFail  = errors.New("extraction error is only allowed on failed sources")
	ErrFailWithoutError  = errors.New("failed sources must carry an extraction error")
	ErrContentNotReady   = errors.New("text content is only allowed on completed sources")
)

// transitions lists, for each status, the statuses it may move to.
// Completed and Failed are reachable only from Processing. Pending is
// reachable from anywhere because a re-upload resets the source.
var transitions = map[ExtractionStatus][]ExtractionStatus{
	ExtractionStatusPending: {
		ExtractionStatusPending,
		ExtractionStatusProcessing,
	},
	ExtractionStatusProcessing: {
		ExtractionStatusPending,
		ExtractionStatusProcessing,
		ExtractionStatusCompleted,
		ExtractionStatusFailed,
	},
	ExtractionStatusCompleted: {
		ExtractionStatusPending,
		ExtractionStatusProcessing,
	},
	ExtractionStatusFailed: {
		ExtractionStatusPending,
		ExtractionStatusProcessing,
	},
}

// CanTransition reports whether a source may move from one extraction status to another.
func CanTransition(from, to ExtractionStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Source is a piece of readable content owned by a user. Document sources
// carry the extraction state machine and, once extraction completes, the
// extracted text.
type Source struct {
	ID                    uuid.UUID        `json:"id"`
	UserID                uuid.UUID        `json:"user_id"`
	Kind                  SourceKind       `json:"kind"`
	Title                 string           `json:"title"`
	TextContent           *string          `json:"text_content,omitempty"`
	ExtractionStatus      ExtractionStatus `json:"extraction_status"`
	ExtractionError       *string          `json:"extraction_error,omitempty"`
	ExtractionCompletedAt *time.Time       `json:"extraction_completed_at,omitempty"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`
}

// NewSource creates a new Source in the pending extraction state.
// Returns an error if validation fails.
func NewSource(userID uuid.UUID, kind SourceKind, title string) (*Source, error) {
	now := time.Now().UTC()
	source := &Source{
		ID:               uuid.New(),
		UserID:           userID,
		Kind:             kind,
		Title:            strings.TrimSpace(title),
		ExtractionStatus: ExtractionStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := source.Validate(); err != nil {
		return nil, err
	}

	return source, nil
}

// Validate checks the Source fields and the extraction invariants:
// an error is present exactly when the status is failed, and text content
// is only present once extraction has completed.
func (s *Source) Validate() error {
	if s.ID == uuid.Nil {
		return ErrEmptySourceID
	}

	if s.UserID == uuid.Nil {
		return ErrEmptySourceUserID
	}

	if s.Title == "" {
		return ErrEmptySourceTitle
	}

	if !isValidSourceKind(s.Kind) {
		return ErrInvalidSourceKind
	}

	if !isValidExtractionStatus(s.ExtractionStatus) {
		return ErrInvalidExtractionStatus
	}

	failed := s.ExtractionStatus == ExtractionStatusFailed
	if failed && s.ExtractionError == nil {
		return ErrFailWithoutError
	}
	if !failed && s.ExtractionError != nil {
		return ErrErrorWithoutFail
	}

	if s.HasText() && s.ExtractionStatus != ExtractionStatusCompleted {
		return ErrContentNotReady
	}

	return nil
}

// HasText reports whether the source carries non-empty extracted text.
func (s *Source) HasText() bool {
	return s.TextContent != nil && *s.TextContent != ""
}

// ShouldSkipExtraction reports whether an extraction job for this source
// must be dropped without touching its state: non-document sources never
// extract, and completed sources that already hold text are not redone.
func (s *Source) ShouldSkipExtraction() bool {
	if s.Kind != SourceKindDocument {
		return true
	}
	return s.ExtractionStatus == ExtractionStatusCompleted && s.HasText()
}

// StartExtraction moves the source into the processing state.
func (s *Source) StartExtraction() error {
	if err := s.transition(ExtractionStatusProcessing); err != nil {
		return err
	}
	s.ExtractionError = nil
	return nil
}

// CompleteExtraction records successfully extracted text. Empty text is a
// valid outcome. The error is cleared and the completion time is stamped.
func (s *Source) CompleteExtraction(text string, at time.Time) error {
	if err := s.transition(ExtractionStatusCompleted); err != nil {
		return err
	}
	s.TextContent = &text
	s.ExtractionError = nil
	completedAt := at.UTC()
	s.ExtractionCompletedAt = &completedAt
	return nil
}

// FailExtraction records a failed extraction with a human-readable cause.
func (s *Source) FailExtraction(message string, at time.Time) error {
	if err := s.transition(ExtractionStatusFailed); err != nil {
		return err
	}
	if strings.TrimSpace(message) == "" {
		message = "extraction failed"
	}
	s.TextContent = nil
	s.ExtractionError = &message
	completedAt := at.UTC()
	s.ExtractionCompletedAt = &completedAt
	return nil
}

// ResetExtraction returns the source to pending so that a fresh upload can
// be extracted again. Previous text, error and completion time are cleared.
func (s *Source) ResetExtraction() error {
	if err := s.transition(ExtractionStatusPending); err != nil {
		return err
	}
	s.TextContent = nil
	s.ExtractionError = nil
	s.ExtractionCompletedAt = nil
	return nil
}

func (s *Source) transition(to ExtractionStatus) error {
	if !CanTransition(s.ExtractionStatus, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.ExtractionStatus, to)
	}
	s.ExtractionStatus = to
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func isValidSourceKind(kind SourceKind) bool {
	switch kind {
	case SourceKindDocument, SourceKindWikipedia, SourceKindArticle:
		return true
	default:
		return false
	}
}

// isValidExtractionStatus checks if the given status is a valid ExtractionStatus.
func isValidExtractionStatus(status ExtractionStatus) bool {
	_, ok := transitions[status]
	return ok
}

// ParseExtractionStatus converts a stored status string into an ExtractionStatus.
func ParseExtractionStatus(value string) (ExtractionStatus, error) {
	status := ExtractionStatus(value)
	if !isValidExtractionStatus(status) {
		return "", fmt.Errorf("%w: %q", ErrInvalidExtractionStatus, value)
	}
	return status, nil
}
