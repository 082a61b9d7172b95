package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-reader/internal/domain"
)

// SourceStore defines the interface for source persistence.
type SourceStore interface {
	// Create saves a new source. Returns validation errors from the domain
	// Source if the data is invalid.
	Create(ctx context.Context, source *domain.Source) error

	// GetByID retrieves a source by its ID.
	// Returns ErrSourceNotFound if the source does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Source, error)

	// GetByIDForUser retrieves a source owned by the given user.
	// Sources owned by other users are reported as ErrSourceNotFound.
	GetByIDForUser(ctx context.Context, userID, id uuid.UUID) (*domain.Source, error)

	// UpdateExtraction writes the extraction fields (status, text, error,
	// completion time) of an existing source.
	// Returns ErrSourceNotFound if the source does not exist.
	UpdateExtraction(ctx context.Context, source *domain.Source) error

	// FinishExtraction writes a terminal extraction result (completed or
	// failed) only while the stored source is still processing.
	// Returns ErrExtractionSuperseded if the stored source has moved on or
	// no longer exists.
	FinishExtraction(ctx context.Context, source *domain.Source) error

	// FindByExtractionStatus lists document sources in the given status,
	// oldest first.
	FindByExtractionStatus(ctx context.Context, status domain.ExtractionStatus, limit int) ([]*domain.Source, error)

	// WithTx returns a SourceStore bound to the given transaction.
	WithTx(tx *sql.Tx) SourceStore
}
