package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-reader/internal/domain"
)

// DocumentStore defines the interface for document persistence.
type DocumentStore interface {
	// Create saves a new document bound to an existing source.
	// Returns ErrInvalidEntity if the source does not exist.
	Create(ctx context.Context, doc *domain.Document) error

	// GetBySource retrieves the document bound to a user's source.
	// Returns ErrDocumentNotFound if there is none.
	GetBySource(ctx context.Context, userID, sourceID uuid.UUID) (*domain.Document, error)

	// Update replaces the file metadata of an existing document.
	// Returns ErrDocumentNotFound if the document does not exist.
	Update(ctx context.Context, doc *domain.Document) error

	// WithTx returns a DocumentStore bound to the given transaction.
	WithTx(tx *sql.Tx) DocumentStore
}

// TxStores groups the stores handed to a function running inside a transaction.
type TxStores struct {
	Sources   SourceStore
	Documents DocumentStore
}

// Transactor runs a function with transaction-bound stores. The transaction
// commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, stores TxStores) error) error
}
