package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-reader/internal/domain"
	"github.com/phrazzld/scry-reader/internal/platform/logger"
	"github.com/phrazzld/scry-reader/internal/store"
)

// PostgresDocumentStore implements the store.DocumentStore interface
// using a PostgreSQL database as the storage backend.
type PostgresDocumentStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresDocumentStore creates a new PostgreSQL implementation of the DocumentStore interface.
func NewPostgresDocumentStore(db store.DBTX, logger *slog.Logger) *PostgresDocumentStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresDocumentStore{
		db:     db,
		logger: logger.With(slog.String("component", "document_store")),
	}
}

var _ store.DocumentStore = (*PostgresDocumentStore)(nil)

// Create implements store.DocumentStore.Create
// Returns store.ErrInvalidEntity if the source does not exist.
func (s *PostgresDocumentStore) Create(ctx context.Context, doc *domain.Document) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := doc.Validate(); err != nil {
		log.Warn("document validation failed during create",
			slog.String("error", err.Error()),
			slog.String("source_id", doc.SourceID.String()))
		return err
	}

	query := `
		INSERT INTO documents (id, user_id, source_id, file_name, file_type, storage_path,
			size_bytes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.UserID,
		doc.SourceID,
		doc.FileName,
		doc.FileType,
		doc.StoragePath,
		doc.SizeBytes,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during document creation",
				slog.String("source_id", doc.SourceID.String()))
			return fmt.Errorf("%w: source with ID %s not found",
				store.ErrInvalidEntity, doc.SourceID)
		}

		log.Error("failed to create document",
			slog.String("error", err.Error()),
			slog.String("document_id", doc.ID.String()),
			slog.String("source_id", doc.SourceID.String()))
		return store.NewStoreError("document", "create", "insert failed", MapError(err))
	}

	log.Debug("document created",
		slog.String("document_id", doc.ID.String()),
		slog.String("source_id", doc.SourceID.String()),
		slog.String("file_type", doc.FileType))
	return nil
}

// GetBySource implements store.DocumentStore.GetBySource
func (s *PostgresDocumentStore) GetBySource(
	ctx context.Context,
	userID, sourceID uuid.UUID,
) (*domain.Document, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, source_id, file_name, file_type, storage_path,
			size_bytes, created_at, updated_at
		FROM documents
		WHERE source_id = $1 AND user_id = $2
	`

	var doc domain.Document
	err := s.db.QueryRowContext(ctx, query, sourceID, userID).Scan(
		&doc.ID,
		&doc.UserID,
		&doc.SourceID,
		&doc.FileName,
		&doc.FileType,
		&doc.StoragePath,
		&doc.SizeBytes,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("document not found", slog.String("source_id", sourceID.String()))
			return nil, store.ErrDocumentNotFound
		}
		log.Error("failed to get document",
			slog.String("error", err.Error()),
			slog.String("source_id", sourceID.String()))
		return nil, store.NewStoreError("document", "get", "query failed", MapError(err))
	}

	return &doc, nil
}

// Update implements store.DocumentStore.Update
func (s *PostgresDocumentStore) Update(ctx context.Context, doc *domain.Document) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := doc.Validate(); err != nil {
		return err
	}

	doc.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE documents
		SET file_name = $1, file_type = $2, storage_path = $3, size_bytes = $4, updated_at = $5
		WHERE id = $6
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		doc.FileName,
		doc.FileType,
		doc.StoragePath,
		doc.SizeBytes,
		doc.UpdatedAt,
		doc.ID,
	)
	if err != nil {
		log.Error("failed to update document",
			slog.String("error", err.Error()),
			slog.String("document_id", doc.ID.String()))
		return store.NewStoreError("document", "update", "update failed", MapError(err))
	}

	return CheckRowsAffected(result, store.ErrDocumentNotFound)
}

// WithTx implements store.DocumentStore.WithTx
func (s *PostgresDocumentStore) WithTx(tx *sql.Tx) store.DocumentStore {
	return &PostgresDocumentStore{
		db:     tx,
		logger: s.logger,
	}
}
