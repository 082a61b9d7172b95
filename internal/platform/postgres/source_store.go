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

const sourceColumns = `id, user_id, kind, title, text_content, extraction_status,
	extraction_error, extraction_completed_at, created_at, updated_at`

// PostgresSourceStore implements the store.SourceStore interface
// using a PostgreSQL database as the storage backend.
type PostgresSourceStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSourceStore creates a new PostgreSQL implementation of the SourceStore interface.
// It accepts a pool, transaction or single connection managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresSourceStore(db store.DBTX, logger *slog.Logger) *PostgresSourceStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresSourceStore{
		db:     db,
		logger: logger.With(slog.String("component", "source_store")),
	}
}

// Ensure PostgresSourceStore implements store.SourceStore interface
var _ store.SourceStore = (*PostgresSourceStore)(nil)

// Create implements store.SourceStore.Create
func (s *PostgresSourceStore) Create(ctx context.Context, source *domain.Source) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := source.Validate(); err != nil {
		log.Warn("source validation failed during create",
			slog.String("error", err.Error()),
			slog.String("source_id", source.ID.String()))
		return err
	}

	query := `
		INSERT INTO sources (` + sourceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		source.ID,
		source.UserID,
		source.Kind,
		source.Title,
		nullString(source.TextContent),
		source.ExtractionStatus,
		nullString(source.ExtractionError),
		nullTime(source.ExtractionCompletedAt),
		source.CreatedAt,
		source.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create source",
			slog.String("error", err.Error()),
			slog.String("source_id", source.ID.String()))
		return store.NewStoreError("source", "create", "insert failed", MapError(err))
	}

	log.Debug("source created",
		slog.String("source_id", source.ID.String()),
		slog.String("kind", string(source.Kind)))
	return nil
}

// GetByID implements store.SourceStore.GetByID
func (s *PostgresSourceStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE id = $1`
	return s.getOne(ctx, query, id)
}

// GetByIDForUser implements store.SourceStore.GetByIDForUser
func (s *PostgresSourceStore) GetByIDForUser(
	ctx context.Context,
	userID, id uuid.UUID,
) (*domain.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE id = $1 AND user_id = $2`
	return s.getOne(ctx, query, id, userID)
}

func (s *PostgresSourceStore) getOne(
	ctx context.Context,
	query string,
	id uuid.UUID,
	args ...any,
) (*domain.Source, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	source, err := scanSource(s.db.QueryRowContext(ctx, query, append([]any{id}, args...)...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("source not found", slog.String("source_id", id.String()))
			return nil, store.ErrSourceNotFound
		}
		log.Error("failed to get source",
			slog.String("error", err.Error()),
			slog.String("source_id", id.String()))
		return nil, store.NewStoreError("source", "get", "query failed", MapError(err))
	}

	return source, nil
}

// UpdateExtraction implements store.SourceStore.UpdateExtraction
func (s *PostgresSourceStore) UpdateExtraction(ctx context.Context, source *domain.Source) error {
	return s.writeExtraction(ctx, source, "", store.ErrSourceNotFound)
}

// FinishExtraction implements store.SourceStore.FinishExtraction
func (s *PostgresSourceStore) FinishExtraction(ctx context.Context, source *domain.Source) error {
	return s.writeExtraction(ctx, source,
		" AND extraction_status = '"+string(domain.ExtractionStatusProcessing)+"'",
		store.ErrExtractionSuperseded)
}

// writeExtraction updates the extraction fields of source. condition is
// appended to the WHERE clause; noRows is returned when nothing matched.
func (s *PostgresSourceStore) writeExtraction(
	ctx context.Context,
	source *domain.Source,
	condition string,
	noRows error,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := source.Validate(); err != nil {
		log.Warn("source validation failed during extraction update",
			slog.String("error", err.Error()),
			slog.String("source_id", source.ID.String()))
		return err
	}

	source.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE sources
		SET extraction_status = $1,
			text_content = $2,
			extraction_error = $3,
			extraction_completed_at = $4,
			updated_at = $5
		WHERE id = $6` + condition
	result, err := s.db.ExecContext(
		ctx,
		query,
		source.ExtractionStatus,
		nullString(source.TextContent),
		nullString(source.ExtractionError),
		nullTime(source.ExtractionCompletedAt),
		source.UpdatedAt,
		source.ID,
	)
	if err != nil {
		log.Error("failed to update source extraction",
			slog.String("error", err.Error()),
			slog.String("source_id", source.ID.String()),
			slog.String("status", string(source.ExtractionStatus)))
		return store.NewStoreError("source", "update", "update failed", MapError(err))
	}

	if err := CheckRowsAffected(result, noRows); err != nil {
		log.Debug("source extraction update affected no rows",
			slog.String("source_id", source.ID.String()),
			slog.String("status", string(source.ExtractionStatus)))
		return err
	}

	log.Debug("source extraction updated",
		slog.String("source_id", source.ID.String()),
		slog.String("status", string(source.ExtractionStatus)))
	return nil
}

// FindByExtractionStatus implements store.SourceStore.FindByExtractionStatus
func (s *PostgresSourceStore) FindByExtractionStatus(
	ctx context.Context,
	status domain.ExtractionStatus,
	limit int,
) ([]*domain.Source, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT ` + sourceColumns + `
		FROM sources
		WHERE kind = $1 AND extraction_status = $2
		ORDER BY created_at ASC
		LIMIT $3
	`
	rows, err := s.db.QueryContext(ctx, query, domain.SourceKindDocument, status, limit)
	if err != nil {
		log.Error("failed to query sources by extraction status",
			slog.String("status", string(status)),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("source", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var sources []*domain.Source
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, store.NewStoreError("source", "list", "scan failed", err)
		}
		sources = append(sources, source)
	}

	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("source", "list", "row iteration failed", err)
	}

	return sources, nil
}

// WithTx implements store.SourceStore.WithTx
func (s *PostgresSourceStore) WithTx(tx *sql.Tx) store.SourceStore {
	return &PostgresSourceStore{
		db:     tx,
		logger: s.logger,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (*domain.Source, error) {
	var (
		source      domain.Source
		kind        string
		status      string
		text        sql.NullString
		extractErr  sql.NullString
		completedAt sql.NullTime
	)

	err := row.Scan(
		&source.ID,
		&source.UserID,
		&kind,
		&source.Title,
		&text,
		&status,
		&extractErr,
		&completedAt,
		&source.CreatedAt,
		&source.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	parsed, err := domain.ParseExtractionStatus(status)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", source.ID, err)
	}

	source.Kind = domain.SourceKind(kind)
	source.ExtractionStatus = parsed
	if text.Valid {
		source.TextContent = &text.String
	}
	if extractErr.Valid {
		source.ExtractionError = &extractErr.String
	}
	if completedAt.Valid {
		at := completedAt.Time.UTC()
		source.ExtractionCompletedAt = &at
	}

	return &source, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
