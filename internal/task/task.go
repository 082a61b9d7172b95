package task

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-reader/internal/domain"
)

// SourceRepository is the part of source persistence the worker needs.
type SourceRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Source, error)
	UpdateExtraction(ctx context.Context, source *domain.Source) error
	FinishExtraction(ctx context.Context, source *domain.Source) error
}

// DocumentRepository resolves the document bound to a source.
type DocumentRepository interface {
	GetBySource(ctx context.Context, userID, sourceID uuid.UUID) (*domain.Document, error)
}

// SourceLister finds sources by extraction status. It is used to recover
// work left behind by a previous process.
type SourceLister interface {
	FindByExtractionStatus(ctx context.Context, status domain.ExtractionStatus, limit int) ([]*domain.Source, error)
}

// FileOpener opens stored document bytes.
type FileOpener interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// TextExtractor turns a document stream into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, r io.Reader, fileType string) (string, error)
}

// JobScope holds the repositories for a single job. They are created when
// the job starts and released by Close when it ends.
type JobScope interface {
	Sources() SourceRepository
	Documents() DocumentRepository
	Close() error
}

// ScopeFactory creates a fresh JobScope per job.
type ScopeFactory interface {
	NewScope(ctx context.Context) (JobScope, error)
}
