package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-reader/internal/task"
)

// JobScopeFactory hands every extraction job its own pooled connection so
// that one job's database state can never leak into the next.
type JobScopeFactory struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewJobScopeFactory creates a JobScopeFactory over the given pool.
func NewJobScopeFactory(db *sql.DB, logger *slog.Logger) *JobScopeFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobScopeFactory{db: db, logger: logger}
}

var _ task.ScopeFactory = (*JobScopeFactory)(nil)

// NewScope checks out a dedicated connection and builds stores on it.
// The connection returns to the pool when the scope is closed.
func (f *JobScopeFactory) NewScope(ctx context.Context) (task.JobScope, error) {
	conn, err := f.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection for job: %w", err)
	}

	return &jobScope{
		conn:      conn,
		sources:   NewPostgresSourceStore(conn, f.logger),
		documents: NewPostgresDocumentStore(conn, f.logger),
	}, nil
}

type jobScope struct {
	conn      *sql.Conn
	sources   *PostgresSourceStore
	documents *PostgresDocumentStore
}

func (s *jobScope) Sources() task.SourceRepository     { return s.sources }
func (s *jobScope) Documents() task.DocumentRepository { return s.documents }
func (s *jobScope) Close() error                       { return s.conn.Close() }
