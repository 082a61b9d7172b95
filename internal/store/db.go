package store

import (
	"context"
	"database/sql"
)

// DBTX abstracts the database handle a store runs its queries on.
// *sql.DB, *sql.Tx and *sql.Conn all satisfy it, so the same store code
// works on the shared pool, inside a transaction, or on a connection
// checked out for a single extraction job.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ DBTX = (*sql.DB)(nil)
	_ DBTX = (*sql.Tx)(nil)
	_ DBTX = (*sql.Conn)(nil)
)
