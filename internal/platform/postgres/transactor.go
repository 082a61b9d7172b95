package postgres

import (
	"context"
	"database/sql"

	"github.com/phrazzld/scry-reader/internal/store"
)

// Transactor runs functions inside a database transaction with stores bound
// to that transaction.
type Transactor struct {
	db        *sql.DB
	sources   store.SourceStore
	documents store.DocumentStore
}

// NewTransactor creates a Transactor over the given pool and stores.
func NewTransactor(db *sql.DB, sources store.SourceStore, documents store.DocumentStore) *Transactor {
	return &Transactor{
		db:        db,
		sources:   sources,
		documents: documents,
	}
}

var _ store.Transactor = (*Transactor)(nil)

// WithinTx implements store.Transactor.WithinTx
func (t *Transactor) WithinTx(
	ctx context.Context,
	fn func(ctx context.Context, stores store.TxStores) error,
) error {
	return store.RunInTransaction(ctx, t.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, store.TxStores{
			Sources:   t.sources.WithTx(tx),
			Documents: t.documents.WithTx(tx),
		})
	})
}
