package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-reader/internal/domain"
	"github.com/phrazzld/scry-reader/internal/platform/postgres"
	"github.com/phrazzld/scry-reader/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDocument(t *testing.T) *domain.Document {
	t.Helper()
	doc, err := domain.NewDocument(uuid.New(), uuid.New(), "report.pdf", "pdf", "u/report.pdf", 2048)
	require.NoError(t, err)
	return doc
}

func TestPostgresDocumentStore_Create(t *testing.T) {
	t.Parallel()

	t.Run("inserts a valid document", func(t *testing.T) {
		t.Parallel()
		db, mock := newMockDB(t)
		s := postgres.NewPostgresDocumentStore(db, nil)
		doc := newTestDocument(t)

		mock.ExpectExec("INSERT INTO documents").
			WithArgs(doc.ID, doc.UserID, doc.SourceID, "report.pdf", "pdf", "u/report.pdf",
				int64(2048), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.Create(context.Background(), doc))
	})

	t.Run("missing source", func(t *testing.T) {
		t.Parallel()
		db, mock := newMockDB(t)
		s := postgres.NewPostgresDocumentStore(db, nil)

		mock.ExpectExec("INSERT INTO documents").WillReturnError(newPgError("23503"))

		err := s.Create(context.Background(), newTestDocument(t))
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})
}

func TestPostgresDocumentStore_GetBySource(t *testing.T) {
	t.Parallel()

	t.Run("found", func(t *testing.T) {
		t.Parallel()
		db, mock := newMockDB(t)
		s := postgres.NewPostgresDocumentStore(db, nil)

		id, userID, sourceID := uuid.New(), uuid.New(), uuid.New()
		now := time.Now().UTC()
		rows := sqlmock.NewRows([]string{
			"id", "user_id", "source_id", "file_name", "file_type", "storage_path",
			"size_bytes", "created_at", "updated_at",
		}).AddRow(id.String(), userID.String(), sourceID.String(), "notes.docx", "docx",
			"u/notes.docx", int64(10), now, now)
		mock.ExpectQuery("FROM documents").
			WithArgs(sourceID, userID).
			WillReturnRows(rows)

		doc, err := s.GetBySource(context.Background(), userID, sourceID)
		require.NoError(t, err)
		assert.Equal(t, id, doc.ID)
		assert.Equal(t, sourceID, doc.SourceID)
		assert.Equal(t, "docx", doc.FileType)
		assert.Equal(t, "u/notes.docx", doc.StoragePath)
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		db, mock := newMockDB(t)
		s := postgres.NewPostgresDocumentStore(db, nil)

		mock.ExpectQuery("FROM documents").WillReturnError(sql.ErrNoRows)

		doc, err := s.GetBySource(context.Background(), uuid.New(), uuid.New())
		assert.Nil(t, doc)
		assert.ErrorIs(t, err, store.ErrDocumentNotFound)
	})
}

func TestPostgresDocumentStore_Update(t *testing.T) {
	t.Parallel()
	db, mock := newMockDB(t)
	s := postgres.NewPostgresDocumentStore(db, nil)
	doc := newTestDocument(t)

	mock.ExpectExec("UPDATE documents").WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Update(context.Background(), doc)
	assert.ErrorIs(t, err, store.ErrDocumentNotFound)
}

func TestTransactor_WithinTx(t *testing.T) {
	t.Parallel()

	t.Run("commits both writes", func(t *testing.T) {
		t.Parallel()
		db, mock := newMockDB(t)
		tr := postgres.NewTransactor(db,
			postgres.NewPostgresSourceStore(db, nil),
			postgres.NewPostgresDocumentStore(db, nil))

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO sources").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO documents").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		source := newPendingSource(t)
		err := tr.WithinTx(context.Background(), func(ctx context.Context, stores store.TxStores) error {
			if err := stores.Sources.Create(ctx, source); err != nil {
				return err
			}
			doc, err := domain.NewDocument(source.UserID, source.ID, "a.txt", "txt", "u/a.txt", 1)
			if err != nil {
				return err
			}
			return stores.Documents.Create(ctx, doc)
		})
		require.NoError(t, err)
	})

	t.Run("rolls back when the document insert fails", func(t *testing.T) {
		t.Parallel()
		db, mock := newMockDB(t)
		tr := postgres.NewTransactor(db,
			postgres.NewPostgresSourceStore(db, nil),
			postgres.NewPostgresDocumentStore(db, nil))

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO sources").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO documents").WillReturnError(newPgError("23503"))
		mock.ExpectRollback()

		source := newPendingSource(t)
		err := tr.WithinTx(context.Background(), func(ctx context.Context, stores store.TxStores) error {
			if err := stores.Sources.Create(ctx, source); err != nil {
				return err
			}
			doc, err := domain.NewDocument(source.UserID, source.ID, "a.txt", "txt", "u/a.txt", 1)
			if err != nil {
				return err
			}
			return stores.Documents.Create(ctx, doc)
		})
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})
}

func TestJobScopeFactory(t *testing.T) {
	t.Parallel()
	db, mock := newMockDB(t)
	factory := postgres.NewJobScopeFactory(db, nil)

	source := newPendingSource(t)
	mock.ExpectExec("UPDATE sources").WillReturnResult(sqlmock.NewResult(0, 1))

	scope, err := factory.NewScope(context.Background())
	require.NoError(t, err)
	require.NoError(t, scope.Sources().UpdateExtraction(context.Background(), source))
	require.NotNil(t, scope.Documents())
	require.NoError(t, scope.Close())
}
