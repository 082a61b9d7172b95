package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
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

var sourceColumns = []string{
	"id", "user_id", "kind", "title", "text_content", "extraction_status",
	"extraction_error", "extraction_completed_at", "created_at", "updated_at",
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func newPendingSource(t *testing.T) *domain.Source {
	t.Helper()
	source, err := domain.NewSource(uuid.New(), domain.SourceKindDocument, "Quarterly report")
	require.NoError(t, err)
	return source
}

func TestPostgresSourceStore_Create(t *testing.T) {
	t.Parallel()

	t.Run("inserts a valid source", func(t *testing.T) {
		t.Parallel()
		db, mock := newMockDB(t)
		s := postgres.NewPostgresSourceStore(db, nil)
		source := newPendingSource(t)

		mock.ExpectExec("INSERT INTO sources").
			WithArgs(
				source.ID, source.UserID, "document", "Quarterly report",
				nil, "pending", nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg(),
			).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.Create(context.Background(), source))
	})

	t.Run("rejects an invalid source before touching the database", func(t *testing.T) {
		t.Parallel()
		db, _ := newMockDB(t)
		s := postgres.NewPostgresSourceStore(db, nil)
		source := newPendingSource(t)
		source.Title = ""

		err := s.Create(context.Background(), source)
		assert.ErrorIs(t, err, domain.ErrEmptySourceTitle)
	})

	t.Run("maps constraint violations", func(t *testing.T) {
		t.Parallel()
		db, mock := newMockDB(t)
		s := postgres.NewPostgresSourceStore(db, nil)

		mock.ExpectExec("INSERT INTO sources").WillReturnError(newPgError("23505"))

		err := s.Create(context.Background(), newPendingSource(t))
		assert.ErrorIs(t, err, store.ErrDuplicate)

		var storeErr *store.StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "source", storeErr.Entity)
		assert.Equal(t, "create", storeErr.Operation)
	})
}

func TestPostgresSourceStore_GetByID(t *testing.T) {
	t.Parallel()

	t.Run("scans a completed source", func(t *testing.T) {
		t.Parallel()
		db, mock := newMockDB(t)
		s := postgres.NewPostgresSourceStore(db, nil)

		id, userID := uuid.New(), uuid.New()
		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		rows := sqlmock.NewRows(sourceColumns).AddRow(
			id.String(), userID.String(), "document", "Notes", "extracted text",
			"completed", nil, now, now, now,
		)
		mock.ExpectQuery("SELECT (.+) FROM sources WHERE id = \\$1").
			WithArgs(id).
			WillReturnRows(rows)

		source, err := s.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, id, source.ID)
		assert.Equal(t, userID, source.UserID)
		assert.Equal(t, domain.SourceKindDocument, source.Kind)
		assert.Equal(t, domain.ExtractionStatusCompleted, source.ExtractionStatus)
		require.NotNil(t, source.TextContent)
		assert.Equal(t, "extracted text", *source.TextContent)
		assert.Nil(t, source.ExtractionError)
		require.NotNil(t, source.ExtractionCompletedAt)
		assert.True(t, now.Equal(*source.ExtractionCompletedAt))
	})

	t.Run("missing source", func(t *testing.T) {
		t.Parallel()
		db, mock := newMockDB(t)
		s := postgres.NewPostgresSourceStore(db, nil)

		mock.ExpectQuery("FROM sources").WillReturnError(sql.ErrNoRows)

		source, err := s.GetByID(context.Background(), uuid.New())
		assert.Nil(t, source)
		assert.ErrorIs(t, err, store.ErrSourceNotFound)
		assert.True(t, store.IsNotFoundError(err))
	})

	t.Run("unknown stored status", func(t *testing.T) {
		t.Parallel()
		db, mock := newMockDB(t)
		s := postgres.NewPostgresSourceStore(db, nil)

		now := time.Now().UTC()
		rows := sqlmock.NewRows(sourceColumns).AddRow(
			uuid.NewString(), uuid.NewString(), "document", "Notes", nil,
			"archived", nil, nil, now, now,
		)
		mock.ExpectQuery("FROM sources").WillReturnRows(rows)

		_, err := s.GetByID(context.Background(), uuid.New())
		assert.ErrorIs(t, err, domain.ErrInvalidExtractionStatus)
	})
}

func TestPostgresSourceStore_GetByIDForUser(t *testing.T) {
	t.Parallel()
	db, mock := newMockDB(t)
	s := postgres.NewPostgresSourceStore(db, nil)

	id, userID := uuid.New(), uuid.New()
	mock.ExpectQuery("FROM sources WHERE id = \\$1 AND user_id = \\$2").
		WithArgs(id, userID).
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetByIDForUser(context.Background(), userID, id)
	assert.ErrorIs(t, err, store.ErrSourceNotFound)
}

func TestPostgresSourceStore_UpdateExtraction(t *testing.T) {
	t.Parallel()

	t.Run("writes failure fields", func(t *testing.T) {
		t.Parallel()
		db, mock := newMockDB(t)
		s := postgres.NewPostgresSourceStore(db, nil)

		source := newPendingSource(t)
		require.NoError(t, source.StartExtraction())
		require.NoError(t, source.FailExtraction("Corrupted file", time.Now()))

		mock.ExpectExec("UPDATE sources").
			WithArgs("failed", nil, "Corrupted file", sqlmock.AnyArg(), sqlmock.AnyArg(), source.ID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.UpdateExtraction(context.Background(), source))
	})

	t.Run("no rows affected", func(t *testing.T) {
		t.Parallel()
		db, mock := newMockDB(t)
		s := postgres.NewPostgresSourceStore(db, nil)

		mock.ExpectExec("UPDATE sources").WillReturnResult(sqlmock.NewResult(0, 0))

		err := s.UpdateExtraction(context.Background(), newPendingSource(t))
		assert.ErrorIs(t, err, store.ErrSourceNotFound)
	})

	t.Run("database error", func(t *testing.T) {
		t.Parallel()
		db, mock := newMockDB(t)
		s := postgres.NewPostgresSourceStore(db, nil)

		dbErr := errors.New("connection reset")
		mock.ExpectExec("UPDATE sources").WillReturnError(dbErr)

		err := s.UpdateExtraction(context.Background(), newPendingSource(t))
		assert.ErrorIs(t, err, dbErr)
	})
}

func TestPostgresSourceStore_FinishExtraction(t *testing.T) {
	t.Parallel()

	finishQuery := regexp.QuoteMeta("WHERE id = $6 AND extraction_status = 'processing'")

	t.Run("writes completed result while processing", func(t *testing.T) {
		t.Parallel()
		db, mock := newMockDB(t)
		s := postgres.NewPostgresSourceStore(db, nil)

		source := newPendingSource(t)
		require.NoError(t, source.StartExtraction())
		require.NoError(t, source.CompleteExtraction("hello world", time.Now()))

		mock.ExpectExec(finishQuery).
			WithArgs("completed", "hello world", nil, sqlmock.AnyArg(), sqlmock.AnyArg(), source.ID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.FinishExtraction(context.Background(), source))
	})

	t.Run("source no longer processing", func(t *testing.T) {
		t.Parallel()
		db, mock := newMockDB(t)
		s := postgres.NewPostgresSourceStore(db, nil)

		source := newPendingSource(t)
		require.NoError(t, source.StartExtraction())
		require.NoError(t, source.CompleteExtraction("stale text", time.Now()))

		mock.ExpectExec(finishQuery).WillReturnResult(sqlmock.NewResult(0, 0))

		err := s.FinishExtraction(context.Background(), source)
		assert.ErrorIs(t, err, store.ErrExtractionSuperseded)
	})
}

func TestPostgresSourceStore_FindByExtractionStatus(t *testing.T) {
	t.Parallel()
	db, mock := newMockDB(t)
	s := postgres.NewPostgresSourceStore(db, nil)

	now := time.Now().UTC()
	rows := sqlmock.NewRows(sourceColumns).
		AddRow(uuid.NewString(), uuid.NewString(), "document", "A", nil, "pending", nil, nil, now, now).
		AddRow(uuid.NewString(), uuid.NewString(), "document", "B", nil, "pending", nil, nil, now, now)
	mock.ExpectQuery("WHERE kind = \\$1 AND extraction_status = \\$2").
		WithArgs("document", "pending", 100).
		WillReturnRows(rows)

	sources, err := s.FindByExtractionStatus(context.Background(), domain.ExtractionStatusPending, 0)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "A", sources[0].Title)
	assert.Equal(t, "B", sources[1].Title)
}

func TestPostgresSourceStore_WithTx(t *testing.T) {
	t.Parallel()
	db, mock := newMockDB(t)
	s := postgres.NewPostgresSourceStore(db, nil)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO sources").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, s.WithTx(tx).Create(context.Background(), newPendingSource(t)))
	require.NoError(t, tx.Rollback())
}
