package service

import (
	"context"
	"database/sql"
	"io"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-reader/internal/domain"
	"github.com/phrazzld/scry-reader/internal/events"
	"github.com/phrazzld/scry-reader/internal/store"
	"github.com/stretchr/testify/mock"
)

// MockSourceStore mocks store.SourceStore
type MockSourceStore struct {
	mock.Mock
}

func (m *MockSourceStore) Create(ctx context.Context, source *domain.Source) error {
	args := m.Called(ctx, source)
	return args.Error(0)
}

func (m *MockSourceStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Source, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Source), args.Error(1)
}

func (m *MockSourceStore) GetByIDForUser(
	ctx context.Context,
	userID, id uuid.UUID,
) (*domain.Source, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Source), args.Error(1)
}

func (m *MockSourceStore) UpdateExtraction(ctx context.Context, source *domain.Source) error {
	args := m.Called(ctx, source)
	return args.Error(0)
}

func (m *MockSourceStore) FinishExtraction(ctx context.Context, source *domain.Source) error {
	args := m.Called(ctx, source)
	return args.Error(0)
}

func (m *MockSourceStore) FindByExtractionStatus(
	ctx context.Context,
	status domain.ExtractionStatus,
	limit int,
) ([]*domain.Source, error) {
	args := m.Called(ctx, status, limit)
	return args.Get(0).([]*domain.Source), args.Error(1)
}

func (m *MockSourceStore) WithTx(*sql.Tx) store.SourceStore {
	return m
}

// MockDocumentStore mocks store.DocumentStore
type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) Create(ctx context.Context, doc *domain.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentStore) GetBySource(
	ctx context.Context,
	userID, sourceID uuid.UUID,
) (*domain.Document, error) {
	args := m.Called(ctx, userID, sourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentStore) Update(ctx context.Context, doc *domain.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentStore) WithTx(*sql.Tx) store.DocumentStore {
	return m
}

// MockTransactor runs fn directly against the mock stores.
type MockTransactor struct {
	Sources   *MockSourceStore
	Documents *MockDocumentStore
	Calls     int
}

func (m *MockTransactor) WithinTx(
	ctx context.Context,
	fn func(ctx context.Context, stores store.TxStores) error,
) error {
	m.Calls++
	return fn(ctx, store.TxStores{Sources: m.Sources, Documents: m.Documents})
}

// MockBlobStore mocks BlobStore, draining the reader on Save.
type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) Save(
	ctx context.Context,
	userID uuid.UUID,
	fileName string,
	r io.Reader,
) (string, int64, error) {
	_, _ = io.Copy(io.Discard, r)
	args := m.Called(ctx, userID, fileName)
	return args.String(0), int64(args.Int(1)), args.Error(2)
}

func (m *MockBlobStore) Delete(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

// MockEventEmitter mocks events.EventEmitter
type MockEventEmitter struct {
	mock.Mock
}

func (m *MockEventEmitter) EmitEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// supportedTypes is a FileTypeChecker over a fixed set.
type supportedTypes map[string]bool

func (s supportedTypes) Supports(fileType string) bool {
	return s[fileType]
}
