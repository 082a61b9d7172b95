package task

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-reader/internal/domain"
	"github.com/phrazzld/scry-reader/internal/store"
	"github.com/stretchr/testify/require"
)

// MockSourceRepository keeps sources in memory and records every
// extraction update it receives.
type MockSourceRepository struct {
	mu      sync.Mutex
	sources map[uuid.UUID]domain.Source
	updates []domain.ExtractionStatus

	GetByIDFn          func(ctx context.Context, id uuid.UUID) (*domain.Source, error)
	// UpdateExtractionFn replaces storage for both UpdateExtraction and
	// FinishExtraction.
	UpdateExtractionFn func(ctx context.Context, source *domain.Source) error
}

func NewMockSourceRepository() *MockSourceRepository {
	return &MockSourceRepository{sources: make(map[uuid.UUID]domain.Source)}
}

func (m *MockSourceRepository) Put(source *domain.Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[source.ID] = *source
}

func (m *MockSourceRepository) Get(t *testing.T, id uuid.UUID) domain.Source {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	source, ok := m.sources[id]
	require.True(t, ok, "source %s not stored", id)
	return source
}

func (m *MockSourceRepository) Updates() []domain.ExtractionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ExtractionStatus(nil), m.updates...)
}

func (m *MockSourceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Source, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	source, ok := m.sources[id]
	if !ok {
		return nil, store.ErrSourceNotFound
	}
	return &source, nil
}

func (m *MockSourceRepository) UpdateExtraction(ctx context.Context, source *domain.Source) error {
	m.mu.Lock()
	m.updates = append(m.updates, source.ExtractionStatus)
	m.mu.Unlock()

	if m.UpdateExtractionFn != nil {
		return m.UpdateExtractionFn(ctx, source)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sources[source.ID]; !ok {
		return store.ErrSourceNotFound
	}
	m.sources[source.ID] = *source
	return nil
}

// FinishExtraction stores a terminal result only while the stored source
// is processing. UpdateExtractionFn, when set, intercepts it as well.
func (m *MockSourceRepository) FinishExtraction(ctx context.Context, source *domain.Source) error {
	m.mu.Lock()
	m.updates = append(m.updates, source.ExtractionStatus)
	m.mu.Unlock()

	if m.UpdateExtractionFn != nil {
		return m.UpdateExtractionFn(ctx, source)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.sources[source.ID]
	if !ok || stored.ExtractionStatus != domain.ExtractionStatusProcessing {
		return store.ErrExtractionSuperseded
	}
	m.sources[source.ID] = *source
	return nil
}

// MockDocumentRepository returns documents keyed by source id.
type MockDocumentRepository struct {
	mu        sync.Mutex
	documents map[uuid.UUID]*domain.Document
	calls     int

	GetBySourceFn func(ctx context.Context, userID, sourceID uuid.UUID) (*domain.Document, error)
}

func NewMockDocumentRepository() *MockDocumentRepository {
	return &MockDocumentRepository{documents: make(map[uuid.UUID]*domain.Document)}
}

func (m *MockDocumentRepository) Put(doc *domain.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[doc.SourceID] = doc
}

func (m *MockDocumentRepository) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockDocumentRepository) GetBySource(
	ctx context.Context,
	userID, sourceID uuid.UUID,
) (*domain.Document, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.GetBySourceFn != nil {
		return m.GetBySourceFn(ctx, userID, sourceID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[sourceID]
	if !ok || doc.UserID != userID {
		return nil, store.ErrDocumentNotFound
	}
	return doc, nil
}

// MockScopeFactory hands out scopes over shared mock repositories and
// counts how many were opened and closed.
type MockScopeFactory struct {
	Sources   *MockSourceRepository
	Documents *MockDocumentRepository

	mu     sync.Mutex
	opened int
	closed int

	NewScopeErr error
}

func (f *MockScopeFactory) NewScope(context.Context) (JobScope, error) {
	if f.NewScopeErr != nil {
		return nil, f.NewScopeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened++
	return &mockScope{factory: f}, nil
}

func (f *MockScopeFactory) Counts() (opened, closed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opened, f.closed
}

type mockScope struct {
	factory *MockScopeFactory
}

func (s *mockScope) Sources() SourceRepository     { return s.factory.Sources }
func (s *mockScope) Documents() DocumentRepository { return s.factory.Documents }
func (s *mockScope) Close() error {
	s.factory.mu.Lock()
	defer s.factory.mu.Unlock()
	s.factory.closed++
	return nil
}

// MockFileOpener serves file contents from memory.
type MockFileOpener struct {
	mu     sync.Mutex
	files  map[string]string
	opened []string
	closes int

	OpenErr error
}

func NewMockFileOpener() *MockFileOpener {
	return &MockFileOpener{files: make(map[string]string)}
}

func (m *MockFileOpener) Put(path, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = content
}

func (m *MockFileOpener) Open(_ context.Context, path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = append(m.opened, path)
	if m.OpenErr != nil {
		return nil, m.OpenErr
	}
	content, ok := m.files[path]
	if !ok {
		return nil, errors.New("stored file not found")
	}
	return &trackingCloser{Reader: strings.NewReader(content), onClose: func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.closes++
	}}, nil
}

func (m *MockFileOpener) Closes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}

type trackingCloser struct {
	io.Reader
	onClose func()
}

func (c *trackingCloser) Close() error {
	c.onClose()
	return nil
}

// MockExtractor delegates to ExtractFn, defaulting to returning the input.
type MockExtractor struct {
	mu    sync.Mutex
	calls int

	ExtractFn func(ctx context.Context, r io.Reader, fileType string) (string, error)
}

func (m *MockExtractor) Extract(ctx context.Context, r io.Reader, fileType string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.ExtractFn != nil {
		return m.ExtractFn(ctx, r, fileType)
	}
	data, err := io.ReadAll(r)
	return string(data), err
}

func (m *MockExtractor) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// workerFixture wires a worker to fresh mocks.
type workerFixture struct {
	queue     *ExtractionQueue
	sources   *MockSourceRepository
	documents *MockDocumentRepository
	scopes    *MockScopeFactory
	files     *MockFileOpener
	extractor *MockExtractor
	worker    *ExtractionWorker
	now       time.Time
}

func newWorkerFixture(t *testing.T, options ...WorkerOption) *workerFixture {
	t.Helper()
	f := &workerFixture{
		queue:     NewExtractionQueue(nil),
		sources:   NewMockSourceRepository(),
		documents: NewMockDocumentRepository(),
		files:     NewMockFileOpener(),
		extractor: &MockExtractor{},
		now:       time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC),
	}
	f.scopes = &MockScopeFactory{Sources: f.sources, Documents: f.documents}
	options = append([]WorkerOption{WithClock(func() time.Time { return f.now })}, options...)
	f.worker = NewExtractionWorker(f.queue, f.scopes, f.files, f.extractor, nil, options...)
	return f
}

// addSource stores a source of the given kind and returns it.
func (f *workerFixture) addSource(t *testing.T, kind domain.SourceKind) *domain.Source {
	t.Helper()
	source, err := domain.NewSource(uuid.New(), kind, "Test source")
	require.NoError(t, err)
	f.sources.Put(source)
	return source
}

// addDocument binds a stored file with content to source.
func (f *workerFixture) addDocument(t *testing.T, source *domain.Source, content string) *domain.Document {
	t.Helper()
	path := source.UserID.String() + "/" + source.ID.String() + ".txt"
	doc, err := domain.NewDocument(source.UserID, source.ID, "notes.txt", "txt", path, int64(len(content)))
	require.NoError(t, err)
	f.documents.Put(doc)
	f.files.Put(path, content)
	return doc
}

func jobFor(source *domain.Source) Job {
	return Job{ID: uuid.New(), SourceID: source.ID.String(), EnqueuedAt: time.Now().UTC()}
}
