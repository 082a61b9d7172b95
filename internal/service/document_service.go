package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-reader/internal/domain"
	"github.com/phrazzld/scry-reader/internal/events"
	"github.com/phrazzld/scry-reader/internal/platform/logger"
	"github.com/phrazzld/scry-reader/internal/platform/storage"
	"github.com/phrazzld/scry-reader/internal/redact"
	"github.com/phrazzld/scry-reader/internal/store"
)

// SourceReader reads sources outside a transaction.
type SourceReader interface {
	GetByIDForUser(ctx context.Context, userID, id uuid.UUID) (*domain.Source, error)
}

// BlobStore keeps uploaded file bytes. Save returns storage.ErrTooLarge
// when the upload exceeds its size limit.
type BlobStore interface {
	Save(ctx context.Context, userID uuid.UUID, fileName string, r io.Reader) (string, int64, error)
	Delete(ctx context.Context, path string) error
}

// FileTypeChecker reports whether text can be extracted from a file type.
type FileTypeChecker interface {
	Supports(fileType string) bool
}

// UploadInput describes an uploaded file.
type UploadInput struct {
	FileName    string    `validate:"required,max=255"`
	ContentType string    `validate:"max=255"`
	Title       string    `validate:"max=500"`
	Reader      io.Reader `validate:"required"`
}

// ExtractionStatusView is the read model clients poll after an upload.
type ExtractionStatusView struct {
	SourceID    uuid.UUID
	Status      domain.ExtractionStatus
	Error       *string
	CompletedAt *time.Time
}

// NewExtractionStatusView builds the status view of a source.
func NewExtractionStatusView(source *domain.Source) *ExtractionStatusView {
	return &ExtractionStatusView{
		SourceID:    source.ID,
		Status:      source.ExtractionStatus,
		Error:       source.ExtractionError,
		CompletedAt: source.ExtractionCompletedAt,
	}
}

// DocumentService provides document upload and extraction status operations.
type DocumentService interface {
	// UploadDocument stores a new document and its Source, then requests
	// text extraction. It returns the pending Source.
	UploadDocument(ctx context.Context, userID uuid.UUID, input UploadInput) (*domain.Source, error)

	// ReuploadDocument replaces the file of an existing document source,
	// resets it to pending and requests extraction again.
	ReuploadDocument(
		ctx context.Context,
		userID, sourceID uuid.UUID,
		input UploadInput,
	) (*domain.Source, error)

	// GetExtractionStatus returns the extraction status of a source owned
	// by userID. Sources of other users are reported as ErrSourceNotFound.
	GetExtractionStatus(ctx context.Context, userID, sourceID uuid.UUID) (*ExtractionStatusView, error)
}

type documentServiceImpl struct {
	tx        store.Transactor
	sources   SourceReader
	blobs     BlobStore
	fileTypes FileTypeChecker
	emitter   events.EventEmitter
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewDocumentService creates a new DocumentService.
// It returns an error if any of the required dependencies are nil.
func NewDocumentService(
	tx store.Transactor,
	sources SourceReader,
	blobs BlobStore,
	fileTypes FileTypeChecker,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (DocumentService, error) {
	deps := []struct {
		name  string
		value any
	}{
		{"transactor", tx},
		{"sources", sources},
		{"blobs", blobs},
		{"fileTypes", fileTypes},
		{"emitter", emitter},
	}
	for _, dep := range deps {
		if dep.value == nil {
			return nil, &DocumentServiceError{
				Operation: "create_service",
				Message:   dep.name + " cannot be nil",
			}
		}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &documentServiceImpl{
		tx:        tx,
		sources:   sources,
		blobs:     blobs,
		fileTypes: fileTypes,
		emitter:   emitter,
		validate:  validator.New(),
		logger:    logger.With("component", "document_service"),
	}, nil
}

// UploadDocument persists the file, the Source and the Document before
// emitting the extraction event, so a queued job always resolves.
func (s *documentServiceImpl) UploadDocument(
	ctx context.Context,
	userID uuid.UUID,
	input UploadInput,
) (*domain.Source, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With("user_id", userID)

	fileType, err := s.checkInput(input)
	if err != nil {
		log.Debug("rejected upload", "error", err, "file_name", input.FileName)
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(input.FileName), filepath.Ext(input.FileName))
	}
	if title == "" {
		title = input.FileName
	}

	source, err := domain.NewSource(userID, domain.SourceKindDocument, title)
	if err != nil {
		return nil, NewDocumentServiceError("upload_document", "failed to create source object",
			fmt.Errorf("%w: %v", ErrInvalidUpload, err))
	}

	path, size, err := s.save(ctx, userID, input)
	if err != nil {
		log.Error("failed to store uploaded file", "error", redact.Error(err))
		return nil, NewDocumentServiceError("upload_document", "failed to store file", err)
	}

	doc, err := domain.NewDocument(userID, source.ID, input.FileName, fileType, path, size)
	if err != nil {
		s.deleteBlob(ctx, log, path)
		return nil, NewDocumentServiceError("upload_document", "failed to create document object",
			fmt.Errorf("%w: %v", ErrInvalidUpload, err))
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context, stores store.TxStores) error {
		if err := stores.Sources.Create(ctx, source); err != nil {
			return err
		}
		return stores.Documents.Create(ctx, doc)
	})
	if err != nil {
		log.Error("failed to persist uploaded document",
			"error", redact.Error(err),
			"source_id", source.ID)
		s.deleteBlob(ctx, log, path)
		return nil, NewDocumentServiceError("upload_document", "failed to save document", err)
	}

	log.Info("document uploaded",
		"source_id", source.ID,
		"document_id", doc.ID,
		"file_type", fileType,
		"size_bytes", size)

	if err := s.requestExtraction(ctx, log, source.ID); err != nil {
		return nil, NewDocumentServiceError("upload_document", "failed to request extraction", err)
	}

	return source, nil
}

// ReuploadDocument stores the new file, resets the source to pending and
// repoints its document in one transaction, then requests extraction.
func (s *documentServiceImpl) ReuploadDocument(
	ctx context.Context,
	userID, sourceID uuid.UUID,
	input UploadInput,
) (*domain.Source, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		"user_id", userID,
		"source_id", sourceID)

	fileType, err := s.checkInput(input)
	if err != nil {
		log.Debug("rejected re-upload", "error", err, "file_name", input.FileName)
		return nil, err
	}

	existing, err := s.sources.GetByIDForUser(ctx, userID, sourceID)
	if err != nil {
		if !store.IsNotFoundError(err) {
			log.Error("failed to load source for re-upload", "error", redact.Error(err))
		}
		return nil, NewDocumentServiceError("reupload_document", "failed to load source", err)
	}
	if existing.Kind != domain.SourceKindDocument {
		return nil, ErrNotDocumentSource
	}

	path, size, err := s.save(ctx, userID, input)
	if err != nil {
		log.Error("failed to store re-uploaded file", "error", redact.Error(err))
		return nil, NewDocumentServiceError("reupload_document", "failed to store file", err)
	}

	var (
		source  *domain.Source
		oldPath string
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context, stores store.TxStores) error {
		var err error
		source, err = stores.Sources.GetByIDForUser(ctx, userID, sourceID)
		if err != nil {
			return err
		}

		if err := source.ResetExtraction(); err != nil {
			return err
		}
		if err := stores.Sources.UpdateExtraction(ctx, source); err != nil {
			return err
		}

		doc, err := stores.Documents.GetBySource(ctx, userID, sourceID)
		if errors.Is(err, store.ErrDocumentNotFound) {
			doc, err = domain.NewDocument(userID, sourceID, input.FileName, fileType, path, size)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidUpload, err)
			}
			return stores.Documents.Create(ctx, doc)
		}
		if err != nil {
			return err
		}

		oldPath = doc.StoragePath
		doc.FileName = input.FileName
		doc.FileType = fileType
		doc.StoragePath = path
		doc.SizeBytes = size
		return stores.Documents.Update(ctx, doc)
	})
	if err != nil {
		log.Error("failed to persist re-uploaded document", "error", redact.Error(err))
		s.deleteBlob(ctx, log, path)
		return nil, NewDocumentServiceError("reupload_document", "failed to save document", err)
	}

	if oldPath != "" && oldPath != path {
		s.deleteBlob(ctx, log, oldPath)
	}

	log.Info("document re-uploaded", "file_type", fileType, "size_bytes", size)

	if err := s.requestExtraction(ctx, log, source.ID); err != nil {
		return nil, NewDocumentServiceError("reupload_document", "failed to request extraction", err)
	}

	return source, nil
}

// GetExtractionStatus reads the extraction status of a user's source.
func (s *documentServiceImpl) GetExtractionStatus(
	ctx context.Context,
	userID, sourceID uuid.UUID,
) (*ExtractionStatusView, error) {
	source, err := s.sources.GetByIDForUser(ctx, userID, sourceID)
	if err != nil {
		if !store.IsNotFoundError(err) {
			logger.FromContextOrDefault(ctx, s.logger).Error("failed to load source status",
				"error", redact.Error(err),
				"source_id", sourceID)
		}
		return nil, NewDocumentServiceError("get_extraction_status", "failed to load source", err)
	}

	return NewExtractionStatusView(source), nil
}

// checkInput validates the input and returns the detected file type.
func (s *documentServiceImpl) checkInput(input UploadInput) (string, error) {
	if err := s.validate.Struct(input); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidUpload, err)
	}

	fileType := domain.DetectFileType(input.FileName, input.ContentType)
	if fileType == "" || !s.fileTypes.Supports(fileType) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFileType, filepath.Ext(input.FileName))
	}
	return fileType, nil
}

func (s *documentServiceImpl) save(
	ctx context.Context,
	userID uuid.UUID,
	input UploadInput,
) (string, int64, error) {
	path, size, err := s.blobs.Save(ctx, userID, input.FileName, input.Reader)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return "", 0, fmt.Errorf("%w: %v", ErrFileTooLarge, err)
		}
		return "", 0, err
	}
	return path, size, nil
}

func (s *documentServiceImpl) deleteBlob(ctx context.Context, log *slog.Logger, path string) {
	if err := s.blobs.Delete(ctx, path); err != nil {
		log.Warn("failed to delete stored file", "error", redact.Error(err))
	}
}

func (s *documentServiceImpl) requestExtraction(
	ctx context.Context,
	log *slog.Logger,
	sourceID uuid.UUID,
) error {
	event, err := events.NewDocumentExtractionEvent(sourceID.String())
	if err != nil {
		log.Error("failed to create extraction event", "error", err)
		return err
	}

	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		log.Error("failed to emit extraction event",
			"error", err,
			"event_id", event.ID,
			"source_id", sourceID)
		return err
	}

	log.Debug("extraction requested", "event_id", event.ID, "source_id", sourceID)
	return nil
}
