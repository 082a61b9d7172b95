package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/phrazzld/scry-reader/internal/api/shared"
	"github.com/phrazzld/scry-reader/internal/platform/logger"
	"github.com/phrazzld/scry-reader/internal/service"
)

const (
	// multipartMemory is how much of a multipart body is kept in memory
	// before spilling to temporary files.
	multipartMemory = 8 << 20

	// multipartOverhead allows for form fields and part headers on top of
	// the file itself.
	multipartOverhead = 1 << 20
)

// DocumentHandler handles document upload and extraction status requests.
type DocumentHandler struct {
	documents     service.DocumentService
	maxUploadSize int64
	logger        *slog.Logger
}

// NewDocumentHandler creates a new DocumentHandler. maxUploadSize bounds
// the uploaded file; zero leaves the body unbounded.
func NewDocumentHandler(
	documents service.DocumentService,
	maxUploadSize int64,
	logger *slog.Logger,
) *DocumentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentHandler{
		documents:     documents,
		maxUploadSize: maxUploadSize,
		logger:        logger.With("component", "document_handler"),
	}
}

// UploadDocument handles POST /api/documents. It responds 202 Accepted as
// soon as the document is stored; extraction runs in the background.
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := handleUserID(w, r)
	if !ok {
		return
	}

	input, cleanup, err := h.readUpload(w, r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	defer cleanup()

	source, err := h.documents.UploadDocument(r.Context(), userID, input)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Info("document accepted",
		"source_id", source.ID,
		"file_name", input.FileName)

	writeStatus(w, r, http.StatusAccepted, service.NewExtractionStatusView(source))
}

// ReuploadDocument handles PUT /api/sources/{id}/document.
func (h *DocumentHandler) ReuploadDocument(w http.ResponseWriter, r *http.Request) {
	userID, sourceID, ok := handleUserIDAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	input, cleanup, err := h.readUpload(w, r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	defer cleanup()

	source, err := h.documents.ReuploadDocument(r.Context(), userID, sourceID, input)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	writeStatus(w, r, http.StatusAccepted, service.NewExtractionStatusView(source))
}

// GetExtractionStatus handles GET /api/sources/{id}/extraction-status.
func (h *DocumentHandler) GetExtractionStatus(w http.ResponseWriter, r *http.Request) {
	userID, sourceID, ok := handleUserIDAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	view, err := h.documents.GetExtractionStatus(r.Context(), userID, sourceID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	writeStatus(w, r, http.StatusOK, view)
}

// readUpload parses the multipart body. The returned cleanup removes any
// temporary files the parser created.
func (h *DocumentHandler) readUpload(
	w http.ResponseWriter,
	r *http.Request,
) (service.UploadInput, func(), error) {
	noop := func() {}

	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+multipartOverhead)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return service.UploadInput{}, noop, err
		}
		return service.UploadInput{}, noop,
			fmt.Errorf("%w: malformed multipart form: %v", service.ErrInvalidUpload, err)
	}

	cleanup := func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		cleanup()
		if errors.Is(err, http.ErrMissingFile) {
			return service.UploadInput{}, noop,
				fmt.Errorf("%w: file field is required", service.ErrInvalidUpload)
		}
		return service.UploadInput{}, noop, fmt.Errorf("%w: %v", service.ErrInvalidUpload, err)
	}

	return service.UploadInput{
			FileName:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Title:       r.FormValue("title"),
			Reader:      file,
		}, func() {
			closeFile(r.Context(), file)
			cleanup()
		}, nil
}

func closeFile(ctx context.Context, file multipart.File) {
	if err := file.Close(); err != nil {
		logger.FromContext(ctx).Warn("failed to close uploaded file", "error", err)
	}
}

func writeStatus(w http.ResponseWriter, r *http.Request, status int, view *service.ExtractionStatusView) {
	shared.RespondWithJSON(w, r, status, toExtractionStatusResponse(view))
}
