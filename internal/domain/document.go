package domain

import (
	"errors"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Canonical file types understood by the extraction pipeline.
const (
	FileTypePDF      = "pdf"
	FileTypeDOCX     = "docx"
	FileTypeDOC      = "doc"
	FileTypeXLSX     = "xlsx"
	FileTypePPTX     = "pptx"
	FileTypeText     = "txt"
	FileTypeMarkdown = "md"
	FileTypeCSV      = "csv"
)

// Common validation errors for Document
var (
	ErrEmptyDocumentID          = errors.New("document ID cannot be empty")
	ErrEmptyDocumentUserID      = errors.New("document user ID cannot be empty")
	ErrEmptyDocumentSourceID    = errors.New("document source ID cannot be empty")
	ErrEmptyDocumentStoragePath = errors.New("document storage path cannot be empty")
	ErrEmptyDocumentFileType    = errors.New("document file type cannot be empty")
)

var mimeFileTypes = map[string]string{
	"application/pdf":    FileTypePDF,
	"application/msword": FileTypeDOC,

	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   FileTypeDOCX,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         FileTypeXLSX,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": FileTypePPTX,

	"text/plain":    FileTypeText,
	"text/markdown": FileTypeMarkdown,
	"text/csv":      FileTypeCSV,
}

// Document is an uploaded file bound to exactly one Source. The extraction
// worker reads it but never modifies it.
type Document struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	SourceID    uuid.UUID `json:"source_id"`
	FileName    string    `json:"file_name"`
	FileType    string    `json:"file_type"`
	StoragePath string    `json:"storage_path"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewDocument creates a Document bound to the given source.
func NewDocument(
	userID, sourceID uuid.UUID,
	fileName, fileType, storagePath string,
	sizeBytes int64,
) (*Document, error) {
	now := time.Now().UTC()
	doc := &Document{
		ID:          uuid.New(),
		UserID:      userID,
		SourceID:    sourceID,
		FileName:    fileName,
		FileType:    fileType,
		StoragePath: storagePath,
		SizeBytes:   sizeBytes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}

	return doc, nil
}

// Validate checks if the Document has valid data.
func (d *Document) Validate() error {
	if d.ID == uuid.Nil {
		return ErrEmptyDocumentID
	}
	if d.UserID == uuid.Nil {
		return ErrEmptyDocumentUserID
	}
	if d.SourceID == uuid.Nil {
		return ErrEmptyDocumentSourceID
	}
	if d.StoragePath == "" {
		return ErrEmptyDocumentStoragePath
	}
	if d.FileType == "" {
		return ErrEmptyDocumentFileType
	}
	return nil
}

// NormalizeFileType maps a file extension, file name or MIME type onto a
// canonical file type such as "pdf" or "docx". Unknown inputs are returned
// lower-cased without a leading dot.
func NormalizeFileType(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return ""
	}

	if i := strings.Index(v, ";"); i >= 0 {
		v = strings.TrimSpace(v[:i])
	}

	if ft, ok := mimeFileTypes[v]; ok {
		return ft
	}

	if ext := path.Ext(v); ext != "" {
		v = ext
	}
	v = strings.TrimPrefix(v, ".")

	switch v {
	case "text", "log":
		return FileTypeText
	case "markdown":
		return FileTypeMarkdown
	}

	return v
}

// DetectFileType picks the file type from a recognised content type and
// falls back to the file name extension otherwise.
func DetectFileType(fileName, contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ft, ok := mimeFileTypes[ct]; ok {
		return ft
	}
	return NormalizeFileType(fileName)
}
