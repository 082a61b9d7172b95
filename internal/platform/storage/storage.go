// Package storage keeps uploaded document bytes on the local filesystem.
// Callers only ever see paths relative to the storage root.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-reader/internal/platform/logger"
)

var (
	// ErrInvalidPath is returned for paths that are absolute or escape the storage root.
	ErrInvalidPath = errors.New("invalid storage path")

	// ErrFileNotFound is returned when no file exists at the requested path.
	ErrFileNotFound = errors.New("stored file not found")

	// ErrTooLarge is returned when an upload exceeds the configured size limit.
	ErrTooLarge = errors.New("file exceeds maximum upload size")
)

// LocalStorage stores files beneath a root directory, grouped per user.
type LocalStorage struct {
	root     string
	maxBytes int64
	logger   *slog.Logger
}

// NewLocalStorage creates the root directory if needed. maxBytes <= 0
// disables the size limit.
func NewLocalStorage(root string, maxBytes int64, logger *slog.Logger) (*LocalStorage, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalStorage{
		root:     abs,
		maxBytes: maxBytes,
		logger:   logger.With(slog.String("component", "local_storage")),
	}, nil
}

// Save writes r to a new file owned by userID and returns its relative path
// and size. Nothing is left on disk when Save fails.
func (s *LocalStorage) Save(
	ctx context.Context,
	userID uuid.UUID,
	fileName string,
	r io.Reader,
) (string, int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rel := filepath.ToSlash(filepath.Join(userID.String(), uuid.NewString()+strings.ToLower(filepath.Ext(fileName))))
	full, err := s.resolve(rel)
	if err != nil {
		return "", 0, err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return "", 0, fmt.Errorf("failed to create user directory: %w", err)
	}

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create file: %w", err)
	}

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}

	size, copyErr := io.Copy(f, &ctxReader{ctx: ctx, r: src})
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		err = fmt.Errorf("failed to write file: %w", copyErr)
	case closeErr != nil:
		err = fmt.Errorf("failed to close file: %w", closeErr)
	case s.maxBytes > 0 && size > s.maxBytes:
		err = fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, s.maxBytes)
	}
	if err != nil {
		_ = os.Remove(full)
		log.Warn("upload not stored", slog.String("error", err.Error()))
		return "", 0, err
	}

	log.Debug("file stored", slog.String("path", rel), slog.Int64("size_bytes", size))
	return rel, size, nil
}

// Open returns a reader for a stored file. The caller must close it.
func (s *LocalStorage) Open(_ context.Context, path string) (io.ReadCloser, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to open stored file: %w", err)
	}
	return f, nil
}

// Delete removes a stored file. Deleting a missing file is not an error.
func (s *LocalStorage) Delete(ctx context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}

	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete stored file",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to delete stored file: %w", err)
	}
	return nil
}

func (s *LocalStorage) resolve(path string) (string, error) {
	if path == "" || filepath.IsAbs(path) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}

	full := filepath.Join(s.root, filepath.FromSlash(path))
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return full, nil
}

// ctxReader stops a copy once its context is cancelled.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
