package extract

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/phrazzld/scry-reader/internal/domain"
	"github.com/phrazzld/scry-reader/internal/platform/logger"
)

// Registry dispatches extraction to the provider registered for a file type.
type Registry struct {
	providers map[string]Provider
	fallback  Provider
	maxBytes  int64
	logger    *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithProvider registers p for the given canonical file types.
func WithProvider(p Provider, fileTypes ...string) Option {
	return func(r *Registry) {
		for _, ft := range fileTypes {
			r.providers[ft] = p
		}
	}
}

// WithFallback sets the provider used for file types without a registered provider.
func WithFallback(p Provider) Option {
	return func(r *Registry) {
		r.fallback = p
	}
}

// WithLogger sets the logger used when no logger is carried by the context.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// NewRegistry creates an empty Registry. maxBytes <= 0 disables the size cap.
func NewRegistry(maxBytes int64, options ...Option) *Registry {
	r := &Registry{
		providers: make(map[string]Provider),
		maxBytes:  maxBytes,
		logger:    slog.Default(),
	}

	for _, option := range options {
		option(r)
	}

	return r
}

// NewDefaultRegistry registers the built-in providers and, when tikaURL is
// set, a Tika fallback for everything else.
func NewDefaultRegistry(maxBytes int64, tikaURL string, l *slog.Logger) (*Registry, error) {
	options := []Option{
		WithProvider(TextProvider{}, domain.FileTypeText, domain.FileTypeMarkdown, domain.FileTypeCSV),
		WithProvider(PDFProvider{}, domain.FileTypePDF),
		WithProvider(DOCXProvider{}, domain.FileTypeDOCX),
		WithProvider(PPTXProvider{}, domain.FileTypePPTX),
		WithProvider(XLSXProvider{}, domain.FileTypeXLSX),
	}

	if l != nil {
		options = append(options, WithLogger(l))
	}

	if tikaURL != "" {
		tika, err := NewTikaClient(tikaURL)
		if err != nil {
			return nil, err
		}
		options = append(options, WithFallback(tika))
	}

	return NewRegistry(maxBytes, options...), nil
}

// Supports reports whether a provider (or the fallback) exists for fileType.
func (r *Registry) Supports(fileType string) bool {
	_, ok := r.providers[domain.NormalizeFileType(fileType)]
	return ok || r.fallback != nil
}

// Extract reads the document and returns its normalized text. An empty
// result is valid.
func (r *Registry) Extract(ctx context.Context, rd io.Reader, fileType string) (string, error) {
	log := logger.FromContextOrDefault(ctx, r.logger)

	ft := domain.NormalizeFileType(fileType)
	provider, ok := r.providers[ft]
	if !ok {
		if r.fallback == nil {
			return "", unsupported(ft)
		}
		log.Debug("no built-in extractor, using fallback", slog.String("file_type", ft))
		provider = r.fallback
	}

	data, err := r.read(rd)
	if err != nil {
		return "", err
	}

	text, err := provider.Extract(ctx, data)
	if err != nil {
		return "", err
	}

	text = normalize(text)
	log.Debug("text extracted",
		slog.String("file_type", ft),
		slog.Int("input_bytes", len(data)),
		slog.Int("text_bytes", len(text)))
	return text, nil
}

func (r *Registry) read(rd io.Reader) ([]byte, error) {
	if r.maxBytes <= 0 {
		return io.ReadAll(rd)
	}

	data, err := io.ReadAll(io.LimitReader(rd, r.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	if int64(len(data)) > r.maxBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrDocumentTooLarge, r.maxBytes)
	}
	return data, nil
}
