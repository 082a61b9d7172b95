// Package extract turns stored document bytes into plain text. Each file
// format has its own Provider; a Registry picks the provider for a file
// type and normalizes the result.
package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupported is returned for file types no provider can handle.
	ErrUnsupported = errors.New("unsupported file type")

	// ErrDocumentTooLarge is returned when a document exceeds the extractable size.
	ErrDocumentTooLarge = errors.New("document too large to extract")
)

// Provider extracts text from the complete contents of one kind of file.
type Provider interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, data []byte) (string, error)

// Extract calls f.
func (f ProviderFunc) Extract(ctx context.Context, data []byte) (string, error) {
	return f(ctx, data)
}

func unsupported(fileType string) error {
	if fileType == "" {
		fileType = "unknown"
	}
	return fmt.Errorf("%w: %s", ErrUnsupported, fileType)
}

// normalize drops NUL bytes and invalid UTF-8, which text columns reject,
// converts line endings to LF, trims trailing whitespace from every line
// and drops leading and trailing blank lines.
func normalize(text string) string {
	text = strings.ToValidUTF8(text, "")
	text = strings.ReplaceAll(text, "\x00", "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}

	return strings.Trim(strings.Join(lines, "\n"), "\n")
}
