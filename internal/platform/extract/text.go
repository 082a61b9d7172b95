package extract

import (
	"bytes"
	"context"
	"errors"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ErrNotText is returned when a plain-text file is not valid UTF-8.
var ErrNotText = errors.New("file is not valid UTF-8 text")

// TextProvider passes plain text, markdown and CSV through unchanged apart
// from stripping a byte order mark.
type TextProvider struct{}

// Extract implements Provider.
func (TextProvider) Extract(_ context.Context, data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if bytes.IndexByte(data, 0) >= 0 || !utf8.Valid(data) {
		return "", ErrNotText
	}
	return string(data), nil
}
