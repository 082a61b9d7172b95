package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TikaClient extracts text through an Apache Tika server. It handles the
// legacy and less common formats that have no built-in provider.
type TikaClient struct {
	client *http.Client
	url    string
}

// TikaOption configures a TikaClient.
type TikaOption func(*TikaClient)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) TikaOption {
	return func(c *TikaClient) {
		c.client = client
	}
}

// NewTikaClient creates a client for the Tika server at baseURL.
func NewTikaClient(baseURL string, options ...TikaOption) (*TikaClient, error) {
	if baseURL == "" {
		return nil, errors.New("invalid url")
	}

	c := &TikaClient{
		client: &http.Client{Timeout: 2 * time.Minute},
		url:    baseURL,
	}

	for _, option := range options {
		option(c)
	}

	return c, nil
}

// Extract implements Provider.
func (c *TikaClient) Extract(ctx context.Context, data []byte) (string, error) {
	u, err := url.JoinPath(c.url, "/tika")
	if err != nil {
		return "", fmt.Errorf("invalid tika url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("tika request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", convertError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read tika response: %w", err)
	}

	return string(body), nil
}

func convertError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(data))

	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	return fmt.Errorf("tika returned %d: %s", resp.StatusCode, msg)
}
