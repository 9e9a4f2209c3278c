package apiclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// APIClient handles communication with one external service.
type APIClient struct {
	BaseURL    string
	HttpClient *http.Client
	headers    map[string]string
}

type Option func(*APIClient)

// WithHeader sets a header on every request.
func WithHeader(key, value string) Option {
	return func(c *APIClient) { c.headers[key] = value }
}

// WithTimeout bounds every request made by the client.
func WithTimeout(d time.Duration) Option {
	return func(c *APIClient) { c.HttpClient.Timeout = d }
}

// WithHTTPClient replaces the underlying client, e.g. with an httptest TLS client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *APIClient) { c.HttpClient = hc }
}

func New(baseURL string, opts ...Option) *APIClient {
	c := &APIClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HttpClient: &http.Client{},
		headers:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do is the single helper every request goes through.
func (c *APIClient) do(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create API request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HttpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("service unavailable: %w", err)
	}
	return resp, nil
}

// readError turns a non-2xx response into an error carrying its body.
func readError(resp *http.Response, action string) error {
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("failed to %s (status %d): %s", action, resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
}
