// Package backend implements ports.Generator and ports.Deployer over the
// generation backend's HTTP API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/pitchpilot/internal/logging"
	"github.com/aretw0/pitchpilot/pkg/domain"
)

const (
	// DefaultBaseURL is where the generation backend listens by default.
	DefaultBaseURL = "http://localhost:5000"
	// DefaultTimeout bounds a single remote call. Generation is slow.
	DefaultTimeout = 5 * time.Minute

	maxErrorBody = 4 << 10
)

// Client talks to the generation backend.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a backend client. An empty baseURL falls back to DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalized backend address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type submitResponse struct {
	Files json.RawMessage `json:"files"`
}

type deployResponse struct {
	URL json.RawMessage `json:"url"`
}

// Generate posts the requirement (and theme, when set) to /submit.
// A response without a files object yields an empty bundle.
func (c *Client) Generate(ctx context.Context, req domain.GenerateRequest) (domain.Bundle, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return domain.Bundle{}, fmt.Errorf("marshal request: %w", err)
	}

	var resp submitResponse
	if err := c.post(ctx, "generate", "/submit", payload, &resp); err != nil {
		return domain.Bundle{}, err
	}

	bundle := decodeFiles(resp.Files)
	c.logger.Debug("generate response decoded", "artifacts", bundle.Len())
	return bundle, nil
}

// Deploy posts to /deploy and returns the published URL.
// A response without a string url returns "" and no error.
func (c *Client) Deploy(ctx context.Context) (string, error) {
	var resp deployResponse
	if err := c.post(ctx, "deploy", "/deploy", nil, &resp); err != nil {
		return "", err
	}

	var url string
	if len(resp.URL) > 0 && json.Unmarshal(resp.URL, &url) == nil {
		return strings.TrimSpace(url), nil
	}
	return "", nil
}

func (c *Client) post(ctx context.Context, op, path string, payload []byte, out any) error {
	var body io.Reader = http.NoBody
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return &domain.TransportError{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(request)
	if err != nil {
		return &domain.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("backend call", "op", op, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &domain.TransportError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(text))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// decodeFiles turns the raw files value into a bundle. Anything that is not a
// JSON object gives zero artifacts; non-string values become opaque artifacts.
func decodeFiles(raw json.RawMessage) domain.Bundle {
	var entries map[string]json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &entries) != nil || entries == nil {
		return domain.NewBundle(nil)
	}

	text := make(map[string]string, len(entries))
	opaque := make(map[string]string)
	for name, value := range entries {
		if string(bytes.TrimSpace(value)) == "null" {
			opaque[name] = ""
			continue
		}
		var s string
		if err := json.Unmarshal(value, &s); err == nil {
			text[name] = s
			continue
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, value); err != nil {
			opaque[name] = string(value)
			continue
		}
		opaque[name] = compact.String()
	}

	bundle := domain.NewBundle(text)
	for name, display := range opaque {
		bundle = bundle.WithOpaque(name, display)
	}
	return bundle
}
