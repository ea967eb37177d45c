// Package apiclient is the HTTP adapter for the external media-monitoring API.
// It implements the AuthAPI, ResourceAPI, QuickSearchAPI, AccountAPI and PublicAPI ports.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 4 << 20
)

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// ErrorMessagePaths are JMESPath expressions tried in order against JSON error bodies.
	ErrorMessagePaths []string
	// Transport is the base round tripper; defaults to http.DefaultTransport.
	Transport http.RoundTripper
	// Jar, when set, carries cookies the API issues across calls.
	Jar    http.CookieJar
	Logger *slog.Logger
}

// Client talks to the external API. It is safe for concurrent use.
type Client struct {
	baseURL   string
	timeout   time.Duration
	transport http.RoundTripper
	jar       http.CookieJar
	messages  *messageExtractor
	logger    *slog.Logger
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("api base URL is required")
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api base URL %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	messages, err := newMessageExtractor(cfg.ErrorMessagePaths)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL:   base,
		timeout:   timeout,
		transport: transport,
		jar:       cfg.Jar,
		messages:  messages,
		logger:    logger.With("component", "apiclient"),
	}, nil
}

// BaseURL returns the normalized API base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// httpClient returns a client that attaches token as a bearer credential.
// An empty token yields an anonymous client.
func (c *Client) httpClient(token string) *http.Client {
	if token == "" {
		return &http.Client{Transport: c.transport, Jar: c.jar, Timeout: c.timeout}
	}
	return &http.Client{
		Transport: &oauth2.Transport{
			Base:   c.transport,
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
		},
		Jar:     c.jar,
		Timeout: c.timeout,
	}
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// request describes a single JSON call.
type request struct {
	method string
	path   string
	token  string
	query  url.Values
	body   any
}

// do executes req and decodes a successful JSON response into out (when non-nil).
// Non-2xx responses become *APIError.
func (c *Client) do(ctx context.Context, req request, out any) error {
	var body io.Reader
	switch b := req.body.(type) {
	case nil:
	case json.RawMessage:
		if len(b) > 0 {
			body = bytes.NewReader(b)
		}
	default:
		buf, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", req.method, req.path, err)
		}
		body = bytes.NewReader(buf)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.endpoint(req.path, req.query), body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", req.method, req.path, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient(req.token).Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.method, req.path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.DebugContext(ctx, "api call",
		"method", req.method,
		"path", req.path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read %s %s: %w", req.method, req.path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.messages.apiError(resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], data...)
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.method, req.path, err)
	}
	return nil
}
