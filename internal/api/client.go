package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/utils"
	"github.com/MrSnakeDoc/shelf/internal/version"
	"github.com/google/uuid"
)

const (
	DefaultTimeout     = 15 * time.Second
	DefaultRefreshPath = "/auth/refresh"

	// maxErrorBody bounds how much of an error response is read for its message.
	maxErrorBody = 64 << 10
)

// Client talks to the bookmark backend. It holds no credential: every
// authenticated call takes the bearer token explicitly.
type Client struct {
	base        *url.URL
	http        *http.Client
	refreshPath string
	userAgent   string
	logger      logger.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRefreshPath sets the token refresh endpoint, ex: "/auth/token".
func WithRefreshPath(p string) Option {
	return func(c *Client) {
		if p = strings.TrimSpace(p); p != "" {
			c.refreshPath = "/" + strings.TrimLeft(p, "/")
		}
	}
}

func WithLogger(l logger.Logger) Option { return func(c *Client) { c.logger = l } }

// New validates baseURL and builds a client.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid api url %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid api url %q: missing host", baseURL)
	}

	c := &Client{
		base:        u,
		http:        &http.Client{Timeout: DefaultTimeout},
		refreshPath: DefaultRefreshPath,
		userAgent:   "shelf/" + version.Version,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend root.
func (c *Client) BaseURL() string { return c.base.String() }

// do sends one request. in is JSON-encoded when non-nil; the raw response
// body is returned for 2xx responses.
func (c *Client) do(ctx context.Context, method, path, token string, in any) ([]byte, error) {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed",
			logger.String("method", method),
			logger.String("path", path),
			logger.String("request_id", requestID),
			logger.Error(err))
		return nil, fmt.Errorf("%w: %s %s: %v", domain.ErrNetwork, method, path, err)
	}
	defer utils.Close(resp.Body)

	c.logger.Debug("backend request",
		logger.String("method", method),
		logger.String("path", path),
		logger.Int("status", resp.StatusCode),
		logger.String("request_id", requestID),
		logger.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &domain.APIError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Message:    errorMessage(raw),
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s %s: %v", domain.ErrNetwork, method, path, err)
	}
	return raw, nil
}

// errorMessage pulls a human message out of an error body. Both
// {"message": "..."} and {"message": ["...", "..."]} are seen in the wild,
// as well as {"error": "..."}.
func errorMessage(raw []byte) string {
	var body struct {
		Message json.RawMessage `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return strings.TrimSpace(string(raw))
	}

	if len(body.Message) > 0 {
		var s string
		if err := json.Unmarshal(body.Message, &s); err == nil && s != "" {
			return s
		}
		var list []string
		if err := json.Unmarshal(body.Message, &list); err == nil && len(list) > 0 {
			return strings.Join(list, "; ")
		}
	}
	return body.Error
}

// decodeData unwraps the {"data": ...} envelope when present, otherwise
// decodes the whole body into v.
func decodeData(raw []byte, v any) error {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(raw, &env); err == nil {
		if data, ok := env["data"]; ok {
			return json.Unmarshal(data, v)
		}
	}
	return json.Unmarshal(raw, v)
}

func decodeError(method, path string, err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return fmt.Errorf("decode %s %s: malformed response: %w", method, path, err)
	}
	return fmt.Errorf("decode %s %s: %w", method, path, err)
}
