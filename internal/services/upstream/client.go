// Package upstream is the REST client for the exchange backend.
package upstream

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

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// RemoteError is a failed call to the exchange backend
type RemoteError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("%s: backend returned %d: %s", e.Op, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: backend returned %d", e.Op, e.StatusCode)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *RemoteError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a 404 from the backend
func IsNotFound(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.StatusCode == http.StatusNotFound
}

// IsUnauthorized reports whether the backend rejected the bearer token
func IsUnauthorized(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && (re.StatusCode == http.StatusUnauthorized || re.StatusCode == http.StatusForbidden)
}

// Client calls the exchange backend. A Client is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit throttles outbound calls
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTimeout bounds every call made with the default HTTP client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// NewClient creates a client for the backend at baseURL
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Inf, 0),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend base URL
func (c *Client) BaseURL() string { return c.baseURL }

// WithTokenSource returns a client that attaches the bearer token from ts to
// every call. The limiter is shared with the parent.
func (c *Client) WithTokenSource(ts oauth2.TokenSource) *Client {
	base := c.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	hc := *c.httpClient
	hc.Transport = &oauth2.Transport{Source: ts, Base: base}

	clone := *c
	clone.httpClient = &hc
	return &clone
}

// HTTPClient returns the HTTP client calls go through, including any token transport
func (c *Client) HTTPClient() *http.Client { return c.httpClient }

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// doJSON sends body as JSON and decodes the response into out
func (c *Client) doJSON(ctx context.Context, op, method, path string, query url.Values, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}
	raw, err := c.send(ctx, op, method, c.endpoint(path, query), reader, "application/json")
	if err != nil {
		return err
	}
	return decodeInto(op, raw, out)
}

func (c *Client) send(ctx context.Context, op, method, endpoint string, body io.Reader, contentType string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &RemoteError{Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("backend call failed", zap.String("op", op), zap.Error(err))
		return nil, &RemoteError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RemoteError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	c.logger.Debug("backend call",
		zap.String("op", op),
		zap.String("method", method),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RemoteError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}
	return raw, nil
}

// errorMessage pulls the human readable message out of an error body
func errorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	text := strings.TrimSpace(string(raw))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

func decodeInto(op string, raw []byte, out interface{}) error {
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}

// decodeList accepts a bare array or an object wrapping the array under one
// of keys ("data" is always tried).
func decodeList[T any](op string, raw []byte, keys ...string) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil
	}

	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("failed to decode %s response: %w", op, err)
		}
		return items, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	for _, key := range append(keys, "data") {
		inner, ok := envelope[key]
		if !ok {
			continue
		}
		if len(bytes.TrimSpace(inner)) > 0 && bytes.TrimSpace(inner)[0] == '{' {
			return decodeList[T](op, inner, keys...)
		}
		return decodeList[T](op, inner)
	}
	return nil, fmt.Errorf("failed to decode %s response: no list in body", op)
}

// decodeItem accepts a bare object or one wrapped under "data"
func decodeItem[T any](op string, raw []byte, keys ...string) (T, error) {
	var zero T
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return zero, fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	for _, key := range append(keys, "data") {
		if inner, ok := envelope[key]; ok && len(inner) > 0 && inner[0] == '{' {
			raw = inner
			break
		}
	}
	var item T
	if err := json.Unmarshal(raw, &item); err != nil {
		return zero, fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return item, nil
}

// getList fetches a collection
func getList[T any](ctx context.Context, c *Client, op, path string, query url.Values, keys ...string) ([]T, error) {
	raw, err := c.send(ctx, op, http.MethodGet, c.endpoint(path, query), nil, "")
	if err != nil {
		return nil, err
	}
	return decodeList[T](op, raw, keys...)
}

// getItem fetches one document
func getItem[T any](ctx context.Context, c *Client, op, path string, keys ...string) (T, error) {
	raw, err := c.send(ctx, op, http.MethodGet, c.endpoint(path, nil), nil, "")
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeItem[T](op, raw, keys...)
}

func escape(id string) string {
	return url.PathEscape(id)
}
