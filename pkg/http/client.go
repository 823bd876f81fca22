package http

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
)

const (
	MethodGet  = http.MethodGet
	MethodPost = http.MethodPost

	maxErrorBody = 4096
)

// ClientOption configures Client.
type ClientOption func(*Client)

// RequestOptions describes one outbound request. Body, when set, is sent as
// JSON unless it is already a []byte or an io.Reader.
type RequestOptions struct {
	Method  string
	URL     string
	Headers map[string]string
	Query   url.Values
	Body    interface{}
}

// Client is a small JSON client shared by the market data and scoring
// service adapters.
type Client struct {
	timeout   time.Duration
	userAgent string
	client    *http.Client
}

// StatusError is returned by SendAndParse for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// NewClient creates a new HTTP client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		timeout:   30 * time.Second,
		userAgent: "fxbias/1.0",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: c.timeout}
	}
	return c
}

// SendAndParse performs the request and decodes a JSON response into dest.
// A nil dest discards the body.
func (c *Client) SendAndParse(ctx context.Context, opts *RequestOptions, dest interface{}) error {
	req, err := c.newRequest(ctx, opts)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, opts *RequestOptions) (*http.Request, error) {
	body, isJSON, err := encodeBody(opts.Body)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if len(opts.Query) > 0 {
		q := u.Query()
		for k, vs := range opts.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, opts.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if isJSON {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

func encodeBody(body interface{}) (io.Reader, bool, error) {
	switch v := body.(type) {
	case nil:
		return nil, false, nil
	case []byte:
		return bytes.NewReader(v), false, nil
	case io.Reader:
		return v, false, nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, false, fmt.Errorf("marshal json: %w", err)
		}
		return bytes.NewReader(b), true, nil
	}
}

// WithTimeout sets client timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithHTTPClient replaces the underlying *http.Client, e.g. with an
// httptest server client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.client = hc
	}
}

// IsTemporary reports whether err is worth retrying. Transport failures and
// 429 or 5xx responses are; other statuses are not.
func IsTemporary(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return !errors.Is(err, context.Canceled)
}
