package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JonMunkholm/bizdash/internal/logging"
	"github.com/JonMunkholm/bizdash/internal/metrics"
)

// maxResponseSize caps how much of a response body is read.
const maxResponseSize = 10 << 20

// DefaultTimeout is used when no http.Client is supplied.
const DefaultTimeout = 30 * time.Second

// Client talks to the REST backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	header     http.Header
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the request timeout of the underlying http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.header.Add(key, value) }
}

// NewClient creates a client for the API rooted at baseURL, e.g.
// "http://localhost:8081/api".
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		header:     make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do performs one request and returns the decoded envelope. A transport
// failure, a non-2xx status or success=false all produce an error; the
// latter two are *Error carrying the server message and field errors.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) (*Envelope[json.RawMessage], error) {
	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resource := resourceLabel(path)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveAPI(resource, method, 0, start)
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	metrics.ObserveAPI(resource, method, resp.StatusCode, start)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%s %s: read response: %w", method, path, err)
	}

	logging.FromContext(ctx).Debug("api call",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	var env Envelope[json.RawMessage]
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			if resp.StatusCode >= 400 {
				return nil, &Error{Status: resp.StatusCode}
			}
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	} else if resp.StatusCode < 400 {
		// 204 and friends: treat an empty 2xx body as success.
		env.Success = true
	}

	if resp.StatusCode >= 400 || !env.Success {
		return &env, &Error{
			Status:      resp.StatusCode,
			Message:     env.Message,
			FieldErrors: env.Errors,
		}
	}
	return &env, nil
}

// resourceLabel keeps metric cardinality bounded: "employees/42/approve" -> "employees".
func resourceLabel(path string) string {
	path = strings.Trim(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}
