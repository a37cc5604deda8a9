// Package rpcclient provides the HTTP/JSON transport used to talk to a node
// REST API and its faucet.
package rpcclient

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

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DefaultTimeout is used when no positive timeout is given.
const DefaultTimeout = 10 * time.Second

// maxResponseSize bounds how much of a response body is read.
const maxResponseSize = 16 << 20

// RequestIDHeader carries a per-request UUID for correlating node logs.
const RequestIDHeader = "X-Request-ID"

// Observer is notified after every request. status is 0 when no response
// was received.
type Observer func(method, path string, status int, elapsed time.Duration, err error)

// Client is a JSON-over-HTTP client for one base URL. It is safe for
// concurrent use.
type Client struct {
	base     *url.URL
	http     *http.Client
	limiter  *rate.Limiter
	apiKey   string
	logger   zerolog.Logger
	observer Observer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRateLimit limits outgoing requests to rps with the given burst.
// rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithAPIKey sends key as a bearer token.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithLogger sets the request logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithObserver registers a per-request callback, typically for metrics.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// New creates a client for endpoint with DefaultTimeout.
func New(endpoint string, opts ...Option) (*Client, error) {
	return NewWithTimeout(endpoint, DefaultTimeout, opts...)
}

// NewWithTimeout creates a client with a custom HTTP timeout.
func NewWithTimeout(endpoint string, timeout time.Duration, opts ...Option) (*Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	base, err := url.Parse(strings.TrimRight(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("endpoint %q: scheme must be http or https", endpoint)
	}
	c := &Client{
		base:   base,
		http:   &http.Client{Timeout: timeout},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the base URL.
func (c *Client) Endpoint() string {
	return c.base.String()
}

// HTTPError is returned when the server answers with a non-2xx status.
// Code, ErrorCode and VMStatus are filled when the body is a node error.
type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
	ErrorCode  string
	VMStatus   string
	Body       string
	RequestID  string
}

func (e *HTTPError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Body
	}
	if e.Code != "" {
		return fmt.Sprintf("http %d %s: %s", e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, msg)
}

// errorBody is the node's error response.
type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code"`
	VMStatus  string `json:"vm_status"`
}

// IsNotFound reports whether err is an HTTP 404. With codes given, the
// node error code must also be one of them; a 404 from something that is
// not the node (a proxy, a wrong path prefix) carries no code and does not
// match.
func IsNotFound(err error, codes ...string) bool {
	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != http.StatusNotFound {
		return false
	}
	if len(codes) == 0 {
		return true
	}
	for _, c := range codes {
		if he.Code == c {
			return true
		}
	}
	return false
}

// Get issues a GET and decodes a JSON response into result.
func (c *Client) Get(ctx context.Context, path string, query url.Values, result any) error {
	_, err := c.Do(ctx, http.MethodGet, path, query, nil, result)
	return err
}

// Post issues a POST with a JSON body and decodes the response into result.
func (c *Client) Post(ctx context.Context, path string, query url.Values, body []byte, result any) error {
	_, err := c.Do(ctx, http.MethodPost, path, query, body, result)
	return err
}

// Do performs one request. A nil result discards the response body.
// It returns the HTTP status code when a response was received.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body []byte, result any) (int, error) {
	start := time.Now()
	status, err := c.do(ctx, method, path, query, body, result)
	if c.observer != nil {
		c.observer(method, path, status, time.Since(start), err)
	}
	return status, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, result any) (int, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, fmt.Errorf("rate limit: %w", err)
		}
	}

	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set(RequestIDHeader, reqID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	c.logger.Trace().
		Str("method", method).
		Str("url", u.String()).
		Int("status", resp.StatusCode).
		Str("request_id", reqID).
		Msg("HTTP request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		he := &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
			RequestID:  reqID,
		}
		var eb errorBody
		if json.Unmarshal(data, &eb) == nil {
			he.Code = eb.Code
			he.Message = eb.Message
			he.ErrorCode = eb.ErrorCode
			he.VMStatus = eb.VMStatus
		}
		return resp.StatusCode, he
	}

	if result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
