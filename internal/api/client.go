// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

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

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Configuration defaults.
const (
	DefaultBaseURL = "http://localhost:8002"

	// DefaultTimeout is the per-request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRequestsPerSecond paces outbound requests.
	DefaultRequestsPerSecond = 5

	// MaxResponseSize is the default response body limit.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024
)

// Options configures a Client.
type Options struct {
	// BaseURL serves conversations, query, speech and tts endpoints.
	BaseURL string

	// AuthURL serves login, signup and logout. Empty means BaseURL.
	AuthURL string

	Timeout           time.Duration
	RequestsPerSecond float64
	MaxResponseBytes  int64

	// Jar holds the session cookies sent with every request.
	Jar http.CookieJar

	// Transport overrides the HTTP transport (tests).
	Transport http.RoundTripper

	Logger *log.Logger
}

// Client talks to the backend. Safe for concurrent use.
type Client struct {
	baseURL  string
	authURL  string
	http     *http.Client
	limiter  *rate.Limiter
	maxBytes int64
	logger   *log.Logger
}

// New creates a client, filling unset options with defaults.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.AuthURL == "" {
		opts.AuthURL = opts.BaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if opts.MaxResponseBytes <= 0 {
		opts.MaxResponseBytes = MaxResponseSize
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	return &Client{
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		authURL: strings.TrimSuffix(opts.AuthURL, "/"),
		http: &http.Client{
			Timeout:   opts.Timeout,
			Jar:       opts.Jar,
			Transport: opts.Transport,
		},
		limiter:  rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), int(opts.RequestsPerSecond)+1),
		maxBytes: opts.MaxResponseBytes,
		logger:   opts.Logger.WithPrefix("api"),
	}
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// AuthURL returns the authentication base URL.
func (c *Client) AuthURL() string {
	return c.authURL
}

// Jar returns the cookie jar in use.
func (c *Client) Jar() http.CookieJar {
	return c.http.Jar
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// request describes one call.
type request struct {
	method      string
	base        string
	path        string
	body        io.Reader
	contentType string
	accept      string
}

// jsonRequest builds a request with a JSON body.
func jsonRequest(method, base, path string, payload any) (request, error) {
	r := request{method: method, base: base, path: path, accept: "application/json"}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return r, fmt.Errorf("failed to marshal request: %w", err)
		}
		r.body = bytes.NewReader(b)
		r.contentType = "application/json"
	}
	return r, nil
}

// do sends r and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, r request) ([]byte, http.Header, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, r.method, r.base+r.path, r.body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.accept != "" {
		req.Header.Set("Accept", r.accept)
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)
	req.Header.Set("User-Agent", "medibot")

	// Never log bodies or headers, they carry credentials and cookies.
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		c.logger.Warn("request failed", "method", r.method, "path", r.path, "id", reqID, "err", err)
		return nil, nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := c.readResponse(resp)
	c.logger.Debug("response", "method", r.method, "path", r.path, "status", resp.StatusCode,
		"duration", time.Since(start), "id", reqID)
	if err != nil {
		return nil, nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, errorFromResponse(resp.StatusCode, r.path, body)
	}
	return body, resp.Header, nil
}

// doJSON sends r and decodes a 2xx JSON body into out.
func (c *Client) doJSON(ctx context.Context, r request, out any) error {
	body, _, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, r.path, err)
	}
	return nil
}

// readResponse reads the body with the configured size limit.
func (c *Client) readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrNetwork, err)
	}
	if int64(len(body)) > c.maxBytes {
		return nil, fmt.Errorf("%w: exceeded %d bytes", ErrResponseTooLarge, c.maxBytes)
	}
	return body, nil
}

// errorResponse is the backend error envelope.
type errorResponse struct {
	Detail json.RawMessage `json:"detail"`
}

// errorFromResponse builds *Error, extracting "detail" when present. Detail
// may be a string or a validation error list.
func errorFromResponse(status int, path string, body []byte) error {
	e := &Error{Status: status, Path: path}
	var envelope errorResponse
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return e
	}
	var s string
	if err := json.Unmarshal(envelope.Detail, &s); err == nil {
		e.Detail = s
		return e
	}
	var list []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &list); err == nil && len(list) > 0 {
		msgs := make([]string, 0, len(list))
		for _, item := range list {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}
		e.Detail = strings.Join(msgs, "; ")
	}
	return e
}

// IsCanceled reports whether err came from a canceled or expired context.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// hostURL parses a base URL for cookie lookups.
func hostURL(base string) *url.URL {
	u, err := url.Parse(base)
	if err != nil {
		return &url.URL{}
	}
	return u
}

// BaseCookieURL returns the URL whose cookies authorize backend calls.
func (c *Client) BaseCookieURL() *url.URL {
	return hostURL(c.baseURL)
}

// AuthCookieURL returns the URL that issues session cookies.
func (c *Client) AuthCookieURL() *url.URL {
	return hostURL(c.authURL)
}
