package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultUserAgent is sent when no user agent is configured.
const DefaultUserAgent = "listenmoe-client"

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 64 << 10

// Client wraps HTTP operations with radio-API specific configuration.
//
// Client provides:
//   - Configured User-Agent and Content-Type headers
//   - Relative paths resolved against a base URL
//   - Timeout handling for API calls
//   - Untimed streaming for live audio
//
// Example usage:
//
//	client := NewClient(WithBaseURL("https://listen.moe/api/"), WithTimeout(30*time.Second))
//
//	var user userResponse
//	err := client.DoJSON(ctx, Request{Method: "GET", Path: "users/@me", Header: auth}, &user)
type Client struct {
	httpClient   *http.Client
	streamClient *http.Client
	baseURL      *url.URL
	userAgent    string
	logger       *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the URL relative request paths are resolved against.
// A trailing slash is added when missing so "songs" resolves below the base.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base == "" {
			return
		}
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		if u, err := url.Parse(base); err == nil {
			c.baseURL = u
		}
	}
}

// WithTimeout sets the timeout for API calls and downloads. Streams are not
// subject to it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithHTTPClient replaces the underlying *http.Client (tests pass the
// httptest server client here).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
			c.streamClient = &http.Client{Transport: hc.Transport}
		}
	}
}

// WithLogger sets the logger used for request tracing at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a new HTTP client.
//
// The client is configured by default with:
//   - 30 second timeout
//   - "listenmoe-client" User-Agent header
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		streamClient: &http.Client{},
		userAgent:    DefaultUserAgent,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request describes an API call.
type Request struct {
	// Method is the HTTP method, GET when empty.
	Method string

	// Path is resolved against the base URL. Absolute URLs are used as-is.
	Path string

	// Header holds extra headers such as Authorization or library.
	Header map[string]string

	// Body is encoded as JSON when non-nil.
	Body any
}

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}

// ResolveURL resolves path against the base URL.
func (c *Client) ResolveURL(path string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	if ref.IsAbs() || c.baseURL == nil {
		return ref.String(), nil
	}
	return c.baseURL.ResolveReference(ref).String(), nil
}

// DoJSON performs the request and decodes a 2xx JSON response into out.
// out may be nil to discard the body.
//
// Returns an error if:
//   - The request cannot be built or sent
//   - The response status is not 2xx (*StatusError)
//   - The response body is not valid JSON for out
func (c *Client) DoJSON(ctx context.Context, r Request, out any) error {
	target, err := c.ResolveURL(r.Path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", r.Path, err)
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if r.Body != nil {
		data, err := json.Marshal(r.Body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	c.setHeaders(req)
	req.Header.Set("Accept", "application/json")
	for k, v := range r.Header {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.logger.Debug("api request", "method", method, "url", target, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: data}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Get performs a GET request and returns the response body as bytes.
//
// Returns an error if the request fails, the response status is not 200 OK
// or reading the body fails.
//
// Example:
//
//	data, err := client.Get(ctx, "https://cdn.listen.moe/covers/cover.jpg")
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	target, err := c.ResolveURL(rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	return io.ReadAll(resp.Body)
}

// DownloadBytes downloads a small file (album covers) into memory.
func (c *Client) DownloadBytes(ctx context.Context, rawURL string) ([]byte, error) {
	return c.Get(ctx, rawURL)
}

// OpenStream opens a long-lived GET (live radio audio) and returns its body.
//
// The request is not subject to the client timeout; cancel ctx to stop it.
// The caller must close the returned body.
func (c *Client) OpenStream(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return resp.Body, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", "application/json")
}

// ProgressWriter wraps a writer to track progress.
//
// The recorder uses it to report how many bytes of the live stream have been
// written to the current file.
//
// Example:
//
//	pw := &ProgressWriter{
//	    Writer: file,
//	    OnUpdate: func(written, total int64) {
//	        fmt.Printf("%d bytes\n", written)
//	    },
//	}
//	io.Copy(pw, stream)
type ProgressWriter struct {
	// Writer is the underlying writer to write data to.
	Writer io.Writer

	// Total is the expected total bytes, or -1 for live streams.
	Total int64

	// Written is the current number of bytes written.
	Written int64

	// OnUpdate is called after each Write with current progress.
	// Parameters are (bytesWritten, totalExpected).
	OnUpdate func(written, total int64)
}

// Write implements io.Writer, tracking progress and calling OnUpdate.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.Written += int64(n)
	if pw.OnUpdate != nil {
		pw.OnUpdate(pw.Written, pw.Total)
	}
	return n, err
}
