// Package transport is the request/response layer the document engine calls
// through. It owns header defaults, timeouts, connection pooling and error
// classification; it knows nothing about the document protocol.
package transport

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bhandras/kixsync/pkg/logger"
	"resty.dev/v3"
)

const (
	// DefaultTimeout is the per-request timeout used when Options.Timeout is zero.
	DefaultTimeout = 60 * time.Second

	// FormContentType is the content type used for save and bind bodies.
	FormContentType = "application/x-www-form-urlencoded;charset=UTF-8"
)

// Request describes one HTTP round trip.
type Request struct {
	// Method is the HTTP method.
	Method string
	// URL is the absolute URL including the encoded query string.
	URL string
	// ContentType is set on the request when non-empty.
	ContentType string
	// Body is sent verbatim when non-empty.
	Body string
	// RequireSuccess turns a non-2xx status into a KindStatus error.
	RequireSuccess bool
}

// Op returns a short label for logs and errors.
func (r *Request) Op() string {
	return r.Method + " " + r.URL
}

// Response is the result of a completed round trip.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Body is the full response body.
	Body string
}

// Doer performs a single request. Implementations must return *Error values
// (or errors wrapping them) so callers can branch on the failure kind.
type Doer interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Options configures a Client.
type Options struct {
	// Timeout bounds every request. Zero means DefaultTimeout.
	Timeout time.Duration
	// Headers is the baseline header set applied to every request.
	Headers map[string]string
}

// Client is a Doer backed by a resty client.
type Client struct {
	rc *resty.Client
}

// NewClient creates a Client with the given options.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	rc := resty.New().
		SetTimeout(timeout).
		SetHeaders(opts.Headers)
	return &Client{rc: rc}
}

// Do performs req.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	r := c.rc.R().SetContext(ctx)
	if req.ContentType != "" {
		r.SetHeader("Content-Type", req.ContentType)
	}
	if req.Body != "" {
		r.SetBody(req.Body)
	}

	logger.Tracef("transport: %s", req.Op())
	resp, err := r.Execute(req.Method, req.URL)
	if err != nil {
		return nil, Classify(req.Op(), err)
	}

	out := &Response{
		StatusCode: resp.StatusCode(),
		Body:       resp.String(),
	}
	if req.RequireSuccess && (out.StatusCode < http.StatusOK || out.StatusCode >= http.StatusMultipleChoices) {
		return out, &Error{
			Op:         req.Op(),
			Kind:       KindStatus,
			StatusCode: out.StatusCode,
			Err:        fmt.Errorf("%s", resp.Status()),
		}
	}
	return out, nil
}

// Close releases idle connections held by the client.
func (c *Client) Close() error {
	return c.rc.Close()
}

// DefaultHeaders returns the client-identifying header set sent to the
// document service at host.
func DefaultHeaders(host string) map[string]string {
	h := map[string]string{
		"sec-ch-ua-platform": `"Windows"`,
		"sec-ch-ua":          `"Chromium";v="142", "Google Chrome";v="142", "Not_A Brand";v="99"`,
	}
	if host != "" {
		h["Host"] = host
	}
	return h
}
