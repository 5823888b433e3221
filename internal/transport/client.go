// Package transport is the HTTP layer shared by source adapters. It turns a
// request into raw bytes or a classified model error.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"zerocrash/internal/model"
)

// Doer is the part of *http.Client the adapters need. Tests replace it with
// a recorded or stubbed implementation.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

const maxBodyBytes = 4 << 20

// StatusError carries a non-2xx provider status.
type StatusError struct {
	Status int
	Body   string
	kind   error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Status, e.Body)
}

func (e *StatusError) Unwrap() error { return e.kind }

// Client performs GET/POST calls with a single transparent retry on a
// transient transport failure.
type Client struct {
	doer       Doer
	userAgent  string
	retryDelay time.Duration
}

// New wraps doer. A nil doer gets a plain *http.Client with a 10s timeout.
func New(doer Doer, userAgent string) *Client {
	if doer == nil {
		doer = &http.Client{Timeout: 10 * time.Second}
	}
	if strings.TrimSpace(userAgent) == "" {
		userAgent = "zerocrash/1.0"
	}
	return &Client{doer: doer, userAgent: userAgent, retryDelay: 200 * time.Millisecond}
}

// Get issues a GET with params appended to rawURL.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values, headers http.Header) ([]byte, error) {
	if len(params) > 0 {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		rawURL += sep + params.Encode()
	}
	return c.do(ctx, http.MethodGet, rawURL, nil, headers)
}

// PostForm issues a form encoded POST.
func (c *Client) PostForm(ctx context.Context, rawURL string, form url.Values, headers http.Header) ([]byte, error) {
	h := headers.Clone()
	if h == nil {
		h = http.Header{}
	}
	h.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(ctx, http.MethodPost, rawURL, []byte(form.Encode()), h)
}

func (c *Client) do(ctx context.Context, method, rawURL string, body []byte, headers http.Header) ([]byte, error) {
	b, transient, err := c.attempt(ctx, method, rawURL, body, headers)
	if err == nil || !transient || ctx.Err() != nil {
		return b, err
	}
	slog.Debug("transport: retrying transient failure", "method", method, "url", redact(rawURL), "error", err)
	select {
	case <-ctx.Done():
		return nil, classifyCtx(ctx.Err())
	case <-time.After(c.retryDelay):
	}
	b, _, err = c.attempt(ctx, method, rawURL, body, headers)
	return b, err
}

func (c *Client) attempt(ctx context.Context, method, rawURL string, body []byte, headers http.Header) ([]byte, bool, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, rd)
	if err != nil {
		return nil, false, fmt.Errorf("%w: build request: %v", model.ErrUnavailable, err)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.doer.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, classifyCtx(ctx.Err())
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil, false, fmt.Errorf("%w: %v", model.ErrTimeout, err)
		}
		return nil, true, fmt.Errorf("%w: %v", model.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, classifyCtx(ctx.Err())
		}
		return nil, true, fmt.Errorf("%w: read body: %v", model.ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := &StatusError{Status: resp.StatusCode, Body: truncate(string(data), 200), kind: model.ErrUnavailable}
		if resp.StatusCode == http.StatusTooManyRequests {
			se.kind = model.ErrRateLimited
		}
		transient := resp.StatusCode == http.StatusBadGateway ||
			resp.StatusCode == http.StatusServiceUnavailable ||
			resp.StatusCode == http.StatusGatewayTimeout
		return nil, transient, se
	}
	return data, false, nil
}

func classifyCtx(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", model.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", model.ErrUnavailable, err)
}

// redact drops query strings, which carry API keys for some providers.
func redact(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}
