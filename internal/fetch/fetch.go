// Package fetch downloads instance documents over HTTP.
package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultMaxRedirects = 5
	defaultUserAgent    = "revxslt"
)

// StatusError reports a response that did not carry a document.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Code)
}

// Client fetches documents and reports their declared content type.
type Client struct {
	client       *fasthttp.Client
	timeout      time.Duration
	maxRedirects int
	userAgent    string
}

type Option func(*Client)

// WithTimeout bounds each fetch, redirects included, when the context has no
// earlier deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithMaxRedirects sets how many redirects are followed before giving up.
func WithMaxRedirects(n int) Option {
	return func(c *Client) {
		c.maxRedirects = n
	}
}

// WithDial replaces the network dialer.
func WithDial(dial fasthttp.DialFunc) Option {
	return func(c *Client) {
		c.client.Dial = dial
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

func New(opts ...Option) *Client {
	c := &Client{
		client: &fasthttp.Client{
			MaxResponseBodySize: 64 << 20,
		},
		timeout:      defaultTimeout,
		maxRedirects: defaultMaxRedirects,
		userAgent:    defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsURL reports whether source names a remote document.
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Fetch downloads url and returns its body and Content-Type header.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.SetUserAgent(c.userAgent)

	for redirects := 0; ; redirects++ {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, "", fmt.Errorf("fetch %s: %w", url, err)
		}

		code := resp.StatusCode()
		if !fasthttp.StatusCodeIsRedirect(code) {
			if code != fasthttp.StatusOK {
				return nil, "", &StatusError{URL: url, Code: code}
			}
			break
		}
		if redirects >= c.maxRedirects {
			return nil, "", fmt.Errorf("fetch %s: stopped after %d redirects", url, redirects)
		}
		location := resp.Header.Peek(fasthttp.HeaderLocation)
		if len(location) == 0 {
			return nil, "", &StatusError{URL: url, Code: code}
		}
		req.URI().UpdateBytes(location)
		resp.Reset()
	}

	body := append([]byte(nil), resp.Body()...)
	return body, string(resp.Header.ContentType()), nil
}
