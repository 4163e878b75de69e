package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/openbotauth/botsig"
	"go.uber.org/zap"
)

const (
	// DefaultMaxRedirects is the number of redirects a Client follows.
	DefaultMaxRedirects = 5
	// DefaultTimeout bounds each request made by a Client.
	DefaultTimeout = 10 * time.Second
)

var (
	// ErrTransport wraps network failures and timeouts.
	ErrTransport = errors.New("transport error")
	// ErrTooManyRedirects is returned when a redirect chain is longer
	// than the client's maximum.
	ErrTooManyRedirects = errors.New("too many redirects")
)

// Hop records one request of a redirect chain.
type Hop struct {
	Method string
	URL    string
	Status int
	// Signed is nil for unsigned clients.
	Signed *botsig.SignedRequest
}

// Response is the final response of a redirect chain.
type Response struct {
	*http.Response
	Hops []Hop
}

// Redirects returns the number of redirects followed.
func (r *Response) Redirects() int {
	if len(r.Hops) == 0 {
		return 0
	}
	return len(r.Hops) - 1
}

// Final returns the last hop, whose request produced Response.
func (r *Response) Final() Hop {
	if len(r.Hops) == 0 {
		return Hop{}
	}
	return r.Hops[len(r.Hops)-1]
}

// Client sends agent requests and follows redirects itself, building a new
// signature for every hop. A signature is never sent to a URL other than
// the one it was built for.
type Client struct {
	signer       *botsig.Signer
	httpClient   *http.Client
	headers      []string
	maxRedirects int
	logger       *zap.Logger
}

// NewClient creates a Client. A nil signer makes an unsigned client, which
// follows redirects the same way without adding signature headers.
func NewClient(signer *botsig.Signer, options ...ClientOption) *Client {
	c := &Client{
		signer:       signer,
		maxRedirects: DefaultMaxRedirects,
		logger:       zap.NewNop(),
	}
	transport := http.DefaultTransport
	timeout := DefaultTimeout
	for _, opt := range options {
		switch opt.Ident() {
		case identTransport{}:
			if rt, ok := opt.Value().(http.RoundTripper); ok && rt != nil {
				transport = rt
			}
		case identCoveredHeaders{}:
			c.headers = opt.Value().([]string)
		case identMaxRedirects{}:
			c.maxRedirects = opt.Value().(int)
		case identTimeout{}:
			timeout = opt.Value().(time.Duration)
		case identLogger{}:
			if l := opt.Value().(*zap.Logger); l != nil {
				c.logger = l
			}
		}
	}
	c.httpClient = &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return c
}

// Signed reports whether the client signs its requests.
func (c *Client) Signed() bool {
	return c.signer != nil
}

// Get is a shorthand for a GET request to rawURL.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", botsig.ErrInvalidURL, err)
	}
	return c.Do(ctx, req)
}

// Do sends req, following up to the configured number of redirects. On
// a 3xx response with a Location header the location is resolved against
// the current URL and a new request, with a new signature, is sent to it.
// 303 responses switch the method to GET; other redirects keep it.
//
// The caller must close the returned response's body.
func (c *Client) Do(ctx context.Context, req *http.Request) (*Response, error) {
	if req == nil || req.URL == nil {
		return nil, fmt.Errorf("%w: request has no URL", botsig.ErrInvalidURL)
	}
	cur := req.Clone(ctx)
	var hops []Hop
	for {
		rootPath(cur.URL)
		hop := Hop{Method: cur.Method, URL: cur.URL.String()}
		if c.signer != nil {
			stripSignature(cur.Header)
			signed, err := botsig.SignHTTPRequest(cur, c.signer, c.headers...)
			if err != nil {
				return nil, err
			}
			hop.Signed = signed
		} else {
			cur.Header.Set(botsig.UserAgentHeader, botsig.UserAgent)
		}

		c.logger.Debug("sending request",
			zap.String("method", hop.Method),
			zap.String("url", hop.URL),
			zap.Bool("signed", hop.Signed != nil),
			zap.Int("hop", len(hops)))

		resp, err := c.httpClient.Do(cur)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, hop.Method, hop.URL, err)
		}
		hop.Status = resp.StatusCode
		hops = append(hops, hop)

		location := resp.Header.Get("Location")
		if !isRedirect(resp.StatusCode) || location == "" {
			return &Response{Response: resp, Hops: hops}, nil
		}
		discard(resp)

		if len(hops) > c.maxRedirects {
			return nil, fmt.Errorf("%w: stopped after %d redirects", ErrTooManyRedirects, c.maxRedirects)
		}

		next, err := cur.URL.Parse(location)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid Location %q: %w", botsig.ErrInvalidURL, location, err)
		}
		c.logger.Debug("following redirect",
			zap.Int("status", resp.StatusCode),
			zap.String("location", next.String()))

		cur, err = redirectRequest(ctx, cur, resp.StatusCode, next)
		if err != nil {
			return nil, err
		}
	}
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func redirectRequest(ctx context.Context, prev *http.Request, status int, next *url.URL) (*http.Request, error) {
	method := prev.Method
	var body io.ReadCloser
	if status == http.StatusSeeOther && method != http.MethodHead {
		method = http.MethodGet
	} else if prev.GetBody != nil {
		var err error
		if body, err = prev.GetBody(); err != nil {
			return nil, fmt.Errorf("failed to rewind request body: %w", err)
		}
	} else if prev.Body != nil && prev.Body != http.NoBody {
		return nil, fmt.Errorf("cannot follow %d redirect: request body cannot be replayed", status)
	}

	req, err := http.NewRequestWithContext(ctx, method, next.String(), body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", botsig.ErrInvalidURL, err)
	}
	req.Header = prev.Header.Clone()
	if method != prev.Method {
		req.Header.Del("Content-Type")
		req.Header.Del("Content-Length")
	}
	if prev.GetBody != nil && body != nil {
		req.GetBody = prev.GetBody
		req.ContentLength = prev.ContentLength
	}
	if next.Hostname() != prev.URL.Hostname() {
		req.Header.Del("Authorization")
		req.Header.Del("Cookie")
	}
	return req, nil
}

// rootPath sets an empty path to "/", the target net/http puts on the
// request line, so the signed "@path" matches what the origin sees.
func rootPath(u *url.URL) {
	if u.Path == "" && u.Opaque == "" {
		u.Path = "/"
	}
}

func stripSignature(hdr http.Header) {
	hdr.Del(botsig.SignatureInputHeader)
	hdr.Del(botsig.SignatureHeader)
	hdr.Del(botsig.SignatureAgentHeader)
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
