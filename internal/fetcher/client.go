package fetcher

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/proxy"

	"github.com/nao1215/webcrawl/internal/model"
)

// Default client settings.
const (
	DefaultUserAgent   = "webcrawl/1.0"
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB
)

// Response is a successful HTML response.
type Response struct {
	// StatusCode is the HTTP status code (always 2xx).
	StatusCode int

	// ContentType is the raw Content-Type header.
	ContentType string

	// Body is the response body, truncated to the client's max body size.
	Body []byte
}

// HeaderProvider supplies extra request headers for a host.
// It may return nil when nothing is configured for the host.
type HeaderProvider interface {
	HeadersFor(host string) http.Header
}

// Client fetches pages over HTTP.
type Client struct {
	httpClient   *http.Client
	userAgent    string
	maxBodySize  int64
	proxyAddress string
	headers      HeaderProvider
}

// Option configures a Client.
type Option func(*Client)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithMaxBodySize sets the maximum response body size. Non-positive values
// keep the default.
func WithMaxBodySize(size int64) Option {
	return func(c *Client) {
		if size > 0 {
			c.maxBodySize = size
		}
	}
}

// WithHeaderProvider injects per-host headers into every request.
func WithHeaderProvider(p HeaderProvider) Option {
	return func(c *Client) {
		c.headers = p
	}
}

// WithSOCKS5Proxy routes all connections through a SOCKS5 proxy at
// "host:port".
func WithSOCKS5Proxy(address string) Option {
	return func(c *Client) {
		c.proxyAddress = address
	}
}

// WithHTTPClient replaces the underlying HTTP client. The header provider
// and proxy options are ignored when a custom client is supplied. The
// client is copied and its redirect policy replaced.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a Client.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		hc, err := c.newHTTPClient()
		if err != nil {
			return nil, err
		}
		c.httpClient = hc
	} else {
		hc := *c.httpClient
		hc.CheckRedirect = stopRedirects
		c.httpClient = &hc
	}

	return c, nil
}

// newHTTPClient builds the default client. There is no client-level timeout:
// every Fetch call carries its own deadline.
func (c *Client) newHTTPClient() (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // DefaultTransport is always *http.Transport
	transport.MaxIdleConnsPerHost = 16

	if c.proxyAddress != "" {
		if _, _, err := net.SplitHostPort(c.proxyAddress); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidProxyAddress, c.proxyAddress)
		}
		dialer, err := proxy.SOCKS5("tcp", c.proxyAddress, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		contextDialer, ok := dialer.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("SOCKS5 dialer for %s does not support contexts", c.proxyAddress)
		}
		transport.Proxy = nil
		transport.DialContext = contextDialer.DialContext
	}

	var rt http.RoundTripper = transport
	if c.headers != nil {
		rt = &headerInjectingTransport{base: transport, provider: c.headers}
	}

	return &http.Client{
		Transport:     rt,
		CheckRedirect: stopRedirects,
	}, nil
}

// Fetch GETs rawURL. The timeout bounds the request and the body read;
// zero means the caller's context alone bounds it.
//
// A failure is returned as *Error, except when ctx itself was cancelled,
// in which case ctx.Err() is returned so callers can tell an abandoned run
// from a slow server.
func (c *Client) Fetch(ctx context.Context, rawURL string, timeout time.Duration) (*Response, error) {
	reqCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{Kind: model.FailureConnection, URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, classify(rawURL, err)
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")

	if isRedirect(resp.StatusCode) {
		if location, err := resp.Location(); err == nil {
			return nil, &Redirect{URL: rawURL, Location: location.String(), StatusCode: resp.StatusCode}
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			Kind:       model.FailureHTTP,
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	if !model.IsHTMLContentType(contentType) {
		return nil, &Error{
			Kind:       model.FailureNonHTML,
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %q", ErrNonHTMLContent, contentType),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, classify(rawURL, err)
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        body,
	}, nil
}

// isRedirect reports whether status asks the client to go elsewhere.
func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}

// stopRedirects makes the HTTP client hand every 3xx back to Fetch.
func stopRedirects(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

// UserAgent returns the User-Agent sent with every request.
func (c *Client) UserAgent() string {
	return c.userAgent
}

// HTTPClient returns the underlying HTTP client so that the robots.txt gate
// shares the same transport and proxy. The client does not follow redirects.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}
