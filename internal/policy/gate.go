package policy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/sync/singleflight"
)

// Default gate settings.
const (
	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "webcrawl"

	// maxRobotsSize caps the robots.txt body. Google applies a 500KiB limit.
	maxRobotsSize = 500 * 1024

	// maxRobotsRedirects is the number of redirect hops followed for
	// robots.txt (RFC 9309 section 2.3.1.2).
	maxRobotsRedirects = 5
)

// Gate answers robots.txt allow/deny questions with a per-origin cache.
type Gate struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
	disabled  bool
	logger    *slog.Logger

	// groups maps an origin to its matched group. A nil group means
	// allow-all (no robots.txt or a failed fetch). Written once per origin.
	mu     sync.RWMutex
	groups map[string]*robotstxt.Group

	flight  singleflight.Group
	fetches atomic.Int64
}

// Option configures a Gate.
type Option func(*Gate)

// WithHTTPClient sets the client used to fetch robots.txt. The client is
// copied so that robots.txt redirects are followed even when the page
// fetcher's client does not follow them.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gate) {
		if c != nil {
			hc := *c
			hc.CheckRedirect = followRobotsRedirects
			g.client = &hc
		}
	}
}

// followRobotsRedirects follows up to maxRobotsRedirects hops.
func followRobotsRedirects(_ *http.Request, via []*http.Request) error {
	if len(via) > maxRobotsRedirects {
		return fmt.Errorf("stopped after %d robots.txt redirects", maxRobotsRedirects)
	}
	return nil
}

// WithUserAgent sets the agent matched against robots.txt groups and sent
// with the robots.txt request.
func WithUserAgent(ua string) Option {
	return func(g *Gate) {
		if ua != "" {
			g.userAgent = ua
		}
	}
}

// WithTimeout bounds each robots.txt fetch.
func WithTimeout(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithDisabled turns the gate into an allow-all gate that never fetches.
func WithDisabled(disabled bool) Option {
	return func(g *Gate) {
		g.disabled = disabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGate creates a Gate.
func NewGate(opts ...Option) *Gate {
	g := &Gate{
		client:    http.DefaultClient,
		userAgent: DefaultUserAgent,
		timeout:   DefaultTimeout,
		logger:    slog.Default(),
		groups:    make(map[string]*robotstxt.Group),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Allowed reports whether rawURL may be fetched. Unparseable and non-HTTP
// URLs are denied. If ctx is cancelled while waiting for the origin's
// robots.txt, the URL is denied.
func (g *Gate) Allowed(ctx context.Context, rawURL string) bool {
	u, ok := parseTarget(rawURL)
	if !ok {
		return false
	}
	if g.disabled {
		return true
	}

	group, err := g.groupFor(ctx, u)
	if err != nil {
		return false
	}
	if group == nil {
		return true
	}

	return group.Test(robotsPath(u))
}

// CrawlDelay returns the Crawl-delay of the group matching the crawler for
// rawURL's origin, or zero when none applies.
func (g *Gate) CrawlDelay(ctx context.Context, rawURL string) time.Duration {
	if g.disabled {
		return 0
	}
	u, ok := parseTarget(rawURL)
	if !ok {
		return 0
	}

	group, err := g.groupFor(ctx, u)
	if err != nil || group == nil {
		return 0
	}
	return group.CrawlDelay
}

// Fetches returns the number of robots.txt requests issued.
func (g *Gate) Fetches() int64 {
	return g.fetches.Load()
}

// Origins returns the number of origins with a cached decision.
func (g *Gate) Origins() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.groups)
}

// groupFor returns the cached group for u's origin, fetching it on first use.
// The fetch is detached from ctx so that one caller's cancellation does not
// fail the lookup for every other waiter.
func (g *Gate) groupFor(ctx context.Context, u *url.URL) (*robotstxt.Group, error) {
	origin := originOf(u)

	if group, ok := g.cached(origin); ok {
		return group, nil
	}

	ch := g.flight.DoChan(origin, func() (any, error) {
		if group, ok := g.cached(origin); ok {
			return group, nil
		}

		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
		defer cancel()

		group := g.fetch(fetchCtx, origin)

		g.mu.Lock()
		g.groups[origin] = group
		g.mu.Unlock()

		return group, nil
	})

	select {
	case res := <-ch:
		group, _ := res.Val.(*robotstxt.Group)
		return group, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *Gate) cached(origin string) (*robotstxt.Group, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	group, ok := g.groups[origin]
	return group, ok
}

// fetch downloads and parses robots.txt. Every failure yields nil (allow-all).
func (g *Gate) fetch(ctx context.Context, origin string) *robotstxt.Group {
	g.fetches.Add(1)
	robotsURL := origin + "/robots.txt"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		g.logger.Warn("invalid robots.txt request", "url", robotsURL, "error", err)
		return nil
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Warn("robots.txt fetch failed, allowing all", "origin", origin, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		g.logger.Debug("no robots.txt, allowing all", "origin", origin)
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		g.logger.Warn("robots.txt returned non-2xx, allowing all",
			"origin", origin, "status", resp.StatusCode)
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsSize))
	if err != nil {
		g.logger.Warn("robots.txt read failed, allowing all", "origin", origin, "error", err)
		return nil
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		g.logger.Warn("robots.txt parse failed, allowing all", "origin", origin, "error", err)
		return nil
	}

	group := data.FindGroup(g.userAgent)
	g.logger.Debug("robots.txt loaded", "origin", origin, "crawl_delay", group.CrawlDelay)
	return group
}

func parseTarget(rawURL string) (*url.URL, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, false
	}
	if u.Host == "" {
		return nil, false
	}
	return u, true
}

func originOf(u *url.URL) string {
	return fmt.Sprintf("%s://%s", strings.ToLower(u.Scheme), strings.ToLower(u.Host))
}

// robotsPath returns the path and query matched against robots rules.
func robotsPath(u *url.URL) string {
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return path
}
