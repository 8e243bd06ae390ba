package crawler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/webcrawl/internal/fetcher"
	"github.com/nao1215/webcrawl/internal/metrics"
	"github.com/nao1215/webcrawl/internal/model"
)

// Default spider settings.
const (
	DefaultMaxDepth    = 2
	DefaultMaxPages    = 100
	DefaultConcurrency = 8
	DefaultTimeout     = 15 * time.Second
)

// Fetcher retrieves a page. It is satisfied by *fetcher.Client.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, timeout time.Duration) (*fetcher.Response, error)
}

// PolicyGate decides whether a URL may be fetched. It is satisfied by
// *policy.Gate.
type PolicyGate interface {
	Allowed(ctx context.Context, rawURL string) bool
	CrawlDelay(ctx context.Context, rawURL string) time.Duration
}

// PageStore persists pages with insert-if-absent semantics. Storing a URL
// that is already present returns (false, nil).
type PageStore interface {
	Store(ctx context.Context, page *model.Page) (inserted bool, err error)
}

// allowAll is the PolicyGate used when none is configured.
type allowAll struct{}

func (allowAll) Allowed(context.Context, string) bool             { return true }
func (allowAll) CrawlDelay(context.Context, string) time.Duration { return 0 }

// Spider crawls the web breadth-first from a seed URL.
//
// Design decision: We call it "Spider" rather than "Crawler" because:
//  1. "Spider" is the traditional term for web crawlers
//  2. Distinguishes the component from the package name
//  3. Clearer in code: crawler.NewSpider() vs crawler.NewCrawler()
//
// A Spider holds configuration only; every Run gets its own frontier,
// budget and statistics, so one Spider may run several crawls.
type Spider struct {
	fetcher Fetcher
	store   PageStore
	policy  PolicyGate

	// maxDepth is the remaining depth given to the seed.
	// 0 means only the seed, 1 means the seed and its links, etc.
	maxDepth int

	// maxPages caps the number of pages one run hands to the store.
	// Pages the store already held count as well.
	maxPages int

	// concurrency is the number of workers.
	concurrency int

	// timeout bounds each fetch attempt.
	timeout time.Duration

	// sameHost restricts the crawl to the seed's host.
	sameHost bool

	// ignorePatterns are URL path patterns to skip.
	// Patterns use glob syntax (e.g., "/admin/*", "*.pdf").
	ignorePatterns []string

	// followPatterns, when set, restrict the crawl to matching paths.
	followPatterns []string

	// siteRules supplies per-host patterns and delays.
	siteRules SiteRulesProvider

	// crawlDelay is the minimum spacing between requests to one host.
	crawlDelay time.Duration

	// respectCrawlDelay applies robots.txt Crawl-delay when longer.
	respectCrawlDelay bool

	retry   RetryPolicy
	metrics *metrics.Collector
	logger  *slog.Logger
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the maximum crawl depth.
// 0 = only the seed page, 1 = seed page plus linked pages, etc.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		s.maxDepth = depth
	}
}

// WithMaxPages sets the maximum number of pages a run accepts into the
// store, newly inserted or already present.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = maxPages
	}
}

// WithConcurrency sets the number of workers.
func WithConcurrency(n int) SpiderOption {
	return func(s *Spider) {
		s.concurrency = n
	}
}

// WithTimeout sets the per-fetch timeout.
func WithTimeout(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.timeout = d
	}
}

// WithPolicy sets the robots.txt gate. Without one, every URL is allowed.
func WithPolicy(p PolicyGate) SpiderOption {
	return func(s *Spider) {
		if p != nil {
			s.policy = p
		}
	}
}

// WithSameHost restricts the crawl to the seed's host.
func WithSameHost(sameHost bool) SpiderOption {
	return func(s *Spider) {
		s.sameHost = sameHost
	}
}

// WithIgnorePatterns sets URL path patterns to skip during crawling.
// Patterns use glob syntax (e.g., "/admin/*", "*.pdf", "/logout*").
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns sets URL path patterns to follow during crawling.
// If set, only links matching at least one pattern are crawled.
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.followPatterns = patterns
	}
}

// WithSiteRules sets per-host crawl rules.
func WithSiteRules(p SiteRulesProvider) SpiderOption {
	return func(s *Spider) {
		s.siteRules = p
	}
}

// WithCrawlDelay spaces requests to the same host by at least d.
func WithCrawlDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.crawlDelay = d
	}
}

// WithRespectCrawlDelay applies the robots.txt Crawl-delay of each host
// when it is longer than the configured delay.
func WithRespectCrawlDelay(respect bool) SpiderOption {
	return func(s *Spider) {
		s.respectCrawlDelay = respect
	}
}

// WithRetryPolicy sets the retry policy for failed fetches.
func WithRetryPolicy(p RetryPolicy) SpiderOption {
	return func(s *Spider) {
		if p != nil {
			s.retry = p
		}
	}
}

// WithMetrics records crawl metrics into c.
func WithMetrics(c *metrics.Collector) SpiderOption {
	return func(s *Spider) {
		s.metrics = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSpider creates a Spider that fetches with f and persists into store.
func NewSpider(f Fetcher, store PageStore, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher:     f,
		store:       store,
		policy:      allowAll{},
		maxDepth:    DefaultMaxDepth,
		maxPages:    DefaultMaxPages,
		concurrency: DefaultConcurrency,
		timeout:     DefaultTimeout,
		retry:       NoRetry{},
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Run crawls from seed until the frontier drains, the page budget is
// reached or ctx is done.
//
// An invalid configuration aborts the run before any fetch and returns an
// error wrapping ErrInvalidConfig. Every other outcome is a completed run:
// the returned error is nil and Summary.StopReason tells why it stopped.
// Fetch, store and extraction failures are counted, never returned.
func (s *Spider) Run(ctx context.Context, seed string) (*model.Summary, error) {
	summary := model.NewSummary(seed)
	summary.MaxDepth = s.maxDepth
	summary.MaxPages = s.maxPages
	summary.Concurrency = s.concurrency

	seedURL, err := s.validate(seed)
	if err != nil {
		summary.State = model.StateAborted
		summary.Error = err.Error()
		return summary, err
	}

	r := &run{
		spider:   s,
		summary:  summary,
		frontier: NewFrontier(),
		budget:   NewBudget(s.maxPages),
		pacer:    newPacer(s.crawlDelay, s.respectCrawlDelay, s.policy, s.siteRules),
		filter: &linkFilter{
			seedHost:       seedURL.Host,
			sameHost:       s.sameHost,
			ignorePatterns: s.ignorePatterns,
			followPatterns: s.followPatterns,
			rules:          s.siteRules,
		},
	}

	summary.State = model.StateRunning
	summary.StartedAt = time.Now()
	s.logger.Info("crawl started",
		"seed", seedURL.String(),
		"max_depth", s.maxDepth,
		"max_pages", s.maxPages,
		"concurrency", s.concurrency)

	stop := context.AfterFunc(ctx, r.frontier.Close)
	defer stop()

	r.frontier.Offer(seedURL.String(), s.maxDepth)

	var g errgroup.Group
	for range s.concurrency {
		g.Go(func() error {
			r.work(ctx)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers never return an error

	summary.FinishedAt = time.Now()
	summary.State = model.StateCompleted
	summary.URLsDiscovered = r.frontier.Seen()
	switch {
	case r.budget.Exhausted():
		summary.StopReason = model.StopBudget
	case ctx.Err() != nil:
		summary.StopReason = model.StopCancelled
	default:
		summary.StopReason = model.StopDrained
	}

	s.logger.Info("crawl finished",
		"stop_reason", summary.StopReason,
		"pages_stored", summary.PagesStored,
		"elapsed", summary.Elapsed())

	return summary, nil
}

// validate checks the configuration and returns the seed without fragment.
func (s *Spider) validate(seed string) (*url.URL, error) {
	if s.fetcher == nil {
		return nil, configError(ErrNoFetcher, "")
	}
	if s.store == nil {
		return nil, configError(ErrNoStore, "")
	}

	u, err := url.Parse(seed)
	if err != nil {
		return nil, configError(ErrInvalidSeed, err.Error())
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, configError(ErrInvalidSeed, seed)
	}
	u.Fragment = ""
	u.RawFragment = ""

	if s.maxDepth < 0 {
		return nil, configError(ErrInvalidMaxDepth, fmt.Sprintf("got %d", s.maxDepth))
	}
	if s.maxPages < 1 {
		return nil, configError(ErrInvalidMaxPages, fmt.Sprintf("got %d", s.maxPages))
	}
	if s.concurrency < 1 {
		return nil, configError(ErrInvalidConcurrency, fmt.Sprintf("got %d", s.concurrency))
	}
	if s.timeout <= 0 {
		return nil, configError(ErrInvalidTimeout, fmt.Sprintf("got %v", s.timeout))
	}

	return u, nil
}

// run is the state of one crawl.
type run struct {
	spider   *Spider
	frontier *Frontier
	budget   *Budget
	pacer    *pacer
	filter   *linkFilter

	mu      sync.Mutex
	summary *model.Summary
}

// work is the worker loop.
func (r *run) work(ctx context.Context) {
	for {
		unit, ok := r.frontier.Take()
		if !ok {
			return
		}
		r.process(ctx, unit)
		r.frontier.Done()
	}
}

// process handles one unit: policy, fetch, store and link discovery.
func (r *run) process(ctx context.Context, unit model.CrawlUnit) {
	s := r.spider
	logger := s.logger.With("url", unit.URL, "depth", unit.Depth)

	if unit.Depth < 0 {
		r.update(func(sum *model.Summary) { sum.DepthDropped++ })
		s.metrics.Dropped(metrics.DropDepth)
		return
	}
	if r.budget.Full() {
		r.update(func(sum *model.Summary) { sum.BudgetDropped++ })
		s.metrics.Dropped(metrics.DropBudget)
		return
	}

	if !s.policy.Allowed(ctx, unit.URL) {
		if ctx.Err() != nil {
			return
		}
		logger.Debug("disallowed by robots.txt")
		r.update(func(sum *model.Summary) { sum.PolicySkipped++ })
		s.metrics.PolicySkipped()
		return
	}

	if err := r.pacer.Wait(ctx, unit.URL); err != nil {
		return
	}

	resp, err := r.fetch(ctx, unit.URL)
	if redirect, ok := fetcher.RedirectOf(err); ok {
		r.follow(unit, redirect, logger)
		return
	}
	if err != nil {
		kind, ok := fetcher.KindOf(err)
		if !ok {
			// The run was cancelled mid-fetch.
			return
		}
		if kind == model.FailureNonHTML {
			logger.Debug("skipped non-HTML content", "error", err)
		} else {
			logger.Warn("fetch failed", "kind", kind, "error", err)
		}
		r.update(func(sum *model.Summary) { sum.FetchFailures[kind]++ })
		s.metrics.FetchFailed(kind)
		return
	}

	if ctx.Err() != nil {
		return
	}
	if !r.budget.Reserve() {
		r.update(func(sum *model.Summary) { sum.BudgetDropped++ })
		s.metrics.Dropped(metrics.DropBudget)
		return
	}

	page := model.NewPage(unit.URL, resp.Body, resp.StatusCode, resp.ContentType, time.Now())
	inserted, err := s.store.Store(ctx, page)
	if err != nil {
		r.budget.Release()
		if ctx.Err() != nil {
			return
		}
		logger.Warn("failed to store page", "error", err)
		r.update(func(sum *model.Summary) { sum.StoreFailures++ })
		s.metrics.StoreFailed()
		return
	}

	// A page already present from an earlier run still takes its slot.
	emitted := r.budget.Commit()
	if inserted {
		r.update(func(sum *model.Summary) { sum.PagesStored++ })
		s.metrics.PageStored()
		logger.Debug("page stored", "size", page.Size())
	} else {
		r.update(func(sum *model.Summary) { sum.DuplicateStores++ })
		s.metrics.DuplicateStore()
		logger.Debug("page already stored")
	}
	if emitted >= r.budget.Max() {
		logger.Info("page budget reached", "max_pages", r.budget.Max())
		r.frontier.Close()
		return
	}

	if unit.Depth-1 < 0 {
		return
	}
	r.discover(unit, resp)
}

// fetch performs the fetch, retrying according to the retry policy.
func (r *run) fetch(ctx context.Context, rawURL string) (*fetcher.Response, error) {
	s := r.spider
	for attempt := 1; ; attempt++ {
		start := time.Now()
		resp, err := s.fetcher.Fetch(ctx, rawURL, s.timeout)
		s.metrics.ObserveFetch(time.Since(start))
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		delay, retry := s.retry.Next(attempt, err)
		if !retry {
			return nil, err
		}
		s.logger.Debug("retrying fetch", "url", rawURL, "attempt", attempt, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// follow offers the target of a redirect at the unit's own depth. The
// target passes the link filters here and the policy check when taken,
// exactly like a discovered link.
func (r *run) follow(unit model.CrawlUnit, redirect *fetcher.Redirect, logger *slog.Logger) {
	r.update(func(sum *model.Summary) { sum.Redirects++ })
	r.spider.metrics.Redirected()

	base, err := url.Parse(unit.URL)
	if err != nil {
		return
	}
	target, ok := resolveURL(base, redirect.Location)
	if !ok || !r.filter.allow(target) {
		logger.Debug("redirect target filtered", "location", redirect.Location)
		r.update(func(sum *model.Summary) { sum.FilterSkipped++ })
		r.spider.metrics.Dropped(metrics.DropFilter)
		return
	}

	logger.Debug("following redirect", "status", redirect.StatusCode, "location", target)
	r.frontier.Offer(target, unit.Depth)
}

// discover extracts links from the fetched page and offers them at the
// child depth.
func (r *run) discover(unit model.CrawlUnit, resp *fetcher.Response) {
	parser, err := NewParser(unit.URL)
	if err != nil {
		return
	}

	filtered := 0
	for link := range parser.Links(bytes.NewReader(resp.Body)) {
		if !r.filter.allow(link) {
			filtered++
			continue
		}
		child := unit.Child(link)
		r.frontier.Offer(child.URL, child.Depth)
	}

	if filtered > 0 {
		r.update(func(sum *model.Summary) { sum.FilterSkipped += filtered })
		for range filtered {
			r.spider.metrics.Dropped(metrics.DropFilter)
		}
	}

	if err := parser.Err(); err != nil {
		r.spider.logger.Warn("link extraction stopped early", "url", unit.URL, "error", err)
		r.update(func(sum *model.Summary) { sum.ExtractionErrors++ })
	}
}

// update mutates the run summary under the run lock.
func (r *run) update(fn func(*model.Summary)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.summary)
}
