package crawler

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// pacer spaces requests to the same host. A host whose effective delay is
// zero is never paced.
type pacer struct {
	delay             time.Duration
	respectCrawlDelay bool
	policy            PolicyGate
	rules             SiteRulesProvider

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newPacer(delay time.Duration, respectCrawlDelay bool, policy PolicyGate, rules SiteRulesProvider) *pacer {
	return &pacer{
		delay:             delay,
		respectCrawlDelay: respectCrawlDelay,
		policy:            policy,
		rules:             rules,
		limiters:          make(map[string]*rate.Limiter),
	}
}

// enabled reports whether any pacing source is configured.
func (p *pacer) enabled() bool {
	return p.delay > 0 || p.respectCrawlDelay || p.rules != nil
}

// Wait blocks until a request to rawURL's host is permitted or ctx ends.
func (p *pacer) Wait(ctx context.Context, rawURL string) error {
	if !p.enabled() {
		return nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}

	limiter := p.limiter(ctx, u)
	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}

// limiter returns the host's limiter, creating it on first use.
// A nil limiter is cached for unpaced hosts.
func (p *pacer) limiter(ctx context.Context, u *url.URL) *rate.Limiter {
	host := strings.ToLower(u.Host)

	p.mu.Lock()
	limiter, ok := p.limiters[host]
	p.mu.Unlock()
	if ok {
		return limiter
	}

	delay := p.delayFor(ctx, u)
	if delay > 0 {
		limiter = rate.NewLimiter(rate.Every(delay), 1)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.limiters[host]; ok {
		return existing
	}
	p.limiters[host] = limiter
	return limiter
}

// delayFor picks the effective delay: the site rule overrides the spider
// delay, and a longer robots.txt Crawl-delay wins when respected.
func (p *pacer) delayFor(ctx context.Context, u *url.URL) time.Duration {
	delay := p.delay
	if p.rules != nil {
		if site := p.rules.RulesFor(u.Host); site.CrawlDelay > 0 {
			delay = site.CrawlDelay
		}
	}
	if p.respectCrawlDelay && p.policy != nil {
		if robotsDelay := p.policy.CrawlDelay(ctx, u.String()); robotsDelay > delay {
			delay = robotsDelay
		}
	}
	return delay
}
