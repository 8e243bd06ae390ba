package crawler

import (
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

// SiteRules are per-host crawl rules, typically loaded from the site
// configuration file.
type SiteRules struct {
	// IgnorePatterns are added to the spider-wide ignore patterns.
	IgnorePatterns []string

	// FollowPatterns replace the spider-wide follow patterns when set.
	FollowPatterns []string

	// CrawlDelay overrides the spider-wide pacing delay when positive.
	CrawlDelay time.Duration
}

// SiteRulesProvider returns the rules for a host ("example.com:8080").
type SiteRulesProvider interface {
	RulesFor(host string) SiteRules
}

// SiteRulesFunc adapts a function to SiteRulesProvider.
type SiteRulesFunc func(host string) SiteRules

// RulesFor implements SiteRulesProvider.
func (f SiteRulesFunc) RulesFor(host string) SiteRules {
	return f(host)
}

// linkFilter decides which discovered links are offered to the frontier.
type linkFilter struct {
	seedHost       string
	sameHost       bool
	ignorePatterns []string
	followPatterns []string
	rules          SiteRulesProvider
}

// allow reports whether link passes the host restriction and the
// ignore/follow patterns.
func (lf *linkFilter) allow(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	if lf.sameHost && !isSameHost(lf.seedHost, u) {
		return false
	}

	ignore := lf.ignorePatterns
	follow := lf.followPatterns
	if lf.rules != nil {
		site := lf.rules.RulesFor(u.Host)
		if len(site.IgnorePatterns) > 0 {
			ignore = append(append([]string{}, ignore...), site.IgnorePatterns...)
		}
		if len(site.FollowPatterns) > 0 {
			follow = site.FollowPatterns
		}
	}

	return shouldCrawl(u.Path, ignore, follow)
}

// isSameHost compares hosts case-insensitively, port included.
func isSameHost(seedHost string, u *url.URL) bool {
	return strings.EqualFold(u.Host, seedHost)
}

// shouldCrawl checks a path against ignore and follow patterns.
//
// Logic:
//  1. If the path matches any ignore pattern, skip it
//  2. If follow patterns are set and the path matches none, skip it
//  3. Otherwise, crawl it
func shouldCrawl(path string, ignorePatterns, followPatterns []string) bool {
	if path == "" {
		path = "/"
	}

	for _, pattern := range ignorePatterns {
		if matchPattern(pattern, path) {
			return false
		}
	}

	if len(followPatterns) == 0 {
		return true
	}
	for _, pattern := range followPatterns {
		if matchPattern(pattern, path) {
			return true
		}
	}
	return false
}

// matchPattern checks if a path matches a glob pattern.
// Patterns can use:
//   - * to match any sequence of non-separator characters
//   - ? to match any single character
//   - a trailing /* to match everything below a prefix
//
// Examples:
//   - "/admin/*" matches "/admin/dashboard", "/admin/users/edit"
//   - "*.pdf" matches "/docs/file.pdf"
//   - "/api/v?" matches "/api/v1", "/api/v2"
func matchPattern(pattern, path string) bool {
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(path, prefix+"/") || path == prefix {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") {
		ext := strings.TrimPrefix(pattern, "*")
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	matched, err := filepath.Match(pattern, path)
	if err != nil {
		return false
	}
	if matched {
		return true
	}

	// Bare patterns such as "*draft*" apply to the last segment.
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		matched, err := filepath.Match(pattern, filepath.Base(path))
		if err == nil && matched {
			return true
		}
	}

	return false
}
