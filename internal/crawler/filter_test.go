package crawler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nao1215/webcrawl/internal/fetcher"
	"github.com/nao1215/webcrawl/internal/model"
)

// TestMatchPattern tests glob pattern matching.
func TestMatchPattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pattern string
		path    string
		want    bool
	}{
		{"admin prefix match", "/admin/*", "/admin/dashboard", true},
		{"admin prefix exact", "/admin/*", "/admin", true},
		{"admin prefix no match", "/admin/*", "/user/profile", false},
		{"admin prefix partial no match", "/admin/*", "/administrator", false},
		{"nested admin", "/admin/*", "/admin/users/edit", true},

		{"pdf extension", "*.pdf", "/docs/file.pdf", true},
		{"pdf extension nested", "*.pdf", "/a/b/c/report.pdf", true},
		{"pdf extension no match", "*.pdf", "/docs/file.txt", false},

		{"exact match", "/logout", "/logout", true},
		{"exact no match", "/logout", "/login", false},

		{"wildcard middle", "/api/v?/users", "/api/v1/users", true},
		{"wildcard middle no match", "/api/v?/users", "/api/v10/users", false},

		{"bare wildcard on last segment", "*draft*", "/posts/my-draft-1", true},
		{"root path", "/", "/", true},
		{"root no match prefix", "/admin/*", "/", false},
		{"malformed pattern", "[", "/[", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := matchPattern(tt.pattern, tt.path); got != tt.want {
				t.Errorf("matchPattern(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
			}
		})
	}
}

// TestShouldCrawl tests path filtering based on patterns.
func TestShouldCrawl(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		path   string
		ignore []string
		follow []string
		want   bool
	}{
		{"no patterns allows all", "/any/path", nil, nil, true},
		{"empty path is root", "", []string{"/"}, nil, false},
		{"ignore blocks", "/admin/x", []string{"/admin/*"}, nil, false},
		{"ignore extension", "/f.pdf", []string{"*.pdf"}, nil, false},
		{"follow allows match", "/blog/post", nil, []string{"/blog/*"}, true},
		{"follow blocks others", "/shop", nil, []string{"/blog/*"}, false},
		{"ignore wins over follow", "/blog/draft.pdf", []string{"*.pdf"}, []string{"/blog/*"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := shouldCrawl(tt.path, tt.ignore, tt.follow); got != tt.want {
				t.Errorf("shouldCrawl(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestLinkFilter(t *testing.T) {
	t.Parallel()

	rules := SiteRulesFunc(func(host string) SiteRules {
		if host == "blog.example.com" {
			return SiteRules{
				IgnorePatterns: []string{"/tag/*"},
				FollowPatterns: []string{"/posts/*", "/tag/*"},
			}
		}
		return SiteRules{}
	})

	t.Run("same host restriction", func(t *testing.T) {
		t.Parallel()

		lf := &linkFilter{seedHost: "Example.com", sameHost: true}
		if !lf.allow("http://example.com/a") {
			t.Error("same host should be allowed regardless of case")
		}
		if lf.allow("http://other.com/a") {
			t.Error("other host should be rejected")
		}
		if lf.allow("http://example.com:8080/a") {
			t.Error("different port is a different host")
		}
	})

	t.Run("site rules extend global patterns", func(t *testing.T) {
		t.Parallel()

		lf := &linkFilter{
			seedHost:       "example.com",
			ignorePatterns: []string{"*.pdf"},
			followPatterns: []string{"/docs/*"},
			rules:          rules,
		}

		tests := []struct {
			link string
			want bool
		}{
			{"http://example.com/docs/a", true},
			{"http://example.com/shop", false},
			{"http://blog.example.com/posts/1", true},
			{"http://blog.example.com/docs/a", false},
			{"http://blog.example.com/tag/go", false},
			{"http://blog.example.com/posts/1.pdf", false},
		}
		for _, tt := range tests {
			if got := lf.allow(tt.link); got != tt.want {
				t.Errorf("allow(%q) = %v, want %v", tt.link, got, tt.want)
			}
		}
	})
}

func TestFixedRetry(t *testing.T) {
	t.Parallel()

	policy := FixedRetry{Attempts: 2, Delay: 10 * time.Millisecond}

	tests := []struct {
		name    string
		attempt int
		err     error
		want    bool
	}{
		{"timeout retried", 1, &fetcher.Error{Kind: model.FailureTimeout}, true},
		{"connection retried", 2, &fetcher.Error{Kind: model.FailureConnection}, true},
		{"attempts exhausted", 3, &fetcher.Error{Kind: model.FailureTimeout}, false},
		{"server error retried", 1, &fetcher.Error{Kind: model.FailureHTTP, StatusCode: 502}, true},
		{"client error not retried", 1, &fetcher.Error{Kind: model.FailureHTTP, StatusCode: 404}, false},
		{"non html not retried", 1, &fetcher.Error{Kind: model.FailureNonHTML}, false},
		{"unclassified not retried", 1, errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			delay, retry := policy.Next(tt.attempt, tt.err)
			if retry != tt.want {
				t.Errorf("Next() retry = %v, want %v", retry, tt.want)
			}
			if retry && delay != policy.Delay {
				t.Errorf("expected delay %v, got %v", policy.Delay, delay)
			}
		})
	}

	if _, retry := (NoRetry{}).Next(1, &fetcher.Error{Kind: model.FailureTimeout}); retry {
		t.Error("NoRetry should never retry")
	}
}

type delayGate struct {
	delay time.Duration
}

func (g delayGate) Allowed(context.Context, string) bool { return true }

func (g delayGate) CrawlDelay(context.Context, string) time.Duration { return g.delay }

func TestPacerDelay(t *testing.T) {
	t.Parallel()

	rules := SiteRulesFunc(func(host string) SiteRules {
		if host == "slow.example.com" {
			return SiteRules{CrawlDelay: 3 * time.Second}
		}
		return SiteRules{}
	})

	tests := []struct {
		name    string
		pacer   *pacer
		url     string
		want    time.Duration
		enabled bool
	}{
		{"disabled", newPacer(0, false, delayGate{delay: time.Second}, nil), "http://a.example.com/", 0, false},
		{"fixed delay", newPacer(time.Second, false, nil, nil), "http://a.example.com/", time.Second, true},
		{"site rule overrides", newPacer(time.Second, false, nil, rules), "http://slow.example.com/", 3 * time.Second, true},
		{"robots delay when longer", newPacer(time.Second, true, delayGate{delay: 2 * time.Second}, nil), "http://a.example.com/", 2 * time.Second, true},
		{"robots delay when shorter", newPacer(time.Second, true, delayGate{delay: time.Millisecond}, nil), "http://a.example.com/", time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if tt.pacer.enabled() != tt.enabled {
				t.Errorf("enabled() = %v, want %v", tt.pacer.enabled(), tt.enabled)
			}
			if !tt.enabled {
				return
			}
			u := mustParse(t, tt.url)
			if got := tt.pacer.delayFor(context.Background(), u); got != tt.want {
				t.Errorf("delayFor() = %v, want %v", got, tt.want)
			}
		})
	}
}
