package config

import (
	"net/http"
	"strings"
	"time"
)

// SiteConfig holds settings for a single host.
type SiteConfig struct {
	// Cookie is an HTTP cookie to send to this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers sent to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// IgnorePatterns are URL path globs to skip.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns are URL path globs to follow.
	// If specified, only paths matching one of them are crawled.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`

	// CrawlDelay is the minimum interval between requests to this site.
	CrawlDelay time.Duration `yaml:"crawlDelay,omitempty"`
}

// File represents the structure of the .webcrawl configuration file.
type File struct {
	// Sites maps host names (optionally with port) to their settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to every site unless overridden.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// NewFile returns an empty File.
func NewFile() *File {
	return &File{Sites: make(map[string]SiteConfig)}
}

// GetSiteConfig returns the configuration for a host merged over the defaults.
// The host is matched exactly first, then without its port.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults

	siteConfig, ok := cf.Sites[strings.ToLower(host)]
	if !ok {
		if i := strings.LastIndex(host, ":"); i > 0 {
			siteConfig, ok = cf.Sites[strings.ToLower(host[:i])]
		}
	}
	if !ok {
		return result
	}

	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if len(siteConfig.Headers) > 0 {
		merged := make(map[string]string, len(result.Headers)+len(siteConfig.Headers))
		for k, v := range result.Headers {
			merged[k] = v
		}
		for k, v := range siteConfig.Headers {
			merged[k] = v
		}
		result.Headers = merged
	}
	if len(siteConfig.IgnorePatterns) > 0 {
		result.IgnorePatterns = siteConfig.IgnorePatterns
	}
	if len(siteConfig.FollowPatterns) > 0 {
		result.FollowPatterns = siteConfig.FollowPatterns
	}
	if siteConfig.CrawlDelay > 0 {
		result.CrawlDelay = siteConfig.CrawlDelay
	}

	return result
}

// HeadersFor returns the extra request headers configured for a host,
// including the Cookie header. It returns nil when nothing is configured.
func (cf *File) HeadersFor(host string) http.Header {
	sc := cf.GetSiteConfig(host)
	if len(sc.Headers) == 0 && sc.Cookie == "" {
		return nil
	}

	h := make(http.Header, len(sc.Headers)+1)
	for k, v := range sc.Headers {
		h.Set(k, v)
	}
	if sc.Cookie != "" {
		h.Set("Cookie", sc.Cookie)
	}
	return h
}
