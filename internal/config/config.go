package config

import (
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultMaxDepth is the number of link hops followed from the seed.
	// Depth 0 fetches only the seed page.
	DefaultMaxDepth = 2

	// DefaultMaxPages caps the number of pages accepted in one run.
	// This prevents runaway crawling on large or infinitely-generating sites.
	DefaultMaxPages = 100

	// DefaultConcurrency is the number of workers pulling from the frontier.
	DefaultConcurrency = 8

	// DefaultTimeout bounds each individual fetch, body included.
	DefaultTimeout = 15 * time.Second

	// DefaultMaxBodySize limits the response body read per page.
	// 5MB is sufficient for most HTML pages while preventing memory exhaustion.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultRetryDelay is the pause between attempts when retries are enabled.
	DefaultRetryDelay = 1 * time.Second

	// DefaultUserAgent identifies webcrawl in HTTP requests and selects the
	// robots.txt group that applies to us.
	DefaultUserAgent = "webcrawl/1.0 (+https://github.com/nao1215/webcrawl)"

	// AppName is the application name used for XDG directory paths.
	AppName = "webcrawl"
)

// Store backend names accepted by Config.Store.
// Redis is selected with a redis:// or rediss:// URL instead of a name.
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Config holds all configuration options for a crawl run.
// It is populated from CLI flags and passed through the application via
// dependency injection rather than global state.
type Config struct {
	// Seed is the URL the crawl starts from.
	Seed string

	// MaxDepth is the maximum number of link hops from the seed.
	MaxDepth int

	// MaxPages is the maximum number of pages the run accepts into the
	// store, including pages stored by an earlier run.
	MaxPages int

	// Concurrency is the size of the worker pool.
	Concurrency int

	// Timeout bounds each fetch.
	Timeout time.Duration

	// RunTimeout bounds the whole run. Zero means no limit.
	RunTimeout time.Duration

	// Store selects the page store: "sqlite", "memory" or a redis:// URL.
	Store string

	// DBDir is the directory of the SQLite database.
	// Defaults to the XDG data directory (~/.local/share/webcrawl on Linux).
	DBDir string

	// UserAgent is sent with every request and used for robots.txt matching.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// IgnoreRobots disables the robots.txt policy gate.
	IgnoreRobots bool

	// SameHost restricts the crawl to the seed's host.
	SameHost bool

	// CrawlDelay is the minimum interval between requests to one origin.
	// Zero disables pacing.
	CrawlDelay time.Duration

	// RespectCrawlDelay paces requests using the robots.txt Crawl-delay
	// directive when it is longer than CrawlDelay.
	RespectCrawlDelay bool

	// Retries is the number of additional attempts for timeouts, connection
	// errors and 5xx responses. Zero disables retrying.
	Retries int

	// RetryDelay is the fixed pause between attempts.
	RetryDelay time.Duration

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	ProxyAddress string

	// ConfigFilePath is the path to the YAML configuration file.
	// If empty, .webcrawl is searched in the current and home directory.
	ConfigFilePath string

	// SiteConfigs holds the per-site settings loaded from the config file.
	SiteConfigs *File

	// JSONReport enables JSON summary output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown summary output. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the summary. Empty means stdout.
	ReportFile string

	// MetricsAddr is the listen address of the Prometheus endpoint.
	// Empty disables the endpoint.
	MetricsAddr string

	// Verbose enables debug logging.
	Verbose bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		MaxDepth:    DefaultMaxDepth,
		MaxPages:    DefaultMaxPages,
		Concurrency: DefaultConcurrency,
		Timeout:     DefaultTimeout,
		Store:       StoreSQLite,
		DBDir:       XDGDataDir(),
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
		RetryDelay:  DefaultRetryDelay,
	}
}

// XDGDataDir returns the XDG data directory for webcrawl.
// On Linux: ~/.local/share/webcrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// IsRedisStore reports whether Store selects the Redis backend.
func (c *Config) IsRedisStore() bool {
	return strings.HasPrefix(c.Store, "redis://") || strings.HasPrefix(c.Store, "rediss://")
}

// Validate checks if the configuration is valid.
// It returns the first problem found as one of the sentinel errors.
func (c *Config) Validate() error {
	if c.Seed == "" {
		return ErrNoSeed
	}
	u, err := url.Parse(c.Seed)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidSeed
	}
	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}
	if c.MaxPages < 1 {
		return ErrInvalidMaxPages
	}
	if c.Concurrency < 1 {
		return ErrInvalidConcurrency
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.RunTimeout < 0 {
		return ErrInvalidRunTimeout
	}
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.Retries < 0 || c.RetryDelay < 0 {
		return ErrInvalidRetry
	}
	if c.Store != StoreSQLite && c.Store != StoreMemory && !c.IsRedisStore() {
		return ErrInvalidStore
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}
