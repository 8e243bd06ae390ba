package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/webcrawl/internal/config"
	"github.com/nao1215/webcrawl/internal/crawler"
	"github.com/nao1215/webcrawl/internal/database"
	"github.com/nao1215/webcrawl/internal/fetcher"
	"github.com/nao1215/webcrawl/internal/log"
	"github.com/nao1215/webcrawl/internal/metrics"
	"github.com/nao1215/webcrawl/internal/model"
	"github.com/nao1215/webcrawl/internal/policy"
	"github.com/nao1215/webcrawl/internal/report"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <seed-url>",
		Short: "Crawl a website starting from a seed URL",
		Long: `Crawl fetches the seed URL and follows its links breadth-first.

Every discovered URL is fetched at most once. Pages disallowed by the
site's robots.txt are skipped. Redirects are not followed directly: the
target is queued like a discovered link, so it is checked against
robots.txt and fetched at most once. Each HTML page is stored once in the
selected page store, and a summary is printed when the run ends.

The --max-pages budget counts every page the store accepts, including
pages it already held from an earlier run. A repeat crawl against the
same database therefore fetches at most --max-pages pages.

The run stops when:
- no more URLs are left to visit (drained)
- the page budget set by --max-pages is reached (budget)
- the run is interrupted or --run-timeout expires (cancelled)

Examples:
  # Crawl two levels deep, storing pages in the default SQLite database
  webcrawl crawl https://example.com/

  # Stay on the seed host, store at most 500 pages with 16 workers
  webcrawl crawl --same-host -p 500 -n 16 https://example.com/

  # Keep pages in memory and print a Markdown summary
  webcrawl crawl --store memory --markdown https://example.com/

  # Store pages in Redis and expose Prometheus metrics
  webcrawl crawl --store redis://localhost:6379/0 --metrics-addr :9090 https://example.com/

Configuration file (.webcrawl) example:
  defaults:
    ignorePatterns:
      - "*.pdf"
  sites:
    example.com:
      cookie: "session_id=abc123"
      crawlDelay: 1s`,
		Args: cobra.ExactArgs(1),
		RunE: runCrawlCmd,
	}

	// Crawl limit flags
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum number of link hops from the seed (0 fetches only the seed)")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to accept per run, pages already stored included")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of concurrent workers")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request, body included")
	cmd.Flags().Duration("run-timeout", 0,
		"Timeout for the whole run (0 means no limit)")

	// Storage flags
	cmd.Flags().String("store", config.StoreSQLite,
		"Page store: sqlite, memory or a redis:// URL")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the SQLite database")

	// Politeness flags
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent sent with requests and matched against robots.txt")
	cmd.Flags().Bool("ignore-robots", false,
		"Do not fetch or honor robots.txt")
	cmd.Flags().Bool("same-host", false,
		"Only follow links to the seed's host")
	cmd.Flags().Duration("crawl-delay", 0,
		"Minimum interval between requests to one host")
	cmd.Flags().Bool("respect-crawl-delay", false,
		"Use the robots.txt Crawl-delay when it is longer than --crawl-delay")
	cmd.Flags().Int("retries", 0,
		"Additional attempts for timeouts, connection errors, 429 and 5xx")
	cmd.Flags().Duration("retry-delay", config.DefaultRetryDelay,
		"Pause between retry attempts")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (e.g., 127.0.0.1:9050)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .webcrawl in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON summary (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown summary (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write summary to specified file path (creates directories if needed)")
	cmd.Flags().String("metrics-addr", "",
		"Serve Prometheus metrics on this address during the run (e.g., :9090)")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	if cfg.RunTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, cfg.RunTimeout)
		defer cancel()
	}

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runCrawl(ctx, cfg, cmd.OutOrStdout(), logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error

	if len(args) > 0 {
		cfg.Seed = args[0]
	}

	if cfg.MaxDepth, err = flags.GetInt("depth"); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.RunTimeout, err = flags.GetDuration("run-timeout"); err != nil {
		return nil, err
	}
	if cfg.Store, err = flags.GetString("store"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.IgnoreRobots, err = flags.GetBool("ignore-robots"); err != nil {
		return nil, err
	}
	if cfg.SameHost, err = flags.GetBool("same-host"); err != nil {
		return nil, err
	}
	if cfg.CrawlDelay, err = flags.GetDuration("crawl-delay"); err != nil {
		return nil, err
	}
	if cfg.RespectCrawlDelay, err = flags.GetBool("respect-crawl-delay"); err != nil {
		return nil, err
	}
	if cfg.Retries, err = flags.GetInt("retries"); err != nil {
		return nil, err
	}
	if cfg.RetryDelay, err = flags.GetDuration("retry-delay"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}

	// An explicitly given config file must exist. Without one, a missing
	// file just means no site settings.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	switch {
	case configPath != "":
		if cfg.SiteConfigs, err = config.LoadConfigFile(configPath); err != nil {
			return nil, err
		}
	case explicitConfigPath:
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = config.NewFile()
	}

	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.MetricsAddr, err = flags.GetString("metrics-addr"); err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// runCrawl wires the components described by cfg and runs one crawl.
// The summary is written to out unless cfg.ReportFile is set. A run that
// aborts before its first fetch returns an error after its summary is
// written.
func runCrawl(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) error {
	if cfg.SiteConfigs == nil {
		cfg.SiteConfigs = config.NewFile()
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return abort(cfg, out, fmt.Errorf("storage initialization failed: %w", err))
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Error("failed to close page store", "error", err)
		}
	}()
	logger.Info("page store opened", "store", storeName(cfg))

	fetchOpts := []fetcher.Option{
		fetcher.WithUserAgent(cfg.UserAgent),
		fetcher.WithMaxBodySize(cfg.MaxBodySize),
		fetcher.WithHeaderProvider(cfg.SiteConfigs),
	}
	if cfg.ProxyAddress != "" {
		fetchOpts = append(fetchOpts, fetcher.WithSOCKS5Proxy(cfg.ProxyAddress))
	}
	client, err := fetcher.New(fetchOpts...)
	if err != nil {
		return abort(cfg, out, fmt.Errorf("failed to create HTTP client: %w", err))
	}

	// robots.txt requests share the crawler's transport, proxy and headers.
	gate := policy.NewGate(
		policy.WithHTTPClient(client.HTTPClient()),
		policy.WithUserAgent(cfg.UserAgent),
		policy.WithTimeout(cfg.Timeout),
		policy.WithDisabled(cfg.IgnoreRobots),
		policy.WithLogger(logger),
	)

	collector := metrics.NewCollector()
	if cfg.MetricsAddr != "" {
		srv, err := metrics.Listen(cfg.MetricsAddr, collector)
		if err != nil {
			return abort(cfg, out, err)
		}
		logger.Info("serving metrics", "addr", srv.Addr(), "path", metrics.DefaultPath)

		srvCtx, stopServer := context.WithCancel(context.WithoutCancel(ctx))
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := srv.Serve(srvCtx); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			stopServer()
			<-done
		}()
	}

	spider := crawler.NewSpider(client, store, spiderOptions(cfg, gate, collector, logger)...)

	summary, err := spider.Run(ctx, cfg.Seed)
	if err != nil {
		return abort(cfg, out, err)
	}

	logger.Info("robots.txt lookups", "fetches", gate.Fetches(), "origins", gate.Origins())

	if err := outputReport(cfg, out, summary); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// spiderOptions translates cfg into Spider options.
func spiderOptions(cfg *config.Config, gate *policy.Gate, collector *metrics.Collector, logger *slog.Logger) []crawler.SpiderOption {
	opts := []crawler.SpiderOption{
		crawler.WithMaxDepth(cfg.MaxDepth),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithConcurrency(cfg.Concurrency),
		crawler.WithTimeout(cfg.Timeout),
		crawler.WithPolicy(gate),
		crawler.WithSameHost(cfg.SameHost),
		crawler.WithSiteRules(siteRules(cfg.SiteConfigs)),
		crawler.WithCrawlDelay(cfg.CrawlDelay),
		crawler.WithRespectCrawlDelay(cfg.RespectCrawlDelay),
		crawler.WithMetrics(collector),
		crawler.WithLogger(logger),
	}
	if cfg.Retries > 0 {
		opts = append(opts, crawler.WithRetryPolicy(crawler.FixedRetry{
			Attempts: cfg.Retries,
			Delay:    cfg.RetryDelay,
		}))
	}
	return opts
}

// siteRules exposes the per-site filter and pacing settings of the config
// file to the spider.
func siteRules(cf *config.File) crawler.SiteRulesProvider {
	return crawler.SiteRulesFunc(func(host string) crawler.SiteRules {
		sc := cf.GetSiteConfig(host)
		return crawler.SiteRules{
			IgnorePatterns: sc.IgnorePatterns,
			FollowPatterns: sc.FollowPatterns,
			CrawlDelay:     sc.CrawlDelay,
		}
	})
}

// openStore opens the page store selected by cfg.Store.
// The returned function closes it.
func openStore(ctx context.Context, cfg *config.Config) (crawler.PageStore, func() error, error) {
	switch {
	case cfg.IsRedisStore():
		rs, err := database.OpenRedis(ctx, cfg.Store)
		if err != nil {
			return nil, nil, err
		}
		return rs, rs.Close, nil
	case cfg.Store == config.StoreMemory:
		return database.NewMemoryStore(), func() error { return nil }, nil
	case cfg.Store == config.StoreSQLite:
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	default:
		return nil, nil, config.ErrInvalidStore
	}
}

// storeName describes the store for logs without leaking Redis credentials.
func storeName(cfg *config.Config) string {
	switch {
	case cfg.IsRedisStore():
		return "redis"
	case cfg.Store == config.StoreSQLite:
		return filepath.Join(cfg.DBDir, database.DBFileName)
	default:
		return cfg.Store
	}
}

// abort writes an aborted summary for err and returns err.
func abort(cfg *config.Config, out io.Writer, err error) error {
	summary := model.NewSummary(cfg.Seed)
	summary.State = model.StateAborted
	summary.Error = err.Error()
	summary.MaxDepth = cfg.MaxDepth
	summary.MaxPages = cfg.MaxPages
	summary.Concurrency = cfg.Concurrency

	if werr := outputReport(cfg, out, summary); werr != nil {
		return errors.Join(err, fmt.Errorf("failed to write report: %w", werr))
	}
	return err
}

// outputReport writes the summary in the requested format.
func outputReport(cfg *config.Config, out io.Writer, summary *model.Summary) error {
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	var w report.Writer
	switch {
	case cfg.JSONReport:
		w = report.NewJSONWriter(out, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(out)
	default:
		w = report.NewSimpleWriter(out)
	}

	_, err := w.Write(summary)
	return err
}
