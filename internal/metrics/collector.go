package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nao1215/webcrawl/internal/model"
)

const namespace = "webcrawl"

// Drop reasons used as the "reason" label of the drops counter.
const (
	DropDepth  = "depth"
	DropBudget = "budget"
	DropFilter = "filter"
)

// Collector records crawl metrics.
type Collector struct {
	registry *prometheus.Registry

	pagesStored     prometheus.Counter
	duplicateStores prometheus.Counter
	storeFailures   prometheus.Counter
	policySkips     prometheus.Counter
	redirects       prometheus.Counter
	fetchFailures   *prometheus.CounterVec
	drops           *prometheus.CounterVec
	fetchDuration   prometheus.Histogram
}

// NewCollector creates a Collector with its own registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		pagesStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_stored_total",
			Help:      "Total number of pages newly written to the page store",
		}),
		duplicateStores: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_stores_total",
			Help:      "Total number of store calls for a URL already present",
		}),
		storeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_failures_total",
			Help:      "Total number of pages dropped because the store failed",
		}),
		policySkips: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "policy_skips_total",
			Help:      "Total number of URLs denied by robots.txt",
		}),
		redirects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redirects_total",
			Help:      "Total number of redirect responses returned to the frontier",
		}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Total number of failed fetches by kind",
		}, []string{"kind"}),
		drops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drops_total",
			Help:      "Total number of URLs dropped before fetching by reason",
		}, []string{"reason"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Fetch duration distribution in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}),
	}

	c.registry.MustRegister(
		c.pagesStored,
		c.duplicateStores,
		c.storeFailures,
		c.policySkips,
		c.redirects,
		c.fetchFailures,
		c.drops,
		c.fetchDuration,
	)

	// Pre-create the known label values so they are exported at zero.
	for _, kind := range model.FailureKinds {
		c.fetchFailures.WithLabelValues(string(kind))
	}
	for _, reason := range []string{DropDepth, DropBudget, DropFilter} {
		c.drops.WithLabelValues(reason)
	}

	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler returns an HTTP handler serving the collector's metrics.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// PageStored records a newly stored page.
func (c *Collector) PageStored() {
	if c == nil {
		return
	}
	c.pagesStored.Inc()
}

// DuplicateStore records a store call for an existing URL.
func (c *Collector) DuplicateStore() {
	if c == nil {
		return
	}
	c.duplicateStores.Inc()
}

// StoreFailed records a store error.
func (c *Collector) StoreFailed() {
	if c == nil {
		return
	}
	c.storeFailures.Inc()
}

// PolicySkipped records a robots.txt denial.
func (c *Collector) PolicySkipped() {
	if c == nil {
		return
	}
	c.policySkips.Inc()
}

// Redirected records a redirect response.
func (c *Collector) Redirected() {
	if c == nil {
		return
	}
	c.redirects.Inc()
}

// FetchFailed records a failed fetch.
func (c *Collector) FetchFailed(kind model.FailureKind) {
	if c == nil {
		return
	}
	c.fetchFailures.WithLabelValues(string(kind)).Inc()
}

// Dropped records a URL dropped before fetching.
func (c *Collector) Dropped(reason string) {
	if c == nil {
		return
	}
	c.drops.WithLabelValues(reason).Inc()
}

// ObserveFetch records the duration of one fetch attempt.
func (c *Collector) ObserveFetch(d time.Duration) {
	if c == nil {
		return
	}
	c.fetchDuration.Observe(d.Seconds())
}
