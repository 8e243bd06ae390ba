// Package metrics exposes crawl metrics in Prometheus format.
//
// A Collector owns a private registry so that several crawls in one process
// (and parallel tests) never collide on the default registry. Every method
// is safe to call on a nil *Collector, which turns metrics off.
package metrics
