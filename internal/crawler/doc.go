// Package crawler provides a depth-bounded, politeness-aware concurrent web
// crawler.
//
// # Architecture
//
// The crawler package is designed around the Spider type, which runs a
// fixed pool of workers over a shared Frontier. Each worker repeatedly
// takes a unit (URL plus remaining depth), asks the robots.txt gate,
// fetches the page, stores it and offers the page's links back to the
// frontier one level deeper.
//
// # Components
//
//   - Spider: validates the configuration and drives the worker pool
//   - Frontier: FIFO queue plus visited set with in-flight accounting
//   - Budget: lock-free page cap with reserve/commit/release
//   - Parser: streaming link extractor built on golang.org/x/net/html
//
// The fetcher, the robots.txt gate and the page store are collaborators
// described by the Fetcher, PolicyGate and PageStore interfaces.
//
// # Termination
//
// A run completes when the frontier is empty with no unit in flight, when
// the page budget is reached (queued work is discarded) or when the context
// is done. Only an invalid configuration aborts a run.
//
// # Guarantees
//
//   - No URL is fetched twice in one run (without a retry policy)
//   - The number of stored pages never exceeds the page cap
//   - A unit with negative remaining depth is never fetched
//   - A URL denied by robots.txt is never fetched, so its links are never seen
//
// # Usage
//
//	spider := crawler.NewSpider(client, store, crawler.WithMaxDepth(2), crawler.WithPolicy(gate))
//	summary, err := spider.Run(ctx, "https://example.com/")
package crawler
