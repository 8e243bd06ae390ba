package crawler

import (
	"sync"

	"github.com/nao1215/webcrawl/internal/model"
)

// Frontier is the FIFO work queue of a crawl together with the set of URLs
// ever admitted to it.
//
// Admission is a single check-and-insert under one mutex, so concurrent
// offers of the same URL enqueue it exactly once. Take blocks while the
// queue is empty but other workers still hold units that may produce more
// work, and reports termination once the queue is empty with nothing in
// flight or after Close.
type Frontier struct {
	mu       sync.Mutex
	cond     *sync.Cond
	seen     map[string]struct{}
	queue    []model.CrawlUnit
	inFlight int
	closed   bool
}

// NewFrontier creates an empty Frontier.
func NewFrontier() *Frontier {
	f := &Frontier{
		seen: make(map[string]struct{}),
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Offer admits url at the given remaining depth if it has never been
// admitted before. It returns true only for the call that enqueued it.
// Offers to a closed frontier are rejected.
func (f *Frontier) Offer(url string, depth int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false
	}
	if _, ok := f.seen[url]; ok {
		return false
	}

	f.seen[url] = struct{}{}
	f.queue = append(f.queue, model.CrawlUnit{URL: url, Depth: depth})
	f.cond.Signal()
	return true
}

// Take removes the oldest unit. Every successful Take must be paired with
// a Done once the unit's children have been offered.
//
// The second result is false when the crawl is over: the queue is empty and
// no unit is in flight, or the frontier was closed.
func (f *Frontier) Take() (model.CrawlUnit, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for len(f.queue) == 0 && f.inFlight > 0 && !f.closed {
		f.cond.Wait()
	}

	if f.closed || len(f.queue) == 0 {
		return model.CrawlUnit{}, false
	}

	unit := f.queue[0]
	f.queue[0] = model.CrawlUnit{}
	f.queue = f.queue[1:]
	f.inFlight++
	return unit, true
}

// Done marks a taken unit as finished.
func (f *Frontier) Done() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inFlight--
	if f.inFlight == 0 && len(f.queue) == 0 {
		f.cond.Broadcast()
	}
}

// Close discards all queued units, rejects further offers and wakes every
// waiting Take. Close is idempotent.
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	f.queue = nil
	f.cond.Broadcast()
}

// Len returns the number of queued units.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// Seen returns the number of distinct URLs ever admitted.
func (f *Frontier) Seen() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}
