package model

import (
	"slices"
	"time"
)

// FailureKind classifies why a fetch did not produce a page.
type FailureKind string

const (
	// FailureTimeout means the request exceeded its timeout.
	FailureTimeout FailureKind = "timeout"

	// FailureConnection means the request failed at the transport level.
	FailureConnection FailureKind = "connection"

	// FailureHTTP means the server answered with a non-2xx status.
	FailureHTTP FailureKind = "http"

	// FailureNonHTML means the response was not text/html.
	// This is a skip signal rather than an error.
	FailureNonHTML FailureKind = "non_html"
)

// FailureKinds lists every FailureKind in report order.
var FailureKinds = []FailureKind{
	FailureTimeout,
	FailureConnection,
	FailureHTTP,
	FailureNonHTML,
}

// Summary contains the end-of-run statistics of a crawl.
type Summary struct {
	// Seed is the URL the crawl started from.
	Seed string `json:"seed"`

	// State is the final lifecycle state.
	State State `json:"state"`

	// StopReason is set when State is StateCompleted.
	StopReason StopReason `json:"stop_reason,omitempty"`

	// Error is the message of the error that aborted the run.
	Error string `json:"error,omitempty"`

	// MaxDepth, MaxPages and Concurrency echo the run configuration.
	MaxDepth    int `json:"max_depth"`
	MaxPages    int `json:"max_pages"`
	Concurrency int `json:"concurrency"`

	// PagesStored is the number of pages newly written to the store.
	PagesStored int `json:"pages_stored"`

	// URLsDiscovered is the number of distinct URLs admitted to the frontier.
	URLsDiscovered int `json:"urls_discovered"`

	// PolicySkipped is the number of units denied by robots.txt.
	PolicySkipped int `json:"policy_skipped"`

	// FilterSkipped is the number of links rejected by host or pattern filters.
	FilterSkipped int `json:"filter_skipped"`

	// DepthDropped is the number of units dropped for exhausted depth.
	DepthDropped int `json:"depth_dropped"`

	// BudgetDropped is the number of units or fetched pages discarded
	// because the page budget was reached.
	BudgetDropped int `json:"budget_dropped"`

	// Redirects is the number of 3xx responses whose target was handed
	// back to the frontier instead of being followed.
	Redirects int `json:"redirects"`

	// FetchFailures counts failed fetches by kind.
	FetchFailures map[FailureKind]int `json:"fetch_failures"`

	// DuplicateStores is the number of store calls that found the URL
	// already present.
	DuplicateStores int `json:"duplicate_stores"`

	// StoreFailures is the number of pages dropped because the store failed.
	StoreFailures int `json:"store_failures"`

	// ExtractionErrors is the number of pages whose HTML could not be
	// tokenized to the end.
	ExtractionErrors int `json:"extraction_errors"`

	// StartedAt and FinishedAt bound the Running state.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// NewSummary creates an empty Summary for the given seed.
func NewSummary(seed string) *Summary {
	return &Summary{
		Seed:          seed,
		State:         StateIdle,
		FetchFailures: make(map[FailureKind]int),
	}
}

// Elapsed returns the duration of the run.
func (s *Summary) Elapsed() time.Duration {
	if s.StartedAt.IsZero() || s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// TotalFetchFailures returns the sum of all fetch failures, including
// non-HTML skips.
func (s *Summary) TotalFetchFailures() int {
	total := 0
	for _, n := range s.FetchFailures {
		total += n
	}
	return total
}

// FailureKindsSeen returns the kinds with a non-zero count in report order.
func (s *Summary) FailureKindsSeen() []FailureKind {
	kinds := make([]FailureKind, 0, len(s.FetchFailures))
	for _, k := range FailureKinds {
		if s.FetchFailures[k] > 0 {
			kinds = append(kinds, k)
		}
	}
	for k, n := range s.FetchFailures {
		if n > 0 && !slices.Contains(kinds, k) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Succeeded reports whether the run reached StateCompleted.
func (s *Summary) Succeeded() bool {
	return s.State == StateCompleted
}
