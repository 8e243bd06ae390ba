package crawler

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is wrapped by every configuration error returned by
// Spider.Run. The run is aborted before any fetch.
var ErrInvalidConfig = errors.New("invalid crawl configuration")

// Configuration errors, always wrapped together with ErrInvalidConfig.
var (
	// ErrInvalidSeed is returned when the seed is not an absolute http(s) URL.
	ErrInvalidSeed = errors.New("seed must be an absolute http or https URL")

	// ErrInvalidMaxDepth is returned when max depth is negative.
	ErrInvalidMaxDepth = errors.New("max depth must be >= 0")

	// ErrInvalidMaxPages is returned when max pages is less than 1.
	ErrInvalidMaxPages = errors.New("max pages must be >= 1")

	// ErrInvalidConcurrency is returned when concurrency is less than 1.
	ErrInvalidConcurrency = errors.New("concurrency must be >= 1")

	// ErrInvalidTimeout is returned when the per-request timeout is not positive.
	ErrInvalidTimeout = errors.New("timeout must be > 0")

	// ErrNoStore is returned when the spider has no page store.
	ErrNoStore = errors.New("page store is required")

	// ErrNoFetcher is returned when the spider has no fetcher.
	ErrNoFetcher = errors.New("fetcher is required")
)

// configError wraps a specific configuration error with ErrInvalidConfig.
func configError(err error, detail string) error {
	if detail == "" {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return fmt.Errorf("%w: %w: %s", ErrInvalidConfig, err, detail)
}

// ExtractionError reports that a page's HTML could not be tokenized to the
// end. Links yielded before the error are still valid.
type ExtractionError struct {
	// URL is the page being parsed.
	URL string

	// Err is the tokenizer error.
	Err error
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract links from %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}
