package crawler

import (
	"errors"
	"time"

	"github.com/nao1215/webcrawl/internal/fetcher"
)

// RetryPolicy decides whether a failed fetch is attempted again.
// attempt is the number of attempts made so far, starting at 1.
type RetryPolicy interface {
	Next(attempt int, err error) (delay time.Duration, retry bool)
}

// NoRetry never retries. It is the default policy.
type NoRetry struct{}

// Next implements RetryPolicy.
func (NoRetry) Next(int, error) (time.Duration, bool) {
	return 0, false
}

// FixedRetry retries retryable fetch failures (timeouts, connection errors,
// 429 and 5xx) up to Attempts additional times, waiting Delay between them.
type FixedRetry struct {
	Attempts int
	Delay    time.Duration
}

// Next implements RetryPolicy.
func (r FixedRetry) Next(attempt int, err error) (time.Duration, bool) {
	if attempt > r.Attempts {
		return 0, false
	}
	var fe *fetcher.Error
	if !errors.As(err, &fe) || !fe.Retryable() {
		return 0, false
	}
	return r.Delay, true
}
