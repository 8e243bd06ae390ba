package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/nao1215/webcrawl/internal/model"
)

// ErrNonHTMLContent is wrapped by an Error of kind non_html.
var ErrNonHTMLContent = errors.New("content is not text/html")

// ErrInvalidProxyAddress is returned when the proxy address format is invalid.
var ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

// Error is a classified fetch failure.
type Error struct {
	// Kind is the failure category.
	Kind model.FailureKind

	// URL is the requested URL.
	URL string

	// StatusCode is set for http and non_html failures.
	StatusCode int

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Kind {
	case model.FailureHTTP:
		return fmt.Sprintf("fetch %s: http status %d", e.URL, e.StatusCode)
	default:
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt could plausibly succeed:
// timeouts, connection failures, 429 and 5xx responses.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case model.FailureTimeout, model.FailureConnection:
		return true
	case model.FailureHTTP:
		return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
	default:
		return false
	}
}

// KindOf returns the failure kind of err if it is (or wraps) an *Error.
func KindOf(err error) (model.FailureKind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return "", false
}

// Redirect is returned for a 3xx response carrying a Location header.
// The client never follows redirects; the caller decides whether the
// target is fetched.
type Redirect struct {
	// URL is the requested URL.
	URL string

	// Location is the absolute redirect target.
	Location string

	// StatusCode is the 3xx status.
	StatusCode int
}

// Error implements the error interface.
func (r *Redirect) Error() string {
	return fmt.Sprintf("fetch %s: redirected (%d) to %s", r.URL, r.StatusCode, r.Location)
}

// RedirectOf returns the Redirect carried by err, if any.
func RedirectOf(err error) (*Redirect, bool) {
	var r *Redirect
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

// classify converts a transport error into a timeout or connection Error.
func classify(rawURL string, err error) *Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Kind: model.FailureTimeout, URL: rawURL, Err: err}
	}
	return &Error{Kind: model.FailureConnection, URL: rawURL, Err: err}
}
