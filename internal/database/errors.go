package database

import (
	"errors"
	"fmt"
)

// ErrNilPage is returned when Store is called with a nil page.
var ErrNilPage = errors.New("page is nil")

// StoreError reports a failed page write or read.
type StoreError struct {
	// URL is the page URL, empty for store-level failures.
	URL string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("page store: %v", e.Err)
	}
	return fmt.Sprintf("page store: %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	return e.Err
}
