package model

import (
	"encoding/hex"
	"mime"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"
)

// Page represents a fetched HTML page.
// A Page is created once per distinct URL that passed the policy gate and the
// fetcher, and it is never mutated after being handed to a page store.
type Page struct {
	// URL is the absolute URL the page was requested with.
	// It is the identity key for deduplication and storage.
	URL string `json:"url"`

	// HTML is the response body.
	HTML []byte `json:"-"`

	// FetchedAt is when the response was received.
	FetchedAt time.Time `json:"fetched_at"`

	// StatusCode is the HTTP response status code.
	StatusCode int `json:"status_code"`

	// ContentType is the raw Content-Type header of the response.
	ContentType string `json:"content_type"`

	// Hash is the hex encoded SHA3-256 digest of HTML.
	Hash string `json:"hash"`
}

// NewPage creates a Page and computes its content hash.
func NewPage(url string, html []byte, statusCode int, contentType string, fetchedAt time.Time) *Page {
	p := &Page{
		URL:         url,
		HTML:        html,
		FetchedAt:   fetchedAt,
		StatusCode:  statusCode,
		ContentType: contentType,
	}
	p.ComputeHash()
	return p
}

// ComputeHash calculates and sets the SHA3-256 hash of the page's HTML.
// Empty content produces an empty hash.
func (p *Page) ComputeHash() {
	if len(p.HTML) == 0 {
		p.Hash = ""
		return
	}

	sum := sha3.Sum256(p.HTML)
	p.Hash = hex.EncodeToString(sum[:])
}

// Size returns the length of the stored HTML in bytes.
func (p *Page) Size() int {
	return len(p.HTML)
}

// IsHTMLContentType reports whether a Content-Type header value denotes HTML.
// Parameters such as charset are ignored. A value that fails to parse falls
// back to a prefix comparison so that sloppy servers are still accepted.
func IsHTMLContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	}
	return strings.EqualFold(mediaType, "text/html")
}
