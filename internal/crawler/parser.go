package crawler

import (
	"errors"
	"io"
	"iter"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Parser extracts outbound links from HTML.
//
// Design decision: We use the streaming golang.org/x/net/html tokenizer
// rather than building a DOM because links are consumed one at a time and
// the caller may stop early. No tree is ever materialized.
type Parser struct {
	// baseURL is the URL of the page being parsed.
	baseURL *url.URL

	// err is the tokenizer error of the last Links iteration.
	err error
}

// NewParser creates a parser that resolves links against baseURL.
func NewParser(baseURL string) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u}, nil
}

// Links returns the absolute http(s) targets of every <a href> in r, in
// document order. Duplicates are kept.
//
// A <base href> element changes the resolution base for the anchors that
// follow it; only the first one counts. Fragments are stripped. Links to
// other schemes, fragment-only links and links without a host are skipped.
//
// A tokenizer error other than EOF ends the sequence and is reported by Err.
func (p *Parser) Links(r io.Reader) iter.Seq[string] {
	return func(yield func(string) bool) {
		p.err = nil
		base := p.baseURL
		baseSeen := false

		z := html.NewTokenizer(r)
		for {
			switch z.Next() {
			case html.ErrorToken:
				if err := z.Err(); !errors.Is(err, io.EOF) {
					p.err = &ExtractionError{URL: p.baseURL.String(), Err: err}
				}
				return

			case html.StartTagToken, html.SelfClosingTagToken:
				name, hasAttr := z.TagName()
				if !hasAttr {
					continue
				}

				switch string(name) {
				case "base":
					href := tagAttr(z, "href")
					if baseSeen || href == "" {
						continue
					}
					baseSeen = true
					if u, err := base.Parse(strings.TrimSpace(href)); err == nil {
						base = u
					}

				case "a":
					link, ok := resolveURL(base, tagAttr(z, "href"))
					if !ok {
						continue
					}
					if !yield(link) {
						return
					}
				}
			}
		}
	}
}

// Err returns the ExtractionError of the last Links iteration, if any.
func (p *Parser) Err() error {
	return p.err
}

// resolveURL resolves href against base per RFC 3986.
func resolveURL(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}

	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	if resolved.Host == "" {
		return "", false
	}

	resolved.Fragment = ""
	resolved.RawFragment = ""
	return resolved.String(), true
}

// tagAttr returns the value of the named attribute of the current tag.
// It consumes the tag's attributes.
func tagAttr(z *html.Tokenizer, key string) string {
	for {
		k, v, more := z.TagAttr()
		if string(k) == key {
			return string(v)
		}
		if !more {
			return ""
		}
	}
}
