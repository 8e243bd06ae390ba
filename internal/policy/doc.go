// Package policy decides whether a URL may be crawled according to the
// robots.txt of its origin.
//
// The first lookup for an origin fetches {origin}/robots.txt; the group
// matching the crawler's user agent is cached for the rest of the run.
// Concurrent first lookups for one origin share a single fetch. A missing,
// unreachable or unparseable robots.txt allows everything for that origin.
package policy
