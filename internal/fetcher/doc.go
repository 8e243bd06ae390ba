// Package fetcher retrieves HTML pages over HTTP.
//
// A Client performs a single GET per call, bounded by a caller-supplied
// timeout that covers the whole exchange including the body read. Failures
// are classified into timeout, connection, http (non-2xx) and non_html
// (a skip signal: the body is discarded). The client never retries; retry is
// the caller's decision.
//
// The transport optionally dials through a SOCKS5 proxy and injects per-host
// headers (cookies, authorization) supplied by a HeaderProvider, on every
// hop including redirects.
package fetcher
