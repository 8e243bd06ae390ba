// Package model defines the core data structures shared by the crawler,
// the page stores and the report writers.
//
// This package contains the following main types:
//   - Page: a fetched HTML page, stored exactly once per URL
//   - CrawlUnit: a unit of frontier work (URL plus remaining depth)
//   - Summary: the end-of-run statistics of a crawl
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The crawler, database and report packages all need these
// types, so centralizing them prevents import cycles.
package model
