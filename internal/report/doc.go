// Package report renders the end-of-run crawl summary.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - MarkdownWriter: GitHub-flavored Markdown with a mermaid chart
//   - JSONWriter: Structured JSON output for tool integration
//
// Design decision: We separate report writing from the summary data
// structure (which lives in the model package). This allows adding new
// output formats without touching the crawler.
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
