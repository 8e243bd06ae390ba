// Package main provides the entry point for the webcrawl CLI.
//
// webcrawl is a depth-bounded, robots.txt-aware concurrent web crawler.
// It stores every fetched HTML page exactly once and prints a summary of
// the run.
//
// Usage:
//
//	webcrawl crawl <seed-url>
//	webcrawl pages
//
// See --help for all available options.
package main

// main is the entry point for webcrawl.
func main() {
	Execute()
}
