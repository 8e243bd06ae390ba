package model

// CrawlUnit is a unit of frontier work.
type CrawlUnit struct {
	// URL is the absolute URL to fetch.
	URL string

	// Depth is the remaining depth budget. The seed unit carries the
	// configured maximum depth and each discovered link inherits Depth-1.
	// A unit with a negative depth is never fetched.
	Depth int
}

// Child returns the unit for a link discovered on this unit's page.
func (u CrawlUnit) Child(url string) CrawlUnit {
	return CrawlUnit{URL: url, Depth: u.Depth - 1}
}
