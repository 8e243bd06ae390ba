package report

import (
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/webcrawl/internal/model"
)

// Writer defines the interface for report output.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files or stdout with the same API.
type Writer interface {
	// Write outputs the summary to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(summary *model.Summary) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
//
// Design decision: We implement this as a separate type rather than
// using io.MultiWriter because our Writer interface is different
// from io.Writer - we write summaries, not raw bytes.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the summary to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(summary *model.Summary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(summary)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// timeFormat is used for the start and finish timestamps in text reports.
const timeFormat = "2006-01-02 15:04:05 MST"

// label turns an identifier such as "non_html" into "Non Html".
func label(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}

// statusText describes how the run ended.
func statusText(s *model.Summary) string {
	switch s.State {
	case model.StateCompleted:
		switch s.StopReason {
		case model.StopBudget:
			return "Completed (page budget reached)"
		case model.StopCancelled:
			return "Completed (cancelled, partial results)"
		default:
			return "Completed (frontier drained)"
		}
	case model.StateAborted:
		if s.Error != "" {
			return "Aborted - " + s.Error
		}
		return "Aborted"
	default:
		return label(s.State.String())
	}
}

// counterRow is one line of the counters section.
type counterRow struct {
	name  string
	value int
}

// counters returns the run counters in report order.
func counters(s *model.Summary) []counterRow {
	return []counterRow{
		{"Pages stored", s.PagesStored},
		{"URLs discovered", s.URLsDiscovered},
		{"Fetch failures", s.TotalFetchFailures()},
		{"Robots.txt skips", s.PolicySkipped},
		{"Redirects", s.Redirects},
		{"Filtered links", s.FilterSkipped},
		{"Depth drops", s.DepthDropped},
		{"Budget drops", s.BudgetDropped},
		{"Duplicate stores", s.DuplicateStores},
		{"Store failures", s.StoreFailures},
		{"Extraction errors", s.ExtractionErrors},
	}
}
