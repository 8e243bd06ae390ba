package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/webcrawl/internal/model"
)

// SimpleWriter outputs human-readable text reports for terminal display.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors so that the output can be piped to files or other tools.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether zero counters are shown.
	showEmpty bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show zero counters.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the summary in human-readable format.
func (w *SimpleWriter) Write(summary *model.Summary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeCounters(&sb, summary)
	w.writeFailures(&sb, summary)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

// writeHeader writes the run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, s *model.Summary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                          WEBCRAWL SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Seed:        %s\n", s.Seed)
	fmt.Fprintf(sb, "Status:      %s\n", statusText(s))
	fmt.Fprintf(sb, "Max Depth:   %d\n", s.MaxDepth)
	fmt.Fprintf(sb, "Max Pages:   %d\n", s.MaxPages)
	fmt.Fprintf(sb, "Concurrency: %d\n", s.Concurrency)
	if !s.StartedAt.IsZero() {
		fmt.Fprintf(sb, "Started:     %s\n", s.StartedAt.Format(timeFormat))
		fmt.Fprintf(sb, "Elapsed:     %s\n", s.Elapsed().Round(time.Millisecond))
	}
	sb.WriteString("\n")
}

// writeCounters writes the run counters.
func (w *SimpleWriter) writeCounters(sb *strings.Builder, s *model.Summary) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("COUNTERS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, c := range counters(s) {
		if c.value == 0 && !w.showEmpty && c.name != "Pages stored" {
			continue
		}
		fmt.Fprintf(sb, "  %-18s %d\n", c.name+":", c.value)
	}
	sb.WriteString("\n")
}

// writeFailures writes fetch failures grouped by kind.
func (w *SimpleWriter) writeFailures(sb *strings.Builder, s *model.Summary) {
	kinds := s.FailureKindsSeen()
	if len(kinds) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("FETCH FAILURES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(kinds) == 0 {
		sb.WriteString("  No fetch failures\n\n")
		return
	}
	for _, k := range kinds {
		fmt.Fprintf(sb, "  [!] %-12s %d\n", label(string(k))+":", s.FetchFailures[k])
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by webcrawl\n")
	sb.WriteString("https://github.com/nao1215/webcrawl\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
