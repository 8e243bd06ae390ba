package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/webcrawl/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(summary *model.Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeAlert(md, summary)
	w.writeCounters(md, summary)
	w.writeFailures(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the run information table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *model.Summary) {
	md.H1("Crawl Summary")
	md.PlainText("")

	rows := [][]string{
		{"Seed", "`" + s.Seed + "`"},
		{"Status", statusText(s)},
		{"Max Depth", strconv.Itoa(s.MaxDepth)},
		{"Max Pages", strconv.Itoa(s.MaxPages)},
		{"Concurrency", strconv.Itoa(s.Concurrency)},
	}
	if !s.StartedAt.IsZero() {
		rows = append(rows,
			[]string{"Started", s.StartedAt.Format(timeFormat)},
			[]string{"Elapsed", s.Elapsed().Round(time.Millisecond).String()},
		)
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeAlert writes an alert describing how the run ended.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s *model.Summary) {
	switch {
	case s.State == model.StateAborted:
		md.Cautionf("The crawl was aborted before any page was fetched: %s", s.Error)
	case s.StopReason == model.StopCancelled:
		md.Warningf("The crawl was cancelled. %d page(s) were stored before it stopped.", s.PagesStored)
	case s.StopReason == model.StopBudget:
		md.Importantf("The page budget of %d was reached. Some discovered URLs were not crawled.", s.MaxPages)
	case s.TotalFetchFailures() > 0:
		md.Note("The crawl finished with fetch failures. See the table below.")
	default:
		md.Tip("The crawl finished without fetch failures.")
	}
	md.PlainText("")
}

// writeCounters writes the run counters table.
func (w *MarkdownWriter) writeCounters(md *markdown.Markdown, s *model.Summary) {
	md.H2("Counters")
	md.PlainText("")

	cs := counters(s)
	rows := make([][]string, 0, len(cs))
	for _, c := range cs {
		rows = append(rows, []string{c.name, strconv.Itoa(c.value)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Counter", "Count"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFailures writes the fetch failure table and its pie chart.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, s *model.Summary) {
	md.H2("Fetch Failures")
	md.PlainText("")

	kinds := s.FailureKindsSeen()
	if len(kinds) == 0 {
		md.PlainText("No fetch failures.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(kinds))
	for _, k := range kinds {
		rows = append(rows, []string{label(string(k)), strconv.Itoa(s.FetchFailures[k])})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Kind", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Fetch Failures by Kind"),
		piechart.WithShowData(true),
	)
	for _, k := range kinds {
		chart.LabelAndIntValue(label(string(k)), uint64(s.FetchFailures[k])) //nolint:gosec // counts are non-negative
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
	md.Details("About failure kinds",
		"Timeout and connection failures are transport errors. "+
			"Http counts non-2xx responses. Non Html counts responses skipped "+
			"because they were not text/html.")
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [webcrawl](https://github.com/nao1215/webcrawl)*")
}
