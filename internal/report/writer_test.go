package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/webcrawl/internal/model"
)

// createTestSummary creates a summary with sample data for testing.
func createTestSummary() *model.Summary {
	s := model.NewSummary("http://example.com/")
	s.State = model.StateCompleted
	s.StopReason = model.StopDrained
	s.MaxDepth = 2
	s.MaxPages = 100
	s.Concurrency = 4
	s.PagesStored = 12
	s.URLsDiscovered = 20
	s.PolicySkipped = 3
	s.Redirects = 1
	s.FetchFailures[model.FailureTimeout] = 2
	s.FetchFailures[model.FailureNonHTML] = 5
	s.StartedAt = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s.FinishedAt = s.StartedAt.Add(1500 * time.Millisecond)
	return s
}

// TestSimpleWriter tests the human-readable report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header and counters", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewSimpleWriter(&buf).Write(createTestSummary())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("expected %d bytes reported, got %d", buf.Len(), n)
		}

		output := buf.String()
		for _, want := range []string{
			"WEBCRAWL SUMMARY",
			"http://example.com/",
			"Completed (frontier drained)",
			"Pages stored:",
			"Robots.txt skips:",
			"Redirects:",
			"Elapsed:     1.5s",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
	})

	t.Run("hides zero counters by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(buf.String(), "Store failures:") {
			t.Error("expected zero store failures to be hidden")
		}
	})

	t.Run("shows zero counters when requested", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithShowEmpty(true)).Write(model.NewSummary("http://example.com/")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		if !strings.Contains(output, "Store failures:") {
			t.Error("expected store failures line")
		}
		if !strings.Contains(output, "No fetch failures") {
			t.Error("expected empty failure section")
		}
	})

	t.Run("writes failures by kind", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		if !strings.Contains(output, "Timeout:") || !strings.Contains(output, "Non Html:") {
			t.Errorf("expected failure kinds in output\n%s", output)
		}
		if strings.Index(output, "Timeout:") > strings.Index(output, "Non Html:") {
			t.Error("expected timeout before non_html")
		}
	})

	t.Run("aborted run shows error", func(t *testing.T) {
		t.Parallel()

		s := model.NewSummary("ftp://example.com/")
		s.State = model.StateAborted
		s.Error = "invalid seed"

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Aborted - invalid seed") {
			t.Errorf("expected aborted status\n%s", buf.String())
		}
		if strings.Contains(buf.String(), "Elapsed:") {
			t.Error("expected no elapsed line for a run that never started")
		}
	})
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes tables and chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"# Crawl Summary",
			"## Counters",
			"## Fetch Failures",
			"```mermaid",
			"Fetch Failures by Kind",
			"[!NOTE]",
			"`http://example.com/`",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
	})

	t.Run("alert follows the stop reason", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name   string
			modify func(*model.Summary)
			want   string
		}{
			{"aborted", func(s *model.Summary) { s.State = model.StateAborted; s.Error = "boom" }, "[!CAUTION]"},
			{"cancelled", func(s *model.Summary) { s.StopReason = model.StopCancelled }, "[!WARNING]"},
			{"budget", func(s *model.Summary) { s.StopReason = model.StopBudget }, "[!IMPORTANT]"},
			{"clean", func(s *model.Summary) { clear(s.FetchFailures) }, "[!TIP]"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				s := createTestSummary()
				tt.modify(s)

				var buf bytes.Buffer
				if _, err := NewMarkdownWriter(&buf).Write(s); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !strings.Contains(buf.String(), tt.want) {
					t.Errorf("expected %s alert\n%s", tt.want, buf.String())
				}
			})
		}
	})

	t.Run("no chart without failures", func(t *testing.T) {
		t.Parallel()

		s := createTestSummary()
		clear(s.FetchFailures)

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(buf.String(), "mermaid") {
			t.Error("expected no chart")
		}
		if !strings.Contains(buf.String(), "No fetch failures.") {
			t.Error("expected empty failure message")
		}
	})
}

// TestJSONWriter tests the JSON report writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes valid JSON with derived fields", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded map[string]any
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if decoded["seed"] != "http://example.com/" {
			t.Errorf("unexpected seed %v", decoded["seed"])
		}
		if decoded["state"] != "completed" {
			t.Errorf("unexpected state %v", decoded["state"])
		}
		if decoded["stop_reason"] != "drained" {
			t.Errorf("unexpected stop reason %v", decoded["stop_reason"])
		}
		if decoded["total_fetch_failures"] != float64(7) {
			t.Errorf("unexpected failure total %v", decoded["total_fetch_failures"])
		}
		if decoded["elapsed_seconds"] != 1.5 {
			t.Errorf("unexpected elapsed %v", decoded["elapsed_seconds"])
		}
		failures, ok := decoded["fetch_failures"].(map[string]any)
		if !ok || failures["non_html"] != float64(5) {
			t.Errorf("unexpected fetch failures %v", decoded["fetch_failures"])
		}
	})

	t.Run("compact by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Errorf("expected single line output, got %q", buf.String())
		}
	})

	t.Run("pretty print", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"seed\"") {
			t.Errorf("expected indented output, got %q", buf.String())
		}
	})
}

type failingWriter struct{}

func (failingWriter) Write(*model.Summary) (int, error) {
	return 0, errors.New("write failed")
}

// TestMultiWriter tests writing to several writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var text, js bytes.Buffer
		mw := NewMultiWriter(NewSimpleWriter(&text), NewJSONWriter(&js))

		n, err := mw.Write(createTestSummary())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != text.Len()+js.Len() {
			t.Errorf("expected %d total bytes, got %d", text.Len()+js.Len(), n)
		}
		if text.Len() == 0 || js.Len() == 0 {
			t.Error("expected both writers to receive output")
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var after bytes.Buffer
		mw := NewMultiWriter(failingWriter{}, NewSimpleWriter(&after))

		if _, err := mw.Write(createTestSummary()); err == nil {
			t.Fatal("expected error")
		}
		if after.Len() != 0 {
			t.Error("expected later writers to be skipped")
		}
	})
}

func TestLabel(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"non_html":   "Non Html",
		"timeout":    "Timeout",
		"connection": "Connection",
		"":           "",
	}
	for in, want := range tests {
		if got := label(in); got != want {
			t.Errorf("label(%q) = %q, want %q", in, got, want)
		}
	}
}
