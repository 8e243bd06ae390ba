package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

// TestPageComputeHash tests the ComputeHash method.
func TestPageComputeHash(t *testing.T) {
	t.Parallel()

	t.Run("computes SHA3-256 hash of html", func(t *testing.T) {
		t.Parallel()

		page := &Page{HTML: []byte("abc")}
		page.ComputeHash()

		// SHA3-256("abc")
		expected := "3a985da74fe225b2045c172d6bd390bd855f086e3e9d525b46bfe24511431532"
		if page.Hash != expected {
			t.Errorf("got %q, expected %q", page.Hash, expected)
		}
	})

	t.Run("empty content produces empty hash", func(t *testing.T) {
		t.Parallel()

		page := &Page{HTML: []byte{}}
		page.ComputeHash()

		if page.Hash != "" {
			t.Errorf("expected empty hash, got %q", page.Hash)
		}
	})

	t.Run("NewPage fills hash", func(t *testing.T) {
		t.Parallel()

		page := NewPage("http://example.com/", []byte("abc"), 200, "text/html", time.Now())
		if page.Hash == "" {
			t.Error("expected hash to be computed")
		}
		if page.Size() != 3 {
			t.Errorf("expected size 3, got %d", page.Size())
		}
	})
}

func TestIsHTMLContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		contentType string
		want        bool
	}{
		{"text/html", true},
		{"text/html; charset=utf-8", true},
		{"TEXT/HTML", true},
		{"text/html;", true},
		{"application/xhtml+xml", false},
		{"application/json", false},
		{"image/png", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			t.Parallel()

			if got := IsHTMLContentType(tt.contentType); got != tt.want {
				t.Errorf("IsHTMLContentType(%q) = %v, want %v", tt.contentType, got, tt.want)
			}
		})
	}
}

func TestCrawlUnitChild(t *testing.T) {
	t.Parallel()

	parent := CrawlUnit{URL: "http://example.com/", Depth: 2}
	child := parent.Child("http://example.com/a")

	if child.Depth != 1 {
		t.Errorf("expected child depth 1, got %d", child.Depth)
	}
	if child.URL != "http://example.com/a" {
		t.Errorf("unexpected child URL %q", child.URL)
	}
}

func TestSummary(t *testing.T) {
	t.Parallel()

	t.Run("state is serialized by name", func(t *testing.T) {
		t.Parallel()

		s := NewSummary("http://example.com/")
		s.State = StateCompleted
		s.StopReason = StopBudget

		data, err := json.Marshal(s)
		if err != nil {
			t.Fatalf("failed to marshal summary: %v", err)
		}
		if !strings.Contains(string(data), `"state":"completed"`) {
			t.Errorf("expected state name in JSON, got %s", data)
		}
	})

	t.Run("failure totals and ordering", func(t *testing.T) {
		t.Parallel()

		s := NewSummary("http://example.com/")
		s.FetchFailures[FailureNonHTML] = 2
		s.FetchFailures[FailureTimeout] = 1
		s.FetchFailures[FailureHTTP] = 0

		if got := s.TotalFetchFailures(); got != 3 {
			t.Errorf("expected 3 failures, got %d", got)
		}

		kinds := s.FailureKindsSeen()
		if len(kinds) != 2 || kinds[0] != FailureTimeout || kinds[1] != FailureNonHTML {
			t.Errorf("unexpected kinds %v", kinds)
		}
	})

	t.Run("elapsed is zero until finished", func(t *testing.T) {
		t.Parallel()

		s := NewSummary("http://example.com/")
		if s.Elapsed() != 0 {
			t.Error("expected zero elapsed")
		}
		s.StartedAt = time.Unix(100, 0)
		s.FinishedAt = time.Unix(103, 0)
		if s.Elapsed() != 3*time.Second {
			t.Errorf("expected 3s, got %v", s.Elapsed())
		}
	})

	t.Run("state strings", func(t *testing.T) {
		t.Parallel()

		for state, want := range map[State]string{
			StateIdle:      "idle",
			StateRunning:   "running",
			StateCompleted: "completed",
			StateAborted:   "aborted",
			State(42):      "unknown",
		} {
			if state.String() != want {
				t.Errorf("State(%d).String() = %q, want %q", state, state.String(), want)
			}
		}
	})
}
