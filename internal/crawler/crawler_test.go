package crawler

import (
	"strings"
	"testing"
)

func TestSummarizeShortContentUnchanged(t *testing.T) {
	content := "A short article body."
	if got := Summarize(content); got != content {
		t.Errorf("Summarize(%q) = %q", content, got)
	}
}

func TestSummarizeTruncatesWithEllipsis(t *testing.T) {
	content := strings.Repeat("x", 600)
	got := Summarize(content)
	if len([]rune(got)) != summaryLimit+3 {
		t.Errorf("summary length %d, want %d", len([]rune(got)), summaryLimit+3)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("summary missing ellipsis suffix: %q", got[len(got)-10:])
	}
}

func TestSummarizeMultibyteSafe(t *testing.T) {
	content := strings.Repeat("日", 600)
	got := Summarize(content)
	if !strings.HasSuffix(got, "...") {
		t.Fatal("expected truncation")
	}
	trimmed := strings.TrimSuffix(got, "...")
	if len([]rune(trimmed)) != summaryLimit {
		t.Errorf("truncated rune count %d, want %d", len([]rune(trimmed)), summaryLimit)
	}
	for _, r := range trimmed {
		if r != '日' {
			t.Fatalf("rune corrupted: %q", r)
		}
	}
}

func TestWordCount(t *testing.T) {
	cases := []struct {
		content string
		want    int
	}{
		{"", 0},
		{"   ", 0},
		{"one", 1},
		{"hello world", 2},
		{"tabs\tand\nnewlines count too", 5},
	}
	for _, tc := range cases {
		if got := WordCount(tc.content); got != tc.want {
			t.Errorf("WordCount(%q) = %d, want %d", tc.content, got, tc.want)
		}
	}
}

func TestRegistryResolve(t *testing.T) {
	registry := Registry{AdapterScrape: &ScrapeAdapter{}}

	if _, err := registry.Resolve(AdapterScrape); err != nil {
		t.Errorf("Resolve(scrape): %v", err)
	}

	_, err := registry.Resolve("carrier-pigeon")
	if err == nil {
		t.Fatal("expected error for unknown adapter type")
	}
	if !strings.Contains(err.Error(), "carrier-pigeon") {
		t.Errorf("error %q does not name the bad type", err)
	}
}
