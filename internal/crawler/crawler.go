// Package crawler fetches articles from upstream sources and feeds them
// through the deduplication gate into storage.
//
// Each acquisition strategy is an Adapter registered under its source type
// tag. The scheduler resolves the adapter once per source at dispatch time;
// unknown type tags are a configuration error, not a crawl failure.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ainewshub/ainewshub/internal/storage"
)

// Adapter type tags stored on a Source.
const (
	AdapterScrape     = "scrape"
	AdapterReddit     = "reddit"
	AdapterHackerNews = "hackernews"
	AdapterRSS        = "rss"
)

// ErrUnknownAdapter marks a source configured with an unsupported adapter
// type tag.
var ErrUnknownAdapter = errors.New("crawler: unknown adapter type")

// summaryLimit is the character budget for article summaries.
const summaryLimit = 500

// Adapter is one acquisition strategy. CrawlSource never mutates its input
// and never fails the caller: upstream errors are logged internally and an
// empty slice is returned, since one bad source must not abort the
// pipeline.
type Adapter interface {
	CrawlSource(ctx context.Context, source storage.Source) []storage.Article
	ProcessArticle(article *storage.Article) bool
}

// Registry maps adapter type tags to their implementations.
type Registry map[string]Adapter

// Resolve returns the adapter for a type tag.
func (r Registry) Resolve(adapterType string) (Adapter, error) {
	adapter, ok := r[adapterType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAdapter, adapterType)
	}
	return adapter, nil
}

// Summarize truncates content to the summary character budget, appending an
// ellipsis marker when content was cut.
func Summarize(content string) string {
	runes := []rune(content)
	if len(runes) <= summaryLimit {
		return content
	}
	return string(runes[:summaryLimit]) + "..."
}

// WordCount counts whitespace-delimited tokens.
func WordCount(content string) int {
	return len(strings.Fields(content))
}
