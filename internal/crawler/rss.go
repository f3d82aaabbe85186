package crawler

import (
	"context"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"github.com/ainewshub/ainewshub/internal/storage"
	"go.uber.org/zap"
)

// rssItemLimit caps how many entries one RSS crawl returns.
const rssItemLimit = 25

// RSSAdapter crawls RSS and Atom feeds directly, for sources that publish
// a machine-readable feed instead of a scrapeable listing page.
type RSSAdapter struct {
	parser    *gofeed.Parser
	logger    *zap.Logger
	sanitizer *bluemonday.Policy
}

func NewRSSAdapter(client *http.Client, logger *zap.Logger) *RSSAdapter {
	parser := gofeed.NewParser()
	if client != nil {
		parser.Client = client
	} else {
		parser.Client = &http.Client{Timeout: 30 * time.Second}
	}
	parser.UserAgent = "newshub/1.0"
	return &RSSAdapter{
		parser:    parser,
		logger:    logger,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

func (a *RSSAdapter) CrawlSource(ctx context.Context, source storage.Source) []storage.Article {
	log := a.logger.With(zap.String("source", source.Name), zap.String("url", source.URL))

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	parsed, err := a.parser.ParseURLWithContext(source.URL, ctx)
	if err != nil {
		log.Warn("feed fetch failed", zap.Error(err))
		return nil
	}

	items := parsed.Items
	if len(items) > rssItemLimit {
		items = items[:rssItemLimit]
	}

	now := time.Now().UTC()
	var articles []storage.Article
	for _, item := range items {
		if item.Title == "" || item.Link == "" {
			continue
		}

		content := item.Content
		if content == "" {
			content = item.Description
		}
		content = strings.TrimSpace(html.UnescapeString(a.sanitizer.Sanitize(content)))
		if content == "" {
			content = "Link: " + item.Link
		}

		published := now
		if item.PublishedParsed != nil {
			published = item.PublishedParsed.UTC()
		} else if item.UpdatedParsed != nil {
			published = item.UpdatedParsed.UTC()
		}

		articles = append(articles, storage.Article{
			Title:       item.Title,
			URL:         item.Link,
			Content:     content,
			Summary:     Summarize(content),
			SourceID:    source.ID,
			PublishedAt: published,
			CrawledAt:   now,
			WordCount:   WordCount(content),
		})
	}

	log.Info("rss crawl complete", zap.Int("articles", len(articles)))
	return articles
}

func (a *RSSAdapter) ProcessArticle(article *storage.Article) bool {
	article.IsProcessed = true
	return true
}
