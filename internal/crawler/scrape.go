package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ainewshub/ainewshub/internal/storage"
	"github.com/araddon/dateparse"
	"go.uber.org/zap"
)

// Selector fallback chains for blog pages. Each chain is ordered; the first
// strategy that yields anything wins.
var (
	linkSelectors = []string{
		"article a[href]",
		".post a[href]",
		".blog-post a[href]",
		"[class*='article'] a[href]",
		"[class*='post'] a[href]",
		"main a[href]",
	}
	titleSelectors   = []string{"h1", "article h1", ".post-title", "[class*='title']"}
	contentSelectors = []string{"article", ".post-content", ".content", "main", "[class*='article-body']"}
	dateSelectors    = []string{"time[datetime]", "meta[property='article:published_time']", "[class*='date']", "[class*='published']"}
)

const (
	maxArticlesPerCrawl = 10
	minContentLength    = 100
	listingTimeout      = 30 * time.Second
	articleTimeout      = 20 * time.Second
)

// ScrapeAdapter crawls blog-style sources: it loads the source page,
// discovers same-host article links through the selector chains, and
// extracts title, body text, and publish date from each linked page.
// Links are visited sequentially.
type ScrapeAdapter struct {
	client *http.Client
	logger *zap.Logger
}

func NewScrapeAdapter(client *http.Client, logger *zap.Logger) *ScrapeAdapter {
	if client == nil {
		client = &http.Client{Timeout: listingTimeout}
	}
	return &ScrapeAdapter{client: client, logger: logger}
}

func (s *ScrapeAdapter) CrawlSource(ctx context.Context, source storage.Source) []storage.Article {
	log := s.logger.With(zap.String("source", source.Name), zap.String("url", source.URL))

	doc, err := s.fetchDocument(ctx, source.URL, listingTimeout)
	if err != nil {
		log.Warn("listing fetch failed", zap.Error(err))
		return nil
	}

	links, err := extractArticleLinks(doc, source.URL)
	if err != nil {
		log.Warn("link extraction failed", zap.Error(err))
		return nil
	}
	if len(links) > maxArticlesPerCrawl {
		links = links[:maxArticlesPerCrawl]
	}

	var articles []storage.Article
	for _, link := range links {
		article, err := s.crawlArticle(ctx, link, source)
		if err != nil {
			log.Debug("article skipped", zap.String("link", link), zap.Error(err))
			continue
		}
		articles = append(articles, *article)
	}

	log.Info("scrape complete", zap.Int("links", len(links)), zap.Int("articles", len(articles)))
	return articles
}

func (s *ScrapeAdapter) ProcessArticle(article *storage.Article) bool {
	article.IsProcessed = true
	return true
}

func (s *ScrapeAdapter) fetchDocument(ctx context.Context, pageURL string, timeout time.Duration) (*goquery.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "newshub/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %s", pageURL, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	return doc, nil
}

// extractArticleLinks walks the link selector chains and returns absolute,
// deduplicated, same-host article URLs from the first chain that matches.
func extractArticleLinks(doc *goquery.Document, sourceURL string) ([]string, error) {
	base, err := url.Parse(sourceURL)
	if err != nil {
		return nil, fmt.Errorf("parse source url: %w", err)
	}

	for _, selector := range linkSelectors {
		var links []string
		seen := map[string]struct{}{}

		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			href, ok := sel.Attr("href")
			if !ok || href == "" {
				return
			}
			if strings.HasPrefix(href, "/") {
				href = base.Scheme + "://" + base.Host + href
			}
			parsed, err := url.Parse(href)
			if err != nil || !parsed.IsAbs() {
				return
			}
			if !strings.Contains(parsed.Host, base.Host) {
				return
			}
			if _, dup := seen[href]; dup {
				return
			}
			seen[href] = struct{}{}
			links = append(links, href)
		})

		if len(links) > 0 {
			return links, nil
		}
	}
	return nil, nil
}

// crawlArticle extracts one article page. Pages without an extractable
// title, or with content below the minimum length, are discarded.
func (s *ScrapeAdapter) crawlArticle(ctx context.Context, link string, source storage.Source) (*storage.Article, error) {
	doc, err := s.fetchDocument(ctx, link, articleTimeout)
	if err != nil {
		return nil, err
	}

	title := extractTitle(doc)
	if title == "" {
		return nil, fmt.Errorf("no title found")
	}

	content := extractContent(doc)
	if content == "" {
		return nil, fmt.Errorf("no usable content found")
	}

	published := extractPublishDate(doc)
	if published.IsZero() {
		published = time.Now().UTC()
	}

	return &storage.Article{
		Title:       title,
		URL:         link,
		Content:     content,
		Summary:     Summarize(content),
		SourceID:    source.ID,
		PublishedAt: published,
		CrawledAt:   time.Now().UTC(),
		WordCount:   WordCount(content),
	}, nil
}

func extractTitle(doc *goquery.Document) string {
	for _, selector := range titleSelectors {
		text := strings.TrimSpace(doc.Find(selector).First().Text())
		if text != "" {
			return text
		}
	}
	// Fall back to the page title.
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func extractContent(doc *goquery.Document) string {
	for _, selector := range contentSelectors {
		text := strings.TrimSpace(doc.Find(selector).First().Text())
		if len(text) >= minContentLength {
			return text
		}
	}
	return ""
}

func extractPublishDate(doc *goquery.Document) time.Time {
	for _, selector := range dateSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}

		var raw string
		switch {
		case strings.HasPrefix(selector, "meta"):
			raw, _ = sel.Attr("content")
		case strings.HasPrefix(selector, "time"):
			raw, _ = sel.Attr("datetime")
		default:
			raw = sel.Text()
		}

		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if parsed, err := dateparse.ParseAny(raw); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}
