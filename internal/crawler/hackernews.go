package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ainewshub/ainewshub/internal/storage"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

const (
	hackerNewsBaseURL = "https://hacker-news.firebaseio.com/v0"

	// topStoryLimit bounds how many entries of the top-stories list are
	// fetched each cycle.
	topStoryLimit = 100
)

// aiKeywords filters Hacker News stories down to AI-related ones. A story
// passes when any keyword appears, case-insensitively, in its title or
// self-text.
var aiKeywords = []string{
	"ai",
	"artificial intelligence",
	"machine learning",
	"deep learning",
	"neural network",
	"llm",
	"gpt",
	"claude",
	"gemini",
	"openai",
	"anthropic",
	"transformer",
	"diffusion",
	"rag",
	"agent",
}

// HackerNewsAdapter crawls the Firebase top-stories API. Story items are
// fetched concurrently and filtered by the AI keyword list.
type HackerNewsAdapter struct {
	client    *http.Client
	logger    *zap.Logger
	baseURL   string
	sanitizer *bluemonday.Policy
}

func NewHackerNewsAdapter(client *http.Client, logger *zap.Logger) *HackerNewsAdapter {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HackerNewsAdapter{
		client:    client,
		logger:    logger,
		baseURL:   hackerNewsBaseURL,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

type hackerNewsItem struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
	Text  string `json:"text"`
	URL   string `json:"url"`
	Time  int64  `json:"time"`
	Dead  bool   `json:"dead"`
}

func (h *HackerNewsAdapter) CrawlSource(ctx context.Context, source storage.Source) []storage.Article {
	log := h.logger.With(zap.String("source", source.Name))

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	ids, err := h.fetchTopStoryIDs(ctx)
	if err != nil {
		log.Warn("top stories fetch failed", zap.Error(err))
		return nil
	}
	if len(ids) > topStoryLimit {
		ids = ids[:topStoryLimit]
	}

	// Fetch items concurrently into an indexed slice so the top-stories
	// ordering survives.
	items := make([]*hackerNewsItem, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			item, err := h.fetchItem(ctx, id)
			if err != nil {
				log.Debug("item fetch failed", zap.Int64("item_id", id), zap.Error(err))
				return
			}
			items[i] = item
		}(i, id)
	}
	wg.Wait()

	var articles []storage.Article
	for _, item := range items {
		if item == nil || item.Dead || item.Type != "story" || item.Title == "" {
			continue
		}
		if !matchesAIKeywords(item.Title, item.Text) {
			continue
		}

		articleURL := item.URL
		if articleURL == "" {
			articleURL = fmt.Sprintf("https://news.ycombinator.com/item?id=%d", item.ID)
		}

		content := h.storyText(item)
		articles = append(articles, storage.Article{
			Title:       item.Title,
			URL:         articleURL,
			Content:     content,
			Summary:     Summarize(content),
			SourceID:    source.ID,
			PublishedAt: time.Unix(item.Time, 0).UTC(),
			CrawledAt:   time.Now().UTC(),
			WordCount:   WordCount(content),
		})
	}

	log.Info("hackernews crawl complete",
		zap.Int("stories", len(ids)),
		zap.Int("articles", len(articles)))
	return articles
}

func (h *HackerNewsAdapter) ProcessArticle(article *storage.Article) bool {
	article.IsProcessed = true
	return true
}

func (h *HackerNewsAdapter) fetchTopStoryIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := h.getJSON(ctx, h.baseURL+"/topstories.json", &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (h *HackerNewsAdapter) fetchItem(ctx context.Context, id int64) (*hackerNewsItem, error) {
	var item hackerNewsItem
	if err := h.getJSON(ctx, fmt.Sprintf("%s/item/%d.json", h.baseURL, id), &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (h *HackerNewsAdapter) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: status %s", rawURL, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", rawURL, err)
	}
	return nil
}

// storyText returns the self-text with HTML stripped, or a link line for
// link-only stories.
func (h *HackerNewsAdapter) storyText(item *hackerNewsItem) string {
	if item.Text != "" {
		return strings.TrimSpace(html.UnescapeString(h.sanitizer.Sanitize(item.Text)))
	}
	if item.URL != "" {
		return "Link: " + item.URL
	}
	return item.Title
}

func matchesAIKeywords(title, text string) bool {
	haystack := strings.ToLower(title + " " + text)
	for _, keyword := range aiKeywords {
		if strings.Contains(haystack, keyword) {
			return true
		}
	}
	return false
}
