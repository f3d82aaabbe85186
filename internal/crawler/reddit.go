package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ainewshub/ainewshub/internal/storage"
	"go.uber.org/zap"
)

const (
	redditTokenURL   = "https://www.reddit.com/api/v1/access_token"
	redditAPIBaseURL = "https://oauth.reddit.com"

	// tokenExpiryMargin refreshes the bearer token proactively, before the
	// server-side expiry.
	tokenExpiryMargin = 60 * time.Second
)

// RedditAdapter crawls subreddit hot listings through the OAuth API using
// the client-credentials flow. The bearer token is cached and refreshed
// under a mutex so concurrent crawls never issue duplicate token requests.
type RedditAdapter struct {
	client       *http.Client
	clientID     string
	clientSecret string
	userAgent    string
	logger       *zap.Logger

	tokenURL string
	baseURL  string

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewRedditAdapter(clientID, clientSecret, userAgent string, logger *zap.Logger) *RedditAdapter {
	if userAgent == "" {
		userAgent = "newshub/1.0"
	}
	return &RedditAdapter{
		client:       &http.Client{Timeout: 30 * time.Second},
		clientID:     clientID,
		clientSecret: clientSecret,
		userAgent:    userAgent,
		logger:       logger,
		tokenURL:     redditTokenURL,
		baseURL:      redditAPIBaseURL,
	}
}

type redditTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	Title      string  `json:"title"`
	SelfText   string  `json:"selftext"`
	URL        string  `json:"url"`
	Permalink  string  `json:"permalink"`
	CreatedUTC float64 `json:"created_utc"`
}

// ensureToken obtains or refreshes the cached bearer token. Only one
// refresh is in flight at a time; late arrivals take the mutex, see the
// fresh token, and return without a second request.
func (r *RedditAdapter) ensureToken(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.accessToken != "" && time.Now().Before(r.tokenExpiry) {
		return r.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(r.clientID, r.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request: status %s", resp.Status)
	}

	var token redditTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}

	r.accessToken = token.AccessToken
	r.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn)*time.Second - tokenExpiryMargin)
	return r.accessToken, nil
}

func (r *RedditAdapter) CrawlSource(ctx context.Context, source storage.Source) []storage.Article {
	log := r.logger.With(zap.String("source", source.Name))

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	token, err := r.ensureToken(ctx)
	if err != nil {
		log.Warn("oauth token failed", zap.Error(err))
		return nil
	}

	subreddit := extractSubreddit(source.URL)
	if subreddit == "" {
		log.Warn("no subreddit in source url", zap.String("url", source.URL))
		return nil
	}

	listingURL := fmt.Sprintf("%s/r/%s/hot?limit=25", r.baseURL, subreddit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listingURL, nil)
	if err != nil {
		log.Warn("build listing request failed", zap.Error(err))
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		log.Warn("listing fetch failed", zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn("listing fetch failed", zap.String("status", resp.Status))
		return nil
	}

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		log.Warn("decode listing failed", zap.Error(err))
		return nil
	}

	var articles []storage.Article
	for _, child := range listing.Data.Children {
		post := child.Data

		// Skip posts with neither self-text nor a link.
		if strings.TrimSpace(post.SelfText) == "" && strings.TrimSpace(post.URL) == "" {
			continue
		}

		content := post.SelfText
		if strings.TrimSpace(content) == "" {
			content = "Link: " + post.URL
		}

		title := post.Title
		if title == "" {
			title = "Untitled"
		}

		articles = append(articles, storage.Article{
			Title:       title,
			URL:         "https://reddit.com" + post.Permalink,
			Content:     content,
			Summary:     Summarize(content),
			SourceID:    source.ID,
			PublishedAt: time.Unix(int64(post.CreatedUTC), 0).UTC(),
			CrawledAt:   time.Now().UTC(),
			WordCount:   WordCount(content),
		})
	}

	log.Info("reddit crawl complete", zap.Int("articles", len(articles)))
	return articles
}

func (r *RedditAdapter) ProcessArticle(article *storage.Article) bool {
	article.IsProcessed = true
	return true
}

// extractSubreddit pulls the subreddit name out of a source URL like
// https://reddit.com/r/MachineLearning.
func extractSubreddit(sourceURL string) string {
	parsed, err := url.Parse(sourceURL)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i, segment := range segments {
		if strings.EqualFold(segment, "r") && i+1 < len(segments) {
			return segments[i+1]
		}
	}
	return ""
}
