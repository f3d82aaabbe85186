package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ainewshub/ainewshub/internal/storage"
	"go.uber.org/zap"
)

func newRedditFixture(t *testing.T, listing string) (*RedditAdapter, *atomic.Int64) {
	t.Helper()

	var tokenRequests atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		tokenRequests.Add(1)
		if user, pass, ok := r.BasicAuth(); !ok || user != "id" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"access_token":"tok-123","token_type":"bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/r/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, listing)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	adapter := NewRedditAdapter("id", "secret", "newshub-test/1.0", zap.NewNop())
	adapter.client = server.Client()
	adapter.tokenURL = server.URL + "/api/v1/access_token"
	adapter.baseURL = server.URL
	return adapter, &tokenRequests
}

const redditTestListing = `{"data":{"children":[
	{"data":{"title":"Fine-tuning at home","selftext":"I fine-tuned a 7B model on a single GPU.","url":"","permalink":"/r/MachineLearning/comments/abc/ft/","created_utc":1767225600}},
	{"data":{"title":"Benchmark results","selftext":"","url":"https://example.com/bench","permalink":"/r/MachineLearning/comments/def/bench/","created_utc":1767312000}},
	{"data":{"title":"Empty post","selftext":"","url":"","permalink":"/r/MachineLearning/comments/ghi/empty/","created_utc":1767398400}}
]}}`

func TestRedditCrawlSource(t *testing.T) {
	adapter, _ := newRedditFixture(t, redditTestListing)

	source := storage.Source{ID: 7, Name: "r/MachineLearning", URL: "https://reddit.com/r/MachineLearning"}
	articles := adapter.CrawlSource(context.Background(), source)

	// The post with neither self-text nor a link is dropped.
	if len(articles) != 2 {
		t.Fatalf("got %d articles, want 2", len(articles))
	}

	self := articles[0]
	if self.Content != "I fine-tuned a 7B model on a single GPU." {
		t.Errorf("self post content = %q", self.Content)
	}
	if self.URL != "https://reddit.com/r/MachineLearning/comments/abc/ft/" {
		t.Errorf("self post url = %q, want permalink form", self.URL)
	}
	if want := time.Unix(1767225600, 0).UTC(); !self.PublishedAt.Equal(want) {
		t.Errorf("published = %v, want %v", self.PublishedAt, want)
	}

	link := articles[1]
	if link.Content != "Link: https://example.com/bench" {
		t.Errorf("link post content = %q", link.Content)
	}
	if link.SourceID != source.ID {
		t.Errorf("source id = %d, want %d", link.SourceID, source.ID)
	}
}

func TestRedditTokenReused(t *testing.T) {
	adapter, tokenRequests := newRedditFixture(t, redditTestListing)
	source := storage.Source{ID: 7, Name: "r/MachineLearning", URL: "https://reddit.com/r/MachineLearning"}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			adapter.CrawlSource(context.Background(), source)
		}()
	}
	wg.Wait()

	if got := tokenRequests.Load(); got != 1 {
		t.Errorf("token endpoint hit %d times across concurrent crawls, want 1", got)
	}
}

func TestRedditTokenFailureYieldsNothing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	adapter := NewRedditAdapter("bad", "creds", "", zap.NewNop())
	adapter.client = server.Client()
	adapter.tokenURL = server.URL + "/api/v1/access_token"
	adapter.baseURL = server.URL

	articles := adapter.CrawlSource(context.Background(), storage.Source{URL: "https://reddit.com/r/test"})
	if len(articles) != 0 {
		t.Errorf("got %d articles without a token, want 0", len(articles))
	}
}

func TestExtractSubreddit(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://reddit.com/r/MachineLearning", "MachineLearning"},
		{"https://www.reddit.com/r/LocalLLaMA/", "LocalLLaMA"},
		{"https://reddit.com/R/casefold", "casefold"},
		{"https://reddit.com/user/nobody", ""},
		{"://bad", ""},
	}
	for _, tc := range cases {
		if got := extractSubreddit(tc.url); got != tc.want {
			t.Errorf("extractSubreddit(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}
