package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func addTestArticle(t *testing.T, store *Store, sourceID int64, title, url string, published time.Time, processed bool) int64 {
	t.Helper()
	id, err := store.AddArticle(&Article{
		SourceID:    sourceID,
		Title:       title,
		URL:         url,
		Content:     "content of " + title,
		Summary:     "summary of " + title,
		PublishedAt: published,
		WordCount:   3,
		IsProcessed: processed,
	})
	if err != nil {
		t.Fatalf("AddArticle(%s): %v", title, err)
	}
	return id
}

func TestAddSourceIdempotent(t *testing.T) {
	store := newTestStore(t)

	id1, err := store.AddSource("Hacker News", "https://news.ycombinator.com", "hackernews", 10, 8)
	if err != nil {
		t.Fatalf("AddSource: %v", err)
	}
	id2, err := store.AddSource("Hacker News", "https://news.ycombinator.com", "hackernews", 10, 8)
	if err != nil {
		t.Fatalf("AddSource again: %v", err)
	}
	if id1 != id2 {
		t.Errorf("re-adding same URL returned new id: %d != %d", id1, id2)
	}

	sources, err := store.GetActiveSources()
	if err != nil {
		t.Fatalf("GetActiveSources: %v", err)
	}
	if len(sources) != 1 {
		t.Fatalf("expected 1 source, got %d", len(sources))
	}
}

func TestActiveSourcesOrderedByOffset(t *testing.T) {
	store := newTestStore(t)

	store.AddSource("C", "https://c.example.com", "scrape", 10, 6)
	store.AddSource("A", "https://a.example.com", "scrape", 10, 0)
	store.AddSource("B", "https://b.example.com", "scrape", 10, 3)

	sources, err := store.GetActiveSources()
	if err != nil {
		t.Fatalf("GetActiveSources: %v", err)
	}
	var names []string
	for _, s := range sources {
		names = append(names, s.Name)
	}
	want := []string{"A", "B", "C"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("order %v, want %v", names, want)
		}
	}
}

func TestArticleDedupGate(t *testing.T) {
	store := newTestStore(t)
	srcID, _ := store.AddSource("S", "https://s.example.com", "scrape", 10, 0)

	exists, err := store.ArticleExists("https://s.example.com/post/1")
	if err != nil {
		t.Fatalf("ArticleExists: %v", err)
	}
	if exists {
		t.Fatal("article should not exist yet")
	}

	addTestArticle(t, store, srcID, "One", "https://s.example.com/post/1", time.Now(), false)

	exists, err = store.ArticleExists("https://s.example.com/post/1")
	if err != nil {
		t.Fatalf("ArticleExists: %v", err)
	}
	if !exists {
		t.Fatal("article should exist after insert")
	}
}

func TestTagNameCaseInsensitive(t *testing.T) {
	store := newTestStore(t)

	id1, err := store.AddTag("Claude", "Model")
	if err != nil {
		t.Fatalf("AddTag: %v", err)
	}
	id2, err := store.AddTag("CLAUDE", "Model")
	if err != nil {
		t.Fatalf("AddTag upper: %v", err)
	}
	if id1 != id2 {
		t.Errorf("case-variant tag created a new row: %d != %d", id1, id2)
	}
}

func TestAddArticleTagIdempotentAndCountsUsage(t *testing.T) {
	store := newTestStore(t)
	srcID, _ := store.AddSource("S", "https://s.example.com", "scrape", 10, 0)
	artID := addTestArticle(t, store, srcID, "One", "https://s.example.com/1", time.Now(), false)
	tagID, _ := store.AddTag("LLM", "Concept")

	created, err := store.AddArticleTag(artID, tagID, 1.0)
	if err != nil {
		t.Fatalf("AddArticleTag: %v", err)
	}
	if !created {
		t.Fatal("first link should report created")
	}

	created, err = store.AddArticleTag(artID, tagID, 1.0)
	if err != nil {
		t.Fatalf("AddArticleTag repeat: %v", err)
	}
	if created {
		t.Fatal("duplicate link should be a no-op")
	}

	tags, err := store.GetAllTags()
	if err != nil {
		t.Fatalf("GetAllTags: %v", err)
	}
	if len(tags) != 1 || tags[0].UsageCount != 1 {
		t.Errorf("usage count: got %+v, want single tag with count 1", tags)
	}
}

func TestReplacePreferencesOverwrites(t *testing.T) {
	store := newTestStore(t)
	user, err := store.CreateUser(42)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	a, _ := store.AddTag("A", "")
	b, _ := store.AddTag("B", "")
	c, _ := store.AddTag("C", "")

	if err := store.ReplacePreferences(user.ID, []int64{a, b}, []int64{c}); err != nil {
		t.Fatalf("ReplacePreferences: %v", err)
	}
	if err := store.ReplacePreferences(user.ID, []int64{c}, nil); err != nil {
		t.Fatalf("ReplacePreferences overwrite: %v", err)
	}

	prefs, err := store.GetUserPreferences(user.ID)
	if err != nil {
		t.Fatalf("GetUserPreferences: %v", err)
	}
	if len(prefs) != 1 {
		t.Fatalf("expected 1 preference after overwrite, got %d", len(prefs))
	}
	if prefs[0].TagID != c || prefs[0].Kind != PreferenceMustInclude {
		t.Errorf("unexpected surviving preference: %+v", prefs[0])
	}
}

func TestPersonalizedArticlesRanking(t *testing.T) {
	store := newTestStore(t)
	srcID, _ := store.AddSource("S", "https://s.example.com", "scrape", 10, 0)
	user, _ := store.CreateUser(43)

	wanted, _ := store.AddTag("Claude", "Model")
	banned, _ := store.AddTag("Crypto", "Topic")

	now := time.Now().UTC()
	oldWithTag := addTestArticle(t, store, srcID, "Old tagged", "https://s.example.com/old", now.Add(-48*time.Hour), true)
	freshPlain := addTestArticle(t, store, srcID, "Fresh plain", "https://s.example.com/fresh", now, true)
	excluded := addTestArticle(t, store, srcID, "Banned", "https://s.example.com/banned", now.Add(-time.Hour), true)
	addTestArticle(t, store, srcID, "Unprocessed", "https://s.example.com/raw", now, false)

	store.AddArticleTag(oldWithTag, wanted, 1.0)
	store.AddArticleTag(excluded, banned, 1.0)

	// No preferences: recency order, unprocessed dropped.
	articles, err := store.GetPersonalizedArticles(user.ID, 10)
	if err != nil {
		t.Fatalf("GetPersonalizedArticles: %v", err)
	}
	if len(articles) != 3 {
		t.Fatalf("expected 3 articles, got %d", len(articles))
	}
	if articles[0].ID != freshPlain {
		t.Errorf("recency order: first is %q", articles[0].Title)
	}

	// Must-include beats recency; exclusion drops articles.
	if err := store.ReplacePreferences(user.ID, []int64{wanted}, []int64{banned}); err != nil {
		t.Fatalf("ReplacePreferences: %v", err)
	}
	articles, err = store.GetPersonalizedArticles(user.ID, 10)
	if err != nil {
		t.Fatalf("GetPersonalizedArticles with prefs: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("expected 2 articles after exclusion, got %d", len(articles))
	}
	if articles[0].ID != oldWithTag {
		t.Errorf("must-include article should rank first, got %q", articles[0].Title)
	}
}

func TestQuestionSetVersioningAndActivation(t *testing.T) {
	store := newTestStore(t)

	questions := []Question{
		{Text: "Q1", OptionsJSON: `["a","b","c","d"]`, CorrectOptionIndex: 1, TargetLevel: "Beginner"},
		{Text: "Q2", OptionsJSON: `["a","b","c","d"]`, CorrectOptionIndex: 2, TargetLevel: "Advanced"},
	}

	set1, err := store.CreateQuestionSet(questions, `["RAG"]`)
	if err != nil {
		t.Fatalf("CreateQuestionSet: %v", err)
	}
	set2, err := store.CreateQuestionSet(questions, `["MCP"]`)
	if err != nil {
		t.Fatalf("CreateQuestionSet 2: %v", err)
	}
	if set1.Version != 1 || set2.Version != 2 {
		t.Errorf("versions: got %d and %d, want 1 and 2", set1.Version, set2.Version)
	}
	if len(set1.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(set1.Questions))
	}
	if set1.Questions[1].OrderIndex != 1 {
		t.Errorf("order index: got %d, want 1", set1.Questions[1].OrderIndex)
	}

	if _, err := store.GetActiveQuestionSet(); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound before activation, got %v", err)
	}

	if err := store.ActivateQuestionSet(set1.ID); err != nil {
		t.Fatalf("ActivateQuestionSet: %v", err)
	}
	if err := store.ActivateQuestionSet(set2.ID); err != nil {
		t.Fatalf("ActivateQuestionSet 2: %v", err)
	}

	active, err := store.GetActiveQuestionSet()
	if err != nil {
		t.Fatalf("GetActiveQuestionSet: %v", err)
	}
	if active.ID != set2.ID {
		t.Errorf("active set: got %d, want %d", active.ID, set2.ID)
	}
	if active.ActivatedAt == nil {
		t.Error("activated_at not set")
	}
}

func TestRecordTestResult(t *testing.T) {
	store := newTestStore(t)
	user, _ := store.CreateUser(44)
	set, _ := store.CreateQuestionSet([]Question{
		{Text: "Q1", OptionsJSON: `["a","b"]`, CorrectOptionIndex: 0, TargetLevel: "Beginner"},
	}, "")

	when := time.Now().UTC()
	if err := store.RecordTestResult(user.ID, set.ID, 6, 8, "Advanced", when); err != nil {
		t.Fatalf("RecordTestResult: %v", err)
	}

	updated, err := store.GetUserBySnowflakeID(44)
	if err != nil {
		t.Fatalf("GetUserBySnowflakeID: %v", err)
	}
	if updated.Level != "Advanced" {
		t.Errorf("level: got %s", updated.Level)
	}
	if updated.TestCount != 1 {
		t.Errorf("test count: got %d", updated.TestCount)
	}
	if updated.LastTestDate == nil {
		t.Fatal("last test date not set")
	}

	history, err := store.GetTestHistory(user.ID)
	if err != nil {
		t.Fatalf("GetTestHistory: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 history row, got %d", len(history))
	}
	if history[0].CorrectAnswers != 6 || history[0].TotalQuestions != 8 || history[0].ResultLevel != "Advanced" {
		t.Errorf("history row: %+v", history[0])
	}

	if err := store.RecordTestResult(999, set.ID, 1, 8, "Beginner", when); err != ErrNotFound {
		t.Errorf("unknown user: expected ErrNotFound, got %v", err)
	}
}

func TestGetUserBySnowflakeIDNotFound(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.GetUserBySnowflakeID(123); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
