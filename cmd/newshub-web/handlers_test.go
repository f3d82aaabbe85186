package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/ainewshub/ainewshub"
	"github.com/ainewshub/ainewshub/internal/storage"
)

func newTestServer(t *testing.T) (*httptest.Server, *ainewshub.Engine) {
	t.Helper()

	engine, err := ainewshub.NewEngine(ainewshub.EngineConfig{
		DBPath:    filepath.Join(t.TempDir(), "test.db"),
		MachineID: 1,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(func() { engine.Close() })

	if err := engine.Seed(storage.DefaultConfig()); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	server := httptest.NewServer(newRouter(engine))
	t.Cleanup(server.Close)
	return server, engine
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func createTestUser(t *testing.T, server *httptest.Server) ainewshub.User {
	t.Helper()
	resp, err := http.Post(server.URL+"/api/user/init", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /api/user/init: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("init status = %d, want 201", resp.StatusCode)
	}
	return decodeBody[ainewshub.User](t, resp)
}

func TestUserInitAndGet(t *testing.T) {
	server, _ := newTestServer(t)

	user := createTestUser(t, server)
	if user.SnowflakeID <= 0 {
		t.Fatalf("snowflake id = %d", user.SnowflakeID)
	}
	if user.Level != ainewshub.LevelBeginner {
		t.Errorf("level = %q, want Beginner", user.Level)
	}

	resp, err := http.Get(fmt.Sprintf("%s/api/user/%d", server.URL, user.SnowflakeID))
	if err != nil {
		t.Fatalf("GET user: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, want 200", resp.StatusCode)
	}
	fetched := decodeBody[ainewshub.User](t, resp)
	if fetched.SnowflakeID != user.SnowflakeID {
		t.Errorf("fetched id %d, want %d", fetched.SnowflakeID, user.SnowflakeID)
	}
}

func TestUserGetNotFound(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/user/999999999")
	if err != nil {
		t.Fatalf("GET user: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestUserGetInvalidID(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/user/not-a-number")
	if err != nil {
		t.Fatalf("GET user: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestUserRecover(t *testing.T) {
	server, _ := newTestServer(t)
	user := createTestUser(t, server)

	body := fmt.Sprintf(`{"feed_url":"https://newshub.example.com/rss/%d"}`, user.SnowflakeID)
	resp, err := http.Post(server.URL+"/api/user/recover", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST recover: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("recover status = %d, want 200", resp.StatusCode)
	}
	recovered := decodeBody[ainewshub.User](t, resp)
	if recovered.SnowflakeID != user.SnowflakeID {
		t.Errorf("recovered id %d, want %d", recovered.SnowflakeID, user.SnowflakeID)
	}

	resp, err = http.Post(server.URL+"/api/user/recover", "application/json",
		strings.NewReader(`{"feed_url":"https://newshub.example.com/rss/garbage"}`))
	if err != nil {
		t.Fatalf("POST recover bad url: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad url status = %d, want 400", resp.StatusCode)
	}
}

func TestPreferencesRoundTrip(t *testing.T) {
	server, engine := newTestServer(t)
	user := createTestUser(t, server)

	tags, err := engine.ListTags()
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}

	body := fmt.Sprintf(`{"must_include":[%d],"exclude":[%d]}`, tags[0].ID, tags[1].ID)
	req, _ := http.NewRequest(http.MethodPut,
		fmt.Sprintf("%s/api/user/%d/preferences", server.URL, user.SnowflakeID),
		strings.NewReader(body))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT preferences: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("put status = %d, want 204", resp.StatusCode)
	}

	resp, err = http.Get(fmt.Sprintf("%s/api/user/%d/preferences", server.URL, user.SnowflakeID))
	if err != nil {
		t.Fatalf("GET preferences: %v", err)
	}
	prefs := decodeBody[[]ainewshub.TagPreference](t, resp)
	if len(prefs) != 2 {
		t.Fatalf("got %d preferences, want 2", len(prefs))
	}
}

func TestPreferencesValidationRejected(t *testing.T) {
	server, engine := newTestServer(t)
	user := createTestUser(t, server)

	tags, _ := engine.ListTags()
	ids := make([]string, 6)
	for i := range ids {
		ids[i] = fmt.Sprintf("%d", tags[i].ID)
	}

	body := fmt.Sprintf(`{"must_include":[%s],"exclude":[]}`, strings.Join(ids, ","))
	req, _ := http.NewRequest(http.MethodPut,
		fmt.Sprintf("%s/api/user/%d/preferences", server.URL, user.SnowflakeID),
		strings.NewReader(body))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT preferences: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("six must-include status = %d, want 400", resp.StatusCode)
	}
}

func TestQuestionsAndSubmit(t *testing.T) {
	server, engine := newTestServer(t)
	user := createTestUser(t, server)

	resp, err := http.Get(server.URL + "/api/test/questions")
	if err != nil {
		t.Fatalf("GET questions: %v", err)
	}
	set := decodeBody[ainewshub.QuestionSet](t, resp)
	if len(set.Questions) != 8 {
		t.Fatalf("got %d questions, want 8", len(set.Questions))
	}

	// Build a perfect answer sheet from the stored answer key.
	stored, err := engine.Store().GetActiveQuestionSet()
	if err != nil {
		t.Fatalf("GetActiveQuestionSet: %v", err)
	}
	answers := make(map[string]int, len(stored.Questions))
	for _, q := range stored.Questions {
		answers[fmt.Sprintf("%d", q.ID)] = q.CorrectOptionIndex
	}
	payload, _ := json.Marshal(map[string]any{"answers": answers})

	resp, err = http.Post(
		fmt.Sprintf("%s/api/test/%d/submit", server.URL, user.SnowflakeID),
		"application/json", strings.NewReader(string(payload)))
	if err != nil {
		t.Fatalf("POST submit: %v", err)
	}
	result := decodeBody[ainewshub.TestResult](t, resp)
	if result.CorrectAnswers != 8 {
		t.Errorf("correct = %d, want 8", result.CorrectAnswers)
	}
	if result.Level != ainewshub.LevelAdvanced {
		t.Errorf("level = %q, want Advanced", result.Level)
	}

	// Retest immediately: blocked.
	resp, err = http.Post(
		fmt.Sprintf("%s/api/test/%d/submit", server.URL, user.SnowflakeID),
		"application/json", strings.NewReader(string(payload)))
	if err != nil {
		t.Fatalf("POST submit again: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("immediate retest status = %d, want 400", resp.StatusCode)
	}

	// Can-retest reports the gate.
	resp, err = http.Get(fmt.Sprintf("%s/api/user/%d/can-retest", server.URL, user.SnowflakeID))
	if err != nil {
		t.Fatalf("GET can-retest: %v", err)
	}
	status := decodeBody[ainewshub.RetestStatus](t, resp)
	if status.CanRetest {
		t.Error("can-retest = true immediately after a test")
	}
	if status.NextEligible == nil {
		t.Error("no next eligible date reported")
	}
}

func TestQuestionsHideAnswerKey(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/test/questions")
	if err != nil {
		t.Fatalf("GET questions: %v", err)
	}
	defer resp.Body.Close()
	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	questions, _ := raw["questions"].([]any)
	for i, q := range questions {
		fields := q.(map[string]any)
		if _, leaked := fields["correct_option_index"]; leaked {
			t.Errorf("question %d leaks the answer key", i)
		}
	}
}

func TestTagsEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/tags")
	if err != nil {
		t.Fatalf("GET tags: %v", err)
	}
	tags := decodeBody[[]ainewshub.Tag](t, resp)
	if len(tags) == 0 {
		t.Fatal("no tags returned from seeded database")
	}
	for _, tag := range tags {
		if tag.Name == "" {
			t.Error("tag with empty name")
		}
	}
}

func TestRSSEndpoint(t *testing.T) {
	server, _ := newTestServer(t)
	user := createTestUser(t, server)

	resp, err := http.Get(fmt.Sprintf("%s/rss/%d", server.URL, user.SnowflakeID))
	if err != nil {
		t.Fatalf("GET rss: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rss status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "rss+xml") {
		t.Errorf("content type = %q", ct)
	}

	// Unknown user: 404.
	resp, err = http.Get(server.URL + "/rss/999999999")
	if err != nil {
		t.Fatalf("GET rss unknown: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown user rss status = %d, want 404", resp.StatusCode)
	}
}
