package ainewshub

import (
	"errors"
	"time"
)

// Sentinel errors returned by Engine operations. Callers map these to
// transport-level responses with errors.Is.
var (
	// ErrNotFound marks lookups for users, tags, or question sets that do
	// not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation marks rejected input: bad preference lists, malformed
	// identifiers, retest attempts before eligibility.
	ErrValidation = errors.New("validation failed")
)

// Level is a user's assessed proficiency tier.
type Level string

const (
	LevelBeginner     Level = "Beginner"
	LevelIntermediate Level = "Intermediate"
	LevelAdvanced     Level = "Advanced"
)

// EngineConfig configures the news engine.
type EngineConfig struct {
	DBPath             string
	MachineID          int64
	SourcePause        time.Duration
	RedditClientID     string
	RedditClientSecret string
	RedditUserAgent    string
}

// User is a registered reader, identified externally by snowflake ID.
type User struct {
	SnowflakeID  int64      `json:"snowflake_id"`
	Level        Level      `json:"level"`
	LastTestDate *time.Time `json:"last_test_date,omitempty"`
	TestCount    int        `json:"test_count"`
	CreatedAt    time.Time  `json:"created_at"`
	LastActiveAt *time.Time `json:"last_active_at,omitempty"`
}

// Tag is a topic in the classification vocabulary.
type Tag struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	UsageCount int    `json:"usage_count"`
}

// Article is a crawled news item with its assigned tags.
type Article struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Summary     string    `json:"summary"`
	PublishedAt time.Time `json:"published_at"`
	WordCount   int       `json:"word_count"`
	Tags        []string  `json:"tags,omitempty"`
}

// TagPreference is one entry of a user's feed filter.
type TagPreference struct {
	TagID   int64  `json:"tag_id"`
	TagName string `json:"tag_name"`
	Kind    string `json:"kind"`
}

// Question is one assessment question. The correct option index is kept
// server-side and never serialized.
type Question struct {
	ID          int64    `json:"id"`
	Text        string   `json:"text"`
	Options     []string `json:"options"`
	TargetLevel Level    `json:"target_level"`
}

// QuestionSet is the active assessment.
type QuestionSet struct {
	ID        int64      `json:"id"`
	Version   int        `json:"version"`
	Questions []Question `json:"questions"`
}

// TestResult is the outcome of a submitted assessment.
type TestResult struct {
	Level          Level     `json:"level"`
	CorrectAnswers int       `json:"correct_answers"`
	TotalQuestions int       `json:"total_questions"`
	TestDate       time.Time `json:"test_date"`
}

// RetestStatus reports whether a user may take the assessment now.
type RetestStatus struct {
	CanRetest    bool       `json:"can_retest"`
	NextEligible *time.Time `json:"next_eligible,omitempty"`
}

// CrawlStats summarizes one crawl-and-classify pass.
type CrawlStats struct {
	ArticlesStored     int `json:"articles_stored"`
	ArticlesClassified int `json:"articles_classified"`
}
