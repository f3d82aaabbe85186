// Package ainewshub is the public API for the news engine: crawling,
// classification, reader accounts, preferences, proficiency assessment,
// and personalized RSS output.
package ainewshub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ainewshub/ainewshub/internal/classify"
	"github.com/ainewshub/ainewshub/internal/crawler"
	"github.com/ainewshub/ainewshub/internal/feed"
	"github.com/ainewshub/ainewshub/internal/questions"
	"github.com/ainewshub/ainewshub/internal/snowflake"
	"github.com/ainewshub/ainewshub/internal/storage"
)

const (
	// feedArticleCount is how many articles a personalized feed carries.
	feedArticleCount = 10

	// classifyBatchLimit bounds one classification pass.
	classifyBatchLimit = 100

	// digestArticlesPerLevel is the daily digest size per proficiency tier.
	digestArticlesPerLevel = 2
)

// Engine wraps storage, the ID allocator, the crawl scheduler, and the
// classifier behind one facade.
type Engine struct {
	store      *storage.Store
	logger     *zap.Logger
	idgen      *snowflake.Generator
	scheduler  *crawler.Scheduler
	classifier *classify.Classifier
}

// NewEngine opens the database and wires the full pipeline. The reddit
// adapter is registered even without credentials; it fails per-crawl, not
// at startup.
func NewEngine(cfg EngineConfig, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SourcePause == 0 {
		cfg.SourcePause = 5 * time.Second
	}

	store, err := storage.NewStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	idgen, err := snowflake.New(cfg.MachineID)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create id generator: %w", err)
	}

	registry := crawler.Registry{
		crawler.AdapterScrape:     crawler.NewScrapeAdapter(nil, logger),
		crawler.AdapterReddit:     crawler.NewRedditAdapter(cfg.RedditClientID, cfg.RedditClientSecret, cfg.RedditUserAgent, logger),
		crawler.AdapterHackerNews: crawler.NewHackerNewsAdapter(nil, logger),
		crawler.AdapterRSS:        crawler.NewRSSAdapter(nil, logger),
	}

	return &Engine{
		store:      store,
		logger:     logger,
		idgen:      idgen,
		scheduler:  crawler.NewScheduler(store, registry, cfg.SourcePause, logger),
		classifier: classify.New(store, logger),
	}, nil
}

// Close releases the engine's resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store exposes the underlying store for command wiring.
func (e *Engine) Store() *storage.Store {
	return e.store
}

// InitUser allocates a snowflake ID and registers a new user at the
// Beginner level.
func (e *Engine) InitUser() (*User, error) {
	id, err := e.idgen.NextID()
	if err != nil {
		return nil, fmt.Errorf("allocate id: %w", err)
	}
	u, err := e.store.CreateUser(id)
	if err != nil {
		return nil, err
	}
	e.logger.Info("user created", zap.Int64("snowflake_id", id))
	return userFromInternal(u), nil
}

// GetUser fetches a user by snowflake ID and bumps its last-active
// timestamp.
func (e *Engine) GetUser(snowflakeID int64) (*User, error) {
	u, err := e.store.GetUserBySnowflakeID(snowflakeID)
	if err != nil {
		return nil, wrapStorageErr(err)
	}
	if err := e.store.TouchUserLastActive(snowflakeID); err != nil {
		e.logger.Warn("touch last active failed", zap.Int64("snowflake_id", snowflakeID), zap.Error(err))
	}
	return userFromInternal(u), nil
}

// RecoverUser resolves a user from a personalized feed URL, the recovery
// path for readers who kept only their RSS link.
func (e *Engine) RecoverUser(feedURL string) (*User, error) {
	id, err := feed.ParseSnowflakeID(feedURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return e.GetUser(id)
}

// ListTags returns the full tag vocabulary ordered by name.
func (e *Engine) ListTags() ([]Tag, error) {
	tags, err := e.store.GetAllTags()
	if err != nil {
		return nil, err
	}
	out := make([]Tag, len(tags))
	for i, t := range tags {
		out[i] = Tag{ID: t.ID, Name: t.Name, Category: t.Category, UsageCount: t.UsageCount}
	}
	return out, nil
}

// PersonalizedFeed renders the user's feed as an RSS 2.0 document.
// Articles with an excluded tag are dropped; articles matching more
// must-include tags rank higher, with recency breaking ties.
func (e *Engine) PersonalizedFeed(snowflakeID int64, feedLink string) (string, error) {
	u, err := e.store.GetUserBySnowflakeID(snowflakeID)
	if err != nil {
		return "", wrapStorageErr(err)
	}

	articles, err := e.store.GetPersonalizedArticles(u.ID, feedArticleCount)
	if err != nil {
		return "", fmt.Errorf("select articles: %w", err)
	}

	items := make([]feed.Item, 0, len(articles))
	for _, a := range articles {
		tags, err := e.store.GetArticleTags(a.ID)
		if err != nil {
			return "", fmt.Errorf("load article tags: %w", err)
		}
		items = append(items, feed.Item{Article: a, Tags: tags})
	}

	if err := e.store.TouchUserLastActive(snowflakeID); err != nil {
		e.logger.Warn("touch last active failed", zap.Int64("snowflake_id", snowflakeID), zap.Error(err))
	}

	return feed.Render(feedLink, items, time.Now())
}

// CrawlOnce runs a single crawl cycle followed by a classification pass.
func (e *Engine) CrawlOnce(ctx context.Context) (CrawlStats, error) {
	stored, err := e.scheduler.RunCycle(ctx)
	if err != nil {
		return CrawlStats{ArticlesStored: stored}, fmt.Errorf("crawl cycle: %w", err)
	}

	classified, err := e.classifier.ProcessPending(ctx, classifyBatchLimit)
	if err != nil {
		return CrawlStats{ArticlesStored: stored, ArticlesClassified: classified},
			fmt.Errorf("classify: %w", err)
	}

	return CrawlStats{ArticlesStored: stored, ArticlesClassified: classified}, nil
}

// RefreshQuestionSet builds a new assessment from the last week of
// articles, persists it as the next version, and activates it.
func (e *Engine) RefreshQuestionSet() (*QuestionSet, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -7)
	articles, err := e.store.GetArticlesSince(cutoff)
	if err != nil {
		return nil, fmt.Errorf("load recent articles: %w", err)
	}

	keywords := questions.ExtractKeywords(articles)
	qs, sourceKeywords, err := questions.Build(keywords)
	if err != nil {
		return nil, fmt.Errorf("build questions: %w", err)
	}

	set, err := e.store.CreateQuestionSet(qs, sourceKeywords)
	if err != nil {
		return nil, fmt.Errorf("persist question set: %w", err)
	}
	if err := e.store.ActivateQuestionSet(set.ID); err != nil {
		return nil, fmt.Errorf("activate question set: %w", err)
	}

	e.logger.Info("question set refreshed",
		zap.Int("version", set.Version),
		zap.String("keywords", sourceKeywords))
	return questionSetFromInternal(set), nil
}

// BuildDigest selects the most recent processed articles for each
// proficiency tier and logs the selection.
func (e *Engine) BuildDigest() (map[Level][]Article, error) {
	articles, err := e.store.GetProcessedArticles(digestArticlesPerLevel)
	if err != nil {
		return nil, fmt.Errorf("select digest articles: %w", err)
	}

	digest := make(map[Level][]Article, 3)
	for _, level := range []Level{LevelBeginner, LevelIntermediate, LevelAdvanced} {
		selected := make([]Article, 0, len(articles))
		for _, a := range articles {
			tags, err := e.store.GetArticleTags(a.ID)
			if err != nil {
				return nil, fmt.Errorf("load article tags: %w", err)
			}
			selected = append(selected, articleFromInternal(a, tags))
			e.logger.Info("digest article selected",
				zap.String("level", string(level)),
				zap.String("title", a.Title),
				zap.String("url", a.URL))
		}
		digest[level] = selected
	}
	return digest, nil
}

// Seed installs the tag vocabulary, default sources, and an initial
// question set from config. Safe to run repeatedly.
func (e *Engine) Seed(cfg *storage.Config) error {
	for _, tag := range cfg.Tags {
		if _, err := e.store.AddTag(tag.Name, tag.Category); err != nil {
			return fmt.Errorf("seed tag %q: %w", tag.Name, err)
		}
	}
	for _, src := range cfg.Sources {
		if _, err := e.store.AddSource(src.Name, src.URL, src.Adapter, src.IntervalMinutes, src.OffsetMinutes); err != nil {
			return fmt.Errorf("seed source %q: %w", src.Name, err)
		}
	}

	if _, err := e.store.GetActiveQuestionSet(); err == nil {
		return nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("check active question set: %w", err)
	}

	if _, err := e.RefreshQuestionSet(); err != nil {
		return fmt.Errorf("install initial question set: %w", err)
	}
	e.logger.Info("seed complete",
		zap.Int("tags", len(cfg.Tags)),
		zap.Int("sources", len(cfg.Sources)))
	return nil
}

// --- internal type conversion helpers ---

func wrapStorageErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func userFromInternal(u *storage.User) *User {
	lastActive := u.LastActiveAt
	return &User{
		SnowflakeID:  u.SnowflakeID,
		Level:        Level(u.Level),
		LastTestDate: u.LastTestDate,
		TestCount:    u.TestCount,
		CreatedAt:    u.CreatedAt,
		LastActiveAt: &lastActive,
	}
}

func articleFromInternal(a storage.Article, tags []storage.Tag) Article {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Name
	}
	return Article{
		ID:          a.ID,
		Title:       a.Title,
		URL:         a.URL,
		Summary:     a.Summary,
		PublishedAt: a.PublishedAt,
		WordCount:   a.WordCount,
		Tags:        names,
	}
}

func questionSetFromInternal(set *storage.QuestionSet) *QuestionSet {
	out := &QuestionSet{
		ID:        set.ID,
		Version:   set.Version,
		Questions: make([]Question, len(set.Questions)),
	}
	for i, q := range set.Questions {
		out.Questions[i] = Question{
			ID:          q.ID,
			Text:        q.Text,
			Options:     decodeOptions(q.OptionsJSON),
			TargetLevel: Level(q.TargetLevel),
		}
	}
	return out
}
