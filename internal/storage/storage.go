// Package storage persists the crawl/classify/personalize pipeline's
// entities in SQLite. Uniqueness constraints (article URL, tag name, source
// URL, user snowflake ID, one preference per user+tag) are enforced here,
// at the storage boundary.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("storage: not found")

type Store struct {
	db *sql.DB
}

type Source struct {
	ID                   int64
	Name                 string
	URL                  string
	AdapterType          string
	IsActive             bool
	CrawlIntervalMinutes int
	CrawlOffsetMinutes   int
	LastCrawledAt        *time.Time
	CreatedAt            time.Time
}

type Article struct {
	ID          int64
	SourceID    int64
	Title       string
	URL         string
	Content     string
	Summary     string
	PublishedAt time.Time
	CrawledAt   time.Time
	WordCount   int
	IsProcessed bool
}

type Tag struct {
	ID         int64
	Name       string
	Category   string
	UsageCount int
	CreatedAt  time.Time
}

// NewStore opens (creating if necessary) the database and initializes the
// schema.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// --- Sources ---

// AddSource registers a crawl source. Adding a URL that already exists is a
// no-op returning the existing source's ID, so seeding is idempotent.
func (s *Store) AddSource(name, url, adapterType string, intervalMinutes, offsetMinutes int) (int64, error) {
	res, err := s.db.Exec(
		`INSERT OR IGNORE INTO sources (name, url, adapter_type, crawl_interval_minutes, crawl_offset_minutes)
		 VALUES (?, ?, ?, ?, ?)`,
		name, url, adapterType, intervalMinutes, offsetMinutes,
	)
	if err != nil {
		return 0, fmt.Errorf("add source: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return res.LastInsertId()
	}

	var id int64
	if err := s.db.QueryRow("SELECT id FROM sources WHERE url = ?", url).Scan(&id); err != nil {
		return 0, fmt.Errorf("look up existing source: %w", err)
	}
	return id, nil
}

// GetActiveSources returns all active sources ordered by stagger offset.
func (s *Store) GetActiveSources() ([]Source, error) {
	rows, err := s.db.Query(
		`SELECT id, name, url, adapter_type, is_active, crawl_interval_minutes,
		        crawl_offset_minutes, last_crawled_at, created_at
		 FROM sources WHERE is_active = 1
		 ORDER BY crawl_offset_minutes, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list active sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var src Source
		if err := rows.Scan(&src.ID, &src.Name, &src.URL, &src.AdapterType, &src.IsActive,
			&src.CrawlIntervalMinutes, &src.CrawlOffsetMinutes, &src.LastCrawledAt, &src.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// UpdateSourceLastCrawled records the completion of a crawl for a source.
func (s *Store) UpdateSourceLastCrawled(sourceID int64, at time.Time) error {
	_, err := s.db.Exec("UPDATE sources SET last_crawled_at = ? WHERE id = ?", at.UTC(), sourceID)
	if err != nil {
		return fmt.Errorf("update last crawled: %w", err)
	}
	return nil
}

// --- Articles ---

// ArticleExists reports whether an article with the exact canonical URL is
// already stored. This check is the pipeline's deduplication gate.
func (s *Store) ArticleExists(url string) (bool, error) {
	var one int
	err := s.db.QueryRow("SELECT 1 FROM articles WHERE url = ?", url).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("article exists: %w", err)
	}
	return true, nil
}

// AddArticle stores a new article and returns its ID.
func (s *Store) AddArticle(a *Article) (int64, error) {
	crawledAt := a.CrawledAt
	if crawledAt.IsZero() {
		crawledAt = time.Now().UTC()
	}
	res, err := s.db.Exec(
		`INSERT INTO articles (source_id, title, url, content, summary, published_at, crawled_at, word_count, is_processed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.SourceID, a.Title, a.URL, a.Content, a.Summary,
		a.PublishedAt.UTC(), crawledAt, a.WordCount, a.IsProcessed,
	)
	if err != nil {
		return 0, fmt.Errorf("add article: %w", err)
	}
	return res.LastInsertId()
}

const articleColumns = `id, source_id, title, url, content, summary, published_at, crawled_at, word_count, is_processed`

func scanArticle(row interface{ Scan(...any) error }) (Article, error) {
	var a Article
	err := row.Scan(&a.ID, &a.SourceID, &a.Title, &a.URL, &a.Content, &a.Summary,
		&a.PublishedAt, &a.CrawledAt, &a.WordCount, &a.IsProcessed)
	return a, err
}

// GetArticleByURL fetches a single article by its canonical URL.
func (s *Store) GetArticleByURL(url string) (*Article, error) {
	row := s.db.QueryRow("SELECT "+articleColumns+" FROM articles WHERE url = ?", url)
	a, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get article by url: %w", err)
	}
	return &a, nil
}

func (s *Store) queryArticles(query string, args ...any) ([]Article, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// GetRecentArticles returns the most recently published articles.
func (s *Store) GetRecentArticles(limit int) ([]Article, error) {
	return s.queryArticles(
		"SELECT "+articleColumns+" FROM articles ORDER BY published_at DESC LIMIT ?", limit)
}

// GetProcessedArticles returns the most recently published processed
// articles.
func (s *Store) GetProcessedArticles(limit int) ([]Article, error) {
	return s.queryArticles(
		"SELECT "+articleColumns+" FROM articles WHERE is_processed = 1 ORDER BY published_at DESC LIMIT ?", limit)
}

// GetUnprocessedArticles returns articles the classifier has not handled
// yet, oldest first.
func (s *Store) GetUnprocessedArticles(limit int) ([]Article, error) {
	return s.queryArticles(
		"SELECT "+articleColumns+" FROM articles WHERE is_processed = 0 ORDER BY id LIMIT ?", limit)
}

// GetArticlesSince returns articles crawled at or after the cutoff.
func (s *Store) GetArticlesSince(cutoff time.Time) ([]Article, error) {
	return s.queryArticles(
		"SELECT "+articleColumns+" FROM articles WHERE crawled_at >= ? ORDER BY crawled_at DESC", cutoff.UTC())
}

// MarkArticleProcessed flips the processed flag.
func (s *Store) MarkArticleProcessed(articleID int64) error {
	_, err := s.db.Exec("UPDATE articles SET is_processed = 1 WHERE id = ?", articleID)
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}

// GetPersonalizedArticles returns processed articles filtered and ranked by
// the user's tag preferences: articles carrying an excluded tag are dropped,
// the rest are ordered by descending must-include match count, tie-broken by
// descending publish time. Users with no preferences get pure recency order.
func (s *Store) GetPersonalizedArticles(userID int64, limit int) ([]Article, error) {
	return s.queryArticles(
		`SELECT `+articleColumns+` FROM articles a
		 WHERE a.is_processed = 1
		   AND NOT EXISTS (
		       SELECT 1 FROM article_tags at
		       JOIN user_tag_preferences p ON p.tag_id = at.tag_id
		       WHERE at.article_id = a.id AND p.user_id = ? AND p.kind = 'exclude')
		 ORDER BY (
		       SELECT COUNT(*) FROM article_tags at
		       JOIN user_tag_preferences p ON p.tag_id = at.tag_id
		       WHERE at.article_id = a.id AND p.user_id = ? AND p.kind = 'must_include') DESC,
		       a.published_at DESC
		 LIMIT ?`,
		userID, userID, limit)
}

// --- Tags ---

// AddTag creates a tag if it does not exist (name is unique,
// case-insensitive) and returns its ID.
func (s *Store) AddTag(name, category string) (int64, error) {
	res, err := s.db.Exec(
		"INSERT OR IGNORE INTO tags (name, category) VALUES (?, ?)", name, category)
	if err != nil {
		return 0, fmt.Errorf("add tag: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return res.LastInsertId()
	}

	var id int64
	if err := s.db.QueryRow("SELECT id FROM tags WHERE name = ?", name).Scan(&id); err != nil {
		return 0, fmt.Errorf("look up existing tag: %w", err)
	}
	return id, nil
}

// GetAllTags returns every tag ordered by name.
func (s *Store) GetAllTags() ([]Tag, error) {
	rows, err := s.db.Query(
		"SELECT id, name, COALESCE(category, ''), usage_count, created_at FROM tags ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Category, &t.UsageCount, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// CountTagsByIDs returns how many of the given tag IDs exist.
func (s *Store) CountTagsByIDs(ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := "SELECT COUNT(*) FROM tags WHERE id IN (?" + repeatPlaceholder(len(ids)-1) + ")"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	var count int
	if err := s.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count tags: %w", err)
	}
	return count, nil
}

func repeatPlaceholder(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += ", ?"
	}
	return out
}

// AddArticleTag links a tag to an article with a confidence score. The
// composite (article, tag) key makes re-tagging idempotent; the tag's usage
// counter is incremented only when a new link is created. Returns whether a
// link was created.
func (s *Store) AddArticleTag(articleID, tagID int64, confidence float64) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		"INSERT OR IGNORE INTO article_tags (article_id, tag_id, confidence) VALUES (?, ?, ?)",
		articleID, tagID, confidence,
	)
	if err != nil {
		return false, fmt.Errorf("link tag: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return false, nil
	}

	if _, err := tx.Exec("UPDATE tags SET usage_count = usage_count + 1 WHERE id = ?", tagID); err != nil {
		return false, fmt.Errorf("bump tag usage: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// GetArticleTags returns the tags linked to an article, ordered by name.
func (s *Store) GetArticleTags(articleID int64) ([]Tag, error) {
	rows, err := s.db.Query(
		`SELECT t.id, t.name, COALESCE(t.category, ''), t.usage_count, t.created_at
		 FROM tags t JOIN article_tags at ON at.tag_id = t.id
		 WHERE at.article_id = ?
		 ORDER BY t.name`,
		articleID,
	)
	if err != nil {
		return nil, fmt.Errorf("get article tags: %w", err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Category, &t.UsageCount, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}
