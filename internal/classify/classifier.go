// Package classify assigns topic tags to articles by keyword matching.
//
// The matcher is a deterministic recall-oriented heuristic: every known tag
// whose name appears, case-insensitively, anywhere in an article's title or
// body is linked at full confidence. Note that short tag names match inside
// unrelated words ("AI" inside "daily"); this mirrors the upstream tagging
// behavior and is kept intentionally.
package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/ainewshub/ainewshub/internal/storage"
	"go.uber.org/zap"
)

// MatchConfidence is the score attached to every keyword match.
const MatchConfidence = 1.0

type Classifier struct {
	store  *storage.Store
	logger *zap.Logger
}

func New(store *storage.Store, logger *zap.Logger) *Classifier {
	return &Classifier{store: store, logger: logger}
}

// Match returns the subset of tags whose names occur in the title or body.
// Pure function: same inputs always produce the same tag set, in input
// order.
func Match(tags []storage.Tag, title, body string) []storage.Tag {
	titleLower := strings.ToLower(title)
	bodyLower := strings.ToLower(body)

	var matched []storage.Tag
	for _, tag := range tags {
		name := strings.ToLower(tag.Name)
		if name == "" {
			continue
		}
		if strings.Contains(titleLower, name) || strings.Contains(bodyLower, name) {
			matched = append(matched, tag)
		}
	}
	return matched
}

// ProcessPending classifies up to limit unprocessed articles: links every
// matching tag and flips the processed flag. Returns the number of articles
// processed. Classification failures for one article are logged and do not
// stop the batch.
func (c *Classifier) ProcessPending(ctx context.Context, limit int) (int, error) {
	tags, err := c.store.GetAllTags()
	if err != nil {
		return 0, fmt.Errorf("load tag vocabulary: %w", err)
	}

	articles, err := c.store.GetUnprocessedArticles(limit)
	if err != nil {
		return 0, fmt.Errorf("load unprocessed articles: %w", err)
	}

	processed := 0
	for _, article := range articles {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}

		matched := Match(tags, article.Title, article.Content)
		failed := false
		for _, tag := range matched {
			if _, err := c.store.AddArticleTag(article.ID, tag.ID, MatchConfidence); err != nil {
				c.logger.Error("link tag failed",
					zap.Int64("article_id", article.ID),
					zap.String("tag", tag.Name),
					zap.Error(err))
				failed = true
				break
			}
		}
		if failed {
			continue
		}

		if err := c.store.MarkArticleProcessed(article.ID); err != nil {
			c.logger.Error("mark processed failed", zap.Int64("article_id", article.ID), zap.Error(err))
			continue
		}

		c.logger.Debug("article classified",
			zap.Int64("article_id", article.ID),
			zap.Int("tags", len(matched)))
		processed++
	}

	return processed, nil
}
