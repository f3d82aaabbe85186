package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ainewshub/ainewshub/internal/storage"
	"go.uber.org/zap"
)

// Scheduler runs one crawl cycle over all active sources. Sources are
// staggered across the cycle by their offset: a source is due only when
// the current minute lands on its offset slot, except when it is the
// only active source, which is always due.
type Scheduler struct {
	store       *storage.Store
	registry    Registry
	logger      *zap.Logger
	sourcePause time.Duration

	now func() time.Time
}

func NewScheduler(store *storage.Store, registry Registry, sourcePause time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		store:       store,
		registry:    registry,
		logger:      logger,
		sourcePause: sourcePause,
		now:         time.Now,
	}
}

// RunCycle crawls every due source once and stores new articles. Returns
// the number of articles stored. Per-source failures are logged and do not
// abort the cycle.
func (s *Scheduler) RunCycle(ctx context.Context) (int, error) {
	sources, err := s.store.GetActiveSources()
	if err != nil {
		return 0, fmt.Errorf("load sources: %w", err)
	}

	minute := s.now().Minute()
	stored := 0
	for i, source := range sources {
		if ctx.Err() != nil {
			return stored, ctx.Err()
		}

		if len(sources) > 1 && minute%10 != source.CrawlOffsetMinutes%10 {
			s.logger.Debug("source not due",
				zap.String("source", source.Name),
				zap.Int("minute", minute),
				zap.Int("offset", source.CrawlOffsetMinutes))
			continue
		}

		n, err := s.crawlSource(ctx, source)
		if err != nil {
			if errors.Is(err, ErrUnknownAdapter) {
				s.logger.Error("source misconfigured",
					zap.String("source", source.Name),
					zap.String("adapter", source.AdapterType),
					zap.Error(err))
			} else {
				s.logger.Warn("source crawl failed",
					zap.String("source", source.Name),
					zap.Error(err))
			}
		} else {
			stored += n
		}

		// Pause between sources, even after a failed one, to stay polite
		// to upstreams.
		if i < len(sources)-1 && s.sourcePause > 0 {
			select {
			case <-ctx.Done():
				return stored, ctx.Err()
			case <-time.After(s.sourcePause):
			}
		}
	}

	return stored, nil
}

func (s *Scheduler) crawlSource(ctx context.Context, source storage.Source) (int, error) {
	adapter, err := s.registry.Resolve(source.AdapterType)
	if err != nil {
		return 0, err
	}

	articles := adapter.CrawlSource(ctx, source)

	stored := 0
	for i := range articles {
		article := &articles[i]

		exists, err := s.store.ArticleExists(article.URL)
		if err != nil {
			s.logger.Error("dedup check failed", zap.String("url", article.URL), zap.Error(err))
			continue
		}
		if exists {
			continue
		}

		if _, err := s.store.AddArticle(article); err != nil {
			s.logger.Error("store article failed", zap.String("url", article.URL), zap.Error(err))
			continue
		}
		stored++
	}

	if err := s.store.UpdateSourceLastCrawled(source.ID, s.now().UTC()); err != nil {
		s.logger.Warn("update last crawled failed", zap.String("source", source.Name), zap.Error(err))
	}

	s.logger.Info("source crawled",
		zap.String("source", source.Name),
		zap.Int("fetched", len(articles)),
		zap.Int("stored", stored))
	return stored, nil
}
