package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ainewshub/ainewshub"
)

func daemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the crawl pipeline continuously with daily and weekly workers",
		Long: `Continuously crawl sources and classify articles on a timer. Once a day
at midnight UTC the digest selection runs; every Monday at midnight UTC the
question set is rebuilt from the last week of articles. Handles
SIGINT/SIGTERM for graceful shutdown (finishes the current cycle).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			engine, err := openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

			logger.Info("daemon starting",
				zap.Duration("cycle_interval", cfg.Crawler.CycleInterval),
				zap.Duration("initial_delay", cfg.Crawler.InitialDelay))

			// Let the process settle before the first crawl.
			startup := time.NewTimer(cfg.Crawler.InitialDelay)
			select {
			case <-sig:
				startup.Stop()
				logger.Info("shutdown signal during startup delay")
				return nil
			case <-startup.C:
			}

			var lastDigestDay, lastRefreshDay string
			cycle := 1
			for {
				start := time.Now()

				stats, err := engine.CrawlOnce(ctx)
				if err != nil {
					logger.Error("cycle failed", zap.Int("cycle", cycle), zap.Error(err))
				} else {
					logger.Info("cycle complete",
						zap.Int("cycle", cycle),
						zap.Int("stored", stats.ArticlesStored),
						zap.Int("classified", stats.ArticlesClassified),
						zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)))
				}
				cycle++

				runDailyWorkers(engine, &lastDigestDay, &lastRefreshDay)

				timer := time.NewTimer(cfg.Crawler.CycleInterval)
				select {
				case <-sig:
					timer.Stop()
					logger.Info("shutdown signal received, exiting")
					return nil
				case <-timer.C:
				}
			}
		},
	}
}

// runDailyWorkers fires the midnight workers at most once per day each.
// Worker failures are logged; the crawl loop keeps running.
func runDailyWorkers(engine *ainewshub.Engine, lastDigestDay, lastRefreshDay *string) {
	now := time.Now().UTC()
	if now.Hour() != 0 {
		return
	}
	day := now.Format("2006-01-02")

	if *lastDigestDay != day {
		*lastDigestDay = day
		if _, err := engine.BuildDigest(); err != nil {
			logger.Error("digest worker failed", zap.Error(err))
		}
	}

	if now.Weekday() == time.Monday && *lastRefreshDay != day {
		*lastRefreshDay = day
		set, err := engine.RefreshQuestionSet()
		if err != nil {
			logger.Error("question refresh worker failed", zap.Error(err))
			return
		}
		logger.Info("weekly question set refreshed", zap.Int("version", set.Version))
	}
}
