package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ainewshub/ainewshub"
	"github.com/ainewshub/ainewshub/internal/storage"
)

var (
	configPath string
	cfg        *storage.Config
	logger     *zap.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "newshub",
		Short: "AI news aggregator - crawls, classifies, and serves personalized AI news",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(); err != nil {
				return err
			}
			var err error
			logger, err = zap.NewProduction()
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (default: ./config/config.yaml)")

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(initConfigCmd())
	rootCmd.AddCommand(crawlCmd())
	rootCmd.AddCommand(daemonCmd())
	rootCmd.AddCommand(refreshQuestionsCmd())
	rootCmd.AddCommand(digestCmd())
	rootCmd.AddCommand(userCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() error {
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg = storage.DefaultConfig()
		return nil
	}

	loaded, err := storage.LoadConfig(configPath)
	if err != nil {
		return err
	}
	cfg = loaded
	return nil
}

func openEngine() (*ainewshub.Engine, error) {
	return ainewshub.NewEngine(ainewshub.EngineConfig{
		DBPath:             cfg.Database.Path,
		MachineID:          cfg.Crawler.MachineID,
		SourcePause:        cfg.Crawler.SourcePause,
		RedditClientID:     cfg.Reddit.ClientID,
		RedditClientSecret: cfg.Reddit.ClientSecret,
		RedditUserAgent:    cfg.Reddit.UserAgent,
	}, logger)
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database and seed tags, sources, and the initial question set",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine()
			if err != nil {
				return fmt.Errorf("open engine: %w", err)
			}
			defer engine.Close()

			if err := engine.Seed(cfg); err != nil {
				return fmt.Errorf("seed: %w", err)
			}

			fmt.Printf("Initialized %s with %d tags and %d sources\n",
				cfg.Database.Path, len(cfg.Tags), len(cfg.Sources))
			return nil
		},
	}
}

func initConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config",
		Short: "Create a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(configPath); err == nil {
				return fmt.Errorf("config file already exists: %s", configPath)
			}
			if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}

			data, err := yaml.Marshal(storage.DefaultConfig())
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			if err := os.WriteFile(configPath, data, 0644); err != nil {
				return fmt.Errorf("write config: %w", err)
			}

			fmt.Printf("Created default config at %s\n", configPath)
			return nil
		},
	}
}

func crawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Run one crawl-and-classify cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine()
			if err != nil {
				return fmt.Errorf("open engine: %w", err)
			}
			defer engine.Close()

			stats, err := engine.CrawlOnce(context.Background())
			if err != nil {
				return err
			}

			fmt.Printf("Stored %d new articles, classified %d\n",
				stats.ArticlesStored, stats.ArticlesClassified)
			return nil
		},
	}
}

func refreshQuestionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh-questions",
		Short: "Build and activate a new question set from the last week of articles",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine()
			if err != nil {
				return fmt.Errorf("open engine: %w", err)
			}
			defer engine.Close()

			set, err := engine.RefreshQuestionSet()
			if err != nil {
				return err
			}

			fmt.Printf("Activated question set v%d with %d questions\n",
				set.Version, len(set.Questions))
			return nil
		},
	}
}

func digestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "digest",
		Short: "Build the daily digest selection and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine()
			if err != nil {
				return fmt.Errorf("open engine: %w", err)
			}
			defer engine.Close()

			digest, err := engine.BuildDigest()
			if err != nil {
				return err
			}

			for _, level := range []ainewshub.Level{ainewshub.LevelBeginner, ainewshub.LevelIntermediate, ainewshub.LevelAdvanced} {
				fmt.Printf("%s:\n", level)
				for _, article := range digest[level] {
					fmt.Printf("  %s\n  %s\n", article.Title, article.URL)
				}
			}
			return nil
		},
	}
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User management",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Register a new user and print its snowflake ID",
		RunE: func(c *cobra.Command, args []string) error {
			engine, err := openEngine()
			if err != nil {
				return fmt.Errorf("open engine: %w", err)
			}
			defer engine.Close()

			user, err := engine.InitUser()
			if err != nil {
				return err
			}
			fmt.Printf("Created user %d (level %s)\n", user.SnowflakeID, user.Level)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <snowflake-id>",
		Short: "Show a user by snowflake ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			var id int64
			if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
				return fmt.Errorf("invalid snowflake ID: %w", err)
			}

			engine, err := openEngine()
			if err != nil {
				return fmt.Errorf("open engine: %w", err)
			}
			defer engine.Close()

			user, err := engine.GetUser(id)
			if err != nil {
				return err
			}
			fmt.Printf("User %d: level %s, %d tests taken\n",
				user.SnowflakeID, user.Level, user.TestCount)
			return nil
		},
	})

	return cmd
}
