package storage

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Crawler struct {
		CycleInterval time.Duration `yaml:"cycle_interval"`
		SourcePause   time.Duration `yaml:"source_pause"`
		InitialDelay  time.Duration `yaml:"initial_delay"`
		MachineID     int64         `yaml:"machine_id"`
	} `yaml:"crawler"`

	Reddit struct {
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		UserAgent    string `yaml:"user_agent"`
	} `yaml:"reddit"`

	Sources []SourceConfig `yaml:"sources"`
	Tags    []TagConfig    `yaml:"tags"`
}

// SourceConfig is one crawl source entry in the config file. Offsets spread
// sources across the shared ten-minute cycle.
type SourceConfig struct {
	Name            string `yaml:"name"`
	URL             string `yaml:"url"`
	Adapter         string `yaml:"adapter"`
	IntervalMinutes int    `yaml:"interval_minutes"`
	OffsetMinutes   int    `yaml:"offset_minutes"`
}

// TagConfig seeds one entry of the tag vocabulary.
type TagConfig struct {
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
}

// DefaultConfig returns a config with sensible defaults, including the
// default source list and tag vocabulary.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Database.Path = "./newshub.db"
	cfg.Server.Addr = ":8080"
	cfg.Crawler.CycleInterval = time.Minute
	cfg.Crawler.SourcePause = 5 * time.Second
	cfg.Crawler.InitialDelay = 10 * time.Second
	cfg.Crawler.MachineID = 1
	cfg.Reddit.UserAgent = "newshub/1.0"

	cfg.Sources = []SourceConfig{
		{Name: "Anthropic Blog", URL: "https://www.anthropic.com/news", Adapter: "scrape", IntervalMinutes: 10, OffsetMinutes: 0},
		{Name: "OpenAI Blog", URL: "https://openai.com/blog", Adapter: "scrape", IntervalMinutes: 10, OffsetMinutes: 2},
		{Name: "r/MachineLearning", URL: "https://reddit.com/r/MachineLearning", Adapter: "reddit", IntervalMinutes: 10, OffsetMinutes: 4},
		{Name: "r/LocalLLaMA", URL: "https://reddit.com/r/LocalLLaMA", Adapter: "reddit", IntervalMinutes: 10, OffsetMinutes: 6},
		{Name: "Hacker News", URL: "https://news.ycombinator.com", Adapter: "hackernews", IntervalMinutes: 10, OffsetMinutes: 8},
		{Name: "Hugging Face Blog", URL: "https://huggingface.co/blog/feed.xml", Adapter: "rss", IntervalMinutes: 10, OffsetMinutes: 5},
	}

	cfg.Tags = []TagConfig{
		{Name: "Claude", Category: "Model"},
		{Name: "GPT", Category: "Model"},
		{Name: "Gemini", Category: "Model"},
		{Name: "Llama", Category: "Model"},
		{Name: "LLM", Category: "Concept"},
		{Name: "MCP", Category: "Concept"},
		{Name: "RAG", Category: "Concept"},
		{Name: "Agent", Category: "Concept"},
		{Name: "Fine-tuning", Category: "Technique"},
		{Name: "RLHF", Category: "Technique"},
		{Name: "Quantization", Category: "Technique"},
		{Name: "Transformer", Category: "Architecture"},
		{Name: "Embedding", Category: "Concept"},
		{Name: "Prompt", Category: "Concept"},
		{Name: "Benchmark", Category: "Evaluation"},
		{Name: "Safety", Category: "Policy"},
		{Name: "Alignment", Category: "Policy"},
		{Name: "Open Source", Category: "Ecosystem"},
	}

	return cfg
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
