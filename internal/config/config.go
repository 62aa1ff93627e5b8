package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"topicrank/pkg/scoring"
)

// Config is the root configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Providers ProvidersConfig `yaml:"providers"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Server    ServerConfig    `yaml:"server"`
}

// DatabaseConfig configures SQLite storage.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ScheduleConfig configures the batch scoring trigger.
type ScheduleConfig struct {
	// Cron is a standard 5-field cron expression.
	Cron string `yaml:"cron"`
}

// ProvidersConfig holds configuration for the external data sources.
type ProvidersConfig struct {
	OpenAlex  OpenAlexConfig  `yaml:"openalex"`
	Wikipedia WikipediaConfig `yaml:"wikipedia"`
}

// OpenAlexConfig for the citation/works provider.
type OpenAlexConfig struct {
	BaseURL string `yaml:"base_url"`
	Mailto  string `yaml:"mailto"`
}

// WikipediaConfig for the page-view provider.
type WikipediaConfig struct {
	APIURL     string `yaml:"api_url"`
	MetricsURL string `yaml:"metrics_url"`
	Project    string `yaml:"project"`
	UserAgent  string `yaml:"user_agent"`
}

// ScoringConfig configures freshness windows, backoff, and the
// composite weights.
type ScoringConfig struct {
	TotalsTTL string          `yaml:"totals_ttl"`
	RecentTTL string          `yaml:"recent_ttl"`
	ViewsTTL  string          `yaml:"views_ttl"`
	Backoff   string          `yaml:"backoff"`
	Weights   scoring.Weights `yaml:"weights"`
}

// Policy returns the scoring policy with parsed durations.
func (s ScoringConfig) Policy() scoring.Policy {
	p := scoring.DefaultPolicy()
	if d, err := time.ParseDuration(s.TotalsTTL); err == nil && d > 0 {
		p.TotalsTTL = d
	}
	if d, err := time.ParseDuration(s.RecentTTL); err == nil && d > 0 {
		p.RecentTTL = d
	}
	if d, err := time.ParseDuration(s.ViewsTTL); err == nil && d > 0 {
		p.ViewsTTL = d
	}
	if d, err := time.ParseDuration(s.Backoff); err == nil && d > 0 {
		p.Backoff = d
	}
	return p
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./topicrank.db"},
		Schedule: ScheduleConfig{Cron: "0 3 * * *"},
		Providers: ProvidersConfig{
			OpenAlex: OpenAlexConfig{
				BaseURL: "https://api.openalex.org",
			},
			Wikipedia: WikipediaConfig{
				APIURL:     "https://en.wikipedia.org/w/api.php",
				MetricsURL: "https://wikimedia.org/api/rest_v1",
				Project:    "en.wikipedia",
				UserAgent:  "topicrank/1.0",
			},
		},
		Scoring: ScoringConfig{
			TotalsTTL: "168h",
			RecentTTL: "72h",
			ViewsTTL:  "24h",
			Backoff:   "24h",
			Weights:   scoring.DefaultWeights(),
		},
		Server: ServerConfig{Port: 8080},
	}
}

// Load reads configuration from a YAML file and applies env var
// overrides. A .env file in the working directory is picked up first.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TOPICRANK_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("TOPICRANK_CRON"); v != "" {
		cfg.Schedule.Cron = v
	}
	if v := os.Getenv("OPENALEX_MAILTO"); v != "" {
		cfg.Providers.OpenAlex.Mailto = v
	}
	if v := os.Getenv("TOPICRANK_USER_AGENT"); v != "" {
		cfg.Providers.Wikipedia.UserAgent = v
	}
}
