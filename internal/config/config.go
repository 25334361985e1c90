package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Sources  SourcesConfig  `yaml:"sources"`
	Shorts   ShortsConfig   `yaml:"shorts"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Server   ServerConfig   `yaml:"server"`
}

// DatabaseConfig configures SQLite storage.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ScheduleConfig configures the daemon's scrape interval.
type ScheduleConfig struct {
	ScrapeInterval string `yaml:"scrape_interval"`
}

// ParseScrapeInterval returns the scrape interval as time.Duration.
func (s ScheduleConfig) ParseScrapeInterval() time.Duration {
	d, err := time.ParseDuration(s.ScrapeInterval)
	if err != nil {
		return time.Hour
	}
	return d
}

// SourcesConfig holds configuration for all acquisition strategies.
type SourcesConfig struct {
	Search   SearchConfig   `yaml:"search"`
	Channel  ChannelConfig  `yaml:"channel"`
	Trending TrendingConfig `yaml:"trending"`
}

// SearchConfig for the API keyword-search strategy.
type SearchConfig struct {
	Enabled bool     `yaml:"enabled"`
	APIKey  string   `yaml:"api_key"`
	Queries []string `yaml:"queries"`
	Limit   int      `yaml:"limit"`
}

// ChannelConfig for the channel-enumeration strategy.
type ChannelConfig struct {
	Enabled    bool     `yaml:"enabled"`
	APIKey     string   `yaml:"api_key"`
	ChannelIDs []string `yaml:"channel_ids"`
	Limit      int      `yaml:"limit"`
}

// TrendingConfig for the trending-discovery strategy.
type TrendingConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
	Region  string `yaml:"region"`
	Limit   int    `yaml:"limit"`
}

// ShortsConfig holds the short-form constraints.
type ShortsConfig struct {
	MaxDurationSec float64 `yaml:"max_duration_sec"`
	MinAspectRatio float64 `yaml:"min_aspect_ratio"`
}

// AlertsConfig configures alert destinations and the engagement
// threshold for idea digests.
type AlertsConfig struct {
	MinEngagement float64       `yaml:"min_engagement"`
	Slack         SlackConfig   `yaml:"slack"`
	Discord       DiscordConfig `yaml:"discord"`
	Webhook       WebhookConfig `yaml:"webhook"`
}

// SlackConfig for Slack webhook alerts.
type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// DiscordConfig for Discord webhook alerts.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// WebhookConfig for generic webhook alerts.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Secret  string `yaml:"secret"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./shortscout.db"},
		Schedule: ScheduleConfig{ScrapeInterval: "1h"},
		Sources: SourcesConfig{
			Search: SearchConfig{
				Enabled: false,
				Queries: []string{"shorts", "viral shorts"},
				Limit:   50,
			},
			Channel: ChannelConfig{
				Enabled: false,
				Limit:   50,
			},
			Trending: TrendingConfig{
				Enabled: true,
				Region:  "US",
				Limit:   50,
			},
		},
		Shorts: ShortsConfig{
			MaxDurationSec: 180,
			MinAspectRatio: 1.0,
		},
		Alerts: AlertsConfig{MinEngagement: 0.05},
		Server: ServerConfig{Port: 8080},
	}
}

// Load reads configuration from a YAML file and applies env var overrides.
func Load(path string) (*Config, error) {
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
	if v := os.Getenv("SHORTSCOUT_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("YOUTUBE_API_KEY"); v != "" {
		cfg.Sources.Search.APIKey = v
		cfg.Sources.Channel.APIKey = v
		cfg.Sources.Trending.APIKey = v
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Slack.WebhookURL = v
		cfg.Alerts.Slack.Enabled = true
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Discord.WebhookURL = v
		cfg.Alerts.Discord.Enabled = true
	}
}
