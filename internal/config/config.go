package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Dedup     DedupConfig     `yaml:"dedup"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Translate TranslateConfig `yaml:"translate"`
	Delivery  DeliveryConfig  `yaml:"delivery"`
	Server    ServerConfig    `yaml:"server"`
	Filter    FilterConfig    `yaml:"filter"`
	Groups    []GroupConfig   `yaml:"groups"`
}

// DedupConfig configures the persisted seen-articles snapshot.
type DedupConfig struct {
	Path       string `yaml:"path"`
	MaxEntries int    `yaml:"max_entries"`
}

// ArchiveConfig configures the delivered-articles SQLite archive.
type ArchiveConfig struct {
	Path string `yaml:"path"`
}

// TelegramConfig for the Telegram delivery target.
type TelegramConfig struct {
	Enabled   bool   `yaml:"enabled"`
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
	FollowTag string `yaml:"follow_tag"`
}

// WebhookConfig for the generic webhook delivery target.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Secret  string `yaml:"secret"`
}

// TranslateConfig for the Arabic translation collaborator.
type TranslateConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
}

// DeliveryConfig tunes retry, throttling and circuit breaking.
type DeliveryConfig struct {
	MaxRetries       int    `yaml:"max_retries"`
	BackoffBase      string `yaml:"backoff_base"`
	ThrottleInterval string `yaml:"throttle_interval"`
	BreakerThreshold int    `yaml:"breaker_threshold"`
	BreakerCooldown  string `yaml:"breaker_cooldown"`
}

// ParseBackoffBase returns the retry backoff base as time.Duration.
func (d DeliveryConfig) ParseBackoffBase() time.Duration {
	v, err := time.ParseDuration(d.BackoffBase)
	if err != nil {
		return time.Second
	}
	return v
}

// ParseThrottleInterval returns the minimum delay between deliveries.
func (d DeliveryConfig) ParseThrottleInterval() time.Duration {
	v, err := time.ParseDuration(d.ThrottleInterval)
	if err != nil {
		return 6 * time.Second
	}
	return v
}

// ParseBreakerCooldown returns the circuit breaker cool-down.
func (d DeliveryConfig) ParseBreakerCooldown() time.Duration {
	v, err := time.ParseDuration(d.BreakerCooldown)
	if err != nil {
		return time.Minute
	}
	return v
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// FilterConfig configures relevance filtering and freshness tolerances.
type FilterConfig struct {
	ExtraKeywords    []string          `yaml:"extra_keywords"`
	ExcludeKeywords  []string          `yaml:"exclude_keywords"`
	DefaultTolerance string            `yaml:"default_tolerance"`
	Tolerances       map[string]string `yaml:"tolerances"`
	FutureSkew       string            `yaml:"future_skew"`
}

// ParseDefaultTolerance returns the default freshness window.
func (f FilterConfig) ParseDefaultTolerance() time.Duration {
	v, err := time.ParseDuration(f.DefaultTolerance)
	if err != nil {
		return 3 * time.Hour
	}
	return v
}

// ParseTolerances returns per-section freshness windows, skipping entries
// that fail to parse.
func (f FilterConfig) ParseTolerances() map[string]time.Duration {
	out := make(map[string]time.Duration, len(f.Tolerances))
	for section, raw := range f.Tolerances {
		if v, err := time.ParseDuration(raw); err == nil {
			out[section] = v
		}
	}
	return out
}

// ParseFutureSkew returns the tolerated future publish-time skew.
func (f FilterConfig) ParseFutureSkew() time.Duration {
	v, err := time.ParseDuration(f.FutureSkew)
	if err != nil {
		return 30 * time.Minute
	}
	return v
}

// GroupConfig is one independently-scheduled source group.
type GroupConfig struct {
	Name             string     `yaml:"name"`
	Kind             string     `yaml:"kind"` // "rss" or "html"
	Section          string     `yaml:"section"`
	Interval         string     `yaml:"interval"`
	EnforceFreshness bool       `yaml:"enforce_freshness"`
	MaxPerCycle      int        `yaml:"max_per_cycle"`
	Feeds            []FeedItem `yaml:"feeds"`     // rss groups
	URL              string     `yaml:"url"`       // html groups
	Selectors        []string   `yaml:"selectors"` // html groups, optional
}

// FeedItem is a single RSS feed entry.
type FeedItem struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// ParseInterval returns the group's poll interval as time.Duration.
func (g GroupConfig) ParseInterval() time.Duration {
	d, err := time.ParseDuration(g.Interval)
	if err != nil {
		return 15 * time.Minute
	}
	return d
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Dedup:   DedupConfig{Path: "./seen_articles.json", MaxEntries: 1000},
		Archive: ArchiveConfig{Path: "./newsbot.db"},
		Telegram: TelegramConfig{
			Enabled: true,
		},
		Translate: TranslateConfig{
			BaseURL: "https://api.groq.com/openai/v1",
			Model:   "llama-3.3-70b-versatile",
		},
		Delivery: DeliveryConfig{
			MaxRetries:       3,
			BackoffBase:      "1s",
			ThrottleInterval: "6s",
			BreakerThreshold: 5,
			BreakerCooldown:  "1m",
		},
		Server: ServerConfig{Port: 8080},
		Filter: FilterConfig{
			DefaultTolerance: "3h",
			Tolerances:       map[string]string{"crypto": "4h"},
			FutureSkew:       "30m",
		},
		Groups: []GroupConfig{
			{
				Name:             "crypto-feeds",
				Kind:             "rss",
				Section:          "crypto",
				Interval:         "15m",
				EnforceFreshness: true,
				MaxPerCycle:      5,
				Feeds: []FeedItem{
					{Name: "CoinDesk", URL: "https://www.coindesk.com/arc/outboundfeeds/rss/"},
					{Name: "Cointelegraph", URL: "https://cointelegraph.com/rss"},
					{Name: "Decrypt", URL: "https://decrypt.co/feed"},
				},
			},
			{
				Name:             "market-feeds",
				Kind:             "rss",
				Section:          "stocks",
				Interval:         "20m",
				EnforceFreshness: true,
				MaxPerCycle:      5,
				Feeds: []FeedItem{
					{Name: "MarketWatch", URL: "https://feeds.content.dowjones.io/public/rss/mw_topstories"},
					{Name: "CNBC Markets", URL: "https://www.cnbc.com/id/100003114/device/rss/rss.html"},
				},
			},
		},
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
	if v := os.Getenv("NEWSBOT_DB_PATH"); v != "" {
		cfg.Archive.Path = v
	}
	if v := os.Getenv("NEWSBOT_SEEN_PATH"); v != "" {
		cfg.Dedup.Path = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHANNEL_ID"); v != "" {
		cfg.Telegram.ChannelID = v
	}
	if v := os.Getenv("WEBHOOK_URL"); v != "" {
		cfg.Webhook.URL = v
		cfg.Webhook.Enabled = true
	}
	if v := os.Getenv("WEBHOOK_SECRET"); v != "" {
		cfg.Webhook.Secret = v
	}
	if v := os.Getenv("GROQ_API_KEY"); v != "" {
		cfg.Translate.APIKey = v
		cfg.Translate.Enabled = true
	}
}

// Validate reports startup configuration errors. These are fatal: the CLI
// exits non-zero before any network activity.
func (c *Config) Validate() error {
	if !c.Telegram.Enabled && !c.Webhook.Enabled {
		return fmt.Errorf("no delivery target enabled: set telegram or webhook")
	}
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram enabled but bot_token is empty (set TELEGRAM_BOT_TOKEN)")
		}
		if c.Telegram.ChannelID == "" {
			return fmt.Errorf("telegram enabled but channel_id is empty (set TELEGRAM_CHANNEL_ID)")
		}
	}
	if c.Webhook.Enabled && c.Webhook.URL == "" {
		return fmt.Errorf("webhook enabled but url is empty")
	}
	if len(c.Groups) == 0 {
		return fmt.Errorf("no source groups configured")
	}
	for _, g := range c.Groups {
		switch g.Kind {
		case "rss":
			if len(g.Feeds) == 0 {
				return fmt.Errorf("group %q: rss group has no feeds", g.Name)
			}
		case "html":
			if g.URL == "" {
				return fmt.Errorf("group %q: html group has no url", g.Name)
			}
		default:
			return fmt.Errorf("group %q: unknown kind %q", g.Name, g.Kind)
		}
	}
	return nil
}
