package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all FareWatch configuration.
type Config struct {
	Storage   StorageConfig   `mapstructure:"storage"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Fetcher   FetcherConfig   `mapstructure:"fetcher"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Search    SearchConfig    `mapstructure:"search"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
	Server    ServerConfig    `mapstructure:"server"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Defaults  DefaultsConfig  `mapstructure:"defaults"`
}

// StorageConfig defines database settings.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// SchedulerConfig defines the periodic price sweep.
type SchedulerConfig struct {
	Interval     string `mapstructure:"interval"`
	AlertTimeout string `mapstructure:"alert_timeout"`
}

// FetcherConfig selects and configures the price provider.
type FetcherConfig struct {
	Provider string        `mapstructure:"provider"`
	SerpAPI  SerpAPIConfig `mapstructure:"serpapi"`
	Static   StaticConfig  `mapstructure:"static"`
}

// SerpAPIConfig defines the Google Flights provider.
type SerpAPIConfig struct {
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
	Currency string `mapstructure:"currency"`
	Timeout  string `mapstructure:"timeout"`
}

// StaticConfig points at a YAML fare fixture.
type StaticConfig struct {
	Path string `mapstructure:"path"`
}

// CacheConfig defines the Redis quote cache used by search.
type CacheConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	TTL           string `mapstructure:"ttl"`
}

// SearchConfig defines search fan-out.
type SearchConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// AlertsConfig defines notification integrations.
type AlertsConfig struct {
	Slack   SlackConfig   `mapstructure:"slack"`
	Webhook WebhookConfig `mapstructure:"webhook"`
	Discord DiscordConfig `mapstructure:"discord"`
	Email   EmailConfig   `mapstructure:"email"`
}

// SlackConfig defines Slack webhook settings.
type SlackConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
}

// WebhookConfig defines generic webhook settings.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Secret  string `mapstructure:"secret"`
}

// DiscordConfig defines Discord webhook settings.
type DiscordConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
	Username   string `mapstructure:"username"`
}

// EmailConfig defines SMTP delivery settings.
type EmailConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Host     string   `mapstructure:"host"`
	Port     int      `mapstructure:"port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// ServerConfig defines the HTTP API.
type ServerConfig struct {
	Listen       string `mapstructure:"listen"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	CronSecret   string `mapstructure:"cron_secret"`
}

// MetricsConfig defines prometheus exposition.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultsConfig defines the identity used by the CLI when no flags are given.
type DefaultsConfig struct {
	Platform string `mapstructure:"platform"`
	User     string `mapstructure:"user"`
}

// Load reads configuration from .env, the config file and FW_ environment variables.
func Load(cfgFile string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".farewatch"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Defaults
	home, _ := os.UserHomeDir()
	v.SetDefault("storage.path", filepath.Join(home, ".farewatch", "farewatch.db"))
	v.SetDefault("scheduler.interval", "360m")
	v.SetDefault("scheduler.alert_timeout", "30s")
	v.SetDefault("fetcher.provider", "serpapi")
	v.SetDefault("fetcher.serpapi.api_key", "")
	v.SetDefault("fetcher.serpapi.base_url", "https://serpapi.com/search.json")
	v.SetDefault("fetcher.serpapi.currency", "USD")
	v.SetDefault("fetcher.serpapi.timeout", "20s")
	v.SetDefault("fetcher.static.path", "fares.yaml")
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.ttl", "15m")
	v.SetDefault("search.concurrency", 4)
	v.SetDefault("alerts.slack.channel", "#flight-deals")
	v.SetDefault("alerts.discord.username", "FareWatch")
	v.SetDefault("alerts.email.enabled", false)
	v.SetDefault("alerts.email.host", "")
	v.SetDefault("alerts.email.port", 587)
	v.SetDefault("alerts.email.username", "")
	v.SetDefault("alerts.email.password", "")
	v.SetDefault("alerts.email.from", "")
	v.SetDefault("alerts.email.to", []string{})
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "150s")
	v.SetDefault("server.cron_secret", "")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "farewatch")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("defaults.platform", "cli")
	v.SetDefault("defaults.user", "")

	// Environment variables
	v.SetEnvPrefix("FW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Duration parses s, returning fallback when s is empty or malformed.
func Duration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
