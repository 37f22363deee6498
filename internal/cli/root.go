package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ogulcanaydogan/FareWatch/internal/config"
	"github.com/ogulcanaydogan/FareWatch/pkg/alerts"
	"github.com/ogulcanaydogan/FareWatch/pkg/clock"
	"github.com/ogulcanaydogan/FareWatch/pkg/fetcher"
	"github.com/ogulcanaydogan/FareWatch/pkg/metrics"
	"github.com/ogulcanaydogan/FareWatch/pkg/model"
	"github.com/ogulcanaydogan/FareWatch/pkg/monitor"
	"github.com/ogulcanaydogan/FareWatch/pkg/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	cfgFile      string
	userID       string
	platform     string
	notifyTarget string
)

var rootCmd = &cobra.Command{
	Use:   "farewatch",
	Short: "FareWatch - flight price monitoring and alerts",
	Long: `FareWatch tracks one-way flight prices for the routes and dates you care about.
It re-checks every active alert on a schedule, keeps a price history, and notifies
you when a fare reaches your target or drops more than 5% since the last check.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.farewatch/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "external user id (default from config)")
	rootCmd.PersistentFlags().StringVar(&platform, "platform", "", "platform the user id belongs to (default from config)")
	rootCmd.PersistentFlags().StringVar(&notifyTarget, "notify", "", "where this user's alerts are delivered, e.g. #deals or discord:1234")
}

// loadConfig loads the configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// newLogger creates a structured logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// initFetcher creates the configured price provider.
func initFetcher(cfg *config.Config) (fetcher.PriceFetcher, error) {
	switch cfg.Fetcher.Provider {
	case "serpapi":
		if cfg.Fetcher.SerpAPI.APIKey == "" {
			return nil, fmt.Errorf("fetcher.serpapi.api_key is required (set FW_FETCHER_SERPAPI_API_KEY)")
		}
		return fetcher.NewSerpAPI(
			cfg.Fetcher.SerpAPI.BaseURL,
			cfg.Fetcher.SerpAPI.APIKey,
			cfg.Fetcher.SerpAPI.Currency,
			config.Duration(cfg.Fetcher.SerpAPI.Timeout, 20*time.Second),
		), nil
	case "static":
		f, err := fetcher.NewStaticFromFile(cfg.Fetcher.Static.Path)
		if err != nil {
			return nil, fmt.Errorf("load static fares: %w", err)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unknown fetcher provider %q (want serpapi or static)", cfg.Fetcher.Provider)
	}
}

// initNotifiers creates alert notifiers from config.
func initNotifiers(cfg *config.Config) []alerts.Notifier {
	var notifiers []alerts.Notifier

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alerts.NewSlackNotifier(
			cfg.Alerts.Slack.WebhookURL,
			cfg.Alerts.Slack.Channel,
		))
	}

	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alerts.NewWebhookNotifier(
			cfg.Alerts.Webhook.URL,
			cfg.Alerts.Webhook.Secret,
		))
	}

	if cfg.Alerts.Discord.Enabled && cfg.Alerts.Discord.WebhookURL != "" {
		notifiers = append(notifiers, alerts.NewDiscordNotifier(
			cfg.Alerts.Discord.WebhookURL,
			cfg.Alerts.Discord.Username,
		))
	}

	if cfg.Alerts.Email.Enabled && cfg.Alerts.Email.Host != "" && cfg.Alerts.Email.From != "" {
		notifiers = append(notifiers, alerts.NewEmailNotifier(alerts.EmailConfig{
			Host:     cfg.Alerts.Email.Host,
			Port:     cfg.Alerts.Email.Port,
			Username: cfg.Alerts.Email.Username,
			Password: cfg.Alerts.Email.Password,
			From:     cfg.Alerts.Email.From,
			To:       cfg.Alerts.Email.To,
		}))
	}

	return notifiers
}

// app bundles the wired components a command needs.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     storage.Storage
	registry  *prometheus.Registry
	scheduler *monitor.Scheduler
	service   *monitor.Service
	closers   []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close", "error", err)
		}
	}
}

// initApp wires storage, fetchers, notifiers, metrics and the monitor service.
func initApp(cfg *config.Config) (*app, error) {
	logger := newLogger(cfg)

	f, err := initFetcher(cfg)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLite(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	a := &app{cfg: cfg, logger: logger, store: store, closers: []func() error{store.Close}}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		a.registry = prometheus.NewRegistry()
		m = metrics.New(cfg.Metrics.Namespace, a.registry)
	}

	// Only search reads through the cache so scheduled checks always see live prices.
	var searcher fetcher.PriceFetcher
	if cfg.Cache.Enabled {
		client := fetcher.NewRedisClient(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		cached := fetcher.NewCached(f, client, config.Duration(cfg.Cache.TTL, 15*time.Minute), logger)
		a.closers = append(a.closers, cached.Close)
		searcher = cached
	}

	a.scheduler = monitor.NewScheduler(store, f, initNotifiers(cfg), m, clock.Real{},
		monitor.SchedulerConfig{
			Interval:     config.Duration(cfg.Scheduler.Interval, monitor.DefaultInterval),
			AlertTimeout: config.Duration(cfg.Scheduler.AlertTimeout, monitor.DefaultAlertTimeout),
		}, logger)
	a.service = monitor.NewService(store, a.scheduler, searcher, cfg.Search.Concurrency, logger)
	return a, nil
}

// resolveCaller maps the --user/--platform/--notify flags to an owner.
func resolveCaller(ctx context.Context, a *app) (*model.Owner, error) {
	user := userID
	if user == "" {
		user = a.cfg.Defaults.User
	}
	if user == "" {
		return nil, fmt.Errorf("no user given: pass --user or set defaults.user")
	}
	p := platform
	if p == "" {
		p = a.cfg.Defaults.Platform
	}
	return a.service.ResolveOwner(ctx, p, user, notifyTarget)
}

func formatPrice(p *float64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("$%.2f", *p)
}
