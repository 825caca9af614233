package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	jsonfileAdapter "receiptkit/adapters/jsonfile"
	mem "receiptkit/adapters/memory"
	redisAdapter "receiptkit/adapters/redis"
	sqlxAdapter "receiptkit/adapters/sqlx"
	"receiptkit/analytics"
	"receiptkit/api/httpapi"
	"receiptkit/config"
	"receiptkit/core"
	"receiptkit/engine"
	"receiptkit/integrations/webhook"
	"receiptkit/leaderboard"
	"receiptkit/realtime"
	"receiptkit/receipts"
	"receiptkit/rulesdoc"
)

// App aggregates the assembled server components.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Hub     *realtime.Hub
	Metrics *analytics.Metrics
	Tracker *leaderboard.Tracker
	Service *engine.Service
	Handler http.Handler
	Server  *http.Server
}

func provideConfig(ctx context.Context) (*config.Config, error) {
	if path := os.Getenv("RECEIPTKIT_CONFIG_FILE"); path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func provideLogger(cfg *config.Config) *slog.Logger {
	return setupLogging(cfg)
}

func provideHub() *realtime.Hub {
	return realtime.NewHub()
}

func provideMetrics() *analytics.Metrics {
	return analytics.NewMetrics()
}

func provideTracker() *leaderboard.Tracker {
	return leaderboard.NewTracker(leaderboard.NewSkipList())
}

func provideStorage(ctx context.Context, cfg *config.Config) (engine.Storage, error) {
	return setupStorage(ctx, cfg)
}

func provideRules(ctx context.Context, cfg *config.Config, storage engine.Storage) (core.RuleSet, error) {
	return setupRules(ctx, cfg, storage)
}

func provideService(cfg *config.Config, hub *realtime.Hub, storage engine.Storage, rules core.RuleSet, metrics *analytics.Metrics, tracker *leaderboard.Tracker) *engine.Service {
	opts := []receipts.Option{
		receipts.WithRealtime(hub),
		receipts.WithStorage(storage),
		receipts.WithRules(rules),
		receipts.WithAnalytics(metrics),
		receipts.WithLeaderboard(tracker),
		receipts.WithDispatchMode(engine.DispatchAsync),
		receipts.WithEventTuning(cfg.Events.QueueSize, cfg.Events.Workers),
	}
	if len(cfg.Integrations.WebhookURLs) > 0 {
		opts = append(opts, receipts.WithWebhook(webhook.New(cfg.Integrations.WebhookURLs)))
	}
	return receipts.New(opts...)
}

func provideHandler(svc *engine.Service, hub *realtime.Hub, cfg *config.Config) http.Handler {
	return httpapi.NewMux(svc, hub, httpapi.Options{
		PathPrefix:       cfg.Server.PathPrefix,
		AllowCORSOrigin:  cfg.Server.CORSOrigin,
		APIKeys:          cfg.Security.APIKeys,
		RateLimitEnabled: cfg.Security.EnableRateLimit,
		RateLimitRPM:     cfg.Security.RateLimit.RequestsPerMinute,
		RateLimitBurst:   cfg.Security.RateLimit.BurstSize,
	})
}

func provideServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

// setupLogging configures the logger based on configuration.
func setupLogging(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	out := os.Stdout
	if cfg.Logging.Output == "stderr" {
		out = os.Stderr
	}

	switch cfg.Logging.Format {
	case "text":
		handler = slog.NewTextHandler(out, opts)
	default:
		handler = slog.NewJSONHandler(out, opts)
	}

	if len(cfg.Logging.Attributes) > 0 {
		handler = handler.WithAttrs(convertAttributes(cfg.Logging.Attributes))
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// convertAttributes converts map[string]string to []slog.Attr.
func convertAttributes(attrs map[string]string) []slog.Attr {
	var result []slog.Attr
	for k, v := range attrs {
		result = append(result, slog.String(k, v))
	}
	return result
}

// setupStorage creates the appropriate storage adapter based on configuration.
func setupStorage(ctx context.Context, cfg *config.Config) (engine.Storage, error) {
	switch cfg.Storage.Adapter {
	case "memory":
		return mem.New(), nil
	case "redis":
		return redisAdapter.New(cfg.Storage.Redis)
	case "sql":
		store, err := sqlxAdapter.New(cfg.Storage.SQL)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case "file":
		return jsonfileAdapter.New(cfg.Storage.File.Path)
	default:
		return nil, fmt.Errorf("unknown storage adapter: %s", cfg.Storage.Adapter)
	}
}

// setupRules resolves the initial rule set. A document persisted in storage
// by a previous rules update wins over the configured file, which wins over
// the built-in defaults.
func setupRules(ctx context.Context, cfg *config.Config, storage engine.Storage) (core.RuleSet, error) {
	if store, ok := storage.(engine.RulesStore); ok {
		raw, err := store.LoadRules(ctx)
		switch {
		case err == nil:
			rs, perr := rulesdoc.Parse(raw)
			if perr != nil {
				return core.RuleSet{}, fmt.Errorf("stored rule document is invalid: %w", perr)
			}
			slog.Info("loaded rules from storage", "rules", len(rs.Rules))
			return rs, nil
		case errors.Is(err, core.ErrRulesNotFound):
			// fall through to file / defaults
		default:
			return core.RuleSet{}, err
		}
	}

	if cfg.Rules.Path != "" {
		rs, err := rulesdoc.LoadFile(cfg.Rules.Path)
		if err != nil {
			return core.RuleSet{}, fmt.Errorf("rules file %s: %w", cfg.Rules.Path, err)
		}
		slog.Info("loaded rules from file", "path", cfg.Rules.Path, "rules", len(rs.Rules))
		return rs, nil
	}

	return rulesdoc.Default(), nil
}
