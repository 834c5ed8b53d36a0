package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	jsonfileAdapter "scoreboard/adapters/jsonfile"
	mem "scoreboard/adapters/memory"
	redisAdapter "scoreboard/adapters/redis"
	sqlxAdapter "scoreboard/adapters/sqlx"
	wsadapter "scoreboard/adapters/websocket"
	"scoreboard/api/httpapi"
	"scoreboard/config"
	"scoreboard/engine"
	"scoreboard/integrations/webhook"
	"scoreboard/realtime"
	"scoreboard/scoreboard"
)

// App aggregates the assembled server components.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Pool    *realtime.Pool
	Service *engine.Service
	Handler http.Handler
	Server  *http.Server
}

// AccountStore is the relational collaborator behind sign-up and leaderboards.
type AccountStore interface {
	engine.UserStore
	engine.LeaderboardStore
}

type pinger interface {
	Ping(ctx context.Context) error
}

func provideConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	config.ApplySecrets(ctx, cfg, config.NewEnvironmentSecretStore())
	return cfg, nil
}

func provideLogger(cfg *config.Config) *slog.Logger {
	return setupLogging(cfg)
}

func providePool() *realtime.Pool {
	return realtime.NewPool()
}

func provideCache(cfg *config.Config, logger *slog.Logger) (engine.ScoreCache, func(), error) {
	switch cfg.Cache.Adapter {
	case "memory", "":
		return mem.New(), func() {}, nil
	case "redis":
		store, err := redisAdapter.New(cfg.Cache.Redis.RedisAdapterConfig())
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Warn("closing redis cache", "error", err)
			}
		}, nil
	case "file":
		store, err := jsonfileAdapter.New(cfg.Cache.File.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache adapter: %s", cfg.Cache.Adapter)
	}
}

func provideAccountStore(cfg *config.Config, logger *slog.Logger) (AccountStore, func(), error) {
	if cfg.Database.DSN == "" {
		logger.Info("no database configured, keeping accounts in memory")
		return mem.NewAccounts(), func() {}, nil
	}
	store, err := sqlxAdapter.New(cfg.Database.SQLConfig())
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing database", "error", err)
		}
	}, nil
}

func provideWebhook(cfg *config.Config, logger *slog.Logger) *webhook.Sink {
	return webhook.New(cfg.Integrations.WebhookURLs,
		webhook.WithTimeout(cfg.Integrations.WebhookTimeout),
		webhook.WithLogger(logger),
	)
}

func provideService(cfg *config.Config, cache engine.ScoreCache, pool *realtime.Pool, sink *webhook.Sink, logger *slog.Logger) (*engine.Service, func()) {
	mode := engine.DispatchSync
	if cfg.Realtime.AsyncEvents {
		mode = engine.DispatchAsync
	}
	opts := []scoreboard.Option{
		scoreboard.WithCache(cache),
		scoreboard.WithRealtime(pool),
		scoreboard.WithDispatchMode(mode),
		scoreboard.WithLogger(logger),
	}
	if sink.Enabled() {
		opts = append(opts, scoreboard.WithEventSink(sink))
	}
	svc := scoreboard.New(opts...)
	return svc, svc.Close
}

func provideHandler(ctx context.Context, cfg *config.Config, svc *engine.Service, pool *realtime.Pool, accounts AccountStore, logger *slog.Logger) http.Handler {
	checks := map[string]func(context.Context) error{}
	if p, ok := svc.Cache().(pinger); ok {
		checks["redis"] = p.Ping
	}
	if p, ok := accounts.(pinger); ok {
		checks["database"] = p.Ping
	}

	ws := wsadapter.DefaultOptions()
	ws.QueueSize = cfg.Realtime.QueueSize
	ws.WriteTimeout = cfg.Realtime.WriteTimeout
	ws.PingInterval = cfg.Realtime.PingInterval
	ws.PongWait = cfg.Realtime.PongWait
	ws.MaxMessageSize = cfg.Realtime.MaxMessageSize
	ws.Logger = logger
	ws.BaseContext = ctx

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}

	return httpapi.NewMux(svc, pool, httpapi.Options{
		PathPrefix:       cfg.Server.PathPrefix,
		AllowCORSOrigin:  cfg.Server.CORSOrigin,
		APIKeys:          cfg.Security.APIKeys,
		RateLimitEnabled: cfg.Security.EnableRateLimit,
		RateLimitRPM:     cfg.Security.RateLimit.RequestsPerMinute,
		RateLimitBurst:   cfg.Security.RateLimit.BurstSize,
		MetricsPath:      metricsPath,
		Users:            accounts,
		Leaderboards:     accounts,
		HealthChecks:     checks,
		WebSocket:        ws,
		Logger:           logger,
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

	var out io.Writer = os.Stdout
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
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func convertAttributes(attrs map[string]string) []slog.Attr {
	var result []slog.Attr
	for k, v := range attrs {
		result = append(result, slog.String(k, v))
	}
	return result
}
