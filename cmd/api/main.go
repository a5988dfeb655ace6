// Package main is the entrypoint for the linkbio analytics API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/linkbio/linkbio/internal/analytics"
	"github.com/linkbio/linkbio/internal/cache"
	"github.com/linkbio/linkbio/internal/config"
	"github.com/linkbio/linkbio/internal/eventstore"
	"github.com/linkbio/linkbio/internal/handler"
	"github.com/linkbio/linkbio/internal/metrics"
	"github.com/linkbio/linkbio/internal/middleware"
	"github.com/linkbio/linkbio/internal/model"
	"github.com/linkbio/linkbio/internal/repository"
	"github.com/linkbio/linkbio/internal/server"
	"github.com/linkbio/linkbio/internal/tracking"
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Initialize database
	repo, err := repository.New(ctx, repository.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: int32(cfg.DBMaxConns),
		MinConns: int32(cfg.DBMinConns),
	})
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	// Initialize cache
	cacheClient, err := cache.New(ctx, cache.Config{
		URL:          cfg.RedisURL,
		PoolSize:     cfg.RedisPoolSize,
		MinIdleConns: cfg.RedisMinIdleConns,
	})
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	metricsRecorder := metrics.NewInMemory()

	// Initialize the event store client. The service starts fine
	// without one; tracking degrades to log-only and analytics to
	// empty results.
	var appender tracking.Appender
	var rowSource analytics.RowSource
	if cfg.SinkConfigured() {
		storeClient, err := eventstore.New(eventstore.Config{
			Host:    cfg.SinkHost,
			Token:   cfg.SinkToken,
			Source:  cfg.SinkSourceName,
			Timeout: cfg.SinkTimeout,
		})
		if err != nil {
			logger.Error("failed to initialize event store client", "error", err)
			os.Exit(1)
		}
		appender = storeClient
		rowSource = storeClient
		logger.Info("event store configured", "source", cfg.SinkSourceName)
	} else {
		logger.Warn("event store not configured, running in degraded mode")
	}

	// Initialize the write path
	sink := tracking.NewSink(appender, cfg.SinkTimeout, metricsRecorder, logger)
	resolver := tracking.NewResolver(repo, cacheClient, metricsRecorder, logger)

	// Initialize the read path
	engine := analytics.NewEngine(rowSource, cfg.AnalyticsLookbackDays, metricsRecorder, logger)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(repo, cacheClient)
	trackHandler := handler.NewTrackHandler(resolver, sink, cfg.MaxRequestBodySize, metricsRecorder, logger)
	analyticsHandler := handler.NewAnalyticsHandler(engine, metricsRecorder, logger)
	linksHandler := handler.NewLinksHandler(repo, logger)
	adminHandler := handler.NewAdminHandler(cacheClient, logger)
	metricsHandler := handler.NewMetricsHandler(metricsRecorder)

	// Setup router
	r := setupRouter(routerDeps{
		health:    healthHandler,
		track:     trackHandler,
		analytics: analyticsHandler,
		links:     linksHandler,
		admin:     adminHandler,
		metrics:   metricsHandler,
		repo:      repo,
		cache:     cacheClient,
		recorder:  metricsRecorder,
	}, cfg, logger)

	// Create and run server
	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"lookback_days", cfg.AnalyticsLookbackDays,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
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

// routerDeps bundles the handlers and shared clients the router needs.
type routerDeps struct {
	health    *handler.HealthHandler
	track     *handler.TrackHandler
	analytics *handler.AnalyticsHandler
	links     *handler.LinksHandler
	admin     *handler.AdminHandler
	metrics   *handler.MetricsHandler
	repo      *repository.Repository
	cache     *cache.Cache
	recorder  metrics.Recorder
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(deps routerDeps, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()
	r.Use(middleware.CORS(corsCfg))

	// Health endpoints (no auth required)
	r.Get("/healthz", deps.health.Healthz)
	r.Get("/readyz", deps.health.Readyz)

	// Root info endpoint
	r.Get("/", handler.Hello)

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:  logger,
		Limiter: deps.cache,
		Metrics: deps.recorder,
		Enabled: cfg.RateLimitTrackEnabled,
		RPS:     cfg.RateLimitTrackRPS,
		Burst:   cfg.RateLimitTrackBurst,
	}

	// Public tracking endpoint, rate limited per IP (no auth required)
	r.With(middleware.RateLimitTrack(rateLimitCfg)).Post("/api/track-click", deps.track.Track)

	authCfg := middleware.AuthConfig{
		Logger:     logger,
		Repository: deps.repo,
		Cache:      deps.cache,
	}

	// Dashboard API (requires authentication)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(authCfg))

		r.Route("/analytics", func(r chi.Router) {
			r.Use(middleware.RequireScope(model.ScopeAnalytics))
			r.Get("/", deps.analytics.GetSummary)
			r.Get("/{linkID}", deps.analytics.GetLinkSummary)
		})

		r.With(middleware.RequireScope(model.ScopeAnalytics)).Get("/links", deps.links.List)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireScope(model.ScopeAdmin))
			r.Delete("/cache/owners/{username}", deps.admin.InvalidateOwner)
		})

		r.With(middleware.RequireScope(model.ScopeAdmin)).Get("/debug/metrics", deps.metrics.Snapshot)
	})

	// 404 and 405 handlers
	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
