// Package main is the entrypoint for the Account Pulse API server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/accountpulse/accountpulse/internal/cache"
	"github.com/accountpulse/accountpulse/internal/config"
	"github.com/accountpulse/accountpulse/internal/metrics"
	"github.com/accountpulse/accountpulse/internal/middleware"
	"github.com/accountpulse/accountpulse/internal/repository"
	"github.com/accountpulse/accountpulse/internal/secret"
	"github.com/accountpulse/accountpulse/internal/server"
)

func main() {
	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if missing := cfg.MissingIntegrations(); len(missing) > 0 {
		logger.Warn("integrations not configured", "missing", missing)
	}

	box, err := secret.NewBox(cfg.TokenEncryptionKey)
	if err != nil {
		logger.Error("failed to initialize token encryption", "error", err)
		os.Exit(1)
	}
	if !box.Enabled() && cfg.IsProduction() {
		logger.Warn("TOKEN_ENCRYPTION_KEY not set; OAuth tokens are stored unencrypted")
	}

	trustedProxies, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		logger.Error("invalid TRUSTED_PROXIES", slog.String("error", err.Error()))
		os.Exit(1)
	}

	deps := dependencies{
		cfg:            cfg,
		logger:         logger,
		metrics:        metrics.NewPrometheus(),
		box:            box,
		trustedProxies: trustedProxies,
	}

	if cfg.DatabaseURL != "" {
		repo, err := repository.New(ctx, cfg.DatabaseURL, repository.PoolOptions{
			MaxConns:        cfg.DatabaseMaxConns,
			MinConns:        cfg.DatabaseMinConns,
			MaxConnIdleTime: 5 * time.Minute,
		})
		if err != nil {
			logger.Error(
				"failed to connect to database",
				slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
				slog.String("database_url", redactURL(cfg.DatabaseURL)),
			)
			os.Exit(1)
		}
		deps.repo = repo
		logger.Info("connected to database")
	} else {
		logger.Warn("DATABASE_URL not set; gmail and dashboard endpoints will fail")
	}

	if cfg.RedisURL != "" {
		cacheClient, err := cache.New(ctx, cfg.RedisURL, cfg.RedisPoolSize)
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			os.Exit(1)
		}
		deps.cache = cacheClient
		logger.Info("connected to Redis")
	}

	srv := server.New(newRouter(deps), server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	if deps.repo != nil {
		srv.OnShutdown("postgres", func(context.Context) error {
			deps.repo.Close()
			return nil
		})
	}
	if deps.cache != nil {
		srv.OnShutdown("redis", func(context.Context) error {
			return deps.cache.Close()
		})
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(ctx); err != nil {
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
	switch strings.ToLower(level) {
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
