package main

import (
	"log/slog"
	"net/netip"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/accountpulse/accountpulse/internal/cache"
	"github.com/accountpulse/accountpulse/internal/config"
	"github.com/accountpulse/accountpulse/internal/handler"
	"github.com/accountpulse/accountpulse/internal/integration"
	"github.com/accountpulse/accountpulse/internal/integration/asana"
	"github.com/accountpulse/accountpulse/internal/integration/deepgram"
	"github.com/accountpulse/accountpulse/internal/integration/gmail"
	"github.com/accountpulse/accountpulse/internal/integration/slack"
	"github.com/accountpulse/accountpulse/internal/metrics"
	"github.com/accountpulse/accountpulse/internal/middleware"
	"github.com/accountpulse/accountpulse/internal/repository"
	"github.com/accountpulse/accountpulse/internal/secret"
	"github.com/accountpulse/accountpulse/internal/service"
)

// voiceTokenScope names the voice token rate limit buckets.
const voiceTokenScope = "voice_token"

// dependencies are the process-wide objects handlers are built from.
// repo and cache are nil when not configured.
type dependencies struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.PrometheusRecorder
	box     *secret.Box
	repo    *repository.Repository
	cache   *cache.Cache
	// Peers whose forwarding headers are believed. Empty trusts none.
	trustedProxies []netip.Prefix
}

// newRouter builds every client and handler and mounts the routes.
func newRouter(d dependencies) *chi.Mux {
	cfg := d.cfg
	rec := d.metrics

	// Optional stores are passed as untyped nil so nil checks downstream hold.
	var (
		listCache    service.ListCache
		ipLimiter    middleware.IPLimiter
		gmailStore   gmail.Store
		changeLister handler.ChangeLister
		dbCheck      handler.HealthChecker
		redisCheck   handler.HealthChecker
	)
	if d.cache != nil {
		listCache = d.cache
		ipLimiter = d.cache
		redisCheck = d.cache
	}
	if d.repo != nil {
		gmailStore = d.repo
		changeLister = d.repo
		dbCheck = d.repo
	}

	asanaClient := asana.New(asana.Config{
		BaseURL:     cfg.Asana.BaseURL,
		AccessToken: cfg.Asana.AccessToken,
		WorkspaceID: cfg.Asana.WorkspaceID,
	}, integration.NewHTTPClient(asana.ServiceName, rec))

	slackClient := slack.New(slack.Config{
		BotToken:     cfg.Slack.BotToken,
		ChannelTypes: cfg.Slack.ChannelTypes,
		APIURL:       cfg.Slack.APIURL,
	}, integration.NewHTTPClient(slack.ServiceName, rec))

	deepgramClient := deepgram.New(deepgram.Config{
		APIKey:     cfg.Deepgram.APIKey,
		BaseURL:    cfg.Deepgram.BaseURL,
		ListenURL:  cfg.Deepgram.ListenURL,
		Model:      cfg.Deepgram.Model,
		Language:   cfg.Deepgram.Language,
		Encoding:   cfg.Deepgram.Encoding,
		SampleRate: cfg.Deepgram.SampleRate,
		TokenTTL:   cfg.Deepgram.TokenTTL,
	}, integration.NewHTTPClient(deepgram.ServiceName, rec))

	gmailService := gmail.New(gmail.Config{
		ClientID:     cfg.Gmail.ClientID,
		ClientSecret: cfg.Gmail.ClientSecret,
		RedirectURL:  cfg.Gmail.RedirectURL,
		Scopes:       cfg.Gmail.Scopes,
		Logger:       d.logger,
	}, gmailStore, d.box)

	projects := service.NewListing(asanaClient.ListProjects, service.ListingOptions{
		Service: asana.ServiceName,
		Key:     cache.ListKeyAsanaProjects,
		Cache:   listCache,
		TTL:     cfg.ListCacheTTL,
		Timeout: cfg.ListTimeout,
		Logger:  d.logger,
		Metrics: rec,
	})
	channels := service.NewListing(slackClient.ListChannels, service.ListingOptions{
		Service: slack.ServiceName,
		Key:     cache.ListKeySlackChannels,
		Cache:   listCache,
		TTL:     cfg.ListCacheTTL,
		Timeout: cfg.ListTimeout,
		Logger:  d.logger,
		Metrics: rec,
	})

	h := handler.New(cfg.MissingIntegrations())
	healthHandler := handler.NewHealthHandler(
		handler.Dependency{Name: "postgres", Checker: dbCheck},
		handler.Dependency{Name: "redis", Checker: redisCheck},
	)
	metricsHandler := handler.NewMetricsHandler(rec.Gatherer())
	pageHandler := handler.NewPageHandler(d.logger)
	asanaHandler := handler.NewAsanaHandler(cfg.Check(config.RequireAsanaAccessToken), projects, d.logger, rec)
	slackHandler := handler.NewSlackHandler(cfg.Check(config.RequireSlackBotToken), channels, d.logger, rec)
	gmailHandler := handler.NewGmailHandler(gmailService, !cfg.IsDevelopment(), d.logger, rec)
	voiceHandler := handler.NewVoiceHandler(deepgramClient, d.logger, rec)
	dashboardHandler := handler.NewDashboardHandler(changeLister, d.logger, rec)

	securityCfg := middleware.SecurityConfig{
		IsDevelopment:  cfg.IsDevelopment(),
		ConnectSources: []string{websocketOrigin(cfg.Deepgram.ListenURL)},
	}
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	voiceLimit := middleware.RateLimitIP(middleware.RateLimitConfig{
		Logger:  d.logger,
		Limiter: ipLimiter,
		Metrics: rec,
		Enabled: cfg.VoiceTokenRateLimitEnabled,
		Scope:   voiceTokenScope,
		RPS:     cfg.VoiceTokenRPS,
		Burst:   cfg.VoiceTokenBurst,
	})

	r := chi.NewRouter()

	r.Use(middleware.RealIP(d.trustedProxies))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.logger))
	r.Use(middleware.Recoverer(d.logger))
	r.Use(middleware.Security(securityCfg))

	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	r.Get("/metrics", metricsHandler.Metrics)

	r.Group(func(r chi.Router) {
		r.Use(middleware.PageSecurity(securityCfg))
		r.Get("/", pageHandler.App)
		r.Get("/voice", pageHandler.Voice)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.CORS(corsCfg))
		r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

		r.Get("/", h.Info)
		r.Get("/asana/projects", asanaHandler.Projects)
		r.Get("/slack/channels", slackHandler.Channels)
		r.Get("/dashboard/changes", dashboardHandler.Changes)

		r.Route("/gmail", func(r chi.Router) {
			r.Get("/auth", gmailHandler.Auth)
			r.Get("/status", gmailHandler.Status)
			r.Post("/disconnect", gmailHandler.Disconnect)
		})

		r.With(voiceLimit).Get("/voice/token", voiceHandler.Token)
	})

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}

// websocketOrigin reduces a listen URL to the origin a CSP connect-src needs.
func websocketOrigin(listenURL string) string {
	u, err := url.Parse(listenURL)
	if err != nil || u.Host == "" {
		return "wss://api.deepgram.com"
	}
	return u.Scheme + "://" + u.Host
}
