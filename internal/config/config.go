// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL). Optional: Gmail and dashboard endpoints
	// report upstream failures when it is not set.
	DatabaseURL      string `env:"DATABASE_URL"`
	DatabaseMaxConns int32  `env:"DATABASE_MAX_CONNS" envDefault:"5"`
	DatabaseMinConns int32  `env:"DATABASE_MIN_CONNS" envDefault:"1"`

	// Cache (Redis). Optional: listing cache and shared rate limits
	// are disabled when it is not set.
	RedisURL      string `env:"REDIS_URL"`
	RedisPoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"5"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`

	// Upstream listings (projects, channels) are cached for this long. Zero disables.
	ListCacheTTL time.Duration `env:"LIST_CACHE_TTL" envDefault:"60s"`

	// Deadline for fetching every page of a listing. Must be below WriteTimeout.
	ListTimeout time.Duration `env:"LIST_TIMEOUT" envDefault:"10s"`

	// Peers allowed to set X-Forwarded-For / X-Real-IP, as IPs or CIDRs.
	// Forwarding headers from anyone else are ignored.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	// Voice token issuance is rate limited per client IP.
	VoiceTokenRateLimitEnabled bool `env:"VOICE_TOKEN_RATE_LIMIT_ENABLED" envDefault:"true"`
	VoiceTokenRPS              int  `env:"VOICE_TOKEN_RPS" envDefault:"1"`
	VoiceTokenBurst            int  `env:"VOICE_TOKEN_BURST" envDefault:"5"`

	// Secret used to encrypt OAuth tokens at rest. Tokens are stored in
	// plaintext when empty, which is only acceptable in development.
	TokenEncryptionKey string `env:"TOKEN_ENCRYPTION_KEY"`

	Asana    AsanaConfig
	Slack    SlackConfig
	Gmail    GmailConfig
	Deepgram DeepgramConfig
}

// AsanaConfig configures the Asana integration.
type AsanaConfig struct {
	AccessToken string `env:"ASANA_ACCESS_TOKEN"`
	WorkspaceID string `env:"ASANA_WORKSPACE_ID"`
	BaseURL     string `env:"ASANA_BASE_URL" envDefault:"https://app.asana.com/api/1.0"`
}

// SlackConfig configures the Slack integration.
type SlackConfig struct {
	BotToken     string   `env:"SLACK_BOT_TOKEN"`
	ChannelTypes []string `env:"SLACK_CHANNEL_TYPES" envSeparator:"," envDefault:"public_channel,private_channel"`
	APIURL       string   `env:"SLACK_API_URL"`
}

// GmailConfig configures the Gmail OAuth client.
type GmailConfig struct {
	ClientID     string   `env:"GMAIL_CLIENT_ID"`
	ClientSecret string   `env:"GMAIL_CLIENT_SECRET"`
	RedirectURL  string   `env:"GMAIL_REDIRECT_URL" envDefault:"http://localhost:8080/api/gmail/callback"`
	Scopes       []string `env:"GMAIL_SCOPES" envSeparator:"," envDefault:"https://www.googleapis.com/auth/gmail.readonly,https://www.googleapis.com/auth/gmail.send,https://www.googleapis.com/auth/userinfo.email"`
}

// DeepgramConfig configures temporary credential issuance and the listen URL.
type DeepgramConfig struct {
	APIKey     string `env:"DEEPGRAM_API_KEY"`
	BaseURL    string `env:"DEEPGRAM_BASE_URL" envDefault:"https://api.deepgram.com"`
	ListenURL  string `env:"DEEPGRAM_LISTEN_URL" envDefault:"wss://api.deepgram.com/v1/listen"`
	Model      string `env:"DEEPGRAM_MODEL" envDefault:"nova-2"`
	Language   string `env:"DEEPGRAM_LANGUAGE" envDefault:"en-US"`
	Encoding   string `env:"DEEPGRAM_ENCODING" envDefault:"linear16"`
	SampleRate int    `env:"DEEPGRAM_SAMPLE_RATE" envDefault:"16000"`
	TokenTTL   int    `env:"DEEPGRAM_TOKEN_TTL_SECONDS" envDefault:"30"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Load parses environment variables and returns a Config.
// Returns an error if a variable cannot be parsed into its field type
// or the values are inconsistent.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks relations between settings.
func (c *Config) Validate() error {
	if c.ListTimeout <= 0 || c.ListTimeout >= c.WriteTimeout {
		return fmt.Errorf("LIST_TIMEOUT (%s) must be positive and below WRITE_TIMEOUT (%s)", c.ListTimeout, c.WriteTimeout)
	}
	if c.DatabaseMaxConns < 1 || c.DatabaseMinConns < 0 || c.DatabaseMinConns > c.DatabaseMaxConns {
		return fmt.Errorf("invalid database pool size: min %d, max %d", c.DatabaseMinConns, c.DatabaseMaxConns)
	}
	return nil
}
