package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/accountpulse/accountpulse/internal/cache"
	"github.com/accountpulse/accountpulse/internal/metrics"
)

// IPLimiter decides whether a client IP may proceed within a scope.
// *cache.Cache implements it with a Redis token bucket.
type IPLimiter interface {
	CheckIPRateLimit(ctx context.Context, scope, ip string, ratePerSecond, burst int) (*cache.RateLimitResult, error)
}

// RateLimitConfig holds configuration for rate limiting middleware.
type RateLimitConfig struct {
	Logger  *slog.Logger
	Limiter IPLimiter
	Metrics metrics.Recorder
	Enabled bool
	// Scope separates buckets of different endpoints.
	Scope string
	RPS   int // Requests per second
	Burst int
}

// RateLimitIP returns middleware that rate limits requests per client IP.
// Without a shared limiter it falls back to an in-process one.
func RateLimitIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}
	if cfg.Limiter == nil {
		cfg.Limiter = NewLocalIPLimiter()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r)

			result, err := cfg.Limiter.CheckIPRateLimit(r.Context(), cfg.Scope, ip, cfg.RPS, cfg.Burst)
			if err != nil {
				cfg.Logger.Error("IP rate limit check failed",
					slog.String("error", err.Error()),
					slog.String("scope", cfg.Scope),
				)
				// Fail open - allow request
				next.ServeHTTP(w, r)
				return
			}

			setRateLimitHeaders(w, cfg.Burst, result.Remaining, result.ResetAt)

			if !result.Allowed {
				cfg.Metrics.IncRateLimited(cfg.Scope)
				cfg.Logger.Warn("rate limit exceeded",
					slog.String("scope", cfg.Scope),
					slog.String("ip", ip),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.Int64("retry_after_seconds", retryAfterSeconds(result.RetryAfter)),
					slog.String("request_id", GetRequestID(r.Context())),
				)

				w.Header().Set("Retry-After", strconv.FormatInt(retryAfterSeconds(result.RetryAfter), 10))
				writeRateLimitError(w, result.RetryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// localLimiterMaxEntries bounds the in-process limiter table.
const localLimiterMaxEntries = 10000

// LocalIPLimiter is a per-process token bucket keyed by scope and IP.
type LocalIPLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewLocalIPLimiter creates an empty LocalIPLimiter.
func NewLocalIPLimiter() *LocalIPLimiter {
	return &LocalIPLimiter{limiters: make(map[string]*rate.Limiter)}
}

// CheckIPRateLimit consumes one token from the bucket for scope and ip.
func (l *LocalIPLimiter) CheckIPRateLimit(_ context.Context, scope, ip string, ratePerSecond, burst int) (*cache.RateLimitResult, error) {
	now := time.Now()
	if ratePerSecond <= 0 {
		return &cache.RateLimitResult{Allowed: true, Remaining: int64(burst), ResetAt: now}, nil
	}

	lim := l.limiter(scope+":"+ip, ratePerSecond, burst)

	res := lim.ReserveN(now, 1)
	if !res.OK() {
		return &cache.RateLimitResult{Allowed: false, ResetAt: now, RetryAfter: time.Second}, nil
	}

	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return &cache.RateLimitResult{
			Allowed:    false,
			ResetAt:    now.Add(delay),
			RetryAfter: delay,
		}, nil
	}

	return &cache.RateLimitResult{
		Allowed:   true,
		Remaining: int64(math.Floor(lim.TokensAt(now))),
		ResetAt:   now.Add(time.Second / time.Duration(ratePerSecond)),
	}, nil
}

func (l *LocalIPLimiter) limiter(key string, ratePerSecond, burst int) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.limiters[key]; ok {
		return lim
	}
	if len(l.limiters) >= localLimiterMaxEntries {
		l.limiters = make(map[string]*rate.Limiter)
	}

	lim := rate.NewLimiter(rate.Limit(ratePerSecond), burst)
	l.limiters[key] = lim
	return lim
}

// setRateLimitHeaders sets standard rate limit response headers.
func setRateLimitHeaders(w http.ResponseWriter, limit int, remaining int64, resetAt time.Time) {
	if limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
	}
}

// retryAfterSeconds rounds up so clients never retry early.
func retryAfterSeconds(d time.Duration) int64 {
	secs := int64(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

// writeRateLimitError writes a 429 Too Many Requests response.
func writeRateLimitError(w http.ResponseWriter, retryAfter time.Duration) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": fmt.Sprintf("Rate limit exceeded. Retry after %d seconds.", retryAfterSeconds(retryAfter)),
	})
}

// clientIP is the peer address. Forwarding headers are only honoured by
// RealIP, which runs earlier and rewrites RemoteAddr for trusted proxies.
func clientIP(r *http.Request) string {
	return remoteHost(r.RemoteAddr)
}
