package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig holds CORS configuration options.
type CORSConfig struct {
	// AllowedOrigins lists origins allowed to call the API. Entries like
	// "https://*.example.com" match any subdomain.
	AllowedOrigins []string

	// AllowedMethods specifies the allowed HTTP methods.
	AllowedMethods []string

	// AllowedHeaders specifies the allowed request headers.
	AllowedHeaders []string

	// ExposedHeaders specifies which headers the browser can access.
	ExposedHeaders []string

	// AllowCredentials must not be combined with a "*" origin.
	AllowCredentials bool

	// MaxAge is the value for Access-Control-Max-Age header (in seconds).
	MaxAge int
}

// DefaultCORSConfig returns production-safe CORS defaults. The API only
// serves GET and POST.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{
			"Content-Type",
			"X-Request-ID",
			"Accept",
			"Accept-Language",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
			"X-RateLimit-Remaining",
			"X-RateLimit-Reset",
			"Retry-After",
		},
		MaxAge: 86400,
	}
}

// CORS returns a middleware that handles Cross-Origin Resource Sharing.
// Preflight requests from unknown origins are rejected with 403; other
// requests from unknown origins proceed without CORS headers and are
// blocked by the browser.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	methodsStr := strings.Join(cfg.AllowedMethods, ", ")
	headersStr := strings.Join(cfg.AllowedHeaders, ", ")
	exposedStr := strings.Join(cfg.ExposedHeaders, ", ")
	maxAgeStr := ""
	if cfg.MaxAge > 0 {
		maxAgeStr = strconv.Itoa(cfg.MaxAge)
	}

	exact := make(map[string]bool, len(cfg.AllowedOrigins))
	var wildcards []string
	for _, origin := range cfg.AllowedOrigins {
		origin = strings.ToLower(origin)
		if scheme, host, ok := strings.Cut(origin, "://*."); ok {
			wildcards = append(wildcards, scheme+"://|."+host)
			continue
		}
		exact[origin] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !isOriginAllowed(origin, exact, wildcards) {
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")

			if cfg.AllowCredentials {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
			if exposedStr != "" {
				w.Header().Set("Access-Control-Expose-Headers", exposedStr)
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", methodsStr)
				w.Header().Set("Access-Control-Allow-Headers", headersStr)
				if maxAgeStr != "" {
					w.Header().Set("Access-Control-Max-Age", maxAgeStr)
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isOriginAllowed matches origin against exact entries and wildcard
// entries encoded as "scheme://|.suffix".
func isOriginAllowed(origin string, exact map[string]bool, wildcards []string) bool {
	origin = strings.ToLower(origin)
	if exact[origin] {
		return true
	}

	for _, w := range wildcards {
		scheme, suffix, _ := strings.Cut(w, "|")
		rest, ok := strings.CutPrefix(origin, scheme)
		if !ok {
			continue
		}
		// "*.example.com" matches "a.example.com" but not "example.com" or "notexample.com".
		if len(rest) > len(suffix) && strings.HasSuffix(rest, suffix) {
			return true
		}
	}

	return false
}
