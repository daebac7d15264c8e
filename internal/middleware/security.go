package middleware

import (
	"net/http"
	"strings"
)

// apiContentSecurityPolicy locks JSON responses down completely.
const apiContentSecurityPolicy = "default-src 'none'; frame-ancestors 'none'"

// SecurityConfig holds configuration for security headers.
type SecurityConfig struct {
	// IsDevelopment disables HSTS in dev environments.
	IsDevelopment bool
	// ConnectSources are extra origins pages may open connections to,
	// such as the transcription websocket.
	ConnectSources []string
}

// Security returns a middleware that applies security headers to all responses.
// This middleware should be applied early in the chain.
//
// Headers applied:
//   - Strict-Transport-Security (HSTS) - only in production
//   - X-Content-Type-Options: nosniff
//   - X-Frame-Options: DENY
//   - X-XSS-Protection: 0
//   - Referrer-Policy: strict-origin-when-cross-origin
//   - Content-Security-Policy: deny-all policy for API responses
//   - Permissions-Policy: restrictive policy
//   - Cross-Origin-Opener-Policy / Cross-Origin-Resource-Policy: same-origin
//   - Cache-Control: no-store
func Security(cfg SecurityConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-XSS-Protection", "0")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Content-Security-Policy", apiContentSecurityPolicy)
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=(), usb=()")
			h.Set("Cross-Origin-Opener-Policy", "same-origin")
			h.Set("Cross-Origin-Resource-Policy", "same-origin")

			// max-age=31536000 = 1 year
			if !cfg.IsDevelopment {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
			}

			h.Set("Cache-Control", "no-store")
			h.Del("Server")

			next.ServeHTTP(w, r)
		})
	}
}

// PageSecurity relaxes the API policy for rendered HTML pages: same-origin
// scripts and styles, connections to ConnectSources, and microphone access
// for the voice page. Apply it after Security on page routes only.
func PageSecurity(cfg SecurityConfig) func(http.Handler) http.Handler {
	connect := "'self'"
	if len(cfg.ConnectSources) > 0 {
		connect += " " + strings.Join(cfg.ConnectSources, " ")
	}

	csp := strings.Join([]string{
		"default-src 'self'",
		"script-src 'self'",
		"style-src 'self' 'unsafe-inline'",
		"img-src 'self' data:",
		"connect-src " + connect,
		"frame-ancestors 'none'",
		"base-uri 'self'",
	}, "; ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Content-Security-Policy", csp)
			h.Set("Permissions-Policy", "geolocation=(), microphone=(self), camera=(), payment=(), usb=()")
			h.Set("Cache-Control", "no-cache")

			next.ServeHTTP(w, r)
		})
	}
}

// MaxBodySize returns a middleware that limits request body size.
//
// When the limit is exceeded, the connection is closed and subsequent
// reads return an error.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && r.ContentLength > maxBytes {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				_, _ = w.Write([]byte(`{"error":"Request body too large"}`))
				return
			}

			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}

			next.ServeHTTP(w, r)
		})
	}
}
