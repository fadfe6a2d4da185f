package ratelimit

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

// Config tunes the rate limiting middleware.
type Config struct {
	// Per-IP burst capacity and refill rate for the whole surface.
	PerIPCapacity   int
	PerIPRefillRate float64

	// Tighter per-IP limit on the auth initiation endpoints. Every
	// initiation writes a pending entry into the state store, so an
	// unthrottled client could grow it without bound.
	AuthCapacity   int
	AuthRefillRate float64
}

// DefaultConfig returns the limits used when none are configured.
func DefaultConfig() *Config {
	return &Config{
		PerIPCapacity:   100,
		PerIPRefillRate: 1.67,
		AuthCapacity:    10,
		AuthRefillRate:  0.167,
	}
}

// Middleware applies per-IP rate limits, with a stricter budget for the
// auth initiation endpoints.
type Middleware struct {
	perIP *KeyedLimiter
	auth  *KeyedLimiter
}

// NewMiddleware creates rate limiting middleware from the config.
func NewMiddleware(config *Config) *Middleware {
	if config == nil {
		config = DefaultConfig()
	}
	return &Middleware{
		perIP: NewKeyedLimiter(config.PerIPCapacity, config.PerIPRefillRate, time.Hour),
		auth:  NewKeyedLimiter(config.AuthCapacity, config.AuthRefillRate, time.Hour),
	}
}

func isAuthInitiation(r *http.Request) bool {
	if r.Method != http.MethodPost {
		return false
	}
	return strings.HasSuffix(r.URL.Path, "/login") || strings.HasSuffix(r.URL.Path, "/link")
}

// Handler is the middleware entry point.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		if !m.perIP.Allow(ip) {
			m.rejected(w, r, ip, "per_ip")
			return
		}
		if isAuthInitiation(r) && !m.auth.Allow(ip) {
			m.rejected(w, r, ip, "auth")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) rejected(w http.ResponseWriter, r *http.Request, ip, limit string) {
	slog.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path, "limit", limit)
	w.Header().Set("Retry-After", "60")
	http.Error(w, "Too many requests", http.StatusTooManyRequests)
}

// clientIP extracts the client address, honoring X-Forwarded-For and
// X-Real-IP from a fronting proxy.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
