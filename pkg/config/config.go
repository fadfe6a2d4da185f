package config

import (
	"fmt"
	"time"
)

// Config is the full server configuration, loaded from the environment.
type Config struct {
	Database   DatabaseConfig
	Jwt        JwtConfig
	XOAuth     XOAuthConfig
	Strava     StravaOAuthConfig
	Encryption EncryptionConfig
	Server     ServerConfig
	RateLimit  RateLimitConfig
}

// DatabaseConfig is the Postgres connection configuration.
type DatabaseConfig struct {
	Host     string `env:"PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"PG_PORT" env-default:"5432"`
	Database string `env:"PG_DATABASE" env-default:"stravatpot_db"`
	User     string `env:"PG_USER" env-default:"stravatpot"`
	Password string `env:"PG_PASSWORD" env-default:"pwd"`
	Schema   string `env:"PG_SCHEMA" env-default:"public"`
}

// ToDatabaseURL builds the pgx connection URL.
func (d DatabaseConfig) ToDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s,public",
		d.User, d.Password, d.Host, d.Port, d.Database, d.Schema)
}

// JwtConfig configures session token issuance.
type JwtConfig struct {
	Secret            string        `env:"JWT_SECRET" env-default:"very-secure-jwt-secret"`
	Issuer            string        `env:"JWT_ISSUER" env-default:"stravatpot"`
	Audience          string        `env:"JWT_AUDIENCE" env-default:"stravatpot"`
	AccessTokenExpiry time.Duration `env:"ACCESS_TOKEN_EXPIRY" env-default:"24h"`
}

// XOAuthConfig holds X.com OAuth credentials. A missing client id or
// secret leaves the provider unregistered.
type XOAuthConfig struct {
	ClientID     string `env:"X_CLIENT_ID"`
	ClientSecret string `env:"X_CLIENT_SECRET"`
	RedirectURI  string `env:"X_REDIRECT_URI" env-default:"http://localhost:3000/auth/x/callback"`
}

// Enabled reports whether the provider credentials are present.
func (c XOAuthConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// StravaOAuthConfig holds Strava OAuth credentials.
type StravaOAuthConfig struct {
	ClientID     string `env:"STRAVA_CLIENT_ID"`
	ClientSecret string `env:"STRAVA_CLIENT_SECRET"`
	RedirectURI  string `env:"STRAVA_REDIRECT_URI" env-default:"http://localhost:3000/auth/strava/callback"`
}

// Enabled reports whether the provider credentials are present.
func (c StravaOAuthConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// EncryptionConfig configures at-rest encryption of provider tokens.
type EncryptionConfig struct {
	TokenEncryptionKey string `env:"TOKEN_ENCRYPTION_KEY" env-default:"dev-only-token-encryption-key"`
}

// ServerConfig is the HTTP surface configuration.
type ServerConfig struct {
	FrontendURL string        `env:"FRONTEND_URL" env-default:"http://localhost:3000"`
	StateTTL    time.Duration `env:"AUTH_STATE_TTL" env-default:"10m"`
}

// RateLimitConfig tunes the per-IP rate limits.
type RateLimitConfig struct {
	PerIPCapacity   int     `env:"RATELIMIT_PER_IP_CAPACITY" env-default:"100"`
	PerIPRefillRate float64 `env:"RATELIMIT_PER_IP_REFILL_RATE" env-default:"1.67"`
	AuthCapacity    int     `env:"RATELIMIT_AUTH_CAPACITY" env-default:"10"`
	AuthRefillRate  float64 `env:"RATELIMIT_AUTH_REFILL_RATE" env-default:"0.167"`
}
