package auth

import (
	"net/http"
	"os"
	"strconv"
	"time"
)

// Config collects the token, cookie, and breaker knobs of the auth subsystem.
type Config struct {
	Secret []byte
	Issuer string

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	AccessCookieName  string
	RefreshCookieName string
	CookieDomain      string
	CookiePath        string
	CookieSecure      bool
	CookieSameSite    http.SameSite

	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// ConfigFromEnv reads auth config from environment variables. The cookie
// Secure flag defaults to on and is relaxed only in local development
// (LOG_DEV=1 or COOKIE_SECURE=0).
func ConfigFromEnv() Config {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-secret-change-me"
	}
	cfg := Config{
		Secret:            []byte(secret),
		Issuer:            envOr("JWT_ISSUER", "backoffice-core"),
		AccessTTL:         envDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTTL:        envDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		AccessCookieName:  envOr("AUTH_COOKIE", "access_token"),
		RefreshCookieName: envOr("REFRESH_COOKIE", "refresh_token"),
		CookieDomain:      os.Getenv("COOKIE_DOMAIN"),
		CookiePath:        envOr("COOKIE_PATH", "/"),
		CookieSecure:      true,
		CookieSameSite:    http.SameSiteLaxMode,
		BreakerThreshold:  envInt("REFRESH_BREAKER_THRESHOLD", 5),
		BreakerCooldown:   envDuration("REFRESH_BREAKER_COOLDOWN", 5*time.Minute),
	}
	if os.Getenv("LOG_DEV") == "1" || os.Getenv("COOKIE_SECURE") == "0" {
		cfg.CookieSecure = false
	}
	if os.Getenv("COOKIE_SAMESITE") == "strict" {
		cfg.CookieSameSite = http.SameSiteStrictMode
	}
	return cfg
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
