package auth

import (
	"net/http"
	"time"
)

// SetTokenCookies attaches both token cookies. HTTP-only always; Secure and
// SameSite come from config. Tokens never appear in response bodies.
func (c Config) SetTokenCookies(w http.ResponseWriter, accessToken, refreshToken string) {
	c.setCookie(w, c.AccessCookieName, accessToken, c.AccessTTL)
	c.setCookie(w, c.RefreshCookieName, refreshToken, c.RefreshTTL)
}

// SetAccessCookie rotates only the access-token cookie (refresh endpoint).
func (c Config) SetAccessCookie(w http.ResponseWriter, accessToken string) {
	c.setCookie(w, c.AccessCookieName, accessToken, c.AccessTTL)
}

// ClearTokenCookies expires both token cookies.
func (c Config) ClearTokenCookies(w http.ResponseWriter) {
	c.setCookie(w, c.AccessCookieName, "", -time.Second)
	c.setCookie(w, c.RefreshCookieName, "", -time.Second)
}

func (c Config) setCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	maxAge := int(ttl.Seconds())
	if ttl < 0 {
		maxAge = -1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		MaxAge:   maxAge,
		Domain:   c.CookieDomain,
		Path:     c.CookiePath,
		HttpOnly: true,
		Secure:   c.CookieSecure,
		SameSite: c.CookieSameSite,
	})
}
