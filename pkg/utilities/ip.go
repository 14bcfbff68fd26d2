package utilities

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP extracts the originating client address. X-Forwarded-For takes
// precedence (first hop) so the value is stable behind a reverse proxy.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
