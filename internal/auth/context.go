package auth

import (
	"context"
	"encoding/json"
	"net/http"
)

// Identity is the authenticated principal attached to a request context by
// the session middleware. Absence of an identity means the request is
// anonymous; rejection happens per-endpoint, never globally.
type Identity struct {
	UserID    int64
	SessionID string
}

type identityKey struct{}

// WithIdentity attaches the identity to the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the request identity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// RequireIdentity returns the request identity or writes a 401 and reports
// false. Handlers behind authentication call this first.
func RequireIdentity(w http.ResponseWriter, r *http.Request) (Identity, bool) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Authentication required"})
		return Identity{}, false
	}
	return id, true
}
