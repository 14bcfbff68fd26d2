package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nextcrm/backoffice-core-go/internal/audit"
	auditentity "github.com/nextcrm/backoffice-core-go/internal/audit/entity"
	"github.com/nextcrm/backoffice-core-go/internal/auth"
)

type memorySink struct {
	mu   sync.Mutex
	logs []auditentity.AuditLog
}

func (m *memorySink) SaveAuditLog(_ context.Context, e *auditentity.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, *e)
	return nil
}

func (m *memorySink) SaveLoginAttempt(_ context.Context, _ *auditentity.LoginAttempt) error {
	return nil
}

func testAuthConfig() auth.Config {
	return auth.Config{
		Secret:            []byte("test-secret"),
		Issuer:            "backoffice-test",
		AccessTTL:         15 * time.Minute,
		RefreshTTL:        7 * 24 * time.Hour,
		AccessCookieName:  "access_token",
		RefreshCookieName: "refresh_token",
		CookiePath:        "/",
		CookieSameSite:    http.SameSiteLaxMode,
		BreakerThreshold:  5,
		BreakerCooldown:   5 * time.Minute,
	}
}

func testTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return auth.NewTokenService(testAuthConfig(), client)
}

func TestSecurityHeaders(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := SecurityHeadersMiddleware(false)(inner)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	h := rec.Header()
	require.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", h.Get("X-Frame-Options"))
	require.Equal(t, "1; mode=block", h.Get("X-XSS-Protection"))
	require.Equal(t, "strict-origin-when-cross-origin", h.Get("Referrer-Policy"))
	require.Contains(t, h.Get("Strict-Transport-Security"), "max-age=31536000")
}

func TestSecurityHeadersDevSkipsHSTS(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	handler := SecurityHeadersMiddleware(true)(inner)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestSessionMiddlewareAttachesIdentity(t *testing.T) {
	cfg := testAuthConfig()
	tokens := testTokens(t)
	access, _, err := tokens.Issue(42)
	require.NoError(t, err)

	var got auth.Identity
	var ok bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = auth.IdentityFromContext(r.Context())
	})
	handler := SessionMiddleware(cfg, tokens)(inner)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: access})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.True(t, ok)
	require.EqualValues(t, 42, got.UserID)
	require.NotEmpty(t, got.SessionID)
}

func TestSessionMiddlewareToleratesBadToken(t *testing.T) {
	cfg := testAuthConfig()
	tokens := testTokens(t)

	var ok bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok = auth.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := SessionMiddleware(cfg, tokens)(inner)

	// garbage cookie: request continues anonymously
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: "garbage"})
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, ok)

	// no cookie at all: same
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, ok)
}

func TestAuditFlushStampsRequestMetadata(t *testing.T) {
	sink := &memorySink{}
	recorder := audit.NewRecorder(sink, zap.NewNop().Sugar(), 16)

	entityID := int64(7)
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		audit.Queue(r.Context(), audit.Event{
			Action:     auditentity.ActionUpdate,
			EntityName: "Contract",
			EntityID:   &entityID,
		})
	})
	handler := AuditFlushMiddleware(recorder)(inner)

	req := httptest.NewRequest(http.MethodPut, "/api/contracts/7", nil)
	req.RemoteAddr = "203.0.113.7:5000"
	req.Header.Set("User-Agent", "test-agent")
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: 42, SessionID: "sess-1"}))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	recorder.Close()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.logs, 1)
	log := sink.logs[0]
	require.Equal(t, auditentity.ActionUpdate, log.Action)
	require.Equal(t, "Contract", log.EntityName)
	require.NotNil(t, log.UserID)
	require.EqualValues(t, 42, *log.UserID)
	require.Equal(t, "sess-1", log.SessionKey)
	require.NotNil(t, log.IPAddress)
	require.Equal(t, "203.0.113.7", *log.IPAddress)
	require.Equal(t, "test-agent", log.UserAgent)
	require.False(t, log.Timestamp.IsZero())
}

func TestAuditFlushHonorsActorOverride(t *testing.T) {
	sink := &memorySink{}
	recorder := audit.NewRecorder(sink, zap.NewNop().Sugar(), 16)

	// login-style handlers know the actor before any session exists
	actor := int64(99)
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		audit.Queue(r.Context(), audit.Event{
			Action:     auditentity.ActionLogin,
			EntityName: "User",
			UserID:     &actor,
		})
	})
	handler := AuditFlushMiddleware(recorder)(inner)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
	recorder.Close()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.logs, 1)
	require.NotNil(t, sink.logs[0].UserID)
	require.EqualValues(t, 99, *sink.logs[0].UserID)
}

func TestAuditFlushNoEventNoRecord(t *testing.T) {
	sink := &memorySink{}
	recorder := audit.NewRecorder(sink, zap.NewNop().Sugar(), 16)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	handler := AuditFlushMiddleware(recorder)(inner)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/health", nil))
	recorder.Close()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Empty(t, sink.logs)
}

func TestLoggingMiddlewareCapturesStatus(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short"))
	})
	handler := LoggingMiddleware(zap.NewNop().Sugar())(inner)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)
	require.Equal(t, "short", rec.Body.String())
}
