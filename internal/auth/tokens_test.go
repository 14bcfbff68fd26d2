package auth

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
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

func testRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestIssueAndValidate(t *testing.T) {
	_, rdb := testRedis(t)
	ts := NewTokenService(testConfig(), rdb)

	access, refresh, err := ts.Issue(42)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)

	claims, err := ts.Validate(access)
	require.NoError(t, err)
	uid, err := claims.UserID()
	require.NoError(t, err)
	require.EqualValues(t, 42, uid)
	require.NotEmpty(t, claims.SessionID)

	rc, err := ts.ValidateRefresh(context.Background(), refresh)
	require.NoError(t, err)
	require.Equal(t, claims.SessionID, rc.SessionID)
	require.NotEmpty(t, rc.ID)
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	_, rdb := testRedis(t)
	ts := NewTokenService(testConfig(), rdb)

	access, refresh, err := ts.Issue(42)
	require.NoError(t, err)

	_, err = ts.Validate(refresh)
	require.ErrorIs(t, err, ErrTokenInvalid)
	_, err = ts.ValidateRefresh(context.Background(), access)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidateMalformedToken(t *testing.T) {
	_, rdb := testRedis(t)
	ts := NewTokenService(testConfig(), rdb)

	_, err := ts.Validate("not.a.token")
	require.ErrorIs(t, err, ErrTokenMalformed)
}

func TestValidateWrongSecret(t *testing.T) {
	_, rdb := testRedis(t)
	ts := NewTokenService(testConfig(), rdb)

	other := testConfig()
	other.Secret = []byte("different-secret")
	access, _, err := NewTokenService(other, rdb).Issue(42)
	require.NoError(t, err)

	_, err = ts.Validate(access)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidateExpiredToken(t *testing.T) {
	_, rdb := testRedis(t)
	cfg := testConfig()
	cfg.AccessTTL = -time.Minute
	ts := NewTokenService(cfg, rdb)

	access, _, err := ts.Issue(42)
	require.NoError(t, err)

	_, err = ts.Validate(access)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestRevokeBlacklistsRefreshToken(t *testing.T) {
	mr, rdb := testRedis(t)
	ts := NewTokenService(testConfig(), rdb)
	ctx := context.Background()

	_, refresh, err := ts.Issue(42)
	require.NoError(t, err)

	claims, err := ts.ValidateRefresh(ctx, refresh)
	require.NoError(t, err)

	require.NoError(t, ts.Revoke(ctx, refresh))
	_, err = ts.ValidateRefresh(ctx, refresh)
	require.ErrorIs(t, err, ErrTokenRevoked)

	// the blacklist entry lives exactly as long as the token it blocks
	mr.FastForward(8 * 24 * time.Hour)
	require.False(t, mr.Exists("rtbl:"+claims.ID))
}

func TestRevokeGarbageIsNoop(t *testing.T) {
	_, rdb := testRedis(t)
	ts := NewTokenService(testConfig(), rdb)

	require.NoError(t, ts.Revoke(context.Background(), "garbage"))
}

func TestIssueAccessKeepsSession(t *testing.T) {
	_, rdb := testRedis(t)
	ts := NewTokenService(testConfig(), rdb)

	access, _, err := ts.Issue(42)
	require.NoError(t, err)
	claims, err := ts.Validate(access)
	require.NoError(t, err)

	next, err := ts.IssueAccess(42, claims.SessionID)
	require.NoError(t, err)
	nc, err := ts.Validate(next)
	require.NoError(t, err)
	require.Equal(t, claims.SessionID, nc.SessionID)
}
