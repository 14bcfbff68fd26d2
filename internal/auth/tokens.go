package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"

	"github.com/nextcrm/backoffice-core-go/pkg/utilities"
)

const (
	typAccess  = "access"
	typRefresh = "refresh"
)

var (
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenRevoked   = errors.New("token revoked")
	ErrTokenInvalid   = errors.New("token invalid")
)

// isTokenError reports whether err describes a bad token, as opposed to an
// infrastructure failure such as an unreachable blacklist store.
func isTokenError(err error) bool {
	return errors.Is(err, ErrTokenMalformed) || errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenRevoked) || errors.Is(err, ErrTokenInvalid)
}

// Claims is the signed payload of both token kinds. `typ` distinguishes
// access from refresh so neither can stand in for the other; `sid` ties the
// request to a session for audit records; `jti` identifies a refresh token
// on the revocation blacklist.
type Claims struct {
	SessionID string `json:"sid,omitempty"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// UserID returns the numeric subject.
func (c *Claims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// TokenService issues and verifies the signed access/refresh token pair.
// Stateless except for the revoked-refresh-token blacklist held in Redis,
// where entries expire together with the token's own lifetime.
type TokenService struct {
	cfg Config
	rdb *redis.Client
}

func NewTokenService(cfg Config, rdb *redis.Client) *TokenService {
	return &TokenService{cfg: cfg, rdb: rdb}
}

func blacklistKey(jti string) string { return "rtbl:" + jti }

// Issue creates a fresh access/refresh pair for the user. The session ID is
// minted here and shared by both tokens so audit records from the whole
// session correlate.
func (t *TokenService) Issue(userID int64) (accessToken, refreshToken string, err error) {
	now := time.Now()
	sid := utilities.NewKSUID()
	sub := strconv.FormatInt(userID, 10)

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		SessionID: sid,
		TokenType: typAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.cfg.Issuer,
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.cfg.AccessTTL)),
		},
	})
	accessToken, err = access.SignedString(t.cfg.Secret)
	if err != nil {
		return "", "", fmt.Errorf("sign access token: %w", err)
	}

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		SessionID: sid,
		TokenType: typRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.cfg.Issuer,
			Subject:   sub,
			ID:        utilities.NewKSUID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.cfg.RefreshTTL)),
		},
	})
	refreshToken, err = refresh.SignedString(t.cfg.Secret)
	if err != nil {
		return "", "", fmt.Errorf("sign refresh token: %w", err)
	}
	return accessToken, refreshToken, nil
}

// IssueAccess creates a new access token for an existing session. Used by
// the refresh endpoint, which reissues the access token only and leaves the
// refresh token untouched.
func (t *TokenService) IssueAccess(userID int64, sessionID string) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		SessionID: sessionID,
		TokenType: typAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.cfg.Issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.cfg.AccessTTL)),
		},
	})
	return tok.SignedString(t.cfg.Secret)
}

func (t *TokenService) parse(token, wantTyp string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenMalformed
		}
		return t.cfg.Secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		default:
			return nil, ErrTokenInvalid
		}
	}
	if claims.TokenType != wantTyp {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// Validate verifies an access token: signature plus expiry.
func (t *TokenService) Validate(token string) (*Claims, error) {
	return t.parse(token, typAccess)
}

// ValidateRefresh verifies a refresh token: signature, expiry, and the
// revocation blacklist.
func (t *TokenService) ValidateRefresh(ctx context.Context, token string) (*Claims, error) {
	claims, err := t.parse(token, typRefresh)
	if err != nil {
		return nil, err
	}
	n, err := t.rdb.Exists(ctx, blacklistKey(claims.ID)).Result()
	if err != nil {
		return nil, fmt.Errorf("blacklist lookup: %w", err)
	}
	if n > 0 {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Revoke blacklists a refresh token until its natural expiry. Invalid or
// already-expired tokens are a no-op: revocation is idempotent and logout
// must succeed regardless.
func (t *TokenService) Revoke(ctx context.Context, token string) error {
	claims, err := t.parse(token, typRefresh)
	if err != nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return t.rdb.Set(ctx, blacklistKey(claims.ID), "1", ttl).Err()
}
