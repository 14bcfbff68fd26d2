package auth

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/nextcrm/backoffice-core-go/internal/audit"
	auditentity "github.com/nextcrm/backoffice-core-go/internal/audit/entity"
	"github.com/nextcrm/backoffice-core-go/internal/user"
	"github.com/nextcrm/backoffice-core-go/pkg/utilities"
)

// Stable error codes for programmatic client handling of refresh failures.
const (
	CodeNoRefreshToken      = "NO_REFRESH_TOKEN"
	CodeInvalidRefreshToken = "INVALID_REFRESH_TOKEN"
	CodeCircuitBreakerOpen  = "CIRCUIT_BREAKER_OPEN"
)

// Handler exposes the authentication endpoints: register, login, token
// refresh, logout, plus the profile/password/account endpoints of the
// credential owner.
type Handler struct {
	cfg      Config
	users    *user.Service
	tokens   *TokenService
	breaker  *RefreshBreaker
	recorder *audit.Recorder
	logger   *zap.SugaredLogger
}

func NewHandler(cfg Config, users *user.Service, tokens *TokenService, breaker *RefreshBreaker, recorder *audit.Recorder, logger *zap.SugaredLogger) *Handler {
	return &Handler{cfg: cfg, users: users, tokens: tokens, breaker: breaker, recorder: recorder, logger: logger}
}

type registerRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	Phone           string `json:"phone"`
	Company         string `json:"company"`
	Position        string `json:"position"`
	GDPRConsent     bool   `json:"gdpr_consent"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	u, err := h.users.Register(r.Context(), user.RegisterInput{
		Username:        req.Username,
		Email:           req.Email,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		Phone:           req.Phone,
		Company:         req.Company,
		Position:        req.Position,
		GDPRConsent:     req.GDPRConsent,
		IP:              utilities.ClientIP(r),
		UserAgent:       r.UserAgent(),
	})
	if err != nil {
		switch {
		case errors.Is(err, user.ErrMissingFields),
			errors.Is(err, user.ErrPasswordMismatch),
			errors.Is(err, user.ErrWeakPassword),
			errors.Is(err, user.ErrConsentRequired),
			errors.Is(err, user.ErrUsernameTaken):
			// field-level validation errors are safe to surface verbatim
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			h.logger.Warnw("registration failed", "err", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "registration failed"})
		}
		return
	}

	audit.Queue(r.Context(), audit.Event{
		Action:     auditentity.ActionCreate,
		EntityName: "User",
		EntityID:   &u.ID,
		EntityRepr: u.Username,
		UserID:     &u.ID,
	})
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully",
		"user": map[string]any{
			"id":       u.ID,
			"username": u.Username,
			"email":    u.Email,
		},
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	ip := utilities.ClientIP(r)

	u, err := h.users.Authenticate(r.Context(), req.Username, req.Password, ip)
	if err != nil {
		// one generic message for every failure cause: no username or
		// lockout oracle for the caller
		h.recorder.RecordLoginAttempt(&auditentity.LoginAttempt{
			Username:      req.Username,
			IPAddress:     ip,
			UserAgent:     r.UserAgent(),
			Successful:    false,
			FailureReason: err.Error(),
		})
		h.logger.Debugw("login failed", "username", req.Username, "err", err)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		return
	}

	accessToken, refreshToken, err := h.tokens.Issue(u.ID)
	if err != nil {
		h.logger.Errorw("token issuance failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "login failed"})
		return
	}
	h.cfg.SetTokenCookies(w, accessToken, refreshToken)

	h.recorder.RecordLoginAttempt(&auditentity.LoginAttempt{
		Username:   u.Username,
		IPAddress:  ip,
		UserAgent:  r.UserAgent(),
		Successful: true,
	})
	audit.Queue(r.Context(), audit.Event{
		Action:     auditentity.ActionLogin,
		EntityName: "User",
		EntityID:   &u.ID,
		EntityRepr: u.Username,
		UserID:     &u.ID,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"user": map[string]any{
			"id":         u.ID,
			"username":   u.Username,
			"email":      u.Email,
			"first_name": u.FirstName,
			"last_name":  u.LastName,
		},
	})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ip := utilities.ClientIP(r)

	// short-circuit before any token material is parsed
	if err := h.breaker.Allow(ctx, ip); err != nil {
		if errors.Is(err, ErrBreakerOpen) {
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error": "Too many failed refresh attempts. Please login again.",
				"code":  CodeCircuitBreakerOpen,
			})
			return
		}
		// breaker store unreachable: fail open, the token check still runs
		h.logger.Warnw("breaker check failed", "err", err)
	}

	cookie, err := r.Cookie(h.cfg.RefreshCookieName)
	if err != nil || cookie.Value == "" {
		h.breaker.OnFailure(ctx, ip)
		h.cfg.ClearTokenCookies(w)
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error": "Refresh token not found",
			"code":  CodeNoRefreshToken,
		})
		return
	}

	claims, err := h.tokens.ValidateRefresh(ctx, cookie.Value)
	if err != nil {
		if !isTokenError(err) {
			// blacklist store unreachable: not the caller's fault, so the
			// breaker does not move and the cookies stay
			h.logger.Errorw("refresh token validation failed", "err", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "refresh failed"})
			return
		}
		h.breaker.OnFailure(ctx, ip)
		h.cfg.ClearTokenCookies(w)
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error": "Invalid refresh token",
			"code":  CodeInvalidRefreshToken,
		})
		return
	}

	userID, err := claims.UserID()
	if err == nil {
		u, lookupErr := h.users.GetByID(ctx, userID)
		switch {
		case lookupErr == nil && u.IsActive:
		case lookupErr == nil, errors.Is(lookupErr, sql.ErrNoRows):
			err = ErrTokenInvalid
		default:
			h.logger.Errorw("refresh user lookup failed", "err", lookupErr)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "refresh failed"})
			return
		}
	}
	if err != nil {
		h.breaker.OnFailure(ctx, ip)
		h.cfg.ClearTokenCookies(w)
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error": "Invalid refresh token",
			"code":  CodeInvalidRefreshToken,
		})
		return
	}

	// reissue the access token only; the refresh token is not rotated
	accessToken, err := h.tokens.IssueAccess(userID, claims.SessionID)
	if err != nil {
		h.logger.Errorw("token issuance failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "refresh failed"})
		return
	}
	h.breaker.OnSuccess(ctx, ip)
	h.cfg.SetAccessCookie(w, accessToken)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Token refreshed successfully"})
}

// Logout revokes the refresh token and clears both cookies. Idempotent from
// the client's perspective: it reports success even when the token was
// missing or already invalid.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.cfg.RefreshCookieName); err == nil && cookie.Value != "" {
		if err := h.tokens.Revoke(r.Context(), cookie.Value); err != nil {
			h.logger.Warnw("refresh token revoke failed", "err", err)
		}
	}
	h.cfg.ClearTokenCookies(w)

	if id, ok := IdentityFromContext(r.Context()); ok {
		audit.Queue(r.Context(), audit.Event{
			Action:     auditentity.ActionLogout,
			EntityName: "User",
			EntityID:   &id.UserID,
			UserID:     &id.UserID,
		})
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
