package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nextcrm/backoffice-core-go/internal/audit"
	auditentity "github.com/nextcrm/backoffice-core-go/internal/audit/entity"
	"github.com/nextcrm/backoffice-core-go/internal/user"
)

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := RequireIdentity(w, r)
	if !ok {
		return
	}
	view, err := h.users.GetProfileView(r.Context(), id.UserID)
	if err != nil {
		h.logger.Warnw("profile load failed", "user_id", id.UserID, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "profile unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := RequireIdentity(w, r)
	if !ok {
		return
	}
	var in user.UpdateProfileInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if err := h.users.UpdateProfile(r.Context(), id.UserID, in); err != nil {
		h.logger.Warnw("profile update failed", "user_id", id.UserID, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "update failed"})
		return
	}
	changes, _ := json.Marshal(in)
	audit.Queue(r.Context(), audit.Event{
		Action:     auditentity.ActionUpdate,
		EntityName: "UserProfile",
		EntityID:   &id.UserID,
		Changes:    changes,
	})
	view, err := h.users.GetProfileView(r.Context(), id.UserID)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Profile updated"})
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type passwordChangeRequest struct {
	CurrentPassword    string `json:"current_password"`
	NewPassword        string `json:"new_password"`
	NewPasswordConfirm string `json:"new_password_confirm"`
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := RequireIdentity(w, r)
	if !ok {
		return
	}
	var req passwordChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	err := h.users.ChangePassword(r.Context(), id.UserID, req.CurrentPassword, req.NewPassword, req.NewPasswordConfirm)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrWrongPassword),
			errors.Is(err, user.ErrPasswordMismatch),
			errors.Is(err, user.ErrWeakPassword):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			h.logger.Warnw("password change failed", "user_id", id.UserID, "err", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "password change failed"})
		}
		return
	}
	audit.Queue(r.Context(), audit.Event{
		Action:     auditentity.ActionUpdate,
		EntityName: "User",
		EntityID:   &id.UserID,
		EntityRepr: "Password changed",
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}

// DeleteAccount anonymizes the account and clears the session cookies.
// Always 200 for an authenticated caller.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := RequireIdentity(w, r)
	if !ok {
		return
	}
	if err := h.users.DeleteAccount(r.Context(), id.UserID); err != nil {
		h.logger.Errorw("account anonymization failed", "user_id", id.UserID, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "deletion failed"})
		return
	}
	audit.Queue(r.Context(), audit.Event{
		Action:     auditentity.ActionDelete,
		EntityName: "User",
		EntityID:   &id.UserID,
		EntityRepr: "Account deletion requested",
		UserID:     &id.UserID,
	})
	h.cfg.ClearTokenCookies(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Account deleted successfully"})
}
