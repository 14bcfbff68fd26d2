package gdpr

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/nextcrm/backoffice-core-go/internal/audit"
	auditentity "github.com/nextcrm/backoffice-core-go/internal/audit/entity"
	"github.com/nextcrm/backoffice-core-go/internal/auth"
	"github.com/nextcrm/backoffice-core-go/internal/gdpr/entity"
	"github.com/nextcrm/backoffice-core-go/pkg/utilities"
)

// Handler exposes the consent ledger and data-export endpoints.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) ListConsent(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.RequireIdentity(w, r)
	if !ok {
		return
	}
	recs, err := h.svc.History(r.Context(), id.UserID)
	if err != nil {
		h.logger.Warnw("consent history load failed", "user_id", id.UserID, "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "consent history unavailable"})
		return
	}
	h.writeJSON(w, http.StatusOK, recs)
}

type consentRequest struct {
	ConsentType  entity.ConsentType `json:"consent_type"`
	ConsentGiven bool               `json:"consent_given"`
}

func (h *Handler) RecordConsent(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.RequireIdentity(w, r)
	if !ok {
		return
	}
	var req consentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	rec, err := h.svc.RecordConsent(r.Context(), id.UserID, req.ConsentType, req.ConsentGiven,
		utilities.ClientIP(r), r.UserAgent())
	if err != nil {
		if errors.Is(err, ErrUnknownConsentType) {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		h.logger.Warnw("consent append failed", "user_id", id.UserID, "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "consent update failed"})
		return
	}
	audit.Queue(r.Context(), audit.Event{
		Action:     auditentity.ActionCreate,
		EntityName: "GDPRRecord",
		EntityID:   &rec.ID,
		EntityRepr: "GDPR consent updated",
	})
	h.writeJSON(w, http.StatusCreated, rec)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.RequireIdentity(w, r)
	if !ok {
		return
	}
	bundle, err := h.svc.Export(r.Context(), id.UserID)
	if err != nil {
		h.logger.Warnw("data export failed", "user_id", id.UserID, "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "export failed"})
		return
	}
	audit.Queue(r.Context(), audit.Event{
		Action:     auditentity.ActionExport,
		EntityName: "User",
		EntityID:   &id.UserID,
		EntityRepr: "Data export requested",
	})
	h.writeJSON(w, http.StatusOK, bundle)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
