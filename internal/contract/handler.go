package contract

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/nextcrm/backoffice-core-go/internal/audit"
	auditentity "github.com/nextcrm/backoffice-core-go/internal/audit/entity"
	"github.com/nextcrm/backoffice-core-go/internal/auth"
	"github.com/nextcrm/backoffice-core-go/internal/contract/entity"
)

type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireIdentity(w, r); !ok {
		return
	}
	var c entity.Contract
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if err := h.svc.Create(r.Context(), &c); err != nil {
		h.fail(w, err, "contract create failed")
		return
	}
	audit.Queue(r.Context(), audit.Event{
		Action:     auditentity.ActionCreate,
		EntityName: "Contract",
		EntityID:   &c.ID,
		EntityRepr: c.ContractNumber,
	})
	h.writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireIdentity(w, r); !ok {
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	c, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err, "contract load failed")
		return
	}
	h.writeJSON(w, http.StatusOK, c)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireIdentity(w, r); !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	out, err := h.svc.List(r.Context(), r.URL.Query().Get("status"), limit, offset)
	if err != nil {
		h.fail(w, err, "contract list failed")
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.RequireIdentity(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	var c entity.Contract
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	c.ID = id
	amendments, err := h.svc.Update(r.Context(), &c, ident.UserID)
	if err != nil {
		h.fail(w, err, "contract update failed")
		return
	}
	if changes, err := json.Marshal(amendments); err == nil {
		audit.Queue(r.Context(), audit.Event{
			Action:     auditentity.ActionUpdate,
			EntityName: "Contract",
			EntityID:   &c.ID,
			EntityRepr: c.ContractNumber,
			Changes:    changes,
		})
	}
	h.writeJSON(w, http.StatusOK, c)
}

func (h *Handler) Amendments(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireIdentity(w, r); !ok {
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	out, err := h.svc.Amendments(r.Context(), id)
	if err != nil {
		h.fail(w, err, "amendment list failed")
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) fail(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, ErrNumberRequired), errors.Is(err, ErrBadQuantity), errors.Is(err, ErrBadStatus):
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		h.logger.Warnw(msg, "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msg})
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
