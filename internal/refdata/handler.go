package refdata

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/nextcrm/backoffice-core-go/internal/audit"
	auditentity "github.com/nextcrm/backoffice-core-go/internal/audit/entity"
	"github.com/nextcrm/backoffice-core-go/internal/auth"
	"github.com/nextcrm/backoffice-core-go/internal/refdata/entity"
)

// Handler exposes reference-data CRUD. All endpoints require authentication;
// mutations queue an audit event.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) CreateCounterparty(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireIdentity(w, r); !ok {
		return
	}
	var c entity.Counterparty
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if err := h.svc.CreateCounterparty(r.Context(), &c); err != nil {
		h.fail(w, err, "counterparty create failed")
		return
	}
	h.queueMutation(r, auditentity.ActionCreate, "Counterparty", c.ID, c.Name)
	h.writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) GetCounterparty(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireIdentity(w, r); !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	c, err := h.svc.GetCounterparty(r.Context(), id)
	if err != nil {
		h.fail(w, err, "counterparty load failed")
		return
	}
	h.writeJSON(w, http.StatusOK, c)
}

func (h *Handler) ListCounterparties(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireIdentity(w, r); !ok {
		return
	}
	limit, offset := pagination(r)
	out, err := h.svc.ListCounterparties(r.Context(), limit, offset)
	if err != nil {
		h.fail(w, err, "counterparty list failed")
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) UpdateCounterparty(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireIdentity(w, r); !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	var c entity.Counterparty
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	c.ID = id
	if err := h.svc.UpdateCounterparty(r.Context(), &c); err != nil {
		h.fail(w, err, "counterparty update failed")
		return
	}
	h.queueMutation(r, auditentity.ActionUpdate, "Counterparty", c.ID, c.Name)
	h.writeJSON(w, http.StatusOK, c)
}

func (h *Handler) CreateCommodity(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireIdentity(w, r); !ok {
		return
	}
	var c entity.Commodity
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if err := h.svc.CreateCommodity(r.Context(), &c); err != nil {
		h.fail(w, err, "commodity create failed")
		return
	}
	h.queueMutation(r, auditentity.ActionCreate, "Commodity", c.ID, c.NameShort)
	h.writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) GetCommodity(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireIdentity(w, r); !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	c, err := h.svc.GetCommodity(r.Context(), id)
	if err != nil {
		h.fail(w, err, "commodity load failed")
		return
	}
	h.writeJSON(w, http.StatusOK, c)
}

func (h *Handler) ListCommodities(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireIdentity(w, r); !ok {
		return
	}
	limit, offset := pagination(r)
	out, err := h.svc.ListCommodities(r.Context(), limit, offset)
	if err != nil {
		h.fail(w, err, "commodity list failed")
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) UpdateCommodity(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireIdentity(w, r); !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	var c entity.Commodity
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	c.ID = id
	if err := h.svc.UpdateCommodity(r.Context(), &c); err != nil {
		h.fail(w, err, "commodity update failed")
		return
	}
	h.queueMutation(r, auditentity.ActionUpdate, "Commodity", c.ID, c.NameShort)
	h.writeJSON(w, http.StatusOK, c)
}

func (h *Handler) CreateCurrency(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireIdentity(w, r); !ok {
		return
	}
	var c entity.Currency
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if err := h.svc.CreateCurrency(r.Context(), &c); err != nil {
		h.fail(w, err, "currency create failed")
		return
	}
	h.queueMutation(r, auditentity.ActionCreate, "Currency", c.ID, c.Code)
	h.writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) ListCurrencies(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireIdentity(w, r); !ok {
		return
	}
	out, err := h.svc.ListCurrencies(r.Context())
	if err != nil {
		h.fail(w, err, "currency list failed")
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateExchangeRate(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireIdentity(w, r); !ok {
		return
	}
	var e entity.ExchangeRate
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if err := h.svc.CreateExchangeRate(r.Context(), &e); err != nil {
		h.fail(w, err, "exchange rate create failed")
		return
	}
	h.queueMutation(r, auditentity.ActionCreate, "ExchangeRate", e.ID, "")
	h.writeJSON(w, http.StatusCreated, e)
}

func (h *Handler) ListExchangeRates(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireIdentity(w, r); !ok {
		return
	}
	currencyID, _ := strconv.ParseInt(r.URL.Query().Get("currency_id"), 10, 64)
	limit, _ := pagination(r)
	out, err := h.svc.ListExchangeRates(r.Context(), currencyID, limit)
	if err != nil {
		h.fail(w, err, "exchange rate list failed")
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateCommodityGroup(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireIdentity(w, r); !ok {
		return
	}
	var g entity.CommodityGroup
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if err := h.svc.CreateCommodityGroup(r.Context(), &g); err != nil {
		h.fail(w, err, "commodity group create failed")
		return
	}
	h.queueMutation(r, auditentity.ActionCreate, "CommodityGroup", g.ID, g.Name)
	h.writeJSON(w, http.StatusCreated, g)
}

func (h *Handler) ListCommodityGroups(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireIdentity(w, r); !ok {
		return
	}
	out, err := h.svc.ListCommodityGroups(r.Context())
	if err != nil {
		h.fail(w, err, "commodity group list failed")
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateCommodityType(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireIdentity(w, r); !ok {
		return
	}
	var ct entity.CommodityType
	if err := json.NewDecoder(r.Body).Decode(&ct); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if err := h.svc.CreateCommodityType(r.Context(), &ct); err != nil {
		h.fail(w, err, "commodity type create failed")
		return
	}
	h.queueMutation(r, auditentity.ActionCreate, "CommodityType", ct.ID, ct.Name)
	h.writeJSON(w, http.StatusCreated, ct)
}

func (h *Handler) ListCommodityTypes(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireIdentity(w, r); !ok {
		return
	}
	out, err := h.svc.ListCommodityTypes(r.Context())
	if err != nil {
		h.fail(w, err, "commodity type list failed")
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateTrader(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireIdentity(w, r); !ok {
		return
	}
	var tr entity.Trader
	if err := json.NewDecoder(r.Body).Decode(&tr); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if err := h.svc.CreateTrader(r.Context(), &tr); err != nil {
		h.fail(w, err, "trader create failed")
		return
	}
	h.queueMutation(r, auditentity.ActionCreate, "Trader", tr.ID, tr.Name)
	h.writeJSON(w, http.StatusCreated, tr)
}

func (h *Handler) ListTraders(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireIdentity(w, r); !ok {
		return
	}
	out, err := h.svc.ListTraders(r.Context())
	if err != nil {
		h.fail(w, err, "trader list failed")
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateSociedad(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireIdentity(w, r); !ok {
		return
	}
	var s entity.Sociedad
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if err := h.svc.CreateSociedad(r.Context(), &s); err != nil {
		h.fail(w, err, "sociedad create failed")
		return
	}
	h.queueMutation(r, auditentity.ActionCreate, "Sociedad", s.ID, s.Name)
	h.writeJSON(w, http.StatusCreated, s)
}

func (h *Handler) ListSociedades(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireIdentity(w, r); !ok {
		return
	}
	out, err := h.svc.ListSociedades(r.Context())
	if err != nil {
		h.fail(w, err, "sociedad list failed")
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateCostCenter(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireIdentity(w, r); !ok {
		return
	}
	var c entity.CostCenter
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if err := h.svc.CreateCostCenter(r.Context(), &c); err != nil {
		h.fail(w, err, "cost center create failed")
		return
	}
	h.queueMutation(r, auditentity.ActionCreate, "CostCenter", c.ID, c.Name)
	h.writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) ListCostCenters(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireIdentity(w, r); !ok {
		return
	}
	out, err := h.svc.ListCostCenters(r.Context())
	if err != nil {
		h.fail(w, err, "cost center list failed")
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) queueMutation(r *http.Request, action auditentity.Action, name string, id int64, repr string) {
	audit.Queue(r.Context(), audit.Event{
		Action:     action,
		EntityName: name,
		EntityID:   &id,
		EntityRepr: repr,
	})
}

func (h *Handler) fail(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, ErrNameRequired):
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

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func pagination(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}
