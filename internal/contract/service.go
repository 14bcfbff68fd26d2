package contract

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/nextcrm/backoffice-core-go/internal/contract/entity"
	"github.com/nextcrm/backoffice-core-go/internal/contract/repo"
)

var (
	ErrNotFound       = errors.New("contract not found")
	ErrNumberRequired = errors.New("contract_number is required")
	ErrBadQuantity    = errors.New("quantity must be positive")
	ErrBadStatus      = errors.New("unknown status")
)

type Service struct {
	repo *repo.ContractRepo
}

func NewService(r *repo.ContractRepo) *Service { return &Service{repo: r} }

func (s *Service) Create(ctx context.Context, c *entity.Contract) error {
	if c.ContractNumber == "" {
		return ErrNumberRequired
	}
	if c.Quantity <= 0 {
		return ErrBadQuantity
	}
	if c.Status == "" {
		c.Status = entity.StatusDraft
	}
	if c.DeliveryStatus == "" {
		c.DeliveryStatus = entity.DeliveryPending
	}
	if !validStatus(c.Status) || !validDelivery(c.DeliveryStatus) {
		return ErrBadStatus
	}
	return s.repo.Create(ctx, c)
}

func (s *Service) Get(ctx context.Context, id int64) (*entity.Contract, error) {
	c, err := s.repo.Get(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) List(ctx context.Context, status string, limit, offset int) ([]entity.Contract, error) {
	if status != "" && !validStatus(status) {
		return nil, ErrBadStatus
	}
	return s.repo.List(ctx, status, limit, offset)
}

// Update applies the changed fields and records one amendment row per
// field that actually changed, attributed to the acting user. The
// contract number is immutable after creation.
func (s *Service) Update(ctx context.Context, c *entity.Contract, actorID int64) ([]entity.Amendment, error) {
	if c.Quantity <= 0 {
		return nil, ErrBadQuantity
	}
	if !validStatus(c.Status) || !validDelivery(c.DeliveryStatus) {
		return nil, ErrBadStatus
	}
	old, err := s.Get(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.ContractNumber = old.ContractNumber

	amendments := diff(old, c, actorID)
	rows, err := s.repo.UpdateWithAmendments(ctx, c, amendments)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrNotFound
	}
	return amendments, nil
}

func (s *Service) Amendments(ctx context.Context, contractID int64) ([]entity.Amendment, error) {
	if _, err := s.Get(ctx, contractID); err != nil {
		return nil, err
	}
	return s.repo.ListAmendments(ctx, contractID)
}

func diff(old, next *entity.Contract, actorID int64) []entity.Amendment {
	var out []entity.Amendment
	add := func(field, oldVal, newVal string) {
		if oldVal == newVal {
			return
		}
		out = append(out, entity.Amendment{
			ContractID: old.ID,
			Field:      field,
			OldValue:   oldVal,
			NewValue:   newVal,
			CreatedBy:  actorID,
		})
	}
	add("counterparty_id", strconv.FormatInt(old.CounterpartyID, 10), strconv.FormatInt(next.CounterpartyID, 10))
	add("commodity_id", strconv.FormatInt(old.CommodityID, 10), strconv.FormatInt(next.CommodityID, 10))
	add("currency_id", strconv.FormatInt(old.CurrencyID, 10), strconv.FormatInt(next.CurrencyID, 10))
	add("quantity", formatAmount(old.Quantity), formatAmount(next.Quantity))
	add("unit_price", formatAmount(old.UnitPrice), formatAmount(next.UnitPrice))
	add("delivery_status", old.DeliveryStatus, next.DeliveryStatus)
	add("status", old.Status, next.Status)
	add("contract_date", old.ContractDate.Format("2006-01-02"), next.ContractDate.Format("2006-01-02"))
	return out
}

func formatAmount(v float64) string { return fmt.Sprintf("%g", v) }

func validStatus(s string) bool {
	switch s {
	case entity.StatusDraft, entity.StatusActive, entity.StatusCompleted, entity.StatusCancelled:
		return true
	}
	return false
}

func validDelivery(s string) bool {
	switch s {
	case entity.DeliveryPending, entity.DeliveryPartial, entity.DeliveryDelivered:
		return true
	}
	return false
}
