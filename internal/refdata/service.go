package refdata

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/nextcrm/backoffice-core-go/internal/refdata/entity"
	"github.com/nextcrm/backoffice-core-go/internal/refdata/repo"
	"github.com/nextcrm/backoffice-core-go/pkg/utilities"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrNameRequired = errors.New("name is required")
)

// Service encapsulates reference-data business rules and depends on a repo.
type Service struct {
	repo *repo.RefdataRepo
}

func NewService(r *repo.RefdataRepo) *Service { return &Service{repo: r} }

func (s *Service) CreateCounterparty(ctx context.Context, c *entity.Counterparty) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return ErrNameRequired
	}
	c.IsActive = true
	return s.repo.CreateCounterparty(ctx, c)
}

func (s *Service) GetCounterparty(ctx context.Context, id int64) (*entity.Counterparty, error) {
	c, err := s.repo.GetCounterparty(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *Service) ListCounterparties(ctx context.Context, limit, offset int) ([]entity.Counterparty, error) {
	return s.repo.ListCounterparties(ctx, limit, offset)
}

func (s *Service) UpdateCounterparty(ctx context.Context, c *entity.Counterparty) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return ErrNameRequired
	}
	rows, err := s.repo.UpdateCounterparty(ctx, c)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateCommodity assigns a snowflake-derived code when none was supplied so
// every commodity has a stable external identifier.
func (s *Service) CreateCommodity(ctx context.Context, c *entity.Commodity) error {
	c.NameShort = strings.TrimSpace(c.NameShort)
	if c.NameShort == "" {
		return ErrNameRequired
	}
	if c.Code == "" {
		c.Code = utilities.NewSnowflakeID()
	}
	if c.DefaultUnit == "" {
		c.DefaultUnit = "MT"
	}
	c.IsActive = true
	return s.repo.CreateCommodity(ctx, c)
}

func (s *Service) GetCommodity(ctx context.Context, id int64) (*entity.Commodity, error) {
	c, err := s.repo.GetCommodity(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *Service) ListCommodities(ctx context.Context, limit, offset int) ([]entity.Commodity, error) {
	return s.repo.ListCommodities(ctx, limit, offset)
}

func (s *Service) UpdateCommodity(ctx context.Context, c *entity.Commodity) error {
	c.NameShort = strings.TrimSpace(c.NameShort)
	if c.NameShort == "" {
		return ErrNameRequired
	}
	rows, err := s.repo.UpdateCommodity(ctx, c)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) CreateCurrency(ctx context.Context, c *entity.Currency) error {
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	if c.Code == "" {
		return ErrNameRequired
	}
	c.IsActive = true
	return s.repo.CreateCurrency(ctx, c)
}

func (s *Service) ListCurrencies(ctx context.Context) ([]entity.Currency, error) {
	return s.repo.ListCurrencies(ctx)
}

func (s *Service) CreateCommodityGroup(ctx context.Context, g *entity.CommodityGroup) error {
	g.Name = strings.TrimSpace(g.Name)
	if g.Name == "" {
		return ErrNameRequired
	}
	g.IsActive = true
	return s.repo.CreateCommodityGroup(ctx, g)
}

func (s *Service) ListCommodityGroups(ctx context.Context) ([]entity.CommodityGroup, error) {
	return s.repo.ListCommodityGroups(ctx)
}

func (s *Service) CreateCommodityType(ctx context.Context, t *entity.CommodityType) error {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return ErrNameRequired
	}
	t.IsActive = true
	return s.repo.CreateCommodityType(ctx, t)
}

func (s *Service) ListCommodityTypes(ctx context.Context) ([]entity.CommodityType, error) {
	return s.repo.ListCommodityTypes(ctx)
}

func (s *Service) CreateTrader(ctx context.Context, t *entity.Trader) error {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return ErrNameRequired
	}
	t.IsActive = true
	return s.repo.CreateTrader(ctx, t)
}

func (s *Service) ListTraders(ctx context.Context) ([]entity.Trader, error) {
	return s.repo.ListTraders(ctx)
}

func (s *Service) CreateSociedad(ctx context.Context, soc *entity.Sociedad) error {
	soc.Name = strings.TrimSpace(soc.Name)
	if soc.Name == "" {
		return ErrNameRequired
	}
	soc.IsActive = true
	return s.repo.CreateSociedad(ctx, soc)
}

func (s *Service) ListSociedades(ctx context.Context) ([]entity.Sociedad, error) {
	return s.repo.ListSociedades(ctx)
}

func (s *Service) CreateCostCenter(ctx context.Context, c *entity.CostCenter) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return ErrNameRequired
	}
	c.IsActive = true
	return s.repo.CreateCostCenter(ctx, c)
}

func (s *Service) ListCostCenters(ctx context.Context) ([]entity.CostCenter, error) {
	return s.repo.ListCostCenters(ctx)
}

func (s *Service) CreateExchangeRate(ctx context.Context, e *entity.ExchangeRate) error {
	return s.repo.CreateExchangeRate(ctx, e)
}

func (s *Service) ListExchangeRates(ctx context.Context, currencyID int64, limit int) ([]entity.ExchangeRate, error) {
	return s.repo.ListExchangeRates(ctx, currencyID, limit)
}
