package repo

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/nextcrm/backoffice-core-go/internal/refdata/entity"
)

// RefdataRepo provides data access for the reference-data tables consumed by
// the contract registry.
type RefdataRepo struct {
	db *sqlx.DB
}

func NewRefdataRepo(db *sqlx.DB) *RefdataRepo { return &RefdataRepo{db: db} }

// EnsureTables creates the reference-data tables if not exists (idempotent).
func (r *RefdataRepo) EnsureTables(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS counterparties (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  tax_id TEXT NOT NULL DEFAULT '',
  address TEXT NOT NULL DEFAULT '',
  city TEXT NOT NULL DEFAULT '',
  country TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL DEFAULT '',
  is_active BOOLEAN NOT NULL DEFAULT true,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS commodity_groups (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  description TEXT NOT NULL DEFAULT '',
  sort_order INT NOT NULL DEFAULT 0,
  is_active BOOLEAN NOT NULL DEFAULT true,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS commodity_types (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  description TEXT NOT NULL DEFAULT '',
  sort_order INT NOT NULL DEFAULT 0,
  is_active BOOLEAN NOT NULL DEFAULT true,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS commodities (
  id BIGSERIAL PRIMARY KEY,
  name_short TEXT NOT NULL UNIQUE,
  name_full TEXT NOT NULL DEFAULT '',
  group_id BIGINT REFERENCES commodity_groups(id),
  type_id BIGINT REFERENCES commodity_types(id),
  code TEXT NOT NULL UNIQUE,
  default_unit TEXT NOT NULL DEFAULT 'MT',
  is_active BOOLEAN NOT NULL DEFAULT true,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS traders (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT '',
  employee_id TEXT NOT NULL DEFAULT '',
  department TEXT NOT NULL DEFAULT '',
  hire_date DATE,
  is_active BOOLEAN NOT NULL DEFAULT true,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS sociedades (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  tax_id TEXT NOT NULL DEFAULT '',
  address TEXT NOT NULL DEFAULT '',
  city TEXT NOT NULL DEFAULT '',
  country TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL DEFAULT '',
  is_active BOOLEAN NOT NULL DEFAULT true,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS cost_centers (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  description TEXT NOT NULL DEFAULT '',
  is_active BOOLEAN NOT NULL DEFAULT true,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS currencies (
  id BIGSERIAL PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL DEFAULT '',
  symbol TEXT NOT NULL DEFAULT '',
  is_active BOOLEAN NOT NULL DEFAULT true
);
CREATE TABLE IF NOT EXISTS exchange_rates (
  id BIGSERIAL PRIMARY KEY,
  currency_id BIGINT NOT NULL REFERENCES currencies(id),
  rate NUMERIC(18,6) NOT NULL,
  rate_date DATE NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  UNIQUE (currency_id, rate_date)
);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

func (r *RefdataRepo) CreateCounterparty(ctx context.Context, c *entity.Counterparty) error {
	const q = `INSERT INTO counterparties (name, tax_id, address, city, country, phone, email, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at, updated_at`
	return r.db.QueryRowxContext(ctx, q, c.Name, c.TaxID, c.Address, c.City, c.Country, c.Phone, c.Email, c.IsActive).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *RefdataRepo) GetCounterparty(ctx context.Context, id int64) (*entity.Counterparty, error) {
	const q = `SELECT * FROM counterparties WHERE id=$1`
	var row entity.Counterparty
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *RefdataRepo) ListCounterparties(ctx context.Context, limit, offset int) ([]entity.Counterparty, error) {
	const q = `SELECT * FROM counterparties ORDER BY name LIMIT $1 OFFSET $2`
	out := []entity.Counterparty{}
	if err := r.db.SelectContext(ctx, &out, q, clampLimit(limit), offset); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *RefdataRepo) UpdateCounterparty(ctx context.Context, c *entity.Counterparty) (int64, error) {
	const q = `UPDATE counterparties SET name=$2, tax_id=$3, address=$4, city=$5, country=$6, phone=$7, email=$8,
		is_active=$9, updated_at=NOW() WHERE id=$1`
	res, err := r.db.ExecContext(ctx, q, c.ID, c.Name, c.TaxID, c.Address, c.City, c.Country, c.Phone, c.Email, c.IsActive)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *RefdataRepo) CreateCommodity(ctx context.Context, c *entity.Commodity) error {
	const q = `INSERT INTO commodities (name_short, name_full, group_id, type_id, code, default_unit, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at, updated_at`
	return r.db.QueryRowxContext(ctx, q, c.NameShort, c.NameFull, c.GroupID, c.TypeID, c.Code, c.DefaultUnit, c.IsActive).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *RefdataRepo) GetCommodity(ctx context.Context, id int64) (*entity.Commodity, error) {
	const q = `SELECT * FROM commodities WHERE id=$1`
	var row entity.Commodity
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *RefdataRepo) ListCommodities(ctx context.Context, limit, offset int) ([]entity.Commodity, error) {
	const q = `SELECT * FROM commodities ORDER BY name_short LIMIT $1 OFFSET $2`
	out := []entity.Commodity{}
	if err := r.db.SelectContext(ctx, &out, q, clampLimit(limit), offset); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *RefdataRepo) UpdateCommodity(ctx context.Context, c *entity.Commodity) (int64, error) {
	const q = `UPDATE commodities SET name_short=$2, name_full=$3, group_id=$4, type_id=$5, default_unit=$6,
		is_active=$7, updated_at=NOW() WHERE id=$1`
	res, err := r.db.ExecContext(ctx, q, c.ID, c.NameShort, c.NameFull, c.GroupID, c.TypeID, c.DefaultUnit, c.IsActive)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *RefdataRepo) CreateCurrency(ctx context.Context, c *entity.Currency) error {
	const q = `INSERT INTO currencies (code, name, symbol, is_active) VALUES ($1, $2, $3, $4) RETURNING id`
	return r.db.QueryRowxContext(ctx, q, c.Code, c.Name, c.Symbol, c.IsActive).Scan(&c.ID)
}

func (r *RefdataRepo) ListCurrencies(ctx context.Context) ([]entity.Currency, error) {
	const q = `SELECT * FROM currencies ORDER BY code`
	out := []entity.Currency{}
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *RefdataRepo) CreateExchangeRate(ctx context.Context, e *entity.ExchangeRate) error {
	const q = `INSERT INTO exchange_rates (currency_id, rate, rate_date) VALUES ($1, $2, $3)
		RETURNING id, created_at`
	return r.db.QueryRowxContext(ctx, q, e.CurrencyID, e.Rate, e.RateDate).Scan(&e.ID, &e.CreatedAt)
}

func (r *RefdataRepo) ListExchangeRates(ctx context.Context, currencyID int64, limit int) ([]entity.ExchangeRate, error) {
	const q = `SELECT * FROM exchange_rates WHERE currency_id=$1 ORDER BY rate_date DESC LIMIT $2`
	out := []entity.ExchangeRate{}
	if err := r.db.SelectContext(ctx, &out, q, currencyID, clampLimit(limit)); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *RefdataRepo) CreateCommodityGroup(ctx context.Context, g *entity.CommodityGroup) error {
	const q = `INSERT INTO commodity_groups (name, description, sort_order, is_active)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at, updated_at`
	return r.db.QueryRowxContext(ctx, q, g.Name, g.Description, g.SortOrder, g.IsActive).
		Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
}

func (r *RefdataRepo) ListCommodityGroups(ctx context.Context) ([]entity.CommodityGroup, error) {
	const q = `SELECT * FROM commodity_groups ORDER BY sort_order, name`
	out := []entity.CommodityGroup{}
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *RefdataRepo) CreateCommodityType(ctx context.Context, t *entity.CommodityType) error {
	const q = `INSERT INTO commodity_types (name, description, sort_order, is_active)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at, updated_at`
	return r.db.QueryRowxContext(ctx, q, t.Name, t.Description, t.SortOrder, t.IsActive).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

func (r *RefdataRepo) ListCommodityTypes(ctx context.Context) ([]entity.CommodityType, error) {
	const q = `SELECT * FROM commodity_types ORDER BY sort_order, name`
	out := []entity.CommodityType{}
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *RefdataRepo) CreateTrader(ctx context.Context, t *entity.Trader) error {
	const q = `INSERT INTO traders (name, email, phone, employee_id, department, hire_date, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at, updated_at`
	return r.db.QueryRowxContext(ctx, q, t.Name, t.Email, t.Phone, t.EmployeeID, t.Department, t.HireDate, t.IsActive).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

func (r *RefdataRepo) ListTraders(ctx context.Context) ([]entity.Trader, error) {
	const q = `SELECT * FROM traders ORDER BY name`
	out := []entity.Trader{}
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *RefdataRepo) CreateSociedad(ctx context.Context, s *entity.Sociedad) error {
	const q = `INSERT INTO sociedades (name, tax_id, address, city, country, phone, email, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at, updated_at`
	return r.db.QueryRowxContext(ctx, q, s.Name, s.TaxID, s.Address, s.City, s.Country, s.Phone, s.Email, s.IsActive).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

func (r *RefdataRepo) ListSociedades(ctx context.Context) ([]entity.Sociedad, error) {
	const q = `SELECT * FROM sociedades ORDER BY name`
	out := []entity.Sociedad{}
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *RefdataRepo) CreateCostCenter(ctx context.Context, c *entity.CostCenter) error {
	const q = `INSERT INTO cost_centers (name, description, is_active)
		VALUES ($1, $2, $3) RETURNING id, created_at, updated_at`
	return r.db.QueryRowxContext(ctx, q, c.Name, c.Description, c.IsActive).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *RefdataRepo) ListCostCenters(ctx context.Context) ([]entity.CostCenter, error) {
	const q = `SELECT * FROM cost_centers ORDER BY name`
	out := []entity.CostCenter{}
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 200 {
		return 50
	}
	return limit
}
