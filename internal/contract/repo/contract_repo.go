package repo

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/nextcrm/backoffice-core-go/internal/contract/entity"
)

// ContractRepo provides data access for contracts and their amendment
// history.
type ContractRepo struct {
	db *sqlx.DB
}

func NewContractRepo(db *sqlx.DB) *ContractRepo { return &ContractRepo{db: db} }

// EnsureTables creates the contract tables if not exists (idempotent).
func (r *ContractRepo) EnsureTables(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS contracts (
  id BIGSERIAL PRIMARY KEY,
  contract_number TEXT NOT NULL UNIQUE,
  counterparty_id BIGINT NOT NULL REFERENCES counterparties(id),
  commodity_id BIGINT NOT NULL REFERENCES commodities(id),
  currency_id BIGINT NOT NULL REFERENCES currencies(id),
  quantity NUMERIC(18,3) NOT NULL,
  unit_price NUMERIC(18,4) NOT NULL,
  delivery_status TEXT NOT NULL DEFAULT 'pending',
  status TEXT NOT NULL DEFAULT 'draft',
  contract_date DATE NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS contract_amendments (
  id BIGSERIAL PRIMARY KEY,
  contract_id BIGINT NOT NULL REFERENCES contracts(id) ON DELETE CASCADE,
  field TEXT NOT NULL,
  old_value TEXT NOT NULL DEFAULT '',
  new_value TEXT NOT NULL DEFAULT '',
  created_by BIGINT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_contract_amendments_contract
  ON contract_amendments (contract_id, created_at);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

func (r *ContractRepo) Create(ctx context.Context, c *entity.Contract) error {
	const q = `INSERT INTO contracts (contract_number, counterparty_id, commodity_id, currency_id,
		quantity, unit_price, delivery_status, status, contract_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id, created_at, updated_at`
	return r.db.QueryRowxContext(ctx, q, c.ContractNumber, c.CounterpartyID, c.CommodityID, c.CurrencyID,
		c.Quantity, c.UnitPrice, c.DeliveryStatus, c.Status, c.ContractDate).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *ContractRepo) Get(ctx context.Context, id int64) (*entity.Contract, error) {
	const q = `SELECT * FROM contracts WHERE id=$1`
	var row entity.Contract
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *ContractRepo) List(ctx context.Context, status string, limit, offset int) ([]entity.Contract, error) {
	out := []entity.Contract{}
	if status != "" {
		const q = `SELECT * FROM contracts WHERE status=$1 ORDER BY contract_date DESC, id DESC LIMIT $2 OFFSET $3`
		if err := r.db.SelectContext(ctx, &out, q, status, clampLimit(limit), offset); err != nil {
			return nil, err
		}
		return out, nil
	}
	const q = `SELECT * FROM contracts ORDER BY contract_date DESC, id DESC LIMIT $1 OFFSET $2`
	if err := r.db.SelectContext(ctx, &out, q, clampLimit(limit), offset); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateWithAmendments applies the update and appends the amendment rows in
// one transaction, so the history can never disagree with the row.
func (r *ContractRepo) UpdateWithAmendments(ctx context.Context, c *entity.Contract, amendments []entity.Amendment) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	const q = `UPDATE contracts SET counterparty_id=$2, commodity_id=$3, currency_id=$4, quantity=$5,
		unit_price=$6, delivery_status=$7, status=$8, contract_date=$9, updated_at=NOW() WHERE id=$1`
	res, err := tx.ExecContext(ctx, q, c.ID, c.CounterpartyID, c.CommodityID, c.CurrencyID,
		c.Quantity, c.UnitPrice, c.DeliveryStatus, c.Status, c.ContractDate)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}

	const ins = `INSERT INTO contract_amendments (contract_id, field, old_value, new_value, created_by)
		VALUES ($1, $2, $3, $4, $5)`
	for _, a := range amendments {
		if _, err := tx.ExecContext(ctx, ins, c.ID, a.Field, a.OldValue, a.NewValue, a.CreatedBy); err != nil {
			return 0, err
		}
	}
	return n, tx.Commit()
}

func (r *ContractRepo) ListAmendments(ctx context.Context, contractID int64) ([]entity.Amendment, error) {
	const q = `SELECT * FROM contract_amendments WHERE contract_id=$1 ORDER BY created_at, id`
	out := []entity.Amendment{}
	if err := r.db.SelectContext(ctx, &out, q, contractID); err != nil {
		return nil, err
	}
	return out, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return 50
	case limit > 200:
		return 200
	default:
		return limit
	}
}
