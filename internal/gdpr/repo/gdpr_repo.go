package repo

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/nextcrm/backoffice-core-go/internal/gdpr/entity"
)

// GDPRRepo is the append-only store of consent records.
type GDPRRepo struct {
	db *sqlx.DB
}

func NewGDPRRepo(db *sqlx.DB) *GDPRRepo { return &GDPRRepo{db: db} }

// EnsureTable creates the consent ledger table if not exists (idempotent).
func (r *GDPRRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS gdpr_records (
  id BIGSERIAL PRIMARY KEY,
  user_id BIGINT NOT NULL REFERENCES users(id),
  consent_type TEXT NOT NULL,
  consent_given BOOLEAN NOT NULL,
  consent_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  ip_address TEXT,
  user_agent TEXT NOT NULL DEFAULT '',
  withdrawal_date TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_gdpr_records_user_date ON gdpr_records (user_id, consent_date);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Append writes one consent record. There is no update path.
func (r *GDPRRepo) Append(ctx context.Context, rec *entity.Record) error {
	const q = `INSERT INTO gdpr_records (user_id, consent_type, consent_given, ip_address, user_agent, withdrawal_date)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, consent_date`
	return r.db.QueryRowxContext(ctx, q, rec.UserID, rec.ConsentType, rec.ConsentGiven,
		rec.IPAddress, rec.UserAgent, rec.WithdrawalDate).Scan(&rec.ID, &rec.ConsentDate)
}

// ListByUser returns the full consent history for a user, newest first.
func (r *GDPRRepo) ListByUser(ctx context.Context, userID int64) ([]entity.Record, error) {
	const q = `SELECT id, user_id, consent_type, consent_given, consent_date, ip_address, user_agent, withdrawal_date
		FROM gdpr_records WHERE user_id=$1 ORDER BY consent_date DESC, id DESC`
	out := []entity.Record{}
	if err := r.db.SelectContext(ctx, &out, q, userID); err != nil {
		return nil, err
	}
	return out, nil
}
