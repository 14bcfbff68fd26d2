package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/nextcrm/backoffice-core-go/internal/audit/entity"
)

// AuditRepo is the append-only store for audit logs and login attempts.
// No update path exists; DeleteBefore is reserved for privileged retention
// jobs and is intentionally not routed over HTTP.
type AuditRepo struct {
	db *sqlx.DB
}

func NewAuditRepo(db *sqlx.DB) *AuditRepo { return &AuditRepo{db: db} }

// EnsureTables creates the audit tables if not exists (idempotent).
func (r *AuditRepo) EnsureTables(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS audit_logs (
  id UUID PRIMARY KEY,
  user_id BIGINT REFERENCES users(id) ON DELETE SET NULL,
  action TEXT NOT NULL,
  entity_name TEXT NOT NULL DEFAULT '',
  entity_id BIGINT,
  entity_repr TEXT NOT NULL DEFAULT '',
  changes JSONB NOT NULL DEFAULT '{}'::jsonb,
  ip_address TEXT,
  user_agent TEXT NOT NULL DEFAULT '',
  session_key TEXT NOT NULL DEFAULT '',
  timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_audit_logs_user_ts ON audit_logs (user_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_logs_entity_ts ON audit_logs (entity_name, timestamp);
CREATE TABLE IF NOT EXISTS login_attempts (
  id BIGSERIAL PRIMARY KEY,
  username TEXT NOT NULL,
  ip_address TEXT NOT NULL DEFAULT '',
  user_agent TEXT NOT NULL DEFAULT '',
  successful BOOLEAN NOT NULL,
  failure_reason TEXT NOT NULL DEFAULT '',
  timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_login_attempts_username_ts ON login_attempts (username, timestamp);
CREATE INDEX IF NOT EXISTS idx_login_attempts_ip_ts ON login_attempts (ip_address, timestamp);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// SaveAuditLog appends one audit record. The UUID is assigned here when the
// caller left it empty.
func (r *AuditRepo) SaveAuditLog(ctx context.Context, e *entity.AuditLog) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	changes := e.Changes
	if len(changes) == 0 {
		changes = []byte("{}")
	}
	const q = `INSERT INTO audit_logs (id, user_id, action, entity_name, entity_id, entity_repr, changes, ip_address, user_agent, session_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.ExecContext(ctx, q, e.ID, e.UserID, e.Action, e.EntityName, e.EntityID,
		e.EntityRepr, []byte(changes), e.IPAddress, e.UserAgent, e.SessionKey)
	return err
}

// SaveLoginAttempt appends one login attempt record.
func (r *AuditRepo) SaveLoginAttempt(ctx context.Context, a *entity.LoginAttempt) error {
	const q = `INSERT INTO login_attempts (username, ip_address, user_agent, successful, failure_reason)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	return r.db.QueryRowxContext(ctx, q, a.Username, a.IPAddress, a.UserAgent, a.Successful, a.FailureReason).Scan(&a.ID)
}

// ListByUser returns the most recent audit entries for one user, newest
// first. Serves the GDPR export only; there is no general read endpoint.
func (r *AuditRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]entity.AuditLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	const q = `SELECT id, user_id, action, entity_name, entity_id, entity_repr, changes, ip_address, user_agent, session_key, timestamp
		FROM audit_logs WHERE user_id=$1 ORDER BY timestamp DESC LIMIT $2`
	out := []entity.AuditLog{}
	if err := r.db.SelectContext(ctx, &out, q, userID, limit); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteBefore removes audit records older than the cutoff. Privileged
// retention operation; never exposed to request handlers.
func (r *AuditRepo) DeleteBefore(ctx context.Context, cutoff string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
