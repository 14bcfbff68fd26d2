package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/nextcrm/backoffice-core-go/internal/user/entity"
)

// UserRepo provides data access for the users and user_profiles tables.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// EnsureTables creates the credential-store tables if not exists (idempotent).
// This is a convenience for early development; prefer migrations in production.
func (r *UserRepo) EnsureTables(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS users (
  id BIGSERIAL PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  email TEXT NOT NULL UNIQUE,
  first_name TEXT NOT NULL DEFAULT '',
  last_name TEXT NOT NULL DEFAULT '',
  password_hash TEXT NOT NULL,
  is_active BOOLEAN NOT NULL DEFAULT true,
  date_joined TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  last_login_at TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS user_profiles (
  id BIGSERIAL PRIMARY KEY,
  user_id BIGINT NOT NULL UNIQUE REFERENCES users(id),
  phone TEXT NOT NULL DEFAULT '',
  company TEXT NOT NULL DEFAULT '',
  position TEXT NOT NULL DEFAULT '',
  timezone TEXT NOT NULL DEFAULT 'UTC',
  gdpr_consent BOOLEAN NOT NULL DEFAULT false,
  gdpr_consent_date TIMESTAMPTZ,
  gdpr_consent_ip TEXT,
  is_mfa_enabled BOOLEAN NOT NULL DEFAULT false,
  failed_login_attempts INT NOT NULL DEFAULT 0,
  last_login_ip TEXT,
  account_locked_until TIMESTAMPTZ,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// CreateWithProfile inserts the user, its profile, and (when consent was
// given) the initial data_processing consent record in one transaction. All
// three writes succeed or none do.
func (r *UserRepo) CreateWithProfile(ctx context.Context, u *entity.User, p *entity.Profile, consentIP, consentUA string) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	const insUser = `INSERT INTO users (username, email, first_name, last_name, password_hash, is_active)
		VALUES ($1, $2, $3, $4, $5, true) RETURNING id, date_joined`
	if err := tx.QueryRowxContext(ctx, insUser, u.Username, u.Email, u.FirstName, u.LastName, u.PasswordHash).
		Scan(&u.ID, &u.DateJoined); err != nil {
		return 0, err
	}

	const insProfile = `INSERT INTO user_profiles
		(user_id, phone, company, position, timezone, gdpr_consent, gdpr_consent_date, gdpr_consent_ip)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	tz := p.Timezone
	if tz == "" {
		tz = "UTC"
	}
	if err := tx.QueryRowxContext(ctx, insProfile, u.ID, p.Phone, p.Company, p.Position, tz,
		p.GDPRConsent, p.GDPRConsentDate, p.GDPRConsentIP).Scan(&p.ID); err != nil {
		return 0, err
	}
	p.UserID = u.ID

	if p.GDPRConsent {
		const insConsent = `INSERT INTO gdpr_records (user_id, consent_type, consent_given, ip_address, user_agent)
			VALUES ($1, 'data_processing', true, $2, $3)`
		if _, err := tx.ExecContext(ctx, insConsent, u.ID, nullIfEmpty(consentIP), consentUA); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return u.ID, nil
}

// GetByUsername returns a user matched by username or sql.ErrNoRows.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	const q = `SELECT id, username, email, first_name, last_name, password_hash, is_active, date_joined, last_login_at
		FROM users WHERE username=$1`
	var row entity.User
	if err := r.db.GetContext(ctx, &row, q, username); err != nil {
		return nil, err
	}
	return &row, nil
}

// GetByID fetches a full user row.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	const q = `SELECT id, username, email, first_name, last_name, password_hash, is_active, date_joined, last_login_at
		FROM users WHERE id=$1`
	var row entity.User
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// GetProfile fetches the profile row for a user.
func (r *UserRepo) GetProfile(ctx context.Context, userID int64) (*entity.Profile, error) {
	const q = `SELECT id, user_id, phone, company, position, timezone, gdpr_consent, gdpr_consent_date,
		gdpr_consent_ip, is_mfa_enabled, failed_login_attempts, last_login_ip, account_locked_until,
		created_at, updated_at
		FROM user_profiles WHERE user_id=$1`
	var row entity.Profile
	if err := r.db.GetContext(ctx, &row, q, userID); err != nil {
		return nil, err
	}
	return &row, nil
}

// IncrementFailedAttempts increments the failure counter atomically and
// returns the new value.
func (r *UserRepo) IncrementFailedAttempts(ctx context.Context, userID int64) (int, error) {
	const q = `UPDATE user_profiles SET failed_login_attempts = failed_login_attempts + 1, updated_at=NOW()
		WHERE user_id=$1 RETURNING failed_login_attempts`
	var v int
	if err := r.db.GetContext(ctx, &v, q, userID); err != nil {
		return 0, err
	}
	return v, nil
}

// LockIfThreshold sets account_locked_until when the failure counter has
// reached the threshold. Failures against an already locked account extend
// the lock, so sustained wrong-password traffic keeps the account locked.
func (r *UserRepo) LockIfThreshold(ctx context.Context, userID int64, threshold int, lockFor time.Duration) (bool, error) {
	const q = `UPDATE user_profiles SET account_locked_until = NOW() + ($2 * interval '1 second'), updated_at=NOW()
		WHERE user_id=$1 AND failed_login_attempts >= $3
		RETURNING 1`
	var one int
	err := r.db.GetContext(ctx, &one, q, userID, int(lockFor.Seconds()), threshold)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ResetOnSuccess clears the failure counter and lockout and records the
// login source address.
func (r *UserRepo) ResetOnSuccess(ctx context.Context, userID int64, ip string) error {
	const q = `UPDATE user_profiles SET failed_login_attempts=0, account_locked_until=NULL,
		last_login_ip=$2, updated_at=NOW() WHERE user_id=$1`
	if _, err := r.db.ExecContext(ctx, q, userID, nullIfEmpty(ip)); err != nil {
		return err
	}
	const qu = `UPDATE users SET last_login_at=NOW() WHERE id=$1`
	_, err := r.db.ExecContext(ctx, qu, userID)
	return err
}

// UnlockIfExpired clears an elapsed lockout. Lockout expiry is lazy: this
// runs on the next login attempt, never from a background job. The failure
// counter survives the unlock, only a successful login resets it, so a wrong
// password after expiry re-locks the account immediately.
func (r *UserRepo) UnlockIfExpired(ctx context.Context, userID int64) (bool, error) {
	const q = `UPDATE user_profiles SET account_locked_until=NULL, updated_at=NOW()
		WHERE user_id=$1 AND account_locked_until IS NOT NULL AND account_locked_until < NOW()
		RETURNING 1`
	var one int
	err := r.db.GetContext(ctx, &one, q, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, userID int64, hash string) error {
	const q = `UPDATE users SET password_hash=$2 WHERE id=$1`
	_, err := r.db.ExecContext(ctx, q, userID, hash)
	return err
}

// UpdateProfile writes the mutable name/contact fields.
func (r *UserRepo) UpdateProfile(ctx context.Context, userID int64, firstName, lastName, phone, company, position, timezone string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE users SET first_name=$2, last_name=$3 WHERE id=$1`,
		userID, firstName, lastName); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE user_profiles SET phone=$2, company=$3, position=$4, timezone=$5, updated_at=NOW()
		WHERE user_id=$1`, userID, phone, company, position, timezone); err != nil {
		return err
	}
	return tx.Commit()
}

// Anonymize soft-deletes the account: identity fields are overwritten and the
// row deactivated so audit-trail references stay valid.
func (r *UserRepo) Anonymize(ctx context.Context, userID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	const qu = `UPDATE users SET
		username = 'deleted_user_' || id,
		email = 'deleted_' || id || '@example.com',
		first_name = 'Deleted', last_name = 'User', is_active = false
		WHERE id=$1`
	if _, err := tx.ExecContext(ctx, qu, userID); err != nil {
		return err
	}
	const qp = `UPDATE user_profiles SET phone='', company='', position='', gdpr_consent=false, updated_at=NOW()
		WHERE user_id=$1`
	if _, err := tx.ExecContext(ctx, qp, userID); err != nil {
		return err
	}
	return tx.Commit()
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
