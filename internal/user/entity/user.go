package entity

import "time"

// User represents an account row in the `users` table. Soft-delete is
// anonymization: the row survives so audit references stay intact.
type User struct {
	ID           int64      `db:"id"`
	Username     string     `db:"username"`
	Email        string     `db:"email"`
	FirstName    string     `db:"first_name"`
	LastName     string     `db:"last_name"`
	PasswordHash string     `db:"password_hash"`
	IsActive     bool       `db:"is_active"`
	DateJoined   time.Time  `db:"date_joined"`
	LastLoginAt  *time.Time `db:"last_login_at"`
}

// Profile is the 1:1 extension of a user holding contact fields, consent
// state, and the lockout counters.
//
// AccountLockedUntil is either nil or a future timestamp while the account is
// locked; once the timestamp passes the account is implicitly unlocked on the
// next login attempt, there is no background sweep.
type Profile struct {
	ID                  int64      `db:"id"`
	UserID              int64      `db:"user_id"`
	Phone               string     `db:"phone"`
	Company             string     `db:"company"`
	Position            string     `db:"position"`
	Timezone            string     `db:"timezone"`
	GDPRConsent         bool       `db:"gdpr_consent"`
	GDPRConsentDate     *time.Time `db:"gdpr_consent_date"`
	GDPRConsentIP       *string    `db:"gdpr_consent_ip"`
	MFAEnabled          bool       `db:"is_mfa_enabled"`
	FailedLoginAttempts int        `db:"failed_login_attempts"`
	LastLoginIP         *string    `db:"last_login_ip"`
	AccountLockedUntil  *time.Time `db:"account_locked_until"`
	CreatedAt           time.Time  `db:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"`
}

// Locked reports whether the lockout window is still in effect at now.
func (p *Profile) Locked(now time.Time) bool {
	return p.AccountLockedUntil != nil && now.Before(*p.AccountLockedUntil)
}
