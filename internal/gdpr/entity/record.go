package entity

import "time"

// ConsentType enumerates the kinds of privacy consent tracked per user.
type ConsentType string

const (
	ConsentDataProcessing ConsentType = "data_processing"
	ConsentMarketing      ConsentType = "marketing"
	ConsentAnalytics      ConsentType = "analytics"
	ConsentCookies        ConsentType = "cookies"
)

// Valid reports whether t is one of the known consent types.
func (t ConsentType) Valid() bool {
	switch t {
	case ConsentDataProcessing, ConsentMarketing, ConsentAnalytics, ConsentCookies:
		return true
	}
	return false
}

// Record is one entry in the append-only consent ledger. A new row is
// written for every consent change; rows are never mutated, so the table is
// the full consent history and the current state is the latest row per
// (user, consent_type).
type Record struct {
	ID             int64       `db:"id" json:"id"`
	UserID         int64       `db:"user_id" json:"-"`
	ConsentType    ConsentType `db:"consent_type" json:"consent_type"`
	ConsentGiven   bool        `db:"consent_given" json:"consent_given"`
	ConsentDate    time.Time   `db:"consent_date" json:"consent_date"`
	IPAddress      *string     `db:"ip_address" json:"-"`
	UserAgent      string      `db:"user_agent" json:"-"`
	WithdrawalDate *time.Time  `db:"withdrawal_date" json:"withdrawal_date,omitempty"`
}
