package entity

import (
	"encoding/json"
	"time"
)

// Action enumerates the auditable action kinds.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
	ActionView   Action = "VIEW"
	ActionLogin  Action = "LOGIN"
	ActionLogout Action = "LOGOUT"
	ActionExport Action = "EXPORT"
)

// AuditLog is an immutable record of a security-relevant action. UserID is
// nullable so records survive user deletion. Rows are never updated;
// deletion is a privileged operator action, not exposed over HTTP.
type AuditLog struct {
	ID         string          `db:"id" json:"id"`
	UserID     *int64          `db:"user_id" json:"user_id"`
	Action     Action          `db:"action" json:"action"`
	EntityName string          `db:"entity_name" json:"entity_name"`
	EntityID   *int64          `db:"entity_id" json:"entity_id"`
	EntityRepr string          `db:"entity_repr" json:"entity_repr"`
	Changes    json.RawMessage `db:"changes" json:"changes,omitempty"`
	IPAddress  *string         `db:"ip_address" json:"ip_address"`
	UserAgent  string          `db:"user_agent" json:"user_agent"`
	SessionKey string          `db:"session_key" json:"session_key"`
	Timestamp  time.Time       `db:"timestamp" json:"timestamp"`
}

// LoginAttempt records one login try, success or failure. Username is a
// plain string rather than a foreign key so attempts survive user deletion.
type LoginAttempt struct {
	ID            int64     `db:"id" json:"id"`
	Username      string    `db:"username" json:"username"`
	IPAddress     string    `db:"ip_address" json:"ip_address"`
	UserAgent     string    `db:"user_agent" json:"user_agent"`
	Successful    bool      `db:"successful" json:"successful"`
	FailureReason string    `db:"failure_reason" json:"failure_reason"`
	Timestamp     time.Time `db:"timestamp" json:"timestamp"`
}
