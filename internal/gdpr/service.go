package gdpr

import (
	"context"
	"errors"

	auditentity "github.com/nextcrm/backoffice-core-go/internal/audit/entity"
	"github.com/nextcrm/backoffice-core-go/internal/gdpr/entity"
	"github.com/nextcrm/backoffice-core-go/internal/user"
)

var ErrUnknownConsentType = errors.New("unknown consent type")

// Ledger is the persistence contract of the consent ledger.
type Ledger interface {
	Append(ctx context.Context, rec *entity.Record) error
	ListByUser(ctx context.Context, userID int64) ([]entity.Record, error)
}

// AuditReader supplies the audit slice of the personal-data export.
type AuditReader interface {
	ListByUser(ctx context.Context, userID int64, limit int) ([]auditentity.AuditLog, error)
}

// Service owns the append-only consent ledger and the data-portability
// export.
type Service struct {
	ledger Ledger
	users  *user.Service
	audits AuditReader
}

func NewService(ledger Ledger, users *user.Service, audits AuditReader) *Service {
	return &Service{ledger: ledger, users: users, audits: audits}
}

// RecordConsent appends a consent decision. Always an append, never an
// update: history is the ledger itself.
func (s *Service) RecordConsent(ctx context.Context, userID int64, consentType entity.ConsentType, given bool, ip, userAgent string) (*entity.Record, error) {
	if !consentType.Valid() {
		return nil, ErrUnknownConsentType
	}
	rec := &entity.Record{
		UserID:       userID,
		ConsentType:  consentType,
		ConsentGiven: given,
		UserAgent:    userAgent,
	}
	if ip != "" {
		rec.IPAddress = &ip
	}
	if err := s.ledger.Append(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// History returns the full consent ledger for a user, newest first.
func (s *Service) History(ctx context.Context, userID int64) ([]entity.Record, error) {
	return s.ledger.ListByUser(ctx, userID)
}

// CurrentState derives the effective consent per type from the latest record
// of each (user, type) pair.
func (s *Service) CurrentState(ctx context.Context, userID int64) (map[entity.ConsentType]bool, error) {
	recs, err := s.ledger.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	state := map[entity.ConsentType]bool{}
	// records arrive newest first; the first hit per type wins
	for _, r := range recs {
		if _, seen := state[r.ConsentType]; !seen {
			state[r.ConsentType] = r.ConsentGiven
		}
	}
	return state, nil
}

// ExportBundle is the data-portability payload: everything the service holds
// about one person.
type ExportBundle struct {
	PersonalInfo struct {
		Username   string `json:"username"`
		Email      string `json:"email"`
		FirstName  string `json:"first_name"`
		LastName   string `json:"last_name"`
		DateJoined any    `json:"date_joined"`
		LastLogin  any    `json:"last_login"`
	} `json:"personal_info"`
	Profile     *user.ProfileView      `json:"profile"`
	GDPRRecords []entity.Record        `json:"gdpr_records"`
	AuditLogs   []auditentity.AuditLog `json:"audit_logs"`
}

// Export assembles the personal-data bundle: profile, consent history, and
// the last 100 audit entries.
func (s *Service) Export(ctx context.Context, userID int64) (*ExportBundle, error) {
	view, err := s.users.GetProfileView(ctx, userID)
	if err != nil {
		return nil, err
	}
	recs, err := s.ledger.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	logs, err := s.audits.ListByUser(ctx, userID, 100)
	if err != nil {
		return nil, err
	}

	b := &ExportBundle{Profile: view, GDPRRecords: recs, AuditLogs: logs}
	b.PersonalInfo.Username = view.Username
	b.PersonalInfo.Email = view.Email
	b.PersonalInfo.FirstName = view.FirstName
	b.PersonalInfo.LastName = view.LastName
	b.PersonalInfo.DateJoined = view.DateJoined
	b.PersonalInfo.LastLogin = view.LastLogin
	return b, nil
}
