package gdpr

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	auditentity "github.com/nextcrm/backoffice-core-go/internal/audit/entity"
	"github.com/nextcrm/backoffice-core-go/internal/gdpr/entity"
	"github.com/nextcrm/backoffice-core-go/internal/user"
	userentity "github.com/nextcrm/backoffice-core-go/internal/user/entity"
)

// fakeLedger stores consent records in memory, newest first like the
// Postgres implementation.
type fakeLedger struct {
	nextID int64
	recs   []entity.Record
}

func (f *fakeLedger) Append(_ context.Context, rec *entity.Record) error {
	f.nextID++
	rec.ID = f.nextID
	rec.ConsentDate = time.Now().UTC()
	f.recs = append([]entity.Record{*rec}, f.recs...)
	return nil
}

func (f *fakeLedger) ListByUser(_ context.Context, userID int64) ([]entity.Record, error) {
	out := []entity.Record{}
	for _, r := range f.recs {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeAudits struct {
	logs []auditentity.AuditLog
}

func (f *fakeAudits) ListByUser(_ context.Context, userID int64, limit int) ([]auditentity.AuditLog, error) {
	out := []auditentity.AuditLog{}
	for _, l := range f.logs {
		if l.UserID != nil && *l.UserID == userID {
			out = append(out, l)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// profileStore is a minimal user.Store carrying one fixed user.
type profileStore struct {
	user    userentity.User
	profile userentity.Profile
}

func (s *profileStore) CreateWithProfile(context.Context, *userentity.User, *userentity.Profile, string, string) (int64, error) {
	return 0, nil
}
func (s *profileStore) GetByUsername(context.Context, string) (*userentity.User, error) {
	u := s.user
	return &u, nil
}
func (s *profileStore) GetByID(context.Context, int64) (*userentity.User, error) {
	u := s.user
	return &u, nil
}
func (s *profileStore) GetProfile(context.Context, int64) (*userentity.Profile, error) {
	p := s.profile
	return &p, nil
}
func (s *profileStore) IncrementFailedAttempts(context.Context, int64) (int, error) { return 0, nil }
func (s *profileStore) LockIfThreshold(context.Context, int64, int, time.Duration) (bool, error) {
	return false, nil
}
func (s *profileStore) ResetOnSuccess(context.Context, int64, string) error      { return nil }
func (s *profileStore) UnlockIfExpired(context.Context, int64) (bool, error)     { return false, nil }
func (s *profileStore) UpdatePassword(context.Context, int64, string) error      { return nil }
func (s *profileStore) Anonymize(context.Context, int64) error                   { return nil }
func (s *profileStore) UpdateProfile(context.Context, int64, string, string, string, string, string, string) error {
	return nil
}

func newTestService() (*Service, *fakeLedger, *fakeAudits) {
	store := &profileStore{
		user: userentity.User{
			ID:       1,
			Username: "alice",
			Email:    "alice@example.com",
			IsActive: true,
		},
		profile: userentity.Profile{UserID: 1, GDPRConsent: true},
	}
	users := user.NewService(store, user.BcryptHasher{Cost: 4})
	ledger := &fakeLedger{}
	audits := &fakeAudits{}
	return NewService(ledger, users, audits), ledger, audits
}

func TestRecordConsentValidatesType(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.RecordConsent(context.Background(), 1, "telepathy", true, "", "")
	require.ErrorIs(t, err, ErrUnknownConsentType)
}

func TestRecordConsentAppends(t *testing.T) {
	svc, ledger, _ := newTestService()
	ctx := context.Background()

	rec, err := svc.RecordConsent(ctx, 1, entity.ConsentMarketing, true, "203.0.113.7", "test-agent")
	require.NoError(t, err)
	require.NotZero(t, rec.ID)
	require.False(t, rec.ConsentDate.IsZero())

	// withdrawing appends a second row, the first survives
	_, err = svc.RecordConsent(ctx, 1, entity.ConsentMarketing, false, "203.0.113.7", "test-agent")
	require.NoError(t, err)
	require.Len(t, ledger.recs, 2)
}

func TestCurrentStateLatestWins(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.RecordConsent(ctx, 1, entity.ConsentMarketing, true, "", "")
	require.NoError(t, err)
	_, err = svc.RecordConsent(ctx, 1, entity.ConsentAnalytics, true, "", "")
	require.NoError(t, err)
	_, err = svc.RecordConsent(ctx, 1, entity.ConsentMarketing, false, "", "")
	require.NoError(t, err)

	state, err := svc.CurrentState(ctx, 1)
	require.NoError(t, err)
	require.False(t, state[entity.ConsentMarketing])
	require.True(t, state[entity.ConsentAnalytics])
	require.NotContains(t, state, entity.ConsentCookies)
}

func TestExportBundle(t *testing.T) {
	svc, _, audits := newTestService()
	ctx := context.Background()

	uid := int64(1)
	audits.logs = append(audits.logs, auditentity.AuditLog{
		ID:     "log-1",
		UserID: &uid,
		Action: auditentity.ActionLogin,
	})

	_, err := svc.RecordConsent(ctx, 1, entity.ConsentDataProcessing, true, "", "")
	require.NoError(t, err)

	bundle, err := svc.Export(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "alice", bundle.PersonalInfo.Username)
	require.Equal(t, "alice@example.com", bundle.PersonalInfo.Email)
	require.NotNil(t, bundle.Profile)
	require.True(t, bundle.Profile.GDPRConsent)
	require.Len(t, bundle.GDPRRecords, 1)
	require.Len(t, bundle.AuditLogs, 1)
	require.Equal(t, auditentity.ActionLogin, bundle.AuditLogs[0].Action)
}
