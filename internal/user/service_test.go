package user

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nextcrm/backoffice-core-go/internal/user/entity"
)

// fakeStore is an in-memory Store used to exercise the service logic
// without a database.
type fakeStore struct {
	nextID   int64
	users    map[int64]*entity.User
	profiles map[int64]*entity.Profile
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:   1,
		users:    map[int64]*entity.User{},
		profiles: map[int64]*entity.Profile{},
	}
}

func (f *fakeStore) CreateWithProfile(_ context.Context, u *entity.User, p *entity.Profile, _, _ string) (int64, error) {
	for _, existing := range f.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return 0, ErrUsernameTaken
		}
	}
	u.ID = f.nextID
	u.DateJoined = time.Now().UTC()
	f.nextID++
	f.users[u.ID] = u
	p.UserID = u.ID
	f.profiles[u.ID] = p
	return u.ID, nil
}

func (f *fakeStore) GetByUsername(_ context.Context, username string) (*entity.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStore) GetByID(_ context.Context, id int64) (*entity.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) GetProfile(_ context.Context, userID int64) (*entity.Profile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) IncrementFailedAttempts(_ context.Context, userID int64) (int, error) {
	p := f.profiles[userID]
	p.FailedLoginAttempts++
	return p.FailedLoginAttempts, nil
}

func (f *fakeStore) LockIfThreshold(_ context.Context, userID int64, threshold int, lockFor time.Duration) (bool, error) {
	p := f.profiles[userID]
	if p.FailedLoginAttempts < threshold {
		return false, nil
	}
	until := time.Now().Add(lockFor)
	p.AccountLockedUntil = &until
	return true, nil
}

func (f *fakeStore) ResetOnSuccess(_ context.Context, userID int64, ip string) error {
	p := f.profiles[userID]
	p.FailedLoginAttempts = 0
	p.AccountLockedUntil = nil
	if ip != "" {
		p.LastLoginIP = &ip
	}
	now := time.Now().UTC()
	f.users[userID].LastLoginAt = &now
	return nil
}

func (f *fakeStore) UnlockIfExpired(_ context.Context, userID int64) (bool, error) {
	p := f.profiles[userID]
	if p.AccountLockedUntil != nil && !time.Now().Before(*p.AccountLockedUntil) {
		p.AccountLockedUntil = nil
		return true, nil
	}
	return false, nil
}

func (f *fakeStore) UpdatePassword(_ context.Context, userID int64, hash string) error {
	f.users[userID].PasswordHash = hash
	return nil
}

func (f *fakeStore) UpdateProfile(_ context.Context, userID int64, firstName, lastName, phone, company, position, timezone string) error {
	f.users[userID].FirstName = firstName
	f.users[userID].LastName = lastName
	p := f.profiles[userID]
	p.Phone = phone
	p.Company = company
	p.Position = position
	p.Timezone = timezone
	return nil
}

func (f *fakeStore) Anonymize(_ context.Context, userID int64) error {
	u := f.users[userID]
	u.Username = "deleted_user_x"
	u.Email = "deleted_x@example.com"
	u.IsActive = false
	return nil
}

func registerInput(username string) RegisterInput {
	return RegisterInput{
		Username:        username,
		Email:           username + "@example.com",
		Password:        "correct horse",
		PasswordConfirm: "correct horse",
		GDPRConsent:     true,
		IP:              "203.0.113.7",
	}
}

func newTestService(t *testing.T) (*Service, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	// low bcrypt cost keeps the test fast
	return NewService(store, BcryptHasher{Cost: 4}), store
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		mut  func(*RegisterInput)
		want error
	}{
		{"missing username", func(in *RegisterInput) { in.Username = "" }, ErrMissingFields},
		{"missing email", func(in *RegisterInput) { in.Email = "" }, ErrMissingFields},
		{"password mismatch", func(in *RegisterInput) { in.PasswordConfirm = "other" }, ErrPasswordMismatch},
		{"short password", func(in *RegisterInput) { in.Password = "short"; in.PasswordConfirm = "short" }, ErrWeakPassword},
		{"no consent", func(in *RegisterInput) { in.GDPRConsent = false }, ErrConsentRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := registerInput("alice")
			tc.mut(&in)
			_, err := svc.Register(ctx, in)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, registerInput("alice"))
	require.NoError(t, err)
	require.NotZero(t, u.ID)
	require.Equal(t, "alice@example.com", u.Email)
	require.NotEqual(t, "correct horse", u.PasswordHash)

	got, err := svc.Authenticate(ctx, "alice", "correct horse", "203.0.113.7")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	p := store.profiles[u.ID]
	require.NotNil(t, p.LastLoginIP)
	require.Equal(t, "203.0.113.7", *p.LastLoginIP)
}

func TestAuthenticateUnknownUser(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Authenticate(context.Background(), "nobody", "whatever", "")
	require.ErrorIs(t, err, ErrBadCredentials)
}

func TestLockoutAfterFiveFailures(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, registerInput("alice"))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := svc.Authenticate(ctx, "alice", "wrong", "")
		require.ErrorIs(t, err, ErrBadCredentials)
	}
	require.True(t, store.profiles[u.ID].Locked(time.Now()))

	// correct password does not bypass the lock, and the counter keeps
	// growing while the window is open
	_, err = svc.Authenticate(ctx, "alice", "correct horse", "")
	require.ErrorIs(t, err, ErrLocked)
	require.Equal(t, 6, store.profiles[u.ID].FailedLoginAttempts)
}

func TestLockExtendsOnFailuresWhileLocked(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, registerInput("alice"))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, _ = svc.Authenticate(ctx, "alice", "wrong", "")
	}
	first := *store.profiles[u.ID].AccountLockedUntil

	// sustained wrong-password traffic pushes the lock end forward every time
	for i := 0; i < 5; i++ {
		_, err := svc.Authenticate(ctx, "alice", "wrong", "")
		require.ErrorIs(t, err, ErrBadCredentials)
	}
	require.True(t, store.profiles[u.ID].AccountLockedUntil.After(first))
}

func TestFailureAfterExpiryRelocksImmediately(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, registerInput("alice"))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, _ = svc.Authenticate(ctx, "alice", "wrong", "")
	}

	// lock elapses; the counter survives, so one more bad guess re-locks
	past := time.Now().Add(-time.Minute)
	store.profiles[u.ID].AccountLockedUntil = &past

	_, err = svc.Authenticate(ctx, "alice", "wrong", "")
	require.ErrorIs(t, err, ErrBadCredentials)

	p := store.profiles[u.ID]
	require.Equal(t, 6, p.FailedLoginAttempts)
	require.True(t, p.Locked(time.Now()))
}

func TestLockoutExpiresLazily(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, registerInput("alice"))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, _ = svc.Authenticate(ctx, "alice", "wrong", "")
	}
	require.True(t, store.profiles[u.ID].Locked(time.Now()))

	// move the lock into the past; next login unlocks and succeeds
	past := time.Now().Add(-time.Minute)
	store.profiles[u.ID].AccountLockedUntil = &past

	got, err := svc.Authenticate(ctx, "alice", "correct horse", "")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Zero(t, store.profiles[u.ID].FailedLoginAttempts)
}

func TestSuccessResetsFailureCounter(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, registerInput("alice"))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, _ = svc.Authenticate(ctx, "alice", "wrong", "")
	}
	require.Equal(t, 3, store.profiles[u.ID].FailedLoginAttempts)

	_, err = svc.Authenticate(ctx, "alice", "correct horse", "")
	require.NoError(t, err)
	require.Zero(t, store.profiles[u.ID].FailedLoginAttempts)
}

func TestAuthenticateDisabledAccount(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, registerInput("alice"))
	require.NoError(t, err)
	store.users[u.ID].IsActive = false

	_, err = svc.Authenticate(ctx, "alice", "correct horse", "")
	require.ErrorIs(t, err, ErrDisabled)
	require.Equal(t, 1, store.profiles[u.ID].FailedLoginAttempts)
}

func TestChangePassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, registerInput("alice"))
	require.NoError(t, err)

	require.ErrorIs(t, svc.ChangePassword(ctx, u.ID, "wrong", "new password!", "new password!"), ErrWrongPassword)
	require.ErrorIs(t, svc.ChangePassword(ctx, u.ID, "correct horse", "new password!", "other"), ErrPasswordMismatch)
	require.ErrorIs(t, svc.ChangePassword(ctx, u.ID, "correct horse", "short", "short"), ErrWeakPassword)

	require.NoError(t, svc.ChangePassword(ctx, u.ID, "correct horse", "new password!", "new password!"))

	_, err = svc.Authenticate(ctx, "alice", "correct horse", "")
	require.ErrorIs(t, err, ErrBadCredentials)
	_, err = svc.Authenticate(ctx, "alice", "new password!", "")
	require.NoError(t, err)
}

func TestDeleteAccountAnonymizes(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, registerInput("alice"))
	require.NoError(t, err)
	require.NoError(t, svc.DeleteAccount(ctx, u.ID))

	require.False(t, store.users[u.ID].IsActive)
	require.NotEqual(t, "alice", store.users[u.ID].Username)

	_, err = svc.Authenticate(ctx, "alice", "correct horse", "")
	require.ErrorIs(t, err, ErrBadCredentials)
}
