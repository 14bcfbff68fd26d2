package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/nextcrm/backoffice-core-go/internal/user/entity"
)

// PasswordHasher defines minimal hashing interface (abstract so we can swap
// to argon2 later).
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// Store is the persistence contract of the credential store. *repo.UserRepo
// is the Postgres implementation; tests use an in-memory fake.
type Store interface {
	CreateWithProfile(ctx context.Context, u *entity.User, p *entity.Profile, consentIP, consentUA string) (int64, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	GetProfile(ctx context.Context, userID int64) (*entity.Profile, error)
	IncrementFailedAttempts(ctx context.Context, userID int64) (int, error)
	LockIfThreshold(ctx context.Context, userID int64, threshold int, lockFor time.Duration) (bool, error)
	ResetOnSuccess(ctx context.Context, userID int64, ip string) error
	UnlockIfExpired(ctx context.Context, userID int64) (bool, error)
	UpdatePassword(ctx context.Context, userID int64, hash string) error
	UpdateProfile(ctx context.Context, userID int64, firstName, lastName, phone, company, position, timezone string) error
	Anonymize(ctx context.Context, userID int64) error
}

var (
	ErrBadCredentials   = errors.New("invalid credentials")
	ErrLocked           = errors.New("account locked")
	ErrDisabled         = errors.New("account disabled")
	ErrUsernameTaken    = errors.New("username or email already registered")
	ErrPasswordMismatch = errors.New("passwords don't match")
	ErrConsentRequired  = errors.New("gdpr consent is required")
	ErrWeakPassword     = errors.New("password must be at least 8 characters")
	ErrMissingFields    = errors.New("username, email and password are required")
	ErrWrongPassword    = errors.New("current password is incorrect")
)

// Service orchestrates authentication and account lifecycle flows.
type Service struct {
	store  Store
	hasher PasswordHasher

	// lockout policy knobs
	MaxFailed int
	LockFor   time.Duration
}

func NewService(store Store, hasher PasswordHasher) *Service {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	return &Service{store: store, hasher: hasher, MaxFailed: 5, LockFor: 30 * time.Minute}
}

// RegisterInput carries the registration payload after transport decoding.
type RegisterInput struct {
	Username        string
	Email           string
	FirstName       string
	LastName        string
	Password        string
	PasswordConfirm string
	Phone           string
	Company         string
	Position        string
	GDPRConsent     bool
	IP              string
	UserAgent       string
}

// Register validates the input and creates user, profile, and the initial
// data_processing consent record in a single transaction.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, ErrMissingFields
	}
	if in.Password != in.PasswordConfirm {
		return nil, ErrPasswordMismatch
	}
	if len(in.Password) < 8 {
		return nil, ErrWeakPassword
	}
	if !in.GDPRConsent {
		return nil, ErrConsentRequired
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	u := &entity.User{
		Username:     in.Username,
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
		IsActive:     true,
	}
	p := &entity.Profile{
		Phone:           in.Phone,
		Company:         in.Company,
		Position:        in.Position,
		GDPRConsent:     in.GDPRConsent,
		GDPRConsentDate: &now,
	}
	if in.IP != "" {
		p.GDPRConsentIP = &in.IP
	}

	if _, err := s.store.CreateWithProfile(ctx, u, p, in.IP, in.UserAgent); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return u, nil
}

// Authenticate performs credential verification with the lockout policy
// applied. Every failure against a known account bumps the failure counter;
// each failure at or above the threshold sets or extends the lock window.
// Lock expiry is evaluated lazily here, there is no background unlock, and
// the counter only resets on a successful login.
func (s *Service) Authenticate(ctx context.Context, username, password, ip string) (*entity.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrBadCredentials
	}

	u, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// unknown username: no counter to bump, same generic error
			return nil, ErrBadCredentials
		}
		return nil, err
	}

	// expired lock auto-unlock attempt
	if _, err := s.store.UnlockIfExpired(ctx, u.ID); err != nil {
		return nil, err
	}

	if !s.hasher.Verify(u.PasswordHash, password) {
		return nil, s.recordFailure(ctx, u.ID, ErrBadCredentials)
	}
	if !u.IsActive {
		return nil, s.recordFailure(ctx, u.ID, ErrDisabled)
	}

	p, err := s.store.GetProfile(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	if p.Locked(time.Now()) {
		// correct password does not bypass an active lock
		return nil, s.recordFailure(ctx, u.ID, ErrLocked)
	}

	if err := s.store.ResetOnSuccess(ctx, u.ID, ip); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) recordFailure(ctx context.Context, userID int64, cause error) error {
	if n, err := s.store.IncrementFailedAttempts(ctx, userID); err == nil && n >= s.MaxFailed {
		_, _ = s.store.LockIfThreshold(ctx, userID, s.MaxFailed, s.LockFor)
	}
	return cause
}

// ChangePassword verifies the current password before storing the new hash.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, newPw, confirm string) error {
	u, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(u.PasswordHash, current) {
		return ErrWrongPassword
	}
	if newPw != confirm {
		return ErrPasswordMismatch
	}
	if len(newPw) < 8 {
		return ErrWeakPassword
	}
	hash, err := s.hasher.Hash(newPw)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.store.UpdatePassword(ctx, userID, hash)
}

// ProfileView is the combined user+profile projection served by the profile
// endpoint and the GDPR export.
type ProfileView struct {
	Username        string     `json:"username"`
	Email           string     `json:"email"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	Phone           string     `json:"phone"`
	Company         string     `json:"company"`
	Position        string     `json:"position"`
	Timezone        string     `json:"timezone"`
	DateJoined      time.Time  `json:"date_joined"`
	LastLogin       *time.Time `json:"last_login"`
	GDPRConsent     bool       `json:"gdpr_consent"`
	GDPRConsentDate *time.Time `json:"gdpr_consent_date"`
	MFAEnabled      bool       `json:"is_mfa_enabled"`
}

// GetProfileView loads the profile projection for a user.
func (s *Service) GetProfileView(ctx context.Context, userID int64) (*ProfileView, error) {
	u, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ProfileView{
		Username:        u.Username,
		Email:           u.Email,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Phone:           p.Phone,
		Company:         p.Company,
		Position:        p.Position,
		Timezone:        p.Timezone,
		DateJoined:      u.DateJoined,
		LastLogin:       u.LastLoginAt,
		GDPRConsent:     p.GDPRConsent,
		GDPRConsentDate: p.GDPRConsentDate,
		MFAEnabled:      p.MFAEnabled,
	}, nil
}

// UpdateProfileInput carries the mutable profile fields.
type UpdateProfileInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Company   string `json:"company"`
	Position  string `json:"position"`
	Timezone  string `json:"timezone"`
}

// UpdateProfile writes the mutable profile fields.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, in UpdateProfileInput) error {
	if in.Timezone == "" {
		in.Timezone = "UTC"
	}
	return s.store.UpdateProfile(ctx, userID, in.FirstName, in.LastName, in.Phone, in.Company, in.Position, in.Timezone)
}

// DeleteAccount anonymizes the account instead of removing the row so that
// audit-trail references stay intact.
func (s *Service) DeleteAccount(ctx context.Context, userID int64) error {
	return s.store.Anonymize(ctx, userID)
}

// GetByID exposes credential-store lookup for collaborating services.
func (s *Service) GetByID(ctx context.Context, userID int64) (*entity.User, error) {
	return s.store.GetByID(ctx, userID)
}
