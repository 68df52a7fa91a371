package identity

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"docvault/internal/audit"
	"docvault/internal/notify"
	"docvault/internal/platform/metrics"
	"docvault/internal/platform/middleware"
	"docvault/pkg/apierrors"
	"docvault/pkg/requestcontext"
)

var (
	emailPattern      = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)
	nationalIDPattern = regexp.MustCompile(`^\d{12}$`)
	phonePattern      = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
	postalCodePattern = regexp.MustCompile(`^\d{6}$`)
)

// Unknown email and wrong password produce this same value so responses give
// no signal about which accounts exist.
var errInvalidCredentials = apierrors.New(apierrors.CodeInvalidCredentials, "invalid credentials")

var errTooManyAttempts = apierrors.New(apierrors.CodeInvalidCredentials, "too many login attempts, please try again later")

// Config carries the service tunables.
type Config struct {
	OTPTTL     time.Duration
	BcryptCost int
}

// Service owns user records, credential checks, and the OTP lifecycle.
type Service struct {
	store    Store
	sink     audit.Sink
	notifier notify.Sender
	lockout  *Lockout
	metrics  *metrics.Metrics
	logger   *slog.Logger
	cfg      Config

	now func() time.Time
}

// NewService wires the identity service. lockout may be nil to disable login
// throttling.
func NewService(store Store, sink audit.Sink, notifier notify.Sender, lockout *Lockout, m *metrics.Metrics, logger *slog.Logger, cfg Config) *Service {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.OTPTTL == 0 {
		cfg.OTPTTL = 5 * time.Minute
	}
	return &Service{
		store:    store,
		sink:     sink,
		notifier: notifier,
		lockout:  lockout,
		metrics:  m,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// RegisterInput is the profile supplied at registration.
type RegisterInput struct {
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	NationalID  string    `json:"nationalId"`
	Password    string    `json:"password"`
	Phone       string    `json:"phone"`
	DateOfBirth time.Time `json:"dateOfBirth"`
	Address     Address   `json:"address"`
}

func validateRegister(in RegisterInput) map[string]string {
	fields := make(map[string]string)
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "please add a name"
	} else if len(in.Name) > 50 {
		fields["name"] = "name cannot be more than 50 characters"
	}
	if !emailPattern.MatchString(strings.ToLower(in.Email)) {
		fields["email"] = "please add a valid email"
	}
	if !nationalIDPattern.MatchString(in.NationalID) {
		fields["nationalId"] = "please add a valid 12-digit national id number"
	}
	if len(in.Password) < 6 {
		fields["password"] = "password must be at least 6 characters"
	}
	if !phonePattern.MatchString(in.Phone) {
		fields["phone"] = "please add a valid phone number"
	}
	if in.DateOfBirth.IsZero() {
		fields["dateOfBirth"] = "please add date of birth"
	}
	if in.Address.PostalCode != "" && !postalCodePattern.MatchString(in.Address.PostalCode) {
		fields["address.postalCode"] = "please add a valid 6-digit postal code"
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// Register creates an unverified user account. Email and national id
// collisions surface as duplicate_identity.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	if fields := validateRegister(in); fields != nil {
		return nil, apierrors.Validation(fields)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := &User{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		NationalID:   in.NationalID,
		PasswordHash: string(hash),
		Phone:        in.Phone,
		DateOfBirth:  in.DateOfBirth,
		Address:      in.Address,
		Verified:     false,
		Role:         RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.Create(ctx, user); err != nil {
		return nil, err
	}

	s.metrics.UsersRegistered.Inc()
	s.audit(ctx, user.ID, audit.ActionRegister, audit.ResourceAuth, nil, nil)
	return user, nil
}

// Authenticate verifies email+password. Both unknown email and wrong password
// return the identical invalid_credentials error.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	if email == "" || password == "" {
		return nil, apierrors.New(apierrors.CodeValidation, "please provide an email and password")
	}

	ip := requestcontext.ClientIP(ctx)
	if s.lockout.Locked(ctx, email, ip) {
		return nil, errTooManyAttempts
	}

	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if apierrors.Is(err, apierrors.CodeNotFound) {
			s.lockout.RecordFailure(ctx, email, ip)
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.lockout.RecordFailure(ctx, email, ip)
		return nil, errInvalidCredentials
	}

	s.lockout.Clear(ctx, email, ip)
	s.audit(ctx, user.ID, audit.ActionLogin, audit.ResourceAuth, nil, nil)
	return user, nil
}

// RecordLogout audits a logout. The bearer credential itself is stateless.
func (s *Service) RecordLogout(ctx context.Context, userID uuid.UUID) {
	s.audit(ctx, userID, audit.ActionLogout, audit.ResourceAuth, nil, nil)
}

// IssueOTP generates a fresh 6-digit code, persists it on the user record
// (replacing any pending code wholesale), and mails it. The code is returned
// for tests; handlers must not echo it to clients.
func (s *Service) IssueOTP(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}

	code, err := generateOTPCode()
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}

	user.OTP = &OTP{Code: code, ExpiresAt: s.now().Add(s.cfg.OTPTTL)}
	user.UpdatedAt = s.now()
	if err := s.store.Update(ctx, user); err != nil {
		return "", err
	}

	if err := s.notifier.SendOTP(ctx, user.Email, user.Name, code); err != nil {
		return "", apierrors.New(apierrors.CodeUpstream, "failed to send OTP")
	}

	s.audit(ctx, user.ID, audit.ActionOTPGenerated, audit.ResourceAuth, nil, nil)
	return code, nil
}

// VerifyOTP checks the candidate against the pending code. On success the
// verification flag flips true (monotonically) and the pending code is
// cleared. The match itself is a pure check on the model.
func (s *Service) VerifyOTP(ctx context.Context, userID uuid.UUID, candidate string) (*User, error) {
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !user.OTP.Matches(candidate, s.now()) {
		return nil, apierrors.New(apierrors.CodeValidation, "invalid or expired OTP")
	}

	user.Verified = true
	user.OTP = nil
	user.UpdatedAt = s.now()
	if err := s.store.Update(ctx, user); err != nil {
		return nil, err
	}

	s.audit(ctx, user.ID, audit.ActionOTPVerified, audit.ResourceAuth, nil, nil)
	return user, nil
}

// Get returns one user record.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.store.FindByID(ctx, id)
}

// List returns all users, newest-first. Admin surface.
func (s *Service) List(ctx context.Context) ([]*User, error) {
	return s.store.List(ctx)
}

// SearchByNationalID resolves the sharing handle to a reduced profile.
func (s *Service) SearchByNationalID(ctx context.Context, nationalID string) (PublicProfile, error) {
	user, err := s.store.FindByNationalID(ctx, nationalID)
	if err != nil {
		if apierrors.Is(err, apierrors.CodeNotFound) {
			return PublicProfile{}, apierrors.New(apierrors.CodeNotFound, "user not found with this national id number")
		}
		return PublicProfile{}, err
	}
	return user.Public(), nil
}

// ProfilePatch updates the mutable profile fields. Credentials, role,
// national id, and verification state are not reachable through it.
type ProfilePatch struct {
	Name        *string    `json:"name"`
	Phone       *string    `json:"phone"`
	DateOfBirth *time.Time `json:"dateOfBirth"`
	Address     *Address   `json:"address"`
}

// UpdateProfile applies a patch on behalf of the requester: self or admin.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, patch ProfilePatch, requesterID uuid.UUID, requesterRole string) (*User, error) {
	if id != requesterID && requesterRole != RoleAdmin {
		return nil, apierrors.New(apierrors.CodeForbidden, "not authorized to update this user")
	}

	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]string)
	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" || len(*patch.Name) > 50 {
			fields["name"] = "please add a name of at most 50 characters"
		} else {
			user.Name = strings.TrimSpace(*patch.Name)
		}
	}
	if patch.Phone != nil {
		if !phonePattern.MatchString(*patch.Phone) {
			fields["phone"] = "please add a valid phone number"
		} else {
			user.Phone = *patch.Phone
		}
	}
	if patch.DateOfBirth != nil {
		user.DateOfBirth = *patch.DateOfBirth
	}
	if patch.Address != nil {
		if patch.Address.PostalCode != "" && !postalCodePattern.MatchString(patch.Address.PostalCode) {
			fields["address.postalCode"] = "please add a valid 6-digit postal code"
		} else {
			user.Address = *patch.Address
		}
	}
	if len(fields) > 0 {
		return nil, apierrors.Validation(fields)
	}

	user.UpdatedAt = s.now()
	if err := s.store.Update(ctx, user); err != nil {
		return nil, err
	}

	resourceID := user.ID
	s.audit(ctx, requesterID, audit.ActionProfileUpdate, audit.ResourceUser, &resourceID, nil)
	return user, nil
}

// DeleteAccount removes a user record: self or admin.
func (s *Service) DeleteAccount(ctx context.Context, id, requesterID uuid.UUID, requesterRole string) error {
	if id != requesterID && requesterRole != RoleAdmin {
		return apierrors.New(apierrors.CodeForbidden, "not authorized to delete this user")
	}
	return s.store.Delete(ctx, id)
}

// ResolveSubject loads the fresh identity for the auth middleware so role and
// verification changes apply without reissuing tokens.
func (s *Service) ResolveSubject(ctx context.Context, id uuid.UUID) (middleware.Subject, error) {
	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		return middleware.Subject{}, err
	}
	return middleware.Subject{ID: user.ID, Role: user.Role, Verified: user.Verified}, nil
}

func (s *Service) audit(ctx context.Context, userID uuid.UUID, action audit.Action, resourceType string, resourceID *uuid.UUID, detail map[string]any) {
	s.sink.Record(ctx, audit.Entry{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Detail:       detail,
	})
}

func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
