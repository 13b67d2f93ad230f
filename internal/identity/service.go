package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/admission-portal/admission_portal/internal/credential"
)

const (
	minPasswordLength = 8
	// bcrypt refuses longer input.
	maxPasswordLength = 72
)

// Service manages the applicant account lifecycle.
type Service struct {
	repo Repository
	cost int
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, cost: bcrypt.DefaultCost}
}

// Repository exposes the backing store, which also records verification tokens.
func (s *Service) Repository() Repository {
	return s.repo
}

// Register creates an unverified user with a hashed password.
func (s *Service) Register(ctx context.Context, in Signup) (User, error) {
	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return User{}, ErrMissingFields
	}
	email, err := credential.NormalizeRecipient(in.Email)
	if err != nil {
		return User{}, err
	}
	if err := s.ValidatePassword(in.Password); err != nil {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:           uuid.New().String(),
		Email:        email,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Mobile:       strings.TrimSpace(in.Mobile),
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}

	return user, nil
}

// Authenticate checks the password first so an unverified account is only
// reported to someone who already knows it.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return User{}, ErrMissingFields
	}
	normalized, err := credential.NormalizeRecipient(email)
	if err != nil {
		return User{}, ErrInvalidCredentials
	}
	user, err := s.repo.FindByEmail(ctx, normalized)
	if errors.Is(err, ErrUserNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !user.Verified {
		return User{}, ErrEmailNotVerified
	}
	return user, nil
}

// VerifyEmail redeems a verification token.
func (s *Service) VerifyEmail(ctx context.Context, token string) (User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return User{}, ErrInvalidVerificationToken
	}
	return s.repo.VerifyByToken(ctx, token)
}

// ValidatePassword enforces the password policy.
func (s *Service) ValidatePassword(password string) error {
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// ResetPassword replaces the password of the account behind email and
// invalidates its sessions.
func (s *Service) ResetPassword(ctx context.Context, email, newPassword string) error {
	if err := s.ValidatePassword(newPassword); err != nil {
		return err
	}
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, user.ID, hash)
}

// FindByID loads a user.
func (s *Service) FindByID(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}
