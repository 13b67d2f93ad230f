package identity

import (
	"errors"
	"time"
)

var (
	ErrUserExists               = errors.New("user already exists")
	ErrUserNotFound             = errors.New("user not found")
	ErrInvalidCredentials       = errors.New("invalid email or password")
	ErrEmailNotVerified         = errors.New("email not verified")
	ErrInvalidVerificationToken = errors.New("invalid or expired verification token")
	ErrWeakPassword             = errors.New("password must be between 8 and 72 bytes")
	ErrMissingFields            = errors.New("missing required fields")
)

// User represents a registered applicant account.
type User struct {
	ID                string
	Email             string
	FirstName         string
	LastName          string
	Mobile            string
	PasswordHash      []byte
	Verified          bool
	VerificationToken string
	// TokenVersion is bumped to invalidate every issued session.
	TokenVersion int
	CreatedAt    time.Time
}

// Signup request structure.
type Signup struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Mobile    string
}
