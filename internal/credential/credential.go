// Package credential issues, stores and verifies the short-lived secrets used
// by password recovery: six digit one-time codes and the reset tokens they are
// exchanged for.
package credential

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by a Store when a key is absent or has expired.
	// The two cases are never distinguished.
	ErrNotFound = errors.New("credential not found")

	// ErrCredentialNotFound means the OTP request is unknown, expired, already
	// consumed or invalidated.
	ErrCredentialNotFound = errors.New("OTP expired or invalid")

	// ErrIncorrectCode means the code did not match; the request stays active
	// until the attempt limit is reached.
	ErrIncorrectCode = errors.New("incorrect OTP")

	// ErrTooManyAttempts is terminal for a request id. The caller must ask for
	// a new code.
	ErrTooManyAttempts = errors.New("too many attempts, OTP invalidated")

	// ErrInvalidToken covers absent, expired and already consumed reset tokens.
	ErrInvalidToken = errors.New("invalid or expired reset token")

	// ErrResetNotApplied means the reset token was consumed but the new
	// password could not be stored.
	ErrResetNotApplied = errors.New("password reset failed, request a new code")

	// ErrInvalidRecipient is returned when the email address cannot be parsed.
	ErrInvalidRecipient = errors.New("invalid email address")

	// ErrMissingInput is returned when a required identifier or code is empty.
	ErrMissingInput = errors.New("requestId and otp are required")
)

const (
	// DefaultOTPTTL bounds how long a code can be redeemed.
	DefaultOTPTTL = 300 * time.Second
	// DefaultResetTokenTTL bounds how long a reset token can be redeemed.
	DefaultResetTokenTTL = 900 * time.Second
	// DefaultMaxAttempts is the number of wrong guesses tolerated per request.
	DefaultMaxAttempts = 5
)

// OTPEntry is a pending one-time code keyed by its request id.
type OTPEntry struct {
	RequestID string    `json:"request_id"`
	Recipient string    `json:"recipient"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
	Attempts  int       `json:"attempts"`
}

// ResetToken authorizes exactly one password change for Recipient.
type ResetToken struct {
	Token     string    `json:"token"`
	Recipient string    `json:"recipient"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Clock returns the current time. Stores and the gate accept one so tests can
// move time without sleeping.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}
