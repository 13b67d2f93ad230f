package credential

import (
	"context"
	"time"
)

// Store is time-bounded storage for OTP entries and reset tokens.
//
// Reads check expiry lazily: an expired entry is removed and reported as
// ErrNotFound. Every read-modify-write goes through one of the compare
// operations so concurrent handlers cannot lose an attempt increment.
type Store interface {
	// PutOTP stores entry under requestID, replacing any previous entry, and
	// sets ExpiresAt to now+ttl.
	PutOTP(ctx context.Context, requestID string, entry OTPEntry, ttl time.Duration) error
	GetOTP(ctx context.Context, requestID string) (OTPEntry, error)
	DeleteOTP(ctx context.Context, requestID string) error
	// IncrementOTPAttempts bumps the attempt counter; a missing entry is a no-op.
	IncrementOTPAttempts(ctx context.Context, requestID string) error
	// CompareAndSwapOTPAttempts sets the counter to next only if it still
	// equals expected. It reports false when the entry changed or vanished.
	CompareAndSwapOTPAttempts(ctx context.Context, requestID string, expected, next int) (bool, error)
	// CompareAndDeleteOTP removes the entry only if its counter still equals
	// expectedAttempts. Exactly one concurrent caller observes true.
	CompareAndDeleteOTP(ctx context.Context, requestID string, expectedAttempts int) (bool, error)

	PutResetToken(ctx context.Context, token string, entry ResetToken, ttl time.Duration) error
	GetResetToken(ctx context.Context, token string) (ResetToken, error)
	DeleteResetToken(ctx context.Context, token string) error
	// TakeResetToken atomically returns and removes a live token.
	TakeResetToken(ctx context.Context, token string) (ResetToken, error)
}
