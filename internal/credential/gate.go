package credential

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// GateOptions tunes a Gate. Zero values fall back to defaults.
type GateOptions struct {
	MaxAttempts   int
	ResetTokenTTL time.Duration
	Rand          io.Reader
}

// Verification is the result of a successful OTP check.
type Verification struct {
	ResetToken string
	Recipient  string
}

// Gate checks caller supplied codes and tokens against the Store.
//
// Per request id the states are Active, Consumed (deleted after a match),
// Invalidated (deleted once the attempt limit is reached) and Expired
// (observed lazily, indistinguishable from absent).
type Gate struct {
	store       Store
	logger      *slog.Logger
	maxAttempts int
	resetTTL    time.Duration
	secrets     secrets
}

// NewGate wires a Gate over store.
func NewGate(store Store, logger *slog.Logger, opts GateOptions) *Gate {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	ttl := opts.ResetTokenTTL
	if ttl <= 0 {
		ttl = DefaultResetTokenTTL
	}
	return &Gate{
		store:       store,
		logger:      logger,
		maxAttempts: maxAttempts,
		resetTTL:    ttl,
		secrets:     secrets{rand: opts.Rand},
	}
}

// MaxAttempts reports the configured attempt limit.
func (g *Gate) MaxAttempts() int {
	return g.maxAttempts
}

// VerifyOTP redeems code for requestID. On a match the entry is consumed and
// a reset token is minted. A wrong code increments the attempt counter; the
// guess that reaches the limit invalidates the entry and returns
// ErrTooManyAttempts, after which the request id is unknown.
func (g *Gate) VerifyOTP(ctx context.Context, requestID, code string) (Verification, error) {
	requestID = strings.TrimSpace(requestID)
	code = strings.TrimSpace(code)
	if requestID == "" || code == "" {
		return Verification{}, ErrMissingInput
	}

	// Each lost compare means another caller changed the entry, and at most
	// maxAttempts+1 such changes exist per entry.
	for i := 0; i <= g.maxAttempts+1; i++ {
		entry, err := g.store.GetOTP(ctx, requestID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return Verification{}, ErrCredentialNotFound
			}
			return Verification{}, err
		}

		if entry.Attempts >= g.maxAttempts {
			if err := g.store.DeleteOTP(ctx, requestID); err != nil {
				return Verification{}, err
			}
			g.logger.Warn("otp invalidated", slog.String("request_id", requestID), slog.Int("attempts", entry.Attempts))
			return Verification{}, ErrTooManyAttempts
		}

		if subtle.ConstantTimeCompare([]byte(entry.Code), []byte(code)) != 1 {
			next := entry.Attempts + 1
			if next >= g.maxAttempts {
				ok, err := g.store.CompareAndDeleteOTP(ctx, requestID, entry.Attempts)
				if err != nil {
					return Verification{}, err
				}
				if !ok {
					continue
				}
				g.logger.Warn("otp invalidated", slog.String("request_id", requestID), slog.Int("attempts", next))
				return Verification{}, ErrTooManyAttempts
			}

			ok, err := g.store.CompareAndSwapOTPAttempts(ctx, requestID, entry.Attempts, next)
			if err != nil {
				return Verification{}, err
			}
			if !ok {
				continue
			}
			return Verification{}, ErrIncorrectCode
		}

		ok, err := g.store.CompareAndDeleteOTP(ctx, requestID, entry.Attempts)
		if err != nil {
			return Verification{}, err
		}
		if !ok {
			continue
		}

		return g.mintResetToken(ctx, entry.Recipient)
	}

	return Verification{}, fmt.Errorf("%w: otp %s contended", ErrStoreUnavailable, requestID)
}

func (g *Gate) mintResetToken(ctx context.Context, recipient string) (Verification, error) {
	token, err := g.secrets.token(resetTokenPrefix)
	if err != nil {
		return Verification{}, err
	}
	if err := g.store.PutResetToken(ctx, token, ResetToken{Recipient: recipient}, g.resetTTL); err != nil {
		return Verification{}, fmt.Errorf("store reset token: %w", err)
	}
	g.logger.Info("otp verified", slog.String("recipient", recipient))
	return Verification{ResetToken: token, Recipient: recipient}, nil
}

// ConsumeResetToken redeems token once and returns its recipient.
func (g *Gate) ConsumeResetToken(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidToken
	}
	entry, err := g.store.TakeResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrInvalidToken
		}
		return "", err
	}
	return entry.Recipient, nil
}

// ResetPassword consumes token and then runs apply for its recipient. The
// token is gone before apply starts, so a reset is applied at most once; if
// apply fails the caller has to start over with a new code.
func (g *Gate) ResetPassword(ctx context.Context, token string, apply func(ctx context.Context, recipient string) error) (string, error) {
	recipient, err := g.ConsumeResetToken(ctx, token)
	if err != nil {
		return "", err
	}
	if err := apply(ctx, recipient); err != nil {
		g.logger.Error("password reset failed after token consumption", slog.String("recipient", recipient), slog.Any("error", err))
		return recipient, fmt.Errorf("%w: %w", ErrResetNotApplied, err)
	}
	g.logger.Info("password reset completed", slog.String("recipient", recipient))
	return recipient, nil
}
