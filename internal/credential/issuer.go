package credential

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/admission-portal/admission_portal/internal/notification"
)

// VerificationRecorder persists an email verification token on the user
// record. Verification tokens never go through the Store.
type VerificationRecorder interface {
	SetVerificationToken(ctx context.Context, userID, token string) error
}

// IssuerOptions tunes an Issuer. Zero values fall back to defaults.
type IssuerOptions struct {
	OTPTTL time.Duration
	// VerifyURL is the page that redeems verification tokens, for example
	// "http://localhost:3000/auth/verify-email".
	VerifyURL string
	// Rand overrides the entropy source.
	Rand io.Reader
}

// Issuer mints credentials, registers them and hands them to the notifier.
type Issuer struct {
	store     Store
	notifier  notification.Notifier
	logger    *slog.Logger
	otpTTL    time.Duration
	verifyURL string
	secrets   secrets
}

// NewIssuer wires an Issuer. A nil notifier drops every message.
func NewIssuer(store Store, notifier notification.Notifier, logger *slog.Logger, opts IssuerOptions) *Issuer {
	if notifier == nil {
		notifier = notification.NotifierFunc(func(context.Context, notification.Message) error { return nil })
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ttl := opts.OTPTTL
	if ttl <= 0 {
		ttl = DefaultOTPTTL
	}
	return &Issuer{
		store:     store,
		notifier:  notifier,
		logger:    logger,
		otpTTL:    ttl,
		verifyURL: opts.VerifyURL,
		secrets:   secrets{rand: opts.Rand},
	}
}

// IssueOTP registers a fresh code for recipient and mails it. The request id
// is returned even when delivery fails; the code itself is never returned.
func (i *Issuer) IssueOTP(ctx context.Context, recipient string) (string, error) {
	email, err := NormalizeRecipient(recipient)
	if err != nil {
		return "", err
	}

	code, err := i.secrets.code()
	if err != nil {
		return "", err
	}
	requestID, err := i.secrets.requestID()
	if err != nil {
		return "", err
	}

	entry := OTPEntry{Recipient: email, Code: code}
	if err := i.store.PutOTP(ctx, requestID, entry, i.otpTTL); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}

	msg := notification.PasswordResetOTP(email, code, requestID, i.otpTTL)
	if err := i.notifier.Send(ctx, msg); err != nil {
		i.logger.Warn("otp delivery failed",
			slog.String("request_id", requestID),
			slog.String("recipient", email),
			slog.Any("error", err),
		)
	} else {
		i.logger.Info("otp issued", slog.String("request_id", requestID), slog.String("recipient", email))
	}

	return requestID, nil
}

// IssueVerificationToken records an opaque verification token for userID and
// mails the verify link. delivered is false when the notifier failed; the
// token is still valid in that case.
func (i *Issuer) IssueVerificationToken(ctx context.Context, recorder VerificationRecorder, userID, recipient string) (token string, delivered bool, err error) {
	token, err = i.secrets.token(verificationTokenPrefix)
	if err != nil {
		return "", false, err
	}
	if err := recorder.SetVerificationToken(ctx, userID, token); err != nil {
		return "", false, fmt.Errorf("record verification token: %w", err)
	}

	msg := notification.EmailVerification(recipient, i.verificationLink(token), token)
	if err := i.notifier.Send(ctx, msg); err != nil {
		i.logger.Warn("verification email failed",
			slog.String("user_id", userID),
			slog.String("recipient", recipient),
			slog.Any("error", err),
		)
		return token, false, nil
	}
	return token, true, nil
}

func (i *Issuer) verificationLink(token string) string {
	if i.verifyURL == "" {
		return token
	}
	return i.verifyURL + "?token=" + url.QueryEscape(token)
}

// NormalizeRecipient trims and lowercases an email address and rejects
// anything that is not a bare address.
func NormalizeRecipient(recipient string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(recipient))
	if email == "" {
		return "", ErrInvalidRecipient
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidRecipient
	}
	return email, nil
}
