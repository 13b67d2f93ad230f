package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	// KindPasswordResetOTP carries a one-time code for password recovery.
	KindPasswordResetOTP = "password_reset_otp"
	// KindEmailVerification carries a verification link for a new account.
	KindEmailVerification = "email_verification"
)

// Message describes a notification payload.
type Message struct {
	Kind        string
	Destination string
	Subject     string
	Body        string
	// Reference correlates the message with the request that produced it.
	Reference string
}

// Notifier delivers notifications to downstream systems. A nil error means
// the message was handed off successfully.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, message Message) error

// Send calls f.
func (f NotifierFunc) Send(ctx context.Context, message Message) error {
	return f(ctx, message)
}

// PasswordResetOTP builds the recovery code email.
func PasswordResetOTP(to, code, requestID string, ttl time.Duration) Message {
	return Message{
		Kind:        KindPasswordResetOTP,
		Destination: to,
		Subject:     fmt.Sprintf("Your verification code - %s", code),
		Body: fmt.Sprintf("Hi,\n\nYour 6-digit verification code is %s. It is valid for %s.\n"+
			"If you did not request this, ignore this email.\n\nRequestId: %s\n",
			code, humanDuration(ttl), requestID),
		Reference: requestID,
	}
}

// EmailVerification builds the account verification email.
func EmailVerification(to, link, token string) Message {
	return Message{
		Kind:        KindEmailVerification,
		Destination: to,
		Subject:     "Verify your email",
		Body: fmt.Sprintf("Hello,\n\nThank you for creating an account. Open the link below to verify your email:\n%s\n\n"+
			"Or use this token: %s\n", link, token),
		Reference: token,
	}
}

func humanDuration(d time.Duration) string {
	if d%time.Minute == 0 {
		m := int(d / time.Minute)
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
	return d.String()
}

// LoggerNotifier writes notifications to the logger instead of delivering
// them. Only wire it in development: the body contains the secret.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification (dev, not delivered)",
		slog.String("kind", message.Kind),
		slog.String("destination", message.Destination),
		slog.String("reference", message.Reference),
		slog.String("body", message.Body),
	)
	return nil
}
