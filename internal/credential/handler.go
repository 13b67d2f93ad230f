package credential

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// PasswordResetter applies a new password for the account behind an email.
type PasswordResetter interface {
	ValidatePassword(password string) error
	ResetPassword(ctx context.Context, email, newPassword string) error
}

// Handler exposes the password recovery endpoints.
type Handler struct {
	issuer    *Issuer
	gate      *Gate
	passwords PasswordResetter
}

// NewHandler constructs the recovery HTTP handler.
func NewHandler(issuer *Issuer, gate *Gate, passwords PasswordResetter) *Handler {
	return &Handler{issuer: issuer, gate: gate, passwords: passwords}
}

type sendOTPRequest struct {
	Email string `json:"email"`
}

type verifyOTPRequest struct {
	RequestID string `json:"requestId"`
	OTP       string `json:"otp"`
}

type resetRequest struct {
	ResetToken  string `json:"resetToken"`
	NewPassword string `json:"newPassword"`
}

// SendOTP issues a recovery code for the submitted email.
func (h *Handler) SendOTP(c *fiber.Ctx) error {
	var req sendOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Email == "" {
		return fiber.NewError(http.StatusBadRequest, "email is required")
	}
	requestID, err := h.issuer.IssueOTP(c.UserContext(), req.Email)
	if err != nil {
		return statusError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true, "requestId": requestID})
}

// VerifyOTP exchanges a valid code for a reset token.
func (h *Handler) VerifyOTP(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.gate.VerifyOTP(c.UserContext(), req.RequestID, req.OTP)
	if err != nil {
		return statusError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success":    true,
		"resetToken": res.ResetToken,
		"email":      res.Recipient,
	})
}

// Reset redeems a reset token and stores the new password.
func (h *Handler) Reset(c *fiber.Ctx) error {
	var req resetRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.ResetToken == "" || req.NewPassword == "" {
		return fiber.NewError(http.StatusBadRequest, "resetToken and newPassword are required")
	}
	// Reject a weak password before the token is burned.
	if err := h.passwords.ValidatePassword(req.NewPassword); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	email, err := h.gate.ResetPassword(c.UserContext(), req.ResetToken, func(ctx context.Context, recipient string) error {
		return h.passwords.ResetPassword(ctx, recipient, req.NewPassword)
	})
	if err != nil {
		return statusError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true, "email": email})
}

// statusError maps credential errors onto HTTP statuses.
func statusError(err error) error {
	switch {
	case errors.Is(err, ErrTooManyAttempts):
		return fiber.NewError(http.StatusTooManyRequests, err.Error())
	case errors.Is(err, ErrResetNotApplied):
		return fiber.NewError(http.StatusBadRequest, ErrResetNotApplied.Error())
	case errors.Is(err, ErrCredentialNotFound),
		errors.Is(err, ErrIncorrectCode),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrInvalidRecipient),
		errors.Is(err, ErrMissingInput):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, "credential service unavailable")
	}
}
