package identity

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/admission-portal/admission_portal/internal/credential"
)

// VerificationIssuer mints and mails email verification tokens.
type VerificationIssuer interface {
	IssueVerificationToken(ctx context.Context, recorder credential.VerificationRecorder, userID, recipient string) (string, bool, error)
}

// Handler exposes identity endpoints.
type Handler struct {
	service  *Service
	verifier VerificationIssuer
	logger   *slog.Logger
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service, verifier VerificationIssuer, logger *slog.Logger) *Handler {
	return &Handler{service: service, verifier: verifier, logger: logger}
}

type signupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Mobile    string `json:"mobile"`
}

type verifyEmailRequest struct {
	Token string `json:"token"`
}

// Signup creates an account and mails its verification link.
func (h *Handler) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.service.Register(c.UserContext(), Signup{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Mobile:    req.Mobile,
	})
	if err != nil {
		return statusError(err)
	}

	_, sent, err := h.verifier.IssueVerificationToken(c.UserContext(), h.service.Repository(), user.ID, user.Email)
	if err != nil {
		// The account exists; the applicant can ask for a new link later.
		h.logger.Error("verification token not recorded", slog.String("user_id", user.ID), slog.Any("error", err))
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"success":   true,
		"userId":    user.ID,
		"email":     user.Email,
		"emailSent": sent,
	})
}

// VerifyEmail redeems a verification token.
func (h *Handler) VerifyEmail(c *fiber.Ctx) error {
	var req verifyEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Token == "" {
		req.Token = c.Query("token")
	}
	user, err := h.service.VerifyEmail(c.UserContext(), req.Token)
	if err != nil {
		return statusError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true, "email": user.Email})
}

// StatusError maps identity errors onto HTTP statuses.
func StatusError(err error) error {
	return statusError(err)
}

func statusError(err error) error {
	switch {
	case errors.Is(err, ErrUserExists):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrEmailNotVerified):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrMissingFields),
		errors.Is(err, ErrWeakPassword),
		errors.Is(err, ErrInvalidVerificationToken),
		errors.Is(err, credential.ErrInvalidRecipient):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, "account service unavailable")
	}
}
