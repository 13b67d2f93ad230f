package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/admission-portal/admission_portal/internal/auth"
	"github.com/admission-portal/admission_portal/internal/credential"
	"github.com/admission-portal/admission_portal/internal/identity"
)

// AuthHandlers groups the handlers mounted under /auth. Nil middleware is skipped.
type AuthHandlers struct {
	Identity    *identity.Handler
	Session     *auth.Handler
	Recovery    *credential.Handler
	SendLimit   fiber.Handler
	Idempotency fiber.Handler
	RequireAuth fiber.Handler
}

// RegisterAuthRoutes wires account, session and password recovery endpoints.
func RegisterAuthRoutes(r fiber.Router, h AuthHandlers) {
	group := r.Group("/auth")

	group.Post("/signup", chain(h.Idempotency, h.Identity.Signup)...)
	group.Post("/verify-email", h.Identity.VerifyEmail)

	group.Post("/login", h.Session.Login)
	group.Post("/refresh", h.Session.Refresh)
	group.Post("/logout", chain(h.RequireAuth, h.Session.Logout)...)

	forgot := group.Group("/forgot")
	forgot.Post("/send-otp", chain(h.SendLimit, h.Recovery.SendOTP)...)
	forgot.Post("/verify-otp", h.Recovery.VerifyOTP)
	forgot.Post("/reset", h.Recovery.Reset)
}

func chain(mw fiber.Handler, h fiber.Handler) []fiber.Handler {
	if mw == nil {
		return []fiber.Handler{h}
	}
	return []fiber.Handler{mw, h}
}
