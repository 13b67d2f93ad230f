package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/admission-portal/admission_portal/internal/wizard"
)

// RegisterProfileRoutes wires the application wizard. The catalogue and
// navigation are public; drafts need a session.
func RegisterProfileRoutes(r fiber.Router, h *wizard.Handler, requireAuth fiber.Handler) {
	group := r.Group("/profile")
	group.Get("/steps", h.Steps)
	group.Get("/navigation", h.Navigation)
	group.Get("/draft", requireAuth, h.Draft)
	group.Put("/sections/:stepId", requireAuth, h.SaveSection)
}
