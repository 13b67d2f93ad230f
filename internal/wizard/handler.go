package wizard

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/admission-portal/admission_portal/internal/draft"
)

// SectionStore persists the data entered on each step.
type SectionStore interface {
	SaveSection(ctx context.Context, applicantID, stepID string, data []byte) (draft.Draft, error)
	Get(ctx context.Context, applicantID string) (draft.Draft, error)
}

// Handler exposes the wizard catalogue, navigation and section drafts.
type Handler struct {
	nav      *Navigator
	sections SectionStore
	// applicant extracts the authenticated applicant id from the request.
	applicant func(c *fiber.Ctx) string
}

// NewHandler constructs the wizard HTTP handler.
func NewHandler(nav *Navigator, sections SectionStore, applicant func(c *fiber.Ctx) string) *Handler {
	return &Handler{nav: nav, sections: sections, applicant: applicant}
}

// NavigationView is the JSON shape of a Position. Unknown steps render with
// null ids and zero progress; FirstID is always set so clients can fall back.
type NavigationView struct {
	CurrentID       *string `json:"currentId"`
	Title           string  `json:"title,omitempty"`
	Path            string  `json:"path,omitempty"`
	NextID          *string `json:"nextId"`
	NextPath        *string `json:"nextPath"`
	PreviousID      *string `json:"previousId"`
	PreviousPath    *string `json:"previousPath"`
	ProgressPercent int     `json:"progressPercent"`
	FirstID         string  `json:"firstId"`
}

// View renders the navigation for current.
func (n *Navigator) View(current string) NavigationView {
	pos := n.Position(current)
	view := NavigationView{FirstID: n.registry.First().ID}
	if !pos.Known {
		return view
	}
	view.CurrentID = &pos.Current.ID
	view.Title = pos.Current.Title
	view.Path = pos.Current.Path
	view.ProgressPercent = pos.Progress
	if pos.Next != nil {
		view.NextID, view.NextPath = &pos.Next.ID, &pos.Next.Path
	}
	if pos.Previous != nil {
		view.PreviousID, view.PreviousPath = &pos.Previous.ID, &pos.Previous.Path
	}
	return view
}

// Steps lists the catalogue.
func (h *Handler) Steps(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true, "steps": h.nav.Registry().Steps()})
}

// Navigation resolves ?current= (a step id or page path).
func (h *Handler) Navigation(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(h.nav.View(c.Query("current")))
}

// Draft returns the applicant's saved sections and where to resume.
func (h *Handler) Draft(c *fiber.Ctx) error {
	applicantID := h.applicant(c)
	if applicantID == "" {
		return fiber.NewError(http.StatusUnauthorized, "missing session")
	}
	d, err := h.sections.Get(c.UserContext(), applicantID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "could not load draft")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success": true,
		"draft":   d,
		"resume":  h.nav.View(h.resumeStep(d)),
	})
}

// SaveSection stores the body as the data of :stepId. An applicant may edit
// any section up to one past the furthest section already saved.
func (h *Handler) SaveSection(c *fiber.Ctx) error {
	applicantID := h.applicant(c)
	if applicantID == "" {
		return fiber.NewError(http.StatusUnauthorized, "missing session")
	}
	// Params alias the request buffer, which fasthttp reuses.
	stepID := utils.CopyString(c.Params("stepId"))
	step, ok := h.nav.Registry().Lookup(stepID)
	if !ok || step.ID != stepID {
		return fiber.NewError(http.StatusBadRequest, "unknown step")
	}

	current, err := h.sections.Get(c.UserContext(), applicantID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "could not load draft")
	}
	if !h.mayEdit(current, stepID) {
		return fiber.NewError(http.StatusConflict, "complete the earlier sections first")
	}

	if _, err := h.sections.SaveSection(c.UserContext(), applicantID, stepID, c.Body()); err != nil {
		if errors.Is(err, draft.ErrInvalidSection) {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, "could not save section")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true, "navigation": h.nav.View(stepID)})
}

func (h *Handler) mayEdit(d draft.Draft, stepID string) bool {
	if len(d.Sections) == 0 {
		return h.nav.Registry().IndexOf(stepID) == 0
	}
	return h.nav.CanTransition(h.furthest(d), stepID)
}

// furthest returns the latest saved step, or the first step for a new draft.
func (h *Handler) furthest(d draft.Draft) string {
	reg := h.nav.Registry()
	best := -1
	for id := range d.Sections {
		if i := reg.IndexOf(id); i > best {
			best = i
		}
	}
	if best < 0 {
		return reg.First().ID
	}
	s, _ := reg.StepAt(best)
	return s.ID
}

// resumeStep is the step after the furthest saved one.
func (h *Handler) resumeStep(d draft.Draft) string {
	if len(d.Sections) == 0 {
		return h.nav.Registry().First().ID
	}
	furthest := h.furthest(d)
	if next, ok := h.nav.Next(furthest); ok {
		return next.ID
	}
	return furthest
}
