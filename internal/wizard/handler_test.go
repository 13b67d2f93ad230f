package wizard

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admission-portal/admission_portal/internal/draft"
)

func newWizardApp() *fiber.App {
	h := NewHandler(NewNavigator(AdmissionRegistry()), draft.NewService(draft.NewMemoryRepository()), func(c *fiber.Ctx) string {
		return c.Get("X-Applicant")
	})
	app := fiber.New()
	app.Get("/steps", h.Steps)
	app.Get("/navigation", h.Navigation)
	app.Get("/draft", h.Draft)
	app.Put("/sections/:stepId", h.SaveSection)
	return app
}

func do(t *testing.T, app *fiber.App, method, path, applicant, body string) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if applicant != "" {
		req.Header.Set("X-Applicant", applicant)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestStepsEndpoint(t *testing.T) {
	status, body := do(t, newWizardApp(), fiber.MethodGet, "/steps", "", "")
	require.Equal(t, fiber.StatusOK, status)
	steps, _ := body["steps"].([]any)
	require.Len(t, steps, 12)
	first := steps[0].(map[string]any)
	assert.Equal(t, "personal", first["id"])
}

func TestNavigationEndpoint(t *testing.T) {
	app := newWizardApp()

	status, body := do(t, app, fiber.MethodGet, "/navigation?current=qualification", "", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "qualification", body["currentId"])
	assert.Equal(t, "reservation", body["nextId"])
	assert.Equal(t, "/profile/reservation", body["nextPath"])
	assert.Equal(t, "contact", body["previousId"])
	assert.Equal(t, "/profile/personal", body["previousPath"])
	assert.EqualValues(t, 33, body["progressPercent"])

	_, body = do(t, app, fiber.MethodGet, "/navigation?current=/profile/personal", "", "")
	assert.Equal(t, "personal", body["currentId"])
	assert.Nil(t, body["previousId"])

	_, body = do(t, app, fiber.MethodGet, "/navigation?current=nowhere", "", "")
	assert.Nil(t, body["currentId"])
	assert.Nil(t, body["nextId"])
	assert.EqualValues(t, 0, body["progressPercent"])
	assert.Equal(t, "personal", body["firstId"])
}

func TestSectionsFollowTheSequence(t *testing.T) {
	app := newWizardApp()
	const who = "applicant-1"

	status, _ := do(t, app, fiber.MethodPut, "/sections/personal", "", `{}`)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = do(t, app, fiber.MethodPut, "/sections/address", who, `{"city":"Pune"}`)
	assert.Equal(t, fiber.StatusConflict, status, "a new draft starts at the first step")

	status, body := do(t, app, fiber.MethodPut, "/sections/personal", who, `{"firstName":"Asha"}`)
	require.Equal(t, fiber.StatusOK, status)
	nav := body["navigation"].(map[string]any)
	assert.Equal(t, "address", nav["nextId"])

	status, _ = do(t, app, fiber.MethodPut, "/sections/contact", who, `{}`)
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = do(t, app, fiber.MethodPut, "/sections/address", who, `{"city":"Pune"}`)
	require.Equal(t, fiber.StatusOK, status)
	status, _ = do(t, app, fiber.MethodPut, "/sections/personal", who, `{"firstName":"Asha","lastName":"Rao"}`)
	require.Equal(t, fiber.StatusOK, status, "earlier sections stay editable")

	status, _ = do(t, app, fiber.MethodPut, "/sections/hobbies", who, `{}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	status, _ = do(t, app, fiber.MethodPut, "/sections/contact", who, `[1,2]`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = do(t, app, fiber.MethodGet, "/draft", who, "")
	require.Equal(t, fiber.StatusOK, status)
	resume := body["resume"].(map[string]any)
	assert.Equal(t, "contact", resume["currentId"])
	sections := body["draft"].(map[string]any)["sections"].(map[string]any)
	assert.Len(t, sections, 2)
}

func TestDraftForNewApplicantResumesAtFirstStep(t *testing.T) {
	status, body := do(t, newWizardApp(), fiber.MethodGet, "/draft", "fresh", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "personal", body["resume"].(map[string]any)["currentId"])
}

func TestSavedSectionKeysSurviveLaterRequests(t *testing.T) {
	app := newWizardApp()
	const who = "applicant-keys"

	for _, step := range []string{"personal", "address", "contact", "qualification"} {
		status, _ := do(t, app, fiber.MethodPut, "/sections/"+step, who, `{"step":"`+step+`"}`)
		require.Equal(t, fiber.StatusOK, status, step)
	}
	// unrelated traffic reuses the request buffers
	for i := 0; i < 3; i++ {
		do(t, app, fiber.MethodGet, "/navigation?current=reservation-and-category", "", "")
	}

	status, body := do(t, app, fiber.MethodGet, "/draft", who, "")
	require.Equal(t, fiber.StatusOK, status)
	d := body["draft"].(map[string]any)
	sections := d["sections"].(map[string]any)
	keys := make([]string, 0, len(sections))
	for k, v := range sections {
		keys = append(keys, k)
		assert.Equal(t, k, v.(map[string]any)["step"])
	}
	assert.ElementsMatch(t, []string{"personal", "address", "contact", "qualification"}, keys)
	assert.Equal(t, "qualification", d["lastStep"])
	assert.Equal(t, "reservation", body["resume"].(map[string]any)["currentId"])
}
