package credential

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePasswords struct {
	updated map[string]string
	failFor string
}

func (f *fakePasswords) ValidatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}

func (f *fakePasswords) ResetPassword(_ context.Context, email, newPassword string) error {
	if email == f.failFor {
		return errors.New("user not found")
	}
	f.updated[email] = newPassword
	return nil
}

type handlerFixture struct {
	app       *fiber.App
	store     *MemoryStore
	passwords *fakePasswords
}

func newHandlerFixture(t *testing.T) handlerFixture {
	t.Helper()
	store := NewMemoryStore(nil)
	passwords := &fakePasswords{updated: map[string]string{}}
	h := NewHandler(NewIssuer(store, nil, nil, IssuerOptions{}), NewGate(store, nil, GateOptions{}), passwords)

	app := fiber.New()
	app.Post("/forgot/send-otp", h.SendOTP)
	app.Post("/forgot/verify-otp", h.VerifyOTP)
	app.Post("/forgot/reset", h.Reset)
	return handlerFixture{app: app, store: store, passwords: passwords}
}

func (f handlerFixture) post(t *testing.T, path string, body any) (int, map[string]any) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(string(payload)))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := f.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestHandlerRecoveryFlow(t *testing.T) {
	f := newHandlerFixture(t)

	status, body := f.post(t, "/forgot/send-otp", fiber.Map{"email": "alice@example.com"})
	require.Equal(t, fiber.StatusOK, status)
	requestID, _ := body["requestId"].(string)
	require.NotEmpty(t, requestID)
	_, leaked := body["otp"]
	assert.False(t, leaked)

	code := codeFor(t, f.store, requestID)

	status, _ = f.post(t, "/forgot/verify-otp", fiber.Map{"requestId": requestID, "otp": wrongCode(code)})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = f.post(t, "/forgot/verify-otp", fiber.Map{"requestId": requestID, "otp": code})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "alice@example.com", body["email"])
	resetToken, _ := body["resetToken"].(string)
	require.NotEmpty(t, resetToken)

	status, _ = f.post(t, "/forgot/reset", fiber.Map{"resetToken": resetToken, "newPassword": "short"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = f.post(t, "/forgot/reset", fiber.Map{"resetToken": resetToken, "newPassword": "correct horse"})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "alice@example.com", body["email"])
	assert.Equal(t, "correct horse", f.passwords.updated["alice@example.com"])

	status, _ = f.post(t, "/forgot/reset", fiber.Map{"resetToken": resetToken, "newPassword": "another one"})
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestHandlerLockoutIs429(t *testing.T) {
	f := newHandlerFixture(t)

	_, body := f.post(t, "/forgot/send-otp", fiber.Map{"email": "bob@example.com"})
	requestID := body["requestId"].(string)
	bad := wrongCode(codeFor(t, f.store, requestID))

	for i := 0; i < DefaultMaxAttempts-1; i++ {
		status, _ := f.post(t, "/forgot/verify-otp", fiber.Map{"requestId": requestID, "otp": bad})
		require.Equal(t, fiber.StatusBadRequest, status)
	}
	status, _ := f.post(t, "/forgot/verify-otp", fiber.Map{"requestId": requestID, "otp": bad})
	assert.Equal(t, fiber.StatusTooManyRequests, status)

	status, _ = f.post(t, "/forgot/verify-otp", fiber.Map{"requestId": requestID, "otp": bad})
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestHandlerValidation(t *testing.T) {
	f := newHandlerFixture(t)

	status, _ := f.post(t, "/forgot/send-otp", fiber.Map{})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = f.post(t, "/forgot/send-otp", fiber.Map{"email": "nope"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = f.post(t, "/forgot/verify-otp", fiber.Map{"requestId": "OTP-unknown"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = f.post(t, "/forgot/reset", fiber.Map{"resetToken": "RT-unknown", "newPassword": "long enough"})
	assert.Equal(t, fiber.StatusBadRequest, status)
}

type unreachableResetStore struct {
	*MemoryStore
}

func (unreachableResetStore) TakeResetToken(context.Context, string) (ResetToken, error) {
	return ResetToken{}, ErrStoreUnavailable
}

func TestHandlerResetFailureStatuses(t *testing.T) {
	store := unreachableResetStore{NewMemoryStore(nil)}
	h := NewHandler(NewIssuer(store, nil, nil, IssuerOptions{}), NewGate(store, nil, GateOptions{}), &fakePasswords{updated: map[string]string{}})
	app := fiber.New()
	app.Post("/forgot/reset", h.Reset)
	f := handlerFixture{app: app}

	status, _ := f.post(t, "/forgot/reset", fiber.Map{"resetToken": "RT-any", "newPassword": "long enough"})
	assert.Equal(t, fiber.StatusInternalServerError, status)

	f = newHandlerFixture(t)
	f.passwords.failFor = "ivy@example.com"
	require.NoError(t, f.store.PutResetToken(context.Background(), "RT-ivy", ResetToken{Recipient: "ivy@example.com"}, time.Minute))
	status, _ = f.post(t, "/forgot/reset", fiber.Map{"resetToken": "RT-ivy", "newPassword": "long enough"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	_, err := f.store.GetResetToken(context.Background(), "RT-ivy")
	assert.ErrorIs(t, err, ErrNotFound)
}
