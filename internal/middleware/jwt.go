package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/admission-portal/admission_portal/internal/auth"
)

// TokenVerifier validates access tokens.
type TokenVerifier interface {
	Verify(ctx context.Context, accessToken string) (auth.Claims, error)
}

// JWTAuth returns a middleware that validates bearer access tokens and stores
// the subject under auth.LocalUserID.
func JWTAuth(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])
		claims, err := verifier.Verify(c.UserContext(), tokenStr)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		c.Locals(auth.LocalUserID, claims.Subject)
		return c.Next()
	}
}
