package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// TokenVerifier validates a compact token string and returns the subject
// user ID.
type TokenVerifier func(token string) (subject string, err error)

// UserIDLocal is the fiber.Ctx locals key holding the authenticated user ID.
const UserIDLocal = "user_id"

// BearerAuth validates Authorization bearer tokens with verify and stores the
// authenticated user ID in the request locals.
func BearerAuth(verify TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])
		sub, err := verify(tokenStr)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		c.Locals(UserIDLocal, sub)
		return c.Next()
	}
}
