package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/glamour-salon/salon_api/internal/auth"
)

const localsUserID = "user_id"

// SessionAuth validates the bearer session token and stores its claims in
// the request locals. Tokens are not checked against the database.
func SessionAuth(tokens *auth.TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if len(authz) < len("Bearer ") || !strings.EqualFold(authz[:len("Bearer ")], "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		raw := strings.TrimSpace(authz[len("Bearer "):])

		claims, err := tokens.Verify(raw)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, sessionErrorMessage(err))
		}

		c.Locals(auth.LocalsClaims, claims)
		c.Locals(localsUserID, claims.UserID)
		return c.Next()
	}
}

func sessionErrorMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return auth.ErrTokenExpired.Error()
	case errors.Is(err, auth.ErrTokenSignature):
		return auth.ErrTokenSignature.Error()
	default:
		return auth.ErrTokenMalformed.Error()
	}
}
