package middleware

import (
	"context"

	"inkwell/internal/models"
	"inkwell/internal/session"

	"github.com/gofiber/fiber/v2"
)

// SessionRequired rejects requests without a valid session cookie and exposes the
// session identity as c.Locals("userID") (uint) and c.Locals("username") (string).
func SessionRequired(issuer *session.Issuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := issuer.Parse(c.Cookies(session.CookieName))
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Valid session required"))
		}

		c.Locals("userID", claims.ID)
		c.Locals("username", claims.Username)
		c.Locals("claims", claims)
		c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, claims.ID))

		return c.Next()
	}
}

// SessionClaims returns the claims stored by SessionRequired, if any.
func SessionClaims(c *fiber.Ctx) (*session.Claims, bool) {
	claims, ok := c.Locals("claims").(*session.Claims)
	return claims, ok
}
