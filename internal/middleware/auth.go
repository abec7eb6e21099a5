package middleware

import (
	"strings"

	"dropview/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Authenticator verifies a bearer credential and yields the user it was issued to.
type Authenticator interface {
	Verify(token string) (uint, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// AuthRequired rejects requests without a valid bearer token and stores the
// caller in c.Locals("userID") and the request context.
func AuthRequired(auth Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := BearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return models.RespondWithError(c, models.NewUnauthorizedError("Not authorized, no token"))
		}

		userID, err := auth.Verify(token)
		if err != nil || userID == 0 {
			return models.RespondWithError(c, models.NewUnauthorizedError("Not authorized, token failed"))
		}

		c.Locals("userID", userID)
		c.SetUserContext(WithUserID(c.UserContext(), userID))
		return c.Next()
	}
}

// UserID returns the authenticated caller set by AuthRequired.
func UserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals("userID").(uint)
	return id, ok && id != 0
}
