package middleware

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"marketplace/internal/services"
)

// UserIDKey is the fiber.Locals key holding the authenticated user's ID.
const UserIDKey = "userId"

// AuthRequired is a Fiber middleware that accepts only bearer tokens of active users.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return unauthorized(c, "Authorization header is required")
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return unauthorized(c, "Authorization header format must be 'Bearer <token>'")
		}

		user, err := authService.Authenticate(c.UserContext(), parts[1])
		if err != nil {
			switch {
			case errors.Is(err, services.ErrInvalidToken):
				slog.Debug("JWT validation failed", "error", err)
				return unauthorized(c, "Invalid or expired token")
			case errors.Is(err, services.ErrInactiveUser):
				return unauthorized(c, "User not found or inactive")
			default:
				slog.Error("authentication lookup failed", "error", err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"success": false,
					"code":    services.CodeInternal,
					"message": "Authentication failed",
				})
			}
		}

		c.Locals(UserIDKey, user.ID)
		return c.Next()
	}
}

// UserID returns the ID stored by AuthRequired, or "" on unauthenticated routes.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(UserIDKey).(string)
	return id
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}
