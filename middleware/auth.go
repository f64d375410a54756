// middleware/auth.go
package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	LocalUserID    = "user_id"
	LocalUserRoles = "user_roles"
)

// UserContextMiddleware extracts the user identity and roles set by the Gateway.
// Requests without X-User-ID are rejected.
func UserContextMiddleware(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := strings.TrimSpace(c.Get("X-User-ID"))
		if userID == "" {
			log.Warn("❌ [USER_CTX] X-User-ID missing", zap.String("path", c.Path()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID: request must come through gateway with auth context",
			})
		}

		c.Locals(LocalUserID, userID)
		c.Locals(LocalUserRoles, parseRoles(c.Get("X-User-Roles")))

		log.Debug("👤 [USER_CTX]", zap.String("user_id", userID), zap.String("path", c.Path()))
		return c.Next()
	}
}

// RequireRole lets the request through only when the user carries role.
// Must run after UserContextMiddleware.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		roles, _ := c.Locals(LocalUserRoles).([]string)
		for _, r := range roles {
			if r == role {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "insufficient role",
		})
	}
}

func parseRoles(raw string) []string {
	var roles []string
	for _, r := range strings.Split(raw, ",") {
		r = strings.TrimSpace(r)
		if r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}
