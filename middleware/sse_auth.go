// middleware/sse_auth.go
package middleware

import (
	"context"
	"strings"

	"career-progress-service/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// TokenValidator checks an end-user access token; *services.AuthServiceClient implements it.
type TokenValidator interface {
	ValidateToken(ctx context.Context, accessToken, deviceID string) (*services.ValidateResponse, error)
}

// SSEAuthMiddleware validates `token` and `device_id` query params, since
// EventSource cannot send headers.
//
// Usage:
//
//	app.Get("/user/progress/stream", middleware.SSEAuthMiddleware(authClient, log), hub.StreamProgressSSE(log, 0))
func SSEAuthMiddleware(validator TokenValidator, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accessToken := strings.TrimSpace(c.Query("token"))
		deviceID := strings.TrimSpace(c.Query("device_id"))

		if accessToken == "" || deviceID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Missing token or device_id in query",
			})
		}

		resp, err := validator.ValidateToken(c.UserContext(), accessToken, deviceID)
		if err != nil {
			log.Warn("[SSEAuth] ❌ validation failed",
				zap.String("device_id", deviceID),
				zap.String("token_prefix", accessToken[:min(6, len(accessToken))]),
				zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		c.Locals(LocalUserID, resp.UserID)
		c.Locals(LocalUserRoles, resp.Roles)

		log.Debug("[SSEAuth] ✅ authenticated", zap.String("user_id", resp.UserID), zap.String("device_id", resp.DeviceID))
		return c.Next()
	}
}
