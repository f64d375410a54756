package services

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// StreamProgressSSE streams streak and badge events for the authenticated user.
// Expects "user_id" in Locals (set by SSEAuthMiddleware).
func (h *ProgressHub) StreamProgressSSE(log *zap.Logger, keepAlive time.Duration) fiber.Handler {
	if keepAlive <= 0 {
		keepAlive = 15 * time.Second
	}
	return func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing user context"})
		}

		// SSE headers
		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("X-Accel-Buffering", "no") // nginx

		events, cancel := h.Subscribe(userID)
		done := c.Context().Done()

		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			defer cancel()

			ticker := time.NewTicker(keepAlive)
			defer ticker.Stop()

			// Initial keepalive (comment event)
			w.WriteString(":\n\n")
			if err := w.Flush(); err != nil {
				return
			}

			for {
				select {
				case ev, ok := <-events:
					if !ok {
						return
					}
					payload, err := json.Marshal(ev)
					if err != nil {
						log.Warn("sse marshal failed", zap.String("user_id", userID), zap.Error(err))
						continue
					}
					fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
					if err := w.Flush(); err != nil {
						// Client disconnected
						return
					}

				case <-ticker.C:
					w.WriteString(":\n\n")
					if err := w.Flush(); err != nil {
						return
					}

				case <-done:
					return
				}
			}
		})

		return nil
	}
}
