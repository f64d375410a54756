// handlers/progression_routes.go
package handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"career-progress-service/middleware"
	"career-progress-service/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ProgressionHandlers serves the user-facing progress endpoints.
type ProgressionHandlers struct {
	Progression *services.ProgressionService
	Badges      *services.BadgeService
	Log         *zap.Logger
	// Now supplies the wall-clock time a request happened at.
	Now func() time.Time
}

func (h *ProgressionHandlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// SetupProgressionRoutes registers the routes under router, which must already
// carry UserContextMiddleware.
func SetupProgressionRoutes(router fiber.Router, h *ProgressionHandlers) {
	router.Post("/user/activity", h.recordActivity)
	router.Post("/user/missions/complete", h.completeMission)
	router.Post("/user/paths/:id/activate", h.activatePath)
	router.Get("/user/progress", h.getProgress)
	router.Get("/user/progress/badges", h.getEarnedBadges)
}

func (h *ProgressionHandlers) recordActivity(c *fiber.Ctx) error {
	userID := c.Locals(middleware.LocalUserID).(string)

	out := h.Progression.RecordSession(c.UserContext(), userID, h.now())

	// Streak and badge updates are best effort: a failed update still answers 200.
	resp := fiber.Map{
		"current_streak": nil,
		"longest_streak": nil,
		"new_badge":      out.NewBadge,
	}
	if out.Streak != nil {
		resp["current_streak"] = out.Streak.CurrentStreak
		resp["longest_streak"] = out.Streak.LongestStreak
	}
	return c.JSON(resp)
}

func (h *ProgressionHandlers) completeMission(c *fiber.Ctx) error {
	userID := c.Locals(middleware.LocalUserID).(string)

	type Req struct {
		MissionID string `json:"mission_id"`
		XP        int64  `json:"xp"`
	}
	var req Req
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
	}
	req.MissionID = strings.TrimSpace(req.MissionID)
	if req.MissionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "mission_id is required"})
	}
	if req.XP < 0 || req.XP > services.MaxMissionXP {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("xp must be between 0 and %d", services.MaxMissionXP),
		})
	}

	out, err := h.Progression.CompleteMission(c.UserContext(), userID, req.MissionID, req.XP, h.now())
	if err != nil {
		if errors.Is(err, services.ErrInvalidMissionID) || errors.Is(err, services.ErrInvalidXP) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		h.Log.Error("mission completion failed", zap.String("user_id", userID), zap.String("mission_id", req.MissionID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to record mission",
		})
	}
	return c.JSON(out)
}

func (h *ProgressionHandlers) activatePath(c *fiber.Ctx) error {
	userID := c.Locals(middleware.LocalUserID).(string)

	out, err := h.Progression.ActivatePath(c.UserContext(), userID, c.Params("id"), h.now())
	if err != nil {
		if errors.Is(err, services.ErrPathNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "career path not found"})
		}
		h.Log.Error("path activation failed", zap.String("user_id", userID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to activate path",
		})
	}
	return c.JSON(out)
}

func (h *ProgressionHandlers) getProgress(c *fiber.Ctx) error {
	userID := c.Locals(middleware.LocalUserID).(string)

	view, err := h.Progression.GetProgress(c.UserContext(), userID)
	if err != nil {
		h.Log.Error("load progress failed", zap.String("user_id", userID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "DB error fetching progress",
		})
	}
	return c.JSON(view)
}

func (h *ProgressionHandlers) getEarnedBadges(c *fiber.Ctx) error {
	userID := c.Locals(middleware.LocalUserID).(string)

	earned, err := h.Badges.EarnedBadges(c.UserContext(), userID)
	if err != nil {
		h.Log.Error("load badges failed", zap.String("user_id", userID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to get badges",
		})
	}

	response := make([]fiber.Map, 0, len(earned))
	for _, ub := range earned {
		response = append(response, fiber.Map{
			"id":                ub.ID,
			"badge_id":          ub.Badge.ID,
			"name":              ub.Badge.Name,
			"description":       ub.Badge.Description,
			"icon":              ub.Badge.Icon,
			"requirement_type":  ub.Badge.RequirementType,
			"requirement_count": ub.Badge.RequirementCount,
			"display_order":     ub.Badge.DisplayOrder,
			"earned_at":         ub.EarnedAt,
		})
	}
	return c.JSON(response)
}
