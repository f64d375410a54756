// handlers/badge_routes.go
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"career-progress-service/models"
	"career-progress-service/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// IconUploader stores badge artwork and returns its public URL.
type IconUploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

const maxIconBytes = 2 * 1024 * 1024

var allowedIconTypes = map[string]string{
	"image/png":     ".png",
	"image/svg+xml": ".svg",
	"image/webp":    ".webp",
}

type BadgeHandlers struct {
	DB  *gorm.DB
	Log *zap.Logger
	// Icons is nil when object storage is not configured.
	Icons IconUploader
}

// SetupBadgeRoutes registers the catalog read route on router and the admin
// routes on admin (which must already enforce the admin role).
func SetupBadgeRoutes(router fiber.Router, admin fiber.Router, h *BadgeHandlers) {
	router.Get("/badges", h.listCatalog)

	admin.Post("/badges", h.createBadge)
	admin.Post("/badges/:id/icon", h.uploadIcon)
}

func (h *BadgeHandlers) listCatalog(c *fiber.Ctx) error {
	catalog, err := services.ListCatalog(c.UserContext(), h.DB)
	if err != nil {
		h.Log.Error("load catalog failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load badges"})
	}
	return c.JSON(catalog)
}

func (h *BadgeHandlers) createBadge(c *fiber.Ctx) error {
	type Req struct {
		ID               string `json:"id"`
		Name             string `json:"name"`
		Description      string `json:"description"`
		Icon             string `json:"icon"`
		RequirementType  string `json:"requirement_type"`
		RequirementCount int    `json:"requirement_count"`
		DisplayOrder     int    `json:"display_order"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid JSON",
			"cause": err.Error(),
		})
	}

	badge, err := services.CreateBadge(c.UserContext(), h.DB, models.Badge{
		ID:               req.ID,
		Name:             req.Name,
		Description:      req.Description,
		Icon:             req.Icon,
		RequirementType:  models.RequirementType(req.RequirementType),
		RequirementCount: req.RequirementCount,
		DisplayOrder:     req.DisplayOrder,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidBadge) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		h.Log.Error("create badge failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create badge"})
	}
	return c.Status(fiber.StatusCreated).JSON(badge)
}

func (h *BadgeHandlers) uploadIcon(c *fiber.Ctx) error {
	if h.Icons == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "icon storage is not configured"})
	}

	fileHeader, err := c.FormFile("icon")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "icon file is required"})
	}
	if fileHeader.Size > maxIconBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "icon too large"})
	}
	contentType := strings.ToLower(fileHeader.Header.Get("Content-Type"))
	ext, ok := allowedIconTypes[contentType]
	if !ok {
		return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{"error": "icon must be png, svg or webp"})
	}

	badgeID := c.Params("id")
	if _, err := services.GetBadge(c.UserContext(), h.DB, badgeID); err != nil {
		if errors.Is(err, services.ErrBadgeNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "badge not found"})
		}
		h.Log.Error("load badge failed", zap.String("badge_id", badgeID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load badge"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "failed to read icon"})
	}
	defer file.Close()

	key := fmt.Sprintf("badges/%s%s", filepath.Base(badgeID), ext)
	url, err := h.Icons.Upload(c.UserContext(), key, contentType, file)
	if err != nil {
		h.Log.Error("icon upload failed", zap.String("badge_id", badgeID), zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "failed to upload icon"})
	}

	badge, err := services.SetBadgeIcon(c.UserContext(), h.DB, badgeID, url)
	if err != nil {
		if errors.Is(err, services.ErrBadgeNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "badge not found"})
		}
		h.Log.Error("set badge icon failed", zap.String("badge_id", badgeID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update badge"})
	}
	return c.JSON(badge)
}
