package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"career-progress-service/models"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListCatalog returns the badge catalog ordered by display order.
func ListCatalog(ctx context.Context, db *gorm.DB) ([]models.Badge, error) {
	var catalog []models.Badge
	if err := db.WithContext(ctx).
		Order("display_order ASC").
		Order("id ASC").
		Find(&catalog).Error; err != nil {
		return nil, fmt.Errorf("load badge catalog: %w", err)
	}
	return catalog, nil
}

// SeedCatalog inserts the badges whose ids are not present yet. Existing rows
// are left untouched so edits made through the admin API survive restarts.
func SeedCatalog(ctx context.Context, db *gorm.DB, badges []models.Badge) error {
	if len(badges) == 0 {
		return nil
	}
	rows := make([]models.Badge, len(badges))
	copy(rows, badges)
	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error; err != nil {
		return fmt.Errorf("seed badge catalog: %w", err)
	}
	return nil
}

// UpsertCatalog writes badges by id, overwriting every catalog field.
func UpsertCatalog(ctx context.Context, db *gorm.DB, badges []models.Badge) (int, error) {
	valid := make([]models.Badge, 0, len(badges))
	for _, b := range badges {
		if err := ValidateBadge(b); err != nil {
			continue
		}
		valid = append(valid, b)
	}
	if len(valid) == 0 {
		return 0, nil
	}

	if err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name",
			"description",
			"icon",
			"requirement_type",
			"requirement_count",
			"display_order",
			"updated_at",
		}),
	}).Create(&valid).Error; err != nil {
		return 0, fmt.Errorf("upsert badge catalog: %w", err)
	}
	return len(valid), nil
}

// ValidateBadge checks a catalog entry before it is written.
func ValidateBadge(b models.Badge) error {
	if strings.TrimSpace(b.ID) == "" || strings.TrimSpace(b.Name) == "" {
		return fmt.Errorf("%w: id and name are required", ErrInvalidBadge)
	}
	switch b.RequirementType {
	case models.RequirementMissions,
		models.RequirementPathsGenerated,
		models.RequirementPathsActivated,
		models.RequirementOracleMastery:
	default:
		return fmt.Errorf("%w: unknown requirement type %q", ErrInvalidBadge, b.RequirementType)
	}
	if b.RequirementCount < 0 {
		return fmt.Errorf("%w: requirement count must not be negative", ErrInvalidBadge)
	}
	return nil
}

// CreateBadge adds a catalog entry. An empty id is derived from the name.
func CreateBadge(ctx context.Context, db *gorm.DB, b models.Badge) (*models.Badge, error) {
	if strings.TrimSpace(b.ID) == "" {
		b.ID = slug.Make(b.Name)
	}
	if err := ValidateBadge(b); err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Create(&b).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, fmt.Errorf("%w: badge %q already exists", ErrInvalidBadge, b.ID)
		}
		return nil, fmt.Errorf("create badge: %w", err)
	}
	return &b, nil
}

// SetBadgeIcon replaces the icon of an existing catalog entry.
func SetBadgeIcon(ctx context.Context, db *gorm.DB, badgeID, icon string) (*models.Badge, error) {
	b, err := GetBadge(ctx, db, badgeID)
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(b).Update("icon", icon).Error; err != nil {
		return nil, fmt.Errorf("update badge icon: %w", err)
	}
	b.Icon = icon
	return b, nil
}

// GetBadge loads one catalog entry.
func GetBadge(ctx context.Context, db *gorm.DB, badgeID string) (*models.Badge, error) {
	var b models.Badge
	if err := db.WithContext(ctx).Where("id = ?", badgeID).First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBadgeNotFound
		}
		return nil, fmt.Errorf("load badge: %w", err)
	}
	return &b, nil
}
