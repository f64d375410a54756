package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequirementType names the metric a badge threshold is checked against.
type RequirementType string

const (
	RequirementMissions       RequirementType = "missions"
	RequirementPathsGenerated RequirementType = "paths_generated"
	RequirementPathsActivated RequirementType = "paths_activated"
	RequirementOracleMastery  RequirementType = "oracle_mastery"
)

// Badge: catalog entry (seeded at startup or synced from the catalog service)
type Badge struct {
	ID               string          `gorm:"primaryKey;type:varchar(64)" json:"id"` // e.g., "first-mission"
	Name             string          `gorm:"not null" json:"name"`
	Description      string          `json:"description"`
	Icon             string          `gorm:"type:text" json:"icon"` // emoji or R2 URL
	RequirementType  RequirementType `gorm:"type:varchar(32);not null" json:"requirement_type"`
	RequirementCount int             `gorm:"not null" json:"requirement_count"`
	DisplayOrder     int             `gorm:"index;not null" json:"display_order"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// UserBadge: earned instance, append-only and unique per (user, badge)
type UserBadge struct {
	ID       string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID   string    `gorm:"not null;uniqueIndex:idx_user_badges_user_badge" json:"user_id"`
	BadgeID  string    `gorm:"not null;uniqueIndex:idx_user_badges_user_badge" json:"badge_id"`
	EarnedAt time.Time `gorm:"autoCreateTime" json:"earned_at"`

	Badge Badge `gorm:"foreignKey:BadgeID;references:ID" json:"badge"`
}

func (ub *UserBadge) BeforeCreate(tx *gorm.DB) error {
	if ub.ID == "" {
		ub.ID = uuid.NewString()
	}
	return nil
}

// DefaultBadgeCatalog is seeded when the badges table has no row with the same id.
var DefaultBadgeCatalog = []Badge{
	{
		ID:               "first-mission",
		Name:             "First Step",
		Description:      "Completed your first daily mission",
		Icon:             "🚀",
		RequirementType:  RequirementMissions,
		RequirementCount: 1,
		DisplayOrder:     10,
	},
	{
		ID:               "path-explorer",
		Name:             "Path Explorer",
		Description:      "Generated your first career path",
		Icon:             "🧭",
		RequirementType:  RequirementPathsGenerated,
		RequirementCount: 1,
		DisplayOrder:     20,
	},
	{
		ID:               "path-committed",
		Name:             "Committed",
		Description:      "Activated a career path",
		Icon:             "🎯",
		RequirementType:  RequirementPathsActivated,
		RequirementCount: 1,
		DisplayOrder:     30,
	},
	{
		ID:               "mission-streaker",
		Name:             "Momentum",
		Description:      "Completed 5 missions",
		Icon:             "🔥",
		RequirementType:  RequirementMissions,
		RequirementCount: 5,
		DisplayOrder:     40,
	},
	{
		ID:               "path-collector",
		Name:             "Possibility Thinker",
		Description:      "Generated 5 career paths",
		Icon:             "🗺️",
		RequirementType:  RequirementPathsGenerated,
		RequirementCount: 5,
		DisplayOrder:     50,
	},
	{
		ID:               "mission-master",
		Name:             "Mission Master",
		Description:      "Completed 50 missions",
		Icon:             "🏆",
		RequirementType:  RequirementMissions,
		RequirementCount: 50,
		DisplayOrder:     60,
	},
	{
		ID:               "oracle-mastery",
		Name:             "Oracle",
		Description:      "Reached level 10, used the AI coach and kept a 180-day streak",
		Icon:             "🔮",
		RequirementType:  RequirementOracleMastery,
		RequirementCount: 180,
		DisplayOrder:     100,
	},
}
