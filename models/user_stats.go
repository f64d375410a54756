package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserStats is the per-user progress row (created lazily on first streak update)
type UserStats struct {
	ID     string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID string `gorm:"uniqueIndex;not null" json:"user_id"`

	MissionsCompleted int   `json:"missions_completed" gorm:"not null;default:0"`
	CurrentLevel      int   `json:"current_level" gorm:"not null;default:1"`
	TotalXP           int64 `json:"total_xp" gorm:"not null;default:0"`

	// CurrentStreak is a cached display value; badge checks recompute it from daily_streaks.
	CurrentStreak int `json:"current_streak" gorm:"not null;default:0"`
	LongestStreak int `json:"longest_streak" gorm:"not null;default:0"`

	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`

	Timestamps
}

// TableName is fixed because streak upserts reference the table by name.
func (UserStats) TableName() string { return "user_stats" }

func (s *UserStats) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
