package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CompletedMission records that a user finished a mission. A mission counts once per user.
type CompletedMission struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID      string    `gorm:"not null;uniqueIndex:idx_completed_missions_user_mission" json:"user_id"`
	MissionID   string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_completed_missions_user_mission" json:"mission_id"`
	XP          int64     `gorm:"not null" json:"xp"`
	CompletedAt time.Time `gorm:"autoCreateTime" json:"completed_at"`
}

func (m *CompletedMission) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
