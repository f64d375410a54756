package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CareerPath is a generated path owned by a user. Written by the path generator.
type CareerPath struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string    `gorm:"index;not null" json:"user_id"`
	Title     string    `gorm:"not null" json:"title"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (p *CareerPath) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Profile holds per-user onboarding state; only the active path matters here.
type Profile struct {
	UserID       string  `gorm:"primaryKey;type:varchar(64)" json:"user_id"`
	DisplayName  string  `json:"display_name,omitempty"`
	ActivePathID *string `gorm:"type:varchar(36)" json:"active_path_id,omitempty"`
	Timestamps
}

// Goal is created by the AI coach chat; owning one means the user has used it.
type Goal struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string    `gorm:"index;not null" json:"user_id"`
	Title     string    `gorm:"not null" json:"title"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (g *Goal) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	return nil
}

// All lists every table this service migrates.
func All() []interface{} {
	return []interface{}{
		&Badge{},
		&UserBadge{},
		&UserStats{},
		&DailyStreak{},
		&CareerPath{},
		&Profile{},
		&Goal{},
		&CompletedMission{},
	}
}
