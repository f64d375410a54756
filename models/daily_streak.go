package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DateLayout is the calendar-day format stored in DailyStreak.Date.
const DateLayout = "2006-01-02"

// DailyStreak marks one active calendar day for a user. Rows are never updated.
type DailyStreak struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string    `gorm:"not null;uniqueIndex:idx_daily_streaks_user_date" json:"user_id"`
	Date      string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_daily_streaks_user_date" json:"date"` // YYYY-MM-DD, local day
	Completed bool      `gorm:"not null" json:"completed"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (d *DailyStreak) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
