package services

import (
	"context"
	"fmt"
	"time"

	"career-progress-service/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StreakResult is what RecordActivity stored for the user.
type StreakResult struct {
	CurrentStreak int `json:"current_streak"`
	LongestStreak int `json:"longest_streak"`
}

type StreakService struct {
	DB  *gorm.DB
	Log *zap.Logger
	Hub *ProgressHub
	// Location decides which calendar day "today" falls on.
	Location *time.Location
}

func NewStreakService(db *gorm.DB, log *zap.Logger, hub *ProgressHub, loc *time.Location) *StreakService {
	if log == nil {
		log = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &StreakService{DB: db, Log: log, Hub: hub, Location: loc}
}

// DayKey normalizes t to the YYYY-MM-DD calendar day it falls on in loc.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(models.DateLayout)
}

// ConsecutiveDays counts the unbroken run of calendar days at the head of dates,
// which must be sorted newest first. A repeated day neither extends nor breaks
// the run; unparseable entries end it.
func ConsecutiveDays(dates []string) int {
	if len(dates) == 0 {
		return 0
	}
	prev, err := time.Parse(models.DateLayout, dates[0])
	if err != nil {
		return 0
	}

	streak := 1
	for _, raw := range dates[1:] {
		day, err := time.Parse(models.DateLayout, raw)
		if err != nil {
			break
		}
		if day.Equal(prev) {
			continue
		}
		if !day.Equal(prev.AddDate(0, 0, -1)) {
			break
		}
		streak++
		prev = day
	}
	return streak
}

// RecordActivity marks today as an active day for userID, recomputes the
// consecutive-day streak and stores it together with the longest streak.
// Storage failures are logged and yield nil; they are never returned.
func (s *StreakService) RecordActivity(ctx context.Context, userID string, today time.Time) *StreakResult {
	res, err := s.recordActivity(ctx, userID, today)
	if err != nil {
		s.Log.Warn("streak update skipped", zap.String("user_id", userID), zap.Error(err))
		return nil
	}

	s.Hub.Publish(ProgressEvent{
		Type:          EventStreak,
		UserID:        userID,
		CurrentStreak: res.CurrentStreak,
		LongestStreak: res.LongestStreak,
	})
	s.Log.Debug("streak updated",
		zap.String("user_id", userID),
		zap.Int("current_streak", res.CurrentStreak),
		zap.Int("longest_streak", res.LongestStreak))
	return res
}

func (s *StreakService) recordActivity(ctx context.Context, userID string, today time.Time) (*StreakResult, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	db := s.DB.WithContext(ctx)
	day := DayKey(today, s.Location)

	if err := ensureActiveDay(db, userID, day); err != nil {
		return nil, err
	}

	dates, err := completedDays(db, userID)
	if err != nil {
		return nil, err
	}
	current := ConsecutiveDays(dates)

	longest, err := upsertStreak(db, userID, current)
	if err != nil {
		return nil, err
	}
	return &StreakResult{CurrentStreak: current, LongestStreak: longest}, nil
}

// longestStreakUpdate keeps the larger of the stored and incoming longest
// streak inside the upsert, so concurrent writers can never lower it.
const longestStreakUpdate = "CASE WHEN excluded.longest_streak > user_stats.longest_streak " +
	"THEN excluded.longest_streak ELSE user_stats.longest_streak END"

// upsertStreak stores current as the user's current streak and returns the
// longest streak as persisted.
func upsertStreak(db *gorm.DB, userID string, current int) (int, error) {
	row := models.UserStats{
		UserID:        userID,
		CurrentLevel:  1,
		CurrentStreak: current,
		LongestStreak: current,
	}
	set := clause.AssignmentColumns([]string{"current_streak", "updated_at"})
	set = append(set, clause.Assignment{
		Column: clause.Column{Name: "longest_streak"},
		Value:  gorm.Expr(longestStreakUpdate),
	})
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: set,
	}).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("upsert stats: %w", err)
	}

	var longest int
	if err := db.Model(&models.UserStats{}).
		Where("user_id = ?", userID).
		Select("longest_streak").
		Scan(&longest).Error; err != nil {
		return 0, fmt.Errorf("load longest streak: %w", err)
	}
	return longest, nil
}

// ensureActiveDay inserts the (user, day) row unless it exists. Losing the
// insert race to a concurrent call counts as recorded.
func ensureActiveDay(db *gorm.DB, userID, day string) error {
	var count int64
	if err := db.Model(&models.DailyStreak{}).
		Where("user_id = ? AND date = ?", userID, day).
		Count(&count).Error; err != nil {
		return fmt.Errorf("check active day: %w", err)
	}
	if count > 0 {
		return nil
	}

	rec := models.DailyStreak{UserID: userID, Date: day, Completed: true}
	if err := db.Create(&rec).Error; err != nil && !isDuplicateKey(err) {
		return fmt.Errorf("insert active day: %w", err)
	}
	return nil
}

// completedDays returns the user's completed days, newest first.
func completedDays(db *gorm.DB, userID string) ([]string, error) {
	var dates []string
	if err := db.Model(&models.DailyStreak{}).
		Where("user_id = ? AND completed = ?", userID, true).
		Order("date DESC").
		Pluck("date", &dates).Error; err != nil {
		return nil, fmt.Errorf("load active days: %w", err)
	}
	return dates, nil
}
