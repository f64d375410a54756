package services

import (
	"context"
	"errors"
	"fmt"

	"career-progress-service/models"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// ProgressMetrics is the per-evaluation snapshot badge requirements are checked against.
type ProgressMetrics struct {
	MissionsCompleted int  `json:"missions_completed"`
	PathsGenerated    int  `json:"paths_generated"`
	HasActivePath     bool `json:"has_active_path"`
	CurrentLevel      int  `json:"current_level"`
	LongestStreak     int  `json:"longest_streak"`
	// ConsecutiveStreakDays is recomputed from daily_streaks, not read from user_stats.
	ConsecutiveStreakDays int  `json:"consecutive_streak_days"`
	HasUsedAIChat         bool `json:"has_used_ai_chat"`
}

// GatherMetrics reads the snapshot for userID. The five reads are independent
// and run concurrently; the first failure cancels the rest. Missing rows yield
// zero values (level defaults to 1).
func GatherMetrics(ctx context.Context, db *gorm.DB, userID string) (ProgressMetrics, error) {
	if userID == "" {
		return ProgressMetrics{}, ErrInvalidUserID
	}

	var (
		m     ProgressMetrics
		stats models.UserStats
		paths int64
		goals int64
		prof  models.Profile
		dates []string
	)
	statsFound, profileFound := false, false

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := db.WithContext(gctx).Where("user_id = ?", userID).First(&stats).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load stats: %w", err)
		}
		statsFound = true
		return nil
	})

	g.Go(func() error {
		if err := db.WithContext(gctx).Model(&models.CareerPath{}).
			Where("user_id = ?", userID).
			Count(&paths).Error; err != nil {
			return fmt.Errorf("count paths: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		err := db.WithContext(gctx).Where("user_id = ?", userID).First(&prof).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load profile: %w", err)
		}
		profileFound = true
		return nil
	})

	g.Go(func() error {
		d, err := completedDays(db.WithContext(gctx), userID)
		if err != nil {
			return err
		}
		dates = d
		return nil
	})

	g.Go(func() error {
		if err := db.WithContext(gctx).Model(&models.Goal{}).
			Where("user_id = ?", userID).
			Count(&goals).Error; err != nil {
			return fmt.Errorf("count goals: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return ProgressMetrics{}, err
	}

	m.CurrentLevel = 1
	if statsFound {
		m.MissionsCompleted = stats.MissionsCompleted
		m.LongestStreak = stats.LongestStreak
		if stats.CurrentLevel > 0 {
			m.CurrentLevel = stats.CurrentLevel
		}
	}
	m.PathsGenerated = int(paths)
	m.HasActivePath = profileFound && prof.ActivePathID != nil && *prof.ActivePathID != ""
	m.ConsecutiveStreakDays = ConsecutiveDays(dates)
	m.HasUsedAIChat = goals > 0
	return m, nil
}
