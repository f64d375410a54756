package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"career-progress-service/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultMissionXP is granted per completed mission when the caller sends none.
const DefaultMissionXP int64 = 50

// MaxMissionXP caps the xp a single mission may grant.
const MaxMissionXP int64 = 500

// BaseXPPerLevel scales the level curve.
const BaseXPPerLevel = 100

// xpForNextLevel returns XP required to go from currentLevel to currentLevel+1
// e.g., xpForNextLevel(1) = 100, xpForNextLevel(2) = 229
func xpForNextLevel(currentLevel int) int64 {
	if currentLevel < 1 {
		currentLevel = 1
	}
	// L_n = floor(BaseXPPerLevel * n^1.2)
	return int64(float64(BaseXPPerLevel) * math.Pow(float64(currentLevel), 1.2))
}

// LevelForXP returns the level reached with totalXP accumulated from level 1.
func LevelForXP(totalXP int64) int {
	level := 1
	for {
		need := xpForNextLevel(level)
		if totalXP < need {
			return level
		}
		totalXP -= need
		level++
	}
}

// ProgressOutcome is the result of a progress-changing action. Streak and
// NewBadge are nil when their best-effort updates did not happen.
type ProgressOutcome struct {
	Stats    *models.UserStats `json:"stats,omitempty"`
	Streak   *StreakResult     `json:"streak,omitempty"`
	NewBadge *models.Badge     `json:"new_badge,omitempty"`

	// AlreadyCompleted is set when the mission was counted before.
	AlreadyCompleted bool `json:"already_completed,omitempty"`
}

// ProgressView is the read model served to the progress screen.
type ProgressView struct {
	Stats       models.UserStats `json:"stats"`
	Metrics     ProgressMetrics  `json:"metrics"`
	XPToNext    int64            `json:"xp_to_next_level"`
	EarnedCount int              `json:"earned_badges"`
}

type ProgressionService struct {
	DB      *gorm.DB
	Log     *zap.Logger
	Streaks *StreakService
	Badges  *BadgeService
}

func NewProgressionService(db *gorm.DB, log *zap.Logger, streaks *StreakService, badges *BadgeService) *ProgressionService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProgressionService{DB: db, Log: log, Streaks: streaks, Badges: badges}
}

// EnsureStats ensures a UserStats row exists (idempotent) and returns it.
func EnsureStats(ctx context.Context, db *gorm.DB, userID string) (*models.UserStats, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	row := models.UserStats{UserID: userID, CurrentLevel: 1}
	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error; err != nil {
		return nil, fmt.Errorf("create stats: %w", err)
	}

	var stats models.UserStats
	if err := db.WithContext(ctx).Where("user_id = ?", userID).First(&stats).Error; err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}
	return &stats, nil
}

// RecordSession runs the streak update and then badge evaluation for a session start.
func (s *ProgressionService) RecordSession(ctx context.Context, userID string, now time.Time) ProgressOutcome {
	return ProgressOutcome{
		Streak:   s.Streaks.RecordActivity(ctx, userID, now),
		NewBadge: s.Badges.Evaluate(ctx, userID),
	}
}

// CompleteMission counts a finished mission once per (user, mission), grants
// xp and levels up. A mission id already recorded for the user changes nothing
// and comes back with AlreadyCompleted set. The mission is stored even if the
// following streak or badge updates fail.
func (s *ProgressionService) CompleteMission(ctx context.Context, userID, missionID string, xp int64, now time.Time) (*ProgressOutcome, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	if missionID == "" || len(missionID) > 64 {
		return nil, ErrInvalidMissionID
	}
	if xp < 0 || xp > MaxMissionXP {
		return nil, fmt.Errorf("%w: must be between 0 and %d", ErrInvalidXP, MaxMissionXP)
	}
	if xp == 0 {
		xp = DefaultMissionXP
	}

	var (
		updated  models.UserStats
		replayed bool
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := EnsureStats(ctx, tx, userID); err != nil {
			return err
		}

		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.CompletedMission{UserID: userID, MissionID: missionID, XP: xp})
		if res.Error != nil {
			return fmt.Errorf("record mission: %w", res.Error)
		}
		replayed = res.RowsAffected == 0

		if !replayed {
			if err := tx.Model(&models.UserStats{}).
				Where("user_id = ?", userID).
				Updates(map[string]interface{}{
					"missions_completed": gorm.Expr("missions_completed + 1"),
					"total_xp":           gorm.Expr("total_xp + ?", xp),
				}).Error; err != nil {
				return fmt.Errorf("increment missions: %w", err)
			}
		}

		if err := tx.Where("user_id = ?", userID).First(&updated).Error; err != nil {
			return fmt.Errorf("reload stats: %w", err)
		}
		if replayed {
			return nil
		}

		// Level-up logic: the level is a pure function of total XP
		if level := LevelForXP(updated.TotalXP); level > updated.CurrentLevel {
			levelUpAt := now
			updated.CurrentLevel = level
			updated.LastLevelUpAt = &levelUpAt
			if err := tx.Model(&models.UserStats{}).
				Where("user_id = ?", userID).
				Updates(map[string]interface{}{
					"current_level":    level,
					"last_level_up_at": levelUpAt,
				}).Error; err != nil {
				return fmt.Errorf("level up: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if replayed {
		s.Log.Info("🔁 mission already completed", zap.String("user_id", userID), zap.String("mission_id", missionID))
		return &ProgressOutcome{Stats: &updated, AlreadyCompleted: true}, nil
	}

	s.Log.Info("🎮 mission completed",
		zap.String("user_id", userID),
		zap.String("mission_id", missionID),
		zap.Int64("xp", xp),
		zap.Int64("total_xp", updated.TotalXP),
		zap.Int("level", updated.CurrentLevel),
		zap.Int("missions", updated.MissionsCompleted))

	out := s.RecordSession(ctx, userID, now)
	if out.Streak != nil {
		updated.CurrentStreak = out.Streak.CurrentStreak
		updated.LongestStreak = out.Streak.LongestStreak
	}
	out.Stats = &updated
	return &out, nil
}

// ActivatePath makes pathID the user's active career path.
func (s *ProgressionService) ActivatePath(ctx context.Context, userID, pathID string, now time.Time) (*ProgressOutcome, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}

	var path models.CareerPath
	if err := s.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", pathID, userID).
		First(&path).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPathNotFound
		}
		return nil, fmt.Errorf("load path: %w", err)
	}

	profile := models.Profile{UserID: userID, ActivePathID: &path.ID}
	if err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"active_path_id", "updated_at"}),
	}).Create(&profile).Error; err != nil {
		return nil, fmt.Errorf("activate path: %w", err)
	}

	s.Log.Info("🧭 path activated", zap.String("user_id", userID), zap.String("path_id", path.ID))

	out := s.RecordSession(ctx, userID, now)
	return &out, nil
}

// GetProgress returns stored stats with the recomputed metrics snapshot.
// A user with no stats row gets the zero view at level 1.
func (s *ProgressionService) GetProgress(ctx context.Context, userID string) (*ProgressView, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}

	view := ProgressView{Stats: models.UserStats{UserID: userID, CurrentLevel: 1}}
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&view.Stats).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load stats: %w", err)
	}

	metrics, err := GatherMetrics(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	view.Metrics = metrics
	view.XPToNext = xpToNextLevel(view.Stats.TotalXP)

	earned, err := s.Badges.EarnedBadgeIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	view.EarnedCount = len(earned)
	return &view, nil
}

// xpToNextLevel returns how much XP is still missing for the next level.
func xpToNextLevel(totalXP int64) int64 {
	level := 1
	for {
		need := xpForNextLevel(level)
		if totalXP < need {
			return need - totalXP
		}
		totalXP -= need
		level++
	}
}
