package services

import (
	"testing"
	"time"

	"career-progress-service/internal/testutil"
	"career-progress-service/models"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	db          *gorm.DB
	hub         *ProgressHub
	streaks     *StreakService
	badges      *BadgeService
	progression *ProgressionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.OpenTestDB(t)
	hub := NewProgressHub(32)
	streaks := NewStreakService(db, zap.NewNop(), hub, time.UTC)
	badges := NewBadgeService(db, zap.NewNop(), hub)
	return &testEnv{
		db:          db,
		hub:         hub,
		streaks:     streaks,
		badges:      badges,
		progression: NewProgressionService(db, zap.NewNop(), streaks, badges),
	}
}

func day(s string) time.Time {
	t, err := time.ParseInLocation(models.DateLayout, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t.Add(15 * time.Hour)
}

func seedDays(t *testing.T, db *gorm.DB, userID string, dates ...string) {
	t.Helper()
	for _, d := range dates {
		require.NoError(t, db.Create(&models.DailyStreak{UserID: userID, Date: d, Completed: true}).Error)
	}
}

func seedStats(t *testing.T, db *gorm.DB, stats models.UserStats) {
	t.Helper()
	require.NoError(t, db.Create(&stats).Error)
}

func seedBadges(t *testing.T, db *gorm.DB, badges ...models.Badge) {
	t.Helper()
	require.NoError(t, db.Create(&badges).Error)
}

func earnedIDs(t *testing.T, db *gorm.DB, userID string) []string {
	t.Helper()
	var ids []string
	require.NoError(t, db.Model(&models.UserBadge{}).
		Where("user_id = ?", userID).
		Order("badge_id ASC").
		Pluck("badge_id", &ids).Error)
	return ids
}
