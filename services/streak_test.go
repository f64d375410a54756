package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"career-progress-service/internal/testutil"
	"career-progress-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsecutiveDays(t *testing.T) {
	tests := []struct {
		name  string
		dates []string
		want  int
	}{
		{"empty", nil, 0},
		{"single", []string{"2024-05-06"}, 1},
		{"unbroken", []string{"2024-05-05", "2024-05-04", "2024-05-03", "2024-05-02", "2024-05-01"}, 5},
		{"gap stops the run", []string{"2024-05-06", "2024-05-05", "2024-05-03", "2024-05-02"}, 2},
		{"gap right after head", []string{"2024-05-06", "2024-05-01"}, 1},
		{"month boundary", []string{"2024-03-01", "2024-02-29", "2024-02-28"}, 3},
		{"year boundary", []string{"2025-01-01", "2024-12-31"}, 2},
		{"repeated day", []string{"2024-05-06", "2024-05-06", "2024-05-05"}, 2},
		{"garbage ends the run", []string{"2024-05-06", "yesterday", "2024-05-04"}, 1},
		{"garbage head", []string{"nope"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConsecutiveDays(tt.dates))
		})
	}
}

func TestConsecutiveDaysEqualsLengthWithoutGaps(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for n := 1; n <= 400; n += 37 {
		dates := make([]string, 0, n)
		for i := n - 1; i >= 0; i-- {
			dates = append(dates, start.AddDate(0, 0, i).Format(models.DateLayout))
		}
		assert.Equal(t, n, ConsecutiveDays(dates), "n=%d", n)
	}
}

func TestDayKeyUsesLocation(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	// 20:00 UTC on May 5 is already May 6 in Tokyo.
	ts := time.Date(2024, 5, 5, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-05-05", DayKey(ts, time.UTC))
	assert.Equal(t, "2024-05-06", DayKey(ts, tokyo))
}

func TestRecordActivityUnbrokenRun(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedDays(t, env.db, "u1", "2024-05-01", "2024-05-02", "2024-05-03", "2024-05-04", "2024-05-05")

	res := env.streaks.RecordActivity(ctx, "u1", day("2024-05-06"))
	require.NotNil(t, res)
	assert.Equal(t, 6, res.CurrentStreak)
	assert.Equal(t, 6, res.LongestStreak)

	var rec models.DailyStreak
	require.NoError(t, env.db.Where("user_id = ? AND date = ?", "u1", "2024-05-06").First(&rec).Error)
	assert.True(t, rec.Completed)

	var stats models.UserStats
	require.NoError(t, env.db.Where("user_id = ?", "u1").First(&stats).Error)
	assert.Equal(t, 6, stats.CurrentStreak)
	assert.Equal(t, 6, stats.LongestStreak)
	assert.Equal(t, 1, stats.CurrentLevel)
}

func TestRecordActivityGapBreaksRun(t *testing.T) {
	env := newTestEnv(t)
	seedDays(t, env.db, "u1", "2024-05-01", "2024-05-02", "2024-05-03", "2024-05-05")

	res := env.streaks.RecordActivity(context.Background(), "u1", day("2024-05-06"))
	require.NotNil(t, res)
	assert.Equal(t, 2, res.CurrentStreak)
	assert.Equal(t, 2, res.LongestStreak)
}

func TestRecordActivityIgnoresIncompleteDays(t *testing.T) {
	env := newTestEnv(t)
	seedDays(t, env.db, "u1", "2024-05-04")
	require.NoError(t, env.db.Create(&models.DailyStreak{UserID: "u1", Date: "2024-05-05", Completed: false}).Error)

	res := env.streaks.RecordActivity(context.Background(), "u1", day("2024-05-06"))
	require.NotNil(t, res)
	assert.Equal(t, 1, res.CurrentStreak)
}

func TestRecordActivitySameDayIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.streaks.RecordActivity(ctx, "u1", day("2024-05-06"))
	second := env.streaks.RecordActivity(ctx, "u1", day("2024-05-06").Add(3*time.Hour))
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, *first, *second)

	var count int64
	require.NoError(t, env.db.Model(&models.DailyStreak{}).Where("user_id = ?", "u1").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRecordActivityLongestNeverDecreases(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedStats(t, env.db, models.UserStats{UserID: "u1", CurrentLevel: 3, LongestStreak: 40, MissionsCompleted: 7})

	prevLongest := 40
	for _, d := range []string{"2024-05-01", "2024-05-02", "2024-05-04", "2024-05-05", "2024-05-20"} {
		res := env.streaks.RecordActivity(ctx, "u1", day(d))
		require.NotNil(t, res)
		assert.GreaterOrEqual(t, res.LongestStreak, prevLongest)
		prevLongest = res.LongestStreak
	}
	assert.Equal(t, 40, prevLongest)

	var stats models.UserStats
	require.NoError(t, env.db.Where("user_id = ?", "u1").First(&stats).Error)
	assert.Equal(t, 1, stats.CurrentStreak)
	assert.Equal(t, 40, stats.LongestStreak)
	// streak upsert must not clobber fields it does not own
	assert.Equal(t, 3, stats.CurrentLevel)
	assert.Equal(t, 7, stats.MissionsCompleted)
}

func TestRecordActivityPublishesEvent(t *testing.T) {
	env := newTestEnv(t)
	events, cancel := env.hub.Subscribe("u1")
	defer cancel()

	res := env.streaks.RecordActivity(context.Background(), "u1", day("2024-05-06"))
	require.NotNil(t, res)

	select {
	case ev := <-events:
		assert.Equal(t, EventStreak, ev.Type)
		assert.Equal(t, 1, ev.CurrentStreak)
		assert.Equal(t, 1, ev.LongestStreak)
	case <-time.After(time.Second):
		t.Fatal("no streak event published")
	}
}

func TestRecordActivityStorageFailureReturnsNil(t *testing.T) {
	env := newTestEnv(t)
	testutil.CloseDB(t, env.db)

	assert.Nil(t, env.streaks.RecordActivity(context.Background(), "u1", day("2024-05-06")))
}

func TestRecordActivityRejectsEmptyUser(t *testing.T) {
	env := newTestEnv(t)
	assert.Nil(t, env.streaks.RecordActivity(context.Background(), "", day("2024-05-06")))
}

func TestEnsureActiveDayToleratesDuplicate(t *testing.T) {
	env := newTestEnv(t)
	seedDays(t, env.db, "u1", "2024-05-06")

	// A second raw insert hits the unique index...
	err := env.db.Create(&models.DailyStreak{UserID: "u1", Date: "2024-05-06", Completed: true}).Error
	require.Error(t, err)
	assert.True(t, isDuplicateKey(err))

	// ...which ensureActiveDay treats as already recorded.
	assert.NoError(t, ensureActiveDay(env.db, "u1", "2024-05-06"))
}

func TestDecayStaleStreaks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seedStats(t, env.db, models.UserStats{UserID: "active", CurrentLevel: 1, CurrentStreak: 4, LongestStreak: 4})
	seedStats(t, env.db, models.UserStats{UserID: "yesterday", CurrentLevel: 1, CurrentStreak: 2, LongestStreak: 9})
	seedStats(t, env.db, models.UserStats{UserID: "stale", CurrentLevel: 1, CurrentStreak: 5, LongestStreak: 12})
	seedDays(t, env.db, "active", "2024-05-06")
	seedDays(t, env.db, "yesterday", "2024-05-05")
	seedDays(t, env.db, "stale", "2024-05-03")

	n, err := env.streaks.DecayStaleStreaks(ctx, day("2024-05-06"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var stats []models.UserStats
	require.NoError(t, env.db.Order("user_id ASC").Find(&stats).Error)
	byUser := map[string]models.UserStats{}
	for _, s := range stats {
		byUser[s.UserID] = s
	}
	assert.Equal(t, 4, byUser["active"].CurrentStreak)
	assert.Equal(t, 2, byUser["yesterday"].CurrentStreak)
	assert.Equal(t, 0, byUser["stale"].CurrentStreak)
	assert.Equal(t, 12, byUser["stale"].LongestStreak)
}

func TestUpsertStreakKeepsLargestLongestUnderConcurrentWriters(t *testing.T) {
	env := newTestEnv(t)
	seedStats(t, env.db, models.UserStats{UserID: "u1", CurrentLevel: 1, LongestStreak: 15})

	// a stale writer with a shorter run must not lower the stored value
	longest, err := upsertStreak(env.db, "u1", 3)
	require.NoError(t, err)
	assert.Equal(t, 15, longest)

	var wg sync.WaitGroup
	for run := 1; run <= 20; run++ {
		wg.Add(1)
		go func(run int) {
			defer wg.Done()
			_, err := upsertStreak(env.db, "u1", run)
			assert.NoError(t, err)
		}(run)
	}
	wg.Wait()

	var stats models.UserStats
	require.NoError(t, env.db.Where("user_id = ?", "u1").First(&stats).Error)
	assert.Equal(t, 20, stats.LongestStreak)

	longest, err = upsertStreak(env.db, "fresh", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, longest)
}
