// services/scheduler.go
package services

import (
	"context"
	"fmt"
	"time"

	"career-progress-service/models"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// DecayStaleStreaks zeroes the cached current streak of users whose last
// completed day is before yesterday. Longest streaks and day records stay.
func (s *StreakService) DecayStaleStreaks(ctx context.Context, today time.Time) (int64, error) {
	yesterday := DayKey(today.In(s.Location).AddDate(0, 0, -1), s.Location)

	recent := s.DB.Model(&models.DailyStreak{}).
		Select("user_id").
		Where("completed = ? AND date >= ?", true, yesterday)

	res := s.DB.WithContext(ctx).Model(&models.UserStats{}).
		Where("current_streak > 0").
		Where("user_id NOT IN (?)", recent).
		Update("current_streak", 0)
	if res.Error != nil {
		return 0, fmt.Errorf("decay streaks: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// StartDecayScheduler runs DecayStaleStreaks on the given cron expression
// (evaluated in the service location). The caller owns Shutdown.
func (s *StreakService) StartDecayScheduler(cronExpr string) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithLocation(s.Location))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(func() {
			n, err := s.DecayStaleStreaks(context.Background(), time.Now())
			if err != nil {
				s.Log.Error("[Scheduler] streak decay failed", zap.Error(err))
				return
			}
			s.Log.Info("[Scheduler] streak decay done", zap.Int64("reset", n))
		}),
		gocron.WithName("streak-decay"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("schedule streak decay: %w", err)
	}

	sched.Start()
	return sched, nil
}
