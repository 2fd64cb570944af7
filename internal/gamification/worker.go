package gamification

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// StartLeaderboardSync rebuilds the leaderboard cache once at startup and
// then every interval. The caller shuts the returned scheduler down.
func (s *Service) StartLeaderboardSync(ctx context.Context, interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if err := s.RebuildLeaderboardCache(ctx); err != nil {
				s.log.Warn("leaderboard sync failed", zap.Error(err))
			}
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule leaderboard sync: %w", err)
	}

	sched.Start()
	return sched, nil
}
