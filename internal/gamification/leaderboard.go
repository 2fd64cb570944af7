package gamification

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/zdi-academy/backend/internal/models"
)

const (
	leaderboardKey        = "leaderboard:points"
	leaderboardRebuildKey = "leaderboard:points:rebuild"
	rebuildBatchSize      = 500
)

// RedisLeaderboard keeps total points in a sorted set keyed by user id.
type RedisLeaderboard struct {
	rdb *redis.Client
}

func NewRedisLeaderboard(rdb *redis.Client) *RedisLeaderboard {
	return &RedisLeaderboard{rdb: rdb}
}

// SetScore records a user's total. Totals only grow, so an older total
// arriving late never lowers the cached one.
func (l *RedisLeaderboard) SetScore(ctx context.Context, userID string, totalPoints int64) error {
	return l.rdb.ZAddArgs(ctx, leaderboardKey, redis.ZAddArgs{
		GT:      true,
		Members: []redis.Z{{Score: float64(totalPoints), Member: userID}},
	}).Err()
}

func (l *RedisLeaderboard) Top(ctx context.Context, limit int) ([]models.UserTotal, error) {
	zs, err := l.rdb.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	totals := make([]models.UserTotal, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected leaderboard member %T", z.Member)
		}
		totals = append(totals, models.UserTotal{UserID: member, TotalPoints: int64(z.Score)})
	}
	return totals, nil
}

// Merge loads a database snapshot into the set. The snapshot is staged under
// a scratch key, unioned with the live set keeping the higher score, and
// renamed over it in one transaction, so scores written by awards after the
// snapshot was read survive and readers never see a partial ranking.
func (l *RedisLeaderboard) Merge(ctx context.Context, totals []models.UserTotal) error {
	if len(totals) == 0 {
		return nil
	}

	if err := l.rdb.Del(ctx, leaderboardRebuildKey).Err(); err != nil {
		return err
	}
	for start := 0; start < len(totals); start += rebuildBatchSize {
		end := start + rebuildBatchSize
		if end > len(totals) {
			end = len(totals)
		}
		members := make([]*redis.Z, 0, end-start)
		for _, t := range totals[start:end] {
			members = append(members, &redis.Z{Score: float64(t.TotalPoints), Member: t.UserID})
		}
		if err := l.rdb.ZAdd(ctx, leaderboardRebuildKey, members...).Err(); err != nil {
			return fmt.Errorf("stage leaderboard batch: %w", err)
		}
	}

	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZUnionStore(ctx, leaderboardRebuildKey, &redis.ZStore{
			Keys:      []string{leaderboardRebuildKey, leaderboardKey},
			Aggregate: "MAX",
		})
		pipe.Rename(ctx, leaderboardRebuildKey, leaderboardKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("swap leaderboard: %w", err)
	}
	return nil
}
