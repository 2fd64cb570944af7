package gamification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zdi-academy/backend/internal/metrics"
	"github.com/zdi-academy/backend/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/zdi-academy/backend/internal/gamification")

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

// StatsFunc mutates a locked stats row and returns the audit event to log
// with it.
type StatsFunc func(stats *models.UserStats) (*models.PointEvent, error)

// Store is the persistence behind the engine.
type Store interface {
	AchievementStore
	// UpdateStats creates the user's stats row if missing, with its last
	// activity set to now, locks it, applies fn and persists the row plus the
	// returned event atomically. Concurrent calls for one user are serialized.
	UpdateStats(ctx context.Context, userID string, now time.Time, fn StatsFunc) (*models.UserStats, error)
	// GetStats returns nil without error when the user has no row.
	GetStats(ctx context.Context, userID string) (*models.UserStats, error)
	TopUsers(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	AllTotals(ctx context.Context) ([]models.UserTotal, error)
	ListUserAchievements(ctx context.Context, userID string) ([]models.EarnedAchievement, error)
}

// LeaderboardCache mirrors point totals for fast ranking reads.
type LeaderboardCache interface {
	SetScore(ctx context.Context, userID string, totalPoints int64) error
	Top(ctx context.Context, limit int) ([]models.UserTotal, error)
	// Merge folds a snapshot of database totals into the cache. It never
	// lowers a cached score.
	Merge(ctx context.Context, totals []models.UserTotal) error
}

type Service struct {
	store     Store
	rules     Rules
	evaluator *Evaluator
	cache     LeaderboardCache
	log       *zap.Logger
	now       func() time.Time
}

func NewService(store Store, rules Rules, log *zap.Logger) *Service {
	return &Service{
		store:     store,
		rules:     rules,
		evaluator: NewEvaluator(store),
		log:       log.Named("gamification"),
		now:       time.Now,
	}
}

// SetLeaderboardCache enables the cached leaderboard. Without one every
// leaderboard read goes to the store.
func (s *Service) SetLeaderboardCache(cache LeaderboardCache) {
	s.cache = cache
}

func (s *Service) Rules() Rules {
	return s.rules
}

// ── Awarding ────────────────────────────────────────────

// AwardPoints credits points to a user and applies every derived effect:
// level, streak, the counter for eventType, then achievement evaluation.
// The stats update is atomic per user; achievements are evaluated against
// the committed stats.
func (s *Service) AwardPoints(ctx context.Context, userID string, points int, eventType models.EventType, metadata map[string]interface{}) (*models.AwardResult, error) {
	ctx, span := tracer.Start(ctx, "gamification.AwardPoints")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("event.type", string(eventType)),
		attribute.Int("points", points),
	)

	if points < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativePoints, points)
	}

	now := s.now()
	var previousLevel int
	updated, err := s.store.UpdateStats(ctx, userID, now, func(stats *models.UserStats) (*models.PointEvent, error) {
		previousLevel = stats.Level
		applyAward(s.rules, stats, points, eventType, now)
		return &models.PointEvent{
			ID:        uuid.NewString(),
			UserID:    userID,
			EventType: eventType,
			Points:    points,
			Metadata:  metadata,
			CreatedAt: now,
		}, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update stats")
		return nil, fmt.Errorf("update stats: %w", err)
	}

	leveledUp := updated.Level > previousLevel
	metrics.PointsAwarded.WithLabelValues(string(eventType)).Add(float64(points))
	if leveledUp {
		metrics.LevelUps.Inc()
		s.log.Info("level up",
			zap.String("user_id", userID),
			zap.Int("from", previousLevel),
			zap.Int("to", updated.Level))
	}

	s.syncLeaderboard(ctx, updated)

	unlocked, err := s.evaluator.Evaluate(ctx, userID, eventType, updated)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "evaluate achievements")
		return nil, fmt.Errorf("evaluate achievements: %w", err)
	}
	for _, a := range unlocked {
		metrics.AchievementsUnlocked.WithLabelValues(string(a.Type)).Inc()
		s.log.Info("achievement unlocked",
			zap.String("user_id", userID),
			zap.String("achievement_id", a.ID))
	}

	return &models.AwardResult{
		PointsAwarded:   points,
		NewTotalPoints:  updated.TotalPoints,
		Level:           updated.Level,
		LeveledUp:       leveledUp,
		NewAchievements: unlocked,
	}, nil
}

// AwardPointsForEvent awards the fixed points configured for eventType.
// Event types without a point value, CUSTOM included, are rejected.
func (s *Service) AwardPointsForEvent(ctx context.Context, userID string, eventType models.EventType, metadata map[string]interface{}) (*models.AwardResult, error) {
	points := s.rules.PointsFor(eventType)
	if points == 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidEventType, eventType)
	}
	return s.AwardPoints(ctx, userID, points, eventType, metadata)
}

// applyAward is the pure part of an award.
func applyAward(rules Rules, stats *models.UserStats, points int, eventType models.EventType, now time.Time) {
	stats.TotalPoints += int64(points)
	stats.Level = rules.Level(stats.TotalPoints)

	stats.CurrentStreak = NextStreak(stats.LastActivityDate, now, stats.CurrentStreak)
	if stats.CurrentStreak > stats.LongestStreak {
		stats.LongestStreak = stats.CurrentStreak
	}
	activity := now.UTC()
	stats.LastActivityDate = &activity

	stats.IncrementCounter(eventType)
}

func (s *Service) syncLeaderboard(ctx context.Context, stats *models.UserStats) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetScore(ctx, stats.UserID, stats.TotalPoints); err != nil {
		metrics.SideEffectFailures.WithLabelValues("leaderboard_cache").Inc()
		s.log.Warn("leaderboard cache update failed",
			zap.String("user_id", stats.UserID),
			zap.Error(err))
	}
}

// ── Queries ─────────────────────────────────────────────

// GetUserStats returns the user's stats with level progress. Users with no
// activity get a zero view; no row is created.
func (s *Service) GetUserStats(ctx context.Context, userID string) (*models.UserStatsResponse, error) {
	stats, err := s.store.GetStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	if stats == nil {
		stats = &models.UserStats{UserID: userID, Level: 1}
	}

	progress := s.rules.Progress(stats.TotalPoints)
	return &models.UserStatsResponse{
		UserID:                stats.UserID,
		TotalPoints:           stats.TotalPoints,
		Level:                 progress.Level,
		CurrentLevelThreshold: progress.CurrentThreshold,
		NextLevelThreshold:    progress.NextThreshold,
		PointsToNextLevel:     progress.PointsToNext,
		LevelProgress:         progress.Percent,
		CurrentStreak:         stats.CurrentStreak,
		LongestStreak:         stats.LongestStreak,
		LastActivityDate:      stats.LastActivityDate,
		LessonsCompleted:      stats.LessonsCompleted,
		CoursesCompleted:      stats.CoursesCompleted,
		QuizzesCompleted:      stats.QuizzesCompleted,
		PerfectScores:         stats.PerfectScores,
		LabsCompleted:         stats.LabsCompleted,
		ChallengesCompleted:   stats.ChallengesCompleted,
	}, nil
}

// GetLeaderboard ranks users by total points. The cache is tried first; any
// cache error falls back to the store.
func (s *Service) GetLeaderboard(ctx context.Context, limit int) (*models.LeaderboardResponse, error) {
	limit = clampLimit(limit)

	if s.cache != nil {
		totals, err := s.cache.Top(ctx, limit)
		if err == nil {
			entries := make([]models.LeaderboardEntry, len(totals))
			for i, t := range totals {
				entries[i] = models.LeaderboardEntry{
					Rank:        i + 1,
					UserID:      t.UserID,
					TotalPoints: t.TotalPoints,
					Level:       s.rules.Level(t.TotalPoints),
				}
			}
			return &models.LeaderboardResponse{Source: "cache", Entries: entries}, nil
		}
		s.log.Warn("leaderboard cache read failed, using database", zap.Error(err))
	}

	entries, err := s.store.TopUsers(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("top users: %w", err)
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return &models.LeaderboardResponse{Source: "database", Entries: entries}, nil
}

// RebuildLeaderboardCache folds database totals into the cached ranking.
func (s *Service) RebuildLeaderboardCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	totals, err := s.store.AllTotals(ctx)
	if err != nil {
		return fmt.Errorf("load totals: %w", err)
	}
	if err := s.cache.Merge(ctx, totals); err != nil {
		return fmt.Errorf("replace leaderboard cache: %w", err)
	}
	s.log.Info("leaderboard cache rebuilt", zap.Int("users", len(totals)))
	return nil
}

func (s *Service) ListAchievements(ctx context.Context) ([]models.AchievementDefinition, error) {
	defs, err := s.store.ActiveAchievements(ctx)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	return defs, nil
}

func (s *Service) ListUserAchievements(ctx context.Context, userID string) ([]models.EarnedAchievement, error) {
	earned, err := s.store.ListUserAchievements(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user achievements: %w", err)
	}
	return earned, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		return MaxLeaderboardLimit
	}
	return limit
}
