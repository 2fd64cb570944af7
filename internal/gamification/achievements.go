package gamification

import (
	"context"
	"fmt"
	"time"

	"github.com/zdi-academy/backend/internal/models"
	"go.opentelemetry.io/otel/attribute"
)

// AchievementStore is the persistence the evaluator needs.
type AchievementStore interface {
	ActiveAchievements(ctx context.Context) ([]models.AchievementDefinition, error)
	EarnedAchievementIDs(ctx context.Context, userID string) (map[string]bool, error)
	// MarkAchievementEarned sets earnedAt if it is not already set and
	// reports whether this call did it.
	MarkAchievementEarned(ctx context.Context, userID, achievementID string, at time.Time) (bool, error)
}

// Evaluator unlocks achievements a user newly qualifies for.
type Evaluator struct {
	store AchievementStore
	now   func() time.Time
}

func NewEvaluator(store AchievementStore) *Evaluator {
	return &Evaluator{store: store, now: time.Now}
}

// Evaluate checks every active achievement the user has not yet earned
// against stats and returns the ones unlocked by this call. Running it
// again with the same stats unlocks nothing.
func (e *Evaluator) Evaluate(ctx context.Context, userID string, trigger models.EventType, stats *models.UserStats) ([]models.AchievementDefinition, error) {
	ctx, span := tracer.Start(ctx, "gamification.EvaluateAchievements")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.String("event.type", string(trigger)))

	defs, err := e.store.ActiveAchievements(ctx)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	earned, err := e.store.EarnedAchievementIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list earned achievements: %w", err)
	}

	unlocked := []models.AchievementDefinition{}
	for _, def := range defs {
		if earned[def.ID] || !Qualifies(def, trigger, stats) {
			continue
		}
		ok, err := e.store.MarkAchievementEarned(ctx, userID, def.ID, e.now())
		if err != nil {
			return unlocked, fmt.Errorf("mark achievement %s: %w", def.ID, err)
		}
		if ok {
			unlocked = append(unlocked, def)
		}
	}

	span.SetAttributes(attribute.Int("achievements.unlocked", len(unlocked)))
	return unlocked, nil
}

// Qualifies reports whether stats meet an achievement's criteria.
//
// Completion achievements with a count criterion compare the matching
// counter; without one they fire on the triggering event itself. Points and
// streak achievements need their own criterion kind. FIRST_LOGIN always
// qualifies.
func Qualifies(def models.AchievementDefinition, trigger models.EventType, stats *models.UserStats) bool {
	switch def.Type {
	case models.AchievementLessonComplete,
		models.AchievementCourseComplete,
		models.AchievementQuizPerfect,
		models.AchievementLabComplete,
		models.AchievementChallengeComplete:
		evt := models.EventType(def.Type)
		if n, ok := def.Criteria.Count(); ok {
			count, _ := stats.Counter(evt)
			return int64(count) >= n
		}
		return trigger == evt

	case models.AchievementPointsMilestone:
		n, ok := def.Criteria.Points()
		return ok && stats.TotalPoints >= n

	case models.AchievementStreak:
		n, ok := def.Criteria.Days()
		return ok && int64(stats.CurrentStreak) >= n

	case models.AchievementFirstLogin:
		return true
	}
	return false
}
