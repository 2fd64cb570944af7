package gamification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zdi-academy/backend/internal/models"
)

func def(id string, typ models.AchievementType, c models.Criteria) models.AchievementDefinition {
	return models.AchievementDefinition{ID: id, Name: id, Type: typ, Criteria: c, IsActive: true, Tier: models.TierBronze}
}

func TestQualifies(t *testing.T) {
	stats := &models.UserStats{
		TotalPoints:         1200,
		CurrentStreak:       7,
		LessonsCompleted:    3,
		PerfectScores:       1,
		ChallengesCompleted: 0,
	}
	tests := []struct {
		name    string
		def     models.AchievementDefinition
		trigger models.EventType
		want    bool
	}{
		{"lesson count met", def("a", models.AchievementLessonComplete, models.CountCriteria(3)), models.EventCustom, true},
		{"lesson count not met", def("a", models.AchievementLessonComplete, models.CountCriteria(4)), models.EventLessonComplete, false},
		{"no count, matching trigger", def("a", models.AchievementQuizPerfect, models.Criteria{}), models.EventQuizPerfect, true},
		{"no count, other trigger", def("a", models.AchievementQuizPerfect, models.Criteria{}), models.EventLessonComplete, false},
		{"challenge count zero", def("a", models.AchievementChallengeComplete, models.CountCriteria(1)), models.EventChallengeComplete, false},
		{"points met", def("a", models.AchievementPointsMilestone, models.PointsCriteria(1000)), models.EventCustom, true},
		{"points not met", def("a", models.AchievementPointsMilestone, models.PointsCriteria(5000)), models.EventCustom, false},
		{"points without criteria", def("a", models.AchievementPointsMilestone, models.Criteria{}), models.EventCustom, false},
		{"points with wrong kind", def("a", models.AchievementPointsMilestone, models.CountCriteria(1)), models.EventCustom, false},
		{"streak met", def("a", models.AchievementStreak, models.DaysCriteria(7)), models.EventCustom, true},
		{"streak not met", def("a", models.AchievementStreak, models.DaysCriteria(30)), models.EventCustom, false},
		{"streak without criteria", def("a", models.AchievementStreak, models.Criteria{}), models.EventCustom, false},
		{"first login", def("a", models.AchievementFirstLogin, models.Criteria{}), models.EventCustom, true},
		{"unknown type", def("a", models.AchievementType("MYSTERY"), models.CountCriteria(0)), models.EventCustom, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Qualifies(tt.def, tt.trigger, stats))
		})
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	store := newMemStore(
		def("first-lesson", models.AchievementLessonComplete, models.CountCriteria(1)),
		def("streak-7", models.AchievementStreak, models.DaysCriteria(7)),
		def("welcome", models.AchievementFirstLogin, models.Criteria{}),
	)
	ev := NewEvaluator(store)
	stats := &models.UserStats{UserID: "u1", LessonsCompleted: 1, CurrentStreak: 2}

	first, err := ev.Evaluate(context.Background(), "u1", models.EventLessonComplete, stats)
	require.NoError(t, err)
	ids := make([]string, len(first))
	for i, a := range first {
		ids[i] = a.ID
	}
	assert.ElementsMatch(t, []string{"first-lesson", "welcome"}, ids)

	second, err := ev.Evaluate(context.Background(), "u1", models.EventLessonComplete, stats)
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestEvaluateSkipsInactive(t *testing.T) {
	retired := def("retired", models.AchievementFirstLogin, models.Criteria{})
	retired.IsActive = false
	store := newMemStore(retired)
	ev := NewEvaluator(store)

	got, err := ev.Evaluate(context.Background(), "u1", models.EventCustom, &models.UserStats{UserID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

// racingStore reports every achievement as not yet earned, as a concurrent
// evaluation would see it, and relies on the conditional mark.
type racingStore struct {
	*memStore
}

func (r racingStore) EarnedAchievementIDs(ctx context.Context, userID string) (map[string]bool, error) {
	return map[string]bool{}, nil
}

func TestEvaluateLosesRaceGracefully(t *testing.T) {
	inner := newMemStore(def("welcome", models.AchievementFirstLogin, models.Criteria{}))
	_, err := inner.MarkAchievementEarned(context.Background(), "u1", "welcome", time.Now())
	require.NoError(t, err)

	ev := NewEvaluator(racingStore{inner})
	got, err := ev.Evaluate(context.Background(), "u1", models.EventCustom, &models.UserStats{UserID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, got)
}
