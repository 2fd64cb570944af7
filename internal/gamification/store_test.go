package gamification

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zdi-academy/backend/internal/database"
	"github.com/zdi-academy/backend/internal/models"
	"go.uber.org/zap"
)

// openTestDB connects to ZDI_TEST_DATABASE_URL and applies migrations. Tests
// using it are skipped when the variable is unset.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("ZDI_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("ZDI_TEST_DATABASE_URL not set")
	}
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func TestPostgresMarkAchievementEarnedOnce(t *testing.T) {
	store := NewStore(openTestDB(t))
	ctx := context.Background()
	userID := uuid.NewString()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.MarkAchievementEarned(ctx, userID, "first-lesson", time.Now())
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)

	earned, err := store.EarnedAchievementIDs(ctx, userID)
	require.NoError(t, err)
	assert.True(t, earned["first-lesson"])

	again, err := store.MarkAchievementEarned(ctx, userID, "first-lesson", time.Now())
	require.NoError(t, err)
	assert.False(t, again)
}

func TestPostgresAwardPointsSerializesPerUser(t *testing.T) {
	svc := NewService(NewStore(openTestDB(t)), DefaultRules(), zap.NewNop())
	ctx := context.Background()
	userID := uuid.NewString()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AwardPoints(ctx, userID, 10, models.EventLessonComplete, nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	resp, err := svc.GetUserStats(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), resp.TotalPoints)
	assert.Equal(t, 20, resp.LessonsCompleted)
	assert.Equal(t, 2, resp.Level)
	assert.Equal(t, 0, resp.CurrentStreak)
	require.NotNil(t, resp.LastActivityDate)
}
