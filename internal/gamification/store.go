package gamification

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zdi-academy/backend/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const statsColumns = `user_id, total_points, level, current_streak, longest_streak,
	last_activity_date, lessons_completed, courses_completed, quizzes_completed,
	perfect_scores, labs_completed, challenges_completed, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStats(row rowScanner) (*models.UserStats, error) {
	var st models.UserStats
	err := row.Scan(&st.UserID, &st.TotalPoints, &st.Level, &st.CurrentStreak, &st.LongestStreak,
		&st.LastActivityDate, &st.LessonsCompleted, &st.CoursesCompleted, &st.QuizzesCompleted,
		&st.PerfectScores, &st.LabsCompleted, &st.ChallengesCompleted, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// ── User Stats ──────────────────────────────────────────

func (s *PostgresStore) UpdateStats(ctx context.Context, userID string, now time.Time, fn StatsFunc) (*models.UserStats, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_stats (user_id, last_activity_date) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID, now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("create stats: %w", err)
	}

	stats, err := scanStats(tx.QueryRowContext(ctx,
		`SELECT `+statsColumns+` FROM user_stats WHERE user_id = $1 FOR UPDATE`,
		userID,
	))
	if err != nil {
		return nil, fmt.Errorf("lock stats: %w", err)
	}

	event, err := fn(stats)
	if err != nil {
		return nil, err
	}

	err = tx.QueryRowContext(ctx,
		`UPDATE user_stats SET
		    total_points = $2, level = $3,
		    current_streak = $4, longest_streak = $5, last_activity_date = $6,
		    lessons_completed = $7, courses_completed = $8, quizzes_completed = $9,
		    perfect_scores = $10, labs_completed = $11, challenges_completed = $12,
		    updated_at = NOW()
		 WHERE user_id = $1
		 RETURNING updated_at`,
		userID, stats.TotalPoints, stats.Level,
		stats.CurrentStreak, stats.LongestStreak, stats.LastActivityDate,
		stats.LessonsCompleted, stats.CoursesCompleted, stats.QuizzesCompleted,
		stats.PerfectScores, stats.LabsCompleted, stats.ChallengesCompleted,
	).Scan(&stats.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update stats: %w", err)
	}

	if event != nil {
		if err := insertPointEvent(ctx, tx, event); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit stats: %w", err)
	}
	return stats, nil
}

func insertPointEvent(ctx context.Context, tx *sql.Tx, e *models.PointEvent) error {
	var metaJSON *string
	if e.Metadata != nil {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("encode event metadata: %w", err)
		}
		m := string(b)
		metaJSON = &m
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO point_events (id, user_id, event_type, points, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.UserID, string(e.EventType), e.Points, metaJSON, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert point event: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetStats(ctx context.Context, userID string) (*models.UserStats, error) {
	stats, err := scanStats(s.db.QueryRowContext(ctx,
		`SELECT `+statsColumns+` FROM user_stats WHERE user_id = $1`,
		userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// ── Leaderboard ─────────────────────────────────────────

func (s *PostgresStore) TopUsers(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, total_points, level
		 FROM user_stats
		 ORDER BY total_points DESC, level DESC, user_id ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.LeaderboardEntry{}
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.TotalPoints, &e.Level); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) AllTotals(ctx context.Context) ([]models.UserTotal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id, total_points FROM user_stats`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []models.UserTotal
	for rows.Next() {
		var t models.UserTotal
		if err := rows.Scan(&t.UserID, &t.TotalPoints); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// ── Achievements ────────────────────────────────────────

func (s *PostgresStore) ActiveAchievements(ctx context.Context) ([]models.AchievementDefinition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, icon, points, type, tier, criteria, is_active
		 FROM achievements
		 WHERE is_active
		 ORDER BY type, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	defs := []models.AchievementDefinition{}
	for rows.Next() {
		var d models.AchievementDefinition
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.Icon, &d.Points,
			&d.Type, &d.Tier, &d.Criteria, &d.IsActive); err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

func (s *PostgresStore) EarnedAchievementIDs(ctx context.Context, userID string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT achievement_id FROM user_achievements
		 WHERE user_id = $1 AND earned_at IS NOT NULL`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	earned := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		earned[id] = true
	}
	return earned, rows.Err()
}

// MarkAchievementEarned upserts the user's row and only sets earned_at when
// it is still NULL, so a concurrent evaluation cannot unlock twice.
func (s *PostgresStore) MarkAchievementEarned(ctx context.Context, userID, achievementID string, at time.Time) (bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO user_achievements (id, user_id, achievement_id, earned_at, progress)
		 VALUES ($1, $2, $3, $4, 100)
		 ON CONFLICT (user_id, achievement_id) DO UPDATE
		 SET earned_at = EXCLUDED.earned_at, progress = 100
		 WHERE user_achievements.earned_at IS NULL
		 RETURNING id`,
		uuid.NewString(), userID, achievementID, at,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *PostgresStore) ListUserAchievements(ctx context.Context, userID string) ([]models.EarnedAchievement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.name, a.description, a.icon, a.points, a.type, a.tier,
		        a.criteria, a.is_active, ua.earned_at
		 FROM user_achievements ua
		 JOIN achievements a ON a.id = ua.achievement_id
		 WHERE ua.user_id = $1 AND ua.earned_at IS NOT NULL
		 ORDER BY ua.earned_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	earned := []models.EarnedAchievement{}
	for rows.Next() {
		var e models.EarnedAchievement
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.Icon, &e.Points,
			&e.Type, &e.Tier, &e.Criteria, &e.IsActive, &e.EarnedAt); err != nil {
			return nil, err
		}
		earned = append(earned, e)
	}
	return earned, rows.Err()
}
