package progress

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/zdi-academy/backend/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetLesson(ctx context.Context, lessonID string) (*models.Lesson, error) {
	var l models.Lesson
	err := s.db.QueryRowContext(ctx,
		`SELECT id, course_id, title, type, position FROM lessons WHERE id = $1`,
		lessonID,
	).Scan(&l.ID, &l.CourseID, &l.Title, &l.Type, &l.Position)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLessonNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *PostgresStore) MarkLessonComplete(ctx context.Context, userID, lessonID string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO lesson_progress (user_id, lesson_id, completed_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, lesson_id) DO NOTHING`,
		userID, lessonID, at,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *PostgresStore) CountCourseLessons(ctx context.Context, userID, courseID string) (int, int, error) {
	var completed, total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(lp.lesson_id), COUNT(l.id)
		 FROM lessons l
		 LEFT JOIN lesson_progress lp ON lp.lesson_id = l.id AND lp.user_id = $1
		 WHERE l.course_id = $2`,
		userID, courseID,
	).Scan(&completed, &total)
	return completed, total, err
}

// SaveCourseProgress keeps the first completion time; the returned flag is
// true only for the call that set it. The flag compares the stored
// completed_at with at, so at must already be truncated to the microsecond
// precision of timestamptz (see Service.CompleteLesson) and be unique per
// completing call.
func (s *PostgresStore) SaveCourseProgress(ctx context.Context, userID, courseID string, percent int, complete bool, at time.Time) (bool, error) {
	var justCompleted sql.NullBool
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO enrollments (user_id, course_id, progress, completed_at, updated_at)
		 VALUES ($1, $2, $3::int, CASE WHEN $5::bool THEN $4::timestamptz END, $4::timestamptz)
		 ON CONFLICT (user_id, course_id) DO UPDATE
		 SET progress = EXCLUDED.progress,
		     completed_at = COALESCE(enrollments.completed_at, EXCLUDED.completed_at),
		     updated_at = EXCLUDED.updated_at
		 RETURNING completed_at = $4::timestamptz`,
		userID, courseID, percent, at, complete,
	).Scan(&justCompleted)
	if err != nil {
		return false, err
	}
	return justCompleted.Valid && justCompleted.Bool, nil
}
