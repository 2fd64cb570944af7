package quiz

import (
	"context"
	"database/sql"
	"errors"

	"github.com/zdi-academy/backend/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetQuiz(ctx context.Context, lessonID string) (*models.Quiz, error) {
	q := models.Quiz{LessonID: lessonID}
	var passing sql.NullInt32
	err := s.db.QueryRowContext(ctx,
		`SELECT passing_score FROM quizzes WHERE lesson_id = $1`,
		lessonID,
	).Scan(&passing)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if passing.Valid {
		p := int(passing.Int32)
		q.PassingScore = &p
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, prompt, correct_answer, points
		 FROM quiz_questions
		 WHERE lesson_id = $1
		 ORDER BY position, id`,
		lessonID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			qq      models.QuizQuestion
			correct []byte
			points  sql.NullInt32
		)
		if err := rows.Scan(&qq.ID, &qq.Prompt, &correct, &points); err != nil {
			return nil, err
		}
		qq.CorrectAnswer = correct
		if points.Valid {
			p := int(points.Int32)
			qq.Points = &p
		}
		q.Questions = append(q.Questions, qq)
	}
	return &q, rows.Err()
}
