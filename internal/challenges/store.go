package challenges

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/zdi-academy/backend/internal/models"
)

const firstSolveIndex = "uq_submissions_first_solve"

type PostgresStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetChallenge(ctx context.Context, challengeID string) (*models.Challenge, error) {
	var ch models.Challenge
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, points, flag, flag_format, is_published, lesson_id
		 FROM challenges WHERE id = $1`,
		challengeID,
	).Scan(&ch.ID, &ch.Title, &ch.Points, &ch.Flag, &ch.FlagFormat, &ch.IsPublished, &ch.LessonID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

func (s *PostgresStore) HasSolved(ctx context.Context, userID, challengeID string) (bool, error) {
	var solved bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (
		    SELECT 1 FROM submissions
		    WHERE user_id = $1 AND challenge_id = $2 AND is_correct
		 )`,
		userID, challengeID,
	).Scan(&solved)
	return solved, err
}

func (s *PostgresStore) RecordSubmission(ctx context.Context, sub *models.Submission) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO submissions (id, user_id, challenge_id, flag, is_correct, points, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sub.ID, sub.UserID, sub.ChallengeID, sub.Flag, sub.IsCorrect, sub.Points, sub.SubmittedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == firstSolveIndex {
		return ErrAlreadySolved
	}
	return err
}
