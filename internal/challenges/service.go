package challenges

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zdi-academy/backend/internal/metrics"
	"github.com/zdi-academy/backend/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var (
	ErrNotFound      = errors.New("challenge not found")
	ErrUnpublished   = errors.New("challenge is not published")
	ErrAlreadySolved = errors.New("challenge already solved")
)

var tracer = otel.Tracer("github.com/zdi-academy/backend/internal/challenges")

type Store interface {
	// GetChallenge returns ErrNotFound for unknown ids.
	GetChallenge(ctx context.Context, challengeID string) (*models.Challenge, error)
	HasSolved(ctx context.Context, userID, challengeID string) (bool, error)
	// RecordSubmission returns ErrAlreadySolved when a correct submission
	// for the same user and challenge already exists.
	RecordSubmission(ctx context.Context, sub *models.Submission) error
}

type Awarder interface {
	AwardPoints(ctx context.Context, userID string, points int, eventType models.EventType, metadata map[string]interface{}) (*models.AwardResult, error)
}

type LessonCompleter interface {
	CompleteLesson(ctx context.Context, userID, lessonID string) (*models.LessonCompletion, error)
}

type Service struct {
	store    Store
	awarder  Awarder
	progress LessonCompleter
	log      *zap.Logger
	now      func() time.Time
}

func NewService(store Store, awarder Awarder, progress LessonCompleter, log *zap.Logger) *Service {
	return &Service{store: store, awarder: awarder, progress: progress, log: log.Named("challenges"), now: time.Now}
}

// SubmitFlag records a flag attempt. Solved challenges are rejected before
// the flag is looked at. A correct first solve awards the challenge's
// points and completes its linked lesson; both are best-effort. A wrong
// flag is a normal result, not an error.
func (s *Service) SubmitFlag(ctx context.Context, userID, challengeID, flag string) (*models.FlagSubmitResponse, error) {
	ctx, span := tracer.Start(ctx, "challenges.SubmitFlag")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.String("challenge.id", challengeID))

	ch, err := s.store.GetChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if !ch.IsPublished {
		return nil, ErrUnpublished
	}

	solved, err := s.store.HasSolved(ctx, userID, challengeID)
	if err != nil {
		return nil, fmt.Errorf("check solved: %w", err)
	}
	if solved {
		metrics.FlagSubmissions.WithLabelValues("already_solved").Inc()
		return nil, ErrAlreadySolved
	}

	correct := ValidateFlag(ch, flag, userID)
	sub := &models.Submission{
		ID:          uuid.NewString(),
		UserID:      userID,
		ChallengeID: ch.ID,
		Flag:        flag,
		IsCorrect:   correct,
		SubmittedAt: s.now(),
	}
	if correct {
		sub.Points = ch.Points
	}
	if err := s.store.RecordSubmission(ctx, sub); err != nil {
		if errors.Is(err, ErrAlreadySolved) {
			metrics.FlagSubmissions.WithLabelValues("already_solved").Inc()
			return nil, err
		}
		return nil, fmt.Errorf("record submission: %w", err)
	}
	span.SetAttributes(attribute.Bool("flag.correct", correct))

	resp := &models.FlagSubmitResponse{
		Correct:       correct,
		PointsAwarded: sub.Points,
		SubmissionID:  sub.ID,
	}
	if !correct {
		metrics.FlagSubmissions.WithLabelValues("incorrect").Inc()
		resp.Message = "Incorrect flag. Try again!"
		return resp, nil
	}

	metrics.FlagSubmissions.WithLabelValues("correct").Inc()
	resp.Message = fmt.Sprintf("Correct! You earned %d points.", ch.Points)

	res, err := s.awarder.AwardPoints(ctx, userID, ch.Points, models.EventChallengeComplete, map[string]interface{}{
		"challenge_id":  ch.ID,
		"submission_id": sub.ID,
	})
	if err != nil {
		metrics.SideEffectFailures.WithLabelValues("challenge_award").Inc()
		s.log.Warn("challenge award failed",
			zap.String("user_id", userID),
			zap.String("challenge_id", ch.ID),
			zap.Error(err))
	}
	outcome := models.NewAwardOutcome(models.EventChallengeComplete, res, err)
	resp.Award = &outcome

	if ch.LessonID != nil && *ch.LessonID != "" {
		completion, err := s.progress.CompleteLesson(ctx, userID, *ch.LessonID)
		if err != nil {
			metrics.SideEffectFailures.WithLabelValues("challenge_lesson").Inc()
			s.log.Warn("linked lesson completion failed",
				zap.String("user_id", userID),
				zap.String("lesson_id", *ch.LessonID),
				zap.Error(err))
			resp.LessonError = err.Error()
		} else {
			resp.LessonCompletion = completion
		}
	}

	return resp, nil
}
