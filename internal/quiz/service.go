package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zdi-academy/backend/internal/metrics"
	"github.com/zdi-academy/backend/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("quiz not found")

var tracer = otel.Tracer("github.com/zdi-academy/backend/internal/quiz")

type Store interface {
	// GetQuiz returns ErrNotFound when the lesson has no quiz.
	GetQuiz(ctx context.Context, lessonID string) (*models.Quiz, error)
}

type LessonCompleter interface {
	CompleteLesson(ctx context.Context, userID, lessonID string) (*models.LessonCompletion, error)
}

type Awarder interface {
	AwardPointsForEvent(ctx context.Context, userID string, eventType models.EventType, metadata map[string]interface{}) (*models.AwardResult, error)
}

type Service struct {
	store    Store
	progress LessonCompleter
	awarder  Awarder
	log      *zap.Logger
}

func NewService(store Store, progress LessonCompleter, awarder Awarder, log *zap.Logger) *Service {
	return &Service{store: store, progress: progress, awarder: awarder, log: log.Named("quiz")}
}

// Submit grades a quiz attempt. A pass completes the lesson; a perfect score
// also awards QUIZ_PERFECT. The perfect bonus is best-effort, lesson
// completion is not.
func (s *Service) Submit(ctx context.Context, userID, lessonID string, answers map[string]json.RawMessage) (*models.QuizSubmitResponse, error) {
	ctx, span := tracer.Start(ctx, "quiz.Submit")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.String("lesson.id", lessonID))

	quiz, err := s.store.GetQuiz(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	grade := Grade(*quiz, answers)
	span.SetAttributes(attribute.Int("quiz.score", grade.Score))
	resp := &models.QuizSubmitResponse{QuizGrade: grade}

	result := "failed"
	if grade.Passed {
		result = "passed"
		completion, err := s.progress.CompleteLesson(ctx, userID, lessonID)
		if err != nil {
			return nil, fmt.Errorf("complete lesson: %w", err)
		}
		resp.LessonCompletion = completion
	}

	if grade.Score == 100 {
		result = "perfect"
		res, err := s.awarder.AwardPointsForEvent(ctx, userID, models.EventQuizPerfect, map[string]interface{}{
			"lesson_id": lessonID,
			"score":     grade.Score,
		})
		if err != nil {
			metrics.SideEffectFailures.WithLabelValues("quiz").Inc()
			s.log.Warn("perfect score award failed",
				zap.String("user_id", userID),
				zap.String("lesson_id", lessonID),
				zap.Error(err))
		}
		outcome := models.NewAwardOutcome(models.EventQuizPerfect, res, err)
		resp.PerfectBonus = &outcome
	}

	metrics.QuizSubmissions.WithLabelValues(result).Inc()
	return resp, nil
}
