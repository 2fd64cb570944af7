package progress

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/zdi-academy/backend/internal/metrics"
	"github.com/zdi-academy/backend/internal/models"
	"go.uber.org/zap"
)

var (
	ErrLessonNotFound = errors.New("lesson not found")
	ErrNotLab         = errors.New("lesson is not a lab")
)

type Store interface {
	// GetLesson returns ErrLessonNotFound for unknown ids.
	GetLesson(ctx context.Context, lessonID string) (*models.Lesson, error)
	// MarkLessonComplete records completion and reports whether this call
	// was the first.
	MarkLessonComplete(ctx context.Context, userID, lessonID string, at time.Time) (bool, error)
	CountCourseLessons(ctx context.Context, userID, courseID string) (completed, total int, err error)
	// SaveCourseProgress stores the percentage, records the completion time
	// the first time complete is true, and reports whether this call set it.
	SaveCourseProgress(ctx context.Context, userID, courseID string, percent int, complete bool, at time.Time) (bool, error)
}

// Awarder is the slice of the gamification engine used here.
type Awarder interface {
	AwardPointsForEvent(ctx context.Context, userID string, eventType models.EventType, metadata map[string]interface{}) (*models.AwardResult, error)
}

type Service struct {
	store   Store
	awarder Awarder
	log     *zap.Logger
	now     func() time.Time
}

func NewService(store Store, awarder Awarder, log *zap.Logger) *Service {
	return &Service{store: store, awarder: awarder, log: log.Named("progress"), now: time.Now}
}

// CoursePercent is completed/total as a rounded percentage. Only a fully
// completed course reports 100.
func CoursePercent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	if completed >= total {
		return 100
	}
	p := int(math.Round(float64(completed) / float64(total) * 100))
	if p > 99 {
		return 99
	}
	return p
}

// CompleteLesson marks a lesson done. The first completion awards
// LESSON_COMPLETE, refreshes course progress, and awards COURSE_COMPLETE
// when the course reaches 100%. Repeat calls change nothing.
func (s *Service) CompleteLesson(ctx context.Context, userID, lessonID string) (*models.LessonCompletion, error) {
	lesson, err := s.store.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	first, err := s.store.MarkLessonComplete(ctx, userID, lessonID, now)
	if err != nil {
		return nil, fmt.Errorf("mark lesson complete: %w", err)
	}

	resp := &models.LessonCompletion{
		LessonID:         lesson.ID,
		CourseID:         lesson.CourseID,
		AlreadyCompleted: !first,
		Awards:           []models.AwardOutcome{},
	}
	if !first {
		return resp, nil
	}

	resp.Awards = append(resp.Awards, s.award(ctx, userID, models.EventLessonComplete, map[string]interface{}{
		"lesson_id": lesson.ID,
		"course_id": lesson.CourseID,
	}))

	completed, total, err := s.store.CountCourseLessons(ctx, userID, lesson.CourseID)
	if err != nil {
		return nil, fmt.Errorf("count course lessons: %w", err)
	}
	resp.CourseProgress = CoursePercent(completed, total)
	allDone := total > 0 && completed >= total

	courseDone, err := s.store.SaveCourseProgress(ctx, userID, lesson.CourseID, resp.CourseProgress, allDone, now)
	if err != nil {
		return nil, fmt.Errorf("save course progress: %w", err)
	}
	if courseDone {
		resp.CourseCompleted = true
		resp.Awards = append(resp.Awards, s.award(ctx, userID, models.EventCourseComplete, map[string]interface{}{
			"course_id": lesson.CourseID,
		}))
	}

	return resp, nil
}

// CompleteLab completes a LAB lesson and, on first completion, adds the
// LAB_COMPLETE award on top of the lesson awards.
func (s *Service) CompleteLab(ctx context.Context, userID, lessonID string) (*models.LessonCompletion, error) {
	lesson, err := s.store.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if lesson.Type != models.LessonLab {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotLab, lesson.ID, lesson.Type)
	}

	resp, err := s.CompleteLesson(ctx, userID, lessonID)
	if err != nil {
		return nil, err
	}
	if !resp.AlreadyCompleted {
		resp.Awards = append(resp.Awards, s.award(ctx, userID, models.EventLabComplete, map[string]interface{}{
			"lesson_id": lesson.ID,
		}))
	}
	return resp, nil
}

// award is best-effort: failures are logged and reported, never returned.
func (s *Service) award(ctx context.Context, userID string, event models.EventType, metadata map[string]interface{}) models.AwardOutcome {
	res, err := s.awarder.AwardPointsForEvent(ctx, userID, event, metadata)
	if err != nil {
		metrics.SideEffectFailures.WithLabelValues("progress").Inc()
		s.log.Warn("award failed",
			zap.String("user_id", userID),
			zap.String("event", string(event)),
			zap.Error(err))
	}
	return models.NewAwardOutcome(event, res, err)
}
