package models

import (
	"encoding/json"
	"time"
)

// ── Courses & Lessons ─────────────────────────────────────

type LessonType string

const (
	LessonVideo     LessonType = "VIDEO"
	LessonText      LessonType = "TEXT"
	LessonQuiz      LessonType = "QUIZ"
	LessonLab       LessonType = "LAB"
	LessonChallenge LessonType = "CHALLENGE"
)

type Lesson struct {
	ID       string     `json:"id"`
	CourseID string     `json:"course_id"`
	Title    string     `json:"title"`
	Type     LessonType `json:"type"`
	Position int        `json:"position"`
}

type LessonCompletion struct {
	LessonID         string         `json:"lesson_id"`
	CourseID         string         `json:"course_id"`
	AlreadyCompleted bool           `json:"already_completed"`
	CourseProgress   int            `json:"course_progress"`
	CourseCompleted  bool           `json:"course_completed"`
	Awards           []AwardOutcome `json:"awards"`
}

// ── Quizzes ───────────────────────────────────────────────

const (
	DefaultPassingScore  = 70
	DefaultQuestionPoint = 1
)

type Quiz struct {
	LessonID     string         `json:"lesson_id"`
	PassingScore *int           `json:"passing_score,omitempty"`
	Questions    []QuizQuestion `json:"questions"`
}

// EffectivePassingScore falls back to the platform default when unset.
func (q Quiz) EffectivePassingScore() int {
	if q.PassingScore == nil {
		return DefaultPassingScore
	}
	return *q.PassingScore
}

type QuizQuestion struct {
	ID            string          `json:"id"`
	Prompt        string          `json:"prompt"`
	CorrectAnswer json.RawMessage `json:"-"`
	Points        *int            `json:"points,omitempty"`
}

// PointValue is the question weight. Unset and zero both mean one point.
func (q QuizQuestion) PointValue() int {
	if q.Points == nil || *q.Points == 0 {
		return DefaultQuestionPoint
	}
	return *q.Points
}

type QuizSubmitRequest struct {
	Answers map[string]json.RawMessage `json:"answers"`
}

type QuizGrade struct {
	Score        int  `json:"score"`
	Passed       bool `json:"passed"`
	EarnedPoints int  `json:"earned_points"`
	MaxPoints    int  `json:"max_points"`
	PassingScore int  `json:"passing_score"`
}

type QuizSubmitResponse struct {
	QuizGrade
	LessonCompletion *LessonCompletion `json:"lesson_completion,omitempty"`
	PerfectBonus     *AwardOutcome     `json:"perfect_bonus,omitempty"`
}

// ── Challenges ────────────────────────────────────────────

type Challenge struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Points      int     `json:"points"`
	Flag        *string `json:"-"`
	FlagFormat  *string `json:"-"`
	IsPublished bool    `json:"is_published"`
	LessonID    *string `json:"lesson_id,omitempty"`
}

type Submission struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ChallengeID string    `json:"challenge_id"`
	Flag        string    `json:"-"`
	IsCorrect   bool      `json:"is_correct"`
	Points      int       `json:"points"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type FlagSubmitRequest struct {
	Flag string `json:"flag"`
}

type FlagSubmitResponse struct {
	Correct          bool              `json:"correct"`
	PointsAwarded    int               `json:"points_awarded"`
	Message          string            `json:"message"`
	SubmissionID     string            `json:"submission_id"`
	Award            *AwardOutcome     `json:"award,omitempty"`
	LessonCompletion *LessonCompletion `json:"lesson_completion,omitempty"`
	LessonError      string            `json:"lesson_error,omitempty"`
}
