package models

import "time"

// ── Event Types ───────────────────────────────────────────

type EventType string

const (
	EventLessonComplete    EventType = "LESSON_COMPLETE"
	EventCourseComplete    EventType = "COURSE_COMPLETE"
	EventQuizPerfect       EventType = "QUIZ_PERFECT"
	EventLabComplete       EventType = "LAB_COMPLETE"
	EventChallengeComplete EventType = "CHALLENGE_COMPLETE"
	EventCustom            EventType = "CUSTOM"
)

var ValidEventTypes = map[EventType]bool{
	EventLessonComplete:    true,
	EventCourseComplete:    true,
	EventQuizPerfect:       true,
	EventLabComplete:       true,
	EventChallengeComplete: true,
	EventCustom:            true,
}

// ── Core Gamification Structs ─────────────────────────────

type UserStats struct {
	UserID              string     `json:"user_id"`
	TotalPoints         int64      `json:"total_points"`
	Level               int        `json:"level"`
	CurrentStreak       int        `json:"current_streak"`
	LongestStreak       int        `json:"longest_streak"`
	LastActivityDate    *time.Time `json:"last_activity_date"`
	LessonsCompleted    int        `json:"lessons_completed"`
	CoursesCompleted    int        `json:"courses_completed"`
	QuizzesCompleted    int        `json:"quizzes_completed"`
	PerfectScores       int        `json:"perfect_scores"`
	LabsCompleted       int        `json:"labs_completed"`
	ChallengesCompleted int        `json:"challenges_completed"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Counter returns the completion counter tracked for an event type.
// CUSTOM and unknown events have no counter.
func (s *UserStats) Counter(eventType EventType) (int, bool) {
	switch eventType {
	case EventLessonComplete:
		return s.LessonsCompleted, true
	case EventCourseComplete:
		return s.CoursesCompleted, true
	case EventQuizPerfect:
		return s.PerfectScores, true
	case EventLabComplete:
		return s.LabsCompleted, true
	case EventChallengeComplete:
		return s.ChallengesCompleted, true
	}
	return 0, false
}

// IncrementCounter bumps the counters tied to an event type. A perfect quiz
// counts as both a completed quiz and a perfect score.
func (s *UserStats) IncrementCounter(eventType EventType) {
	switch eventType {
	case EventLessonComplete:
		s.LessonsCompleted++
	case EventCourseComplete:
		s.CoursesCompleted++
	case EventQuizPerfect:
		s.QuizzesCompleted++
		s.PerfectScores++
	case EventLabComplete:
		s.LabsCompleted++
	case EventChallengeComplete:
		s.ChallengesCompleted++
	}
}

type PointEvent struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"user_id"`
	EventType EventType              `json:"event_type"`
	Points    int                    `json:"points"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// ── Award Results ─────────────────────────────────────────

type AwardResult struct {
	PointsAwarded   int                     `json:"points_awarded"`
	NewTotalPoints  int64                   `json:"new_total_points"`
	Level           int                     `json:"level"`
	LeveledUp       bool                    `json:"leveled_up"`
	NewAchievements []AchievementDefinition `json:"new_achievements"`
}

// AwardOutcome reports a best-effort award attempted as a side effect of
// another operation. A failed award never fails the operation itself.
type AwardOutcome struct {
	Event  EventType    `json:"event"`
	Result *AwardResult `json:"result,omitempty"`
	Failed bool         `json:"failed"`
	Error  string       `json:"error,omitempty"`
}

func NewAwardOutcome(event EventType, result *AwardResult, err error) AwardOutcome {
	if err != nil {
		return AwardOutcome{Event: event, Failed: true, Error: err.Error()}
	}
	return AwardOutcome{Event: event, Result: result}
}

// ── Response Types ────────────────────────────────────────

type UserStatsResponse struct {
	UserID                string     `json:"user_id"`
	TotalPoints           int64      `json:"total_points"`
	Level                 int        `json:"level"`
	CurrentLevelThreshold int64      `json:"current_level_threshold"`
	NextLevelThreshold    *int64     `json:"next_level_threshold"`
	PointsToNextLevel     int64      `json:"points_to_next_level"`
	LevelProgress         int        `json:"level_progress"`
	CurrentStreak         int        `json:"current_streak"`
	LongestStreak         int        `json:"longest_streak"`
	LastActivityDate      *time.Time `json:"last_activity_date"`
	LessonsCompleted      int        `json:"lessons_completed"`
	CoursesCompleted      int        `json:"courses_completed"`
	QuizzesCompleted      int        `json:"quizzes_completed"`
	PerfectScores         int        `json:"perfect_scores"`
	LabsCompleted         int        `json:"labs_completed"`
	ChallengesCompleted   int        `json:"challenges_completed"`
}

type LeaderboardResponse struct {
	Source  string             `json:"source"`
	Entries []LeaderboardEntry `json:"entries"`
}

type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"user_id"`
	TotalPoints int64  `json:"total_points"`
	Level       int    `json:"level"`
}

// UserTotal is the minimal projection used to rebuild the leaderboard cache.
type UserTotal struct {
	UserID      string
	TotalPoints int64
}

type ErrorResponse struct {
	Error string `json:"error"`
}
