package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type AchievementType string

const (
	AchievementLessonComplete    AchievementType = "LESSON_COMPLETE"
	AchievementCourseComplete    AchievementType = "COURSE_COMPLETE"
	AchievementQuizPerfect       AchievementType = "QUIZ_PERFECT"
	AchievementLabComplete       AchievementType = "LAB_COMPLETE"
	AchievementChallengeComplete AchievementType = "CHALLENGE_COMPLETE"
	AchievementPointsMilestone   AchievementType = "POINTS_MILESTONE"
	AchievementStreak            AchievementType = "STREAK"
	AchievementFirstLogin        AchievementType = "FIRST_LOGIN"
)

type AchievementTier string

const (
	TierBronze   AchievementTier = "BRONZE"
	TierSilver   AchievementTier = "SILVER"
	TierGold     AchievementTier = "GOLD"
	TierPlatinum AchievementTier = "PLATINUM"
)

type AchievementDefinition struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Icon        string          `json:"icon"`
	Points      int             `json:"points"`
	Type        AchievementType `json:"type"`
	Tier        AchievementTier `json:"tier"`
	Criteria    Criteria        `json:"criteria"`
	IsActive    bool            `json:"is_active"`
}

type UserAchievement struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	AchievementID string     `json:"achievement_id"`
	EarnedAt      *time.Time `json:"earned_at"`
	Progress      int        `json:"progress"`
}

type EarnedAchievement struct {
	AchievementDefinition
	EarnedAt time.Time `json:"earned_at"`
}

// ── Criteria ──────────────────────────────────────────────

type CriteriaKind int

const (
	CriteriaNone CriteriaKind = iota
	CriteriaCount
	CriteriaPoints
	CriteriaDays
)

// Criteria is the threshold attached to an achievement. It is stored as a
// single-key JSON object: {"count":N}, {"points":N} or {"days":N}.
type Criteria struct {
	Kind   CriteriaKind
	Amount int64
}

func CountCriteria(n int64) Criteria  { return Criteria{Kind: CriteriaCount, Amount: n} }
func PointsCriteria(n int64) Criteria { return Criteria{Kind: CriteriaPoints, Amount: n} }
func DaysCriteria(n int64) Criteria   { return Criteria{Kind: CriteriaDays, Amount: n} }

func (c Criteria) Count() (int64, bool)  { return c.Amount, c.Kind == CriteriaCount }
func (c Criteria) Points() (int64, bool) { return c.Amount, c.Kind == CriteriaPoints }
func (c Criteria) Days() (int64, bool)   { return c.Amount, c.Kind == CriteriaDays }

var criteriaKeys = []struct {
	key  string
	kind CriteriaKind
}{
	{"count", CriteriaCount},
	{"points", CriteriaPoints},
	{"days", CriteriaDays},
}

func (c Criteria) MarshalJSON() ([]byte, error) {
	for _, k := range criteriaKeys {
		if k.kind == c.Kind {
			return json.Marshal(map[string]int64{k.key: c.Amount})
		}
	}
	return []byte("{}"), nil
}

func (c *Criteria) UnmarshalJSON(data []byte) error {
	var raw map[string]int64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode criteria: %w", err)
	}
	*c = Criteria{}
	for _, k := range criteriaKeys {
		if v, ok := raw[k.key]; ok {
			*c = Criteria{Kind: k.kind, Amount: v}
			return nil
		}
	}
	return nil
}

// Scan implements sql.Scanner for JSONB columns.
func (c *Criteria) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*c = Criteria{}
		return nil
	case []byte:
		return c.UnmarshalJSON(v)
	case string:
		return c.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("unsupported criteria column type %T", src)
	}
}

// Value implements driver.Valuer.
func (c Criteria) Value() (driver.Value, error) {
	b, err := c.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
