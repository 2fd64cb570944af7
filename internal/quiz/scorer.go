package quiz

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/zdi-academy/backend/internal/models"
)

// Grade scores answers against a quiz. Each question is worth its point
// value (default 1); the score is the earned share of the maximum rounded
// to a whole percent. A quiz with no questions scores 0.
func Grade(quiz models.Quiz, answers map[string]json.RawMessage) models.QuizGrade {
	var earned, maxPoints int
	for _, q := range quiz.Questions {
		pts := q.PointValue()
		maxPoints += pts
		if AnswerMatches(q.CorrectAnswer, answers[q.ID]) {
			earned += pts
		}
	}

	denom := maxPoints
	if denom < 1 {
		denom = 1
	}
	score := int(math.Round(float64(earned) / float64(denom) * 100))
	passing := quiz.EffectivePassingScore()

	return models.QuizGrade{
		Score:        score,
		Passed:       score >= passing,
		EarnedPoints: earned,
		MaxPoints:    maxPoints,
		PassingScore: passing,
	}
}

// AnswerMatches compares two JSON values structurally: key order and
// whitespace are ignored. Missing or null answers never match.
func AnswerMatches(correct, given json.RawMessage) bool {
	want, ok := canonicalJSON(correct)
	if !ok {
		return false
	}
	got, ok := canonicalJSON(given)
	if !ok {
		return false
	}
	return bytes.Equal(want, got)
}

// canonicalJSON re-encodes raw through a generic value; encoding/json sorts
// map keys on output.
func canonicalJSON(raw json.RawMessage) ([]byte, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, false
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil || v == nil {
		return nil, false
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	return b, true
}
