package quiz

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zdi-academy/backend/internal/models"
)

func intPtr(v int) *int { return &v }

func question(id, answer string, points *int) models.QuizQuestion {
	return models.QuizQuestion{ID: id, CorrectAnswer: json.RawMessage(answer), Points: points}
}

func answers(kv ...string) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage)
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i]] = json.RawMessage(kv[i+1])
	}
	return out
}

func TestGrade(t *testing.T) {
	twoQuestions := models.Quiz{Questions: []models.QuizQuestion{
		question("q1", `"A"`, nil),
		question("q2", `"B"`, nil),
	}}

	tests := []struct {
		name       string
		quiz       models.Quiz
		answers    map[string]json.RawMessage
		wantScore  int
		wantPassed bool
	}{
		{"half right", twoQuestions, answers("q1", `"A"`, "q2", `"C"`), 50, false},
		{"all right", twoQuestions, answers("q1", `"A"`, "q2", `"B"`), 100, true},
		{"no answers", twoQuestions, answers(), 0, false},
		{"null answers", twoQuestions, answers("q1", `null`, "q2", `null`), 0, false},
		{"empty quiz", models.Quiz{}, answers("q1", `"A"`), 0, false},
		{
			"weighted",
			models.Quiz{Questions: []models.QuizQuestion{
				question("q1", `"A"`, intPtr(3)),
				question("q2", `"B"`, intPtr(1)),
			}},
			answers("q1", `"A"`),
			75, true,
		},
		{
			"rounding",
			models.Quiz{Questions: []models.QuizQuestion{
				question("q1", `1`, nil),
				question("q2", `2`, nil),
				question("q3", `3`, nil),
			}},
			answers("q1", `1`, "q2", `2`),
			67, false,
		},
		{
			"custom passing score",
			models.Quiz{PassingScore: intPtr(50), Questions: []models.QuizQuestion{
				question("q1", `true`, nil),
				question("q2", `false`, nil),
			}},
			answers("q1", `true`),
			50, true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Grade(tt.quiz, tt.answers)
			assert.Equal(t, tt.wantScore, got.Score)
			assert.Equal(t, tt.wantPassed, got.Passed)
			assert.GreaterOrEqual(t, got.Score, 0)
			assert.LessOrEqual(t, got.Score, 100)
		})
	}
}

func TestGradeZeroPointsCountsAsOne(t *testing.T) {
	quiz := models.Quiz{Questions: []models.QuizQuestion{
		question("q1", `"A"`, intPtr(0)),
		question("q2", `"B"`, nil),
	}}
	got := Grade(quiz, answers("q1", `"A"`))
	assert.Equal(t, 2, got.MaxPoints)
	assert.Equal(t, 1, got.EarnedPoints)
	assert.Equal(t, 70, got.PassingScore)
}

func TestAnswerMatches(t *testing.T) {
	tests := []struct {
		name    string
		correct string
		given   string
		want    bool
	}{
		{"same string", `"nmap"`, `"nmap"`, true},
		{"case differs", `"nmap"`, `"NMAP"`, false},
		{"object key order", `{"port":22,"proto":"tcp"}`, `{"proto":"tcp","port":22}`, true},
		{"whitespace", `[1, 2, 3]`, `[1,2,3]`, true},
		{"array order matters", `[1,2,3]`, `[3,2,1]`, false},
		{"number forms", `1`, `1.0`, true},
		{"type differs", `1`, `"1"`, false},
		{"missing answer", `"A"`, ``, false},
		{"null answer", `"A"`, `null`, false},
		{"null correct", `null`, `null`, false},
		{"invalid json", `"A"`, `{`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AnswerMatches(json.RawMessage(tt.correct), json.RawMessage(tt.given)))
		})
	}
}
