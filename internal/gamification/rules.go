package gamification

import (
	"fmt"

	"github.com/zdi-academy/backend/internal/models"
)

var defaultEventPoints = map[models.EventType]int{
	models.EventLessonComplete:    10,
	models.EventCourseComplete:    100,
	models.EventQuizPerfect:       25,
	models.EventLabComplete:       50,
	models.EventChallengeComplete: 75,
}

var defaultLevelThresholds = []int64{0, 100, 250, 500, 1000, 2000, 3500, 5500, 8000, 11000}

// Rules holds the event point table and the level thresholds. A Rules value
// never changes after construction; accessors hand out copies.
type Rules struct {
	points     map[models.EventType]int
	thresholds []int64
}

// DefaultRules returns the platform point table and the ten level thresholds.
func DefaultRules() Rules {
	r, err := NewRules(defaultEventPoints, defaultLevelThresholds)
	if err != nil {
		panic(err)
	}
	return r
}

// NewRules validates and copies the given tables. Thresholds must start at 0
// and be strictly ascending. CUSTOM can never carry a fixed point value.
func NewRules(points map[models.EventType]int, thresholds []int64) (Rules, error) {
	if len(thresholds) == 0 {
		return Rules{}, fmt.Errorf("%w: no level thresholds", ErrInvalidRules)
	}
	if thresholds[0] != 0 {
		return Rules{}, fmt.Errorf("%w: first level threshold must be 0, got %d", ErrInvalidRules, thresholds[0])
	}
	for i := 1; i < len(thresholds); i++ {
		if thresholds[i] <= thresholds[i-1] {
			return Rules{}, fmt.Errorf("%w: thresholds not ascending at level %d", ErrInvalidRules, i+1)
		}
	}

	pts := make(map[models.EventType]int, len(points))
	for evt, p := range points {
		if !models.ValidEventTypes[evt] {
			return Rules{}, fmt.Errorf("%w: unknown event type %q", ErrInvalidRules, evt)
		}
		if evt == models.EventCustom && p != 0 {
			return Rules{}, fmt.Errorf("%w: CUSTOM events take explicit points", ErrInvalidRules)
		}
		if p < 0 {
			return Rules{}, fmt.Errorf("%w: negative points for %s", ErrInvalidRules, evt)
		}
		pts[evt] = p
	}

	th := make([]int64, len(thresholds))
	copy(th, thresholds)
	return Rules{points: pts, thresholds: th}, nil
}

// PointsFor returns the fixed points for an event type, 0 for CUSTOM or
// anything unknown.
func (r Rules) PointsFor(eventType models.EventType) int {
	return r.points[eventType]
}

// EventPoints returns a copy of the point table.
func (r Rules) EventPoints() map[models.EventType]int {
	out := make(map[models.EventType]int, len(r.points))
	for k, v := range r.points {
		out[k] = v
	}
	return out
}

// Thresholds returns a copy of the level thresholds.
func (r Rules) Thresholds() []int64 {
	out := make([]int64, len(r.thresholds))
	copy(out, r.thresholds)
	return out
}

func (r Rules) MaxLevel() int {
	return len(r.thresholds)
}

// WithOverrides returns a copy of r with the given point values and, when
// non-empty, thresholds replacing the current ones. The result is validated
// like NewRules.
func (r Rules) WithOverrides(points map[models.EventType]int, thresholds []int64) (Rules, error) {
	merged := r.EventPoints()
	for evt, p := range points {
		merged[evt] = p
	}
	th := r.thresholds
	if len(thresholds) > 0 {
		th = thresholds
	}
	return NewRules(merged, th)
}
