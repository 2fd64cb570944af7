package gamification

import "math"

// Level returns the 1-based level for a cumulative point total: the highest
// level whose threshold the total has reached.
func (r Rules) Level(totalPoints int64) int {
	for i := len(r.thresholds) - 1; i >= 0; i-- {
		if totalPoints >= r.thresholds[i] {
			return i + 1
		}
	}
	return 1
}

// LevelProgress describes where a total sits inside its level band.
type LevelProgress struct {
	Level            int
	CurrentThreshold int64
	NextThreshold    *int64 // nil at max level
	PointsToNext     int64
	Percent          int // 0-100, 100 at max level
}

func (r Rules) Progress(totalPoints int64) LevelProgress {
	level := r.Level(totalPoints)
	p := LevelProgress{
		Level:            level,
		CurrentThreshold: r.thresholds[level-1],
		Percent:          100,
	}
	if level >= len(r.thresholds) {
		return p
	}

	next := r.thresholds[level]
	p.NextThreshold = &next
	p.PointsToNext = next - totalPoints
	band := next - p.CurrentThreshold
	p.Percent = int(math.Floor(float64(totalPoints-p.CurrentThreshold) / float64(band) * 100))
	return p
}
