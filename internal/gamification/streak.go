package gamification

import "time"

// NextStreak returns the streak after activity at now. Days are UTC calendar
// days. Same day keeps the streak, the following day extends it, and any
// other gap resets it to 1. A last activity in the future (clock skew) also
// resets to 1. A nil last activity is treated as activity earlier today.
func NextStreak(lastActivity *time.Time, now time.Time, current int) int {
	if lastActivity == nil {
		return current
	}

	switch daysBetween(*lastActivity, now) {
	case 0:
		return current
	case 1:
		return current + 1
	default:
		return 1
	}
}

// daysBetween counts UTC midnights crossed from a to b. Negative when b is
// before a.
func daysBetween(a, b time.Time) int {
	from := a.UTC().Truncate(24 * time.Hour)
	to := b.UTC().Truncate(24 * time.Hour)
	return int(to.Sub(from).Hours() / 24)
}
