package gamification

import "errors"

var (
	// ErrInvalidEventType is returned when an event type maps to no points.
	ErrInvalidEventType = errors.New("invalid event type")
	ErrNegativePoints   = errors.New("points must not be negative")
	ErrInvalidRules     = errors.New("invalid gamification rules")
)
