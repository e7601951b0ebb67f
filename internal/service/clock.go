package service

import (
	"time"

	"revline/internal/models"
)

// Clock returns the current time. Services take one so date-based rules are testable.
type Clock func() time.Time

// SystemClock reads the wall clock in UTC.
func SystemClock() time.Time {
	return time.Now().UTC()
}

func (c Clock) now() time.Time {
	if c == nil {
		return SystemClock()
	}
	return c()
}

// today is the calendar date events are compared against.
func (c Clock) today() string {
	return c.now().Format(models.EventDateLayout)
}

func clampLimit(limit, def, maxLimit int) int {
	if limit <= 0 {
		return def
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
