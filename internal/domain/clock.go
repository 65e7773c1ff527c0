package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock is a package-level time source so tests can freeze "today" via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Now returns the current instant from the package clock.
func Now() time.Time {
	return clock.Now()
}

// Today returns the current calendar date in loc as a UTC midnight value, the
// same representation normalized records use.
func Today(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return dateOnly(clock.Now().In(loc))
}
