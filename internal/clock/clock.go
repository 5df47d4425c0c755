// Package clock provides the zone-aware time source used by flows and the scanner.
package clock

import (
	"log/slog"
	"time"
)

// DefaultZone is the IANA zone reminders and pickups are evaluated in.
const DefaultZone = "America/Santiago"

// Clock returns the current time in the configured zone.
type Clock func() time.Time

// Now returns the current time.
func (c Clock) Now() time.Time {
	return c()
}

// Today returns midnight of the current day in the clock's zone.
func (c Clock) Today() time.Time {
	return Midnight(c())
}

// System returns a Clock reading the wall clock in loc.
func System(loc *time.Location) Clock {
	return func() time.Time { return time.Now().In(loc) }
}

// Fixed returns a Clock that always reports t.
func Fixed(t time.Time) Clock {
	return func() time.Time { return t }
}

// Midnight truncates t to the start of its calendar day, keeping its zone.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysBetween returns the number of calendar days from a to b. Both are
// interpreted as calendar days; the time of day is ignored.
func DaysBetween(a, b time.Time) int {
	a, b = Midnight(a), Midnight(b)
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// LoadLocation loads the named zone, falling back to UTC when it cannot be
// loaded (for example on hosts without tzdata).
func LoadLocation(name string) *time.Location {
	if name == "" {
		name = DefaultZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		slog.Warn("clock.LoadLocation: zone unavailable, using UTC", "zone", name, "error", err)
		return time.UTC
	}
	return loc
}
