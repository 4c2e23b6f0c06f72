package finance

import "time"

// Clock is the source of "now" for status derivation, default payment dates,
// and hour-request submission dates. Injectable so the engines are
// deterministic under test and so an administrative backdating path can
// supply its own time if ever needed.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns a Clock backed by the real wall clock (UTC).
func SystemClock() Clock { return systemClock{} }

// FixedClock always returns the same instant. For tests.
type FixedClock struct {
	Time time.Time
}

func (f FixedClock) Now() time.Time { return f.Time }

// DateOf truncates an instant to its calendar day (UTC). Hour requests are
// keyed by day, not by instant.
func DateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
