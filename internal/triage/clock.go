package triage

import "time"

// Clock is the time source read by the urgency scorer.
type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock in the local time zone.
var SystemClock Clock = ClockFunc(time.Now)

// FixedClock always returns t.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

// InLocation converts every reading of clock into loc. A nil loc leaves the
// clock untouched.
func InLocation(clock Clock, loc *time.Location) Clock {
	if loc == nil {
		return clock
	}
	return ClockFunc(func() time.Time { return clock.Now().In(loc) })
}
