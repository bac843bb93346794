package streak

import "time"

// Clock supplies the current time. All streak rules operate on UTC calendar
// dates, so the orchestration layer injects a Clock once and passes Today()
// down into the pure functions instead of reading a clock ad hoc.
type Clock interface {
	Now() time.Time
	Today() time.Time
}

// UTCClock is the production Clock backed by the system clock.
type UTCClock struct{}

func (UTCClock) Now() time.Time {
	return time.Now().UTC()
}

func (UTCClock) Today() time.Time {
	return DateOf(time.Now())
}

// DateOf truncates a timestamp to its UTC calendar date (midnight UTC).
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FixedClock always reports the same instant. Used in tests and by the
// integrity audit job to evaluate a whole sweep against one date.
type FixedClock struct {
	Instant time.Time
}

func (c FixedClock) Now() time.Time {
	return c.Instant.UTC()
}

func (c FixedClock) Today() time.Time {
	return DateOf(c.Instant)
}
