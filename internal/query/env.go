package query

import "time"

// Env is the compile environment: the clock and the location relative dates
// are resolved in. The zero value uses time.Now and time.Local.
type Env struct {
	Now      func() time.Time
	Location *time.Location
}

// NewEnv returns an Env for loc using the wall clock.
func NewEnv(loc *time.Location) Env {
	return Env{Location: loc}
}

// FixedEnv returns an Env whose clock always reports now.
func FixedEnv(now time.Time, loc *time.Location) Env {
	return Env{Now: func() time.Time { return now }, Location: loc}
}

// Loc returns the configured location, defaulting to time.Local.
func (e Env) Loc() *time.Location {
	if e.Location == nil {
		return time.Local
	}
	return e.Location
}

// Time returns the current instant in the configured location.
func (e Env) Time() time.Time {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	return now().In(e.Loc())
}

// Midnight returns 00:00 of the current local day.
func (e Env) Midnight() time.Time {
	return StartOfDay(e.Time())
}

// StartOfDay truncates t to 00:00 in t's location. Unlike Truncate(24h) this
// is correct for locations with a non-zero UTC offset.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AddDays moves t by n calendar days keeping the wall clock time, so DST
// transitions do not shift day boundaries.
func AddDays(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+n, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// StartOfWeek returns Monday 00:00 of the ISO week containing t.
func StartOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return AddDays(StartOfDay(t), -offset)
}

// StartOfMonth returns the first day of t's month at 00:00.
func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}
