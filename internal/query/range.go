package query

import (
	"fmt"
	"time"

	"github.com/teemow/workspacekit/internal/apierror"
)

// Relative names a date window resolved against the clock at compile time.
type Relative int

const (
	Absolute Relative = iota
	RelToday
	RelYesterday
	RelTomorrow
	RelLastDays
	RelNextDays
	RelThisWeek
	RelNextWeek
	RelThisMonth
)

var relativeNames = map[Relative]string{
	Absolute:     "absolute",
	RelToday:     "today",
	RelYesterday: "yesterday",
	RelTomorrow:  "tomorrow",
	RelLastDays:  "last_days",
	RelNextDays:  "next_days",
	RelThisWeek:  "this_week",
	RelNextWeek:  "next_week",
	RelThisMonth: "this_month",
}

func (r Relative) String() string {
	return relativeNames[r]
}

// Range is a half-open time window [Start, End). A zero bound is unbounded.
// Relative ranges carry no instants until resolved.
type Range struct {
	Rel   Relative
	Days  int
	Start time.Time
	End   time.Time
}

// Span returns the absolute range [start, end).
func Span(start, end time.Time) Range { return Range{Start: start, End: end} }

// From returns the range starting at start with no upper bound.
func From(start time.Time) Range { return Range{Start: start} }

// Until returns the range ending before end with no lower bound.
func Until(end time.Time) Range { return Range{End: end} }

func Today() Range     { return Range{Rel: RelToday} }
func Yesterday() Range { return Range{Rel: RelYesterday} }
func Tomorrow() Range  { return Range{Rel: RelTomorrow} }
func ThisWeek() Range  { return Range{Rel: RelThisWeek} }
func NextWeek() Range  { return Range{Rel: RelNextWeek} }
func ThisMonth() Range { return Range{Rel: RelThisMonth} }

// LastDays covers today and the n-1 preceding full days.
func LastDays(n int) Range { return Range{Rel: RelLastDays, Days: n} }

// NextDays covers today and the n-1 following days.
func NextDays(n int) Range { return Range{Rel: RelNextDays, Days: n} }

// Validate checks the range without resolving it.
func (r Range) Validate() error {
	switch r.Rel {
	case Absolute:
		if r.Start.IsZero() && r.End.IsZero() {
			return apierror.Invalid("date range needs at least one bound")
		}
		if !r.Start.IsZero() && !r.End.IsZero() && r.Start.After(r.End) {
			return apierror.Invalid("date range start %s is after end %s",
				r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
		}
	case RelLastDays, RelNextDays:
		if r.Days < 1 {
			return apierror.Invalid("%s needs a positive number of days, got %d", r.Rel, r.Days)
		}
	}
	return nil
}

// Resolve turns the range into absolute bounds using env's clock and location.
// Absolute bounds are returned unchanged.
func (r Range) Resolve(env Env) (start, end time.Time) {
	if r.Rel == Absolute {
		return r.Start, r.End
	}

	midnight := env.Midnight()
	switch r.Rel {
	case RelToday:
		return midnight, AddDays(midnight, 1)
	case RelYesterday:
		return AddDays(midnight, -1), midnight
	case RelTomorrow:
		return AddDays(midnight, 1), AddDays(midnight, 2)
	case RelLastDays:
		return AddDays(midnight, -(r.Days - 1)), AddDays(midnight, 1)
	case RelNextDays:
		return midnight, AddDays(midnight, r.Days)
	case RelThisWeek:
		monday := StartOfWeek(midnight)
		return monday, AddDays(monday, 7)
	case RelNextWeek:
		monday := AddDays(StartOfWeek(midnight), 7)
		return monday, AddDays(monday, 7)
	case RelThisMonth:
		first := StartOfMonth(midnight)
		return first, first.AddDate(0, 1, 0)
	}
	panic(fmt.Sprintf("query: unknown relative range %d", r.Rel))
}
