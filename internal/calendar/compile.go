package calendar

import (
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	calendar "google.golang.org/api/calendar/v3"

	"github.com/teemow/workspacekit/internal/apierror"
	"github.com/teemow/workspacekit/internal/provider"
	"github.com/teemow/workspacekit/internal/query"
)

// Criterion fields understood by the Calendar compiler.
const (
	FieldStart    = "start"
	FieldText     = "text"
	FieldDeleted  = "deleted"
	FieldAttendee = "attendee"
	FieldLocation = "location"
)

// MaxSearchLength bounds the free text search.
const MaxSearchLength = 500

// Native is the compiled form of an event search: request parameters plus
// filters the provider cannot evaluate, applied to each fetched page.
type Native struct {
	Params url.Values
	// Attendees must all be invited.
	Attendees []string
	// Location, when set, requires (true) or forbids (false) a location.
	Location     *bool
	LocationText string
}

// Compile renders set as events.list parameters. Recurring events are always
// expanded into instances and ordered by start time.
func Compile(set query.Set, env query.Env) (Native, error) {
	if err := set.Validate(); err != nil {
		return Native{}, err
	}

	n := Native{Params: url.Values{
		"singleEvents": {"true"},
		"orderBy":      {"startTime"},
	}}
	for _, c := range set.Items() {
		switch {
		case c.Field == FieldStart && c.Kind == query.KindDateRange:
			start, end := c.Range.Resolve(env)
			if !start.IsZero() {
				n.Params.Set("timeMin", start.Format(time.RFC3339))
			}
			if !end.IsZero() {
				n.Params.Set("timeMax", end.Format(time.RFC3339))
			}

		case c.Field == FieldText && c.Kind == query.KindContains:
			if utf8.RuneCountInString(c.Value) > MaxSearchLength {
				return Native{}, apierror.Invalid("search text exceeds %d characters", MaxSearchLength)
			}
			n.Params.Set("q", c.Value)

		case c.Field == FieldDeleted && c.Kind == query.KindFlag:
			n.Params.Set("showDeleted", strconv.FormatBool(c.On))

		case c.Field == FieldAttendee && c.Kind == query.KindEquals:
			n.Attendees = append(n.Attendees, c.Value)

		case c.Field == FieldLocation && c.Kind == query.KindFlag:
			on := c.On
			n.Location = &on

		case c.Field == FieldLocation && c.Kind == query.KindContains:
			n.LocationText = c.Value

		default:
			return Native{}, apierror.Unsupported(provider.ServiceCalendar, c.Field)
		}
	}
	return n, nil
}

func (n Native) filtered() bool {
	return len(n.Attendees) > 0 || n.Location != nil || n.LocationText != ""
}

// match applies the client-side filters to a raw event.
func (n Native) match(e *calendar.Event) bool {
	for _, want := range n.Attendees {
		found := false
		for _, a := range e.Attendees {
			if strings.EqualFold(a.Email, want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if n.Location != nil && *n.Location != (strings.TrimSpace(e.Location) != "") {
		return false
	}
	if n.LocationText != "" && !strings.Contains(strings.ToLower(e.Location), strings.ToLower(n.LocationText)) {
		return false
	}
	return true
}
