package calendar

import (
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

const dateLayout = "2006-01-02"

const (
	listFields   = "nextPageToken,items(id,summary,description,location,start,end,attendees,recurrence,status,htmlLink,organizer,hangoutLink,conferenceData,eventType)"
	listIDFields = "nextPageToken,items(id)"
	// listFilterFields is the id-only mask extended by what post-filters read.
	listFilterFields = "nextPageToken,items(id,location,attendees(email))"
)

func fromAPIEvent(calendarID string, e *calendar.Event, loc *time.Location) *Event {
	ev := &Event{
		ID:          e.Id,
		CalendarID:  calendarID,
		Summary:     e.Summary,
		Description: e.Description,
		Location:    e.Location,
		Recurrence:  e.Recurrence,
		Status:      e.Status,
		HTMLLink:    e.HtmlLink,
		EventType:   e.EventType,
		MeetLink:    meetLink(e),
	}
	if e.Organizer != nil {
		ev.Organizer = e.Organizer.Email
	}
	ev.Start, ev.AllDay, ev.TimeZone = parseEventTime(e.Start, loc)
	ev.End, _, _ = parseEventTime(e.End, loc)
	for _, a := range e.Attendees {
		ev.Attendees = append(ev.Attendees, Attendee{
			Email:          a.Email,
			DisplayName:    a.DisplayName,
			ResponseStatus: a.ResponseStatus,
			Optional:       a.Optional,
			Organizer:      a.Organizer,
			Self:           a.Self,
		})
	}
	return ev
}

// parseEventTime reads either the date of an all-day event or the instant of
// a timed one. Dates become midnight in loc.
func parseEventTime(t *calendar.EventDateTime, loc *time.Location) (time.Time, bool, string) {
	if t == nil {
		return time.Time{}, false, ""
	}
	if t.DateTime != "" {
		parsed, err := time.Parse(time.RFC3339, t.DateTime)
		if err != nil {
			return time.Time{}, false, t.TimeZone
		}
		return parsed.In(loc), false, t.TimeZone
	}
	if t.Date != "" {
		parsed, err := time.ParseInLocation(dateLayout, t.Date, loc)
		if err != nil {
			return time.Time{}, true, t.TimeZone
		}
		return parsed, true, t.TimeZone
	}
	return time.Time{}, false, t.TimeZone
}

func meetLink(e *calendar.Event) string {
	if e.ConferenceData != nil {
		for _, ep := range e.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" && ep.Uri != "" {
				return ep.Uri
			}
		}
	}
	return e.HangoutLink
}

// toAPI renders the writable fields of e. Attendee response states are kept
// so a full update does not reset them.
func (e *Event) toAPI(loc *time.Location) *calendar.Event {
	out := &calendar.Event{
		Summary:     e.Summary,
		Description: e.Description,
		Location:    e.Location,
		Recurrence:  e.Recurrence,
		Start:       eventTime(e.Start, e.AllDay, e.TimeZone, loc),
		End:         eventTime(e.End, e.AllDay, e.TimeZone, loc),
	}
	for _, a := range e.Attendees {
		out.Attendees = append(out.Attendees, &calendar.EventAttendee{
			Email:          a.Email,
			DisplayName:    a.DisplayName,
			ResponseStatus: a.ResponseStatus,
			Optional:       a.Optional,
		})
	}
	return out
}

func eventTime(t time.Time, allDay bool, tz string, loc *time.Location) *calendar.EventDateTime {
	if allDay {
		return &calendar.EventDateTime{Date: t.In(loc).Format(dateLayout)}
	}
	// "Local" is not an IANA name; the offset in DateTime is enough then.
	if tz == "" && loc != time.Local {
		tz = loc.String()
	}
	return &calendar.EventDateTime{DateTime: t.Format(time.RFC3339), TimeZone: tz}
}

func fromAPICalendar(c *calendar.CalendarListEntry) *Calendar {
	return &Calendar{
		ID:          c.Id,
		Summary:     c.Summary,
		Description: c.Description,
		TimeZone:    c.TimeZone,
		Primary:     c.Primary,
		AccessRole:  c.AccessRole,
	}
}
