// Package calendar wraps the Google Calendar API: events, the calendar list,
// free/busy lookups and a query builder compiling to events.list parameters.
//
// Event times are returned in the service location. All-day events start at
// local midnight and end at the following midnight. Attendee and location
// filters are evaluated on each fetched page, so limits count matching
// events only:
//
//	svc := calendar.New(client, calendar.WithEnv(query.NewEnv(loc)))
//	events, err := svc.Query().ThisWeek().ByAttendee("ann@example.com").Execute(ctx)
//
// FindFreeSlots merges the busy time of several calendars and returns the
// gaps left in a window.
package calendar
