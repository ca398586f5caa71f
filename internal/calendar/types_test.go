package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	calendar "google.golang.org/api/calendar/v3"
)

func slot(startHour, endHour int) TimeSlot {
	return TimeSlot{Start: at(startHour, 0), End: at(endHour, 0)}
}

func TestConflictsWith(t *testing.T) {
	base := &Event{Start: at(9, 0), End: at(10, 0)}

	tests := []struct {
		name  string
		other *Event
		want  bool
	}{
		{"touching after", &Event{Start: at(10, 0), End: at(11, 0)}, false},
		{"touching before", &Event{Start: at(8, 0), End: at(9, 0)}, false},
		{"overlapping end", &Event{Start: at(9, 30), End: at(10, 30)}, true},
		{"contained", &Event{Start: at(9, 15), End: at(9, 45)}, true},
		{"surrounding", &Event{Start: at(8, 0), End: at(11, 0)}, true},
		{"disjoint", &Event{Start: at(12, 0), End: at(13, 0)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.ConflictsWith(tt.other))
			assert.Equal(t, tt.want, tt.other.ConflictsWith(base))
		})
	}
}

func TestIsHappeningNow(t *testing.T) {
	e := &Event{Start: at(9, 0), End: at(10, 0)}
	assert.True(t, e.IsHappeningNow(at(9, 0)))
	assert.True(t, e.IsHappeningNow(at(9, 59)))
	assert.False(t, e.IsHappeningNow(at(10, 0)))
	assert.False(t, e.IsHappeningNow(at(8, 59)))
	assert.Equal(t, time.Hour, e.Duration())
}

func TestEventAttendees(t *testing.T) {
	e := &Event{Attendees: []Attendee{
		{Email: "Ann@Example.com"},
		{Email: "me@example.com", Self: true, ResponseStatus: ResponseNeedsAction},
	}}
	assert.True(t, e.HasAttendee("ann@example.com"))
	assert.False(t, e.HasAttendee("bob@example.com"))

	self, ok := e.SelfAttendee()
	require.True(t, ok)
	assert.Equal(t, "me@example.com", self.Email)
}

func TestTimeSlot(t *testing.T) {
	s := slot(9, 12)
	assert.True(t, s.Contains(at(9, 0)))
	assert.False(t, s.Contains(at(12, 0)))
	assert.True(t, s.ContainsSlot(slot(10, 12)))
	assert.False(t, s.ContainsSlot(slot(11, 13)))
	assert.True(t, s.Overlaps(slot(11, 13)))
	assert.False(t, s.Overlaps(slot(12, 13)))
	assert.Equal(t, 3*time.Hour, s.Duration())
}

func TestFreeBusyChecks(t *testing.T) {
	fb := &FreeBusy{Calendars: map[string][]TimeSlot{
		"a": {slot(9, 10)},
		"b": {slot(14, 15)},
	}}
	assert.False(t, fb.IsTimeFree(at(9, 30)))
	assert.True(t, fb.IsTimeFree(at(10, 0)))
	assert.False(t, fb.IsSlotFree(slot(13, 15)))
	assert.True(t, fb.IsSlotFree(slot(10, 14)))
}

func TestFreeSlots(t *testing.T) {
	window := slot(8, 18)

	t.Run("two calendars", func(t *testing.T) {
		got := freeSlots(window, []TimeSlot{slot(14, 15), slot(9, 10)}, time.Hour, false)
		assert.Equal(t, []TimeSlot{slot(8, 9), slot(10, 14), slot(15, 18)}, got)

		var total time.Duration
		for _, s := range got {
			total += s.Duration()
		}
		assert.Equal(t, 8*time.Hour, total)
	})

	t.Run("overlapping and touching busy time merges", func(t *testing.T) {
		busy := []TimeSlot{slot(9, 11), slot(10, 12), slot(12, 13), slot(16, 17)}
		got := freeSlots(window, busy, time.Hour, false)
		assert.Equal(t, []TimeSlot{slot(8, 9), slot(13, 16), slot(17, 18)}, got)
	})

	t.Run("short gaps are dropped", func(t *testing.T) {
		busy := []TimeSlot{{Start: at(8, 30), End: at(17, 30)}}
		assert.Empty(t, freeSlots(window, busy, time.Hour, false))
		assert.Len(t, freeSlots(window, busy, 30*time.Minute, false), 2)
	})

	t.Run("busy time outside the window is clipped", func(t *testing.T) {
		busy := []TimeSlot{slot(6, 9), slot(17, 20)}
		assert.Equal(t, []TimeSlot{slot(9, 17)}, freeSlots(window, busy, time.Hour, false))
	})

	t.Run("no busy time", func(t *testing.T) {
		assert.Equal(t, []TimeSlot{window}, freeSlots(window, nil, time.Hour, false))
	})

	t.Run("split into fixed slots", func(t *testing.T) {
		busy := []TimeSlot{slot(9, 10), {Start: at(12, 30), End: at(18, 0)}}
		got := freeSlots(window, busy, time.Hour, true)
		assert.Equal(t, []TimeSlot{slot(8, 9), slot(10, 11), slot(11, 12)}, got)
	})
}

func TestFromAPIEvent(t *testing.T) {
	t.Run("timed event in the service location", func(t *testing.T) {
		e := fromAPIEvent("primary", &calendar.Event{
			Id:        "ev1",
			Summary:   "Sync",
			Start:     &calendar.EventDateTime{DateTime: "2024-03-13T08:00:00Z", TimeZone: "UTC"},
			End:       &calendar.EventDateTime{DateTime: "2024-03-13T09:00:00Z"},
			Organizer: &calendar.EventOrganizer{Email: "ann@example.com"},
			ConferenceData: &calendar.ConferenceData{EntryPoints: []*calendar.EntryPoint{
				{EntryPointType: "phone", Uri: "tel:+1"},
				{EntryPointType: "video", Uri: "https://meet.google.com/abc"},
			}},
			Attendees: []*calendar.EventAttendee{{Email: "me@example.com", Self: true, ResponseStatus: "accepted"}},
		}, berlin)

		assert.True(t, at(9, 0).Equal(e.Start))
		assert.Equal(t, berlin, e.Start.Location())
		assert.Equal(t, time.Hour, e.Duration())
		assert.False(t, e.AllDay)
		assert.Equal(t, "primary", e.CalendarID)
		assert.Equal(t, "ann@example.com", e.Organizer)
		assert.Equal(t, "https://meet.google.com/abc", e.MeetLink)
		assert.Equal(t, ResponseAccepted, e.Attendees[0].ResponseStatus)
	})

	t.Run("all-day event", func(t *testing.T) {
		e := fromAPIEvent("primary", &calendar.Event{
			Id:          "ev2",
			Start:       &calendar.EventDateTime{Date: "2024-03-13"},
			End:         &calendar.EventDateTime{Date: "2024-03-14"},
			HangoutLink: "https://meet.google.com/xyz",
		}, berlin)

		assert.True(t, e.IsAllDay())
		assert.True(t, at(0, 0).Equal(e.Start))
		assert.Equal(t, 24*time.Hour, e.Duration())
		assert.Equal(t, "https://meet.google.com/xyz", e.MeetLink)
		assert.True(t, e.IsHappeningNow(fixedNow))
	})
}

func TestEventToAPI(t *testing.T) {
	allDay := (&Event{Start: at(0, 0), End: at(0, 0).AddDate(0, 0, 1), AllDay: true}).toAPI(berlin)
	assert.Equal(t, "2024-03-13", allDay.Start.Date)
	assert.Equal(t, "2024-03-14", allDay.End.Date)
	assert.Empty(t, allDay.Start.DateTime)

	timed := (&Event{Start: at(9, 0), End: at(10, 0)}).toAPI(berlin)
	assert.Equal(t, "2024-03-13T09:00:00+01:00", timed.Start.DateTime)
	assert.Equal(t, "Europe/Berlin", timed.Start.TimeZone)
}
