package calendar

import (
	"strings"
	"time"
)

// PrimaryCalendar is the alias of the user's main calendar.
const PrimaryCalendar = "primary"

// Attendee response states.
const (
	ResponseNeedsAction = "needsAction"
	ResponseDeclined    = "declined"
	ResponseTentative   = "tentative"
	ResponseAccepted    = "accepted"
)

// Attendee is a guest of an event.
type Attendee struct {
	Email          string `json:"email"`
	DisplayName    string `json:"displayName,omitempty"`
	ResponseStatus string `json:"responseStatus,omitempty"`
	Optional       bool   `json:"optional,omitempty"`
	Organizer      bool   `json:"organizer,omitempty"`
	// Self marks the attendee entry of the authenticated user.
	Self bool `json:"self,omitempty"`
}

// Event is a calendar entry. All-day events start and end at local midnight;
// End is exclusive.
type Event struct {
	ID          string     `json:"id"`
	CalendarID  string     `json:"calendarId"`
	Summary     string     `json:"summary"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	Start       time.Time  `json:"start"`
	End         time.Time  `json:"end"`
	AllDay      bool       `json:"allDay"`
	TimeZone    string     `json:"timeZone,omitempty"`
	Attendees   []Attendee `json:"attendees,omitempty"`
	Recurrence  []string   `json:"recurrence,omitempty"`
	Status      string     `json:"status,omitempty"`
	HTMLLink    string     `json:"htmlLink,omitempty"`
	Organizer   string     `json:"organizer,omitempty"`
	MeetLink    string     `json:"meetLink,omitempty"`
	EventType   string     `json:"eventType,omitempty"`
}

func (e *Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

func (e *Event) IsAllDay() bool {
	return e.AllDay
}

// IsHappeningNow reports whether now falls in [Start, End).
func (e *Event) IsHappeningNow(now time.Time) bool {
	return e.Slot().Contains(now)
}

// Slot returns the time the event occupies.
func (e *Event) Slot() TimeSlot {
	return TimeSlot{Start: e.Start, End: e.End}
}

// ConflictsWith reports whether the events overlap. Back-to-back events
// do not conflict.
func (e *Event) ConflictsWith(other *Event) bool {
	return e.Slot().Overlaps(other.Slot())
}

// HasAttendee reports whether email is invited, compared case-insensitively.
func (e *Event) HasAttendee(email string) bool {
	for _, a := range e.Attendees {
		if strings.EqualFold(a.Email, email) {
			return true
		}
	}
	return false
}

// SelfAttendee returns the authenticated user's attendee entry, if invited.
func (e *Event) SelfAttendee() (Attendee, bool) {
	for _, a := range e.Attendees {
		if a.Self {
			return a, true
		}
	}
	return Attendee{}, false
}

// TimeSlot is the half-open interval [Start, End).
type TimeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (s TimeSlot) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Overlaps reports whether the slots share any instant. Touching slots do
// not overlap.
func (s TimeSlot) Overlaps(o TimeSlot) bool {
	return s.Start.Before(o.End) && o.Start.Before(s.End)
}

// Contains reports whether t falls in [Start, End).
func (s TimeSlot) Contains(t time.Time) bool {
	return !t.Before(s.Start) && t.Before(s.End)
}

// ContainsSlot reports whether o lies entirely within s.
func (s TimeSlot) ContainsSlot(o TimeSlot) bool {
	return !o.Start.Before(s.Start) && !o.End.After(s.End)
}

// FreeBusy is the busy time of several calendars within [Start, End).
type FreeBusy struct {
	Start     time.Time             `json:"start"`
	End       time.Time             `json:"end"`
	Calendars map[string][]TimeSlot `json:"calendars"`
	// Errors holds the reason a calendar could not be read, by calendar id.
	Errors map[string]string `json:"errors,omitempty"`
}

// IsTimeFree reports whether no calendar is busy at t.
func (f *FreeBusy) IsTimeFree(t time.Time) bool {
	for _, busy := range f.Calendars {
		for _, b := range busy {
			if b.Contains(t) {
				return false
			}
		}
	}
	return true
}

// IsSlotFree reports whether no calendar is busy during any part of slot.
func (f *FreeBusy) IsSlotFree(slot TimeSlot) bool {
	for _, busy := range f.Calendars {
		for _, b := range busy {
			if b.Overlaps(slot) {
				return false
			}
		}
	}
	return true
}

// Calendar is an entry of the user's calendar list.
type Calendar struct {
	ID          string `json:"id"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	TimeZone    string `json:"timeZone,omitempty"`
	Primary     bool   `json:"primary"`
	// AccessRole is one of owner, writer, reader or freeBusyReader.
	AccessRole string `json:"accessRole"`
}
