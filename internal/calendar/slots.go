package calendar

import (
	"context"
	"net/http"
	"slices"
	"time"

	calendar "google.golang.org/api/calendar/v3"

	"github.com/teemow/workspacekit/internal/apierror"
	"github.com/teemow/workspacekit/internal/provider"
)

const (
	maxFreeBusyCalendars = 50
	maxFreeBusyWindow    = 90 * 24 * time.Hour
)

// FreeBusyRequest asks for the busy time of calendars in [Start, End).
type FreeBusyRequest struct {
	Start time.Time
	End   time.Time
	// CalendarIDs defaults to the primary calendar.
	CalendarIDs []string
}

func (r FreeBusyRequest) validate() error {
	switch {
	case r.Start.IsZero() || r.End.IsZero():
		return apierror.Invalid("free/busy window needs a start and an end")
	case !r.Start.Before(r.End):
		return apierror.Invalid("free/busy start must be before end")
	case r.End.Sub(r.Start) > maxFreeBusyWindow:
		return apierror.Invalid("free/busy window exceeds 90 days")
	case len(r.CalendarIDs) > maxFreeBusyCalendars:
		return apierror.Invalid("free/busy accepts at most %d calendars, got %d", maxFreeBusyCalendars, len(r.CalendarIDs))
	}
	return nil
}

func (r FreeBusyRequest) calendars() []string {
	if len(r.CalendarIDs) == 0 {
		return []string{PrimaryCalendar}
	}
	return r.CalendarIDs
}

// FreeBusy returns the busy intervals of each requested calendar. Calendars
// the provider could not read are listed in Errors instead.
func (s *Service) FreeBusy(ctx context.Context, req FreeBusyRequest) (*FreeBusy, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	body := &calendar.FreeBusyRequest{
		TimeMin: req.Start.Format(time.RFC3339),
		TimeMax: req.End.Format(time.RFC3339),
	}
	for _, id := range req.calendars() {
		body.Items = append(body.Items, &calendar.FreeBusyRequestItem{Id: id})
	}

	var resp calendar.FreeBusyResponse
	if err := s.do(ctx, "freebusy.query", http.MethodPost, "freeBusy", "", nil, body, &resp); err != nil {
		return nil, err
	}

	loc := s.env.Loc()
	fb := &FreeBusy{
		Start:     req.Start.In(loc),
		End:       req.End.In(loc),
		Calendars: make(map[string][]TimeSlot, len(resp.Calendars)),
	}
	for id, cal := range resp.Calendars {
		if len(cal.Errors) > 0 {
			if fb.Errors == nil {
				fb.Errors = map[string]string{}
			}
			fb.Errors[id] = cal.Errors[0].Reason
			continue
		}
		slots := make([]TimeSlot, 0, len(cal.Busy))
		for _, b := range cal.Busy {
			start, err1 := time.Parse(time.RFC3339, b.Start)
			end, err2 := time.Parse(time.RFC3339, b.End)
			if err1 != nil || err2 != nil {
				continue
			}
			slots = append(slots, TimeSlot{Start: start.In(loc), End: end.In(loc)})
		}
		fb.Calendars[id] = slots
	}
	return fb, nil
}

// FreeSlotRequest asks for gaps of at least Duration common to all calendars.
type FreeSlotRequest struct {
	Start       time.Time
	End         time.Time
	Duration    time.Duration
	CalendarIDs []string
	// Split cuts each gap into consecutive slots of exactly Duration.
	Split bool
}

// FindFreeSlots returns the free time in [Start, End) when none of the
// calendars is busy, oldest first. Gaps shorter than Duration are dropped.
// A calendar that cannot be read, or that the response leaves out, fails
// the call since its busy time is unknown.
func (s *Service) FindFreeSlots(ctx context.Context, req FreeSlotRequest) ([]TimeSlot, error) {
	if req.Duration <= 0 {
		return nil, apierror.Invalid("slot duration must be positive")
	}
	fbReq := FreeBusyRequest{Start: req.Start, End: req.End, CalendarIDs: req.CalendarIDs}
	fb, err := s.FreeBusy(ctx, fbReq)
	if err != nil {
		return nil, err
	}
	for _, id := range fbReq.calendars() {
		reason, ok := fb.Errors[id]
		if !ok {
			if _, found := fb.Calendars[id]; found {
				continue
			}
			return nil, &apierror.Error{
				Kind:    apierror.KindPermanent,
				Service: provider.ServiceCalendar,
				Op:      "freebusy.query",
				ID:      id,
				Message: "calendar missing from free/busy response",
			}
		}
		if reason == "notFound" {
			return nil, apierror.NotFound(provider.ServiceCalendar, "freebusy.query", id)
		}
		return nil, &apierror.Error{
			Kind:    apierror.KindPermissionDenied,
			Service: provider.ServiceCalendar,
			Op:      "freebusy.query",
			ID:      id,
			Message: "cannot read free/busy: " + reason,
		}
	}

	var busy []TimeSlot
	for _, slots := range fb.Calendars {
		busy = append(busy, slots...)
	}
	window := TimeSlot{Start: fb.Start, End: fb.End}
	return freeSlots(window, busy, req.Duration, req.Split), nil
}

// freeSlots returns the complement of busy within window, keeping gaps of at
// least d.
func freeSlots(window TimeSlot, busy []TimeSlot, d time.Duration, split bool) []TimeSlot {
	var free []TimeSlot
	emit := func(gap TimeSlot) {
		if gap.Duration() < d {
			return
		}
		if !split {
			free = append(free, gap)
			return
		}
		for t := gap.Start; !t.Add(d).After(gap.End); t = t.Add(d) {
			free = append(free, TimeSlot{Start: t, End: t.Add(d)})
		}
	}

	cursor := window.Start
	for _, b := range mergeSlots(clip(busy, window)) {
		if b.Start.After(cursor) {
			emit(TimeSlot{Start: cursor, End: b.Start})
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
	}
	if cursor.Before(window.End) {
		emit(TimeSlot{Start: cursor, End: window.End})
	}
	return free
}

// clip drops slots outside window and trims the rest to it.
func clip(slots []TimeSlot, window TimeSlot) []TimeSlot {
	out := make([]TimeSlot, 0, len(slots))
	for _, s := range slots {
		if !s.Overlaps(window) {
			continue
		}
		if s.Start.Before(window.Start) {
			s.Start = window.Start
		}
		if s.End.After(window.End) {
			s.End = window.End
		}
		out = append(out, s)
	}
	return out
}

// mergeSlots sorts slots and joins overlapping or touching ones.
func mergeSlots(slots []TimeSlot) []TimeSlot {
	if len(slots) == 0 {
		return nil
	}
	sorted := slices.Clone(slots)
	slices.SortFunc(sorted, func(a, b TimeSlot) int { return a.Start.Compare(b.Start) })

	merged := []TimeSlot{sorted[0]}
	for _, s := range sorted[1:] {
		last := &merged[len(merged)-1]
		if s.Start.After(last.End) {
			merged = append(merged, s)
			continue
		}
		if s.End.After(last.End) {
			last.End = s.End
		}
	}
	return merged
}
