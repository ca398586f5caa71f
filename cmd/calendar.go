package cmd

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/workspacekit/internal/calendar"
	"github.com/teemow/workspacekit/internal/logging"
	"github.com/teemow/workspacekit/internal/query"
)

func newCalendarCmd(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "List events and find free time",
	}
	cmd.AddCommand(newCalendarEventsCmd(st), newCalendarFreeCmd(st), newCalendarListCmd(st))
	return cmd
}

// parseWhen accepts a date or a date with minutes, in loc.
func parseWhen(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q, use YYYY-MM-DD or YYYY-MM-DDTHH:MM", s)
}

func newCalendarEventsCmd(st *state) *cobra.Command {
	var (
		calendars []string
		today     bool
		tomorrow  bool
		week      bool
		nextWeek  bool
		days      int
		search    string
		attendees []string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List events, upcoming week by default",
		Example: `  workspacekit calendar events --today
  workspacekit calendar events --days 14 --attendee bob@example.com
  workspacekit calendar events --calendar primary --calendar team@group.calendar.google.com --week`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := st.open(cmd.Context())
			if err != nil {
				return err
			}

			q := ws.Calendar.Query().Limit(limit)
			switch {
			case today:
				q = q.Today()
			case tomorrow:
				q = q.Tomorrow()
			case week:
				q = q.ThisWeek()
			case nextWeek:
				q = q.NextWeek()
			default:
				q = q.NextDays(days)
			}
			if search != "" {
				q = q.Search(search)
			}
			for _, a := range attendees {
				q = q.ByAttendee(a)
			}

			var events []*calendar.Event
			if len(calendars) <= 1 {
				if len(calendars) == 1 {
					q = q.InCalendar(calendars[0])
				}
				events, err = q.Execute(cmd.Context())
				if err != nil {
					return err
				}
			} else {
				res, err := q.ExecuteCalendars(cmd.Context(), calendars)
				if err != nil {
					return err
				}
				for _, f := range res.Failed() {
					st.logger.Warn("calendar skipped", slog.String("calendar", f.ID), logging.Err(f.Err))
				}
				for _, evs := range res.Values() {
					events = append(events, evs...)
				}
				slices.SortStableFunc(events, func(a, b *calendar.Event) int { return a.Start.Compare(b.Start) })
			}

			rows := make([][]string, 0, len(events))
			for _, e := range events {
				start, end := formatTime(e.Start), formatTime(e.End)
				if e.IsAllDay() {
					start, end = e.Start.Format(time.DateOnly), "all day"
				}
				rows = append(rows, []string{start, end, truncate(e.Summary, 50), truncate(e.Location, 30), e.ID})
			}
			return st.print(cmd, events, []string{"START", "END", "SUMMARY", "LOCATION", "ID"}, rows)
		},
	}

	fl := cmd.Flags()
	fl.StringSliceVar(&calendars, "calendar", nil, "Calendar id, repeatable (default: primary)")
	fl.BoolVar(&today, "today", false, "Events starting today")
	fl.BoolVar(&tomorrow, "tomorrow", false, "Events starting tomorrow")
	fl.BoolVar(&week, "week", false, "Events this week, Monday to Sunday")
	fl.BoolVar(&nextWeek, "next-week", false, "Events next week")
	fl.IntVar(&days, "days", 7, "Events in the next N days, today included")
	fl.StringVarP(&search, "query", "q", "", "Free text search")
	fl.StringSliceVar(&attendees, "attendee", nil, "Attendee address, repeatable; all must attend")
	fl.IntVar(&limit, "limit", calendar.DefaultLimit, "Maximum number of events per calendar")
	cmd.MarkFlagsMutuallyExclusive("today", "tomorrow", "week", "next-week")
	return cmd
}

func newCalendarFreeCmd(st *state) *cobra.Command {
	var (
		calendars []string
		from      string
		to        string
		days      int
		duration  time.Duration
		split     bool
	)

	cmd := &cobra.Command{
		Use:   "free",
		Short: "Find free time across calendars",
		Long: `Find gaps of at least --duration in which none of the calendars is busy.
The window defaults to now until the end of the next --days days.`,
		Example: `  workspacekit calendar free --duration 1h --from 2024-03-13T08:00 --to 2024-03-13T18:00
  workspacekit calendar free --calendar alice@example.com --calendar bob@example.com --days 3 --duration 30m --split`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := st.open(cmd.Context())
			if err != nil {
				return err
			}
			env := ws.Env()
			loc := env.Loc()

			start := env.Time()
			if from != "" {
				if start, err = parseWhen(from, loc); err != nil {
					return err
				}
			}
			end := query.AddDays(query.StartOfDay(start), days)
			if to != "" {
				if end, err = parseWhen(to, loc); err != nil {
					return err
				}
			}

			slots, err := ws.Calendar.FindFreeSlots(cmd.Context(), calendar.FreeSlotRequest{
				Start:       start,
				End:         end,
				Duration:    duration,
				CalendarIDs: calendars,
				Split:       split,
			})
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(slots))
			var total time.Duration
			for _, s := range slots {
				total += s.Duration()
				rows = append(rows, []string{formatTime(s.Start), formatTime(s.End), s.Duration().String()})
			}
			if err := st.print(cmd, slots, []string{"START", "END", "LENGTH"}, rows); err != nil {
				return err
			}
			if st.output == "text" {
				fmt.Fprintf(cmd.OutOrStdout(), "%d slots, %s free in %s\n", len(slots), total, strings.Join(calendars, ", "))
			}
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringSliceVar(&calendars, "calendar", []string{calendar.PrimaryCalendar}, "Calendar id or address, repeatable")
	fl.StringVar(&from, "from", "", "Window start, YYYY-MM-DD or YYYY-MM-DDTHH:MM (default: now)")
	fl.StringVar(&to, "to", "", "Window end (default: midnight after --days)")
	fl.IntVar(&days, "days", 1, "Window length in days when --to is not set")
	fl.DurationVar(&duration, "duration", 30*time.Minute, "Minimum slot length")
	fl.BoolVar(&split, "split", false, "Cut gaps into consecutive slots of exactly --duration")
	return cmd
}

func newCalendarListCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "calendars",
		Short: "List the calendars of the account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := st.open(cmd.Context())
			if err != nil {
				return err
			}
			cals, err := ws.Calendar.ListCalendars(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(cals))
			for _, c := range cals {
				primary := ""
				if c.Primary {
					primary = "*"
				}
				rows = append(rows, []string{primary, truncate(c.Summary, 40), c.ID, c.AccessRole, c.TimeZone})
			}
			return st.print(cmd, cals, []string{"", "SUMMARY", "ID", "ACCESS", "TIME ZONE"}, rows)
		},
	}
}
