package calendar

import (
	"context"
	"time"

	"github.com/teemow/workspacekit/internal/async"
	"github.com/teemow/workspacekit/internal/batch"
	"github.com/teemow/workspacekit/internal/instrumentation"
	"github.com/teemow/workspacekit/internal/provider"
	"github.com/teemow/workspacekit/internal/query"
)

// Query is an event search under construction. Every method returns a new
// Query; invalid arguments are reported by the terminal call.
type Query struct {
	svc        *Service
	set        query.Set
	limit      int
	calendarID string
	err        error
}

// Query starts an event search in the primary calendar limited to
// DefaultLimit results.
func (s *Service) Query() *Query {
	return &Query{svc: s, limit: DefaultLimit}
}

func (q *Query) derive(fn func(*Query) error) *Query {
	out := *q
	if out.err == nil {
		out.err = fn(&out)
	}
	return &out
}

func (q *Query) with(c query.Criterion) *Query {
	return q.derive(func(out *Query) error {
		if err := c.Validate(); err != nil {
			return err
		}
		out.set = out.set.With(c)
		return nil
	})
}

func (q *Query) Limit(n int) *Query {
	return q.derive(func(out *Query) error {
		if err := query.Limit(n, MaxLimit); err != nil {
			return err
		}
		out.limit = n
		return nil
	})
}

func (q *Query) InCalendar(id string) *Query {
	return q.derive(func(out *Query) error {
		if err := requireID("calendar", id); err != nil {
			return err
		}
		out.calendarID = id
		return nil
	})
}

// Search matches text in summaries, descriptions, locations and attendees.
func (q *Query) Search(text string) *Query {
	return q.with(query.Contains(FieldText, text, false))
}

// Between matches events overlapping [start, end).
func (q *Query) Between(start, end time.Time) *Query {
	return q.with(query.Between(FieldStart, query.Span(start, end)))
}

// From keeps events ending after t, merged with an earlier To.
func (q *Query) From(t time.Time) *Query { return q.bound(t, time.Time{}) }

// To keeps events starting before t, merged with an earlier From.
func (q *Query) To(t time.Time) *Query { return q.bound(time.Time{}, t) }

func (q *Query) bound(start, end time.Time) *Query {
	if prev, ok := q.set.Get(FieldStart); ok && prev.Range.Rel == query.Absolute {
		if start.IsZero() {
			start = prev.Range.Start
		}
		if end.IsZero() {
			end = prev.Range.End
		}
	}
	return q.with(query.Between(FieldStart, query.Span(start, end)))
}

func (q *Query) Today() *Query     { return q.with(query.Between(FieldStart, query.Today())) }
func (q *Query) Tomorrow() *Query  { return q.with(query.Between(FieldStart, query.Tomorrow())) }
func (q *Query) ThisWeek() *Query  { return q.with(query.Between(FieldStart, query.ThisWeek())) }
func (q *Query) NextWeek() *Query  { return q.with(query.Between(FieldStart, query.NextWeek())) }
func (q *Query) ThisMonth() *Query { return q.with(query.Between(FieldStart, query.ThisMonth())) }

// NextDays covers today and the n-1 following days.
func (q *Query) NextDays(n int) *Query { return q.with(query.Between(FieldStart, query.NextDays(n))) }

// LastDays covers today and the n-1 preceding days.
func (q *Query) LastDays(n int) *Query { return q.with(query.Between(FieldStart, query.LastDays(n))) }

// ByAttendee keeps events inviting email. Repeated calls require every
// address.
func (q *Query) ByAttendee(email string) *Query {
	return q.derive(func(out *Query) error {
		c := query.Equals(FieldAttendee, email)
		if err := c.Validate(); err != nil {
			return err
		}
		out.set = out.set.Append(c)
		return nil
	})
}

func (q *Query) WithLocation() *Query    { return q.with(query.Flag(FieldLocation, true)) }
func (q *Query) WithoutLocation() *Query { return q.with(query.Flag(FieldLocation, false)) }

// AtLocation keeps events whose location contains text, ignoring case.
func (q *Query) AtLocation(text string) *Query {
	return q.with(query.Contains(FieldLocation, text, false))
}

// ShowDeleted includes cancelled events.
func (q *Query) ShowDeleted() *Query { return q.with(query.Flag(FieldDeleted, true)) }

// Where adds a raw criterion.
func (q *Query) Where(c query.Criterion) *Query { return q.with(c) }

func (q *Query) Criteria() query.Set { return q.set }

// Compile renders the query without executing it.
func (q *Query) Compile() (Native, error) {
	if q.err != nil {
		return Native{}, q.err
	}
	return Compile(q.set, q.svc.env)
}

func (q *Query) track(ctx context.Context, terminal string, n Native) (context.Context, func(error)) {
	return instrumentation.TrackQuery(ctx, q.svc.metrics, provider.ServiceCalendar, terminal, n.Params.Encode())
}

func (q *Query) countFields(n Native) string {
	if n.filtered() {
		return listFilterFields
	}
	return listIDFields
}

// Execute returns the matching events ordered by start time.
func (q *Query) Execute(ctx context.Context) (events []*Event, err error) {
	n, err := q.Compile()
	if err != nil {
		return nil, err
	}
	ctx, done := q.track(ctx, "execute", n)
	defer func() { done(err) }()

	return q.svc.listEvents(ctx, q.calendarID, n, q.limit)
}

// Count returns the number of matches up to the limit, listing ids only.
func (q *Query) Count(ctx context.Context) (count int, err error) {
	n, err := q.Compile()
	if err != nil {
		return 0, err
	}
	ctx, done := q.track(ctx, "count", n)
	defer func() { done(err) }()

	items, err := q.svc.listRaw(ctx, q.calendarID, n, q.limit, q.countFields(n))
	return len(items), err
}

// First returns the earliest match, or nil when nothing matches.
func (q *Query) First(ctx context.Context) (*Event, error) {
	events, err := q.Limit(1).Execute(ctx)
	if err != nil || len(events) == 0 {
		return nil, err
	}
	return events[0], nil
}

// Exists reports whether anything matches.
func (q *Query) Exists(ctx context.Context) (ok bool, err error) {
	n, err := q.Compile()
	if err != nil {
		return false, err
	}
	ctx, done := q.track(ctx, "exists", n)
	defer func() { done(err) }()

	items, err := q.svc.listRaw(ctx, q.calendarID, n, 1, q.countFields(n))
	return len(items) > 0, err
}

// ExecuteCalendars runs the query against each calendar. Results are in
// input order, one event list per calendar.
func (q *Query) ExecuteCalendars(ctx context.Context, calendarIDs []string) (batch.Results[[]*Event], error) {
	if _, err := q.Compile(); err != nil {
		return batch.Results[[]*Event]{}, err
	}
	return batch.Run(ctx, q.svc.batchOptions("events.listMany"), calendarIDs, func(ctx context.Context, _ int, id string) ([]*Event, error) {
		return q.InCalendar(id).Execute(ctx)
	})
}

// Async returns the same query with terminals returning futures.
func (q *Query) Async() *AsyncQuery {
	c := *q
	c.svc = q.svc.Async().svc
	return &AsyncQuery{q: &c}
}

// AsyncQuery exposes the terminals of a Query as futures.
type AsyncQuery struct {
	q *Query
}

func (a *AsyncQuery) Execute(ctx context.Context) *async.Future[[]*Event] {
	return async.Go(ctx, a.q.Execute)
}

func (a *AsyncQuery) Count(ctx context.Context) *async.Future[int] {
	return async.Go(ctx, a.q.Count)
}

func (a *AsyncQuery) First(ctx context.Context) *async.Future[*Event] {
	return async.Go(ctx, a.q.First)
}

func (a *AsyncQuery) Exists(ctx context.Context) *async.Future[bool] {
	return async.Go(ctx, a.q.Exists)
}

func (a *AsyncQuery) ExecuteCalendars(ctx context.Context, calendarIDs []string) *async.Future[batch.Results[[]*Event]] {
	return async.Go(ctx, func(ctx context.Context) (batch.Results[[]*Event], error) {
		return a.q.ExecuteCalendars(ctx, calendarIDs)
	})
}
