package tasks

import (
	"context"
	"time"

	"cloud.google.com/go/civil"

	"github.com/teemow/workspacekit/internal/async"
	"github.com/teemow/workspacekit/internal/instrumentation"
	"github.com/teemow/workspacekit/internal/provider"
	"github.com/teemow/workspacekit/internal/query"
)

// Query is a task search under construction. Every method returns a new
// Query; invalid arguments are reported by the terminal call.
type Query struct {
	svc    *Service
	set    query.Set
	limit  int
	listID string
	err    error
}

// Query starts a search of the default list limited to DefaultLimit results.
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

// bound merges an absolute bound into an existing absolute range on field.
func (q *Query) bound(field string, start, end time.Time) *Query {
	if prev, ok := q.set.Get(field); ok && prev.Range.Rel == query.Absolute {
		if start.IsZero() {
			start = prev.Range.Start
		}
		if end.IsZero() {
			end = prev.Range.End
		}
	}
	return q.with(query.Between(field, query.Span(start, end)))
}

func (q *Query) midnight(d civil.Date) time.Time {
	return d.In(q.svc.env.Loc())
}

// Limit caps the number of tasks returned, 1 to MaxLimit.
func (q *Query) Limit(n int) *Query {
	return q.derive(func(out *Query) error {
		if err := query.Limit(n, MaxLimit); err != nil {
			return err
		}
		out.limit = n
		return nil
	})
}

func (q *Query) InTaskList(id string) *Query {
	return q.derive(func(out *Query) error {
		if err := requireID("task list", id); err != nil {
			return err
		}
		out.listID = id
		return nil
	})
}

// DueBetween matches tasks due on any date from first to last inclusive.
func (q *Query) DueBetween(first, last civil.Date) *Query {
	return q.with(query.Between(FieldDue, query.Span(q.midnight(first), q.midnight(last.AddDays(1)))))
}

// DueAfter matches tasks due later than d.
func (q *Query) DueAfter(d civil.Date) *Query {
	return q.bound(FieldDue, q.midnight(d.AddDays(1)), time.Time{})
}

// DueBefore matches tasks due earlier than d.
func (q *Query) DueBefore(d civil.Date) *Query {
	return q.bound(FieldDue, time.Time{}, q.midnight(d))
}

func (q *Query) DueToday() *Query    { return q.with(query.Between(FieldDue, query.Today())) }
func (q *Query) DueTomorrow() *Query { return q.with(query.Between(FieldDue, query.Tomorrow())) }
func (q *Query) DueThisWeek() *Query { return q.with(query.Between(FieldDue, query.ThisWeek())) }
func (q *Query) DueNextWeek() *Query { return q.with(query.Between(FieldDue, query.NextWeek())) }

// DueNextDays matches tasks due today or in the n-1 following days.
func (q *Query) DueNextDays(n int) *Query {
	return q.with(query.Between(FieldDue, query.NextDays(n)))
}

// Overdue matches open tasks due before today.
func (q *Query) Overdue() *Query { return q.with(query.Flag(FieldOverdue, true)) }

// CompletedBetween matches tasks completed in [start, end). It includes
// hidden tasks.
func (q *Query) CompletedBetween(start, end time.Time) *Query {
	return q.with(query.Between(FieldCompleted, query.Span(start, end)))
}

func (q *Query) CompletedAfter(t time.Time) *Query  { return q.bound(FieldCompleted, t, time.Time{}) }
func (q *Query) CompletedBefore(t time.Time) *Query { return q.bound(FieldCompleted, time.Time{}, t) }

func (q *Query) CompletedToday() *Query {
	return q.with(query.Between(FieldCompleted, query.Today()))
}

func (q *Query) CompletedThisWeek() *Query {
	return q.with(query.Between(FieldCompleted, query.ThisWeek()))
}

func (q *Query) CompletedLastDays(n int) *Query {
	return q.with(query.Between(FieldCompleted, query.LastDays(n)))
}

// UpdatedSince matches tasks modified at or after t.
func (q *Query) UpdatedSince(t time.Time) *Query {
	return q.with(query.Between(FieldUpdated, query.From(t)))
}

// Pending keeps open tasks only.
func (q *Query) Pending() *Query { return q.with(query.Equals(FieldStatus, StatusNeedsAction)) }

// Done keeps completed tasks only, hidden ones included.
func (q *Query) Done() *Query { return q.with(query.Equals(FieldStatus, StatusCompleted)) }

func (q *Query) ShowCompleted(on bool) *Query { return q.with(query.Flag(FieldShowCompleted, on)) }
func (q *Query) ShowHidden(on bool) *Query    { return q.with(query.Flag(FieldShowHidden, on)) }
func (q *Query) ShowDeleted(on bool) *Query   { return q.with(query.Flag(FieldShowDeleted, on)) }

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
	return instrumentation.TrackQuery(ctx, q.svc.metrics, provider.ServiceTasks, terminal, n.Params.Encode())
}

func countFields(n Native) string {
	if n.filtered() {
		return listFilterFields
	}
	return listIDFields
}

// Execute returns the matching tasks in list position order.
func (q *Query) Execute(ctx context.Context) (result []*Task, err error) {
	n, err := q.Compile()
	if err != nil {
		return nil, err
	}
	ctx, done := q.track(ctx, "execute", n)
	defer func() { done(err) }()

	return q.svc.listTasks(ctx, q.listID, n, q.limit)
}

// Count returns the number of matches up to the limit, listing ids only.
func (q *Query) Count(ctx context.Context) (count int, err error) {
	n, err := q.Compile()
	if err != nil {
		return 0, err
	}
	ctx, done := q.track(ctx, "count", n)
	defer func() { done(err) }()

	items, err := q.svc.listRaw(ctx, q.listID, n, q.limit, countFields(n))
	return len(items), err
}

// First returns the first match, or nil when nothing matches.
func (q *Query) First(ctx context.Context) (*Task, error) {
	found, err := q.Limit(1).Execute(ctx)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return found[0], nil
}

// Exists reports whether anything matches.
func (q *Query) Exists(ctx context.Context) (ok bool, err error) {
	n, err := q.Compile()
	if err != nil {
		return false, err
	}
	ctx, done := q.track(ctx, "exists", n)
	defer func() { done(err) }()

	items, err := q.svc.listRaw(ctx, q.listID, n, 1, countFields(n))
	return len(items) > 0, err
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

func (a *AsyncQuery) Execute(ctx context.Context) *async.Future[[]*Task] {
	return async.Go(ctx, a.q.Execute)
}

func (a *AsyncQuery) Count(ctx context.Context) *async.Future[int] {
	return async.Go(ctx, a.q.Count)
}

func (a *AsyncQuery) First(ctx context.Context) *async.Future[*Task] {
	return async.Go(ctx, a.q.First)
}

func (a *AsyncQuery) Exists(ctx context.Context) *async.Future[bool] {
	return async.Go(ctx, a.q.Exists)
}
