package drive

import (
	"context"
	"time"

	"github.com/teemow/workspacekit/internal/async"
	"github.com/teemow/workspacekit/internal/instrumentation"
	"github.com/teemow/workspacekit/internal/provider"
	"github.com/teemow/workspacekit/internal/query"
)

// Query is an item search under construction. Every method returns a new
// Query; invalid arguments are reported by the terminal call.
type Query struct {
	svc     *Service
	set     query.Set
	limit   int
	orderBy string
	err     error
}

// Query starts an item search limited to DefaultLimit results.
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

func (q *Query) append(c query.Criterion) *Query {
	return q.derive(func(out *Query) error {
		if err := c.Validate(); err != nil {
			return err
		}
		out.set = out.set.Append(c)
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

// Limit caps the number of items returned, 1 to MaxLimit.
func (q *Query) Limit(n int) *Query {
	return q.derive(func(out *Query) error {
		if err := query.Limit(n, MaxLimit); err != nil {
			return err
		}
		out.limit = n
		return nil
	})
}

// OrderBy sorts the results, e.g. "folder,modifiedTime desc".
func (q *Query) OrderBy(spec string) *Query {
	return q.derive(func(out *Query) error {
		if err := validateOrderBy(spec); err != nil {
			return err
		}
		out.orderBy = spec
		return nil
	})
}

func (q *Query) NameContains(text string) *Query {
	return q.with(query.Contains(FieldName, text, false))
}

func (q *Query) NameIs(name string) *Query { return q.with(query.Equals(FieldName, name)) }

// Search matches text in names, descriptions and indexed content.
func (q *Query) Search(text string) *Query {
	return q.with(query.Contains(FieldText, text, false))
}

func (q *Query) MimeType(mimeType string) *Query { return q.with(query.Equals(FieldMime, mimeType)) }
func (q *Query) FoldersOnly() *Query             { return q.with(query.Flag(FieldFolder, true)) }
func (q *Query) FilesOnly() *Query               { return q.with(query.Flag(FieldFolder, false)) }

// InFolder restricts to direct children of folderID. Repeated calls match
// children of any of the folders.
func (q *Query) InFolder(folderID string) *Query { return q.append(query.Equals(FieldParent, folderID)) }

func (q *Query) OwnedBy(email string) *Query    { return q.with(query.Equals(FieldOwner, email)) }
func (q *Query) WritableBy(email string) *Query { return q.with(query.Equals(FieldWriter, email)) }
func (q *Query) ReadableBy(email string) *Query { return q.with(query.Equals(FieldReader, email)) }
func (q *Query) SharedWithMe() *Query           { return q.with(query.Flag(FieldSharedWithMe, true)) }
func (q *Query) Starred() *Query                { return q.with(query.Flag(FieldStarred, true)) }

// Trashed searches the trash instead of excluding it.
func (q *Query) Trashed() *Query { return q.with(query.Flag(FieldTrashed, true)) }

// ModifiedBetween matches items last modified in [start, end).
func (q *Query) ModifiedBetween(start, end time.Time) *Query {
	return q.with(query.Between(FieldModified, query.Span(start, end)))
}

func (q *Query) ModifiedAfter(t time.Time) *Query  { return q.bound(FieldModified, t, time.Time{}) }
func (q *Query) ModifiedBefore(t time.Time) *Query { return q.bound(FieldModified, time.Time{}, t) }
func (q *Query) ModifiedToday() *Query             { return q.with(query.Between(FieldModified, query.Today())) }

// ModifiedLastDays matches items modified today or in the n-1 days before.
func (q *Query) ModifiedLastDays(n int) *Query {
	return q.with(query.Between(FieldModified, query.LastDays(n)))
}

// CreatedBetween matches items created in [start, end).
func (q *Query) CreatedBetween(start, end time.Time) *Query {
	return q.with(query.Between(FieldCreated, query.Span(start, end)))
}

// Where adds a raw criterion.
func (q *Query) Where(c query.Criterion) *Query { return q.with(c) }

func (q *Query) Criteria() query.Set { return q.set }

// Compile renders the query without executing it.
func (q *Query) Compile() (Native, error) {
	if q.err != nil {
		return Native{}, q.err
	}
	n, err := Compile(q.set, q.svc.env)
	if err != nil {
		return Native{}, err
	}
	n.OrderBy = q.orderBy
	return n, nil
}

func (q *Query) options() (ListOptions, error) {
	n, err := q.Compile()
	if err != nil {
		return ListOptions{}, err
	}
	return ListOptions{Query: n.Q, OrderBy: n.OrderBy, Max: q.limit}, nil
}

func (q *Query) track(ctx context.Context, terminal string, opts ListOptions) (context.Context, func(error)) {
	return instrumentation.TrackQuery(ctx, q.svc.metrics, provider.ServiceDrive, terminal, opts.Query)
}

// Execute returns the matching items.
func (q *Query) Execute(ctx context.Context) (items []*Item, err error) {
	opts, err := q.options()
	if err != nil {
		return nil, err
	}
	ctx, done := q.track(ctx, "execute", opts)
	defer func() { done(err) }()

	return q.svc.ListItems(ctx, opts)
}

// Count returns the number of matches up to the limit, listing ids only.
func (q *Query) Count(ctx context.Context) (n int, err error) {
	opts, err := q.options()
	if err != nil {
		return 0, err
	}
	ctx, done := q.track(ctx, "count", opts)
	defer func() { done(err) }()

	files, err := q.svc.listFiles(ctx, opts, listIDFields)
	return len(files), err
}

// First returns the first match, or nil when nothing matches.
func (q *Query) First(ctx context.Context) (*Item, error) {
	items, err := q.Limit(1).Execute(ctx)
	if err != nil || len(items) == 0 {
		return nil, err
	}
	return items[0], nil
}

// Exists reports whether anything matches, reading a single id.
func (q *Query) Exists(ctx context.Context) (ok bool, err error) {
	opts, err := q.options()
	if err != nil {
		return false, err
	}
	opts.Max = 1
	ctx, done := q.track(ctx, "exists", opts)
	defer func() { done(err) }()

	files, err := q.svc.listFiles(ctx, opts, listIDFields)
	return len(files) > 0, err
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

func (a *AsyncQuery) Execute(ctx context.Context) *async.Future[[]*Item] {
	return async.Go(ctx, a.q.Execute)
}

func (a *AsyncQuery) Count(ctx context.Context) *async.Future[int] {
	return async.Go(ctx, a.q.Count)
}

func (a *AsyncQuery) First(ctx context.Context) *async.Future[*Item] {
	return async.Go(ctx, a.q.First)
}

func (a *AsyncQuery) Exists(ctx context.Context) *async.Future[bool] {
	return async.Go(ctx, a.q.Exists)
}
