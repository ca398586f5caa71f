package gmail

import (
	"context"
	"errors"
	"time"

	"github.com/teemow/workspacekit/internal/apierror"
	"github.com/teemow/workspacekit/internal/async"
	"github.com/teemow/workspacekit/internal/instrumentation"
	"github.com/teemow/workspacekit/internal/provider"
	"github.com/teemow/workspacekit/internal/query"
)

// Query is a message search under construction. Every method returns a new
// Query, so a base query can be extended in several directions. Invalid
// arguments are remembered and reported by the terminal call.
type Query struct {
	svc   *Service
	set   query.Set
	limit int
	err   error
}

// Query starts a message search limited to DefaultLimit results.
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

// dates merges an absolute bound into an existing absolute date range, so
// After and Before can be combined.
func (q *Query) dates(start, end time.Time) *Query {
	if prev, ok := q.set.Get(FieldDate); ok && prev.Range.Rel == query.Absolute {
		if start.IsZero() {
			start = prev.Range.Start
		}
		if end.IsZero() {
			end = prev.Range.End
		}
	}
	return q.with(query.Between(FieldDate, query.Span(start, end)))
}

func (q *Query) size(min, max int64) *Query {
	if prev, ok := q.set.Get(query.FieldSize); ok {
		if min == 0 {
			min = prev.Min
		}
		if max == 0 {
			max = prev.Max
		}
	}
	return q.with(query.Size(min, max))
}

// Limit caps the number of messages returned, 1 to MaxLimit.
func (q *Query) Limit(n int) *Query {
	return q.derive(func(out *Query) error {
		if err := query.Limit(n, MaxLimit); err != nil {
			return err
		}
		out.limit = n
		return nil
	})
}

// Search matches free text anywhere in the message.
func (q *Query) Search(text string) *Query {
	return q.with(query.Contains(FieldText, text, false))
}

// SearchExact matches text as a phrase.
func (q *Query) SearchExact(text string) *Query {
	return q.with(query.Contains(FieldText, text, true))
}

func (q *Query) From(addr string) *Query    { return q.with(query.Equals(FieldFrom, addr)) }
func (q *Query) To(addr string) *Query      { return q.with(query.Equals(FieldTo, addr)) }
func (q *Query) Cc(addr string) *Query      { return q.with(query.Equals(FieldCc, addr)) }
func (q *Query) Bcc(addr string) *Query     { return q.with(query.Equals(FieldBcc, addr)) }
func (q *Query) Subject(text string) *Query { return q.with(query.Equals(FieldSubject, text)) }

// Filename matches attachment names or extensions, e.g. "pdf".
func (q *Query) Filename(name string) *Query { return q.with(query.Equals(FieldFilename, name)) }

// MailingList matches messages sent through the given list address.
func (q *Query) MailingList(addr string) *Query { return q.with(query.Equals(FieldList, addr)) }

func (q *Query) WithAttachments() *Query    { return q.with(query.Flag(FieldAttachment, true)) }
func (q *Query) WithoutAttachments() *Query { return q.with(query.Flag(FieldAttachment, false)) }
func (q *Query) Unread() *Query             { return q.with(query.Flag(FieldUnread, true)) }
func (q *Query) Read() *Query               { return q.with(query.Flag(FieldUnread, false)) }
func (q *Query) Starred() *Query            { return q.with(query.Flag(FieldStarred, true)) }
func (q *Query) Important() *Query          { return q.with(query.Flag(FieldImportant, true)) }
func (q *Query) IncludeSpamTrash() *Query   { return q.with(query.Flag(FieldSpamTrash, true)) }

// InFolder restricts to a system location such as "inbox", "sent" or "trash".
func (q *Query) InFolder(name string) *Query { return q.with(query.Equals(FieldFolder, name)) }

// WithLabel requires a label by name. Repeated calls require every label.
func (q *Query) WithLabel(name string) *Query { return q.append(query.Equals(FieldLabel, name)) }

// WithLabelID requires a label by id, filtered by the provider outside the
// search string.
func (q *Query) WithLabelID(id string) *Query { return q.append(query.Equals(FieldLabelID, id)) }

// Between matches messages dated in [start, end).
func (q *Query) Between(start, end time.Time) *Query {
	return q.with(query.Between(FieldDate, query.Span(start, end)))
}

func (q *Query) After(t time.Time) *Query  { return q.dates(t, time.Time{}) }
func (q *Query) Before(t time.Time) *Query { return q.dates(time.Time{}, t) }

func (q *Query) Today() *Query     { return q.with(query.Between(FieldDate, query.Today())) }
func (q *Query) Yesterday() *Query { return q.with(query.Between(FieldDate, query.Yesterday())) }
func (q *Query) ThisWeek() *Query  { return q.with(query.Between(FieldDate, query.ThisWeek())) }
func (q *Query) ThisMonth() *Query { return q.with(query.Between(FieldDate, query.ThisMonth())) }

// LastDays matches today and the n-1 days before it.
func (q *Query) LastDays(n int) *Query { return q.with(query.Between(FieldDate, query.LastDays(n))) }

// LargerThan matches messages strictly larger than bytes.
func (q *Query) LargerThan(bytes int64) *Query { return q.size(bytes, 0) }

// SmallerThan matches messages strictly smaller than bytes.
func (q *Query) SmallerThan(bytes int64) *Query { return q.size(0, bytes) }

// Where adds a raw criterion. Fields Gmail cannot search fail at execution
// with an UnsupportedCriterion error.
func (q *Query) Where(c query.Criterion) *Query { return q.with(c) }

// Criteria returns the accumulated criteria.
func (q *Query) Criteria() query.Set { return q.set }

// Compile renders the query without executing it.
func (q *Query) Compile() (Native, error) {
	if q.err != nil {
		return Native{}, q.err
	}
	return Compile(q.set, q.svc.env)
}

func (q *Query) options() (ListOptions, error) {
	n, err := q.Compile()
	if err != nil {
		return ListOptions{}, err
	}
	return ListOptions{Query: n.Q, LabelIDs: n.LabelIDs, IncludeSpamTrash: n.IncludeSpamTrash, Max: q.limit}, nil
}

func (q *Query) track(ctx context.Context, terminal string, opts ListOptions) (context.Context, func(error)) {
	return instrumentation.TrackQuery(ctx, q.svc.metrics, provider.ServiceGmail, terminal, opts.Query)
}

// Execute returns the matching messages, newest first.
func (q *Query) Execute(ctx context.Context) (msgs []*Message, err error) {
	opts, err := q.options()
	if err != nil {
		return nil, err
	}
	ctx, done := q.track(ctx, "execute", opts)
	defer func() { done(err) }()

	return q.svc.ListMessages(ctx, opts)
}

// Count returns the number of matches up to the limit without fetching
// message bodies.
func (q *Query) Count(ctx context.Context) (n int, err error) {
	opts, err := q.options()
	if err != nil {
		return 0, err
	}
	ctx, done := q.track(ctx, "count", opts)
	defer func() { done(err) }()

	refs, err := q.svc.listRefs(ctx, opts, true)
	return len(refs), err
}

// First returns the newest match, or nil when nothing matches.
func (q *Query) First(ctx context.Context) (*Message, error) {
	msgs, err := q.Limit(1).Execute(ctx)
	if err != nil || len(msgs) == 0 {
		return nil, err
	}
	return msgs[0], nil
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

	refs, err := q.svc.listRefs(ctx, opts, true)
	return len(refs) > 0, err
}

// Threads groups the matching messages by thread and returns the complete
// threads in the order their first match was listed.
func (q *Query) Threads(ctx context.Context) (threads []*Thread, err error) {
	opts, err := q.options()
	if err != nil {
		return nil, err
	}
	ctx, done := q.track(ctx, "threads", opts)
	defer func() { done(err) }()

	refs, err := q.svc.listRefs(ctx, opts, true)
	if err != nil {
		return nil, err
	}
	res, err := q.svc.BatchGetThreads(ctx, groupThreadIDs(refs))
	if err != nil {
		return nil, err
	}
	for _, it := range res.Items {
		if it.Err != nil {
			if errors.Is(it.Err, apierror.ErrNotFound) {
				continue
			}
			return nil, it.Err
		}
		threads = append(threads, it.Value)
	}
	return threads, nil
}

// Async returns the same query with terminals that run in the background on
// the concurrent façade.
func (q *Query) Async() *AsyncQuery {
	c := *q
	c.svc = q.svc.Async().svc
	return &AsyncQuery{q: &c}
}

// AsyncQuery exposes the terminals of a Query as futures.
type AsyncQuery struct {
	q *Query
}

func (a *AsyncQuery) Execute(ctx context.Context) *async.Future[[]*Message] {
	return async.Go(ctx, a.q.Execute)
}

func (a *AsyncQuery) Count(ctx context.Context) *async.Future[int] {
	return async.Go(ctx, a.q.Count)
}

func (a *AsyncQuery) First(ctx context.Context) *async.Future[*Message] {
	return async.Go(ctx, a.q.First)
}

func (a *AsyncQuery) Exists(ctx context.Context) *async.Future[bool] {
	return async.Go(ctx, a.q.Exists)
}

func (a *AsyncQuery) Threads(ctx context.Context) *async.Future[[]*Thread] {
	return async.Go(ctx, a.q.Threads)
}
