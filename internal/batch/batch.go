package batch

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/teemow/workspacekit/internal/apierror"
	"github.com/teemow/workspacekit/internal/instrumentation"
	"github.com/teemow/workspacekit/internal/logging"
)

const (
	// DefaultConcurrency is the in-flight window used by async façades.
	DefaultConcurrency = 10

	// MaxConcurrency caps any configured window.
	MaxConcurrency = 20
)

// Result is the outcome for one input item. Results are positionally aligned
// with the input: Index is the item's input position.
type Result[T any] struct {
	Index int
	ID    string
	Value T
	Err   error
}

// OK reports whether the item succeeded.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Results holds one Result per input item, in input order.
type Results[T any] struct {
	Service string
	Op      string
	Items   []Result[T]
}

// Len returns the number of input items.
func (r Results[T]) Len() int {
	return len(r.Items)
}

// Values returns the successful values in input order.
func (r Results[T]) Values() []T {
	out := make([]T, 0, len(r.Items))
	for _, it := range r.Items {
		if it.OK() {
			out = append(out, it.Value)
		}
	}
	return out
}

// Failed returns the failed items in input order.
func (r Results[T]) Failed() []Result[T] {
	var out []Result[T]
	for _, it := range r.Items {
		if !it.OK() {
			out = append(out, it)
		}
	}
	return out
}

// Successful returns the number of items that succeeded.
func (r Results[T]) Successful() int {
	return len(r.Items) - len(r.Failed())
}

// Err returns nil when every item succeeded, otherwise a *apierror.BatchError
// naming each failed item.
func (r Results[T]) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}
	be := &apierror.BatchError{Service: r.Service, Op: r.Op, Total: len(r.Items)}
	for _, f := range failed {
		be.Failures = append(be.Failures, apierror.Failure{Index: f.Index, ID: f.ID, Err: f.Err})
	}
	return be
}

// Options configures Run.
type Options struct {
	Service string
	Op      string

	// Limit is the number of items processed concurrently. Values below 1
	// mean sequential processing.
	Limit int

	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// Func processes the item at index i identified by id.
type Func[T any] func(ctx context.Context, i int, id string) (T, error)

// Run calls fn for every id with at most opts.Limit calls in flight. A failing
// item never stops the others. If ctx is cancelled no further items are
// started and Run returns ctx's error instead of partial results.
func Run[T any](ctx context.Context, opts Options, ids []string, fn Func[T]) (Results[T], error) {
	ctx, span := instrumentation.StartBatchSpan(ctx, opts.Service, opts.Op, len(ids))
	defer span.End()

	limit := opts.Limit
	if limit < 1 {
		limit = 1
	}
	if limit > MaxConcurrency {
		limit = MaxConcurrency
	}

	results := Results[T]{Service: opts.Service, Op: opts.Op, Items: make([]Result[T], len(ids))}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, id := range ids {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// Items queued behind the window may find the batch cancelled.
			if ctx.Err() != nil {
				return nil
			}
			v, err := fn(ctx, i, id)
			results.Items[i] = Result[T]{Index: i, ID: id, Value: v, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		instrumentation.SetSpanError(span, err)
		return Results[T]{}, err
	}

	failed := len(results.Failed())
	opts.Metrics.RecordBatch(ctx, opts.Service, opts.Op, len(ids), failed)

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("batch completed",
		logging.Service(opts.Service),
		logging.Operation(opts.Op),
		logging.Count(len(ids)),
		slog.Int("failed", failed))

	if err := results.Err(); err != nil {
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	return results, nil
}

// Summary is a serializable view of Results for command output.
type Summary struct {
	Total      int             `json:"total"`
	Successful int             `json:"successful"`
	Failed     int             `json:"failed"`
	Failures   []FailureReport `json:"failures,omitempty"`
}

// FailureReport describes one failed item.
type FailureReport struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// Summarize builds a Summary of r.
func Summarize[T any](r Results[T]) Summary {
	s := Summary{Total: r.Len()}
	for _, f := range r.Failed() {
		s.Failures = append(s.Failures, FailureReport{
			ID:    f.ID,
			Kind:  apierror.KindOf(f.Err).String(),
			Error: f.Err.Error(),
		})
	}
	s.Failed = len(s.Failures)
	s.Successful = s.Total - s.Failed
	return s
}
