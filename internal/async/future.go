// Package async runs blocking operations in the background and hands back
// futures. Services implement each operation once as a blocking call; their
// async variants wrap that call with Go.
package async

import (
	"context"
	"sync"
)

// Future is the pending result of an operation started with Go.
type Future[T any] struct {
	done   chan struct{}
	cancel context.CancelFunc
	once   sync.Once

	val T
	err error
}

// Go starts fn in a new goroutine. The context passed to fn is cancelled when
// ctx is cancelled, when Cancel is called, or after fn returns.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	ctx, cancel := context.WithCancel(ctx)
	f := &Future[T]{done: make(chan struct{}), cancel: cancel}
	go func() {
		defer close(f.done)
		defer cancel()
		f.val, f.err = fn(ctx)
	}()
	return f
}

// Do is Go for operations without a result value.
func Do(ctx context.Context, fn func(ctx context.Context) error) *Future[struct{}] {
	return Go(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
}

// Await blocks until the operation completes or ctx is done. When ctx ends
// first the operation is cancelled and ctx's error is returned.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		f.Cancel()
		var zero T
		return zero, ctx.Err()
	}
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Cancel aborts the operation. Requests not yet issued are skipped and the
// future resolves with a cancellation error unless it had already completed.
func (f *Future[T]) Cancel() {
	f.once.Do(f.cancel)
}

// AwaitAll waits for every future and returns their values in order. The
// first error in argument order is returned together with the values that
// did complete.
func AwaitAll[T any](ctx context.Context, futures ...*Future[T]) ([]T, error) {
	out := make([]T, len(futures))
	var firstErr error
	for i, f := range futures {
		v, err := f.Await(ctx)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		out[i] = v
	}
	return out, firstErr
}
