package workpool

import (
	"context"
)

// Future is the pending result of a task started with Go.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Go runs fn on p and returns its future. When the task cannot be
// submitted the future completes immediately with the submission error.
func Go[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}

	task := func(ctx context.Context) error {
		v, err := fn(ctx)
		f.value = v
		return err
	}
	err := p.Submit(ctx, task, func(err error) {
		f.err = err
		close(f.done)
	})
	if err != nil {
		f.err = err
		close(f.done)
	}
	return f
}

// Resolved returns a completed future.
func Resolved[T any](v T, err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), value: v, err: err}
	close(f.done)
	return f
}

// Done is closed when the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the result is available or ctx is done. Cancelling ctx
// does not cancel the task.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
