package raypool

import (
	"context"
	"sync"
)

// Future is the awaitable result of work dispatched with RunNotify.
// It settles exactly once, with either a value or an error.
type Future[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// resolve settles the future with v. Later calls are ignored.
func (f *Future[T]) resolve(v T) {
	f.once.Do(func() {
		f.value = v
		close(f.done)
	})
}

// reject settles the future with err. Later calls are ignored.
func (f *Future[T]) reject(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Done returns a channel that is closed once the future has settled.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Ready reports whether the future has settled.
func (f *Future[T]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Await blocks until the future settles or ctx is done. Cancelling ctx
// abandons the wait only; the underlying work keeps running.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// thenFuture returns a future settled with fn applied to f's value, or with
// f's error if f is rejected.
func thenFuture[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	out := newFuture[U]()
	go func() {
		<-f.done
		if f.err != nil {
			out.reject(f.err)
			return
		}
		u, err := fn(f.value)
		if err != nil {
			out.reject(err)
			return
		}
		out.resolve(u)
	}()
	return out
}
