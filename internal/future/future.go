// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package future

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrFutureTimeout is returned when the future times out
var ErrFutureTimeout = errors.New("future timeout")

// Result defines the future result
type Result[T any] interface {
	// Success returns the successful result of the future
	Success() T
	// Failure returns the error
	Failure() error
}

type result[T any] struct {
	success T
	failure error
}

// Success returns the successful result of the future
func (x *result[T]) Success() T {
	return x.success
}

// Failure returns the error
func (x *result[T]) Failure() error {
	return x.failure
}

// Future is the read side of an asynchronous computation.
// Nobody is required to wait on a Future: an abandoned Future never blocks
// the computation that completes it.
type Future[T any] interface {
	// Await returns the result within an expected time period or the context is cancelled
	Await(deadline time.Duration) Result[T]
	// AwaitUninterruptible waits till the future is completed or the context is cancelled
	AwaitUninterruptible() Result[T]
	// Done is closed once the result is available
	Done() <-chan struct{}
	// Cancel releases the waiters of the future. The computation itself is not interrupted
	// unless it honours the context handed to it by New.
	Cancel()
}

type future[T any] struct {
	result *result[T]
	done   chan struct{}
	once   sync.Once
	ctx    context.Context
	cancel context.CancelFunc
}

var _ Future[struct{}] = (*future[struct{}])(nil)

func newFuture[T any](ctx context.Context) *future[T] {
	f := &future[T]{done: make(chan struct{})}
	f.ctx, f.cancel = context.WithCancel(ctx)
	return f
}

// New creates an instance of Future that runs fn on its own goroutine
func New[T any](ctx context.Context, fn func(context.Context) (T, error)) Future[T] {
	f := newFuture[T](ctx)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				f.complete(zero, fmt.Errorf("failed: %v", r))
			}
		}()

		success, err := fn(f.ctx)
		f.complete(success, err)
	}()

	return f
}

// Completed returns an already completed Future
func Completed[T any](success T, failure error) Future[T] {
	f := newFuture[T](context.Background())
	f.complete(success, failure)
	return f
}

func (x *future[T]) complete(success T, failure error) {
	x.once.Do(func() {
		x.result = &result[T]{success: success, failure: failure}
		close(x.done)
	})
}

// Await returns the result within an expected time period
func (x *future[T]) Await(deadline time.Duration) Result[T] {
	select {
	case <-x.done:
		return x.result
	default:
	}

	timer := time.NewTimer(deadline)
	defer timer.Stop()

	select {
	case <-x.done:
		return x.result
	case <-timer.C:
		return &result[T]{failure: ErrFutureTimeout}
	case <-x.ctx.Done():
		return &result[T]{failure: x.ctx.Err()}
	}
}

// AwaitUninterruptible awaits till the future is completed
func (x *future[T]) AwaitUninterruptible() Result[T] {
	select {
	case <-x.done:
		return x.result
	case <-x.ctx.Done():
		// completion and cancellation may race
		select {
		case <-x.done:
			return x.result
		default:
			return &result[T]{failure: x.ctx.Err()}
		}
	}
}

// Done is closed once the result is available
func (x *future[T]) Done() <-chan struct{} {
	return x.done
}

// Cancel cancels the future process
func (x *future[T]) Cancel() {
	x.cancel()
}

// Promise is the write side of a Future completed by a callback.
type Promise[T any] struct {
	future *future[T]
}

// NewPromise creates a Promise whose Future completes on the first call to Complete
func NewPromise[T any]() *Promise[T] {
	return &Promise[T]{future: newFuture[T](context.Background())}
}

// Complete sets the result. Only the first call has an effect.
func (p *Promise[T]) Complete(success T, failure error) {
	p.future.complete(success, failure)
}

// Future returns the read side of the promise
func (p *Promise[T]) Future() Future[T] {
	return p.future
}
