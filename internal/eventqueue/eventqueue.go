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

// Package eventqueue turns an unbounded FIFO into a receive channel so that
// producers never block on slow consumers.
package eventqueue

import (
	"sync"

	"github.com/Workiva/go-datastructures/queue"
)

// Queue delivers pushed items on C in push order
type Queue[T any] struct {
	items     *queue.Queue
	out       chan T
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a Queue and starts its delivery goroutine
func New[T any]() *Queue[T] {
	q := &Queue[T]{
		items: queue.New(16),
		out:   make(chan T),
		done:  make(chan struct{}),
	}
	q.wg.Add(1)
	go q.pump()
	return q
}

// Push appends an item. It returns false once the queue is closed.
func (q *Queue[T]) Push(item T) bool {
	return q.items.Put(item) == nil
}

// C returns the delivery channel. It is closed after Close.
func (q *Queue[T]) C() <-chan T {
	return q.out
}

// Close stops delivery and closes C. Items not yet delivered are dropped.
func (q *Queue[T]) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
		q.items.Dispose()
		q.wg.Wait()
	})
}

// Len returns the number of items waiting for delivery
func (q *Queue[T]) Len() int64 {
	return q.items.Len()
}

func (q *Queue[T]) pump() {
	defer q.wg.Done()
	defer close(q.out)
	for {
		items, err := q.items.Get(1)
		if err != nil {
			return
		}
		for _, item := range items {
			select {
			case q.out <- item.(T):
			case <-q.done:
				return
			}
		}
	}
}
