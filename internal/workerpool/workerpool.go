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

// Package workerpool runs submitted tasks on a fixed set of goroutines fed by
// an unbounded FIFO queue. Submitting never blocks the caller.
package workerpool

import (
	"errors"
	"runtime"
	"sync"

	"github.com/Workiva/go-datastructures/queue"
	"go.uber.org/atomic"
)

const maxWorkers = 128

// ErrPoolStopped is returned when work is submitted to a stopped pool
var ErrPoolStopped = errors.New("worker pool is stopped")

// stopSignal is queued once per worker so that every task queued before Stop still runs
type stopSignal struct{}

// WorkerPool executes tasks on a fixed number of workers
type WorkerPool struct {
	workers      int
	panicHandler func(any)
	tasks        *queue.Queue
	started      *atomic.Bool
	stopped      *atomic.Bool
	submitted    *atomic.Uint64
	mutex        sync.Mutex
	wg           sync.WaitGroup
}

// New creates an instance of WorkerPool.
// The pool has GOMAXPROCS workers unless WithWorkers says otherwise.
func New(opts ...Option) *WorkerPool {
	pool := &WorkerPool{
		workers:   runtime.GOMAXPROCS(0),
		tasks:     queue.New(64),
		started:   atomic.NewBool(false),
		stopped:   atomic.NewBool(false),
		submitted: atomic.NewUint64(0),
	}

	for _, opt := range opts {
		opt.Apply(pool)
	}
	return pool
}

// Start spawns the workers. Calling Start more than once has no effect.
func (wp *WorkerPool) Start() {
	wp.mutex.Lock()
	defer wp.mutex.Unlock()
	if wp.started.Load() || wp.stopped.Load() {
		return
	}

	wp.started.Store(true)
	for range wp.workers {
		wp.wg.Add(1)
		go wp.work()
	}
}

// SubmitWork queues the task for execution.
// Tasks are picked up in submission order.
func (wp *WorkerPool) SubmitWork(task func()) error {
	wp.mutex.Lock()
	defer wp.mutex.Unlock()
	if wp.stopped.Load() {
		return ErrPoolStopped
	}

	if err := wp.tasks.Put(task); err != nil {
		return ErrPoolStopped
	}
	wp.submitted.Inc()
	return nil
}

// Stop rejects further work and lets the workers exit once the tasks queued so far are done.
// It does not wait for them; use Wait for that.
// Calling Stop more than once has no effect.
func (wp *WorkerPool) Stop() {
	wp.mutex.Lock()
	defer wp.mutex.Unlock()
	if wp.stopped.Load() {
		return
	}
	wp.stopped.Store(true)

	if !wp.started.Load() {
		wp.tasks.Dispose()
		return
	}

	for range wp.workers {
		_ = wp.tasks.Put(stopSignal{})
	}
}

// Wait blocks until every worker has exited.
// It must not be called from within a task.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

// Submitted returns the number of tasks accepted so far
func (wp *WorkerPool) Submitted() uint64 {
	return wp.submitted.Load()
}

// Pending returns the number of queued tasks not yet picked up
func (wp *WorkerPool) Pending() int64 {
	return wp.tasks.Len()
}

func (wp *WorkerPool) work() {
	defer wp.wg.Done()
	for {
		items, err := wp.tasks.Get(1)
		if err != nil {
			return
		}

		for _, item := range items {
			switch task := item.(type) {
			case stopSignal:
				return
			case func():
				wp.run(task)
			}
		}
	}
}

func (wp *WorkerPool) run(task func()) {
	defer func() {
		if r := recover(); r != nil && wp.panicHandler != nil {
			wp.panicHandler(r)
		}
	}()
	task()
}
