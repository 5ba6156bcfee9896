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

package workerpool

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/goleak"
)

func TestWorkerPool(t *testing.T) {
	t.Run("With happy path", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		pool := New(WithWorkers(8))
		require.NotNil(t, pool)
		pool.Start()

		workCount := 1000
		executed := atomic.NewInt64(0)
		var wg sync.WaitGroup
		wg.Add(workCount)
		for range workCount {
			require.NoError(t, pool.SubmitWork(func() {
				defer wg.Done()
				executed.Inc()
			}))
		}

		wg.Wait()
		assert.EqualValues(t, workCount, executed.Load())
		assert.EqualValues(t, workCount, pool.Submitted())

		pool.Stop()
		pool.Wait()
		// already stopped
		pool.Stop()
	})
	t.Run("Stop drains queued work", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		pool := New(WithWorkers(1))
		executed := atomic.NewInt64(0)
		for range 100 {
			require.NoError(t, pool.SubmitWork(func() {
				time.Sleep(time.Millisecond)
				executed.Inc()
			}))
		}
		pool.Start()
		pool.Stop()
		pool.Wait()
		assert.EqualValues(t, 100, executed.Load())
		require.ErrorIs(t, pool.SubmitWork(func() {}), ErrPoolStopped)
	})
	t.Run("When not started", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		pool := New()
		require.NotNil(t, pool)
		require.False(t, pool.started.Load())
		pool.Stop()
		pool.Wait()
		require.True(t, pool.stopped.Load())
		require.ErrorIs(t, pool.SubmitWork(func() {}), ErrPoolStopped)
		// a stopped pool cannot be restarted
		pool.Start()
		require.False(t, pool.started.Load())
	})
	t.Run("With panicking task", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		recovered := make(chan any, 1)
		pool := New(WithWorkers(1), WithPanicHandler(func(r any) { recovered <- r }))
		pool.Start()

		done := make(chan struct{})
		require.NoError(t, pool.SubmitWork(func() { panic("boom") }))
		require.NoError(t, pool.SubmitWork(func() { close(done) }))

		<-done
		assert.Equal(t, "boom", <-recovered)
		pool.Stop()
		pool.Wait()
	})
	t.Run("Task may submit work", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		pool := New(WithWorkers(2))
		pool.Start()

		done := make(chan struct{})
		require.NoError(t, pool.SubmitWork(func() {
			_ = pool.SubmitWork(func() { close(done) })
		}))
		<-done
		pool.Stop()
		pool.Wait()
	})
}
