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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestFuture_AwaitUninterruptible(t *testing.T) {
	t.Run("With Success", func(t *testing.T) {
		f := New[string](context.TODO(), func(_ context.Context) (string, error) {
			time.Sleep(100 * time.Millisecond)
			return "done", nil
		})

		result := f.AwaitUninterruptible()
		require.NotNil(t, result)
		require.NoError(t, result.Failure())
		assert.Equal(t, "done", result.Success())
	})
	t.Run("With Failure", func(t *testing.T) {
		f := New[string](context.TODO(), func(_ context.Context) (string, error) {
			return "", errors.New("something went wrong")
		})

		result := f.AwaitUninterruptible()
		require.Empty(t, result.Success())
		require.EqualError(t, result.Failure(), "something went wrong")
	})
	t.Run("With Panic", func(t *testing.T) {
		f := New[string](context.TODO(), func(_ context.Context) (string, error) {
			panic("boom")
		})

		result := f.AwaitUninterruptible()
		require.EqualError(t, result.Failure(), "failed: boom")
	})
	t.Run("With Cancellation", func(t *testing.T) {
		f := New[string](context.TODO(), func(ctx context.Context) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		})
		f.Cancel()

		result := f.AwaitUninterruptible()
		require.ErrorIs(t, result.Failure(), context.Canceled)
	})
}

func TestFuture_Await(t *testing.T) {
	t.Run("With Success", func(t *testing.T) {
		f := New[int](context.TODO(), func(_ context.Context) (int, error) {
			return 42, nil
		})

		result := f.Await(time.Second)
		require.NoError(t, result.Failure())
		assert.Equal(t, 42, result.Success())
		// a completed future answers again
		assert.Equal(t, 42, f.Await(time.Millisecond).Success())
	})
	t.Run("With Timeout", func(t *testing.T) {
		release := make(chan struct{})
		f := New[int](context.TODO(), func(_ context.Context) (int, error) {
			<-release
			return 1, nil
		})

		result := f.Await(50 * time.Millisecond)
		require.ErrorIs(t, result.Failure(), ErrFutureTimeout)
		close(release)
		<-f.Done()
	})
}

func TestPromise(t *testing.T) {
	t.Run("first completion wins", func(t *testing.T) {
		promise := NewPromise[string]()
		promise.Complete("/Foo", nil)
		promise.Complete("/Bar", errors.New("ignored"))

		result := promise.Future().Await(time.Second)
		require.NoError(t, result.Failure())
		assert.Equal(t, "/Foo", result.Success())
	})
	t.Run("abandoned promise does not leak", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		for range 10 {
			promise := NewPromise[int]()
			go promise.Complete(1, nil)
		}
	})
	t.Run("Completed", func(t *testing.T) {
		f := Completed[int](0, errors.New("no"))
		select {
		case <-f.Done():
		default:
			t.Fatal("expected a completed future")
		}
		require.EqualError(t, f.AwaitUninterruptible().Failure(), "no")
	})
}
