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

package eventqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestQueue(t *testing.T) {
	t.Run("delivers in push order without blocking producers", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		q := New[int]()
		for i := range 1000 {
			require.True(t, q.Push(i))
		}

		for i := range 1000 {
			select {
			case got := <-q.C():
				assert.Equal(t, i, got)
			case <-time.After(time.Second):
				t.Fatal("timed out waiting for item")
			}
		}
		q.Close()
	})
	t.Run("Close closes the channel", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		q := New[string]()
		require.True(t, q.Push("/groups"))
		q.Close()
		q.Close()

		require.False(t, q.Push("/groups/a"))
		for range q.C() {
			// drain whatever was in flight
		}
		_, ok := <-q.C()
		require.False(t, ok)
	})
}
