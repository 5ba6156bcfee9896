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

package syncmap

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func TestSyncMap(t *testing.T) {
	t.Run("Set Get Delete", func(t *testing.T) {
		sm := New[string, int]()
		sm.Set("/Foo/Bar", 1)
		sm.Set("/Foo/Baz", 2)
		require.Equal(t, 2, sm.Len())

		v, ok := sm.Get("/Foo/Bar")
		require.True(t, ok)
		assert.Equal(t, 1, v)

		require.True(t, sm.Delete("/Foo/Bar"))
		require.False(t, sm.Delete("/Foo/Bar"))
		_, ok = sm.Get("/Foo/Bar")
		require.False(t, ok)
		assert.ElementsMatch(t, []string{"/Foo/Baz"}, sm.Keys())
	})
	t.Run("Range", func(t *testing.T) {
		sm := New[string, int]()
		for i := range 5 {
			sm.Set(fmt.Sprintf("k%d", i), i)
		}
		sum := 0
		sm.Range(func(_ string, v int) { sum += v })
		assert.Equal(t, 10, sum)
	})
	t.Run("LoadAndDelete is exclusive", func(t *testing.T) {
		sm := New[string, int]()
		sm.Set("/group/member", 42)

		var (
			wg     sync.WaitGroup
			loaded = atomic.NewInt32(0)
		)
		for range 64 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if v, ok := sm.LoadAndDelete("/group/member"); ok {
					assert.Equal(t, 42, v)
					loaded.Inc()
				}
			}()
		}
		wg.Wait()
		require.EqualValues(t, 1, loaded.Load())
		require.Zero(t, sm.Len())
	})
}
