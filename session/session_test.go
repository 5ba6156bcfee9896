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

package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/goleak"

	"github.com/tochemey/groupwatch/coordination"
	"github.com/tochemey/groupwatch/coordination/memory"
	gerrors "github.com/tochemey/groupwatch/errors"
	"github.com/tochemey/groupwatch/internal/pause"
	"github.com/tochemey/groupwatch/log"
)

const sessionTimeout = 5 * time.Second

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func connect(t *testing.T, server *memory.Server) *Session {
	t.Helper()
	s, err := Connect(context.TODO(), server.Driver(), nil, sessionTimeout, WithLogger(log.DiscardLogger))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// recorder collects the events delivered to a watcher
type recorder struct {
	mu     sync.Mutex
	events []coordination.Event
}

func (r *recorder) Process(event coordination.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) snapshot() []coordination.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]coordination.Event(nil), r.events...)
}

func TestConnect(t *testing.T) {
	t.Run("With connected service", func(t *testing.T) {
		server := memory.NewServer()
		s := connect(t, server)
		assert.Equal(t, coordination.StateSyncConnected, s.State())
		assert.Equal(t, server.Sessions(), []string{s.SessionID()})
	})
	t.Run("Waits for the connected event", func(t *testing.T) {
		server := memory.NewServer(memory.WithConnectDelay(100 * time.Millisecond))
		start := time.Now()
		s := connect(t, server)
		assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
		assert.Equal(t, coordination.StateSyncConnected, s.State())
	})
	t.Run("With nil driver", func(t *testing.T) {
		_, err := Connect(context.TODO(), nil, nil, sessionTimeout)
		require.ErrorIs(t, err, gerrors.ErrInvalidArgument)
	})
	t.Run("With unreachable service", func(t *testing.T) {
		server := memory.NewServer()
		server.Stop()
		_, err := Connect(context.TODO(), server.Driver(), nil, sessionTimeout, WithLogger(log.DiscardLogger))
		require.ErrorIs(t, err, gerrors.ErrConnect)
		require.ErrorIs(t, err, coordination.ErrConnectionClosed)
	})
	t.Run("With context cancellation", func(t *testing.T) {
		server := memory.NewServer(memory.WithConnectDelay(time.Minute))
		ctx, cancel := context.WithTimeout(context.TODO(), 100*time.Millisecond)
		defer cancel()

		_, err := Connect(ctx, server.Driver(), nil, sessionTimeout, WithLogger(log.DiscardLogger))
		require.ErrorIs(t, err, gerrors.ErrConnect)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		// the half open session is gone
		assert.Empty(t, server.Sessions())
	})
	t.Run("With session expired before connecting", func(t *testing.T) {
		server := memory.NewServer(memory.WithConnectDelay(time.Minute))
		go func() {
			for {
				if ids := server.Sessions(); len(ids) > 0 {
					_ = server.Expire(ids[0])
					return
				}
				pause.For(5 * time.Millisecond)
			}
		}()

		_, err := Connect(context.TODO(), server.Driver(), nil, sessionTimeout, WithLogger(log.DiscardLogger))
		require.ErrorIs(t, err, gerrors.ErrConnect)
		require.ErrorIs(t, err, coordination.ErrSessionExpired)
	})
	t.Run("ConnectAsync", func(t *testing.T) {
		server := memory.NewServer()
		result := ConnectAsync(context.TODO(), server.Driver(), nil, sessionTimeout, WithLogger(log.DiscardLogger)).Await(5 * time.Second)
		require.NoError(t, result.Failure())
		s := result.Success()
		require.NotNil(t, s)
		require.NoError(t, s.Close())
	})
}

func TestOperations(t *testing.T) {
	ctx := context.TODO()
	server := memory.NewServer()
	s := connect(t, server)

	t.Run("synchronous", func(t *testing.T) {
		created, err := s.Create(ctx, "/Foo", nil, coordination.Persistent)
		require.NoError(t, err)
		assert.Equal(t, "/Foo", created)

		exists, err := s.Exists(ctx, "/Foo", false)
		require.NoError(t, err)
		assert.True(t, exists)

		children, err := s.Children(ctx, "/Foo", false)
		require.NoError(t, err)
		assert.Empty(t, children)

		require.NoError(t, s.Delete(ctx, "/Foo", coordination.AnyVersion))
	})
	t.Run("asynchronous", func(t *testing.T) {
		codes := make(chan coordination.Code, 1)
		s.CreateAsync("/Bar", []byte("data"), coordination.Persistent, func(code coordination.Code, path, created string) {
			assert.Equal(t, "/Bar", path)
			assert.Equal(t, "/Bar", created)
			codes <- code
		})
		require.Equal(t, coordination.CodeOK, <-codes)

		s.CreateAsync("/Bar", nil, coordination.Persistent, func(code coordination.Code, _, _ string) {
			codes <- code
		})
		require.Equal(t, coordination.CodeNodeExists, <-codes)

		s.CreateAsync("/Bar/member", nil, coordination.Ephemeral, nil)

		listed := make(chan []string, 1)
		require.Eventually(t, func() bool {
			s.ChildrenAsync("/Bar", false, func(code coordination.Code, _ string, children []string) {
				assert.Equal(t, coordination.CodeOK, code)
				listed <- children
			})
			return len(<-listed) == 1
		}, time.Second, 10*time.Millisecond)

		s.ExistsAsync("/Bar", false, func(code coordination.Code, _ string, exists bool) {
			assert.True(t, exists)
			codes <- code
		})
		require.Equal(t, coordination.CodeOK, <-codes)

		s.ExistsAsync("/Missing", false, func(code coordination.Code, _ string, exists bool) {
			assert.False(t, exists)
			codes <- code
		})
		require.Equal(t, coordination.CodeNoNode, <-codes)

		s.ChildrenAsync("/Missing", false, func(code coordination.Code, _ string, _ []string) {
			codes <- code
		})
		require.Equal(t, coordination.CodeNoNode, <-codes)

		s.DeleteAsync("/Bar", coordination.AnyVersion, func(code coordination.Code, path string) {
			assert.Equal(t, "/Bar", path)
			codes <- code
		})
		require.Equal(t, coordination.CodeNotEmpty, <-codes)
	})
}

func TestRegister(t *testing.T) {
	ctx := context.TODO()
	server := memory.NewServer()
	s := connect(t, server)
	other := connect(t, server)

	first := new(recorder)
	second := new(recorder)
	unregisterFirst := s.Register(first)
	s.Register(second)

	_, err := s.Exists(ctx, "/Foo", true)
	require.NoError(t, err)
	_, err = other.Create(ctx, "/Foo", nil, coordination.Persistent)
	require.NoError(t, err)

	expected := coordination.Event{Type: coordination.EventNodeCreated, State: coordination.StateSyncConnected, Path: "/Foo"}
	require.Eventually(t, func() bool { return len(second.snapshot()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []coordination.Event{expected}, first.snapshot())
	assert.Equal(t, []coordination.Event{expected}, second.snapshot())

	unregisterFirst()
	unregisterFirst()

	_, err = s.Children(ctx, "/Foo", true)
	require.NoError(t, err)
	require.NoError(t, other.Delete(ctx, "/Foo", coordination.AnyVersion))

	require.Eventually(t, func() bool { return len(second.snapshot()) == 2 }, time.Second, 10*time.Millisecond)
	assert.Len(t, first.snapshot(), 1)
}

func TestWatcherPanic(t *testing.T) {
	ctx := context.TODO()
	server := memory.NewServer()
	s := connect(t, server)

	s.Register(coordination.WatcherFunc(func(coordination.Event) { panic("boom") }))
	after := new(recorder)
	s.Register(after)

	_, err := s.Exists(ctx, "/Foo", true)
	require.NoError(t, err)
	_, err = s.Create(ctx, "/Foo", nil, coordination.Persistent)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(after.snapshot()) == 1 }, time.Second, 10*time.Millisecond)
}

func TestClose(t *testing.T) {
	ctx := context.TODO()
	server := memory.NewServer()
	s, err := Connect(ctx, server.Driver(), nil, sessionTimeout, WithLogger(log.DiscardLogger))
	require.NoError(t, err)
	observer := connect(t, server)

	_, err = s.Create(ctx, "/Foo", nil, coordination.Persistent)
	require.NoError(t, err)
	_, err = s.Create(ctx, "/Foo/member", nil, coordination.Ephemeral)
	require.NoError(t, err)

	watcher := new(recorder)
	s.Register(watcher)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.Equal(t, coordination.StateClosed, s.State())
	require.Eventually(t, func() bool { return len(watcher.snapshot()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []coordination.Event{{Type: coordination.EventSession, State: coordination.StateClosed}}, watcher.snapshot())

	// ephemeral nodes are gone with the session
	children, err := observer.Children(ctx, "/Foo", false)
	require.NoError(t, err)
	assert.Empty(t, children)

	_, err = s.Exists(ctx, "/Foo", false)
	require.ErrorIs(t, err, gerrors.ErrSessionClosed)
	_, err = s.Children(ctx, "/Foo", false)
	require.ErrorIs(t, err, gerrors.ErrSessionClosed)
	_, err = s.Create(ctx, "/Bar", nil, coordination.Persistent)
	require.ErrorIs(t, err, gerrors.ErrSessionClosed)
	require.ErrorIs(t, s.Delete(ctx, "/Foo", coordination.AnyVersion), gerrors.ErrSessionClosed)

	var code coordination.Code
	s.ExistsAsync("/Foo", false, func(c coordination.Code, _ string, _ bool) { code = c })
	assert.Equal(t, coordination.CodeConnectionClosed, code)
}

func TestRegisterAfterConnect(t *testing.T) {
	t.Run("With connected service", func(t *testing.T) {
		server := memory.NewServer()
		for range 50 {
			s := connect(t, server)
			watcher := new(recorder)
			s.Register(watcher)
			pause.For(20 * time.Millisecond)
			require.Empty(t, watcher.snapshot())
			require.NoError(t, s.Close())
		}
	})
	t.Run("With delayed connection", func(t *testing.T) {
		server := memory.NewServer(memory.WithConnectDelay(20 * time.Millisecond))
		s := connect(t, server)
		watcher := new(recorder)
		s.Register(watcher)
		pause.For(50 * time.Millisecond)
		assert.Empty(t, watcher.snapshot())
	})
}

func TestCloseDelivery(t *testing.T) {
	t.Run("After the event being delivered", func(t *testing.T) {
		ctx := context.TODO()
		server := memory.NewServer()
		s := connect(t, server)

		var (
			active    atomic.Int32
			maxActive atomic.Int32
		)
		entered := make(chan struct{})
		release := make(chan struct{})
		watcher := new(recorder)
		s.Register(coordination.WatcherFunc(func(event coordination.Event) {
			maxActive.Store(max(maxActive.Load(), active.Inc()))
			defer active.Dec()
			if event.Type == coordination.EventNodeCreated {
				close(entered)
				<-release
			}
			watcher.Process(event)
		}))

		_, err := s.Exists(ctx, "/Foo", true)
		require.NoError(t, err)
		_, err = s.Create(ctx, "/Foo", nil, coordination.Persistent)
		require.NoError(t, err)
		<-entered

		require.NoError(t, s.Close())
		close(release)

		require.Eventually(t, func() bool { return len(watcher.snapshot()) == 2 }, time.Second, 10*time.Millisecond)
		events := watcher.snapshot()
		assert.Equal(t, coordination.EventNodeCreated, events[0].Type)
		assert.Equal(t, coordination.Event{Type: coordination.EventSession, State: coordination.StateClosed}, events[1])
		assert.EqualValues(t, 1, maxActive.Load())
	})
	t.Run("From within a watcher", func(t *testing.T) {
		ctx := context.TODO()
		server := memory.NewServer()
		s := connect(t, server)

		watcher := new(recorder)
		s.Register(coordination.WatcherFunc(func(event coordination.Event) {
			watcher.Process(event)
			if event.Type == coordination.EventNodeCreated {
				_ = s.Close()
			}
		}))

		_, err := s.Exists(ctx, "/Foo", true)
		require.NoError(t, err)
		_, err = s.Create(ctx, "/Foo", nil, coordination.Persistent)
		require.NoError(t, err)

		require.Eventually(t, func() bool { return len(watcher.snapshot()) == 2 }, time.Second, 10*time.Millisecond)
		assert.Equal(t, coordination.StateClosed, s.State())
		assert.Equal(t, coordination.StateClosed, watcher.snapshot()[1].State)
	})
}
