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

// Package session wraps a coordination connection into a handle that waits
// for the session to be established, fans the connection's event stream out
// to registered watchers and runs asynchronous operations whose outcome is
// reported to a callback.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/tochemey/groupwatch/coordination"
	gerrors "github.com/tochemey/groupwatch/errors"
	"github.com/tochemey/groupwatch/internal/future"
	"github.com/tochemey/groupwatch/internal/workerpool"
	"github.com/tochemey/groupwatch/log"
)

// ExistsCallback receives the outcome of ExistsAsync.
// An absent node is reported with coordination.CodeNoNode.
type ExistsCallback func(code coordination.Code, path string, exists bool)

// ChildrenCallback receives the outcome of ChildrenAsync
type ChildrenCallback func(code coordination.Code, path string, children []string)

// CreateCallback receives the outcome of CreateAsync
type CreateCallback func(code coordination.Code, path string, created string)

// DeleteCallback receives the outcome of DeleteAsync
type DeleteCallback func(code coordination.Code, path string)

var errStreamClosed = errors.New("event stream closed before the session was established")

type registration struct {
	id      uint64
	watcher coordination.Watcher
}

// Session is a live session with a coordination service
type Session struct {
	conn           coordination.Conn
	logger         log.Logger
	workers        int
	requestTimeout time.Duration
	pool           *workerpool.WorkerPool

	mu       sync.RWMutex
	watchers []registration
	nextID   uint64

	ready     chan struct{}
	readyErr  error
	readyOnce sync.Once

	ctx    context.Context
	cancel context.CancelFunc
	stop   chan struct{}
	closed *atomic.Bool
}

// Connect opens a session through the driver and blocks until the service
// reports it as connected. Cancelling ctx aborts the wait.
func Connect(ctx context.Context, driver coordination.Driver, endpoints []string, sessionTimeout time.Duration, opts ...Option) (*Session, error) {
	if driver == nil {
		return nil, gerrors.NewErrInvalidArgument("driver", nil)
	}

	conn, err := driver.Dial(ctx, endpoints, sessionTimeout)
	if err != nil {
		return nil, gerrors.NewErrConnect(fmt.Errorf("%s dial: %w", driver.Name(), err))
	}

	s := newSession(conn, opts...)
	s.start()

	// the latch may already be released when the connection came up before we wait
	select {
	case <-s.ready:
		if s.readyErr != nil {
			_ = s.Close()
			return nil, gerrors.NewErrConnect(s.readyErr)
		}
	case <-ctx.Done():
		_ = s.Close()
		return nil, gerrors.NewErrConnect(ctx.Err())
	}

	s.logger.Infof("%s session %s established", driver.Name(), conn.SessionID())
	return s, nil
}

// ConnectAsync runs Connect in the background
func ConnectAsync(ctx context.Context, driver coordination.Driver, endpoints []string, sessionTimeout time.Duration, opts ...Option) future.Future[*Session] {
	return future.New(ctx, func(ctx context.Context) (*Session, error) {
		return Connect(ctx, driver, endpoints, sessionTimeout, opts...)
	})
}

func newSession(conn coordination.Conn, opts ...Option) *Session {
	s := &Session{
		conn:           conn,
		logger:         log.DefaultLogger,
		requestTimeout: DefaultRequestTimeout,
		ready:          make(chan struct{}),
		stop:           make(chan struct{}),
		closed:         atomic.NewBool(false),
	}
	for _, opt := range opts {
		opt.Apply(s)
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.pool = workerpool.New(
		workerpool.WithWorkers(s.workers),
		workerpool.WithPanicHandler(func(r any) {
			s.logger.Errorf("asynchronous callback failed: %v", gerrors.NewPanicError(r))
		}),
	)
	return s
}

func (s *Session) start() {
	s.pool.Start()
	go s.dispatch()
}

// signal releases Connect. Only the first call counts.
func (s *Session) signal(err error) {
	s.readyOnce.Do(func() {
		s.readyErr = err
		close(s.ready)
	})
}

// dispatch is the only goroutine delivering events to watchers. It releases
// Connect once the connected event has been delivered, so that a watcher
// registered after Connect returns never sees that event.
func (s *Session) dispatch() {
	events := s.conn.Events()
	for {
		select {
		case <-s.stop:
			s.finish()
			return
		case event, ok := <-events:
			if !ok {
				s.signal(errStreamClosed)
				s.finish()
				return
			}

			if s.closed.Load() {
				s.finish()
				return
			}
			s.deliver(event)

			if event.Type == coordination.EventSession {
				s.logger.Debugf("session %s state changed to %s", s.conn.SessionID(), event.State)
				switch event.State {
				case coordination.StateSyncConnected:
					s.signal(nil)
				case coordination.StateExpired:
					s.signal(coordination.ErrSessionExpired)
				}
			}
		}
	}
}

// finish delivers the final StateClosed event when the session was closed
func (s *Session) finish() {
	if s.closed.Load() {
		s.deliver(coordination.Event{Type: coordination.EventSession, State: coordination.StateClosed})
	}
}

func (s *Session) deliver(event coordination.Event) {
	s.mu.RLock()
	watchers := slices.Clone(s.watchers)
	s.mu.RUnlock()

	for _, r := range watchers {
		s.process(r.watcher, event)
	}
}

func (s *Session) process(watcher coordination.Watcher, event coordination.Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorf("watcher failed on %s event for path=(%s): %v", event.Type, event.Path, gerrors.NewPanicError(r))
		}
	}()
	watcher.Process(event)
}

// Register adds a watcher receiving every event of the session, in
// registration order, from a single goroutine.
// The returned function removes the watcher.
func (s *Session) Register(watcher coordination.Watcher) (unregister func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.watchers = append(s.watchers, registration{id: id, watcher: watcher})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.watchers = slices.DeleteFunc(s.watchers, func(r registration) bool {
				return r.id == id
			})
		})
	}
}

// State returns the current session state
func (s *Session) State() coordination.State {
	if s.closed.Load() {
		return coordination.StateClosed
	}
	return s.conn.State()
}

// SessionID returns the service assigned session identifier
func (s *Session) SessionID() string {
	return s.conn.SessionID()
}

// Exists reports whether path exists
func (s *Session) Exists(ctx context.Context, path string, watch bool) (bool, error) {
	if s.closed.Load() {
		return false, gerrors.ErrSessionClosed
	}
	return s.conn.Exists(ctx, path, watch)
}

// Children returns the children of path
func (s *Session) Children(ctx context.Context, path string, watch bool) ([]string, error) {
	if s.closed.Load() {
		return nil, gerrors.ErrSessionClosed
	}
	return s.conn.Children(ctx, path, watch)
}

// Create creates a node at path
func (s *Session) Create(ctx context.Context, path string, data []byte, mode coordination.CreateMode) (string, error) {
	if s.closed.Load() {
		return "", gerrors.ErrSessionClosed
	}
	return s.conn.Create(ctx, path, data, mode)
}

// Delete removes the node at path
func (s *Session) Delete(ctx context.Context, path string, version int32) error {
	if s.closed.Load() {
		return gerrors.ErrSessionClosed
	}
	return s.conn.Delete(ctx, path, version)
}

// ExistsAsync checks path in the background
func (s *Session) ExistsAsync(path string, watch bool, callback ExistsCallback) {
	s.submit(func(ctx context.Context) {
		exists, err := s.conn.Exists(ctx, path, watch)
		code := coordination.CodeOf(err)
		if code == coordination.CodeOK && !exists {
			code = coordination.CodeNoNode
		}
		if callback != nil {
			callback(code, path, exists)
		}
	}, func(code coordination.Code) {
		if callback != nil {
			callback(code, path, false)
		}
	})
}

// ChildrenAsync lists the children of path in the background
func (s *Session) ChildrenAsync(path string, watch bool, callback ChildrenCallback) {
	s.submit(func(ctx context.Context) {
		children, err := s.conn.Children(ctx, path, watch)
		if callback != nil {
			callback(coordination.CodeOf(err), path, children)
		}
	}, func(code coordination.Code) {
		if callback != nil {
			callback(code, path, nil)
		}
	})
}

// CreateAsync creates a node in the background
func (s *Session) CreateAsync(path string, data []byte, mode coordination.CreateMode, callback CreateCallback) {
	s.submit(func(ctx context.Context) {
		created, err := s.conn.Create(ctx, path, data, mode)
		if callback != nil {
			callback(coordination.CodeOf(err), path, created)
		}
	}, func(code coordination.Code) {
		if callback != nil {
			callback(code, path, "")
		}
	})
}

// DeleteAsync deletes a node in the background
func (s *Session) DeleteAsync(path string, version int32, callback DeleteCallback) {
	s.submit(func(ctx context.Context) {
		err := s.conn.Delete(ctx, path, version)
		if callback != nil {
			callback(coordination.CodeOf(err), path)
		}
	}, func(code coordination.Code) {
		if callback != nil {
			callback(code, path)
		}
	})
}

// submit queues op on the worker pool. On a closed session rejected runs
// synchronously with CodeConnectionClosed.
func (s *Session) submit(op func(ctx context.Context), rejected func(coordination.Code)) {
	if s.closed.Load() {
		rejected(coordination.CodeConnectionClosed)
		return
	}

	err := s.pool.SubmitWork(func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.requestTimeout)
		defer cancel()
		op(ctx)
	})
	if err != nil {
		rejected(coordination.CodeConnectionClosed)
	}
}

// Close ends the session. Ephemeral nodes created through it are removed by
// the service. Watchers receive a final StateClosed session event from the
// dispatch goroutine, after any event it was delivering. Close does not wait
// for that delivery, so it may be called from a watcher.
// Calling Close more than once has no effect.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	close(s.stop)
	s.pool.Stop()
	err := s.conn.Close()
	s.cancel()
	s.signal(gerrors.ErrSessionClosed)
	s.logger.Debugf("session %s closed", s.conn.SessionID())
	return err
}
