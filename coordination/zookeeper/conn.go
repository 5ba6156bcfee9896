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

package zookeeper

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/go-zookeeper/zk"
	"go.uber.org/atomic"

	"github.com/tochemey/groupwatch/coordination"
	"github.com/tochemey/groupwatch/internal/eventqueue"
	"github.com/tochemey/groupwatch/log"
)

type conn struct {
	client *zk.Conn
	acl    []zk.ACL
	logger log.Logger

	state        *atomic.Int32
	closed       *atomic.Bool
	dataWatches  mapset.Set[string]
	childWatches mapset.Set[string]
	events       *eventqueue.Queue[coordination.Event]

	// mu orders watch forwarders against Close
	mu   sync.RWMutex
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

var _ coordination.Conn = (*conn)(nil)

func newConn(client *zk.Conn, acl []zk.ACL, logger log.Logger) *conn {
	return &conn{
		client:       client,
		acl:          acl,
		logger:       logger,
		state:        atomic.NewInt32(int32(coordination.StateDisconnected)),
		closed:       atomic.NewBool(false),
		dataWatches:  mapset.NewSet[string](),
		childWatches: mapset.NewSet[string](),
		events:       eventqueue.New[coordination.Event](),
		done:         make(chan struct{}),
	}
}

// start forwards the session events of the client
func (c *conn) start(sessionEvents <-chan zk.Event) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-c.done:
				return
			case event, ok := <-sessionEvents:
				if !ok {
					return
				}
				c.session(event)
			}
		}
	}()
}

func (c *conn) session(event zk.Event) {
	if event.Type != zk.EventSession {
		return
	}

	var state coordination.State
	switch event.State {
	case zk.StateHasSession:
		state = coordination.StateSyncConnected
	case zk.StateExpired:
		state = coordination.StateExpired
	case zk.StateDisconnected:
		state = coordination.StateDisconnected
	default:
		return
	}

	if c.closed.Load() || coordination.State(c.state.Load()) == coordination.StateExpired {
		return
	}

	previous := coordination.State(c.state.Swap(int32(state)))
	if previous == state {
		return
	}

	c.logger.Debugf("zookeeper session 0x%x is %s", c.client.SessionID(), state)
	c.events.Push(coordination.Event{Type: coordination.EventSession, State: state})
}

func (c *conn) check(ctx context.Context, path string) error {
	if c.closed.Load() {
		return coordination.ErrConnectionClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return coordination.ValidatePath(path)
}

// Exists implements coordination.Conn
func (c *conn) Exists(ctx context.Context, path string, watch bool) (bool, error) {
	if err := c.check(ctx, path); err != nil {
		return false, err
	}

	if watch && c.dataWatches.Add(path) {
		exists, _, watchChan, err := c.client.ExistsW(path)
		if err != nil {
			c.dataWatches.Remove(path)
			return false, c.translate(err)
		}
		c.forward(c.dataWatches, path, watchChan)
		return exists, nil
	}

	exists, _, err := c.client.Exists(path)
	if err != nil {
		return false, c.translate(err)
	}
	return exists, nil
}

// Children implements coordination.Conn
func (c *conn) Children(ctx context.Context, path string, watch bool) ([]string, error) {
	if err := c.check(ctx, path); err != nil {
		return nil, err
	}

	var (
		children []string
		err      error
	)

	if watch && c.childWatches.Add(path) {
		var watchChan <-chan zk.Event
		children, _, watchChan, err = c.client.ChildrenW(path)
		if err != nil {
			c.childWatches.Remove(path)
			return nil, c.translate(err)
		}
		c.forward(c.childWatches, path, watchChan)
	} else {
		children, _, err = c.client.Children(path)
		if err != nil {
			return nil, c.translate(err)
		}
	}

	children = slices.Clone(children)
	slices.Sort(children)
	return children, nil
}

// Create implements coordination.Conn
func (c *conn) Create(ctx context.Context, path string, data []byte, mode coordination.CreateMode) (string, error) {
	if err := c.check(ctx, path); err != nil {
		return "", err
	}

	var flags int32
	if mode == coordination.Ephemeral {
		flags = zk.FlagEphemeral
	}

	created, err := c.client.Create(path, data, flags, c.acl)
	if err != nil {
		return "", c.translate(err)
	}
	return created, nil
}

// Delete implements coordination.Conn
func (c *conn) Delete(ctx context.Context, path string, version int32) error {
	if err := c.check(ctx, path); err != nil {
		return err
	}
	return c.translate(c.client.Delete(path, version))
}

// Events implements coordination.Conn
func (c *conn) Events() <-chan coordination.Event {
	return c.events.C()
}

// State implements coordination.Conn
func (c *conn) State() coordination.State {
	return coordination.State(c.state.Load())
}

// SessionID implements coordination.Conn
func (c *conn) SessionID() string {
	return fmt.Sprintf("0x%x", c.client.SessionID())
}

// Close implements coordination.Conn
func (c *conn) Close() error {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed.Store(true)
		c.state.Store(int32(coordination.StateClosed))
		c.mu.Unlock()

		c.client.Close()
		close(c.done)
		c.wg.Wait()
		c.events.Close()
	})
	return nil
}

// forward relays the first event of a one-shot watch
func (c *conn) forward(watches mapset.Set[string], path string, watchChan <-chan zk.Event) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed.Load() {
		watches.Remove(path)
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		select {
		case <-c.done:
			watches.Remove(path)
		case event, ok := <-watchChan:
			// released before delivery so that an observer can re-arm
			watches.Remove(path)
			if !ok || c.closed.Load() {
				return
			}
			c.events.Push(coordination.Event{Type: eventType(event.Type), State: c.State(), Path: path})
		}
	}()
}

func eventType(t zk.EventType) coordination.EventType {
	switch t {
	case zk.EventNodeCreated:
		return coordination.EventNodeCreated
	case zk.EventNodeDeleted:
		return coordination.EventNodeDeleted
	case zk.EventNodeDataChanged:
		return coordination.EventNodeDataChanged
	case zk.EventNodeChildrenChanged:
		return coordination.EventNodeChildrenChanged
	default:
		return coordination.EventNotWatching
	}
}

func (c *conn) translate(err error) error {
	if err == nil {
		return nil
	}

	var sentinel error
	switch {
	case errors.Is(err, zk.ErrNoNode):
		sentinel = coordination.ErrNoNode
	case errors.Is(err, zk.ErrNodeExists):
		sentinel = coordination.ErrNodeExists
	case errors.Is(err, zk.ErrNotEmpty):
		sentinel = coordination.ErrNotEmpty
	case errors.Is(err, zk.ErrBadVersion):
		sentinel = coordination.ErrBadVersion
	case errors.Is(err, zk.ErrNoChildrenForEphemerals):
		sentinel = coordination.ErrNoChildrenForEphemerals
	case errors.Is(err, zk.ErrSessionExpired):
		sentinel = coordination.ErrSessionExpired
	case errors.Is(err, zk.ErrConnectionClosed), errors.Is(err, zk.ErrClosing), errors.Is(err, zk.ErrNoServer):
		sentinel = coordination.ErrConnectionClosed
	case errors.Is(err, zk.ErrBadArguments), errors.Is(err, zk.ErrInvalidPath):
		sentinel = coordination.ErrBadArguments
	default:
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
