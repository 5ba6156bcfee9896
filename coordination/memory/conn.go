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

package memory

import (
	"context"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/atomic"

	"github.com/tochemey/groupwatch/coordination"
	"github.com/tochemey/groupwatch/internal/eventqueue"
)

// conn is a session on a Server.
// The watch sets are guarded by the server mutex.
type conn struct {
	server       *Server
	id           string
	state        *atomic.Int32
	dataWatches  mapset.Set[string]
	childWatches mapset.Set[string]
	events       *eventqueue.Queue[coordination.Event]
	timer        *time.Timer
	closeOnce    sync.Once
}

var _ coordination.Conn = (*conn)(nil)

func newConn(server *Server, id string) *conn {
	return &conn{
		server:       server,
		id:           id,
		state:        atomic.NewInt32(int32(coordination.StateDisconnected)),
		dataWatches:  mapset.NewThreadUnsafeSet[string](),
		childWatches: mapset.NewThreadUnsafeSet[string](),
		events:       eventqueue.New[coordination.Event](),
	}
}

func (c *conn) connected() {
	c.state.Store(int32(coordination.StateSyncConnected))
	c.push(coordination.Event{Type: coordination.EventSession, State: coordination.StateSyncConnected})
}

func (c *conn) push(event coordination.Event) {
	c.events.Push(event)
}

// Exists implements coordination.Conn
func (c *conn) Exists(ctx context.Context, path string, watch bool) (bool, error) {
	if err := valid(ctx, path); err != nil {
		return false, err
	}
	return c.server.exists(c, path, watch)
}

// Children implements coordination.Conn
func (c *conn) Children(ctx context.Context, path string, watch bool) ([]string, error) {
	if err := valid(ctx, path); err != nil {
		return nil, err
	}
	return c.server.children(c, path, watch)
}

// Create implements coordination.Conn
func (c *conn) Create(ctx context.Context, path string, data []byte, mode coordination.CreateMode) (string, error) {
	if err := valid(ctx, path); err != nil {
		return "", err
	}
	if path == "/" {
		return "", coordination.ErrNodeExists
	}
	return c.server.create(c, path, data, mode)
}

// Delete implements coordination.Conn
func (c *conn) Delete(ctx context.Context, path string, version int32) error {
	if err := valid(ctx, path); err != nil {
		return err
	}
	if path == "/" {
		return coordination.ErrBadArguments
	}
	return c.server.delete(c, path, version)
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
	return c.id
}

// Close implements coordination.Conn
func (c *conn) Close() error {
	c.closeOnce.Do(func() {
		c.server.close(c)
		c.events.Close()
	})
	return nil
}

func valid(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return coordination.ValidatePath(path)
}
