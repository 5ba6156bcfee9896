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

// Package memory provides an in-process coordination server and its driver.
// It implements the coordination contract faithfully enough to exercise
// sessions, ephemeral nodes, one-shot watches and session expiry in tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"

	"github.com/tochemey/groupwatch/coordination"
	"github.com/tochemey/groupwatch/log"
)

const driverName = "memory"

type node struct {
	data     []byte
	owner    string
	children mapset.Set[string]
}

func newNode(data []byte, owner string) *node {
	return &node{
		data:     slices.Clone(data),
		owner:    owner,
		children: mapset.NewThreadUnsafeSet[string](),
	}
}

// Server is an in-process coordination service
type Server struct {
	mu           sync.Mutex
	nodes        map[string]*node
	sessions     map[string]*conn
	stopped      bool
	logger       log.Logger
	connectDelay time.Duration
}

// NewServer creates a running Server holding only the root node
func NewServer(opts ...Option) *Server {
	server := &Server{
		nodes:    map[string]*node{"/": newNode(nil, "")},
		sessions: make(map[string]*conn),
		logger:   log.DiscardLogger,
	}
	for _, opt := range opts {
		opt.Apply(server)
	}
	return server
}

// Driver returns a coordination.Driver dialing this server
func (s *Server) Driver() coordination.Driver {
	return &driver{server: s}
}

// Sessions returns the identifiers of the live sessions
func (s *Server) Sessions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Exists reports whether a node exists, bypassing any session
func (s *Server) Exists(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.nodes[path]
	return ok
}

// Expire expires a session the way the service does when it stops hearing
// from a client: its ephemeral nodes are removed and the owning connection
// receives a StateExpired session event.
func (s *Server) Expire(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %s: %w", sessionID, coordination.ErrSessionExpired)
	}

	s.endSession(c, coordination.StateExpired)
	c.push(coordination.Event{Type: coordination.EventSession, State: coordination.StateExpired})
	s.logger.Debugf("session %s expired", sessionID)
	return nil
}

// Stop disconnects every connection. Operations on them fail with
// coordination.ErrConnectionClosed and no new connection is accepted.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}

	s.stopped = true
	for _, c := range s.sessions {
		c.state.Store(int32(coordination.StateDisconnected))
		c.push(coordination.Event{Type: coordination.EventSession, State: coordination.StateDisconnected})
	}
	s.logger.Debug("server stopped")
}

func (s *Server) open(ctx context.Context) (*conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, coordination.ErrConnectionClosed
	}

	c := newConn(s, uuid.NewString())
	s.sessions[c.id] = c

	if s.connectDelay <= 0 {
		c.connected()
	} else {
		c.timer = time.AfterFunc(s.connectDelay, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.sessions[c.id]; ok && !s.stopped {
				c.connected()
			}
		})
	}

	s.logger.Debugf("session %s opened", c.id)
	return c, nil
}

// endSession drops the session and its ephemeral nodes. It must be called with mu held.
func (s *Server) endSession(c *conn, state coordination.State) {
	delete(s.sessions, c.id)
	c.state.Store(int32(state))
	c.dataWatches.Clear()
	c.childWatches.Clear()

	owned := make([]string, 0)
	for path, n := range s.nodes {
		if n.owner == c.id {
			owned = append(owned, path)
		}
	}
	slices.Sort(owned)
	for _, path := range owned {
		s.remove(path)
	}
}

// check returns the error for operations on c. It must be called with mu held.
func (s *Server) check(c *conn) error {
	switch coordination.State(c.state.Load()) {
	case coordination.StateExpired:
		return coordination.ErrSessionExpired
	case coordination.StateClosed:
		return coordination.ErrConnectionClosed
	}
	if s.stopped {
		return coordination.ErrConnectionClosed
	}
	return nil
}

func (s *Server) exists(c *conn, path string, watch bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(c); err != nil {
		return false, err
	}

	_, ok := s.nodes[path]
	if watch {
		c.dataWatches.Add(path)
	}
	return ok, nil
}

func (s *Server) children(c *conn, path string, watch bool) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(c); err != nil {
		return nil, err
	}

	n, ok := s.nodes[path]
	if !ok {
		return nil, coordination.ErrNoNode
	}
	if watch {
		c.childWatches.Add(path)
	}

	children := n.children.ToSlice()
	slices.Sort(children)
	return children, nil
}

func (s *Server) create(c *conn, path string, data []byte, mode coordination.CreateMode) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(c); err != nil {
		return "", err
	}

	if _, ok := s.nodes[path]; ok {
		return "", coordination.ErrNodeExists
	}

	parent, ok := s.nodes[coordination.Parent(path)]
	if !ok {
		return "", coordination.ErrNoNode
	}
	if parent.owner != "" {
		return "", coordination.ErrNoChildrenForEphemerals
	}

	owner := ""
	if mode == coordination.Ephemeral {
		owner = c.id
	}

	s.nodes[path] = newNode(data, owner)
	parent.children.Add(coordination.Base(path))

	s.fire(path, coordination.EventNodeCreated, true, false)
	s.fire(coordination.Parent(path), coordination.EventNodeChildrenChanged, false, true)
	return path, nil
}

func (s *Server) delete(c *conn, path string, version int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(c); err != nil {
		return err
	}

	n, ok := s.nodes[path]
	if !ok {
		return coordination.ErrNoNode
	}
	if version != coordination.AnyVersion && version != 0 {
		return coordination.ErrBadVersion
	}
	if n.children.Cardinality() > 0 {
		return coordination.ErrNotEmpty
	}

	s.remove(path)
	return nil
}

// remove deletes a childless node and fires the matching watches. It must be called with mu held.
func (s *Server) remove(path string) {
	delete(s.nodes, path)
	parentPath := coordination.Parent(path)
	if parent, ok := s.nodes[parentPath]; ok {
		parent.children.Remove(coordination.Base(path))
	}

	s.fire(path, coordination.EventNodeDeleted, true, true)
	s.fire(parentPath, coordination.EventNodeChildrenChanged, false, true)
}

// fire consumes the armed watches on path. It must be called with mu held.
func (s *Server) fire(path string, eventType coordination.EventType, data, children bool) {
	for _, c := range s.sessions {
		triggered := false
		if data && c.dataWatches.Contains(path) {
			c.dataWatches.Remove(path)
			triggered = true
		}
		if children && c.childWatches.Contains(path) {
			c.childWatches.Remove(path)
			triggered = true
		}
		if triggered {
			c.push(coordination.Event{
				Type:  eventType,
				State: coordination.StateSyncConnected,
				Path:  path,
			})
		}
	}
}

func (s *Server) close(c *conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
	if _, ok := s.sessions[c.id]; ok {
		s.endSession(c, coordination.StateClosed)
		s.logger.Debugf("session %s closed", c.id)
		return
	}
	c.state.Store(int32(coordination.StateClosed))
}

type driver struct {
	server *Server
}

var _ coordination.Driver = (*driver)(nil)

// Name returns the driver name
func (d *driver) Name() string {
	return driverName
}

// Dial opens a session on the server. Endpoints and session timeout are ignored.
func (d *driver) Dial(ctx context.Context, _ []string, _ time.Duration) (coordination.Conn, error) {
	return d.server.open(ctx)
}
