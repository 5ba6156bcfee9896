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

package consul

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/hashicorp/consul/api"
	"go.uber.org/atomic"

	"github.com/tochemey/groupwatch/coordination"
	"github.com/tochemey/groupwatch/internal/eventqueue"
	"github.com/tochemey/groupwatch/log"
)

type watchKind int

const (
	dataWatch watchKind = iota
	childWatch
)

// view is the state of a node observed by a read
type view struct {
	exists      bool
	createIndex uint64
	modifyIndex uint64
	children    mapset.Set[string]
}

type conn struct {
	config    *Config
	logger    log.Logger
	client    *api.Client
	kv        *api.KV
	sessionID string

	state        *atomic.Int32
	closed       *atomic.Bool
	dataWatches  mapset.Set[string]
	childWatches mapset.Set[string]
	events       *eventqueue.Queue[coordination.Event]

	// mu orders watch goroutine starts against Close
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	renewDone chan struct{}
	wg        sync.WaitGroup
	once      sync.Once
}

var _ coordination.Conn = (*conn)(nil)

func newConn(config *Config, client *api.Client, sessionID string) *conn {
	c := &conn{
		config:       config,
		logger:       config.Logger,
		client:       client,
		kv:           client.KV(),
		sessionID:    sessionID,
		state:        atomic.NewInt32(int32(coordination.StateSyncConnected)),
		closed:       atomic.NewBool(false),
		dataWatches:  mapset.NewSet[string](),
		childWatches: mapset.NewSet[string](),
		events:       eventqueue.New[coordination.Event](),
		renewDone:    make(chan struct{}),
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c
}

// start renews the session until the connection is closed
func (c *conn) start(ttl time.Duration) {
	c.events.Push(coordination.Event{Type: coordination.EventSession, State: coordination.StateSyncConnected})

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		// destroys the session once renewDone is closed
		err := c.client.Session().RenewPeriodic(ttl.String(), c.sessionID, nil, c.renewDone)
		if c.closed.Load() {
			return
		}
		c.state.Store(int32(coordination.StateExpired))
		c.logger.Warnf("consul session %s expired: %v", c.sessionID, err)
		c.events.Push(coordination.Event{Type: coordination.EventSession, State: coordination.StateExpired})
	}()
}

func (c *conn) key(path string) string {
	if path == "/" {
		return c.config.Namespace
	}
	return c.config.Namespace + path
}

func (c *conn) childPrefix(path string) string {
	return c.key(path) + "/"
}

// watchPrefix covers the node itself and everything below it
func (c *conn) watchPrefix(path string) string {
	if path == "/" {
		return c.childPrefix(path)
	}
	return c.key(path)
}

// requestContext bounds ctx by the configured request timeout unless it already carries a deadline
func (c *conn) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.config.RequestTimeout)
}

func (c *conn) check(ctx context.Context, path string) error {
	if c.closed.Load() {
		return coordination.ErrConnectionClosed
	}
	if coordination.State(c.state.Load()) == coordination.StateExpired {
		return coordination.ErrSessionExpired
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
	if path == "/" {
		return true, nil
	}

	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	current, index, err := c.read(dataWatch, path, (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return false, c.translate(err)
	}

	if watch {
		c.arm(dataWatch, path, current, index)
	}
	return current.exists, nil
}

// Children implements coordination.Conn
func (c *conn) Children(ctx context.Context, path string, watch bool) ([]string, error) {
	if err := c.check(ctx, path); err != nil {
		return nil, err
	}

	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	current, index, err := c.read(childWatch, path, (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, c.translate(err)
	}
	if !current.exists {
		return nil, coordination.ErrNoNode
	}

	if watch {
		c.arm(childWatch, path, current, index)
	}

	names := current.children.ToSlice()
	slices.Sort(names)
	return names, nil
}

// Create implements coordination.Conn
func (c *conn) Create(ctx context.Context, path string, data []byte, mode coordination.CreateMode) (string, error) {
	if err := c.check(ctx, path); err != nil {
		return "", err
	}
	if path == "/" {
		return "", coordination.ErrNodeExists
	}

	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	query := (&api.QueryOptions{}).WithContext(ctx)
	parent := coordination.Parent(path)

	// the parent is pinned by its modify index, a concurrent change retries the create
	for attempt := 0; attempt < c.config.MaxRetries; attempt++ {
		ops := api.KVTxnOps{{Verb: api.KVCheckNotExists, Key: c.key(path)}}

		if parent != "/" {
			pair, _, err := c.kv.Get(c.key(parent), query)
			if err != nil {
				return "", c.translate(err)
			}
			if pair == nil {
				return "", coordination.ErrNoNode
			}
			if pair.Session != "" {
				return "", coordination.ErrNoChildrenForEphemerals
			}
			ops = append(ops, &api.KVTxnOp{Verb: api.KVCheckIndex, Key: c.key(parent), Index: pair.ModifyIndex})
		}

		put := &api.KVTxnOp{Verb: api.KVSet, Key: c.key(path), Value: data}
		if mode == coordination.Ephemeral {
			put.Verb = api.KVLock
			put.Session = c.sessionID
		}
		ops = append(ops, put)

		ok, resp, _, err := c.kv.Txn(ops, query)
		if err != nil {
			return "", c.translate(err)
		}
		if ok {
			return path, nil
		}
		if resp == nil {
			return "", fmt.Errorf("create %s: transaction rolled back", path)
		}

		for _, txnErr := range resp.Errors {
			switch txnErr.OpIndex {
			case 0:
				return "", coordination.ErrNodeExists
			case len(ops) - 1:
				// only a lock bound to a lost session fails here
				return "", fmt.Errorf("%w: %s", coordination.ErrSessionExpired, txnErr.What)
			}
		}
		c.logger.Debugf("consul create of %s raced with a change of its parent, retrying", path)
	}
	return "", fmt.Errorf("create %s: parent kept changing", path)
}

// Delete implements coordination.Conn
func (c *conn) Delete(ctx context.Context, path string, version int32) error {
	if err := c.check(ctx, path); err != nil {
		return err
	}
	if path == "/" {
		return coordination.ErrBadArguments
	}

	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	query := (&api.QueryOptions{}).WithContext(ctx)
	write := (&api.WriteOptions{}).WithContext(ctx)

	for attempt := 0; attempt < c.config.MaxRetries; attempt++ {
		pair, _, err := c.kv.Get(c.key(path), query)
		if err != nil {
			return c.translate(err)
		}
		if pair == nil {
			return coordination.ErrNoNode
		}

		keys, _, err := c.kv.Keys(c.childPrefix(path), "", query)
		if err != nil {
			return c.translate(err)
		}
		if len(keys) > 0 {
			return coordination.ErrNotEmpty
		}

		// node data is written once, so every node stays at version 0
		if version != coordination.AnyVersion && version != 0 {
			return coordination.ErrBadVersion
		}

		ok, _, err := c.kv.DeleteCAS(&api.KVPair{Key: c.key(path), ModifyIndex: pair.ModifyIndex}, write)
		if err != nil {
			return c.translate(err)
		}
		if ok {
			return nil
		}
	}
	return fmt.Errorf("delete %s: node kept changing", path)
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
	return c.sessionID
}

// Close implements coordination.Conn
func (c *conn) Close() error {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed.Store(true)
		c.state.Store(int32(coordination.StateClosed))
		c.mu.Unlock()

		// the renewal loop destroys the session, which deletes the ephemeral nodes
		close(c.renewDone)
		c.cancel()
		c.wg.Wait()
		c.events.Close()
		c.logger.Debugf("consul session %s closed", c.sessionID)
	})
	return nil
}

// read observes path for the given watch kind and returns the index to block on
func (c *conn) read(kind watchKind, path string, query *api.QueryOptions) (*view, uint64, error) {
	if kind == dataWatch {
		pair, meta, err := c.kv.Get(c.key(path), query)
		if err != nil {
			return nil, 0, err
		}
		current := &view{exists: pair != nil}
		if pair != nil {
			current.createIndex = pair.CreateIndex
			current.modifyIndex = pair.ModifyIndex
		}
		return current, meta.LastIndex, nil
	}

	keys, meta, err := c.kv.Keys(c.watchPrefix(path), "", query)
	if err != nil {
		return nil, 0, err
	}

	current := &view{exists: path == "/", children: mapset.NewThreadUnsafeSet[string]()}
	prefix := c.childPrefix(path)
	for _, k := range keys {
		if k == c.key(path) {
			current.exists = true
			continue
		}
		name, found := strings.CutPrefix(k, prefix)
		if found && name != "" && !strings.Contains(name, "/") {
			current.children.Add(name)
		}
	}
	return current, meta.LastIndex, nil
}

// arm starts a one-shot watch unless one of the same kind is armed on path
func (c *conn) arm(kind watchKind, path string, armed *view, index uint64) {
	watches := c.dataWatches
	if kind == childWatch {
		watches = c.childWatches
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed.Load() || !watches.Add(path) {
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			query := (&api.QueryOptions{WaitIndex: index, WaitTime: c.config.WaitTime}).WithContext(c.ctx)
			current, next, err := c.read(kind, path, query)
			if err != nil {
				watches.Remove(path)
				if c.closed.Load() {
					return
				}
				c.logger.Warnf("consul watch on %s dropped: %v", path, err)
				c.events.Push(coordination.Event{Type: coordination.EventNotWatching, State: c.State(), Path: path})
				return
			}

			if eventType, ok := changed(kind, armed, current); ok {
				// released before delivery so that an observer can re-arm
				watches.Remove(path)
				c.events.Push(coordination.Event{Type: eventType, State: c.State(), Path: path})
				return
			}

			// a lower index means the raft index was reset
			if next < index {
				next = 0
			}
			index = max(next, 1)
		}
	}()
}

// changed compares the state at arming time with the current one
func changed(kind watchKind, armed, current *view) (coordination.EventType, bool) {
	switch {
	case armed.exists && !current.exists:
		return coordination.EventNodeDeleted, true
	case kind == dataWatch && !armed.exists && current.exists:
		return coordination.EventNodeCreated, true
	case kind == dataWatch && armed.exists && armed.createIndex != current.createIndex:
		// deleted and created again between two reads
		return coordination.EventNodeDeleted, true
	case kind == dataWatch && armed.exists && armed.modifyIndex != current.modifyIndex:
		return coordination.EventNodeDataChanged, true
	case kind == childWatch && current.exists && !armed.children.Equal(current.children):
		return coordination.EventNodeChildrenChanged, true
	}
	return 0, false
}

func (c *conn) translate(err error) error {
	if c.closed.Load() {
		return coordination.ErrConnectionClosed
	}
	return err
}
