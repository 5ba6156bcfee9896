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

package etcd

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"go.etcd.io/etcd/api/v3/mvccpb"
	"go.etcd.io/etcd/api/v3/v3rpc/rpctypes"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"
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

type conn struct {
	config  *Config
	logger  log.Logger
	client  *clientv3.Client
	session *concurrency.Session
	kv      clientv3.KV
	watcher clientv3.Watcher

	state        *atomic.Int32
	closed       *atomic.Bool
	dataWatches  mapset.Set[string]
	childWatches mapset.Set[string]
	events       *eventqueue.Queue[coordination.Event]

	// mu orders watch goroutine starts against Close
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

var _ coordination.Conn = (*conn)(nil)

func newConn(config *Config, client *clientv3.Client, session *concurrency.Session, kv clientv3.KV, watcher clientv3.Watcher) *conn {
	c := &conn{
		config:       config,
		logger:       config.Logger,
		client:       client,
		session:      session,
		kv:           kv,
		watcher:      watcher,
		state:        atomic.NewInt32(int32(coordination.StateSyncConnected)),
		closed:       atomic.NewBool(false),
		dataWatches:  mapset.NewSet[string](),
		childWatches: mapset.NewSet[string](),
		events:       eventqueue.New[coordination.Event](),
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c
}

func (c *conn) start() {
	c.events.Push(coordination.Event{Type: coordination.EventSession, State: coordination.StateSyncConnected})

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		select {
		case <-c.session.Done():
			if c.closed.Load() {
				return
			}
			c.state.Store(int32(coordination.StateExpired))
			c.logger.Warnf("etcd session %s expired", c.SessionID())
			c.events.Push(coordination.Event{Type: coordination.EventSession, State: coordination.StateExpired})
		case <-c.ctx.Done():
		}
	}()
}

// childPrefix is the key prefix shared by the descendants of path
func childPrefix(path string) string {
	if path == "/" {
		return "/"
	}
	return path + "/"
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

	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	if path == "/" {
		return true, nil
	}

	resp, err := c.kv.Get(ctx, path, clientv3.WithCountOnly())
	if err != nil {
		return false, c.translate(err)
	}

	if watch {
		c.arm(dataWatch, path, resp.Header.Revision+1)
	}
	return resp.Count > 0, nil
}

// Children implements coordination.Conn
func (c *conn) Children(ctx context.Context, path string, watch bool) ([]string, error) {
	if err := c.check(ctx, path); err != nil {
		return nil, err
	}

	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	resp, err := c.kv.Txn(ctx).Then(
		clientv3.OpGet(path, clientv3.WithCountOnly()),
		clientv3.OpGet(childPrefix(path), clientv3.WithPrefix(), clientv3.WithKeysOnly()),
	).Commit()
	if err != nil {
		return nil, c.translate(err)
	}

	if path != "/" && resp.Responses[0].GetResponseRange().GetCount() == 0 {
		return nil, coordination.ErrNoNode
	}

	children := mapset.NewThreadUnsafeSet[string]()
	for _, kv := range resp.Responses[1].GetResponseRange().GetKvs() {
		if name, ok := directChild(path, string(kv.Key)); ok {
			children.Add(name)
		}
	}

	if watch {
		c.arm(childWatch, path, resp.Header.Revision+1)
	}

	names := children.ToSlice()
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

	parent := coordination.Parent(path)
	cmps := []clientv3.Cmp{clientv3.Compare(clientv3.CreateRevision(path), "=", 0)}
	if parent != "/" {
		cmps = append(cmps,
			clientv3.Compare(clientv3.CreateRevision(parent), ">", 0),
			clientv3.Compare(clientv3.LeaseValue(parent), "=", clientv3.NoLease))
	}

	var opts []clientv3.OpOption
	if mode == coordination.Ephemeral {
		opts = append(opts, clientv3.WithLease(c.session.Lease()))
	}

	resp, err := c.kv.Txn(ctx).
		If(cmps...).
		Then(clientv3.OpPut(path, string(data), opts...)).
		Else(
			clientv3.OpGet(path, clientv3.WithCountOnly()),
			clientv3.OpGet(parent),
		).Commit()
	if err != nil {
		return "", c.translate(err)
	}

	if resp.Succeeded {
		return path, nil
	}

	if resp.Responses[0].GetResponseRange().GetCount() > 0 {
		return "", coordination.ErrNodeExists
	}

	parents := resp.Responses[1].GetResponseRange().GetKvs()
	if len(parents) == 0 {
		return "", coordination.ErrNoNode
	}
	if parents[0].Lease != int64(clientv3.NoLease) {
		return "", coordination.ErrNoChildrenForEphemerals
	}
	return "", fmt.Errorf("create %s: transaction failed", path)
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

	cmps := []clientv3.Cmp{
		clientv3.Compare(clientv3.CreateRevision(path), ">", 0),
		clientv3.Compare(clientv3.CreateRevision(childPrefix(path)), "=", 0).WithPrefix(),
	}
	if version != coordination.AnyVersion {
		// etcd counts versions from 1
		cmps = append(cmps, clientv3.Compare(clientv3.Version(path), "=", int64(version)+1))
	}

	resp, err := c.kv.Txn(ctx).
		If(cmps...).
		Then(clientv3.OpDelete(path)).
		Else(
			clientv3.OpGet(path, clientv3.WithCountOnly()),
			clientv3.OpGet(childPrefix(path), clientv3.WithPrefix(), clientv3.WithCountOnly()),
		).Commit()
	if err != nil {
		return c.translate(err)
	}

	switch {
	case resp.Succeeded:
		return nil
	case resp.Responses[0].GetResponseRange().GetCount() == 0:
		return coordination.ErrNoNode
	case resp.Responses[1].GetResponseRange().GetCount() > 0:
		return coordination.ErrNotEmpty
	default:
		return coordination.ErrBadVersion
	}
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
	return fmt.Sprintf("%x", int64(c.session.Lease()))
}

// Close implements coordination.Conn
func (c *conn) Close() error {
	var err error
	c.once.Do(func() {
		c.mu.Lock()
		c.closed.Store(true)
		c.state.Store(int32(coordination.StateClosed))
		c.mu.Unlock()

		// revoking the lease removes the ephemeral nodes
		err = errors.Join(err, c.session.Close())
		c.cancel()
		err = errors.Join(err, c.client.Close())
		c.wg.Wait()
		c.events.Close()
		c.logger.Debugf("etcd session %s closed", c.SessionID())
	})
	return err
}

// arm starts a one-shot watch unless one of the same kind is armed on path
func (c *conn) arm(kind watchKind, path string, revision int64) {
	watches := c.dataWatches
	opts := []clientv3.OpOption{clientv3.WithRev(revision)}
	if kind == childWatch {
		watches = c.childWatches
		if path == "/" {
			opts = append(opts, clientv3.WithPrefix())
		} else {
			// the node itself and everything below it
			opts = append(opts, clientv3.WithRange(path+"0"))
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed.Load() || !watches.Add(path) {
		return
	}

	ctx, cancel := context.WithCancel(c.ctx)
	watchChan := c.watcher.Watch(ctx, path, opts...)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()

		for resp := range watchChan {
			if err := resp.Err(); err != nil || resp.Canceled {
				c.dropped(watches, path, err)
				return
			}

			for _, ev := range resp.Events {
				if eventType, ok := match(kind, path, ev); ok {
					// released before delivery so that an observer can re-arm
					watches.Remove(path)
					c.events.Push(coordination.Event{Type: eventType, State: c.State(), Path: path})
					return
				}
			}
		}
		c.dropped(watches, path, nil)
	}()
}

// dropped releases a watch that ended without a node event
func (c *conn) dropped(watches mapset.Set[string], path string, err error) {
	watches.Remove(path)
	if c.closed.Load() {
		return
	}
	c.logger.Warnf("etcd watch on %s dropped: %v", path, err)
	c.events.Push(coordination.Event{Type: coordination.EventNotWatching, State: c.State(), Path: path})
}

// match translates a watch event observed for the watch of kind on path
func match(kind watchKind, path string, ev *clientv3.Event) (coordination.EventType, bool) {
	eventKey := string(ev.Kv.Key)
	if eventKey == path {
		switch {
		case ev.Type == mvccpb.DELETE:
			return coordination.EventNodeDeleted, true
		case kind == dataWatch && ev.IsCreate():
			return coordination.EventNodeCreated, true
		case kind == dataWatch:
			return coordination.EventNodeDataChanged, true
		}
		return 0, false
	}

	if kind == childWatch {
		if _, ok := directChild(path, eventKey); ok && (ev.Type == mvccpb.DELETE || ev.IsCreate()) {
			return coordination.EventNodeChildrenChanged, true
		}
	}
	return 0, false
}

// directChild returns the child name when k is a direct child of path
func directChild(path, k string) (string, bool) {
	prefix := childPrefix(path)
	if !strings.HasPrefix(k, prefix) {
		return "", false
	}
	name := strings.TrimPrefix(k, prefix)
	if name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}

func (c *conn) translate(err error) error {
	switch {
	case c.closed.Load():
		return coordination.ErrConnectionClosed
	case errors.Is(err, rpctypes.ErrLeaseNotFound):
		return fmt.Errorf("%w: %w", coordination.ErrSessionExpired, err)
	}
	return err
}
