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

// Package coordination defines the contract groupwatch expects from a
// hierarchical, watch-capable, session-oriented coordination service.
//
// Nodes form a tree addressed by slash-separated absolute paths. A node is
// either persistent or ephemeral; ephemeral nodes belong to the session that
// created them and disappear with it. Watches are one-shot: a watch delivers
// at most one event and must be armed again to keep observing a node.
package coordination

import (
	"context"
	"time"
)

// AnyVersion matches every node version on Delete
const AnyVersion int32 = -1

// CreateMode defines the lifetime of a created node
type CreateMode int

const (
	// Persistent nodes live until explicitly deleted
	Persistent CreateMode = iota
	// Ephemeral nodes are removed when the creating session ends
	Ephemeral
)

// String returns the name of the mode
func (m CreateMode) String() string {
	switch m {
	case Persistent:
		return "persistent"
	case Ephemeral:
		return "ephemeral"
	default:
		return "unknown"
	}
}

// Conn is a live session with a coordination service.
// All methods are safe for concurrent use.
type Conn interface {
	// Exists reports whether the node at path exists. A missing node is not an error.
	// With watch set, a one-shot data watch is armed on path even when the node is absent.
	Exists(ctx context.Context, path string, watch bool) (bool, error)
	// Children returns the names of the direct children of path.
	// It returns ErrNoNode when path does not exist, in which case no watch is armed.
	Children(ctx context.Context, path string, watch bool) ([]string, error)
	// Create creates a node and returns its path
	Create(ctx context.Context, path string, data []byte, mode CreateMode) (string, error)
	// Delete removes a childless node whose version matches, or any version with AnyVersion
	Delete(ctx context.Context, path string, version int32) error
	// Events returns the ordered stream of session and watch events.
	// The channel is closed once the connection is closed.
	Events() <-chan Event
	// State returns the current session state
	State() State
	// SessionID returns the service assigned session identifier
	SessionID() string
	// Close ends the session. Ephemeral nodes owned by the session are removed.
	Close() error
}

// Driver opens connections to one kind of coordination service
type Driver interface {
	// Name returns the driver name
	Name() string
	// Dial opens a new session. The returned connection may still be connecting;
	// readiness is signalled on the event stream.
	Dial(ctx context.Context, endpoints []string, sessionTimeout time.Duration) (Conn, error)
}
