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

package coordination

// EventType defines the kind of event delivered on a connection's stream
type EventType int

const (
	// EventSession is a session state change. It carries no path.
	EventSession EventType = iota
	// EventNodeCreated fires a data watch when the node is created
	EventNodeCreated
	// EventNodeDeleted fires data and children watches when the node is deleted
	EventNodeDeleted
	// EventNodeDataChanged fires a data watch when the node data changes
	EventNodeDataChanged
	// EventNodeChildrenChanged fires a children watch when a direct child is created or deleted
	EventNodeChildrenChanged
	// EventNotWatching reports that the service dropped a watch without a node event.
	// Observers should re-check the path.
	EventNotWatching
)

// String returns the event type name
func (t EventType) String() string {
	switch t {
	case EventSession:
		return "session"
	case EventNodeCreated:
		return "node_created"
	case EventNodeDeleted:
		return "node_deleted"
	case EventNodeDataChanged:
		return "node_data_changed"
	case EventNodeChildrenChanged:
		return "node_children_changed"
	case EventNotWatching:
		return "not_watching"
	default:
		return "unknown"
	}
}

// State defines the state of a session
type State int

const (
	StateUnknown State = iota
	StateDisconnected
	StateSyncConnected
	StateExpired
	StateClosed
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateSyncConnected:
		return "sync_connected"
	case StateExpired:
		return "expired"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event is a session or watch notification.
// Session events have an empty Path.
type Event struct {
	Type  EventType
	State State
	Path  string
}

// Watcher receives events from a session
type Watcher interface {
	Process(event Event)
}

// WatcherFunc adapts a function to a Watcher
type WatcherFunc func(event Event)

var _ Watcher = WatcherFunc(nil)

// Process calls f(event)
func (f WatcherFunc) Process(event Event) {
	f(event)
}
