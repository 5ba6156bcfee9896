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

import (
	"context"
	"errors"
)

var (
	// ErrNoNode is returned when the node does not exist
	ErrNoNode = errors.New("node does not exist")
	// ErrNodeExists is returned when creating a node that already exists
	ErrNodeExists = errors.New("node already exists")
	// ErrNotEmpty is returned when deleting a node that still has children
	ErrNotEmpty = errors.New("node has children")
	// ErrBadVersion is returned when the expected version does not match
	ErrBadVersion = errors.New("version conflict")
	// ErrNoChildrenForEphemerals is returned when creating a child under an ephemeral node
	ErrNoChildrenForEphemerals = errors.New("ephemeral nodes may not have children")
	// ErrSessionExpired is returned once the service has expired the session
	ErrSessionExpired = errors.New("session has expired")
	// ErrConnectionClosed is returned once the connection is closed or lost
	ErrConnectionClosed = errors.New("connection closed")
	// ErrBadArguments is returned for malformed paths, names or versions
	ErrBadArguments = errors.New("invalid arguments")
)

// Code is the outcome of an operation as reported to asynchronous callbacks
type Code int

const (
	CodeOK Code = iota
	CodeNoNode
	CodeNodeExists
	CodeNotEmpty
	CodeBadVersion
	CodeNoChildrenForEphemerals
	CodeSessionExpired
	CodeConnectionClosed
	CodeBadArguments
	CodeSystemError
)

// String returns the code name
func (c Code) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeNoNode:
		return "no_node"
	case CodeNodeExists:
		return "node_exists"
	case CodeNotEmpty:
		return "not_empty"
	case CodeBadVersion:
		return "bad_version"
	case CodeNoChildrenForEphemerals:
		return "no_children_for_ephemerals"
	case CodeSessionExpired:
		return "session_expired"
	case CodeConnectionClosed:
		return "connection_closed"
	case CodeBadArguments:
		return "bad_arguments"
	default:
		return "system_error"
	}
}

// Err returns the sentinel error matching the code. CodeOK returns nil.
func (c Code) Err() error {
	switch c {
	case CodeOK:
		return nil
	case CodeNoNode:
		return ErrNoNode
	case CodeNodeExists:
		return ErrNodeExists
	case CodeNotEmpty:
		return ErrNotEmpty
	case CodeBadVersion:
		return ErrBadVersion
	case CodeNoChildrenForEphemerals:
		return ErrNoChildrenForEphemerals
	case CodeSessionExpired:
		return ErrSessionExpired
	case CodeConnectionClosed:
		return ErrConnectionClosed
	case CodeBadArguments:
		return ErrBadArguments
	default:
		return errors.New(c.String())
	}
}

var codes = []struct {
	err  error
	code Code
}{
	{ErrNoNode, CodeNoNode},
	{ErrNodeExists, CodeNodeExists},
	{ErrNotEmpty, CodeNotEmpty},
	{ErrBadVersion, CodeBadVersion},
	{ErrNoChildrenForEphemerals, CodeNoChildrenForEphemerals},
	{ErrSessionExpired, CodeSessionExpired},
	{ErrConnectionClosed, CodeConnectionClosed},
	{ErrBadArguments, CodeBadArguments},
	{context.Canceled, CodeConnectionClosed},
}

// CodeOf maps an error returned by a Conn to its Code
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeSystemError
}
