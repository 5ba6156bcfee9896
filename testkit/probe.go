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

package testkit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tochemey/groupwatch/coordination"
)

// Probe reads the event stream of a connection
type Probe struct {
	coordination.Conn
	pt      *testing.T
	timeout time.Duration
}

func newProbe(t *testing.T, conn coordination.Conn, timeout time.Duration) *Probe {
	return &Probe{Conn: conn, pt: t, timeout: timeout}
}

// ExpectState waits for a session event with the given state. Node events
// received meanwhile are discarded.
func (p *Probe) ExpectState(state coordination.State) {
	p.pt.Helper()
	deadline := time.After(p.timeout)
	for {
		select {
		case event, ok := <-p.Events():
			require.True(p.pt, ok, "event stream closed")
			if event.Type == coordination.EventSession && event.State == state {
				return
			}
		case <-deadline:
			p.pt.Fatalf("timed out waiting for session state %s", state)
			return
		}
	}
}

// ExpectEvent waits for the next node event and asserts it. Session events are skipped.
func (p *Probe) ExpectEvent(eventType coordination.EventType, path string) {
	p.pt.Helper()
	event, ok := p.next(p.timeout)
	require.True(p.pt, ok, "timed out waiting for %s on %s", eventType, path)
	require.Equal(p.pt, eventType, event.Type, "path %s", event.Path)
	require.Equal(p.pt, path, event.Path)
}

// ExpectNoEvent asserts that no node event arrives within duration
func (p *Probe) ExpectNoEvent(duration time.Duration) {
	p.pt.Helper()
	if event, ok := p.next(duration); ok {
		p.pt.Fatalf("unexpected %s event on %s", event.Type, event.Path)
	}
}

func (p *Probe) next(timeout time.Duration) (coordination.Event, bool) {
	deadline := time.After(timeout)
	for {
		select {
		case event, ok := <-p.Events():
			if !ok {
				return coordination.Event{}, false
			}
			if event.Type == coordination.EventSession {
				continue
			}
			return event, true
		case <-deadline:
			return coordination.Event{}, false
		}
	}
}
