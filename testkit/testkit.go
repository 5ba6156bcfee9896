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

// Package testkit helps testing coordination drivers: it dials connections,
// probes their event streams and runs the conformance suite every driver
// must pass.
package testkit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/groupwatch/coordination"
	"github.com/tochemey/groupwatch/log"
)

// TestKit dials a coordination service for tests
type TestKit struct {
	kt             *testing.T
	driver         coordination.Driver
	endpoints      []string
	sessionTimeout time.Duration
	eventTimeout   time.Duration
	logger         log.Logger
}

// New creates an instance of TestKit
func New(t *testing.T, driver coordination.Driver, endpoints []string, opts ...Option) *TestKit {
	testkit := &TestKit{
		kt:             t,
		driver:         driver,
		endpoints:      endpoints,
		sessionTimeout: 10 * time.Second,
		eventTimeout:   10 * time.Second,
		logger:         log.DiscardLogger,
	}
	for _, opt := range opts {
		opt.Apply(testkit)
	}
	return testkit
}

// Dial opens a connection and waits for it to be connected.
// The connection is closed when the test ends.
func (k *TestKit) Dial(ctx context.Context) *Probe {
	k.kt.Helper()
	conn, err := k.driver.Dial(ctx, k.endpoints, k.sessionTimeout)
	require.NoError(k.kt, err)
	k.kt.Cleanup(func() { _ = conn.Close() })

	probe := newProbe(k.kt, conn, k.eventTimeout)
	probe.ExpectState(coordination.StateSyncConnected)
	k.logger.Debugf("%s session %s connected", k.driver.Name(), conn.SessionID())
	return probe
}

// Root creates a fresh persistent node under which a test can work.
// The whole subtree is removed when the test ends.
func (k *TestKit) Root(ctx context.Context, conn coordination.Conn) string {
	k.kt.Helper()
	root := coordination.Join("testkit-" + uuid.NewString())
	_, err := conn.Create(ctx, root, nil, coordination.Persistent)
	require.NoError(k.kt, err)
	k.kt.Cleanup(func() {
		if err := DeleteTree(context.Background(), conn, root); err != nil {
			k.logger.Warnf("failed to remove %s: %v", root, err)
		}
	})
	return root
}

// DeleteTree removes path and everything below it
func DeleteTree(ctx context.Context, conn coordination.Conn, path string) error {
	children, err := conn.Children(ctx, path, false)
	if errors.Is(err, coordination.ErrNoNode) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, child := range children {
		if err := DeleteTree(ctx, conn, coordination.Join(path, child)); err != nil {
			return err
		}
	}

	if err := conn.Delete(ctx, path, coordination.AnyVersion); err != nil && !errors.Is(err, coordination.ErrNoNode) {
		return err
	}
	return nil
}
