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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	testcontainer "github.com/testcontainers/testcontainers-go/modules/etcd"

	"github.com/tochemey/groupwatch/coordination"
	"github.com/tochemey/groupwatch/log"
	"github.com/tochemey/groupwatch/testkit"
)

func TestLeaseTTL(t *testing.T) {
	assert.Equal(t, 1, leaseTTL(0))
	assert.Equal(t, 1, leaseTTL(200*time.Millisecond))
	assert.Equal(t, 2, leaseTTL(1500*time.Millisecond))
	assert.Equal(t, 10, leaseTTL(10*time.Second))
}

func TestDriver(t *testing.T) {
	cluster := startEtcdCluster(t)
	endpoints, err := cluster.ClientEndpoints(t.Context())
	require.NoError(t, err)

	t.Run("Conformance", func(t *testing.T) {
		driver := NewDriver(&Config{Namespace: "/conformance", Logger: log.DiscardLogger})
		assert.Equal(t, "etcd", driver.Name())
		testkit.New(t, driver, endpoints, testkit.WithSessionTimeout(5*time.Second)).RunConformance()
	})
	t.Run("With no endpoints", func(t *testing.T) {
		_, err := NewDriver(nil).Dial(t.Context(), nil, time.Second)
		require.Error(t, err)
		assert.ErrorIs(t, err, coordination.ErrBadArguments)
	})
	t.Run("With namespaces isolated", func(t *testing.T) {
		ctx := context.TODO()
		left := testkit.New(t, NewDriver(&Config{Namespace: "/left"}), endpoints).Dial(ctx)
		right := testkit.New(t, NewDriver(&Config{Namespace: "/right"}), endpoints).Dial(ctx)

		_, err := left.Create(ctx, "/isolated", nil, coordination.Persistent)
		require.NoError(t, err)
		t.Cleanup(func() { _ = left.Delete(context.Background(), "/isolated", coordination.AnyVersion) })

		exists, err := right.Exists(ctx, "/isolated", false)
		require.NoError(t, err)
		assert.False(t, exists)
	})
	t.Run("With version check on delete", func(t *testing.T) {
		ctx := context.TODO()
		kit := testkit.New(t, NewDriver(nil), endpoints)
		probe := kit.Dial(ctx)
		root := kit.Root(ctx, probe)

		node := coordination.Join(root, "node")
		_, err := probe.Create(ctx, node, nil, coordination.Persistent)
		require.NoError(t, err)

		assert.ErrorIs(t, probe.Delete(ctx, node, 3), coordination.ErrBadVersion)
		require.NoError(t, probe.Delete(ctx, node, 0))
	})
	t.Run("With operations after close", func(t *testing.T) {
		ctx := context.TODO()
		conn, err := NewDriver(nil).Dial(ctx, endpoints, 5*time.Second)
		require.NoError(t, err)
		require.NotEmpty(t, conn.SessionID())
		require.NoError(t, conn.Close())

		assert.Equal(t, coordination.StateClosed, conn.State())
		_, err = conn.Exists(ctx, "/", false)
		assert.ErrorIs(t, err, coordination.ErrConnectionClosed)

		// drain until the stream is closed
		for range conn.Events() {
		}
	})
}

func startEtcdCluster(t *testing.T) *testcontainer.EtcdContainer {
	t.Helper()
	etcdContainer, err := testcontainer.Run(
		t.Context(),
		"gcr.io/etcd-development/etcd:v3.5.14",
		testcontainer.WithNodes("etcd-1", "etcd-2", "etcd-3"),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		err := testcontainers.TerminateContainer(etcdContainer)
		require.NoError(t, err)
	})
	return etcdContainer
}
