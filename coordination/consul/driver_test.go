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
	"testing"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/hashicorp/consul/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testcontainer "github.com/testcontainers/testcontainers-go/modules/consul"

	"github.com/tochemey/groupwatch/coordination"
	"github.com/tochemey/groupwatch/log"
	"github.com/tochemey/groupwatch/testkit"
)

func TestConfig(t *testing.T) {
	t.Run("With defaults", func(t *testing.T) {
		config := new(Config)
		config.Sanitize()
		require.NoError(t, config.Validate())
		assert.Equal(t, defaultNamespace, config.Namespace)
		assert.Equal(t, defaultWaitTime, config.WaitTime)
		assert.Equal(t, defaultLockDelay, config.LockDelay)
		assert.Equal(t, defaultRequestTimeout, config.RequestTimeout)
		assert.Equal(t, defaultMaxRetries, config.MaxRetries)
		assert.Equal(t, log.DiscardLogger, config.Logger)
	})
	t.Run("With slashes trimmed", func(t *testing.T) {
		config := &Config{Namespace: "/apps/"}
		config.Sanitize()
		require.NoError(t, config.Validate())
		assert.Equal(t, "apps", config.Namespace)
	})
	t.Run("With empty namespace segment", func(t *testing.T) {
		config := &Config{Namespace: "apps//groups"}
		config.Sanitize()
		err := config.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "the [Namespace] is invalid")
	})
	t.Run("With unsanitized config", func(t *testing.T) {
		config := &Config{Namespace: "apps"}
		assert.Error(t, config.Validate())
	})
}

func TestSessionTTL(t *testing.T) {
	assert.Equal(t, 10*time.Second, sessionTTL(time.Second))
	assert.Equal(t, 10*time.Second, sessionTTL(0))
	assert.Equal(t, 30*time.Second, sessionTTL(30*time.Second))
	assert.Equal(t, 16*time.Second, sessionTTL(15600*time.Millisecond))
}

func TestChanged(t *testing.T) {
	absent := &view{}
	present := &view{exists: true, createIndex: 1, modifyIndex: 1}

	eventType, ok := changed(dataWatch, absent, present)
	require.True(t, ok)
	assert.Equal(t, coordination.EventNodeCreated, eventType)

	eventType, ok = changed(dataWatch, present, absent)
	require.True(t, ok)
	assert.Equal(t, coordination.EventNodeDeleted, eventType)

	eventType, ok = changed(dataWatch, present, &view{exists: true, createIndex: 4, modifyIndex: 4})
	require.True(t, ok)
	assert.Equal(t, coordination.EventNodeDeleted, eventType)

	eventType, ok = changed(dataWatch, present, &view{exists: true, createIndex: 1, modifyIndex: 3})
	require.True(t, ok)
	assert.Equal(t, coordination.EventNodeDataChanged, eventType)

	_, ok = changed(dataWatch, present, present)
	assert.False(t, ok)

	parent := &view{exists: true, children: mapset.NewThreadUnsafeSet("a")}
	_, ok = changed(childWatch, parent, &view{exists: true, children: mapset.NewThreadUnsafeSet("a")})
	assert.False(t, ok)

	eventType, ok = changed(childWatch, parent, &view{exists: true, children: mapset.NewThreadUnsafeSet("a", "b")})
	require.True(t, ok)
	assert.Equal(t, coordination.EventNodeChildrenChanged, eventType)
}

func TestDriver(t *testing.T) {
	agent := startConsulAgent(t)
	endpoint, err := agent.ApiEndpoint(t.Context())
	require.NoError(t, err)
	require.NotEmpty(t, endpoint)

	t.Run("Conformance", func(t *testing.T) {
		driver := NewDriver(&Config{Namespace: "conformance", WaitTime: 5 * time.Second})
		assert.Equal(t, "consul", driver.Name())
		testkit.New(t, driver, []string{endpoint}).RunConformance()
	})
	t.Run("With no endpoints", func(t *testing.T) {
		_, err := NewDriver(nil).Dial(t.Context(), nil, time.Second)
		require.Error(t, err)
		assert.ErrorIs(t, err, coordination.ErrBadArguments)
	})
	t.Run("With version check on delete", func(t *testing.T) {
		ctx := context.TODO()
		kit := testkit.New(t, NewDriver(nil), []string{endpoint})
		probe := kit.Dial(ctx)
		root := kit.Root(ctx, probe)

		node := coordination.Join(root, "node")
		_, err := probe.Create(ctx, node, nil, coordination.Persistent)
		require.NoError(t, err)

		assert.ErrorIs(t, probe.Delete(ctx, node, 3), coordination.ErrBadVersion)
		require.NoError(t, probe.Delete(ctx, node, 0))
	})
	t.Run("With session destroyed by the agent", func(t *testing.T) {
		ctx := context.TODO()
		kit := testkit.New(t, NewDriver(nil), []string{endpoint}, testkit.WithEventTimeout(20*time.Second))
		owner := kit.Dial(ctx)
		observer := kit.Dial(ctx)
		root := kit.Root(ctx, observer)

		member := coordination.Join(root, "member")
		_, err := owner.Create(ctx, member, nil, coordination.Ephemeral)
		require.NoError(t, err)

		exists, err := observer.Exists(ctx, member, true)
		require.NoError(t, err)
		require.True(t, exists)

		client, err := api.NewClient(&api.Config{Address: endpoint})
		require.NoError(t, err)
		_, err = client.Session().Destroy(owner.SessionID(), nil)
		require.NoError(t, err)

		observer.ExpectEvent(coordination.EventNodeDeleted, member)
		owner.ExpectState(coordination.StateExpired)

		_, err = owner.Exists(ctx, member, false)
		assert.ErrorIs(t, err, coordination.ErrSessionExpired)
	})
}

func startConsulAgent(t *testing.T) *testcontainer.ConsulContainer {
	t.Helper()
	consulContainer, err := testcontainer.Run(t.Context(), "hashicorp/consul:1.15")
	require.NoError(t, err)
	t.Cleanup(func() {
		err := consulContainer.Terminate(context.Background())
		require.NoError(t, err)
	})
	return consulContainer
}
