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
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/groupwatch/coordination"
)

const quietPeriod = 500 * time.Millisecond

// RunConformance checks the driver against the coordination contract
func (k *TestKit) RunConformance() {
	t := k.kt
	ctx := context.Background()

	t.Run("create and read", func(t *testing.T) {
		conn := k.Dial(ctx)
		root := k.Root(ctx, conn)
		group := coordination.Join(root, "group")

		created, err := conn.Create(ctx, group, []byte("payload"), coordination.Persistent)
		require.NoError(t, err)
		assert.Equal(t, group, created)
		for _, member := range []string{"b", "a"} {
			_, err = conn.Create(ctx, coordination.Join(group, member), nil, coordination.Ephemeral)
			require.NoError(t, err)
		}

		exists, err := conn.Exists(ctx, group, false)
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = conn.Exists(ctx, coordination.Join(root, "missing"), false)
		require.NoError(t, err)
		assert.False(t, exists)

		children, err := conn.Children(ctx, group, false)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a", "b"}, children)

		children, err = conn.Children(ctx, coordination.Join(group, "a"), false)
		require.NoError(t, err)
		assert.Empty(t, children)

		_, err = conn.Children(ctx, coordination.Join(root, "missing"), false)
		require.ErrorIs(t, err, coordination.ErrNoNode)
	})

	t.Run("create errors", func(t *testing.T) {
		conn := k.Dial(ctx)
		root := k.Root(ctx, conn)
		member := coordination.Join(root, "member")
		_, err := conn.Create(ctx, member, nil, coordination.Ephemeral)
		require.NoError(t, err)

		_, err = conn.Create(ctx, member, nil, coordination.Ephemeral)
		require.ErrorIs(t, err, coordination.ErrNodeExists)
		_, err = conn.Create(ctx, coordination.Join(root, "missing", "member"), nil, coordination.Persistent)
		require.ErrorIs(t, err, coordination.ErrNoNode)
		_, err = conn.Create(ctx, coordination.Join(member, "child"), nil, coordination.Persistent)
		require.ErrorIs(t, err, coordination.ErrNoChildrenForEphemerals)
	})

	t.Run("delete errors", func(t *testing.T) {
		conn := k.Dial(ctx)
		root := k.Root(ctx, conn)
		group := coordination.Join(root, "group")
		_, err := conn.Create(ctx, group, nil, coordination.Persistent)
		require.NoError(t, err)
		_, err = conn.Create(ctx, coordination.Join(group, "member"), nil, coordination.Ephemeral)
		require.NoError(t, err)

		require.ErrorIs(t, conn.Delete(ctx, group, coordination.AnyVersion), coordination.ErrNotEmpty)
		require.ErrorIs(t, conn.Delete(ctx, coordination.Join(group, "member"), 7), coordination.ErrBadVersion)
		require.NoError(t, conn.Delete(ctx, coordination.Join(group, "member"), 0))
		require.ErrorIs(t, conn.Delete(ctx, coordination.Join(group, "member"), coordination.AnyVersion), coordination.ErrNoNode)
		require.NoError(t, conn.Delete(ctx, group, coordination.AnyVersion))
	})

	t.Run("data watch fires when the node is created", func(t *testing.T) {
		creator := k.Dial(ctx)
		observer := k.Dial(ctx)
		root := k.Root(ctx, creator)
		path := coordination.Join(root, "late")

		exists, err := observer.Exists(ctx, path, true)
		require.NoError(t, err)
		require.False(t, exists)

		_, err = creator.Create(ctx, path, nil, coordination.Persistent)
		require.NoError(t, err)
		observer.ExpectEvent(coordination.EventNodeCreated, path)
	})

	t.Run("children watch fires once per arming", func(t *testing.T) {
		creator := k.Dial(ctx)
		observer := k.Dial(ctx)
		root := k.Root(ctx, creator)

		_, err := observer.Children(ctx, root, true)
		require.NoError(t, err)
		_, err = observer.Children(ctx, root, true)
		require.NoError(t, err)

		_, err = creator.Create(ctx, coordination.Join(root, "a"), nil, coordination.Ephemeral)
		require.NoError(t, err)
		observer.ExpectEvent(coordination.EventNodeChildrenChanged, root)

		_, err = creator.Create(ctx, coordination.Join(root, "b"), nil, coordination.Ephemeral)
		require.NoError(t, err)
		observer.ExpectNoEvent(quietPeriod)
	})

	t.Run("children watch fires when the node is deleted", func(t *testing.T) {
		creator := k.Dial(ctx)
		observer := k.Dial(ctx)
		root := k.Root(ctx, creator)
		member := coordination.Join(root, "member")
		_, err := creator.Create(ctx, member, nil, coordination.Ephemeral)
		require.NoError(t, err)

		_, err = observer.Children(ctx, member, true)
		require.NoError(t, err)
		require.NoError(t, creator.Delete(ctx, member, coordination.AnyVersion))
		observer.ExpectEvent(coordination.EventNodeDeleted, member)
	})

	t.Run("ephemeral nodes end with their session", func(t *testing.T) {
		owner := k.Dial(ctx)
		observer := k.Dial(ctx)
		root := k.Root(ctx, observer)
		member := coordination.Join(root, "member")
		_, err := owner.Create(ctx, member, nil, coordination.Ephemeral)
		require.NoError(t, err)

		_, err = observer.Children(ctx, member, true)
		require.NoError(t, err)
		require.NoError(t, owner.Close())
		require.NoError(t, owner.Close())

		observer.ExpectEvent(coordination.EventNodeDeleted, member)
		exists, err := observer.Exists(ctx, member, false)
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = owner.Exists(ctx, member, false)
		require.Error(t, err)
	})
}
