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

package validation

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/groupwatch/coordination"
)

func TestEndpointValidator(t *testing.T) {
	t.Run("With host and port", func(t *testing.T) {
		require.NoError(t, NewEndpointValidator("127.0.0.1:2181").Validate())
	})
	t.Run("With scheme", func(t *testing.T) {
		require.NoError(t, NewEndpointValidator("http://localhost:2379").Validate())
	})
	t.Run("With missing port", func(t *testing.T) {
		err := NewEndpointValidator("localhost").Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid endpoint=(localhost)")
	})
	t.Run("With invalid port", func(t *testing.T) {
		require.Error(t, NewEndpointValidator("localhost:99999").Validate())
		require.Error(t, NewEndpointValidator("localhost:abc").Validate())
	})
	t.Run("With empty host", func(t *testing.T) {
		require.Error(t, NewEndpointValidator(":2181").Validate())
	})
}

func TestEndpointsValidator(t *testing.T) {
	require.NoError(t, NewEndpointsValidator([]string{"127.0.0.1:2181", "127.0.0.2:2181"}).Validate())
	require.EqualError(t, NewEndpointsValidator(nil).Validate(), "at least one endpoint is required")
	require.Error(t, NewEndpointsValidator([]string{"127.0.0.1:2181", "bad"}).Validate())
}

func TestEmptyStringValidator(t *testing.T) {
	require.NoError(t, NewEmptyStringValidator("namespace", "/groupwatch").Validate())
	require.EqualError(t, NewEmptyStringValidator("namespace", "  ").Validate(), "the [namespace] is required")
}

func TestPatternValidator(t *testing.T) {
	lowercase := regexp.MustCompile(`^[a-z]+$`)
	require.NoError(t, NewPatternValidator("namespace", lowercase, "groups").Validate())
	require.EqualError(t, NewPatternValidator("namespace", lowercase, "Groups!").Validate(),
		`the [namespace] is invalid: "Groups!" does not match ^[a-z]+$`)
}

func TestNameValidator(t *testing.T) {
	require.NoError(t, NewNameValidator("group", "Foo").Validate())
	err := NewNameValidator("member", "a/b").Validate()
	require.ErrorIs(t, err, coordination.ErrBadArguments)
	assert.Contains(t, err.Error(), "the [member] is invalid")
}

func TestPathValidator(t *testing.T) {
	require.NoError(t, NewPathValidator("path", "/Foo/Bar").Validate())
	err := NewPathValidator("path", "Foo").Validate()
	require.ErrorIs(t, err, coordination.ErrBadArguments)
	assert.Contains(t, err.Error(), "the [path] is invalid")
}
