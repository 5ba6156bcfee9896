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

// Package group manages groups and their members on a coordination service.
//
// A group is a persistent node directly under the root. A member is an
// ephemeral node under its group, owned by the session of the Registry that
// created it: the member vanishes when that session ends, gracefully or not.
//
// Reads are synchronous. Mutations are asynchronous: they return at once and
// their outcome is logged and reported on the returned future, which callers
// are free to ignore.
package group

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/tochemey/groupwatch/coordination"
	gerrors "github.com/tochemey/groupwatch/errors"
	"github.com/tochemey/groupwatch/internal/future"
	imetric "github.com/tochemey/groupwatch/internal/metric"
	"github.com/tochemey/groupwatch/internal/validation"
	"github.com/tochemey/groupwatch/log"
	"github.com/tochemey/groupwatch/session"
)

const (
	opCreate       = "create"
	opJoin         = "join"
	opDelete       = "delete"
	opDeleteMember = "delete_member"
)

// Registry creates, joins, lists and deletes groups through a session
type Registry struct {
	session        *session.Session
	logger         log.Logger
	meterProvider  metric.MeterProvider
	metric         *imetric.RegistryMetric
	requestTimeout time.Duration
	parallelism    int
}

// NewRegistry creates a Registry bound to the given session
func NewRegistry(s *session.Session, opts ...Option) (*Registry, error) {
	if s == nil {
		return nil, gerrors.NewErrInvalidArgument("session", nil)
	}

	registry := &Registry{
		session:        s,
		logger:         log.DefaultLogger,
		requestTimeout: DefaultRequestTimeout,
		parallelism:    DefaultParallelism,
	}
	for _, opt := range opts {
		opt.Apply(registry)
	}

	provider := imetric.New(imetric.WithMeterProvider(registry.meterProvider))
	registryMetric, err := imetric.NewRegistryMetric(provider.Meter())
	if err != nil {
		return nil, err
	}
	registry.metric = registryMetric
	return registry, nil
}

// GroupExists reports whether the group exists.
// Failures to reach the service are logged and answered with false; the
// error is reserved for an invalid name.
func (r *Registry) GroupExists(ctx context.Context, name string) (bool, error) {
	if err := validateNames(name); err != nil {
		return false, err
	}

	path := coordination.Join(name)
	exists, err := r.session.Exists(ctx, path, false)
	if err != nil {
		r.logger.Warnf("failed to check group=(%s): %v", name, err)
		return false, nil
	}
	return exists, nil
}

// Create creates the group as a persistent node
func (r *Registry) Create(name string) (future.Future[coordination.Code], error) {
	if err := validateNames(name); err != nil {
		return nil, err
	}

	promise := future.NewPromise[coordination.Code]()
	r.session.CreateAsync(coordination.Join(name), nil, coordination.Persistent, func(code coordination.Code, path, _ string) {
		r.complete(promise, opCreate, code, path)
	})
	return promise.Future(), nil
}

// Join adds member to the group. The member lives as long as the registry's session.
func (r *Registry) Join(group, member string) (future.Future[coordination.Code], error) {
	return r.JoinWithData(group, member, nil)
}

// JoinWithData adds member to the group with a payload such as its address
func (r *Registry) JoinWithData(group, member string, data []byte) (future.Future[coordination.Code], error) {
	if err := validateNames(group, member); err != nil {
		return nil, err
	}

	promise := future.NewPromise[coordination.Code]()
	r.session.CreateAsync(coordination.Join(group, member), data, coordination.Ephemeral, func(code coordination.Code, path, _ string) {
		r.complete(promise, opJoin, code, path)
	})
	return promise.Future(), nil
}

// List returns the sorted member names of the group.
// A missing group has no members. Other failures are logged and answered
// with no members; the error is reserved for an invalid name.
func (r *Registry) List(ctx context.Context, group string) ([]string, error) {
	if err := validateNames(group); err != nil {
		return nil, err
	}

	members, err := r.session.Children(ctx, coordination.Join(group), false)
	switch {
	case errors.Is(err, coordination.ErrNoNode):
		r.logger.Debugf("group=(%s) does not exist", group)
		return []string{}, nil
	case err != nil:
		r.logger.Warnf("failed to list group=(%s): %v", group, err)
		return []string{}, nil
	}

	slices.Sort(members)
	return members, nil
}

// Delete removes every member of the group and then the group itself.
// The steps run once the asynchronous member listing completes. A member or
// group already gone counts as deleted. The delete is not atomic: a member
// joining meanwhile makes the final step fail with coordination.CodeNotEmpty.
func (r *Registry) Delete(group string) (future.Future[coordination.Code], error) {
	if err := validateNames(group); err != nil {
		return nil, err
	}

	promise := future.NewPromise[coordination.Code]()
	r.session.ChildrenAsync(coordination.Join(group), false, func(code coordination.Code, path string, members []string) {
		switch code {
		case coordination.CodeOK:
			r.complete(promise, opDelete, r.cascade(path, members), path)
		case coordination.CodeNoNode:
			r.complete(promise, opDelete, coordination.CodeOK, path)
		default:
			r.complete(promise, opDelete, code, path)
		}
	})
	return promise.Future(), nil
}

// DeleteMember removes a single member from the group
func (r *Registry) DeleteMember(group, member string) (future.Future[coordination.Code], error) {
	if err := validateNames(group, member); err != nil {
		return nil, err
	}

	promise := future.NewPromise[coordination.Code]()
	r.session.DeleteAsync(coordination.Join(group, member), coordination.AnyVersion, func(code coordination.Code, path string) {
		r.complete(promise, opDeleteMember, code, path)
	})
	return promise.Future(), nil
}

func (r *Registry) cascade(path string, members []string) coordination.Code {
	ctx, cancel := context.WithTimeout(context.Background(), r.requestTimeout)
	defer cancel()

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.parallelism)
	for _, member := range members {
		memberPath := coordination.Join(path, member)
		eg.Go(func() error {
			if err := r.deleteNode(egCtx, memberPath); err != nil {
				return fmt.Errorf("failed to delete member=(%s): %w", memberPath, err)
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		r.logger.Error(err)
		return codeOf(err)
	}

	if err := r.deleteNode(ctx, path); err != nil {
		if errors.Is(err, coordination.ErrNotEmpty) {
			r.logger.Warnf("group=(%s) gained members while being deleted", path)
		}
		return codeOf(err)
	}
	return coordination.CodeOK
}

// deleteNode deletes path. A node already gone is not an error.
func (r *Registry) deleteNode(ctx context.Context, path string) error {
	err := r.session.Delete(ctx, path, coordination.AnyVersion)
	if errors.Is(err, coordination.ErrNoNode) {
		return nil
	}
	return err
}

func (r *Registry) complete(promise *future.Promise[coordination.Code], op string, code coordination.Code, path string) {
	switch code {
	case coordination.CodeOK:
		r.logger.Infof("%s path=(%s) succeeded", op, path)
	case coordination.CodeNodeExists, coordination.CodeNoNode:
		r.logger.Warnf("%s path=(%s) failed: %s", op, path, code)
	default:
		r.logger.Errorf("%s path=(%s) failed: %s", op, path, code)
	}

	r.metric.RecordOperation(context.Background(), op, code.String())
	promise.Complete(code, nil)
}

func codeOf(err error) coordination.Code {
	if errors.Is(err, gerrors.ErrSessionClosed) {
		return coordination.CodeConnectionClosed
	}
	return coordination.CodeOf(err)
}

func validateNames(group string, member ...string) error {
	chain := validation.New(validation.FailFast()).
		AddValidator(validation.NewNameValidator("group", group))
	for _, m := range member {
		chain.AddValidator(validation.NewNameValidator("member", m))
	}

	if err := chain.Validate(); err != nil {
		return gerrors.NewErrInvalidArgument("name", err)
	}
	return nil
}
