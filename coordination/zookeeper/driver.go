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

// Package zookeeper implements the coordination contract on Apache ZooKeeper.
package zookeeper

import (
	"context"
	"fmt"
	"time"

	"github.com/go-zookeeper/zk"

	"github.com/tochemey/groupwatch/coordination"
	"github.com/tochemey/groupwatch/internal/validation"
	"github.com/tochemey/groupwatch/log"
)

const driverName = "zookeeper"

// Driver dials ZooKeeper ensembles
type Driver struct {
	logger log.Logger
	acl    []zk.ACL
}

var _ coordination.Driver = (*Driver)(nil)

// NewDriver creates a ZooKeeper Driver
func NewDriver(opts ...Option) *Driver {
	driver := &Driver{
		logger: log.DiscardLogger,
		acl:    zk.WorldACL(zk.PermAll),
	}
	for _, opt := range opts {
		opt.Apply(driver)
	}
	return driver
}

// Name returns the driver name
func (d *Driver) Name() string {
	return driverName
}

// Dial opens a session on the ensemble. The connection is established in the
// background and StateSyncConnected is delivered once the session is granted.
func (d *Driver) Dial(ctx context.Context, endpoints []string, sessionTimeout time.Duration) (coordination.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	err := validation.New(validation.FailFast()).
		AddValidator(validation.NewEndpointsValidator(endpoints)).
		AddAssertion(sessionTimeout > 0, "session timeout must be greater than 0").
		Validate()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", coordination.ErrBadArguments, err)
	}

	client, sessionEvents, err := zk.Connect(endpoints, sessionTimeout, zk.WithLogger(log.Printf{Logger: d.logger}))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to zookeeper: %w", err)
	}

	c := newConn(client, d.acl, d.logger)
	c.start(sessionEvents)
	return c, nil
}
