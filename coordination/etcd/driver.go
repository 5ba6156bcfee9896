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

// Package etcd implements the coordination contract on etcd v3.
//
// A node path maps to a key under the configured namespace. Ephemeral nodes
// are bound to the lease of a concurrency session whose TTL follows the
// session timeout. Every mutation is a single transaction guarding the tree
// invariants, and watches are etcd watches started right after the read
// that armed them.
package etcd

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/flowchartsman/retry"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"
	"go.etcd.io/etcd/client/v3/namespace"
	"go.uber.org/zap"

	"github.com/tochemey/groupwatch/coordination"
	"github.com/tochemey/groupwatch/internal/validation"
	"github.com/tochemey/groupwatch/log"
)

const driverName = "etcd"

// Driver dials etcd clusters
type Driver struct {
	config *Config
}

var _ coordination.Driver = (*Driver)(nil)

// NewDriver creates an etcd Driver. A nil config uses the defaults.
func NewDriver(config *Config) *Driver {
	if config == nil {
		config = new(Config)
	}
	return &Driver{config: config}
}

// Name returns the driver name
func (d *Driver) Name() string {
	return driverName
}

// Dial connects to the cluster and opens a lease backed session
func (d *Driver) Dial(ctx context.Context, endpoints []string, sessionTimeout time.Duration) (coordination.Conn, error) {
	d.config.Sanitize()
	err := validation.New(validation.FailFast()).
		AddValidator(d.config).
		AddValidator(validation.NewEndpointsValidator(endpoints)).
		Validate()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", coordination.ErrBadArguments, err)
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: d.config.DialTimeout,
		TLS:         d.config.TLS,
		Username:    d.config.Username,
		Password:    d.config.Password,
		Logger:      clientLogger(d.config.Logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	retrier := retry.NewRetrier(d.config.MaxRetries, 100*time.Millisecond, d.config.DialTimeout)
	err = retrier.RunContext(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, d.config.DialTimeout)
		defer cancel()
		_, err := client.Status(ctx, endpoints[0])
		return err
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to connect to etcd: %w", err), client.Close())
	}

	sess, err := concurrency.NewSession(client,
		concurrency.WithTTL(leaseTTL(sessionTimeout)),
		concurrency.WithContext(client.Ctx()))
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to create etcd session: %w", err), client.Close())
	}

	c := newConn(d.config, client, sess,
		namespace.NewKV(client.KV, d.config.Namespace),
		namespace.NewWatcher(client.Watcher, d.config.Namespace))
	c.start()
	d.config.Logger.Debugf("etcd session %s opened", c.SessionID())
	return c, nil
}

// leaseTTL converts the session timeout into whole lease seconds
func leaseTTL(sessionTimeout time.Duration) int {
	ttl := int(math.Ceil(sessionTimeout.Seconds()))
	if ttl < 1 {
		return 1
	}
	return ttl
}

func clientLogger(logger log.Logger) *zap.Logger {
	if z, ok := logger.(*log.Zap); ok {
		return z.Underlying().Named("etcd")
	}
	return zap.NewNop()
}
