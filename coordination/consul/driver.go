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

// Package consul implements the coordination contract on the Consul KV store.
//
// Nodes are KV entries under the configured namespace. Ephemeral nodes are
// entries locked by a session with the delete behavior, so the agent removes
// them once the session is destroyed or its TTL lapses. Watches are blocking
// queries re-issued until the observed state differs from the state seen
// when the watch was armed.
package consul

import (
	"context"
	"fmt"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/hashicorp/consul/api"

	"github.com/tochemey/groupwatch/coordination"
	"github.com/tochemey/groupwatch/internal/validation"
)

const (
	driverName  = "consul"
	sessionName = "groupwatch"
)

// Driver dials Consul agents
type Driver struct {
	config *Config
}

var _ coordination.Driver = (*Driver)(nil)

// NewDriver creates a Consul Driver. A nil config uses the defaults.
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

// Dial connects to the first reachable agent and creates the session owning
// the ephemeral nodes
func (d *Driver) Dial(ctx context.Context, endpoints []string, sessionTimeout time.Duration) (coordination.Conn, error) {
	d.config.Sanitize()
	err := validation.New(validation.FailFast()).
		AddValidator(d.config).
		AddValidator(validation.NewEndpointsValidator(endpoints)).
		Validate()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", coordination.ErrBadArguments, err)
	}

	consulConfig := api.DefaultConfig()
	consulConfig.Address = endpoints[0]
	consulConfig.Datacenter = d.config.Datacenter
	consulConfig.Token = d.config.Token

	client, err := api.NewClient(consulConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}

	retrier := retry.NewRetrier(d.config.MaxRetries, 100*time.Millisecond, d.config.RequestTimeout)
	err = retrier.RunContext(ctx, func(ctx context.Context) error {
		_, err := client.Agent().Self()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to consul: %w", err)
	}

	ttl := sessionTTL(sessionTimeout)
	entry := &api.SessionEntry{
		Name:      sessionName,
		Behavior:  api.SessionBehaviorDelete,
		TTL:       ttl.String(),
		LockDelay: d.config.LockDelay,
	}

	sessionID, _, err := client.Session().Create(entry, (&api.WriteOptions{}).WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to create consul session: %w", err)
	}

	c := newConn(d.config, client, sessionID)
	c.start(ttl)
	d.config.Logger.Debugf("consul session %s opened", sessionID)
	return c, nil
}
