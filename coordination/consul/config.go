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
	"regexp"
	"strings"
	"time"

	"github.com/tochemey/groupwatch/internal/validation"
	"github.com/tochemey/groupwatch/log"
)

const (
	defaultNamespace      = "groupwatch"
	defaultWaitTime       = 30 * time.Second
	defaultLockDelay      = time.Millisecond
	defaultRequestTimeout = 10 * time.Second
	defaultMaxRetries     = 5
	// minSessionTTL is the smallest session TTL the agent accepts
	minSessionTTL = 10 * time.Second
)

// Config holds the configuration of the Consul driver
type Config struct {
	// Namespace is the KV prefix under which the node tree is stored.
	// Default: "groupwatch"
	Namespace string
	// Datacenter specifies the Consul datacenter to use.
	// If empty, the agent's default datacenter is used.
	Datacenter string
	// Token is the Consul ACL token used for authenticated requests.
	Token string
	// WaitTime is the maximum duration of the blocking queries backing watches.
	// Default: 30s
	WaitTime time.Duration
	// LockDelay is the lock delay of the sessions owning ephemeral nodes.
	// Default: 1ms
	LockDelay time.Duration
	// RequestTimeout bounds the requests the driver issues on its own.
	// Default: 10s
	RequestTimeout time.Duration
	// MaxRetries is the number of attempts made to reach the agent on dial.
	// Default: 5
	MaxRetries int
	// Logger receives the driver logs.
	// Default: log.DiscardLogger
	Logger log.Logger
}

// namespacePattern accepts relative KV prefixes without empty segments
var namespacePattern = regexp.MustCompile(`^[^/\x00]+(/[^/\x00]+)*$`)

var _ validation.Validator = (*Config)(nil)

// Sanitize sets the defaults
func (config *Config) Sanitize() {
	config.Namespace = strings.Trim(config.Namespace, "/")
	if config.Namespace == "" {
		config.Namespace = defaultNamespace
	}

	if config.WaitTime <= 0 {
		config.WaitTime = defaultWaitTime
	}

	if config.LockDelay <= 0 {
		config.LockDelay = defaultLockDelay
	}

	if config.RequestTimeout <= 0 {
		config.RequestTimeout = defaultRequestTimeout
	}

	if config.MaxRetries <= 0 {
		config.MaxRetries = defaultMaxRetries
	}

	if config.Logger == nil {
		config.Logger = log.DiscardLogger
	}
}

// Validate implements validation.Validator.
func (config *Config) Validate() error {
	return validation.New(validation.FailFast()).
		AddValidator(validation.NewEmptyStringValidator("Namespace", config.Namespace)).
		AddValidator(validation.NewPatternValidator("Namespace", namespacePattern, config.Namespace)).
		AddAssertion(config.WaitTime > 0, "WaitTime must be greater than 0").
		AddAssertion(config.LockDelay > 0, "LockDelay must be greater than 0").
		AddAssertion(config.RequestTimeout > 0, "RequestTimeout must be greater than 0").
		AddAssertion(config.MaxRetries > 0, "MaxRetries must be greater than 0").
		Validate()
}

// sessionTTL converts the session timeout into a TTL the agent accepts
func sessionTTL(sessionTimeout time.Duration) time.Duration {
	return max(sessionTimeout.Round(time.Second), minSessionTTL)
}
