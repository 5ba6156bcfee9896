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
	"crypto/tls"
	"regexp"
	"strings"
	"time"

	"github.com/tochemey/groupwatch/internal/validation"
	"github.com/tochemey/groupwatch/log"
)

const (
	defaultNamespace      = "/groupwatch"
	defaultDialTimeout    = 5 * time.Second
	defaultRequestTimeout = 10 * time.Second
	defaultMaxRetries     = 5
)

// Config holds the configuration of the etcd driver
type Config struct {
	// Namespace is the key prefix under which the node tree is stored.
	// Default: "/groupwatch"
	Namespace string
	// DialTimeout for etcd client connections.
	// Default: 5s
	DialTimeout time.Duration
	// RequestTimeout bounds the requests the driver issues on its own.
	// Default: 10s
	RequestTimeout time.Duration
	// TLS configuration (optional)
	TLS *tls.Config
	// Username for etcd authentication (optional)
	Username string
	// Password for etcd authentication (optional)
	Password string
	// MaxRetries is the number of attempts made to reach the cluster on dial.
	// Default: 5
	MaxRetries int
	// Logger receives the driver logs. A zap backed logger is also handed to the etcd client.
	// Default: log.DiscardLogger
	Logger log.Logger
}

// namespacePattern accepts absolute key prefixes without empty segments
var namespacePattern = regexp.MustCompile(`^(/[^/\x00]+)+$`)

var _ validation.Validator = (*Config)(nil)

// Sanitize sets the defaults
func (config *Config) Sanitize() {
	if config.Namespace == "" {
		config.Namespace = defaultNamespace
	}
	config.Namespace = strings.TrimSuffix(config.Namespace, "/")

	if config.DialTimeout <= 0 {
		config.DialTimeout = defaultDialTimeout
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
		AddAssertion(config.DialTimeout > 0, "DialTimeout must be greater than 0").
		AddAssertion(config.RequestTimeout > 0, "RequestTimeout must be greater than 0").
		AddAssertion(config.MaxRetries > 0, "MaxRetries must be greater than 0").
		AddAssertion(config.Username != "" || config.Password == "", "Username is required with Password").
		Validate()
}
