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

package group

import (
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/tochemey/groupwatch/log"
)

const (
	// DefaultRequestTimeout bounds the steps of a cascading group delete
	DefaultRequestTimeout = 10 * time.Second
	// DefaultParallelism is the number of members deleted concurrently by a group delete
	DefaultParallelism = 8
)

// Option is the interface that applies a Registry option.
type Option interface {
	// Apply sets the Option value of a Registry.
	Apply(registry *Registry)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(registry *Registry)

// Apply applies the Registry's option
func (f OptionFunc) Apply(registry *Registry) {
	f(registry)
}

// WithLogger sets the registry logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(registry *Registry) {
		if logger != nil {
			registry.logger = logger
		}
	})
}

// WithMeterProvider sets the OpenTelemetry meter provider
func WithMeterProvider(provider metric.MeterProvider) Option {
	return OptionFunc(func(registry *Registry) {
		registry.meterProvider = provider
	})
}

// WithRequestTimeout sets the timeout of each step of a group delete
func WithRequestTimeout(timeout time.Duration) Option {
	return OptionFunc(func(registry *Registry) {
		if timeout > 0 {
			registry.requestTimeout = timeout
		}
	})
}

// WithParallelism sets how many members a group delete removes concurrently
func WithParallelism(parallelism int) Option {
	return OptionFunc(func(registry *Registry) {
		if parallelism > 0 {
			registry.parallelism = parallelism
		}
	})
}
