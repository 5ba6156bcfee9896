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

package detector

import (
	"go.opentelemetry.io/otel/metric"

	"github.com/tochemey/groupwatch/log"
)

// ExpiryPolicy decides which registrations fail when the monitoring session expires
type ExpiryPolicy int

const (
	// FailAllOnExpiry fails every registration: the watches died with the session
	FailAllOnExpiry ExpiryPolicy = iota
	// FailPathOnExpiry fails only the registration named by the expiry event.
	// Session events carry no path, so in practice nothing fails.
	FailPathOnExpiry
)

// Option is the interface that applies a Detector option.
type Option interface {
	// Apply sets the Option value of a Detector.
	Apply(detector *Detector)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(detector *Detector)

// Apply applies the Detector's option
func (f OptionFunc) Apply(detector *Detector) {
	f(detector)
}

// WithLogger sets the detector logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(detector *Detector) {
		if logger != nil {
			detector.logger = logger
		}
	})
}

// WithMeterProvider sets the OpenTelemetry meter provider
func WithMeterProvider(provider metric.MeterProvider) Option {
	return OptionFunc(func(detector *Detector) {
		detector.meterProvider = provider
	})
}

// WithExpiryPolicy sets the behaviour on session expiry
func WithExpiryPolicy(policy ExpiryPolicy) Option {
	return OptionFunc(func(detector *Detector) {
		detector.expiryPolicy = policy
	})
}
