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

package metric

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DetectorMetric instruments the fault detector
type DetectorMetric struct {
	services metric.Int64UpDownCounter
	failures metric.Int64Counter
	events   metric.Int64Counter
}

// NewDetectorMetric creates an instance of DetectorMetric
func NewDetectorMetric(meter metric.Meter) (*DetectorMetric, error) {
	detectorMetric := new(DetectorMetric)
	var err error
	if detectorMetric.services, err = meter.Int64UpDownCounter(
		"groupwatch.detector.services",
		metric.WithDescription("Number of services currently monitored"),
	); err != nil {
		return nil, fmt.Errorf("failed to create services instrument, %w", err)
	}

	if detectorMetric.failures, err = meter.Int64Counter(
		"groupwatch.detector.failures",
		metric.WithDescription("Total number of service failures reported"),
	); err != nil {
		return nil, fmt.Errorf("failed to create failures instrument, %w", err)
	}

	if detectorMetric.events, err = meter.Int64Counter(
		"groupwatch.detector.events",
		metric.WithDescription("Total number of coordination events processed"),
	); err != nil {
		return nil, fmt.Errorf("failed to create events instrument, %w", err)
	}
	return detectorMetric, nil
}

// ServiceAdded records a new registration
func (x *DetectorMetric) ServiceAdded(ctx context.Context) {
	x.services.Add(ctx, 1)
}

// ServiceRemoved records a registration leaving the detector without a failure
func (x *DetectorMetric) ServiceRemoved(ctx context.Context) {
	x.services.Add(ctx, -1)
}

// ServiceFailed records a reported failure. The registration is gone as well.
func (x *DetectorMetric) ServiceFailed(ctx context.Context) {
	x.services.Add(ctx, -1)
	x.failures.Add(ctx, 1)
}

// EventProcessed counts one processed event by type
func (x *DetectorMetric) EventProcessed(ctx context.Context, eventType string) {
	x.events.Add(ctx, 1, metric.WithAttributes(attribute.String("type", eventType)))
}
