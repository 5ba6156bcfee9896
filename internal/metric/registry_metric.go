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

// RegistryMetric instruments group registry operations
type RegistryMetric struct {
	// counts completed operations by name and result code
	operations metric.Int64Counter
}

// NewRegistryMetric creates an instance of RegistryMetric
func NewRegistryMetric(meter metric.Meter) (*RegistryMetric, error) {
	registryMetric := new(RegistryMetric)
	var err error
	if registryMetric.operations, err = meter.Int64Counter(
		"groupwatch.registry.operations",
		metric.WithDescription("Total number of completed group registry operations"),
	); err != nil {
		return nil, fmt.Errorf("failed to create operations instrument, %w", err)
	}
	return registryMetric, nil
}

// RecordOperation counts one completed operation
func (x *RegistryMetric) RecordOperation(ctx context.Context, op, code string) {
	x.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("code", code),
	))
}
