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

// Package detector turns coordination watch events into service failure
// notifications.
//
// A monitored service is a node path. The detector keeps a children watch
// armed on it. Every event on the path triggers an existence check: a node
// still present gets its watch armed again, a node gone is reported once to
// its listener and forgotten. Because members are ephemeral nodes, a member
// whose session dies is reported the same way as one deleted on purpose.
package detector

import (
	"context"
	"slices"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"

	"github.com/tochemey/groupwatch/coordination"
	gerrors "github.com/tochemey/groupwatch/errors"
	"github.com/tochemey/groupwatch/internal/future"
	imetric "github.com/tochemey/groupwatch/internal/metric"
	"github.com/tochemey/groupwatch/internal/syncmap"
	"github.com/tochemey/groupwatch/internal/validation"
	"github.com/tochemey/groupwatch/log"
	"github.com/tochemey/groupwatch/session"
)

type registration struct {
	service  any
	listener Listener
}

// Detector routes watch events to fault detection listeners
type Detector struct {
	session       *session.Session
	logger        log.Logger
	meterProvider metric.MeterProvider
	metric        *imetric.DetectorMetric
	expiryPolicy  ExpiryPolicy
	services      *syncmap.SyncMap[string, *registration]
	unregister    func()
	closed        *atomic.Bool
}

var _ coordination.Watcher = (*Detector)(nil)

// New creates a Detector receiving the events of the given session
func New(s *session.Session, opts ...Option) (*Detector, error) {
	if s == nil {
		return nil, gerrors.NewErrInvalidArgument("session", nil)
	}

	detector := &Detector{
		session:      s,
		logger:       log.DefaultLogger,
		expiryPolicy: FailAllOnExpiry,
		services:     syncmap.New[string, *registration](),
		closed:       atomic.NewBool(false),
	}
	for _, opt := range opts {
		opt.Apply(detector)
	}

	provider := imetric.New(imetric.WithMeterProvider(detector.meterProvider))
	detectorMetric, err := imetric.NewDetectorMetric(provider.Meter())
	if err != nil {
		return nil, err
	}
	detector.metric = detectorMetric
	detector.unregister = s.Register(detector)
	return detector, nil
}

// AddService monitors the node at path
func (d *Detector) AddService(path string, listener Listener) (future.Future[coordination.Code], error) {
	return d.Monitor(nil, path, listener)
}

// Monitor monitors the node at path on behalf of service. The listener
// receives service back on failure.
// The registration takes effect once the watch is armed; the returned
// future reports whether that happened.
func (d *Detector) Monitor(service any, path string, listener Listener) (future.Future[coordination.Code], error) {
	err := validation.New(validation.FailFast()).
		AddValidator(validation.NewEmptyStringValidator("path", path)).
		AddValidator(validation.NewPathValidator("path", path)).
		AddAssertion(listener != nil, "the [listener] is required").
		Validate()
	if err != nil {
		return nil, gerrors.NewErrInvalidArgument("service", err)
	}

	if d.closed.Load() {
		return nil, gerrors.ErrDetectorClosed
	}

	promise := future.NewPromise[coordination.Code]()
	d.session.ChildrenAsync(path, true, func(code coordination.Code, path string, _ []string) {
		if code != coordination.CodeOK {
			d.logger.Errorf("unable to add watch for path=(%s): %s", path, code)
			promise.Complete(code, nil)
			return
		}

		if !d.register(path, &registration{service: service, listener: listener}) {
			promise.Complete(coordination.CodeConnectionClosed, nil)
			return
		}
		d.logger.Debugf("watching path=(%s)", path)
		promise.Complete(coordination.CodeOK, nil)

		// the watch may have fired before the registration was visible
		d.check(path)
	})
	return promise.Future(), nil
}

// register publishes the registration of path. It reports false when the
// detector is closed, in which case nothing stays registered.
func (d *Detector) register(path string, reg *registration) bool {
	if _, ok := d.services.Get(path); !ok {
		d.metric.ServiceAdded(context.Background())
	}
	d.services.Set(path, reg)

	// Close may have drained the table before Set
	if d.closed.Load() {
		d.RemoveService(path)
		return false
	}
	return true
}

// RemoveService stops monitoring path without notifying its listener.
// It reports whether path was monitored.
func (d *Detector) RemoveService(path string) bool {
	if _, ok := d.services.LoadAndDelete(path); ok {
		d.metric.ServiceRemoved(context.Background())
		return true
	}
	return false
}

// Services returns the monitored paths in lexical order
func (d *Detector) Services() []string {
	paths := d.services.Keys()
	slices.Sort(paths)
	return paths
}

// Watching reports whether path is monitored
func (d *Detector) Watching(path string) bool {
	_, ok := d.services.Get(path)
	return ok
}

// Process handles an event of the session
func (d *Detector) Process(event coordination.Event) {
	d.metric.EventProcessed(context.Background(), event.Type.String())
	if d.closed.Load() {
		return
	}

	if event.Type == coordination.EventSession {
		switch event.State {
		case coordination.StateExpired:
			d.expire(event.Path)
		case coordination.StateClosed:
			d.logger.Debugf("monitoring session closed with %d services", d.services.Len())
		default:
			d.logger.Debugf("monitoring session is %s", event.State)
		}
		return
	}

	if event.Path == "" {
		return
	}

	d.logger.Debugf("%s event on path=(%s)", event.Type, event.Path)
	if d.Watching(event.Path) {
		d.check(event.Path)
	}
}

// Close stops the detector. Monitored services are dropped without notification.
// Calling Close more than once has no effect.
func (d *Detector) Close() {
	if !d.closed.CompareAndSwap(false, true) {
		return
	}

	d.unregister()
	for _, path := range d.services.Keys() {
		d.RemoveService(path)
	}
}

// check finds out whether path still exists after something happened to it
func (d *Detector) check(path string) {
	d.session.ExistsAsync(path, false, func(code coordination.Code, path string, _ bool) {
		switch code {
		case coordination.CodeOK:
			d.rearm(path)
		case coordination.CodeNoNode:
			d.fail(path)
		default:
			d.logger.Warnf("unable to check path=(%s): %s", path, code)
		}
	})
}

func (d *Detector) rearm(path string) {
	if !d.Watching(path) {
		return
	}

	d.session.ChildrenAsync(path, true, func(code coordination.Code, path string, _ []string) {
		switch code {
		case coordination.CodeOK:
		case coordination.CodeNoNode:
			d.fail(path)
		default:
			d.logger.Warnf("unable to watch path=(%s) again: %s", path, code)
		}
	})
}

func (d *Detector) expire(path string) {
	switch d.expiryPolicy {
	case FailPathOnExpiry:
		if path != "" {
			d.fail(path)
		}
	default:
		d.logger.Warnf("monitoring session expired, failing %d services", d.services.Len())
		for _, p := range d.Services() {
			d.fail(p)
		}
	}
}

// fail removes the registration and notifies its listener. Only the caller
// that removes the registration notifies.
func (d *Detector) fail(path string) {
	reg, ok := d.services.LoadAndDelete(path)
	if !ok {
		return
	}

	d.metric.ServiceFailed(context.Background())
	d.logger.Infof("service path=(%s) failed", path)
	d.notify(reg, path)
}

func (d *Detector) notify(reg *registration, path string) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Errorf("listener of path=(%s) failed: %v", path, gerrors.NewPanicError(r))
		}
	}()
	reg.listener.ServiceFailure(reg.service, path)
}
