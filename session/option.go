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

package session

import (
	"time"

	"github.com/tochemey/groupwatch/log"
)

// DefaultRequestTimeout bounds every asynchronous operation
const DefaultRequestTimeout = 10 * time.Second

// Option is the interface that applies a Session option.
type Option interface {
	// Apply sets the Option value of a Session.
	Apply(session *Session)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(session *Session)

// Apply applies the Session's option
func (f OptionFunc) Apply(session *Session) {
	f(session)
}

// WithLogger sets the session logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(session *Session) {
		if logger != nil {
			session.logger = logger
		}
	})
}

// WithWorkers sets the number of goroutines running asynchronous operations
func WithWorkers(workers int) Option {
	return OptionFunc(func(session *Session) {
		session.workers = workers
	})
}

// WithRequestTimeout sets the timeout of asynchronous operations
func WithRequestTimeout(timeout time.Duration) Option {
	return OptionFunc(func(session *Session) {
		if timeout > 0 {
			session.requestTimeout = timeout
		}
	})
}
