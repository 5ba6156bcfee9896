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

package zookeeper

import (
	"github.com/go-zookeeper/zk"

	"github.com/tochemey/groupwatch/log"
)

// Option is the interface that applies a Driver option.
type Option interface {
	// Apply sets the Option value of a Driver.
	Apply(driver *Driver)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(driver *Driver)

// Apply applies the Driver's option
func (f OptionFunc) Apply(driver *Driver) {
	f(driver)
}

// WithLogger sets the logger. It also receives the zk client logs at debug level.
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(driver *Driver) {
		driver.logger = logger
	})
}

// WithACL sets the ACL applied to the nodes created by the driver
func WithACL(acl ...zk.ACL) Option {
	return OptionFunc(func(driver *Driver) {
		driver.acl = acl
	})
}
