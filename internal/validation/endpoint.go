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

package validation

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

const endpointErrFmt = "invalid endpoint=(%s): %w"

// EndpointValidator validates a coordination service endpoint.
// Both host:port and scheme://host:port forms are accepted.
type EndpointValidator struct {
	endpoint string
}

var _ Validator = (*EndpointValidator)(nil)

// NewEndpointValidator creates an instance of EndpointValidator
func NewEndpointValidator(endpoint string) *EndpointValidator {
	return &EndpointValidator{endpoint: endpoint}
}

// Validate implements validation.Validator.
func (a *EndpointValidator) Validate() error {
	hostPort := strings.TrimSpace(a.endpoint)
	if strings.Contains(hostPort, "://") {
		u, err := url.Parse(hostPort)
		if err != nil {
			return fmt.Errorf(endpointErrFmt, a.endpoint, err)
		}
		hostPort = u.Host
	}

	host, port, err := net.SplitHostPort(hostPort)
	if err != nil {
		return fmt.Errorf(endpointErrFmt, a.endpoint, err)
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf(endpointErrFmt, a.endpoint, err)
	}

	if host == "" || portNum > 65535 || portNum <= 0 {
		return fmt.Errorf(endpointErrFmt, a.endpoint, errors.New("invalid host or port"))
	}

	return nil
}

// NewEndpointsValidator validates a non-empty list of endpoints
func NewEndpointsValidator(endpoints []string) Validator {
	chain := New(FailFast()).
		AddAssertion(len(endpoints) > 0, "at least one endpoint is required")
	for _, endpoint := range endpoints {
		chain.AddValidator(NewEndpointValidator(endpoint))
	}
	return chain
}
