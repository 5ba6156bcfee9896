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

package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned synchronously, before any interaction with the
	// coordination service, when a required identifier or collaborator is missing or malformed.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConnect is returned when a session cannot be established with the coordination service.
	ErrConnect = errors.New("unable to connect to the coordination service")

	// ErrSessionClosed is returned when an operation is attempted on a closed session.
	ErrSessionClosed = errors.New("session is closed")

	// ErrDetectorClosed is returned when a service is added to a closed fault detector.
	ErrDetectorClosed = errors.New("fault detector is closed")
)

// NewErrInvalidArgument formats an ErrInvalidArgument naming the offending argument.
func NewErrInvalidArgument(name string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", name, ErrInvalidArgument)
	}
	return fmt.Errorf("%s: %w: %w", name, ErrInvalidArgument, err)
}

// NewErrConnect wraps the cause of a failed session establishment with ErrConnect.
func NewErrConnect(err error) error {
	return errors.Join(ErrConnect, err)
}

// PanicError wraps a value recovered from a panicking callback
type PanicError struct {
	value any
}

// enforce compilation error
var _ error = (*PanicError)(nil)

// NewPanicError creates an instance of PanicError
func NewPanicError(value any) *PanicError {
	return &PanicError{value: value}
}

// Error implements the standard error interface
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

// Unwrap returns the recovered value when it is an error
func (e *PanicError) Unwrap() error {
	if err, ok := e.value.(error); ok {
		return err
	}
	return nil
}
