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
	"fmt"

	"github.com/tochemey/groupwatch/coordination"
)

// nameValidator checks a single coordination node name
type nameValidator struct {
	fieldName string
	name      string
}

var _ Validator = (*nameValidator)(nil)

// NewNameValidator creates a validator for a node name such as a group or member name
func NewNameValidator(fieldName, name string) Validator {
	return &nameValidator{fieldName: fieldName, name: name}
}

// Validate executes the validation
func (x nameValidator) Validate() error {
	if err := coordination.ValidateName(x.name); err != nil {
		return fmt.Errorf("the [%s] is invalid: %w", x.fieldName, err)
	}
	return nil
}

// pathValidator checks an absolute coordination path
type pathValidator struct {
	fieldName string
	path      string
}

var _ Validator = (*pathValidator)(nil)

// NewPathValidator creates a validator for an absolute node path
func NewPathValidator(fieldName, path string) Validator {
	return &pathValidator{fieldName: fieldName, path: path}
}

// Validate executes the validation
func (x pathValidator) Validate() error {
	if err := coordination.ValidatePath(x.path); err != nil {
		return fmt.Errorf("the [%s] is invalid: %w", x.fieldName, err)
	}
	return nil
}
