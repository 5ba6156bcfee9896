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

package coordination

import (
	"fmt"
	"strings"
)

// Join builds an absolute path from node names.
// Join("Foo", "Bar") returns "/Foo/Bar" and Join() returns "/".
func Join(names ...string) string {
	var b strings.Builder
	for _, name := range names {
		name = strings.Trim(name, "/")
		if name == "" {
			continue
		}
		b.WriteByte('/')
		b.WriteString(name)
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}

// Parent returns the parent path. The parent of "/" and of a top level node is "/".
func Parent(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx <= 0 {
		return "/"
	}
	return path[:idx]
}

// Base returns the last name of the path, or "" for the root
func Base(path string) string {
	return path[strings.LastIndexByte(path, '/')+1:]
}

// ValidateName checks a single node name
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty name", ErrBadArguments)
	case name == "." || name == "..":
		return fmt.Errorf("%w: relative name %q", ErrBadArguments, name)
	case strings.ContainsRune(name, '/'):
		return fmt.Errorf("%w: name %q contains '/'", ErrBadArguments, name)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: name %q contains a null character", ErrBadArguments, name)
	}
	return nil
}

// ValidatePath checks an absolute node path. The root "/" is valid.
func ValidatePath(path string) error {
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("%w: path %q must start with '/'", ErrBadArguments, path)
	}
	if path == "/" {
		return nil
	}
	if strings.HasSuffix(path, "/") {
		return fmt.Errorf("%w: path %q must not end with '/'", ErrBadArguments, path)
	}
	for _, name := range strings.Split(path[1:], "/") {
		if err := ValidateName(name); err != nil {
			return fmt.Errorf("path %q: %w", path, err)
		}
	}
	return nil
}
