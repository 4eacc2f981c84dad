// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package harness

import (
	"context"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"go.chromium.org/isolate/errors"
)

// Func is the body of a test.
type Func func(ctx context.Context, s *State)

// Test describes a test that a child runtime can run.
type Test struct {
	// Name identifies the test, e.g. "example.Pass".
	Name string
	// Func is the test body.
	Func Func
	// Timeout limits Func unless the job sets its own timeout. Zero means
	// no limit.
	Timeout time.Duration
}

// Registry holds the tests of a child runtime.
type Registry struct {
	tests map[string]*Test
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tests: make(map[string]*Test)}
}

// Add registers t.
func (r *Registry) Add(t *Test) error {
	if t.Name == "" {
		return errors.New("test name is empty")
	}
	if t.Func == nil {
		return errors.Errorf("%s has no body", t.Name)
	}
	if _, ok := r.tests[t.Name]; ok {
		return errors.Errorf("%s is registered twice", t.Name)
	}
	r.tests[t.Name] = t
	return nil
}

// MustAdd registers t, panicking on failure. It is meant for static
// registrations in main packages.
func (r *Registry) MustAdd(t *Test) {
	if err := r.Add(t); err != nil {
		panic(err)
	}
}

// Get returns the test named name.
func (r *Registry) Get(name string) (*Test, bool) {
	t, ok := r.tests[name]
	return t, ok
}

// Names returns the names of all registered tests in lexical order.
func (r *Registry) Names() []string {
	names := maps.Keys(r.tests)
	slices.Sort(names)
	return names
}
