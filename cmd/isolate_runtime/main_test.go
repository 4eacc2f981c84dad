// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"go.chromium.org/isolate/internal/harness"
	"go.chromium.org/isolate/internal/job"
	"go.chromium.org/isolate/internal/jsonprotocol"
)

func TestRegistryNames(t *testing.T) {
	want := []string{
		"example.Crash", "example.Error", "example.Fail", "example.Panic", "example.Pass",
		"example.Skip", "example.Slow", "example.Todo", "example.Vars",
	}
	if diff := cmp.Diff(registry().Names(), want); diff != "" {
		t.Errorf("Names mismatch (-got +want):\n%s", diff)
	}
}

func TestBuiltinOutcomes(t *testing.T) {
	for _, tc := range []struct {
		name     string
		vars     map[string]string
		category func(*jsonprotocol.OutcomeSet) []*jsonprotocol.TestFailure
		class    string
	}{
		{"example.Pass", nil, nil, ""},
		{"example.Vars", map[string]string{"greeting": "hi"}, nil, ""},
		{"example.Vars", nil, func(s *jsonprotocol.OutcomeSet) []*jsonprotocol.TestFailure { return s.Skipped }, jsonprotocol.ClassSkipped},
		{"example.Fail", nil, func(s *jsonprotocol.OutcomeSet) []*jsonprotocol.TestFailure { return s.Failures }, jsonprotocol.ClassAssertionFailed},
		{"example.Error", nil, func(s *jsonprotocol.OutcomeSet) []*jsonprotocol.TestFailure { return s.Errors }, jsonprotocol.ClassError},
		{"example.Skip", nil, func(s *jsonprotocol.OutcomeSet) []*jsonprotocol.TestFailure { return s.Skipped }, jsonprotocol.ClassSkipped},
		{"example.Todo", nil, func(s *jsonprotocol.OutcomeSet) []*jsonprotocol.TestFailure { return s.NotImplemented }, jsonprotocol.ClassIncomplete},
		{"example.Panic", nil, func(s *jsonprotocol.OutcomeSet) []*jsonprotocol.TestFailure { return s.Errors }, "runtime."},
	} {
		j, err := job.Encode(&job.Spec{Test: tc.name, Vars: tc.vars})
		if err != nil {
			t.Fatal(err)
		}
		var stdout, stderr bytes.Buffer
		if code := harness.Run(context.Background(), registry(), bytes.NewReader(j), &stdout, &stderr); code != 0 {
			t.Fatalf("%s: Run returned %d: %s", tc.name, code, stderr.String())
		}
		res, err := jsonprotocol.Decode(stdout.Bytes(), nil)
		if err != nil {
			t.Fatalf("%s: Decode: %v", tc.name, err)
		}
		if tc.category == nil {
			if !res.Result.Empty() {
				t.Errorf("%s (vars %v): unexpected outcomes %+v", tc.name, tc.vars, res.Result)
			}
			continue
		}
		got := tc.category(res.Result)
		if len(got) != 1 || !strings.HasPrefix(got[0].Exception.Class, tc.class) {
			t.Errorf("%s (vars %v): got %+v; want one %s", tc.name, tc.vars, got, tc.class)
		}
	}
}
