// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package isolate runs a single test job in a child runtime process and
// reconciles the child's outcome into the parent's aggregate result.
//
// A run proceeds strictly forward: the runtime is launched, the job is
// delivered to its stdin which is then closed, stdout and stderr are
// drained, the process is waited for, and finally the payload found on
// stdout is decoded, classified and merged into the parent's Result.
package isolate

import (
	"encoding/json"
	"time"

	"go.chromium.org/isolate/internal/coverage"
)

// Test is the parent's view of the test entity a job runs.
type Test interface {
	// Name returns the name of the test.
	Name() string
	// SetResult reattaches opaque state reported by the child.
	SetResult(state json.RawMessage)
	// AddToAssertionCount adds n assertions performed by the child.
	AddToAssertionCount(n int)
}

// Result is the parent's aggregate result of a test run.
type Result interface {
	// StartTest is called once the child process has been created.
	StartTest(t Test)
	// EndTest is called once per started test after its outcome, if any,
	// has been added.
	EndTest(t Test, elapsed time.Duration)
	// AddError records an error outcome.
	AddError(t Test, err error, elapsed time.Duration)
	// AddFailure records a failure outcome.
	AddFailure(t Test, err error, elapsed time.Duration)
	// CollectCoverage reports whether child coverage should be merged.
	CollectCoverage() bool
	// MergeCoverage merges coverage data reported by a child.
	MergeCoverage(d coverage.Data)
}

// RawOutput holds what a child wrote. It is returned by Runner.RunJob in
// standalone mode.
type RawOutput struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}
