// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package harness implements the child side of isolated runs: it reads a job
// from stdin, runs the requested test and writes the result payload to
// stdout.
package harness

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.chromium.org/isolate/errors"
	"go.chromium.org/isolate/internal/job"
	"go.chromium.org/isolate/internal/jsonprotocol"
	"go.chromium.org/isolate/internal/logging"
	"go.chromium.org/isolate/internal/usercode"
)

// gracePeriod is how long a test body may keep running after its timeout
// to clean up.
const gracePeriod = 5 * time.Second

// Run reads a job from stdin until EOF and executes it with the tests in reg.
// It returns the exit status for the runtime process.
//
// Harness failures, such as an undecodable job or an unknown test, are
// written to stderr and yield a non-zero status. Test outcomes are written
// to stdout as a payload and yield status 0.
func Run(ctx context.Context, reg *Registry, stdin io.Reader, stdout, stderr io.Writer) int {
	if err := run(ctx, reg, stdin, stdout); err != nil {
		fmt.Fprintf(stderr, "isolate_runtime: %v\n", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, reg *Registry, stdin io.Reader, stdout io.Writer) error {
	b, err := io.ReadAll(stdin)
	if err != nil {
		return errors.Wrap(err, "failed to read job")
	}
	spec, err := job.Decode(b)
	if err != nil {
		return err
	}

	if spec.List {
		for _, name := range reg.Names() {
			if _, err := fmt.Fprintln(stdout, name); err != nil {
				return errors.Wrap(err, "failed to write test list")
			}
		}
		return nil
	}

	t, ok := reg.Get(spec.Test)
	if !ok {
		return errors.Errorf("unknown test %q", spec.Test)
	}
	return jsonprotocol.Encode(stdout, runTest(ctx, t, spec))
}

// runTest runs t and returns its payload.
func runTest(ctx context.Context, t *Test, spec *job.Spec) *jsonprotocol.ChildResult {
	s := newState(t.Name, spec.Vars, spec.CollectCoverage)

	// Logs emitted by the test through its context become test output.
	ctx = logging.AttachLoggerNoPropagation(ctx, logging.NewFuncLogger(func(level logging.Level, ts time.Time, msg string) {
		s.log(msg)
	}))

	timeout := t.Timeout
	if spec.Timeout > 0 {
		timeout = spec.Timeout
	}

	start := time.Now()
	if err := usercode.SafeCall(ctx, t.Name, timeout, gracePeriod, s.onPanic, func(ctx context.Context) {
		t.Func(ctx, s)
	}); err != nil {
		s.add(&s.set.Errors, jsonprotocol.ClassError, err.Error(), nil)
	}
	return s.close(time.Since(start).Seconds())
}
