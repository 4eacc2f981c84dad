// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package isolate

import (
	"context"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"go.chromium.org/isolate/errors"
	"go.chromium.org/isolate/internal/delivery"
	"go.chromium.org/isolate/internal/job"
	"go.chromium.org/isolate/internal/jsonprotocol"
	"go.chromium.org/isolate/internal/logging"
	"go.chromium.org/isolate/internal/subprocess"
	"go.chromium.org/isolate/internal/timing"
)

// trimChars are stripped from both ends of child output used as messages.
const trimChars = " \t\n\r\x00\x0b"

// Runner runs jobs in isolated child runtimes. A Runner runs one job at a
// time; RunJob must not be called concurrently with itself when a shared
// Result is used.
type Runner struct {
	// Runtime is the path of the child runtime. Empty means ResolveRuntime().
	Runtime string
	// Env is extra environment for the child in the "key=value" form.
	Env []string
	// Strategy delivers jobs to children. Nil means delivery.Default().
	Strategy delivery.Strategy
	// Kinds lists exception classes the parent can represent natively.
	Kinds jsonprotocol.Kinds
	// Output receives output printed by tests. Nil means os.Stdout.
	Output io.Writer
}

// RunJob runs j in a new child runtime.
//
// If res is nil, RunJob runs in standalone mode and returns what the child
// wrote. Otherwise it notifies res that t started once the child is created,
// reconciles the child's outcome into res and t, notifies res that t ended,
// and returns nil.
//
// The only error returned is a wrapped *subprocess.CreationError when the
// child cannot be created. All child-side problems are reported to res.
func (r *Runner) RunJob(ctx context.Context, j job.Job, t Test, res Result) (*RawOutput, error) {
	if res != nil && t == nil {
		return nil, errors.New("a test is required to reconcile a result")
	}

	rt := r.Runtime
	if rt == "" {
		rt = ResolveRuntime()
	}
	strategy := r.Strategy
	if strategy == nil {
		strategy = delivery.Default()
	}

	name := "standalone"
	if t != nil {
		name = t.Name()
	}
	ctx, st := timing.Start(ctx, name)
	defer st.End()

	var proc subprocess.Process
	if err := timing.Do(ctx, "launch", func(ctx context.Context) error {
		var err error
		proc, err = subprocess.CommandExec(rt).WithEnv(r.Env...).Interact(ctx, nil)
		return err
	}); err != nil {
		return nil, errors.Wrapf(err, "failed to run %s", name)
	}

	if res != nil {
		res.StartTest(t)
	}

	raw := drain(ctx, proc, strategy, j)
	if res == nil {
		return raw, nil
	}
	r.reconcile(ctx, raw, t, res)
	return nil, nil
}

// drain delivers j to proc, reads everything it writes and waits for it to
// exit. Faults are logged and absorbed. Transient delivery artifacts are
// removed once the process has exited.
func drain(ctx context.Context, proc subprocess.Process, s delivery.Strategy, j job.Job) *RawOutput {
	var cleanup func() error
	defer func() {
		if cleanup == nil {
			return
		}
		if err := cleanup(); err != nil {
			logging.Infof(ctx, "Failed to clean up job: %v", err)
		}
	}()

	_, st := timing.Start(ctx, "deliver")
	var err error
	cleanup, err = s.Deliver(proc.Stdin(), j)
	if err != nil {
		logging.Infof(ctx, "Failed to deliver job: %v", err)
	}
	// The runtime starts executing the job only at end of input.
	if err := proc.Stdin().Close(); err != nil {
		logging.Debugf(ctx, "Failed to close child stdin: %v", err)
	}
	st.End()

	_, st = timing.Start(ctx, "drain")
	// stderr is drained in the background so that a child filling its
	// stderr pipe cannot block while stdout is read.
	stderrCh := make(chan []byte, 1)
	go func() {
		b, err := io.ReadAll(proc.Stderr())
		if err != nil {
			logging.Infof(ctx, "Failed to read child stderr: %v", err)
		}
		stderrCh <- b
	}()
	stdout, err := io.ReadAll(proc.Stdout())
	if err != nil {
		logging.Infof(ctx, "Failed to read child stdout: %v", err)
	}
	stderr := <-stderrCh
	st.End()

	if err := timing.Do(ctx, "wait", proc.Wait); err != nil {
		logging.Infof(ctx, "Failed to wait for child: %v", err)
	}

	code := proc.ExitCode()
	logging.Debugf(ctx, "Child exited with status %d (stdout: %d bytes, stderr: %d bytes)", code, len(stdout), len(stderr))
	return &RawOutput{Stdout: stdout, Stderr: stderr, ExitCode: code}
}

// reconcile decodes raw and merges the outcome into t and res.
func (r *Runner) reconcile(ctx context.Context, raw *RawOutput, t Test, res Result) {
	_, st := timing.Start(ctx, "reconcile")
	defer st.End()

	var elapsed time.Duration
	// Any stderr byte wins, even whitespace; only the message is trimmed.
	if len(raw.Stderr) > 0 {
		logging.Debug(ctx, "Child wrote to stderr; ignoring stdout")
		res.AddError(t, &ChildError{Text: strings.Trim(string(raw.Stderr), trimChars)}, 0)
	} else if payload, err := jsonprotocol.Decode(raw.Stdout, r.Kinds); err != nil {
		logging.Debugf(ctx, "Failed to decode child payload: %v", err)
		res.AddError(t, &ChildError{Text: strings.Trim(string(raw.Stdout), trimChars), Cause: err}, 0)
	} else {
		elapsed = secondsToDuration(payload.Result.Time)
		r.apply(ctx, payload, t, res, elapsed)
	}
	res.EndTest(t, elapsed)
}

// apply merges a decoded payload into t and res.
func (r *Runner) apply(ctx context.Context, p *jsonprotocol.ChildResult, t Test, res Result, elapsed time.Duration) {
	out := r.Output
	if out == nil {
		out = os.Stdout
	}
	if p.Output != "" {
		if _, err := io.WriteString(out, p.Output); err != nil {
			logging.Infof(ctx, "Failed to print test output: %v", err)
		}
	}

	t.SetResult(p.TestResult)
	t.AddToAssertionCount(p.NumAssertions)
	if res.CollectCoverage() && p.Result.CodeCoverage != nil {
		res.MergeCoverage(p.Result.CodeCoverage)
	}

	o := Classify(p.Result)
	if o == nil {
		logging.Debugf(ctx, "%s passed", t.Name())
		return
	}
	if o.Dropped > 0 {
		logging.Debugf(ctx, "%s: reporting the first %s; %d more outcomes not reported", t.Name(), o.Category, o.Dropped)
	}
	err := resolveException(o.Failure.Exception)
	if o.Category == CategoryFailure {
		res.AddFailure(t, err, elapsed)
	} else {
		res.AddError(t, err, elapsed)
	}
}

// secondsToDuration converts non-negative seconds to a Duration rounded to
// the nearest nanosecond, saturating at the maximum Duration.
func secondsToDuration(sec float64) time.Duration {
	ns := math.Round(sec * float64(time.Second))
	if ns >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ns)
}
