// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"bufio"
	"bytes"
	"context"
	"flag"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/google/subcommands"

	"go.chromium.org/isolate/errors"
	"go.chromium.org/isolate/internal/config"
	"go.chromium.org/isolate/internal/isolate"
	"go.chromium.org/isolate/internal/job"
	"go.chromium.org/isolate/internal/logging"
	"go.chromium.org/isolate/internal/reporting"
	"go.chromium.org/isolate/internal/testresult"
	"go.chromium.org/isolate/internal/timing"
)

// runCmd implements subcommands.Command to support running tests.
type runCmd struct {
	cfg          *config.MutableConfig
	out          io.Writer   // receives test output and the summary table
	clk          clock.Clock // can be replaced by tests
	failForTests bool        // exit with 1 if any individual tests fail
}

var _ = subcommands.Command(&runCmd{})

func newRunCmd(out io.Writer) *runCmd {
	return &runCmd{
		cfg: config.NewMutableConfig(),
		out: out,
		clk: clock.NewClock(),
	}
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "run tests in isolated child processes" }
func (*runCmd) Usage() string {
	return `Usage: run [flag]... [pattern]...

Description:
    Runs each test matched by the patterns in its own child runtime process
    and reports the results. Patterns are globs matched against test names;
    all tests of the runtime are run if none are given.
    Exits with 0 if all matched tests were executed, even if some of them
    failed, unless -failfortests is supplied.

Flag:
`
}

func (r *runCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&r.failForTests, "failfortests", false, "exit with 1 if any tests fail")
	r.cfg.SetFlags(f)
}

func (r *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if r.cfg.ConfigFile != "" {
		if err := r.cfg.ApplyFile(r.cfg.ConfigFile, f); err != nil {
			logging.Info(ctx, err)
			return subcommands.ExitUsageError
		}
	}
	if err := r.cfg.DeriveDefaults(r.clk); err != nil {
		logging.Info(ctx, "Failed to derive defaults: ", err)
		return subcommands.ExitUsageError
	}
	cfg := r.cfg.Freeze()

	if cfg.Timeout() > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout())
		defer cancel()
	}

	if err := os.MkdirAll(cfg.ResDir(), 0755); err != nil {
		logging.Info(ctx, err)
		return subcommands.ExitFailure
	}

	tl := timing.NewLogWithClock(r.clk)
	ctx = timing.Attach(ctx, tl)
	ctx, st := timing.Start(ctx, "exec")

	defer func() {
		st.End()
		if err := reporting.WriteTiming(filepath.Join(cfg.ResDir(), reporting.TimingFilename), tl); err != nil {
			logging.Info(ctx, err)
		}
	}()

	fullLog, err := os.Create(filepath.Join(cfg.ResDir(), reporting.FullLogFilename))
	if err != nil {
		logging.Info(ctx, err)
		return subcommands.ExitFailure
	}
	defer fullLog.Close()
	ctx = logging.AttachLogger(ctx, logging.NewSinkLogger(logging.LevelDebug, logging.NewWriterSink(fullLog), logging.WithTimestamp(), logging.WithLevelTag()))

	logging.Info(ctx, "Command line: ", strings.Join(os.Args, " "))
	logging.Info(ctx, "Writing results to ", cfg.ResDir())

	res, runErr := r.run(ctx, cfg, f.Args())
	if res != nil {
		if err := writeResults(ctx, cfg, res, r.clk.Since(st.StartTime), r.out); err != nil {
			logging.Info(ctx, "Failed to write results: ", err)
			return subcommands.ExitFailure
		}
	}
	if runErr != nil {
		logging.Infof(ctx, "Failed to run tests: %v", runErr)
		return subcommands.ExitFailure
	}
	if r.failForTests && !res.WasSuccessful() {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// run runs the tests matched by patterns. The returned result holds the
// tests run so far even if an error is returned.
func (r *runCmd) run(ctx context.Context, cfg *config.Config, patterns []string) (*testresult.Result, error) {
	runner := &isolate.Runner{
		Runtime:  cfg.Runtime(),
		Env:      cfg.Env(),
		Strategy: cfg.Strategy(),
		Kinds:    testresult.Kinds(),
		Output:   r.out,
	}
	logging.Debugf(ctx, "Using runtime %s with %v delivery", cfg.Runtime(), cfg.Strategy())

	names, err := listTests(ctx, runner)
	if err != nil {
		return nil, err
	}
	names, err = matchTests(names, patterns)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, errors.Errorf("no tests matched by pattern(s) %v", patterns)
	}

	sw, err := reporting.NewStreamedWriter(filepath.Join(cfg.ResDir(), reporting.StreamedResultsFilename))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create streamed results")
	}
	defer sw.Close()

	res := testresult.NewResult(r.clk, cfg.CollectCoverage())
	res.AddListener(reporting.NewProgress(ctx, sw))

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return res, errors.Wrap(err, "run interrupted")
		}
		j, err := job.Encode(&job.Spec{
			Test:            name,
			CollectCoverage: cfg.CollectCoverage(),
			Vars:            cfg.Vars(),
			Timeout:         cfg.TestTimeout(),
		})
		if err != nil {
			return res, err
		}
		if _, err := runner.RunJob(ctx, j, testresult.NewCase(name), res); err != nil {
			return res, err
		}
	}
	return res, nil
}

// listTests asks the runtime for the names of its tests by running a list
// job in standalone mode.
func listTests(ctx context.Context, runner *isolate.Runner) ([]string, error) {
	j, err := job.Encode(&job.Spec{List: true})
	if err != nil {
		return nil, err
	}
	raw, err := runner.RunJob(ctx, j, nil, nil)
	if err != nil {
		return nil, err
	}
	if raw.ExitCode != 0 {
		return nil, errors.Errorf("failed to list tests (status %d): %s", raw.ExitCode, bytes.TrimSpace(raw.Stderr))
	}

	var names []string
	sc := bufio.NewScanner(bytes.NewReader(raw.Stdout))
	for sc.Scan() {
		if s := strings.TrimSpace(sc.Text()); s != "" {
			names = append(names, s)
		}
	}
	return names, sc.Err()
}

// matchTests returns the names matched by any of patterns, in the order of
// names. All names match if patterns is empty.
func matchTests(names, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return names, nil
	}
	var matched []string
	for _, n := range names {
		for _, p := range patterns {
			ok, err := path.Match(p, n)
			if err != nil {
				return nil, errors.Wrapf(err, "bad pattern %q", p)
			}
			if ok {
				matched = append(matched, n)
				break
			}
		}
	}
	return matched, nil
}

// writeResults writes the result files of a run to the results directory
// and a summary table to out.
func writeResults(ctx context.Context, cfg *config.Config, res *testresult.Result, elapsed time.Duration, out io.Writer) error {
	entries := res.Entries()
	if err := reporting.WriteResultsJSON(filepath.Join(cfg.ResDir(), reporting.ResultsJSONFilename), entries); err != nil {
		return err
	}
	if err := reporting.WriteJUnitXMLResults(filepath.Join(cfg.ResDir(), reporting.JUnitXMLFilename), entries); err != nil {
		return err
	}
	if cfg.CollectCoverage() {
		if err := reporting.WriteCoverage(filepath.Join(cfg.ResDir(), reporting.CoverageFilename), res.Coverage()); err != nil {
			return err
		}
	}
	reporting.WriteSummary(out, entries, elapsed)
	c := res.Counts()
	logging.Infof(ctx, "Ran %d tests: %d passed, %d failed, %d errors, %d skipped, %d incomplete",
		c.Tests, c.Passed, c.Failed, c.Errored, c.Skipped, c.Incomplete)
	return nil
}
