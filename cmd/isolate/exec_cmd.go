// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"io"
	"os"

	"code.cloudfoundry.org/clock"
	"github.com/google/subcommands"

	"go.chromium.org/isolate/errors"
	"go.chromium.org/isolate/internal/command"
	"go.chromium.org/isolate/internal/config"
	"go.chromium.org/isolate/internal/isolate"
	"go.chromium.org/isolate/internal/job"
	"go.chromium.org/isolate/internal/logging"
)

// execCmd implements subcommands.Command to run a single job in standalone
// mode and print the child's raw output.
type execCmd struct {
	cfg     *config.MutableConfig
	stdout  io.Writer
	stderr  io.Writer
	clk     clock.Clock
	jobFile string
	list    bool
}

var _ = subcommands.Command(&execCmd{})

func newExecCmd(stdout, stderr io.Writer) *execCmd {
	return &execCmd{
		cfg:    config.NewMutableConfig(),
		stdout: stdout,
		stderr: stderr,
		clk:    clock.NewClock(),
	}
}

func (*execCmd) Name() string     { return "exec" }
func (*execCmd) Synopsis() string { return "run a job in a child runtime and print its raw output" }
func (*execCmd) Usage() string {
	return `Usage: exec [flag]... <test>
       exec [flag]... -list
       exec [flag]... -job <file>

Description:
    Runs a single job in a child runtime without interpreting the result.
    The child's stdout and stderr are copied verbatim. Exits with the
    child's exit status.

Flag:
`
}

func (e *execCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&e.jobFile, "job", "", "file containing a job body to send as is")
	f.BoolVar(&e.list, "list", false, "list the tests of the runtime")
	e.cfg.SetFlags(f)
}

func (e *execCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if e.cfg.ConfigFile != "" {
		if err := e.cfg.ApplyFile(e.cfg.ConfigFile, f); err != nil {
			logging.Info(ctx, err)
			return subcommands.ExitUsageError
		}
	}
	if err := e.cfg.DeriveDefaults(e.clk); err != nil {
		logging.Info(ctx, "Failed to derive defaults: ", err)
		return subcommands.ExitUsageError
	}
	cfg := e.cfg.Freeze()

	j, err := e.buildJob(cfg, f.Args())
	if err != nil {
		logging.Info(ctx, err.Error()+"\n\n"+e.Usage())
		return subcommands.ExitUsageError
	}

	status, err := e.exec(ctx, cfg, j)
	if err != nil {
		return subcommands.ExitStatus(command.WriteError(e.stderr, err))
	}
	if status != 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (e *execCmd) buildJob(cfg *config.Config, args []string) (job.Job, error) {
	switch {
	case e.jobFile != "":
		if e.list || len(args) > 0 {
			return nil, errors.New("-job cannot be combined with a test or -list")
		}
		b, err := os.ReadFile(e.jobFile)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read job")
		}
		return job.Job(b), nil
	case e.list:
		if len(args) > 0 {
			return nil, errors.New("-list takes no test")
		}
		return job.Encode(&job.Spec{List: true})
	case len(args) == 1:
		return job.Encode(&job.Spec{
			Test:            args[0],
			CollectCoverage: cfg.CollectCoverage(),
			Vars:            cfg.Vars(),
			Timeout:         cfg.TestTimeout(),
		})
	default:
		return nil, errors.New("exactly one test must be given")
	}
}

// exec runs j and copies the child's output. It returns the child's exit
// status.
func (e *execCmd) exec(ctx context.Context, cfg *config.Config, j job.Job) (int, error) {
	if cfg.Timeout() > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout())
		defer cancel()
	}
	runner := &isolate.Runner{
		Runtime:  cfg.Runtime(),
		Env:      cfg.Env(),
		Strategy: cfg.Strategy(),
	}
	raw, err := runner.RunJob(ctx, j, nil, nil)
	if err != nil {
		return 0, err
	}
	if _, err := e.stdout.Write(raw.Stdout); err != nil {
		return 0, errors.Wrap(err, "failed to copy stdout")
	}
	if _, err := e.stderr.Write(raw.Stderr); err != nil {
		return 0, errors.Wrap(err, "failed to copy stderr")
	}
	logging.Debugf(ctx, "Child exited with status %d", raw.ExitCode)
	return raw.ExitCode, nil
}
