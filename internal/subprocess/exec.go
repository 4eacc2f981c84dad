// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package subprocess

import (
	"context"
	"io"
	"os"
	"os/exec"

	"go.chromium.org/isolate/errors"
	"go.chromium.org/isolate/internal/logging"
	"go.chromium.org/isolate/shutil"
)

// ExecCmd represents a local command to execute.
type ExecCmd struct {
	name     string
	baseArgs []string
	env      []string
}

var _ Cmd = &ExecCmd{}

// CommandExec constructs a new ExecCmd representing a local command to execute.
// The child inherits the environment of the current process.
func CommandExec(name string, baseArgs ...string) *ExecCmd {
	return &ExecCmd{
		name:     name,
		baseArgs: baseArgs,
	}
}

// WithEnv returns a copy of c that additionally sets env, given in the
// "key=value" form, in the child's environment. Later values win.
func (c *ExecCmd) WithEnv(env ...string) *ExecCmd {
	return &ExecCmd{
		name:     c.name,
		baseArgs: c.baseArgs,
		env:      append(append([]string(nil), c.env...), env...),
	}
}

// String returns a shell command line reproducing the command.
func (c *ExecCmd) String() string {
	return shutil.CommandLine(c.env, c.name, c.baseArgs...)
}

// Interact runs a local command asynchronously. See Cmd.Interact for details.
func (c *ExecCmd) Interact(ctx context.Context, extraArgs []string) (p Process, retErr error) {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		if retErr != nil {
			cancel()
			retErr = &CreationError{Name: c.name, Err: retErr}
		}
	}()

	args := append(append([]string(nil), c.baseArgs...), extraArgs...)
	cmd := exec.CommandContext(ctx, c.name, args...)
	cmd.Env = append(os.Environ(), c.env...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "stdin pipe")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "stdout pipe")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.Wrap(err, "stderr pipe")
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	logging.Debugf(ctx, "Started %s (pid %d)", shutil.CommandLine(c.env, c.name, args...), cmd.Process.Pid)

	return &ExecProcess{
		cmd:    cmd,
		cancel: cancel,
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}, nil
}

// ExecProcess represents a locally running process.
type ExecProcess struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser
}

var _ Process = &ExecProcess{}

// Stdin returns stdin of the process.
func (p *ExecProcess) Stdin() io.WriteCloser { return p.stdin }

// Stdout returns stdout of the process.
func (p *ExecProcess) Stdout() io.ReadCloser { return p.stdout }

// Stderr returns stderr of the process.
func (p *ExecProcess) Stderr() io.ReadCloser { return p.stderr }

// Wait waits for the process to exit. See Process.Wait for details.
func (p *ExecProcess) Wait(ctx context.Context) error {
	exited := make(chan struct{})
	defer close(exited)

	// Cancel the context passed to exec.CommandContext to kill the
	// process.
	go func() {
		select {
		case <-ctx.Done():
		case <-exited:
		}
		p.cancel()
	}()

	err := p.cmd.Wait()
	var xerr *exec.ExitError
	if errors.As(err, &xerr) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// The exit status is available via ExitCode.
		return nil
	}
	return err
}

// ExitCode returns the exit status of the process. See Process.ExitCode.
func (p *ExecProcess) ExitCode() int {
	if p.cmd.ProcessState == nil {
		return -1
	}
	return p.cmd.ProcessState.ExitCode()
}
