// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package subprocess launches child runtimes wired with three independent
// pipes.
package subprocess

import (
	"context"
	"io"
)

// Cmd is a common interface abstracting an external command to execute.
type Cmd interface {
	// Interact starts an external command asynchronously.
	//
	// extraArgs is appended to the base arguments passed to the constructor
	// of Cmd. Returned Process owns the parent ends of the stdin, stdout
	// and stderr pipes of the new subprocess.
	//
	// If the process or its pipes cannot be created, the returned error is
	// a *CreationError.
	//
	// When ctx is canceled, the subprocess is killed by a signal.
	Interact(ctx context.Context, extraArgs []string) (Process, error)

	// String returns a shell command line reproducing the command.
	String() string
}

// Process is a common interface abstracting a running external process.
type Process interface {
	// Stdin returns stdin of the process.
	Stdin() io.WriteCloser

	// Stdout returns stdout of the process.
	Stdout() io.ReadCloser

	// Stderr returns stderr of the process.
	Stderr() io.ReadCloser

	// Wait waits for the process to exit.
	//
	// Wait also releases resources associated to the process, so it must
	// be always called when you are done with it.
	//
	// Upon Wait finishes, io.ReadCloser returned by Stdout and Stderr
	// might be closed. This means that it is wrong to call Wait before
	// finishing to read necessary data from stdout/stderr.
	//
	// A non-zero exit status is not reported as an error; see ExitCode.
	Wait(ctx context.Context) error

	// ExitCode returns the exit status of the process after Wait returns.
	// It returns -1 if the process has not exited or was killed by a signal.
	ExitCode() int
}
