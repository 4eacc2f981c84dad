// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package delivery implements the platform-specific ways of handing a job
// body to a spawned child runtime.
package delivery

import (
	"io"
	"os"
	"runtime"

	"go.chromium.org/isolate/errors"
	"go.chromium.org/isolate/internal/job"
)

// Strategy delivers a job to a spawned child through its stdin.
type Strategy interface {
	// Deliver writes j, or a reference to it, to w. It does not close w.
	//
	// cleanup is non-nil whenever transient artifacts were created, even
	// if err is non-nil, and must be called once the child has exited.
	Deliver(w io.Writer, j job.Job) (cleanup func() error, err error)
}

// Pipe writes the job body directly to the child's stdin.
type Pipe struct{}

var _ Strategy = Pipe{}

// Deliver implements Strategy.
func (Pipe) Deliver(w io.Writer, j job.Job) (func() error, error) {
	if _, err := w.Write(j); err != nil {
		return nil, errors.Wrap(err, "failed to write job")
	}
	return nil, nil
}

func (Pipe) String() string { return "pipe" }

// TempFile writes the job body to a fresh temporary file and sends the child
// a reference to it. This avoids pushing large bodies through a pipe on
// platforms where that is unreliable.
type TempFile struct {
	// Dir is the directory to create files in. Empty means os.TempDir().
	Dir string
}

var _ Strategy = TempFile{}

// Deliver implements Strategy.
func (s TempFile) Deliver(w io.Writer, j job.Job) (cleanup func() error, retErr error) {
	f, err := os.CreateTemp(s.Dir, "isolate_job.*.json")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create job file")
	}
	path := f.Name()
	cleanup = func() error { return os.Remove(path) }

	if _, err := f.Write(j); err != nil {
		f.Close()
		return cleanup, errors.Wrap(err, "failed to write job file")
	}
	if err := f.Close(); err != nil {
		return cleanup, errors.Wrap(err, "failed to write job file")
	}
	if _, err := w.Write(job.Reference(path)); err != nil {
		return cleanup, errors.Wrap(err, "failed to write job reference")
	}
	return cleanup, nil
}

func (TempFile) String() string { return "file" }

// ForOS returns the strategy used on the operating system goos.
func ForOS(goos string) Strategy {
	if goos == "windows" {
		return TempFile{}
	}
	return Pipe{}
}

// Default returns the strategy for the host platform.
func Default() Strategy {
	return ForOS(runtime.GOOS)
}

// Mode names a strategy choice in configuration.
type Mode string

const (
	// ModeAuto selects the host platform's strategy.
	ModeAuto Mode = "auto"
	// ModePipe forces Pipe.
	ModePipe Mode = "pipe"
	// ModeFile forces TempFile.
	ModeFile Mode = "file"
)

// Modes lists valid Mode values.
var Modes = []Mode{ModeAuto, ModePipe, ModeFile}

// ForMode returns the strategy selected by m. dir is used by TempFile.
func ForMode(m Mode, dir string) (Strategy, error) {
	switch m {
	case ModeAuto, "":
		if s, ok := Default().(TempFile); ok {
			s.Dir = dir
			return s, nil
		}
		return Default(), nil
	case ModePipe:
		return Pipe{}, nil
	case ModeFile:
		return TempFile{Dir: dir}, nil
	default:
		return nil, errors.Errorf("unknown delivery mode %q", m)
	}
}
