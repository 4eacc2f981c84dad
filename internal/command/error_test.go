// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package command_test

import (
	"bytes"
	"testing"

	"go.chromium.org/isolate/errors"
	"go.chromium.org/isolate/internal/command"
)

func TestWriteErrorStatusError(t *testing.T) {
	const (
		status = 127
		msg    = "this is the error message"
	)

	// When passed a *StatusError, WriteError should return the attached status code.
	err := command.NewStatusErrorf(status, msg)
	b := bytes.Buffer{}
	if ret := command.WriteError(&b, err); ret != status {
		t.Errorf("WriteError(%v) = %v; want %v", err, ret, status)
	}
	if b.String() != msg+"\n" {
		t.Errorf("WriteError(%v) wrote %q; want %q", err, b.String(), msg+"\n")
	}
}

func TestWriteErrorWrappedStatusError(t *testing.T) {
	err := errors.Wrap(command.NewStatusErrorf(3, "inner"), "outer")
	b := bytes.Buffer{}
	if ret := command.WriteError(&b, err); ret != 3 {
		t.Errorf("WriteError(%v) = %v; want 3", err, ret)
	}
	if b.String() != "outer: inner\n" {
		t.Errorf("WriteError(%v) wrote %q; want %q", err, b.String(), "outer: inner\n")
	}
}

func TestWriteErrorGenericError(t *testing.T) {
	const msg = "this is the error message"

	// When passed another error, WriteError should just return 1.
	err := errors.New(msg)
	b := bytes.Buffer{}
	if ret := command.WriteError(&b, err); ret != 1 {
		t.Errorf("WriteError(%v) = %v; want 1", err, ret)
	}
	if b.String() != msg+"\n" {
		t.Errorf("WriteError(%v) wrote %q; want %q", err, b.String(), msg+"\n")
	}
}
