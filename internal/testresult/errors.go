// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package testresult

import (
	"go.chromium.org/isolate/internal/jsonprotocol"
)

// Thrown holds the fields of a value thrown by a test in a child.
type Thrown struct {
	Message string
	Code    int64
	File    string
	Line    int
	Trace   []jsonprotocol.Frame
}

func newThrown(d *jsonprotocol.ExceptionData) Thrown {
	return Thrown{Message: d.Message, Code: d.Code, File: d.File, Line: d.Line, Trace: d.Trace}
}

func (t *Thrown) Error() string { return t.Message }

// Location returns where the value was thrown.
func (t *Thrown) Location() (file string, line int) { return t.File, t.Line }

// StackTrace returns the trace of the value.
func (t *Thrown) StackTrace() []jsonprotocol.Frame { return t.Trace }

// AssertionFailedError is a failed assertion.
type AssertionFailedError struct{ Thrown }

// SkippedError reports a skipped test.
type SkippedError struct{ Thrown }

// IncompleteError reports a test that is not implemented yet.
type IncompleteError struct{ Thrown }

// RuntimeError is an error raised by a test.
type RuntimeError struct{ Thrown }

// Kinds returns the classes thrown by the child harness that this package
// represents natively.
func Kinds() jsonprotocol.Kinds {
	return jsonprotocol.Kinds{
		jsonprotocol.ClassAssertionFailed: func(d *jsonprotocol.ExceptionData) error {
			return &AssertionFailedError{newThrown(d)}
		},
		jsonprotocol.ClassSkipped: func(d *jsonprotocol.ExceptionData) error {
			return &SkippedError{newThrown(d)}
		},
		jsonprotocol.ClassIncomplete: func(d *jsonprotocol.ExceptionData) error {
			return &IncompleteError{newThrown(d)}
		},
		jsonprotocol.ClassError: func(d *jsonprotocol.ExceptionData) error {
			return &RuntimeError{newThrown(d)}
		},
	}
}
