// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package isolate

import (
	"fmt"

	"go.chromium.org/isolate/internal/jsonprotocol"
)

// ChildError reports a child that wrote to stderr or whose stdout could not
// be decoded.
type ChildError struct {
	// Text is the trimmed stderr, or trimmed stdout on a decode failure.
	Text string
	// Cause is the decode fault. It is nil for stderr output.
	Cause error
}

func (e *ChildError) Error() string {
	return e.Text
}

func (e *ChildError) Unwrap() error {
	return e.Cause
}

// SyntheticError stands in for a value thrown in a child whose class the
// parent does not know.
type SyntheticError struct {
	// Class is the name of the original class in the child.
	Class string
	// Message is the original message.
	Message string
	Code    int64
	File    string
	Line    int
	Trace   []jsonprotocol.Frame
}

// NewSyntheticError builds a SyntheticError for a value of class with the
// standard fields d.
func NewSyntheticError(class string, d *jsonprotocol.ExceptionData) *SyntheticError {
	return &SyntheticError{
		Class:   class,
		Message: d.Message,
		Code:    d.Code,
		File:    d.File,
		Line:    d.Line,
		Trace:   d.Trace,
	}
}

// Error returns "<class>: <message>".
func (e *SyntheticError) Error() string {
	return fmt.Sprintf("%s: %s", e.Class, e.Message)
}

// Location returns where the original value was thrown.
func (e *SyntheticError) Location() (file string, line int) {
	return e.File, e.Line
}

// StackTrace returns the trace of the original value.
func (e *SyntheticError) StackTrace() []jsonprotocol.Frame {
	return e.Trace
}
