// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package command contains code shared by the isolate executables.
package command

import (
	"fmt"
	"io"
	"strings"

	"go.chromium.org/isolate/errors"
)

// StatusError implements the error interface and contains an additional
// status code.
type StatusError struct {
	msg    string
	status int
}

func (e *StatusError) Error() string {
	return e.msg
}

// Status returns the exit status attached to e.
func (e *StatusError) Status() int {
	return e.status
}

// NewStatusErrorf creates a StatusError with the passed status code and
// formatted string.
func NewStatusErrorf(status int, format string, args ...interface{}) *StatusError {
	return &StatusError{fmt.Sprintf(format, args...), status}
}

// WriteError writes a newline-terminated fatal error to w and returns the
// status code to use when exiting. If err is a *StatusError, its status code
// is returned. Otherwise, 1 is returned.
func WriteError(w io.Writer, err error) int {
	msg := err.Error()
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	io.WriteString(w, msg)

	var se *StatusError
	if errors.As(err, &se) {
		return se.status
	}
	return 1
}
