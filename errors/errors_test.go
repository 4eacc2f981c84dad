// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package errors

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"regexp"
	"testing"
)

func check(t *testing.T, err error, msg string, traceRegexp *regexp.Regexp) {
	t.Helper()
	if s := err.Error(); s != msg {
		t.Errorf("Wrong error message %q; want %q", s, msg)
	}
	if s := fmt.Sprintf("%v", err); s != msg {
		t.Errorf("Wrong default value %q; want %q", s, msg)
	}
	if tr := fmt.Sprintf("%+v", err); !traceRegexp.MatchString(tr) {
		t.Errorf("Wrong trace %q; should match %q", tr, traceRegexp)
	}
}

func TestNew(t *testing.T) {
	const msg = "meow"
	traceRegexp := regexp.MustCompile(`^meow
	at go\.chromium\.org/isolate/errors\.TestNew \(errors_test.go:\d+\)`)

	err := New(msg)

	check(t, err, msg, traceRegexp)
}

func TestErrorf(t *testing.T) {
	const msg = "meow"
	traceRegexp := regexp.MustCompile(`^meow
	at go\.chromium\.org/isolate/errors\.TestErrorf \(errors_test.go:\d+\)`)

	err := Errorf("%sow", "me")

	check(t, err, msg, traceRegexp)
}

func TestWrap(t *testing.T) {
	const msg = "meow: woof"
	traceRegexp := regexp.MustCompile(`(?s)^meow
	at go\.chromium\.org/isolate/errors\.TestWrap \(errors_test.go:\d+\)
.*
woof
	at go\.chromium\.org/isolate/errors\.TestWrap \(errors_test.go:\d+\)`)

	err := Wrap(New("woof"), "meow")

	check(t, err, msg, traceRegexp)
}

func TestWrapForeignError(t *testing.T) {
	const msg = "meow: woof"
	traceRegexp := regexp.MustCompile(`(?s)^meow
	at go\.chromium\.org/isolate/errors\.TestWrapForeignError \(errors_test.go:\d+\)
.*
woof
	at \?\?\?$`)

	// Use standard errors package to create an error without trace.
	err := Wrap(errors.New("woof"), "meow")

	check(t, err, msg, traceRegexp)
}

func TestWrapNil(t *testing.T) {
	const msg = "meow"
	traceRegexp := regexp.MustCompile(`^meow
	at go\.chromium\.org/isolate/errors\.TestWrapNil \(errors_test.go:\d+\)`)

	err := Wrap(nil, "meow")

	check(t, err, msg, traceRegexp)
}

func TestWrapf(t *testing.T) {
	const msg = "meow: woof"
	traceRegexp := regexp.MustCompile(`(?s)^meow
	at go\.chromium\.org/isolate/errors\.TestWrapf \(errors_test.go:\d+\)
.*
woof
	at go\.chromium\.org/isolate/errors\.TestWrapf \(errors_test.go:\d+\)`)

	err := Wrapf(New("woof"), "%sow", "me")

	check(t, err, msg, traceRegexp)
}

func TestIsAs(t *testing.T) {
	err := Wrapf(Wrap(io.ErrUnexpectedEOF, "inner"), "outer %d", 1)
	if !Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("Is(%v, io.ErrUnexpectedEOF) = false; want true", err)
	}
	if Is(err, io.EOF) {
		t.Errorf("Is(%v, io.EOF) = true; want false", err)
	}

	perr := &fs.PathError{Op: "open", Path: "/job", Err: fs.ErrNotExist}
	var target *fs.PathError
	if !As(Wrap(perr, "delivery"), &target) || target != perr {
		t.Errorf("As failed to find *fs.PathError in chain")
	}
	if got := Unwrap(Wrap(perr, "delivery")); got != perr {
		t.Errorf("Unwrap = %v; want %v", got, perr)
	}
}
