// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package loggingtest_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"go.chromium.org/isolate/internal/logging"
	"go.chromium.org/isolate/internal/logging/loggingtest"
)

// recordingTB captures what Logger forwards to the test log.
type recordingTB struct {
	lines []string
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Log(args ...interface{}) {
	r.lines = append(r.lines, fmt.Sprint(args...))
}

func TestLoggerLevels(t *testing.T) {
	tb := &recordingTB{}
	logger := loggingtest.NewLogger(tb, logging.LevelInfo)
	ctx := logging.AttachLogger(context.Background(), logger)

	logging.Debug(ctx, "Child exited with status 0")
	logging.Info(ctx, "Failed to deliver job")

	want := []loggingtest.Entry{{Level: logging.LevelInfo, Msg: "Failed to deliver job"}}
	if diff := cmp.Diff(logger.Entries(), want); diff != "" {
		t.Errorf("Entries mismatch (-got +want):\n%s", diff)
	}
	if diff := cmp.Diff(logger.Logs(), []string{"Failed to deliver job"}); diff != "" {
		t.Errorf("Logs mismatch (-got +want):\n%s", diff)
	}
	if got, want := logger.String(), "INFO Failed to deliver job"; got != want {
		t.Errorf("String() = %q; want %q", got, want)
	}

	// Entries below the recording level still reach the test log.
	wantLines := []string{"DEBUG Child exited with status 0", "INFO Failed to deliver job"}
	if diff := cmp.Diff(tb.lines, wantLines); diff != "" {
		t.Errorf("Test log mismatch (-got +want):\n%s", diff)
	}
}

func TestLoggerContains(t *testing.T) {
	logger := loggingtest.NewLogger(&recordingTB{}, logging.LevelDebug)
	ctx := logging.AttachLogger(context.Background(), logger)
	logging.Debug(ctx, "Child wrote to stderr; ignoring stdout")

	if !logger.Contains(logging.LevelDebug, "wrote to stderr") {
		t.Error("Contains(DEBUG, ...) = false; want true")
	}
	if logger.Contains(logging.LevelInfo, "wrote to stderr") {
		t.Error("Contains(INFO, ...) = true for a debug entry; want false")
	}
}
