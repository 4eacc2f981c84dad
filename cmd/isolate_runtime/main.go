// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package main implements isolate_runtime, the child executable that runs a
// single test per process. It reads a job from stdin and writes the result
// payload to stdout.
package main

import (
	"context"
	"os"

	"go.chromium.org/isolate/internal/command"
	"go.chromium.org/isolate/internal/harness"
)

func main() {
	command.InstallSignalHandler(os.Stderr, func(os.Signal) {})
	os.Exit(harness.Run(context.Background(), registry(), os.Stdin, os.Stdout, os.Stderr))
}
