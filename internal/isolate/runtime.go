// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package isolate

import (
	"os"
	"path/filepath"
	"runtime"
)

// RuntimeEnv is the environment variable overriding the child runtime path.
const RuntimeEnv = "ISOLATE_RUNTIME"

// runtimeName is the base name of the default child runtime.
const runtimeName = "isolate_runtime"

// DefaultRuntime returns the platform default runtime: isolate_runtime
// installed next to the current executable, or looked up in PATH if the
// current executable cannot be located.
func DefaultRuntime() string {
	name := runtimeName
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	exe, err := os.Executable()
	if err != nil {
		return name
	}
	return filepath.Join(filepath.Dir(exe), name)
}

// ResolveRuntime returns the runtime named by RuntimeEnv if it is set and
// non-empty, and DefaultRuntime otherwise.
func ResolveRuntime() string {
	if p := os.Getenv(RuntimeEnv); p != "" {
		return p
	}
	return DefaultRuntime()
}
