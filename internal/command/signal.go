// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package command

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"

	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sys/unix"
)

var selfName = filepath.Base(os.Args[0])

// InstallSignalHandler installs a signal handler that calls callback and
// exits. out is the output stream to write messages to (typically stderr).
//
// On SIGTERM, goroutine stacks are dumped to out and child runtimes still
// running are terminated, so that a hung test leaves a trace behind.
func InstallSignalHandler(out io.Writer, callback func(sig os.Signal)) {
	ch := make(chan os.Signal, 1)
	go func() {
		sig := <-ch
		fmt.Fprintf(out, "\n%s: Caught %v signal; exiting\n", selfName, sig)
		callback(sig)
		if sig == unix.SIGTERM {
			handleSIGTERM(out)
		}
		os.Exit(1)
	}()
	signal.Notify(ch, unix.SIGINT, unix.SIGTERM)
}

func handleSIGTERM(out io.Writer) {
	fmt.Fprintf(out, "\n%s: Dumping all goroutines...\n\n", selfName)
	if p := pprof.Lookup("goroutine"); p != nil {
		p.WriteTo(out, 2)
	}
	fmt.Fprintf(out, "\n%s: Finished dumping goroutines\n", selfName)

	if n, err := TerminateChildren(); err != nil {
		fmt.Fprintf(out, "Failed to terminate subprocesses: %v\n", err)
	} else if n > 0 {
		fmt.Fprintf(out, "%s: Terminated %d subprocesses\n", selfName, n)
	}
}

// TerminateChildren sends SIGTERM to all direct children of the current
// process and returns how many were signaled.
func TerminateChildren() (int, error) {
	procs, err := process.Processes()
	if err != nil {
		return 0, err
	}

	selfPid := int32(os.Getpid())
	n := 0
	for _, proc := range procs {
		ppid, err := proc.Ppid()
		if err != nil || ppid != selfPid {
			continue
		}
		if err := proc.Terminate(); err == nil {
			n++
		}
	}
	return n, nil
}
