// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package command_test

import (
	"os"
	"os/exec"
	"testing"
	"time"

	"go.chromium.org/isolate/internal/command"
	"go.chromium.org/isolate/internal/fakeexec"
)

var sleepMain = fakeexec.NewAuxMain("command_test_sleep", func(struct{}) {
	time.Sleep(time.Minute)
})

func TestTerminateChildren(t *testing.T) {
	p, err := sleepMain.Params(struct{}{})
	if err != nil {
		t.Fatal(err)
	}
	cmd := exec.Command(p.Executable())
	cmd.Env = append(os.Environ(), p.Envs()...)
	if err := cmd.Start(); err != nil {
		t.Fatal(err)
	}
	defer cmd.Process.Kill()

	n, err := command.TerminateChildren()
	if err != nil {
		t.Fatal("TerminateChildren: ", err)
	}
	if n < 1 {
		t.Errorf("TerminateChildren signaled %d processes; want at least 1", n)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case err := <-done:
		if err == nil {
			t.Error("Child exited successfully; want termination by signal")
		}
	case <-time.After(30 * time.Second):
		t.Error("Child did not exit after SIGTERM")
	}
}
