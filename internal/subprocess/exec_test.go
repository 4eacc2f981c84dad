// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package subprocess_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.chromium.org/isolate/errors"
	"go.chromium.org/isolate/internal/fakeexec"
	"go.chromium.org/isolate/internal/subprocess"
	"go.chromium.org/isolate/testutil"
)

type echoParams struct {
	ExitCode int
}

// echoMain copies stdin to both stdout and stderr.
var echoMain = fakeexec.NewAuxMain("subprocess_echo", func(p echoParams) {
	io.Copy(io.MultiWriter(os.Stdout, os.Stderr), os.Stdin)
	os.Exit(p.ExitCode)
})

// blockMain blocks until stdin is closed.
var blockMain = fakeexec.NewAuxMain("subprocess_block", func(struct{}) {
	io.Copy(io.Discard, os.Stdin)
})

func TestExecCmdInteract(t *testing.T) {
	p, err := echoMain.Params(echoParams{ExitCode: 3})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := subprocess.CommandExec(p.Executable()).WithEnv(p.Envs()...)
	proc, err := cmd.Interact(ctx, nil)
	if err != nil {
		t.Fatalf("Interact failed: %v", err)
	}

	data := strings.Repeat("cute kittens", 10000)

	// Read stdout and stderr in separate goroutines to avoid deadlocks.
	var stdout, stderr bytes.Buffer
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		io.Copy(&stdout, proc.Stdout())
	}()
	go func() {
		defer wg.Done()
		io.Copy(&stderr, proc.Stderr())
	}()

	stdin := proc.Stdin()
	if _, err := io.WriteString(stdin, data); err != nil {
		t.Errorf("Write failed for stdin: %v", err)
	}
	stdin.Close()
	wg.Wait()

	if err := proc.Wait(ctx); err != nil {
		t.Errorf("Wait failed: %v", err)
	}
	if code := proc.ExitCode(); code != 3 {
		t.Errorf("ExitCode() = %d; want 3", code)
	}
	if s := stdout.String(); s != data {
		t.Errorf("Stdout mismatch: got %d bytes, want %d bytes", len(s), len(data))
	}
	if s := stderr.String(); s != data {
		t.Errorf("Stderr mismatch: got %d bytes, want %d bytes", len(s), len(data))
	}
}

func TestExecCmdInteractCreationError(t *testing.T) {
	dir := testutil.TempDir(t)
	path := filepath.Join(dir, "missing_runtime")

	_, err := subprocess.CommandExec(path).Interact(context.Background(), nil)
	if err == nil {
		t.Fatal("Interact unexpectedly succeeded")
	}
	var cerr *subprocess.CreationError
	if !errors.As(err, &cerr) {
		t.Fatalf("Interact returned %T; want *subprocess.CreationError", err)
	}
	if cerr.Name != path {
		t.Errorf("CreationError.Name = %q; want %q", cerr.Name, path)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Interact error %v does not wrap os.ErrNotExist", err)
	}
}

func TestExecCmdInteractCancel(t *testing.T) {
	p, err := blockMain.Params(struct{}{})
	if err != nil {
		t.Fatal(err)
	}

	interactCtx, interactCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer interactCancel()

	proc, err := subprocess.CommandExec(p.Executable()).WithEnv(p.Envs()...).Interact(interactCtx, nil)
	if err != nil {
		t.Fatalf("Interact failed: %v", err)
	}

	// Cancel the context passed to Interact, which should kill the process
	// soon.
	interactCancel()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer waitCancel()
	proc.Wait(waitCtx)

	if waitCtx.Err() != nil {
		t.Error("Wait did not return soon after cancellation")
	}
	if code := proc.ExitCode(); code != -1 {
		t.Errorf("ExitCode() = %d; want -1 for a killed process", code)
	}
}

func TestExecCmdWaitCancel(t *testing.T) {
	p, err := blockMain.Params(struct{}{})
	if err != nil {
		t.Fatal(err)
	}

	proc, err := subprocess.CommandExec(p.Executable()).WithEnv(p.Envs()...).Interact(context.Background(), nil)
	if err != nil {
		t.Fatalf("Interact failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := proc.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait returned %v; want %v", err, context.Canceled)
	}
}

func TestExecCmdString(t *testing.T) {
	cmd := subprocess.CommandExec("/opt/my runtime", "-q").WithEnv("A=1")
	if got, want := cmd.String(), `A=1 '/opt/my runtime' -q`; got != want {
		t.Errorf("String() = %q; want %q", got, want)
	}
}
