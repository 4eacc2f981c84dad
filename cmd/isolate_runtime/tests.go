// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.chromium.org/isolate/internal/harness"
	"go.chromium.org/isolate/internal/logging"
)

// registry returns the tests built into the runtime.
func registry() *harness.Registry {
	reg := harness.NewRegistry()
	for _, t := range []*harness.Test{
		{Name: "example.Pass", Func: pass},
		{Name: "example.Fail", Func: fail},
		{Name: "example.Error", Func: errorTest},
		{Name: "example.Skip", Func: skip},
		{Name: "example.Todo", Func: todo},
		{Name: "example.Panic", Func: panicTest},
		{Name: "example.Crash", Func: crash},
		{Name: "example.Slow", Func: slow, Timeout: 10 * time.Second},
		{Name: "example.Vars", Func: vars},
	} {
		reg.MustAdd(t)
	}
	return reg
}

func pass(ctx context.Context, s *harness.State) {
	s.Log("Checking arithmetic")
	s.Assertf(2+2 == 4, "2+2 = %d", 2+2)
	s.Assert(strings.HasPrefix(s.TestName(), "example."), "unexpected name ", s.TestName())
	if err := s.SetState(map[string]interface{}{"checked": 2}); err != nil {
		s.Error(err)
	}
}

func fail(ctx context.Context, s *harness.State) {
	got := strings.ToUpper("abc")
	s.Assertf(got == "abc", "ToUpper(%q) = %q; want %q", "abc", got, "abc")
}

func errorTest(ctx context.Context, s *harness.State) {
	if _, err := os.Stat("/nonexistent/isolate/file"); err != nil {
		s.Error("Stat failed: ", err)
	}
}

func skip(ctx context.Context, s *harness.State) {
	s.Skip("feature not available on this host")
}

func todo(ctx context.Context, s *harness.State) {
	s.NotImplemented("test body is not written yet")
}

func panicTest(ctx context.Context, s *harness.State) {
	var m map[string]int
	m["boom"]++
}

// crash writes to stderr and exits without a payload.
func crash(ctx context.Context, s *harness.State) {
	fmt.Fprintln(os.Stderr, "fatal: simulated crash")
	os.Exit(2)
}

func slow(ctx context.Context, s *harness.State) {
	logging.Info(ctx, "Sleeping")
	select {
	case <-time.After(time.Second):
	case <-ctx.Done():
		s.Error("Interrupted: ", ctx.Err())
	}
	s.Assert(true)
}

func vars(ctx context.Context, s *harness.State) {
	v, ok := s.Var("greeting")
	if !ok {
		s.Skip("var greeting not set")
	}
	s.Logf("greeting is %q", v)
	s.Assert(v != "", "greeting is empty")
}
