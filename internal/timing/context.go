// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package timing

import (
	"context"
)

// stageKey is the context key under which the stage new stages nest in is
// stored.
type stageKey struct{}

// Attach returns a context in which stages started by Start are recorded in
// l, as top-level stages until a nested stage is started.
func Attach(ctx context.Context, l *Log) context.Context {
	return context.WithValue(ctx, stageKey{}, l.Root)
}

// Current returns the stage that stages started with ctx nest in, or nil if
// no Log is attached to ctx.
func Current(ctx context.Context) *Stage {
	s, _ := ctx.Value(stageKey{}).(*Stage)
	return s
}

// Start starts a stage named name under the current stage of ctx and returns
// a context in which it is current. Without an attached Log it returns ctx
// and a nil stage, which is safe to End.
//
//	ctx, st := timing.Start(ctx, "drain")
//	defer st.End()
func Start(ctx context.Context, name string) (context.Context, *Stage) {
	s := Current(ctx)
	if s == nil {
		return ctx, nil
	}
	c := s.StartChild(name)
	if c == nil {
		// s has already ended.
		return ctx, nil
	}
	return context.WithValue(ctx, stageKey{}, c), c
}

// Do runs f inside a stage named name and ends the stage when f returns.
func Do(ctx context.Context, name string, f func(ctx context.Context) error) error {
	ctx, st := Start(ctx, name)
	defer st.End()
	return f(ctx)
}
