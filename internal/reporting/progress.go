// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package reporting

import (
	"context"

	"go.chromium.org/isolate/internal/logging"
	"go.chromium.org/isolate/internal/testresult"
)

// Progress is a testresult.Listener that logs test progress via a context
// and mirrors entries to an optional StreamedWriter.
type Progress struct {
	ctx context.Context
	sw  *StreamedWriter
}

var _ testresult.Listener = &Progress{}

// NewProgress returns a Progress logging to ctx. sw may be nil.
func NewProgress(ctx context.Context, sw *StreamedWriter) *Progress {
	return &Progress{ctx: ctx, sw: sw}
}

// TestStarted is called when a test starts.
func (p *Progress) TestStarted(e *testresult.Entry) {
	logging.Info(p.ctx, "Started test ", e.Name)
	p.stream(e, false)
}

// TestEnded is called when a test ends.
func (p *Progress) TestEnded(e *testresult.Entry) {
	st := e.Status()
	if r := reason(e); r != "" {
		logging.Infof(p.ctx, "Completed test %s in %v [%s] %s", e.Name, e.Elapsed, st, r)
	} else {
		logging.Infof(p.ctx, "Completed test %s in %v [%s]", e.Name, e.Elapsed, st)
	}
	for _, pr := range append(append([]testresult.Problem(nil), e.Failures...), e.Errors...) {
		logging.Debugf(p.ctx, "%s at %s:%d\n%s", pr.Reason, pr.File, pr.Line, pr.Stack)
	}
	p.stream(e, true)
}

func (p *Progress) stream(e *testresult.Entry, update bool) {
	if p.sw == nil {
		return
	}
	if err := p.sw.Write(e, update); err != nil {
		logging.Info(p.ctx, "Failed to write streamed results: ", err)
	}
}
