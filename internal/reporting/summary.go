// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package reporting

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"go.chromium.org/isolate/internal/testresult"
)

// maxReasonWidth bounds the width of the reason column.
const maxReasonWidth = 60

// WriteSummary renders a table of entries with a totals footer to w.
// elapsed is the wall time of the whole run.
func WriteSummary(w io.Writer, entries []*testresult.Entry, elapsed time.Duration) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("Results (%s)", formatDuration(elapsed)))
	t.AppendHeader(table.Row{"Test", "Status", "Duration", "Assertions", "Reason"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Assertions", Align: text.AlignRight},
		{Name: "Reason", WidthMax: maxReasonWidth, WidthMaxEnforcer: text.WrapSoft},
	})

	var c testresult.Counts
	for _, e := range entries {
		st := e.Status()
		switch st {
		case testresult.StatusPass:
			c.Passed++
		case testresult.StatusFail:
			c.Failed++
		case testresult.StatusError:
			c.Errored++
		case testresult.StatusSkip:
			c.Skipped++
		case testresult.StatusIncomplete:
			c.Incomplete++
		}
		t.AppendRow(table.Row{e.Name, string(st), formatDuration(e.Elapsed), e.Assertions, reason(e)})
	}
	c.Tests = len(entries)

	t.AppendFooter(table.Row{
		"TOTAL",
		fmt.Sprintf("%d tests", c.Tests),
		"",
		"",
		fmt.Sprintf("%d passed, %d failed, %d errors, %d skipped, %d incomplete",
			c.Passed, c.Failed, c.Errored, c.Skipped, c.Incomplete),
	})
	t.SetStyle(table.StyleLight)
	t.Style().Format.Footer = text.FormatDefault
	t.Render()
}

// reason returns the first problem message of e.
func reason(e *testresult.Entry) string {
	if len(e.Failures) > 0 {
		return e.Failures[0].Reason
	}
	if len(e.Errors) > 0 {
		return e.Errors[0].Reason
	}
	return ""
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.3fs", d.Seconds())
}
