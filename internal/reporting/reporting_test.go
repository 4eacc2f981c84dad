// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package reporting_test

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	"github.com/google/go-cmp/cmp"

	"go.chromium.org/isolate/internal/coverage"
	"go.chromium.org/isolate/internal/jsonprotocol"
	"go.chromium.org/isolate/internal/logging"
	"go.chromium.org/isolate/internal/logging/loggingtest"
	"go.chromium.org/isolate/internal/reporting"
	"go.chromium.org/isolate/internal/testresult"
	"go.chromium.org/isolate/internal/timing"
)

var epoch = time.Date(2024, 2, 3, 19, 0, 2, 0, time.UTC)

func thrown(msg string) testresult.Thrown {
	return testresult.Thrown{
		Message: msg,
		File:    "/src/example/example.go",
		Line:    42,
		Trace:   []jsonprotocol.Frame{{File: "/src/example/example.go", Line: 42, Function: "example.Test"}},
	}
}

// newResult returns a result holding one test of each status. Listeners in
// ls observe the run.
func newResult(ls ...testresult.Listener) *testresult.Result {
	clk := fakeclock.NewFakeClock(epoch)
	res := testresult.NewResult(clk, false)
	for _, l := range ls {
		res.AddListener(l)
	}

	run := func(name string, assertions int, report func(c *testresult.Case)) {
		c := testresult.NewCase(name)
		res.StartTest(c)
		c.AddToAssertionCount(assertions)
		if report != nil {
			report(c)
		}
		clk.Increment(time.Second)
		res.EndTest(c, 1500*time.Millisecond)
	}
	run("example.Pass", 3, nil)
	run("example.Fail", 1, func(c *testresult.Case) {
		res.AddFailure(c, &testresult.AssertionFailedError{Thrown: thrown("1 != 2")}, 0)
	})
	run("example.Error", 0, func(c *testresult.Case) {
		res.AddError(c, &testresult.RuntimeError{Thrown: thrown("broken")}, 0)
	})
	run("example.Skip", 0, func(c *testresult.Case) {
		res.AddError(c, &testresult.SkippedError{Thrown: thrown("no device")}, 0)
	})
	run("example.Todo", 0, func(c *testresult.Case) {
		res.AddError(c, &testresult.IncompleteError{Thrown: thrown("later")}, 0)
	})
	return res
}

func TestWriteResultsJSON(t *testing.T) {
	res := newResult()
	path := filepath.Join(t.TempDir(), reporting.ResultsJSONFilename)
	if err := reporting.WriteResultsJSON(path, res.Entries()); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got []*testresult.Entry
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(got, res.Entries(), cmp.AllowUnexported(testresult.Problem{}), cmp.FilterPath(func(p cmp.Path) bool {
		return p.Last().String() == ".err"
	}, cmp.Ignore())); diff != "" {
		t.Errorf("Entries mismatch (-got +want):\n%s", diff)
	}
}

func TestWriteResultsJSONEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), reporting.ResultsJSONFilename)
	if err := reporting.WriteResultsJSON(path, nil); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(string(b)); got != "[]" {
		t.Errorf("Wrote %q; want []", got)
	}
}

// Minimal JUnit structures for reading back.
type junitCase struct {
	Name       string `xml:"name,attr"`
	Status     string `xml:"status,attr"`
	Result     string `xml:"result,attr"`
	Assertions int    `xml:"assertions,attr"`
	Errors     []struct {
		Message string `xml:"message,attr"`
		Type    string `xml:"type,attr"`
	} `xml:"error"`
	Failures []struct {
		Message string `xml:"message,attr"`
		Details string `xml:",chardata"`
	} `xml:"failure"`
	Skipped *struct {
		Message string `xml:"message,attr"`
	} `xml:"skipped"`
}

type junitSuites struct {
	Suite struct {
		Tests    int         `xml:"tests,attr"`
		Errors   int         `xml:"errors,attr"`
		Failures int         `xml:"failures,attr"`
		Skipped  int         `xml:"skipped,attr"`
		Cases    []junitCase `xml:"testcase"`
	} `xml:"testsuite"`
}

func TestWriteJUnitXMLResults(t *testing.T) {
	res := newResult()
	path := filepath.Join(t.TempDir(), reporting.JUnitXMLFilename)
	if err := reporting.WriteJUnitXMLResults(path, res.Entries()); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got junitSuites
	if err := xml.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}

	s := got.Suite
	if s.Tests != 5 || s.Failures != 1 || s.Errors != 1 || s.Skipped != 2 {
		t.Errorf("Suite counts = %d tests, %d failures, %d errors, %d skipped; want 5, 1, 1, 2", s.Tests, s.Failures, s.Errors, s.Skipped)
	}
	if len(s.Cases) != 5 {
		t.Fatalf("Got %d cases; want 5", len(s.Cases))
	}
	pass, fail, errc, skip, todo := s.Cases[0], s.Cases[1], s.Cases[2], s.Cases[3], s.Cases[4]
	if pass.Status != "run" || pass.Assertions != 3 || len(pass.Errors)+len(pass.Failures) != 0 || pass.Skipped != nil {
		t.Errorf("Pass case = %+v", pass)
	}
	if len(fail.Failures) != 1 || fail.Failures[0].Message != "1 != 2" ||
		!strings.HasPrefix(fail.Failures[0].Details, "/src/example/example.go:42\nexample.Test") {
		t.Errorf("Fail case = %+v", fail)
	}
	if len(errc.Errors) != 1 || errc.Errors[0].Message != "broken" || errc.Errors[0].Type != "*testresult.RuntimeError" {
		t.Errorf("Error case = %+v", errc)
	}
	if skip.Status != "notrun" || skip.Result != "skipped" || skip.Skipped == nil || skip.Skipped.Message != "no device" {
		t.Errorf("Skip case = %+v", skip)
	}
	if todo.Result != "incomplete" || todo.Skipped == nil || todo.Skipped.Message != "later" {
		t.Errorf("Incomplete case = %+v", todo)
	}
}

func TestWriteSummary(t *testing.T) {
	res := newResult()
	var buf bytes.Buffer
	reporting.WriteSummary(&buf, res.Entries(), 5*time.Second)
	out := buf.String()
	for _, s := range []string{
		"Results (5.000s)",
		"example.Pass", "PASS",
		"example.Fail", "FAIL", "1 != 2",
		"example.Skip", "SKIP", "no device",
		"INCOMPLETE",
		"1 passed, 1 failed, 1 errors, 1 skipped, 1 incomplete",
	} {
		if !strings.Contains(out, s) {
			t.Errorf("Summary does not contain %q:\n%s", s, out)
		}
	}
}

func TestStreamedWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), reporting.StreamedResultsFilename)
	sw, err := reporting.NewStreamedWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	newResult(reporting.NewProgress(context.Background(), sw))
	if err := sw.Close(); err != nil {
		t.Fatal(err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, line := range strings.Split(strings.TrimSpace(string(b)), "\n") {
		var e testresult.Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("Bad line %q: %v", line, err)
		}
		if e.End.IsZero() {
			t.Errorf("Entry %s was not updated on completion", e.Name)
		}
		names = append(names, e.Name)
	}
	want := []string{"example.Pass", "example.Fail", "example.Error", "example.Skip", "example.Todo"}
	if diff := cmp.Diff(names, want); diff != "" {
		t.Errorf("Streamed entries mismatch (-got +want):\n%s", diff)
	}
}

func TestProgressLogs(t *testing.T) {
	logger := loggingtest.NewLogger(t, logging.LevelInfo)
	ctx := logging.AttachLogger(context.Background(), logger)
	newResult(reporting.NewProgress(ctx, nil))

	logs := logger.Logs()
	if len(logs) != 10 {
		t.Fatalf("Got %d log lines; want 10:\n%s", len(logs), logger.String())
	}
	if want := "Started test example.Pass"; logs[0] != want {
		t.Errorf("logs[0] = %q; want %q", logs[0], want)
	}
	if want := "Completed test example.Fail in 1.5s [FAIL] 1 != 2"; logs[3] != want {
		t.Errorf("logs[3] = %q; want %q", logs[3], want)
	}
}

func TestWriteCoverageAndTiming(t *testing.T) {
	dir := t.TempDir()

	cov := coverage.Data{}
	cov.Record("a.go", 3)
	if err := reporting.WriteCoverage(filepath.Join(dir, reporting.CoverageFilename), cov); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(filepath.Join(dir, reporting.CoverageFilename))
	if err != nil {
		t.Fatal(err)
	}
	var gotCov coverage.Data
	if err := json.Unmarshal(b, &gotCov); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(gotCov, cov); diff != "" {
		t.Errorf("Coverage mismatch (-got +want):\n%s", diff)
	}

	l := timing.NewLogWithClock(fakeclock.NewFakeClock(epoch))
	l.StartTop("run").End()
	if err := reporting.WriteTiming(filepath.Join(dir, reporting.TimingFilename), l); err != nil {
		t.Fatal(err)
	}
	b, err = os.ReadFile(filepath.Join(dir, reporting.TimingFilename))
	if err != nil {
		t.Fatal(err)
	}
	var gotLog timing.Log
	if err := json.Unmarshal(b, &gotLog); err != nil {
		t.Fatal(err)
	}
	if gotLog.Empty() {
		t.Error("Timing log read back empty")
	}
}
