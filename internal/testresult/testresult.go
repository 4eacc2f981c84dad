// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package testresult is the parent-side aggregate result of a test run.
package testresult

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"code.cloudfoundry.org/clock"

	"go.chromium.org/isolate/errors"
	"go.chromium.org/isolate/internal/coverage"
	"go.chromium.org/isolate/internal/isolate"
	"go.chromium.org/isolate/internal/jsonprotocol"
)

// Case is a test entity run in a child.
type Case struct {
	name       string
	state      json.RawMessage
	assertions int
}

var _ isolate.Test = &Case{}

// NewCase returns a Case for the test name.
func NewCase(name string) *Case {
	return &Case{name: name}
}

// Name returns the name of the test.
func (c *Case) Name() string { return c.name }

// SetResult stores opaque state reported by the child.
func (c *Case) SetResult(state json.RawMessage) { c.state = state }

// AddToAssertionCount adds n to the number of assertions performed.
func (c *Case) AddToAssertionCount(n int) { c.assertions += n }

// State returns the opaque state reported by the child.
func (c *Case) State() json.RawMessage { return c.state }

// Assertions returns the number of assertions performed.
func (c *Case) Assertions() int { return c.assertions }

// Status summarizes an entry.
type Status string

// Statuses of entries.
const (
	StatusPass       Status = "PASS"
	StatusFail       Status = "FAIL"
	StatusError      Status = "ERROR"
	StatusSkip       Status = "SKIP"
	StatusIncomplete Status = "INCOMPLETE"
)

// Problem is an error or failure recorded for a test.
type Problem struct {
	Time   time.Time `json:"time"`
	Reason string    `json:"reason"`
	File   string    `json:"file"`
	Line   int       `json:"line"`
	Stack  string    `json:"stack"`

	err error
}

// Err returns the error the problem was recorded from.
func (p *Problem) Err() error { return p.err }

func newProblem(ts time.Time, err error) Problem {
	p := Problem{Time: ts, Reason: err.Error(), err: err}
	var loc interface{ Location() (string, int) }
	if errors.As(err, &loc) {
		p.File, p.Line = loc.Location()
	}
	var st interface{ StackTrace() []jsonprotocol.Frame }
	if errors.As(err, &st) {
		p.Stack = formatTrace(st.StackTrace())
	}
	return p
}

func formatTrace(frames []jsonprotocol.Frame) string {
	var sb strings.Builder
	for _, f := range frames {
		fmt.Fprintf(&sb, "%s\n\t%s:%d\n", f.Function, f.File, f.Line)
	}
	return sb.String()
}

// Entry is the result of a single test.
type Entry struct {
	Name string `json:"name"`
	// Start and End are the parent's wall clock times at which the test
	// started and ended.
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	// Elapsed is the run time reported by the child.
	Elapsed    time.Duration   `json:"elapsed"`
	Assertions int             `json:"assertions"`
	Errors     []Problem       `json:"errors"`
	Failures   []Problem       `json:"failures"`
	SkipReason string          `json:"skipReason,omitempty"`
	State      json.RawMessage `json:"state,omitempty"`
}

// Status returns the status of e.
func (e *Entry) Status() Status {
	if len(e.Failures) > 0 {
		return StatusFail
	}
	if len(e.Errors) == 0 {
		return StatusPass
	}
	switch e.Errors[0].err.(type) {
	case *SkippedError:
		return StatusSkip
	case *IncompleteError:
		return StatusIncomplete
	default:
		return StatusError
	}
}

// Listener is notified as tests start and end.
type Listener interface {
	TestStarted(e *Entry)
	TestEnded(e *Entry)
}

// Result aggregates the results of tests run one at a time. It is not safe
// for concurrent use.
type Result struct {
	clk       clock.Clock
	collect   bool
	cov       coverage.Data
	entries   []*Entry
	running   map[string]*Entry
	listeners []Listener
}

var _ isolate.Result = &Result{}

// NewResult returns an empty Result. Entry times are taken from clk.
// Coverage reported by children is merged only if collectCoverage is set.
func NewResult(clk clock.Clock, collectCoverage bool) *Result {
	return &Result{
		clk:     clk,
		collect: collectCoverage,
		cov:     make(coverage.Data),
		running: make(map[string]*Entry),
	}
}

// AddListener registers l to be notified of test progress.
func (r *Result) AddListener(l Listener) {
	r.listeners = append(r.listeners, l)
}

// StartTest records that t started.
func (r *Result) StartTest(t isolate.Test) {
	e := &Entry{Name: t.Name(), Start: r.clk.Now()}
	r.entries = append(r.entries, e)
	r.running[e.Name] = e
	for _, l := range r.listeners {
		l.TestStarted(e)
	}
}

// entry returns the running entry of t, starting one if needed.
func (r *Result) entry(t isolate.Test) *Entry {
	if e, ok := r.running[t.Name()]; ok {
		return e
	}
	r.StartTest(t)
	return r.running[t.Name()]
}

// AddError records err as an error of t.
func (r *Result) AddError(t isolate.Test, err error, elapsed time.Duration) {
	e := r.entry(t)
	e.Errors = append(e.Errors, newProblem(r.clk.Now(), err))
	var skip *SkippedError
	if errors.As(err, &skip) && e.SkipReason == "" {
		e.SkipReason = skip.Message
	}
	e.Elapsed = elapsed
}

// AddFailure records err as a failure of t.
func (r *Result) AddFailure(t isolate.Test, err error, elapsed time.Duration) {
	e := r.entry(t)
	e.Failures = append(e.Failures, newProblem(r.clk.Now(), err))
	e.Elapsed = elapsed
}

// EndTest records that t ended.
func (r *Result) EndTest(t isolate.Test, elapsed time.Duration) {
	e := r.entry(t)
	e.End = r.clk.Now()
	e.Elapsed = elapsed
	if c, ok := t.(*Case); ok {
		e.Assertions = c.Assertions()
		e.State = c.State()
	}
	delete(r.running, e.Name)
	for _, l := range r.listeners {
		l.TestEnded(e)
	}
}

// CollectCoverage reports whether coverage is being collected.
func (r *Result) CollectCoverage() bool { return r.collect }

// MergeCoverage merges d into the accumulated coverage.
func (r *Result) MergeCoverage(d coverage.Data) { r.cov.Merge(d) }

// Coverage returns the accumulated coverage.
func (r *Result) Coverage() coverage.Data { return r.cov }

// Entries returns the entries of all started tests in start order.
func (r *Result) Entries() []*Entry { return r.entries }

// Counts holds the number of entries per status.
type Counts struct {
	Tests      int
	Passed     int
	Failed     int
	Errored    int
	Skipped    int
	Incomplete int
}

// Counts counts entries by status.
func (r *Result) Counts() Counts {
	c := Counts{Tests: len(r.entries)}
	for _, e := range r.entries {
		switch e.Status() {
		case StatusPass:
			c.Passed++
		case StatusFail:
			c.Failed++
		case StatusError:
			c.Errored++
		case StatusSkip:
			c.Skipped++
		case StatusIncomplete:
			c.Incomplete++
		}
	}
	return c
}

// WasSuccessful reports whether no test failed or errored.
func (r *Result) WasSuccessful() bool {
	c := r.Counts()
	return c.Failed == 0 && c.Errored == 0
}
