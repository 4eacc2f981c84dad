// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package harness

import (
	"encoding/json"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"go.chromium.org/isolate/errors"
	"go.chromium.org/isolate/errors/stack"
	"go.chromium.org/isolate/internal/coverage"
	"go.chromium.org/isolate/internal/jsonprotocol"
)

// internalPrefixes lists prefixes of function names skipped when locating
// test code.
var internalPrefixes = []string{
	"runtime.",
	"go.chromium.org/isolate/internal/harness.",
	"go.chromium.org/isolate/internal/usercode.",
}

// State is passed to a test body. Its methods that stop the test must be
// called from the goroutine running the body.
//
// Tests must not write to stdout directly; use Log instead.
type State struct {
	test string
	vars map[string]string

	mu         sync.Mutex
	closed     bool
	out        strings.Builder
	assertions int
	set        jsonprotocol.OutcomeSet
	state      json.RawMessage
	cov        coverage.Data
}

func newState(test string, vars map[string]string, collectCoverage bool) *State {
	s := &State{test: test, vars: vars}
	if collectCoverage {
		s.cov = make(coverage.Data)
	}
	return s
}

// TestName returns the name of the running test.
func (s *State) TestName() string { return s.test }

// Log formats args using fmt.Sprint and appends them as a line to the test
// output.
func (s *State) Log(args ...interface{}) {
	s.log(fmt.Sprint(args...))
}

// Logf is similar to Log but formats its arguments using fmt.Sprintf.
func (s *State) Logf(format string, args ...interface{}) {
	s.log(fmt.Sprintf(format, args...))
}

func (s *State) log(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.out.WriteString(msg)
	if !strings.HasSuffix(msg, "\n") {
		s.out.WriteByte('\n')
	}
}

// Assert counts an assertion. If cond is false, it reports a failure
// described by args formatted with fmt.Sprint and stops the test.
func (s *State) Assert(cond bool, args ...interface{}) {
	s.assert(cond, func() string { return fmt.Sprint(args...) })
}

// Assertf is similar to Assert but formats its arguments using fmt.Sprintf.
func (s *State) Assertf(cond bool, format string, args ...interface{}) {
	s.assert(cond, func() string { return fmt.Sprintf(format, args...) })
}

func (s *State) assert(cond bool, msg func() string) {
	frames := callerFrames(stack.New(2))
	s.mu.Lock()
	s.assertions++
	if s.cov != nil && len(frames) > 0 {
		s.cov.Record(frames[0].File, frames[0].Line)
	}
	s.mu.Unlock()
	if cond {
		return
	}
	s.stop(&s.set.Failures, jsonprotocol.ClassAssertionFailed, msg(), frames)
}

// Error reports an error described by args formatted with fmt.Sprint and
// stops the test.
func (s *State) Error(args ...interface{}) {
	s.stop(&s.set.Errors, jsonprotocol.ClassError, fmt.Sprint(args...), callerFrames(stack.New(1)))
}

// Errorf is similar to Error but formats its arguments using fmt.Sprintf.
func (s *State) Errorf(format string, args ...interface{}) {
	s.stop(&s.set.Errors, jsonprotocol.ClassError, fmt.Sprintf(format, args...), callerFrames(stack.New(1)))
}

// Skip marks the test skipped for the reason formatted from args and stops
// it.
func (s *State) Skip(args ...interface{}) {
	s.stop(&s.set.Skipped, jsonprotocol.ClassSkipped, fmt.Sprint(args...), callerFrames(stack.New(1)))
}

// NotImplemented marks the test as not implemented yet and stops it.
func (s *State) NotImplemented(args ...interface{}) {
	s.stop(&s.set.NotImplemented, jsonprotocol.ClassIncomplete, fmt.Sprint(args...), callerFrames(stack.New(1)))
}

// Var returns the runtime variable name given in the job.
func (s *State) Var(name string) (string, bool) {
	v, ok := s.vars[name]
	return v, ok
}

// SetState sets opaque state that the parent reattaches to its test entity.
// v must be JSON-serializable.
func (s *State) SetState(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "failed to encode test state")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = b
	return nil
}

// stop records an outcome and stops the test goroutine.
func (s *State) stop(dst *[]*jsonprotocol.TestFailure, class, msg string, frames []jsonprotocol.Frame) {
	s.add(dst, class, msg, frames)
	runtime.Goexit()
}

func (s *State) add(dst *[]*jsonprotocol.TestFailure, class, msg string, frames []jsonprotocol.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	d := &jsonprotocol.ExceptionData{Message: msg, Trace: frames}
	if len(frames) > 0 {
		d.File, d.Line = frames[0].File, frames[0].Line
	}
	*dst = append(*dst, &jsonprotocol.TestFailure{
		Test:      s.test,
		Exception: jsonprotocol.NewException(class, d),
	})
}

// onPanic reports a panic in the error category. It must be called on the
// panicking goroutine. The class is the dynamic type of val.
func (s *State) onPanic(val interface{}) {
	msg := fmt.Sprint(val)
	if err, ok := val.(error); ok {
		msg = err.Error()
	}
	s.add(&s.set.Errors, fmt.Sprintf("%T", val), msg, callerFrames(stack.New(1)))
}

// close freezes s and returns the payload for a run that took elapsed
// seconds.
func (s *State) close(elapsed float64) *jsonprotocol.ChildResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true

	set := s.set
	set.Time = elapsed
	for _, l := range []*[]*jsonprotocol.TestFailure{&set.NotImplemented, &set.Skipped, &set.Errors, &set.Failures} {
		if *l == nil {
			*l = []*jsonprotocol.TestFailure{}
		}
	}
	if s.cov != nil {
		set.CodeCoverage = s.cov
	}
	return &jsonprotocol.ChildResult{
		Output:        s.out.String(),
		TestResult:    s.state,
		NumAssertions: s.assertions,
		Result:        &set,
	}
}

// callerFrames converts st to frames, dropping frames of the Go runtime and
// of the harness itself.
func callerFrames(st stack.Stack) []jsonprotocol.Frame {
	var frames []jsonprotocol.Frame
	for _, f := range st.Frames() {
		if isInternal(f.Function) {
			continue
		}
		frames = append(frames, jsonprotocol.Frame{File: f.File, Line: f.Line, Function: f.Function})
	}
	return frames
}

func isInternal(fn string) bool {
	for _, p := range internalPrefixes {
		if strings.HasPrefix(fn, p) {
			return true
		}
	}
	return false
}
