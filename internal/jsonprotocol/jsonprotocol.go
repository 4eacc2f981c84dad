// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package jsonprotocol defines the schema of the JSON payload an isolated
// child runtime writes to its stdout.
package jsonprotocol

import (
	"encoding/json"

	"go.chromium.org/isolate/internal/coverage"
)

// MarkerLine may precede the payload at most once. It is stripped before
// decoding.
const MarkerLine = "#!/usr/bin/env isolate_runtime\n"

// Top-level payload keys. A payload must contain exactly these.
const (
	keyOutput        = "output"
	keyTestResult    = "testResult"
	keyNumAssertions = "numAssertions"
	keyResult        = "result"
)

var payloadKeys = []string{keyOutput, keyTestResult, keyNumAssertions, keyResult}

// ChildResult is the payload written by a child after running one test.
type ChildResult struct {
	// Output is the text the test printed.
	Output string `json:"output"`
	// TestResult is opaque test state to be reattached to the parent's test
	// entity.
	TestResult json.RawMessage `json:"testResult"`
	// NumAssertions is the number of assertions the test performed.
	NumAssertions int `json:"numAssertions"`
	// Result holds the classified outcomes of the test.
	Result *OutcomeSet `json:"result"`
}

// OutcomeSet contains the outcome categories of a child run.
type OutcomeSet struct {
	// Time is the elapsed time of the test in seconds.
	Time float64 `json:"time"`
	// NotImplemented lists tests marked as not yet implemented.
	NotImplemented []*TestFailure `json:"notImplemented"`
	// Skipped lists skipped tests.
	Skipped []*TestFailure `json:"skipped"`
	// Errors lists errors, i.e. unexpected problems while running.
	Errors []*TestFailure `json:"errors"`
	// Failures lists failed assertions.
	Failures []*TestFailure `json:"failures"`
	// CodeCoverage is present if the child collected coverage.
	CodeCoverage coverage.Data `json:"codeCoverage,omitempty"`
}

// Empty reports whether s contains no outcome in any category.
func (s *OutcomeSet) Empty() bool {
	return len(s.NotImplemented) == 0 && len(s.Skipped) == 0 && len(s.Errors) == 0 && len(s.Failures) == 0
}

// TestFailure is a single outcome entry.
type TestFailure struct {
	// Test is the name of the test the outcome belongs to.
	Test string `json:"test"`
	// Exception is the value thrown by the test.
	Exception *Exception `json:"exception"`
}

// Frame is a single stack frame of a thrown value.
type Frame struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Function string `json:"function"`
}
