// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package reporting writes the results of a run to files and the console.
package reporting

import (
	"encoding/json"
	"os"

	"go.chromium.org/isolate/errors"
	"go.chromium.org/isolate/internal/coverage"
	"go.chromium.org/isolate/internal/testresult"
	"go.chromium.org/isolate/internal/timing"
)

// Names of files written to a results directory.
const (
	ResultsJSONFilename = "results.json"
	CoverageFilename    = "coverage.json"
	TimingFilename      = "timing.json"
	FullLogFilename     = "full.txt"
)

// WriteResultsJSON saves entries to path as an indented JSON array.
func WriteResultsJSON(path string, entries []*testresult.Entry) error {
	if entries == nil {
		entries = []*testresult.Entry{}
	}
	return writeJSON(path, entries)
}

// WriteCoverage saves merged coverage data to path.
func WriteCoverage(path string, d coverage.Data) error {
	if d == nil {
		d = coverage.Data{}
	}
	return writeJSON(path, d)
}

// WriteTiming saves the stage log of a run to path.
func WriteTiming(path string, l *timing.Log) error {
	return writeJSON(path, l)
}

func writeJSON(path string, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "failed to marshal %s", path)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0644); err != nil {
		return errors.Wrap(err, "failed to write results")
	}
	return nil
}
