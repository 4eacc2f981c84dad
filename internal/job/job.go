// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package job defines the body sent to an isolated child runtime.
package job

import (
	"bytes"
	"encoding/json"
	"os"
	"time"

	"go.chromium.org/isolate/errors"
)

// Job is an executable job body. It is consumed once by a delivery strategy.
type Job []byte

// Spec describes a single test to run in an isolated child.
type Spec struct {
	// Test is the name of the test to run.
	Test string `json:"test,omitempty"`
	// List asks the child to print the names of its tests, one per line,
	// instead of running one.
	List bool `json:"list,omitempty"`
	// CollectCoverage asks the child to report coverage data.
	CollectCoverage bool `json:"collectCoverage,omitempty"`
	// Vars are runtime variables available to the test.
	Vars map[string]string `json:"vars,omitempty"`
	// Timeout is the maximum time the test body may run. Zero means no
	// limit.
	Timeout time.Duration `json:"timeout,omitempty"`
	// File, if set, makes this spec a reference: the real spec is read
	// from the file at this path and all other fields are ignored.
	File string `json:"file,omitempty"`
}

// Encode builds a job running the test described by s.
func Encode(s *Spec) (Job, error) {
	if s.Test == "" && !s.List {
		return nil, errors.New("test name is empty")
	}
	if s.File != "" {
		return nil, errors.New("file reference must be built with Reference")
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode job")
	}
	return Job(b), nil
}

// Reference builds a small job that makes the child read the real job body
// from path.
func Reference(path string) Job {
	b, err := json.Marshal(&Spec{File: path})
	if err != nil {
		panic(err) // marshaling a string never fails
	}
	return Job(b)
}

// Decode parses a job body received by a child. A reference is followed at
// most once; a referenced file that is itself a reference is an error.
func Decode(b []byte) (*Spec, error) {
	s, err := decode(b)
	if err != nil {
		return nil, err
	}
	if s.File == "" {
		return s, nil
	}

	path := s.File
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read referenced job")
	}
	s, err = decode(body)
	if err != nil {
		return nil, errors.Wrapf(err, "referenced job %s", path)
	}
	if s.File != "" {
		return nil, errors.Errorf("referenced job %s is a reference", path)
	}
	return s, nil
}

func decode(b []byte) (*Spec, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	var s Spec
	if err := dec.Decode(&s); err != nil {
		return nil, errors.Wrap(err, "malformed job")
	}
	if dec.More() {
		return nil, errors.New("malformed job: trailing data")
	}
	if s.Test == "" && s.File == "" && !s.List {
		return nil, errors.New("malformed job: no test name")
	}
	return &s, nil
}
