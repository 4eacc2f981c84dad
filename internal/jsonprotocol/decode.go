// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package jsonprotocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"

	"go.chromium.org/isolate/errors"
)

// ErrNoResult is returned by Decode for a payload whose result is null or
// false.
var ErrNoResult = errors.New("payload carries no result")

// Decode parses the stdout of a child into a ChildResult. A single leading
// MarkerLine is stripped first. Exceptions are resolved against kinds.
//
// Decode never panics; every malformed input yields an error.
func Decode(b []byte, kinds Kinds) (res *ChildResult, retErr error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			retErr = errors.Errorf("panic while decoding payload: %v", r)
		}
	}()

	b = bytes.TrimPrefix(b, []byte(MarkerLine))

	dec := json.NewDecoder(bytes.NewReader(b))
	var top map[string]json.RawMessage
	if err := dec.Decode(&top); err != nil {
		return nil, errors.Wrap(err, "malformed payload")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("malformed payload: trailing data")
	}
	if top == nil {
		return nil, errors.New("malformed payload: not an object")
	}
	for _, k := range payloadKeys {
		if _, ok := top[k]; !ok {
			return nil, errors.Errorf("malformed payload: missing %q", k)
		}
	}
	if len(top) != len(payloadKeys) {
		for k := range top {
			if !isPayloadKey(k) {
				return nil, errors.Errorf("malformed payload: unknown key %q", k)
			}
		}
	}

	var r ChildResult
	if err := json.Unmarshal(top[keyOutput], &r.Output); err != nil {
		return nil, errors.Wrapf(err, "malformed payload: %s", keyOutput)
	}
	if isNull(top[keyOutput]) {
		return nil, errors.Errorf("malformed payload: %s is null", keyOutput)
	}
	r.TestResult = top[keyTestResult]
	if err := json.Unmarshal(top[keyNumAssertions], &r.NumAssertions); err != nil || isNull(top[keyNumAssertions]) {
		return nil, errors.Errorf("malformed payload: %s is not an integer", keyNumAssertions)
	}
	if r.NumAssertions < 0 {
		return nil, errors.Errorf("malformed payload: negative %s %d", keyNumAssertions, r.NumAssertions)
	}

	raw := bytes.TrimSpace(top[keyResult])
	if isNull(raw) || bytes.Equal(raw, []byte("false")) {
		return nil, ErrNoResult
	}
	set, err := decodeOutcomeSet(raw, kinds)
	if err != nil {
		return nil, errors.Wrapf(err, "malformed payload: %s", keyResult)
	}
	r.Result = set
	return &r, nil
}

func decodeOutcomeSet(b []byte, kinds Kinds) (*OutcomeSet, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	var s OutcomeSet
	if err := dec.Decode(&s); err != nil {
		return nil, err
	}
	if s.Time < 0 || math.IsNaN(s.Time) {
		return nil, errors.Errorf("invalid time %v", s.Time)
	}
	for _, c := range []struct {
		name    string
		entries []*TestFailure
	}{
		{"notImplemented", s.NotImplemented},
		{"skipped", s.Skipped},
		{"errors", s.Errors},
		{"failures", s.Failures},
	} {
		for i, f := range c.entries {
			if err := validateFailure(f, kinds); err != nil {
				return nil, errors.Wrapf(err, "%s[%d]", c.name, i)
			}
		}
	}
	return &s, nil
}

func validateFailure(f *TestFailure, kinds Kinds) error {
	if f == nil {
		return errors.New("entry is null")
	}
	if f.Exception == nil {
		return errors.New("entry has no exception")
	}
	return kinds.resolve(f.Exception)
}

func isPayloadKey(k string) bool {
	for _, pk := range payloadKeys {
		if k == pk {
			return true
		}
	}
	return false
}

func isNull(b []byte) bool {
	return bytes.Equal(bytes.TrimSpace(b), []byte("null"))
}

// Encode writes MarkerLine followed by r to w.
func Encode(w io.Writer, r *ChildResult) error {
	if r.Result == nil {
		return errors.New("child result has no outcome set")
	}
	b, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "failed to encode payload")
	}
	if _, err := fmt.Fprintf(w, "%s%s\n", MarkerLine, b); err != nil {
		return errors.Wrap(err, "failed to write payload")
	}
	return nil
}
