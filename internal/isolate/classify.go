// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package isolate

import (
	"fmt"

	"go.chromium.org/isolate/internal/jsonprotocol"
)

// Category is an outcome category reported by a child, in priority order.
type Category int

const (
	// CategoryNotImplemented is a test marked as not implemented yet.
	CategoryNotImplemented Category = iota
	// CategorySkipped is a skipped test.
	CategorySkipped
	// CategoryError is an unexpected problem while running a test.
	CategoryError
	// CategoryFailure is a failed assertion.
	CategoryFailure
)

func (c Category) String() string {
	switch c {
	case CategoryNotImplemented:
		return "not implemented"
	case CategorySkipped:
		return "skipped"
	case CategoryError:
		return "error"
	case CategoryFailure:
		return "failure"
	default:
		return fmt.Sprintf("Category(%d)", int(c))
	}
}

// Outcome is the single representative outcome of a child run.
type Outcome struct {
	Category Category
	// Failure is the first entry of the first non-empty category.
	Failure *jsonprotocol.TestFailure
	// Dropped counts the entries not surfaced.
	Dropped int
}

// Classify picks the first entry of the first non-empty category of set,
// consulting categories in the order not-implemented, skipped, error,
// failure. It returns nil for a clean pass.
func Classify(set *jsonprotocol.OutcomeSet) *Outcome {
	cats := []struct {
		cat     Category
		entries []*jsonprotocol.TestFailure
	}{
		{CategoryNotImplemented, set.NotImplemented},
		{CategorySkipped, set.Skipped},
		{CategoryError, set.Errors},
		{CategoryFailure, set.Failures},
	}
	for i, c := range cats {
		if len(c.entries) == 0 {
			continue
		}
		dropped := len(c.entries) - 1
		for _, lower := range cats[i+1:] {
			dropped += len(lower.entries)
		}
		return &Outcome{Category: c.cat, Failure: c.entries[0], Dropped: dropped}
	}
	return nil
}

// resolveException returns the parent's error for a thrown value. Values of
// known classes map to the parent's typed errors; others are reconstructed
// as a SyntheticError from a generic read of their fields.
func resolveException(ex *jsonprotocol.Exception) error {
	if known := ex.Known(); known != nil {
		return known
	}
	d, err := ex.Data()
	if err != nil {
		// Decode validates exception fields, so this only happens for
		// hand-built exceptions.
		d = &jsonprotocol.ExceptionData{Message: err.Error()}
	}
	return NewSyntheticError(ex.Class, d)
}
