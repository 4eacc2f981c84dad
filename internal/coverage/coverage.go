// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package coverage holds line coverage data reported by child runtimes.
package coverage

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Data maps a source file path to hit counts keyed by line number.
//
// It is serialized as {"file.go": {"10": 1}}.
type Data map[string]map[int]int

// Record counts one hit of file:line.
func (d Data) Record(file string, line int) {
	lines := d[file]
	if lines == nil {
		lines = make(map[int]int)
		d[file] = lines
	}
	lines[line]++
}

// Merge adds all hit counts in o to d.
func (d Data) Merge(o Data) {
	for file, lines := range o {
		dst := d[file]
		if dst == nil {
			dst = make(map[int]int, len(lines))
			d[file] = dst
		}
		for line, n := range lines {
			dst[line] += n
		}
	}
}

// Files returns the covered files in lexical order.
func (d Data) Files() []string {
	files := maps.Keys(d)
	slices.Sort(files)
	return files
}

// Lines returns the covered lines of file in ascending order.
func (d Data) Lines(file string) []int {
	lines := maps.Keys(d[file])
	slices.Sort(lines)
	return lines
}
