// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package command

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DurationFlag implements flag.Value to save a user-supplied integer
// time duration with fixed units to a time.Duration.
type DurationFlag struct {
	units time.Duration
	dst   *time.Duration
}

// NewDurationFlag returns a DurationFlag that will save a duration with the
// supplied units to dst.
func NewDurationFlag(units time.Duration, dst *time.Duration, def time.Duration) *DurationFlag {
	*dst = def
	return &DurationFlag{units, dst}
}

// Set sets the flag value.
func (f *DurationFlag) Set(v string) error {
	num, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return err
	}
	*f.dst = time.Duration(num) * f.units
	return nil
}

func (f *DurationFlag) String() string {
	if f.dst == nil {
		return ""
	}
	return strconv.FormatInt(int64(*f.dst/f.units), 10)
}

// EnumFlag implements flag.Value to map a user-supplied string value to an
// enum value.
type EnumFlag struct {
	valid  map[string]int // map from user-supplied string value to int value
	assign func(int)      // used to assign int value to dest
	def    string         // default value
	val    string         // last-set value
}

// NewEnumFlag returns a new EnumFlag. valid maps strings to the
// corresponding int values, and assign is used to store the value.
// The default value is assigned immediately.
func NewEnumFlag(valid map[string]int, assign func(int), def string) *EnumFlag {
	f := &EnumFlag{valid: valid, assign: assign, def: def}
	if err := f.Set(def); err != nil {
		panic(err)
	}
	return f
}

func (f *EnumFlag) String() string {
	if f.val == "" {
		return f.def
	}
	return f.val
}

// Set sets the flag value.
func (f *EnumFlag) Set(v string) error {
	ev, ok := f.valid[v]
	if !ok {
		return fmt.Errorf("must be one of %s", f.names())
	}
	f.assign(ev)
	f.val = v
	return nil
}

// Default returns the default value used if the flag is unset.
func (f *EnumFlag) Default() string { return f.def }

// QuotedValues returns a comma-separated list of quoted values the user can
// supply.
func (f *EnumFlag) QuotedValues() string {
	var qs []string
	for _, n := range f.sortedNames() {
		qs = append(qs, fmt.Sprintf("%q", n))
	}
	return strings.Join(qs, ", ")
}

func (f *EnumFlag) names() string {
	return strings.Join(f.sortedNames(), ", ")
}

func (f *EnumFlag) sortedNames() []string {
	var names []string
	for n := range f.valid {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ListFlag implements flag.Value to split a user-supplied string with a
// custom delimiter into a slice of strings.
type ListFlag struct {
	sep    string         // value separator, e.g. ","
	assign func([]string) // used to assign slice value to dest
	def    []string       // default value, e.g. []string{"foo", "bar"}
	val    []string       // last-set value
}

// NewListFlag returns a ListFlag using the supplied separator. The default
// value is assigned immediately.
func NewListFlag(sep string, assign func([]string), def []string) *ListFlag {
	f := &ListFlag{sep: sep, assign: assign, def: def}
	assign(def)
	return f
}

func (f *ListFlag) String() string {
	if f.val == nil {
		return strings.Join(f.def, f.sep)
	}
	return strings.Join(f.val, f.sep)
}

// Set sets the flag value.
func (f *ListFlag) Set(v string) error {
	vals := strings.Split(v, f.sep)
	f.assign(vals)
	f.val = vals
	return nil
}

// RepeatedFlag implements flag.Value around an assignment function that is
// executed each time the flag is supplied.
type RepeatedFlag func(v string) error

// Default implementation of flag.Value.String.
func (f *RepeatedFlag) String() string { return "" }

// Set implements flag.Value.Set.
func (f *RepeatedFlag) Set(v string) error { return (*f)(v) }
