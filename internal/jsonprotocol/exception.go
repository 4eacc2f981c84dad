// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package jsonprotocol

import (
	"encoding/json"
	"sort"
	"strings"

	"go.chromium.org/isolate/errors"
)

// ClassKey is the key naming the class of a serialized exception.
const ClassKey = "__class"

// Classes shared by the child harness and the parent's result model.
const (
	ClassAssertionFailed = "AssertionFailedError"
	ClassSkipped         = "SkippedTestError"
	ClassIncomplete      = "IncompleteTestError"
	ClassError           = "Error"
)

// Standard exception field names.
const (
	FieldMessage = "message"
	FieldCode    = "code"
	FieldFile    = "file"
	FieldLine    = "line"
	FieldTrace   = "trace"
)

// Exception is a thrown value as serialized by a child.
//
// An Exception is a tagged variant. If its class was resolved against the
// parent's Kinds, Known returns the parent's typed error for it. Otherwise
// the parent cannot represent the value natively and must fall back to a
// generic read of its fields with Data.
type Exception struct {
	// Class is the name of the thrown value's class in the child.
	Class string
	// Fields holds the visible fields of the value, keyed as received.
	// Keys of private fields may be name-mangled.
	Fields map[string]json.RawMessage

	known error
}

// ExceptionData holds the standard fields of a thrown value.
type ExceptionData struct {
	Message string
	Code    int64
	File    string
	Line    int
	Trace   []Frame
}

// NewException builds an Exception of class carrying the standard fields
// in d.
func NewException(class string, d *ExceptionData) *Exception {
	e := &Exception{Class: class, Fields: make(map[string]json.RawMessage)}
	e.set(FieldMessage, d.Message)
	e.set(FieldCode, d.Code)
	e.set(FieldFile, d.File)
	e.set(FieldLine, d.Line)
	trace := d.Trace
	if trace == nil {
		trace = []Frame{}
	}
	e.set(FieldTrace, trace)
	return e
}

func (e *Exception) set(key string, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err) // standard fields always marshal
	}
	e.Fields[key] = b
}

// Known returns the parent's typed error for the exception, or nil if its
// class is not known to the parent.
func (e *Exception) Known() error {
	return e.known
}

// Demangle strips a private-field mangling prefix, i.e. everything up to and
// including the last NUL character, from a field key.
func Demangle(key string) string {
	if i := strings.LastIndexByte(key, 0); i >= 0 {
		return key[i+1:]
	}
	return key
}

// Data reads the standard fields of the exception generically. Mangled keys
// are demangled first; if a plain and a mangled key demangle to the same
// name, the plain key wins. Missing fields are left zero.
func (e *Exception) Data() (*ExceptionData, error) {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make(map[string]json.RawMessage)
	for _, k := range keys {
		name := Demangle(k)
		if _, dup := fields[name]; dup && name != k {
			continue
		}
		fields[name] = e.Fields[k]
	}

	var d ExceptionData
	for _, f := range []struct {
		name string
		dst  interface{}
	}{
		{FieldMessage, &d.Message},
		{FieldCode, &d.Code},
		{FieldFile, &d.File},
		{FieldLine, &d.Line},
		{FieldTrace, &d.Trace},
	} {
		raw, ok := fields[f.name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, f.dst); err != nil {
			return nil, errors.Wrapf(err, "%s field %q", e.Class, f.name)
		}
	}
	return &d, nil
}

// MarshalJSON encodes the exception as an object with ClassKey and its
// fields.
func (e *Exception) MarshalJSON() ([]byte, error) {
	m := make(map[string]json.RawMessage, len(e.Fields)+1)
	for k, v := range e.Fields {
		m[k] = v
	}
	class, err := json.Marshal(e.Class)
	if err != nil {
		return nil, err
	}
	m[ClassKey] = class
	return json.Marshal(m)
}

// UnmarshalJSON decodes an object with ClassKey and arbitrary fields.
func (e *Exception) UnmarshalJSON(b []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	if m == nil {
		return errors.New("exception is null")
	}
	raw, ok := m[ClassKey]
	if !ok {
		return errors.Errorf("exception has no %s", ClassKey)
	}
	var class string
	if err := json.Unmarshal(raw, &class); err != nil {
		return errors.Wrapf(err, "exception %s", ClassKey)
	}
	if class == "" {
		return errors.Errorf("exception has empty %s", ClassKey)
	}
	delete(m, ClassKey)
	*e = Exception{Class: class, Fields: m}
	return nil
}

// KindDecoder converts the standard fields of a thrown value into the
// parent's typed error for its class. It must return a non-nil error.
type KindDecoder func(d *ExceptionData) error

// Kinds maps class names known to the parent to their decoders.
type Kinds map[string]KindDecoder

// resolve sets e.known if e's class is known. Data of unknown classes is
// validated so that the classifier can read it later.
func (k Kinds) resolve(e *Exception) error {
	d, err := e.Data()
	if err != nil {
		return err
	}
	dec, ok := k[e.Class]
	if !ok {
		return nil
	}
	known := dec(d)
	if known == nil {
		return errors.Errorf("decoder for %s returned nil", e.Class)
	}
	e.known = known
	return nil
}
