// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package fakeexec lets unit tests run parts of the test binary itself as
// child processes, so that child runtimes can be faked without building
// separate executables.
package fakeexec

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
)

const (
	// auxMainNameEnv is the name of an environment variable that specifies
	// a name of an auxiliary main function to run.
	auxMainNameEnv = "ISOLATE_AUX_MAIN_NAME"

	// auxMainValueEnv is the name of an environment variable that carries
	// an extra value passed to an auxiliary main function.
	auxMainValueEnv = "ISOLATE_AUX_MAIN_VALUE"
)

// AuxMain represents an auxiliary main function.
type AuxMain struct {
	name string
}

// Params creates AuxMainParams that contains information necessary to execute
// the auxiliary main function.
// v should be an arbitrary JSON-serializable value. It is passed to the
// auxiliary main function.
func (a *AuxMain) Params(v interface{}) (*AuxMainParams, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}
	p, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &AuxMainParams{
		executable: exe,
		name:       a.name,
		param:      string(p),
	}, nil
}

// AuxMainParams contains information necessary to execute an auxiliary main
// function.
type AuxMainParams struct {
	executable string
	name       string
	param      string
}

// Executable returns a path to the current executable. It is similar to
// os.Executable, but it is precomputed and never fails.
func (a *AuxMainParams) Executable() string {
	return a.executable
}

// Envs returns environment variables to be set to execute the auxiliary main
// function. Elements are in the form of "key=value" so that they can be
// appended to os/exec.Cmd.Env.
func (a *AuxMainParams) Envs() []string {
	return []string{
		fmt.Sprintf("%s=%s", auxMainNameEnv, a.name),
		fmt.Sprintf("%s=%s", auxMainValueEnv, a.param),
	}
}

var knownNames = map[string]struct{}{}

// NewAuxMain registers a new auxiliary main function.
//
// name identifies an auxiliary main function. It must be unique within the
// current executable; otherwise this function will panic.
//
// f must be a function having a signature func(T) where T is a JSON
// serializable type.
//
// NewAuxMain must be called in a top-level variable initialization like:
//
//	type childParams struct { ... }
//
//	var fakeRuntime = fakeexec.NewAuxMain("fake_runtime", func(p childParams) {
//		// Another main function here...
//	})
//
// If the current process is executed for the auxiliary main, NewAuxMain
// immediately calls f and exits with status 0 (f may call os.Exit itself to
// choose another status). Otherwise *AuxMain is returned, which you can use
// to start a subprocess running the auxiliary main:
//
//	p, err := fakeRuntime.Params(childParams{ ... })
//	cmd := exec.Command(p.Executable())
//	cmd.Env = append(os.Environ(), p.Envs()...)
func NewAuxMain(name string, f interface{}) *AuxMain {
	if _, found := knownNames[name]; found {
		panic(fmt.Sprintf("fakeexec.NewAuxMain: Multiple registrations for %q", name))
	}
	knownNames[name] = struct{}{}

	tf := reflect.TypeOf(f)
	if tf.Kind() != reflect.Func || tf.NumIn() != 1 || tf.NumOut() != 0 {
		panic("fakeexec.NewAuxMain: f has wrong signature: must be func(T)")
	}
	tp := tf.In(0)

	if os.Getenv(auxMainNameEnv) != name {
		return &AuxMain{name: name}
	}

	// Run the auxiliary main function.
	vp := reflect.New(tp)
	if err := json.Unmarshal([]byte(os.Getenv(auxMainValueEnv)), vp.Interface()); err != nil {
		panic(fmt.Sprintf("fakeexec.AuxMain: %s: failed to unmarshal parameter: %v", name, err))
	}
	reflect.ValueOf(f).Call([]reflect.Value{vp.Elem()})
	os.Exit(0)
	panic("unreachable")
}
