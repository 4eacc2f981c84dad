// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package config defines the configuration of isolated test runs.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"code.cloudfoundry.org/clock"
	"gopkg.in/yaml.v2"

	"go.chromium.org/isolate/errors"
	"go.chromium.org/isolate/internal/command"
	"go.chromium.org/isolate/internal/delivery"
	"go.chromium.org/isolate/internal/isolate"
)

// DefaultResultsRoot is the directory under which per-run results
// directories are created when none is configured.
const DefaultResultsRoot = "/tmp/isolate/results"

// Flag names shared by SetFlags and ApplyFile.
const (
	flagRuntime     = "runtime"
	flagDelivery    = "delivery"
	flagCoverage    = "coverage"
	flagResDir      = "resultsdir"
	flagTimeout     = "timeout"
	flagTestTimeout = "testtimeout"
)

// MutableConfig is similar to Config, but its fields are mutable.
// Call Freeze to obtain a Config from MutableConfig.
type MutableConfig struct {
	// See Config for descriptions of these fields.

	ConfigFile      string
	Runtime         string
	Delivery        delivery.Mode
	CollectCoverage bool
	ResDir          string
	Timeout         time.Duration
	TestTimeout     time.Duration
	Vars            map[string]string
	Env             map[string]string
}

// Config contains the configuration of a run. It is immutable.
type Config struct {
	m *MutableConfig
}

// NewMutableConfig returns a MutableConfig with empty maps.
func NewMutableConfig() *MutableConfig {
	return &MutableConfig{
		Delivery: delivery.ModeAuto,
		Vars:     make(map[string]string),
		Env:      make(map[string]string),
	}
}

// SetFlags adds common run-related flags to f that store values in c.
func (c *MutableConfig) SetFlags(f *flag.FlagSet) {
	if c.Vars == nil {
		c.Vars = make(map[string]string)
	}
	if c.Env == nil {
		c.Env = make(map[string]string)
	}

	f.StringVar(&c.ConfigFile, "config", "", "YAML file with default settings; flags take precedence")
	f.StringVar(&c.Runtime, flagRuntime, "", fmt.Sprintf("child runtime executable (default $%s, then %s)", isolate.RuntimeEnv, isolate.DefaultRuntime()))

	modes := make(map[string]int)
	for i, m := range delivery.Modes {
		modes[string(m)] = i
	}
	df := command.NewEnumFlag(modes, func(v int) { c.Delivery = delivery.Modes[v] }, string(delivery.ModeAuto))
	f.Var(df, flagDelivery, fmt.Sprintf("job delivery strategy (%s; default %q)", df.QuotedValues(), df.Default()))

	f.BoolVar(&c.CollectCoverage, flagCoverage, false, "collect code coverage reported by tests")
	f.StringVar(&c.ResDir, flagResDir, "", "directory for test results")
	f.Var(command.NewDurationFlag(time.Second, &c.Timeout, 0), flagTimeout, "overall run timeout in seconds (0 for none)")
	f.Var(command.NewDurationFlag(time.Second, &c.TestTimeout, 0), flagTestTimeout, "per-test timeout in seconds (0 for the test's own)")

	vf := command.RepeatedFlag(func(v string) error { return setPair(c.Vars, v) })
	f.Var(&vf, "var", `runtime variable to pass to tests, as "name=value" (can be repeated)`)
	ef := command.RepeatedFlag(func(v string) error { return setPair(c.Env, v) })
	f.Var(&ef, "env", `environment variable for child runtimes, as "NAME=value" (can be repeated)`)
}

func setPair(m map[string]string, v string) error {
	k, val, ok := strings.Cut(v, "=")
	if !ok || k == "" {
		return errors.Errorf("want name=value, got %q", v)
	}
	m[k] = val
	return nil
}

// fileConfig is the YAML representation of a configuration file.
type fileConfig struct {
	Runtime         string            `yaml:"runtime"`
	Delivery        string            `yaml:"delivery"`
	CollectCoverage *bool             `yaml:"collect_coverage"`
	ResultsDir      string            `yaml:"results_dir"`
	Timeout         string            `yaml:"timeout"`
	TestTimeout     string            `yaml:"test_timeout"`
	Vars            map[string]string `yaml:"vars"`
	Env             map[string]string `yaml:"env"`
}

// ApplyFile reads the YAML file at path and applies its settings to c,
// except for those given explicitly on f after parsing. Vars and env
// entries are merged; entries from flags win over the file.
func (c *MutableConfig) ApplyFile(path string, f *flag.FlagSet) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to read config")
	}
	var fc fileConfig
	if err := yaml.UnmarshalStrict(b, &fc); err != nil {
		return errors.Wrapf(err, "failed to parse %s", path)
	}

	set := make(map[string]bool)
	if f != nil {
		f.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	}
	apply := func(name string, present bool, fn func() error) error {
		if set[name] || !present {
			return nil
		}
		if err := fn(); err != nil {
			return errors.Wrapf(err, "%s: bad %s", path, name)
		}
		return nil
	}

	if err := apply(flagRuntime, fc.Runtime != "", func() error {
		c.Runtime = fc.Runtime
		return nil
	}); err != nil {
		return err
	}
	if err := apply(flagDelivery, fc.Delivery != "", func() error {
		c.Delivery = delivery.Mode(fc.Delivery)
		_, err := delivery.ForMode(c.Delivery, "")
		return err
	}); err != nil {
		return err
	}
	if err := apply(flagCoverage, fc.CollectCoverage != nil, func() error {
		c.CollectCoverage = *fc.CollectCoverage
		return nil
	}); err != nil {
		return err
	}
	if err := apply(flagResDir, fc.ResultsDir != "", func() error {
		c.ResDir = fc.ResultsDir
		return nil
	}); err != nil {
		return err
	}
	if err := apply(flagTimeout, fc.Timeout != "", func() (err error) {
		c.Timeout, err = time.ParseDuration(fc.Timeout)
		return err
	}); err != nil {
		return err
	}
	if err := apply(flagTestTimeout, fc.TestTimeout != "", func() (err error) {
		c.TestTimeout, err = time.ParseDuration(fc.TestTimeout)
		return err
	}); err != nil {
		return err
	}

	mergeMissing(c.Vars, fc.Vars)
	mergeMissing(c.Env, fc.Env)
	return nil
}

// mergeMissing copies entries of src absent from dst.
func mergeMissing(dst, src map[string]string) {
	for k, v := range src {
		if _, ok := dst[k]; !ok {
			dst[k] = v
		}
	}
}

// DeriveDefaults sets default values for unset members and validates c.
func (c *MutableConfig) DeriveDefaults(clk clock.Clock) error {
	if c.Runtime == "" {
		c.Runtime = isolate.ResolveRuntime()
	}
	if c.Delivery == "" {
		c.Delivery = delivery.ModeAuto
	}
	if _, err := delivery.ForMode(c.Delivery, ""); err != nil {
		return err
	}
	if c.ResDir == "" {
		c.ResDir = filepath.Join(DefaultResultsRoot, clk.Now().Format("20060102-150405"))
	}
	if c.Timeout < 0 || c.TestTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	if c.Vars == nil {
		c.Vars = make(map[string]string)
	}
	if c.Env == nil {
		c.Env = make(map[string]string)
	}
	return nil
}

// Freeze returns a frozen configuration object.
func (c *MutableConfig) Freeze() *Config {
	return &Config{m: c}
}

// Runtime returns the path of the child runtime executable.
func (c *Config) Runtime() string { return c.m.Runtime }

// Delivery returns the job delivery mode.
func (c *Config) Delivery() delivery.Mode { return c.m.Delivery }

// Strategy returns the job delivery strategy. Temporary job files are
// created in the system temporary directory.
func (c *Config) Strategy() delivery.Strategy {
	s, err := delivery.ForMode(c.m.Delivery, "")
	if err != nil {
		// DeriveDefaults validated the mode.
		panic(err)
	}
	return s
}

// CollectCoverage reports whether coverage data should be collected.
func (c *Config) CollectCoverage() bool { return c.m.CollectCoverage }

// ResDir returns the results directory.
func (c *Config) ResDir() string { return c.m.ResDir }

// Timeout returns the overall run timeout. Zero means no timeout.
func (c *Config) Timeout() time.Duration { return c.m.Timeout }

// TestTimeout returns the timeout sent with each job. Zero leaves it to
// the test.
func (c *Config) TestTimeout() time.Duration { return c.m.TestTimeout }

// Vars returns a copy of the runtime variables passed to tests.
func (c *Config) Vars() map[string]string {
	vars := make(map[string]string, len(c.m.Vars))
	for k, v := range c.m.Vars {
		vars[k] = v
	}
	return vars
}

// Env returns the extra child environment as sorted "NAME=value" entries.
func (c *Config) Env() []string {
	var env []string
	for k, v := range c.m.Env {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}
