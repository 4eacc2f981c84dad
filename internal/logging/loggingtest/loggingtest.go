// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package loggingtest provides a logging.Logger that records entries for
// unit tests to inspect.
package loggingtest

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.chromium.org/isolate/internal/logging"
)

// Entry is a log entry recorded by Logger.
type Entry struct {
	Level logging.Level
	Msg   string
}

// String formats e as "LEVEL msg".
func (e Entry) String() string {
	return fmt.Sprintf("%v %s", e.Level, e.Msg)
}

// TB is the subset of testing.TB used by Logger.
type TB interface {
	Helper()
	Log(args ...interface{})
}

// Logger is a logging.Logger that forwards every entry to the test log and
// records those at or above a minimum level.
type Logger struct {
	t     TB
	level logging.Level

	mu      sync.Mutex
	entries []Entry
}

// NewLogger creates a Logger recording entries at level or above.
func NewLogger(t TB, level logging.Level) *Logger {
	return &Logger{t: t, level: level}
}

// Log records an entry.
func (l *Logger) Log(level logging.Level, ts time.Time, msg string) {
	l.t.Helper()
	l.t.Log(Entry{level, msg})

	if level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Entry{level, msg})
}

// Entries returns the entries recorded so far.
func (l *Logger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

// Logs returns the messages of the entries recorded so far.
func (l *Logger) Logs() []string {
	var msgs []string
	for _, e := range l.Entries() {
		msgs = append(msgs, e.Msg)
	}
	return msgs
}

// Contains reports whether an entry at level has a message containing substr.
func (l *Logger) Contains(level logging.Level, substr string) bool {
	for _, e := range l.Entries() {
		if e.Level == level && strings.Contains(e.Msg, substr) {
			return true
		}
	}
	return false
}

// String returns the recorded entries, one "LEVEL msg" per line.
func (l *Logger) String() string {
	var lines []string
	for _, e := range l.Entries() {
		lines = append(lines, e.String())
	}
	return strings.Join(lines, "\n")
}
