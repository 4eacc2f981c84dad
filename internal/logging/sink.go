// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package logging

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// timestampFormat is the layout of the timestamp written by WithTimestamp.
const timestampFormat = "2006-01-02T15:04:05.000000Z"

// SinkOption customizes the header SinkLogger puts in front of each entry.
type SinkOption func(*SinkLogger)

// WithTimestamp makes SinkLogger prefix entries with their UTC timestamp.
func WithTimestamp() SinkOption {
	return func(l *SinkLogger) { l.timestamp = true }
}

// WithLevelTag makes SinkLogger prefix entries with their level, e.g.
// "[DEBUG]".
func WithLevelTag() SinkOption {
	return func(l *SinkLogger) { l.levelTag = true }
}

// SinkLogger is a Logger that formats entries and hands them to a Sink.
//
// Messages spanning several lines, as child output often does, are split so
// that every continuation line is indented under the header of the entry.
type SinkLogger struct {
	level     Level
	timestamp bool
	levelTag  bool
	sink      Sink
}

// NewSinkLogger creates a SinkLogger that passes entries at level or above
// to sink.
func NewSinkLogger(level Level, sink Sink, opts ...SinkOption) *SinkLogger {
	l := &SinkLogger{level: level, sink: sink}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Log formats an entry and sends it to the sink.
func (l *SinkLogger) Log(level Level, ts time.Time, msg string) {
	if level < l.level {
		return
	}
	var header []string
	if l.timestamp {
		header = append(header, ts.UTC().Format(timestampFormat))
	}
	if l.levelTag {
		header = append(header, "["+level.String()+"]")
	}
	if len(header) == 0 {
		l.sink.Log(msg)
		return
	}
	h := strings.Join(header, " ") + " "
	msg = strings.TrimRight(msg, "\n")
	l.sink.Log(h + strings.ReplaceAll(msg, "\n", "\n"+strings.Repeat(" ", len(h))))
}

// Sink is a destination of formatted log entries, e.g. a log file or the
// console.
type Sink interface {
	Log(msg string)
}

// WriterSink writes each entry to an io.Writer followed by a newline.
// Writes are synchronized, so one WriterSink may be shared by loggers used
// from several goroutines.
type WriterSink struct {
	w  io.Writer
	mu sync.Mutex
}

// NewWriterSink returns a WriterSink writing to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Log writes msg to the underlying writer.
func (s *WriterSink) Log(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, msg)
}
