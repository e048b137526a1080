// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package base

import (
	"bytes"
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Logger defines an interface for writing log messages.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

// DefaultLogger logs through a logrus logger writing to stderr.
var DefaultLogger Logger = NewLogrusLogger(logrus.StandardLogger())

// LogrusLogger adapts a logrus.FieldLogger to the Logger interface.
type LogrusLogger struct {
	backend logrus.FieldLogger
}

var _ Logger = (*LogrusLogger)(nil)

// NewLogrusLogger returns a Logger that writes through the given logrus
// logger.
func NewLogrusLogger(l logrus.FieldLogger) *LogrusLogger {
	return &LogrusLogger{backend: l}
}

// WithFields returns a Logger that attaches the given key/value pairs to
// every message. Keys must be strings.
func (l *LogrusLogger) WithFields(kv ...interface{}) *LogrusLogger {
	if len(kv)%2 != 0 {
		panic("must specify fields as key/value pairs")
	}
	fields := make(logrus.Fields, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			panic("field keys must be strings")
		}
		fields[k] = kv[i+1]
	}
	return &LogrusLogger{backend: l.backend.WithFields(fields)}
}

// Infof implements the Logger.Infof interface.
func (l *LogrusLogger) Infof(format string, args ...interface{}) {
	l.backend.Infof(format, args...)
}

// Errorf implements the Logger.Errorf interface.
func (l *LogrusLogger) Errorf(format string, args ...interface{}) {
	l.backend.Errorf(format, args...)
}

// Fatalf implements the Logger.Fatalf interface.
func (l *LogrusLogger) Fatalf(format string, args ...interface{}) {
	l.backend.Errorf(format, args...)
	os.Exit(1)
}

// NoopLoggerForTesting is a Logger that does nothing.
type NoopLoggerForTesting struct{}

var _ Logger = NoopLoggerForTesting{}

// Infof implements the Logger.Infof interface.
func (NoopLoggerForTesting) Infof(format string, args ...interface{}) {}

// Errorf implements the Logger.Errorf interface.
func (NoopLoggerForTesting) Errorf(format string, args ...interface{}) {}

// Fatalf implements the Logger.Fatalf interface.
func (NoopLoggerForTesting) Fatalf(format string, args ...interface{}) {
	panic(fmt.Sprintf(format, args...))
}

// InMemLogger implements Logger using an in-memory buffer (used for testing).
// The buffer can be read via String() and cleared via Reset().
type InMemLogger struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

var _ Logger = (*InMemLogger)(nil)

// Reset clears the internal buffer.
func (b *InMemLogger) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// String returns the current internal buffer.
func (b *InMemLogger) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Infof is part of the Logger interface.
func (b *InMemLogger) Infof(format string, args ...interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fmt.Fprintf(&b.buf, format, args...)
	if n := len(format); n == 0 || format[n-1] != '\n' {
		b.buf.WriteByte('\n')
	}
}

// Errorf is part of the Logger interface.
func (b *InMemLogger) Errorf(format string, args ...interface{}) {
	b.Infof(format, args...)
}

// Fatalf is part of the Logger interface.
func (b *InMemLogger) Fatalf(format string, args ...interface{}) {
	b.Infof(format, args...)
	panic(fmt.Sprintf(format, args...))
}
