// Package testutils contains helpers shared by the package tests.
package testutils

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

// Something that makes the test also be a valid io.Writer, useful for passing
// it as an output for logs.
type testOutput struct{ testing.TB }

func (to testOutput) Write(p []byte) (n int, err error) {
	to.Logf("%s", p)
	return len(p), nil
}

// NewTestOutput returns a simple io.Writer implementation that uses the
// test's logger as an output.
func NewTestOutput(t testing.TB) io.Writer {
	return testOutput{t}
}

// NewLogger returns a new logger instance. If the given argument is not nil,
// the logger will log everything through its t.Logf() method. If it's nil,
// all messages will be discarded.
func NewLogger(t testing.TB) logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.DebugLevel)
	if t == nil {
		l.SetOutput(io.Discard)
	} else {
		l.SetOutput(NewTestOutput(t))
	}
	return l
}
