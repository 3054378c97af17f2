// Package xqlog provides the engine-wide tracing logger. The parser and
// evaluator accept a *logrus.Logger and emit Debug-level production and
// instruction traces, replacing the teacher's hand-rolled bytes.Buffer
// trace in xpath/context.go (ctx.b / addDebugInstrAndStack) with
// structured fields.
package xqlog

import "github.com/sirupsen/logrus"

// Discard is the logger used whenever the caller passes a nil logger to
// the parser or evaluator - every call site can log unconditionally
// instead of guarding on a nil check, mirroring ctx.debug's gate in the
// teacher but moving the gate into the logger itself.
var Discard = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(discardWriter{})
	return l
}()

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// Or returns l if non-nil, otherwise the package Discard logger.
func Or(l *logrus.Logger) *logrus.Logger {
	if l == nil {
		return Discard
	}
	return l
}
