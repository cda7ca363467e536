// Copyright 2026 The Cockroach Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

// Package log routes diagnostics produced while rewriting a plan to a sink
// supplied by the caller. There is no process-wide logger: every entry point
// that wants diagnostics attaches a Sink to its context with WithSink.
package log

import (
	"context"

	"github.com/cockroachdb/redact"
)

// Severity is the severity level of an Entry.
type Severity int32

// Severity levels.
const (
	Severity_UNKNOWN Severity = iota
	Severity_INFO
	Severity_WARNING
	Severity_ERROR
)

// SafeValue implements the redact.SafeValue interface.
func (s Severity) SafeValue() {}

// String implements the fmt.Stringer interface.
func (s Severity) String() string {
	switch s {
	case Severity_INFO:
		return "I"
	case Severity_WARNING:
		return "W"
	case Severity_ERROR:
		return "E"
	default:
		return "?"
	}
}

// Entry is a single diagnostic message.
type Entry struct {
	Severity Severity
	// Tags holds the context tags rendered as k=v pairs, e.g. "rule=AggregateMapper".
	Tags string
	// Message may contain redaction markers around unsafe arguments.
	Message redact.RedactableString
}

// String renders the entry without redaction markers.
func (e Entry) String() string {
	if e.Tags == "" {
		return e.Severity.String() + " " + e.Message.StripMarkers()
	}
	return e.Severity.String() + " [" + e.Tags + "] " + e.Message.StripMarkers()
}

// Sink receives log entries.
type Sink interface {
	Output(e Entry)
}

type sinkKey struct{}

type verbosityKey struct{}

// WithSink returns a context whose log calls are delivered to the sink.
func WithSink(ctx context.Context, s Sink) context.Context {
	return context.WithValue(ctx, sinkKey{}, s)
}

// WithVerbosity returns a context in which V(level) is true for every level
// at or below the given one.
func WithVerbosity(ctx context.Context, level int32) context.Context {
	return context.WithValue(ctx, verbosityKey{}, level)
}

func sinkFromContext(ctx context.Context) Sink {
	s, _ := ctx.Value(sinkKey{}).(Sink)
	return s
}

// V returns true if the verbosity attached to the context is at least level
// and a sink is present to receive the output.
func V(ctx context.Context, level int32) bool {
	if sinkFromContext(ctx) == nil {
		return false
	}
	v, _ := ctx.Value(verbosityKey{}).(int32)
	return v >= level
}

// ExpensiveLogEnabled is used to test whether effort should be used to
// produce log messages whose construction is costly, such as formatting a
// whole plan.
func ExpensiveLogEnabled(ctx context.Context, level int32) bool {
	return V(ctx, level)
}

// Infof logs to the sink at INFO severity.
func Infof(ctx context.Context, format string, args ...interface{}) {
	addStructured(ctx, Severity_INFO, format, args)
}

// Warningf logs to the sink at WARNING severity.
func Warningf(ctx context.Context, format string, args ...interface{}) {
	addStructured(ctx, Severity_WARNING, format, args)
}

// Errorf logs to the sink at ERROR severity.
func Errorf(ctx context.Context, format string, args ...interface{}) {
	addStructured(ctx, Severity_ERROR, format, args)
}

// VEventf logs at INFO severity if the verbosity is at least level.
func VEventf(ctx context.Context, level int32, format string, args ...interface{}) {
	if V(ctx, level) {
		addStructured(ctx, Severity_INFO, format, args)
	}
}
