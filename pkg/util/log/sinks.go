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

package log

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// BufferSink accumulates entries in memory. It is mostly useful in tests.
type BufferSink struct {
	mu      sync.Mutex
	entries []Entry
}

var _ Sink = &BufferSink{}

// Output is part of the Sink interface.
func (b *BufferSink) Output(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, e)
}

// Entries returns a copy of the accumulated entries.
func (b *BufferSink) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Entry(nil), b.entries...)
}

// String renders every entry on its own line.
func (b *BufferSink) String() string {
	var buf strings.Builder
	for _, e := range b.Entries() {
		buf.WriteString(e.String())
		buf.WriteByte('\n')
	}
	return buf.String()
}

// WriterSink writes entries to an io.Writer, one per line.
type WriterSink struct {
	W io.Writer
	// Redactable keeps the redaction markers in the output.
	Redactable bool
}

var _ Sink = WriterSink{}

// Output is part of the Sink interface.
func (w WriterSink) Output(e Entry) {
	msg := e.Message.StripMarkers()
	if w.Redactable {
		msg = string(e.Message)
	}
	if e.Tags != "" {
		fmt.Fprintf(w.W, "%s [%s] %s\n", e.Severity, e.Tags, msg)
		return
	}
	fmt.Fprintf(w.W, "%s %s\n", e.Severity, msg)
}
