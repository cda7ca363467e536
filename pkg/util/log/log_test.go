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
	"bytes"
	"context"
	"testing"

	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/redact"
	"github.com/stretchr/testify/require"
)

func TestSinkReceivesTaggedEntries(t *testing.T) {
	var sink BufferSink
	ctx := WithSink(context.Background(), &sink)
	ctx = logtags.AddTag(ctx, "rule", "GroupJoinFinder")

	Infof(ctx, "found %d islands", 2)
	Warningf(ctx, "table %s", "customer")

	entries := sink.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, Severity_INFO, entries[0].Severity)
	require.Equal(t, "rule=GroupJoinFinder", entries[0].Tags)
	require.Equal(t, "found 2 islands", entries[0].Message.StripMarkers())
	require.Equal(t, "W [rule=GroupJoinFinder] table customer", entries[1].String())
	// Unsafe string arguments carry redaction markers.
	require.Equal(t, redact.RedactableString("table ‹customer›"), entries[1].Message)
}

func TestVerbosity(t *testing.T) {
	var sink BufferSink
	ctx := context.Background()
	require.False(t, V(ctx, 0))

	ctx = WithSink(ctx, &sink)
	require.True(t, V(ctx, 0))
	require.False(t, V(ctx, 2))

	VEventf(ctx, 2, "dropped")
	ctx = WithVerbosity(ctx, 2)
	VEventf(ctx, 2, "kept")
	require.Equal(t, "I kept\n", sink.String())
}

func TestNoSink(t *testing.T) {
	// Must not panic.
	Infof(context.Background(), "nobody listens")
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithSink(context.Background(), WriterSink{W: &buf})
	Errorf(ctx, "boom %d", 1)
	require.Equal(t, "E boom 1\n", buf.String())
}

func TestFormatWithContextTags(t *testing.T) {
	ctx := logtags.AddTag(context.Background(), "n", 1)
	require.Equal(t, "[n1] hello world", FormatWithContextTags(ctx, "hello %s", "world"))
}
