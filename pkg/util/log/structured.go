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
	"context"
	"strings"

	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/redact"
)

// FormatWithContextTags formats the string and prepends the context
// tags.
//
// Redaction markers are *not* inserted. The resulting
// string is generally unsafe for reporting.
func FormatWithContextTags(ctx context.Context, format string, args ...interface{}) string {
	var buf strings.Builder
	if tags := formatTags(ctx); tags != "" {
		buf.WriteByte('[')
		buf.WriteString(tags)
		buf.WriteString("] ")
	}
	buf.WriteString(redact.Sprintf(format, args...).StripMarkers())
	return buf.String()
}

// formatTags renders the logging tags attached to the context as a comma
// separated list of key=value pairs.
func formatTags(ctx context.Context) string {
	tags := logtags.FromContext(ctx)
	if tags == nil {
		return ""
	}
	return tags.String()
}

// addStructured creates a structured log entry and hands it to the sink
// attached to the context. Entries are dropped when there is no sink.
func addStructured(ctx context.Context, sev Severity, format string, args []interface{}) {
	s := sinkFromContext(ctx)
	if s == nil {
		return
	}
	s.Output(MakeEntry(ctx, sev, format, args...))
}

// MakeEntry creates an Entry.
func MakeEntry(ctx context.Context, sev Severity, format string, args ...interface{}) Entry {
	return Entry{
		Severity: sev,
		Tags:     formatTags(ctx),
		Message:  redact.Sprintf(format, args...),
	}
}
