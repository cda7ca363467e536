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

package rule

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cockroachdb/planrw/pkg/util/log"
	"github.com/pmezard/go-difflib/difflib"
)

// Tracer observes the pipeline. StartRule is called before each rule runs;
// the function it returns, if not nil, is called once the rule has returned
// or panicked. Tracers must not modify the plan.
type Tracer interface {
	StartRule(ctx context.Context, r Rule, pc *PlanContext) func(elapsed time.Duration, err error)
}

// LogTracer logs the duration and outcome of every rule at verbosity 1.
type LogTracer struct{}

var _ Tracer = LogTracer{}

// StartRule is part of the Tracer interface.
func (LogTracer) StartRule(
	ctx context.Context, r Rule, _ *PlanContext,
) func(time.Duration, error) {
	if !log.V(ctx, 1) {
		return nil
	}
	return func(elapsed time.Duration, err error) {
		if err != nil {
			log.Infof(ctx, "failed after %s: %v", elapsed, err)
			return
		}
		log.Infof(ctx, "done in %s", elapsed)
	}
}

// DiffTracer reports how each rule changed the plan as a unified diff of the
// formatted plan. Rules that leave the plan unchanged produce nothing. The
// diff is written to W when set, and logged at verbosity 2 otherwise.
type DiffTracer struct {
	W io.Writer
}

var _ Tracer = DiffTracer{}

// StartRule is part of the Tracer interface.
func (t DiffTracer) StartRule(
	ctx context.Context, r Rule, pc *PlanContext,
) func(time.Duration, error) {
	if t.W == nil && !log.ExpensiveLogEnabled(ctx, 2) {
		return nil
	}
	before := pc.Plan.String()
	return func(_ time.Duration, err error) {
		if err != nil {
			return
		}
		after := pc.Plan.String()
		if after == before {
			return
		}
		diff, derr := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        planLines(before),
			B:        planLines(after),
			FromFile: "before " + r.Name(),
			ToFile:   "after " + r.Name(),
			Context:  3,
		})
		if derr != nil {
			log.Warningf(ctx, "cannot diff plans: %v", derr)
			return
		}
		if t.W != nil {
			fmt.Fprint(t.W, diff)
			return
		}
		log.Infof(ctx, "%s", diff)
	}
}

// planLines splits a formatted plan into newline-terminated lines.
func planLines(s string) []string {
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
