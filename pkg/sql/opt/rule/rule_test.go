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

package rule_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/planrw/pkg/sql/opt/plan"
	"github.com/cockroachdb/planrw/pkg/sql/opt/rule"
	"github.com/cockroachdb/planrw/pkg/sql/opt/testutils/testcat"
	"github.com/cockroachdb/planrw/pkg/sql/pgwire/pgcode"
	"github.com/cockroachdb/planrw/pkg/sql/pgwire/pgerror"
	"github.com/cockroachdb/planrw/pkg/util/log"
	"github.com/stretchr/testify/require"
)

// distinctPlan returns SELECT DISTINCT * FROM customer.
func distinctPlan() *plan.Plan {
	tc := testcat.NewSample()
	p := plan.New(0)
	tab := p.ConstructTableSource(tc.Table("customer"), "")
	p.SetRoot(p.ConstructSelectQuery(p.ConstructDistinct(tab)))
	return p
}

// removeDistinct replaces every Distinct with its input.
var removeDistinct = rule.Func("RemoveDistinct", func(ctx context.Context, pc *rule.PlanContext) error {
	var found []*plan.Distinct
	plan.Walk(pc.Plan.Root(), plan.PreOrder(func(n plan.Node) bool {
		if d, ok := n.(*plan.Distinct); ok {
			found = append(found, d)
		}
		return true
	}))
	for _, d := range found {
		pc.Plan.Replace(d, d.Input())
	}
	log.Infof(ctx, "removed %d", len(found))
	return nil
})

func recordRule(name string, ran *[]string) rule.Rule {
	return rule.Func(name, func(context.Context, *rule.PlanContext) error {
		*ran = append(*ran, name)
		return nil
	})
}

func TestApplyRulesOrder(t *testing.T) {
	var ran []string
	rc := rule.NewRulesContext([]rule.Rule{
		recordRule("a", &ran), recordRule("b", &ran), recordRule("c", &ran),
	})
	pc := rc.NewPlanContext(distinctPlan())
	require.NoError(t, rc.ApplyRules(context.Background(), pc, nil))
	require.Equal(t, []string{"a", "b", "c"}, ran)
	require.Len(t, rc.Rules(), 3)
}

func TestApplyRulesAbort(t *testing.T) {
	testCases := []struct {
		name  string
		apply func()
		check func(t *testing.T, err error)
	}{
		{
			name: "returned",
			check: func(t *testing.T, err error) {
				require.Equal(t, pgcode.FeatureNotSupported, pgerror.GetPGCode(err))
			},
		},
		{
			name: "panicked",
			apply: func() {
				panic(pgerror.Newf(pgcode.Grouping, "column must appear in the GROUP BY clause"))
			},
			check: func(t *testing.T, err error) {
				require.Equal(t, pgcode.Grouping, pgerror.GetPGCode(err))
				require.False(t, errors.IsAssertionFailure(err))
			},
		},
		{
			name: "runtime",
			apply: func() {
				var s []int
				_ = s[len(s)+1]
			},
			check: func(t *testing.T, err error) {
				require.True(t, errors.IsAssertionFailure(err))
				require.Equal(t, pgcode.Internal, pgerror.GetPGCode(err))
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var ran []string
			failing := rule.Func("failing", func(context.Context, *rule.PlanContext) error {
				if tc.apply != nil {
					tc.apply()
				}
				return pgerror.Newf(pgcode.FeatureNotSupported, "unsupported")
			})
			rc := rule.NewRulesContext([]rule.Rule{recordRule("a", &ran), failing, recordRule("b", &ran)})
			err := rc.ApplyRules(context.Background(), rc.NewPlanContext(distinctPlan()), nil)
			require.Error(t, err)
			tc.check(t, err)
			require.Equal(t, []string{"a"}, ran)
		})
	}
}

func TestApplyRulesRepanics(t *testing.T) {
	rc := rule.NewRulesContext([]rule.Rule{
		rule.Func("bad", func(context.Context, *rule.PlanContext) error { panic("not an error") }),
	})
	require.Panics(t, func() {
		_ = rc.ApplyRules(context.Background(), rc.NewPlanContext(distinctPlan()), nil)
	})
}

func TestApplyRulesNoPlan(t *testing.T) {
	rc := rule.NewRulesContext(nil)
	err := rc.ApplyRules(context.Background(), rc.NewPlanContext(plan.New(0)), nil)
	require.True(t, errors.IsAssertionFailure(err))
}

func TestRuleLogTags(t *testing.T) {
	var sink log.BufferSink
	rc := rule.NewRulesContext([]rule.Rule{removeDistinct})
	pc := rc.NewPlanContext(distinctPlan())
	require.NoError(t, rc.ApplyRules(context.Background(), pc, &sink))
	require.Equal(t, "I [rule=RemoveDistinct] removed 1\n", sink.String())
	require.Equal(t, "select-query\n └── table customer\n", pc.Plan.String())
}

func TestLogTracer(t *testing.T) {
	var sink log.BufferSink
	rc := rule.NewRulesContext(
		[]rule.Rule{removeDistinct, rule.Func("failing", func(context.Context, *rule.PlanContext) error {
			return errors.New("boom")
		})},
		rule.WithTracer(rule.LogTracer{}),
	)

	// Without verbosity only the rule's own entry is produced.
	require.Error(t, rc.ApplyRules(context.Background(), rc.NewPlanContext(distinctPlan()), &sink))
	require.Len(t, sink.Entries(), 1)

	var verbose log.BufferSink
	ctx := log.WithVerbosity(context.Background(), 1)
	require.Error(t, rc.ApplyRules(ctx, rc.NewPlanContext(distinctPlan()), &verbose))
	entries := verbose.Entries()
	require.Len(t, entries, 4)
	require.Equal(t, "rule=RemoveDistinct", entries[1].Tags)
	require.True(t, strings.HasPrefix(entries[1].Message.StripMarkers(), "done in "))
	require.Equal(t, "rule=failing", entries[2].Tags)
	require.Contains(t, entries[2].Message.StripMarkers(), "boom")
	require.Equal(t, "aborting: boom", entries[3].Message.StripMarkers())
}

func TestDiffTracer(t *testing.T) {
	var buf bytes.Buffer
	rc := rule.NewRulesContext(
		[]rule.Rule{removeDistinct, removeDistinct},
		rule.WithTracer(rule.DiffTracer{W: &buf}),
	)
	require.NoError(t, rc.ApplyRules(context.Background(), rc.NewPlanContext(distinctPlan()), nil))

	// Only the first application changed the plan.
	expected := "--- before RemoveDistinct\n" +
		"+++ after RemoveDistinct\n" +
		"@@ -1,3 +1,2 @@\n" +
		" select-query\n" +
		"- └── distinct\n" +
		"-      └── table customer\n" +
		"+ └── table customer\n"
	require.Equal(t, expected, buf.String())

	// Logged at verbosity 2 when no writer is given.
	var sink log.BufferSink
	rc = rule.NewRulesContext([]rule.Rule{removeDistinct}, rule.WithTracer(rule.DiffTracer{}))
	ctx := log.WithVerbosity(context.Background(), 2)
	require.NoError(t, rc.ApplyRules(ctx, rc.NewPlanContext(distinctPlan()), &sink))
	require.Len(t, sink.Entries(), 2)
	require.Contains(t, sink.Entries()[1].Message.StripMarkers(), "+ └── table customer")
}
