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

package xform_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/planrw/pkg/sql/opt/plan"
	"github.com/cockroachdb/planrw/pkg/sql/opt/rule"
	"github.com/cockroachdb/planrw/pkg/sql/opt/testutils"
	"github.com/cockroachdb/planrw/pkg/sql/opt/testutils/scenario"
	"github.com/cockroachdb/planrw/pkg/sql/opt/xform"
	"github.com/cockroachdb/planrw/pkg/sql/sem/builtins"
	"github.com/cockroachdb/planrw/pkg/util/log"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestOptimizer(t *testing.T) {
	datadriven.Walk(t, "testdata", func(t *testing.T, path string) {
		tester := testutils.NewOptTester()
		datadriven.RunTest(t, path, func(t *testing.T, d *datadriven.TestData) string {
			return tester.RunCommand(t, d)
		})
	})
}

func TestDefaultRules(t *testing.T) {
	var names []string
	for _, r := range xform.DefaultRules() {
		names = append(names, r.Name())
		found, ok := xform.RuleByName(r.Name())
		require.True(t, ok)
		require.Equal(t, r.Name(), found.Name())
	}
	expected := []string{
		"ColumnEquivalenceFinder",
		"AggregateMapper",
		"SortSplitter",
		"ConstantFolder",
		"OuterJoinPromoter",
		"GroupJoinFinder",
		"IndexPicker",
		"NestedLoopMapper",
		"MapFolder",
		"ExpressionCompactor",
		"StepIsolationChecker",
	}
	if diff := cmp.Diff(expected, names); diff != "" {
		t.Errorf("unexpected pipeline (-expected +actual):\n%s", diff)
	}
	_, ok := xform.RuleByName("Memoizer")
	require.False(t, ok)
}

const customerOrders = `
plan:
  op: select-query
  input:
    op: project
    exprs: [c.name, o.total]
    input:
      op: join
      kind: inner
      left: {op: table, table: customer, as: c}
      right: {op: table, table: order, as: o}
      on: [o.customer_id = c.id]
`

func TestOptimizeLogsRules(t *testing.T) {
	s, err := scenario.Load([]byte(customerOrders))
	require.NoError(t, err)
	p, catalog, err := s.Build(builtins.Resolver)
	require.NoError(t, err)

	var sink log.BufferSink
	ctx := log.WithVerbosity(context.Background(), 2)
	o := xform.NewOptimizer(catalog, builtins.Resolver, nil /* values */, rule.WithTracer(rule.LogTracer{}))
	require.NoError(t, o.Optimize(ctx, p, &sink))

	out := sink.String()
	require.Contains(t, out, "[rule=GroupJoinFinder] recognized group join c -> o")
	require.Contains(t, out, "[rule=IndexPicker] o: index order_customer prefix 1")
	require.Contains(t, out, "[rule=StepIsolationChecker] done in")
}

func TestOptimizeSteps(t *testing.T) {
	tester := testutils.NewOptTester()
	out, err := tester.OptSteps(customerOrders)
	require.NoError(t, err)

	// The initial plan comes first, then one diff per rule that changed it.
	require.True(t, bytes.HasPrefix([]byte(out), []byte("select-query\n")))
	require.Contains(t, out, "--- before GroupJoinFinder\n+++ after GroupJoinFinder\n")
	require.Contains(t, out, "+++ after IndexPicker\n")
	require.NotContains(t, out, "after SortSplitter")
}

func TestOptimizeError(t *testing.T) {
	s, err := scenario.Load([]byte(`
plan:
  op: join
  kind: full
  left: {op: table, table: customer, as: c}
  right: {op: table, table: product, as: p}
  on: [p.name = c.name]
`))
	require.NoError(t, err)
	p, catalog, err := s.Build(builtins.Resolver)
	require.NoError(t, err)

	o := xform.NewOptimizer(catalog, builtins.Resolver, nil /* values */)
	err = o.Optimize(context.Background(), p, nil /* sink */)
	require.EqualError(t, err, "FULL JOIN cannot be evaluated as a nested loop")
	require.False(t, errors.IsAssertionFailure(err))
	require.Contains(t, errors.FlattenDetails(err), "join full: p.name = c.name")

	// The plan is left as the failing rule found it.
	_, ok := p.Root().(*plan.Join)
	require.True(t, ok)
}
