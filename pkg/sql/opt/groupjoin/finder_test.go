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

package groupjoin_test

import (
	"context"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/cockroachdb/planrw/pkg/settings"
	"github.com/cockroachdb/planrw/pkg/sql/opt/groupjoin"
	"github.com/cockroachdb/planrw/pkg/sql/opt/norm"
	"github.com/cockroachdb/planrw/pkg/sql/opt/plan"
	"github.com/cockroachdb/planrw/pkg/sql/opt/rule"
	"github.com/cockroachdb/planrw/pkg/sql/opt/testutils"
	"github.com/cockroachdb/planrw/pkg/sql/opt/testutils/scenario"
	"github.com/cockroachdb/planrw/pkg/sql/sem/builtins"
	"github.com/kr/pretty"
	"github.com/stretchr/testify/require"
)

func TestGroupJoinFinder(t *testing.T) {
	datadriven.Walk(t, "testdata", func(t *testing.T, path string) {
		tester := testutils.NewOptTester()
		datadriven.RunTest(t, path, func(t *testing.T, d *datadriven.TestData) string {
			return tester.RunCommand(t, d)
		})
	})
}

const customerOrderProduct = `
plan:
  op: select
  where: [c.region = 'west', p.name = c.name]
  input:
    op: join
    kind: inner
    left:
      op: join
      kind: inner
      left: {op: table, table: customer, as: c}
      right: {op: table, table: order, as: o}
      on: [o.customer_id = c.id]
    right: {op: table, table: product, as: p}
`

func TestGroupJoinFinderIdempotent(t *testing.T) {
	for _, strategy := range []string{groupjoin.StrategyTree, groupjoin.StrategyFlat} {
		t.Run(strategy, func(t *testing.T) {
			s, err := scenario.Load([]byte(customerOrderProduct))
			require.NoError(t, err)
			p, catalog, err := s.Build(builtins.Resolver)
			require.NoError(t, err)
			values, err := settings.MakeValues(map[string]string{"groupJoinStrategy": strategy})
			require.NoError(t, err)

			rc := rule.NewRulesContext(
				[]rule.Rule{norm.ColumnEquivalenceFinder{}, groupjoin.GroupJoinFinder{}},
				rule.WithCatalog(catalog),
				rule.WithResolver(builtins.Resolver),
				rule.WithSettings(values),
			)
			pc := rc.NewPlanContext(p)
			require.NoError(t, rc.ApplyRules(context.Background(), pc, nil /* sink */))
			once := p.String()
			require.NoError(t, rc.ApplyRules(context.Background(), pc, nil /* sink */))
			require.Equal(t, once, p.String())
			require.NoError(t, plan.CheckPlan(p))
		})
	}
}

func TestGroupJoinFinderMergesGroups(t *testing.T) {
	tester := testutils.NewOptTester()
	tester.Flags.Rules = []string{"GroupJoinFinder"}
	p, err := tester.Apply(`
plan:
  op: select
  where: [i.order_id = o.id, o.customer_id = c.id, a.customer_id = c.id]
  input:
    op: join
    kind: inner
    left:
      op: join
      kind: inner
      left:
        op: join
        kind: inner
        left: {op: table, table: item, as: i}
        right: {op: table, table: address, as: a}
      right: {op: table, table: order, as: o}
    right: {op: table, table: customer, as: c}
`)
	require.NoError(t, err)

	var tables []*plan.TableSource
	plan.WalkWithExprs(p.Root(), plan.PreOrder(func(n plan.Node) bool {
		if tab, ok := n.(*plan.TableSource); ok {
			tables = append(tables, tab)
		}
		return true
	}), nil /* ev */)
	require.Len(t, tables, 4)

	group := tables[0].Group
	require.NotNil(t, group)
	for _, tab := range tables {
		require.Same(t, group, tab.Group, "%s", tab.Alias)
		if tab.Alias == "c" {
			require.Nil(t, tab.ParentJoin)
			continue
		}
		require.NotNil(t, tab.ParentJoin, "%s", tab.Alias)
		require.Len(t, tab.ParentJoin.Conditions, 1)
	}
	pairs := make(map[string]string)
	for _, j := range group.Joins {
		pairs[j.Child.Alias] = j.Parent.Alias
	}
	expected := map[string]string{"o": "c", "i": "o", "a": "c"}
	if diff := pretty.Diff(expected, pairs); len(diff) > 0 {
		t.Errorf("unexpected group joins:\n%s", strings.Join(diff, "\n"))
	}
	require.Equal(t, `group-join-tree
 └── customer AS c
      ├── inner order AS o
      │    └── inner item AS i
      └── inner address AS a
`, p.String())
}
