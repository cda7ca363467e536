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

package indexpick_test

import (
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/cockroachdb/planrw/pkg/sql/opt/plan"
	"github.com/cockroachdb/planrw/pkg/sql/opt/testutils"
	"github.com/stretchr/testify/require"
)

func TestIndexPicker(t *testing.T) {
	datadriven.Walk(t, "testdata", func(t *testing.T, path string) {
		tester := testutils.NewOptTester()
		datadriven.RunTest(t, path, func(t *testing.T, d *datadriven.TestData) string {
			return tester.RunCommand(t, d)
		})
	})
}

func TestAccessPathConditions(t *testing.T) {
	tester := testutils.NewOptTester()
	tester.Flags.Rules = []string{"IndexPicker"}
	p, err := tester.Apply(`
plan:
  op: select
  where: [o.total = 10 AND o.status = 'open']
  input: {op: table, table: order, as: o}
`)
	require.NoError(t, err)

	sel := p.Root().(*plan.Select)
	o := sel.Input().(*plan.TableSource)
	require.NotNil(t, o.AccessPath)
	require.Equal(t, "order_status", o.AccessPath.Index.Name())

	// The conditions are the conjuncts binding each column, in index order.
	var conds []string
	for _, c := range o.AccessPath.EqualityConds {
		conds = append(conds, plan.ExprString(c))
	}
	require.Equal(t, []string{"o.status = 'open'", "o.total = 10"}, conds)
}
