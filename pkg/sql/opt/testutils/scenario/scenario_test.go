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

package scenario_test

import (
	"fmt"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/planrw/pkg/sql/opt/plan"
	"github.com/cockroachdb/planrw/pkg/sql/opt/testutils/scenario"
	"github.com/cockroachdb/planrw/pkg/sql/opt/testutils/testcat"
	"github.com/cockroachdb/planrw/pkg/sql/pgwire/pgcode"
	"github.com/cockroachdb/planrw/pkg/sql/pgwire/pgerror"
	"github.com/cockroachdb/planrw/pkg/sql/sem/builtins"
	"github.com/cockroachdb/planrw/pkg/sql/types"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	datadriven.RunTest(t, "testdata/build", func(t *testing.T, d *datadriven.TestData) string {
		switch d.Cmd {
		case "build":
			s, err := scenario.Load([]byte(d.Input))
			if err != nil {
				return fmt.Sprintf("error: %v\n", err)
			}
			p, _, err := s.Build(builtins.Resolver)
			if err != nil {
				return fmt.Sprintf("error (%s): %v\n", pgerror.GetPGCode(err), err)
			}
			if err := plan.CheckTree(p); err != nil {
				d.Fatalf(t, "invalid plan: %v", err)
			}
			return p.String()

		default:
			d.Fatalf(t, "unsupported command: %s", d.Cmd)
			return ""
		}
	})
}

func buildExprs(t *testing.T, exprs ...string) (*plan.Project, error) {
	t.Helper()
	n := &scenario.Node{
		Op:    "project",
		Exprs: exprs,
		Input: &scenario.Node{Op: "table", Table: "order", As: "o"},
	}
	p, err := scenario.Build(testcat.NewSample(), builtins.Resolver, []*types.T{types.Int}, n)
	if err != nil {
		return nil, err
	}
	return p.Root().(*plan.Project), nil
}

func TestExprTypes(t *testing.T) {
	proj, err := buildExprs(t,
		"o.total * 2",
		"o.id / 2",
		"sum(o.total) > 10",
		"coalesce(null, o.status)",
		"$1 + 1.5",
		"o.id::float",
		"CASE WHEN o.id = 1 THEN null ELSE 'x' END",
	)
	require.NoError(t, err)

	var actual []string
	for _, e := range proj.Exprs {
		actual = append(actual, e.Type().String())
	}
	expected := []string{"decimal", "decimal", "bool", "string", "decimal", "float", "string"}
	if diff := cmp.Diff(expected, actual); diff != "" {
		t.Errorf("unexpected types (-expected +actual):\n%s", diff)
	}
}

func TestExprPrecedence(t *testing.T) {
	testCases := []struct {
		expr     string
		expected string
	}{
		{expr: "o.id + 2 * 3", expected: "(o.id + (2 * 3))"},
		{expr: "(o.id + 2) * 3", expected: "((o.id + 2) * 3)"},
		{expr: "o.id = 1 OR o.id = 2 AND NOT o.status = 'x'",
			expected: "(o.id = 1 OR (o.id = 2 AND NOT o.status = 'x'))"},
		{expr: "o.status IS NOT NULL", expected: "NOT isNull(o.status)"},
		{expr: "o.id NOT IN (1, 2)", expected: "NOT o.id IN (1, 2)"},
		{expr: "-o.id", expected: "(0 - o.id)"},
		{expr: "-2.50", expected: "-2.50"},
		{expr: "'it''s'", expected: "'it''s'"},
		{expr: "count(DISTINCT customer_id)", expected: "count(DISTINCT o.customer_id)"},
		{expr: "o.id <> $1", expected: "o.id != $1"},
	}
	for _, tc := range testCases {
		t.Run(tc.expr, func(t *testing.T) {
			proj, err := buildExprs(t, tc.expr)
			require.NoError(t, err)
			require.Equal(t, tc.expected, plan.ExprString(proj.Exprs[0]))
		})
	}
}

func TestExprErrors(t *testing.T) {
	testCases := []struct {
		expr string
		code pgcode.Code
		msg  string
	}{
		{expr: "o.id = ", code: pgcode.Syntax,
			msg: `at or near position 7 of "o.id = ": unexpected ""`},
		{expr: "'abc", code: pgcode.Syntax,
			msg: `at or near position 0 of "'abc": unterminated string`},
		{expr: "o.id # 1", code: pgcode.Syntax,
			msg: `at or near position 5 of "o.id # 1": unexpected character '#'`},
		{expr: "o.nope", code: pgcode.UndefinedColumn, msg: "column o.nope does not exist"},
		{expr: "x.id", code: pgcode.UndefinedTable, msg: `no source named "x"`},
		{expr: "o.status + 1", code: pgcode.UndefinedFunction,
			msg: "unknown signature: plus(string, int)"},
		{expr: "frob(o.id)", code: pgcode.UndefinedFunction, msg: "unknown function: frob()"},
		{expr: "o.id::blob", code: pgcode.UndefinedObject, msg: `unknown type "blob"`},
		{expr: "o.status::bool::float", code: pgcode.CannotCoerce,
			msg: "invalid cast: bool -> float"},
		{expr: "$2", code: pgcode.Syntax, msg: `at or near position 0 of "$2": no parameter $2`},
		{expr: "exists(@nope)", code: pgcode.UndefinedObject, msg: "no subquery named @nope"},
	}
	for _, tc := range testCases {
		t.Run(tc.expr, func(t *testing.T) {
			_, err := buildExprs(t, tc.expr)
			require.Error(t, err)
			require.Equal(t, tc.code, pgerror.GetPGCode(err))
			require.EqualError(t, err, tc.msg)
			require.False(t, errors.IsAssertionFailure(err))
		})
	}
}

func TestLoad(t *testing.T) {
	s, err := scenario.Load([]byte(`
tables:
  - name: t
    columns: [{name: k, type: int}, {name: v, type: string, nullable: true}]
    primary_key: [k]
params: [int, string]
plan:
  op: select
  where: [k = $1, v = $2]
  input: {op: table, table: t}
`))
	require.NoError(t, err)

	catalog, err := s.Catalog()
	require.NoError(t, err)
	_, err = catalog.ResolveTable("customer")
	require.Error(t, err, "a declared schema replaces the sample catalog")

	p, _, err := s.Build(builtins.Resolver)
	require.NoError(t, err)
	require.Equal(t, 2, p.ParamCount())
	require.Equal(t, "select: t.k = $1, t.v = $2\n └── table t\n", p.String())

	_, err = scenario.Load([]byte("plan: {op: table, tabel: t}\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "field tabel not found")

	_, err = scenario.Load([]byte("params: [int]\n"))
	require.EqualError(t, err, "scenario has no plan")

	_, err = scenario.ParseTypes([]string{"int", "blob"})
	require.EqualError(t, err, `unknown type "blob"`)
}
