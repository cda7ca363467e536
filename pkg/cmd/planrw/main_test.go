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

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const leftJoin = `
plan:
  op: select-query
  input:
    op: project
    exprs: [c.name, p.price]
    input:
      op: join
      kind: left
      left: {op: table, table: customer, as: c}
      right: {op: table, table: product, as: p}
      on: [p.name = c.name]
`

func writeScenario(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestOpt(t *testing.T) {
	path := writeScenario(t, leftJoin)

	out, err := run(t, "opt", path, "--bindings")
	require.NoError(t, err)
	require.Equal(t, `select-query
 └── map left
      ├── table customer AS c
      └── project: c.name, p.price
           └── null-if-empty
                └── select: p.name = c.name
                     └── table product AS p optional
bindings:
slot 0 offset 0: c
`, out)

	out, err = run(t, "opt", path, "--rules=NestedLoopMapper")
	require.NoError(t, err)
	require.Equal(t, `select-query
 └── project: c.name, p.price
      └── map left
           ├── table customer AS c
           └── null-if-empty
                └── select: p.name = c.name
                     └── table product AS p optional
`, out)

	out, err = run(t, "opt", path, "--steps")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "select-query\n └── project: c.name, p.price\n"))
	require.Contains(t, out, "--- before NestedLoopMapper\n")
	require.Contains(t, out, "--- before MapFolder\n")
}

func TestOptErrors(t *testing.T) {
	path := writeScenario(t, leftJoin)

	_, err := run(t, "opt", path, "--rules=Memoizer")
	require.EqualError(t, err, `unknown rule "Memoizer"`)

	_, err = run(t, "opt", path, "--set", "noSuchSetting=1")
	require.EqualError(t, err, `unknown setting "noSuchSetting"`)

	_, err = run(t, "opt", path, "--set", "groupJoinStrategy=diagonal")
	require.Error(t, err)

	full := writeScenario(t, strings.Replace(leftJoin, "kind: left", "kind: full", 1))
	_, err = run(t, "opt", full)
	require.Error(t, err)
	var buf bytes.Buffer
	printError(&buf, err)
	require.Contains(t, buf.String(), "ERROR: FULL JOIN cannot be evaluated as a nested loop\nSQLSTATE: 0A000\n")
	require.Contains(t, buf.String(), "DETAIL: join full: p.name = c.name")
}

func TestBuildAndSettings(t *testing.T) {
	out, err := run(t, "build", writeScenario(t, leftJoin))
	require.NoError(t, err)
	require.Equal(t, `select-query
 └── project: c.name, p.price
      └── join left: p.name = c.name
           ├── table customer AS c
           └── table product AS p optional
`, out)

	// Unmapped references above an Aggregate are accepted before rewriting.
	out, err = run(t, "build", writeScenario(t, `
plan:
  op: select-query
  input:
    op: sort
    order_by: [region]
    input:
      op: aggregate
      group_by: [region]
      aggs: [count(*)]
      input: {op: table, table: customer}
`))
	require.NoError(t, err)
	require.Equal(t, `select-query
 └── sort: customer.region
      └── aggregate group-by=(customer.region) aggs=(count(*))
           └── table customer
`, out)

	out, err = run(t, "settings")
	require.NoError(t, err)
	for _, key := range []string{"foldConstants", "groupJoinStrategy", "implicitAggregate"} {
		require.Contains(t, out, key)
	}
}
