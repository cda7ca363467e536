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

package testcat

import (
	"testing"

	"github.com/cockroachdb/planrw/pkg/sql/opt/cat"
	"github.com/cockroachdb/planrw/pkg/sql/pgwire/pgcode"
	"github.com/cockroachdb/planrw/pkg/sql/pgwire/pgerror"
	"github.com/cockroachdb/planrw/pkg/sql/types"
	"github.com/stretchr/testify/require"
)

func TestSampleGroups(t *testing.T) {
	tc := NewSample()
	require.Equal(t, 2, tc.GroupCount())

	g := tc.Group(0)
	require.Equal(t, "customer", g.Name())
	var names []string
	for i := 0; i < g.TableCount(); i++ {
		names = append(names, g.Table(i).Name())
		require.Equal(t, i, g.Table(i).GroupOrdinal())
	}
	require.Equal(t, []string{"customer", "order", "item", "address"}, names)
	require.Equal(t, "product", tc.Group(1).Name())
	require.False(t, cat.IsMultiTableGroup(tc.Table("product")))
	require.True(t, cat.IsMultiTableGroup(tc.Table("item")))

	item := tc.Table("item")
	pj := item.ParentJoin()
	require.NotNil(t, pj)
	require.Equal(t, "order", pj.Parent().Name())
	require.Equal(t, 1, pj.ColumnCount())
	require.Equal(t, item.ColumnOrdinal("order_id"), pj.ChildColumn(0))
	require.Equal(t, 0, pj.ParentColumn(0))
	require.Nil(t, tc.Table("customer").ParentJoin())

	cust, err := tc.ResolveTable("customer")
	require.NoError(t, err)
	require.True(t, cust.PrimaryIndex().IsPrimary())
	require.Equal(t, 3, cust.IndexCount())
	require.True(t, cust.Index(1).IsUnique())
	require.False(t, cust.Column(0).Nullable)
	require.Same(t, types.Int, cust.Column(0).Type)

	_, err = tc.ResolveTable("nope")
	require.Equal(t, pgcode.UndefinedTable, pgerror.GetPGCode(err))
}

func TestSchemaErrors(t *testing.T) {
	testCases := []struct {
		yaml string
		err  string
	}{
		{
			yaml: `
tables:
  - name: a
    columns: [{name: x, type: blob}]
`,
			err: `table "a": unknown type "blob" for column "x"`,
		},
		{
			yaml: `
tables:
  - name: a
    columns: [{name: x, type: int}]
    primary_key: [y]
`,
			err: `index "primary" on table "a": no column named "y"`,
		},
		{
			yaml: `
tables:
  - name: a
    columns: [{name: x, type: int}]
    parent: b
    parent_key: [x]
`,
			err: `table "a": no parent table named "b"`,
		},
		{
			yaml: `
tables:
  - name: p
    columns: [{name: x, type: int}, {name: y, type: int}]
    primary_key: [x, y]
  - name: c
    columns: [{name: x, type: int}]
    parent: p
    parent_key: [x]
`,
			err: `table "c": parent key has 1 columns, parent primary key has 2`,
		},
		{
			yaml: `
tables:
  - name: a
    columns: [{name: x, type: int}]
    primary_key: [x]
    parent: b
    parent_key: [x]
  - name: b
    columns: [{name: x, type: int}]
    primary_key: [x]
    parent: a
    parent_key: [x]
`,
			err: `table "a": parent chain forms a cycle`,
		},
	}
	for _, tc := range testCases {
		_, err := LoadYAML([]byte(tc.yaml))
		require.EqualError(t, err, tc.err)
	}

	_, err := LoadYAML([]byte("tables: [{name: a, bogus: 1}]"))
	require.Error(t, err)
}
