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

package plan_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/planrw/pkg/sql/opt/cat"
	"github.com/cockroachdb/planrw/pkg/sql/opt/plan"
	"github.com/cockroachdb/planrw/pkg/sql/opt/testutils/testcat"
	"github.com/cockroachdb/planrw/pkg/sql/types"
	"github.com/stretchr/testify/require"
)

func col(src plan.ColumnSource, name string) *plan.ColumnExpr {
	for i := 0; i < src.ColumnCount(); i++ {
		if src.ColumnName(i) == name {
			return plan.NewColumnExpr(src, i)
		}
	}
	panic(errors.AssertionFailedf("no column %s in %s", name, src.SourceName()))
}

func eq(l, r plan.ScalarExpr) *plan.ComparisonExpr {
	return &plan.ComparisonExpr{Op: plan.EQ, Left: l, Right: r}
}

func plus(l, r plan.ScalarExpr) *plan.FunctionExpr {
	return &plan.FunctionExpr{Name: "plus", Args: []plan.ScalarExpr{l, r}, Typ: types.Int}
}

type fixture struct {
	cat  *testcat.Catalog
	p    *plan.Plan
	cust *plan.TableSource
	ord  *plan.TableSource
	join *plan.Join
	sel  *plan.Select
	proj *plan.Project
}

// newFixture builds
//
//	SELECT customer.name, order.total
//	FROM customer LEFT JOIN order ON order.customer_id = customer.id
//	WHERE customer.region = 'west'
func newFixture() *fixture {
	f := &fixture{cat: testcat.NewSample(), p: plan.New(0)}
	f.cust = f.p.ConstructTableSource(f.cat.Table("customer"), "")
	f.ord = f.p.ConstructTableSource(f.cat.Table("order"), "")
	f.join = f.p.ConstructJoin(plan.LeftJoin, f.cust, f.ord,
		eq(col(f.ord, "customer_id"), col(f.cust, "id")))
	f.sel = f.p.ConstructSelect(f.join, eq(col(f.cust, "region"), plan.NewStringConst("west")))
	f.proj = f.p.ConstructProject(f.sel,
		[]plan.ScalarExpr{col(f.cust, "name"), col(f.ord, "total")}, nil)
	f.p.SetRoot(f.p.ConstructSelectQuery(f.proj))
	return f
}

func TestConstruct(t *testing.T) {
	f := newFixture()
	require.NoError(t, plan.CheckPlan(f.p))
	require.Same(t, f.join, f.cust.Parent())
	require.Same(t, f.sel, f.join.Parent())
	require.Nil(t, f.p.Root().Parent())
	require.True(t, f.cust.Required)
	require.False(t, f.ord.Required)
	require.NotEqual(t, f.cust.ID(), f.ord.ID())
	require.True(t, plan.IsAncestor(f.sel, f.ord))
	require.False(t, plan.IsAncestor(f.ord, f.sel))
	require.Equal(t, 1, plan.ChildIndex(f.join, f.ord))
	require.Equal(t, "column1", f.proj.ColumnName(0))
	require.Same(t, types.Decimal, f.proj.ColumnType(1))
	require.Equal(t, 2, f.sel.ExprCount()+f.join.ExprCount())
}

func TestFormat(t *testing.T) {
	f := newFixture()
	expected := "select-query\n" +
		" └── project: customer.name, order.total\n" +
		"      └── select: customer.region = 'west'\n" +
		"           └── join left: order.customer_id = customer.id\n" +
		"                ├── table customer\n" +
		"                └── table order optional\n"
	require.Equal(t, expected, f.p.String())
}

func TestReplace(t *testing.T) {
	f := newFixture()

	// Remove the filter by replacing it with its input.
	f.p.Replace(f.sel, f.join)
	require.Same(t, f.proj, f.join.Parent())
	require.Same(t, f.join, f.proj.Input())
	require.Nil(t, f.sel.Parent())

	// The filter referenced only sources still in the tree.
	require.NoError(t, plan.CheckPlan(f.p))

	// Reinsert a filter above the join.
	sel := f.p.InsertAbove(f.join, func(input plan.Node) plan.Node {
		return f.p.ConstructSelect(input, eq(col(f.ord, "status"), plan.NewStringConst("open")))
	}).(*plan.Select)
	require.Same(t, f.proj, sel.Parent())
	require.Same(t, sel, f.join.Parent())
	require.NoError(t, plan.CheckPlan(f.p))

	// Replacing the root updates the plan.
	root := f.p.Root()
	f.p.Replace(root, f.proj)
	require.Same(t, f.proj, f.p.Root())
	require.Nil(t, f.proj.Parent())
	require.NoError(t, plan.CheckPlan(f.p))
}

func TestReplaceAssertions(t *testing.T) {
	f := newFixture()

	// A detached node cannot be replaced.
	other := f.p.ConstructTableSource(f.cat.Table("item"), "")
	require.Panics(t, func() { f.p.Replace(other, f.p.ConstructTableSource(f.cat.Table("item"), "")) })

	// An ancestor cannot take the place of one of its descendants.
	require.Panics(t, func() { f.p.Replace(f.cust, f.sel) })

	// A node attached elsewhere cannot take another node's place.
	require.Panics(t, func() { f.p.Replace(f.cust, f.ord) })

	// Constructing over an attached node fails.
	require.Panics(t, func() { f.p.ConstructDistinct(f.join) })
}

func TestSetChild(t *testing.T) {
	f := newFixture()
	item := f.p.ConstructTableSource(f.cat.Table("item"), "")
	f.p.SetChild(f.join, 1, item)
	require.Same(t, item, f.join.Right())
	require.Same(t, f.join, item.Parent())
	require.Nil(t, f.ord.Parent())

	// The plan still references order, which is no longer in the tree.
	err := plan.CheckPlan(f.p)
	require.Error(t, err)
	require.True(t, errors.IsAssertionFailure(err))
	require.Contains(t, err.Error(), "order.total which is not visible")
}

func TestCheckPlan(t *testing.T) {
	// Semi joins do not output the right side.
	tc := testcat.NewSample()
	p := plan.New(0)
	c := p.ConstructTableSource(tc.Table("customer"), "")
	a := p.ConstructTableSource(tc.Table("address"), "")
	semi := p.ConstructJoin(plan.SemiJoin, c, a, eq(col(a, "customer_id"), col(c, "id")))
	p.SetRoot(p.ConstructSelectQuery(
		p.ConstructProject(semi, []plan.ScalarExpr{col(c, "name"), col(a, "city")}, nil),
	))
	err := plan.CheckPlan(p)
	require.Error(t, err)
	require.Contains(t, err.Error(), "address.city which is not visible")
	require.NoError(t, plan.CheckTree(p))

	// A map's inner side sees its outer side; its output does not include it.
	f := newFixture()
	outer := f.p.ConstructTableSource(f.cat.Table("product"), "")
	inner := f.p.ConstructSelect(
		f.p.ConstructTableSource(f.cat.Table("item"), ""),
		eq(col(outer, "sku"), plan.NewStringConst("x")),
	)
	m := f.p.ConstructMapJoin(plan.InnerJoin, outer, inner)
	f.p.Replace(f.proj, f.p.ConstructProject(m, []plan.ScalarExpr{col(outer, "name")}, nil))
	err = plan.CheckPlan(f.p)
	require.Error(t, err)
	require.Contains(t, err.Error(), "project (node")
	require.Contains(t, err.Error(), "product.name which is not visible")

	// Out-of-range column positions are reported.
	f = newFixture()
	f.proj.Exprs[0] = plan.NewColumnExpr(f.cust, 17)
	require.Error(t, plan.CheckPlan(f.p))
	require.Error(t, plan.CheckTree(f.p))
}

func TestCheckTree(t *testing.T) {
	// A Sort above an Aggregate may name a column of the aggregated table
	// until the references are mapped onto the Aggregate.
	tc := testcat.NewSample()
	p := plan.New(0)
	c := p.ConstructTableSource(tc.Table("customer"), "")
	agg := p.ConstructAggregate(c, []plan.ScalarExpr{col(c, "region")}, nil)
	s := p.ConstructSort(agg, plan.SortKey{Expr: col(c, "region")})
	p.SetRoot(p.ConstructSelectQuery(s))
	require.NoError(t, plan.CheckTree(p))
	err := plan.CheckPlan(p)
	require.Error(t, err)
	require.Contains(t, err.Error(), "customer.region which is not visible")

	// Parent pointers are still verified.
	f := newFixture()
	item := f.p.ConstructTableSource(f.cat.Table("item"), "")
	f.p.SetChild(f.join, 1, item)
	require.NoError(t, plan.CheckTree(f.p))
	require.Same(t, f.join, item.Parent())
}

func TestWalk(t *testing.T) {
	f := newFixture()
	var ops []string
	plan.Walk(f.p.Root(), plan.PreOrder(func(n plan.Node) bool {
		ops = append(ops, n.Op().String())
		return n.Op() != plan.JoinOp
	}))
	require.Equal(t, []string{"select-query", "project", "select", "join"}, ops)

	ops = nil
	plan.Walk(f.p.Root(), plan.PostOrder(func(n plan.Node) {
		ops = append(ops, n.Op().String())
	}))
	require.Equal(t, []string{"table", "table", "join", "select", "project", "select-query"}, ops)

	// VisitLeave returning false stops the walk.
	ops = nil
	completed := plan.Walk(f.p.Root(), stopAt{op: plan.SelectOp, ops: &ops})
	require.False(t, completed)
	require.Equal(t, []string{"table", "table", "join", "select"}, ops)
}

type stopAt struct {
	op  plan.Operator
	ops *[]string
}

func (s stopAt) VisitEnter(plan.Node) bool { return true }

func (s stopAt) VisitLeave(n plan.Node) bool {
	*s.ops = append(*s.ops, n.Op().String())
	return n.Op() != s.op
}

func (s stopAt) Visit(n plan.Node) bool {
	*s.ops = append(*s.ops, n.Op().String())
	return true
}

func TestWalkWithExprs(t *testing.T) {
	f := newFixture()
	sub := f.p.ConstructSubquery(f.p.ConstructSelect(
		f.p.ConstructTableSource(f.cat.Table("address"), ""),
		eq(col(f.cust, "id"), plan.NewIntConst(1)),
	))
	f.sel.AddCondition(&plan.SubqueryExpr{Kind: plan.ExistsSubquery, Subquery: sub, Typ: types.Bool})

	var tables []string
	var cols []string
	plan.WalkWithExprs(f.p.Root(),
		plan.PreOrder(func(n plan.Node) bool {
			if ts, ok := n.(*plan.TableSource); ok {
				tables = append(tables, ts.Alias)
			}
			return true
		}),
		plan.ExprPreOrder(func(e plan.ScalarExpr) bool {
			if c, ok := e.(*plan.ColumnExpr); ok {
				cols = append(cols, plan.ExprString(c))
			}
			return true
		}),
	)
	require.Equal(t, []string{"address", "customer", "order"}, tables)
	require.Equal(t, []string{
		"customer.name", "order.total",
		"customer.region", "customer.id",
		"order.customer_id", "customer.id",
	}, cols)

	// Correlated references escape the subquery.
	refs := plan.ReferencedSources(f.sel.Conditions[1])
	require.Equal(t, []plan.NodeID{f.cust.ID()}, refs.IDs())
	require.NoError(t, plan.CheckPlan(f.p))
}

func TestRewriteExpr(t *testing.T) {
	f := newFixture()
	x := col(f.ord, "customer_id")

	// Top-down: a replaced subtree is not descended into.
	var visited []string
	e := plus(plus(x, plan.NewIntConst(1)), plan.NewIntConst(2))
	res := plan.RewriteExpr(e, plan.TopDown(func(e plan.ScalarExpr) plan.ScalarExpr {
		visited = append(visited, plan.ExprString(e))
		if fn, ok := e.(*plan.FunctionExpr); ok && plan.ExprString(fn) == "(order.customer_id + 1)" {
			return plan.NewIntConst(7)
		}
		return e
	}))
	require.Same(t, e, res)
	require.Equal(t, "(7 + 2)", plan.ExprString(res))
	require.Equal(t, []string{"((order.customer_id + 1) + 2)", "(order.customer_id + 1)", "2"}, visited)

	// Bottom-up: operands are replaced before their parent is visited.
	visited = nil
	e = plus(plus(x, plan.NewIntConst(1)), plan.NewIntConst(2))
	res = plan.RewriteExpr(e, plan.BottomUp(func(e plan.ScalarExpr) plan.ScalarExpr {
		visited = append(visited, plan.ExprString(e))
		if _, ok := e.(*plan.ColumnExpr); ok {
			return plan.NewIntConst(5)
		}
		return e
	}))
	require.Equal(t, "((5 + 1) + 2)", plan.ExprString(res))
	require.Equal(t, []string{
		"order.customer_id", "1", "(5 + 1)", "2", "((5 + 1) + 2)",
	}, visited)

	// Whole-plan rewrite reaches every slot.
	n := 0
	plan.RewritePlanExprs(f.p.Root(), plan.TopDown(func(e plan.ScalarExpr) plan.ScalarExpr {
		if _, ok := e.(*plan.ColumnExpr); ok {
			n++
		}
		return e
	}))
	require.Equal(t, 5, n)
}

func TestFingerprint(t *testing.T) {
	f := newFixture()
	x := col(f.ord, "customer_id")
	a := plus(x, plan.NewIntConst(1))
	b := plus(col(f.ord, "customer_id"), plan.NewIntConst(1))
	c := plus(x, plan.NewIntConst(2))
	d := plus(col(f.cust, "id"), plan.NewIntConst(1))
	require.Equal(t, plan.Fingerprint(a), plan.Fingerprint(b))
	require.NotEqual(t, plan.Fingerprint(a), plan.Fingerprint(c))
	require.NotEqual(t, plan.Fingerprint(a), plan.Fingerprint(d))

	// Constants of different types differ.
	one := plan.NewNumericConst(types.Decimal, plan.NewIntConst(1).Num)
	require.NotEqual(t, plan.Fingerprint(plan.NewIntConst(1)), plan.Fingerprint(one))
	require.Equal(t, plan.ExprString(plan.NewIntConst(1)), plan.ExprString(one))
}

func TestSourceSets(t *testing.T) {
	f := newFixture()
	out := plan.OutputSourceSet(f.sel)
	require.True(t, out.Contains(f.cust))
	require.True(t, out.Contains(f.ord))
	require.False(t, out.Contains(f.proj))
	require.Equal(t, 2, out.Len())

	s := plan.MakeSourceSet(f.cust)
	require.True(t, s.SubsetOf(out))
	c := s.Copy()
	c.Add(f.proj)
	require.False(t, s.Contains(f.proj))
	require.True(t, c.Intersects(out))
	c.IntersectionWith(out)
	require.Equal(t, []plan.NodeID{f.cust.ID()}, c.IDs())

	require.Equal(t, []*plan.TableSource{f.cust, f.ord}, plan.Tables(f.p.Root()))
	require.True(t, plan.IsConstant(plus(plan.NewIntConst(1), &plan.ParameterExpr{Typ: types.Int})))
	require.False(t, plan.IsConstant(plus(plan.NewIntConst(1), col(f.cust, "id"))))
}

func TestBindings(t *testing.T) {
	f := newFixture()
	b := f.p.Bindings()
	b.Bind(f.cust, 2, 0)
	b.Bind(f.ord, 2, f.cust.ColumnCount())
	slot, field, ok := b.Resolve(col(f.ord, "total"))
	require.True(t, ok)
	require.Equal(t, 2, slot)
	require.Equal(t, 5, field)
	_, _, ok = b.Resolve(col(f.proj, "column1"))
	require.False(t, ok)
	require.Equal(t, "slot 2 offset 0: customer\nslot 2 offset 3: order\n", b.String())
	b.Reset()
	require.Equal(t, 0, b.Len())
}

func TestCatalogHelpers(t *testing.T) {
	tc := testcat.NewSample()
	require.Equal(t, 1, cat.FindColumn(tc.Table("order"), "customer_id"))
}
