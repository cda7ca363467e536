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

package plan

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/planrw/pkg/sql/opt/cat"
	"github.com/cockroachdb/planrw/pkg/sql/types"
)

// TableSource is a reference to a catalog table.
type TableSource struct {
	nodeBase
	leaf
	noExprs

	Table cat.Table
	Alias string

	// Required is true if the table is present in every result row, i.e. it
	// is not only reachable through the optional side of an outer join.
	Required bool

	// Group is the query-level table group the table belongs to. It is set by
	// group join recognition; tables joined through recognized group joins
	// share one TableGroup.
	Group *TableGroup

	// ParentJoin is the recognized join to the table's group parent, if any.
	ParentJoin *TableGroupJoin

	// AccessPath is the index chosen to read the table.
	AccessPath *AccessPath
}

var _ ColumnSource = &TableSource{}

// Op is part of the Node interface.
func (*TableSource) Op() Operator { return TableSourceOp }

// ColumnCount is part of the ColumnSource interface.
func (t *TableSource) ColumnCount() int { return t.Table.ColumnCount() }

// ColumnType is part of the ColumnSource interface.
func (t *TableSource) ColumnType(i int) *types.T { return t.Table.Column(i).Type }

// ColumnName is part of the ColumnSource interface.
func (t *TableSource) ColumnName(i int) string { return t.Table.Column(i).Name }

// SourceName is part of the ColumnSource interface.
func (t *TableSource) SourceName() string { return t.Alias }

// AccessPath is the index chosen to read a table, together with the
// conditions that bind a prefix of its columns by equality.
type AccessPath struct {
	Index cat.Index
	// EqualityConds[i] binds the ith index column.
	EqualityConds []ScalarExpr
}

// ValuesColumn describes one column of a Values node.
type ValuesColumn struct {
	Name string
	Type *types.T
}

// Values is a literal row set.
type Values struct {
	nodeBase
	leaf

	Columns []ValuesColumn
	Rows    [][]ScalarExpr
}

var _ ColumnSource = &Values{}

// Op is part of the Node interface.
func (*Values) Op() Operator { return ValuesOp }

// ExprCount is part of the Node interface.
func (v *Values) ExprCount() int { return len(v.Rows) * len(v.Columns) }

// Expr is part of the Node interface.
func (v *Values) Expr(i int) ScalarExpr {
	return v.Rows[i/len(v.Columns)][i%len(v.Columns)]
}

// SetExpr is part of the Node interface.
func (v *Values) SetExpr(i int, e ScalarExpr) {
	v.Rows[i/len(v.Columns)][i%len(v.Columns)] = e
}

// ColumnCount is part of the ColumnSource interface.
func (v *Values) ColumnCount() int { return len(v.Columns) }

// ColumnType is part of the ColumnSource interface.
func (v *Values) ColumnType(i int) *types.T { return v.Columns[i].Type }

// ColumnName is part of the ColumnSource interface.
func (v *Values) ColumnName(i int) string { return v.Columns[i].Name }

// SourceName is part of the ColumnSource interface.
func (v *Values) SourceName() string { return "values" }

// GroupJoinTree holds the member tables of one table group, arranged as a
// tree that follows the declared parent/child keys. Its inputs are the member
// TableSources in depth-first order of the tree.
type GroupJoinTree struct {
	nodeBase
	condList

	Group *TableGroup
	Root  *GroupJoinNode

	members []*TableSource
}

// Op is part of the Node interface.
func (*GroupJoinTree) Op() Operator { return GroupJoinTreeOp }

// ChildCount is part of the Node interface.
func (g *GroupJoinTree) ChildCount() int { return len(g.members) }

// Child is part of the Node interface.
func (g *GroupJoinTree) Child(i int) Node { return g.members[i] }

func (g *GroupJoinTree) setChild(i int, n Node) {
	t, ok := n.(*TableSource)
	if !ok {
		panic(errors.AssertionFailedf("group join tree member must be a table, not %s", n.Op()))
	}
	old := g.members[i]
	g.members[i] = t
	g.Root.Walk(func(gn *GroupJoinNode) {
		if gn.Table == old {
			gn.Table = t
		}
	})
}

// Members returns the member tables in depth-first order.
func (g *GroupJoinTree) Members() []*TableSource { return g.members }

// exprSlots lists the tree-level conditions followed by the conditions of
// each node, in depth-first order.
func (g *GroupJoinTree) exprSlots() []*ScalarExpr {
	var slots []*ScalarExpr
	for i := range g.Conditions {
		slots = append(slots, &g.Conditions[i])
	}
	g.Root.Walk(func(gn *GroupJoinNode) {
		for i := range gn.Conditions {
			slots = append(slots, &gn.Conditions[i])
		}
	})
	return slots
}

// ExprCount is part of the Node interface.
func (g *GroupJoinTree) ExprCount() int { return len(g.exprSlots()) }

// Expr is part of the Node interface.
func (g *GroupJoinTree) Expr(i int) ScalarExpr { return *g.exprSlots()[i] }

// SetExpr is part of the Node interface.
func (g *GroupJoinTree) SetExpr(i int, e ScalarExpr) { *g.exprSlots()[i] = e }

// TableJoins collects the joins among the tables of one table group. Its
// input is the join tree of the members; Conditions hold the predicates that
// reference only members.
type TableJoins struct {
	nodeBase
	unary
	condList

	Group *TableGroup
}

// Op is part of the Node interface.
func (*TableJoins) Op() Operator { return TableJoinsOp }

// Select filters its input.
type Select struct {
	nodeBase
	unary
	condList
}

// Op is part of the Node interface.
func (*Select) Op() Operator { return SelectOp }

// Project computes one output column per expression.
type Project struct {
	nodeBase
	unary

	Exprs []ScalarExpr
	Names []string
}

var _ ColumnSource = &Project{}

// Op is part of the Node interface.
func (*Project) Op() Operator { return ProjectOp }

// ExprCount is part of the Node interface.
func (p *Project) ExprCount() int { return len(p.Exprs) }

// Expr is part of the Node interface.
func (p *Project) Expr(i int) ScalarExpr { return p.Exprs[i] }

// SetExpr is part of the Node interface.
func (p *Project) SetExpr(i int, e ScalarExpr) { p.Exprs[i] = e }

// ColumnCount is part of the ColumnSource interface.
func (p *Project) ColumnCount() int { return len(p.Exprs) }

// ColumnType is part of the ColumnSource interface.
func (p *Project) ColumnType(i int) *types.T { return p.Exprs[i].Type() }

// ColumnName is part of the ColumnSource interface.
func (p *Project) ColumnName(i int) string {
	if i < len(p.Names) && p.Names[i] != "" {
		return p.Names[i]
	}
	return fmt.Sprintf("column%d", i+1)
}

// SourceName is part of the ColumnSource interface.
func (p *Project) SourceName() string { return "project" }

// SortKey is one ordering column of a Sort.
type SortKey struct {
	Expr       ScalarExpr
	Descending bool
}

// Sort orders its input.
type Sort struct {
	nodeBase
	unary

	Keys []SortKey
}

// Op is part of the Node interface.
func (*Sort) Op() Operator { return SortOp }

// ExprCount is part of the Node interface.
func (s *Sort) ExprCount() int { return len(s.Keys) }

// Expr is part of the Node interface.
func (s *Sort) Expr(i int) ScalarExpr { return s.Keys[i].Expr }

// SetExpr is part of the Node interface.
func (s *Sort) SetExpr(i int, e ScalarExpr) { s.Keys[i].Expr = e }

// Limit returns at most Count rows after skipping Offset rows. A negative
// Count means no limit.
type Limit struct {
	nodeBase
	unary
	noExprs

	Count  int64
	Offset int64
}

// Op is part of the Node interface.
func (*Limit) Op() Operator { return LimitOp }

// Distinct removes duplicate rows.
type Distinct struct {
	nodeBase
	unary
	noExprs
}

// Op is part of the Node interface.
func (*Distinct) Op() Operator { return DistinctOp }

// Aggregate groups its input by GroupBy and computes Aggregates for each
// group. Its output columns are the group keys followed by the aggregates.
type Aggregate struct {
	nodeBase
	unary

	GroupBy    []ScalarExpr
	Aggregates []*AggregateExpr
}

var _ ColumnSource = &Aggregate{}

// Op is part of the Node interface.
func (*Aggregate) Op() Operator { return AggregateOp }

// ExprCount is part of the Node interface.
func (a *Aggregate) ExprCount() int { return len(a.GroupBy) + len(a.Aggregates) }

// Expr is part of the Node interface.
func (a *Aggregate) Expr(i int) ScalarExpr {
	if i < len(a.GroupBy) {
		return a.GroupBy[i]
	}
	return a.Aggregates[i-len(a.GroupBy)]
}

// SetExpr is part of the Node interface.
func (a *Aggregate) SetExpr(i int, e ScalarExpr) {
	if i < len(a.GroupBy) {
		a.GroupBy[i] = e
		return
	}
	agg, ok := e.(*AggregateExpr)
	if !ok {
		panic(errors.AssertionFailedf("aggregate slot requires an aggregate call, not %T", e))
	}
	a.Aggregates[i-len(a.GroupBy)] = agg
}

// AddAggregate appends an aggregate call and returns its output position.
func (a *Aggregate) AddAggregate(agg *AggregateExpr) int {
	a.Aggregates = append(a.Aggregates, agg)
	return len(a.GroupBy) + len(a.Aggregates) - 1
}

// AddGroupBy inserts a new group key after the existing ones and returns its
// output position. Existing references to aggregate outputs shift by one;
// the caller must only do this before any reference to them exists.
func (a *Aggregate) AddGroupBy(e ScalarExpr) int {
	a.GroupBy = append(a.GroupBy, e)
	return len(a.GroupBy) - 1
}

// ColumnCount is part of the ColumnSource interface.
func (a *Aggregate) ColumnCount() int { return len(a.GroupBy) + len(a.Aggregates) }

// ColumnType is part of the ColumnSource interface.
func (a *Aggregate) ColumnType(i int) *types.T { return a.Expr(i).Type() }

// ColumnName is part of the ColumnSource interface.
func (a *Aggregate) ColumnName(i int) string { return ExprString(a.Expr(i)) }

// SourceName is part of the ColumnSource interface.
func (a *Aggregate) SourceName() string { return "agg" }

// NullIfEmpty passes its input through, or produces one all-NULL row if the
// input is empty.
type NullIfEmpty struct {
	nodeBase
	unary
	noExprs
}

// Op is part of the Node interface.
func (*NullIfEmpty) Op() Operator { return NullIfEmptyOp }

// OnlyIfEmpty produces one row if its input is empty and none otherwise.
type OnlyIfEmpty struct {
	nodeBase
	unary
	noExprs
}

// Op is part of the Node interface.
func (*OnlyIfEmpty) Op() Operator { return OnlyIfEmptyOp }

// Join joins its left and right inputs.
type Join struct {
	nodeBase
	binary
	condList

	Kind JoinKind

	// GroupJoin is the recognized group join among the conditions, if any.
	GroupJoin *TableGroupJoin
}

// Op is part of the Node interface.
func (*Join) Op() Operator { return JoinOp }

// Left returns the left input.
func (j *Join) Left() Node { return j.left }

// Right returns the right input.
func (j *Join) Right() Node { return j.right }

// MapJoin evaluates Inner once for every row of Outer, with the outer row
// bound. Its output rows are the rows of the inner side; the join kind is
// expressed by wrappers on the inner side.
type MapJoin struct {
	nodeBase
	binary
	noExprs

	// Kind is the kind of the join the map was built from.
	Kind JoinKind
}

// Op is part of the Node interface.
func (*MapJoin) Op() Operator { return MapJoinOp }

// Outer returns the outer input.
func (m *MapJoin) Outer() Node { return m.left }

// Inner returns the inner input.
func (m *MapJoin) Inner() Node { return m.right }

// SelectQuery is the root of a SELECT statement.
type SelectQuery struct {
	nodeBase
	unary
	noExprs
}

// Op is part of the Node interface.
func (*SelectQuery) Op() Operator { return SelectQueryOp }

// InsertStatement inserts the rows of its input into Target.
type InsertStatement struct {
	nodeBase
	unary
	noExprs

	Target cat.Table
}

// Op is part of the Node interface.
func (*InsertStatement) Op() Operator { return InsertStatementOp }

// UpdateStatement updates the Target rows produced by its input, setting
// column SetColumns[i] to Values[i].
type UpdateStatement struct {
	nodeBase
	unary

	Target     cat.Table
	SetColumns []int
	Values     []ScalarExpr
}

// Op is part of the Node interface.
func (*UpdateStatement) Op() Operator { return UpdateStatementOp }

// ExprCount is part of the Node interface.
func (u *UpdateStatement) ExprCount() int { return len(u.Values) }

// Expr is part of the Node interface.
func (u *UpdateStatement) Expr(i int) ScalarExpr { return u.Values[i] }

// SetExpr is part of the Node interface.
func (u *UpdateStatement) SetExpr(i int, e ScalarExpr) { u.Values[i] = e }

// DeleteStatement deletes the Target rows produced by its input.
type DeleteStatement struct {
	nodeBase
	unary
	noExprs

	Target cat.Table
}

// Op is part of the Node interface.
func (*DeleteStatement) Op() Operator { return DeleteStatementOp }

// Subquery roots a nested plan. It has no parent; it is reachable only
// through the SubqueryExpr that references it.
type Subquery struct {
	nodeBase
	unary
	noExprs
}

// Op is part of the Node interface.
func (*Subquery) Op() Operator { return SubqueryOp }
