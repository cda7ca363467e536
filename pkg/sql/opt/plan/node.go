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

// Package plan contains the logical plan that the rewrite rules operate on:
// a mutable tree of nodes, each holding a pointer to its parent ("output"),
// together with the scalar expressions evaluated by each node.
//
// Nodes are created through the Construct methods of a Plan, which assign
// each node a stable NodeID and link children to their parent. Rules mutate
// the tree in place; Plan.Replace is the single primitive that moves a node
// into another node's position.
package plan

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/planrw/pkg/sql/types"
)

// NodeID identifies a node within its Plan. IDs are never reused.
type NodeID int32

// Node is a plan node. The set of node types is closed; every
// implementation lives in this package.
type Node interface {
	// Op returns the variant of the node.
	Op() Operator

	// ID returns the node's identifier within its plan.
	ID() NodeID

	// Parent returns the node consuming this node's output, or nil for a
	// root.
	Parent() Node

	// ChildCount returns the number of input nodes.
	ChildCount() int

	// Child returns the ith input, where i < ChildCount.
	Child(i int) Node

	// ExprCount returns the number of expression slots of the node.
	ExprCount() int

	// Expr returns the expression in slot i, where i < ExprCount.
	Expr(i int) ScalarExpr

	// SetExpr replaces the expression in slot i.
	SetExpr(i int, e ScalarExpr)

	base() *nodeBase
	setChild(i int, n Node)
}

// ColumnSource is a node that originates columns. Expressions reference
// columns by source and position, independent of where the source sits in
// the tree.
type ColumnSource interface {
	Node

	// ColumnCount returns the number of output columns.
	ColumnCount() int

	// ColumnType returns the type of the ith output column.
	ColumnType(i int) *types.T

	// ColumnName returns a display name for the ith output column.
	ColumnName(i int) string

	// SourceName returns a display name for the source.
	SourceName() string
}

type nodeBase struct {
	id     NodeID
	parent Node
}

func (b *nodeBase) ID() NodeID      { return b.id }
func (b *nodeBase) Parent() Node    { return b.parent }
func (b *nodeBase) base() *nodeBase { return b }

func childIndexPanic(n Node, i int) {
	panic(errors.AssertionFailedf("child index %d out of range for %s", i, n.Op()))
}

func exprIndexPanic(n Node, i int) {
	panic(errors.AssertionFailedf("expression index %d out of range for %s", i, n.Op()))
}

// leaf is embedded by nodes without inputs.
type leaf struct{}

func (leaf) ChildCount() int        { return 0 }
func (leaf) Child(i int) Node       { panic(errors.AssertionFailedf("leaf has no child %d", i)) }
func (leaf) setChild(i int, _ Node) { panic(errors.AssertionFailedf("leaf has no child %d", i)) }

// unary is embedded by nodes with a single input.
type unary struct {
	input Node
}

func (u *unary) ChildCount() int { return 1 }

// Input returns the node's only input.
func (u *unary) Input() Node { return u.input }

func (u *unary) Child(i int) Node {
	if i != 0 {
		panic(errors.AssertionFailedf("unary node has no child %d", i))
	}
	return u.input
}

func (u *unary) setChild(i int, n Node) {
	if i != 0 {
		panic(errors.AssertionFailedf("unary node has no child %d", i))
	}
	u.input = n
}

// binary is embedded by nodes with two inputs.
type binary struct {
	left, right Node
}

func (b *binary) ChildCount() int { return 2 }

func (b *binary) Child(i int) Node {
	switch i {
	case 0:
		return b.left
	case 1:
		return b.right
	}
	panic(errors.AssertionFailedf("binary node has no child %d", i))
}

func (b *binary) setChild(i int, n Node) {
	switch i {
	case 0:
		b.left = n
	case 1:
		b.right = n
	default:
		panic(errors.AssertionFailedf("binary node has no child %d", i))
	}
}

// noExprs is embedded by nodes without expression slots.
type noExprs struct{}

func (noExprs) ExprCount() int { return 0 }

func (noExprs) Expr(i int) ScalarExpr {
	panic(errors.AssertionFailedf("node has no expression %d", i))
}

func (noExprs) SetExpr(i int, _ ScalarExpr) {
	panic(errors.AssertionFailedf("node has no expression %d", i))
}

// condList is a list of predicates that must all be true. It provides the
// expression slots of the nodes that embed it.
type condList struct {
	Conditions []ScalarExpr
}

func (c *condList) ExprCount() int              { return len(c.Conditions) }
func (c *condList) Expr(i int) ScalarExpr       { return c.Conditions[i] }
func (c *condList) SetExpr(i int, e ScalarExpr) { c.Conditions[i] = e }

// ConditionList returns the predicates.
func (c *condList) ConditionList() []ScalarExpr { return c.Conditions }

// SetConditions replaces the predicates.
func (c *condList) SetConditions(conds []ScalarExpr) { c.Conditions = conds }

// ConditionHolder is implemented by the nodes that hold a list of predicates
// that must all be true: Select, Join, TableJoins and GroupJoinTree.
type ConditionHolder interface {
	Node
	ConditionList() []ScalarExpr
	SetConditions(conds []ScalarExpr)
	AddCondition(e ScalarExpr)
	RemoveCondition(e ScalarExpr) bool
}

var (
	_ ConditionHolder = &Select{}
	_ ConditionHolder = &Join{}
	_ ConditionHolder = &TableJoins{}
	_ ConditionHolder = &GroupJoinTree{}
)

// AddCondition appends a predicate.
func (c *condList) AddCondition(e ScalarExpr) {
	c.Conditions = append(c.Conditions, e)
}

// RemoveCondition removes the first occurrence of e, comparing by identity,
// and reports whether it was present.
func (c *condList) RemoveCondition(e ScalarExpr) bool {
	for i, cond := range c.Conditions {
		if cond == e {
			c.Conditions = append(c.Conditions[:i:i], c.Conditions[i+1:]...)
			return true
		}
	}
	return false
}
