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
	"sort"

	"github.com/cockroachdb/planrw/pkg/sql/opt/cat"
)

// TableGroup is the query-level counterpart of a catalog table group: the
// table sources of one query that were found to be joined through their
// declared group keys. Membership is transitive; recognizing a group join
// between two TableGroups merges them.
type TableGroup struct {
	Group  cat.Group
	Tables []*TableSource
	Joins  []*TableGroupJoin
}

// NewTableGroup returns a group containing only t and makes it t's group.
func NewTableGroup(t *TableSource) *TableGroup {
	g := &TableGroup{Group: t.Table.Group(), Tables: []*TableSource{t}}
	t.Group = g
	return g
}

// Merge moves the members and joins of other into g.
func (g *TableGroup) Merge(other *TableGroup) {
	if g == other {
		return
	}
	for _, t := range other.Tables {
		t.Group = g
	}
	g.Tables = append(g.Tables, other.Tables...)
	g.Joins = append(g.Joins, other.Joins...)
	other.Tables = nil
	other.Joins = nil
}

// Root returns the member with the lowest group ordinal, breaking ties by
// NodeID.
func (g *TableGroup) Root() *TableSource {
	var root *TableSource
	for _, t := range g.Tables {
		if root == nil || TableLess(t, root) {
			root = t
		}
	}
	return root
}

// SortedTables returns the members ordered by group ordinal, then NodeID.
func (g *TableGroup) SortedTables() []*TableSource {
	res := append([]*TableSource(nil), g.Tables...)
	sort.SliceStable(res, func(i, j int) bool { return TableLess(res[i], res[j]) })
	return res
}

// TableLess orders table sources by catalog group name, then by group
// ordinal, then by NodeID.
func TableLess(a, b *TableSource) bool {
	ga, gb := groupName(a.Table), groupName(b.Table)
	if ga != gb {
		return ga < gb
	}
	if oa, ob := a.Table.GroupOrdinal(), b.Table.GroupOrdinal(); oa != ob {
		return oa < ob
	}
	return a.ID() < b.ID()
}

func groupName(t cat.Table) string {
	if g := t.Group(); g != nil {
		return g.Name()
	}
	return t.Name()
}

// TableGroupJoin is a join in the query that was recognized as matching the
// declared relationship between a child table and its group parent.
type TableGroupJoin struct {
	Parent, Child *TableSource

	// Conditions are the comparisons equating the child's key columns to the
	// parent's, one per key column. They are tagged: rules that consume
	// them treat them as satisfied by the group structure.
	Conditions []*ComparisonExpr

	// Join is the join whose conditions contained the comparison, or nil if
	// they were found in an enclosing filter.
	Join *Join

	GroupJoin cat.GroupJoin
}

// GroupJoinNode is one member of a GroupJoinTree.
type GroupJoinNode struct {
	Table    *TableSource
	Parent   *GroupJoinNode
	Children []*GroupJoinNode

	// Kind is the way the node is joined to its parent: INNER, LEFT (the
	// node is optional) or RIGHT (the parent is optional).
	Kind JoinKind

	// Required mirrors Table.Required.
	Required bool

	// Join is the recognized group join to the parent; nil for the root.
	Join *TableGroupJoin

	// Conditions are extra predicates evaluated when joining this node to
	// its parent.
	Conditions []ScalarExpr
}

// AddChild links c under n, keeping the children ordered by group ordinal.
func (n *GroupJoinNode) AddChild(c *GroupJoinNode) {
	c.Parent = n
	n.Children = append(n.Children, c)
	sort.SliceStable(n.Children, func(i, j int) bool {
		return TableLess(n.Children[i].Table, n.Children[j].Table)
	})
}

// Walk calls fn for n and every descendant, in depth-first pre-order.
func (n *GroupJoinNode) Walk(fn func(*GroupJoinNode)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Find returns the node of the subtree whose table is t, or nil.
func (n *GroupJoinNode) Find(t *TableSource) *GroupJoinNode {
	var res *GroupJoinNode
	n.Walk(func(gn *GroupJoinNode) {
		if gn.Table == t {
			res = gn
		}
	})
	return res
}

// Tables returns the tables of the subtree in depth-first pre-order.
func (n *GroupJoinNode) Tables() []*TableSource {
	var res []*TableSource
	n.Walk(func(gn *GroupJoinNode) { res = append(res, gn.Table) })
	return res
}
