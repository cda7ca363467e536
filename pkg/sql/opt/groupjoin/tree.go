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

package groupjoin

import (
	"github.com/cockroachdb/planrw/pkg/sql/opt/plan"
	"github.com/cockroachdb/planrw/pkg/util/log"
)

// assembleTree wraps the tables of multi-table groups in GroupJoinTrees and
// splices trees together bottom-up, returning the node now in n's position.
func (f *finder) assembleTree(n plan.Node) plan.Node {
	switch t := n.(type) {
	case *plan.TableSource:
		if t.Group == nil || len(t.Group.Tables) < 2 {
			return t
		}
		return f.p.InsertAbove(t, func(in plan.Node) plan.Node {
			root := &plan.GroupJoinNode{Table: t, Kind: plan.InnerJoin, Required: t.Required}
			return f.p.ConstructGroupJoinTree(t.Group, root)
		})

	case *plan.Join:
		f.assembleTree(t.Left())
		f.assembleTree(t.Right())
		return f.splice(t)
	}
	return n
}

// unwrapSingles replaces the trees of the island that were left with one
// member by their table, and returns the node now in n's position.
func (f *finder) unwrapSingles(n plan.Node) plan.Node {
	switch t := n.(type) {
	case *plan.GroupJoinTree:
		if len(t.Members()) > 1 {
			return t
		}
		tab, conds := t.Root.Table, t.Conditions
		f.p.Replace(t, tab)
		if len(conds) == 0 {
			return tab
		}
		return f.p.InsertAbove(tab, func(in plan.Node) plan.Node {
			return f.p.ConstructSelect(in, conds...)
		})

	case *plan.Join:
		f.unwrapSingles(t.Left())
		f.unwrapSingles(t.Right())
	}
	return n
}

// splice merges the tree on j's right into a tree on its left that holds the
// right tree's parent table. The parent tree is j's left input or, for INNER
// and LEFT joins, reachable from it through INNER joins. A LEFT join splices
// only if its other conditions reference only the two trees; a RIGHT join
// splices only directly and without other conditions. On success j is
// replaced by its left input, which is returned.
func (f *finder) splice(j *plan.Join) plan.Node {
	right, ok := j.Right().(*plan.GroupJoinTree)
	if !ok {
		return j
	}
	tgj := right.Root.Table.ParentJoin
	if tgj == nil {
		return j
	}
	var left *plan.GroupJoinTree
	if l, ok := j.Left().(*plan.GroupJoinTree); ok && l.Root.Find(tgj.Parent) != nil {
		left = l
	} else if j.Kind == plan.InnerJoin || j.Kind == plan.LeftJoin {
		left = findTree(j.Left(), tgj.Parent)
	}
	if left == nil {
		return j
	}
	direct := plan.Node(left) == j.Left()

	var others []plan.ScalarExpr
	for _, c := range j.Conditions {
		if !isGroupCondition(tgj, c) {
			others = append(others, c)
		}
	}
	members := &plan.SourceSet{}
	for _, m := range left.Members() {
		members.Add(m)
	}
	for _, m := range right.Members() {
		members.Add(m)
	}
	switch j.Kind {
	case plan.InnerJoin:
		if tgj.Join != nil && tgj.Join.Kind != plan.InnerJoin {
			return j
		}
	case plan.LeftJoin:
		if tgj.Join != j {
			return j
		}
		for _, c := range others {
			if !plan.ReferencedSources(c).SubsetOf(members) {
				return j
			}
		}
	case plan.RightJoin:
		if !direct || tgj.Join != j || len(others) > 0 {
			return j
		}
	default:
		return j
	}

	node := right.Root
	node.Kind = j.Kind
	node.Join = tgj
	for _, m := range right.Members() {
		f.p.Detach(m)
	}
	f.p.AddGroupJoinNode(left, left.Root.Find(tgj.Parent), node)
	for _, c := range right.Conditions {
		left.AddCondition(c)
	}
	switch {
	case tgj.Join != nil:
		removeConditions(tgj.Join, tgj.Conditions)
	case f.sel != nil:
		removeConditions(f.sel, tgj.Conditions)
	}

	in := j.Left()
	var remaining []plan.ScalarExpr
	for _, c := range j.Conditions {
		if isGroupCondition(tgj, c) {
			continue
		}
		switch {
		case j.Kind == plan.LeftJoin:
			node.Conditions = append(node.Conditions, c)
		case direct || plan.ReferencedSources(c).SubsetOf(members):
			left.AddCondition(c)
		default:
			remaining = append(remaining, c)
		}
	}
	j.SetConditions(nil)
	f.p.Replace(j, in)
	if len(remaining) > 0 {
		in.(*plan.Join).SetConditions(append(in.(*plan.Join).Conditions, remaining...))
	}
	left.Root.Walk(func(gn *plan.GroupJoinNode) { gn.Required = gn.Table.Required })
	log.VEventf(f.ctx, 2, "spliced %s under %s", node.Table.Alias, tgj.Parent.Alias)
	return in
}

// findTree searches the subtree rooted at n through INNER joins for a tree
// holding t.
func findTree(n plan.Node, t *plan.TableSource) *plan.GroupJoinTree {
	switch n := n.(type) {
	case *plan.GroupJoinTree:
		if n.Root.Find(t) != nil {
			return n
		}
	case *plan.Join:
		if n.Kind != plan.InnerJoin {
			return nil
		}
		if res := findTree(n.Left(), t); res != nil {
			return res
		}
		return findTree(n.Right(), t)
	}
	return nil
}

// attachFilter moves each condition of the filter above the island that
// references only the members of one tree into that tree, provided the tree
// is reachable from the island root through INNER joins.
func (f *finder) attachFilter(top plan.Node) {
	if f.sel == nil {
		return
	}
	var trees []*plan.GroupJoinTree
	var collect func(n plan.Node)
	collect = func(n plan.Node) {
		switch n := n.(type) {
		case *plan.GroupJoinTree:
			trees = append(trees, n)
		case *plan.Join:
			if n.Kind == plan.InnerJoin {
				collect(n.Left())
				collect(n.Right())
			}
		}
	}
	collect(top)
	for _, tree := range trees {
		members := &plan.SourceSet{}
		for _, m := range tree.Members() {
			members.Add(m)
		}
		for _, c := range append([]plan.ScalarExpr(nil), f.sel.Conditions...) {
			refs := plan.ReferencedSources(c)
			if !refs.Empty() && refs.SubsetOf(members) {
				f.sel.RemoveCondition(c)
				tree.AddCondition(c)
			}
		}
	}
}
