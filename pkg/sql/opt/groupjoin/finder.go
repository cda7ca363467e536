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

// Package groupjoin recognizes joins that follow the declared parent/child
// keys of a table group and restructures them around grouped-join
// containers.
package groupjoin

import (
	"context"
	"sort"

	"github.com/cockroachdb/planrw/pkg/settings"
	"github.com/cockroachdb/planrw/pkg/sql/opt/plan"
	"github.com/cockroachdb/planrw/pkg/sql/opt/rule"
	"github.com/cockroachdb/planrw/pkg/util/log"
)

// The groupJoinStrategy values.
const (
	// StrategyTree nests the members of a group into a GroupJoinTree.
	StrategyTree = "tree"
	// StrategyFlat collects the members of a group joined within one run of
	// inner joins into a TableJoins container.
	StrategyFlat = "flat"
)

var groupJoinStrategy = settings.RegisterEnumSetting(
	"groupJoinStrategy",
	"how recognized group joins are assembled",
	StrategyTree,
	StrategyTree, StrategyFlat,
)

// GroupJoinFinder processes each join island of the plan (a maximal subtree
// of Join nodes) in four steps:
//
//  1. Runs of INNER joins are flattened and rebuilt left-deep, with table
//     operands in group order ahead of everything else. The conditions of a
//     run are collected on its top join. Left-deep keeps each join's right
//     input a single operand, which is where step 4 looks for the child
//     tree to splice under its parent.
//  2. If the island sits under a Select, the conditions of the joins
//     reachable from the island root through INNER joins move into it.
//     Column-vs-column comparisons between tables are oriented with the more
//     specific table on the left.
//  3. A table whose catalog table has a parent join is matched against the
//     comparisons visible to it. Exactly one candidate parent table in the
//     island must equate every key column; the match is recorded as a
//     TableGroupJoin and the two TableGroups merge.
//  4. The recognized joins are assembled according to the groupJoinStrategy
//     setting.
//
// The rule is idempotent.
type GroupJoinFinder struct{}

var _ rule.Rule = GroupJoinFinder{}

// Name is part of the rule.Rule interface.
func (GroupJoinFinder) Name() string { return "GroupJoinFinder" }

// Apply is part of the rule.Rule interface.
func (GroupJoinFinder) Apply(ctx context.Context, pc *rule.PlanContext) error {
	strategy, err := groupJoinStrategy.Get(pc.Settings)
	if err != nil {
		return err
	}
	var islands []*plan.Join
	plan.WalkWithExprs(pc.Plan.Root(), plan.PreOrder(func(n plan.Node) bool {
		if j, ok := n.(*plan.Join); ok {
			switch j.Parent().(type) {
			case *plan.Join, *plan.TableJoins:
			default:
				islands = append(islands, j)
			}
		}
		return true
	}), nil /* ev */)

	f := finder{ctx: ctx, p: pc.Plan, strategy: strategy}
	for _, j := range islands {
		f.island(j)
	}
	log.VEventf(ctx, 2, "recognized %d group joins in %d islands", f.recognized, len(islands))
	return nil
}

type finder struct {
	ctx      context.Context
	p        *plan.Plan
	strategy string

	// sel is the Select directly above the island being processed, if any.
	sel        *plan.Select
	recognized int
}

func (f *finder) island(root *plan.Join) {
	f.sel, _ = root.Parent().(*plan.Select)
	top := f.canonicalize(root)
	f.hoist(top)
	f.normalize(top)
	f.recognize(top)
	switch f.strategy {
	case StrategyFlat:
		f.assembleFlat(top, true /* topRun */)
	default:
		top = f.unwrapSingles(f.assembleTree(top))
		f.attachFilter(top)
	}
	if f.sel != nil && len(f.sel.Conditions) == 0 {
		f.p.Replace(f.sel, f.sel.Input())
	}
	f.sel = nil
}

// flattenRun returns the operands of the run of INNER joins rooted at j in
// left-to-right order, and the joins of the run.
func flattenRun(j *plan.Join) (operands []plan.Node, joins []*plan.Join) {
	var walk func(n plan.Node)
	walk = func(n plan.Node) {
		if jn, ok := n.(*plan.Join); ok && jn.Kind == plan.InnerJoin {
			joins = append(joins, jn)
			walk(jn.Left())
			walk(jn.Right())
			return
		}
		operands = append(operands, n)
	}
	walk(j)
	return operands, joins
}

// sortKey returns the table an operand is ordered by: the table itself, or
// the root of a grouped-join container. Other operands return nil.
func sortKey(n plan.Node) *plan.TableSource {
	switch t := n.(type) {
	case *plan.TableSource:
		return t
	case *plan.GroupJoinTree:
		return t.Root.Table
	case *plan.TableJoins:
		var root *plan.TableSource
		for _, m := range plan.Tables(t) {
			if root == nil || plan.TableLess(m, root) {
				root = m
			}
		}
		return root
	}
	return nil
}

func sortOperands(ops []plan.Node) []plan.Node {
	res := append([]plan.Node(nil), ops...)
	sort.SliceStable(res, func(i, j int) bool {
		a, b := sortKey(res[i]), sortKey(res[j])
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return plan.TableLess(a, b)
	})
	return res
}

// canonicalize rebuilds every INNER run in the subtree rooted at n and
// returns the node now in n's position.
func (f *finder) canonicalize(n plan.Node) plan.Node {
	j, ok := n.(*plan.Join)
	if !ok {
		return n
	}
	if j.Kind != plan.InnerJoin {
		f.canonicalize(j.Left())
		f.canonicalize(j.Right())
		return j
	}
	ops, joins := flattenRun(j)
	for i := range ops {
		ops[i] = f.canonicalize(ops[i])
	}
	sorted := sortOperands(ops)
	if isCanonical(j, ops, sorted, joins) {
		return j
	}
	var conds []plan.ScalarExpr
	for _, rj := range joins {
		conds = append(conds, rj.Conditions...)
	}
	return f.rebuildRun(j, sorted, conds)
}

// isCanonical returns true if the run is already left-deep in sorted order
// with all of its conditions on the top join.
func isCanonical(top *plan.Join, ops, sorted []plan.Node, joins []*plan.Join) bool {
	for i := range ops {
		if ops[i] != sorted[i] {
			return false
		}
	}
	for _, rj := range joins {
		if r, ok := rj.Right().(*plan.Join); ok && r.Kind == plan.InnerJoin {
			return false
		}
		if rj != top && len(rj.Conditions) > 0 {
			return false
		}
	}
	return true
}

// rebuildRun replaces the run rooted at old with a left-deep chain of INNER
// joins over ops, placing conds on the top join. It returns the new top.
func (f *finder) rebuildRun(old plan.Node, ops []plan.Node, conds []plan.ScalarExpr) plan.Node {
	for _, op := range ops {
		f.p.Detach(op)
	}
	top := ops[0]
	for _, op := range ops[1:] {
		top = f.p.ConstructJoin(plan.InnerJoin, top, op)
	}
	if j, ok := top.(*plan.Join); ok {
		j.SetConditions(conds)
	} else if h, ok := top.(plan.ConditionHolder); ok {
		for _, c := range conds {
			h.AddCondition(c)
		}
	} else if len(conds) > 0 {
		top = f.p.ConstructSelect(top, conds...)
	}
	f.p.Replace(old, top)
	return top
}

// hoist moves the conditions of the joins reachable from top through INNER
// joins into the Select above the island.
func (f *finder) hoist(top plan.Node) {
	j, ok := top.(*plan.Join)
	if !ok || f.sel == nil || j.Kind != plan.InnerJoin {
		return
	}
	_, joins := flattenRun(j)
	for _, rj := range joins {
		for _, c := range rj.Conditions {
			f.sel.AddCondition(c)
		}
		rj.SetConditions(nil)
	}
}

// normalize splits the conditions of the island and its filter into
// conjuncts and orients column-vs-column comparisons.
func (f *finder) normalize(top plan.Node) {
	norm := func(h plan.ConditionHolder) {
		var conds []plan.ScalarExpr
		for _, c := range h.ConditionList() {
			for _, cj := range plan.Conjuncts(c) {
				orient(cj)
				conds = append(conds, cj)
			}
		}
		h.SetConditions(conds)
	}
	if f.sel != nil {
		norm(f.sel)
	}
	walkIsland(top, func(j *plan.Join) { norm(j) })
}

// orient puts the more specific table of a column-vs-column comparison on
// the left.
func orient(e plan.ScalarExpr) {
	cmp, ok := e.(*plan.ComparisonExpr)
	if !ok {
		return
	}
	l, lok := cmp.Left.(*plan.ColumnExpr)
	r, rok := cmp.Right.(*plan.ColumnExpr)
	if !lok || !rok {
		return
	}
	lt, lok := l.Source.(*plan.TableSource)
	rt, rok := r.Source.(*plan.TableSource)
	if !lok || !rok || lt == rt {
		return
	}
	if moreSpecific(rt, lt) {
		cmp.Left, cmp.Right = cmp.Right, cmp.Left
		cmp.Op = cmp.Op.Commute()
	}
}

// moreSpecific orders tables of the same group by descending group ordinal
// and other tables by group name, breaking ties by NodeID.
func moreSpecific(a, b *plan.TableSource) bool {
	ga, gb := a.Table.Name(), b.Table.Name()
	if g := a.Table.Group(); g != nil {
		ga = g.Name()
	}
	if g := b.Table.Group(); g != nil {
		gb = g.Name()
	}
	if ga != gb {
		return ga > gb
	}
	if oa, ob := a.Table.GroupOrdinal(), b.Table.GroupOrdinal(); oa != ob {
		return oa > ob
	}
	return a.ID() > b.ID()
}

// walkIsland calls fn for every join of the island rooted at n, in
// post-order.
func walkIsland(n plan.Node, fn func(j *plan.Join)) {
	j, ok := n.(*plan.Join)
	if !ok {
		return
	}
	walkIsland(j.Left(), fn)
	walkIsland(j.Right(), fn)
	fn(j)
}

// islandLeaves returns the non-join inputs of the island rooted at n.
func islandLeaves(n plan.Node) []plan.Node {
	j, ok := n.(*plan.Join)
	if !ok {
		return []plan.Node{n}
	}
	return append(islandLeaves(j.Left()), islandLeaves(j.Right())...)
}

// removeConditions removes the given comparisons from h.
func removeConditions(h plan.ConditionHolder, cmps []*plan.ComparisonExpr) {
	for _, c := range cmps {
		h.RemoveCondition(c)
	}
}

func isGroupCondition(tgj *plan.TableGroupJoin, e plan.ScalarExpr) bool {
	for _, c := range tgj.Conditions {
		if plan.ScalarExpr(c) == e {
			return true
		}
	}
	return false
}
