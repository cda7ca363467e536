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

// assembleFlat collapses, within each INNER run of the island rooted at n,
// the tables of one group into a TableJoins container. The group conditions
// among the members are dropped and the conditions referencing only members
// move into the container; the remaining conditions stay with the run.
// topRun is set for the run whose conditions were hoisted into the filter
// above the island.
func (f *finder) assembleFlat(n plan.Node, topRun bool) {
	j, ok := n.(*plan.Join)
	if !ok {
		return
	}
	if j.Kind != plan.InnerJoin {
		f.assembleFlat(j.Left(), false /* topRun */)
		f.assembleFlat(j.Right(), false /* topRun */)
		return
	}
	ops, joins := flattenRun(j)
	for _, op := range ops {
		f.assembleFlat(op, false /* topRun */)
	}

	var groups []*plan.TableGroup
	byGroup := make(map[*plan.TableGroup][]*plan.TableSource)
	for _, op := range ops {
		t, ok := op.(*plan.TableSource)
		if !ok || t.Group == nil || len(t.Group.Tables) < 2 {
			continue
		}
		if _, ok := byGroup[t.Group]; !ok {
			groups = append(groups, t.Group)
		}
		byGroup[t.Group] = append(byGroup[t.Group], t)
	}

	holders := make([]plan.ConditionHolder, 0, len(joins)+1)
	for _, rj := range joins {
		holders = append(holders, rj)
	}
	if topRun && f.sel != nil {
		holders = append(holders, f.sel)
	}

	changed := false
	for _, g := range groups {
		ms := byGroup[g]
		if len(ms) < 2 {
			continue
		}
		container := f.collapse(g, ms, holders)
		for i, op := range ops {
			if op == ms[0] {
				ops[i] = container
			}
		}
		ops = removeMembers(ops, ms[1:])
		changed = true
	}
	if !changed {
		return
	}
	var conds []plan.ScalarExpr
	for _, rj := range joins {
		conds = append(conds, rj.Conditions...)
	}
	f.rebuildRun(j, sortOperands(ops), conds)
}

// collapse builds the TableJoins container for the members ms of g found in
// one run, taking their conditions from holders.
func (f *finder) collapse(
	g *plan.TableGroup, ms []*plan.TableSource, holders []plan.ConditionHolder,
) *plan.TableJoins {
	set := &plan.SourceSet{}
	for _, m := range ms {
		set.Add(m)
	}
	for _, tgj := range g.Joins {
		if set.Contains(tgj.Parent) && set.Contains(tgj.Child) {
			for _, h := range holders {
				removeConditions(h, tgj.Conditions)
			}
		}
	}
	var memberConds []plan.ScalarExpr
	for _, h := range holders {
		for _, c := range append([]plan.ScalarExpr(nil), h.ConditionList()...) {
			refs := plan.ReferencedSources(c)
			if !refs.Empty() && refs.SubsetOf(set) {
				h.RemoveCondition(c)
				memberConds = append(memberConds, c)
			}
		}
	}

	for _, m := range ms {
		f.p.Detach(m)
	}
	var chain plan.Node = ms[0]
	for _, m := range ms[1:] {
		jn := f.p.ConstructJoin(plan.InnerJoin, chain, m)
		if m.ParentJoin != nil && set.Contains(m.ParentJoin.Parent) {
			jn.GroupJoin = m.ParentJoin
		}
		chain = jn
	}
	log.VEventf(f.ctx, 2, "collapsed %d tables of group %s", len(ms), ms[0].Alias)
	return f.p.ConstructTableJoins(g, chain, memberConds...)
}

func removeMembers(ops []plan.Node, drop []*plan.TableSource) []plan.Node {
	res := ops[:0]
	for _, op := range ops {
		keep := true
		for _, d := range drop {
			if op == plan.Node(d) {
				keep = false
				break
			}
		}
		if keep {
			res = append(res, op)
		}
	}
	return res
}
