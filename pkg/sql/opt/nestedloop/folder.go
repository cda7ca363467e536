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

package nestedloop

import (
	"context"

	"github.com/cockroachdb/planrw/pkg/sql/opt/plan"
	"github.com/cockroachdb/planrw/pkg/sql/opt/rule"
	"github.com/cockroachdb/planrw/pkg/util/log"
)

// MapFolder moves the Select and Project nodes directly above each map onto
// its inner side, so they are evaluated once per outer row. A map outputs
// only its inner rows; when a node above still references a source of the
// outer side, a pass-through Project exposing those columns is put on top of
// the inner side and the references are redirected to it. Sort, Limit,
// Distinct, Aggregate, subqueries and statements are not moved.
//
// Once folded, maps are rotated again and the bindings of the plan are
// recomputed: the output row of each map's outer side is bound at slot
// ParamCount+depth, where depth is the number of enclosing maps whose inner
// side holds the map, and each of its sources starts at the column offset
// it has in that row.
type MapFolder struct{}

var _ rule.Rule = MapFolder{}

// Name is part of the rule.Rule interface.
func (MapFolder) Name() string { return "MapFolder" }

// Apply is part of the rule.Rule interface.
func (MapFolder) Apply(ctx context.Context, pc *rule.PlanContext) error {
	var maps []*plan.MapJoin
	plan.WalkWithExprs(pc.Plan.Root(), plan.PostOrder(func(n plan.Node) {
		if m, ok := n.(*plan.MapJoin); ok {
			maps = append(maps, m)
		}
	}), nil /* ev */)
	for _, m := range maps {
		moved := relocate(pc.Plan, m)
		if passThrough(pc.Plan, m) {
			log.VEventf(ctx, 2, "added pass-through above inner side of map %d", m.ID())
		}
		if moved > 0 {
			log.VEventf(ctx, 2, "folded %d nodes into map %d", moved, m.ID())
		}
	}
	rotateAll(pc.Plan)
	bindAll(pc.Plan)
	return nil
}

// relocate moves the run of Select and Project nodes directly above m onto
// m's inner side, keeping their order, and returns the number moved.
func relocate(p *plan.Plan, m *plan.MapJoin) int {
	var top, bottom plan.Node
	count := 0
	for n := m.Parent(); foldable(n); n = n.Parent() {
		if bottom == nil {
			bottom = n
		}
		top = n
		count++
	}
	if top == nil {
		return 0
	}
	inner := m.Inner()
	p.Replace(top, m)
	p.SetChild(bottom, 0, inner)
	p.SetChild(m, 1, top)
	return count
}

func foldable(n plan.Node) bool {
	switch n.(type) {
	case *plan.Select, *plan.Project:
		return true
	}
	return false
}

// passThrough adds a Project on top of m's inner side when a node outside m
// references a source of m's outer side, and redirects every reference to
// the sources of the inner side and the outer side to that Project.
func passThrough(p *plan.Plan, m *plan.MapJoin) bool {
	outer := plan.SubtreeSources(m.Outer())
	var refs []*plan.ColumnExpr
	seen := make(map[plan.ColumnKey]bool)
	walkOutside(p, m, func(n plan.Node) {
		for i, cnt := 0, n.ExprCount(); i < cnt; i++ {
			for _, col := range plan.ExprColumns(n.Expr(i)) {
				if outer.Contains(col.Source) && !seen[col.Key()] {
					seen[col.Key()] = true
					refs = append(refs, col)
				}
			}
		}
	})
	if len(refs) == 0 {
		return false
	}

	inner := m.Inner()
	var exprs []plan.ScalarExpr
	var names []string
	pos := make(map[plan.ColumnKey]int)
	add := func(src plan.ColumnSource, i int) {
		col := plan.NewColumnExpr(src, i)
		if _, ok := pos[col.Key()]; ok {
			return
		}
		pos[col.Key()] = len(exprs)
		exprs = append(exprs, col)
		names = append(names, src.ColumnName(i))
	}
	for _, src := range plan.OutputSources(inner) {
		for i, n := 0, src.ColumnCount(); i < n; i++ {
			add(src, i)
		}
	}
	for _, col := range refs {
		add(col.Source, col.Position)
	}
	pass := p.InsertAbove(inner, func(in plan.Node) plan.Node {
		return p.ConstructProject(in, exprs, names)
	}).(*plan.Project)

	redirect := plan.BottomUp(func(e plan.ScalarExpr) plan.ScalarExpr {
		if col, ok := e.(*plan.ColumnExpr); ok {
			if i, ok := pos[col.Key()]; ok && col.Source != plan.ColumnSource(pass) {
				return plan.NewColumnExpr(pass, i)
			}
		}
		return e
	})
	walkOutside(p, m, func(n plan.Node) { plan.RewriteNodeExprs(n, redirect) })
	return true
}

// walkOutside calls fn for every node of the plan, including subquery
// plans, that is not within the subtree rooted at m.
func walkOutside(p *plan.Plan, m *plan.MapJoin, fn func(n plan.Node)) {
	plan.WalkWithExprs(p.Root(), plan.PreOrder(func(n plan.Node) bool {
		if n == plan.Node(m) {
			return false
		}
		fn(n)
		return true
	}), nil /* ev */)
}

// bindAll recomputes the bindings of every map in the plan.
func bindAll(p *plan.Plan) {
	b := p.Bindings()
	b.Reset()
	var bind func(n plan.Node, depth int)
	bind = func(n plan.Node, depth int) {
		for _, sub := range plan.NodeSubqueries(n) {
			bind(sub, depth)
		}
		m, ok := n.(*plan.MapJoin)
		if !ok {
			for i := 0; i < n.ChildCount(); i++ {
				bind(n.Child(i), depth)
			}
			return
		}
		slot, offset := p.ParamCount()+depth, 0
		for _, src := range plan.OutputSources(m.Outer()) {
			b.Bind(src, slot, offset)
			offset += src.ColumnCount()
		}
		bind(m.Outer(), depth)
		bind(m.Inner(), depth+1)
	}
	bind(p.Root(), 0)
}
