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

// Package indexpick chooses the index each table of a plan is read through.
package indexpick

import (
	"context"

	"github.com/cockroachdb/planrw/pkg/sql/opt/cat"
	"github.com/cockroachdb/planrw/pkg/sql/opt/plan"
	"github.com/cockroachdb/planrw/pkg/sql/opt/rule"
	"github.com/cockroachdb/planrw/pkg/util/log"
)

// IndexPicker records an AccessPath on every TableSource that has an index
// whose leading columns are bound by equality conditions. A condition binds
// a column if it equates it to an expression that does not read the table:
// a constant, a parameter or a column of a source read before the table.
// The left input of a join is read before its right input (the right input
// before the left for a RIGHT join, whose sides are swapped when it is
// mapped), and a member of a grouped-join tree after its ancestors. The
// conditions
// considered are those visible to the table: filters above it, the
// conditions of the joins it is inner-joined through, the conditions of the
// join that matches its rows, and those of the grouped-join container
// holding it.
//
// The index with the longest bound prefix wins; ties prefer a unique index,
// then the primary index, then catalog order. Tables without a bound prefix
// keep a nil AccessPath and are scanned through their primary index.
type IndexPicker struct{}

var _ rule.Rule = IndexPicker{}

// Name is part of the rule.Rule interface.
func (IndexPicker) Name() string { return "IndexPicker" }

// Apply is part of the rule.Rule interface.
func (IndexPicker) Apply(ctx context.Context, pc *rule.PlanContext) error {
	var tables []*plan.TableSource
	plan.WalkWithExprs(pc.Plan.Root(), plan.PreOrder(func(n plan.Node) bool {
		if t, ok := n.(*plan.TableSource); ok {
			tables = append(tables, t)
		}
		return true
	}), nil /* ev */)
	for _, t := range tables {
		conds, later := visibleConditions(t)
		t.AccessPath = pick(t, conds, later)
		if t.AccessPath != nil {
			log.VEventf(ctx, 2, "%s: index %s prefix %d",
				t.Alias, t.AccessPath.Index.Name(), len(t.AccessPath.EqualityConds))
		}
	}
	return nil
}

// visibleConditions collects the conjuncts that restrict the rows of t, and
// the sources whose rows are not known yet when t is read.
func visibleConditions(t *plan.TableSource) (res []plan.ScalarExpr, later *plan.SourceSet) {
	later = &plan.SourceSet{}
	add := func(conds []plan.ScalarExpr) {
		for _, c := range conds {
			res = append(res, plan.Conjuncts(c)...)
		}
	}
	var child plan.Node = t
	for n := t.Parent(); n != nil; child, n = n, n.Parent() {
		switch n := n.(type) {
		case *plan.Select:
			add(n.Conditions)
		case *plan.TableJoins:
			add(n.Conditions)
		case *plan.GroupJoinTree:
			add(n.Conditions)
			if gn := n.Root.Find(t); gn != nil {
				before := make(map[*plan.TableSource]bool)
				for a := gn.Parent; a != nil; a = a.Parent {
					before[a.Table] = true
				}
				for _, m := range n.Members() {
					if m != t && !before[m] {
						later.Add(m)
					}
				}
				add(gn.Conditions)
				if gn.Join != nil && gn.Kind != plan.RightJoin {
					for _, c := range gn.Join.Conditions {
						res = append(res, c)
					}
				}
			}
		case *plan.Join:
			left := n.Left() == child
			if left != (n.Kind == plan.RightJoin) {
				if left {
					later.UnionWith(plan.SubtreeSources(n.Right()))
				} else {
					later.UnionWith(plan.SubtreeSources(n.Left()))
				}
			}
			switch n.Kind {
			case plan.InnerJoin:
				add(n.Conditions)
			case plan.LeftJoin, plan.SemiJoin, plan.AntiJoin:
				if left {
					continue
				}
				add(n.Conditions)
				return res, later
			case plan.RightJoin:
				if !left {
					continue
				}
				add(n.Conditions)
				return res, later
			default:
				return res, later
			}
		default:
			return res, later
		}
	}
	return res, later
}

// pick returns the best access path for t, or nil if no index has a bound
// prefix.
func pick(t *plan.TableSource, conds []plan.ScalarExpr, later *plan.SourceSet) *plan.AccessPath {
	var best *plan.AccessPath
	for i, n := 0, t.Table.IndexCount(); i < n; i++ {
		idx := t.Table.Index(i)
		var bound []plan.ScalarExpr
		for k, m := 0, idx.ColumnCount(); k < m; k++ {
			c := binding(t, idx.ColumnOrdinal(k), conds, later)
			if c == nil {
				break
			}
			bound = append(bound, c)
		}
		if len(bound) == 0 {
			continue
		}
		if best == nil || better(idx, len(bound), best.Index, len(best.EqualityConds)) {
			best = &plan.AccessPath{Index: idx, EqualityConds: bound}
		}
	}
	return best
}

// better returns true if index a with prefix pa beats b with prefix pb. An
// earlier index in catalog order wins remaining ties, so a later index must
// be strictly better.
func better(a cat.Index, pa int, b cat.Index, pb int) bool {
	if pa != pb {
		return pa > pb
	}
	if a.IsUnique() != b.IsUnique() {
		return a.IsUnique()
	}
	return a.IsPrimary() && !b.IsPrimary()
}

// binding returns the first condition equating column ord of t to an
// expression that reads neither t nor a source in later.
func binding(
	t *plan.TableSource, ord int, conds []plan.ScalarExpr, later *plan.SourceSet,
) plan.ScalarExpr {
	for _, c := range conds {
		cmp, ok := c.(*plan.ComparisonExpr)
		if !ok || cmp.Op != plan.EQ {
			continue
		}
		if isColumn(cmp.Left, t, ord) && bindable(cmp.Right, t, later) ||
			isColumn(cmp.Right, t, ord) && bindable(cmp.Left, t, later) {
			return c
		}
	}
	return nil
}

func isColumn(e plan.ScalarExpr, t *plan.TableSource, ord int) bool {
	col, ok := e.(*plan.ColumnExpr)
	return ok && col.Source == plan.ColumnSource(t) && col.Position == ord
}

func bindable(e plan.ScalarExpr, t *plan.TableSource, later *plan.SourceSet) bool {
	if len(plan.ExprSubqueries(e)) > 0 {
		return false
	}
	refs := plan.ReferencedSources(e)
	return !refs.Contains(t) && !refs.Intersects(later)
}
