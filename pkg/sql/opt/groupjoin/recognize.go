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
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/planrw/pkg/sql/opt/cat"
	"github.com/cockroachdb/planrw/pkg/sql/opt/plan"
	"github.com/cockroachdb/planrw/pkg/sql/pgwire/pgcode"
	"github.com/cockroachdb/planrw/pkg/sql/pgwire/pgerror"
	"github.com/cockroachdb/planrw/pkg/util/log"
)

// visibleCondition is a comparison a table can be joined through, and the
// join holding it (nil for the filter above the island).
type visibleCondition struct {
	cmp  *plan.ComparisonExpr
	join *plan.Join
}

// candidate is a parent table whose key columns are all equated to a child's.
type candidate struct {
	parent *plan.TableSource
	cmps   []*plan.ComparisonExpr
	join   *plan.Join
}

func (f *finder) recognize(top plan.Node) {
	var tables []*plan.TableSource
	for _, leaf := range islandLeaves(top) {
		tables = append(tables, plan.Tables(leaf)...)
	}
	for _, leaf := range islandLeaves(top) {
		t, ok := leaf.(*plan.TableSource)
		if !ok || t.ParentJoin != nil {
			continue
		}
		gj := t.Table.ParentJoin()
		if gj == nil {
			continue
		}
		visible := f.visibleConditions(t, top)
		var found []candidate
		for _, p := range tables {
			if p == t || p.Table.Name() != gj.Parent().Name() {
				continue
			}
			if c, ok := f.match(t, p, gj, visible); ok {
				found = append(found, c)
			}
		}
		switch len(found) {
		case 0:
		case 1:
			f.record(t, gj, found[0])
		default:
			err := pgerror.Newf(pgcode.FeatureNotSupported,
				"ambiguous key equivalence: %s can join its parent %s through more than one table",
				t.Alias, gj.Parent().Name())
			panic(errors.WithDetailf(err, "%s", plan.Format(top)))
		}
	}
}

// visibleConditions lists the comparisons of the joins above t, stopping
// after the first join on whose optional side t lies. If no such join is
// met the filter above the island is visible too.
func (f *finder) visibleConditions(t *plan.TableSource, top plan.Node) []visibleCondition {
	var res []visibleCondition
	add := func(conds []plan.ScalarExpr, j *plan.Join) {
		for _, c := range conds {
			if cmp, ok := c.(*plan.ComparisonExpr); ok {
				res = append(res, visibleCondition{cmp: cmp, join: j})
			}
		}
	}
	child := plan.Node(t)
	for {
		j, ok := child.Parent().(*plan.Join)
		if !ok {
			return res
		}
		add(j.Conditions, j)
		if onOptionalSide(j, child) {
			return res
		}
		if j == top {
			break
		}
		child = j
	}
	if f.sel != nil {
		add(f.sel.Conditions, nil)
	}
	return res
}

// onOptionalSide returns true if the rows of child, an input of j, may be
// null-extended or do not reach j's output.
func onOptionalSide(j *plan.Join, child plan.Node) bool {
	left := j.Left() == child
	switch j.Kind {
	case plan.LeftJoin, plan.SemiJoin, plan.AntiJoin:
		return !left
	case plan.RightJoin:
		return left
	case plan.FullJoin:
		return true
	}
	return false
}

// match finds, for every key column of gj, an equality between the child
// column of t and the parent column of p or a column equivalent to it.
func (f *finder) match(
	t, p *plan.TableSource, gj cat.GroupJoin, visible []visibleCondition,
) (candidate, bool) {
	c := candidate{parent: p}
	for i, n := 0, gj.ColumnCount(); i < n; i++ {
		child := plan.NewColumnExpr(t, gj.ChildColumn(i))
		parent := plan.NewColumnExpr(p, gj.ParentColumn(i))
		found := false
		for _, v := range visible {
			if f.equates(v.cmp, child, parent) {
				c.cmps = append(c.cmps, v.cmp)
				if c.join == nil {
					c.join = v.join
				}
				found = true
				break
			}
		}
		if !found {
			return candidate{}, false
		}
	}
	return c, true
}

// equates returns true if cmp is child = X where X is parent or equivalent
// to it.
func (f *finder) equates(cmp *plan.ComparisonExpr, child, parent *plan.ColumnExpr) bool {
	l, r, ok := plan.ColumnEquality(cmp)
	if !ok {
		return false
	}
	if r.Key() == child.Key() {
		l, r = r, l
	}
	if l.Key() != child.Key() || r.Source == child.Source {
		return false
	}
	return r.Key() == parent.Key() || f.p.ColumnsEquivalent(r, parent)
}

func (f *finder) record(t *plan.TableSource, gj cat.GroupJoin, c candidate) {
	tgj := &plan.TableGroupJoin{
		Parent:     c.parent,
		Child:      t,
		Conditions: c.cmps,
		Join:       c.join,
		GroupJoin:  gj,
	}
	t.ParentJoin = tgj
	if c.join != nil && c.join.GroupJoin == nil {
		c.join.GroupJoin = tgj
	}
	if c.parent.Group == nil {
		plan.NewTableGroup(c.parent)
	}
	if t.Group == nil {
		plan.NewTableGroup(t)
	}
	g := c.parent.Group
	g.Merge(t.Group)
	g.Joins = append(g.Joins, tgj)
	f.recognized++
	log.VEventf(f.ctx, 1, "recognized group join %s -> %s", c.parent.Alias, t.Alias)
}
