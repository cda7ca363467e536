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

// Package outerjoin strength-reduces outer joins whose null-extended rows
// cannot survive the predicates above them.
package outerjoin

import (
	"context"

	"github.com/cockroachdb/planrw/pkg/sql/opt/plan"
	"github.com/cockroachdb/planrw/pkg/sql/opt/rule"
	"github.com/cockroachdb/planrw/pkg/sql/sem/builtins"
	"github.com/cockroachdb/planrw/pkg/util/log"
)

// OuterJoinPromoter turns an outer join into an inner join when a predicate
// evaluated above it rejects every row in which the optional side is
// null-extended. For example
//
//	A LEFT JOIN B ON A.k = B.k WHERE B.v = 5
//
// becomes an inner join, while WHERE B.v IS NULL leaves it alone.
//
// A predicate requires a source if it cannot be true when the source's
// columns are all NULL. Requirements flow down each join island from the
// filter above it: inner joins add the requirements of their own
// conditions; outer joins pass requirements only to their preserved side.
// Promotion can cascade, since a promoted join's conditions then apply to
// both of its sides.
type OuterJoinPromoter struct{}

var _ rule.Rule = OuterJoinPromoter{}

// Name is part of the rule.Rule interface.
func (OuterJoinPromoter) Name() string { return "OuterJoinPromoter" }

// Apply is part of the rule.Rule interface.
func (OuterJoinPromoter) Apply(ctx context.Context, pc *rule.PlanContext) error {
	var islands []*plan.Join
	plan.WalkWithExprs(pc.Plan.Root(), plan.PreOrder(func(n plan.Node) bool {
		if j, ok := n.(*plan.Join); ok {
			if _, ok := j.Parent().(*plan.Join); !ok {
				islands = append(islands, j)
			}
		}
		return true
	}), nil /* ev */)

	p := promoter{ctx: ctx, required: make(map[plan.ScalarExpr]*plan.SourceSet)}
	for _, j := range islands {
		req := &plan.SourceSet{}
		if sel, ok := j.Parent().(*plan.Select); ok {
			for _, c := range sel.Conditions {
				req.UnionWith(p.requiredBy(c))
			}
		}
		p.visit(j, req)
	}
	if p.promoted > 0 {
		markRequired(pc.Plan.Root(), true)
	}
	log.VEventf(ctx, 2, "promoted %d joins", p.promoted)
	return nil
}

type promoter struct {
	ctx context.Context
	// required memoizes requiredBy.
	required map[plan.ScalarExpr]*plan.SourceSet
	promoted int
}

// visit pushes the requirements req of the predicates above n into the join
// island rooted at n, promoting outer joins along the way.
func (p *promoter) visit(n plan.Node, req *plan.SourceSet) {
	j, ok := n.(*plan.Join)
	if !ok {
		return
	}
	switch j.Kind {
	case plan.LeftJoin:
		if req.Intersects(plan.SubtreeSources(j.Right())) {
			p.promote(j, plan.InnerJoin)
		}
	case plan.RightJoin:
		if req.Intersects(plan.SubtreeSources(j.Left())) {
			p.promote(j, plan.InnerJoin)
		}
	case plan.FullJoin:
		left := req.Intersects(plan.SubtreeSources(j.Left()))
		right := req.Intersects(plan.SubtreeSources(j.Right()))
		switch {
		case left && right:
			p.promote(j, plan.InnerJoin)
		case left:
			p.promote(j, plan.LeftJoin)
		case right:
			p.promote(j, plan.RightJoin)
		}
	}

	own := &plan.SourceSet{}
	for _, c := range j.Conditions {
		own.UnionWith(p.requiredBy(c))
	}
	switch j.Kind {
	case plan.InnerJoin:
		both := req.Copy()
		both.UnionWith(own)
		p.visit(j.Left(), both)
		p.visit(j.Right(), both)
	case plan.LeftJoin, plan.SemiJoin:
		p.visit(j.Left(), req)
		p.visit(j.Right(), own)
	case plan.RightJoin:
		p.visit(j.Left(), own)
		p.visit(j.Right(), req)
	case plan.AntiJoin:
		p.visit(j.Left(), req)
		p.visit(j.Right(), &plan.SourceSet{})
	case plan.FullJoin:
		p.visit(j.Left(), &plan.SourceSet{})
		p.visit(j.Right(), &plan.SourceSet{})
	}
}

func (p *promoter) promote(j *plan.Join, kind plan.JoinKind) {
	log.VEventf(p.ctx, 1, "promoting %s join (node %d) to %s", j.Kind, j.ID(), kind)
	j.Kind = kind
	p.promoted++
}

// requiredBy returns the sources that e requires: e cannot be true if all
// the columns of any of them are NULL.
func (p *promoter) requiredBy(e plan.ScalarExpr) *plan.SourceSet {
	if res, ok := p.required[e]; ok {
		return res
	}
	res := &plan.SourceSet{}
	switch t := e.(type) {
	case *plan.ColumnExpr:
		res.Add(t.Source)

	case *plan.AndExpr:
		for _, op := range t.Operands {
			res.UnionWith(p.requiredBy(op))
		}

	case *plan.OrExpr:
		for i, op := range t.Operands {
			if i == 0 {
				res.UnionWith(p.requiredBy(op))
			} else {
				res.IntersectionWith(p.requiredBy(op))
			}
		}

	case *plan.FunctionExpr:
		// IS NULL and COALESCE tolerate NULL operands; every other function
		// returns NULL when an operand is NULL.
		if t.Name != builtins.IsNull && t.Name != builtins.Coalesce {
			for _, a := range t.Args {
				res.UnionWith(p.requiredBy(a))
			}
		}

	case *plan.ComparisonExpr, *plan.CastExpr:
		for i, n := 0, e.ChildCount(); i < n; i++ {
			res.UnionWith(p.requiredBy(e.Child(i)))
		}

	case *plan.InListExpr:
		res.UnionWith(p.requiredBy(t.Input))
	}
	// NOT, CASE, subqueries and constants require nothing.
	p.required[e] = res
	return res
}

// markRequired recomputes TableSource.Required below n. required is false if
// n lies on the optional side of an outer join.
func markRequired(n plan.Node, required bool) {
	for _, sub := range plan.NodeSubqueries(n) {
		markRequired(sub, true)
	}
	switch t := n.(type) {
	case *plan.TableSource:
		t.Required = required
	case *plan.Join:
		markRequired(t.Left(), required && t.Kind != plan.RightJoin && t.Kind != plan.FullJoin)
		markRequired(t.Right(), required && t.Kind != plan.LeftJoin && t.Kind != plan.FullJoin)
	case *plan.MapJoin:
		markRequired(t.Outer(), required)
		markRequired(t.Inner(), required && t.Kind != plan.LeftJoin)
	default:
		for i := 0; i < n.ChildCount(); i++ {
			markRequired(n.Child(i), required)
		}
	}
}
