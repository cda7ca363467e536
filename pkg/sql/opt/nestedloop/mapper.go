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

// Package nestedloop turns joins into nested-loop maps: for each row of a
// map's outer side, its inner side is evaluated with the outer row bound.
package nestedloop

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/planrw/pkg/sql/opt/plan"
	"github.com/cockroachdb/planrw/pkg/sql/opt/rule"
	"github.com/cockroachdb/planrw/pkg/sql/pgwire/pgcode"
	"github.com/cockroachdb/planrw/pkg/sql/pgwire/pgerror"
	"github.com/cockroachdb/planrw/pkg/util/log"
)

// NestedLoopMapper replaces every Join with a MapJoin. The join conditions
// move into a Select on the inner side, which is then wrapped according to
// the join kind:
//
//	INNER  no wrapper
//	LEFT   NullIfEmpty
//	SEMI   Limit 1, omitted within the inner side of another SEMI map
//	ANTI   OnlyIfEmpty
//
// A RIGHT join swaps its inputs and maps as a LEFT join. FULL joins are not
// supported. Finally, maps whose outer side is itself a map are rotated:
// Map(Map(a, b), c) becomes Map(a, Map(b, c)).
type NestedLoopMapper struct{}

var _ rule.Rule = NestedLoopMapper{}

// Name is part of the rule.Rule interface.
func (NestedLoopMapper) Name() string { return "NestedLoopMapper" }

// Apply is part of the rule.Rule interface.
func (NestedLoopMapper) Apply(ctx context.Context, pc *rule.PlanContext) error {
	var joins []*plan.Join
	plan.WalkWithExprs(pc.Plan.Root(), plan.PostOrder(func(n plan.Node) {
		if j, ok := n.(*plan.Join); ok {
			joins = append(joins, j)
		}
	}), nil /* ev */)
	for _, j := range joins {
		if err := mapJoin(pc.Plan, j); err != nil {
			return err
		}
	}
	rotated := rotateAll(pc.Plan)
	log.VEventf(ctx, 2, "mapped %d joins, %d rotations", len(joins), rotated)
	return nil
}

func mapJoin(p *plan.Plan, j *plan.Join) error {
	left, right, kind := j.Left(), j.Right(), j.Kind
	switch kind {
	case plan.FullJoin:
		err := pgerror.New(pgcode.FeatureNotSupported, "FULL JOIN cannot be evaluated as a nested loop")
		return errors.WithDetailf(err, "%s", plan.Format(j))
	case plan.RightJoin:
		left, right, kind = right, left, plan.LeftJoin
	}
	collapse := kind == plan.SemiJoin && insideSemi(j)
	p.Detach(left)
	p.Detach(right)

	inner := right
	if len(j.Conditions) > 0 {
		inner = p.ConstructSelect(inner, j.Conditions...)
	}
	switch kind {
	case plan.LeftJoin:
		inner = p.ConstructNullIfEmpty(inner)
	case plan.SemiJoin:
		if !collapse {
			inner = p.ConstructLimit(inner, 1, 0)
		}
	case plan.AntiJoin:
		inner = p.ConstructOnlyIfEmpty(inner)
	}
	p.Replace(j, p.ConstructMapJoin(kind, left, inner))
	return nil
}

// insideSemi returns true if n is within the inner side of a SEMI join or
// map without an intervening node that changes the row count.
func insideSemi(n plan.Node) bool {
	child := n
	for p := n.Parent(); p != nil; child, p = p, p.Parent() {
		switch p := p.(type) {
		case *plan.Join:
			if p.Kind == plan.SemiJoin && p.Right() == child {
				return true
			}
		case *plan.MapJoin:
			if p.Kind == plan.SemiJoin && p.Inner() == child {
				return true
			}
		case *plan.Aggregate, *plan.Limit, *plan.Distinct, *plan.Sort, *plan.Subquery:
			return false
		}
	}
	return false
}

// rotateAll rotates maps until no map has a map as its outer side, and
// returns the number of rotations.
func rotateAll(p *plan.Plan) int {
	count := 0
	for {
		var target *plan.MapJoin
		plan.WalkWithExprs(p.Root(), plan.PreOrder(func(n plan.Node) bool {
			if m, ok := n.(*plan.MapJoin); ok {
				if _, ok := m.Outer().(*plan.MapJoin); ok {
					target = m
					return false
				}
			}
			return true
		}), nil /* ev */)
		if target == nil {
			return count
		}
		rotate(p, target)
		count++
	}
}

// rotate turns Map(Map(a, b), c) into Map(a, Map(b, c)), keeping the kind of
// each map with its inner side.
func rotate(p *plan.Plan, top *plan.MapJoin) *plan.MapJoin {
	outer := top.Outer().(*plan.MapJoin)
	a, b, c := outer.Outer(), outer.Inner(), top.Inner()
	p.Detach(a)
	p.Detach(b)
	p.Detach(c)
	inner := p.ConstructMapJoin(top.Kind, b, c)
	res := p.ConstructMapJoin(outer.Kind, a, inner)
	p.Replace(top, res)
	return res
}
