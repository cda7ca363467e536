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

package norm

import (
	"context"

	"github.com/cockroachdb/planrw/pkg/sql/opt/plan"
	"github.com/cockroachdb/planrw/pkg/sql/opt/rule"
	"github.com/cockroachdb/planrw/pkg/util/log"
)

// ColumnEquivalenceFinder records the column equalities that hold for every
// row of the plan: equality comparisons between two columns found in
// filters and inner join conditions that are not on the optional side of an
// outer join. The result replaces Plan.ColumnEquivalences.
type ColumnEquivalenceFinder struct{}

var _ rule.Rule = ColumnEquivalenceFinder{}

// Name is part of the rule.Rule interface.
func (ColumnEquivalenceFinder) Name() string { return "ColumnEquivalenceFinder" }

// Apply is part of the rule.Rule interface.
func (ColumnEquivalenceFinder) Apply(ctx context.Context, pc *rule.PlanContext) error {
	eqs := pc.Plan.ColumnEquivalences()
	eqs.Clear()
	count := 0
	var visit func(n plan.Node, inner bool)
	visit = func(n plan.Node, inner bool) {
		var conds []plan.ScalarExpr
		switch t := n.(type) {
		case *plan.Select, *plan.TableJoins, *plan.GroupJoinTree:
			conds = t.(plan.ConditionHolder).ConditionList()
		case *plan.Join:
			if t.Kind == plan.InnerJoin {
				conds = t.Conditions
			}
		}
		if inner {
			for _, c := range conds {
				for _, conj := range plan.Conjuncts(c) {
					if l, r, ok := plan.ColumnEquality(conj); ok {
						eqs.MarkEquivalent(l.Key(), r.Key())
						count++
					}
				}
			}
		}
		for _, sub := range plan.NodeSubqueries(n) {
			visit(sub, true)
		}
		for i := 0; i < n.ChildCount(); i++ {
			visit(n.Child(i), inner && !onOptionalSide(n, i))
		}
	}
	visit(pc.Plan.Root(), true)
	log.VEventf(ctx, 2, "recorded %d column equalities", count)
	return nil
}

// onOptionalSide returns true if the ith input of n may be null-extended.
func onOptionalSide(n plan.Node, i int) bool {
	var kind plan.JoinKind
	switch t := n.(type) {
	case *plan.Join:
		kind = t.Kind
	case *plan.MapJoin:
		kind = t.Kind
	default:
		return false
	}
	switch kind {
	case plan.LeftJoin:
		return i == 1
	case plan.RightJoin:
		return i == 0
	case plan.FullJoin:
		return true
	}
	return false
}
