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

// ExpressionCompactor puts predicates in the shape the executor evaluates
// most cheaply. Conjunctions in condition lists become separate conditions,
// and a disjunction of equalities between one column and constants or
// parameters becomes an IN list:
//
//	x = 1 OR x = $1 OR x IN (3, 4)  =>  x IN (1, $1, 3, 4)
type ExpressionCompactor struct{}

var _ rule.Rule = ExpressionCompactor{}

// Name is part of the rule.Rule interface.
func (ExpressionCompactor) Name() string { return "ExpressionCompactor" }

// Apply is part of the rule.Rule interface.
func (ExpressionCompactor) Apply(ctx context.Context, pc *rule.PlanContext) error {
	inLists := 0
	plan.RewritePlanExprs(pc.Plan.Root(), plan.BottomUp(func(e plan.ScalarExpr) plan.ScalarExpr {
		or, ok := e.(*plan.OrExpr)
		if !ok {
			return e
		}
		if in := orToInList(or); in != nil {
			inLists++
			return in
		}
		return e
	}))

	split := 0
	plan.WalkWithExprs(pc.Plan.Root(), plan.PreOrder(func(n plan.Node) bool {
		h, ok := n.(plan.ConditionHolder)
		if !ok {
			return true
		}
		conds := h.ConditionList()
		var flat []plan.ScalarExpr
		for _, c := range conds {
			flat = append(flat, plan.Conjuncts(c)...)
		}
		if len(flat) != len(conds) {
			split++
			h.SetConditions(flat)
		}
		return true
	}), nil /* ev */)
	log.VEventf(ctx, 2, "built %d IN lists, split %d condition lists", inLists, split)
	return nil
}

// orToInList returns the IN list equivalent to or, or nil if there is none.
func orToInList(or *plan.OrExpr) *plan.InListExpr {
	var col *plan.ColumnExpr
	var list []plan.ScalarExpr
	var operands []plan.ScalarExpr
	for _, op := range or.Operands {
		// Nested disjunctions are flattened.
		if nested, ok := op.(*plan.OrExpr); ok {
			operands = append(operands, nested.Operands...)
			continue
		}
		operands = append(operands, op)
	}
	if len(operands) < 2 {
		return nil
	}
	for _, op := range operands {
		var c *plan.ColumnExpr
		var vals []plan.ScalarExpr
		switch t := op.(type) {
		case *plan.ComparisonExpr:
			if t.Op != plan.EQ {
				return nil
			}
			if lc, ok := t.Left.(*plan.ColumnExpr); ok && isValue(t.Right) {
				c, vals = lc, []plan.ScalarExpr{t.Right}
			} else if rc, ok := t.Right.(*plan.ColumnExpr); ok && isValue(t.Left) {
				c, vals = rc, []plan.ScalarExpr{t.Left}
			} else {
				return nil
			}
		case *plan.InListExpr:
			ic, ok := t.Input.(*plan.ColumnExpr)
			if !ok {
				return nil
			}
			for _, v := range t.List {
				if !isValue(v) {
					return nil
				}
			}
			c, vals = ic, t.List
		default:
			return nil
		}
		if col == nil {
			col = c
		} else if c.Key() != col.Key() {
			return nil
		}
		list = append(list, vals...)
	}
	return &plan.InListExpr{Input: col, List: list}
}

func isValue(e plan.ScalarExpr) bool {
	switch e.(type) {
	case *plan.ConstExpr, *plan.ParameterExpr:
		return true
	}
	return false
}
