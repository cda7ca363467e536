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

package plan

import "github.com/cockroachdb/errors"

// Conjuncts returns the operands of e if it is a conjunction, flattening
// nested conjunctions, and e itself otherwise.
func Conjuncts(e ScalarExpr) []ScalarExpr {
	and, ok := e.(*AndExpr)
	if !ok {
		return []ScalarExpr{e}
	}
	var res []ScalarExpr
	for _, op := range and.Operands {
		res = append(res, Conjuncts(op)...)
	}
	return res
}

// ColumnEquality returns the two columns of a col = col comparison.
func ColumnEquality(e ScalarExpr) (left, right *ColumnExpr, ok bool) {
	cmp, ok := e.(*ComparisonExpr)
	if !ok || cmp.Op != EQ {
		return nil, nil, false
	}
	left, lok := cmp.Left.(*ColumnExpr)
	right, rok := cmp.Right.(*ColumnExpr)
	if !lok || !rok {
		return nil, nil, false
	}
	return left, right, true
}

// CopyExpr returns a deep copy of e. Column references keep their source and
// subquery expressions share the nested plan.
func CopyExpr(e ScalarExpr) ScalarExpr {
	switch t := e.(type) {
	case *ColumnExpr:
		c := *t
		return &c
	case *ConstExpr:
		c := *t
		return &c
	case *ParameterExpr:
		c := *t
		return &c
	case *FunctionExpr:
		return &FunctionExpr{Name: t.Name, Args: copyExprs(t.Args), Typ: t.Typ}
	case *ComparisonExpr:
		return &ComparisonExpr{Op: t.Op, Left: CopyExpr(t.Left), Right: CopyExpr(t.Right)}
	case *AndExpr:
		return &AndExpr{Operands: copyExprs(t.Operands)}
	case *OrExpr:
		return &OrExpr{Operands: copyExprs(t.Operands)}
	case *NotExpr:
		return &NotExpr{Input: CopyExpr(t.Input)}
	case *CastExpr:
		return &CastExpr{Input: CopyExpr(t.Input), Typ: t.Typ}
	case *IfElseExpr:
		return &IfElseExpr{
			Cond: CopyExpr(t.Cond), Then: CopyExpr(t.Then), Else: CopyExpr(t.Else), Typ: t.Typ,
		}
	case *InListExpr:
		return &InListExpr{Input: CopyExpr(t.Input), List: copyExprs(t.List)}
	case *SubqueryExpr:
		c := *t
		if t.Input != nil {
			c.Input = CopyExpr(t.Input)
		}
		return &c
	case *AggregateExpr:
		c := *t
		if t.Arg != nil {
			c.Arg = CopyExpr(t.Arg)
		}
		return &c
	}
	panic(errors.AssertionFailedf("unhandled expression %T", e))
}

func copyExprs(list []ScalarExpr) []ScalarExpr {
	res := make([]ScalarExpr, len(list))
	for i, e := range list {
		res[i] = CopyExpr(e)
	}
	return res
}
