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

import (
	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/planrw/pkg/sql/types"
)

// ScalarExpr is a scalar or boolean expression evaluated by a plan node.
// Expressions are plain trees without parent pointers; they are owned by the
// expression slot of exactly one node (see Node.Expr).
type ScalarExpr interface {
	// Type is the declared result type of the expression.
	Type() *types.T

	// ChildCount returns the number of operand expressions.
	ChildCount() int

	// Child returns the ith operand, where i < ChildCount.
	Child(i int) ScalarExpr

	// SetChild replaces the ith operand.
	SetChild(i int, e ScalarExpr)
}

func childOutOfRange(e interface{}, i int) {
	panic(errors.AssertionFailedf("child index %d out of range for %T", i, e))
}

type leafExpr struct{}

func (leafExpr) ChildCount() int                { return 0 }
func (e leafExpr) Child(i int) ScalarExpr       { childOutOfRange(e, i); return nil }
func (e leafExpr) SetChild(i int, _ ScalarExpr) { childOutOfRange(e, i) }

// ColumnExpr references the ith output column of a column source.
type ColumnExpr struct {
	leafExpr
	Source   ColumnSource
	Position int
}

var _ ScalarExpr = &ColumnExpr{}

// NewColumnExpr returns a reference to column pos of src.
func NewColumnExpr(src ColumnSource, pos int) *ColumnExpr {
	return &ColumnExpr{Source: src, Position: pos}
}

// Type is part of the ScalarExpr interface.
func (e *ColumnExpr) Type() *types.T { return e.Source.ColumnType(e.Position) }

// Key returns the identity of the referenced column.
func (e *ColumnExpr) Key() ColumnKey {
	return ColumnKey{Source: e.Source.ID(), Position: e.Position}
}

// ConstExpr is a constant value. Numbers of every numeric type are held as
// decimals.
type ConstExpr struct {
	leafExpr
	Typ  *types.T
	Null bool
	Bool bool
	Str  string
	Num  *apd.Decimal
}

var _ ScalarExpr = &ConstExpr{}

// Type is part of the ScalarExpr interface.
func (e *ConstExpr) Type() *types.T { return e.Typ }

// NewNull returns a NULL of the given type.
func NewNull(typ *types.T) *ConstExpr {
	return &ConstExpr{Typ: typ, Null: true}
}

// NewIntConst returns an integer constant.
func NewIntConst(v int64) *ConstExpr {
	return &ConstExpr{Typ: types.Int, Num: apd.New(v, 0)}
}

// NewNumericConst returns a numeric constant of the given type.
func NewNumericConst(typ *types.T, d *apd.Decimal) *ConstExpr {
	return &ConstExpr{Typ: typ, Num: d}
}

// NewStringConst returns a string constant.
func NewStringConst(s string) *ConstExpr {
	return &ConstExpr{Typ: types.String, Str: s}
}

// NewBoolConst returns a boolean constant.
func NewBoolConst(b bool) *ConstExpr {
	return &ConstExpr{Typ: types.Bool, Bool: b}
}

// IsTrue returns true if e is the constant TRUE.
func IsTrue(e ScalarExpr) bool {
	c, ok := e.(*ConstExpr)
	return ok && !c.Null && c.Typ.Family() == types.BoolFamily && c.Bool
}

// IsFalse returns true if e is the constant FALSE.
func IsFalse(e ScalarExpr) bool {
	c, ok := e.(*ConstExpr)
	return ok && !c.Null && c.Typ.Family() == types.BoolFamily && !c.Bool
}

// ParameterExpr is a statement parameter, numbered from zero.
type ParameterExpr struct {
	leafExpr
	Index int
	Typ   *types.T
}

var _ ScalarExpr = &ParameterExpr{}

// Type is part of the ScalarExpr interface.
func (e *ParameterExpr) Type() *types.T { return e.Typ }

// FunctionExpr is a call to a scalar function. Arithmetic is expressed as
// calls to plus, minus, times and divide.
type FunctionExpr struct {
	Name string
	Args []ScalarExpr
	Typ  *types.T
}

var _ ScalarExpr = &FunctionExpr{}

// Type is part of the ScalarExpr interface.
func (e *FunctionExpr) Type() *types.T               { return e.Typ }
func (e *FunctionExpr) ChildCount() int              { return len(e.Args) }
func (e *FunctionExpr) Child(i int) ScalarExpr       { return e.Args[i] }
func (e *FunctionExpr) SetChild(i int, c ScalarExpr) { e.Args[i] = c }

// ComparisonExpr compares two operands.
type ComparisonExpr struct {
	Op          CompareOp
	Left, Right ScalarExpr
}

var _ ScalarExpr = &ComparisonExpr{}

// Type is part of the ScalarExpr interface.
func (e *ComparisonExpr) Type() *types.T  { return types.Bool }
func (e *ComparisonExpr) ChildCount() int { return 2 }

func (e *ComparisonExpr) Child(i int) ScalarExpr {
	switch i {
	case 0:
		return e.Left
	case 1:
		return e.Right
	}
	childOutOfRange(e, i)
	return nil
}

func (e *ComparisonExpr) SetChild(i int, c ScalarExpr) {
	switch i {
	case 0:
		e.Left = c
	case 1:
		e.Right = c
	default:
		childOutOfRange(e, i)
	}
}

// Commute swaps the operands, adjusting the operator to keep the meaning.
func (e *ComparisonExpr) Commute() {
	e.Left, e.Right = e.Right, e.Left
	e.Op = e.Op.Commute()
}

// AndExpr is the conjunction of its operands.
type AndExpr struct {
	Operands []ScalarExpr
}

var _ ScalarExpr = &AndExpr{}

// Type is part of the ScalarExpr interface.
func (e *AndExpr) Type() *types.T               { return types.Bool }
func (e *AndExpr) ChildCount() int              { return len(e.Operands) }
func (e *AndExpr) Child(i int) ScalarExpr       { return e.Operands[i] }
func (e *AndExpr) SetChild(i int, c ScalarExpr) { e.Operands[i] = c }

// OrExpr is the disjunction of its operands.
type OrExpr struct {
	Operands []ScalarExpr
}

var _ ScalarExpr = &OrExpr{}

// Type is part of the ScalarExpr interface.
func (e *OrExpr) Type() *types.T               { return types.Bool }
func (e *OrExpr) ChildCount() int              { return len(e.Operands) }
func (e *OrExpr) Child(i int) ScalarExpr       { return e.Operands[i] }
func (e *OrExpr) SetChild(i int, c ScalarExpr) { e.Operands[i] = c }

// NotExpr negates its input.
type NotExpr struct {
	Input ScalarExpr
}

var _ ScalarExpr = &NotExpr{}

// Type is part of the ScalarExpr interface.
func (e *NotExpr) Type() *types.T  { return types.Bool }
func (e *NotExpr) ChildCount() int { return 1 }

func (e *NotExpr) Child(i int) ScalarExpr {
	if i != 0 {
		childOutOfRange(e, i)
	}
	return e.Input
}

func (e *NotExpr) SetChild(i int, c ScalarExpr) {
	if i != 0 {
		childOutOfRange(e, i)
	}
	e.Input = c
}

// CastExpr converts its input to another type.
type CastExpr struct {
	Input ScalarExpr
	Typ   *types.T
}

var _ ScalarExpr = &CastExpr{}

// Type is part of the ScalarExpr interface.
func (e *CastExpr) Type() *types.T  { return e.Typ }
func (e *CastExpr) ChildCount() int { return 1 }

func (e *CastExpr) Child(i int) ScalarExpr {
	if i != 0 {
		childOutOfRange(e, i)
	}
	return e.Input
}

func (e *CastExpr) SetChild(i int, c ScalarExpr) {
	if i != 0 {
		childOutOfRange(e, i)
	}
	e.Input = c
}

// IfElseExpr is CASE WHEN Cond THEN Then ELSE Else END.
type IfElseExpr struct {
	Cond, Then, Else ScalarExpr
	Typ              *types.T
}

var _ ScalarExpr = &IfElseExpr{}

// Type is part of the ScalarExpr interface.
func (e *IfElseExpr) Type() *types.T  { return e.Typ }
func (e *IfElseExpr) ChildCount() int { return 3 }

func (e *IfElseExpr) Child(i int) ScalarExpr {
	switch i {
	case 0:
		return e.Cond
	case 1:
		return e.Then
	case 2:
		return e.Else
	}
	childOutOfRange(e, i)
	return nil
}

func (e *IfElseExpr) SetChild(i int, c ScalarExpr) {
	switch i {
	case 0:
		e.Cond = c
	case 1:
		e.Then = c
	case 2:
		e.Else = c
	default:
		childOutOfRange(e, i)
	}
}

// InListExpr tests whether Input equals any element of List.
type InListExpr struct {
	Input ScalarExpr
	List  []ScalarExpr
}

var _ ScalarExpr = &InListExpr{}

// Type is part of the ScalarExpr interface.
func (e *InListExpr) Type() *types.T  { return types.Bool }
func (e *InListExpr) ChildCount() int { return 1 + len(e.List) }

func (e *InListExpr) Child(i int) ScalarExpr {
	if i == 0 {
		return e.Input
	}
	return e.List[i-1]
}

func (e *InListExpr) SetChild(i int, c ScalarExpr) {
	if i == 0 {
		e.Input = c
		return
	}
	e.List[i-1] = c
}

// SubqueryKind is the way a SubqueryExpr consumes its nested plan.
type SubqueryKind uint8

const (
	// ExistsSubquery is true if the nested plan returns a row.
	ExistsSubquery SubqueryKind = iota
	// ValueSubquery returns the single value of the single row.
	ValueSubquery
	// AnySubquery compares Input against every row with Op.
	AnySubquery
)

func (k SubqueryKind) String() string {
	switch k {
	case ExistsSubquery:
		return "exists"
	case ValueSubquery:
		return "value"
	case AnySubquery:
		return "any"
	}
	return "subquery(?)"
}

// SubqueryExpr evaluates a nested plan. The nested plan may reference
// columns visible to the node that owns the expression.
type SubqueryExpr struct {
	Kind     SubqueryKind
	Subquery *Subquery
	// Input and Op are set for AnySubquery.
	Input ScalarExpr
	Op    CompareOp
	Typ   *types.T
}

var _ ScalarExpr = &SubqueryExpr{}

// Type is part of the ScalarExpr interface.
func (e *SubqueryExpr) Type() *types.T { return e.Typ }

func (e *SubqueryExpr) ChildCount() int {
	if e.Input != nil {
		return 1
	}
	return 0
}

func (e *SubqueryExpr) Child(i int) ScalarExpr {
	if i != 0 || e.Input == nil {
		childOutOfRange(e, i)
	}
	return e.Input
}

func (e *SubqueryExpr) SetChild(i int, c ScalarExpr) {
	if i != 0 || e.Input == nil {
		childOutOfRange(e, i)
	}
	e.Input = c
}

// AggregateExpr is a call to an aggregate function. Arg is nil for
// COUNT(*).
type AggregateExpr struct {
	Name     string
	Arg      ScalarExpr
	Distinct bool
	Typ      *types.T
}

var _ ScalarExpr = &AggregateExpr{}

// Type is part of the ScalarExpr interface.
func (e *AggregateExpr) Type() *types.T { return e.Typ }

func (e *AggregateExpr) ChildCount() int {
	if e.Arg != nil {
		return 1
	}
	return 0
}

func (e *AggregateExpr) Child(i int) ScalarExpr {
	if i != 0 || e.Arg == nil {
		childOutOfRange(e, i)
	}
	return e.Arg
}

func (e *AggregateExpr) SetChild(i int, c ScalarExpr) {
	if i != 0 || e.Arg == nil {
		childOutOfRange(e, i)
	}
	e.Arg = c
}
