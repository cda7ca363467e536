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
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/planrw/pkg/settings"
	"github.com/cockroachdb/planrw/pkg/sql/opt/equiv"
	"github.com/cockroachdb/planrw/pkg/sql/opt/plan"
	"github.com/cockroachdb/planrw/pkg/sql/opt/rule"
	"github.com/cockroachdb/planrw/pkg/sql/sem/builtins"
	"github.com/cockroachdb/planrw/pkg/sql/types"
	"github.com/cockroachdb/planrw/pkg/util/log"
)

var foldConstants = settings.RegisterBoolSetting(
	"foldConstants",
	"evaluate expressions whose operands are constants while rewriting",
	true,
)

// decimalCtx is used for every folded numeric operation. Division results
// are rounded to its precision.
var decimalCtx = apd.BaseContext.WithPrecision(20)

// intCastCtx rounds numbers cast to integers half away from zero.
var intCastCtx = func() *apd.Context {
	c := *decimalCtx
	c.Rounding = apd.RoundHalfUp
	return &c
}()

// ConstantFolder evaluates expressions whose operands are constants,
// bottom-up. It also folds IS NULL tests of columns that cannot be NULL,
// drops conditions that folded to TRUE and removes filters left without
// conditions. Expressions whose evaluation would fail at run time, such as a
// division by zero, are left alone.
type ConstantFolder struct{}

var _ rule.Rule = ConstantFolder{}

// Name is part of the rule.Rule interface.
func (ConstantFolder) Name() string { return "ConstantFolder" }

// Apply is part of the rule.Rule interface.
func (ConstantFolder) Apply(ctx context.Context, pc *rule.PlanContext) error {
	enabled, err := foldConstants.Get(pc.Settings)
	if err != nil {
		return err
	}
	if !enabled {
		return nil
	}
	f := folder{
		eqs:    pc.Plan.ColumnEquivalences(),
		tables: make(map[plan.NodeID]*plan.TableSource),
	}
	var holders []plan.ConditionHolder
	plan.WalkWithExprs(pc.Plan.Root(), plan.PreOrder(func(n plan.Node) bool {
		switch t := n.(type) {
		case *plan.TableSource:
			f.tables[t.ID()] = t
		case plan.ConditionHolder:
			holders = append(holders, t)
		}
		return true
	}), nil /* ev */)

	plan.RewritePlanExprs(pc.Plan.Root(), plan.BottomUp(f.fold))

	for _, h := range holders {
		conds := h.ConditionList()
		kept := conds[:0]
		for _, c := range conds {
			if !plan.IsTrue(c) {
				kept = append(kept, c)
			}
		}
		h.SetConditions(kept)
		if sel, ok := h.(*plan.Select); ok && len(kept) == 0 {
			pc.Plan.Replace(sel, sel.Input())
		}
	}
	log.VEventf(ctx, 2, "folded %d expressions", f.folded)
	return nil
}

type folder struct {
	eqs    *equiv.Finder[plan.ColumnKey]
	tables map[plan.NodeID]*plan.TableSource
	folded int
}

func (f *folder) fold(e plan.ScalarExpr) plan.ScalarExpr {
	res := f.foldExpr(e)
	if res != e {
		f.folded++
	}
	return res
}

func (f *folder) foldExpr(e plan.ScalarExpr) plan.ScalarExpr {
	switch t := e.(type) {
	case *plan.FunctionExpr:
		switch t.Name {
		case builtins.Plus, builtins.Minus, builtins.Times, builtins.Divide:
			return f.foldArithmetic(t)
		case builtins.IsNull:
			return f.foldIsNull(t)
		case builtins.Coalesce:
			return f.foldCoalesce(t)
		}
	case *plan.ComparisonExpr:
		l, lok := t.Left.(*plan.ConstExpr)
		r, rok := t.Right.(*plan.ConstExpr)
		if !lok || !rok {
			return e
		}
		if l.Null || r.Null {
			return plan.NewNull(types.Bool)
		}
		if c, ok := compareConsts(l, r); ok {
			return plan.NewBoolConst(evalCompare(t.Op, c))
		}
	case *plan.AndExpr:
		return f.foldAnd(t)
	case *plan.OrExpr:
		return f.foldOr(t)
	case *plan.NotExpr:
		if c, ok := t.Input.(*plan.ConstExpr); ok && c.Typ.Family() == types.BoolFamily {
			if c.Null {
				return c
			}
			return plan.NewBoolConst(!c.Bool)
		}
	case *plan.CastExpr:
		return f.foldCast(t)
	case *plan.IfElseExpr:
		c, ok := t.Cond.(*plan.ConstExpr)
		if !ok {
			return e
		}
		branch := t.Else
		if plan.IsTrue(c) {
			branch = t.Then
		}
		return withType(branch, t.Typ)
	case *plan.InListExpr:
		return f.foldInList(t)
	}
	return e
}

func (f *folder) foldArithmetic(e *plan.FunctionExpr) plan.ScalarExpr {
	l, lok := e.Args[0].(*plan.ConstExpr)
	r, rok := e.Args[1].(*plan.ConstExpr)
	if !lok || !rok {
		return e
	}
	if l.Null || r.Null {
		return plan.NewNull(e.Typ)
	}
	if l.Num == nil || r.Num == nil || !e.Typ.IsNumeric() {
		return e
	}
	var d apd.Decimal
	var err error
	switch e.Name {
	case builtins.Plus:
		_, err = decimalCtx.Add(&d, l.Num, r.Num)
	case builtins.Minus:
		_, err = decimalCtx.Sub(&d, l.Num, r.Num)
	case builtins.Times:
		_, err = decimalCtx.Mul(&d, l.Num, r.Num)
	case builtins.Divide:
		if r.Num.IsZero() {
			return e
		}
		if _, err = decimalCtx.Quo(&d, l.Num, r.Num); err == nil {
			d.Reduce(&d)
		}
	}
	if err != nil {
		return e
	}
	if e.Typ.Family() == types.IntFamily {
		if _, err := d.Int64(); err != nil {
			return e
		}
	}
	return plan.NewNumericConst(e.Typ, &d)
}

func (f *folder) foldIsNull(e *plan.FunctionExpr) plan.ScalarExpr {
	switch t := e.Args[0].(type) {
	case *plan.ConstExpr:
		return plan.NewBoolConst(t.Null)
	case *plan.ColumnExpr:
		if f.notNull(t) {
			return plan.NewBoolConst(false)
		}
	}
	return e
}

// foldCoalesce drops leading NULL operands and stops at the first operand
// that cannot be NULL.
func (f *folder) foldCoalesce(e *plan.FunctionExpr) plan.ScalarExpr {
	args := e.Args
	for len(args) > 0 {
		if c, ok := args[0].(*plan.ConstExpr); ok && c.Null {
			args = args[1:]
			continue
		}
		break
	}
	if len(args) == 0 {
		return plan.NewNull(e.Typ)
	}
	if f.cannotBeNull(args[0]) || len(args) == 1 {
		return withType(args[0], e.Typ)
	}
	if len(args) != len(e.Args) {
		return &plan.FunctionExpr{Name: e.Name, Args: args, Typ: e.Typ}
	}
	return e
}

func (f *folder) cannotBeNull(e plan.ScalarExpr) bool {
	switch t := e.(type) {
	case *plan.ConstExpr:
		return !t.Null
	case *plan.ColumnExpr:
		return f.notNull(t)
	}
	return false
}

// notNull returns true if the column is a NOT NULL column of a table present
// in every row, or is equal to one.
func (f *folder) notNull(c *plan.ColumnExpr) bool {
	if f.declaredNotNull(c.Key()) {
		return true
	}
	for _, k := range f.eqs.FindEquivalents(c.Key()) {
		if f.declaredNotNull(k) {
			return true
		}
	}
	return false
}

func (f *folder) declaredNotNull(k plan.ColumnKey) bool {
	t, ok := f.tables[k.Source]
	return ok && t.Required && !t.Table.Column(k.Position).Nullable
}

func (f *folder) foldAnd(e *plan.AndExpr) plan.ScalarExpr {
	var kept []plan.ScalarExpr
	for _, op := range e.Operands {
		switch {
		case plan.IsFalse(op):
			return plan.NewBoolConst(false)
		case plan.IsTrue(op):
		default:
			kept = append(kept, op)
		}
	}
	switch len(kept) {
	case 0:
		return plan.NewBoolConst(true)
	case 1:
		return kept[0]
	case len(e.Operands):
		return e
	}
	return &plan.AndExpr{Operands: kept}
}

func (f *folder) foldOr(e *plan.OrExpr) plan.ScalarExpr {
	var kept []plan.ScalarExpr
	for _, op := range e.Operands {
		switch {
		case plan.IsTrue(op):
			return plan.NewBoolConst(true)
		case plan.IsFalse(op):
		default:
			kept = append(kept, op)
		}
	}
	switch len(kept) {
	case 0:
		return plan.NewBoolConst(false)
	case 1:
		return kept[0]
	case len(e.Operands):
		return e
	}
	return &plan.OrExpr{Operands: kept}
}

func (f *folder) foldCast(e *plan.CastExpr) plan.ScalarExpr {
	c, ok := e.Input.(*plan.ConstExpr)
	if !ok {
		return e
	}
	if c.Null {
		return plan.NewNull(e.Typ)
	}
	from, to := c.Typ.Family(), e.Typ.Family()
	switch {
	case from == to:
		res := *c
		res.Typ = e.Typ
		return &res
	case c.Num != nil && e.Typ.IsNumeric():
		d := new(apd.Decimal).Set(c.Num)
		if to == types.IntFamily {
			if _, err := intCastCtx.RoundToIntegralValue(d, c.Num); err != nil {
				return e
			}
			if _, err := d.Int64(); err != nil {
				return e
			}
		}
		return plan.NewNumericConst(e.Typ, d)
	case c.Num != nil && to == types.StringFamily:
		return plan.NewStringConst(c.Num.String())
	case from == types.StringFamily && e.Typ.IsNumeric():
		d, _, err := apd.NewFromString(strings.TrimSpace(c.Str))
		if err != nil {
			return e
		}
		if to == types.IntFamily {
			if _, err := d.Int64(); err != nil {
				return e
			}
		}
		return plan.NewNumericConst(e.Typ, d)
	case from == types.BoolFamily && to == types.StringFamily:
		return plan.NewStringConst(strconv.FormatBool(c.Bool))
	case from == types.StringFamily && to == types.BoolFamily:
		b, err := strconv.ParseBool(strings.TrimSpace(c.Str))
		if err != nil {
			return e
		}
		return plan.NewBoolConst(b)
	}
	return e
}

func (f *folder) foldInList(e *plan.InListExpr) plan.ScalarExpr {
	in, ok := e.Input.(*plan.ConstExpr)
	if !ok {
		return e
	}
	consts := make([]*plan.ConstExpr, len(e.List))
	for i, item := range e.List {
		if consts[i], ok = item.(*plan.ConstExpr); !ok {
			return e
		}
	}
	if in.Null {
		return plan.NewNull(types.Bool)
	}
	sawNull := false
	for _, c := range consts {
		if c.Null {
			sawNull = true
			continue
		}
		cmp, ok := compareConsts(in, c)
		if !ok {
			return e
		}
		if cmp == 0 {
			return plan.NewBoolConst(true)
		}
	}
	if sawNull {
		return plan.NewNull(types.Bool)
	}
	return plan.NewBoolConst(false)
}

// compareConsts compares two non-NULL constants of comparable types.
func compareConsts(l, r *plan.ConstExpr) (int, bool) {
	lf, rf := l.Typ.Family(), r.Typ.Family()
	switch {
	case l.Num != nil && r.Num != nil:
		return l.Num.Cmp(r.Num), true
	case lf == types.StringFamily && rf == types.StringFamily:
		return strings.Compare(l.Str, r.Str), true
	case lf == types.BoolFamily && rf == types.BoolFamily:
		return boolOrd(l.Bool) - boolOrd(r.Bool), true
	}
	return 0, false
}

func boolOrd(b bool) int {
	if b {
		return 1
	}
	return 0
}

func evalCompare(op plan.CompareOp, c int) bool {
	switch op {
	case plan.EQ:
		return c == 0
	case plan.NE:
		return c != 0
	case plan.LT:
		return c < 0
	case plan.LE:
		return c <= 0
	case plan.GT:
		return c > 0
	default:
		return c >= 0
	}
}

// withType returns e, cast to typ if its type differs.
func withType(e plan.ScalarExpr, typ *types.T) plan.ScalarExpr {
	if e.Type().Identical(typ) {
		return e
	}
	return &plan.CastExpr{Input: e, Typ: typ}
}
