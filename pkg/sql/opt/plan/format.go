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
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/planrw/pkg/sql/types"
	"github.com/cockroachdb/planrw/pkg/util/treeprinter"
)

// Format renders the subtree rooted at n as an indented tree. The output is
// deterministic and does not include node IDs. Subquery plans are rendered
// beneath the node whose expressions reference them.
func Format(n Node) string {
	tp := treeprinter.New()
	formatNode(tp, n)
	return tp.String()
}

func (p *Plan) String() string {
	if p.root == nil {
		return ""
	}
	return Format(p.root)
}

func formatNode(tp treeprinter.Node, n Node) {
	child := tp.Child(nodeLine(n))
	if g, ok := n.(*GroupJoinTree); ok {
		formatGroupJoinNode(child, g.Root)
	} else {
		for i := 0; i < n.ChildCount(); i++ {
			formatNode(child, n.Child(i))
		}
	}
	for _, sub := range NodeSubqueries(n) {
		formatNode(child, sub)
	}
}

func formatGroupJoinNode(tp treeprinter.Node, gn *GroupJoinNode) {
	var b strings.Builder
	if gn.Parent != nil {
		b.WriteString(gn.Kind.String())
		b.WriteByte(' ')
	}
	b.WriteString(tableLine(gn.Table))
	if len(gn.Conditions) > 0 {
		b.WriteString(": ")
		writeExprList(&b, gn.Conditions)
	}
	child := tp.Child(b.String())
	for _, c := range gn.Children {
		formatGroupJoinNode(child, c)
	}
}

func tableLine(t *TableSource) string {
	var b strings.Builder
	b.WriteString(t.Table.Name())
	if t.Alias != t.Table.Name() {
		b.WriteString(" AS ")
		b.WriteString(t.Alias)
	}
	if !t.Required {
		b.WriteString(" optional")
	}
	if t.AccessPath != nil {
		fmt.Fprintf(&b, " index=%s", t.AccessPath.Index.Name())
		if len(t.AccessPath.EqualityConds) > 0 {
			fmt.Fprintf(&b, " prefix=%d", len(t.AccessPath.EqualityConds))
		}
	}
	return b.String()
}

func nodeLine(n Node) string {
	var b strings.Builder
	b.WriteString(n.Op().String())
	switch t := n.(type) {
	case *TableSource:
		b.WriteByte(' ')
		b.WriteString(tableLine(t))
	case *Values:
		fmt.Fprintf(&b, " %d rows", len(t.Rows))
	case *GroupJoinTree:
		writeConditions(&b, t.Conditions)
	case *TableJoins:
		writeConditions(&b, t.Conditions)
	case *Select:
		writeConditions(&b, t.Conditions)
	case *Project:
		b.WriteString(": ")
		writeExprList(&b, t.Exprs)
	case *Sort:
		b.WriteString(": ")
		for i, k := range t.Keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(ExprString(k.Expr))
			if k.Descending {
				b.WriteString(" desc")
			}
		}
	case *Limit:
		if t.Count >= 0 {
			fmt.Fprintf(&b, " %d", t.Count)
		}
		if t.Offset > 0 {
			fmt.Fprintf(&b, " offset %d", t.Offset)
		}
	case *Aggregate:
		if len(t.GroupBy) > 0 {
			b.WriteString(" group-by=(")
			writeExprList(&b, t.GroupBy)
			b.WriteByte(')')
		}
		if len(t.Aggregates) > 0 {
			b.WriteString(" aggs=(")
			for i, a := range t.Aggregates {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(ExprString(a))
			}
			b.WriteByte(')')
		}
	case *Join:
		b.WriteByte(' ')
		b.WriteString(t.Kind.String())
		if t.GroupJoin != nil {
			b.WriteString(" group")
		}
		writeConditions(&b, t.Conditions)
	case *MapJoin:
		b.WriteByte(' ')
		b.WriteString(t.Kind.String())
	case *InsertStatement:
		b.WriteString(" into ")
		b.WriteString(t.Target.Name())
	case *UpdateStatement:
		b.WriteByte(' ')
		b.WriteString(t.Target.Name())
		b.WriteString(" set ")
		for i, col := range t.SetColumns {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(t.Target.Column(col).Name)
			b.WriteString(" = ")
			b.WriteString(ExprString(t.Values[i]))
		}
	case *DeleteStatement:
		b.WriteString(" from ")
		b.WriteString(t.Target.Name())
	}
	return b.String()
}

func writeConditions(b *strings.Builder, conds []ScalarExpr) {
	if len(conds) > 0 {
		b.WriteString(": ")
		writeExprList(b, conds)
	}
}

func writeExprList(b *strings.Builder, exprs []ScalarExpr) {
	for i, e := range exprs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(ExprString(e))
	}
}

var infixFuncs = map[string]string{
	"plus":   "+",
	"minus":  "-",
	"times":  "*",
	"divide": "/",
}

// ExprString renders an expression. Columns are rendered as
// source.column.
func ExprString(e ScalarExpr) string {
	var b strings.Builder
	exprFormatter{}.format(&b, e)
	return b.String()
}

// Fingerprint returns a string that is equal for two expressions exactly
// when they are structurally identical: same operators, same constants of
// the same type, and references to the same columns.
func Fingerprint(e ScalarExpr) string {
	var b strings.Builder
	exprFormatter{fingerprint: true}.format(&b, e)
	return b.String()
}

// exprFormatter renders expressions. With fingerprint set, columns are
// rendered by source ID and constants carry their type, so that two
// renderings are equal exactly when the expressions are structurally
// identical.
type exprFormatter struct {
	fingerprint bool
}

func (f exprFormatter) format(b *strings.Builder, e ScalarExpr) {
	switch t := e.(type) {
	case *ColumnExpr:
		if f.fingerprint {
			fmt.Fprintf(b, "#%d.%d", t.Source.ID(), t.Position)
			return
		}
		b.WriteString(t.Source.SourceName())
		b.WriteByte('.')
		b.WriteString(t.Source.ColumnName(t.Position))

	case *ConstExpr:
		if f.fingerprint {
			b.WriteString(t.Typ.String())
			b.WriteByte(':')
		}
		switch {
		case t.Null:
			b.WriteString("NULL")
		case t.Num != nil:
			b.WriteString(t.Num.String())
		case t.Typ.Family() == types.BoolFamily:
			b.WriteString(strconv.FormatBool(t.Bool))
		default:
			b.WriteString(quote(t.Str))
		}

	case *ParameterExpr:
		fmt.Fprintf(b, "$%d", t.Index+1)

	case *FunctionExpr:
		if op, ok := infixFuncs[t.Name]; ok && len(t.Args) == 2 {
			b.WriteByte('(')
			f.format(b, t.Args[0])
			b.WriteString(" " + op + " ")
			f.format(b, t.Args[1])
			b.WriteByte(')')
			return
		}
		b.WriteString(t.Name)
		b.WriteByte('(')
		for i, a := range t.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			f.format(b, a)
		}
		b.WriteByte(')')

	case *ComparisonExpr:
		f.format(b, t.Left)
		b.WriteString(" " + t.Op.String() + " ")
		f.format(b, t.Right)

	case *AndExpr:
		f.formatBool(b, "AND", t.Operands)

	case *OrExpr:
		f.formatBool(b, "OR", t.Operands)

	case *NotExpr:
		b.WriteString("NOT ")
		f.format(b, t.Input)

	case *CastExpr:
		f.format(b, t.Input)
		b.WriteString("::")
		b.WriteString(t.Typ.String())

	case *IfElseExpr:
		b.WriteString("CASE WHEN ")
		f.format(b, t.Cond)
		b.WriteString(" THEN ")
		f.format(b, t.Then)
		b.WriteString(" ELSE ")
		f.format(b, t.Else)
		b.WriteString(" END")

	case *InListExpr:
		f.format(b, t.Input)
		b.WriteString(" IN (")
		for i, a := range t.List {
			if i > 0 {
				b.WriteString(", ")
			}
			f.format(b, a)
		}
		b.WriteByte(')')

	case *SubqueryExpr:
		switch t.Kind {
		case AnySubquery:
			f.format(b, t.Input)
			b.WriteString(" " + t.Op.String() + " ANY(subquery)")
		default:
			b.WriteString(t.Kind.String())
			b.WriteString("(subquery)")
		}
		if f.fingerprint {
			fmt.Fprintf(b, "#%d", t.Subquery.ID())
		}

	case *AggregateExpr:
		b.WriteString(t.Name)
		b.WriteByte('(')
		if t.Distinct {
			b.WriteString("DISTINCT ")
		}
		if t.Arg == nil {
			b.WriteByte('*')
		} else {
			f.format(b, t.Arg)
		}
		b.WriteByte(')')

	default:
		fmt.Fprintf(b, "<%T>", e)
	}
}

func (f exprFormatter) formatBool(b *strings.Builder, op string, operands []ScalarExpr) {
	b.WriteByte('(')
	for i, o := range operands {
		if i > 0 {
			b.WriteString(" " + op + " ")
		}
		f.format(b, o)
	}
	b.WriteByte(')')
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
