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

package scenario

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/planrw/pkg/sql/opt/plan"
	"github.com/cockroachdb/planrw/pkg/sql/pgwire/pgcode"
	"github.com/cockroachdb/planrw/pkg/sql/pgwire/pgerror"
	"github.com/cockroachdb/planrw/pkg/sql/sem/builtins"
	"github.com/cockroachdb/planrw/pkg/sql/types"
)

// exprParser parses the small expression language of scenario files:
//
//	a.x = 1 AND (b.y IS NULL OR b.z IN ('p', 'q'))
//	sum(DISTINCT o.total) / count(*)
//	coalesce(x, 0)::decimal
//	CASE WHEN c THEN a ELSE b END
//	exists(@sub)
//	o.status = any(@statuses)
//
// Column references are resolved and types assigned while parsing.
type exprParser struct {
	b    *builder
	src  string
	toks []token
	pos  int
}

func (b *builder) parseExpr(s string) plan.ScalarExpr {
	toks, err := tokenize(s)
	if err != nil {
		panic(err)
	}
	p := exprParser{b: b, src: s, toks: toks}
	e := p.parseOr()
	if p.peek().kind != tokEOF {
		p.errorf("unexpected %q", p.peek().text)
	}
	return e
}

func (p *exprParser) peek() token { return p.toks[p.pos] }

func (p *exprParser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *exprParser) errorf(format string, args ...interface{}) {
	panic(syntaxErrorf(p.src, p.peek().pos, format, args...))
}

// isKeyword returns true if the next token is the given keyword.
func (p *exprParser) isKeyword(kw string) bool {
	t := p.peek()
	return t.kind == tokIdent && strings.EqualFold(t.text, kw)
}

func (p *exprParser) acceptKeyword(kw string) bool {
	if p.isKeyword(kw) {
		p.pos++
		return true
	}
	return false
}

func (p *exprParser) expectKeyword(kw string) {
	if !p.acceptKeyword(kw) {
		p.errorf("expected %s", kw)
	}
}

func (p *exprParser) isPunct(s string) bool {
	t := p.peek()
	return t.kind == tokPunct && t.text == s
}

func (p *exprParser) acceptPunct(s string) bool {
	if p.isPunct(s) {
		p.pos++
		return true
	}
	return false
}

func (p *exprParser) expectPunct(s string) {
	if !p.acceptPunct(s) {
		p.errorf("expected %q", s)
	}
}

func (p *exprParser) parseOr() plan.ScalarExpr {
	e := p.parseAnd()
	if !p.isKeyword("or") {
		return e
	}
	operands := []plan.ScalarExpr{e}
	for p.acceptKeyword("or") {
		operands = append(operands, p.parseAnd())
	}
	return &plan.OrExpr{Operands: operands}
}

func (p *exprParser) parseAnd() plan.ScalarExpr {
	e := p.parseNot()
	if !p.isKeyword("and") {
		return e
	}
	operands := []plan.ScalarExpr{e}
	for p.acceptKeyword("and") {
		operands = append(operands, p.parseNot())
	}
	return &plan.AndExpr{Operands: operands}
}

func (p *exprParser) parseNot() plan.ScalarExpr {
	if p.acceptKeyword("not") {
		return &plan.NotExpr{Input: p.parseNot()}
	}
	return p.parseComparison()
}

var compareOps = map[string]plan.CompareOp{
	"=": plan.EQ, "!=": plan.NE, "<>": plan.NE, "<": plan.LT, "<=": plan.LE, ">": plan.GT, ">=": plan.GE,
}

func (p *exprParser) parseComparison() plan.ScalarExpr {
	left := p.parseAdditive()
	if t := p.peek(); t.kind == tokPunct {
		if op, ok := compareOps[t.text]; ok {
			p.next()
			if p.isKeyword("any") {
				p.next()
				p.expectPunct("(")
				sub := p.next()
				if sub.kind != tokSubquery {
					p.errorf("any requires a subquery")
				}
				p.expectPunct(")")
				return &plan.SubqueryExpr{
					Kind: plan.AnySubquery, Subquery: p.b.subquery(sub.text), Input: left, Op: op, Typ: types.Bool,
				}
			}
			return &plan.ComparisonExpr{Op: op, Left: left, Right: p.parseAdditive()}
		}
	}
	if p.acceptKeyword("is") {
		negate := p.acceptKeyword("not")
		p.expectKeyword("null")
		var e plan.ScalarExpr = p.b.function(builtins.IsNull, left)
		if negate {
			e = &plan.NotExpr{Input: e}
		}
		return e
	}
	negate := false
	if p.isKeyword("not") && p.toks[p.pos+1].kind == tokIdent && strings.EqualFold(p.toks[p.pos+1].text, "in") {
		p.next()
		negate = true
	}
	if p.acceptKeyword("in") {
		p.expectPunct("(")
		in := &plan.InListExpr{Input: left}
		for {
			in.List = append(in.List, p.parseAdditive())
			if !p.acceptPunct(",") {
				break
			}
		}
		p.expectPunct(")")
		if negate {
			return &plan.NotExpr{Input: in}
		}
		return in
	}
	return left
}

func (p *exprParser) parseAdditive() plan.ScalarExpr {
	e := p.parseMultiplicative()
	for {
		switch {
		case p.acceptPunct("+"):
			e = p.b.function(builtins.Plus, e, p.parseMultiplicative())
		case p.acceptPunct("-"):
			e = p.b.function(builtins.Minus, e, p.parseMultiplicative())
		default:
			return e
		}
	}
}

func (p *exprParser) parseMultiplicative() plan.ScalarExpr {
	e := p.parseUnary()
	for {
		switch {
		case p.acceptPunct("*"):
			e = p.b.function(builtins.Times, e, p.parseUnary())
		case p.acceptPunct("/"):
			e = p.b.function(builtins.Divide, e, p.parseUnary())
		default:
			return e
		}
	}
}

func (p *exprParser) parseUnary() plan.ScalarExpr {
	if p.acceptPunct("-") {
		if p.peek().kind == tokNumber {
			return p.number("-" + p.next().text)
		}
		return p.b.function(builtins.Minus, plan.NewIntConst(0), p.parseUnary())
	}
	return p.parsePostfix()
}

func (p *exprParser) parsePostfix() plan.ScalarExpr {
	e := p.parsePrimary()
	for p.acceptPunct("::") {
		t := p.next()
		typ, ok := types.FromString(t.text)
		if t.kind != tokIdent || !ok {
			panic(pgerror.Newf(pgcode.UndefinedObject, "unknown type %q", t.text))
		}
		if _, err := p.b.resolver.Cast(e.Type(), typ); err != nil {
			panic(err)
		}
		e = &plan.CastExpr{Input: e, Typ: typ}
	}
	return e
}

func (p *exprParser) parsePrimary() plan.ScalarExpr {
	t := p.peek()
	switch t.kind {
	case tokNumber:
		p.next()
		return p.number(t.text)

	case tokString:
		p.next()
		return plan.NewStringConst(t.text)

	case tokParam:
		n, err := strconv.Atoi(t.text)
		if err != nil || n < 1 || n > len(p.b.params) {
			p.errorf("no parameter $%s", t.text)
		}
		p.next()
		return &plan.ParameterExpr{Index: n - 1, Typ: p.b.params[n-1]}

	case tokSubquery:
		p.next()
		return p.b.valueSubquery(t.text)

	case tokPunct:
		if p.acceptPunct("(") {
			e := p.parseOr()
			p.expectPunct(")")
			return e
		}

	case tokIdent:
		switch {
		case p.acceptKeyword("true"):
			return plan.NewBoolConst(true)
		case p.acceptKeyword("false"):
			return plan.NewBoolConst(false)
		case p.acceptKeyword("null"):
			return plan.NewNull(types.Unknown)
		case p.acceptKeyword("case"):
			return p.parseCase()
		}
		p.next()
		if p.acceptPunct("(") {
			return p.parseCall(t.text)
		}
		if p.acceptPunct(".") {
			col := p.next()
			if col.kind != tokIdent {
				p.errorf("expected column name")
			}
			return p.b.resolveColumn(t.text, col.text)
		}
		return p.b.resolveColumn("", t.text)
	}
	p.errorf("unexpected %q", t.text)
	return nil
}

func (p *exprParser) number(text string) plan.ScalarExpr {
	if !strings.Contains(text, ".") {
		if v, err := strconv.ParseInt(text, 10, 64); err == nil {
			return plan.NewIntConst(v)
		}
	}
	d, _, err := apd.NewFromString(text)
	if err != nil {
		p.errorf("invalid number %s", text)
	}
	return plan.NewNumericConst(types.Decimal, d)
}

func (p *exprParser) parseCase() plan.ScalarExpr {
	p.expectKeyword("when")
	cond := p.parseOr()
	p.expectKeyword("then")
	then := p.parseOr()
	p.expectKeyword("else")
	els := p.parseOr()
	p.expectKeyword("end")
	typ := then.Type()
	if typ.Family() == types.UnknownFamily {
		typ = els.Type()
	}
	return &plan.IfElseExpr{Cond: cond, Then: then, Else: els, Typ: typ}
}

// parseCall parses the arguments of a function call; the opening
// parenthesis has been consumed.
func (p *exprParser) parseCall(name string) plan.ScalarExpr {
	if strings.EqualFold(name, "exists") {
		t := p.next()
		if t.kind != tokSubquery {
			p.errorf("exists requires a subquery")
		}
		p.expectPunct(")")
		return &plan.SubqueryExpr{
			Kind: plan.ExistsSubquery, Subquery: p.b.subquery(t.text), Typ: types.Bool,
		}
	}
	if lower := strings.ToLower(name); builtins.IsAggregate(lower) {
		agg := &plan.AggregateExpr{Name: lower}
		var argTypes []*types.T
		if !p.acceptPunct("*") {
			agg.Distinct = p.acceptKeyword("distinct")
			agg.Arg = p.parseOr()
			argTypes = []*types.T{agg.Arg.Type()}
		}
		p.expectPunct(")")
		ov, err := p.b.resolver.ResolveOverload(lower, argTypes)
		if err != nil {
			panic(err)
		}
		agg.Typ = ov.Return
		return agg
	}
	var args []plan.ScalarExpr
	if !p.acceptPunct(")") {
		for {
			args = append(args, p.parseOr())
			if !p.acceptPunct(",") {
				break
			}
		}
		p.expectPunct(")")
	}
	return p.b.function(name, args...)
}
