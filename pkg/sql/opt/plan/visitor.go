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

// Visitor is the callback interface of Walk.
type Visitor interface {
	// VisitEnter is called before the inputs of a node with inputs are
	// visited. Returning false skips the inputs.
	VisitEnter(n Node) bool

	// VisitLeave is called after the inputs of a node with inputs have been
	// visited. Returning false stops the walk.
	VisitLeave(n Node) bool

	// Visit is called for a node without inputs. Returning false stops the
	// walk.
	Visit(n Node) bool
}

// Walk visits n and its inputs. It returns false if the visitor stopped the
// walk. Nested subquery plans are not visited; see WalkWithExprs.
func Walk(n Node, v Visitor) bool {
	if n.ChildCount() == 0 {
		return v.Visit(n)
	}
	if v.VisitEnter(n) {
		// Inputs may be replaced while they are visited, so the count is
		// re-read on every iteration.
		for i := 0; i < n.ChildCount(); i++ {
			if !Walk(n.Child(i), v) {
				return false
			}
		}
	}
	return v.VisitLeave(n)
}

// PreOrder adapts a function to the Visitor interface. The function is
// called before the inputs of each node are visited; returning false skips
// them.
type PreOrder func(n Node) bool

var _ Visitor = PreOrder(nil)

// VisitEnter is part of the Visitor interface.
func (f PreOrder) VisitEnter(n Node) bool { return f(n) }

// VisitLeave is part of the Visitor interface.
func (f PreOrder) VisitLeave(Node) bool { return true }

// Visit is part of the Visitor interface.
func (f PreOrder) Visit(n Node) bool {
	f(n)
	return true
}

// PostOrder adapts a function to the Visitor interface. The function is
// called after the inputs of each node have been visited.
type PostOrder func(n Node)

var _ Visitor = PostOrder(nil)

// VisitEnter is part of the Visitor interface.
func (f PostOrder) VisitEnter(Node) bool { return true }

// VisitLeave is part of the Visitor interface.
func (f PostOrder) VisitLeave(n Node) bool {
	f(n)
	return true
}

// Visit is part of the Visitor interface.
func (f PostOrder) Visit(n Node) bool {
	f(n)
	return true
}

// ExprVisitor is the callback interface of WalkExpr, with the same protocol
// as Visitor.
type ExprVisitor interface {
	VisitEnter(e ScalarExpr) bool
	VisitLeave(e ScalarExpr) bool
	Visit(e ScalarExpr) bool
}

// WalkExpr visits e and its operands. It returns false if the visitor
// stopped the walk. The plans of subqueries are not visited.
func WalkExpr(e ScalarExpr, v ExprVisitor) bool {
	if e.ChildCount() == 0 {
		return v.Visit(e)
	}
	if v.VisitEnter(e) {
		for i := 0; i < e.ChildCount(); i++ {
			if !WalkExpr(e.Child(i), v) {
				return false
			}
		}
	}
	return v.VisitLeave(e)
}

// ExprPreOrder adapts a function to the ExprVisitor interface. Returning
// false from the function skips the operands.
type ExprPreOrder func(e ScalarExpr) bool

var _ ExprVisitor = ExprPreOrder(nil)

// VisitEnter is part of the ExprVisitor interface.
func (f ExprPreOrder) VisitEnter(e ScalarExpr) bool { return f(e) }

// VisitLeave is part of the ExprVisitor interface.
func (f ExprPreOrder) VisitLeave(ScalarExpr) bool { return true }

// Visit is part of the ExprVisitor interface.
func (f ExprPreOrder) Visit(e ScalarExpr) bool {
	f(e)
	return true
}

// WalkWithExprs visits n, its inputs, and the expressions of every visited
// node. Expressions of a node are visited after VisitEnter (or Visit) of the
// node and before its inputs; the plans of subqueries found in them are
// walked with the same visitors. ev may be nil.
func WalkWithExprs(n Node, v Visitor, ev ExprVisitor) bool {
	w := exprWalker{v: v, ev: ev}
	return w.walk(n)
}

type exprWalker struct {
	v  Visitor
	ev ExprVisitor
}

func (w *exprWalker) walk(n Node) bool {
	if n.ChildCount() == 0 {
		if !w.v.Visit(n) {
			return false
		}
		return w.exprs(n)
	}
	if w.v.VisitEnter(n) {
		if !w.exprs(n) {
			return false
		}
		for i := 0; i < n.ChildCount(); i++ {
			if !w.walk(n.Child(i)) {
				return false
			}
		}
	}
	return w.v.VisitLeave(n)
}

func (w *exprWalker) exprs(n Node) bool {
	for i, cnt := 0, n.ExprCount(); i < cnt; i++ {
		if !w.expr(n.Expr(i)) {
			return false
		}
	}
	return true
}

func (w *exprWalker) expr(e ScalarExpr) bool {
	if w.ev != nil && !WalkExpr(e, w.ev) {
		return false
	}
	for _, sub := range ExprSubqueries(e) {
		if !w.walk(sub) {
			return false
		}
	}
	return true
}

// ExprRewriter is the callback interface of RewriteExpr.
type ExprRewriter interface {
	// ChildrenFirst returns true if the operands of e are to be rewritten
	// (and replaced in e) before e itself.
	ChildrenFirst(e ScalarExpr) bool

	// Rewrite returns e or its replacement. When ChildrenFirst(e) is false
	// and Rewrite returns a replacement, the replacement is returned as is
	// and the operands of the original are not visited.
	Rewrite(e ScalarExpr) ScalarExpr
}

// RewriteExpr rewrites e with r and returns the result, which may be e
// itself.
func RewriteExpr(e ScalarExpr, r ExprRewriter) ScalarExpr {
	if r.ChildrenFirst(e) {
		rewriteChildren(e, r)
		return r.Rewrite(e)
	}
	if ne := r.Rewrite(e); ne != e {
		return ne
	}
	rewriteChildren(e, r)
	return e
}

func rewriteChildren(e ScalarExpr, r ExprRewriter) {
	for i, n := 0, e.ChildCount(); i < n; i++ {
		c := e.Child(i)
		if nc := RewriteExpr(c, r); nc != c {
			e.SetChild(i, nc)
		}
	}
}

// BottomUp is an ExprRewriter that rewrites operands before the expression
// that contains them.
type BottomUp func(e ScalarExpr) ScalarExpr

var _ ExprRewriter = BottomUp(nil)

// ChildrenFirst is part of the ExprRewriter interface.
func (BottomUp) ChildrenFirst(ScalarExpr) bool { return true }

// Rewrite is part of the ExprRewriter interface.
func (f BottomUp) Rewrite(e ScalarExpr) ScalarExpr { return f(e) }

// TopDown is an ExprRewriter that rewrites an expression before its
// operands, without descending into replacements.
type TopDown func(e ScalarExpr) ScalarExpr

var _ ExprRewriter = TopDown(nil)

// ChildrenFirst is part of the ExprRewriter interface.
func (TopDown) ChildrenFirst(ScalarExpr) bool { return false }

// Rewrite is part of the ExprRewriter interface.
func (f TopDown) Rewrite(e ScalarExpr) ScalarExpr { return f(e) }

// RewriteNodeExprs rewrites every expression slot of n.
func RewriteNodeExprs(n Node, r ExprRewriter) {
	for i, cnt := 0, n.ExprCount(); i < cnt; i++ {
		e := n.Expr(i)
		if ne := RewriteExpr(e, r); ne != e {
			n.SetExpr(i, ne)
		}
	}
}

// RewritePlanExprs rewrites every expression slot of every node in the
// subtree rooted at n, including the plans of subqueries.
func RewritePlanExprs(n Node, r ExprRewriter) {
	Walk(n, PostOrder(func(n Node) {
		for _, sub := range NodeSubqueries(n) {
			RewritePlanExprs(sub, r)
		}
		RewriteNodeExprs(n, r)
	}))
}

// NodeSubqueries returns the subquery plans referenced by the expressions of
// n.
func NodeSubqueries(n Node) []*Subquery {
	var res []*Subquery
	for i, cnt := 0, n.ExprCount(); i < cnt; i++ {
		res = append(res, ExprSubqueries(n.Expr(i))...)
	}
	return res
}

// ExprSubqueries returns the subquery plans referenced within e.
func ExprSubqueries(e ScalarExpr) []*Subquery {
	var res []*Subquery
	WalkExpr(e, ExprPreOrder(func(e ScalarExpr) bool {
		if sub, ok := e.(*SubqueryExpr); ok {
			res = append(res, sub.Subquery)
		}
		return true
	}))
	return res
}
