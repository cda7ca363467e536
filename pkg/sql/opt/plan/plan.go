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
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/planrw/pkg/sql/opt/cat"
	"github.com/cockroachdb/planrw/pkg/sql/opt/equiv"
)

// ColumnKey identifies a column of a column source within a plan.
type ColumnKey struct {
	Source   NodeID
	Position int
}

// Less orders keys by source, then position.
func (k ColumnKey) Less(o ColumnKey) bool {
	if k.Source != o.Source {
		return k.Source < o.Source
	}
	return k.Position < o.Position
}

// Plan owns the nodes of one compilation: it assigns node IDs, tracks the
// root, and carries the per-statement state that rules produce alongside
// the tree.
type Plan struct {
	nextID     NodeID
	root       Node
	paramCount int

	equivs   *equiv.Finder[ColumnKey]
	bindings *Bindings

	// RequiresStepIsolation is set when a DML statement both reads and
	// writes its target table in a way that needs the reads to be isolated
	// from the writes.
	RequiresStepIsolation bool
}

// New returns an empty plan for a statement with the given number of
// parameters.
func New(paramCount int) *Plan {
	return &Plan{
		paramCount: paramCount,
		equivs:     equiv.NewFinder[ColumnKey](),
		bindings:   &Bindings{},
	}
}

// Root returns the root of the plan.
func (p *Plan) Root() Node { return p.root }

// SetRoot makes n the root of the plan. n must not have a parent.
func (p *Plan) SetRoot(n Node) {
	if n.Parent() != nil {
		panic(errors.AssertionFailedf("root %s has a parent", n.Op()))
	}
	p.root = n
}

// ParamCount returns the number of statement parameters.
func (p *Plan) ParamCount() int { return p.paramCount }

// ColumnEquivalences returns the column equivalences found in the plan's
// predicates.
func (p *Plan) ColumnEquivalences() *equiv.Finder[ColumnKey] { return p.equivs }

// ColumnsEquivalent returns true if the two columns are the same column or
// were found to be equivalent.
func (p *Plan) ColumnsEquivalent(a, b *ColumnExpr) bool {
	return p.equivs.AreEquivalent(a.Key(), b.Key())
}

// Bindings returns the binding-slot assignment.
func (p *Plan) Bindings() *Bindings { return p.bindings }

func (p *Plan) init(n Node) {
	p.nextID++
	n.base().id = p.nextID
}

func (p *Plan) link(parent Node, children ...Node) {
	for _, c := range children {
		if c.Parent() != nil {
			panic(errors.AssertionFailedf("%s is already attached to %s", c.Op(), c.Parent().Op()))
		}
		c.base().parent = parent
	}
}

// ConstructTableSource returns a reference to a catalog table.
func (p *Plan) ConstructTableSource(tab cat.Table, alias string) *TableSource {
	if alias == "" {
		alias = tab.Name()
	}
	t := &TableSource{Table: tab, Alias: alias, Required: true}
	p.init(t)
	return t
}

// ConstructValues returns a literal row set.
func (p *Plan) ConstructValues(cols []ValuesColumn, rows [][]ScalarExpr) *Values {
	v := &Values{Columns: cols, Rows: rows}
	p.init(v)
	return v
}

// ConstructSelect returns a filter over input.
func (p *Plan) ConstructSelect(input Node, conds ...ScalarExpr) *Select {
	s := &Select{}
	s.input = input
	s.Conditions = conds
	p.init(s)
	p.link(s, input)
	return s
}

// ConstructProject returns a projection of input.
func (p *Plan) ConstructProject(input Node, exprs []ScalarExpr, names []string) *Project {
	pr := &Project{Exprs: exprs, Names: names}
	pr.input = input
	p.init(pr)
	p.link(pr, input)
	return pr
}

// ConstructSort returns an ordering of input.
func (p *Plan) ConstructSort(input Node, keys ...SortKey) *Sort {
	s := &Sort{Keys: keys}
	s.input = input
	p.init(s)
	p.link(s, input)
	return s
}

// ConstructLimit returns a row limit over input.
func (p *Plan) ConstructLimit(input Node, count, offset int64) *Limit {
	l := &Limit{Count: count, Offset: offset}
	l.input = input
	p.init(l)
	p.link(l, input)
	return l
}

// ConstructDistinct returns a duplicate-eliminating node over input.
func (p *Plan) ConstructDistinct(input Node) *Distinct {
	d := &Distinct{}
	d.input = input
	p.init(d)
	p.link(d, input)
	return d
}

// ConstructAggregate returns a grouping of input.
func (p *Plan) ConstructAggregate(
	input Node, groupBy []ScalarExpr, aggs []*AggregateExpr,
) *Aggregate {
	a := &Aggregate{GroupBy: groupBy, Aggregates: aggs}
	a.input = input
	p.init(a)
	p.link(a, input)
	return a
}

// ConstructNullIfEmpty wraps input.
func (p *Plan) ConstructNullIfEmpty(input Node) *NullIfEmpty {
	n := &NullIfEmpty{}
	n.input = input
	p.init(n)
	p.link(n, input)
	return n
}

// ConstructOnlyIfEmpty wraps input.
func (p *Plan) ConstructOnlyIfEmpty(input Node) *OnlyIfEmpty {
	n := &OnlyIfEmpty{}
	n.input = input
	p.init(n)
	p.link(n, input)
	return n
}

// ConstructJoin returns a join of left and right. Tables on the optional
// side of an outer join are marked as not required.
func (p *Plan) ConstructJoin(kind JoinKind, left, right Node, conds ...ScalarExpr) *Join {
	j := &Join{Kind: kind}
	j.left, j.right = left, right
	j.Conditions = conds
	p.init(j)
	p.link(j, left, right)
	switch kind {
	case LeftJoin:
		setRequired(right, false)
	case RightJoin:
		setRequired(left, false)
	case FullJoin:
		setRequired(left, false)
		setRequired(right, false)
	}
	return j
}

// setRequired sets the Required flag of every table in the subtree.
func setRequired(n Node, required bool) {
	Walk(n, PreOrder(func(n Node) bool {
		if t, ok := n.(*TableSource); ok {
			t.Required = required
		}
		return true
	}))
}

// ConstructMapJoin returns a map of inner over outer.
func (p *Plan) ConstructMapJoin(kind JoinKind, outer, inner Node) *MapJoin {
	m := &MapJoin{Kind: kind}
	m.left, m.right = outer, inner
	p.init(m)
	p.link(m, outer, inner)
	return m
}

// ConstructGroupJoinTree returns a container for the tree rooted at root.
// The tables of the tree become the container's inputs.
func (p *Plan) ConstructGroupJoinTree(group *TableGroup, root *GroupJoinNode) *GroupJoinTree {
	g := &GroupJoinTree{Group: group, Root: root}
	p.init(g)
	g.members = root.Tables()
	for _, t := range g.members {
		p.link(g, t)
	}
	return g
}

// AddGroupJoinNode links a new node into a tree after construction, adding
// its table as an input of the container.
func (p *Plan) AddGroupJoinNode(g *GroupJoinTree, parent, child *GroupJoinNode) {
	parent.AddChild(child)
	for _, t := range child.Tables() {
		p.link(g, t)
	}
	g.members = g.Root.Tables()
}

// ConstructTableJoins returns a container for the joins among the members
// of group.
func (p *Plan) ConstructTableJoins(group *TableGroup, input Node, conds ...ScalarExpr) *TableJoins {
	t := &TableJoins{Group: group}
	t.input = input
	t.Conditions = conds
	p.init(t)
	p.link(t, input)
	return t
}

// ConstructSelectQuery returns a SELECT statement root.
func (p *Plan) ConstructSelectQuery(input Node) *SelectQuery {
	s := &SelectQuery{}
	s.input = input
	p.init(s)
	p.link(s, input)
	return s
}

// ConstructInsert returns an INSERT statement root.
func (p *Plan) ConstructInsert(target cat.Table, input Node) *InsertStatement {
	s := &InsertStatement{Target: target}
	s.input = input
	p.init(s)
	p.link(s, input)
	return s
}

// ConstructUpdate returns an UPDATE statement root.
func (p *Plan) ConstructUpdate(
	target cat.Table, input Node, setColumns []int, values []ScalarExpr,
) *UpdateStatement {
	s := &UpdateStatement{Target: target, SetColumns: setColumns, Values: values}
	s.input = input
	p.init(s)
	p.link(s, input)
	return s
}

// ConstructDelete returns a DELETE statement root.
func (p *Plan) ConstructDelete(target cat.Table, input Node) *DeleteStatement {
	s := &DeleteStatement{Target: target}
	s.input = input
	p.init(s)
	p.link(s, input)
	return s
}

// ConstructSubquery returns the root of a nested plan.
func (p *Plan) ConstructSubquery(input Node) *Subquery {
	s := &Subquery{}
	s.input = input
	p.init(s)
	p.link(s, input)
	return s
}

// Replace puts new in old's position: the slot of old's parent that held
// old now holds new, and old is detached. If old was the root, new becomes
// the root. new must either be detached or currently sit inside old's
// subtree, in which case it is unlinked from its previous parent.
func (p *Plan) Replace(old, new Node) {
	if old == new {
		return
	}
	if cur := new.Parent(); cur != nil {
		if !isWithin(cur, old) {
			panic(errors.AssertionFailedf(
				"cannot replace %s with %s attached elsewhere", old.Op(), new.Op()))
		}
		new.base().parent = nil
	}
	parent := old.Parent()
	if parent == nil {
		if p.root != old {
			panic(errors.AssertionFailedf("cannot replace detached %s", old.Op()))
		}
		p.root = new
		old.base().parent = nil
		return
	}
	if isWithin(parent, new) {
		panic(errors.AssertionFailedf("replacing %s with %s creates a cycle", old.Op(), new.Op()))
	}
	idx := childIndex(parent, old)
	parent.setChild(idx, new)
	new.base().parent = parent
	old.base().parent = nil
}

// SetChild makes child the ith input of n. The previous input is detached.
// child must be detached, or be the previous input's descendant.
func (p *Plan) SetChild(n Node, i int, child Node) {
	prev := n.Child(i)
	if prev == child {
		return
	}
	if cur := child.Parent(); cur != nil {
		if !isWithin(cur, prev) {
			panic(errors.AssertionFailedf(
				"cannot attach %s to %s: already attached elsewhere", child.Op(), n.Op()))
		}
	}
	if isWithin(n, child) {
		panic(errors.AssertionFailedf("attaching %s to %s creates a cycle", child.Op(), n.Op()))
	}
	n.setChild(i, child)
	child.base().parent = n
	if prev.Parent() == n {
		prev.base().parent = nil
	}
}

// InsertAbove puts a new node between n and its parent: construct is called
// with n detached and must return a node that has n as an input. The new
// node takes n's place, becoming the root if n was the root.
func (p *Plan) InsertAbove(n Node, construct func(input Node) Node) Node {
	parent := n.Parent()
	idx := -1
	if parent != nil {
		idx = childIndex(parent, n)
	} else if p.root != n {
		panic(errors.AssertionFailedf("cannot insert above detached %s", n.Op()))
	}
	n.base().parent = nil
	nn := construct(n)
	if n.Parent() != nn {
		panic(errors.AssertionFailedf("%s inserted above %s does not consume it", nn.Op(), n.Op()))
	}
	if parent != nil {
		parent.setChild(idx, nn)
		nn.base().parent = parent
	} else {
		p.root = nn
	}
	return nn
}

// Detach unlinks n from its parent, leaving the parent's slot to be filled
// by the caller with SetChild. It is used when rearranging several nodes at
// once.
func (p *Plan) Detach(n Node) {
	n.base().parent = nil
}

// isWithin returns true if n is anc or one of its descendants, following
// parent pointers.
func isWithin(n, anc Node) bool {
	for ; n != nil; n = n.Parent() {
		if n == anc {
			return true
		}
	}
	return false
}

// IsAncestor returns true if anc is n or one of n's ancestors.
func IsAncestor(anc, n Node) bool { return isWithin(n, anc) }

func childIndex(parent, child Node) int {
	for i, n := 0, parent.ChildCount(); i < n; i++ {
		if parent.Child(i) == child {
			return i
		}
	}
	panic(errors.AssertionFailedf("%s is not an input of %s", child.Op(), parent.Op()))
}

// ChildIndex returns the position of child among parent's inputs.
func ChildIndex(parent, child Node) int { return childIndex(parent, child) }
