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

// CheckPlan verifies the structural invariants of the plan:
//
//   - every input's parent pointer refers to the node that holds it, and
//     the root has no parent;
//   - no node is reachable twice, so the tree is acyclic;
//   - every column referenced by an expression belongs to a source whose
//     rows are visible to the node owning the expression: a source in the
//     output of one of the node's inputs, a source bound by the outer side
//     of an enclosing map, or a source visible to the node that owns an
//     enclosing subquery.
//
// Violations are programming defects and are reported as assertion
// failures.
func CheckPlan(p *Plan) error {
	if p.root == nil {
		return errors.AssertionFailedf("plan has no root")
	}
	c := checker{seen: make(map[Node]struct{}), visibility: true}
	return c.check(p.root, nil /* parent */, &SourceSet{})
}

// CheckTree verifies the parent pointers, acyclicity and column positions of
// the plan like CheckPlan, but not the visibility of referenced sources. A
// plan as produced by a translator may reference the sources below an
// Aggregate or Project from the nodes above it; the rewrite rules resolve
// those references.
func CheckTree(p *Plan) error {
	if p.root == nil {
		return errors.AssertionFailedf("plan has no root")
	}
	c := checker{seen: make(map[Node]struct{})}
	return c.check(p.root, nil /* parent */, &SourceSet{})
}

type checker struct {
	seen       map[Node]struct{}
	visibility bool
}

func (c *checker) check(n Node, parent Node, bound *SourceSet) error {
	if _, ok := c.seen[n]; ok {
		return errors.AssertionFailedf("%s (node %d) is reachable more than once", n.Op(), n.ID())
	}
	c.seen[n] = struct{}{}
	if n.Parent() != parent {
		return errors.AssertionFailedf("%s (node %d) has the wrong parent", n.Op(), n.ID())
	}

	visible := bound.Copy()
	for i := 0; i < n.ChildCount(); i++ {
		visible.UnionWith(OutputSourceSet(n.Child(i)))
	}
	for i, cnt := 0, n.ExprCount(); i < cnt; i++ {
		if err := c.checkExpr(n, n.Expr(i), visible); err != nil {
			return err
		}
	}

	for i := 0; i < n.ChildCount(); i++ {
		childBound := bound
		if m, ok := n.(*MapJoin); ok && i == 1 {
			childBound = bound.Copy()
			childBound.UnionWith(OutputSourceSet(m.Outer()))
		}
		if err := c.check(n.Child(i), n, childBound); err != nil {
			return err
		}
	}
	return nil
}

func (c *checker) checkExpr(owner Node, e ScalarExpr, visible *SourceSet) error {
	for _, col := range ExprColumns(e) {
		if col.Position < 0 || col.Position >= col.Source.ColumnCount() {
			return errors.AssertionFailedf(
				"%s (node %d) references column %d of %s (node %d), which has %d columns",
				owner.Op(), owner.ID(), col.Position, col.Source.Op(), col.Source.ID(),
				col.Source.ColumnCount(),
			)
		}
		if c.visibility && !visible.Contains(col.Source) {
			return errors.AssertionFailedf(
				"%s (node %d) references %s which is not visible",
				owner.Op(), owner.ID(), ExprString(col),
			)
		}
	}
	for _, sub := range ExprSubqueries(e) {
		if err := c.check(sub, nil /* parent */, visible); err != nil {
			return err
		}
	}
	return nil
}
