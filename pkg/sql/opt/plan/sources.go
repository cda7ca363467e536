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

import "golang.org/x/tools/container/intsets"

// SourceSet is a set of nodes keyed by NodeID. A SourceSet must not be
// copied by value once it has members; use Copy.
type SourceSet struct {
	s intsets.Sparse
}

// MakeSourceSet returns a set containing the given nodes.
func MakeSourceSet(nodes ...Node) *SourceSet {
	s := &SourceSet{}
	for _, n := range nodes {
		s.Add(n)
	}
	return s
}

// Add inserts n.
func (s *SourceSet) Add(n Node) { s.s.Insert(int(n.ID())) }

// AddID inserts the node with the given ID.
func (s *SourceSet) AddID(id NodeID) { s.s.Insert(int(id)) }

// Contains returns true if n is in the set.
func (s *SourceSet) Contains(n Node) bool { return s.s.Has(int(n.ID())) }

// ContainsID returns true if the node with the given ID is in the set.
func (s *SourceSet) ContainsID(id NodeID) bool { return s.s.Has(int(id)) }

// UnionWith adds the members of o.
func (s *SourceSet) UnionWith(o *SourceSet) { s.s.UnionWith(&o.s) }

// IntersectionWith removes the members not in o.
func (s *SourceSet) IntersectionWith(o *SourceSet) { s.s.IntersectionWith(&o.s) }

// Intersects returns true if the sets share a member.
func (s *SourceSet) Intersects(o *SourceSet) bool { return s.s.Intersects(&o.s) }

// SubsetOf returns true if every member is in o.
func (s *SourceSet) SubsetOf(o *SourceSet) bool { return s.s.SubsetOf(&o.s) }

// Empty returns true if the set has no members.
func (s *SourceSet) Empty() bool { return s.s.IsEmpty() }

// Len returns the number of members.
func (s *SourceSet) Len() int { return s.s.Len() }

// Copy returns an independent copy.
func (s *SourceSet) Copy() *SourceSet {
	c := &SourceSet{}
	c.s.Copy(&s.s)
	return c
}

// IDs returns the members in increasing order.
func (s *SourceSet) IDs() []NodeID {
	ints := s.s.AppendTo(nil)
	res := make([]NodeID, len(ints))
	for i, v := range ints {
		res[i] = NodeID(v)
	}
	return res
}

func (s *SourceSet) String() string { return s.s.String() }

// OutputSources returns the column sources whose columns are visible in the
// output rows of n. A map's output rows are the rows of its inner side;
// semi and anti joins output only their left rows.
func OutputSources(n Node) []ColumnSource {
	var res []ColumnSource
	var collect func(n Node)
	collect = func(n Node) {
		switch t := n.(type) {
		case *TableSource:
			res = append(res, t)
		case *Values:
			res = append(res, t)
		case *Project:
			res = append(res, t)
		case *Aggregate:
			res = append(res, t)
		case *Join:
			collect(t.Left())
			if t.Kind != SemiJoin && t.Kind != AntiJoin {
				collect(t.Right())
			}
		case *MapJoin:
			collect(t.Inner())
		case *InsertStatement, *UpdateStatement, *DeleteStatement:
		default:
			// Pass-through nodes and group containers.
			for i := 0; i < n.ChildCount(); i++ {
				collect(n.Child(i))
			}
		}
	}
	collect(n)
	return res
}

// OutputSourceSet is OutputSources as a set.
func OutputSourceSet(n Node) *SourceSet {
	s := &SourceSet{}
	for _, src := range OutputSources(n) {
		s.Add(src)
	}
	return s
}

// Tables returns the table sources in the subtree rooted at n, in
// depth-first order, not including subquery plans.
func Tables(n Node) []*TableSource {
	var res []*TableSource
	Walk(n, PreOrder(func(n Node) bool {
		if t, ok := n.(*TableSource); ok {
			res = append(res, t)
		}
		return true
	}))
	return res
}

// SubtreeSources returns the set of all nodes in the subtree rooted at n,
// not including subquery plans.
func SubtreeSources(n Node) *SourceSet {
	s := &SourceSet{}
	Walk(n, PreOrder(func(n Node) bool {
		s.Add(n)
		return true
	}))
	return s
}

// ExprColumns returns the column references within e, in pre-order, not
// including references inside subquery plans.
func ExprColumns(e ScalarExpr) []*ColumnExpr {
	var res []*ColumnExpr
	WalkExpr(e, ExprPreOrder(func(e ScalarExpr) bool {
		if c, ok := e.(*ColumnExpr); ok {
			res = append(res, c)
		}
		return true
	}))
	return res
}

// ReferencedSources returns the sources of every column referenced within e,
// including correlated references made by subquery plans within e.
func ReferencedSources(e ScalarExpr) *SourceSet {
	s := &SourceSet{}
	AddReferencedSources(e, s)
	return s
}

// AddReferencedSources adds the sources referenced within e to s.
func AddReferencedSources(e ScalarExpr, s *SourceSet) {
	for _, c := range ExprColumns(e) {
		s.Add(c.Source)
	}
	for _, sub := range ExprSubqueries(e) {
		// Only references that escape the subquery count.
		var inner SourceSet
		var refs []*ColumnExpr
		WalkWithExprs(sub,
			PreOrder(func(n Node) bool {
				inner.Add(n)
				return true
			}),
			ExprPreOrder(func(e ScalarExpr) bool {
				if c, ok := e.(*ColumnExpr); ok {
					refs = append(refs, c)
				}
				return true
			}),
		)
		for _, c := range refs {
			if !inner.Contains(c.Source) {
				s.Add(c.Source)
			}
		}
	}
}

// IsConstant returns true if e references no columns and contains no
// subqueries or aggregates.
func IsConstant(e ScalarExpr) bool {
	constant := true
	WalkExpr(e, ExprPreOrder(func(e ScalarExpr) bool {
		switch e.(type) {
		case *ColumnExpr, *SubqueryExpr, *AggregateExpr:
			constant = false
		}
		return constant
	}))
	return constant
}
