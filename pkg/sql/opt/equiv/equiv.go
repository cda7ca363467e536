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

// Package equiv tracks which values have been declared equivalent to one
// another, such as columns equated by a join or filter condition. The
// relation is reflexive, symmetric and (within a traversal bound) transitive.
package equiv

import "sort"

// DefaultMaxTraversals bounds the number of values visited by a single
// transitive query.
const DefaultMaxTraversals = 32

// Finder records equivalence edges between values of type T. Queries walk
// the edges breadth-first and give up once they have visited more than the
// traversal bound, so AreEquivalent may report a false negative on very
// large classes but never a false positive.
//
// A Finder is owned by one compilation and is not safe for concurrent use.
type Finder[T comparable] struct {
	edges         map[T][]T
	maxTraversals int
}

// NewFinder returns an empty Finder with the default traversal bound.
func NewFinder[T comparable]() *Finder[T] {
	return NewFinderWithBound[T](DefaultMaxTraversals)
}

// NewFinderWithBound returns an empty Finder that visits at most
// maxTraversals values per query.
func NewFinderWithBound[T comparable](maxTraversals int) *Finder[T] {
	return &Finder[T]{edges: make(map[T][]T), maxTraversals: maxTraversals}
}

// MarkEquivalent records that a and b are equivalent. Marking a value
// equivalent to itself, or repeating an existing edge, is a no-op.
func (f *Finder[T]) MarkEquivalent(a, b T) {
	if a == b || f.hasEdge(a, b) {
		return
	}
	f.edges[a] = append(f.edges[a], b)
	f.edges[b] = append(f.edges[b], a)
}

func (f *Finder[T]) hasEdge(a, b T) bool {
	for _, o := range f.edges[a] {
		if o == b {
			return true
		}
	}
	return false
}

// AreEquivalent returns true if b is reachable from a within the traversal
// bound. A value is always equivalent to itself.
func (f *Finder[T]) AreEquivalent(a, b T) bool {
	if a == b {
		return true
	}
	found := false
	f.walk(a, func(v T) bool {
		if v == b {
			found = true
			return false
		}
		return true
	})
	return found
}

// FindEquivalents returns every value reachable from x, excluding x itself,
// in breadth-first order. The result is truncated at the traversal bound.
func (f *Finder[T]) FindEquivalents(x T) []T {
	var res []T
	f.walk(x, func(v T) bool {
		res = append(res, v)
		return true
	})
	return res
}

// walk calls fn for every value reachable from start (excluding start) until
// fn returns false or the bound is exceeded.
func (f *Finder[T]) walk(start T, fn func(T) bool) {
	if len(f.edges[start]) == 0 {
		return
	}
	seen := map[T]struct{}{start: {}}
	queue := []T{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range f.edges[cur] {
			if _, ok := seen[next]; ok {
				continue
			}
			if len(seen) > f.maxTraversals {
				return
			}
			seen[next] = struct{}{}
			if !fn(next) {
				return
			}
			queue = append(queue, next)
		}
	}
}

// Pair is one recorded equivalence edge.
type Pair[T comparable] struct {
	Left, Right T
}

// EquivalencePairs returns the recorded edges with symmetric duplicates
// collapsed. If less is non-nil, each pair is oriented so that Left sorts
// first and the pairs are returned in sorted order; otherwise the order is
// unspecified.
func (f *Finder[T]) EquivalencePairs(less func(a, b T) bool) []Pair[T] {
	var res []Pair[T]
	seen := make(map[Pair[T]]struct{})
	for a, others := range f.edges {
		for _, b := range others {
			if _, ok := seen[Pair[T]{Left: b, Right: a}]; ok {
				continue
			}
			p := Pair[T]{Left: a, Right: b}
			seen[p] = struct{}{}
			if less != nil && less(b, a) {
				p = Pair[T]{Left: b, Right: a}
			}
			res = append(res, p)
		}
	}
	if less != nil {
		sort.Slice(res, func(i, j int) bool {
			if less(res[i].Left, res[j].Left) {
				return true
			}
			if less(res[j].Left, res[i].Left) {
				return false
			}
			return less(res[i].Right, res[j].Right)
		})
	}
	return res
}

// Empty returns true if no edges have been recorded.
func (f *Finder[T]) Empty() bool {
	return len(f.edges) == 0
}

// Clear removes every recorded edge.
func (f *Finder[T]) Clear() {
	f.edges = make(map[T][]T)
}
