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

package types

// Overload is a resolved function signature.
type Overload struct {
	Name   string
	Params []*T
	Return *T
	// Aggregate is true for aggregate functions.
	Aggregate bool
}

// Cast is a resolved conversion between two types.
type Cast struct {
	From, To *T
	// Identity is true when the conversion does not change the value.
	Identity bool
}

// Resolver is the overload and cast resolution service. The rewriter never
// decides the type of an expression it builds on its own; it asks the
// resolver.
type Resolver interface {
	// ResolveOverload finds the overload of the named function that accepts
	// the given argument types.
	ResolveOverload(name string, args []*T) (Overload, error)
	// Cast returns the conversion from one type to another, or an error if no
	// such conversion exists.
	Cast(from, to *T) (Cast, error)
}
