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

// Package builtins provides the default overload and cast resolution service
// used by the rewriter's tests and command-line tool. It covers the
// functions the rewriter itself may synthesize.
package builtins

import (
	"github.com/cockroachdb/planrw/pkg/sql/pgwire/pgcode"
	"github.com/cockroachdb/planrw/pkg/sql/pgwire/pgerror"
	"github.com/cockroachdb/planrw/pkg/sql/types"
)

// Names of the functions the rewriter builds or inspects.
const (
	Plus     = "plus"
	Minus    = "minus"
	Times    = "times"
	Divide   = "divide"
	IsNull   = "isNull"
	Coalesce = "coalesce"

	Sum   = "sum"
	Count = "count"
	Avg   = "avg"
	Min   = "min"
	Max   = "max"
	First = "first"
)

// IsAggregate returns true if name is an aggregate function.
func IsAggregate(name string) bool {
	switch name {
	case Sum, Count, Avg, Min, Max, First:
		return true
	}
	return false
}

type resolver struct{}

// Resolver is the default types.Resolver.
var Resolver types.Resolver = resolver{}

var _ types.Resolver = resolver{}

// ResolveOverload implements types.Resolver.
func (resolver) ResolveOverload(name string, args []*types.T) (types.Overload, error) {
	ov := types.Overload{Name: name, Params: args}
	switch name {
	case Plus, Minus, Times, Divide:
		if len(args) != 2 {
			return ov, wrongArgCount(name, 2, len(args))
		}
		ret, ok := arithmeticReturn(name, args[0], args[1])
		if !ok {
			return ov, unknownSignature(name, args)
		}
		ov.Return = ret
	case IsNull:
		if len(args) != 1 {
			return ov, wrongArgCount(name, 1, len(args))
		}
		ov.Return = types.Bool
	case Coalesce:
		if len(args) == 0 {
			return ov, wrongArgCount(name, 1, 0)
		}
		ov.Return = types.Unknown
		for _, a := range args {
			if a.Family() == types.UnknownFamily {
				continue
			}
			if ov.Return.Family() == types.UnknownFamily {
				ov.Return = a
			} else if !ov.Return.Identical(a) {
				return ov, unknownSignature(name, args)
			}
		}
	case Count:
		// COUNT(*) has no arguments.
		if len(args) > 1 {
			return ov, wrongArgCount(name, 1, len(args))
		}
		ov.Aggregate = true
		ov.Return = types.Int
	case Sum, Avg:
		if len(args) != 1 {
			return ov, wrongArgCount(name, 1, len(args))
		}
		ov.Aggregate = true
		switch args[0].Family() {
		case types.IntFamily, types.DecimalFamily:
			ov.Return = types.Decimal
		case types.FloatFamily:
			ov.Return = types.Float
		default:
			return ov, unknownSignature(name, args)
		}
	case Min, Max, First:
		if len(args) != 1 {
			return ov, wrongArgCount(name, 1, len(args))
		}
		ov.Aggregate = true
		ov.Return = args[0]
	default:
		return ov, pgerror.Newf(pgcode.UndefinedFunction, "unknown function: %s()", name)
	}
	return ov, nil
}

func arithmeticReturn(name string, l, r *types.T) (*types.T, bool) {
	if !l.IsNumeric() || !r.IsNumeric() {
		return nil, false
	}
	switch {
	case l.Family() == types.FloatFamily || r.Family() == types.FloatFamily:
		return types.Float, true
	case l.Family() == types.DecimalFamily || r.Family() == types.DecimalFamily:
		return types.Decimal, true
	case name == Divide:
		// Integer division produces a decimal.
		return types.Decimal, true
	}
	return types.Int, true
}

// Cast implements types.Resolver.
func (resolver) Cast(from, to *types.T) (types.Cast, error) {
	c := types.Cast{From: from, To: to}
	switch {
	case from.Identical(to):
		c.Identity = true
	case from.Family() == types.UnknownFamily:
	case from.IsNumeric() && to.IsNumeric():
	case to.Family() == types.StringFamily:
	case from.Family() == types.StringFamily && (to.IsNumeric() || to.Family() == types.BoolFamily):
	case from.Family() == types.BoolFamily && to.Family() == types.IntFamily:
	default:
		return c, pgerror.Newf(pgcode.CannotCoerce, "invalid cast: %s -> %s", from, to)
	}
	return c, nil
}

func wrongArgCount(name string, expected, actual int) error {
	return pgerror.Newf(pgcode.UndefinedFunction,
		"%s(): expected %d arguments, got %d", name, expected, actual)
}

func unknownSignature(name string, args []*types.T) error {
	return pgerror.Newf(pgcode.UndefinedFunction,
		"unknown signature: %s%s", name, formatArgs(args))
}

func formatArgs(args []*types.T) string {
	s := "("
	for i, a := range args {
		if i > 0 {
			s += ", "
		}
		s += a.String()
	}
	return s + ")"
}
