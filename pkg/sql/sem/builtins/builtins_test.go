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

package builtins

import (
	"testing"

	"github.com/cockroachdb/planrw/pkg/sql/pgwire/pgcode"
	"github.com/cockroachdb/planrw/pkg/sql/pgwire/pgerror"
	"github.com/cockroachdb/planrw/pkg/sql/types"
	"github.com/stretchr/testify/require"
)

func TestResolveOverload(t *testing.T) {
	testCases := []struct {
		name     string
		args     []*types.T
		expected *types.T
		err      string
	}{
		{name: Plus, args: []*types.T{types.Int, types.Int}, expected: types.Int},
		{name: Divide, args: []*types.T{types.Int, types.Int}, expected: types.Decimal},
		{name: Divide, args: []*types.T{types.Decimal, types.Int}, expected: types.Decimal},
		{name: Times, args: []*types.T{types.Float, types.Int}, expected: types.Float},
		{name: Sum, args: []*types.T{types.Int}, expected: types.Decimal},
		{name: Avg, args: []*types.T{types.Float}, expected: types.Float},
		{name: Count, args: nil, expected: types.Int},
		{name: Max, args: []*types.T{types.String}, expected: types.String},
		{name: Coalesce, args: []*types.T{types.Unknown, types.Int}, expected: types.Int},
		{name: IsNull, args: []*types.T{types.String}, expected: types.Bool},
		{name: Plus, args: []*types.T{types.String, types.Int}, err: "unknown signature: plus(string, int)"},
		{name: Sum, args: []*types.T{types.Bool}, err: "unknown signature: sum(bool)"},
		{name: "nope", args: nil, err: "unknown function: nope()"},
	}
	for _, tc := range testCases {
		ov, err := Resolver.ResolveOverload(tc.name, tc.args)
		if tc.err != "" {
			require.EqualError(t, err, tc.err)
			require.Equal(t, pgcode.UndefinedFunction, pgerror.GetPGCode(err))
			continue
		}
		require.NoError(t, err)
		require.Same(t, tc.expected, ov.Return, tc.name)
		require.Equal(t, IsAggregate(tc.name), ov.Aggregate)
	}
}

func TestCast(t *testing.T) {
	c, err := Resolver.Cast(types.Int, types.Int)
	require.NoError(t, err)
	require.True(t, c.Identity)

	c, err = Resolver.Cast(types.Decimal, types.Float)
	require.NoError(t, err)
	require.False(t, c.Identity)

	_, err = Resolver.Cast(types.Float, types.Bool)
	require.EqualError(t, err, "invalid cast: float -> bool")
	require.Equal(t, pgcode.CannotCoerce, pgerror.GetPGCode(err))
}
