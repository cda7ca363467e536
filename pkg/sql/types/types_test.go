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

import (
	"testing"

	"github.com/cockroachdb/redact"
	"github.com/stretchr/testify/require"
)

func TestFromString(t *testing.T) {
	for _, typ := range Scalar {
		parsed, ok := FromString(typ.String())
		require.True(t, ok, typ.String())
		require.Same(t, typ, parsed)
	}
	typ, ok := FromString("bigint")
	require.True(t, ok)
	require.Same(t, Int, typ)
	_, ok = FromString("geometry")
	require.False(t, ok)
}

func TestEquivalent(t *testing.T) {
	require.True(t, Int.Equivalent(Any))
	require.True(t, Unknown.Equivalent(String))
	require.False(t, Int.Equivalent(Decimal))
	require.True(t, Int.Identical(OfFamily(IntFamily)))
	require.True(t, Float.IsNumeric())
	require.False(t, String.IsNumeric())
	require.Equal(t, "decimal", string(redact.Sprint(Decimal).Redact()))
}
