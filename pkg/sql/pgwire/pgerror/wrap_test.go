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

package pgerror_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/planrw/pkg/sql/pgwire/pgcode"
	"github.com/cockroachdb/planrw/pkg/sql/pgwire/pgerror"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	testData := []struct {
		err  error
		code pgcode.Code
	}{
		{errors.New("woo"), pgcode.FeatureNotSupported},
		{pgerror.New(pgcode.Grouping, "inner"), pgcode.Grouping},
		{errors.AssertionFailedf("bad"), pgcode.Internal},
	}

	for i, test := range testData {
		werr := pgerror.Wrap(test.err, pgcode.FeatureNotSupported, "woo")
		require.Equal(t, test.code, pgerror.GetPGCode(werr), "%d", i)
		require.True(t, pgerror.HasCandidateCode(werr))
		require.True(t, errors.Is(werr, test.err), "%d: original error not preserved", i)
	}
}

func TestNewf(t *testing.T) {
	err := pgerror.Newf(pgcode.InvalidParameterValue, "invalid value %q", "bogus")
	require.Equal(t, pgcode.InvalidParameterValue, pgerror.GetPGCode(err))
	require.Equal(t, `invalid value "bogus"`, err.Error())

	require.Equal(t, pgcode.Uncategorized, pgerror.GetPGCode(errors.New("plain")))
	require.Nil(t, pgerror.WithCandidateCode(nil, pgcode.Internal))
}
