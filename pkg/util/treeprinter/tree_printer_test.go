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

package treeprinter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTreePrinter(t *testing.T) {
	n := New()

	r := n.Child("root")
	r.Child("1")
	n12 := r.Child("2")
	n12.Child("2.1")
	n12.Childf("2.%d", 2).Child("2.2.1")
	r.Child("3")

	exp := `root
 ├── 1
 ├── 2
 │    ├── 2.1
 │    └── 2.2
 │         └── 2.2.1
 └── 3
`
	require.Equal(t, exp, n.String())
}
