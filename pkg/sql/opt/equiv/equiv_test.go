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

package equiv

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/stretchr/testify/require"
)

// TestFinder runs the datadriven scripts in testdata. Commands:
//
//	reset [bound=n]   starts a new finder
//	mark              marks each "a b" input line equivalent
//	equivalent a b    prints whether a and b are equivalent
//	find x            prints the sorted equivalents of x
//	pairs             prints the sorted equivalence pairs
func TestFinder(t *testing.T) {
	datadriven.Walk(t, "testdata", func(t *testing.T, path string) {
		f := NewFinder[string]()
		datadriven.RunTest(t, path, func(t *testing.T, d *datadriven.TestData) string {
			switch d.Cmd {
			case "reset":
				bound := DefaultMaxTraversals
				if d.HasArg("bound") {
					d.ScanArgs(t, "bound", &bound)
				}
				f = NewFinderWithBound[string](bound)
				return "ok\n"

			case "mark":
				for _, line := range strings.Split(strings.TrimSpace(d.Input), "\n") {
					fields := strings.Fields(line)
					if len(fields) != 2 {
						d.Fatalf(t, "expected two values: %q", line)
					}
					f.MarkEquivalent(fields[0], fields[1])
				}
				return "ok\n"

			case "equivalent":
				if len(d.CmdArgs) != 2 {
					d.Fatalf(t, "expected two values")
				}
				return fmt.Sprintf("%t\n", f.AreEquivalent(d.CmdArgs[0].Key, d.CmdArgs[1].Key))

			case "find":
				res := f.FindEquivalents(d.CmdArgs[0].Key)
				sort.Strings(res)
				return fmt.Sprintf("%v\n", res)

			case "pairs":
				var b strings.Builder
				for _, p := range f.EquivalencePairs(func(a, b string) bool { return a < b }) {
					fmt.Fprintf(&b, "%s %s\n", p.Left, p.Right)
				}
				if b.Len() == 0 {
					return "none\n"
				}
				return b.String()

			default:
				d.Fatalf(t, "unknown command %s", d.Cmd)
				return ""
			}
		})
	})
}

func TestSymmetricTransitive(t *testing.T) {
	f := NewFinder[int]()
	require.True(t, f.AreEquivalent(7, 7))
	require.True(t, f.Empty())

	f.MarkEquivalent(1, 2)
	f.MarkEquivalent(2, 3)
	f.MarkEquivalent(3, 3)
	for _, p := range [][2]int{{1, 2}, {2, 1}, {1, 3}, {3, 1}, {2, 3}} {
		require.True(t, f.AreEquivalent(p[0], p[1]), "%v", p)
	}
	require.False(t, f.AreEquivalent(1, 4))
	require.ElementsMatch(t, []int{2, 3}, f.FindEquivalents(1))
	require.Len(t, f.EquivalencePairs(nil), 2)

	f.Clear()
	require.False(t, f.AreEquivalent(1, 2))
	require.Empty(t, f.FindEquivalents(1))
}

func TestTraversalBound(t *testing.T) {
	// A chain longer than the bound is not fully reachable.
	f := NewFinderWithBound[int](4)
	for i := 0; i < 10; i++ {
		f.MarkEquivalent(i, i+1)
	}
	require.True(t, f.AreEquivalent(0, 4))
	require.False(t, f.AreEquivalent(0, 10))
	require.Len(t, f.FindEquivalents(0), 4)
}

type column struct {
	table string
	ord   int
}

func TestStructKeys(t *testing.T) {
	f := NewFinder[column]()
	f.MarkEquivalent(column{"order", 1}, column{"customer", 0})
	f.MarkEquivalent(column{"item", 1}, column{"order", 0})
	require.True(t, f.AreEquivalent(column{"customer", 0}, column{"order", 1}))
	require.False(t, f.AreEquivalent(column{"customer", 0}, column{"item", 1}))
}
