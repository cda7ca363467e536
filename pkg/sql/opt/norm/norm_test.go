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

package norm_test

import (
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/cockroachdb/planrw/pkg/sql/opt/testutils"
)

// TestNorm runs the files in testdata. Each can be run separately like this:
//
//	go test ./pkg/sql/opt/norm -run TestNorm/fold_constants
func TestNorm(t *testing.T) {
	datadriven.Walk(t, "testdata", func(t *testing.T, path string) {
		tester := testutils.NewOptTester()
		datadriven.RunTest(t, path, func(t *testing.T, d *datadriven.TestData) string {
			return tester.RunCommand(t, d)
		})
	})
}
