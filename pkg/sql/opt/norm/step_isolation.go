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

package norm

import (
	"context"

	"github.com/cockroachdb/planrw/pkg/sql/opt/cat"
	"github.com/cockroachdb/planrw/pkg/sql/opt/plan"
	"github.com/cockroachdb/planrw/pkg/sql/opt/rule"
	"github.com/cockroachdb/planrw/pkg/util/log"
)

// StepIsolationChecker sets Plan.RequiresStepIsolation when a DML statement
// reads its target table in a way its own writes could disturb:
//
//   - INSERT reads the target anywhere in its input;
//   - UPDATE scans the target through an index containing an updated
//     column, or reads the target other than through the scanned rows;
//   - DELETE reads the target other than through the scanned rows.
type StepIsolationChecker struct{}

var _ rule.Rule = StepIsolationChecker{}

// Name is part of the rule.Rule interface.
func (StepIsolationChecker) Name() string { return "StepIsolationChecker" }

// Apply is part of the rule.Rule interface.
func (StepIsolationChecker) Apply(ctx context.Context, pc *rule.PlanContext) error {
	p := pc.Plan
	switch t := p.Root().(type) {
	case *plan.InsertStatement:
		p.RequiresStepIsolation = len(targetReads(t.Input(), t.Target)) > 0
	case *plan.UpdateStatement:
		reads := targetReads(t.Input(), t.Target)
		switch {
		case len(reads) > 1:
			p.RequiresStepIsolation = true
		case len(reads) == 1:
			p.RequiresStepIsolation = scansUpdatedColumn(reads[0], t.SetColumns)
		}
	case *plan.DeleteStatement:
		p.RequiresStepIsolation = len(targetReads(t.Input(), t.Target)) > 1
	default:
		p.RequiresStepIsolation = false
	}
	if p.RequiresStepIsolation {
		log.VEventf(ctx, 1, "statement requires step isolation")
	}
	return nil
}

// targetReads returns the references to target in the subtree rooted at n,
// including those in subqueries.
func targetReads(n plan.Node, target cat.Table) []*plan.TableSource {
	var res []*plan.TableSource
	plan.WalkWithExprs(n, plan.PreOrder(func(n plan.Node) bool {
		if t, ok := n.(*plan.TableSource); ok && t.Table.Name() == target.Name() {
			res = append(res, t)
		}
		return true
	}), nil /* ev */)
	return res
}

// scansUpdatedColumn returns true if the access path of t is an index that
// contains one of the given columns. Without a chosen access path the table
// is scanned through its primary index.
func scansUpdatedColumn(t *plan.TableSource, cols []int) bool {
	idx := t.Table.PrimaryIndex()
	if t.AccessPath != nil {
		idx = t.AccessPath.Index
	}
	if idx == nil {
		return false
	}
	for i, n := 0, idx.ColumnCount(); i < n; i++ {
		ord := idx.ColumnOrdinal(i)
		for _, c := range cols {
			if c == ord {
				return true
			}
		}
	}
	return false
}
