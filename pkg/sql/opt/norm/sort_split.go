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

	"github.com/cockroachdb/planrw/pkg/sql/opt/plan"
	"github.com/cockroachdb/planrw/pkg/sql/opt/rule"
	"github.com/cockroachdb/planrw/pkg/util/log"
)

// SortSplitter moves a Sort below the Project it orders when some sort key
// references a column the Project does not output. Keys that reference the
// Project's outputs are replaced by copies of the projected expressions.
//
//	sort(project(x))  =>  project(sort(x))
type SortSplitter struct{}

var _ rule.Rule = SortSplitter{}

// Name is part of the rule.Rule interface.
func (SortSplitter) Name() string { return "SortSplitter" }

// Apply is part of the rule.Rule interface.
func (SortSplitter) Apply(ctx context.Context, pc *rule.PlanContext) error {
	var sorts []*plan.Sort
	plan.WalkWithExprs(pc.Plan.Root(), plan.PreOrder(func(n plan.Node) bool {
		if s, ok := n.(*plan.Sort); ok {
			sorts = append(sorts, s)
		}
		return true
	}), nil /* ev */)

	moved := 0
	for _, s := range sorts {
		for {
			proj, ok := s.Input().(*plan.Project)
			if !ok || !referencesBelow(s, proj) {
				break
			}
			for i := range s.Keys {
				s.Keys[i].Expr = inlineProjection(s.Keys[i].Expr, proj)
			}
			below := proj.Input()
			pc.Plan.Replace(s, proj)
			pc.Plan.SetChild(s, 0, below)
			pc.Plan.SetChild(proj, 0, s)
			moved++
		}
	}
	log.VEventf(ctx, 2, "moved %d sorts", moved)
	return nil
}

// referencesBelow returns true if a key of s references a column that is
// not an output of proj.
func referencesBelow(s *plan.Sort, proj *plan.Project) bool {
	for _, k := range s.Keys {
		for _, c := range plan.ExprColumns(k.Expr) {
			if c.Source != plan.ColumnSource(proj) {
				return true
			}
		}
	}
	return false
}

// inlineProjection replaces references to the outputs of proj by the
// expressions that compute them.
func inlineProjection(e plan.ScalarExpr, proj *plan.Project) plan.ScalarExpr {
	return plan.RewriteExpr(e, plan.TopDown(func(e plan.ScalarExpr) plan.ScalarExpr {
		if c, ok := e.(*plan.ColumnExpr); ok && c.Source == plan.ColumnSource(proj) {
			return plan.CopyExpr(proj.Exprs[c.Position])
		}
		return e
	}))
}
