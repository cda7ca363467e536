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

// Package xform assembles the rewrite rules into the default pipeline that
// turns a logical plan into a nested-loop execution plan.
package xform

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/planrw/pkg/settings"
	"github.com/cockroachdb/planrw/pkg/sql/opt/aggmap"
	"github.com/cockroachdb/planrw/pkg/sql/opt/cat"
	"github.com/cockroachdb/planrw/pkg/sql/opt/groupjoin"
	"github.com/cockroachdb/planrw/pkg/sql/opt/indexpick"
	"github.com/cockroachdb/planrw/pkg/sql/opt/nestedloop"
	"github.com/cockroachdb/planrw/pkg/sql/opt/norm"
	"github.com/cockroachdb/planrw/pkg/sql/opt/outerjoin"
	"github.com/cockroachdb/planrw/pkg/sql/opt/plan"
	"github.com/cockroachdb/planrw/pkg/sql/opt/rule"
	"github.com/cockroachdb/planrw/pkg/sql/sem/builtins"
	"github.com/cockroachdb/planrw/pkg/sql/types"
	"github.com/cockroachdb/planrw/pkg/util/log"
)

// DefaultRules returns the rules of the default pipeline, in the order they
// run.
func DefaultRules() []rule.Rule {
	return []rule.Rule{
		norm.ColumnEquivalenceFinder{},
		aggmap.AggregateMapper{},
		norm.SortSplitter{},
		norm.ConstantFolder{},
		outerjoin.OuterJoinPromoter{},
		groupjoin.GroupJoinFinder{},
		indexpick.IndexPicker{},
		nestedloop.NestedLoopMapper{},
		nestedloop.MapFolder{},
		norm.ExpressionCompactor{},
		norm.StepIsolationChecker{},
	}
}

// RuleByName returns the rule of the default pipeline with the given name.
func RuleByName(name string) (rule.Rule, bool) {
	for _, r := range DefaultRules() {
		if r.Name() == name {
			return r, true
		}
	}
	return nil, false
}

// Optimizer runs the default pipeline. It holds no per-compilation state
// and may be shared.
type Optimizer struct {
	*rule.RulesContext
}

// NewOptimizer returns an Optimizer over the given catalog and option
// values. A nil resolver selects the built-in functions. opts are applied
// after the defaults and may add tracers or override them.
func NewOptimizer(
	catalog cat.Catalog, resolver types.Resolver, values *settings.Values, opts ...rule.Option,
) *Optimizer {
	if resolver == nil {
		resolver = builtins.Resolver
	}
	all := append([]rule.Option{
		rule.WithCatalog(catalog),
		rule.WithResolver(resolver),
		rule.WithSettings(values),
	}, opts...)
	return &Optimizer{RulesContext: rule.NewRulesContext(DefaultRules(), all...)}
}

// Optimize rewrites p in place. Diagnostics go to sink, which may be nil.
// The rewritten plan is verified before returning.
func (o *Optimizer) Optimize(ctx context.Context, p *plan.Plan, sink log.Sink) error {
	if err := o.ApplyRules(ctx, o.NewPlanContext(p), sink); err != nil {
		return err
	}
	if err := plan.CheckPlan(p); err != nil {
		return errors.Wrap(err, "rewritten plan is malformed")
	}
	return nil
}
