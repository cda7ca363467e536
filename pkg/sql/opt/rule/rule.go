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

// Package rule runs an ordered list of plan rewrites over one mutable plan.
package rule

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/planrw/pkg/settings"
	"github.com/cockroachdb/planrw/pkg/sql/opt/cat"
	"github.com/cockroachdb/planrw/pkg/sql/opt/plan"
	"github.com/cockroachdb/planrw/pkg/sql/types"
	"github.com/cockroachdb/planrw/pkg/util/log"
)

// Rule is one named transformation of a plan. A rule may return an error or
// panic with one; either aborts the pipeline.
type Rule interface {
	Name() string
	Apply(ctx context.Context, pc *PlanContext) error
}

// PlanContext is the state of one compilation that rules share: the plan
// being rewritten and the read-only collaborators.
type PlanContext struct {
	Plan     *plan.Plan
	Catalog  cat.Catalog
	Resolver types.Resolver
	Settings *settings.Values
}

// Func adapts a function to the Rule interface.
func Func(name string, apply func(ctx context.Context, pc *PlanContext) error) Rule {
	return &funcRule{name: name, apply: apply}
}

type funcRule struct {
	name  string
	apply func(ctx context.Context, pc *PlanContext) error
}

func (r *funcRule) Name() string { return r.name }

func (r *funcRule) Apply(ctx context.Context, pc *PlanContext) error { return r.apply(ctx, pc) }

// RulesContext is an immutable rule list together with the configuration
// and collaborators the rules read. It may be shared by any number of
// compilations.
type RulesContext struct {
	rules    []Rule
	catalog  cat.Catalog
	resolver types.Resolver
	values   *settings.Values
	tracers  []Tracer
}

// Option configures a RulesContext.
type Option func(rc *RulesContext)

// WithCatalog sets the catalog handed to rules.
func WithCatalog(c cat.Catalog) Option {
	return func(rc *RulesContext) { rc.catalog = c }
}

// WithResolver sets the overload and cast resolver handed to rules.
func WithResolver(r types.Resolver) Option {
	return func(rc *RulesContext) { rc.resolver = r }
}

// WithSettings sets the option values rules read.
func WithSettings(sv *settings.Values) Option {
	return func(rc *RulesContext) { rc.values = sv }
}

// WithTracer adds a tracer that observes every rule.
func WithTracer(t Tracer) Option {
	return func(rc *RulesContext) { rc.tracers = append(rc.tracers, t) }
}

// NewRulesContext returns a RulesContext running rules in the given order.
func NewRulesContext(rules []Rule, opts ...Option) *RulesContext {
	rc := &RulesContext{rules: append([]Rule(nil), rules...)}
	for _, o := range opts {
		o(rc)
	}
	return rc
}

// Rules returns the rules in the order they run.
func (rc *RulesContext) Rules() []Rule {
	return append([]Rule(nil), rc.rules...)
}

// Settings returns the option values.
func (rc *RulesContext) Settings() *settings.Values { return rc.values }

// NewPlanContext returns the per-compilation context for p.
func (rc *RulesContext) NewPlanContext(p *plan.Plan) *PlanContext {
	return &PlanContext{
		Plan:     p,
		Catalog:  rc.catalog,
		Resolver: rc.resolver,
		Settings: rc.values,
	}
}

// ApplyRules runs every rule in order over pc.Plan. Diagnostics go to sink,
// which may be nil. The first failing rule aborts the pipeline; the plan is
// left as that rule left it.
func (rc *RulesContext) ApplyRules(ctx context.Context, pc *PlanContext, sink log.Sink) error {
	if sink != nil {
		ctx = log.WithSink(ctx, sink)
	}
	if pc.Plan == nil || pc.Plan.Root() == nil {
		return errors.AssertionFailedf("no plan to rewrite")
	}
	for _, r := range rc.rules {
		rctx := logtags.AddTag(ctx, "rule", r.Name())
		if err := rc.applyRule(rctx, r, pc); err != nil {
			log.VEventf(rctx, 1, "aborting: %v", err)
			return err
		}
	}
	return nil
}

func (rc *RulesContext) applyRule(ctx context.Context, r Rule, pc *PlanContext) (err error) {
	finishers := make([]func(time.Duration, error), 0, len(rc.tracers))
	for _, t := range rc.tracers {
		if f := t.StartRule(ctx, r, pc); f != nil {
			finishers = append(finishers, f)
		}
	}
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			err = catchRuleError(p)
		}
		elapsed := time.Since(start)
		for _, f := range finishers {
			f(elapsed, err)
		}
	}()
	return r.Apply(ctx, pc)
}
