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

// Package aggmap rewrites the expressions evaluated above an aggregation so
// that they read the aggregation's output columns.
package aggmap

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/planrw/pkg/settings"
	"github.com/cockroachdb/planrw/pkg/sql/opt/plan"
	"github.com/cockroachdb/planrw/pkg/sql/opt/rule"
	"github.com/cockroachdb/planrw/pkg/sql/pgwire/pgcode"
	"github.com/cockroachdb/planrw/pkg/sql/pgwire/pgerror"
	"github.com/cockroachdb/planrw/pkg/sql/sem/builtins"
	"github.com/cockroachdb/planrw/pkg/sql/types"
	"github.com/cockroachdb/planrw/pkg/util/log"
)

// The implicitAggregate values.
const (
	// ImplicitError rejects references to ungrouped columns.
	ImplicitError = "error"
	// ImplicitFirst reads an ungrouped column through FIRST().
	ImplicitFirst = "first"
	// ImplicitFirstIfUnique allows an ungrouped column of a table whose rows
	// are already unique within each group.
	ImplicitFirstIfUnique = "firstIfUnique"
)

var implicitAggregate = settings.RegisterEnumSetting(
	"implicitAggregate",
	"how a reference to a column that is neither grouped nor aggregated is handled",
	ImplicitError,
	ImplicitError, ImplicitFirst, ImplicitFirstIfUnique,
)

// AggregateMapper rewrites the expressions of the nodes that consume an
// Aggregate's output so they reference its output columns:
//
//   - an expression structurally identical to a GROUP BY key becomes a
//     reference to that key's column;
//   - an aggregate call is appended to the Aggregate (once per distinct call)
//     and becomes a reference to its column; AVG(x) is computed as
//     SUM(x)/COUNT(x);
//   - a column of the aggregated input that is neither grouped nor aggregated
//     is handled according to the implicitAggregate setting.
//
// The consumers are the Select, Project, Sort, Limit and Distinct nodes
// directly above the Aggregate.
type AggregateMapper struct{}

var _ rule.Rule = AggregateMapper{}

// Name is part of the rule.Rule interface.
func (AggregateMapper) Name() string { return "AggregateMapper" }

// Apply is part of the rule.Rule interface.
func (AggregateMapper) Apply(ctx context.Context, pc *rule.PlanContext) error {
	policy, err := implicitAggregate.Get(pc.Settings)
	if err != nil {
		return err
	}
	if pc.Resolver == nil {
		return errors.AssertionFailedf("aggregate mapping requires a type resolver")
	}

	// Inner aggregations are mapped before the ones that consume them.
	var aggs []*plan.Aggregate
	plan.WalkWithExprs(pc.Plan.Root(), plan.PostOrder(func(n plan.Node) {
		if a, ok := n.(*plan.Aggregate); ok {
			aggs = append(aggs, a)
		}
	}), nil /* ev */)

	for _, a := range aggs {
		m := newMapper(pc, a, policy)
		m.hasCalls = len(a.Aggregates) > 0 || consumersCall(a)
		for n := a.Parent(); n != nil && isConsumer(n); n = n.Parent() {
			m.consumer = n
			plan.RewriteNodeExprs(n, plan.TopDown(m.rewrite))
		}
		log.VEventf(ctx, 2, "mapped %d expressions onto %s", m.mapped, plan.Format(a))
	}
	return nil
}

// consumersCall returns true if an expression of a consumer of a contains an
// aggregate call.
func consumersCall(a *plan.Aggregate) bool {
	found := false
	for n := a.Parent(); n != nil && isConsumer(n) && !found; n = n.Parent() {
		for i, cnt := 0, n.ExprCount(); i < cnt && !found; i++ {
			plan.WalkExpr(n.Expr(i), plan.ExprPreOrder(func(e plan.ScalarExpr) bool {
				if _, ok := e.(*plan.AggregateExpr); ok {
					found = true
				}
				return !found
			}))
		}
	}
	return found
}

// isConsumer returns true for the nodes that evaluate expressions over the
// rows of the Aggregate below them.
func isConsumer(n plan.Node) bool {
	switch n.(type) {
	case *plan.Select, *plan.Project, *plan.Sort, *plan.Limit, *plan.Distinct:
		return true
	}
	return false
}

type mapper struct {
	pc     *rule.PlanContext
	agg    *plan.Aggregate
	policy string

	// keys maps the fingerprint of each GROUP BY key to its position.
	keys map[string]int
	// calls maps the fingerprint of each aggregate call to its position.
	calls map[string]int
	// input holds the nodes below the Aggregate.
	input *plan.SourceSet
	// uniqueTables memoizes uniquelyGrouped.
	uniqueTables map[plan.NodeID]bool

	// hasCalls is set when the Aggregate computes or will compute at least
	// one aggregate call.
	hasCalls bool

	consumer plan.Node
	mapped   int
}

func newMapper(pc *rule.PlanContext, a *plan.Aggregate, policy string) *mapper {
	m := &mapper{
		pc:           pc,
		agg:          a,
		policy:       policy,
		keys:         make(map[string]int, len(a.GroupBy)),
		calls:        make(map[string]int, len(a.Aggregates)),
		input:        plan.SubtreeSources(a.Input()),
		uniqueTables: make(map[plan.NodeID]bool),
	}
	// The key map is complete before any consumer expression is rewritten.
	for i, e := range a.GroupBy {
		fp := plan.Fingerprint(e)
		if _, ok := m.keys[fp]; !ok {
			m.keys[fp] = i
		}
	}
	for i, call := range a.Aggregates {
		m.calls[plan.Fingerprint(call)] = len(a.GroupBy) + i
	}
	return m
}

func (m *mapper) column(pos int) *plan.ColumnExpr {
	return plan.NewColumnExpr(m.agg, pos)
}

func (m *mapper) rewrite(e plan.ScalarExpr) plan.ScalarExpr {
	if pos, ok := m.keys[plan.Fingerprint(e)]; ok {
		m.mapped++
		return m.column(pos)
	}
	switch t := e.(type) {
	case *plan.AggregateExpr:
		m.mapped++
		if t.Name == builtins.Avg {
			return m.splitAvg(t)
		}
		return m.column(m.addCall(t))

	case *plan.ColumnExpr:
		if m.input.ContainsID(t.Source.ID()) {
			m.mapped++
			return m.implicit(t)
		}
	}
	return e
}

// addCall returns the position of the output column computing call, adding
// call to the Aggregate if no identical call is computed yet.
func (m *mapper) addCall(call *plan.AggregateExpr) int {
	fp := plan.Fingerprint(call)
	if pos, ok := m.calls[fp]; ok {
		return pos
	}
	pos := m.agg.AddAggregate(call)
	m.calls[fp] = pos
	return pos
}

// splitAvg computes AVG(x) as SUM(x)/COUNT(x), so that both halves can be
// computed in parts and combined. The result keeps AVG's type.
func (m *mapper) splitAvg(avg *plan.AggregateExpr) plan.ScalarExpr {
	argType := []*types.T{avg.Arg.Type()}
	sumOv, err := m.pc.Resolver.ResolveOverload(builtins.Sum, argType)
	if err != nil {
		panic(err)
	}
	sum := &plan.AggregateExpr{
		Name: builtins.Sum, Arg: plan.CopyExpr(avg.Arg), Distinct: avg.Distinct, Typ: sumOv.Return,
	}
	count := &plan.AggregateExpr{
		Name: builtins.Count, Arg: plan.CopyExpr(avg.Arg), Distinct: avg.Distinct, Typ: types.Int,
	}
	num, den := m.column(m.addCall(sum)), m.column(m.addCall(count))
	divOv, err := m.pc.Resolver.ResolveOverload(builtins.Divide, []*types.T{num.Type(), den.Type()})
	if err != nil {
		panic(err)
	}
	var res plan.ScalarExpr = &plan.FunctionExpr{
		Name: builtins.Divide, Args: []plan.ScalarExpr{num, den}, Typ: divOv.Return,
	}
	if !divOv.Return.Identical(avg.Typ) {
		if _, err := m.pc.Resolver.Cast(divOv.Return, avg.Typ); err != nil {
			panic(err)
		}
		res = &plan.CastExpr{Input: res, Typ: avg.Typ}
	}
	return res
}

// implicit handles a reference to a column of the aggregated input that is
// neither grouped nor aggregated.
func (m *mapper) implicit(col *plan.ColumnExpr) plan.ScalarExpr {
	switch m.policy {
	case ImplicitFirst:
		return m.first(col)

	case ImplicitFirstIfUnique:
		if t, ok := col.Source.(*plan.TableSource); ok && m.uniquelyGrouped(t) {
			if !m.hasCalls {
				// Grouping by the column as well does not change the groups,
				// and keeps the Aggregate free of aggregate calls so that it
				// can run as a DISTINCT.
				pos := m.agg.AddGroupBy(plan.CopyExpr(col))
				m.keys[plan.Fingerprint(col)] = pos
				return m.column(pos)
			}
			return m.first(col)
		}
	}
	err := pgerror.Newf(pgcode.Grouping,
		"column %s must appear in the GROUP BY clause or be used in an aggregate function",
		plan.ExprString(col))
	panic(errors.WithDetailf(err, "referenced by:\n%s", plan.Format(m.consumer)))
}

func (m *mapper) first(col *plan.ColumnExpr) plan.ScalarExpr {
	ov, err := m.pc.Resolver.ResolveOverload(builtins.First, []*types.T{col.Type()})
	if err != nil {
		panic(err)
	}
	call := &plan.AggregateExpr{Name: builtins.First, Arg: plan.CopyExpr(col), Typ: ov.Return}
	return m.column(m.addCall(call))
}

// uniquelyGrouped returns true if some unique index of t has all of its
// columns grouped, so that each group holds at most one row of t. A grouped
// column also grounds the columns it is equivalent to.
func (m *mapper) uniquelyGrouped(t *plan.TableSource) bool {
	if res, ok := m.uniqueTables[t.ID()]; ok {
		return res
	}
	grouped := make(map[int]bool)
	eqs := m.pc.Plan.ColumnEquivalences()
	for _, key := range m.agg.GroupBy {
		c, ok := key.(*plan.ColumnExpr)
		if !ok {
			continue
		}
		if c.Source == plan.ColumnSource(t) {
			grouped[c.Position] = true
		}
		for _, k := range eqs.FindEquivalents(c.Key()) {
			if k.Source == t.ID() {
				grouped[k.Position] = true
			}
		}
	}
	res := false
	for i, n := 0, t.Table.IndexCount(); i < n && !res; i++ {
		idx := t.Table.Index(i)
		if !idx.IsUnique() {
			continue
		}
		covered := true
		for j, cnt := 0, idx.ColumnCount(); j < cnt; j++ {
			if !grouped[idx.ColumnOrdinal(j)] {
				covered = false
				break
			}
		}
		res = covered
	}
	m.uniqueTables[t.ID()] = res
	return res
}
