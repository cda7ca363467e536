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

package testutils

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/planrw/pkg/settings"
	"github.com/cockroachdb/planrw/pkg/sql/opt/cat"
	"github.com/cockroachdb/planrw/pkg/sql/opt/plan"
	"github.com/cockroachdb/planrw/pkg/sql/opt/rule"
	"github.com/cockroachdb/planrw/pkg/sql/opt/testutils/scenario"
	"github.com/cockroachdb/planrw/pkg/sql/opt/testutils/testcat"
	"github.com/cockroachdb/planrw/pkg/sql/opt/xform"
	"github.com/cockroachdb/planrw/pkg/sql/pgwire/pgerror"
	"github.com/cockroachdb/planrw/pkg/sql/sem/builtins"
	"github.com/cockroachdb/planrw/pkg/util/log"
)

// OptTester is a helper for testing the rewrite rules. It contains the
// boiler-plate code for the following useful tasks:
//   - Build a plan from a YAML scenario
//   - Rewrite it with the full pipeline or a chosen list of rules
//   - Show the effect of each rule, step-by-step
//
// The OptTester is used by tests in the sub-packages of the opt package.
type OptTester struct {
	Flags OptTesterFlags

	ctx     context.Context
	catalog *testcat.Catalog
}

// OptTesterFlags are control knobs for tests. They are reset before each
// command.
type OptTesterFlags struct {
	// Rules restricts the apply command to the named rules, in order.
	Rules []string

	// Params overrides the parameter types of the scenario.
	Params []string

	// Settings overrides the settings of the scenario.
	Settings map[string]string

	// ShowBindings, ShowEquivalences and ShowStepIsolation append the
	// corresponding plan state to the output.
	ShowBindings      bool
	ShowEquivalences  bool
	ShowStepIsolation bool

	// Verbose sends the diagnostics of the rules to stdout.
	Verbose bool
}

// NewOptTester returns an OptTester whose scenarios default to the sample
// catalog.
func NewOptTester() *OptTester {
	return &OptTester{ctx: context.Background()}
}

// RunCommand implements commands that are used by most tests:
//
//   - schema
//
//     Replaces the catalog used by scenarios that declare no tables. The
//     input is a YAML schema. Outputs the table groups.
//
//   - build [flags]
//
//     Builds the plan of a scenario and outputs it without rewriting it.
//
//   - opt [flags]
//
//     Builds the plan and rewrites it with the default pipeline.
//
//   - apply rules=(...) [flags]
//
//     Builds the plan and rewrites it with the named rules only.
//
//   - optsteps [flags]
//
//     Rewrites the plan with the default pipeline and outputs the change made
//     by each rule as a unified diff.
//
// Supported flags:
//
//   - rules: the rules run by the apply command, by name.
//
//   - params: the parameter types, overriding those of the scenario.
//
//   - show: appends plan state to the output; any of bindings,
//     equivalences, step-isolation.
//
//   - any setting name: sets the setting, e.g. groupJoinStrategy=flat.
//
// Errors returned by the rules are output with their Postgres code.
func (ot *OptTester) RunCommand(tb testing.TB, d *datadriven.TestData) string {
	ot.Flags = OptTesterFlags{Verbose: testing.Verbose()}
	ot.ctx = context.Background()
	if ot.Flags.Verbose {
		ot.ctx = log.WithVerbosity(ot.ctx, 2)
	}
	for _, a := range d.CmdArgs {
		if err := ot.Flags.Set(a); err != nil {
			d.Fatalf(tb, "%s", err)
		}
	}

	switch d.Cmd {
	case "schema":
		c, err := testcat.LoadYAML([]byte(d.Input))
		if err != nil {
			return formatError(err)
		}
		ot.catalog = c
		var buf bytes.Buffer
		for i := 0; i < c.GroupCount(); i++ {
			g := c.Group(i)
			fmt.Fprintf(&buf, "%s:", g.Name())
			for j := 0; j < g.TableCount(); j++ {
				fmt.Fprintf(&buf, " %s", g.Table(j).Name())
			}
			buf.WriteByte('\n')
		}
		return buf.String()

	case "build":
		p, err := ot.Build(d.Input)
		if err != nil {
			return formatError(err)
		}
		return ot.output(p)

	case "opt":
		p, err := ot.Optimize(d.Input)
		if err != nil {
			return formatError(err)
		}
		return ot.output(p)

	case "apply":
		if len(ot.Flags.Rules) == 0 {
			d.Fatalf(tb, "apply requires rules=(...)")
		}
		p, err := ot.Apply(d.Input)
		if err != nil {
			return formatError(err)
		}
		return ot.output(p)

	case "optsteps":
		res, err := ot.OptSteps(d.Input)
		if err != nil {
			return formatError(err)
		}
		return res

	default:
		d.Fatalf(tb, "unsupported command: %s", d.Cmd)
		return ""
	}
}

// Set parses an argument that refers to a flag.
// See OptTester.RunCommand for supported flags.
func (f *OptTesterFlags) Set(arg datadriven.CmdArg) error {
	switch arg.Key {
	case "rules":
		for _, name := range arg.Vals {
			if _, ok := xform.RuleByName(name); !ok {
				return fmt.Errorf("unknown rule %s", name)
			}
		}
		f.Rules = arg.Vals

	case "params":
		f.Params = arg.Vals

	case "show":
		for _, v := range arg.Vals {
			switch v {
			case "bindings":
				f.ShowBindings = true
			case "equivalences":
				f.ShowEquivalences = true
			case "step-isolation":
				f.ShowStepIsolation = true
			default:
				return fmt.Errorf("unknown show value %s", v)
			}
		}

	default:
		if _, _, ok := settings.Lookup(arg.Key); !ok {
			return fmt.Errorf("unknown argument: %s", arg.Key)
		}
		if len(arg.Vals) != 1 {
			return fmt.Errorf("%s requires one value", arg.Key)
		}
		if f.Settings == nil {
			f.Settings = make(map[string]string)
		}
		f.Settings[arg.Key] = arg.Vals[0]
	}
	return nil
}

// compilation is a built scenario ready to be rewritten.
type compilation struct {
	plan    *plan.Plan
	catalog cat.Catalog
	values  *settings.Values
}

func (ot *OptTester) compile(input string) (*compilation, error) {
	s, err := scenario.Load([]byte(input))
	if err != nil {
		return nil, err
	}
	if ot.Flags.Params != nil {
		s.Params = ot.Flags.Params
	}
	if len(ot.Flags.Settings) > 0 {
		if s.Settings == nil {
			s.Settings = make(map[string]string)
		}
		for k, v := range ot.Flags.Settings {
			s.Settings[k] = v
		}
	}
	values, err := s.Values()
	if err != nil {
		return nil, err
	}
	var catalog cat.Catalog
	if len(s.Tables) == 0 && ot.catalog != nil {
		catalog = ot.catalog
	} else if catalog, err = s.Catalog(); err != nil {
		return nil, err
	}
	params, err := scenario.ParseTypes(s.Params)
	if err != nil {
		return nil, err
	}
	p, err := scenario.Build(catalog, builtins.Resolver, params, s.Plan)
	if err != nil {
		return nil, err
	}
	return &compilation{plan: p, catalog: catalog, values: values}, nil
}

func (ot *OptTester) sink() log.Sink {
	if !ot.Flags.Verbose {
		return nil
	}
	return log.WriterSink{W: os.Stdout}
}

// Build builds the plan of a scenario.
func (ot *OptTester) Build(input string) (*plan.Plan, error) {
	c, err := ot.compile(input)
	if err != nil {
		return nil, err
	}
	return c.plan, nil
}

// Optimize builds the plan of a scenario and rewrites it with the default
// pipeline.
func (ot *OptTester) Optimize(input string) (*plan.Plan, error) {
	c, err := ot.compile(input)
	if err != nil {
		return nil, err
	}
	o := xform.NewOptimizer(c.catalog, builtins.Resolver, c.values)
	if err := o.Optimize(ot.ctx, c.plan, ot.sink()); err != nil {
		return nil, err
	}
	return c.plan, nil
}

// Apply builds the plan of a scenario and rewrites it with the rules named
// by the rules flag.
func (ot *OptTester) Apply(input string) (*plan.Plan, error) {
	c, err := ot.compile(input)
	if err != nil {
		return nil, err
	}
	rules := make([]rule.Rule, len(ot.Flags.Rules))
	for i, name := range ot.Flags.Rules {
		rules[i], _ = xform.RuleByName(name)
	}
	rc := rule.NewRulesContext(rules,
		rule.WithCatalog(c.catalog),
		rule.WithResolver(builtins.Resolver),
		rule.WithSettings(c.values),
	)
	if err := rc.ApplyRules(ot.ctx, rc.NewPlanContext(c.plan), ot.sink()); err != nil {
		return nil, err
	}
	return c.plan, nil
}

// OptSteps rewrites the plan of a scenario with the default pipeline and
// returns the initial plan followed by a diff for every rule that changed
// it.
func (ot *OptTester) OptSteps(input string) (string, error) {
	c, err := ot.compile(input)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	buf.WriteString(c.plan.String())
	o := xform.NewOptimizer(c.catalog, builtins.Resolver, c.values,
		rule.WithTracer(rule.DiffTracer{W: &buf}))
	if err := o.Optimize(ot.ctx, c.plan, ot.sink()); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (ot *OptTester) output(p *plan.Plan) string {
	var buf strings.Builder
	buf.WriteString(p.String())
	if ot.Flags.ShowBindings {
		buf.WriteString("bindings:\n")
		buf.WriteString(p.Bindings().String())
	}
	if ot.Flags.ShowEquivalences {
		buf.WriteString("equivalences:\n")
		buf.WriteString(FormatEquivalences(p))
	}
	if ot.Flags.ShowStepIsolation {
		fmt.Fprintf(&buf, "step-isolation: %t\n", p.RequiresStepIsolation)
	}
	return buf.String()
}

// FormatEquivalences lists the recorded column equalities of p, one per
// line, in a deterministic order.
func FormatEquivalences(p *plan.Plan) string {
	sources := make(map[plan.NodeID]plan.ColumnSource)
	plan.WalkWithExprs(p.Root(), plan.PreOrder(func(n plan.Node) bool {
		if src, ok := n.(plan.ColumnSource); ok {
			sources[n.ID()] = src
		}
		return true
	}), nil /* ev */)
	var lines []string
	for _, pair := range p.ColumnEquivalences().EquivalencePairs(plan.ColumnKey.Less) {
		l, lok := sources[pair.Left.Source]
		r, rok := sources[pair.Right.Source]
		if !lok || !rok {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s = %s",
			plan.ExprString(plan.NewColumnExpr(l, pair.Left.Position)),
			plan.ExprString(plan.NewColumnExpr(r, pair.Right.Position))))
	}
	sort.Strings(lines)
	return strings.Join(append(lines, ""), "\n")
}

func formatError(err error) string {
	text := strings.TrimSpace(err.Error())
	if errors.HasAssertionFailure(err) {
		return fmt.Sprintf("internal error: %s\n", text)
	}
	return fmt.Sprintf("error (%s): %s\n", pgerror.GetPGCode(err), text)
}
