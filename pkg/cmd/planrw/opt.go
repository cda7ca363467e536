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

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/planrw/pkg/settings"
	"github.com/cockroachdb/planrw/pkg/sql/opt/plan"
	"github.com/cockroachdb/planrw/pkg/sql/opt/rule"
	"github.com/cockroachdb/planrw/pkg/sql/opt/testutils/scenario"
	"github.com/cockroachdb/planrw/pkg/sql/opt/xform"
	"github.com/cockroachdb/planrw/pkg/sql/sem/builtins"
	"github.com/cockroachdb/planrw/pkg/util/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type optOptions struct {
	rules        []string
	settings     map[string]string
	steps        bool
	verbosity    int32
	showBindings bool
}

func newOptCmd() *cobra.Command {
	var opts optOptions
	cmd := &cobra.Command{
		Use:   "opt <scenario.yaml>",
		Short: "rewrite the plan of a scenario",
		Long: `
Builds the plan of a scenario file and rewrites it with the default
pipeline, or with the rules named by --rules, in that order. The rewritten
plan is printed to stdout.
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpt(cmd, args[0], opts)
		},
	}
	opts.addFlags(cmd.Flags())
	return cmd
}

func (o *optOptions) addFlags(f *pflag.FlagSet) {
	f.StringSliceVar(&o.rules, "rules", nil, "rules to run instead of the default pipeline")
	f.StringToStringVar(&o.settings, "set", nil, "setting overrides, as key=value")
	f.BoolVar(&o.steps, "steps", false, "print the initial plan and the change made by each rule")
	f.Int32VarP(&o.verbosity, "verbosity", "v", 0, "log the rules' diagnostics to stderr at this level")
	f.BoolVar(&o.showBindings, "bindings", false, "print the bindings of the nested-loop maps")
}

// loadScenario reads and builds a scenario file, applying the setting
// overrides.
func loadScenario(
	path string, overrides map[string]string,
) (*scenario.Scenario, *settings.Values, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "reading scenario")
	}
	s, err := scenario.Load(data)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "loading %s", path)
	}
	if len(overrides) > 0 && s.Settings == nil {
		s.Settings = make(map[string]string, len(overrides))
	}
	for k, v := range overrides {
		if _, _, ok := settings.Lookup(k); !ok {
			return nil, nil, errors.Newf("unknown setting %q", k)
		}
		s.Settings[k] = v
	}
	values, err := s.Values()
	if err != nil {
		return nil, nil, err
	}
	return s, values, nil
}

func runOpt(cmd *cobra.Command, path string, opts optOptions) error {
	s, values, err := loadScenario(path, opts.settings)
	if err != nil {
		return err
	}
	p, catalog, err := s.Build(builtins.Resolver)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	ctx := context.Background()
	var sink log.Sink
	if opts.verbosity > 0 {
		ctx = log.WithVerbosity(ctx, opts.verbosity)
		sink = log.WriterSink{W: cmd.ErrOrStderr()}
	}
	ruleOpts := []rule.Option{rule.WithTracer(rule.LogTracer{})}
	if opts.steps {
		fmt.Fprint(out, p.String())
		ruleOpts = append(ruleOpts, rule.WithTracer(rule.DiffTracer{W: out}))
	}

	if len(opts.rules) == 0 {
		o := xform.NewOptimizer(catalog, builtins.Resolver, values, ruleOpts...)
		if err := o.Optimize(ctx, p, sink); err != nil {
			return err
		}
	} else {
		rules := make([]rule.Rule, len(opts.rules))
		for i, name := range opts.rules {
			r, ok := xform.RuleByName(name)
			if !ok {
				return errors.Newf("unknown rule %q", name)
			}
			rules[i] = r
		}
		rc := rule.NewRulesContext(rules, append([]rule.Option{
			rule.WithCatalog(catalog),
			rule.WithResolver(builtins.Resolver),
			rule.WithSettings(values),
		}, ruleOpts...)...)
		// A partial pipeline may leave references that only the later
		// rules resolve, so the result is not checked.
		if err := rc.ApplyRules(ctx, rc.NewPlanContext(p), sink); err != nil {
			return err
		}
	}

	if !opts.steps {
		fmt.Fprint(out, p.String())
	}
	if opts.showBindings {
		fmt.Fprintf(out, "bindings:\n%s", p.Bindings())
	}
	return nil
}

func newBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build <scenario.yaml>",
		Short: "print the plan of a scenario without rewriting it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := loadScenario(args[0], nil /* overrides */)
			if err != nil {
				return err
			}
			p, _, err := s.Build(builtins.Resolver)
			if err != nil {
				return err
			}
			if err := plan.CheckTree(p); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), p.String())
			return nil
		},
	}
}
