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

// Package scenario loads rewrite scenarios from YAML. A scenario declares an
// optional schema, parameter types, setting overrides and a plan tree, e.g.:
//
//	params: [int]
//	settings: {implicitAggregate: first}
//	plan:
//	  op: select-query
//	  input:
//	    op: project
//	    exprs: [c.name, o.total]
//	    input:
//	      op: join
//	      kind: left
//	      left: {op: table, table: customer, as: c}
//	      right: {op: table, table: order, as: o}
//	      on: [c.id = o.customer_id]
//
// Expressions use a small SQL-like syntax; see exprParser.
package scenario

import (
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/planrw/pkg/settings"
	"github.com/cockroachdb/planrw/pkg/sql/opt/cat"
	"github.com/cockroachdb/planrw/pkg/sql/opt/plan"
	"github.com/cockroachdb/planrw/pkg/sql/opt/testutils/testcat"
	"github.com/cockroachdb/planrw/pkg/sql/pgwire/pgcode"
	"github.com/cockroachdb/planrw/pkg/sql/pgwire/pgerror"
	"github.com/cockroachdb/planrw/pkg/sql/types"
	yaml "gopkg.in/yaml.v2"
)

// Scenario is a parsed scenario document.
type Scenario struct {
	// Tables is the schema. An empty schema selects the sample catalog.
	Tables   []testcat.TableDef `yaml:"tables"`
	Params   []string           `yaml:"params"`
	Settings map[string]string  `yaml:"settings"`
	Plan     *Node              `yaml:"plan"`
}

// Node is the YAML form of a plan node. Op selects the node type and which
// of the other fields apply.
type Node struct {
	Op    string `yaml:"op"`
	Table string `yaml:"table"`
	As    string `yaml:"as"`
	Kind  string `yaml:"kind"`

	Input *Node `yaml:"input"`
	Left  *Node `yaml:"left"`
	Right *Node `yaml:"right"`

	Where   []string   `yaml:"where"`
	On      []string   `yaml:"on"`
	Exprs   []string   `yaml:"exprs"`
	Names   []string   `yaml:"names"`
	GroupBy []string   `yaml:"group_by"`
	Aggs    []string   `yaml:"aggs"`
	OrderBy []string   `yaml:"order_by"`
	Count   *int64     `yaml:"count"`
	Offset  int64      `yaml:"offset"`
	Columns []string   `yaml:"columns"`
	Rows    [][]string `yaml:"rows"`
	Set     []string   `yaml:"set"`

	// Subqueries are the nested plans that the node's expressions refer to
	// as @name.
	Subqueries map[string]*Node `yaml:"subqueries"`
}

// Load parses a scenario document.
func Load(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.UnmarshalStrict(data, &s); err != nil {
		return nil, errors.Wrap(err, "parsing scenario")
	}
	if s.Plan == nil {
		return nil, pgerror.New(pgcode.Syntax, "scenario has no plan")
	}
	return &s, nil
}

// ParseNode parses the YAML form of a single plan tree.
func ParseNode(data []byte) (*Node, error) {
	var n Node
	if err := yaml.UnmarshalStrict(data, &n); err != nil {
		return nil, errors.Wrap(err, "parsing plan")
	}
	return &n, nil
}

// ParseTypes resolves a list of type names.
func ParseTypes(names []string) ([]*types.T, error) {
	res := make([]*types.T, len(names))
	for i, name := range names {
		typ, ok := types.FromString(name)
		if !ok {
			return nil, pgerror.Newf(pgcode.UndefinedObject, "unknown type %q", name)
		}
		res[i] = typ
	}
	return res, nil
}

// Catalog returns the scenario's catalog.
func (s *Scenario) Catalog() (*testcat.Catalog, error) {
	if len(s.Tables) == 0 {
		return testcat.NewSample(), nil
	}
	return testcat.FromSchema(testcat.Schema{Tables: s.Tables})
}

// Values returns the scenario's setting overrides.
func (s *Scenario) Values() (*settings.Values, error) {
	return settings.MakeValues(s.Settings)
}

// Build builds the scenario's plan against its own catalog.
func (s *Scenario) Build(resolver types.Resolver) (*plan.Plan, cat.Catalog, error) {
	catalog, err := s.Catalog()
	if err != nil {
		return nil, nil, err
	}
	params, err := ParseTypes(s.Params)
	if err != nil {
		return nil, nil, err
	}
	p, err := Build(catalog, resolver, params, s.Plan)
	if err != nil {
		return nil, nil, err
	}
	return p, catalog, nil
}

// Build converts a YAML plan tree into a plan. Column references are
// resolved against the aliases of the sources built so far, in build order:
// a node's inputs are built before its subqueries and its own expressions.
func Build(
	catalog cat.Catalog, resolver types.Resolver, params []*types.T, root *Node,
) (_ *plan.Plan, err error) {
	b := &builder{
		plan:       plan.New(len(params)),
		catalog:    catalog,
		resolver:   resolver,
		params:     params,
		aliases:    make(map[string]plan.ColumnSource),
		subqueries: make(map[string]*plan.Subquery),
	}
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(error)
			if !ok {
				panic(r)
			}
			if _, ok := e.(runtime.Error); ok {
				e = errors.HandleAsAssertionFailure(e)
			}
			err = e
		}
	}()
	b.plan.SetRoot(b.build(root))
	return b.plan, nil
}

type builder struct {
	plan     *plan.Plan
	catalog  cat.Catalog
	resolver types.Resolver
	params   []*types.T

	aliases map[string]plan.ColumnSource
	// sources holds the aliased sources in build order, for resolving
	// unqualified column names.
	sources    []plan.ColumnSource
	subqueries map[string]*plan.Subquery
}

var joinKinds = map[string]plan.JoinKind{
	"": plan.InnerJoin, "inner": plan.InnerJoin, "left": plan.LeftJoin, "right": plan.RightJoin,
	"full": plan.FullJoin, "semi": plan.SemiJoin, "anti": plan.AntiJoin,
}

func (b *builder) build(n *Node) plan.Node {
	if n == nil {
		panic(pgerror.New(pgcode.Syntax, "missing plan node"))
	}
	switch n.Op {
	case "table":
		tab, err := b.catalog.ResolveTable(n.Table)
		if err != nil {
			panic(err)
		}
		t := b.plan.ConstructTableSource(tab, n.As)
		b.register(t.Alias, t)
		return t

	case "values":
		return b.buildValues(n)
	}

	if n.Op == "join" {
		kind, ok := joinKinds[n.Kind]
		if !ok {
			panic(pgerror.Newf(pgcode.Syntax, "unknown join kind %q", n.Kind))
		}
		left, right := b.build(n.Left), b.build(n.Right)
		b.buildSubqueries(n)
		return b.plan.ConstructJoin(kind, left, right, b.parseList(n.On)...)
	}

	input := b.build(n.Input)
	b.buildSubqueries(n)
	switch n.Op {
	case "select":
		return b.plan.ConstructSelect(input, b.parseList(n.Where)...)

	case "project":
		p := b.plan.ConstructProject(input, b.parseList(n.Exprs), n.Names)
		if n.As != "" {
			b.register(n.As, p)
		}
		return p

	case "sort":
		keys := make([]plan.SortKey, len(n.OrderBy))
		for i, s := range n.OrderBy {
			keys[i] = b.parseSortKey(s)
		}
		return b.plan.ConstructSort(input, keys...)

	case "limit":
		count := int64(-1)
		if n.Count != nil {
			count = *n.Count
		}
		return b.plan.ConstructLimit(input, count, n.Offset)

	case "distinct":
		return b.plan.ConstructDistinct(input)

	case "aggregate":
		aggs := make([]*plan.AggregateExpr, len(n.Aggs))
		for i, s := range n.Aggs {
			agg, ok := b.parseExpr(s).(*plan.AggregateExpr)
			if !ok {
				panic(pgerror.Newf(pgcode.Grouping, "%q is not an aggregate call", s))
			}
			aggs[i] = agg
		}
		a := b.plan.ConstructAggregate(input, b.parseList(n.GroupBy), aggs)
		if n.As != "" {
			b.register(n.As, a)
		}
		return a

	case "null-if-empty":
		return b.plan.ConstructNullIfEmpty(input)

	case "only-if-empty":
		return b.plan.ConstructOnlyIfEmpty(input)

	case "select-query":
		return b.plan.ConstructSelectQuery(input)

	case "insert":
		return b.plan.ConstructInsert(b.target(n), input)

	case "update":
		target := b.target(n)
		cols := make([]int, len(n.Set))
		vals := make([]plan.ScalarExpr, len(n.Set))
		for i, s := range n.Set {
			eq := strings.Index(s, "=")
			if eq < 0 {
				panic(pgerror.Newf(pgcode.Syntax, "expected col = expr, found %q", s))
			}
			name := strings.TrimSpace(s[:eq])
			cols[i] = cat.FindColumn(target, name)
			if cols[i] < 0 {
				panic(pgerror.Newf(pgcode.UndefinedColumn, "table %q has no column %q", target.Name(), name))
			}
			vals[i] = b.parseExpr(s[eq+1:])
		}
		return b.plan.ConstructUpdate(target, input, cols, vals)

	case "delete":
		return b.plan.ConstructDelete(b.target(n), input)
	}
	panic(pgerror.Newf(pgcode.Syntax, "unknown op %q", n.Op))
}

func (b *builder) target(n *Node) cat.Table {
	tab, err := b.catalog.ResolveTable(n.Table)
	if err != nil {
		panic(err)
	}
	return tab
}

func (b *builder) buildValues(n *Node) plan.Node {
	cols := make([]plan.ValuesColumn, len(n.Columns))
	for i, s := range n.Columns {
		fields := strings.Fields(s)
		if len(fields) != 2 {
			panic(pgerror.Newf(pgcode.Syntax, "expected \"name type\", found %q", s))
		}
		typ, ok := types.FromString(fields[1])
		if !ok {
			panic(pgerror.Newf(pgcode.UndefinedObject, "unknown type %q", fields[1]))
		}
		cols[i] = plan.ValuesColumn{Name: fields[0], Type: typ}
	}
	rows := make([][]plan.ScalarExpr, len(n.Rows))
	for i, r := range n.Rows {
		if len(r) != len(cols) {
			panic(pgerror.Newf(pgcode.Syntax,
				"values row %d has %d columns, expected %d", i+1, len(r), len(cols)))
		}
		rows[i] = b.parseList(r)
	}
	v := b.plan.ConstructValues(cols, rows)
	if n.As != "" {
		b.register(n.As, v)
	}
	return v
}

// buildSubqueries builds the subqueries of n in name order.
func (b *builder) buildSubqueries(n *Node) {
	names := make([]string, 0, len(n.Subqueries))
	for name := range n.Subqueries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := b.subqueries[name]; ok {
			panic(pgerror.Newf(pgcode.DuplicateObject, "subquery @%s already exists", name))
		}
		b.subqueries[name] = b.plan.ConstructSubquery(b.build(n.Subqueries[name]))
	}
}

func (b *builder) register(alias string, src plan.ColumnSource) {
	if _, ok := b.aliases[alias]; ok {
		panic(pgerror.Newf(pgcode.DuplicateObject, "source %q specified more than once", alias))
	}
	b.aliases[alias] = src
	b.sources = append(b.sources, src)
}

func (b *builder) resolveColumn(alias, name string) *plan.ColumnExpr {
	if alias != "" {
		src, ok := b.aliases[alias]
		if !ok {
			panic(pgerror.Newf(pgcode.UndefinedTable, "no source named %q", alias))
		}
		pos := findColumn(src, name)
		if pos < 0 {
			panic(pgerror.Newf(pgcode.UndefinedColumn, "column %s.%s does not exist", alias, name))
		}
		return plan.NewColumnExpr(src, pos)
	}
	var res *plan.ColumnExpr
	for _, src := range b.sources {
		if pos := findColumn(src, name); pos >= 0 {
			if res != nil {
				panic(pgerror.Newf(pgcode.AmbiguousColumn, "column reference %q is ambiguous", name))
			}
			res = plan.NewColumnExpr(src, pos)
		}
	}
	if res == nil {
		panic(pgerror.Newf(pgcode.UndefinedColumn, "column %q does not exist", name))
	}
	return res
}

// findColumn returns the position of the named column of src. A name of the
// form columnN refers to the Nth column of any source.
func findColumn(src plan.ColumnSource, name string) int {
	for i := 0; i < src.ColumnCount(); i++ {
		if src.ColumnName(i) == name {
			return i
		}
	}
	if strings.HasPrefix(name, "column") {
		if n, err := strconv.Atoi(name[len("column"):]); err == nil && n >= 1 && n <= src.ColumnCount() {
			return n - 1
		}
	}
	return -1
}

func (b *builder) subquery(name string) *plan.Subquery {
	sub, ok := b.subqueries[name]
	if !ok {
		panic(pgerror.Newf(pgcode.UndefinedObject, "no subquery named @%s", name))
	}
	return sub
}

// valueSubquery returns a value subquery; the subquery must produce exactly
// one column.
func (b *builder) valueSubquery(name string) *plan.SubqueryExpr {
	sub := b.subquery(name)
	var typ *types.T
	n := 0
	for _, src := range plan.OutputSources(sub.Input()) {
		for i := 0; i < src.ColumnCount(); i++ {
			typ = src.ColumnType(i)
			n++
		}
	}
	if n != 1 {
		panic(pgerror.Newf(pgcode.DatatypeMismatch,
			"subquery @%s must return one column, not %d", name, n))
	}
	return &plan.SubqueryExpr{Kind: plan.ValueSubquery, Subquery: sub, Typ: typ}
}

// function builds a call to a scalar function typed by the resolver.
func (b *builder) function(name string, args ...plan.ScalarExpr) *plan.FunctionExpr {
	argTypes := make([]*types.T, len(args))
	for i, a := range args {
		argTypes[i] = a.Type()
	}
	ov, err := b.resolver.ResolveOverload(name, argTypes)
	if err != nil {
		panic(err)
	}
	return &plan.FunctionExpr{Name: name, Args: args, Typ: ov.Return}
}

func (b *builder) parseList(list []string) []plan.ScalarExpr {
	if len(list) == 0 {
		return nil
	}
	res := make([]plan.ScalarExpr, len(list))
	for i, s := range list {
		res[i] = b.parseExpr(s)
	}
	return res
}

// parseSortKey parses "expr [asc|desc]".
func (b *builder) parseSortKey(s string) plan.SortKey {
	s = strings.TrimSpace(s)
	desc := false
	if i := strings.LastIndexByte(s, ' '); i >= 0 {
		switch strings.ToLower(s[i+1:]) {
		case "desc":
			desc = true
			s = s[:i]
		case "asc":
			s = s[:i]
		}
	}
	return plan.SortKey{Expr: b.parseExpr(s), Descending: desc}
}
