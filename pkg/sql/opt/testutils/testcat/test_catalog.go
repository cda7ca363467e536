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

// Package testcat implements an in-memory catalog for tests and for the
// command-line tool. Tables are added programmatically or loaded from YAML;
// Finish derives the table groups from the declared parent keys.
package testcat

import (
	"fmt"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/planrw/pkg/sql/opt/cat"
	"github.com/cockroachdb/planrw/pkg/sql/pgwire/pgcode"
	"github.com/cockroachdb/planrw/pkg/sql/pgwire/pgerror"
	"github.com/cockroachdb/planrw/pkg/sql/types"
)

// Catalog implements the cat.Catalog interface for testing purposes.
type Catalog struct {
	tables   map[string]*Table
	ordered  []*Table
	groups   []*Group
	finished bool
}

var _ cat.Catalog = &Catalog{}

// New creates a new empty instance of the test catalog.
func New() *Catalog {
	return &Catalog{tables: make(map[string]*Table)}
}

// ResolveTable is part of the cat.Catalog interface.
func (tc *Catalog) ResolveTable(name string) (cat.Table, error) {
	t, ok := tc.tables[name]
	if !ok {
		return nil, pgerror.Newf(pgcode.UndefinedTable, "no table named %q", name)
	}
	return t, nil
}

// Table returns the named table, panicking if it does not exist.
func (tc *Catalog) Table(name string) *Table {
	t, ok := tc.tables[name]
	if !ok {
		panic(errors.AssertionFailedf("no table named %q", name))
	}
	return t
}

// GroupCount is part of the cat.Catalog interface.
func (tc *Catalog) GroupCount() int { return len(tc.groups) }

// Group is part of the cat.Catalog interface.
func (tc *Catalog) Group(i int) cat.Group { return tc.groups[i] }

// ColumnDef declares a table column.
type ColumnDef struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Nullable bool   `yaml:"nullable"`
}

// IndexDef declares a secondary index.
type IndexDef struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
	Unique  bool     `yaml:"unique"`
}

// TableDef declares a table. Parent and ParentKey declare the table's group
// parent: ParentKey lists the columns of this table that reference the
// parent's primary key, in primary key order.
type TableDef struct {
	Name       string      `yaml:"name"`
	Columns    []ColumnDef `yaml:"columns"`
	PrimaryKey []string    `yaml:"primary_key"`
	Indexes    []IndexDef  `yaml:"indexes"`
	Parent     string      `yaml:"parent"`
	ParentKey  []string    `yaml:"parent_key"`
	// Group names the group of a root table. It defaults to the table name.
	Group string `yaml:"group"`
}

// AddTable adds a table to the catalog. Tables may be added in any order;
// Finish must be called once all tables are added.
func (tc *Catalog) AddTable(def TableDef) (*Table, error) {
	if tc.finished {
		return nil, errors.AssertionFailedf("catalog is already finished")
	}
	if _, ok := tc.tables[def.Name]; ok {
		return nil, pgerror.Newf(pgcode.DuplicateObject, "table %q already exists", def.Name)
	}
	t := &Table{name: def.Name, def: def}
	for _, cd := range def.Columns {
		typ, ok := types.FromString(cd.Type)
		if !ok {
			return nil, pgerror.Newf(pgcode.InvalidTableDefinition,
				"table %q: unknown type %q for column %q", def.Name, cd.Type, cd.Name)
		}
		if cat.FindColumn(t, cd.Name) >= 0 {
			return nil, pgerror.Newf(pgcode.DuplicateObject,
				"table %q: duplicate column %q", def.Name, cd.Name)
		}
		t.columns = append(t.columns, cat.Column{Name: cd.Name, Type: typ, Nullable: cd.Nullable})
	}
	if len(def.PrimaryKey) > 0 {
		idx, err := t.makeIndex("primary", def.PrimaryKey, true /* unique */)
		if err != nil {
			return nil, err
		}
		idx.primary = true
		// Primary key columns are never NULL.
		for _, ord := range idx.columns {
			t.columns[ord].Nullable = false
		}
		t.indexes = append(t.indexes, idx)
	}
	for _, id := range def.Indexes {
		idx, err := t.makeIndex(id.Name, id.Columns, id.Unique)
		if err != nil {
			return nil, err
		}
		t.indexes = append(t.indexes, idx)
	}
	tc.tables[def.Name] = t
	tc.ordered = append(tc.ordered, t)
	return t, nil
}

// Finish resolves parent keys and builds the table groups.
func (tc *Catalog) Finish() error {
	if tc.finished {
		return nil
	}
	children := make(map[*Table][]*Table)
	var roots []*Table
	for _, t := range tc.ordered {
		if t.def.Parent == "" {
			if len(t.def.ParentKey) > 0 {
				return pgerror.Newf(pgcode.InvalidTableDefinition,
					"table %q: parent_key without parent", t.name)
			}
			roots = append(roots, t)
			continue
		}
		parent, ok := tc.tables[t.def.Parent]
		if !ok {
			return pgerror.Newf(pgcode.UndefinedTable,
				"table %q: no parent table named %q", t.name, t.def.Parent)
		}
		pk := parent.PrimaryIndex()
		if pk == nil {
			return pgerror.Newf(pgcode.InvalidTableDefinition,
				"table %q: parent %q has no primary key", t.name, parent.name)
		}
		if len(t.def.ParentKey) != pk.ColumnCount() {
			return pgerror.Newf(pgcode.InvalidTableDefinition,
				"table %q: parent key has %d columns, parent primary key has %d",
				t.name, len(t.def.ParentKey), pk.ColumnCount())
		}
		gj := &GroupJoin{parent: parent, child: t}
		for i, name := range t.def.ParentKey {
			ord := cat.FindColumn(t, name)
			if ord < 0 {
				return pgerror.Newf(pgcode.UndefinedColumn,
					"table %q: no column named %q", t.name, name)
			}
			gj.childCols = append(gj.childCols, ord)
			gj.parentCols = append(gj.parentCols, pk.ColumnOrdinal(i))
		}
		t.parentJoin = gj
		children[parent] = append(children[parent], t)
	}

	seen := make(map[*Table]bool)
	for _, root := range roots {
		g := &Group{name: root.def.Group}
		if g.name == "" {
			g.name = root.name
		}
		var add func(t *Table)
		add = func(t *Table) {
			seen[t] = true
			t.group = g
			t.ordinal = len(g.tables)
			g.tables = append(g.tables, t)
			for _, c := range children[t] {
				add(c)
			}
		}
		add(root)
		tc.groups = append(tc.groups, g)
	}
	for _, t := range tc.ordered {
		if !seen[t] {
			return pgerror.Newf(pgcode.InvalidTableDefinition,
				"table %q: parent chain forms a cycle", t.name)
		}
	}
	sort.Slice(tc.groups, func(i, j int) bool { return tc.groups[i].name < tc.groups[j].name })
	tc.finished = true
	return nil
}

// Table implements the cat.Table interface for testing purposes.
type Table struct {
	name       string
	def        TableDef
	columns    []cat.Column
	indexes    []*Index
	group      *Group
	ordinal    int
	parentJoin *GroupJoin
}

var _ cat.Table = &Table{}

func (t *Table) String() string { return t.name }

// Name is part of the cat.Table interface.
func (t *Table) Name() string { return t.name }

// ColumnCount is part of the cat.Table interface.
func (t *Table) ColumnCount() int { return len(t.columns) }

// Column is part of the cat.Table interface.
func (t *Table) Column(i int) *cat.Column { return &t.columns[i] }

// IndexCount is part of the cat.Table interface.
func (t *Table) IndexCount() int { return len(t.indexes) }

// Index is part of the cat.Table interface.
func (t *Table) Index(i int) cat.Index { return t.indexes[i] }

// PrimaryIndex is part of the cat.Table interface.
func (t *Table) PrimaryIndex() cat.Index {
	for _, idx := range t.indexes {
		if idx.primary {
			return idx
		}
	}
	return nil
}

// Group is part of the cat.Table interface.
func (t *Table) Group() cat.Group {
	if t.group == nil {
		return nil
	}
	return t.group
}

// GroupOrdinal is part of the cat.Table interface.
func (t *Table) GroupOrdinal() int { return t.ordinal }

// ParentJoin is part of the cat.Table interface.
func (t *Table) ParentJoin() cat.GroupJoin {
	if t.parentJoin == nil {
		return nil
	}
	return t.parentJoin
}

// ColumnOrdinal returns the ordinal of the named column, panicking if it
// does not exist.
func (t *Table) ColumnOrdinal(name string) int {
	ord := cat.FindColumn(t, name)
	if ord < 0 {
		panic(errors.AssertionFailedf("table %q has no column %q", t.name, name))
	}
	return ord
}

func (t *Table) makeIndex(name string, cols []string, unique bool) (*Index, error) {
	idx := &Index{name: name, unique: unique}
	for _, c := range cols {
		ord := cat.FindColumn(t, c)
		if ord < 0 {
			return nil, pgerror.Newf(pgcode.UndefinedColumn,
				"index %q on table %q: no column named %q", name, t.name, c)
		}
		idx.columns = append(idx.columns, ord)
	}
	if len(idx.columns) == 0 {
		return nil, pgerror.Newf(pgcode.InvalidTableDefinition,
			"index %q on table %q has no columns", name, t.name)
	}
	return idx, nil
}

// Index implements the cat.Index interface for testing purposes.
type Index struct {
	name    string
	unique  bool
	primary bool
	columns []int
}

var _ cat.Index = &Index{}

// Name is part of the cat.Index interface.
func (i *Index) Name() string { return i.name }

// IsUnique is part of the cat.Index interface.
func (i *Index) IsUnique() bool { return i.unique }

// IsPrimary is part of the cat.Index interface.
func (i *Index) IsPrimary() bool { return i.primary }

// ColumnCount is part of the cat.Index interface.
func (i *Index) ColumnCount() int { return len(i.columns) }

// ColumnOrdinal is part of the cat.Index interface.
func (i *Index) ColumnOrdinal(n int) int { return i.columns[n] }

// Group implements the cat.Group interface for testing purposes.
type Group struct {
	name   string
	tables []*Table
}

var _ cat.Group = &Group{}

// Name is part of the cat.Group interface.
func (g *Group) Name() string { return g.name }

// TableCount is part of the cat.Group interface.
func (g *Group) TableCount() int { return len(g.tables) }

// Table is part of the cat.Group interface.
func (g *Group) Table(i int) cat.Table { return g.tables[i] }

// GroupJoin implements the cat.GroupJoin interface for testing purposes.
type GroupJoin struct {
	parent, child         *Table
	childCols, parentCols []int
}

var _ cat.GroupJoin = &GroupJoin{}

// Parent is part of the cat.GroupJoin interface.
func (j *GroupJoin) Parent() cat.Table { return j.parent }

// Child is part of the cat.GroupJoin interface.
func (j *GroupJoin) Child() cat.Table { return j.child }

// ColumnCount is part of the cat.GroupJoin interface.
func (j *GroupJoin) ColumnCount() int { return len(j.childCols) }

// ChildColumn is part of the cat.GroupJoin interface.
func (j *GroupJoin) ChildColumn(i int) int { return j.childCols[i] }

// ParentColumn is part of the cat.GroupJoin interface.
func (j *GroupJoin) ParentColumn(i int) int { return j.parentCols[i] }

func (j *GroupJoin) String() string {
	return fmt.Sprintf("%s -> %s", j.child.name, j.parent.name)
}
