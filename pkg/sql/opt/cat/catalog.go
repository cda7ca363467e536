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

// Package cat contains interfaces that are used by the plan rewriter to
// avoid taking a dependency on a particular schema store. The catalog
// exposes tables, their columns and indexes, and the table groups that
// cluster child rows under their parent rows.
package cat

import "github.com/cockroachdb/planrw/pkg/sql/types"

// Catalog is an interface to a database catalog, exposing only the
// information needed by the rewriter. It is read-only and may be shared by
// concurrent compilations.
type Catalog interface {
	// ResolveTable returns the table with the given name, or an error if
	// there is none.
	ResolveTable(name string) (Table, error)

	// GroupCount returns the number of table groups.
	GroupCount() int

	// Group returns the ith table group, where i < GroupCount.
	Group(i int) Group
}

// Column describes one column of a table.
type Column struct {
	Name     string
	Type     *types.T
	Nullable bool
}

// Table is an interface to a database table.
type Table interface {
	// Name returns the unqualified name of the table.
	Name() string

	// ColumnCount returns the number of columns in the table.
	ColumnCount() int

	// Column returns the ith column, where i < ColumnCount.
	Column(i int) *Column

	// IndexCount returns the number of indexes on the table, including the
	// primary index.
	IndexCount() int

	// Index returns the ith index, where i < IndexCount.
	Index(i int) Index

	// PrimaryIndex returns the primary index, or nil if the table has none.
	PrimaryIndex() Index

	// Group returns the table group the table belongs to. A table that is
	// not joined to any other table is the only member of its group.
	Group() Group

	// GroupOrdinal is the position of the table in the depth-first order in
	// which its group declares its members. The root has ordinal 0.
	GroupOrdinal() int

	// ParentJoin returns the declared join to the table's parent in its
	// group, or nil for a group root.
	ParentJoin() GroupJoin
}

// Index is an interface to a table index.
type Index interface {
	// Name is the name of the index.
	Name() string

	// IsUnique returns true if the index columns are unique.
	IsUnique() bool

	// IsPrimary returns true for the table's primary index.
	IsPrimary() bool

	// ColumnCount returns the number of indexed columns.
	ColumnCount() int

	// ColumnOrdinal returns the table column ordinal of the ith indexed
	// column.
	ColumnOrdinal(i int) int
}

// Group is a set of tables stored together: each child row is clustered
// under its parent row through a declared key.
type Group interface {
	// Name is the name of the group.
	Name() string

	// TableCount returns the number of member tables.
	TableCount() int

	// Table returns the ith member in declared depth-first order; the root
	// comes first.
	Table(i int) Table
}

// GroupJoin is the declared parent/child relationship between two tables of
// a group: child.ChildColumn(i) references parent.ParentColumn(i).
type GroupJoin interface {
	Parent() Table
	Child() Table

	// ColumnCount returns the number of key columns.
	ColumnCount() int

	// ChildColumn returns the child column ordinal of the ith key column.
	ChildColumn(i int) int

	// ParentColumn returns the parent column ordinal of the ith key column.
	ParentColumn(i int) int
}

// FindColumn returns the ordinal of the named column, or -1.
func FindColumn(t Table, name string) int {
	for i, n := 0, t.ColumnCount(); i < n; i++ {
		if t.Column(i).Name == name {
			return i
		}
	}
	return -1
}

// IsMultiTableGroup returns true if the table shares its group with at least
// one other table.
func IsMultiTableGroup(t Table) bool {
	g := t.Group()
	return g != nil && g.TableCount() > 1
}
