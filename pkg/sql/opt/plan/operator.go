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

package plan

import "github.com/cockroachdb/redact"

// Operator identifies the variant of a plan node.
type Operator uint8

const (
	UnknownOp Operator = iota

	// -- Leaves --

	// TableSourceOp is a reference to a catalog table.
	TableSourceOp
	// ValuesOp is a literal row set.
	ValuesOp
	// GroupJoinTreeOp holds the members of a table group joined through their
	// declared parent/child keys, arranged as a tree of group joins.
	GroupJoinTreeOp

	// -- Unary --

	// TableJoinsOp collects the joins among the tables of one table group.
	TableJoinsOp
	SelectOp
	ProjectOp
	SortOp
	LimitOp
	DistinctOp
	AggregateOp
	// NullIfEmptyOp produces a single all-NULL row if its input is empty.
	NullIfEmptyOp
	// OnlyIfEmptyOp produces a single row if and only if its input is empty.
	OnlyIfEmptyOp

	// -- Binary --

	JoinOp
	// MapJoinOp evaluates its inner side once for each row of its outer side.
	MapJoinOp

	// -- Statements --

	SelectQueryOp
	InsertStatementOp
	UpdateStatementOp
	DeleteStatementOp
	// SubqueryOp roots a nested plan referenced by a SubqueryExpr.
	SubqueryOp

	// NumOperators tracks the total count of operators.
	NumOperators
)

var opNames = [...]string{
	UnknownOp:         "unknown",
	TableSourceOp:     "table",
	ValuesOp:          "values",
	GroupJoinTreeOp:   "group-join-tree",
	TableJoinsOp:      "table-joins",
	SelectOp:          "select",
	ProjectOp:         "project",
	SortOp:            "sort",
	LimitOp:           "limit",
	DistinctOp:        "distinct",
	AggregateOp:       "aggregate",
	NullIfEmptyOp:     "null-if-empty",
	OnlyIfEmptyOp:     "only-if-empty",
	JoinOp:            "join",
	MapJoinOp:         "map",
	SelectQueryOp:     "select-query",
	InsertStatementOp: "insert",
	UpdateStatementOp: "update",
	DeleteStatementOp: "delete",
	SubqueryOp:        "subquery",
}

func (op Operator) String() string {
	if op >= NumOperators {
		return "operator(?)"
	}
	return opNames[op]
}

// SafeFormat implements the redact.SafeFormatter interface.
func (op Operator) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Print(redact.SafeString(op.String()))
}

// IsStatement returns true for the statement wrappers.
func (op Operator) IsStatement() bool {
	switch op {
	case SelectQueryOp, InsertStatementOp, UpdateStatementOp, DeleteStatementOp:
		return true
	}
	return false
}

// JoinKind is the type of a join.
type JoinKind uint8

const (
	InnerJoin JoinKind = iota
	LeftJoin
	RightJoin
	SemiJoin
	AntiJoin
	FullJoin
)

var joinKindNames = [...]string{
	InnerJoin: "inner",
	LeftJoin:  "left",
	RightJoin: "right",
	SemiJoin:  "semi",
	AntiJoin:  "anti",
	FullJoin:  "full",
}

func (k JoinKind) String() string {
	if int(k) < len(joinKindNames) {
		return joinKindNames[k]
	}
	return "join(?)"
}

// SafeFormat implements the redact.SafeFormatter interface.
func (k JoinKind) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Print(redact.SafeString(k.String()))
}

// IsOuter returns true for LEFT, RIGHT and FULL joins.
func (k JoinKind) IsOuter() bool {
	return k == LeftJoin || k == RightJoin || k == FullJoin
}

// CompareOp is the operator of a ComparisonExpr.
type CompareOp uint8

const (
	EQ CompareOp = iota
	NE
	LT
	LE
	GT
	GE
)

var compareOpNames = [...]string{EQ: "=", NE: "!=", LT: "<", LE: "<=", GT: ">", GE: ">="}

func (op CompareOp) String() string {
	if int(op) < len(compareOpNames) {
		return compareOpNames[op]
	}
	return "?"
}

// Commute returns the operator to use when the operands are swapped.
func (op CompareOp) Commute() CompareOp {
	switch op {
	case LT:
		return GT
	case LE:
		return GE
	case GT:
		return LT
	case GE:
		return LE
	}
	return op
}
