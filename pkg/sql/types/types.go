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

// Package types describes the SQL types the plan rewriter reasons about, and
// the overload and cast resolution service it consults when a rewrite creates
// a new expression.
package types

import "github.com/cockroachdb/redact"

// Family is the broad category of a type.
type Family int

const (
	// UnknownFamily is the type of NULL.
	UnknownFamily Family = iota
	BoolFamily
	IntFamily
	DecimalFamily
	FloatFamily
	StringFamily
	// AnyFamily matches every type in overload signatures.
	AnyFamily
)

var familyNames = [...]string{
	UnknownFamily: "unknown",
	BoolFamily:    "bool",
	IntFamily:     "int",
	DecimalFamily: "decimal",
	FloatFamily:   "float",
	StringFamily:  "string",
	AnyFamily:     "any",
}

func (f Family) String() string {
	if int(f) < len(familyNames) {
		return familyNames[f]
	}
	return "family(?)"
}

// SafeValue implements the redact.SafeValue interface.
func (Family) SafeValue() {}

// T is a SQL type. Types are compared by family; the pointers below are the
// canonical instances.
type T struct {
	family Family
}

// Canonical types.
var (
	Unknown = &T{family: UnknownFamily}
	Bool    = &T{family: BoolFamily}
	Int     = &T{family: IntFamily}
	Decimal = &T{family: DecimalFamily}
	Float   = &T{family: FloatFamily}
	String  = &T{family: StringFamily}
	Any     = &T{family: AnyFamily}
)

// Scalar lists the concrete scalar types.
var Scalar = []*T{Bool, Int, Decimal, Float, String}

// OfFamily returns the canonical type of a family.
func OfFamily(f Family) *T {
	switch f {
	case BoolFamily:
		return Bool
	case IntFamily:
		return Int
	case DecimalFamily:
		return Decimal
	case FloatFamily:
		return Float
	case StringFamily:
		return String
	case AnyFamily:
		return Any
	}
	return Unknown
}

// FromString parses a type name as printed by String.
func FromString(s string) (*T, bool) {
	for f, name := range familyNames {
		if name == s {
			return OfFamily(Family(f)), true
		}
	}
	switch s {
	case "integer", "int8", "bigint":
		return Int, true
	case "numeric":
		return Decimal, true
	case "text", "varchar":
		return String, true
	case "boolean":
		return Bool, true
	}
	return nil, false
}

// Family returns the type's family.
func (t *T) Family() Family { return t.family }

// Identical returns true if both types are of the same family.
func (t *T) Identical(other *T) bool { return t.family == other.family }

// Equivalent is like Identical, except that Any and Unknown match every type.
func (t *T) Equivalent(other *T) bool {
	if t.family == AnyFamily || other.family == AnyFamily {
		return true
	}
	if t.family == UnknownFamily || other.family == UnknownFamily {
		return true
	}
	return t.family == other.family
}

// IsNumeric returns true for the int, decimal and float families.
func (t *T) IsNumeric() bool {
	switch t.family {
	case IntFamily, DecimalFamily, FloatFamily:
		return true
	}
	return false
}

func (t *T) String() string { return t.family.String() }

// SafeFormat implements the redact.SafeFormatter interface.
func (t *T) SafeFormat(w redact.SafePrinter, _ rune) { w.Print(t.family) }
