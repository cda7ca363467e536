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

// Package pgcode defines the PostgreSQL error codes returned by the plan
// rewriter.
package pgcode

// Code is a PostgreSQL error code (SQLSTATE).
type Code struct {
	code string
}

// MakeCode converts a string into a Code.
func MakeCode(s string) Code {
	return Code{code: s}
}

// String returns the underlying SQLSTATE.
func (c Code) String() string {
	return c.code
}

// SafeValue implements the redact.SafeValue interface.
func (c Code) SafeValue() {}

// PostgreSQL error codes used by the rewriter. See
// https://www.postgresql.org/docs/current/errcodes-appendix.html.
var (
	// Uncategorized is used for errors that flow out to a client without a
	// more specific code.
	Uncategorized = MakeCode("XXUUU")
	// Internal is used for assertion failures and other programming defects.
	Internal = MakeCode("XX000")

	// Section: Class 0A - Feature Not Supported
	FeatureNotSupported = MakeCode("0A000")

	// Section: Class 22 - Data Exception
	InvalidParameterValue = MakeCode("22023")

	// Section: Class 42 - Syntax Error or Access Rule Violation
	Syntax                 = MakeCode("42601")
	Grouping               = MakeCode("42803")
	CannotCoerce           = MakeCode("42846")
	AmbiguousColumn        = MakeCode("42702")
	UndefinedTable         = MakeCode("42P01")
	UndefinedColumn        = MakeCode("42703")
	UndefinedFunction      = MakeCode("42883")
	DatatypeMismatch       = MakeCode("42804")
	DuplicateObject        = MakeCode("42710")
	UndefinedObject        = MakeCode("42704")
	InvalidTableDefinition = MakeCode("42P16")
)
