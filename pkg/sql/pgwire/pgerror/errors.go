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

// Package pgerror constructs errors annotated with PostgreSQL error codes on
// top of github.com/cockroachdb/errors.
package pgerror

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/planrw/pkg/sql/pgwire/pgcode"
	"github.com/cockroachdb/redact"
)

// New creates an error with a code.
func New(code pgcode.Code, msg string) error {
	err := errors.NewWithDepth(1, msg)
	err = WithCandidateCode(err, code)
	return err
}

// Newf creates an error with a code and a formatted message.
func Newf(code pgcode.Code, format string, args ...interface{}) error {
	err := errors.NewWithDepthf(1, format, args...)
	err = WithCandidateCode(err, code)
	return err
}

// NewWithDepthf creates an error with a pg code and extracts the context
// information at the specified depth level.
func NewWithDepthf(depth int, code pgcode.Code, format string, args ...interface{}) error {
	err := errors.NewWithDepthf(1+depth, format, args...)
	err = WithCandidateCode(err, code)
	return err
}

// WithCandidateCode decorates the error with a candidate postgres
// error code. It is called "candidate" because the code is only used
// by GetPGCode() below conditionally.
// The code is considered PII-free and is thus reportable.
func WithCandidateCode(err error, code pgcode.Code) error {
	if err == nil {
		return nil
	}
	return &withCandidateCode{cause: err, code: code.String()}
}

// GetPGCode retrieves the error code for an error. If the error chain
// contains multiple candidate codes, the innermost one wins. Assertion
// failures map to pgcode.Internal.
func GetPGCode(err error) pgcode.Code {
	if err == nil {
		return pgcode.Uncategorized
	}
	code := pgcode.Uncategorized
	if c, ok := err.(*withCandidateCode); ok {
		code = pgcode.MakeCode(c.code)
	} else if errors.IsAssertionFailure(err) {
		code = pgcode.Internal
	}
	if c := errors.UnwrapOnce(err); c != nil {
		if inner := GetPGCode(c); inner != pgcode.Uncategorized {
			code = inner
		}
	}
	return code
}

// HasCandidateCode returns true iff there's a candidate code anywhere in
// the causal chain.
func HasCandidateCode(err error) bool {
	return errors.HasType(err, (*withCandidateCode)(nil))
}

type withCandidateCode struct {
	cause error
	code  string
}

var _ error = (*withCandidateCode)(nil)
var _ errors.SafeFormatter = (*withCandidateCode)(nil)
var _ fmt.Formatter = (*withCandidateCode)(nil)

func (w *withCandidateCode) Error() string { return w.cause.Error() }
func (w *withCandidateCode) Cause() error  { return w.cause }
func (w *withCandidateCode) Unwrap() error { return w.cause }

func (w *withCandidateCode) Format(s fmt.State, verb rune) { errors.FormatError(w, s, verb) }

// SafeFormatError implements errors.SafeFormatter.
func (w *withCandidateCode) SafeFormatError(p errors.Printer) (next error) {
	if p.Detail() {
		p.Printf("candidate pg code: %s", redact.SafeString(w.code))
	}
	return w.cause
}
