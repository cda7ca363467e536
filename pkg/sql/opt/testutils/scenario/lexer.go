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

package scenario

import (
	"strings"
	"unicode"

	"github.com/cockroachdb/planrw/pkg/sql/pgwire/pgcode"
	"github.com/cockroachdb/planrw/pkg/sql/pgwire/pgerror"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokParam
	tokSubquery
	tokPunct
)

type token struct {
	kind tokenKind
	// text is the identifier, literal or punctuation. Identifiers keep their
	// case; keywords are matched case-insensitively.
	text string
	pos  int
}

var punctuation = []string{"::", "<=", ">=", "!=", "<>", "(", ")", ",", ".", "=", "<", ">", "+", "-", "*", "/"}

// tokenize splits an expression into tokens.
func tokenize(s string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(s) {
		c := rune(s[i])
		switch {
		case unicode.IsSpace(c):
			i++

		case c == '_' || unicode.IsLetter(c):
			start := i
			for i < len(s) && (s[i] == '_' || unicode.IsLetter(rune(s[i])) || unicode.IsDigit(rune(s[i]))) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: s[start:i], pos: start})

		case unicode.IsDigit(c):
			start := i
			for i < len(s) && (unicode.IsDigit(rune(s[i])) || s[i] == '.') {
				i++
			}
			toks = append(toks, token{kind: tokNumber, text: s[start:i], pos: start})

		case c == '\'':
			start := i
			var b strings.Builder
			i++
			for {
				if i >= len(s) {
					return nil, syntaxErrorf(s, start, "unterminated string")
				}
				if s[i] == '\'' {
					if i+1 < len(s) && s[i+1] == '\'' {
						b.WriteByte('\'')
						i += 2
						continue
					}
					i++
					break
				}
				b.WriteByte(s[i])
				i++
			}
			toks = append(toks, token{kind: tokString, text: b.String(), pos: start})

		case c == '$' || c == '@':
			start := i
			i++
			for i < len(s) && (s[i] == '_' || unicode.IsLetter(rune(s[i])) || unicode.IsDigit(rune(s[i]))) {
				i++
			}
			if i == start+1 {
				return nil, syntaxErrorf(s, start, "expected name after %c", c)
			}
			kind := tokParam
			if c == '@' {
				kind = tokSubquery
			}
			toks = append(toks, token{kind: kind, text: s[start+1 : i], pos: start})

		default:
			matched := false
			for _, p := range punctuation {
				if strings.HasPrefix(s[i:], p) {
					toks = append(toks, token{kind: tokPunct, text: p, pos: i})
					i += len(p)
					matched = true
					break
				}
			}
			if !matched {
				return nil, syntaxErrorf(s, i, "unexpected character %q", c)
			}
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(s)}), nil
}

func syntaxErrorf(expr string, pos int, format string, args ...interface{}) error {
	err := pgerror.Newf(pgcode.Syntax, format, args...)
	return pgerror.Wrapf(err, pgcode.Syntax, "at or near position %d of %q", pos, expr)
}
