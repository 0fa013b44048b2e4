// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package genquery

import (
	"strings"
)

// lexer turns a source string into a token stream (§4.1). It never
// does I/O: the whole source is already an in-memory string.
type lexer struct {
	src string
	pos int
}

func newLexer(src string) *lexer {
	return &lexer{src: src}
}

// lexAll tokenizes the whole source, ending with a single tokEOF.
func lexAll(src string) ([]token, *CompileError) {
	l := newLexer(src)
	var toks []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.kind == tokEOF {
			return toks, nil
		}
	}
}

func (l *lexer) next() (token, *CompileError) {
	l.skipSpace()
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: l.pos}, nil
	}

	start := l.pos
	c := l.src[l.pos]

	switch {
	case c == '\'':
		return l.lexString()
	case isDigit(c):
		return l.lexInt()
	case isIdentStart(c):
		return l.lexIdentOrKeyword()
	}

	switch c {
	case ',':
		l.pos++
		return token{kind: tokComma, text: ",", pos: start}, nil
	case '(':
		l.pos++
		return token{kind: tokLParen, text: "(", pos: start}, nil
	case ')':
		l.pos++
		return token{kind: tokRParen, text: ")", pos: start}, nil
	case '=':
		l.pos++
		return token{kind: tokEq, text: "=", pos: start}, nil
	case '!':
		if l.peekAt(1) == '=' {
			l.pos += 2
			return token{kind: tokNeq, text: "!=", pos: start}, nil
		}
	case '<':
		if l.peekAt(1) == '=' {
			l.pos += 2
			return token{kind: tokLte, text: "<=", pos: start}, nil
		}
		l.pos++
		return token{kind: tokLt, text: "<", pos: start}, nil
	case '>':
		if l.peekAt(1) == '=' {
			l.pos += 2
			return token{kind: tokGte, text: ">=", pos: start}, nil
		}
		l.pos++
		return token{kind: tokGt, text: ">", pos: start}, nil
	}

	return token{}, newError(LexError, start, string(c), "unexpected character %q", c)
}

func (l *lexer) peekAt(offset int) byte {
	if l.pos+offset >= len(l.src) {
		return 0
	}
	return l.src[l.pos+offset]
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case ' ', '\t', '\n', '\r':
			l.pos++
		default:
			return
		}
	}
}

func (l *lexer) lexString() (token, *CompileError) {
	start := l.pos
	l.pos++ // consume opening quote
	var b strings.Builder
	for {
		if l.pos >= len(l.src) {
			return token{}, newError(LexError, start, "", "unterminated string literal")
		}
		c := l.src[l.pos]
		if c == '\'' {
			if l.peekAt(1) == '\'' {
				b.WriteByte('\'')
				l.pos += 2
				continue
			}
			l.pos++
			return token{kind: tokString, text: b.String(), pos: start}, nil
		}
		b.WriteByte(c)
		l.pos++
	}
}

func (l *lexer) lexInt() (token, *CompileError) {
	start := l.pos
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	return token{kind: tokInt, text: l.src[start:l.pos], pos: start}, nil
}

func (l *lexer) lexIdentOrKeyword() (token, *CompileError) {
	start := l.pos
	for l.pos < len(l.src) && isIdentCont(l.src[l.pos]) {
		l.pos++
	}
	text := l.src[start:l.pos]
	upper := strings.ToUpper(text)
	if kind, ok := keywords[upper]; ok {
		return token{kind: kind, text: upper, pos: start}, nil
	}
	return token{kind: tokIdent, text: upper, pos: start}, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == '_'
}
