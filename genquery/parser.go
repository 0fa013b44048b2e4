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

import "strings"

// parser is a recursive-descent implementation of the grammar in §4.2.
type parser struct {
	toks []token
	pos  int
}

func parse(src string) (*Select, *CompileError) {
	toks, lexErr := lexAll(src)
	if lexErr != nil {
		return nil, lexErr
	}
	p := &parser{toks: toks}
	return p.parseSelect()
}

func (p *parser) cur() token {
	return p.toks[p.pos]
}

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) at(kind tokenKind) bool {
	return p.cur().kind == kind
}

func (p *parser) expect(kind tokenKind, what string) (token, *CompileError) {
	if !p.at(kind) {
		return token{}, p.unexpected(what)
	}
	return p.advance(), nil
}

func (p *parser) unexpected(expected string) *CompileError {
	t := p.cur()
	return newError(ParseError, t.pos, t.text, "unexpected token while expecting %s", expected)
}

func (p *parser) parseSelect() (*Select, *CompileError) {
	if _, err := p.expect(tokSelect, "SELECT"); err != nil {
		return nil, err
	}

	sel := &Select{Distinct: true}
	if p.at(tokDistinct) {
		p.advance()
	}

	selections, err := p.parseSelectionList()
	if err != nil {
		return nil, err
	}
	if len(selections) == 0 {
		t := p.cur()
		return nil, newError(EmptySelectionList, t.pos, "", "selection list must not be empty")
	}
	sel.Selections = selections

	if p.at(tokWhere) {
		p.advance()
		cond, err := p.parseCondExpr()
		if err != nil {
			return nil, err
		}
		sel.Where = cond
	}

	if p.at(tokOrder) {
		p.advance()
		if _, err := p.expect(tokBy, "BY"); err != nil {
			return nil, err
		}
		order, err := p.parseSortList()
		if err != nil {
			return nil, err
		}
		sel.Order = order
	}

	if p.at(tokOffset) {
		p.advance()
		tok, err := p.expect(tokInt, "an integer after OFFSET")
		if err != nil {
			return nil, err
		}
		sel.Range.Offset = tok.text
		sel.Range.OffsetPos = tok.pos
	}

	if p.at(tokFetch) {
		p.advance()
		if _, err := p.expect(tokFirst, "FIRST"); err != nil {
			return nil, err
		}
		tok, err := p.expect(tokInt, "an integer after FETCH FIRST")
		if err != nil {
			return nil, err
		}
		sel.Range.NumberOfRows = tok.text
		sel.Range.NumberRowsPos = tok.pos
		if _, err := p.expect(tokRows, "ROWS"); err != nil {
			return nil, err
		}
		if _, err := p.expect(tokOnly, "ONLY"); err != nil {
			return nil, err
		}
	}

	if !p.at(tokEOF) {
		return nil, p.unexpected("end of input")
	}

	return sel, nil
}

func (p *parser) parseSelectionList() ([]Selection, *CompileError) {
	var out []Selection
	sel, err := p.parseSelection()
	if err != nil {
		return nil, err
	}
	out = append(out, sel)
	for p.at(tokComma) {
		p.advance()
		sel, err := p.parseSelection()
		if err != nil {
			return nil, err
		}
		out = append(out, sel)
	}
	return out, nil
}

func (p *parser) parseSelection() (Selection, *CompileError) {
	if name, ok := aggregateNames[p.cur().kind]; ok {
		pos := p.cur().pos
		p.advance()
		if _, err := p.expect(tokLParen, "("); err != nil {
			return nil, err
		}
		col, err := p.parseColumnOrCast()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return SelectFunction{Name: name, Column: col, Pos: pos}, nil
	}

	if p.at(tokCast) {
		return p.parseCastColumn()
	}

	return p.parseBareColumn()
}

// parseColumnOrCast parses the single argument inside an aggregate's
// parens: either a bare column or a CAST(column AS type) form.
func (p *parser) parseColumnOrCast() (Column, *CompileError) {
	if p.at(tokCast) {
		col, err := p.parseCastColumn()
		if err != nil {
			return Column{}, err
		}
		return col, nil
	}
	return p.parseBareColumn()
}

func (p *parser) parseCastColumn() (Column, *CompileError) {
	p.advance() // CAST
	if _, err := p.expect(tokLParen, "("); err != nil {
		return Column{}, err
	}
	col, err := p.parseBareColumn()
	if err != nil {
		return Column{}, err
	}
	if _, err := p.expect(tokAs, "AS"); err != nil {
		return Column{}, err
	}
	typ, err := p.parseCastType()
	if err != nil {
		return Column{}, err
	}
	col.CastType = typ
	if _, err := p.expect(tokRParen, ")"); err != nil {
		return Column{}, err
	}
	return col, nil
}

// parseCastType accepts one of varchar(<n>), integer, bigint, numeric
// (§6). The type name itself isn't a lexer keyword, so it arrives as
// a plain identifier token; the lexer upper-cases identifiers, so the
// name is lower-cased again here.
func (p *parser) parseCastType() (string, *CompileError) {
	tok, err := p.expect(tokIdent, "a CAST type")
	if err != nil {
		return "", err
	}
	typ := strings.ToLower(tok.text)
	if p.at(tokLParen) {
		p.advance()
		n, err := p.expect(tokInt, "an integer length")
		if err != nil {
			return "", err
		}
		if _, err := p.expect(tokRParen, ")"); err != nil {
			return "", err
		}
		typ = typ + "(" + n.text + ")"
	}
	return typ, nil
}

func (p *parser) parseBareColumn() (Column, *CompileError) {
	tok, err := p.expect(tokIdent, "a column identifier")
	if err != nil {
		return Column{}, err
	}
	return Column{Name: tok.text, Pos: tok.pos}, nil
}

func (p *parser) parseCondExpr() (*Conditions, *CompileError) {
	first, err := p.parseCondTerm()
	if err != nil {
		return nil, err
	}
	conds := &Conditions{First: first}
	for p.at(tokAnd) || p.at(tokOr) {
		conj := conjAnd
		if p.at(tokOr) {
			conj = conjOr
		}
		p.advance()
		term, err := p.parseCondTerm()
		if err != nil {
			return nil, err
		}
		conds.Rest = append(conds.Rest, conditionsRest{Conjunction: conj, Term: term})
	}
	return conds, nil
}

func (p *parser) parseCondTerm() (*CondTerm, *CompileError) {
	if p.at(tokNot) {
		p.advance()
		inner, err := p.parseCondTerm()
		if err != nil {
			return nil, err
		}
		return &CondTerm{Node: ConditionNode{Not: inner}}, nil
	}

	if p.at(tokLParen) {
		p.advance()
		cond, err := p.parseCondExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return &CondTerm{Node: ConditionNode{Group: cond}}, nil
	}

	col, err := p.parseBareColumn()
	if err != nil {
		return nil, err
	}
	expr, err := p.parseCondRHS()
	if err != nil {
		return nil, err
	}
	return &CondTerm{Node: ConditionNode{Leaf: &Condition{Column: col, Expr: expr}}}, nil
}

func (p *parser) parseCondRHS() (ConditionExpression, *CompileError) {
	pos := p.cur().pos
	switch {
	case p.at(tokEq):
		p.advance()
		v, err := p.expectString()
		return ConditionExpression{Kind: CondEq, Values: []string{v}, Pos: pos}, err
	case p.at(tokNeq):
		p.advance()
		v, err := p.expectString()
		return ConditionExpression{Kind: CondNeq, Values: []string{v}, Pos: pos}, err
	case p.at(tokLt):
		p.advance()
		v, err := p.expectString()
		return ConditionExpression{Kind: CondLt, Values: []string{v}, Pos: pos}, err
	case p.at(tokLte):
		p.advance()
		v, err := p.expectString()
		return ConditionExpression{Kind: CondLte, Values: []string{v}, Pos: pos}, err
	case p.at(tokGt):
		p.advance()
		v, err := p.expectString()
		return ConditionExpression{Kind: CondGt, Values: []string{v}, Pos: pos}, err
	case p.at(tokGte):
		p.advance()
		v, err := p.expectString()
		return ConditionExpression{Kind: CondGte, Values: []string{v}, Pos: pos}, err
	case p.at(tokLike):
		p.advance()
		v, err := p.expectString()
		return ConditionExpression{Kind: CondLike, Values: []string{v}, Pos: pos}, err
	case p.at(tokIn):
		return p.parseIn(pos)
	case p.at(tokBetween):
		return p.parseBetween(pos)
	case p.at(tokIs):
		return p.parseIs(pos)
	}
	return ConditionExpression{}, p.unexpected("a comparison, LIKE, IN, BETWEEN, or IS")
}

func (p *parser) expectString() (string, *CompileError) {
	tok, err := p.expect(tokString, "a string literal")
	if err != nil {
		return "", err
	}
	return tok.text, nil
}

func (p *parser) parseIn(pos int) (ConditionExpression, *CompileError) {
	p.advance() // IN
	if _, err := p.expect(tokLParen, "("); err != nil {
		return ConditionExpression{}, err
	}
	// The grammar requires at least one string inside IN(...): a
	// zero-row IN() is a parse error, not an always-false predicate.
	first, err := p.expectString()
	if err != nil {
		return ConditionExpression{}, err
	}
	values := []string{first}
	for p.at(tokComma) {
		p.advance()
		v, err := p.expectString()
		if err != nil {
			return ConditionExpression{}, err
		}
		values = append(values, v)
	}
	if _, err := p.expect(tokRParen, ")"); err != nil {
		return ConditionExpression{}, err
	}
	return ConditionExpression{Kind: CondIn, Values: values, Pos: pos}, nil
}

func (p *parser) parseBetween(pos int) (ConditionExpression, *CompileError) {
	p.advance() // BETWEEN
	low, err := p.expectString()
	if err != nil {
		return ConditionExpression{}, err
	}
	if _, err := p.expect(tokAnd, "AND"); err != nil {
		return ConditionExpression{}, err
	}
	high, err := p.expectString()
	if err != nil {
		return ConditionExpression{}, err
	}
	return ConditionExpression{Kind: CondBetween, Values: []string{low, high}, Pos: pos}, nil
}

func (p *parser) parseIs(pos int) (ConditionExpression, *CompileError) {
	p.advance() // IS
	kind := CondIsNull
	if p.at(tokNot) {
		p.advance()
		kind = CondIsNotNull
	}
	if _, err := p.expect(tokNull, "NULL"); err != nil {
		return ConditionExpression{}, err
	}
	return ConditionExpression{Kind: kind, Pos: pos}, nil
}

func (p *parser) parseSortList() (OrderBy, *CompileError) {
	var order OrderBy
	for {
		col, err := p.parseBareColumn()
		if err != nil {
			return OrderBy{}, err
		}
		asc := true
		if p.at(tokAsc) {
			p.advance()
		} else if p.at(tokDesc) {
			p.advance()
			asc = false
		}
		order.Expressions = append(order.Expressions, SortExpression{Column: col, Ascending: asc})
		if !p.at(tokComma) {
			break
		}
		p.advance()
	}
	return order, nil
}
