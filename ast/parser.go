// Copyright 2024 The GraphCypher Authors.
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

package ast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cypherdb/graphengine/core"
	"github.com/cypherdb/graphengine/token"
)

// Parser is a recursive-descent, one-token-lookahead (two, to recognize
// a path variable binding `p = (...)`) parser producing a tree rooted
// in a Query node, per §4.2.
type Parser struct {
	src      string
	lex      *token.Lexer
	cur      token.Token
	lookahd  *token.Token
	depth    int
	maxDepth int
}

// Parse parses a complete query string and returns its AST, or a
// *core.QueryError: Category core.Syntax for malformed input or an
// exceeded recursion limit, core.Semantic (ErrEmptyQuery) for a query
// with no clauses.
func Parse(src string, maxParserDepth int) (*Query, error) {
	p := &Parser{src: src, lex: token.New(src), maxDepth: maxParserDepth}
	p.advance()
	q, err := p.parseQuery()
	if err != nil {
		return nil, err
	}
	if p.cur.Kind != token.EOF {
		return nil, p.syntaxErrorf("unexpected trailing input near %q", p.cur.Text)
	}
	return q, nil
}

func (p *Parser) advance() {
	if p.lookahd != nil {
		p.cur = *p.lookahd
		p.lookahd = nil
		return
	}
	p.cur = p.lex.Next()
}

func (p *Parser) peek() token.Token {
	if p.lookahd == nil {
		t := p.lex.Next()
		p.lookahd = &t
	}
	return *p.lookahd
}

func (p *Parser) pos() Position {
	return Position{Line: p.cur.Line, Column: p.cur.Column}
}

func (p *Parser) enter() error {
	p.depth++
	if p.maxDepth > 0 && p.depth > p.maxDepth {
		return core.ErrRecursionLimit.New(p.maxDepth)
	}
	return nil
}

func (p *Parser) leave() { p.depth-- }

func (p *Parser) context() string {
	start := p.cur.Column - 1
	line := p.currentLineText()
	if start < 0 {
		start = 0
	}
	if start > len(line) {
		start = len(line)
	}
	s := line[start:]
	if len(s) > 64 {
		s = s[:64]
	}
	return s
}

func (p *Parser) currentLineText() string {
	lines := strings.Split(p.src, "\n")
	idx := p.cur.Line - 1
	if idx < 0 || idx >= len(lines) {
		return ""
	}
	return lines[idx]
}

func (p *Parser) syntaxErrorf(format string, args ...interface{}) error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return core.ErrSyntax.New(msg).AtLocation(p.cur.Line, p.cur.Column, p.context())
}

func (p *Parser) expect(k token.Kind) (token.Token, error) {
	if p.cur.Kind != k {
		return token.Token{}, p.syntaxErrorf("expected %v, found %v", k, p.cur.Kind)
	}
	t := p.cur
	p.advance()
	return t, nil
}

func (p *Parser) at(k token.Kind) bool { return p.cur.Kind == k }

// ---- top-level grammar ----

func (p *Parser) parseQuery() (*Query, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	start := p.pos()
	first, err := p.parseSingleQuery()
	if err != nil {
		return nil, err
	}
	if len(first.Clauses) == 0 {
		return nil, core.ErrEmptyQuery.New()
	}

	q := &Query{Position: start, First: first}
	for p.at(token.UNION) {
		upos := p.pos()
		p.advance()
		all := false
		if p.at(token.ALL) {
			all = true
			p.advance()
		}
		sq, err := p.parseSingleQuery()
		if err != nil {
			return nil, err
		}
		q.Unions = append(q.Unions, &UnionPart{Position: upos, All: all, Query: sq})
	}
	return q, nil
}

func (p *Parser) parseSingleQuery() (*SingleQuery, error) {
	start := p.pos()
	sq := &SingleQuery{Position: start}
	for {
		switch p.cur.Kind {
		case token.MATCH, token.OPTIONAL:
			m, err := p.parseMatch()
			if err != nil {
				return nil, err
			}
			sq.Clauses = append(sq.Clauses, m)
		case token.WITH:
			w, err := p.parseWith()
			if err != nil {
				return nil, err
			}
			sq.Clauses = append(sq.Clauses, w)
		case token.CREATE:
			c, err := p.parseCreate()
			if err != nil {
				return nil, err
			}
			sq.Clauses = append(sq.Clauses, c)
		case token.MERGE:
			m, err := p.parseMerge()
			if err != nil {
				return nil, err
			}
			sq.Clauses = append(sq.Clauses, m)
		case token.SET:
			s, err := p.parseSet()
			if err != nil {
				return nil, err
			}
			sq.Clauses = append(sq.Clauses, s)
		case token.REMOVE:
			r, err := p.parseRemove()
			if err != nil {
				return nil, err
			}
			sq.Clauses = append(sq.Clauses, r)
		case token.DELETE, token.DETACH:
			d, err := p.parseDelete()
			if err != nil {
				return nil, err
			}
			sq.Clauses = append(sq.Clauses, d)
		case token.RETURN:
			r, err := p.parseReturn()
			if err != nil {
				return nil, err
			}
			sq.Clauses = append(sq.Clauses, r)
			return sq, nil
		default:
			return sq, nil
		}
	}
}

func (p *Parser) parseMatch() (*Match, error) {
	start := p.pos()
	optional := false
	if p.at(token.OPTIONAL) {
		optional = true
		p.advance()
	}
	if _, err := p.expect(token.MATCH); err != nil {
		return nil, err
	}
	patterns, err := p.parsePatternList()
	if err != nil {
		return nil, err
	}
	m := &Match{Position: start, Optional: optional, Patterns: patterns}
	if p.at(token.WHERE) {
		p.advance()
		w, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		m.Where = w
	}
	return m, nil
}

func (p *Parser) parsePatternList() ([]*PatternPath, error) {
	var paths []*PatternPath
	for {
		path, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
		if p.at(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	return paths, nil
}

func (p *Parser) parsePattern() (*PatternPath, error) {
	start := p.pos()
	path := &PatternPath{Position: start}
	if p.at(token.IDENT) && p.peek().Kind == token.EQ {
		path.Variable = p.cur.Text
		p.advance()
		p.advance()
	}
	n, err := p.parseNodePattern()
	if err != nil {
		return nil, err
	}
	path.Nodes = append(path.Nodes, n)
	for p.at(token.MINUS) || p.at(token.ARROWL) || p.at(token.BOTHARR) {
		rel, err := p.parseRelPattern()
		if err != nil {
			return nil, err
		}
		nn, err := p.parseNodePattern()
		if err != nil {
			return nil, err
		}
		path.Rels = append(path.Rels, rel)
		path.Nodes = append(path.Nodes, nn)
	}
	return path, nil
}

func (p *Parser) parseNodePattern() (*NodePattern, error) {
	start := p.pos()
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	n := &NodePattern{Position: start}
	if p.at(token.IDENT) {
		n.Variable = p.cur.Text
		p.advance()
	}
	for p.at(token.COLON) {
		p.advance()
		lbl, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		n.Labels = append(n.Labels, lbl.Text)
	}
	if p.at(token.LBRACE) {
		m, err := p.parseMapLiteral()
		if err != nil {
			return nil, err
		}
		n.Properties = m
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return n, nil
}

// parseRelPattern parses `-[...]-`, optionally preceded by `<-` or
// `<->` and followed by `->`, covering direction per §4.2's rel_pattern
// production.
func (p *Parser) parseRelPattern() (*RelPattern, error) {
	start := p.pos()
	rel := &RelPattern{Position: start}

	leftArrow := false
	bothArrow := false
	switch p.cur.Kind {
	case token.ARROWL:
		leftArrow = true
		p.advance()
	case token.BOTHARR:
		bothArrow = true
		p.advance()
	case token.MINUS:
		p.advance()
	default:
		return nil, p.syntaxErrorf("expected relationship pattern, found %v", p.cur.Kind)
	}

	hasBracket := p.at(token.LBRACK)
	if hasBracket {
		p.advance()
		if p.at(token.IDENT) {
			rel.Variable = p.cur.Text
			p.advance()
		}
		if p.at(token.COLON) {
			p.advance()
			t, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
			rel.Types = append(rel.Types, t.Text)
			for p.at(token.PIPE) {
				p.advance()
				t, err := p.expect(token.IDENT)
				if err != nil {
					return nil, err
				}
				rel.Types = append(rel.Types, t.Text)
			}
		}
		if p.at(token.STAR) {
			rel.VarLength = true
			p.advance()
			if p.at(token.INT) {
				lo, err := strconv.Atoi(p.cur.Text)
				if err != nil {
					return nil, p.syntaxErrorf("invalid hop count %q", p.cur.Text)
				}
				p.advance()
				rel.MinHops = &lo
				if p.at(token.DOT) {
					// ".." range separator is two DOT tokens
					p.advance()
					if _, err := p.expect(token.DOT); err != nil {
						return nil, err
					}
					if p.at(token.INT) {
						hi, err := strconv.Atoi(p.cur.Text)
						if err != nil {
							return nil, p.syntaxErrorf("invalid hop count %q", p.cur.Text)
						}
						p.advance()
						rel.MaxHops = &hi
					}
				} else {
					rel.MaxHops = &lo
				}
			}
		}
		if p.at(token.LBRACE) {
			m, err := p.parseMapLiteral()
			if err != nil {
				return nil, err
			}
			rel.Properties = m
		}
		if _, err := p.expect(token.RBRACK); err != nil {
			return nil, err
		}
	}

	rightArrow := false
	switch {
	case bothArrow:
		// already consumed both arrowheads in "<->"
	case p.at(token.ARROWR):
		rightArrow = true
		p.advance()
	case p.at(token.MINUS):
		p.advance()
	default:
		return nil, p.syntaxErrorf("expected relationship pattern terminator, found %v", p.cur.Kind)
	}

	switch {
	case bothArrow:
		rel.Direction = DirBoth
	case leftArrow && rightArrow:
		rel.Direction = DirBoth
	case leftArrow:
		rel.Direction = DirIn
	case rightArrow:
		rel.Direction = DirOut
	default:
		rel.Direction = DirNone
	}
	return rel, nil
}

func (p *Parser) parseMapLiteral() (*MapLiteral, error) {
	start := p.pos()
	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	m := &MapLiteral{Position: start}
	for !p.at(token.RBRACE) {
		ppos := p.pos()
		key, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.COLON); err != nil {
			return nil, err
		}
		val, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		m.Pairs = append(m.Pairs, PropertyPair{Position: ppos, Key: key.Text, Value: val})
		if p.at(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	return m, nil
}

func (p *Parser) parseWith() (*With, error) {
	start := p.pos()
	p.advance() // WITH
	w := &With{Position: start}
	if p.at(token.DISTINCT) {
		w.Distinct = true
		p.advance()
	}
	items, err := p.parseProjectionList()
	if err != nil {
		return nil, err
	}
	w.Items = items
	if err := p.parseOrderSkipLimit(&w.OrderBy, &w.Skip, &w.Limit); err != nil {
		return nil, err
	}
	if p.at(token.WHERE) {
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		w.Where = expr
	}
	return w, nil
}

func (p *Parser) parseReturn() (*Return, error) {
	start := p.pos()
	p.advance() // RETURN
	r := &Return{Position: start}
	if p.at(token.DISTINCT) {
		r.Distinct = true
		p.advance()
	}
	items, err := p.parseProjectionList()
	if err != nil {
		return nil, err
	}
	r.Items = items
	if err := p.parseOrderSkipLimit(&r.OrderBy, &r.Skip, &r.Limit); err != nil {
		return nil, err
	}
	return r, nil
}

func (p *Parser) parseProjectionList() ([]*ProjectionItem, error) {
	var items []*ProjectionItem
	for {
		ipos := p.pos()
		if p.at(token.STAR) {
			p.advance()
			items = append(items, &ProjectionItem{Position: ipos, Star: true})
		} else {
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			item := &ProjectionItem{Position: ipos, Expr: expr}
			if p.at(token.AS) {
				p.advance()
				alias, err := p.expect(token.IDENT)
				if err != nil {
					return nil, err
				}
				item.Alias = alias.Text
			}
			items = append(items, item)
		}
		if p.at(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	return items, nil
}

func (p *Parser) parseOrderSkipLimit(order *[]*SortItem, skip, limit *Expr) error {
	if p.at(token.ORDER) {
		p.advance()
		if _, err := p.expect(token.BY); err != nil {
			return err
		}
		for {
			ipos := p.pos()
			expr, err := p.parseExpression()
			if err != nil {
				return err
			}
			desc := false
			if p.at(token.ASC) {
				p.advance()
			} else if p.at(token.DESC) {
				desc = true
				p.advance()
			}
			*order = append(*order, &SortItem{Position: ipos, Expr: expr, Desc: desc})
			if p.at(token.COMMA) {
				p.advance()
				continue
			}
			break
		}
	}
	if p.at(token.SKIP) {
		p.advance()
		e, err := p.parseExpression()
		if err != nil {
			return err
		}
		*skip = e
	}
	if p.at(token.LIMIT) {
		p.advance()
		e, err := p.parseExpression()
		if err != nil {
			return err
		}
		*limit = e
	}
	return nil
}

func (p *Parser) parseCreate() (*Create, error) {
	start := p.pos()
	p.advance() // CREATE
	patterns, err := p.parsePatternList()
	if err != nil {
		return nil, err
	}
	return &Create{Position: start, Patterns: patterns}, nil
}

func (p *Parser) parseMerge() (*Merge, error) {
	start := p.pos()
	p.advance() // MERGE
	pattern, err := p.parsePattern()
	if err != nil {
		return nil, err
	}
	m := &Merge{Position: start, Pattern: pattern}
	return m, nil
}

func (p *Parser) parseSet() (*SetClause, error) {
	start := p.pos()
	p.advance() // SET
	s := &SetClause{Position: start}
	for {
		item, err := p.parseSetItem()
		if err != nil {
			return nil, err
		}
		s.Items = append(s.Items, item)
		if p.at(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	return s, nil
}

func (p *Parser) parseSetItem() (*SetItem, error) {
	start := p.pos()
	name, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	item := &SetItem{Position: start, Variable: name.Text}
	switch {
	case p.at(token.DOT):
		p.advance()
		prop, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		item.Property = prop.Text
		if _, err := p.expect(token.EQ); err != nil {
			return nil, err
		}
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		item.Expr = expr
	case p.at(token.COLON):
		for p.at(token.COLON) {
			p.advance()
			lbl, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
			item.Labels = append(item.Labels, lbl.Text)
		}
	case p.at(token.EQ):
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		item.Expr = expr
	default:
		return nil, p.syntaxErrorf("expected '.', ':' or '=' in SET item, found %v", p.cur.Kind)
	}
	return item, nil
}

func (p *Parser) parseRemove() (*RemoveClause, error) {
	start := p.pos()
	p.advance() // REMOVE
	r := &RemoveClause{Position: start}
	for {
		ipos := p.pos()
		name, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		item := &RemoveItem{Position: ipos, Variable: name.Text}
		switch {
		case p.at(token.DOT):
			p.advance()
			prop, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
			item.Property = prop.Text
		case p.at(token.COLON):
			p.advance()
			lbl, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
			item.Label = lbl.Text
		default:
			return nil, p.syntaxErrorf("expected '.' or ':' in REMOVE item, found %v", p.cur.Kind)
		}
		r.Items = append(r.Items, item)
		if p.at(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	return r, nil
}

func (p *Parser) parseDelete() (*DeleteClause, error) {
	start := p.pos()
	d := &DeleteClause{Position: start}
	if p.at(token.DETACH) {
		d.Detach = true
		p.advance()
	}
	if _, err := p.expect(token.DELETE); err != nil {
		return nil, err
	}
	for {
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		d.Exprs = append(d.Exprs, e)
		if p.at(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	return d, nil
}

// ---- expressions ----

func (p *Parser) parseExpression() (Expr, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (Expr, error) {
	left, err := p.parseXor()
	if err != nil {
		return nil, err
	}
	for p.at(token.OR) {
		opPos := p.pos()
		p.advance()
		right, err := p.parseXor()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Position: opPos, Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseXor() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.at(token.XOR) {
		opPos := p.pos()
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Position: opPos, Op: "XOR", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.at(token.AND) {
		opPos := p.pos()
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Position: opPos, Op: "AND", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseNot() (Expr, error) {
	if p.at(token.NOT) {
		notPos := p.pos()
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &Not{Position: notPos, Operand: operand}, nil
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		opPos := p.pos()
		switch p.cur.Kind {
		case token.EQ, token.NEQ, token.LT, token.LTE, token.GT, token.GTE:
			op := p.cur.Text
			p.advance()
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &BinaryOp{Position: opPos, Op: op, Left: left, Right: right}
		case token.REGEX:
			p.advance()
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &RegexMatch{Position: opPos, Left: left, Right: right}
		case token.IN:
			p.advance()
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &InExpr{Position: opPos, Operand: left, List: right}
		case token.STARTS:
			p.advance()
			if _, err := p.expect(token.WITH); err != nil {
				return nil, err
			}
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &StringMatch{Position: opPos, Op: "STARTS WITH", Left: left, Right: right}
		case token.ENDS:
			p.advance()
			if _, err := p.expect(token.WITH); err != nil {
				return nil, err
			}
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &StringMatch{Position: opPos, Op: "ENDS WITH", Left: left, Right: right}
		case token.CONTAINS:
			p.advance()
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &StringMatch{Position: opPos, Op: "CONTAINS", Left: left, Right: right}
		case token.IS:
			p.advance()
			negated := false
			if p.at(token.NOT) {
				negated = true
				p.advance()
			}
			if _, err := p.expect(token.NULL); err != nil {
				return nil, err
			}
			left = &IsNullExpr{Position: opPos, Operand: left, Negated: negated}
		default:
			return left, nil
		}
	}
}

func (p *Parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.at(token.PLUS) || p.at(token.MINUS) {
		opPos := p.pos()
		op := p.cur.Text
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Position: opPos, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.at(token.STAR) || p.at(token.SLASH) || p.at(token.PCT) || p.at(token.CARET) {
		opPos := p.pos()
		op := p.cur.Text
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Position: opPos, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (Expr, error) {
	if p.at(token.PLUS) || p.at(token.MINUS) {
		opPos := p.pos()
		op := p.cur.Text
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryOp{Position: opPos, Op: op, Operand: operand}, nil
	}
	return p.parsePostfix()
}

// parsePostfix parses a primary expression followed by zero or more
// `.property` / `[index]` accessors, the highest-precedence tier.
func (p *Parser) parsePostfix() (Expr, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur.Kind {
		case token.DOT:
			dotPos := p.pos()
			p.advance()
			name, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
			expr = &Property{Position: dotPos, Target: expr, Property: name.Text}
		case token.LBRACK:
			bPos := p.pos()
			p.advance()
			idx, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RBRACK); err != nil {
				return nil, err
			}
			expr = &Index{Position: bPos, Target: expr, Index: idx}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parsePrimary() (Expr, error) {
	start := p.pos()
	switch p.cur.Kind {
	case token.INT:
		n, err := strconv.ParseInt(p.cur.Text, 10, 64)
		if err != nil {
			return nil, p.syntaxErrorf("invalid integer literal %q", p.cur.Text)
		}
		p.advance()
		return &Literal{Position: start, Value: core.Int(n)}, nil
	case token.FLOAT:
		f, err := strconv.ParseFloat(p.cur.Text, 64)
		if err != nil {
			return nil, p.syntaxErrorf("invalid float literal %q", p.cur.Text)
		}
		p.advance()
		return &Literal{Position: start, Value: core.Float(f)}, nil
	case token.STRING:
		s := p.cur.Text
		p.advance()
		return &Literal{Position: start, Value: core.String(s)}, nil
	case token.TRUE:
		p.advance()
		return &Literal{Position: start, Value: core.Bool(true)}, nil
	case token.FALSE:
		p.advance()
		return &Literal{Position: start, Value: core.Bool(false)}, nil
	case token.NULL:
		p.advance()
		return &Literal{Position: start, Value: core.Null()}, nil
	case token.DOLLAR:
		p.advance()
		name, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		return &Parameter{Position: start, Name: name.Text}, nil
	case token.LPAREN:
		p.advance()
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return e, nil
	case token.LBRACK:
		p.advance()
		list := &ListLiteral{Position: start}
		for !p.at(token.RBRACK) {
			e, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			list.Items = append(list.Items, e)
			if p.at(token.COMMA) {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expect(token.RBRACK); err != nil {
			return nil, err
		}
		return list, nil
	case token.LBRACE:
		return p.parseMapLiteral()
	case token.IDENT:
		if strings.EqualFold(p.cur.Text, "case") {
			return p.parseCase()
		}
		return p.parseIdentOrCall()
	default:
		return nil, p.syntaxErrorf("unexpected token %v in expression", p.cur.Kind)
	}
}

func (p *Parser) parseIdentOrCall() (Expr, error) {
	start := p.pos()
	name := p.cur.Text
	p.advance()
	if p.at(token.LPAREN) {
		p.advance()
		call := &FunctionCall{Position: start, Name: name}
		if p.at(token.DISTINCT) {
			call.Distinct = true
			p.advance()
		}
		if p.at(token.STAR) {
			call.Star = true
			p.advance()
		} else {
			for !p.at(token.RPAREN) {
				arg, err := p.parseExpression()
				if err != nil {
					return nil, err
				}
				call.Args = append(call.Args, arg)
				if p.at(token.COMMA) {
					p.advance()
					continue
				}
				break
			}
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return call, nil
	}
	return &Identifier{Position: start, Name: name}, nil
}

func (p *Parser) parseCase() (Expr, error) {
	start := p.pos()
	p.advance() // "case" identifier
	c := &Case{Position: start}
	if !isWhenKeyword(p.cur) {
		test, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		c.Test = test
	}
	for isWhenKeyword(p.cur) {
		p.advance()
		cond, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if !isThenKeyword(p.cur) {
			return nil, p.syntaxErrorf("expected THEN in CASE, found %v", p.cur.Text)
		}
		p.advance()
		result, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		c.Whens = append(c.Whens, CaseWhen{Cond: cond, Result: result})
	}
	if isElseKeyword(p.cur) {
		p.advance()
		def, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		c.Default = def
	}
	if !isEndKeyword(p.cur) {
		return nil, p.syntaxErrorf("expected END to close CASE, found %v", p.cur.Text)
	}
	p.advance()
	return c, nil
}

func isWhenKeyword(t token.Token) bool {
	return t.Kind == token.IDENT && strings.EqualFold(t.Text, "when")
}
func isThenKeyword(t token.Token) bool {
	return t.Kind == token.IDENT && strings.EqualFold(t.Text, "then")
}
func isElseKeyword(t token.Token) bool {
	return t.Kind == token.IDENT && strings.EqualFold(t.Text, "else")
}
func isEndKeyword(t token.Token) bool {
	return t.Kind == token.IDENT && strings.EqualFold(t.Text, "end")
}
