// Copyright 2024 Joel Montavon.
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

package parser

import (
	"strings"

	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/fherrors"
	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/lexer"
)

// Parser is a recursive-descent parser over FHIRPath precedence levels,
// lowest to highest:
//
//	implies > or/xor > and > membership (in/contains) > inequality >
//	equality > union (|) > additive (+/-/&) > multiplicative (*,/,div,mod) >
//	type (is/as) > unary (+/-) > invocation (./[]) > term
type Parser struct {
	tokens []lexer.Token
	pos    int
	source string
}

// Parse tokenizes and parses expr, returning the raw parse tree root or a
// fherrors-wrapped syntax error.
func Parse(expr string) (*RawNode, error) {
	lx, err := lexer.New(expr)
	if err != nil {
		return nil, err
	}
	toks, err := lx.Tokens()
	if err != nil {
		return nil, err
	}
	p := &Parser{tokens: toks, source: lx.Source()}
	node, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if !p.at(lexer.EOF) {
		tok := p.cur()
		return nil, fherrors.ErrTailTruncated.New(tok.Line, tok.Column)
	}
	return node, nil
}

func (p *Parser) cur() lexer.Token  { return p.tokens[p.pos] }
func (p *Parser) at(k lexer.Kind) bool { return p.cur().Kind == k }

func (p *Parser) atOp(texts ...string) bool {
	if p.cur().Kind != lexer.Operator {
		return false
	}
	for _, t := range texts {
		if p.cur().Text == t {
			return true
		}
	}
	return false
}

func (p *Parser) atDelim(text string) bool {
	return p.cur().Kind == lexer.Delimiter && p.cur().Text == text
}

func (p *Parser) advance() lexer.Token {
	tok := p.cur()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *Parser) spanFrom(startTok lexer.Token) string {
	endTok := p.tokens[p.pos-1]
	if endTok.End < startTok.Start {
		return startTok.Text
	}
	return p.source[startTok.Start:endTok.End]
}

func binary(op string, left, right *RawNode, source string) *RawNode {
	return &RawNode{Type: "BinaryExpression", Text: op, Children: []*RawNode{left, right}, SourceText: source}
}

// --- precedence chain ---

func (p *Parser) parseExpression() (*RawNode, error) { return p.parseImplies() }

func (p *Parser) parseImplies() (*RawNode, error) {
	return p.leftAssoc(p.parseOr, "implies")
}

func (p *Parser) parseOr() (*RawNode, error) {
	return p.leftAssoc(p.parseAnd, "or", "xor")
}

func (p *Parser) parseAnd() (*RawNode, error) {
	return p.leftAssoc(p.parseMembership, "and")
}

func (p *Parser) parseMembership() (*RawNode, error) {
	start := p.cur()
	left, err := p.parseInequality()
	if err != nil {
		return nil, err
	}
	for p.atOp("in", "contains") {
		op := p.advance().Text
		right, err := p.parseInequality()
		if err != nil {
			return nil, err
		}
		left = &RawNode{Type: "MembershipExpression", Text: op, Children: []*RawNode{left, right}, SourceText: p.spanFrom(start)}
	}
	return left, nil
}

func (p *Parser) parseInequality() (*RawNode, error) {
	return p.leftAssoc(p.parseEquality, "<", "<=", ">", ">=")
}

func (p *Parser) parseEquality() (*RawNode, error) {
	return p.leftAssoc(p.parseUnion, "=", "!=", "~", "!~")
}

func (p *Parser) parseUnion() (*RawNode, error) {
	start := p.cur()
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.atOp("|") {
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &RawNode{Type: "UnionExpression", Text: "|", Children: []*RawNode{left, right}, SourceText: p.spanFrom(start)}
	}
	return left, nil
}

func (p *Parser) parseAdditive() (*RawNode, error) {
	return p.leftAssoc(p.parseMultiplicative, "+", "-", "&")
}

func (p *Parser) parseMultiplicative() (*RawNode, error) {
	return p.leftAssoc(p.parseTypeExpr, "*", "/", "div", "mod")
}

func (p *Parser) parseTypeExpr() (*RawNode, error) {
	start := p.cur()
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.atOp("is", "as") {
		op := p.advance().Text
		typeTok, err := p.parseQualifiedIdentifierText()
		if err != nil {
			return nil, err
		}
		right := leaf("TypeSpecifier", typeTok, start.Line, start.Column)
		left = &RawNode{Type: "TypeExpression", Text: op, Children: []*RawNode{left, right}, SourceText: p.spanFrom(start)}
	}
	return left, nil
}

func (p *Parser) parseQualifiedIdentifierText() (string, error) {
	if !p.at(lexer.Identifier) {
		tok := p.cur()
		return "", fherrors.ErrSyntax.New(tok.Line, tok.Column, "expected type name")
	}
	parts := []string{p.advance().Text}
	for p.atDelim(".") {
		p.advance()
		if !p.at(lexer.Identifier) {
			tok := p.cur()
			return "", fherrors.ErrSyntax.New(tok.Line, tok.Column, "expected identifier after '.'")
		}
		parts = append(parts, p.advance().Text)
	}
	return strings.Join(parts, "."), nil
}

func (p *Parser) parseUnary() (*RawNode, error) {
	if p.atOp("+", "-") {
		start := p.cur()
		op := p.advance().Text
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &RawNode{Type: "UnaryExpression", Text: op, Children: []*RawNode{operand}, SourceText: p.spanFrom(start)}, nil
	}
	return p.parseInvocation()
}

// leftAssoc is the generic left-associative binary-operator production used
// by every precedence level above union.
func (p *Parser) leftAssoc(next func() (*RawNode, error), ops ...string) (*RawNode, error) {
	start := p.cur()
	left, err := next()
	if err != nil {
		return nil, err
	}
	for p.atOp(ops...) {
		op := p.advance().Text
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = binary(op, left, right, p.spanFrom(start))
	}
	return left, nil
}

// parseInvocation handles postfix '.' member/function access and '[' index ']'.
func (p *Parser) parseInvocation() (*RawNode, error) {
	start := p.cur()
	term, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	node := term
	for {
		switch {
		case p.atDelim("."):
			p.advance()
			member, err := p.parseInvocationMember()
			if err != nil {
				return nil, err
			}
			node = &RawNode{Type: "InvocationExpression", Children: []*RawNode{node, member}, SourceText: p.spanFrom(start)}
		case p.atDelim("["):
			p.advance()
			index, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if !p.atDelim("]") {
				tok := p.cur()
				return nil, fherrors.ErrUnbalancedDelimiter.New("]", tok.Line, tok.Column)
			}
			p.advance()
			node = &RawNode{Type: "IndexerExpression", Children: []*RawNode{node, index}, SourceText: p.spanFrom(start)}
		default:
			return node, nil
		}
	}
}

func (p *Parser) parseInvocationMember() (*RawNode, error) {
	if !p.at(lexer.Identifier) && p.cur().Kind != lexer.BacktickIdentifier {
		tok := p.cur()
		return nil, fherrors.ErrSyntax.New(tok.Line, tok.Column, "expected identifier after '.'")
	}
	name := p.advance().Text
	if p.atDelim("(") {
		args, err := p.parseArgList()
		if err != nil {
			return nil, err
		}
		return &RawNode{Type: "Functn", Text: name, Children: []*RawNode{{Type: "ParamList", Children: args}}}, nil
	}
	return leaf("Identifier", name, 0, 0), nil
}

func (p *Parser) parseArgList() ([]*RawNode, error) {
	p.advance() // '('
	var args []*RawNode
	if p.atDelim(")") {
		p.advance()
		return args, nil
	}
	for {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.atDelim(",") {
			p.advance()
			continue
		}
		break
	}
	if !p.atDelim(")") {
		tok := p.cur()
		return nil, fherrors.ErrUnbalancedDelimiter.New(")", tok.Line, tok.Column)
	}
	p.advance()
	return args, nil
}

func (p *Parser) parseTerm() (*RawNode, error) {
	tok := p.cur()
	switch {
	case p.atDelim("("):
		p.advance()
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if !p.atDelim(")") {
			t := p.cur()
			return nil, fherrors.ErrUnbalancedDelimiter.New(")", t.Line, t.Column)
		}
		p.advance()
		return &RawNode{Type: "ParenthesizedTerm", Children: []*RawNode{inner}, SourceText: inner.SourceText}, nil
	case p.atDelim("{"):
		p.advance()
		if !p.atDelim("}") {
			t := p.cur()
			return nil, fherrors.ErrUnbalancedDelimiter.New("}", t.Line, t.Column)
		}
		p.advance()
		return leaf("EmptyCollection", "{}", tok.Line, tok.Column), nil
	case tok.Kind == lexer.Number:
		p.advance()
		numNode := leaf("NumberLiteral", tok.Text, tok.Line, tok.Column)
		// quantity literal: NUMBER followed by a bare unit identifier or string.
		if p.at(lexer.Identifier) && isQuantityUnit(p.cur().Text) {
			unit := p.advance().Text
			return &RawNode{Type: "QuantityLiteral", Text: tok.Text, Children: []*RawNode{leaf("Unit", unit, tok.Line, tok.Column)}, SourceText: tok.Text + " " + unit}, nil
		}
		if p.cur().Kind == lexer.String {
			unit := p.advance().Text
			return &RawNode{Type: "QuantityLiteral", Text: tok.Text, Children: []*RawNode{leaf("Unit", unit, tok.Line, tok.Column)}, SourceText: tok.Text + " '" + unit + "'"}, nil
		}
		return numNode, nil
	case tok.Kind == lexer.String:
		p.advance()
		return leaf("StringLiteral", tok.Text, tok.Line, tok.Column), nil
	case tok.Kind == lexer.DateTime:
		p.advance()
		return leaf("TemporalLiteral", tok.Text, tok.Line, tok.Column), nil
	case tok.Kind == lexer.EnvVariable:
		p.advance()
		return leaf("EnvVariable", tok.Text, tok.Line, tok.Column), nil
	case tok.Kind == lexer.Operator && (tok.Text == "true" || tok.Text == "false"):
		p.advance()
		return leaf("BooleanLiteral", tok.Text, tok.Line, tok.Column), nil
	case tok.Kind == lexer.Identifier || tok.Kind == lexer.BacktickIdentifier:
		name := p.advance().Text
		if p.atDelim("(") {
			args, err := p.parseArgList()
			if err != nil {
				return nil, err
			}
			return &RawNode{Type: "Functn", Text: name, Children: []*RawNode{{Type: "ParamList", Children: args}}}, nil
		}
		return leaf("Identifier", name, tok.Line, tok.Column), nil
	default:
		return nil, fherrors.ErrSyntax.New(tok.Line, tok.Column, "unexpected token '"+tok.Text+"'")
	}
}

var quantityUnits = map[string]bool{
	"year": true, "years": true, "month": true, "months": true,
	"week": true, "weeks": true, "day": true, "days": true,
	"hour": true, "hours": true, "minute": true, "minutes": true,
	"second": true, "seconds": true, "millisecond": true, "milliseconds": true,
}

func isQuantityUnit(ident string) bool { return quantityUnits[ident] }
