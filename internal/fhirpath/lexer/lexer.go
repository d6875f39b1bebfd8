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

// Package lexer tokenizes FHIRPath expression text, rejecting malformed
// comments before a single token is produced (spec.md §4.1).
package lexer

import (
	"strings"
	"unicode"

	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/fherrors"
)

// Lexer turns expression text into a token stream.
type Lexer struct {
	src    []rune
	pos    int
	line   int
	column int
}

// New validates comment structure and returns a ready-to-scan Lexer, or the
// fherrors.ErrEmptyExpression / comment-validation error.
func New(expr string) (*Lexer, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fherrors.ErrEmptyExpression.New()
	}
	if err := ValidateComments(expr); err != nil {
		return nil, err
	}
	stripped := StripComments(expr)
	return &Lexer{src: []rune(stripped), line: 1, column: 1}, nil
}

func (l *Lexer) peek() (rune, bool) {
	if l.pos >= len(l.src) {
		return 0, false
	}
	return l.src[l.pos], true
}

func (l *Lexer) peekAt(offset int) (rune, bool) {
	if l.pos+offset >= len(l.src) {
		return 0, false
	}
	return l.src[l.pos+offset], true
}

func (l *Lexer) advance() rune {
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return r
}

func (l *Lexer) skipWhitespace() {
	for {
		r, ok := l.peek()
		if !ok || !unicode.IsSpace(r) {
			return
		}
		l.advance()
	}
}

// Tokens scans the entire source and returns all tokens including a
// terminating EOF token.
func (l *Lexer) Tokens() ([]Token, error) {
	var tokens []Token
	for {
		l.skipWhitespace()
		r, ok := l.peek()
		if !ok {
			tokens = append(tokens, Token{Kind: EOF, Line: l.line, Column: l.column})
			return tokens, nil
		}
		startLine, startCol := l.line, l.column
		startPos := l.pos

		switch {
		case r == '@':
			tok, err := l.lexTemporal(startLine, startCol)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
		case r == '\'':
			tok, err := l.lexString(startLine, startCol)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
		case r == '`':
			tok, err := l.lexBacktick(startLine, startCol)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
		case r == '%':
			l.advance()
			start := l.pos
			for {
				c, ok := l.peek()
				if !ok || !(unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_') {
					break
				}
				l.advance()
			}
			tokens = append(tokens, Token{Kind: EnvVariable, Text: string(l.src[start:l.pos]), Line: startLine, Column: startCol})
		case unicode.IsDigit(r):
			tokens = append(tokens, l.lexNumber(startLine, startCol))
		case unicode.IsLetter(r) || r == '_':
			tok := l.lexIdentifierOrKeyword(startLine, startCol)
			tokens = append(tokens, tok)
			// quantity literal: NUMBER IDENT where ident is a time unit;
			// handled by the parser, which sees Number then Identifier.
		case strings.ContainsRune("()[]{},.", r):
			l.advance()
			tokens = append(tokens, Token{Kind: Delimiter, Text: string(r), Line: startLine, Column: startCol})
		default:
			tok, err := l.lexOperator(startLine, startCol)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
		}

		last := &tokens[len(tokens)-1]
		last.Start = startPos
		last.End = l.pos
	}
}

// Source returns the comment-stripped source buffer the lexer scanned.
func (l *Lexer) Source() string { return string(l.src) }

func (l *Lexer) lexTemporal(line, col int) (Token, error) {
	start := l.pos
	l.advance() // '@'
	// consume until a char that cannot appear in a temporal literal.
	for {
		r, ok := l.peek()
		if !ok {
			break
		}
		if unicode.IsDigit(r) || r == '-' || r == ':' || r == '.' || r == 'T' ||
			r == 'Z' || r == '+' || r == 'W' {
			l.advance()
			continue
		}
		break
	}
	return Token{Kind: DateTime, Text: string(l.src[start:l.pos]), Line: line, Column: col}, nil
}

func (l *Lexer) lexString(line, col int) (Token, error) {
	l.advance() // opening quote
	var sb strings.Builder
	for {
		r, ok := l.peek()
		if !ok {
			return Token{}, fherrors.ErrUnbalancedDelimiter.New("'", line, col)
		}
		if r == '\\' {
			l.advance()
			esc, ok := l.peek()
			if !ok {
				return Token{}, fherrors.ErrUnbalancedDelimiter.New("'", line, col)
			}
			l.advance()
			sb.WriteRune(unescape(esc))
			continue
		}
		if r == '\'' {
			l.advance()
			break
		}
		sb.WriteRune(r)
		l.advance()
	}
	return Token{Kind: String, Text: sb.String(), Line: line, Column: col}, nil
}

func unescape(r rune) rune {
	switch r {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case 'f':
		return '\f'
	case '`', '\'', '"', '\\':
		return r
	default:
		return r
	}
}

func (l *Lexer) lexBacktick(line, col int) (Token, error) {
	l.advance()
	start := l.pos
	for {
		r, ok := l.peek()
		if !ok {
			return Token{}, fherrors.ErrUnbalancedDelimiter.New("`", line, col)
		}
		if r == '`' {
			text := string(l.src[start:l.pos])
			l.advance()
			return Token{Kind: BacktickIdentifier, Text: text, Line: line, Column: col}, nil
		}
		l.advance()
	}
}

func (l *Lexer) lexNumber(line, col int) Token {
	start := l.pos
	for {
		r, ok := l.peek()
		if !ok || !unicode.IsDigit(r) {
			break
		}
		l.advance()
	}
	if r, ok := l.peek(); ok && r == '.' {
		if next, ok2 := l.peekAt(1); ok2 && unicode.IsDigit(next) {
			l.advance() // '.'
			for {
				r, ok := l.peek()
				if !ok || !unicode.IsDigit(r) {
					break
				}
				l.advance()
			}
		}
	}
	return Token{Kind: Number, Text: string(l.src[start:l.pos]), Line: line, Column: col}
}

func (l *Lexer) lexIdentifierOrKeyword(line, col int) Token {
	start := l.pos
	for {
		r, ok := l.peek()
		if !ok || !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			break
		}
		l.advance()
	}
	text := string(l.src[start:l.pos])
	if keywordOperators[text] {
		return Token{Kind: Operator, Text: text, Line: line, Column: col}
	}
	return Token{Kind: Identifier, Text: text, Line: line, Column: col}
}

var multiCharOperators = []string{"<=", ">=", "!=", "!~", "~"}

func (l *Lexer) lexOperator(line, col int) (Token, error) {
	for _, op := range multiCharOperators {
		if l.matchLiteral(op) {
			for range op {
				l.advance()
			}
			return Token{Kind: Operator, Text: op, Line: line, Column: col}, nil
		}
	}
	r, _ := l.peek()
	if strings.ContainsRune("+-*/=<>&|", r) {
		l.advance()
		return Token{Kind: Operator, Text: string(r), Line: line, Column: col}, nil
	}
	return Token{}, fherrors.ErrSyntax.New(line, col, "unrecognized character '"+string(r)+"'")
}

func (l *Lexer) matchLiteral(s string) bool {
	rs := []rune(s)
	if l.pos+len(rs) > len(l.src) {
		return false
	}
	for i, r := range rs {
		if l.src[l.pos+i] != r {
			return false
		}
	}
	return true
}
