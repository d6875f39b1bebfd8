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

package lexer

import (
	"fmt"

	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/fherrors"
)

// ValidateComments walks expr tracking quote context ('/"/`, with backslash
// escapes) and comment context (// ... / * ... * /), rejecting nested block
// comments, unterminated block comments and stray closers before the lexer
// ever runs. String/identifier-quote contexts suppress comment detection, per
// spec.md §4.1.
func ValidateComments(expr string) error {
	type quote byte
	const (
		none quote = 0
		sq   quote = '\''
		dq   quote = '"'
		bq   quote = '`'
	)

	line, col := 1, 1
	advance := func(r byte) {
		if r == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}

	inQuote := none
	inLineComment := false
	inBlockComment := false
	blockStartLine, blockStartCol := 0, 0
	escaped := false

	runes := []byte(expr)
	for i := 0; i < len(runes); i++ {
		c := runes[i]

		if inLineComment {
			if c == '\n' {
				inLineComment = false
			}
			advance(c)
			continue
		}

		if inBlockComment {
			if c == '*' && i+1 < len(runes) && runes[i+1] == '/' {
				inBlockComment = false
				advance(c)
				i++
				advance(runes[i])
				continue
			}
			if c == '/' && i+1 < len(runes) && runes[i+1] == '*' {
				return fherrors.ErrNestedComment.New(line, col)
			}
			advance(c)
			continue
		}

		if inQuote != none {
			if escaped {
				escaped = false
				advance(c)
				continue
			}
			if c == '\\' {
				escaped = true
				advance(c)
				continue
			}
			if byte(inQuote) == c {
				inQuote = none
			}
			advance(c)
			continue
		}

		switch c {
		case '\'':
			inQuote = sq
		case '"':
			inQuote = dq
		case '`':
			inQuote = bq
		case '/':
			if i+1 < len(runes) && runes[i+1] == '/' {
				inLineComment = true
				advance(c)
				i++
				advance(runes[i])
				continue
			}
			if i+1 < len(runes) && runes[i+1] == '*' {
				inBlockComment = true
				blockStartLine, blockStartCol = line, col
				advance(c)
				i++
				advance(runes[i])
				continue
			}
		case '*':
			if i+1 < len(runes) && runes[i+1] == '/' {
				return fherrors.ErrStrayCommentClose.New(line, col)
			}
		}
		advance(c)
	}

	if inBlockComment {
		return fherrors.ErrUnterminatedComment.New(blockStartLine, blockStartCol)
	}
	if inQuote != none {
		return fherrors.ErrUnbalancedDelimiter.New(fmt.Sprintf("%c", inQuote), line, col)
	}
	return nil
}

// StripComments removes validated line and block comments from expr,
// replacing them with single spaces so token column offsets stay meaningful.
// Must only be called after ValidateComments succeeds.
func StripComments(expr string) string {
	out := make([]byte, 0, len(expr))
	type quote byte
	const (
		none quote = 0
		sq   quote = '\''
		dq   quote = '"'
		bq   quote = '`'
	)
	inQuote := none
	escaped := false
	runes := []byte(expr)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if inQuote != none {
			out = append(out, c)
			if escaped {
				escaped = false
				continue
			}
			if c == '\\' {
				escaped = true
				continue
			}
			if byte(inQuote) == c {
				inQuote = none
			}
			continue
		}
		switch c {
		case '\'':
			inQuote = sq
			out = append(out, c)
		case '"':
			inQuote = dq
			out = append(out, c)
		case '`':
			inQuote = bq
			out = append(out, c)
		case '/':
			if i+1 < len(runes) && runes[i+1] == '/' {
				for i < len(runes) && runes[i] != '\n' {
					i++
				}
				out = append(out, ' ')
				if i < len(runes) {
					i-- // let outer loop's i++ re-land on '\n'
				}
				continue
			}
			if i+1 < len(runes) && runes[i+1] == '*' {
				i += 2
				for i+1 < len(runes) && !(runes[i] == '*' && runes[i+1] == '/') {
					i++
				}
				i++ // land on '/'
				out = append(out, ' ')
				continue
			}
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return string(out)
}
