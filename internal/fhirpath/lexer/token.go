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

// Kind classifies a single lexical token.
type Kind int

const (
	EOF Kind = iota
	Identifier
	BacktickIdentifier
	Number       // integer or decimal literal text, sign-free
	String       // single-quoted string literal, already escape-processed
	DateTime     // @-prefixed temporal literal, raw text including '@'
	Delimiter    // ( ) [ ] { } , .
	Operator     // + - * / & | = != ~ !~ < <= > >= and or xor in contains is as implies div mod, and the keywords true/false
	EnvVariable  // %-prefixed environment variable reference
)

// Token is one lexed unit with its source span. Start/End are rune offsets
// into the (comment-stripped) source buffer, used to recover source-text
// slices for AST nodes.
type Token struct {
	Kind   Kind
	Text   string
	Line   int
	Column int
	Start  int
	End    int
}

var keywordOperators = map[string]bool{
	"and": true, "or": true, "xor": true, "implies": true,
	"in": true, "contains": true, "is": true, "as": true,
	"div": true, "mod": true,
	"true": true, "false": true,
}
