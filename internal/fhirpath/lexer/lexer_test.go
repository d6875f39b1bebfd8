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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_EmptyExpression(t *testing.T) {
	_, err := New("   ")
	require.Error(t, err)
}

func TestTokens_PathAndFunction(t *testing.T) {
	l, err := New("Patient.name.where(use='official').family")
	require.NoError(t, err)
	toks, err := l.Tokens()
	require.NoError(t, err)

	var kinds []Kind
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	assert.Equal(t, Identifier, toks[0].Kind)
	assert.Equal(t, "Patient", toks[0].Text)
	assert.Equal(t, EOF, toks[len(toks)-1].Kind)
}

func TestTokens_TemporalLiteral(t *testing.T) {
	l, err := New("@2015-01-01T10:30:00.123+01:00")
	require.NoError(t, err)
	toks, err := l.Tokens()
	require.NoError(t, err)
	require.Len(t, toks, 2)
	assert.Equal(t, DateTime, toks[0].Kind)
}

func TestTokens_StringEscape(t *testing.T) {
	l, err := New(`'1 \'wk\''`)
	require.NoError(t, err)
	toks, err := l.Tokens()
	require.NoError(t, err)
	require.Len(t, toks, 2)
	assert.Equal(t, "1 'wk'", toks[0].Text)
}

func TestValidateComments_NestedBlockFails(t *testing.T) {
	err := ValidateComments("1 + /* outer /* inner */ still */ 2")
	require.Error(t, err)
}

func TestValidateComments_UnterminatedFails(t *testing.T) {
	err := ValidateComments("1 + /* unterminated")
	require.Error(t, err)
}

func TestValidateComments_StrayCloserFails(t *testing.T) {
	err := ValidateComments("1 + 2 */")
	require.Error(t, err)
}

func TestValidateComments_StringSuppressesCommentDetection(t *testing.T) {
	err := ValidateComments("'not /* a comment */ inside a string'")
	require.NoError(t, err)
}

func TestStripComments_LineComment(t *testing.T) {
	out := StripComments("1 + 1 // add\n")
	assert.Contains(t, out, "1 + 1")
	assert.NotContains(t, out, "add")
}
