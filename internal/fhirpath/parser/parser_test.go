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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SimplePath(t *testing.T) {
	root, err := Parse("Patient.name.given")
	require.NoError(t, err)
	assert.Equal(t, "InvocationExpression", root.Type)
}

func TestParse_FunctionCall(t *testing.T) {
	root, err := Parse("Patient.name.where(use='official').family")
	require.NoError(t, err)
	assert.Equal(t, "InvocationExpression", root.Type)
}

func TestParse_TailTruncationFails(t *testing.T) {
	_, err := Parse("Patient.name)")
	require.Error(t, err)
}

func TestParse_UnbalancedParenFails(t *testing.T) {
	_, err := Parse("Patient.where(use='official'")
	require.Error(t, err)
}

func TestParse_QuantityLiteral(t *testing.T) {
	root, err := Parse("5 'mg'")
	require.NoError(t, err)
	assert.Equal(t, "QuantityLiteral", root.Type)
}

func TestParse_TypeExpression(t *testing.T) {
	root, err := Parse("Patient.deceased is Boolean")
	require.NoError(t, err)
	assert.Equal(t, "TypeExpression", root.Type)
	assert.Equal(t, "is", root.Text)
}

func TestParse_Membership(t *testing.T) {
	root, err := Parse("1 in (1 | 2 | 3)")
	require.NoError(t, err)
	assert.Equal(t, "MembershipExpression", root.Type)
}
