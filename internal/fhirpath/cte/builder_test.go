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

package cte

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/ast"
	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/dialect"
	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/fhirtype"
	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/fragment"
	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/parser"
	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/translate"
)

func buildPlan(t *testing.T, expr string) *fragment.Plan {
	t.Helper()
	raw, err := parser.Parse(expr)
	require.NoError(t, err)
	b := &ast.Builder{}
	node, err := b.Build(raw)
	require.NoError(t, err)
	tr := translate.New(dialect.NewDuckDB(), fhirtype.Default())
	plan, err := tr.Translate(node)
	require.NoError(t, err)
	return plan
}

func TestBuild_AssemblesWithChain(t *testing.T) {
	plan := buildPlan(t, "Patient.name.given.first()")
	stmt, err := Build(plan)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "WITH ")
	assert.Contains(t, stmt.SQL, "SELECT * FROM "+stmt.FinalID)
	assert.Equal(t, plan.FinalID(), stmt.FinalID)
}

func TestBuild_RejectsEmptyPlan(t *testing.T) {
	_, err := Build(nil)
	assert.Error(t, err)
}

func TestBuild_IifMaterializesReceiverOnce(t *testing.T) {
	plan := buildPlan(t, "Patient.active.iif(true, 'yes', 'no')")
	stmt, err := Build(plan)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(plan.Entries), 2)
	assert.Contains(t, stmt.SQL, "AS (")
}

func TestMentionsID_WordBoundary(t *testing.T) {
	assert.False(t, mentionsID("SELECT * FROM c_10", "c_1"))
	assert.True(t, mentionsID("SELECT * FROM c_1", "c_1"))
	assert.True(t, mentionsID("(c_1)", "c_1"))
}
