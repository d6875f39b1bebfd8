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

package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/ast"
	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/dialect"
	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/fhirtype"
	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/parser"
)

func compile(t *testing.T, d dialect.Dialect, expr string) string {
	t.Helper()
	raw, err := parser.Parse(expr)
	require.NoError(t, err)
	b := &ast.Builder{}
	node, err := b.Build(raw)
	require.NoError(t, err)
	tr := New(d, fhirtype.Default())
	plan, err := tr.Translate(node)
	require.NoError(t, err)
	require.NotEmpty(t, plan.Entries)
	return plan.String()
}

// TestScenarios_Compile is the Go-level analogue of spec.md §8's concrete
// scenario table: every expression there must translate without error on
// both target dialects, and emit a plan whose final CTE is reachable.
func TestScenarios_Compile(t *testing.T) {
	scenarios := []string{
		"1 + 1",
		"Patient.name.given.first()",
		"Patient.name.where(use='official').family",
		"(5.5).toQuantity('mg').value",
		"@2015 = @2015-01-01",
		"Patient.birthDate < @1980",
		"'abc' is Integer",
		"Patient.deceased.exists()",
		"(1 | 2 | 2 | 3).distinct().count()",
	}
	for _, d := range []dialect.Dialect{dialect.NewDuckDB(), dialect.NewPostgres()} {
		for _, expr := range scenarios {
			t.Run(string(d.Kind())+"/"+expr, func(t *testing.T) {
				out := compile(t, d, expr)
				assert.Contains(t, out, "final=")
			})
		}
	}
}

func TestTranslate_PartialPrecisionEquality_YieldsEmpty(t *testing.T) {
	raw, err := parser.Parse("@2015 = @2015-01-01")
	require.NoError(t, err)
	b := &ast.Builder{}
	node, err := b.Build(raw)
	require.NoError(t, err)
	tr := New(dialect.NewDuckDB(), fhirtype.Default())
	plan, err := tr.Translate(node)
	require.NoError(t, err)
	last := plan.Entries[len(plan.Entries)-1]
	assert.Contains(t, last.SQL, "[]")
}

func TestTranslate_IsOperation_OnNull_IsNullNotFalse(t *testing.T) {
	raw, err := parser.Parse("Patient.missingField is Integer")
	require.NoError(t, err)
	b := &ast.Builder{}
	node, err := b.Build(raw)
	require.NoError(t, err)
	tr := New(dialect.NewPostgres(), fhirtype.Default())
	plan, err := tr.Translate(node)
	require.NoError(t, err)
	last := plan.Entries[len(plan.Entries)-1]
	assert.Contains(t, last.SQL, "IS NULL")
	assert.Contains(t, last.SQL, "NULL")
}

func TestTranslate_DivTruncatesTowardZero(t *testing.T) {
	raw, err := parser.Parse("7 div 2")
	require.NoError(t, err)
	b := &ast.Builder{}
	node, err := b.Build(raw)
	require.NoError(t, err)
	tr := New(dialect.NewDuckDB(), fhirtype.Default())
	plan, err := tr.Translate(node)
	require.NoError(t, err)
	last := plan.Entries[len(plan.Entries)-1]
	assert.Contains(t, last.SQL, "trunc")
}

func TestTranslate_UnknownTypeAs_UsesInvalidCast(t *testing.T) {
	raw, err := parser.Parse("'x' as TotallyMadeUpType")
	require.NoError(t, err)
	b := &ast.Builder{}
	node, err := b.Build(raw)
	require.NoError(t, err)
	tr := New(dialect.NewDuckDB(), fhirtype.Default())
	plan, err := tr.Translate(node)
	require.NoError(t, err)
	last := plan.Entries[len(plan.Entries)-1]
	assert.Contains(t, last.SQL, "INVALID_FHIR_TYPE_XYZ")
}

// TestTranslate_PathComparedToTemporalLiteral_CastsDateNotDecimal guards
// against regressing to a numeric cast when only one side of a relational
// comparison is a temporal literal (spec.md §4.4 item 5, §8 row 6): the
// path-expression side must cast to the same temporal type as the literal,
// not decimal.
func TestTranslate_PathComparedToTemporalLiteral_CastsDateNotDecimal(t *testing.T) {
	for _, d := range []dialect.Dialect{dialect.NewDuckDB(), dialect.NewPostgres()} {
		t.Run(string(d.Kind()), func(t *testing.T) {
			out := compile(t, d, "Patient.birthDate < @1980")
			assert.Contains(t, out, "DATE")
			assert.NotContains(t, out, "DOUBLE")
			assert.NotContains(t, out, "NUMERIC")
		})
	}
}

func TestTranslate_MembershipBothDirectionsEquivalent(t *testing.T) {
	for _, expr := range []string{"1 in (1 | 2 | 3)", "(1 | 2 | 3) contains 1"} {
		raw, err := parser.Parse(expr)
		require.NoError(t, err)
		b := &ast.Builder{}
		node, err := b.Build(raw)
		require.NoError(t, err)
		tr := New(dialect.NewPostgres(), fhirtype.Default())
		plan, err := tr.Translate(node)
		require.NoError(t, err)
		last := plan.Entries[len(plan.Entries)-1]
		assert.Contains(t, last.SQL, "@>")
	}
}
