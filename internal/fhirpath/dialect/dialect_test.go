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

package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allDialects() []Dialect {
	return []Dialect{NewDuckDB(), NewPostgres()}
}

func TestDialects_KindAndCapabilities(t *testing.T) {
	d := NewDuckDB()
	assert.Equal(t, KindDuckDB, d.Kind())
	assert.False(t, d.Capabilities().NativeJSONB)
	assert.True(t, d.Capabilities().NativeArrayOps)

	p := NewPostgres()
	assert.Equal(t, KindPostgres, p.Kind())
	assert.True(t, p.Capabilities().NativeJSONB)
	assert.False(t, p.Capabilities().NativeArrayOps)
}

// TestDialects_ProduceNonEmptySQL walks every syntax primitive across both
// concrete dialects and checks each emits well-formed, non-empty text. This
// is the closed-catalog smoke test: every method on the interface must be
// exercised by at least one dialect here.
func TestDialects_ProduceNonEmptySQL(t *testing.T) {
	for _, d := range allDialects() {
		t.Run(string(d.Kind()), func(t *testing.T) {
			assert.NotEmpty(t, d.ExtractText("resource", "'$.name'"))
			assert.NotEmpty(t, d.ExtractJSON("resource", "'$.name'"))
			assert.NotEmpty(t, d.ExtractTyped("resource", "'$.value'", CastDecimal))
			assert.NotEmpty(t, d.Exists("resource", "'$.name'"))
			assert.NotEmpty(t, d.ExtractPrimitiveValue("resource", "$.active"))

			assert.NotEmpty(t, d.Unnest("arr"))
			assert.NotEmpty(t, d.LateralUnnest("arr", "elem"))
			assert.NotEmpty(t, d.EnumerateWithOrdinality("arr", "elem"))
			assert.NotEmpty(t, d.AggregateToArray("x"))
			assert.NotEmpty(t, d.ArrayContains("arr", "1"))
			assert.NotEmpty(t, d.EmptyArrayLiteral())
			assert.NotEmpty(t, d.IsArray("x"))
			assert.NotEmpty(t, d.ArraySort("arr", false))
			assert.NotEmpty(t, d.ArraySort("arr", true))
			assert.NotEmpty(t, d.ArraySkip("arr", "2"))
			assert.NotEmpty(t, d.ArrayTake("arr", "2"))
			assert.NotEmpty(t, d.ArrayLast("arr"))
			assert.NotEmpty(t, d.ArrayToString("arr", "','"))
			assert.NotEmpty(t, d.WrapJSONArray("x"))
			assert.NotEmpty(t, d.IsJSONArray("x"))
			assert.NotEmpty(t, d.EnumerateJSONArray("x"))

			assert.NotEmpty(t, d.Concat("a", "b", "c"))
			assert.NotEmpty(t, d.Substring("x", "1", "3"))
			assert.NotEmpty(t, d.Split("x", "','"))
			assert.NotEmpty(t, d.Trim("x"))
			assert.NotEmpty(t, d.Upper("x"))
			assert.NotEmpty(t, d.Lower("x"))
			assert.NotEmpty(t, d.CharArray("x"))
			assert.NotEmpty(t, d.StartsWith("x", "'a'"))
			assert.NotEmpty(t, d.EndsWith("x", "'a'"))
			assert.NotEmpty(t, d.ContainsSubstring("x", "'a'"))
			assert.NotEmpty(t, d.RegexMatch("x", "'^a'"))
			assert.NotEmpty(t, d.RegexReplace("x", "'a'", "'b'"))
			assert.NotEmpty(t, d.Length("x"))

			assert.NotEmpty(t, d.DecimalDiv("a", "b"))
			assert.NotEmpty(t, d.IntegerDivTruncate("a", "b"))
			assert.NotEmpty(t, d.Mod("a", "b"))
			assert.NotEmpty(t, d.Power("a", "b"))
			assert.NotEmpty(t, d.MathFunc("abs", "a"))

			assert.NotEmpty(t, d.SafeCast("x", CastInteger))
			assert.NotEmpty(t, d.StrictCast("x", CastInteger))
			assert.NotEmpty(t, d.InvalidCast("x"))
			assert.NotEmpty(t, d.TypeOf("x"))

			assert.NotEmpty(t, d.DateLiteral("2015-01-01"))
			assert.NotEmpty(t, d.DateTimeLiteral("2015-01-01T00:00:00"))
			assert.NotEmpty(t, d.TimeLiteral("12:00:00"))
			assert.NotEmpty(t, d.CurrentDate())
			assert.NotEmpty(t, d.CurrentTime())
			assert.NotEmpty(t, d.CurrentTimestamp())
			assert.NotEmpty(t, d.DateDiff("day", "a", "b"))
			assert.NotEmpty(t, d.TemporalBoundary("a", "month", BoundaryLow))
			assert.NotEmpty(t, d.TemporalBoundary("a", "month", BoundaryHigh))

			assert.NotEmpty(t, d.DecimalBoundary("1.1", 1, 6, BoundaryLow))
			assert.NotEmpty(t, d.DecimalBoundary("1.1", 1, 6, BoundaryHigh))
			assert.NotEmpty(t, d.QuantityBoundary("1.1", "'mg'", 1, BoundaryLow))

			assert.NotEmpty(t, d.And("a", "b"))
			assert.NotEmpty(t, d.Or("a", "b"))
			assert.NotEmpty(t, d.Not("a"))
			assert.NotEmpty(t, d.Xor("a", "b"))
			assert.NotEmpty(t, d.CaseWhen([]CaseBranch{{When: "a", Then: "1"}}, "NULL"))
			assert.NotEmpty(t, d.Equal("a", "b"))

			assert.NotEmpty(t, d.WhereFilter("arr", "elem > 1", "elem"))
			assert.NotEmpty(t, d.SelectTransform("arr", "elem", "elem"))
			assert.NotEmpty(t, d.Combine("a", "b"))
			assert.NotEmpty(t, d.Exclude("a", "b"))
			assert.NotEmpty(t, d.Distinct("arr"))
			assert.NotEmpty(t, d.IsDistinct("arr"))
			assert.NotEmpty(t, d.AllTrue("arr"))
			assert.NotEmpty(t, d.AnyTrue("arr"))
			assert.NotEmpty(t, d.AllFalse("arr"))
			assert.NotEmpty(t, d.AnyFalse("arr"))

			assert.NotEmpty(t, d.IsPrimitiveType("x", "String"))
			assert.NotEmpty(t, d.CastToType("x", "Integer"))
			assert.NotEmpty(t, d.FilterByType("arr", "Patient", "elem"))

			assert.NotEmpty(t, d.FilterExtensionByURL("arr", "'http://example.org'"))
			assert.NotEmpty(t, d.ExtractExtensionValue("e"))

			assert.NotEmpty(t, d.Base64Encode("x"))
			assert.NotEmpty(t, d.Base64Decode("x"))
			assert.NotEmpty(t, d.URLBase64Encode("x"))
			assert.NotEmpty(t, d.URLBase64Decode("x"))
			assert.NotEmpty(t, d.HexEncode("x"))
			assert.NotEmpty(t, d.HexDecode("x"))
			assert.NotEmpty(t, d.HTMLEscape("x"))
			assert.NotEmpty(t, d.HTMLUnescape("x"))
			assert.NotEmpty(t, d.JSONEscape("x"))
			assert.NotEmpty(t, d.JSONUnescape("x"))

			assert.NotEmpty(t, d.Children("x"))
			assert.NotEmpty(t, d.Descendants("x"))
		})
	}
}

func TestDecimalBoundary_SharedConstantAcrossDialects(t *testing.T) {
	dd := NewDuckDB()
	pg := NewPostgres()
	lowDD := dd.DecimalBoundary("1.1", 1, 6, BoundaryLow)
	lowPG := pg.DecimalBoundary("1.1", 1, 6, BoundaryLow)
	// Both dialects share boundary.go's constant math; only ROUND() syntax
	// (identical on both) and the surrounding expression differ, so the
	// embedded "-0.05" constant text must match verbatim.
	assert.Contains(t, lowDD, "-0.05")
	assert.Contains(t, lowPG, "-0.05")
}

func TestResolvedTargetPrecision_DefaultAndExplicit(t *testing.T) {
	assert.Equal(t, 6, ResolvedTargetPrecision(1, nil))
	explicit := 10
	assert.Equal(t, 10, ResolvedTargetPrecision(1, &explicit))
	assert.Equal(t, 31, ResolvedTargetPrecision(100, nil))
}

func TestCaseWhen_MultiBranch(t *testing.T) {
	for _, d := range allDialects() {
		sql := d.CaseWhen([]CaseBranch{
			{When: "a = 1", Then: "'one'"},
			{When: "a = 2", Then: "'two'"},
		}, "NULL")
		assert.Contains(t, sql, "WHEN a = 1 THEN 'one'")
		assert.Contains(t, sql, "WHEN a = 2 THEN 'two'")
		assert.Contains(t, sql, "ELSE NULL END")
	}
}

func TestValueXFields_CoversCommonPrimitives(t *testing.T) {
	require.Contains(t, valueXFields, "valueString")
	require.Contains(t, valueXFields, "valueQuantity")
	require.Contains(t, valueXFields, "valueCodeableConcept")
}

func TestExtractExtensionValue_CoalescesAllValueXFields(t *testing.T) {
	for _, d := range allDialects() {
		sql := d.ExtractExtensionValue("e")
		assert.Contains(t, sql, "COALESCE(")
		for _, f := range valueXFields {
			assert.Contains(t, sql, f)
		}
	}
}
