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
	"fmt"
	"strings"
)

// DuckDB is the analytical, JSON-native dialect. It talks to the target via
// github.com/marcboeker/go-duckdb (see poolmgr for connection lifecycle);
// this type only emits SQL text, it never touches the driver.
type DuckDB struct{}

func NewDuckDB() *DuckDB { return &DuckDB{} }

func (DuckDB) Kind() Kind { return KindDuckDB }

func (DuckDB) Capabilities() Capabilities {
	return Capabilities{NativeJSONB: false, NativeArrayOps: true, SupportsLateral: true}
}

func (DuckDB) ExtractText(col, path string) string {
	return fmt.Sprintf("json_extract_string(%s, %s)", col, path)
}

func (DuckDB) ExtractJSON(col, path string) string {
	return fmt.Sprintf("json_extract(%s, %s)", col, path)
}

func (DuckDB) ExtractTyped(col, path string, cast Cast) string {
	return fmt.Sprintf("CAST(json_extract_string(%s, %s) AS %s)", col, path, duckdbCastType(cast))
}

func (DuckDB) Exists(col, path string) string {
	return fmt.Sprintf("json_extract(%s, %s) IS NOT NULL", col, path)
}

func (d DuckDB) ExtractPrimitiveValue(col, path string) string {
	return fmt.Sprintf("COALESCE(%s, %s)",
		d.ExtractText(col, path+".value"),
		d.ExtractText(col, path))
}

func (DuckDB) Unnest(arrayExpr string) string {
	return fmt.Sprintf("UNNEST(%s)", arrayExpr)
}

func (DuckDB) LateralUnnest(arrayExpr, alias string) string {
	return fmt.Sprintf("LATERAL UNNEST(%s) AS %s", arrayExpr, alias)
}

func (DuckDB) EnumerateWithOrdinality(arrayExpr, alias string) string {
	return fmt.Sprintf("UNNEST(%s) WITH ORDINALITY AS %s(value, idx)", arrayExpr, alias)
}

func (DuckDB) AggregateToArray(expr string) string {
	return fmt.Sprintf("list(%s)", expr)
}

func (DuckDB) ArrayContains(arrayExpr, valueExpr string) string {
	return fmt.Sprintf("list_contains(%s, %s)", arrayExpr, valueExpr)
}

func (DuckDB) EmptyArrayLiteral() string { return "[]" }

func (DuckDB) IsArray(expr string) string {
	return fmt.Sprintf("json_type(%s) = 'ARRAY'", expr)
}

func (DuckDB) ArraySort(arrayExpr string, descending bool) string {
	if descending {
		return fmt.Sprintf("list_sort(%s, 'DESC')", arrayExpr)
	}
	return fmt.Sprintf("list_sort(%s, 'ASC')", arrayExpr)
}

func (DuckDB) ArraySkip(arrayExpr string, n string) string {
	return fmt.Sprintf("list_slice(%s, %s + 1, len(%s))", arrayExpr, n, arrayExpr)
}

func (DuckDB) ArrayTake(arrayExpr string, n string) string {
	return fmt.Sprintf("list_slice(%s, 1, %s)", arrayExpr, n)
}

func (DuckDB) ArrayLast(arrayExpr string) string {
	return fmt.Sprintf("list_extract(%s, len(%s))", arrayExpr, arrayExpr)
}

func (DuckDB) ArrayToString(arrayExpr, separator string) string {
	return fmt.Sprintf("list_aggr(%s, 'string_agg', %s)", arrayExpr, separator)
}

func (DuckDB) WrapJSONArray(expr string) string {
	return fmt.Sprintf("json_array(%s)", expr)
}

func (DuckDB) IsJSONArray(expr string) string {
	return fmt.Sprintf("json_type(%s) = 'ARRAY'", expr)
}

func (DuckDB) EnumerateJSONArray(expr string) string {
	return fmt.Sprintf("UNNEST(CAST(%s AS JSON[]))", expr)
}

func (DuckDB) Concat(parts ...string) string {
	return strings.Join(parts, " || ")
}

func (DuckDB) Substring(expr, start, length string) string {
	return fmt.Sprintf("substring(%s, %s, %s)", expr, start, length)
}

func (DuckDB) Split(expr, separator string) string {
	return fmt.Sprintf("string_split(%s, %s)", expr, separator)
}

func (DuckDB) Trim(expr string) string { return fmt.Sprintf("trim(%s)", expr) }
func (DuckDB) Upper(expr string) string { return fmt.Sprintf("upper(%s)", expr) }
func (DuckDB) Lower(expr string) string { return fmt.Sprintf("lower(%s)", expr) }

func (DuckDB) CharArray(expr string) string {
	return fmt.Sprintf("str_split(%s, '')", expr)
}

func (DuckDB) StartsWith(expr, prefix string) string {
	return fmt.Sprintf("starts_with(%s, %s)", expr, prefix)
}

func (DuckDB) EndsWith(expr, suffix string) string {
	return fmt.Sprintf("(%s LIKE '%%' || %s)", expr, suffix)
}

func (DuckDB) ContainsSubstring(expr, substr string) string {
	return fmt.Sprintf("contains(%s, %s)", expr, substr)
}

func (DuckDB) RegexMatch(expr, pattern string) string {
	return fmt.Sprintf("regexp_matches(%s, %s)", expr, pattern)
}

func (DuckDB) RegexReplace(expr, pattern, replacement string) string {
	return fmt.Sprintf("regexp_replace(%s, %s, %s, 'g')", expr, pattern, replacement)
}

func (DuckDB) Length(expr string) string { return fmt.Sprintf("length(%s)", expr) }

func (DuckDB) DecimalDiv(left, right string) string {
	return fmt.Sprintf("(CAST(%s AS DOUBLE) / CAST(%s AS DOUBLE))", left, right)
}

func (DuckDB) IntegerDivTruncate(left, right string) string {
	return fmt.Sprintf("CAST(trunc(CAST(%s AS DOUBLE) / CAST(%s AS DOUBLE)) AS BIGINT)", left, right)
}

func (DuckDB) Mod(left, right string) string { return fmt.Sprintf("(%s %% %s)", left, right) }

func (DuckDB) Power(base, exponent string) string {
	return fmt.Sprintf("power(%s, %s)", base, exponent)
}

func (DuckDB) MathFunc(name, expr string) string { return fmt.Sprintf("%s(%s)", name, expr) }

func (DuckDB) SafeCast(expr string, cast Cast) string {
	return fmt.Sprintf("TRY_CAST(%s AS %s)", expr, duckdbCastType(cast))
}

func (DuckDB) StrictCast(expr string, cast Cast) string {
	return fmt.Sprintf("CAST(%s AS %s)", expr, duckdbCastType(cast))
}

func (DuckDB) InvalidCast(expr string) string {
	return fmt.Sprintf("CAST(%s AS INVALID_FHIR_TYPE_XYZ)", expr)
}

func (DuckDB) TypeOf(expr string) string { return fmt.Sprintf("json_type(%s)", expr) }

func (DuckDB) DateLiteral(normalized string) string {
	return fmt.Sprintf("DATE '%s'", normalized)
}

func (DuckDB) DateTimeLiteral(normalized string) string {
	return fmt.Sprintf("TIMESTAMP '%s'", normalized)
}

func (DuckDB) TimeLiteral(normalized string) string {
	return fmt.Sprintf("TIME '%s'", normalized)
}

func (DuckDB) CurrentDate() string      { return "current_date" }
func (DuckDB) CurrentTime() string      { return "current_time" }
func (DuckDB) CurrentTimestamp() string { return "current_timestamp" }

func (DuckDB) DateDiff(unit, start, end string) string {
	return fmt.Sprintf("date_diff('%s', %s, %s)", unit, start, end)
}

func (d DuckDB) TemporalBoundary(expr, precision string, selector BoundarySelector) string {
	truncated := fmt.Sprintf("date_trunc('%s', %s)", precision, expr)
	if selector == BoundaryLow {
		return truncated
	}
	return fmt.Sprintf("(%s + INTERVAL 1 %s - INTERVAL 1 microsecond)", truncated, precision)
}

func (DuckDB) DecimalBoundary(expr string, inputPrecision, targetPrecision int, selector BoundarySelector) string {
	c := DecimalBoundaryConstant(inputPrecision)
	return RoundSQL(fmt.Sprintf("(%s %s)", expr, FormatBoundaryConstant(c, selector)), targetPrecision)
}

func (d DuckDB) QuantityBoundary(numericExpr, unitExpr string, inputPrecision int, selector BoundarySelector) string {
	target := ResolvedTargetPrecision(inputPrecision, nil)
	return fmt.Sprintf("{'value': %s, 'unit': %s}", d.DecimalBoundary(numericExpr, inputPrecision, target, selector), unitExpr)
}

func (DuckDB) And(left, right string) string { return fmt.Sprintf("(%s AND %s)", left, right) }
func (DuckDB) Or(left, right string) string  { return fmt.Sprintf("(%s OR %s)", left, right) }
func (DuckDB) Not(expr string) string        { return fmt.Sprintf("(NOT %s)", expr) }

func (d DuckDB) Xor(left, right string) string {
	return fmt.Sprintf("(%s IS DISTINCT FROM %s)", left, right)
}

func (DuckDB) CaseWhen(branches []CaseBranch, elseExpr string) string {
	var sb strings.Builder
	sb.WriteString("CASE")
	for _, b := range branches {
		fmt.Fprintf(&sb, " WHEN %s THEN %s", b.When, b.Then)
	}
	fmt.Fprintf(&sb, " ELSE %s END", elseExpr)
	return sb.String()
}

func (DuckDB) Equal(left, right string) string { return fmt.Sprintf("(%s IS NOT DISTINCT FROM %s)", left, right) }

func (DuckDB) WhereFilter(arrayExpr, predicateExpr, elementAlias string) string {
	return fmt.Sprintf("list_filter(%s, %s -> %s)", arrayExpr, elementAlias, predicateExpr)
}

func (DuckDB) SelectTransform(arrayExpr, transformExpr, elementAlias string) string {
	return fmt.Sprintf("list_transform(%s, %s -> %s)", arrayExpr, elementAlias, transformExpr)
}

func (DuckDB) Combine(left, right string) string {
	return fmt.Sprintf("list_concat(%s, %s)", left, right)
}

func (DuckDB) Exclude(left, right string) string {
	return fmt.Sprintf("list_filter(%s, x -> NOT list_contains(%s, x))", left, right)
}

func (DuckDB) Distinct(arrayExpr string) string {
	return fmt.Sprintf("list_distinct(%s)", arrayExpr)
}

func (d DuckDB) IsDistinct(arrayExpr string) string {
	return fmt.Sprintf("(len(%s) = len(%s))", arrayExpr, d.Distinct(arrayExpr))
}

func (DuckDB) AllTrue(arrayExpr string) string {
	return fmt.Sprintf("list_bool_and(%s)", arrayExpr)
}

func (DuckDB) AnyTrue(arrayExpr string) string {
	return fmt.Sprintf("list_bool_or(%s)", arrayExpr)
}

func (d DuckDB) AllFalse(arrayExpr string) string {
	return fmt.Sprintf("NOT %s", d.AnyTrue(arrayExpr))
}

func (d DuckDB) AnyFalse(arrayExpr string) string {
	return fmt.Sprintf("NOT %s", d.AllTrue(arrayExpr))
}

func (DuckDB) IsPrimitiveType(expr, typeName string) string {
	return fmt.Sprintf("(json_type(%s) = %s)", expr, duckdbJSONTypeLiteral(typeName))
}

func (d DuckDB) CastToType(expr, typeName string) string {
	return d.StrictCast(expr, Cast(strings.ToLower(typeName)))
}

func (DuckDB) FilterByType(arrayExpr, typeName, elementAlias string) string {
	return fmt.Sprintf("list_filter(%s, %s -> json_extract_string(%s, '$.resourceType') = '%s')",
		arrayExpr, elementAlias, elementAlias, typeName)
}

func (DuckDB) FilterExtensionByURL(extensionArrayExpr, urlExpr string) string {
	return fmt.Sprintf("list_filter(%s, e -> json_extract_string(e, '$.url') = %s)", extensionArrayExpr, urlExpr)
}

func (DuckDB) ExtractExtensionValue(extensionExpr string) string {
	fields := make([]string, len(valueXFields))
	for i, f := range valueXFields {
		fields[i] = fmt.Sprintf("json_extract(%s, '$.%s')", extensionExpr, f)
	}
	return fmt.Sprintf("COALESCE(%s)", strings.Join(fields, ", "))
}

func (DuckDB) Base64Encode(expr string) string { return fmt.Sprintf("base64(%s)", expr) }
func (DuckDB) Base64Decode(expr string) string { return fmt.Sprintf("from_base64(%s)", expr) }

func (d DuckDB) URLBase64Encode(expr string) string {
	return fmt.Sprintf("replace(replace(%s, '+', '-'), '/', '_')", d.Base64Encode(expr))
}

func (d DuckDB) URLBase64Decode(expr string) string {
	return d.Base64Decode(fmt.Sprintf("replace(replace(%s, '-', '+'), '_', '/')", expr))
}

func (DuckDB) HexEncode(expr string) string { return fmt.Sprintf("hex(%s)", expr) }
func (DuckDB) HexDecode(expr string) string { return fmt.Sprintf("unhex(%s)", expr) }

func (DuckDB) HTMLEscape(expr string) string {
	return fmt.Sprintf("replace(replace(replace(%s, '&', '&amp;'), '<', '&lt;'), '>', '&gt;')", expr)
}

func (DuckDB) HTMLUnescape(expr string) string {
	return fmt.Sprintf("replace(replace(replace(%s, '&lt;', '<'), '&gt;', '>'), '&amp;', '&')", expr)
}

func (DuckDB) JSONEscape(expr string) string   { return fmt.Sprintf("to_json(%s)", expr) }
func (DuckDB) JSONUnescape(expr string) string { return fmt.Sprintf("json(%s)", expr) }

func (DuckDB) Children(expr string) string {
	return fmt.Sprintf("json_each(%s)", expr)
}

func (DuckDB) Descendants(expr string) string {
	return fmt.Sprintf("fhirpath_descendants(%s)", expr)
}

func duckdbCastType(c Cast) string {
	switch c {
	case CastDecimal:
		return "DOUBLE"
	case CastInteger:
		return "BIGINT"
	case CastDate:
		return "DATE"
	case CastTimestamp:
		return "TIMESTAMP"
	case CastBoolean:
		return "BOOLEAN"
	default:
		return "VARCHAR"
	}
}

func duckdbJSONTypeLiteral(typeName string) string {
	switch strings.ToLower(typeName) {
	case "string", "code", "uri", "url", "date", "datetime", "time":
		return "'VARCHAR'"
	case "integer", "integer64", "unsignedint", "positiveint":
		return "'BIGINT'"
	case "decimal":
		return "'DOUBLE'"
	case "boolean":
		return "'BOOLEAN'"
	default:
		return "'OBJECT'"
	}
}

// valueXFields is the closed list of ~40 FHIR value[x] payload fields an
// Extension can carry. Kept here (not in the translator) because the list of
// JSON field names a dialect probes is itself a syntax detail.
var valueXFields = []string{
	"valueString", "valueBoolean", "valueInteger", "valueDecimal", "valueUri",
	"valueUrl", "valueCanonical", "valueCode", "valueDate", "valueDateTime",
	"valueTime", "valueInstant", "valueOid", "valueUuid", "valueId",
	"valueMarkdown", "valueBase64Binary", "valueUnsignedInt", "valuePositiveInt",
	"valueQuantity", "valueCoding", "valueCodeableConcept", "valueRange",
	"valuePeriod", "valueRatio", "valueSampledData", "valueIdentifier",
	"valueHumanName", "valueAddress", "valueContactPoint", "valueAttachment",
	"valueReference", "valueSignature", "valueAnnotation", "valueMeta",
	"valueDosage", "valueTiming", "valueMoney", "valueExpression",
	"valueContactDetail",
}
