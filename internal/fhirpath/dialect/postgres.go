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

// Postgres is the transactional dialect targeting native JSONB, driven via
// github.com/jackc/pgx/v5 (see poolmgr). Like DuckDB, this type only emits
// SQL text.
type Postgres struct{}

func NewPostgres() *Postgres { return &Postgres{} }

func (Postgres) Kind() Kind { return KindPostgres }

func (Postgres) Capabilities() Capabilities {
	return Capabilities{NativeJSONB: true, NativeArrayOps: false, SupportsLateral: true}
}

func (Postgres) ExtractText(col, path string) string {
	return fmt.Sprintf("jsonb_path_query_first(%s, %s) #>> '{}'", col, path)
}

func (Postgres) ExtractJSON(col, path string) string {
	return fmt.Sprintf("jsonb_path_query_first(%s, %s)", col, path)
}

func (Postgres) ExtractTyped(col, path string, cast Cast) string {
	return fmt.Sprintf("CAST(jsonb_path_query_first(%s, %s) #>> '{}' AS %s)", col, path, postgresCastType(cast))
}

func (Postgres) Exists(col, path string) string {
	return fmt.Sprintf("jsonb_path_exists(%s, %s)", col, path)
}

func (d Postgres) ExtractPrimitiveValue(col, path string) string {
	return fmt.Sprintf("COALESCE(%s, %s)",
		d.ExtractText(col, path+".value"),
		d.ExtractText(col, path))
}

func (Postgres) Unnest(arrayExpr string) string {
	return fmt.Sprintf("jsonb_array_elements(%s)", arrayExpr)
}

func (Postgres) LateralUnnest(arrayExpr, alias string) string {
	return fmt.Sprintf("LATERAL jsonb_array_elements(%s) AS %s", arrayExpr, alias)
}

func (Postgres) EnumerateWithOrdinality(arrayExpr, alias string) string {
	return fmt.Sprintf("jsonb_array_elements(%s) WITH ORDINALITY AS %s(value, idx)", arrayExpr, alias)
}

func (Postgres) AggregateToArray(expr string) string {
	return fmt.Sprintf("jsonb_agg(%s)", expr)
}

func (Postgres) ArrayContains(arrayExpr, valueExpr string) string {
	return fmt.Sprintf("(%s @> jsonb_build_array(%s))", arrayExpr, valueExpr)
}

func (Postgres) EmptyArrayLiteral() string { return "'[]'::jsonb" }

func (Postgres) IsArray(expr string) string {
	return fmt.Sprintf("jsonb_typeof(%s) = 'array'", expr)
}

func (Postgres) ArraySort(arrayExpr string, descending bool) string {
	order := "ASC"
	if descending {
		order = "DESC"
	}
	return fmt.Sprintf(
		"(SELECT jsonb_agg(elem ORDER BY elem %s) FROM jsonb_array_elements(%s) AS elem)",
		order, arrayExpr)
}

func (Postgres) ArraySkip(arrayExpr string, n string) string {
	return fmt.Sprintf(
		"(SELECT jsonb_agg(elem) FROM (SELECT elem, row_number() OVER () AS rn FROM jsonb_array_elements(%s) AS elem) sub WHERE sub.rn > %s)",
		arrayExpr, n)
}

func (Postgres) ArrayTake(arrayExpr string, n string) string {
	return fmt.Sprintf(
		"(SELECT jsonb_agg(elem) FROM (SELECT elem, row_number() OVER () AS rn FROM jsonb_array_elements(%s) AS elem) sub WHERE sub.rn <= %s)",
		arrayExpr, n)
}

func (Postgres) ArrayLast(arrayExpr string) string {
	return fmt.Sprintf("(%s -> (jsonb_array_length(%s) - 1))", arrayExpr, arrayExpr)
}

func (Postgres) ArrayToString(arrayExpr, separator string) string {
	return fmt.Sprintf(
		"(SELECT string_agg(elem #>> '{}', %s) FROM jsonb_array_elements(%s) AS elem)",
		separator, arrayExpr)
}

func (Postgres) WrapJSONArray(expr string) string {
	return fmt.Sprintf("jsonb_build_array(%s)", expr)
}

func (Postgres) IsJSONArray(expr string) string {
	return fmt.Sprintf("jsonb_typeof(%s) = 'array'", expr)
}

func (Postgres) EnumerateJSONArray(expr string) string {
	return fmt.Sprintf("jsonb_array_elements(%s)", expr)
}

func (Postgres) Concat(parts ...string) string {
	return strings.Join(parts, " || ")
}

func (Postgres) Substring(expr, start, length string) string {
	return fmt.Sprintf("substring(%s FROM %s FOR %s)", expr, start, length)
}

func (Postgres) Split(expr, separator string) string {
	return fmt.Sprintf("string_to_array(%s, %s)", expr, separator)
}

func (Postgres) Trim(expr string) string  { return fmt.Sprintf("trim(%s)", expr) }
func (Postgres) Upper(expr string) string { return fmt.Sprintf("upper(%s)", expr) }
func (Postgres) Lower(expr string) string { return fmt.Sprintf("lower(%s)", expr) }

func (Postgres) CharArray(expr string) string {
	return fmt.Sprintf("regexp_split_to_array(%s, '')", expr)
}

func (Postgres) StartsWith(expr, prefix string) string {
	return fmt.Sprintf("(%s LIKE %s || '%%')", expr, prefix)
}

func (Postgres) EndsWith(expr, suffix string) string {
	return fmt.Sprintf("(%s LIKE '%%' || %s)", expr, suffix)
}

func (Postgres) ContainsSubstring(expr, substr string) string {
	return fmt.Sprintf("(position(%s IN %s) > 0)", substr, expr)
}

func (Postgres) RegexMatch(expr, pattern string) string {
	return fmt.Sprintf("(%s ~ %s)", expr, pattern)
}

func (Postgres) RegexReplace(expr, pattern, replacement string) string {
	return fmt.Sprintf("regexp_replace(%s, %s, %s, 'g')", expr, pattern, replacement)
}

func (Postgres) Length(expr string) string { return fmt.Sprintf("length(%s)", expr) }

func (Postgres) DecimalDiv(left, right string) string {
	return fmt.Sprintf("(CAST(%s AS NUMERIC) / CAST(%s AS NUMERIC))", left, right)
}

func (Postgres) IntegerDivTruncate(left, right string) string {
	return fmt.Sprintf("trunc(CAST(%s AS NUMERIC) / CAST(%s AS NUMERIC))::BIGINT", left, right)
}

func (Postgres) Mod(left, right string) string { return fmt.Sprintf("MOD(%s, %s)", left, right) }

func (Postgres) Power(base, exponent string) string {
	return fmt.Sprintf("power(%s, %s)", base, exponent)
}

func (Postgres) MathFunc(name, expr string) string { return fmt.Sprintf("%s(%s)", name, expr) }

func (Postgres) SafeCast(expr string, cast Cast) string {
	// Postgres has no TRY_CAST; emit a scalar subquery whose CASE yields NULL
	// when the value fails postgresCastablePredicate. Only decimal/integer
	// (digits with an optional fraction) and boolean targets are checked;
	// other targets (date, timestamp, text) cast unguarded, so a failure
	// there aborts the statement.
	return fmt.Sprintf(
		"(SELECT CASE WHEN %s THEN CAST(%s AS %s) ELSE NULL END)",
		postgresCastablePredicate(expr, cast), expr, postgresCastType(cast))
}

func (Postgres) StrictCast(expr string, cast Cast) string {
	return fmt.Sprintf("CAST(%s AS %s)", expr, postgresCastType(cast))
}

func (Postgres) InvalidCast(expr string) string {
	return fmt.Sprintf("CAST(%s AS invalid_fhir_type_xyz)", expr)
}

func (Postgres) TypeOf(expr string) string { return fmt.Sprintf("jsonb_typeof(%s)", expr) }

func (Postgres) DateLiteral(normalized string) string {
	return fmt.Sprintf("DATE '%s'", normalized)
}

func (Postgres) DateTimeLiteral(normalized string) string {
	return fmt.Sprintf("TIMESTAMPTZ '%s'", normalized)
}

func (Postgres) TimeLiteral(normalized string) string {
	return fmt.Sprintf("TIME '%s'", normalized)
}

func (Postgres) CurrentDate() string      { return "current_date" }
func (Postgres) CurrentTime() string      { return "current_time" }
func (Postgres) CurrentTimestamp() string { return "current_timestamp" }

func (Postgres) DateDiff(unit, start, end string) string {
	return fmt.Sprintf("EXTRACT(%s FROM (%s - %s))", unit, end, start)
}

func (d Postgres) TemporalBoundary(expr, precision string, selector BoundarySelector) string {
	truncated := fmt.Sprintf("date_trunc('%s', %s)", precision, expr)
	if selector == BoundaryLow {
		return truncated
	}
	return fmt.Sprintf("(%s + INTERVAL '1 %s' - INTERVAL '1 microsecond')", truncated, precision)
}

func (Postgres) DecimalBoundary(expr string, inputPrecision, targetPrecision int, selector BoundarySelector) string {
	c := DecimalBoundaryConstant(inputPrecision)
	return RoundSQL(fmt.Sprintf("(%s %s)", expr, FormatBoundaryConstant(c, selector)), targetPrecision)
}

func (d Postgres) QuantityBoundary(numericExpr, unitExpr string, inputPrecision int, selector BoundarySelector) string {
	target := ResolvedTargetPrecision(inputPrecision, nil)
	return fmt.Sprintf("jsonb_build_object('value', %s, 'unit', %s)",
		d.DecimalBoundary(numericExpr, inputPrecision, target, selector), unitExpr)
}

func (Postgres) And(left, right string) string { return fmt.Sprintf("(%s AND %s)", left, right) }
func (Postgres) Or(left, right string) string  { return fmt.Sprintf("(%s OR %s)", left, right) }
func (Postgres) Not(expr string) string        { return fmt.Sprintf("(NOT %s)", expr) }

func (Postgres) Xor(left, right string) string {
	return fmt.Sprintf("(%s IS DISTINCT FROM %s)", left, right)
}

func (Postgres) CaseWhen(branches []CaseBranch, elseExpr string) string {
	var sb strings.Builder
	sb.WriteString("CASE")
	for _, b := range branches {
		fmt.Fprintf(&sb, " WHEN %s THEN %s", b.When, b.Then)
	}
	fmt.Fprintf(&sb, " ELSE %s END", elseExpr)
	return sb.String()
}

func (Postgres) Equal(left, right string) string {
	return fmt.Sprintf("(%s IS NOT DISTINCT FROM %s)", left, right)
}

func (Postgres) WhereFilter(arrayExpr, predicateExpr, elementAlias string) string {
	return fmt.Sprintf(
		"(SELECT jsonb_agg(%s) FROM jsonb_array_elements(%s) AS %s WHERE %s)",
		elementAlias, arrayExpr, elementAlias, predicateExpr)
}

func (Postgres) SelectTransform(arrayExpr, transformExpr, elementAlias string) string {
	return fmt.Sprintf(
		"(SELECT jsonb_agg(%s) FROM jsonb_array_elements(%s) AS %s)",
		transformExpr, arrayExpr, elementAlias)
}

func (Postgres) Combine(left, right string) string {
	return fmt.Sprintf("(%s || %s)", left, right)
}

func (Postgres) Exclude(left, right string) string {
	return fmt.Sprintf(
		"(SELECT jsonb_agg(elem) FROM jsonb_array_elements(%s) AS elem WHERE NOT (%s @> jsonb_build_array(elem)))",
		left, right)
}

func (Postgres) Distinct(arrayExpr string) string {
	return fmt.Sprintf(
		"(SELECT jsonb_agg(DISTINCT elem) FROM jsonb_array_elements(%s) AS elem)",
		arrayExpr)
}

func (d Postgres) IsDistinct(arrayExpr string) string {
	return fmt.Sprintf("(jsonb_array_length(%s) = jsonb_array_length(%s))", arrayExpr, d.Distinct(arrayExpr))
}

func (Postgres) AllTrue(arrayExpr string) string {
	return fmt.Sprintf(
		"(SELECT bool_and((elem #>> '{}')::boolean) FROM jsonb_array_elements(%s) AS elem)", arrayExpr)
}

func (Postgres) AnyTrue(arrayExpr string) string {
	return fmt.Sprintf(
		"(SELECT bool_or((elem #>> '{}')::boolean) FROM jsonb_array_elements(%s) AS elem)", arrayExpr)
}

func (d Postgres) AllFalse(arrayExpr string) string {
	return fmt.Sprintf("NOT %s", d.AnyTrue(arrayExpr))
}

func (d Postgres) AnyFalse(arrayExpr string) string {
	return fmt.Sprintf("NOT %s", d.AllTrue(arrayExpr))
}

func (Postgres) IsPrimitiveType(expr, typeName string) string {
	return fmt.Sprintf("(jsonb_typeof(%s) = %s)", expr, postgresJSONTypeLiteral(typeName))
}

func (d Postgres) CastToType(expr, typeName string) string {
	return d.StrictCast(expr, Cast(strings.ToLower(typeName)))
}

func (Postgres) FilterByType(arrayExpr, typeName, elementAlias string) string {
	return fmt.Sprintf(
		"(SELECT jsonb_agg(%s) FROM jsonb_array_elements(%s) AS %s WHERE %s ->> 'resourceType' = '%s')",
		elementAlias, arrayExpr, elementAlias, elementAlias, typeName)
}

func (Postgres) FilterExtensionByURL(extensionArrayExpr, urlExpr string) string {
	return fmt.Sprintf(
		"(SELECT jsonb_agg(e) FROM jsonb_array_elements(%s) AS e WHERE e ->> 'url' = %s)",
		extensionArrayExpr, urlExpr)
}

func (Postgres) ExtractExtensionValue(extensionExpr string) string {
	fields := make([]string, len(valueXFields))
	for i, f := range valueXFields {
		fields[i] = fmt.Sprintf("%s -> '%s'", extensionExpr, f)
	}
	return fmt.Sprintf("COALESCE(%s)", strings.Join(fields, ", "))
}

func (Postgres) Base64Encode(expr string) string {
	return fmt.Sprintf("encode(convert_to(%s, 'UTF8'), 'base64')", expr)
}

func (Postgres) Base64Decode(expr string) string {
	return fmt.Sprintf("convert_from(decode(%s, 'base64'), 'UTF8')", expr)
}

func (d Postgres) URLBase64Encode(expr string) string {
	return fmt.Sprintf("replace(replace(%s, '+', '-'), '/', '_')", d.Base64Encode(expr))
}

func (d Postgres) URLBase64Decode(expr string) string {
	return d.Base64Decode(fmt.Sprintf("replace(replace(%s, '-', '+'), '_', '/')", expr))
}

func (Postgres) HexEncode(expr string) string {
	return fmt.Sprintf("encode(convert_to(%s, 'UTF8'), 'hex')", expr)
}

func (Postgres) HexDecode(expr string) string {
	return fmt.Sprintf("convert_from(decode(%s, 'hex'), 'UTF8')", expr)
}

func (Postgres) HTMLEscape(expr string) string {
	return fmt.Sprintf("replace(replace(replace(%s, '&', '&amp;'), '<', '&lt;'), '>', '&gt;')", expr)
}

func (Postgres) HTMLUnescape(expr string) string {
	return fmt.Sprintf("replace(replace(replace(%s, '&lt;', '<'), '&gt;', '>'), '&amp;', '&')", expr)
}

func (Postgres) JSONEscape(expr string) string   { return fmt.Sprintf("to_jsonb(%s)", expr) }
func (Postgres) JSONUnescape(expr string) string { return fmt.Sprintf("(%s)::jsonb", expr) }

func (Postgres) Children(expr string) string {
	return fmt.Sprintf("jsonb_each(%s)", expr)
}

func (Postgres) Descendants(expr string) string {
	return fmt.Sprintf("fhirpath_descendants(%s)", expr)
}

func postgresCastType(c Cast) string {
	switch c {
	case CastDecimal:
		return "NUMERIC"
	case CastInteger:
		return "BIGINT"
	case CastDate:
		return "DATE"
	case CastTimestamp:
		return "TIMESTAMPTZ"
	case CastBoolean:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

func postgresCastablePredicate(expr string, cast Cast) string {
	switch cast {
	case CastDecimal, CastInteger:
		return fmt.Sprintf("%s ~ '^-?[0-9]+(\\.[0-9]+)?$'", expr)
	case CastBoolean:
		return fmt.Sprintf("lower(%s) IN ('true', 'false')", expr)
	default:
		return "TRUE"
	}
}

func postgresJSONTypeLiteral(typeName string) string {
	switch strings.ToLower(typeName) {
	case "string", "code", "uri", "url", "date", "datetime", "time":
		return "'string'"
	case "integer", "integer64", "unsignedint", "positiveint", "decimal":
		return "'number'"
	case "boolean":
		return "'boolean'"
	default:
		return "'object'"
	}
}
