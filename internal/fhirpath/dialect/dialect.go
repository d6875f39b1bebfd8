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

// Package dialect declares the closed, abstract catalog of syntax-emission
// primitives (spec.md §4.3) and two concrete implementations: an analytical
// JSON-native engine (DuckDB) and a transactional engine with native JSONB
// (PostgreSQL). No primitive here may encode FHIRPath semantics — only
// token-for-token emission (the "thin dialect" invariant).
package dialect

// Kind names the target database family.
type Kind string

const (
	KindDuckDB   Kind = "duckdb"
	KindPostgres Kind = "postgres"
)

// Capabilities are coarse feature flags a dialect exposes so the translator
// can pick between equivalent strategies without hard-coding a database name.
type Capabilities struct {
	NativeJSONB     bool
	NativeArrayOps  bool
	SupportsLateral bool
}

// Cast is the closed set of coercion targets.
type Cast string

const (
	CastDecimal   Cast = "decimal"
	CastInteger   Cast = "integer"
	CastDate      Cast = "date"
	CastTimestamp Cast = "timestamp"
	CastBoolean   Cast = "boolean"
)

// BoundarySelector picks the low or high endpoint of an uncertainty interval.
type BoundarySelector int

const (
	BoundaryLow BoundarySelector = iota
	BoundaryHigh
)

// Dialect is the full syntax-emission contract. Every method returns a
// string of target-database SQL syntax built from its arguments, which are
// themselves already-rendered SQL expression strings (the translator is
// responsible for composing them into larger expressions).
type Dialect interface {
	Kind() Kind
	Capabilities() Capabilities

	// --- JSON field access ---
	ExtractText(col, path string) string
	ExtractJSON(col, path string) string
	ExtractTyped(col, path string, cast Cast) string
	Exists(col, path string) string

	// --- FHIR primitive value (§4.3.1) ---
	ExtractPrimitiveValue(col, path string) string

	// --- Array ops ---
	Unnest(arrayExpr string) string
	LateralUnnest(arrayExpr, alias string) string
	EnumerateWithOrdinality(arrayExpr, alias string) string
	AggregateToArray(expr string) string
	ArrayContains(arrayExpr, valueExpr string) string
	EmptyArrayLiteral() string
	IsArray(expr string) string
	ArraySort(arrayExpr string, descending bool) string
	ArraySkip(arrayExpr string, n string) string
	ArrayTake(arrayExpr string, n string) string
	ArrayLast(arrayExpr string) string
	ArrayToString(arrayExpr, separator string) string
	WrapJSONArray(expr string) string
	IsJSONArray(expr string) string
	EnumerateJSONArray(expr string) string

	// --- String ---
	Concat(parts ...string) string
	Substring(expr, start, length string) string
	Split(expr, separator string) string
	Trim(expr string) string
	Upper(expr string) string
	Lower(expr string) string
	CharArray(expr string) string
	StartsWith(expr, prefix string) string
	EndsWith(expr, suffix string) string
	ContainsSubstring(expr, substr string) string
	RegexMatch(expr, pattern string) string
	RegexReplace(expr, pattern, replacement string) string
	Length(expr string) string

	// --- Arithmetic ---
	DecimalDiv(left, right string) string
	IntegerDivTruncate(left, right string) string
	Mod(left, right string) string
	Power(base, exponent string) string
	MathFunc(name, expr string) string

	// --- Cast/coerce ---
	SafeCast(expr string, cast Cast) string
	StrictCast(expr string, cast Cast) string
	InvalidCast(expr string) string // forces an execution-time error for unknown types
	TypeOf(expr string) string

	// --- Temporal ---
	DateLiteral(normalized string) string
	DateTimeLiteral(normalized string) string
	TimeLiteral(normalized string) string
	CurrentDate() string
	CurrentTime() string
	CurrentTimestamp() string
	DateDiff(unit, start, end string) string
	TemporalBoundary(expr string, precision string, selector BoundarySelector) string

	// --- Boundary (decimal/quantity use shared helper, see boundary.go) ---
	DecimalBoundary(expr string, inputPrecision int, targetPrecision int, selector BoundarySelector) string
	QuantityBoundary(numericExpr, unitExpr string, inputPrecision int, selector BoundarySelector) string

	// --- Logical ---
	And(left, right string) string
	Or(left, right string) string
	Not(expr string) string
	Xor(left, right string) string
	CaseWhen(branches []CaseBranch, elseExpr string) string
	Equal(left, right string) string

	// --- Collection semantics ---
	WhereFilter(arrayExpr, predicateExpr, elementAlias string) string
	SelectTransform(arrayExpr, transformExpr, elementAlias string) string
	Combine(left, right string) string
	Exclude(left, right string) string
	Distinct(arrayExpr string) string
	IsDistinct(arrayExpr string) string
	AllTrue(arrayExpr string) string
	AnyTrue(arrayExpr string) string
	AllFalse(arrayExpr string) string
	AnyFalse(arrayExpr string) string

	// --- Type ops ---
	IsPrimitiveType(expr string, typeName string) string
	CastToType(expr string, typeName string) string
	FilterByType(arrayExpr, typeName string, elementAlias string) string

	// --- Extension ---
	FilterExtensionByURL(extensionArrayExpr, urlExpr string) string
	ExtractExtensionValue(extensionExpr string) string

	// --- Encoding ---
	Base64Encode(expr string) string
	Base64Decode(expr string) string
	URLBase64Encode(expr string) string
	URLBase64Decode(expr string) string
	HexEncode(expr string) string
	HexDecode(expr string) string
	HTMLEscape(expr string) string
	HTMLUnescape(expr string) string
	JSONEscape(expr string) string
	JSONUnescape(expr string) string

	// --- JSON navigation ---
	Children(expr string) string
	Descendants(expr string) string
}

// CaseBranch is one WHEN/THEN pair passed to CaseWhen.
type CaseBranch struct {
	When string
	Then string
}
