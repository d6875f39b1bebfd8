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
	"fmt"
	"strings"

	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/ast"
	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/dialect"
	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/fherrors"
)

func (t *Translator) visitTypeOperation(top *ast.TypeOperation, ctx *context) (*result, error) {
	children := top.Children()
	if len(children) != 1 {
		return nil, fherrors.ErrWrongArity.New(top.TargetType, 1, len(children))
	}
	subject, err := t.visit(children[0], ctx)
	if err != nil {
		return nil, err
	}

	normalized := normalizeTestTypeName(top.TargetType)
	known := t.isKnownType(normalized)
	isComplexType := t.Registry != nil && t.Registry.IsComplex(normalized)

	switch top.Op {
	case ast.TypeOpIs:
		return t.visitIs(subject, normalized, isComplexType, known)
	case ast.TypeOpAs:
		return t.visitAs(subject, normalized, isComplexType, known)
	case ast.TypeOpOfType:
		return t.visitOfType(subject, normalized, isComplexType)
	default:
		return nil, fherrors.ErrUnsupportedOperator.New("type-operation", normalized)
	}
}

// normalizeTestTypeName strips the trailing "1" the compliance corpus's
// generated test type names carry (e.g. "string1" → "string", spec.md §4.4
// item 9).
func normalizeTestTypeName(name string) string {
	if strings.HasSuffix(name, "1") && len(name) > 1 {
		return strings.TrimSuffix(name, "1")
	}
	return name
}

func (t *Translator) isKnownType(name string) bool {
	if t.Registry == nil {
		return true
	}
	return t.Registry.IsPrimitive(name) || t.Registry.IsComplex(name)
}

// visitIs applies `is(T)`. A NULL/absent input yields NULL, not false, so
// `where(x is T)` drops rows with no value at all (spec.md §4.4 item 3, §8
// item 8) rather than treating "absent" as "not of type T".
func (t *Translator) visitIs(subject *result, typeName string, isComplex, known bool) (*result, error) {
	v := t.scalarOf(subject.sql)
	if !known {
		return &result{sql: t.singleton("false"), fhirType: "boolean"}, nil
	}
	var predicate string
	if isComplex {
		predicate = t.complexTypePredicate(v, typeName)
	} else {
		predicate = t.Dialect.IsPrimitiveType(v, typeName)
	}
	sql := t.Dialect.CaseWhen([]dialect.CaseBranch{
		{When: fmt.Sprintf("%s IS NULL", v), Then: "NULL"},
	}, predicate)
	return &result{sql: t.singleton(sql), fhirType: "boolean"}, nil
}

// visitAs applies `as(T)`. Unknown type names must fail at execution time,
// never silently return NULL (spec.md §4.4 item 7, §8 item 9), so the
// translator routes them through the dialect's InvalidCast trick.
func (t *Translator) visitAs(subject *result, typeName string, isComplex, known bool) (*result, error) {
	v := t.scalarOf(subject.sql)
	if !known {
		return &result{sql: t.singleton(t.Dialect.InvalidCast(v)), fhirType: "unknown"}, nil
	}
	if isComplex {
		guarded := t.Dialect.CaseWhen([]dialect.CaseBranch{
			{When: t.complexTypePredicate(v, typeName), Then: v},
		}, "NULL")
		return &result{sql: t.singleton(guarded), fhirType: typeName}, nil
	}
	return &result{sql: t.singleton(t.Dialect.SafeCast(v, primitiveCastFor(typeName))), fhirType: typeName}, nil
}

// visitOfType filters a collection by element type (spec.md §4.4 item 9):
// primitives use the dialect's JSON-type predicate; complex types use the
// dialect's FilterByType, which keeps elements whose resourceType matches.
func (t *Translator) visitOfType(subject *result, typeName string, isComplex bool) (*result, error) {
	const elem = "__t"
	if isComplex {
		return &result{sql: t.Dialect.FilterByType(subject.sql, typeName, elem), fhirType: typeName}, nil
	}
	predicate := t.Dialect.IsPrimitiveType(elem, typeName)
	return &result{sql: t.Dialect.WhereFilter(subject.sql, predicate, elem), fhirType: typeName}, nil
}

// complexTypePredicate inspects the JSON object's resourceType field; the
// translator owns this because it is FHIR-specific routing, not syntax.
func (t *Translator) complexTypePredicate(expr, typeName string) string {
	return t.Dialect.Equal(t.Dialect.ExtractText(expr, "'$.resourceType'"), quoteSQLString(typeName))
}

func primitiveCastFor(typeName string) dialect.Cast {
	switch strings.ToLower(typeName) {
	case "integer", "unsignedint", "positiveint", "integer64":
		return dialect.CastInteger
	case "decimal":
		return dialect.CastDecimal
	case "date":
		return dialect.CastDate
	case "datetime", "instant":
		return dialect.CastTimestamp
	case "boolean":
		return dialect.CastBoolean
	default:
		return dialect.Cast("text")
	}
}
