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

	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/ast"
)

func (t *Translator) visitIdentifier(id *ast.Identifier, ctx *context) (*result, error) {
	if !id.Qualified {
		// An unqualified identifier (root resource-type reference, or the
		// implicit "this" inside where/select) resolves to the current
		// scope's collection; resourceType filtering for a root reference
		// is the compliance runner's job (single-fixture tables), not ours.
		return &result{sql: ctx.self}, nil
	}
	receiver, err := t.visit(id.Children()[0], ctx)
	if err != nil {
		return nil, err
	}
	return &result{sql: t.pathStep(receiver.sql, fmt.Sprintf("'$.%s'", id.Name))}, nil
}

// pathStep maps one field access over every element of a collection and
// flattens one level, so singular (0..1/1..1) and repeating (0..*/1..*)
// fields compose the same way without needing cardinality information:
// extracting a field always produces an array-of-arrays (one inner array
// per parent element, wrapping either a scalar or the field's own array
// value), which flattenOneLevel collapses back down to one level.
func (t *Translator) pathStep(collectionExpr, fieldPathLiteral string) string {
	const elem = "__e"
	mapped := t.Dialect.SelectTransform(
		collectionExpr,
		t.Dialect.WrapJSONArray(t.Dialect.ExtractJSON(elem, fieldPathLiteral)),
		elem,
	)
	return t.flattenOneLevel(mapped)
}

// flattenOneLevel collapses an array-of-arrays into a single array by
// enumerating twice — once over the outer elements, once over each outer
// element's own members — and re-aggregating the result.
func (t *Translator) flattenOneLevel(arrayOfArraysExpr string) string {
	const outer, inner = "__outer", "__inner"
	return fmt.Sprintf("(SELECT %s FROM %s, %s)",
		t.Dialect.AggregateToArray(inner),
		t.Dialect.LateralUnnest(arrayOfArraysExpr, outer),
		t.Dialect.LateralUnnest(outer, inner),
	)
}

// scalarOf extracts the first element of a collection as a bare scalar
// expression, for operators (arithmetic, comparison) that act on a single
// value rather than a collection.
func (t *Translator) scalarOf(arrayExpr string) string {
	const v = "v"
	return fmt.Sprintf("(SELECT %s FROM %s AS %s LIMIT 1)", v, t.Dialect.Unnest(arrayExpr), v)
}

// singleton wraps a scalar SQL expression in a 1-element collection.
func (t *Translator) singleton(scalarExpr string) string {
	return t.Dialect.WrapJSONArray(scalarExpr)
}
