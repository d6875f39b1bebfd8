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

// Package translate implements the AST-to-SQL visitor (spec.md §4.4). This
// component owns every semantic decision — collection flattening, null
// propagation, implicit conversions, operator dispatch, function resolution —
// and delegates every emitted token to a dialect.Dialect.
package translate

import (
	"fmt"

	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/ast"
	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/dialect"
	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/fherrors"
	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/fhirtype"
	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/fragment"
)

// Translator walks a single AST for one target Dialect.
type Translator struct {
	Dialect  dialect.Dialect
	Registry *fhirtype.Registry

	nextID int
	plan   []fragment.PlanEntry
}

func New(d dialect.Dialect, reg *fhirtype.Registry) *Translator {
	return &Translator{Dialect: d, Registry: reg}
}

// result is the value threaded through visit(). Every node is represented
// uniformly as a JSON-array SQL expression string (the collection model,
// spec.md §4.4 item 1); fhirType records the element type when known, for
// callers that need to pick strict vs safe casts.
type result struct {
	sql      string
	fhirType string
}

// context carries the "current item" binding path navigation and the
// where/select/iif conditionals rebind when they enter a new scope.
type context struct {
	self string
}

// Translate compiles root into an ordered CTE plan. The plan's final entry
// projects the expression's result collection as a JSON array column named
// "result".
func (t *Translator) Translate(root ast.Node) (*fragment.Plan, error) {
	ast.EnsureFull(root, t.Registry)
	if err := ast.Validate(root); err != nil {
		return nil, err
	}

	rootCollection := t.Dialect.WrapJSONArray(t.Dialect.ExtractJSON("resource", "'$'"))
	res, err := t.visit(root, &context{self: rootCollection})
	if err != nil {
		return nil, err
	}

	id := t.newID()
	t.plan = append(t.plan, fragment.PlanEntry{
		ID:  id,
		SQL: fmt.Sprintf("SELECT %s AS result FROM resource", res.sql),
	})
	return &fragment.Plan{Entries: t.plan}, nil
}

func (t *Translator) newID() string {
	id := fmt.Sprintf("c_%d", t.nextID)
	t.nextID++
	return id
}

// materialize registers sql as a standalone named CTE (spec.md §4.4 item 11,
// cte candidacy) and returns a scalar-subquery reference to its single
// "value" column, usable anywhere a plain expression string is expected.
func (t *Translator) materialize(sql string) string {
	id := t.newID()
	t.plan = append(t.plan, fragment.PlanEntry{ID: id, SQL: fmt.Sprintf("SELECT %s AS value", sql)})
	return fmt.Sprintf("(SELECT value FROM %s)", id)
}

func (t *Translator) visit(n ast.Node, ctx *context) (*result, error) {
	switch v := n.(type) {
	case *ast.Literal:
		return t.visitLiteral(v)
	case *ast.Identifier:
		return t.visitIdentifier(v, ctx)
	case *ast.Operator:
		return t.visitOperator(v, ctx)
	case *ast.FunctionCall:
		return t.visitFunctionCall(v, ctx)
	case *ast.Conditional:
		return t.visitConditional(v, ctx)
	case *ast.Aggregation:
		return t.visitAggregation(v, ctx)
	case *ast.TypeOperation:
		return t.visitTypeOperation(v, ctx)
	default:
		return nil, fherrors.ErrSyntax.New(0, 0, fmt.Sprintf("unhandled node category %s", n.Category()))
	}
}

// quantityObject builds a {value, unit} structured literal in each dialect's
// native object syntax; kept here rather than in dialect.Dialect because
// both QuantityValue literals and toQuantity() need it and neither is itself
// a primitive worth adding to the closed interface.
func (t *Translator) quantityObject(valueExpr, unitExpr string) string {
	if t.Dialect.Kind() == dialect.KindPostgres {
		return fmt.Sprintf("jsonb_build_object('value', %s, 'unit', %s)", valueExpr, unitExpr)
	}
	return fmt.Sprintf("{'value': %s, 'unit': %s}", valueExpr, unitExpr)
}
