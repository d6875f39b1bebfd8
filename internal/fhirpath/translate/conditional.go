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
	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/fherrors"
)

func (t *Translator) visitConditional(cond *ast.Conditional, ctx *context) (*result, error) {
	switch cond.Kind {
	case ast.ConditionalWhere:
		return t.visitWhere(cond, ctx)
	case ast.ConditionalSelect:
		return t.visitSelect(cond, ctx)
	case ast.ConditionalIif:
		return t.visitIif(cond, ctx)
	default:
		return nil, fherrors.ErrSyntax.New(0, 0, "unhandled conditional kind")
	}
}

func (t *Translator) visitWhere(cond *ast.Conditional, ctx *context) (*result, error) {
	children := cond.Children()
	if len(children) != 2 {
		return nil, fherrors.ErrWrongArity.New("where", 1, len(children)-1)
	}
	receiver, err := t.visit(children[0], ctx)
	if err != nil {
		return nil, err
	}
	const elem = "__w"
	predicate, err := t.visit(children[1], &context{self: t.singleton(elem)})
	if err != nil {
		return nil, err
	}
	cmp := t.truthy(t.scalarOf(predicate.sql))
	return &result{sql: t.Dialect.WhereFilter(receiver.sql, cmp, elem)}, nil
}

func (t *Translator) visitSelect(cond *ast.Conditional, ctx *context) (*result, error) {
	children := cond.Children()
	if len(children) != 2 {
		return nil, fherrors.ErrWrongArity.New("select", 1, len(children)-1)
	}
	receiver, err := t.visit(children[0], ctx)
	if err != nil {
		return nil, err
	}
	const elem = "__s"
	projected, err := t.visit(children[1], &context{self: t.singleton(elem)})
	if err != nil {
		return nil, err
	}
	mapped := t.Dialect.SelectTransform(receiver.sql, projected.sql, elem)
	return &result{sql: t.flattenOneLevel(mapped)}, nil
}

// visitIif is lazy in both branches: each is guarded by the condition inside
// a CASE so only the selected branch's side effects (if any) would be
// observed at execution (spec.md §4.4 "aggregates over children").
func (t *Translator) visitIif(cond *ast.Conditional, ctx *context) (*result, error) {
	children := cond.Children()
	if len(children) != 4 {
		return nil, fherrors.ErrWrongArity.New("iif", 3, len(children)-1)
	}
	receiver, err := t.visit(children[0], ctx)
	if err != nil {
		return nil, err
	}
	// condition, whenTrue and whenFalse all see the same receiver as "this";
	// materializing it once avoids re-emitting (and re-evaluating) whatever
	// path chain produced it up to three times in the final CASE.
	innerCtx := &context{self: t.singleton(t.materialize(t.scalarOf(receiver.sql)))}
	condition, err := t.visit(children[1], innerCtx)
	if err != nil {
		return nil, err
	}
	whenTrue, err := t.visit(children[2], innerCtx)
	if err != nil {
		return nil, err
	}
	whenFalse, err := t.visit(children[3], innerCtx)
	if err != nil {
		return nil, err
	}
	cmp := t.truthy(t.scalarOf(condition.sql))
	sql := fmt.Sprintf("CASE WHEN %s THEN %s ELSE %s END", cmp, whenTrue.sql, whenFalse.sql)
	return &result{sql: sql}, nil
}
