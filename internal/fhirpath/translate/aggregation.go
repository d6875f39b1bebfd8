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

func (t *Translator) visitAggregation(agg *ast.Aggregation, ctx *context) (*result, error) {
	children := agg.Children()
	if len(children) < 1 {
		return nil, fherrors.ErrWrongArity.New(string(agg.Function), 0, 0)
	}
	receiver, err := t.visit(children[0], ctx)
	if err != nil {
		return nil, err
	}

	switch agg.Function {
	case ast.AggCount:
		// count() is defined on the collection itself, not a numeric field,
		// so the array's cardinality is the answer for every dialect alike.
		return &result{sql: t.singleton(t.arrayLength(receiver.sql)), fhirType: "integer"}, nil
	case ast.AggSum, ast.AggAvg, ast.AggMin, ast.AggMax:
		const elem = "__a"
		scalarElems := t.Dialect.SelectTransform(receiver.sql, elem, elem)
		fn := map[ast.AggregationFunction]string{
			ast.AggSum: "sum", ast.AggAvg: "avg", ast.AggMin: "min", ast.AggMax: "max",
		}[agg.Function]
		sql := t.Dialect.MathFunc(fn, fmt.Sprintf("(SELECT %s FROM %s AS %s)", elem, t.Dialect.Unnest(scalarElems), elem))
		return &result{sql: t.singleton(sql), fhirType: "decimal"}, nil
	default:
		return nil, fherrors.ErrUnknownFunction.New(string(agg.Function))
	}
}

// arrayLength emits a collection's cardinality using a length-of-unnest
// subquery, staying on primitives already declared by the dialect rather
// than adding a dedicated interface method solely for this one use.
func (t *Translator) arrayLength(arrayExpr string) string {
	const v = "v"
	return fmt.Sprintf("(SELECT count(*) FROM %s AS %s)", t.Dialect.Unnest(arrayExpr), v)
}
