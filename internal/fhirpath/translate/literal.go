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
)

func (t *Translator) visitLiteral(lit *ast.Literal) (*result, error) {
	switch lit.Kind {
	case ast.LiteralEmptyCollection:
		return &result{sql: t.Dialect.EmptyArrayLiteral()}, nil
	case ast.LiteralString:
		return &result{sql: t.singleton(quoteSQLString(lit.Value.(string))), fhirType: "string"}, nil
	case ast.LiteralInteger:
		return &result{sql: t.singleton(fmt.Sprintf("%d", lit.Value.(int64))), fhirType: "integer"}, nil
	case ast.LiteralDecimal:
		return &result{sql: t.singleton(lit.Value.(string)), fhirType: "decimal"}, nil
	case ast.LiteralBoolean:
		b := "false"
		if lit.Value.(bool) {
			b = "true"
		}
		return &result{sql: t.singleton(b), fhirType: "boolean"}, nil
	case ast.LiteralDate:
		return &result{sql: t.singleton(t.Dialect.DateLiteral(lit.Temporal.Normalized)), fhirType: "date"}, nil
	case ast.LiteralDateTime:
		return &result{sql: t.singleton(t.Dialect.DateTimeLiteral(lit.Temporal.Normalized)), fhirType: "dateTime"}, nil
	case ast.LiteralTime:
		return &result{sql: t.singleton(t.Dialect.TimeLiteral(lit.Temporal.Normalized)), fhirType: "time"}, nil
	case ast.LiteralQuantity:
		q := lit.Quantity
		obj := t.quantityObject(q.Numeric, quoteSQLString(q.Unit))
		return &result{sql: t.singleton(obj), fhirType: "Quantity"}, nil
	default:
		return nil, fmt.Errorf("unhandled literal kind %d", lit.Kind)
	}
}

func quoteSQLString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
