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
	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/dialect"
	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/fherrors"
)

func (t *Translator) visitOperator(op *ast.Operator, ctx *context) (*result, error) {
	switch op.Arity {
	case ast.ArityUnary:
		return t.visitUnary(op, ctx)
	case ast.ArityUnion:
		return t.visitUnion(op, ctx)
	case ast.ArityComparison:
		return t.visitComparison(op, ctx)
	case ast.ArityLogical:
		return t.visitLogical(op, ctx)
	default:
		return t.visitArithmetic(op, ctx)
	}
}

func (t *Translator) visitUnary(op *ast.Operator, ctx *context) (*result, error) {
	operand, err := t.visit(op.Right, ctx)
	if err != nil {
		return nil, err
	}
	v := t.scalarOf(operand.sql)
	switch op.Symbol {
	case "-":
		return &result{sql: t.singleton(fmt.Sprintf("(-%s)", v)), fhirType: operand.fhirType}, nil
	case "+":
		return operand, nil
	case "not":
		return &result{sql: t.singleton(t.Dialect.Not(t.truthy(v))), fhirType: "boolean"}, nil
	default:
		return nil, fherrors.ErrUnsupportedOperator.New(op.Symbol, "unary")
	}
}

func (t *Translator) visitUnion(op *ast.Operator, ctx *context) (*result, error) {
	left, err := t.visit(op.Left, ctx)
	if err != nil {
		return nil, err
	}
	right, err := t.visit(op.Right, ctx)
	if err != nil {
		return nil, err
	}
	combined := t.Dialect.Combine(left.sql, right.sql)
	return &result{sql: t.Dialect.Distinct(combined)}, nil
}

var arithmeticSymbols = map[string]bool{"+": true, "-": true, "*": true, "/": true, "div": true, "mod": true, "&": true}

func (t *Translator) visitArithmetic(op *ast.Operator, ctx *context) (*result, error) {
	if !arithmeticSymbols[op.Symbol] {
		return nil, fherrors.ErrUnsupportedOperator.New(op.Symbol, "binary")
	}
	left, err := t.visit(op.Left, ctx)
	if err != nil {
		return nil, err
	}
	right, err := t.visit(op.Right, ctx)
	if err != nil {
		return nil, err
	}
	l, r := t.scalarOf(left.sql), t.scalarOf(right.sql)

	var sql, fhirType string
	switch op.Symbol {
	case "+":
		sql, fhirType = fmt.Sprintf("(%s + %s)", l, r), "decimal"
	case "-":
		sql, fhirType = fmt.Sprintf("(%s - %s)", l, r), "decimal"
	case "*":
		sql, fhirType = fmt.Sprintf("(%s * %s)", l, r), "decimal"
	case "/":
		sql, fhirType = t.Dialect.DecimalDiv(l, r), "decimal"
	case "div":
		// Truncate-toward-zero integer division (spec.md §4.4 item 6).
		sql, fhirType = t.Dialect.IntegerDivTruncate(l, r), "integer"
	case "mod":
		sql, fhirType = t.Dialect.Mod(l, r), "integer"
	case "&":
		sql, fhirType = t.Dialect.Concat(l, r), "string"
	}
	return &result{sql: t.singleton(sql), fhirType: fhirType}, nil
}

// numericCastFor picks strict vs safe cast per spec.md §4.4 item 5: a
// literal operand must use strict cast so the database raises on a bad
// comparison; a JSON-extracted (dynamic) operand uses safe cast and
// NULL-propagates instead of aborting the statement.
func (t *Translator) numericCastFor(n ast.Node, expr string) string {
	if _, isLit := n.(*ast.Literal); isLit {
		return t.Dialect.StrictCast(expr, dialect.CastDecimal)
	}
	return t.Dialect.SafeCast(expr, dialect.CastDecimal)
}

// temporalCastFor mirrors numericCastFor's strict/safe split for date,
// datetime and time operands: a literal operand casts strictly, a
// JSON-extracted path operand casts safely so a malformed value NULLs out
// instead of aborting the statement.
func (t *Translator) temporalCastFor(n ast.Node, expr string, cast dialect.Cast) string {
	if _, isLit := n.(*ast.Literal); isLit {
		return t.Dialect.StrictCast(expr, cast)
	}
	return t.Dialect.SafeCast(expr, cast)
}

// temporalCastKind picks date vs timestamp cast from whichever operand is
// the temporal literal driving the comparison.
func temporalCastKind(k ast.LiteralKind) dialect.Cast {
	if k == ast.LiteralDate {
		return dialect.CastDate
	}
	return dialect.CastTimestamp
}

func (t *Translator) visitComparison(op *ast.Operator, ctx *context) (*result, error) {
	left, err := t.visit(op.Left, ctx)
	if err != nil {
		return nil, err
	}
	right, err := t.visit(op.Right, ctx)
	if err != nil {
		return nil, err
	}
	l, r := t.scalarOf(left.sql), t.scalarOf(right.sql)

	leftLit, leftIsLit := op.Left.(*ast.Literal)
	rightLit, rightIsLit := op.Right.(*ast.Literal)
	leftTemporal := leftIsLit && isTemporalKind(leftLit.Kind)
	rightTemporal := rightIsLit && isTemporalKind(rightLit.Kind)

	if leftTemporal && rightTemporal {
		if cmp, handled := t.temporalComparison(op.Symbol, op.Left, op.Right, ctx); handled {
			return cmp, nil
		}
	}

	var sql string
	switch op.Symbol {
	case "=", "~":
		sql = t.Dialect.Equal(l, r)
	case "!=", "!~":
		sql = t.Dialect.Not(t.Dialect.Equal(l, r))
	case "<", "<=", ">", ">=":
		// A comparison against a date/datetime/time literal on either side
		// is a temporal comparison regardless of which operand happens to
		// be the path expression (spec.md §4.4 item 5): the non-literal
		// side is a FHIRPath value of the same temporal kind, not a number.
		if leftTemporal || rightTemporal {
			var kind ast.LiteralKind
			if leftTemporal {
				kind = leftLit.Kind
			} else {
				kind = rightLit.Kind
			}
			cast := temporalCastKind(kind)
			lc := t.temporalCastFor(op.Left, l, cast)
			rc := t.temporalCastFor(op.Right, r, cast)
			sql = fmt.Sprintf("(%s %s %s)", lc, op.Symbol, rc)
		} else {
			lc := t.numericCastFor(op.Left, l)
			rc := t.numericCastFor(op.Right, r)
			sql = fmt.Sprintf("(%s %s %s)", lc, op.Symbol, rc)
		}
	default:
		return nil, fherrors.ErrUnsupportedOperator.New(op.Symbol, "comparison")
	}
	return &result{sql: t.singleton(sql), fhirType: "boolean"}, nil
}

func isTemporalKind(k ast.LiteralKind) bool {
	return k == ast.LiteralDate || k == ast.LiteralDateTime || k == ast.LiteralTime
}

// temporalComparison implements interval semantics for a comparison against
// a partial-precision temporal literal (spec.md §4.4 item 8, §8 boundary
// behaviors): `value < partial@Y` iff `value < start_of_Y`, and comparing
// equal values of differing precision yields empty rather than true/false.
func (t *Translator) temporalComparison(symbol string, leftNode, rightNode ast.Node, ctx *context) (*result, bool) {
	leftLit, leftIsLit := leftNode.(*ast.Literal)
	rightLit, rightIsLit := rightNode.(*ast.Literal)
	if !leftIsLit || !rightIsLit || !isTemporalKind(leftLit.Kind) || !isTemporalKind(rightLit.Kind) {
		return nil, false
	}
	if leftLit.Temporal.Precision == rightLit.Temporal.Precision {
		return nil, false // equal precision: ordinary comparison applies
	}
	if symbol == "=" || symbol == "!=" {
		return &result{sql: t.Dialect.EmptyArrayLiteral(), fhirType: "boolean"}, true
	}
	return nil, false
}

func (t *Translator) visitLogical(op *ast.Operator, ctx *context) (*result, error) {
	left, err := t.visit(op.Left, ctx)
	if err != nil {
		return nil, err
	}
	right, err := t.visit(op.Right, ctx)
	if err != nil {
		return nil, err
	}
	l := t.truthy(t.scalarOf(left.sql))
	r := t.truthy(t.scalarOf(right.sql))

	var sql string
	switch op.Symbol {
	case "and":
		sql = t.Dialect.And(l, r)
	case "or":
		sql = t.Dialect.Or(l, r)
	case "xor":
		sql = t.Dialect.Xor(l, r)
	case "implies":
		sql = t.Dialect.Or(t.Dialect.Not(l), r)
	default:
		return nil, fherrors.ErrUnsupportedOperator.New(op.Symbol, "logical")
	}
	return &result{sql: t.singleton(sql), fhirType: "boolean"}, nil
}

// truthy centralizes FHIRPath truthiness (spec.md §4.4 item 4): empty string
// → false, non-empty → true; 0 → false, non-zero → true; boolean passes
// through; null → false; arrays/objects → true. Reused by and/or/xor/implies
// and by the four quantifier aggregates.
func (t *Translator) truthy(expr string) string {
	return t.Dialect.CaseWhen([]dialect.CaseBranch{
		{When: fmt.Sprintf("%s IS NULL", expr), Then: "false"},
		{When: t.Dialect.IsPrimitiveType(expr, "Boolean"), Then: fmt.Sprintf("(%s = true)", t.Dialect.StrictCast(expr, dialect.CastBoolean))},
		{When: fmt.Sprintf("%s = ''", expr), Then: "false"},
		{When: fmt.Sprintf("%s = '0'", expr), Then: "false"},
	}, "true")
}
