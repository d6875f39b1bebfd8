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

func (t *Translator) visitFunctionCall(call *ast.FunctionCall, ctx *context) (*result, error) {
	if call.Name == "contains" {
		if membership, _ := call.Meta().GetAttr("membership"); membership == true {
			return t.visitMembershipContains(call, ctx)
		}
	}
	if call.Name == "[]" {
		return t.visitIndexer(call, ctx)
	}

	children := call.Children()
	if len(children) < 1 {
		return nil, fherrors.ErrWrongArity.New(call.Name, 1, 0)
	}
	receiver, err := t.visit(children[0], ctx)
	if err != nil {
		return nil, err
	}
	args := children[1:]

	switch call.Name {
	case "exists":
		return t.resultExists(receiver, args, ctx)
	case "empty":
		return t.resultEmpty(receiver)
	case "first":
		return &result{sql: t.singleton(t.scalarOf(receiver.sql)), fhirType: receiver.fhirType}, nil
	case "last":
		return &result{sql: t.singleton(t.Dialect.ArrayLast(receiver.sql)), fhirType: receiver.fhirType}, nil
	case "distinct":
		return &result{sql: t.Dialect.Distinct(receiver.sql), fhirType: receiver.fhirType}, nil
	case "isDistinct":
		return &result{sql: t.singleton(t.Dialect.IsDistinct(receiver.sql)), fhirType: "boolean"}, nil
	case "combine":
		return t.binaryCollectionOp(receiver, args, ctx, t.Dialect.Combine)
	case "exclude":
		return t.binaryCollectionOp(receiver, args, ctx, t.Dialect.Exclude)
	case "union":
		return t.binaryCollectionOp(receiver, args, ctx, func(l, r string) string {
			return t.Dialect.Distinct(t.Dialect.Combine(l, r))
		})
	case "skip":
		return t.scalarArgOp(receiver, args, ctx, t.Dialect.ArraySkip)
	case "take":
		return t.scalarArgOp(receiver, args, ctx, t.Dialect.ArrayTake)
	case "allTrue":
		return t.quantifier(receiver, t.Dialect.AllTrue, "boolean")
	case "anyTrue":
		return t.quantifier(receiver, t.Dialect.AnyTrue, "boolean")
	case "allFalse":
		return t.quantifier(receiver, t.Dialect.AllFalse, "boolean")
	case "anyFalse":
		return t.quantifier(receiver, t.Dialect.AnyFalse, "boolean")
	case "extension":
		return t.visitExtension(receiver, args, ctx)
	case "children":
		return &result{sql: t.Dialect.Children(receiver.sql)}, nil
	case "descendants":
		return &result{sql: t.Dialect.Descendants(receiver.sql)}, nil
	case "toQuantity":
		return t.visitToQuantity(receiver, args, ctx)
	case "toInteger":
		return t.scalarCast(receiver, dialect.CastInteger, "integer")
	case "toDecimal":
		return t.scalarCast(receiver, dialect.CastDecimal, "decimal")
	case "toString":
		return t.scalarCast(receiver, dialect.Cast("text"), "string")
	case "toBoolean":
		return t.scalarCast(receiver, dialect.CastBoolean, "boolean")
	}

	return t.visitStringFunction(call.Name, receiver, args, ctx)
}

// visitMembershipContains handles the canonical contains(collection, element)
// produced by buildMembership for both "in" and "contains" operators.
func (t *Translator) visitMembershipContains(call *ast.FunctionCall, ctx *context) (*result, error) {
	children := call.Children()
	if len(children) != 2 {
		return nil, fherrors.ErrWrongArity.New("contains", 2, len(children))
	}
	collection, err := t.visit(children[0], ctx)
	if err != nil {
		return nil, err
	}
	element, err := t.visit(children[1], ctx)
	if err != nil {
		return nil, err
	}
	sql := t.Dialect.ArrayContains(collection.sql, t.scalarOf(element.sql))
	return &result{sql: t.singleton(sql), fhirType: "boolean"}, nil
}

func (t *Translator) visitIndexer(call *ast.FunctionCall, ctx *context) (*result, error) {
	children := call.Children()
	if len(children) != 2 {
		return nil, fherrors.ErrWrongArity.New("[]", 2, len(children))
	}
	subject, err := t.visit(children[0], ctx)
	if err != nil {
		return nil, err
	}
	index, err := t.visit(children[1], ctx)
	if err != nil {
		return nil, err
	}
	taken := t.Dialect.ArrayTake(subject.sql, fmt.Sprintf("(%s + 1)", t.scalarOf(index.sql)))
	return &result{sql: t.singleton(t.Dialect.ArrayLast(taken)), fhirType: subject.fhirType}, nil
}

func (t *Translator) resultExists(receiver *result, args []ast.Node, ctx *context) (*result, error) {
	if len(args) == 0 {
		return &result{sql: t.singleton(fmt.Sprintf("(%s > 0)", t.arrayLength(receiver.sql))), fhirType: "boolean"}, nil
	}
	const elem = "__ex"
	predicate, err := t.visit(args[0], &context{self: t.singleton(elem)})
	if err != nil {
		return nil, err
	}
	filtered := t.Dialect.WhereFilter(receiver.sql, t.truthy(t.scalarOf(predicate.sql)), elem)
	return &result{sql: t.singleton(fmt.Sprintf("(%s > 0)", t.arrayLength(filtered))), fhirType: "boolean"}, nil
}

func (t *Translator) resultEmpty(receiver *result) (*result, error) {
	return &result{sql: t.singleton(fmt.Sprintf("(%s = 0)", t.arrayLength(receiver.sql))), fhirType: "boolean"}, nil
}

func (t *Translator) binaryCollectionOp(receiver *result, args []ast.Node, ctx *context, op func(l, r string) string) (*result, error) {
	if len(args) != 1 {
		return nil, fherrors.ErrWrongArity.New("collection-op", 1, len(args))
	}
	other, err := t.visit(args[0], ctx)
	if err != nil {
		return nil, err
	}
	return &result{sql: op(receiver.sql, other.sql), fhirType: receiver.fhirType}, nil
}

func (t *Translator) scalarArgOp(receiver *result, args []ast.Node, ctx *context, op func(arrayExpr, n string) string) (*result, error) {
	if len(args) != 1 {
		return nil, fherrors.ErrWrongArity.New("scalar-arg-op", 1, len(args))
	}
	n, err := t.visit(args[0], ctx)
	if err != nil {
		return nil, err
	}
	return &result{sql: op(receiver.sql, t.scalarOf(n.sql)), fhirType: receiver.fhirType}, nil
}

func (t *Translator) quantifier(receiver *result, op func(string) string, fhirType string) (*result, error) {
	const elem = "__q"
	mapped := t.Dialect.SelectTransform(receiver.sql, t.truthy(elem), elem)
	return &result{sql: t.singleton(op(mapped)), fhirType: fhirType}, nil
}

// visitExtension translates extension(url) by filtering the receiver's
// extensions by url and returning the matching Extension objects. It does
// not probe the value[x] fields (dialect.ExtractExtensionValue is not
// called), so a following .value is an ordinary path step on the field
// named "value".
func (t *Translator) visitExtension(receiver *result, args []ast.Node, ctx *context) (*result, error) {
	if len(args) != 1 {
		return nil, fherrors.ErrWrongArity.New("extension", 1, len(args))
	}
	url, err := t.visit(args[0], ctx)
	if err != nil {
		return nil, err
	}
	filtered := t.Dialect.FilterExtensionByURL(receiver.sql, t.scalarOf(url.sql))
	return &result{sql: filtered, fhirType: "Extension"}, nil
}

func (t *Translator) visitToQuantity(receiver *result, args []ast.Node, ctx *context) (*result, error) {
	v := t.scalarOf(receiver.sql)
	unit := "NULL"
	if len(args) == 1 {
		u, err := t.visit(args[0], ctx)
		if err != nil {
			return nil, err
		}
		unit = t.scalarOf(u.sql)
	}
	return &result{sql: t.singleton(t.quantityObject(v, unit)), fhirType: "Quantity"}, nil
}

func (t *Translator) scalarCast(receiver *result, cast dialect.Cast, fhirType string) (*result, error) {
	return &result{sql: t.singleton(t.Dialect.SafeCast(t.scalarOf(receiver.sql), cast)), fhirType: fhirType}, nil
}
