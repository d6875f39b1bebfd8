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

package ast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/fherrors"
	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/parser"
)

// Builder converts a raw parse tree into the typed AST, applying the
// unwrap/classification/canonicalization rules of spec.md §4.2. A single
// Builder instance centralizes unwrap() rather than scattering the logic
// through per-visitor special cases (design notes, "Wrapper-node
// unwrapping").
type Builder struct{}

// Build converts root into a typed AST. Cheap metadata (line/column, default
// SQL-type/collection flags) is attached at build time; full metadata is
// computed lazily via EnsureFull.
func (b *Builder) Build(root *parser.RawNode) (Node, error) {
	return b.build(root)
}

func (b *Builder) build(raw *parser.RawNode) (Node, error) {
	raw = unwrap(raw)

	switch raw.Type {
	case "NumberLiteral":
		return b.buildNumber(raw)
	case "StringLiteral":
		lit := NewLiteral(LiteralString, raw.Text, raw.SourceText)
		attachSpan(lit, raw)
		return lit, nil
	case "BooleanLiteral":
		lit := NewLiteral(LiteralBoolean, raw.Text == "true", raw.SourceText)
		attachSpan(lit, raw)
		return lit, nil
	case "TemporalLiteral":
		return b.buildTemporal(raw)
	case "QuantityLiteral":
		return b.buildQuantity(raw)
	case "EmptyCollection":
		lit := NewLiteral(LiteralEmptyCollection, nil, raw.SourceText)
		attachSpan(lit, raw)
		return lit, nil
	case "EnvVariable":
		id := NewIdentifier(raw.Text, raw.SourceText, false)
		attachSpan(id, raw)
		return id, nil
	case "Identifier":
		id := NewIdentifier(raw.Text, raw.SourceText, false)
		attachSpan(id, raw)
		return id, nil
	case "Functn":
		return b.buildFunction(raw)
	case "UnaryExpression":
		return b.buildUnary(raw)
	case "BinaryExpression":
		return b.buildBinary(raw)
	case "MembershipExpression":
		return b.buildMembership(raw)
	case "UnionExpression":
		operand0, err := b.build(raw.Children[0])
		if err != nil {
			return nil, err
		}
		operand1, err := b.build(raw.Children[1])
		if err != nil {
			return nil, err
		}
		op := NewBinaryOperator("|", ArityUnion, operand0, operand1, raw.SourceText)
		attachSpan(op, raw)
		return op, nil
	case "TypeExpression":
		return b.buildTypeExpression(raw)
	case "InvocationExpression":
		return b.buildInvocation(raw)
	case "IndexerExpression":
		return b.buildIndexer(raw)
	default:
		return nil, fherrors.ErrSyntax.New(raw.Line, raw.Column, fmt.Sprintf("unrecognized parse node %q", raw.Type))
	}
}

// unwrap collapses trivial wrapper productions (ParenthesizedTerm,
// single-child TermExpression/InvocationExpression/InvocationTerm) down to
// their sole child, per spec.md §4.2 item 1. A wrapper containing an actual
// function-call invocation is never unwrapped beyond its own shape because
// Functn nodes are never themselves wrapper types.
func unwrap(raw *parser.RawNode) *parser.RawNode {
	for {
		switch raw.Type {
		case "ParenthesizedTerm", "TermExpression", "InvocationTerm":
			if len(raw.Children) == 1 {
				raw = raw.Children[0]
				continue
			}
			// Multi-child wrapper: per design notes this is treated as
			// the legitimate case of visiting the last child, matching
			// the behavior observed in the source material.
			if len(raw.Children) > 1 {
				raw = raw.Children[len(raw.Children)-1]
				continue
			}
		}
		return raw
	}
}

func attachSpan(n Node, raw *parser.RawNode) {
	m := newCheapMetadata(raw.Line, raw.Column)
	n.setMeta(m)
}

func (b *Builder) buildNumber(raw *parser.RawNode) (Node, error) {
	text := raw.Text
	var lit *Literal
	if strings.Contains(text, ".") {
		lit = NewLiteral(LiteralDecimal, text, raw.SourceText)
	} else {
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, fherrors.ErrSyntax.New(raw.Line, raw.Column, fmt.Sprintf("invalid integer literal %q", text))
		}
		lit = NewLiteral(LiteralInteger, n, raw.SourceText)
	}
	attachSpan(lit, raw)
	return lit, nil
}

func (b *Builder) buildTemporal(raw *parser.RawNode) (Node, error) {
	info, err := ParseTemporal(raw.Text)
	if err != nil {
		return nil, fherrors.ErrSyntax.New(raw.Line, raw.Column, err.Error())
	}
	var kind LiteralKind
	switch info.Kind {
	case TemporalDate:
		kind = LiteralDate
	case TemporalDateTime:
		kind = LiteralDateTime
	case TemporalTime:
		kind = LiteralTime
	}
	lit := NewLiteral(kind, info.Normalized, raw.SourceText)
	lit.Temporal = info
	attachSpan(lit, raw)
	lit.Meta().SetAttr("original_source", raw.Text)
	return lit, nil
}

var timeUnitWords = map[string]bool{
	"year": true, "years": true, "month": true, "months": true,
	"week": true, "weeks": true, "day": true, "days": true,
	"hour": true, "hours": true, "minute": true, "minutes": true,
	"second": true, "seconds": true, "millisecond": true, "milliseconds": true,
}

func (b *Builder) buildQuantity(raw *parser.RawNode) (Node, error) {
	unit := raw.Children[0].Text
	lit := NewLiteral(LiteralQuantity, nil, raw.SourceText)
	lit.Quantity = &QuantityValue{
		Numeric:    raw.Text,
		Unit:       unit,
		Original:   raw.SourceText,
		IsTimeUnit: timeUnitWords[unit],
	}
	attachSpan(lit, raw)
	return lit, nil
}

func (b *Builder) buildFunction(raw *parser.RawNode) (Node, error) {
	name := raw.Text
	var argRaws []*parser.RawNode
	if len(raw.Children) > 0 && raw.Children[0].Type == "ParamList" {
		argRaws = raw.Children[0].Children
	}
	args := make([]Node, 0, len(argRaws))
	for _, a := range argRaws {
		n, err := b.build(a)
		if err != nil {
			return nil, err
		}
		args = append(args, n)
	}

	// Precedence rule (a): ofType(T) is a TypeOperation, wins over generic
	// function-call classification.
	if name == "ofType" && len(args) == 1 {
		target, err := typeNameFromArg(args[0], argRaws[0])
		if err != nil {
			return nil, err
		}
		op := NewTypeOperation(TypeOpOfType, target, nil, raw.SourceText)
		attachSpan(op, raw)
		return op, nil
	}

	switch name {
	case "where":
		cond := NewConditional(ConditionalWhere, args, raw.SourceText)
		attachSpan(cond, raw)
		return cond, nil
	case "select":
		cond := NewConditional(ConditionalSelect, args, raw.SourceText)
		attachSpan(cond, raw)
		return cond, nil
	case "iif":
		cond := NewConditional(ConditionalIif, args, raw.SourceText)
		attachSpan(cond, raw)
		return cond, nil
	}

	// Precedence rule (b): aggregation names win over generic function-call.
	if fn, ok := IsAggregationName(name); ok {
		agg := NewAggregation(fn, args, raw.SourceText)
		attachSpan(agg, raw)
		return agg, nil
	}

	call := NewFunctionCall(name, args, raw.SourceText)
	attachSpan(call, raw)
	return call, nil
}

// typeNameFromArg extracts a type name from an ofType(...) argument even
// when the argument is nested behind parenthesized children — spec.md §4.2
// item 5: "search the child structure to find the first non-'('/')' text".
func typeNameFromArg(n Node, raw *parser.RawNode) (string, error) {
	switch v := n.(type) {
	case *Identifier:
		return v.Name, nil
	}
	// Fall back to walking the raw tree for the first Identifier-shaped leaf,
	// covering forms like a qualified "FHIR.Quantity" that parse as an
	// InvocationExpression of identifiers.
	if name, ok := firstIdentifierText(raw); ok {
		return name, nil
	}
	return "", fherrors.ErrSyntax.New(raw.Line, raw.Column, "ofType() requires a type name")
}

func firstIdentifierText(raw *parser.RawNode) (string, bool) {
	if raw == nil {
		return "", false
	}
	if raw.Type == "Identifier" {
		return raw.Text, true
	}
	var parts []string
	cur := raw
	for cur.Type == "InvocationExpression" {
		if len(cur.Children) != 2 {
			break
		}
		if cur.Children[1].Type == "Identifier" {
			parts = append([]string{cur.Children[1].Text}, parts...)
		}
		cur = cur.Children[0]
	}
	if cur.Type == "Identifier" {
		parts = append([]string{cur.Text}, parts...)
	}
	if len(parts) > 0 {
		return strings.Join(parts, "."), true
	}
	for _, c := range raw.Children {
		if name, ok := firstIdentifierText(c); ok {
			return name, true
		}
	}
	return "", false
}

// buildUnary folds sign into a numeric literal operand (spec.md §4.2 item 3),
// otherwise emits a unary Operator node.
func (b *Builder) buildUnary(raw *parser.RawNode) (Node, error) {
	operand, err := b.build(raw.Children[0])
	if err != nil {
		return nil, err
	}
	if lit, ok := operand.(*Literal); ok && (lit.Kind == LiteralInteger || lit.Kind == LiteralDecimal) {
		if raw.Text == "-" {
			switch v := lit.Value.(type) {
			case int64:
				lit.Value = -v
			case string:
				if !strings.HasPrefix(v, "-") {
					lit.Value = "-" + v
				} else {
					lit.Value = strings.TrimPrefix(v, "-")
				}
			}
		}
		return lit, nil
	}
	op := NewUnaryOperator(raw.Text, operand, raw.SourceText)
	attachSpan(op, raw)
	return op, nil
}

var comparisonOps = map[string]bool{"<": true, "<=": true, ">": true, ">=": true, "=": true, "!=": true, "~": true, "!~": true}
var logicalOps = map[string]bool{"and": true, "or": true, "xor": true, "implies": true}

func (b *Builder) buildBinary(raw *parser.RawNode) (Node, error) {
	left, err := b.build(raw.Children[0])
	if err != nil {
		return nil, err
	}
	right, err := b.build(raw.Children[1])
	if err != nil {
		return nil, err
	}
	arity := ArityBinary
	switch {
	case comparisonOps[raw.Text]:
		arity = ArityComparison
	case logicalOps[raw.Text]:
		arity = ArityLogical
	}
	op := NewBinaryOperator(raw.Text, arity, left, right, raw.SourceText)
	attachSpan(op, raw)
	return op, nil
}

// buildMembership reduces "x in C" and "C contains x" to a canonical
// contains(C, x) function call, collection first (spec.md §4.2 item 4).
func (b *Builder) buildMembership(raw *parser.RawNode) (Node, error) {
	left, err := b.build(raw.Children[0])
	if err != nil {
		return nil, err
	}
	right, err := b.build(raw.Children[1])
	if err != nil {
		return nil, err
	}
	var collection, element Node
	if raw.Text == "in" {
		collection, element = right, left
	} else { // "contains"
		collection, element = left, right
	}
	call := NewFunctionCall("contains", []Node{collection, element}, raw.SourceText)
	attachSpan(call, raw)
	// Distinguishes this canonical membership form from a same-named
	// string .contains(substring) invocation, which is structurally
	// identical (FunctionCall "contains" with 2 children) once built.
	call.Meta().SetAttr("membership", true)
	return call, nil
}

func (b *Builder) buildTypeExpression(raw *parser.RawNode) (Node, error) {
	subject, err := b.build(raw.Children[0])
	if err != nil {
		return nil, err
	}
	target := raw.Children[1].Text
	op := TypeOpIs
	if raw.Text == "as" {
		op = TypeOpAs
	}
	node := NewTypeOperation(op, target, subject, raw.SourceText)
	attachSpan(node, raw)
	return node, nil
}

func (b *Builder) buildInvocation(raw *parser.RawNode) (Node, error) {
	left, err := b.build(raw.Children[0])
	if err != nil {
		return nil, err
	}
	right := raw.Children[1]
	if right.Type == "Functn" {
		fnNode, err := b.buildFunction(right)
		if err != nil {
			return nil, err
		}
		// A path invocation of a function (e.g. `a.where(...)`) keeps its
		// own category but gains `left` as an implicit leading argument by
		// convention: translator visits Children[0] as the receiver.
		switch v := fnNode.(type) {
		case *Conditional:
			v.children = append([]Node{left}, v.children...)
			return v, nil
		case *Aggregation:
			v.children = append([]Node{left}, v.children...)
			return v, nil
		case *FunctionCall:
			v.children = append([]Node{left}, v.children...)
			return v, nil
		case *TypeOperation:
			return NewTypeOperation(v.Op, v.TargetType, left, raw.SourceText), nil
		}
		return fnNode, nil
	}
	rightID, err := b.build(right)
	if err != nil {
		return nil, err
	}
	id, ok := rightID.(*Identifier)
	if !ok {
		return nil, fherrors.ErrSyntax.New(raw.Line, raw.Column, "expected identifier on right of '.'")
	}
	step := NewQualifiedIdentifier(id.Name, raw.SourceText, left)
	attachSpan(step, raw)
	return step, nil
}

func (b *Builder) buildIndexer(raw *parser.RawNode) (Node, error) {
	subject, err := b.build(raw.Children[0])
	if err != nil {
		return nil, err
	}
	index, err := b.build(raw.Children[1])
	if err != nil {
		return nil, err
	}
	call := NewFunctionCall("[]", []Node{subject, index}, raw.SourceText)
	attachSpan(call, raw)
	return call, nil
}
