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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/parser"
)

func build(t *testing.T, expr string) Node {
	t.Helper()
	raw, err := parser.Parse(expr)
	require.NoError(t, err)
	b := &Builder{}
	n, err := b.Build(raw)
	require.NoError(t, err)
	require.NoError(t, Validate(n))
	return n
}

func TestBuild_PathExpression(t *testing.T) {
	n := build(t, "Patient.name.given")
	id, ok := n.(*Identifier)
	require.True(t, ok)
	assert.Equal(t, "given", id.Name)
	assert.True(t, id.Qualified)
	assert.Equal(t, CategoryPathExpression, id.Category())
}

func TestBuild_MembershipCanonicalForm(t *testing.T) {
	n := build(t, "1 in (1 | 2 | 3)")
	call, ok := n.(*FunctionCall)
	require.True(t, ok)
	assert.Equal(t, "contains", call.Name)
	// collection first, element second
	_, isLit := call.Children()[1].(*Literal)
	assert.True(t, isLit)
}

func TestBuild_ContainsCanonicalForm(t *testing.T) {
	a := build(t, "(1 | 2 | 3) contains 1")
	b := build(t, "1 in (1 | 2 | 3)")
	ca := a.(*FunctionCall)
	cb := b.(*FunctionCall)
	assert.Equal(t, "contains", ca.Name)
	assert.Equal(t, "contains", cb.Name)
}

func TestBuild_UnaryMinusFoldsIntoLiteral(t *testing.T) {
	n := build(t, "-42")
	lit, ok := n.(*Literal)
	require.True(t, ok)
	assert.Equal(t, int64(-42), lit.Value)
}

func TestBuild_TypeIsOperation(t *testing.T) {
	n := build(t, "'abc' is Integer")
	top, ok := n.(*TypeOperation)
	require.True(t, ok)
	assert.Equal(t, TypeOpIs, top.Op)
	assert.Equal(t, "Integer", top.TargetType)
}

func TestBuild_OfTypeOperation(t *testing.T) {
	n := build(t, "Patient.value.ofType(Quantity)")
	top, ok := n.(*TypeOperation)
	require.True(t, ok)
	assert.Equal(t, TypeOpOfType, top.Op)
	assert.Equal(t, "Quantity", top.TargetType)
}

func TestBuild_EmptyCollection(t *testing.T) {
	n := build(t, "{}")
	lit, ok := n.(*Literal)
	require.True(t, ok)
	assert.Equal(t, LiteralEmptyCollection, lit.Kind)
}

func TestBuild_TemporalPartialDateTimeTrailingT(t *testing.T) {
	n := build(t, "@2015T")
	lit, ok := n.(*Literal)
	require.True(t, ok)
	assert.Equal(t, LiteralDateTime, lit.Kind)
	require.NotNil(t, lit.Temporal)
	assert.True(t, lit.Temporal.IsPartial)
}

func TestBuild_TemporalPlainDateIsDateKind(t *testing.T) {
	n := build(t, "@2015-06-01")
	lit := n.(*Literal)
	assert.Equal(t, LiteralDate, lit.Kind)
	assert.False(t, lit.Temporal.IsPartial)
}

func TestBuild_QuantityLiteral(t *testing.T) {
	n := build(t, "5 'mg'")
	lit := n.(*Literal)
	require.NotNil(t, lit.Quantity)
	assert.Equal(t, "mg", lit.Quantity.Unit)
	assert.False(t, lit.Quantity.IsTimeUnit)
}

func TestBuild_AggregationPrecedence(t *testing.T) {
	n := build(t, "(1 | 2 | 2 | 3).distinct().count()")
	agg, ok := n.(*Aggregation)
	require.True(t, ok)
	assert.Equal(t, AggCount, agg.Function)
}

func TestBuild_WhereConditional(t *testing.T) {
	n := build(t, "Patient.name.where(use='official')")
	cond, ok := n.(*Conditional)
	require.True(t, ok)
	assert.Equal(t, ConditionalWhere, cond.Kind)
	assert.Len(t, cond.Children(), 2) // receiver + predicate
}

func TestEnsureFull_Idempotent(t *testing.T) {
	n := build(t, "1 + 1")
	m1 := EnsureFull(n, nil)
	m2 := EnsureFull(n, nil)
	assert.Same(t, m1, m2)
}
