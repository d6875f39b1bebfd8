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

import "github.com/joelmontavon/fhirpath-sql/internal/fhirpath/fhirtype"

// SQLType is the inferred SQL data type for a node's result.
type SQLType int

const (
	SQLUnknown SQLType = iota
	SQLText
	SQLInteger
	SQLDecimal
	SQLBoolean
	SQLDate
	SQLTimestamp
	SQLJSON
	SQLArray
)

// OptimizationHint flags a node as a candidate for a specific translator
// strategy; a node may carry any subset.
type OptimizationHint int

const (
	HintProjectionSafe OptimizationHint = iota
	HintAggregationCandidate
	HintPopulationFilter
	HintIndexFriendly
	HintCTEReusable
	HintVectorizable
)

// Metadata is the optional-field record attached to every node (spec.md
// §3.1). Essentials (Category is on the node itself, not here) are cheap to
// compute at build time; the rest is computed lazily by EnsureFull.
type Metadata struct {
	FHIRType   string
	SQLType    SQLType
	Collection bool
	Nullable   bool

	Hints map[OptimizationHint]bool

	RequiresJoin          bool
	CanBeSubquery         bool
	RequiresWindowFunction bool
	DependentTables       map[string]bool

	Line, Column int

	Attributes map[string]any

	full bool // whether EnsureFull has already run
}

func newCheapMetadata(line, column int) *Metadata {
	return &Metadata{
		SQLType:    SQLUnknown,
		Collection: true,
		Hints:      map[OptimizationHint]bool{},
		DependentTables: map[string]bool{},
		Attributes: map[string]any{},
		Line:       line,
		Column:     column,
	}
}

// Set/Get helpers for the free-form Attributes bag (used, e.g., to stash the
// original source slice for partial-datetime recovery, spec.md §4.2 item 6).
func (m *Metadata) SetAttr(key string, value any) { m.Attributes[key] = value }
func (m *Metadata) GetAttr(key string) (any, bool) {
	v, ok := m.Attributes[key]
	return v, ok
}

// EnsureFull computes the heavier database-specific hints, performance flags
// and CTE context for n if not already computed. This is mandatory-lazy per
// the design: eagerly computing full metadata for every node dominates build
// time on large expressions.
func EnsureFull(n Node, registry *fhirtype.Registry) *Metadata {
	m := n.Meta()
	if m == nil {
		m = newCheapMetadata(0, 0)
		n.setMeta(m)
	}
	if m.full {
		return m
	}
	m.full = true

	switch v := n.(type) {
	case *Literal:
		m.Collection = v.Kind == LiteralEmptyCollection
		switch v.Kind {
		case LiteralString:
			m.SQLType = SQLText
		case LiteralInteger:
			m.SQLType = SQLInteger
		case LiteralDecimal:
			m.SQLType = SQLDecimal
		case LiteralBoolean:
			m.SQLType = SQLBoolean
		case LiteralDate:
			m.SQLType = SQLDate
		case LiteralDateTime, LiteralTime:
			m.SQLType = SQLTimestamp
		case LiteralQuantity:
			m.SQLType = SQLDecimal
		case LiteralEmptyCollection:
			m.SQLType = SQLUnknown
		}
		m.Hints[HintProjectionSafe] = true
	case *Identifier:
		m.SQLType = SQLJSON
		m.Hints[HintIndexFriendly] = v.Qualified
	case *FunctionCall:
		if fn, ok := IsAggregationName(v.Name); ok {
			_ = fn
			m.Hints[HintAggregationCandidate] = true
		}
		if v.Name == "where" {
			m.Hints[HintPopulationFilter] = true
		}
		m.RequiresJoin = v.Name == "extension" || v.Name == "resolve"
	case *Operator:
		if v.Arity == ArityComparison {
			m.SQLType = SQLBoolean
			m.Collection = false
		}
		if v.Arity == ArityLogical {
			m.SQLType = SQLBoolean
			m.Collection = false
		}
	case *Conditional:
		if v.Kind == ConditionalWhere {
			m.Hints[HintPopulationFilter] = true
		}
		m.RequiresWindowFunction = v.Kind == ConditionalSelect
	case *Aggregation:
		m.Hints[HintAggregationCandidate] = true
		m.Collection = false
		m.SQLType = SQLDecimal
	case *TypeOperation:
		if registry != nil && registry.IsComplex(v.TargetType) {
			m.RequiresJoin = false
			m.Hints[HintIndexFriendly] = false
		}
		if v.Op == TypeOpIs {
			m.SQLType = SQLBoolean
		}
	}

	for _, c := range n.Children() {
		EnsureFull(c, registry)
	}
	return m
}
