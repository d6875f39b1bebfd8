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

// Package fragment defines the SQL fragment and CTE plan types the
// translator emits and the CTE builder assembles (spec.md §3.3/§3.4).
package fragment

import "fmt"

// ResultSemantics tags what kind of value a Fragment's SQL expression
// produces.
type ResultSemantics int

const (
	Scalar ResultSemantics = iota
	JSONValue
	JSONArray
	BooleanPredicate
)

// Hole is a named substitution point in a Fragment's SQL template. Binding
// is either a literal parameter value or a reference to another fragment's
// output by its ID (RefID).
type Hole struct {
	Name    string
	Literal any    // set when this hole binds a query parameter
	RefID   string // set when this hole binds to another fragment's output, by id
}

// Fragment is one emittable SQL unit, produced bottom-up by the translator
// visitor.
type Fragment struct {
	// ID is a stable identifier assigned in visit order; later fragments may
	// depend on it.
	ID string
	// SQL is the template text; holes are referenced as $name within it.
	SQL string
	Holes   []Hole
	Result  ResultSemantics
	// DependsOn lists the IDs of fragments this one's SQL references.
	DependsOn []string
	// CTEReusable marks a fragment the CTE builder should always materialize
	// as a named CTE, even if only referenced once (translator §4.4 item 11).
	CTEReusable bool
}

// Render substitutes every hole with either its literal (quoted by the
// caller-provided quoteLiteral) or the referenced fragment's CTE alias.
func (f *Fragment) Render(resolveRef func(id string) string, quoteLiteral func(any) string) string {
	out := f.SQL
	for _, h := range f.Holes {
		var value string
		switch {
		case h.RefID != "":
			value = resolveRef(h.RefID)
		default:
			value = quoteLiteral(h.Literal)
		}
		out = replaceAll(out, "$"+h.Name, value)
	}
	return out
}

func replaceAll(s, old, new string) string {
	for {
		idx := indexOf(s, old)
		if idx < 0 {
			return s
		}
		s = s[:idx] + new + s[idx+len(old):]
	}
}

func indexOf(s, sub string) int {
	n, m := len(s), len(sub)
	if m == 0 || m > n {
		return -1
	}
	for i := 0; i+m <= n; i++ {
		if s[i:i+m] == sub {
			return i
		}
	}
	return -1
}

// Plan is the ordered, acyclic list of (id, sql) CTE entries the Fragment
// list is compiled into (spec.md §3.4).
type Plan struct {
	Entries []PlanEntry
}

// PlanEntry is one "id AS (sql)" CTE.
type PlanEntry struct {
	ID  string
	SQL string
}

// FinalID returns the id of the last entry, whose output is the final SELECT.
func (p *Plan) FinalID() string {
	if len(p.Entries) == 0 {
		return ""
	}
	return p.Entries[len(p.Entries)-1].ID
}

func (p *Plan) String() string {
	return fmt.Sprintf("Plan{%d CTEs, final=%s}", len(p.Entries), p.FinalID())
}
