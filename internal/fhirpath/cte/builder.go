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

// Package cte assembles a fragment.Plan's ordered CTE entries into one
// executable statement (spec.md §4.5): a WITH chain followed by a final
// SELECT against the last entry.
package cte

import (
	"strings"

	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/fherrors"
	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/fragment"
)

// Statement is a fully assembled SQL statement ready for execution against
// the base resource table.
type Statement struct {
	SQL     string
	FinalID string
}

// Build topologically validates plan (every entry must be self-contained
// SQL text that only names earlier ids or the base table — the translator
// already emits in that order) and renders the WITH chain.
func Build(plan *fragment.Plan) (*Statement, error) {
	if plan == nil || len(plan.Entries) == 0 {
		return nil, fherrors.ErrEmptyPlan.New()
	}
	if err := checkAcyclic(plan); err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("WITH ")
	for i, e := range plan.Entries {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(e.ID)
		b.WriteString(" AS (")
		b.WriteString(e.SQL)
		b.WriteString(")")
	}
	b.WriteString("\nSELECT * FROM ")
	b.WriteString(plan.FinalID())

	return &Statement{SQL: b.String(), FinalID: plan.FinalID()}, nil
}

// checkAcyclic confirms every entry only references ids emitted strictly
// before it. The translator assigns ids monotonically in visit order, so a
// forward or self reference indicates a translator bug, not a user error —
// this is a self-check, not validation of untrusted input.
func checkAcyclic(plan *fragment.Plan) error {
	for i, e := range plan.Entries {
		for _, later := range plan.Entries[i:] {
			if mentionsID(e.SQL, later.ID) {
				return fherrors.ErrCyclicPlan.New(e.ID)
			}
		}
	}
	return nil
}

// mentionsID reports whether id appears in sql as a standalone token (not
// as a prefix of a longer id, e.g. "c_1" inside "c_10").
func mentionsID(sql, id string) bool {
	idx := 0
	for {
		pos := strings.Index(sql[idx:], id)
		if pos < 0 {
			return false
		}
		pos += idx
		before := pos == 0 || !isIDChar(sql[pos-1])
		after := pos+len(id) >= len(sql) || !isIDChar(sql[pos+len(id)])
		if before && after {
			return true
		}
		idx = pos + len(id)
	}
}

func isIDChar(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
