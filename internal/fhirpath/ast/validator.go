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

	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/fherrors"
)

// Validate walks root confirming the structural invariants of spec.md §3.1 /
// §8 item 1: operator arity matches child count, Literal has no children,
// and category/payload are consistent (Aggregation function names come from
// the closed set, TypeOperation ops come from {is, as, ofType}). This is a
// standalone self-check pass, grounded on the original implementation's
// dedicated AST validator module — it is implementation self-checking, not
// new user-facing behavior.
func Validate(root Node) error {
	return validate(root)
}

func validate(n Node) error {
	switch v := n.(type) {
	case *Literal:
		if len(v.Children()) != 0 {
			return fherrors.ErrASTInvariant.New("Literal node must have no children")
		}
	case *Operator:
		want := 2
		if v.Arity == ArityUnary {
			want = 1
		}
		if len(v.Children()) != want {
			return fherrors.ErrASTInvariant.New(fmt.Sprintf("operator %q arity mismatch: want %d children, got %d", v.Symbol, want, len(v.Children())))
		}
	case *Aggregation:
		if _, ok := IsAggregationName(string(v.Function)); !ok {
			return fherrors.ErrASTInvariant.New(fmt.Sprintf("unknown aggregation function %q", v.Function))
		}
	case *TypeOperation:
		if v.Op != TypeOpIs && v.Op != TypeOpAs && v.Op != TypeOpOfType {
			return fherrors.ErrASTInvariant.New("unknown type operation")
		}
	}
	for _, c := range n.Children() {
		if err := validate(c); err != nil {
			return err
		}
	}
	return nil
}
