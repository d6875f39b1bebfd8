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

package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joelmontavon/fhirpath-sql/internal/fhirpath/fherrors"
)

func TestCategorize(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Category
	}{
		{"unknown function", fherrors.ErrUnknownFunction.New("frobnicate"), CategoryFunctionSignature},
		{"wrong arity", fherrors.ErrWrongArity.New("substring", 2, 1), CategoryFunctionSignature},
		{"unknown type", fherrors.ErrUnknownType.New("Frobnicator"), CategoryTranslation},
		{"missing dialect primitive", fherrors.ErrMissingDialectPrimitive.New("duckdb", "foo"), CategoryBinder},
		{"empty expression", fherrors.ErrEmptyExpression.New(), CategoryInvalidInput},
		{"unterminated comment", fherrors.ErrUnterminatedComment.New(1, 2), CategoryInvalidInput},
		{"result shape mismatch", fherrors.ErrResultShapeMismatch.New("a", "b"), CategoryResultLogic},
		{"missing expected failure", fherrors.ErrMissingExpectedFailure.New("syntax"), CategorySemanticValidation},
		{"pool exhausted", fherrors.ErrPoolExhausted.New(), CategoryBinder},
		{"ast invariant", fherrors.ErrASTInvariant.New("bad arity"), CategorySemanticValidation},
		{"nil", nil, CategoryUncategorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Categorize(tc.err))
		})
	}
}

func TestCategorize_ExecutionErrorBySubstring(t *testing.T) {
	assert.Equal(t, CategoryConversion, Categorize(fherrors.ErrExecution.New("invalid cast to type INTEGER")))
	assert.Equal(t, CategoryFunctionSignature, Categorize(fherrors.ErrExecution.New("no function matches argument types")))
	assert.Equal(t, CategoryTranslation, Categorize(fherrors.ErrExecution.New("syntax error near WHERE")))
}

func TestValueMismatch_EmptyVsResultLogic(t *testing.T) {
	assert.Equal(t, CategoryEmptyResult, Categorize(fherrors.ErrValueMismatch.New("empty", []any{"x"})))
	assert.Equal(t, CategoryResultLogic, Categorize(fherrors.ErrValueMismatch.New("2", "3")))
}
